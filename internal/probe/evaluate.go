package probe

import (
	"fmt"
	"time"
)

const day = 24 * time.Hour

// Details used by the evaluator.
const (
	DetailsNoCertificate  = "no certificate info available"
	DetailsNotImplemented = "not implemented"
)

// Evaluate turns a check plus the fetched response (and optional certificate
// metadata) into an outcome stamped with the current time.
func Evaluate(c Check, res HTTPResult, cert *CertInfo) CheckOutcome {
	return EvaluateAt(c, res, cert, time.Now())
}

// EvaluateAt is Evaluate with an explicit evaluation time.
func EvaluateAt(c Check, res HTTPResult, cert *CertInfo, now time.Time) CheckOutcome {
	return c.accept(evaluation{res: res, cert: cert, now: now.UTC()})
}

type evaluation struct {
	res  HTTPResult
	cert *CertInfo
	now  time.Time
}

var _ checkVisitor = evaluation{}

func (e evaluation) outcome(t CheckType, success bool, details string) CheckOutcome {
	return CheckOutcome{
		CheckType: t,
		Timestamp: e.now.UnixMilli(),
		Success:   success,
		Details:   details,
	}
}

func (e evaluation) visitStatusCode(c StatusCodeCheck) CheckOutcome {
	if e.res.StatusCode == c.ExpectedStatusCode {
		return e.outcome(c.Type(), true, "")
	}
	return e.outcome(c.Type(), false,
		fmt.Sprintf("expected status code %d, got %d", c.ExpectedStatusCode, e.res.StatusCode))
}

func (e evaluation) visitResponseTime(c ResponseTimeCheck) CheckOutcome {
	if e.res.ElapsedMS <= c.ThresholdMS {
		return e.outcome(c.Type(), true, "")
	}
	return e.outcome(c.Type(), false,
		fmt.Sprintf("response time %dms exceeds threshold %dms", e.res.ElapsedMS, c.ThresholdMS))
}

// TODO: decide what is hashed (raw body or a normalized form) before comparing against ExpectedHash.
func (e evaluation) visitHash(c HashCheck) CheckOutcome {
	return e.outcome(c.Type(), true, DetailsNotImplemented)
}

func (e evaluation) visitSSLValidity(c SSLValidityCheck) CheckOutcome {
	if e.cert == nil {
		return e.outcome(c.Type(), false, DetailsNoCertificate)
	}

	remaining := e.cert.NotAfter.Sub(e.now)
	days := int(remaining / day)
	if remaining >= 0 && days >= c.MinDaysValid {
		return e.outcome(c.Type(), true, "")
	}
	return e.outcome(c.Type(), false,
		fmt.Sprintf("certificate expires %s (%d days left), requires at least %d days",
			e.cert.NotAfter.UTC().Format(time.RFC3339), days, c.MinDaysValid))
}
