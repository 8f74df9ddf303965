package probe

// CheckType is the tag carried by every check variant and copied onto its outcomes.
type CheckType string

// Check type tags.
const (
	CheckTypeStatusCode   CheckType = "StatusCodeCheck"
	CheckTypeResponseTime CheckType = "ResponseTimeCheck"
	CheckTypeHash         CheckType = "HashCheck"
	CheckTypeSSLValidity  CheckType = "SslValidityCheck"
)

// Check is a single pass/fail rule evaluated against a fetch result.
//
// The set of variants is closed: accept is unexported, so only the types in
// this package implement Check. Every variant dispatches to a method of
// checkVisitor, which means a new variant cannot be added without the
// evaluator growing a matching method.
type Check interface {
	Type() CheckType
	accept(v checkVisitor) CheckOutcome
}

type checkVisitor interface {
	visitStatusCode(c StatusCodeCheck) CheckOutcome
	visitResponseTime(c ResponseTimeCheck) CheckOutcome
	visitHash(c HashCheck) CheckOutcome
	visitSSLValidity(c SSLValidityCheck) CheckOutcome
}

// StatusCodeCheck passes when the response status equals ExpectedStatusCode.
type StatusCodeCheck struct {
	ExpectedStatusCode int
}

// Type implements Check.
func (StatusCodeCheck) Type() CheckType { return CheckTypeStatusCode }

func (c StatusCodeCheck) accept(v checkVisitor) CheckOutcome { return v.visitStatusCode(c) }

// ResponseTimeCheck passes when the fetch took at most ThresholdMS milliseconds.
type ResponseTimeCheck struct {
	ThresholdMS int64
}

// Type implements Check.
func (ResponseTimeCheck) Type() CheckType { return CheckTypeResponseTime }

func (c ResponseTimeCheck) accept(v checkVisitor) CheckOutcome { return v.visitResponseTime(c) }

// HashCheck compares a hash of the response against ExpectedHash.
// Evaluation is not implemented yet and always passes.
type HashCheck struct {
	ExpectedHash string
}

// Type implements Check.
func (HashCheck) Type() CheckType { return CheckTypeHash }

func (c HashCheck) accept(v checkVisitor) CheckOutcome { return v.visitHash(c) }

// SSLValidityCheck passes when the peer certificate stays valid for at least
// MinDaysValid more whole days.
type SSLValidityCheck struct {
	MinDaysValid int
}

// Type implements Check.
func (SSLValidityCheck) Type() CheckType { return CheckTypeSSLValidity }

func (c SSLValidityCheck) accept(v checkVisitor) CheckOutcome { return v.visitSSLValidity(c) }
