// Package probe defines the probe domain: probes, their checks, fetch results,
// certificate metadata and the outcomes produced by evaluating checks.
package probe

import "time"

// Probe is a named, scheduled target URL with an ordered set of checks.
// Probes are immutable once loaded from configuration.
type Probe struct {
	// Name identifies the probe in logs and published outcomes.
	Name string

	// URL is the target fetched on every execution.
	URL string

	// Schedule is a cron expression (five fields or a descriptor like @hourly).
	Schedule string

	// Checks are evaluated in order; outcomes are emitted in the same order.
	Checks []Check
}

// RequiresCertificate reports whether any of the probe's checks needs
// certificate metadata.
func (p Probe) RequiresCertificate() bool {
	for _, c := range p.Checks {
		if _, ok := c.(SSLValidityCheck); ok {
			return true
		}
	}
	return false
}

// HTTPResult is the observed response of a single fetch.
type HTTPResult struct {
	StatusCode int
	Body       []byte
	ElapsedMS  int64
}

// CertInfo is the metadata extracted from the leaf certificate of a TLS peer.
type CertInfo struct {
	// SubjectCN and IssuerCN are nil when the certificate carries no common name.
	SubjectCN *string
	IssuerCN  *string

	// NotBefore and NotAfter are normalized to UTC.
	NotBefore time.Time
	NotAfter  time.Time
}

// CheckOutcome is the timestamped verdict for one check on one execution.
type CheckOutcome struct {
	CheckType CheckType

	// Timestamp is the evaluation wall-clock time in epoch milliseconds.
	Timestamp int64

	Success bool

	// Details is a human-readable explanation. Empty when there is nothing to add.
	Details string
}
