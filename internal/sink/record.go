// Package sink delivers check outcomes to their downstream destination.
//
// Every publisher in this package contains its own failures: transport
// errors are logged and counted but never returned to the caller.
package sink

import (
	"encoding/json"

	"github.com/probewatch/probewatch/internal/probe"
)

// Record is the self-describing wire form of one check outcome.
type Record struct {
	ProbeName string  `json:"probe_name"`
	CheckType string  `json:"check_type"`
	Timestamp int64   `json:"timestamp"`
	Success   bool    `json:"success"`
	Details   *string `json:"details"`
}

// NewRecord builds the record for an outcome of the named probe.
// Empty details are encoded as null.
func NewRecord(probeName string, outcome probe.CheckOutcome) Record {
	r := Record{
		ProbeName: probeName,
		CheckType: string(outcome.CheckType),
		Timestamp: outcome.Timestamp,
		Success:   outcome.Success,
	}
	if outcome.Details != "" {
		details := outcome.Details
		r.Details = &details
	}
	return r
}

// Encode returns the JSON encoding of the record.
func (r Record) Encode() ([]byte, error) {
	return json.Marshal(r)
}

// Attributes returns message attributes that allow filtering without
// decoding the payload.
func (r Record) Attributes() map[string]string {
	success := "false"
	if r.Success {
		success = "true"
	}
	return map[string]string{
		"probe_name": r.ProbeName,
		"check_type": r.CheckType,
		"success":    success,
	}
}
