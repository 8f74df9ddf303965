package sink

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/probewatch/probewatch/internal/probe"
)

// LogPublisher writes outcomes to the log stream. It is used when no sink
// transport is configured.
type LogPublisher struct {
	logger zerolog.Logger
}

// NewLogPublisher creates a LogPublisher.
func NewLogPublisher(logger zerolog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish logs the outcome record.
func (p *LogPublisher) Publish(_ context.Context, probeName string, outcome probe.CheckOutcome) {
	record := NewRecord(probeName, outcome)

	event := p.logger.Info().
		Str("probe", record.ProbeName).
		Str("check_type", record.CheckType).
		Int64("timestamp", record.Timestamp).
		Bool("success", record.Success)
	if record.Details != nil {
		event = event.Str("details", *record.Details)
	}
	event.Msg("sink not configured, logging outcome")
}

// Close is a no-op.
func (p *LogPublisher) Close() error {
	return nil
}
