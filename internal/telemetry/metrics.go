package telemetry

import (
	"context"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/probewatch/probewatch/internal/probe"
)

// ProbeMetrics holds the instruments for probe executions, check outcomes
// and sink delivery failures.
type ProbeMetrics struct {
	executionTotal    metric.Int64Counter
	executionDuration metric.Float64Histogram
	outcomeTotal      metric.Int64Counter
	publishFailures   metric.Int64Counter
}

// NewProbeMetrics creates the probe instruments on meter.
func NewProbeMetrics(meter metric.Meter) (*ProbeMetrics, error) {
	executionTotal, err := meter.Int64Counter(
		"probe.execution.total",
		metric.WithDescription("Number of probe executions by final status"),
		metric.WithUnit("{execution}"),
	)
	if err != nil {
		return nil, err
	}

	executionDuration, err := meter.Float64Histogram(
		"probe.execution.duration",
		metric.WithDescription("Duration of probe executions in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	outcomeTotal, err := meter.Int64Counter(
		"probe.outcome.total",
		metric.WithDescription("Number of check outcomes by check type and verdict"),
		metric.WithUnit("{outcome}"),
	)
	if err != nil {
		return nil, err
	}

	publishFailures, err := meter.Int64Counter(
		"sink.publish.failures",
		metric.WithDescription("Number of outcomes the sink failed to deliver"),
		metric.WithUnit("{outcome}"),
	)
	if err != nil {
		return nil, err
	}

	return &ProbeMetrics{
		executionTotal:    executionTotal,
		executionDuration: executionDuration,
		outcomeTotal:      outcomeTotal,
		publishFailures:   publishFailures,
	}, nil
}

// RecordExecution records one finished execution.
func (m *ProbeMetrics) RecordExecution(ctx context.Context, probeName, status string, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("probe.name", probeName),
		attribute.String("probe.status", status),
	)
	m.executionTotal.Add(ctx, 1, attrs)
	m.executionDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordOutcome records one check outcome.
func (m *ProbeMetrics) RecordOutcome(ctx context.Context, probeName string, outcome probe.CheckOutcome) {
	m.outcomeTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("probe.name", probeName),
		attribute.String("check.type", string(outcome.CheckType)),
		attribute.String("check.success", strconv.FormatBool(outcome.Success)),
	))
}

// RecordPublishFailure records an outcome that did not reach the sink.
func (m *ProbeMetrics) RecordPublishFailure(ctx context.Context, probeName, reason string) {
	m.publishFailures.Add(ctx, 1, metric.WithAttributes(
		attribute.String("probe.name", probeName),
		attribute.String("sink.failure_reason", reason),
	))
}
