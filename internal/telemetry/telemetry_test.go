package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/probewatch/probewatch/internal/execution"
	"github.com/probewatch/probewatch/internal/probe"
	"github.com/probewatch/probewatch/internal/sink"
	"github.com/probewatch/probewatch/internal/telemetry"
)

var (
	_ execution.Recorder   = (*telemetry.ProbeMetrics)(nil)
	_ sink.FailureRecorder = (*telemetry.ProbeMetrics)(nil)
)

func TestInit_Disabled(t *testing.T) {
	ctx := context.Background()

	provider, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    "probewatch",
		ServiceVersion: "1.0.0",
		Environment:    "test",
		OTLPEndpoint:   "localhost:4317",
		Enabled:        false,
		Logger:         zerolog.Nop(),
	})

	require.NoError(t, err)
	assert.NotNil(t, provider.Meter)
	assert.NotNil(t, provider.Metrics)
	assert.Nil(t, provider.TracerProvider)
	assert.Nil(t, provider.MeterProvider)

	// Recording against the noop meter must be harmless.
	provider.Metrics.RecordExecution(ctx, "homepage", execution.StatusCompleted, time.Second)

	assert.NoError(t, provider.Shutdown(ctx))
}

func TestProvider_Shutdown_NilProviders(t *testing.T) {
	provider := &telemetry.Provider{}
	assert.NoError(t, provider.Shutdown(context.Background()))
}

func newTestMetrics(t *testing.T) (*telemetry.ProbeMetrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	metrics, err := telemetry.NewProbeMetrics(mp.Meter("test"))
	require.NoError(t, err)
	return metrics, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Aggregation)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func sumWhere(t *testing.T, data metricdata.Aggregation, key, value string) int64 {
	t.Helper()
	sum, ok := data.(metricdata.Sum[int64])
	require.True(t, ok, "expected an int64 sum")

	var total int64
	for _, dp := range sum.DataPoints {
		if v, found := dp.Attributes.Value(attribute.Key(key)); found && v.AsString() == value {
			total += dp.Value
		}
	}
	return total
}

func TestProbeMetrics_RecordExecution(t *testing.T) {
	metrics, reader := newTestMetrics(t)
	ctx := context.Background()

	metrics.RecordExecution(ctx, "homepage", execution.StatusCompleted, 120*time.Millisecond)
	metrics.RecordExecution(ctx, "homepage", execution.StatusFetchFailed, 30*time.Millisecond)
	metrics.RecordExecution(ctx, "api", execution.StatusCompleted, 80*time.Millisecond)

	data := collect(t, reader)
	assert.Equal(t, int64(2), sumWhere(t, data["probe.execution.total"], "probe.status", execution.StatusCompleted))
	assert.Equal(t, int64(1), sumWhere(t, data["probe.execution.total"], "probe.status", execution.StatusFetchFailed))

	hist, ok := data["probe.execution.duration"].(metricdata.Histogram[float64])
	require.True(t, ok)
	var count uint64
	for _, dp := range hist.DataPoints {
		count += dp.Count
	}
	assert.Equal(t, uint64(3), count)
}

func TestProbeMetrics_RecordOutcome(t *testing.T) {
	metrics, reader := newTestMetrics(t)
	ctx := context.Background()

	metrics.RecordOutcome(ctx, "homepage", probe.CheckOutcome{CheckType: probe.CheckTypeStatusCode, Success: true})
	metrics.RecordOutcome(ctx, "homepage", probe.CheckOutcome{CheckType: probe.CheckTypeSSLValidity, Success: false})
	metrics.RecordOutcome(ctx, "homepage", probe.CheckOutcome{CheckType: probe.CheckTypeStatusCode, Success: false})

	data := collect(t, reader)
	assert.Equal(t, int64(2), sumWhere(t, data["probe.outcome.total"], "check.type", "StatusCodeCheck"))
	assert.Equal(t, int64(2), sumWhere(t, data["probe.outcome.total"], "check.success", "false"))
}

func TestProbeMetrics_RecordPublishFailure(t *testing.T) {
	metrics, reader := newTestMetrics(t)

	metrics.RecordPublishFailure(context.Background(), "homepage", "transport")
	metrics.RecordPublishFailure(context.Background(), "homepage", "circuit_open")

	data := collect(t, reader)
	assert.Equal(t, int64(1), sumWhere(t, data["sink.publish.failures"], "sink.failure_reason", "transport"))
	assert.Equal(t, int64(2), sumWhere(t, data["sink.publish.failures"], "probe.name", "homepage"))
}
