// Package execution runs a single probe execution: fetch, optional
// certificate fetch, evaluation of every check, and publication of the
// resulting outcomes.
package execution

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/probewatch/probewatch/internal/probe"
	"github.com/probewatch/probewatch/internal/requestor"
)

const tracerName = "github.com/probewatch/probewatch/internal/execution"

// Execution statuses reported to the Recorder.
const (
	StatusCompleted   = "completed"
	StatusFetchFailed = "fetch_failed"
	StatusCertFailed  = "cert_failed"
)

// Publisher hands one outcome to the downstream sink. Implementations catch
// and log their own transport failures.
type Publisher interface {
	Publish(ctx context.Context, probeName string, outcome probe.CheckOutcome)
}

// Recorder receives execution measurements. It is optional.
type Recorder interface {
	RecordExecution(ctx context.Context, probeName, status string, duration time.Duration)
	RecordOutcome(ctx context.Context, probeName string, outcome probe.CheckOutcome)
}

// Config holds dependencies for a Service.
type Config struct {
	Requestor requestor.Requestor
	Publisher Publisher
	Logger    zerolog.Logger

	// Recorder is optional.
	Recorder Recorder

	// CertTimeout bounds the certificate handshake.
	// Default: requestor.DefaultCertTimeout
	CertTimeout time.Duration
}

// Service is the probe execution orchestrator.
type Service struct {
	requestor   requestor.Requestor
	publisher   Publisher
	recorder    Recorder
	logger      zerolog.Logger
	tracer      trace.Tracer
	certTimeout time.Duration
}

// NewService creates a Service.
func NewService(cfg Config) *Service {
	certTimeout := cfg.CertTimeout
	if certTimeout <= 0 {
		certTimeout = requestor.DefaultCertTimeout
	}

	return &Service{
		requestor:   cfg.Requestor,
		publisher:   cfg.Publisher,
		recorder:    cfg.Recorder,
		logger:      cfg.Logger,
		tracer:      otel.Tracer(tracerName),
		certTimeout: certTimeout,
	}
}

// Execute runs one execution of p. A failed fetch or certificate fetch ends
// the execution without evaluating or publishing anything.
func (s *Service) Execute(ctx context.Context, p probe.Probe) {
	start := time.Now()
	logger := s.logger.With().
		Str("probe", p.Name).
		Str("execution_id", uuid.NewString()).
		Logger()

	ctx, span := s.tracer.Start(ctx, "probe.execute",
		trace.WithAttributes(
			attribute.String("probe.name", p.Name),
			attribute.String("url.full", p.URL),
			attribute.Int("probe.checks", len(p.Checks)),
		),
	)
	defer span.End()

	logger.Info().Str("url", p.URL).Msg("executing probe")

	res, err := s.requestor.Fetch(ctx, p.URL).Get()
	if err != nil {
		logger.Error().Err(err).Msg("error getting response for probe")
		s.fail(ctx, span, p.Name, StatusFetchFailed, err, start)
		return
	}

	logger.Info().
		Int("status_code", res.StatusCode).
		Int64("elapsed_ms", res.ElapsedMS).
		Msg("fetched response for probe")

	var cert *probe.CertInfo
	if p.RequiresCertificate() {
		info, err := s.requestor.FetchCertInfo(ctx, p.URL, s.certTimeout).Get()
		if err != nil {
			logger.Error().
				Err(err).
				Bool("certificate_rejected", requestor.IsCertificateError(err)).
				Msg("error getting cert info for probe")
			s.fail(ctx, span, p.Name, StatusCertFailed, err, start)
			return
		}
		cert = &info

		logger.Info().
			Time("not_after", info.NotAfter).
			Msg("fetched cert info for probe")
	}

	outcomes := EvaluateAll(p, res, cert)
	logger.Info().Int("outcomes", len(outcomes)).Msg("calculated outcomes for probe")

	for _, outcome := range outcomes {
		logger.Debug().
			Str("check_type", string(outcome.CheckType)).
			Bool("success", outcome.Success).
			Str("details", outcome.Details).
			Msg("probe check outcome")

		s.publisher.Publish(ctx, p.Name, outcome)
		if s.recorder != nil {
			s.recorder.RecordOutcome(ctx, p.Name, outcome)
		}
	}

	logger.Info().Msg("published outcomes for probe")

	span.SetAttributes(attribute.Int("probe.outcomes", len(outcomes)))
	if s.recorder != nil {
		s.recorder.RecordExecution(ctx, p.Name, StatusCompleted, time.Since(start))
	}
}

func (s *Service) fail(ctx context.Context, span trace.Span, probeName, status string, err error, start time.Time) {
	span.RecordError(err)
	span.SetStatus(codes.Error, status)
	if s.recorder != nil {
		s.recorder.RecordExecution(ctx, probeName, status, time.Since(start))
	}
}

// EvaluateAll evaluates every check of p in declaration order.
func EvaluateAll(p probe.Probe, res probe.HTTPResult, cert *probe.CertInfo) []probe.CheckOutcome {
	outcomes := make([]probe.CheckOutcome, 0, len(p.Checks))
	for _, c := range p.Checks {
		outcomes = append(outcomes, probe.Evaluate(c, res, cert))
	}
	return outcomes
}
