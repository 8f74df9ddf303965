package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/multierr"

	"github.com/probewatch/probewatch/internal/execution"
	"github.com/probewatch/probewatch/internal/probe"
	"github.com/probewatch/probewatch/internal/requestor"
)

// Publisher is a long-lived sink handle owned by a single job.
type Publisher interface {
	execution.Publisher
	Close() error
}

// PublisherFactory creates the sink handle for one probe's job.
type PublisherFactory func(probeName string) (Publisher, error)

// SupervisorConfig holds configuration for a Supervisor.
type SupervisorConfig struct {
	Probes       []probe.Probe
	Requestor    requestor.Requestor
	NewPublisher PublisherFactory
	Logger       zerolog.Logger

	// Recorder and Status are optional.
	Recorder execution.Recorder
	Status   *StatusBoard

	// CertTimeout bounds certificate handshakes.
	// Default: requestor.DefaultCertTimeout
	CertTimeout time.Duration
}

// Supervisor starts one job loop per probe and waits for all of them to stop.
//
// Jobs are isolated from each other: a panic inside one execution is
// recovered and logged by that job, which then goes back to sleeping.
type Supervisor struct {
	cfg       SupervisorConfig
	schedules []Schedule
}

// NewSupervisor validates every probe schedule and creates a Supervisor.
// All invalid schedules are reported together.
func NewSupervisor(cfg SupervisorConfig) (*Supervisor, error) {
	if cfg.NewPublisher == nil {
		return nil, fmt.Errorf("supervisor: publisher factory is required")
	}
	if cfg.Requestor == nil {
		return nil, fmt.Errorf("supervisor: requestor is required")
	}

	var errs error
	schedules := make([]Schedule, len(cfg.Probes))
	for i, p := range cfg.Probes {
		s, err := ParseSchedule(p.Schedule)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("probe %q: %w", p.Name, err))
			continue
		}
		schedules[i] = s
	}
	if errs != nil {
		return nil, errs
	}

	return &Supervisor{cfg: cfg, schedules: schedules}, nil
}

// Run creates a publisher per probe, starts every job and blocks until ctx is
// cancelled and all jobs have drained. An error is returned only when the
// jobs could not be started.
func (s *Supervisor) Run(ctx context.Context) error {
	logger := s.cfg.Logger

	publishers := make([]Publisher, 0, len(s.cfg.Probes))
	for _, p := range s.cfg.Probes {
		pub, err := s.cfg.NewPublisher(p.Name)
		if err != nil {
			closeAll(logger, publishers)
			return fmt.Errorf("create publisher for probe %q: %w", p.Name, err)
		}
		publishers = append(publishers, pub)
	}
	defer closeAll(logger, publishers)

	var wg sync.WaitGroup
	for i, p := range s.cfg.Probes {
		s.cfg.Status.register(p.Name, p.Schedule)

		job := NewJob(JobConfig{
			Probe:    p,
			Schedule: s.schedules[i],
			Executor: execution.NewService(execution.Config{
				Requestor:   s.cfg.Requestor,
				Publisher:   publishers[i],
				Logger:      logger,
				Recorder:    s.cfg.Recorder,
				CertTimeout: s.cfg.CertTimeout,
			}),
			Logger: logger,
			Status: s.cfg.Status,
		})

		wg.Add(1)
		go func() {
			defer wg.Done()
			job.Run(ctx)
		}()
	}

	s.cfg.Status.MarkStarted()
	logger.Info().Int("probes", len(s.cfg.Probes)).Msg("probe jobs started")

	wg.Wait()
	logger.Info().Msg("all probe jobs stopped")
	return nil
}

func closeAll(logger zerolog.Logger, publishers []Publisher) {
	for _, pub := range publishers {
		if err := pub.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close publisher")
		}
	}
}
