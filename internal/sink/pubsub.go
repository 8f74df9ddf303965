package sink

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"google.golang.org/api/option"

	"github.com/probewatch/probewatch/internal/probe"
)

// ErrCircuitOpen is reported when a publish is skipped because the
// publisher's circuit breaker is open.
var ErrCircuitOpen = errors.New("sink circuit breaker is open")

// FailureRecorder counts outcomes that could not be delivered.
type FailureRecorder interface {
	RecordPublishFailure(ctx context.Context, probeName string, reason string)
}

// ConnectConfig holds the Pub/Sub connection settings.
type ConnectConfig struct {
	ProjectID string

	// CredentialsFile is an optional service account key file. When empty,
	// application default credentials are used.
	CredentialsFile string

	// MaxRetries bounds connection attempts at startup.
	// Default: 3
	MaxRetries uint64

	// Options are appended to the client options.
	Options []option.ClientOption
}

// Connect creates the process-wide Pub/Sub client, retrying with exponential
// backoff until it succeeds, retries run out or ctx is cancelled.
func Connect(ctx context.Context, cfg ConnectConfig, logger zerolog.Logger) (*pubsub.Client, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("pubsub: project id is required")
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}

	opts := make([]option.ClientOption, 0, len(cfg.Options)+1)
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	opts = append(opts, cfg.Options...)

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 5 * time.Second
	bo.MaxElapsedTime = 0

	var client *pubsub.Client
	operation := func() error {
		c, err := pubsub.NewClient(ctx, cfg.ProjectID, opts...)
		if err != nil {
			return err
		}
		client = c
		return nil
	}
	notify := func(err error, wait time.Duration) {
		logger.Warn().Err(err).Dur("retry_in", wait).Msg("failed to create pubsub client, retrying")
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(bo, cfg.MaxRetries), ctx)
	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	logger.Info().Str("project_id", cfg.ProjectID).Msg("connected to pubsub")
	return client, nil
}

// PubSubSinkConfig holds configuration for a PubSubSink.
type PubSubSinkConfig struct {
	Client *pubsub.Client
	Topic  string
	Logger zerolog.Logger

	// Registry and Failures are optional.
	Registry *Registry
	Failures FailureRecorder

	// Breaker configures each publisher's circuit breaker.
	// Default: DefaultBreakerConfig()
	Breaker *BreakerConfig

	// PublishTimeout bounds the wait for the server to acknowledge one outcome.
	// Default: 10 seconds
	PublishTimeout time.Duration
}

// PubSubSink hands out one long-lived publisher per probe job, all sharing
// the process-wide client.
type PubSubSink struct {
	cfg PubSubSinkConfig
}

// NewPubSubSink creates a PubSubSink.
func NewPubSubSink(cfg PubSubSinkConfig) (*PubSubSink, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("pubsub sink: client is required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("pubsub sink: topic is required")
	}
	if cfg.Breaker == nil {
		b := DefaultBreakerConfig()
		cfg.Breaker = &b
	}
	if cfg.PublishTimeout == 0 {
		cfg.PublishTimeout = 10 * time.Second
	}
	return &PubSubSink{cfg: cfg}, nil
}

// NewPublisher creates the publisher owned by the named probe's job.
func (s *PubSubSink) NewPublisher(probeName string) (*PubSubPublisher, error) {
	name := "pubsub:" + probeName
	breaker := newBreaker(name, *s.cfg.Breaker)

	p := &PubSubPublisher{
		name:      name,
		publisher: s.cfg.Client.Publisher(s.cfg.Topic),
		breaker:   breaker,
		registry:  s.cfg.Registry,
		failures:  s.cfg.Failures,
		timeout:   s.cfg.PublishTimeout,
		logger: s.cfg.Logger.With().
			Str("probe", probeName).
			Str("topic", s.cfg.Topic).
			Logger(),
	}
	s.cfg.Registry.register(name, breaker)

	return p, nil
}

// PubSubPublisher publishes outcome records for one probe to a Pub/Sub topic.
type PubSubPublisher struct {
	name      string
	publisher *pubsub.Publisher
	breaker   *gobreaker.CircuitBreaker[string]
	registry  *Registry
	failures  FailureRecorder
	timeout   time.Duration
	logger    zerolog.Logger
}

// Publish sends one outcome and waits for the server acknowledgement.
// Failures are logged and never returned.
func (p *PubSubPublisher) Publish(ctx context.Context, probeName string, outcome probe.CheckOutcome) {
	record := NewRecord(probeName, outcome)
	data, err := record.Encode()
	if err != nil {
		p.fail(ctx, probeName, "encode", err)
		return
	}

	id, err := p.breaker.Execute(func() (string, error) {
		publishCtx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()

		res := p.publisher.Publish(publishCtx, &pubsub.Message{
			Data:       data,
			Attributes: record.Attributes(),
		})
		return res.Get(publishCtx)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			p.fail(ctx, probeName, "circuit_open", ErrCircuitOpen)
			return
		}
		p.fail(ctx, probeName, "transport", err)
		return
	}

	p.registry.recordSuccess(p.name)
	p.logger.Debug().
		Str("message_id", id).
		Str("check_type", record.CheckType).
		Msg("published outcome")
}

func (p *PubSubPublisher) fail(ctx context.Context, probeName, reason string, err error) {
	p.registry.recordFailure(p.name, err)
	if p.failures != nil {
		p.failures.RecordPublishFailure(ctx, probeName, reason)
	}
	p.logger.Error().
		Err(err).
		Str("reason", reason).
		Str("circuit", p.State().String()).
		Msg("failed to publish outcome")
}

// Close flushes pending messages and releases the publisher.
func (p *PubSubPublisher) Close() error {
	p.publisher.Stop()
	p.registry.unregister(p.name)
	return nil
}

// State returns the current state of the publisher's circuit breaker.
func (p *PubSubPublisher) State() gobreaker.State {
	return p.breaker.State()
}
