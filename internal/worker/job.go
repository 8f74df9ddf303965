package worker

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog"

	"github.com/probewatch/probewatch/internal/probe"
)

// Executor runs one execution of a probe.
type Executor interface {
	Execute(ctx context.Context, p probe.Probe)
}

// JobConfig holds configuration for a Job.
type JobConfig struct {
	Probe    probe.Probe
	Schedule Schedule
	Executor Executor
	Logger   zerolog.Logger

	// Status is optional.
	Status *StatusBoard

	// Now returns the current time.
	// Default: time.Now
	Now func() time.Time
}

// Job is the timer loop of a single probe.
//
// The loop sleeps until the next fire time computed from the current clock,
// runs one execution, and repeats. Stopping is cooperative: cancellation is
// observed only while sleeping, and an in-flight execution always runs to
// completion.
type Job struct {
	probe    probe.Probe
	schedule Schedule
	executor Executor
	logger   zerolog.Logger
	status   *StatusBoard
	now      func() time.Time
}

// NewJob creates a Job.
func NewJob(cfg JobConfig) *Job {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Job{
		probe:    cfg.Probe,
		schedule: cfg.Schedule,
		executor: cfg.Executor,
		logger:   cfg.Logger.With().Str("probe", cfg.Probe.Name).Logger(),
		status:   cfg.Status,
		now:      now,
	}
}

// Run loops until ctx is cancelled. It never executes before the first
// scheduled fire time.
func (j *Job) Run(ctx context.Context) {
	j.logger.Info().Str("schedule", j.probe.Schedule).Msg("starting probe job")
	defer func() {
		j.status.stopped(j.probe.Name)
		j.logger.Info().Msg("probe job stopped")
	}()

	state := StateWaitingFirst
	for {
		next := j.schedule.Next(j.now())
		if next.IsZero() {
			j.logger.Error().Msg("schedule has no future fire time")
			return
		}

		j.status.sleeping(j.probe.Name, state, next)
		j.logger.Debug().Time("next_run", next).Msg("probe job sleeping")

		if !j.sleepUntil(ctx, next) {
			return
		}

		j.runOnce(ctx)
		state = StateSleeping
	}
}

func (j *Job) sleepUntil(ctx context.Context, next time.Time) bool {
	wait := next.Sub(j.now())
	if wait < 0 {
		wait = 0
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return ctx.Err() == nil
	}
}

func (j *Job) runOnce(ctx context.Context) {
	j.status.executing(j.probe.Name, j.now())
	panicked := false

	defer func() {
		if r := recover(); r != nil {
			panicked = true
			j.logger.Error().
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("probe execution panicked")
		}
		j.status.finished(j.probe.Name, j.now(), panicked)
	}()

	j.logger.Info().Msg("executing periodic job")

	// Stop must not tear down an execution that already started.
	j.executor.Execute(context.WithoutCancel(ctx), j.probe)
}
