package worker

import (
	"sort"
	"sync"
	"time"
)

// State is the position of a job loop in its lifecycle.
type State string

// Job states.
const (
	StateWaitingFirst State = "waiting_first"
	StateSleeping     State = "sleeping"
	StateExecuting    State = "executing"
	StateStopped      State = "stopped"
)

// JobStatus is a point-in-time view of one job loop.
type JobStatus struct {
	Probe          string     `json:"probe"`
	Schedule       string     `json:"schedule"`
	State          State      `json:"state"`
	NextRunAt      *time.Time `json:"nextRunAt,omitempty"`
	LastStartedAt  *time.Time `json:"lastStartedAt,omitempty"`
	LastFinishedAt *time.Time `json:"lastFinishedAt,omitempty"`
	Executions     int64      `json:"executions"`
	Panics         int64      `json:"panics"`
}

// StatusBoard tracks the state of every job for operational reporting.
// It is safe for concurrent use, and a nil *StatusBoard ignores all updates.
type StatusBoard struct {
	mu      sync.RWMutex
	jobs    map[string]*JobStatus
	started bool
}

// NewStatusBoard creates an empty StatusBoard.
func NewStatusBoard() *StatusBoard {
	return &StatusBoard{
		jobs: make(map[string]*JobStatus),
	}
}

func (b *StatusBoard) register(probeName, schedule string) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.jobs[probeName] = &JobStatus{
		Probe:    probeName,
		Schedule: schedule,
		State:    StateWaitingFirst,
	}
}

func (b *StatusBoard) update(probeName string, fn func(s *JobStatus)) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if s, ok := b.jobs[probeName]; ok {
		fn(s)
	}
}

func (b *StatusBoard) sleeping(probeName string, state State, next time.Time) {
	b.update(probeName, func(s *JobStatus) {
		s.State = state
		s.NextRunAt = &next
	})
}

func (b *StatusBoard) executing(probeName string, at time.Time) {
	b.update(probeName, func(s *JobStatus) {
		s.State = StateExecuting
		s.NextRunAt = nil
		s.LastStartedAt = &at
		s.Executions++
	})
}

func (b *StatusBoard) finished(probeName string, at time.Time, panicked bool) {
	b.update(probeName, func(s *JobStatus) {
		s.LastFinishedAt = &at
		if panicked {
			s.Panics++
		}
	})
}

func (b *StatusBoard) stopped(probeName string) {
	b.update(probeName, func(s *JobStatus) {
		s.State = StateStopped
		s.NextRunAt = nil
	})
}

// MarkStarted records that every job loop has been launched.
func (b *StatusBoard) MarkStarted() {
	if b == nil {
		return
	}
	b.mu.Lock()
	b.started = true
	b.mu.Unlock()
}

// Started reports whether every job loop has been launched.
func (b *StatusBoard) Started() bool {
	if b == nil {
		return false
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.started
}

// Job returns the status of a single job.
func (b *StatusBoard) Job(probeName string) (JobStatus, bool) {
	if b == nil {
		return JobStatus{}, false
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	s, ok := b.jobs[probeName]
	if !ok {
		return JobStatus{}, false
	}
	return *s, true
}

// Snapshot returns the status of every job, ordered by probe name.
func (b *StatusBoard) Snapshot() []JobStatus {
	if b == nil {
		return nil
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]JobStatus, 0, len(b.jobs))
	for _, s := range b.jobs {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Probe < out[j].Probe })
	return out
}
