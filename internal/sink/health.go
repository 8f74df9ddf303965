package sink

import (
	"sort"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

type breakerView interface {
	State() gobreaker.State
	Counts() gobreaker.Counts
}

// Health is the delivery health of one publisher.
type Health struct {
	Name          string     `json:"name"`
	State         string     `json:"state"`
	Requests      uint32     `json:"requests"`
	Failures      uint32     `json:"failures"`
	LastSuccessAt *time.Time `json:"lastSuccessAt,omitempty"`
	LastFailureAt *time.Time `json:"lastFailureAt,omitempty"`
	LastError     string     `json:"lastError,omitempty"`
}

// IsHealthy reports whether the publisher's circuit is closed.
func (h Health) IsHealthy() bool {
	return h.State == gobreaker.StateClosed.String()
}

// Registry tracks the delivery health of every live publisher.
type Registry struct {
	mu         sync.RWMutex
	publishers map[string]*registeredPublisher
}

type registeredPublisher struct {
	breaker       breakerView
	lastSuccessAt *time.Time
	lastFailureAt *time.Time
	lastError     string
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		publishers: make(map[string]*registeredPublisher),
	}
}

func (r *Registry) register(name string, breaker breakerView) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.publishers[name] = &registeredPublisher{breaker: breaker}
}

func (r *Registry) unregister(name string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.publishers, name)
}

func (r *Registry) recordSuccess(name string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.publishers[name]; ok {
		now := time.Now()
		p.lastSuccessAt = &now
	}
}

func (r *Registry) recordFailure(name string, err error) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.publishers[name]; ok {
		now := time.Now()
		p.lastFailureAt = &now
		if err != nil {
			p.lastError = err.Error()
		}
	}
}

// Get returns the health of a single publisher.
func (r *Registry) Get(name string) (Health, bool) {
	if r == nil {
		return Health{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.publishers[name]
	if !ok {
		return Health{}, false
	}
	return p.health(name), true
}

// All returns the health of every publisher, ordered by name.
func (r *Registry) All() []Health {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Health, 0, len(r.publishers))
	for name, p := range r.publishers {
		out = append(out, p.health(name))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len returns the number of registered publishers.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.publishers)
}

func (p *registeredPublisher) health(name string) Health {
	counts := p.breaker.Counts()
	return Health{
		Name:          name,
		State:         p.breaker.State().String(),
		Requests:      counts.Requests,
		Failures:      counts.TotalFailures,
		LastSuccessAt: p.lastSuccessAt,
		LastFailureAt: p.lastFailureAt,
		LastError:     p.lastError,
	}
}
