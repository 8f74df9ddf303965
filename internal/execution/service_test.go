package execution_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probewatch/probewatch/internal/execution"
	"github.com/probewatch/probewatch/internal/probe"
	"github.com/probewatch/probewatch/internal/result"
)

type fakeRequestor struct {
	mu        sync.Mutex
	fetch     result.Result[probe.HTTPResult]
	cert      result.Result[probe.CertInfo]
	fetchURLs []string
	certURLs  []string
}

func (f *fakeRequestor) Fetch(_ context.Context, url string) result.Result[probe.HTTPResult] {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchURLs = append(f.fetchURLs, url)
	return f.fetch
}

func (f *fakeRequestor) FetchCertInfo(_ context.Context, url string, _ time.Duration) result.Result[probe.CertInfo] {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.certURLs = append(f.certURLs, url)
	return f.cert
}

type published struct {
	probeName string
	outcome   probe.CheckOutcome
}

type fakePublisher struct {
	mu    sync.Mutex
	calls []published
}

func (f *fakePublisher) Publish(_ context.Context, probeName string, outcome probe.CheckOutcome) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, published{probeName: probeName, outcome: outcome})
}

type fakeRecorder struct {
	statuses []string
	outcomes int
}

func (f *fakeRecorder) RecordExecution(_ context.Context, _, status string, _ time.Duration) {
	f.statuses = append(f.statuses, status)
}

func (f *fakeRecorder) RecordOutcome(_ context.Context, _ string, _ probe.CheckOutcome) {
	f.outcomes++
}

func validCert() probe.CertInfo {
	now := time.Now().UTC()
	return probe.CertInfo{
		NotBefore: now.Add(-10 * 24 * time.Hour),
		NotAfter:  now.Add(30 * 24 * time.Hour),
	}
}

func newService(req *fakeRequestor, pub *fakePublisher, rec *fakeRecorder) *execution.Service {
	cfg := execution.Config{
		Requestor: req,
		Publisher: pub,
		Logger:    zerolog.Nop(),
	}
	if rec != nil {
		cfg.Recorder = rec
	}
	return execution.NewService(cfg)
}

func TestExecute_HappyPathWithSSLCheck(t *testing.T) {
	p := probe.Probe{
		Name:     "p1",
		URL:      "https://example.com",
		Schedule: "@daily",
		Checks: []probe.Check{
			probe.StatusCodeCheck{ExpectedStatusCode: 200},
			probe.SSLValidityCheck{MinDaysValid: 5},
		},
	}
	req := &fakeRequestor{
		fetch: result.Ok(probe.HTTPResult{StatusCode: 200, ElapsedMS: 100}),
		cert:  result.Ok(validCert()),
	}
	pub := &fakePublisher{}
	rec := &fakeRecorder{}

	newService(req, pub, rec).Execute(context.Background(), p)

	assert.Equal(t, []string{p.URL}, req.fetchURLs)
	assert.Equal(t, []string{p.URL}, req.certURLs)

	require.Len(t, pub.calls, 2)
	assert.Equal(t, "p1", pub.calls[0].probeName)
	assert.Equal(t, probe.CheckTypeStatusCode, pub.calls[0].outcome.CheckType)
	assert.True(t, pub.calls[0].outcome.Success)
	assert.Equal(t, probe.CheckTypeSSLValidity, pub.calls[1].outcome.CheckType)
	assert.True(t, pub.calls[1].outcome.Success)

	assert.Equal(t, []string{execution.StatusCompleted}, rec.statuses)
	assert.Equal(t, 2, rec.outcomes)
}

func TestExecute_NoSSLCheckSkipsCertFetch(t *testing.T) {
	p := probe.Probe{
		Name:   "p2",
		URL:    "https://no-ssl.example",
		Checks: []probe.Check{probe.StatusCodeCheck{ExpectedStatusCode: 200}},
	}
	req := &fakeRequestor{fetch: result.Ok(probe.HTTPResult{StatusCode: 200})}
	pub := &fakePublisher{}

	newService(req, pub, nil).Execute(context.Background(), p)

	assert.Len(t, req.fetchURLs, 1)
	assert.Empty(t, req.certURLs)
	assert.Len(t, pub.calls, 1)
}

func TestExecute_FetchFailureStopsProcessing(t *testing.T) {
	p := probe.Probe{
		Name: "p3",
		URL:  "https://down.example",
		Checks: []probe.Check{
			probe.StatusCodeCheck{ExpectedStatusCode: 200},
			probe.SSLValidityCheck{MinDaysValid: 1},
		},
	}
	req := &fakeRequestor{fetch: result.Err[probe.HTTPResult](errors.New("network error"))}
	pub := &fakePublisher{}
	rec := &fakeRecorder{}

	newService(req, pub, rec).Execute(context.Background(), p)

	assert.Len(t, req.fetchURLs, 1)
	assert.Empty(t, req.certURLs)
	assert.Empty(t, pub.calls)
	assert.Equal(t, []string{execution.StatusFetchFailed}, rec.statuses)
}

func TestExecute_CertFailureStopsProcessing(t *testing.T) {
	p := probe.Probe{
		Name: "p4",
		URL:  "https://badcert.example",
		Checks: []probe.Check{
			probe.StatusCodeCheck{ExpectedStatusCode: 200},
			probe.SSLValidityCheck{MinDaysValid: 10},
		},
	}
	req := &fakeRequestor{
		fetch: result.Ok(probe.HTTPResult{StatusCode: 200}),
		cert:  result.Err[probe.CertInfo](errors.New("cert error")),
	}
	pub := &fakePublisher{}
	rec := &fakeRecorder{}

	newService(req, pub, rec).Execute(context.Background(), p)

	assert.Len(t, req.certURLs, 1)
	assert.Empty(t, pub.calls)
	assert.Equal(t, []string{execution.StatusCertFailed}, rec.statuses)
}

func TestExecute_PublishesInDeclarationOrder(t *testing.T) {
	p := probe.Probe{
		Name: "ordered",
		URL:  "https://example.com",
		Checks: []probe.Check{
			probe.HashCheck{ExpectedHash: "abc"},
			probe.ResponseTimeCheck{ThresholdMS: 10},
			probe.SSLValidityCheck{MinDaysValid: 365},
			probe.StatusCodeCheck{ExpectedStatusCode: 204},
		},
	}
	req := &fakeRequestor{
		fetch: result.Ok(probe.HTTPResult{StatusCode: 200, ElapsedMS: 50}),
		cert:  result.Ok(validCert()),
	}
	pub := &fakePublisher{}

	newService(req, pub, nil).Execute(context.Background(), p)

	require.Len(t, pub.calls, len(p.Checks))
	for i, c := range p.Checks {
		assert.Equal(t, "ordered", pub.calls[i].probeName)
		assert.Equal(t, c.Type(), pub.calls[i].outcome.CheckType)
	}

	assert.True(t, pub.calls[0].outcome.Success)
	assert.False(t, pub.calls[1].outcome.Success)
	assert.False(t, pub.calls[2].outcome.Success)
	assert.False(t, pub.calls[3].outcome.Success)
}

func TestExecute_NoChecksPublishesNothing(t *testing.T) {
	req := &fakeRequestor{fetch: result.Ok(probe.HTTPResult{StatusCode: 200})}
	pub := &fakePublisher{}

	newService(req, pub, nil).Execute(context.Background(), probe.Probe{Name: "empty", URL: "https://x"})

	assert.Len(t, req.fetchURLs, 1)
	assert.Empty(t, pub.calls)
}

func TestEvaluateAll(t *testing.T) {
	p := probe.Probe{Checks: []probe.Check{
		probe.StatusCodeCheck{ExpectedStatusCode: 200},
		probe.SSLValidityCheck{MinDaysValid: 1},
	}}

	outcomes := execution.EvaluateAll(p, probe.HTTPResult{StatusCode: 200}, nil)

	require.Len(t, outcomes, 2)
	assert.True(t, outcomes[0].Success)
	assert.False(t, outcomes[1].Success)
	assert.Equal(t, probe.DetailsNoCertificate, outcomes[1].Details)
}
