// Package requestor performs the network side of a probe execution: the HTTP
// fetch of the target URL and, on demand, a dedicated TLS handshake to read
// the peer certificate.
//
// Failures never escape as panics; both operations return a result.Result
// carrying either the observation or a descriptive error.
package requestor

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/probewatch/probewatch/internal/probe"
	"github.com/probewatch/probewatch/internal/result"
)

const (
	// DefaultTimeout bounds a whole HTTP fetch including the body read.
	DefaultTimeout = 30 * time.Second

	// DefaultCertTimeout bounds the dial and handshake of a certificate fetch.
	DefaultCertTimeout = 10 * time.Second

	// DefaultMaxBodyBytes caps how much of a response body is kept.
	DefaultMaxBodyBytes int64 = 10 << 20
)

// Predefined errors for certificate retrieval.
var (
	// ErrNoPeerCertificate is returned when the TLS peer presents no certificate.
	ErrNoPeerCertificate = errors.New("peer did not provide a certificate")

	// ErrMissingValidity is returned when the leaf certificate lacks a validity bound.
	ErrMissingValidity = errors.New("certificate missing notBefore/notAfter")
)

// Requestor fetches probe targets and their certificate metadata.
type Requestor interface {
	Fetch(ctx context.Context, url string) result.Result[probe.HTTPResult]
	FetchCertInfo(ctx context.Context, url string, timeout time.Duration) result.Result[probe.CertInfo]
}

// HTTPRequestor is the production Requestor. It always verifies server
// certificates; there is no option to skip verification.
type HTTPRequestor struct {
	client       *http.Client
	timeout      time.Duration
	rootCAs      *x509.CertPool
	maxBodyBytes int64
}

var _ Requestor = (*HTTPRequestor)(nil)

// Option configures an HTTPRequestor.
type Option func(*HTTPRequestor) error

// WithTimeout sets the HTTP fetch timeout.
func WithTimeout(d time.Duration) Option {
	return func(r *HTTPRequestor) error {
		if d <= 0 {
			return fmt.Errorf("timeout must be positive, got %v", d)
		}
		r.timeout = d
		return nil
	}
}

// WithRootCAs sets the trust roots for both the HTTP fetch and the
// certificate fetch. Nil means the system pool.
func WithRootCAs(pool *x509.CertPool) Option {
	return func(r *HTTPRequestor) error {
		r.rootCAs = pool
		return nil
	}
}

// WithMaxBodyBytes caps the number of body bytes read per fetch.
func WithMaxBodyBytes(n int64) Option {
	return func(r *HTTPRequestor) error {
		if n <= 0 {
			return fmt.Errorf("max body bytes must be positive, got %d", n)
		}
		r.maxBodyBytes = n
		return nil
	}
}

// WithHTTPClient replaces the HTTP client used for fetches. The client's own
// TLS settings apply; WithTimeout and WithRootCAs do not touch it.
func WithHTTPClient(c *http.Client) Option {
	return func(r *HTTPRequestor) error {
		if c == nil {
			return errors.New("http client must not be nil")
		}
		r.client = c
		return nil
	}
}

// New creates an HTTPRequestor.
func New(opts ...Option) (*HTTPRequestor, error) {
	r := &HTTPRequestor{
		timeout:      DefaultTimeout,
		maxBodyBytes: DefaultMaxBodyBytes,
	}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, fmt.Errorf("requestor: %w", err)
		}
	}

	if r.client == nil {
		r.client = &http.Client{
			Timeout: r.timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				TLSClientConfig: &tls.Config{
					RootCAs:    r.rootCAs,
					MinVersion: tls.VersionTLS12,
				},
				TLSHandshakeTimeout: DefaultCertTimeout,
			},
		}
	}

	return r, nil
}

// Fetch issues a single GET against url. No retries are attempted.
func (r *HTTPRequestor) Fetch(ctx context.Context, url string) result.Result[probe.HTTPResult] {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return result.Errorf[probe.HTTPResult]("HTTP error: build request: %w", err)
	}

	start := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		return result.Errorf[probe.HTTPResult]("HTTP error: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, r.maxBodyBytes))
	elapsed := time.Since(start)
	if err != nil {
		return result.Errorf[probe.HTTPResult]("HTTP error: read body: %w", err)
	}

	return result.Ok(probe.HTTPResult{
		StatusCode: resp.StatusCode,
		Body:       body,
		ElapsedMS:  elapsed.Milliseconds(),
	})
}
