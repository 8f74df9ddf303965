package requestor

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/probewatch/probewatch/internal/probe"
	"github.com/probewatch/probewatch/internal/result"
)

// FetchCertInfo opens a dedicated TLS connection to the host of rawURL,
// verifies the chain and hostname, and returns the leaf certificate's
// metadata. The port defaults to 443 for https and 80 otherwise; a plain
// port 80 endpoint fails the handshake and is reported as a failure.
func (r *HTTPRequestor) FetchCertInfo(ctx context.Context, rawURL string, timeout time.Duration) result.Result[probe.CertInfo] {
	if timeout <= 0 {
		timeout = DefaultCertTimeout
	}

	return result.Bind(parseTarget(rawURL), func(t target) result.Result[probe.CertInfo] {
		return r.handshake(ctx, t, timeout)
	})
}

type target struct {
	host string
	port string
}

func (t target) addr() string {
	return net.JoinHostPort(t.host, t.port)
}

func parseTarget(rawURL string) result.Result[target] {
	u, err := url.Parse(rawURL)
	if err != nil {
		return result.Errorf[target]("invalid url %q: %w", rawURL, err)
	}

	host := u.Hostname()
	if host == "" {
		return result.Errorf[target]("invalid url %q: missing host", rawURL)
	}

	port := u.Port()
	if port == "" {
		port = "80"
		if u.Scheme == "https" {
			port = "443"
		}
	}

	return result.Ok(target{host: host, port: port})
}

func (r *HTTPRequestor) handshake(ctx context.Context, t target, timeout time.Duration) result.Result[probe.CertInfo] {
	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: timeout},
		Config: &tls.Config{
			ServerName: t.host,
			RootCAs:    r.rootCAs,
			MinVersion: tls.VersionTLS12,
		},
	}

	conn, err := dialer.DialContext(dialCtx, "tcp", t.addr())
	if err != nil {
		return result.Errorf[probe.CertInfo]("Network/SSL error: %w", err)
	}
	defer conn.Close()

	tlsConn, ok := conn.(*tls.Conn)
	if !ok {
		return result.Errorf[probe.CertInfo]("Network/SSL error: unexpected connection type %T", conn)
	}

	peers := tlsConn.ConnectionState().PeerCertificates
	if len(peers) == 0 {
		return result.Err[probe.CertInfo](ErrNoPeerCertificate)
	}

	return certInfoFrom(peers[0])
}

func certInfoFrom(cert *x509.Certificate) result.Result[probe.CertInfo] {
	if cert == nil {
		return result.Err[probe.CertInfo](ErrNoPeerCertificate)
	}
	if cert.NotBefore.IsZero() || cert.NotAfter.IsZero() {
		return result.Err[probe.CertInfo](fmt.Errorf("%s: %w", cert.Subject, ErrMissingValidity))
	}

	return result.Ok(probe.CertInfo{
		SubjectCN: optional(cert.Subject.CommonName),
		IssuerCN:  optional(cert.Issuer.CommonName),
		NotBefore: cert.NotBefore.UTC(),
		NotAfter:  cert.NotAfter.UTC(),
	})
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// IsCertificateError reports whether err was caused by certificate
// verification rather than by the network.
func IsCertificateError(err error) bool {
	var (
		unknownAuthority x509.UnknownAuthorityError
		hostname         x509.HostnameError
		invalid          x509.CertificateInvalidError
		verification     *tls.CertificateVerificationError
	)
	return errors.As(err, &unknownAuthority) ||
		errors.As(err, &hostname) ||
		errors.As(err, &invalid) ||
		errors.As(err, &verification)
}
