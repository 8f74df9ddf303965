// Package config loads the probe and sink configuration file and the
// runtime settings taken from the environment.
package config

import (
	"time"

	"github.com/probewatch/probewatch/internal/probe"
	"github.com/probewatch/probewatch/internal/requestor"
)

// Config is a fully validated configuration file.
type Config struct {
	Sink   SinkConfig
	HTTP   HTTPConfig
	Probes []probe.Probe
}

// SinkConfig selects where outcomes are delivered.
// A nil PubSub means no sink is configured.
type SinkConfig struct {
	PubSub *PubSubConfig
}

// PubSubConfig holds the Pub/Sub topic and credentials.
type PubSubConfig struct {
	ProjectID       string
	Topic           string
	CredentialsFile string
}

// HTTPConfig holds fetch limits shared by every probe.
type HTTPConfig struct {
	Timeout      time.Duration
	CertTimeout  time.Duration
	MaxBodyBytes int64
}

// DefaultHTTPConfig returns the limits used when the file sets none.
func DefaultHTTPConfig() HTTPConfig {
	return HTTPConfig{
		Timeout:      requestor.DefaultTimeout,
		CertTimeout:  requestor.DefaultCertTimeout,
		MaxBodyBytes: requestor.DefaultMaxBodyBytes,
	}
}
