package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/probewatch/probewatch/internal/probe"
	"github.com/probewatch/probewatch/internal/result"
	"github.com/probewatch/probewatch/internal/worker"
)

// Load reads and validates the configuration file at path.
//
// Validation never stops at the first problem: a failed result carries every
// error found, combined with multierr. Use multierr.Errors to list them.
func Load(path string) result.Result[Config] {
	return result.Bind(readDocument(path), parseDocument)
}

// Parse validates configuration held in memory.
func Parse(data []byte) result.Result[Config] {
	return result.Bind(decodeDocument(data, "config"), parseDocument)
}

func readDocument(path string) result.Result[*yaml.Node] {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	data := result.From(os.ReadFile(abs))
	if !data.IsOk() {
		if errors.Is(data.Error(), os.ErrNotExist) {
			return result.Errorf[*yaml.Node]("Config file not found. Path: %s", abs)
		}
		return result.Errorf[*yaml.Node]("Error reading config file %s: %w", abs, data.Error())
	}

	return decodeDocument(data.Value(), abs)
}

func decodeDocument(data []byte, source string) result.Result[*yaml.Node] {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return result.Errorf[*yaml.Node]("Error parsing YAML file %s: %w", source, err)
	}

	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || isNull(doc.Content[0]) {
		return result.Errorf[*yaml.Node]("Failed to load yaml config")
	}
	return result.Ok(doc.Content[0])
}

func parseDocument(root *yaml.Node) result.Result[Config] {
	if root.Kind != yaml.MappingNode {
		return result.Errorf[Config]("Config root must be a mapping")
	}

	var errs error
	cfg := Config{HTTP: DefaultHTTPConfig()}

	if n := lookup(root, "sink"); n != nil {
		sink, err := parseSink(n)
		errs = multierr.Append(errs, err)
		cfg.Sink = sink
	}

	if n := lookup(root, "http"); n != nil {
		httpCfg, err := parseHTTP(n)
		errs = multierr.Append(errs, err)
		cfg.HTTP = httpCfg
	}

	if n := lookup(root, "probes"); n != nil {
		probes, err := parseProbes(n)
		errs = multierr.Append(errs, err)
		cfg.Probes = probes
	}

	if errs != nil {
		return result.Err[Config](errs)
	}
	return result.Ok(cfg)
}

func parseSink(n *yaml.Node) (SinkConfig, error) {
	if isNull(n) {
		return SinkConfig{}, nil
	}
	if n.Kind != yaml.MappingNode {
		return SinkConfig{}, fmt.Errorf("Sink must be a mapping")
	}

	ps := lookup(n, "pubsub")
	if ps == nil || isNull(ps) {
		return SinkConfig{}, nil
	}
	if ps.Kind != yaml.MappingNode {
		return SinkConfig{}, fmt.Errorf("Sink pubsub must be a mapping")
	}

	var errs error
	cfg := PubSubConfig{
		ProjectID:       scalar(lookup(ps, "project_id")),
		Topic:           scalar(lookup(ps, "topic")),
		CredentialsFile: scalar(lookup(ps, "credentials_file")),
	}
	if cfg.ProjectID == "" {
		errs = multierr.Append(errs, fmt.Errorf("Missing project_id in pubsub sink"))
	}
	if cfg.Topic == "" {
		errs = multierr.Append(errs, fmt.Errorf("Missing topic in pubsub sink"))
	}

	return SinkConfig{PubSub: &cfg}, errs
}

func parseHTTP(n *yaml.Node) (HTTPConfig, error) {
	cfg := DefaultHTTPConfig()
	if isNull(n) {
		return cfg, nil
	}
	if n.Kind != yaml.MappingNode {
		return cfg, fmt.Errorf("Http must be a mapping")
	}

	var errs error
	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"timeout", &cfg.Timeout},
		{"cert_timeout", &cfg.CertTimeout},
	}
	for _, d := range durations {
		v := lookup(n, d.key)
		if v == nil {
			continue
		}
		parsed, err := time.ParseDuration(scalar(v))
		if err != nil || parsed <= 0 {
			errs = multierr.Append(errs, fmt.Errorf("Invalid http.%s: %q must be a positive duration", d.key, scalar(v)))
			continue
		}
		*d.dst = parsed
	}

	if v := lookup(n, "max_body_bytes"); v != nil {
		parsed, err := strconv.ParseInt(scalar(v), 10, 64)
		if err != nil || parsed <= 0 {
			errs = multierr.Append(errs, fmt.Errorf("Invalid http.max_body_bytes: %q must be a positive integer", scalar(v)))
		} else {
			cfg.MaxBodyBytes = parsed
		}
	}

	return cfg, errs
}

func parseProbes(n *yaml.Node) ([]probe.Probe, error) {
	if isNull(n) {
		return nil, nil
	}
	if n.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("Probes must be a list")
	}

	var errs error
	probes := make([]probe.Probe, 0, len(n.Content))
	seen := make(map[string]bool, len(n.Content))

	for _, entry := range n.Content {
		p, err := parseProbe(entry)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if seen[p.Name] {
			errs = multierr.Append(errs, fmt.Errorf("Duplicate probe name: %s", p.Name))
			continue
		}
		seen[p.Name] = true
		probes = append(probes, p)
	}

	return probes, errs
}

func parseProbe(n *yaml.Node) (probe.Probe, error) {
	if n.Kind != yaml.MappingNode {
		return probe.Probe{}, fmt.Errorf("Probe entry must be a mapping")
	}

	var errs error
	p := probe.Probe{
		Name:     scalar(lookup(n, "name")),
		URL:      scalar(lookup(n, "url")),
		Schedule: scalar(lookup(n, "schedule")),
	}

	if p.Name == "" {
		errs = multierr.Append(errs, fmt.Errorf("Probe name is required"))
	}

	if p.URL == "" {
		errs = multierr.Append(errs, fmt.Errorf("Probe url is required"))
	} else if err := validateURL(p.URL); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("Invalid url in probe %s: %w", p.Name, err))
	}

	if p.Schedule == "" {
		errs = multierr.Append(errs, fmt.Errorf("Probe schedule is required"))
	} else if _, err := worker.ParseSchedule(p.Schedule); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("Invalid schedule in probe %s: %w", p.Name, err))
	}

	if checks := lookup(n, "checks"); checks != nil && !isNull(checks) {
		if checks.Kind != yaml.SequenceNode {
			errs = multierr.Append(errs, fmt.Errorf("Probe checks must be a list"))
		} else {
			for _, c := range checks.Content {
				check, err := parseCheck(c)
				if err != nil {
					errs = multierr.Append(errs, err)
					continue
				}
				p.Checks = append(p.Checks, check)
			}
		}
	}

	if errs != nil {
		return probe.Probe{}, errs
	}
	return p, nil
}

func parseCheck(n *yaml.Node) (probe.Check, error) {
	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("Check entry must be a mapping")
	}

	switch t := scalar(lookup(n, "type")); t {
	case "status_code":
		v, err := intField(n, t, "expected_status_code")
		if err != nil {
			return nil, err
		}
		return probe.StatusCodeCheck{ExpectedStatusCode: int(v)}, nil

	case "response_time":
		v, err := intField(n, t, "threshold_ms")
		if err != nil {
			return nil, err
		}
		return probe.ResponseTimeCheck{ThresholdMS: v}, nil

	case "hash":
		v := lookup(n, "expected_hash")
		if v == nil {
			return nil, missingField(t, "expected_hash")
		}
		return probe.HashCheck{ExpectedHash: scalar(v)}, nil

	case "ssl_validity":
		v, err := intField(n, t, "min_days_valid")
		if err != nil {
			return nil, err
		}
		return probe.SSLValidityCheck{MinDaysValid: int(v)}, nil

	default:
		return nil, fmt.Errorf("Unknown check type: %s", t)
	}
}

func intField(n *yaml.Node, checkType, key string) (int64, error) {
	v := lookup(n, key)
	if v == nil {
		return 0, missingField(checkType, key)
	}
	parsed, err := strconv.ParseInt(scalar(v), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("Invalid %s in %s check: %q is not an integer", key, checkType, scalar(v))
	}
	if parsed < 0 {
		return 0, fmt.Errorf("Invalid %s in %s check: must be >= 0", key, checkType)
	}
	return parsed, nil
}

func missingField(checkType, key string) error {
	return fmt.Errorf("Missing %s in %s check", key, checkType)
}

// lookup returns the value node for key in a mapping node, or nil.
func lookup(m *yaml.Node, key string) *yaml.Node {
	if m == nil || m.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

// scalar returns the text of a non-null scalar node, or "".
func scalar(n *yaml.Node) string {
	if n == nil || n.Kind != yaml.ScalarNode || isNull(n) {
		return ""
	}
	return n.Value
}

func isNull(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.Tag == "!!null"
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%q must use http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%q has no host", raw)
	}
	return nil
}
