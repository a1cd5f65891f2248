package medic

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the opaque configuration mapping handed to a component's Init.
// The core never inspects it; the typed getters are conveniences for
// component implementations.
type Config map[string]any

// GetString returns the string at key, or def if absent or not a string.
func (c Config) GetString(key, def string) string {
	if v, ok := c[key].(string); ok {
		return v
	}
	return def
}

// GetInt returns the integer at key, or def if absent. YAML decodes numbers
// as int or float64 depending on shape; both are accepted.
func (c Config) GetInt(key string, def int) int {
	switch v := c[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return def
}

// GetBool returns the boolean at key, or def if absent or not a boolean.
func (c Config) GetBool(key string, def bool) bool {
	if v, ok := c[key].(bool); ok {
		return v
	}
	return def
}

// GetDuration returns the duration at key, parsed from a string like "30s",
// or def if absent or unparseable.
func (c Config) GetDuration(key string, def time.Duration) time.Duration {
	s, ok := c[key].(string)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}

// Manifest declares a component set, monitoring settings and scheduled jobs
// so a consumer can assemble a supervisor from a YAML file instead of code.
type Manifest struct {
	// Monitor names the component the monitoring loop dispatches to
	Monitor string `yaml:"monitor,omitempty"`

	// Interval is the monitoring interval as a duration string (e.g. "30s")
	Interval string `yaml:"interval,omitempty"`

	// Components maps component names to their configuration
	Components map[string]Config `yaml:"components"`

	// Jobs are recurring maintenance dispatches for the scheduler
	Jobs []ManifestJob `yaml:"jobs,omitempty"`
}

// ManifestJob declares one scheduled dispatch.
type ManifestJob struct {
	Name      string         `yaml:"name"`
	Schedule  string         `yaml:"schedule"`
	Component string         `yaml:"component"`
	Params    map[string]any `yaml:"params,omitempty"`
}

// ParseManifest decodes a manifest from YAML.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &m, nil
}

// LoadManifest reads and decodes a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseManifest(data)
}

// MonitorInterval parses the manifest's monitoring interval. Returns zero
// when the manifest does not set one.
func (m *Manifest) MonitorInterval() (time.Duration, error) {
	if m.Interval == "" {
		return 0, nil
	}
	return time.ParseDuration(m.Interval)
}
