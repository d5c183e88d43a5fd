// Package config loads and validates the controller's HCL configuration.
package config

import (
	"fmt"
	"regexp"
	"time"

	"grimm.is/sixfence/internal/logging"
)

// Backend names an ACL store implementation.
const (
	BackendEapi   = "eapi"
	BackendNft    = "nft"
	BackendMemory = "memory"
)

// Config is the root configuration.
type Config struct {
	// SviPattern matches broadcast-domain interface names; must contain
	// exactly one capture group holding the VLAN id.
	SviPattern string `hcl:"svi_pattern,optional"`
	// Debug enables reconciliation decision tracing.
	Debug bool `hcl:"debug,optional"`

	ACL      *ACLConfig      `hcl:"acl,block"`
	Eapi     *EapiConfig     `hcl:"eapi,block"`
	Log      *LogConfig      `hcl:"log,block"`
	Metrics  *MetricsConfig  `hcl:"metrics,block"`
	Topology *TopologyConfig `hcl:"topology,block"`
}

// ACLConfig controls naming and the store backend.
type ACLConfig struct {
	Prefix  string `hcl:"prefix,optional"`
	Backend string `hcl:"backend,optional"`
}

// EapiConfig holds Command API connection settings.
type EapiConfig struct {
	Endpoint string `hcl:"endpoint"`
	Username string `hcl:"username,optional"`
	Password string `hcl:"password,optional"`
	Insecure bool   `hcl:"insecure,optional"`
}

// LogConfig controls log output.
type LogConfig struct {
	Level string `hcl:"level,optional"`
	JSON  bool   `hcl:"json,optional"`
}

// MetricsConfig enables the Prometheus endpoint when Listen is set.
type MetricsConfig struct {
	Listen string `hcl:"listen,optional"`
}

// TopologyConfig selects the topology source.
type TopologyConfig struct {
	// Source is "netlink" (default on Linux) for now; the controller
	// takes any topology.Source, this only drives wiring.
	Source       string `hcl:"source,optional"`
	PollInterval string `hcl:"poll_interval,optional"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		SviPattern: `^Vlan(\d+)$`,
		ACL:        &ACLConfig{Prefix: "sixfence", Backend: BackendEapi},
		Log:        &LogConfig{Level: "info"},
		Topology:   &TopologyConfig{Source: "netlink"},
	}
}

// ApplyDefaults fills unset fields from Default.
func (c *Config) ApplyDefaults() {
	def := Default()
	if c.SviPattern == "" {
		c.SviPattern = def.SviPattern
	}
	if c.ACL == nil {
		c.ACL = def.ACL
	} else {
		if c.ACL.Prefix == "" {
			c.ACL.Prefix = def.ACL.Prefix
		}
		if c.ACL.Backend == "" {
			c.ACL.Backend = def.ACL.Backend
		}
	}
	if c.Log == nil {
		c.Log = def.Log
	} else if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
	if c.Topology == nil {
		c.Topology = def.Topology
	} else if c.Topology.Source == "" {
		c.Topology.Source = def.Topology.Source
	}
}

// Validate checks the configuration for contradictions and bad syntax.
func (c *Config) Validate() error {
	re, err := regexp.Compile(c.SviPattern)
	if err != nil {
		return fmt.Errorf("svi_pattern: %w", err)
	}
	if re.NumSubexp() != 1 {
		return fmt.Errorf("svi_pattern must contain exactly one capture group, has %d", re.NumSubexp())
	}

	switch c.ACL.Backend {
	case BackendEapi:
		if c.Eapi == nil || c.Eapi.Endpoint == "" {
			return fmt.Errorf("acl backend %q requires an eapi block with an endpoint", BackendEapi)
		}
	case BackendNft, BackendMemory:
	default:
		return fmt.Errorf("unknown acl backend %q", c.ACL.Backend)
	}

	if c.ACL.Prefix == "" {
		return fmt.Errorf("acl prefix must not be empty")
	}

	if _, err := c.LogLevel(); err != nil {
		return err
	}

	if c.Topology != nil && c.Topology.PollInterval != "" {
		if _, err := time.ParseDuration(c.Topology.PollInterval); err != nil {
			return fmt.Errorf("topology poll_interval: %w", err)
		}
	}
	return nil
}

// LogLevel parses the configured level name.
func (c *Config) LogLevel() (logging.Level, error) {
	name := "info"
	if c.Log != nil && c.Log.Level != "" {
		name = c.Log.Level
	}
	switch name {
	case "debug":
		return logging.LevelDebug, nil
	case "info":
		return logging.LevelInfo, nil
	case "warn":
		return logging.LevelWarn, nil
	case "error":
		return logging.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", name)
}

// PollInterval returns the parsed topology poll interval, or zero when unset.
func (c *Config) PollInterval() time.Duration {
	if c.Topology == nil || c.Topology.PollInterval == "" {
		return 0
	}
	d, err := time.ParseDuration(c.Topology.PollInterval)
	if err != nil {
		return 0
	}
	return d
}
