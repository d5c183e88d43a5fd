package config

import (
	"strings"
	"testing"

	"grimm.is/sixfence/internal/logging"
)

func TestLoadFull(t *testing.T) {
	src := `
svi_pattern = "^Vlan(\\d+)$"
debug       = true

acl {
  prefix  = "edgefilter"
  backend = "eapi"
}

eapi {
  endpoint = "https://sw1.example.net/command-api"
  username = "ops"
  password = "secret"
  insecure = true
}

log {
  level = "debug"
}

metrics {
  listen = ":9213"
}
`
	cfg, err := Load([]byte(src), "test.hcl")
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Debug {
		t.Error("expected debug to be set")
	}
	if cfg.ACL.Prefix != "edgefilter" {
		t.Errorf("prefix = %q", cfg.ACL.Prefix)
	}
	if cfg.Eapi.Endpoint != "https://sw1.example.net/command-api" {
		t.Errorf("endpoint = %q", cfg.Eapi.Endpoint)
	}
	level, err := cfg.LogLevel()
	if err != nil || level != logging.LevelDebug {
		t.Errorf("level = %v err = %v", level, err)
	}
	if cfg.Metrics.Listen != ":9213" {
		t.Errorf("metrics listen = %q", cfg.Metrics.Listen)
	}
}

func TestDefaultsApplied(t *testing.T) {
	src := `
acl {
  backend = "memory"
}
`
	cfg, err := Load([]byte(src), "test.hcl")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ACL.Prefix != "sixfence" {
		t.Errorf("expected default prefix, got %q", cfg.ACL.Prefix)
	}
	if cfg.SviPattern != `^Vlan(\d+)$` {
		t.Errorf("expected default svi pattern, got %q", cfg.SviPattern)
	}
}

func TestHostnameInterpolation(t *testing.T) {
	src := `
acl {
  backend = "eapi"
}
eapi {
  endpoint = "https://${hostname}/command-api"
}
`
	cfg, err := Load([]byte(src), "test.hcl")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(cfg.Eapi.Endpoint, "${") {
		t.Errorf("hostname not interpolated: %q", cfg.Eapi.Endpoint)
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			"eapi without endpoint",
			`acl { backend = "eapi" }`,
			"requires an eapi block",
		},
		{
			"unknown backend",
			`acl { backend = "iptables" }`,
			"unknown acl backend",
		},
		{
			"bad svi pattern",
			`svi_pattern = "Vlan\\d+"` + "\n" + `acl { backend = "memory" }`,
			"capture group",
		},
		{
			"bad log level",
			`acl { backend = "memory" }` + "\n" + `log { level = "loud" }`,
			"unknown log level",
		},
		{
			"bad poll interval",
			`acl { backend = "memory" }` + "\n" + `topology { poll_interval = "fast" }`,
			"poll_interval",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load([]byte(tt.src), "test.hcl")
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
