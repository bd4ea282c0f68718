// Package config loads the TOML configuration file and process-level settings.
//
// The TOML file carries the pentest-facing configuration (workspace layout,
// interactsh listener, service API tokens). Process-level settings such as
// the config path and metrics port come from environment variables.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Defaults applied when the TOML file leaves fields unset.
const (
	DefaultInteractshServer = "oast.pro"
	DefaultWorkspaceDir     = "/app/workspace/default"
)

var defaultWorkspaceStructure = []string{"recon", "scans", "exploits", "evidence", "reports", "logs"}

// Workspace holds the [WORKSPACE] section.
type Workspace struct {
	Directory string   `toml:"directory"`
	Structure []string `toml:"structure"`
}

// Interactsh holds the [INTERACTSH] section.
type Interactsh struct {
	Enabled    bool   `toml:"enabled"`
	Server     string `toml:"server"`
	Token      string `toml:"token"`
	Number     int    `toml:"number"`
	OutputFile string `toml:"output_file"`
}

// Service is one raw [SERVICES.<name>] section. Besides the enabled flag the
// keys are service-specific (api keys, secrets, endpoints) and passed through
// untouched.
type Service map[string]any

// Enabled reports whether the service section carries enabled = true.
func (s Service) Enabled() bool {
	enabled, ok := s["enabled"].(bool)
	return ok && enabled
}

// Config is the full parsed configuration.
type Config struct {
	Workspace  Workspace          `toml:"WORKSPACE"`
	Interactsh Interactsh         `toml:"INTERACTSH"`
	Services   map[string]Service `toml:"SERVICES"`
}

// Default returns a configuration with all defaults applied and no services.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

// Load parses the TOML config file at path and applies defaults.
func Load(path string) (*Config, error) {
	if !strings.HasSuffix(path, ".toml") {
		return nil, fmt.Errorf("unsupported config format: %s", path)
	}

	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Workspace.Directory == "" {
		c.Workspace.Directory = DefaultWorkspaceDir
	}
	if len(c.Workspace.Structure) == 0 {
		c.Workspace.Structure = append([]string(nil), defaultWorkspaceStructure...)
	}
	if c.Interactsh.Server == "" {
		c.Interactsh.Server = DefaultInteractshServer
	}
	if c.Interactsh.Number <= 0 {
		c.Interactsh.Number = 1
	}
	if c.Interactsh.OutputFile == "" {
		c.Interactsh.OutputFile = filepath.Join(filepath.Dir(c.Workspace.Directory), "interactsh_output.json")
	}
	if c.Services == nil {
		c.Services = map[string]Service{}
	}
}

// IsEnabled reports whether the named capability is enabled.
// "INTERACTSH" is answered from the typed section; any other name is looked
// up in [SERVICES.<name>].
func (c *Config) IsEnabled(name string) bool {
	if strings.EqualFold(name, "INTERACTSH") {
		return c.Interactsh.Enabled
	}
	svc, ok := c.Services[name]
	return ok && svc.Enabled()
}

// Section returns the raw service section by name.
func (c *Config) Section(name string) (Service, bool) {
	svc, ok := c.Services[name]
	return svc, ok
}

// EnabledServices returns all service sections with enabled = true.
func (c *Config) EnabledServices() map[string]Service {
	enabled := make(map[string]Service)
	for name, svc := range c.Services {
		if svc.Enabled() {
			enabled[name] = svc
		}
	}
	return enabled
}

// ServiceConfig holds process-level settings from environment variables.
type ServiceConfig struct {
	ConfigPath          string
	MetricsPort         string
	InteractshTokenFile string // optional secret file overriding the TOML token
}

// LoadServiceConfig loads process-level settings from environment variables.
func LoadServiceConfig() *ServiceConfig {
	return &ServiceConfig{
		ConfigPath:          GetEnv("CONFIG_FILE", "/app/config.toml"),
		MetricsPort:         GetEnv("METRICS_PORT", "9090"),
		InteractshTokenFile: GetEnv("INTERACTSH_TOKEN_FILE", ""),
	}
}
