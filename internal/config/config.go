// Package config provides layered configuration loading.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the resolved configuration.
type Config struct {
	// DaemonAddr is the address of the backend daemon the client talks to.
	DaemonAddr string `json:"daemon_addr" yaml:"daemon_addr"`

	// StateDir holds the workspace state file and credential fallback file.
	StateDir string `json:"state_dir" yaml:"state_dir"`

	// Format controls how the state command renders output ("json" or "yaml").
	Format string `json:"format" yaml:"format"`

	// KeyringEnabled controls whether credentials go to the system keychain.
	KeyringEnabled bool `json:"keyring_enabled" yaml:"keyring_enabled"`

	Debug bool `json:"debug" yaml:"debug"`

	// Sources tracks where each value came from (for debugging).
	Sources map[string]string `json:"-" yaml:"-"`
}

// Source indicates where a config value came from.
type Source string

const (
	SourceDefault Source = "default"
	SourceSystem  Source = "system"
	SourceGlobal  Source = "global"
	SourceEnv     Source = "env"
	SourceFlag    Source = "flag"
)

// FlagOverrides holds command-line flag values.
type FlagOverrides struct {
	DaemonAddr string
	StateDir   string
	Format     string
	Debug      bool
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		DaemonAddr:     "unix:///tmp/spire-daemon.sock",
		StateDir:       GlobalConfigDir(),
		Format:         "json",
		KeyringEnabled: true,
		Sources:        make(map[string]string),
	}
}

// Load loads configuration from all sources with proper precedence.
// Precedence: flags > env > global > system > defaults
func Load(overrides FlagOverrides) (*Config, error) {
	cfg := Default()

	loadFromFile(cfg, systemConfigPath(), SourceSystem)
	loadFromFile(cfg, globalConfigPath(), SourceGlobal)

	LoadFromEnv(cfg)
	ApplyOverrides(cfg, overrides)

	return cfg, nil
}

// fileConfig mirrors Config for decoding; pointer fields distinguish "unset"
// from zero values so a file can set keyring_enabled: false.
type fileConfig struct {
	DaemonAddr     *string `json:"daemon_addr" yaml:"daemon_addr"`
	StateDir       *string `json:"state_dir" yaml:"state_dir"`
	Format         *string `json:"format" yaml:"format"`
	KeyringEnabled *bool   `json:"keyring_enabled" yaml:"keyring_enabled"`
	Debug          *bool   `json:"debug" yaml:"debug"`
}

func loadFromFile(cfg *Config, path string, source Source) {
	data, err := os.ReadFile(path)
	if err != nil {
		return // File doesn't exist, skip
	}

	var fileCfg fileConfig
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		err = yaml.Unmarshal(data, &fileCfg)
	} else {
		err = json.Unmarshal(data, &fileCfg)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: skipping malformed config at %s: %v\n", path, err)
		return
	}

	if fileCfg.DaemonAddr != nil && *fileCfg.DaemonAddr != "" {
		cfg.DaemonAddr = *fileCfg.DaemonAddr
		cfg.Sources["daemon_addr"] = string(source)
	}
	if fileCfg.StateDir != nil && *fileCfg.StateDir != "" {
		cfg.StateDir = *fileCfg.StateDir
		cfg.Sources["state_dir"] = string(source)
	}
	if fileCfg.Format != nil && *fileCfg.Format != "" {
		cfg.Format = *fileCfg.Format
		cfg.Sources["format"] = string(source)
	}
	if fileCfg.KeyringEnabled != nil {
		cfg.KeyringEnabled = *fileCfg.KeyringEnabled
		cfg.Sources["keyring_enabled"] = string(source)
	}
	if fileCfg.Debug != nil {
		cfg.Debug = *fileCfg.Debug
		cfg.Sources["debug"] = string(source)
	}
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("SPIRE_DAEMON_ADDR"); v != "" {
		cfg.DaemonAddr = v
		cfg.Sources["daemon_addr"] = string(SourceEnv)
	}
	if v := os.Getenv("SPIRE_STATE_DIR"); v != "" {
		cfg.StateDir = v
		cfg.Sources["state_dir"] = string(SourceEnv)
	}
	if v := os.Getenv("SPIRE_FORMAT"); v != "" {
		cfg.Format = v
		cfg.Sources["format"] = string(SourceEnv)
	}
	if v := os.Getenv("SPIRE_DEBUG"); v != "" {
		if b, ok := parseEnvBool(v); ok {
			cfg.Debug = b
			cfg.Sources["debug"] = string(SourceEnv)
		}
	}
	if v := os.Getenv("SPIRE_NO_KEYRING"); v != "" {
		cfg.KeyringEnabled = false
		cfg.Sources["keyring_enabled"] = string(SourceEnv)
	}
}

// parseEnvBool parses a boolean environment variable strictly.
// Returns (value, true) for recognized values, (false, false) for unrecognized.
func parseEnvBool(v string) (bool, bool) {
	switch strings.ToLower(v) {
	case "true", "1":
		return true, true
	case "false", "0":
		return false, true
	default:
		return false, false
	}
}

// ApplyOverrides applies non-empty flag overrides to cfg.
func ApplyOverrides(cfg *Config, o FlagOverrides) {
	if o.DaemonAddr != "" {
		cfg.DaemonAddr = o.DaemonAddr
		cfg.Sources["daemon_addr"] = string(SourceFlag)
	}
	if o.StateDir != "" {
		cfg.StateDir = o.StateDir
		cfg.Sources["state_dir"] = string(SourceFlag)
	}
	if o.Format != "" {
		cfg.Format = o.Format
		cfg.Sources["format"] = string(SourceFlag)
	}
	if o.Debug {
		cfg.Debug = true
		cfg.Sources["debug"] = string(SourceFlag)
	}
}

// Path helpers

func systemConfigPath() string {
	return "/etc/spire/config.json"
}

func globalConfigPath() string {
	dir := GlobalConfigDir()
	// Prefer YAML when both exist.
	yamlPath := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(yamlPath); err == nil {
		return yamlPath
	}
	return filepath.Join(dir, "config.json")
}

// GlobalConfigDir returns the global config directory path.
func GlobalConfigDir() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, _ := os.UserHomeDir()
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "spire")
}
