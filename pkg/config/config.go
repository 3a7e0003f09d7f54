// Copyright 2025 Certen Protocol
//
// Package config loads the platform's YAML configuration file, with
// ${VAR_NAME} / ${VAR_NAME:-default} environment-variable substitution
// applied to the raw file text before it is parsed.
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration document.
type Config struct {
	Logging LoggingSettings `yaml:"logging"`
	Boot    BootSettings    `yaml:"boot"`
	Server  ServerSettings  `yaml:"server"`
	KBS     *KBSSettings    `yaml:"kbs"`
}

// LoggingSettings controls the process logger.
type LoggingSettings struct {
	Level       string `yaml:"level"`
	Format      string `yaml:"format"` // "json" or "pretty"
	FilePath    string `yaml:"file_path"`
	MaxFileSize int    `yaml:"max_file_size_mb"`
	MaxFiles    int    `yaml:"max_files"`
}

// BootSettings controls the Boot Service and Deployment Driver.
type BootSettings struct {
	AAConfigPath         string   `yaml:"aa_config_path"`
	SocketPath           string   `yaml:"socket_path"`
	ContainerTimeout     Duration `yaml:"container_timeout_seconds"`
	AppRoot              string   `yaml:"app_root"`
	NonceWindowSeconds   Duration `yaml:"nonce_window_seconds"`
	HashAlgorithm        string   `yaml:"hash_algorithm"`
}

// ServerSettings controls the RPC transport collaborator.
type ServerSettings struct {
	BindAddress           string   `yaml:"bind_address"`
	MaxConnections        int      `yaml:"max_connections"`
	RequestTimeoutSeconds Duration `yaml:"request_timeout_seconds"`
	TLSEnabled            bool     `yaml:"tls_enabled"`
	TLSCertPath           string   `yaml:"tls_cert_path"`
	TLSKeyPath            string   `yaml:"tls_key_path"`
	APIKey                string   `yaml:"api_key"`
}

// KBSSettings configures the optional key-broker endpoint. A nil KBS in
// the parsed Config means in-memory key mode.
type KBSSettings struct {
	Endpoint          string       `yaml:"endpoint"`
	TimeoutSeconds    Duration     `yaml:"timeout_seconds"`
	CertPath          string       `yaml:"cert_path"`
	Retry             RetrySettings `yaml:"retry"`
	SupportedKeyTypes []string     `yaml:"supported_key_types"`
}

// RetrySettings describes a bounded exponential backoff.
type RetrySettings struct {
	MaxRetries       int `yaml:"max_retries"`
	InitialDelayMS   int `yaml:"initial_delay_ms"`
	MaxDelayMS       int `yaml:"max_delay_ms"`
}

// Duration wraps time.Duration so it can be written in config files as a
// plain unit string ("300s", "5m") instead of a raw integer.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// AsDuration returns the time.Duration value.
func (d Duration) AsDuration() time.Duration {
	return time.Duration(d)
}

var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

func substituteEnvVars(content string) string {
	return envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultValue := ""
		if len(groups) >= 4 {
			defaultValue = groups[3]
		}
		if value := os.Getenv(varName); value != "" {
			return value
		}
		return defaultValue
	})
}

// Load reads path, substitutes environment variables, parses the YAML, and
// applies defaults for any unset field. A missing file is not an error:
// the caller receives built-in defaults, matching the platform's
// "config is optional" posture.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyDefaults()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	expanded := substituteEnvVars(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "pretty"
	}
	if c.Logging.MaxFileSize == 0 {
		c.Logging.MaxFileSize = 100
	}
	if c.Logging.MaxFiles == 0 {
		c.Logging.MaxFiles = 5
	}

	if c.Boot.SocketPath == "" {
		c.Boot.SocketPath = "/run/tapp/tapp.sock"
	}
	if c.Boot.ContainerTimeout == 0 {
		c.Boot.ContainerTimeout = Duration(120 * time.Second)
	}
	if c.Boot.AppRoot == "" {
		c.Boot.AppRoot = "/var/lib/tapp"
	}
	if c.Boot.NonceWindowSeconds == 0 {
		c.Boot.NonceWindowSeconds = Duration(300 * time.Second)
	}
	if c.Boot.HashAlgorithm == "" {
		c.Boot.HashAlgorithm = "sha384"
	}

	if c.Server.BindAddress == "" {
		c.Server.BindAddress = "0.0.0.0:9000"
	}
	if c.Server.MaxConnections == 0 {
		c.Server.MaxConnections = 256
	}
	if c.Server.RequestTimeoutSeconds == 0 {
		c.Server.RequestTimeoutSeconds = Duration(30 * time.Second)
	}

	if c.KBS != nil {
		if c.KBS.TimeoutSeconds == 0 {
			c.KBS.TimeoutSeconds = Duration(10 * time.Second)
		}
		if c.KBS.Retry.MaxRetries == 0 {
			c.KBS.Retry.MaxRetries = 3
		}
		if c.KBS.Retry.InitialDelayMS == 0 {
			c.KBS.Retry.InitialDelayMS = 200
		}
		if c.KBS.Retry.MaxDelayMS == 0 {
			c.KBS.Retry.MaxDelayMS = 5000
		}
	}
}
