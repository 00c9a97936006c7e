// Package config provides the application settings for orgsync: provider
// credentials, endpoint, logging verbosity, and retry tuning. The
// organization document itself is handled by pkg/config.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/spf13/viper"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

// Settings is populated from the configuration file, ORGSYNC_* environment
// variables, and defaults, in ascending precedence of environment over
// file over defaults.
type Settings struct {
	// Token authenticates against the provider API. Falls back to an
	// interactive prompt when unset and stdin is a terminal.
	Token string `mapstructure:"token" yaml:"token,omitempty"`
	// Org is the organization login to reconcile.
	Org string `mapstructure:"org" yaml:"org,omitempty"`
	// APIURL overrides the provider endpoint for GitHub Enterprise
	// Server installations. Empty means github.com.
	APIURL string `mapstructure:"api_url" yaml:"api_url,omitempty"`
	// Verbosity counts log levels below warning to reveal.
	Verbosity int `mapstructure:"verbosity" yaml:"verbosity,omitempty"`

	Retry RetrySettings `mapstructure:"retry" yaml:"retry,omitempty"`
}

// RetrySettings tunes the provider client's exponential backoff.
type RetrySettings struct {
	MaxRetries      uint64        `mapstructure:"max_retries" yaml:"max_retries,omitempty" default:"3"`
	InitialInterval time.Duration `mapstructure:"initial_interval" yaml:"initial_interval,omitempty" default:"1s"`
	MaxInterval     time.Duration `mapstructure:"max_interval" yaml:"max_interval,omitempty" default:"30s"`
	Multiplier      float64       `mapstructure:"multiplier" yaml:"multiplier,omitempty" default:"2"`
}

var settingsKeys = []string{
	"token",
	"org",
	"api_url",
	"verbosity",
	"retry.max_retries",
	"retry.initial_interval",
	"retry.max_interval",
	"retry.multiplier",
}

// Load reads settings from path, or from DefaultPath when path is empty.
// A missing file is not an error; the environment and defaults still
// apply.
func Load(path string) (*Settings, error) {
	v := viper.New()
	v.SetEnvPrefix("ORGSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range settingsKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("binding environment for %s: %w", key, err)
		}
	}

	if path == "" {
		path = DefaultPath()
	}
	if path != "" {
		if info, err := os.Stat(path); err == nil {
			if info.IsDir() {
				return nil, fmt.Errorf("configuration file %s is a directory", path)
			}
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("reading configuration file %s: %w", path, err)
			}
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}
	if err := defaults.Set(&s); err != nil {
		return nil, fmt.Errorf("applying configuration defaults: %w", err)
	}
	return &s, nil
}

// Save writes the settings to path, creating the directory if needed.
// The file is written user-only readable since it may carry a token.
func (s *Settings) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating settings directory: %w", err)
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshaling settings: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing settings file: %w", err)
	}
	return nil
}

// DefaultPath returns the conventional configuration file location, or ""
// when the home directory cannot be determined.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".orgsync", "config.yaml")
}

// Validate checks that everything needed to reach the provider is
// present.
func (s *Settings) Validate() error {
	if s.Org == "" {
		return fmt.Errorf("organization is required: set org in the configuration or ORGSYNC_ORG")
	}
	if s.Token == "" {
		return fmt.Errorf("token is required: set token in the configuration or ORGSYNC_TOKEN")
	}
	return nil
}

// EnsureToken prompts for a token when none is configured and stdin is a
// terminal. The prompt writes to stderr so command output stays clean.
func (s *Settings) EnsureToken() error {
	if s.Token != "" {
		return nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return fmt.Errorf("token is required: set token in the configuration or ORGSYNC_TOKEN")
	}
	fmt.Fprint(os.Stderr, "GitHub token: ")
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return fmt.Errorf("reading token: %w", err)
	}
	s.Token = strings.TrimSpace(string(raw))
	if s.Token == "" {
		return fmt.Errorf("empty token")
	}
	return nil
}
