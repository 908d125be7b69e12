// Package config loads the memora client configuration using Viper.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/maykaila/memora/internal/errors"
)

// EnvPrefix is prepended to every environment override, e.g. MEMORA_API_BASE_URL.
const EnvPrefix = "MEMORA"

// MinPollInterval is the floor applied to poll.interval.
const MinPollInterval = time.Second

// Config holds the client configuration.
type Config struct {
	Home     string         `mapstructure:"home"`
	API      APIConfig      `mapstructure:"api"`
	Identity IdentityConfig `mapstructure:"identity"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Session  SessionConfig  `mapstructure:"session"`
	Poll     PollConfig     `mapstructure:"poll"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// APIConfig points at the Memora backend.
type APIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// IdentityConfig configures the Firebase Authentication REST endpoints.
type IdentityConfig struct {
	APIKey   string `mapstructure:"api_key"`
	AuthURL  string `mapstructure:"auth_url"`
	TokenURL string `mapstructure:"token_url"`
}

// StorageConfig configures the profile picture bucket.
type StorageConfig struct {
	Bucket          string `mapstructure:"bucket"`
	CredentialsFile string `mapstructure:"credentials_file"`
	PublicBaseURL   string `mapstructure:"public_base_url"`
}

// SessionConfig tunes the role lookup retry budget.
type SessionConfig struct {
	RoleRetryMax         int           `mapstructure:"role_retry_max"`
	RoleRetryInitial     time.Duration `mapstructure:"role_retry_initial"`
	RoleRetryMaxInterval time.Duration `mapstructure:"role_retry_max_interval"`
}

// PollConfig controls list refresh.
type PollConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// LoggingConfig mirrors the --log-* flags.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

var defaults = map[string]any{
	"home":                            "~/.memora",
	"api.base_url":                    "http://localhost:5000/api",
	"api.timeout":                     "30s",
	"identity.api_key":                "",
	"identity.auth_url":               "https://identitytoolkit.googleapis.com/v1",
	"identity.token_url":              "https://securetoken.googleapis.com/v1",
	"storage.bucket":                  "",
	"storage.credentials_file":        "",
	"storage.public_base_url":         "https://storage.googleapis.com",
	"session.role_retry_max":          4,
	"session.role_retry_initial":      "250ms",
	"session.role_retry_max_interval": "5s",
	"poll.interval":                   "4s",
	"logging.level":                   "info",
	"logging.format":                  "text",
	"logging.file":                    "",
}

// Keys returns every recognised configuration key in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(defaults))
	for k := range defaults {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// IsKnownKey reports whether key is a recognised configuration key.
func IsKnownKey(key string) bool {
	_, ok := defaults[key]
	return ok
}

// DefaultPath returns ~/.memora/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".memora", "config.yaml"), nil
}

func newViper() *viper.Viper {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetConfigType("yaml")
	return v
}

// Load reads configuration from path (or DefaultPath when empty), then the
// environment. A missing file is not an error; defaults apply.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, errors.NewConfigLoadError("~/.memora/config.yaml", err)
		}
		path = p
	}

	v := newViper()
	v.SetConfigFile(path)

	if _, statErr := os.Stat(path); statErr == nil {
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, errors.NewConfigLoadError(path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.NewConfigLoadError(path, err)
	}

	cfg.Home = expandHome(cfg.Home)
	cfg.Storage.CredentialsFile = expandHome(cfg.Storage.CredentialsFile)
	if cfg.Logging.File != "-" {
		cfg.Logging.File = expandHome(cfg.Logging.File)
	}
	if cfg.Poll.Interval < MinPollInterval {
		cfg.Poll.Interval = MinPollInterval
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.NewConfigLoadError(path, err)
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail later with obscure errors.
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api.base_url must be an absolute URL, got %q", c.API.BaseURL)
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive")
	}
	if c.Session.RoleRetryMax < 1 {
		return fmt.Errorf("session.role_retry_max must be at least 1")
	}
	if c.Session.RoleRetryInitial <= 0 || c.Session.RoleRetryMaxInterval < c.Session.RoleRetryInitial {
		return fmt.Errorf("session.role_retry_initial must be positive and not exceed role_retry_max_interval")
	}
	return nil
}

// CredentialsPath is where the signed-in principal is cached.
func (c *Config) CredentialsPath() string {
	return filepath.Join(c.Home, "credentials.json")
}

// LogPath is the log file used when logging.file is unset.
func (c *Config) LogPath() string {
	if c.Logging.File != "" {
		return c.Logging.File
	}
	return filepath.Join(c.Home, "memora.log")
}

// Map returns the effective configuration keyed by dotted name, durations as strings.
func (c *Config) Map() map[string]any {
	return map[string]any{
		"home":                            c.Home,
		"api.base_url":                    c.API.BaseURL,
		"api.timeout":                     c.API.Timeout.String(),
		"identity.api_key":                c.Identity.APIKey,
		"identity.auth_url":               c.Identity.AuthURL,
		"identity.token_url":              c.Identity.TokenURL,
		"storage.bucket":                  c.Storage.Bucket,
		"storage.credentials_file":        c.Storage.CredentialsFile,
		"storage.public_base_url":         c.Storage.PublicBaseURL,
		"session.role_retry_max":          c.Session.RoleRetryMax,
		"session.role_retry_initial":      c.Session.RoleRetryInitial.String(),
		"session.role_retry_max_interval": c.Session.RoleRetryMaxInterval.String(),
		"poll.interval":                   c.Poll.Interval.String(),
		"logging.level":                   c.Logging.Level,
		"logging.format":                  c.Logging.Format,
		"logging.file":                    c.Logging.File,
	}
}

// Save writes cfg to path as nested YAML.
func Save(cfg *Config, path string) error {
	return writeTree(nest(cfg.Map()), path)
}

// Set updates a single key in the file at path, leaving other keys untouched,
// and verifies the result still loads.
func Set(path, key, value string) error {
	if !IsKnownKey(key) {
		return errors.New(errors.ErrCodeConfigSave, fmt.Sprintf("unknown configuration key: %s", key)).
			WithSuggestion("Valid keys: " + strings.Join(Keys(), ", "))
	}

	tree := map[string]any{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &tree); err != nil {
			return errors.NewConfigLoadError(path, err)
		}
		if tree == nil {
			tree = map[string]any{}
		}
	case !os.IsNotExist(err):
		return errors.NewConfigLoadError(path, err)
	}

	setNested(tree, key, coerce(value))
	if err := writeTree(tree, path); err != nil {
		return err
	}

	if _, err := Load(path); err != nil {
		if err := os.WriteFile(path, data, 0o600); err != nil {
			return errors.Wrap(errors.ErrCodeConfigSave, "failed to restore configuration", err)
		}
		return err
	}
	return nil
}

func writeTree(tree map[string]any, path string) error {
	data, err := yaml.Marshal(tree)
	if err != nil {
		return errors.Wrap(errors.ErrCodeConfigSave, "failed to marshal config", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return errors.Wrap(errors.ErrCodeConfigSave, "failed to create config directory", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errors.Wrap(errors.ErrCodeConfigSave, "failed to write config", err)
	}
	return nil
}

func nest(flat map[string]any) map[string]any {
	tree := map[string]any{}
	for k, v := range flat {
		setNested(tree, k, v)
	}
	return tree
}

func setNested(tree map[string]any, key string, value any) {
	parts := strings.Split(key, ".")
	node := tree
	for _, p := range parts[:len(parts)-1] {
		child, ok := node[p].(map[string]any)
		if !ok {
			child = map[string]any{}
			node[p] = child
		}
		node = child
	}
	node[parts[len(parts)-1]] = value
}

func coerce(value string) any {
	if n, err := strconv.Atoi(value); err == nil {
		return n
	}
	return value
}

func expandHome(p string) string {
	if p == "" || p[0] != '~' {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[1:])
}
