package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	DefaultAPIBaseURL     = "http://localhost:5000/api"
	DefaultSocketURL      = "ws://localhost:5000/ws"
	DefaultTypingIdleMs   = 2000
	DefaultRequestTimeout = 15000
)

// Config represents ~/.deskchat/config.toml and the per-profile override file.
type Config struct {
	DefaultProfile   string `toml:"default_profile,omitempty" env:"DESKCHAT_PROFILE" env-upd:""`
	APIBaseURL       string `toml:"api_base_url,omitempty" env:"DESKCHAT_API_URL" env-upd:""`
	SocketURL        string `toml:"socket_url,omitempty" env:"DESKCHAT_SOCKET_URL" env-upd:""`
	Token            string `toml:"token,omitempty" env:"DESKCHAT_TOKEN" env-upd:""`
	UserID           string `toml:"user_id,omitempty" env:"DESKCHAT_USER_ID" env-upd:""`
	Username         string `toml:"username,omitempty" env:"DESKCHAT_USERNAME" env-upd:""`
	Avatar           string `toml:"avatar,omitempty" env:"DESKCHAT_AVATAR" env-upd:""`
	RequestTimeoutMs int    `toml:"request_timeout_ms,omitempty" env:"DESKCHAT_REQUEST_TIMEOUT_MS" env-upd:""`
	TypingIdleMs     int    `toml:"typing_idle_ms,omitempty" env:"DESKCHAT_TYPING_IDLE_MS" env-upd:""`
	MetricsAddr      string `toml:"metrics_addr,omitempty" env:"DESKCHAT_METRICS_ADDR" env-upd:""`
}

// Load reads config from the given path. Returns zero config and error if file missing.
func Load(path string) (*Config, error) {
	var cfg Config
	_, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}

// Resolve builds the effective config: defaults, then each file in order
// (missing files are skipped), then .env and DESKCHAT_* environment variables.
func Resolve(paths ...string) (*Config, error) {
	cfg := Defaults()
	for _, p := range paths {
		loaded, err := Load(p)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		cfg.Merge(loaded)
	}

	// A missing .env is the normal case.
	_ = godotenv.Load()

	if err := cleanenv.UpdateEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Defaults returns the built-in settings.
func Defaults() *Config {
	return &Config{
		APIBaseURL:       DefaultAPIBaseURL,
		SocketURL:        DefaultSocketURL,
		RequestTimeoutMs: DefaultRequestTimeout,
		TypingIdleMs:     DefaultTypingIdleMs,
	}
}

// Merge overlays every non-zero field of o onto c.
func (c *Config) Merge(o *Config) {
	if o == nil {
		return
	}
	if o.DefaultProfile != "" {
		c.DefaultProfile = o.DefaultProfile
	}
	if o.APIBaseURL != "" {
		c.APIBaseURL = o.APIBaseURL
	}
	if o.SocketURL != "" {
		c.SocketURL = o.SocketURL
	}
	if o.Token != "" {
		c.Token = o.Token
	}
	if o.UserID != "" {
		c.UserID = o.UserID
	}
	if o.Username != "" {
		c.Username = o.Username
	}
	if o.Avatar != "" {
		c.Avatar = o.Avatar
	}
	if o.RequestTimeoutMs > 0 {
		c.RequestTimeoutMs = o.RequestTimeoutMs
	}
	if o.TypingIdleMs > 0 {
		c.TypingIdleMs = o.TypingIdleMs
	}
	if o.MetricsAddr != "" {
		c.MetricsAddr = o.MetricsAddr
	}
}

// RequestTimeout returns the HTTP timeout as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMs) * time.Millisecond
}

// TypingIdle returns the typing debounce window as a duration.
func (c *Config) TypingIdle() time.Duration {
	return time.Duration(c.TypingIdleMs) * time.Millisecond
}
