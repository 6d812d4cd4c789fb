package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values for the server configuration.
const (
	DefaultHTTPPort       = 8080
	DefaultMountPath      = "/ureport"
	DefaultReportDir      = "reports"
	DefaultLogLevel       = "info"
	DefaultCacheCapacity  = 4
	DefaultCacheTTL       = 5 * time.Minute
	DefaultSessionCookie  = "REPORTDESK_SESSION"
	DefaultStatusInterval = 5 * time.Second
)

// Config holds the server configuration parsed from the `server:` section
// of config.yaml.
type Config struct {
	Server ServerConfig `yaml:"server"`
}

// ServerConfig holds all server-side settings.
type ServerConfig struct {
	// HTTPPort is the port the console, status API and metrics listen on.
	HTTPPort int `yaml:"http_port"`

	// ContextPath is prepended to MountPath, e.g. "/app" behind a proxy.
	ContextPath string `yaml:"context_path"`

	// MountPath is where report actions are served (default "/ureport").
	MountPath string `yaml:"mount_path"`

	// LogLevel is one of: debug | info | warn | error. Reloaded live.
	LogLevel string `yaml:"log_level"`

	// ReportDir is the directory report definitions are loaded from.
	ReportDir string `yaml:"report_dir"`

	// Cache controls the session-scoped preview cache.
	Cache CacheConfig `yaml:"cache"`

	// Session configures how requests are tied to a cache session.
	Session SessionConfig `yaml:"session"`

	// Download controls attachment headers for exported files.
	Download DownloadConfig `yaml:"download"`

	// Status controls the websocket status stream.
	Status StatusConfig `yaml:"status"`
}

// CacheConfig bounds each session's object store.
type CacheConfig struct {
	// Capacity is the maximum number of objects per session (default 4).
	Capacity int `yaml:"capacity"`

	// TTL is how long a session's store survives without a read or write.
	// Default: 5m.
	TTL time.Duration `yaml:"ttl"`
}

// SessionConfig names the cookie carrying the session identifier.
type SessionConfig struct {
	Cookie string `yaml:"cookie"`
}

// DownloadConfig controls Content-Disposition filenames.
type DownloadConfig struct {
	// LegacyFilenameEncoding re-encodes names the way older console clients
	// expect (UTF-8 bytes read as ISO-8859-1, then percent-encoded).
	LegacyFilenameEncoding bool `yaml:"legacy_filename_encoding"`
}

// StatusConfig controls the status broadcast.
type StatusConfig struct {
	// Interval between websocket status messages (default 5s).
	Interval time.Duration `yaml:"interval"`
}

// Prefix returns the full URL prefix actions are served under.
func (s ServerConfig) Prefix() string {
	return strings.TrimRight(s.ContextPath, "/") + s.MountPath
}

// Level returns the slog level for LogLevel. Unknown values map to info;
// validate rejects them before that can happen.
func (s ServerConfig) Level() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// Load reads and parses the config file at path, returning the server configuration.
// Missing fields are filled with sensible defaults before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("server config: read %q: %w", path, err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("server config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("server config: %w", err)
	}

	return cfg, nil
}

// Default returns a Config populated with default values only.
func Default() *Config {
	return defaults()
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:  DefaultHTTPPort,
			MountPath: DefaultMountPath,
			LogLevel:  DefaultLogLevel,
			ReportDir: DefaultReportDir,
			Cache: CacheConfig{
				Capacity: DefaultCacheCapacity,
				TTL:      DefaultCacheTTL,
			},
			Session: SessionConfig{
				Cookie: DefaultSessionCookie,
			},
			Status: StatusConfig{
				Interval: DefaultStatusInterval,
			},
		},
	}
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	s := cfg.Server
	if s.HTTPPort <= 0 || s.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [1, 65535]", s.HTTPPort)
	}
	if !strings.HasPrefix(s.MountPath, "/") || len(s.MountPath) < 2 {
		return fmt.Errorf("server.mount_path %q must start with / and name a path", s.MountPath)
	}
	if s.ContextPath != "" && !strings.HasPrefix(s.ContextPath, "/") {
		return fmt.Errorf("server.context_path %q must start with /", s.ContextPath)
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(s.LogLevel)); err != nil {
		return fmt.Errorf("server.log_level %q unknown: want debug|info|warn|error", s.LogLevel)
	}
	if s.Cache.Capacity < 1 {
		return fmt.Errorf("server.cache.capacity must be at least 1")
	}
	if s.Cache.TTL <= 0 {
		return fmt.Errorf("server.cache.ttl must be positive")
	}
	if s.Session.Cookie == "" {
		return fmt.Errorf("server.session.cookie must not be empty")
	}
	if s.Status.Interval <= 0 {
		return fmt.Errorf("server.status.interval must be positive")
	}
	return nil
}
