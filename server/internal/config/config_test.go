package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestLoad_Defaults(t *testing.T) {
	// Server section absent; unrelated keys are ignored.
	p := writeConfig(t, `designer:
  theme: dark
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	s := cfg.Server
	if s.HTTPPort != DefaultHTTPPort {
		t.Errorf("http_port: got %d, want %d", s.HTTPPort, DefaultHTTPPort)
	}
	if s.Cache.Capacity != DefaultCacheCapacity {
		t.Errorf("cache.capacity: got %d, want %d", s.Cache.Capacity, DefaultCacheCapacity)
	}
	if s.Cache.TTL != DefaultCacheTTL {
		t.Errorf("cache.ttl: got %v, want %v", s.Cache.TTL, DefaultCacheTTL)
	}
	if s.Prefix() != "/ureport" {
		t.Errorf("Prefix: got %q, want /ureport", s.Prefix())
	}
	if s.Level() != slog.LevelInfo {
		t.Errorf("Level: got %v, want INFO", s.Level())
	}
}

func TestLoad_FullServer(t *testing.T) {
	p := writeConfig(t, `server:
  http_port: 9091
  context_path: /app/
  mount_path: /reports
  log_level: debug
  report_dir: /srv/reports
  cache:
    capacity: 8
    ttl: 10m
  session:
    cookie: JSESSIONID
  download:
    legacy_filename_encoding: true
  status:
    interval: 2s
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	s := cfg.Server
	if s.HTTPPort != 9091 {
		t.Errorf("http_port: got %d, want 9091", s.HTTPPort)
	}
	if s.Prefix() != "/app/reports" {
		t.Errorf("Prefix: got %q, want /app/reports", s.Prefix())
	}
	if s.Level() != slog.LevelDebug {
		t.Errorf("Level: got %v, want DEBUG", s.Level())
	}
	if s.Cache.Capacity != 8 || s.Cache.TTL != 10*time.Minute {
		t.Errorf("cache: got %+v", s.Cache)
	}
	if s.Session.Cookie != "JSESSIONID" {
		t.Errorf("session.cookie: got %q", s.Session.Cookie)
	}
	if !s.Download.LegacyFilenameEncoding {
		t.Error("download.legacy_filename_encoding: got false, want true")
	}
	if s.Status.Interval != 2*time.Second {
		t.Errorf("status.interval: got %v, want 2s", s.Status.Interval)
	}
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"port":        "server:\n  http_port: 70000\n",
		"mount path":  "server:\n  mount_path: ureport\n",
		"context":     "server:\n  context_path: app\n",
		"log level":   "server:\n  log_level: loud\n",
		"capacity":    "server:\n  cache:\n    capacity: 0\n",
		"ttl":         "server:\n  cache:\n    ttl: -1s\n",
		"cookie":      "server:\n  session:\n    cookie: \"\"\n",
		"bad yaml":    "server: [\n",
		"status tick": "server:\n  status:\n    interval: 0s\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, content)); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	p := writeConfig(t, "server:\n  log_level: info\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan *Config, 1)
	go Watch(ctx, p, func(c *Config) { //nolint:errcheck
		// A read racing the truncate can see an empty file (all defaults).
		if c.Server.LogLevel != "debug" {
			return
		}
		select {
		case got <- c:
		default:
		}
	})

	// Give the watcher time to register before writing.
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case c := <-got:
			if c.Server.Level() != slog.LevelDebug {
				t.Fatalf("reloaded level: got %v, want DEBUG", c.Server.Level())
			}
			return
		case <-tick.C:
			if err := os.WriteFile(p, []byte("server:\n  log_level: debug\n"), 0o600); err != nil {
				t.Fatalf("rewrite config: %v", err)
			}
		case <-deadline:
			t.Fatal("timed out waiting for reload")
		}
	}
}

// watchDebug starts Watch on p and returns a channel that receives configs
// reloaded with log_level debug.
func watchDebug(t *testing.T, p string) <-chan *Config {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	got := make(chan *Config, 1)
	go Watch(ctx, p, func(c *Config) { //nolint:errcheck
		if c.Server.LogLevel != "debug" {
			return
		}
		select {
		case got <- c:
		default:
		}
	})
	return got
}

func TestWatch_ReloadsOnRenameSave(t *testing.T) {
	p := writeConfig(t, "server:\n  log_level: info\n")
	got := watchDebug(t, p)

	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for i := 0; ; i++ {
		select {
		case <-got:
			return
		case <-tick.C:
			tmp := filepath.Join(filepath.Dir(p), fmt.Sprintf(".config.yaml.%d", i))
			if err := os.WriteFile(tmp, []byte("server:\n  log_level: debug\n"), 0o600); err != nil {
				t.Fatalf("write temp: %v", err)
			}
			if err := os.Rename(tmp, p); err != nil {
				t.Fatalf("rename: %v", err)
			}
		case <-deadline:
			t.Fatal("timed out waiting for reload after rename")
		}
	}
}

func TestWatch_IgnoresOtherFiles(t *testing.T) {
	p := writeConfig(t, "server:\n  log_level: info\n")
	other := filepath.Join(filepath.Dir(p), "other.yaml")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reloads := make(chan string, 16)
	go Watch(ctx, p, func(c *Config) { //nolint:errcheck
		reloads <- c.Server.LogLevel
	})

	// Give the watcher time to register, then touch only the sibling.
	time.Sleep(100 * time.Millisecond)
	for i := 0; i < 5; i++ {
		if err := os.WriteFile(other, []byte("server:\n  log_level: debug\n"), 0o600); err != nil {
			t.Fatalf("write sibling: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}
	select {
	case lvl := <-reloads:
		t.Fatalf("reloaded (level %q) after a change to another file", lvl)
	case <-time.After(200 * time.Millisecond):
	}
}
