package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"handoff/internal/config"
)

func isolateEnv(t *testing.T) string {
	t.Helper()
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("HANDOFF_WATCH_DIR", "")
	t.Setenv("XDG_DOWNLOAD_DIR", "")
	return tempHome
}

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := isolateEnv(t)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved != filepath.Join(tempHome, ".config", "handoff", "config.toml") {
		t.Fatalf("unexpected resolved path %q", resolved)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	if cfg.Paths.WatchDir != filepath.Join(tempHome, "Downloads") {
		t.Fatalf("unexpected watch dir: %q", cfg.Paths.WatchDir)
	}
	wantState := filepath.Join(tempHome, ".local", "state", "handoff")
	if cfg.Paths.StateDir != wantState {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, wantState)
	}
	if cfg.PollInterval() != time.Second {
		t.Fatalf("expected 1s poll interval, got %s", cfg.PollInterval())
	}
	if cfg.Watch.MaxAttempts != 60 {
		t.Fatalf("expected 60 attempts, got %d", cfg.Watch.MaxAttempts)
	}
	if cfg.Move.OverwriteExisting {
		t.Fatal("expected overwrite disabled by default")
	}
	if cfg.Manifest.Name != "gct_download_manager" {
		t.Fatalf("unexpected manifest name %q", cfg.Manifest.Name)
	}
	if cfg.HistoryPath() != filepath.Join(wantState, "history.db") {
		t.Fatalf("unexpected history path %q", cfg.HistoryPath())
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.StateDir, cfg.Paths.LogDir, cfg.LockDir()} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
	if _, err := os.Stat(cfg.Paths.WatchDir); !os.IsNotExist(err) {
		t.Fatalf("watch dir must not be created, stat err=%v", err)
	}
}

func TestLoadWatchDirEnvironmentFallbacks(t *testing.T) {
	isolateEnv(t)
	xdg := t.TempDir()
	t.Setenv("XDG_DOWNLOAD_DIR", xdg)

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Paths.WatchDir != xdg {
		t.Fatalf("expected XDG download dir %q, got %q", xdg, cfg.Paths.WatchDir)
	}

	explicit := t.TempDir()
	t.Setenv("HANDOFF_WATCH_DIR", explicit)
	cfg, _, _, err = config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Paths.WatchDir != explicit {
		t.Fatalf("expected HANDOFF_WATCH_DIR %q to win, got %q", explicit, cfg.Paths.WatchDir)
	}
}

func TestLoadCustomPath(t *testing.T) {
	isolateEnv(t)
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "handoff.toml")

	type payload struct {
		Paths struct {
			WatchDir string `toml:"watch_dir"`
		} `toml:"paths"`
		Watch struct {
			PollIntervalMillis int `toml:"poll_interval_ms"`
			MaxAttempts        int `toml:"max_attempts"`
		} `toml:"watch"`
		Move struct {
			OverwriteExisting bool `toml:"overwrite_existing"`
		} `toml:"move"`
		Manifest struct {
			AllowedOrigins []string `toml:"allowed_origins"`
		} `toml:"manifest"`
	}
	custom := payload{}
	custom.Paths.WatchDir = filepath.Join(tempDir, "incoming")
	custom.Watch.PollIntervalMillis = 250
	custom.Watch.MaxAttempts = 10
	custom.Move.OverwriteExisting = true
	custom.Manifest.AllowedOrigins = []string{" chrome-extension://abc/ ", "chrome-extension://abc/"}

	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected custom path to be used, got %q exists=%v", resolved, exists)
	}
	if cfg.Paths.WatchDir != custom.Paths.WatchDir {
		t.Fatalf("unexpected watch dir %q", cfg.Paths.WatchDir)
	}
	if cfg.PollInterval() != 250*time.Millisecond {
		t.Fatalf("unexpected poll interval %s", cfg.PollInterval())
	}
	if cfg.Watch.MaxAttempts != 10 {
		t.Fatalf("unexpected max attempts %d", cfg.Watch.MaxAttempts)
	}
	if !cfg.Move.OverwriteExisting {
		t.Fatal("expected overwrite enabled")
	}
	if len(cfg.Manifest.AllowedOrigins) != 1 || cfg.Manifest.AllowedOrigins[0] != "chrome-extension://abc/" {
		t.Fatalf("expected deduplicated origins, got %v", cfg.Manifest.AllowedOrigins)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"negative interval", func(c *config.Config) { c.Watch.PollIntervalMillis = -1 }, "watch.poll_interval_ms"},
		{"negative attempts", func(c *config.Config) { c.Watch.MaxAttempts = -5 }, "watch.max_attempts"},
		{"zero message size", func(c *config.Config) { c.Protocol.MaxMessageBytes = 0 }, "protocol.max_message_bytes"},
		{"bad level", func(c *config.Config) { c.Logging.Level = "verbose" }, "logging.level"},
		{"bad host name", func(c *config.Config) { c.Manifest.Name = "Bad-Name" }, "manifest.name"},
		{"double dot host name", func(c *config.Config) { c.Manifest.Name = "a..b" }, "manifest.name"},
		{"bad origin", func(c *config.Config) { c.Manifest.AllowedOrigins = []string{"https://example.com"} }, "manifest.allowed_origins"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Paths.WatchDir = t.TempDir()
			cfg.Paths.StateDir = t.TempDir()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestCreateSampleIsLoadable(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if cfg.Protocol.MaxMessageBytes != 64<<20 {
		t.Fatalf("unexpected max message bytes %d", cfg.Protocol.MaxMessageBytes)
	}
}
