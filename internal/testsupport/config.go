package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"handoff/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The watched directory is created; state and log directories are not, so
// tests can exercise EnsureDirectories.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.WatchDir = filepath.Join(base, "downloads")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "state", "logs")
	cfgVal.Watch.PollIntervalMillis = 1
	cfgVal.Watch.MaxAttempts = 5

	if err := os.MkdirAll(cfgVal.Paths.WatchDir, 0o755); err != nil {
		t.Fatalf("mkdir watch dir: %v", err)
	}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithOverwrite sets the destination collision policy.
func WithOverwrite(overwrite bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Move.OverwriteExisting = overwrite
	}
}

// WithHistoryDisabled turns the move journal off.
func WithHistoryDisabled() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.History.Enabled = false
	}
}

// WithWatch overrides the poll interval (milliseconds) and attempt budget.
func WithWatch(intervalMillis, attempts int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Watch.PollIntervalMillis = intervalMillis
		b.cfg.Watch.MaxAttempts = attempts
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.WatchDir)
}
