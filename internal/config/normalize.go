package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeWatch()
	c.normalizeManifest()
	c.normalizeLogging()
	if c.History.RetentionDays < 0 {
		c.History.RetentionDays = 0
	}
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if value, ok := os.LookupEnv("HANDOFF_WATCH_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.WatchDir = strings.TrimSpace(value)
	} else if strings.TrimSpace(c.Paths.WatchDir) == "" || c.Paths.WatchDir == defaultWatchDir {
		// The XDG user-dirs entry is the platform's notion of the download directory.
		if value, ok := os.LookupEnv("XDG_DOWNLOAD_DIR"); ok && strings.TrimSpace(value) != "" {
			c.Paths.WatchDir = strings.TrimSpace(value)
		} else {
			c.Paths.WatchDir = defaultWatchDir
		}
	}
	if c.Paths.WatchDir, err = expandPath(c.Paths.WatchDir); err != nil {
		return fmt.Errorf("paths.watch_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeWatch() {
	if c.Watch.PollIntervalMillis == 0 {
		c.Watch.PollIntervalMillis = defaultPollIntervalMillis
	}
	if c.Watch.MaxAttempts == 0 {
		c.Watch.MaxAttempts = defaultMaxAttempts
	}
	if c.Protocol.MaxMessageBytes == 0 {
		c.Protocol.MaxMessageBytes = defaultMaxMessageBytes
	}
}

func (c *Config) normalizeManifest() {
	c.Manifest.Name = strings.TrimSpace(c.Manifest.Name)
	if c.Manifest.Name == "" {
		c.Manifest.Name = defaultManifestName
	}
	c.Manifest.Description = strings.TrimSpace(c.Manifest.Description)
	if c.Manifest.Description == "" {
		c.Manifest.Description = defaultManifestDescription
	}
	c.Manifest.AllowedExtensions = dedupeTrimmed(c.Manifest.AllowedExtensions)
	c.Manifest.AllowedOrigins = dedupeTrimmed(c.Manifest.AllowedOrigins)
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}

func dedupeTrimmed(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}
