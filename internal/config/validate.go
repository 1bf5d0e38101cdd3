package config

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
)

// hostNamePattern follows the browser rules for native messaging host names:
// lowercase alphanumerics, underscores and dots, no leading, trailing or
// doubled dots.
var hostNamePattern = regexp.MustCompile(`^[a-z0-9_]+(\.[a-z0-9_]+)*$`)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateWatch(); err != nil {
		return err
	}
	if err := c.validateProtocol(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateManifest(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.WatchDir) == "" {
		return errors.New("paths.watch_dir must be set")
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		return errors.New("paths.state_dir must be set")
	}
	return nil
}

func (c *Config) validateWatch() error {
	return ensurePositiveMap(map[string]int{
		"watch.poll_interval_ms": c.Watch.PollIntervalMillis,
		"watch.max_attempts":     c.Watch.MaxAttempts,
	})
}

func (c *Config) validateProtocol() error {
	if c.Protocol.MaxMessageBytes <= 0 {
		return errors.New("protocol.max_message_bytes must be positive")
	}
	if uint64(c.Protocol.MaxMessageBytes) > math.MaxUint32 {
		return fmt.Errorf("protocol.max_message_bytes must fit in a 32-bit length prefix (max %d)", uint64(math.MaxUint32))
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q (use debug, info, warn, or error)", c.Logging.Level)
	}
}

func (c *Config) validateManifest() error {
	if !hostNamePattern.MatchString(c.Manifest.Name) {
		return fmt.Errorf("manifest.name %q must contain only lowercase letters, digits, underscores and single dots", c.Manifest.Name)
	}
	for _, origin := range c.Manifest.AllowedOrigins {
		if !strings.HasPrefix(origin, "chrome-extension://") || !strings.HasSuffix(origin, "/") {
			return fmt.Errorf("manifest.allowed_origins entry %q must look like chrome-extension://<id>/", origin)
		}
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
