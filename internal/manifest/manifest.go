package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"handoff/internal/config"
)

// Browser identifies a manifest flavour and install location.
type Browser string

const (
	Firefox  Browser = "firefox"
	Chrome   Browser = "chrome"
	Chromium Browser = "chromium"
)

// Browsers lists every supported browser in display order.
func Browsers() []Browser {
	return []Browser{Firefox, Chrome, Chromium}
}

// ParseBrowser maps a user-supplied name onto a Browser.
func ParseBrowser(name string) (Browser, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "firefox", "mozilla":
		return Firefox, nil
	case "chrome", "google-chrome":
		return Chrome, nil
	case "chromium":
		return Chromium, nil
	default:
		return "", fmt.Errorf("unsupported browser %q (use firefox, chrome, or chromium)", name)
	}
}

func (b Browser) usesOrigins() bool {
	return b == Chrome || b == Chromium
}

// Manifest is the JSON document a browser reads to find the host.
type Manifest struct {
	Name              string   `json:"name"`
	Description       string   `json:"description"`
	Path              string   `json:"path"`
	Type              string   `json:"type"`
	AllowedExtensions []string `json:"allowed_extensions,omitempty"`
	AllowedOrigins    []string `json:"allowed_origins,omitempty"`
}

// Build assembles the manifest for browser. hostPath must be absolute since
// browsers on Linux and macOS reject relative host paths.
func Build(browser Browser, cfg config.Manifest, hostPath string) (Manifest, error) {
	if !filepath.IsAbs(hostPath) {
		return Manifest{}, fmt.Errorf("host path %q must be absolute", hostPath)
	}
	m := Manifest{
		Name:        cfg.Name,
		Description: cfg.Description,
		Path:        filepath.Clean(hostPath),
		Type:        "stdio",
	}
	if browser.usesOrigins() {
		if len(cfg.AllowedOrigins) == 0 {
			return Manifest{}, errors.New("manifest.allowed_origins is empty; add the extension origin to the config")
		}
		m.AllowedOrigins = append([]string(nil), cfg.AllowedOrigins...)
		return m, nil
	}
	if len(cfg.AllowedExtensions) == 0 {
		return Manifest{}, errors.New("manifest.allowed_extensions is empty; add the add-on ID to the config")
	}
	m.AllowedExtensions = append([]string(nil), cfg.AllowedExtensions...)
	return m, nil
}

// Marshal renders the manifest as indented JSON with a trailing newline.
func (m Manifest) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	return append(data, '\n'), nil
}

// Read loads an installed manifest.
func Read(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	return m, nil
}

// Install writes m to path, replacing any previous manifest atomically.
func Install(m Manifest, path string) error {
	data, err := m.Marshal()
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create manifest directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create manifest: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write manifest: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("set manifest mode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close manifest: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("install manifest: %w", err)
	}
	return nil
}
