package manifest

import (
	"fmt"
	"path/filepath"
)

// InstallDir returns the per-user directory browser reads host manifests
// from on goos.
func InstallDir(browser Browser, goos, home string) (string, error) {
	if home == "" {
		return "", fmt.Errorf("home directory unknown")
	}
	switch goos {
	case "linux", "freebsd", "openbsd", "netbsd":
		switch browser {
		case Firefox:
			return filepath.Join(home, ".mozilla", "native-messaging-hosts"), nil
		case Chrome:
			return filepath.Join(home, ".config", "google-chrome", "NativeMessagingHosts"), nil
		case Chromium:
			return filepath.Join(home, ".config", "chromium", "NativeMessagingHosts"), nil
		}
	case "darwin":
		support := filepath.Join(home, "Library", "Application Support")
		switch browser {
		case Firefox:
			return filepath.Join(support, "Mozilla", "NativeMessagingHosts"), nil
		case Chrome:
			return filepath.Join(support, "Google", "Chrome", "NativeMessagingHosts"), nil
		case Chromium:
			return filepath.Join(support, "Chromium", "NativeMessagingHosts"), nil
		}
	default:
		return "", fmt.Errorf("manifest install locations for %s are not supported", goos)
	}
	return "", fmt.Errorf("unsupported browser %q", browser)
}

// InstallPath returns the manifest file location for host name.
func InstallPath(browser Browser, goos, home, name string) (string, error) {
	dir, err := InstallDir(browser, goos, home)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name+".json"), nil
}
