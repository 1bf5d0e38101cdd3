package preflight

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"handoff/internal/config"
	"handoff/internal/history"
	"handoff/internal/manifest"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
// Write access matters for the watch directory too, since moving a download
// removes it from there.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckWritableParent passes when path is an accessible directory or can be
// created beneath its nearest existing ancestor.
func CheckWritableParent(name, path string) Result {
	if _, err := os.Stat(path); err == nil {
		return CheckDirectoryAccess(name, path)
	}

	ancestor := filepath.Dir(path)
	for {
		info, err := os.Stat(ancestor)
		if err == nil {
			if !info.IsDir() {
				return Result{Name: name, Detail: fmt.Sprintf("%s (error: %s is not a directory)", path, ancestor)}
			}
			break
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat %s: %v)", path, ancestor, err)}
		}
		parent := filepath.Dir(ancestor)
		if parent == ancestor {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: no existing ancestor)", path)}
		}
		ancestor = parent
	}

	if err := unix.Access(ancestor, unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: cannot create under %s: %v)", path, ancestor, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (will be created)", path)}
}

// CheckHistory opens an existing journal and reads its size. A journal that
// has not been created yet passes.
func CheckHistory(ctx context.Context, path string) Result {
	const name = "History journal"

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (not created yet)", path)}
	}
	store, err := history.OpenPath(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	defer store.Close()

	counts, err := store.Counts(ctx)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	total := 0
	for _, n := range counts {
		total += n
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d entries)", path, total)}
}

// CheckManifest verifies the installed manifest for browser names this host
// and points at an executable.
func CheckManifest(browser manifest.Browser, cfg config.Manifest, goos, home string) Result {
	name := fmt.Sprintf("Manifest (%s)", browser)

	path, err := manifest.InstallPath(browser, goos, home, cfg.Name)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	m, err := manifest.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (not installed; run handoff manifest install --browser %s)", path, browser)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	if m.Name != cfg.Name {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: names host %q, expected %q)", path, m.Name, cfg.Name)}
	}
	if err := unix.Access(m.Path, unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: host %s is not executable: %v)", path, m.Path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s -> %s", path, m.Path)}
}

// CheckManifests checks every browser the config allows callers for.
func CheckManifests(cfg config.Manifest, goos, home string) []Result {
	var results []Result
	for _, browser := range manifest.Browsers() {
		switch browser {
		case manifest.Firefox:
			if len(cfg.AllowedExtensions) == 0 {
				continue
			}
		default:
			if len(cfg.AllowedOrigins) == 0 {
				continue
			}
		}
		results = append(results, CheckManifest(browser, cfg, goos, home))
	}
	return results
}
