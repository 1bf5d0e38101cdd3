package arrival

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"golang.org/x/text/unicode/norm"
)

// resolveSource maps the filename reported by the browser onto the watched
// directory. Firefox reports absolute paths; those are used as given.
func (w *Watcher) resolveSource(filename string) string {
	if filepath.IsAbs(filename) {
		return filepath.Clean(filename)
	}
	return filepath.Join(w.watchDir, filepath.Clean(filename))
}

// candidates lists the spellings probed for path. Some filesystems store
// names decomposed, so the NFC and NFD forms of the base name are tried after
// the exact one.
func candidates(path string) []string {
	dir, base := filepath.Split(path)
	out := []string{path}
	for _, form := range []norm.Form{norm.NFC, norm.NFD} {
		alt := form.String(base)
		if alt == base {
			continue
		}
		altPath := filepath.Join(dir, alt)
		duplicate := false
		for _, existing := range out {
			if existing == altPath {
				duplicate = true
				break
			}
		}
		if !duplicate {
			out = append(out, altPath)
		}
	}
	return out
}

// probe stats each candidate and reports the first regular file found.
// Directories count as absent.
func (w *Watcher) probe(paths []string) (observation, error) {
	for _, path := range paths {
		info, err := w.stat(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return observation{}, fmt.Errorf("stat %s: %w", path, err)
		}
		if info.IsDir() {
			continue
		}
		return observation{path: path, size: info.Size(), present: true}, nil
	}
	return observation{}, nil
}
