package testsupport

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// WriteFile creates path holding size bytes of filler, creating parent
// directories. Sizes below one become a single byte so the result always
// counts as a non-empty download.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size < 1 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, bytes.Repeat([]byte{'d'}, int(size)), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// AppendFile grows an existing file by n bytes, like a download that is
// still being written.
func AppendFile(t testing.TB, path string, n int) {
	t.Helper()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
	if err != nil {
		t.Fatalf("open %s for append: %v", path, err)
	}
	defer f.Close()
	if _, err := f.Write(bytes.Repeat([]byte{'+'}, n)); err != nil {
		t.Fatalf("append to %s: %v", path, err)
	}
}
