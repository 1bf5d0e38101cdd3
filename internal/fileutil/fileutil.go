package fileutil

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"
)

// ErrSourceRemains reports a cross-device move whose copy succeeded but whose
// source could not be removed afterwards. The destination is complete.
var ErrSourceRemains = errors.New("source file remains after copy")

// Mover relocates files. Rename is attempted first; when source and target
// live on different filesystems the file is copied next to the target,
// synced, renamed into place, and the source removed.
type Mover struct {
	// Rename defaults to os.Rename.
	Rename func(oldpath, newpath string) error
}

// MoveFile moves src to dst with the default Mover.
func MoveFile(src, dst string) error {
	return Mover{}.Move(src, dst)
}

// Move relocates src to dst. The parent of dst must already exist.
func (m Mover) Move(src, dst string) error {
	rename := m.Rename
	if rename == nil {
		rename = os.Rename
	}
	err := rename(src, dst)
	if err == nil {
		return nil
	}
	if !IsCrossDevice(err) {
		return fmt.Errorf("rename: %w", err)
	}

	if err := copyIntoPlace(src, dst); err != nil {
		return fmt.Errorf("copy across devices: %w", err)
	}
	if err := os.Remove(src); err != nil {
		return fmt.Errorf("%w: %v", ErrSourceRemains, err)
	}
	return nil
}

// IsCrossDevice reports whether err is a rename failure caused by source and
// target residing on different filesystems.
func IsCrossDevice(err error) bool {
	var linkErr *os.LinkError
	if errors.As(err, &linkErr) {
		return errors.Is(linkErr.Err, syscall.EXDEV)
	}
	return errors.Is(err, syscall.EXDEV)
}

// copyIntoPlace copies src to a temporary file beside dst and renames it over
// dst, so dst never holds a partial copy.
func copyIntoPlace(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".partial-*")
	if err != nil {
		return fmt.Errorf("create temporary destination: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	if _, err := io.Copy(tmp, in); err != nil {
		cleanup()
		return fmt.Errorf("copy data: %w", err)
	}
	if err := tmp.Chmod(info.Mode().Perm()); err != nil {
		cleanup()
		return fmt.Errorf("set destination mode: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("sync destination: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close destination: %w", err)
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}
