package fileutil

import (
	"errors"
	"os"
	"path/filepath"
	"syscall"
	"testing"
)

func crossDeviceRename(oldpath, newpath string) error {
	return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: syscall.EXDEV}
}

func TestMoveFileSameFilesystem(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	dst := filepath.Join(dir, "dst.txt")
	if err := os.WriteFile(src, []byte("hello world"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := MoveFile(src, dst); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "hello world" {
		t.Fatalf("content mismatch: got %q", got)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Fatalf("expected source removed, err=%v", err)
	}
}

func TestMoveFallsBackToCopyAcrossDevices(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	dstDir := filepath.Join(dir, "out")
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		t.Fatal(err)
	}
	dst := filepath.Join(dstDir, "dst.bin")
	if err := os.WriteFile(src, []byte("data"), 0o600); err != nil {
		t.Fatal(err)
	}

	mover := Mover{Rename: crossDeviceRename}
	if err := mover.Move(src, dst); err != nil {
		t.Fatalf("Move: %v", err)
	}

	info, err := os.Stat(dst)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected source mode preserved, got %o", info.Mode().Perm())
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Fatalf("expected source removed, err=%v", err)
	}
	entries, err := os.ReadDir(dstDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the destination file, found %d entries", len(entries))
	}
}

func TestMoveReportsPlainRenameFailure(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "missing.txt")
	dst := filepath.Join(dir, "dst.txt")

	err := MoveFile(src, dst)
	if err == nil {
		t.Fatal("expected error for missing source")
	}
	if IsCrossDevice(err) {
		t.Fatal("missing source is not a cross-device failure")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected ErrNotExist in chain, got %v", err)
	}
}

func TestIsCrossDevice(t *testing.T) {
	if !IsCrossDevice(crossDeviceRename("a", "b")) {
		t.Fatal("expected LinkError EXDEV to be cross-device")
	}
	if !IsCrossDevice(syscall.EXDEV) {
		t.Fatal("expected bare EXDEV to be cross-device")
	}
	if IsCrossDevice(errors.New("boom")) {
		t.Fatal("unexpected cross-device match")
	}
}
