package arrival

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
)

const (
	defaultLockTimeout = 30 * time.Second
	lockRetryDelay     = 100 * time.Millisecond
)

// lockPath names the lock file guarding destination. Browsers start one host
// process per connection, so two processes may target the same path.
func lockPath(lockDir, destination string) string {
	id := uuid.NewSHA1(uuid.NameSpaceURL, []byte("file://"+destination))
	return filepath.Join(lockDir, id.String()+".lock")
}

// lockDestination takes the advisory lock for destination. It returns a nil
// lock when locking is disabled.
func (w *Watcher) lockDestination(ctx context.Context, destination string) (*flock.Flock, error) {
	if w.lockDir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(w.lockDir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	lock := flock.New(lockPath(w.lockDir, destination))
	lockCtx, cancel := context.WithTimeout(ctx, w.lockTimeout)
	defer cancel()

	ok, err := lock.TryLockContext(lockCtx, lockRetryDelay)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("destination %s is locked by another handoff process", destination)
		}
		return nil, fmt.Errorf("lock destination: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("destination %s is locked by another handoff process", destination)
	}
	// flock reuses an existing file without touching it; the mtime marks last
	// use for PruneLocks.
	now := time.Now()
	_ = os.Chtimes(lock.Path(), now, now)
	return lock, nil
}

// PruneLocks removes lock files in lockDir last used before cutoff. Files
// are deleted only while held, so a lock taken by a running host is skipped.
// Release never unlinks: a process waiting on the file would otherwise end up
// holding a lock on an orphaned inode.
func PruneLocks(lockDir string, cutoff time.Time) (int, error) {
	if lockDir == "" {
		return 0, nil
	}
	entries, err := os.ReadDir(lockDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("read lock directory: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if !entry.Type().IsRegular() || filepath.Ext(entry.Name()) != ".lock" {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		path := filepath.Join(lockDir, entry.Name())
		lock := flock.New(path)
		ok, err := lock.TryLock()
		if err != nil || !ok {
			continue
		}
		if err := os.Remove(path); err == nil {
			removed++
		}
		_ = lock.Unlock()
	}
	return removed, nil
}
