package arrival

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"handoff/internal/fileutil"
	"handoff/internal/logging"
)

const (
	// DefaultPollInterval is the delay between two probes of the watched file.
	DefaultPollInterval = time.Second
	// DefaultMaxAttempts bounds the number of probes per request.
	DefaultMaxAttempts = 60
)

// StatFunc reports file metadata. os.Stat is used when none is supplied.
type StatFunc func(name string) (fs.FileInfo, error)

// Mover relocates a file from src to dst.
type Mover interface {
	Move(src, dst string) error
}

// Options configures a Watcher.
type Options struct {
	WatchDir          string
	PollInterval      time.Duration
	MaxAttempts       int
	OverwriteExisting bool
	// LockDir holds destination lock files. Empty disables locking.
	LockDir string

	Clock  Clock
	Stat   StatFunc
	Mover  Mover
	Logger *slog.Logger
}

// Moved describes a completed relocation.
type Moved struct {
	From     string
	To       string
	Size     int64
	Attempts int
	Elapsed  time.Duration
}

// Watcher waits for files in a single watched directory and moves them.
type Watcher struct {
	watchDir     string
	pollInterval time.Duration
	maxAttempts  int
	overwrite    bool
	lockDir      string
	lockTimeout  time.Duration

	clock  Clock
	stat   StatFunc
	mover  Mover
	logger *slog.Logger
}

// New validates opts and returns a Watcher.
func New(opts Options) (*Watcher, error) {
	if opts.WatchDir == "" {
		return nil, errors.New("arrival: watch directory is required")
	}
	w := &Watcher{
		watchDir:     filepath.Clean(opts.WatchDir),
		pollInterval: opts.PollInterval,
		maxAttempts:  opts.MaxAttempts,
		overwrite:    opts.OverwriteExisting,
		lockDir:      opts.LockDir,
		lockTimeout:  defaultLockTimeout,
		clock:        opts.Clock,
		stat:         opts.Stat,
		mover:        opts.Mover,
		logger:       logging.NewComponentLogger(opts.Logger, "arrival"),
	}
	if w.pollInterval <= 0 {
		w.pollInterval = DefaultPollInterval
	}
	if w.maxAttempts <= 0 {
		w.maxAttempts = DefaultMaxAttempts
	}
	if w.clock == nil {
		w.clock = realClock{}
	}
	if w.stat == nil {
		w.stat = os.Stat
	}
	if w.mover == nil {
		w.mover = fileutil.Mover{}
	}
	return w, nil
}

// WatchDir returns the directory relative filenames are resolved against.
func (w *Watcher) WatchDir() string {
	return w.watchDir
}

// LocateAndMove waits for filename to settle in the watched directory and
// moves it to destination. It blocks for at most MaxAttempts poll intervals
// plus the time needed to move the file. Moved.To echoes destination as given;
// only the filesystem operations use its cleaned form. Every failure is
// returned as an *Error.
func (w *Watcher) LocateAndMove(ctx context.Context, filename, destination string) (Moved, error) {
	start := w.clock.Now()
	source := w.resolveSource(filename)
	logger := w.logger.With(logging.String("source", source), logging.String("destination", destination))

	state, err := w.wait(ctx, source)
	if err != nil {
		return Moved{}, err
	}

	final, err := w.probe(candidates(source))
	if err != nil {
		return Moved{}, internal(err)
	}
	if !final.present || final.size == 0 {
		logger.InfoContext(ctx, "file did not arrive",
			logging.Int("attempts", state.attempts),
			logging.String("last_phase", state.phase.String()),
		)
		return Moved{}, notFoundOrEmpty(source)
	}
	if state.phase != phaseStable {
		logging.WarnWithContext(ctx, logger, "file not confirmed stable within poll budget; moving anyway", "arrival_unsettled",
			logging.Int("attempts", state.attempts),
			logging.Int64("size", final.size),
			logging.String(logging.FieldErrorHint, "raise watch.max_attempts for slow downloads"),
			logging.String(logging.FieldImpact, "destination may hold an incomplete file"),
		)
	}

	if err := w.moveInto(ctx, logger, final.path, destination); err != nil {
		return Moved{}, err
	}

	moved := Moved{
		From:     final.path,
		To:       destination,
		Size:     final.size,
		Attempts: state.attempts,
		Elapsed:  w.clock.Now().Sub(start),
	}
	logger.InfoContext(ctx, "file moved",
		logging.Int64("size", moved.Size),
		logging.Int("attempts", moved.Attempts),
		logging.Duration("elapsed", moved.Elapsed),
	)
	return moved, nil
}

// wait polls until the file is stable or the attempt budget is spent. Every
// unsuccessful attempt is followed by an interval, so the budget covers
// maxAttempts intervals and the caller's final probe sees the file as it was
// at the end of the last one.
func (w *Watcher) wait(ctx context.Context, source string) (pollState, error) {
	paths := candidates(source)
	state := newPollState()
	for attempt := 1; attempt <= w.maxAttempts; attempt++ {
		obs, err := w.probe(paths)
		if err != nil {
			return state, internal(err)
		}
		prev := state.phase
		if state.observe(obs) == phaseStable {
			return state, nil
		}
		if state.phase != prev {
			w.logger.DebugContext(ctx, "watch phase changed",
				logging.String("source", source),
				logging.String("phase", state.phase.String()),
				logging.Int("attempt", attempt),
			)
		}
		if err := w.clock.Sleep(ctx, w.pollInterval); err != nil {
			return state, internal(fmt.Errorf("watch interrupted: %w", err))
		}
	}
	return state, nil
}

func (w *Watcher) moveInto(ctx context.Context, logger *slog.Logger, source, destination string) error {
	if !filepath.IsAbs(destination) {
		return moveFailed(destination, errDestinationRelative)
	}
	destination = filepath.Clean(destination)

	lock, err := w.lockDestination(ctx, destination)
	if err != nil {
		return moveFailed(destination, err)
	}
	if lock != nil {
		defer func() {
			if err := lock.Unlock(); err != nil {
				logger.WarnContext(ctx, "release destination lock failed", logging.Error(err))
			}
		}()
	}

	if !w.overwrite {
		if _, err := os.Lstat(destination); err == nil {
			return moveFailed(destination, fmt.Errorf("%w: %s", errDestinationExists, destination))
		} else if !errors.Is(err, fs.ErrNotExist) {
			return moveFailed(destination, fmt.Errorf("check destination: %w", err))
		}
	}

	if err := os.MkdirAll(filepath.Dir(destination), 0o755); err != nil {
		return moveFailed(destination, fmt.Errorf("create destination directory: %w", err))
	}

	if err := w.mover.Move(source, destination); err != nil {
		if errors.Is(err, fileutil.ErrSourceRemains) {
			logging.WarnWithContext(ctx, logger, "source left behind after cross-device copy", "arrival_source_remains",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "remove the source file manually"),
				logging.String(logging.FieldImpact, "download exists in both locations"),
			)
			return nil
		}
		return moveFailed(destination, err)
	}
	return nil
}
