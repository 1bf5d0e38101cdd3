package hostrun

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"

	"handoff/internal/arrival"
	"handoff/internal/config"
	"handoff/internal/dispatch"
	"handoff/internal/history"
	"handoff/internal/logging"
	"handoff/internal/logs"
	"handoff/internal/manifest"
	"handoff/internal/nativemsg"
	"handoff/internal/preflight"
)

// shutdownGrace bounds how long a signalled host waits for the response to
// an in-flight request.
const shutdownGrace = 2 * time.Second

// lockRetention is how long an unused destination lock file is kept.
const lockRetention = 24 * time.Hour

// Options configures host process runtime behavior.
type Options struct {
	// Args are the arguments the browser passed to the host.
	Args     []string
	LogLevel string
	Version  string

	// Stdin and Stdout default to the process streams.
	Stdin  io.Reader
	Stdout io.Writer
}

// Run serves native messaging requests until the browser closes stdin or
// the process is signalled.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	stdin := opts.Stdin
	if stdin == nil {
		stdin = os.Stdin
	}
	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sessionID := uuid.NewString()
	runID := time.Now().UTC().Format("20060102T150405.000Z")

	dirsErr := cfg.EnsureDirectories()
	var logPath string
	if dirsErr == nil && cfg.Paths.LogDir != "" {
		logPath = filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("handoff-%s-%d.log", runID, os.Getpid()))
	}

	if opts.LogLevel != "" {
		override := *cfg
		override.Logging.Level = opts.LogLevel
		cfg = &override
	}
	logger, err := logging.NewFromConfig(cfg, logPath, sessionID)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger = logging.NewComponentLogger(logger, "host")

	if dirsErr != nil {
		logging.WarnWithContext(signalCtx, logger, "state directories unavailable; running without log file and history", "host_directories_unavailable",
			logging.Error(dirsErr),
			logging.String(logging.FieldErrorHint, "check paths.state_dir and paths.log_dir"),
			logging.String(logging.FieldImpact, "logs go to stderr only; moves are not journaled"),
		)
	}
	if logPath != "" {
		if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
			logger.Debug("unable to update handoff.log link", logging.Error(err))
		}
	}

	logStartup(logger, cfg, opts)
	warnIfInteractive(signalCtx, logger, stdin)
	for _, result := range preflight.Failed(preflight.RunAll(signalCtx, cfg)) {
		logging.WarnWithContext(signalCtx, logger, "preflight check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldErrorHint, "run handoff check for details"),
			logging.String(logging.FieldImpact, "requests touching this path will fail"),
		)
	}

	now := time.Now()
	if cfg.Paths.LogDir != "" {
		logging.CleanupOldLogs(logger, now, cfg.Logging.RetentionDays,
			logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "handoff-*.log", Exclude: []string{logPath}},
		)
	}

	if dirsErr == nil {
		pruneLocks(logger, cfg.LockDir(), now)
	}

	var recorder dispatch.Recorder
	if cfg.History.Enabled && dirsErr == nil {
		store, err := history.Open(cfg)
		if err != nil {
			logging.WarnWithContext(signalCtx, logger, "history unavailable", "history_open_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "delete the history database if its schema is outdated"),
				logging.String(logging.FieldImpact, "moves are not journaled this session"),
			)
		} else {
			defer store.Close()
			pruneHistory(signalCtx, logger, store, cfg.History.RetentionDays, now)
			recorder = historyRecorder{store: store, sessionID: sessionID}
		}
	}

	watcher, err := arrival.New(arrival.Options{
		WatchDir:          cfg.Paths.WatchDir,
		PollInterval:      cfg.PollInterval(),
		MaxAttempts:       cfg.Watch.MaxAttempts,
		OverwriteExisting: cfg.Move.OverwriteExisting,
		LockDir:           cfg.LockDir(),
		Logger:            logger,
	})
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	conn := nativemsg.NewConn(stdin, stdout, nativemsg.WithMaxInbound(cfg.Protocol.MaxMessageBytes))
	dispatcher, err := dispatch.New(dispatch.Options{
		Channel:  conn,
		Locator:  watcher,
		Recorder: recorder,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("create dispatcher: %w", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- dispatcher.Serve(signalCtx)
	}()

	select {
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("host stopped after stream failures", logging.Error(err))
			return err
		}
	case <-signalCtx.Done():
		logger.Info("signal received; shutting down")
		select {
		case <-done:
		case <-time.After(shutdownGrace):
		}
	}
	logger.Info("handoff host exiting", logging.Int64("handled", int64(dispatcher.Handled())))
	return nil
}

func logStartup(logger *slog.Logger, cfg *config.Config, opts Options) {
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "host_start"),
		logging.String("version", opts.Version),
		logging.String("watch_dir", cfg.Paths.WatchDir),
		logging.Duration("poll_interval", cfg.PollInterval()),
		logging.Int("max_attempts", cfg.Watch.MaxAttempts),
		logging.Bool("overwrite_existing", cfg.Move.OverwriteExisting),
		logging.Int("pid", os.Getpid()),
	}
	if launch, ok := manifest.DetectLaunch(opts.Args); ok {
		attrs = append(attrs,
			logging.String("browser", string(launch.Browser)),
			logging.String("caller", launch.Caller),
		)
	}
	logger.Info("handoff host starting", logging.Args(attrs...)...)
}

// warnIfInteractive flags a host started from a terminal, where nobody will
// write framed messages to stdin.
func warnIfInteractive(ctx context.Context, logger *slog.Logger, stdin io.Reader) {
	file, ok := stdin.(*os.File)
	if !ok {
		return
	}
	fd := file.Fd()
	if isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
		logging.WarnWithContext(ctx, logger, "stdin is a terminal; handoff expects to be launched by a browser", "host_interactive",
			logging.String(logging.FieldErrorHint, "install the manifest with handoff manifest install and let the browser start the host"),
			logging.String(logging.FieldImpact, "typed input is read as length-prefixed frames"),
		)
	}
}

func pruneHistory(ctx context.Context, logger *slog.Logger, store *history.Store, retentionDays int, now time.Time) {
	if retentionDays <= 0 {
		return
	}
	removed, err := store.Prune(ctx, now.AddDate(0, 0, -retentionDays))
	if err != nil {
		logger.Warn("history prune failed", logging.Error(err))
		return
	}
	if removed > 0 {
		logger.Debug("history pruned", logging.Int64("removed", removed))
	}
}

func pruneLocks(logger *slog.Logger, lockDir string, now time.Time) {
	removed, err := arrival.PruneLocks(lockDir, now.Add(-lockRetention))
	if err != nil {
		logger.Warn("lock pruning failed", logging.Error(err))
		return
	}
	if removed > 0 {
		logger.Debug("stale destination locks removed", logging.Int("removed", removed))
	}
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, logs.CurrentLogName)
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}
