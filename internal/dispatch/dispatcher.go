package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"sync/atomic"
	"time"

	"handoff/internal/arrival"
	"handoff/internal/logging"
	"handoff/internal/nativemsg"
)

// DefaultMaxIOFailures is how many consecutive stream failures, other than
// malformed frames, are tolerated before Serve gives up. A broken pipe keeps
// failing forever, so retrying it would only spin.
const DefaultMaxIOFailures = 16

// Channel is the framed message transport; *nativemsg.Conn implements it.
type Channel interface {
	Receive() (json.RawMessage, error)
	Send(v any) error
}

// Locator waits for a download and moves it; *arrival.Watcher implements it.
type Locator interface {
	LocateAndMove(ctx context.Context, filename, destination string) (arrival.Moved, error)
}

// Outcome summarizes one request/response exchange.
type Outcome struct {
	RequestID uint64
	Request   Request
	Response  Response
	Kind      Kind
	Moved     arrival.Moved
	Started   time.Time
	Finished  time.Time
}

// Recorder persists outcomes. Failures are logged and never change the
// response already sent.
type Recorder interface {
	Record(ctx context.Context, outcome Outcome) error
}

// Options configures a Dispatcher.
type Options struct {
	Channel  Channel
	Locator  Locator
	Recorder Recorder
	Logger   *slog.Logger
	// MaxIOFailures defaults to DefaultMaxIOFailures.
	MaxIOFailures int
	Now           func() time.Time
}

// Dispatcher serves one request at a time until the input stream closes.
type Dispatcher struct {
	channel       Channel
	locator       Locator
	recorder      Recorder
	logger        *slog.Logger
	maxIOFailures int
	now           func() time.Time

	state atomic.Int32
	seq   atomic.Uint64
}

// New returns a Dispatcher in the Running state.
func New(opts Options) (*Dispatcher, error) {
	if opts.Channel == nil {
		return nil, errors.New("dispatch: channel is required")
	}
	if opts.Locator == nil {
		return nil, errors.New("dispatch: locator is required")
	}
	d := &Dispatcher{
		channel:       opts.Channel,
		locator:       opts.Locator,
		recorder:      opts.Recorder,
		logger:        logging.NewComponentLogger(opts.Logger, "dispatch"),
		maxIOFailures: opts.MaxIOFailures,
		now:           opts.Now,
	}
	if d.maxIOFailures <= 0 {
		d.maxIOFailures = DefaultMaxIOFailures
	}
	if d.now == nil {
		d.now = time.Now
	}
	d.state.Store(int32(StateRunning))
	return d, nil
}

// State reports whether the loop is still running.
func (d *Dispatcher) State() State {
	return State(d.state.Load())
}

// Handled returns the number of exchanges completed so far.
func (d *Dispatcher) Handled() uint64 {
	return d.seq.Load()
}

// Serve runs the request loop. It returns nil when the input stream ends
// cleanly, ctx.Err() when ctx is cancelled between requests, and an error
// only after MaxIOFailures consecutive stream failures. Malformed frames are
// answered with an error response and never stop the loop.
func (d *Dispatcher) Serve(ctx context.Context) error {
	defer d.state.Store(int32(StateTerminated))

	failures := 0
	for {
		if err := ctx.Err(); err != nil {
			d.logger.InfoContext(ctx, "dispatcher stopping", logging.String("reason", err.Error()))
			return err
		}

		raw, err := d.channel.Receive()
		if errors.Is(err, io.EOF) {
			d.logger.InfoContext(ctx, "input closed; dispatcher stopping", logging.Int64("handled", int64(d.Handled())))
			return nil
		}

		id := d.seq.Add(1)
		reqCtx := logging.WithRequestID(ctx, id)
		started := d.now()

		if err != nil {
			kind := KindProtocolError
			if !nativemsg.IsProtocolError(err) {
				kind = KindInternalError
				failures++
			}
			logging.ErrorWithContext(reqCtx, d.logger, "read request failed", "request_read_failed",
				logging.Error(err),
				logging.String("kind", kind.String()),
				logging.String(logging.FieldErrorHint, "check that the browser extension speaks the native messaging framing"),
			)
			outcome := Outcome{RequestID: id, Kind: kind, Response: internalErrorResponse(err), Started: started}
			if sendErr := d.reply(reqCtx, &outcome); sendErr != nil {
				failures++
			}
			d.record(reqCtx, outcome)
			if failures >= d.maxIOFailures {
				return fmt.Errorf("read request: %d consecutive stream failures: %w", failures, err)
			}
			continue
		}

		outcome := d.handle(reqCtx, raw)
		outcome.RequestID = id
		outcome.Started = started
		if err := d.reply(reqCtx, &outcome); err != nil {
			failures++
			if failures >= d.maxIOFailures {
				d.record(reqCtx, outcome)
				return fmt.Errorf("send response: %d consecutive stream failures: %w", failures, err)
			}
		} else {
			failures = 0
		}
		d.record(reqCtx, outcome)
	}
}

// handle turns one well-formed frame into an outcome. Panics are recovered as
// internal errors so a single bad request cannot end the session.
func (d *Dispatcher) handle(ctx context.Context, raw json.RawMessage) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v", r)
			logging.ErrorWithContext(ctx, d.logger, "request handling panicked", "request_panic",
				logging.Error(err),
				logging.String("stack", string(debug.Stack())),
			)
			outcome.Kind = KindInternalError
			outcome.Response = internalErrorResponse(err)
		}
	}()

	req, err := decodeRequest(raw)
	if err != nil {
		d.logger.WarnContext(ctx, "invalid request shape", logging.Error(err))
		return Outcome{Kind: KindInvalidRequestShape, Response: errorResponse(invalidFormatMessage)}
	}
	outcome.Request = req

	d.logger.InfoContext(ctx, "request received",
		logging.String("filename", req.Filename),
		logging.String("destination", req.FullDestinationPath),
	)

	moved, err := d.locator.LocateAndMove(ctx, req.Filename, req.FullDestinationPath)
	if err != nil {
		outcome.Kind = kindFromArrival(err)
		outcome.Response = errorResponse(err.Error())
		d.logger.WarnContext(ctx, "request failed",
			logging.String("kind", outcome.Kind.String()),
			logging.Error(err),
		)
		return outcome
	}
	outcome.Moved = moved
	outcome.Response = successResponse(moved.From, moved.To)
	return outcome
}

// reply sends the outcome's response. A response too large for the browser
// is replaced by a short internal error so the peer still gets exactly one
// reply.
func (d *Dispatcher) reply(ctx context.Context, outcome *Outcome) error {
	err := d.channel.Send(outcome.Response)
	if errors.Is(err, nativemsg.ErrMessageTooLarge) {
		d.logger.WarnContext(ctx, "response too large; sending short error", logging.Error(err))
		outcome.Kind = KindInternalError
		outcome.Response = internalErrorResponse(errors.New("response exceeds native messaging size limit"))
		err = d.channel.Send(outcome.Response)
	}
	outcome.Finished = d.now()
	if err != nil {
		logging.ErrorWithContext(ctx, d.logger, "send response failed", "response_send_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "the browser may have closed the connection"),
		)
		return err
	}
	return nil
}

func (d *Dispatcher) record(ctx context.Context, outcome Outcome) {
	if d.recorder == nil {
		return
	}
	if err := d.recorder.Record(ctx, outcome); err != nil {
		logging.WarnWithContext(ctx, d.logger, "history record failed", "history_record_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "request missing from move history"),
		)
	}
}
