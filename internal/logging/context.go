package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldSessionID identifies one host process, i.e. one browser connection.
	FieldSessionID = "session_id"
	// FieldRequestID is the per-session sequence number of a protocol request.
	FieldRequestID = "request_id"
	// FieldEventType is the standardized key for machine-filterable event names.
	FieldEventType = "event_type"
	// FieldErrorHint is the standardized key for a suggested next step.
	FieldErrorHint = "error_hint"
	// FieldImpact is the standardized key for user-facing consequence of a warning.
	FieldImpact = "impact"
)

type requestIDKey struct{}

// WithRequestID returns a context carrying the request sequence number. Records
// logged with that context are tagged with request_id.
func WithRequestID(ctx context.Context, id uint64) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext extracts the request sequence number, if any.
func RequestIDFromContext(ctx context.Context) (uint64, bool) {
	if ctx == nil {
		return 0, false
	}
	id, ok := ctx.Value(requestIDKey{}).(uint64)
	return id, ok
}

// contextHandler injects session_id on every record and request_id when the
// record's context carries one.
type contextHandler struct {
	base      slog.Handler
	sessionID string
}

func newContextHandler(base slog.Handler, sessionID string) slog.Handler {
	if base == nil {
		return NoopHandler{}
	}
	return &contextHandler{base: base, sessionID: sessionID}
}

func (h *contextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.base.Enabled(ctx, level)
}

func (h *contextHandler) Handle(ctx context.Context, record slog.Record) error {
	if h.sessionID != "" {
		record.AddAttrs(slog.String(FieldSessionID, h.sessionID))
	}
	if id, ok := RequestIDFromContext(ctx); ok {
		record.AddAttrs(slog.Uint64(FieldRequestID, id))
	}
	return h.base.Handle(ctx, record)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{base: h.base.WithAttrs(attrs), sessionID: h.sessionID}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{base: h.base.WithGroup(name), sessionID: h.sessionID}
}
