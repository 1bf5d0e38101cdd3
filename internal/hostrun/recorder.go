package hostrun

import (
	"context"

	"handoff/internal/dispatch"
	"handoff/internal/history"
)

// historyRecorder journals dispatcher outcomes.
type historyRecorder struct {
	store     *history.Store
	sessionID string
}

func (r historyRecorder) Record(ctx context.Context, outcome dispatch.Outcome) error {
	status := history.StatusError
	if outcome.Response.Status == dispatch.StatusSuccess {
		status = history.StatusSuccess
	}
	// Outcomes of a request interrupted by shutdown are still journaled.
	_, err := r.store.Record(context.WithoutCancel(ctx), history.Entry{
		SessionID:   r.sessionID,
		RequestID:   outcome.RequestID,
		Filename:    outcome.Request.Filename,
		Destination: outcome.Request.FullDestinationPath,
		Status:      status,
		Kind:        outcome.Kind.String(),
		Message:     outcome.Response.Message,
		MovedFrom:   outcome.Response.MovedFrom,
		MovedTo:     outcome.Response.MovedTo,
		SizeBytes:   outcome.Moved.Size,
		Attempts:    outcome.Moved.Attempts,
		StartedAt:   outcome.Started,
		FinishedAt:  outcome.Finished,
	})
	return err
}
