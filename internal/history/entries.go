package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Status mirrors the response status sent to the browser.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Entry is one handled request.
type Entry struct {
	ID          int64
	SessionID   string
	RequestID   uint64
	Filename    string
	Destination string
	Status      Status
	// Kind is the outcome classification, e.g. "move_failed".
	Kind       string
	Message    string
	MovedFrom  string
	MovedTo    string
	SizeBytes  int64
	Attempts   int
	StartedAt  time.Time
	FinishedAt time.Time
}

// Duration returns how long the request took.
func (e Entry) Duration() time.Duration {
	if e.StartedAt.IsZero() || e.FinishedAt.IsZero() {
		return 0
	}
	return e.FinishedAt.Sub(e.StartedAt)
}

const entryColumns = "id, session_id, request_id, filename, destination, status, kind, message, moved_from, moved_to, size_bytes, attempts, started_at, finished_at"

// Record appends entry to the journal and returns its identifier.
func (s *Store) Record(ctx context.Context, entry Entry) (int64, error) {
	if strings.TrimSpace(entry.SessionID) == "" {
		return 0, errors.New("history entry requires a session id")
	}
	if entry.Status != StatusSuccess && entry.Status != StatusError {
		return 0, fmt.Errorf("history entry has unknown status %q", entry.Status)
	}
	finished := entry.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}
	started := entry.StartedAt
	if started.IsZero() {
		started = finished
	}

	res, err := s.execWithRetry(ctx,
		`INSERT INTO moves (
			session_id, request_id, filename, destination, status, kind, message,
			moved_from, moved_to, size_bytes, attempts, started_at, finished_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.SessionID,
		int64(entry.RequestID),
		nullableString(entry.Filename),
		nullableString(entry.Destination),
		string(entry.Status),
		entry.Kind,
		nullableString(entry.Message),
		nullableString(entry.MovedFrom),
		nullableString(entry.MovedTo),
		entry.SizeBytes,
		entry.Attempts,
		formatTime(started),
		formatTime(finished),
	)
	if err != nil {
		return 0, fmt.Errorf("insert history entry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("history entry id: %w", err)
	}
	return id, nil
}

// Recent returns up to limit entries, newest first. A non-positive limit
// returns every entry.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	ctx = ensureContext(ctx)
	query := "SELECT " + entryColumns + " FROM moves ORDER BY finished_at DESC, id DESC"
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return entries, nil
}

// Prune deletes entries that finished before cutoff.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM moves WHERE finished_at < ?`, formatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	return res.RowsAffected()
}

// Counts returns the number of entries per status.
func (s *Store) Counts(ctx context.Context) (map[Status]int, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM moves GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count history: %w", err)
	}
	defer rows.Close()

	counts := make(map[Status]int)
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan history count: %w", err)
		}
		counts[Status(status)] = count
	}
	return counts, rows.Err()
}

func scanEntry(scanner interface{ Scan(dest ...any) error }) (Entry, error) {
	var (
		entry       Entry
		requestID   int64
		filename    sql.NullString
		destination sql.NullString
		status      string
		message     sql.NullString
		movedFrom   sql.NullString
		movedTo     sql.NullString
		startedRaw  string
		finishedRaw string
	)
	if err := scanner.Scan(
		&entry.ID,
		&entry.SessionID,
		&requestID,
		&filename,
		&destination,
		&status,
		&entry.Kind,
		&message,
		&movedFrom,
		&movedTo,
		&entry.SizeBytes,
		&entry.Attempts,
		&startedRaw,
		&finishedRaw,
	); err != nil {
		return Entry{}, err
	}
	entry.RequestID = uint64(requestID)
	entry.Filename = filename.String
	entry.Destination = destination.String
	entry.Status = Status(status)
	entry.Message = message.String
	entry.MovedFrom = movedFrom.String
	entry.MovedTo = movedTo.String
	if started, err := parseTimeString(startedRaw); err == nil {
		entry.StartedAt = started
	}
	if finished, err := parseTimeString(finishedRaw); err == nil {
		entry.FinishedAt = finished
	}
	return entry, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

// formatTime uses a fixed-width layout so text ordering matches time
// ordering in SQL comparisons.
func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000000Z")
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	return time.Parse(time.RFC3339Nano, value)
}
