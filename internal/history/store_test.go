package history_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"handoff/internal/history"
	"handoff/internal/testsupport"
)

func TestRecordAndRecent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	base := time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC)
	entries := []history.Entry{
		{
			SessionID: "s1", RequestID: 1, Filename: "a.txt", Destination: "/out/a.txt",
			Status: history.StatusSuccess, Kind: "none", MovedFrom: "/dl/a.txt", MovedTo: "/out/a.txt",
			SizeBytes: 10, Attempts: 2, StartedAt: base, FinishedAt: base.Add(time.Second),
		},
		{
			SessionID: "s1", RequestID: 2, Filename: "b.txt", Destination: "/out/b.txt",
			Status: history.StatusError, Kind: "not_found_or_empty", Message: "File did not appear or was empty: /dl/b.txt",
			Attempts: 60, StartedAt: base.Add(time.Minute), FinishedAt: base.Add(2 * time.Minute),
		},
	}
	for _, entry := range entries {
		if _, err := store.Record(ctx, entry); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	recent, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(recent))
	}
	if recent[0].Filename != "b.txt" || recent[1].Filename != "a.txt" {
		t.Fatalf("expected newest first, got %s then %s", recent[0].Filename, recent[1].Filename)
	}
	if recent[0].Kind != "not_found_or_empty" || recent[0].MovedTo != "" {
		t.Fatalf("unexpected error entry %#v", recent[0])
	}
	if recent[1].Duration() != time.Second {
		t.Fatalf("expected 1s duration, got %s", recent[1].Duration())
	}
	if !recent[1].StartedAt.Equal(base) {
		t.Fatalf("start time not preserved: %s", recent[1].StartedAt)
	}

	limited, err := store.Recent(ctx, 1)
	if err != nil {
		t.Fatalf("Recent limited: %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("expected 1 entry with limit, got %d", len(limited))
	}

	counts, err := store.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if counts[history.StatusSuccess] != 1 || counts[history.StatusError] != 1 {
		t.Fatalf("unexpected counts %v", counts)
	}
}

func TestRecordValidatesEntry(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	if _, err := store.Record(ctx, history.Entry{Status: history.StatusSuccess}); err == nil {
		t.Fatal("expected error without session id")
	}
	if _, err := store.Record(ctx, history.Entry{SessionID: "s", Status: "pending"}); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestPrune(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	for i, age := range []time.Duration{100 * 24 * time.Hour, 91 * 24 * time.Hour, time.Hour} {
		entry := history.Entry{
			SessionID:  "s",
			RequestID:  uint64(i + 1),
			Status:     history.StatusSuccess,
			Kind:       "none",
			FinishedAt: now.Add(-age),
		}
		if _, err := store.Record(ctx, entry); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	removed, err := store.Prune(ctx, now.Add(-90*24*time.Hour))
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 pruned entries, got %d", removed)
	}
	remaining, err := store.Recent(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(remaining) != 1 || remaining[0].RequestID != 3 {
		t.Fatalf("unexpected remaining entries %#v", remaining)
	}
}

func TestOpenRejectsSchemaMismatch(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	path := store.Path()
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatal(err)
	}
	_ = db.Close()

	if _, err := history.OpenPath(path); !errors.Is(err, history.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestOpenReusesExistingJournal(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	first, err := history.Open(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := first.Record(context.Background(), history.Entry{SessionID: "s", Status: history.StatusError, Kind: "protocol_error"}); err != nil {
		t.Fatal(err)
	}
	_ = first.Close()

	second := testsupport.MustOpenHistory(t, cfg)
	entries, err := second.Recent(context.Background(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected persisted entry, got %d", len(entries))
	}
}
