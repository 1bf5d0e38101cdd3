package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"handoff/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently handled download moves",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			path := cfg.HistoryPath()
			if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
				fmt.Fprintf(out, "No history recorded yet (%s)\n", path)
				return nil
			}
			store, err := history.OpenPath(path)
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeHistoryJSON(cmd, entries)
			}
			if len(entries) == 0 {
				fmt.Fprintln(out, "No history recorded yet")
				return nil
			}

			colorize := shouldColorize(out)
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				kind := statusOK
				detail := e.MovedTo
				if e.Status != history.StatusSuccess {
					kind = statusError
					detail = e.Message
				}
				rows = append(rows, []string{
					e.FinishedAt.Local().Format("2006-01-02 15:04:05"),
					statusLabel(kind, colorize),
					displayName(e.Filename),
					detail,
					formatDuration(e.Duration()),
				})
			}
			fmt.Fprintln(out, renderTable([]column{
				{title: "Finished"},
				{title: "Status"},
				{title: "File", wrap: true},
				{title: "Destination / Error", wrap: true},
				{title: "Took", right: true},
			}, rows))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of entries to show (0 for all)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output entries as JSON")
	cmd.AddCommand(newHistoryPruneCommand(ctx))
	return cmd
}

func newHistoryPruneCommand(ctx *commandContext) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete history entries older than the retention window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("days") {
				days = cfg.History.RetentionDays
			}
			if days <= 0 {
				return fmt.Errorf("retention must be positive (got %d days)", days)
			}
			store, err := history.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			removed, err := store.Prune(cmd.Context(), time.Now().AddDate(0, 0, -days))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d entries older than %d days\n", removed, days)
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 0, "Retention window in days (defaults to history.retention_days)")
	return cmd
}

type historyJSON struct {
	ID          int64     `json:"id"`
	SessionID   string    `json:"session_id"`
	RequestID   uint64    `json:"request_id"`
	Filename    string    `json:"filename,omitempty"`
	Destination string    `json:"destination,omitempty"`
	Status      string    `json:"status"`
	Kind        string    `json:"kind"`
	Message     string    `json:"message,omitempty"`
	MovedFrom   string    `json:"moved_from,omitempty"`
	MovedTo     string    `json:"moved_to,omitempty"`
	SizeBytes   int64     `json:"size_bytes"`
	Attempts    int       `json:"attempts"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
}

func writeHistoryJSON(cmd *cobra.Command, entries []history.Entry) error {
	payload := make([]historyJSON, 0, len(entries))
	for _, e := range entries {
		payload = append(payload, historyJSON{
			ID:          e.ID,
			SessionID:   e.SessionID,
			RequestID:   e.RequestID,
			Filename:    e.Filename,
			Destination: e.Destination,
			Status:      string(e.Status),
			Kind:        e.Kind,
			Message:     e.Message,
			MovedFrom:   e.MovedFrom,
			MovedTo:     e.MovedTo,
			SizeBytes:   e.SizeBytes,
			Attempts:    e.Attempts,
			StartedAt:   e.StartedAt,
			FinishedAt:  e.FinishedAt,
		})
	}
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(payload)
}

func displayName(filename string) string {
	if filename == "" {
		return "-"
	}
	return filepath.Base(filename)
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(100 * time.Millisecond).String()
}
