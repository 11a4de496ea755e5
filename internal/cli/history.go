package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/pgxlate/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database   string
	Name       string
	FailedOnly bool
	Limit      int
}

// HistoryEntry is one journaled translation.
type HistoryEntry struct {
	ID          string   `json:"id"`
	Seq         int64    `json:"seq"`
	Name        string   `json:"name"`
	Input       string   `json:"input,omitempty"`
	SQL         string   `json:"sql,omitempty"`
	Parameters  []string `json:"parameters,omitempty"`
	Nullable    bool     `json:"nullable"`
	ErrorCode   string   `json:"error_code,omitempty"`
	Error       string   `json:"error,omitempty"`
	OptionsHash string   `json:"options_hash"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show journaled translations",
		Long: `Show the translations recorded by "pgxlate translate --db", oldest first.

Examples:
  pgxlate history --db ./pgxlate.db
  pgxlate history --db ./pgxlate.db --name nullable-equality
  pgxlate history --db ./pgxlate.db --failed --limit 10 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Name, "name", "", "only translations of this document")
	cmd.Flags().BoolVar(&opts.FailedOnly, "failed", false, "only failed translations")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "only the most recent N translations")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if opts.Limit < 0 {
		_ = formatter.Error(ErrCodeGeneric, "--limit must be non-negative", nil)
		return NewExitError(ExitCommandError, "--limit must be non-negative")
	}
	if _, err := os.Stat(opts.Database); errors.Is(err, fs.ErrNotExist) {
		return outputLoadError(formatter, &LoadError{Code: ErrCodeNotFound, Message: "database not found", Path: opts.Database})
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return outputCommandError(formatter, ErrCodeDatabase, "failed to open database", err)
	}
	defer st.Close()

	records, err := st.ReadHistory(ctx, store.HistoryFilter{
		Name:       opts.Name,
		FailedOnly: opts.FailedOnly,
		Limit:      opts.Limit,
	})
	if err != nil {
		return outputCommandError(formatter, ErrCodeDatabase, "failed to read history", err)
	}
	formatter.VerboseLog("%d record(s)", len(records))

	entries := make([]HistoryEntry, len(records))
	for i, r := range records {
		entries[i] = HistoryEntry{
			ID:          r.ID,
			Seq:         r.Seq,
			Name:        r.Name,
			Input:       r.Input,
			SQL:         r.SQL,
			Parameters:  r.Parameters,
			Nullable:    r.Nullable,
			ErrorCode:   r.ErrorCode,
			Error:       r.Error,
			OptionsHash: fmt.Sprintf("%016x", r.OptionsHash),
		}
	}

	if opts.Format == "json" {
		return formatter.Success(entries)
	}
	if len(entries) == 0 {
		fmt.Fprintln(formatter.Writer, "No translations found.")
		return nil
	}
	for _, e := range entries {
		if e.Error != "" {
			fmt.Fprintf(formatter.Writer, "[%d] %s: %s\n", e.Seq, e.Name, e.Error)
			continue
		}
		fmt.Fprintf(formatter.Writer, "[%d] %s: %s\n", e.Seq, e.Name, e.SQL)
	}
	return nil
}
