package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/pgxlate/internal/harness"
	"github.com/roach88/pgxlate/internal/provider"
	"github.com/roach88/pgxlate/internal/store"
)

// TranslateOptions holds flags for the translate command.
type TranslateOptions struct {
	*RootOptions
	Database  string // journal database, optional
	Optimized bool   // allow optimized expansion for every document

	// IDGenerator and Sequencer override the journal defaults (for testing).
	IDGenerator store.IDGenerator
	Sequencer   store.Sequencer
}

// TranslatedDocument is the outcome of one document.
type TranslatedDocument struct {
	Path string `json:"path"`
	harness.Outcome
}

// TranslateResult holds the overall translate result.
type TranslateResult struct {
	Documents []TranslatedDocument `json:"documents"`
	Passed    int                  `json:"passed"`
	Failed    int                  `json:"failed"`
	Total     int                  `json:"total"`
}

// NewTranslateCommand creates the translate command.
func NewTranslateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TranslateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "translate <document|dir>...",
		Short: "Translate expression documents to SQL",
		Long: `Translate expression documents (YAML or CUE) into PostgreSQL SQL.

Each document is built into a typed expression tree, rewritten for
three-valued null semantics and rendered as SQL with its parameter list.
With --db every outcome is appended to a SQLite journal that the history
command reads back.

Exit codes:
  0 - All documents translated
  1 - One or more documents failed to translate
  2 - Command error (unreadable documents, bad options, database error)

Examples:
  pgxlate translate ./exprs/equality.yaml
  pgxlate translate --config pg12.yaml ./exprs
  pgxlate translate --db ./pgxlate.db --format json ./exprs`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranslate(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal database")
	cmd.Flags().BoolVar(&opts.Optimized, "optimized", false, "allow optimized null expansion for every document")

	return cmd
}

func runTranslate(opts *TranslateOptions, paths []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	logger := opts.logger()
	defer func() { _ = logger.Sync() }()

	docs, loadErrs := LoadDocuments(paths, LoadModeFailFast)
	if len(loadErrs) > 0 {
		return outputLoadError(formatter, loadErrs[0])
	}
	formatter.VerboseLog("Loaded %d document(s)", len(docs))

	options, err := opts.options()
	if err != nil {
		return outputLoadError(formatter, err)
	}
	p, err := provider.New(options, provider.WithLogger(logger))
	if err != nil {
		return outputCommandError(formatter, ErrCodeConfig, "failed to create provider", err)
	}

	hopts := []harness.Option{harness.WithLogger(logger)}
	if opts.Database != "" {
		st, err := store.Open(opts.Database)
		if err != nil {
			return outputCommandError(formatter, ErrCodeDatabase, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", zap.Error(closeErr))
			}
		}()

		j, err := store.NewJournal(ctx, st, opts.journalOptions()...)
		if err != nil {
			return outputCommandError(formatter, ErrCodeDatabase, "failed to open journal", err)
		}
		hopts = append(hopts, harness.WithJournal(j))
	}
	h := harness.New(p, hopts...)

	result := TranslateResult{
		Documents: make([]TranslatedDocument, 0, len(docs)),
		Total:     len(docs),
	}
	for _, d := range docs {
		if opts.Optimized {
			d.Document.Optimized = true
		}
		out, err := h.Translate(ctx, d.Document)
		if err != nil {
			return outputCommandError(formatter, ErrCodeDatabase, "failed to journal translation", err)
		}
		result.Documents = append(result.Documents, TranslatedDocument{Path: d.Path, Outcome: out})
		if out.Failed() {
			result.Failed++
		} else {
			result.Passed++
		}
	}

	if opts.Format == "json" {
		return outputTranslateJSON(formatter.Writer, result)
	}
	return outputTranslateText(formatter.Writer, result)
}

func (o *TranslateOptions) journalOptions() []store.JournalOption {
	var jopts []store.JournalOption
	if o.IDGenerator != nil {
		jopts = append(jopts, store.WithIDGenerator(o.IDGenerator))
	}
	if o.Sequencer != nil {
		jopts = append(jopts, store.WithSequencer(o.Sequencer))
	}
	return jopts
}

func outputTranslateJSON(w io.Writer, result TranslateResult) error {
	response := CLIResponse{Status: "ok", Data: result}
	if result.Failed > 0 {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    ErrCodeTranslation,
			Message: fmt.Sprintf("%d document(s) failed to translate", result.Failed),
		}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(response); err != nil {
		return err
	}
	return translateExit(result)
}

func outputTranslateText(w io.Writer, result TranslateResult) error {
	for _, d := range result.Documents {
		if d.Failed() {
			fmt.Fprintf(w, "✗ %s (%s)\n", d.Name, d.Path)
			fmt.Fprintf(w, "  %s\n", d.Error)
			continue
		}
		fmt.Fprintf(w, "✓ %s\n", d.Name)
		fmt.Fprintf(w, "  %s\n", d.SQL)
		for i, name := range d.Parameters {
			fmt.Fprintf(w, "  $%d = @%s\n", i+1, name)
		}
		fmt.Fprintf(w, "  nullable: %t\n", d.Nullable)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Translate Summary: %d translated, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
	return translateExit(result)
}

func translateExit(result TranslateResult) error {
	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d document(s) failed to translate", result.Failed))
	}
	return nil
}

// outputLoadError reports a LoadError (or any error) as a command error.
func outputLoadError(formatter *OutputFormatter, err error) error {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		msg := loadErr.Message
		if loadErr.Path != "" {
			msg = loadErr.Path + ": " + msg
		}
		_ = formatter.Error(loadErr.Code, msg, nil)
		return WrapExitError(ExitCommandError, loadErr.Code, err)
	}
	_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
	return WrapExitError(ExitCommandError, ErrCodeGeneric, err)
}

// outputCommandError reports err under code and returns a command error.
func outputCommandError(formatter *OutputFormatter, code, message string, err error) error {
	_ = formatter.Error(code, fmt.Sprintf("%s: %v", message, err), nil)
	return WrapExitError(ExitCommandError, message, err)
}
