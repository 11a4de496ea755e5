package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/pgxlate/internal/config"
	"github.com/roach88/pgxlate/internal/provider"
)

// ValidationError is one problem found in an options file.
type ValidationError struct {
	File    string `json:"file"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Files  int               `json:"files"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <options-file>...",
		Short: "Validate provider options files",
		Long: `Validate provider options files (YAML or CUE) without translating anything.

Each file is parsed, checked for unknown keys and used to build a
type-mapping registry. When several files are given they must agree on
every registry-shaping setting (server version, Redshift, null ordering,
user ranges), since one registry serves every translation.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, files []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	var (
		singleton config.Singleton
		errs      []ValidationError
	)
	for _, file := range files {
		formatter.VerboseLog("Validating %s", file)

		o, err := config.Load(file)
		if err != nil {
			errs = append(errs, ValidationError{File: file, Code: ErrCodeConfig, Message: err.Error()})
			continue
		}
		if _, err := provider.New(o); err != nil {
			errs = append(errs, ValidationError{File: file, Code: ErrCodeConfig, Message: err.Error()})
			continue
		}
		if err := singleton.Record(o); err != nil {
			code := ErrCodeGeneric
			if errors.Is(err, config.ErrSingletonChanged) {
				code = ErrCodeOptionsDiffer
			}
			errs = append(errs, ValidationError{File: file, Code: code, Message: err.Error()})
		}
	}

	if len(errs) > 0 {
		return outputValidationErrors(formatter, len(files), errs)
	}
	return outputValidateSuccess(formatter, len(files))
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, files int) error {
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Files: files})
	}

	fmt.Fprintf(formatter.Writer, "✓ %d options file(s) valid\n", files)
	return nil
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, files int, errs []ValidationError) error {
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Files: files, Errors: errs},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, err := range errs {
		fmt.Fprintf(formatter.Writer, "%s\n", err.File)
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", err.Code, err.Message)
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
