package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/pgxlate/internal/catalog"
	"github.com/roach88/pgxlate/internal/config"
)

// CatalogOptions holds flags for the catalog command.
type CatalogOptions struct {
	*RootOptions
	DSN    string
	Output string // write discovered options here
}

// CatalogResult is the discovered server configuration.
type CatalogResult struct {
	PostgresVersion string   `json:"postgres_version,omitempty"`
	Redshift        bool     `json:"redshift"`
	UserRanges      []string `json:"user_ranges"`
	Output          string   `json:"output,omitempty"`
}

// NewCatalogCommand creates the catalog command.
func NewCatalogCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CatalogOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Discover server version and range types",
		Long: `Connect to a PostgreSQL server and discover the facts that shape the
type-mapping registry: the server version and user-defined range types.

The discovered settings extend the --config options. With --output they
are written as an options file usable with --config.

The connection string may be a postgres:// URL or keyword/value pairs and
defaults to $PGXLATE_DSN.

Examples:
  pgxlate catalog --dsn postgres://localhost/app
  pgxlate catalog --dsn "host=localhost dbname=app" --output app.yaml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCatalog(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DSN, "dsn", os.Getenv("PGXLATE_DSN"), "PostgreSQL connection string")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write discovered options to this file")

	return cmd
}

func runCatalog(opts *CatalogOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if opts.DSN == "" {
		_ = formatter.Error(ErrCodeGeneric, "no connection string: set --dsn or PGXLATE_DSN", nil)
		return NewExitError(ExitCommandError, "no connection string")
	}
	base, err := opts.options()
	if err != nil {
		return outputLoadError(formatter, err)
	}

	pool, err := catalog.Connect(ctx, opts.DSN)
	if err != nil {
		return outputCommandError(formatter, ErrCodeDatabase, "failed to connect", err)
	}
	defer pool.Close()

	logger := opts.logger()
	defer func() { _ = logger.Sync() }()
	discovered, err := catalog.New(catalog.WithLogger(logger)).Discover(ctx, pool, base)
	if err != nil {
		return outputCommandError(formatter, ErrCodeDatabase, "catalog discovery failed", err)
	}

	result := catalogResult(discovered)
	if opts.Output != "" {
		data, err := config.Marshal(discovered)
		if err != nil {
			return outputCommandError(formatter, ErrCodeWriteFailed, "failed to render options", err)
		}
		if err := os.WriteFile(opts.Output, data, 0o644); err != nil {
			return outputCommandError(formatter, ErrCodeWriteFailed, "failed to write options", err)
		}
		result.Output = opts.Output
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}
	outputCatalogText(formatter, result)
	return nil
}

func catalogResult(o config.Options) CatalogResult {
	r := CatalogResult{Redshift: o.Redshift(), UserRanges: []string{}}
	if v, ok := o.ExplicitPostgresVersion(); ok {
		r.PostgresVersion = v.String()
	}
	for _, u := range o.UserRanges() {
		r.UserRanges = append(r.UserRanges, fmt.Sprintf("%s(%s)", u.StoreType(), u.SubtypeName))
	}
	return r
}

func outputCatalogText(formatter *OutputFormatter, r CatalogResult) {
	w := formatter.Writer
	switch {
	case r.Redshift:
		fmt.Fprintln(w, "server: Redshift")
	case r.PostgresVersion != "":
		fmt.Fprintf(w, "server: PostgreSQL %s\n", r.PostgresVersion)
	}
	fmt.Fprintf(w, "user ranges: %d\n", len(r.UserRanges))
	for _, u := range r.UserRanges {
		fmt.Fprintf(w, "  %s\n", u)
	}
	if r.Output != "" {
		fmt.Fprintf(w, "✓ options written to %s\n", r.Output)
	}
}
