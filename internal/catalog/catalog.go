// Package catalog discovers server facts that shape the type-mapping
// registry: the PostgreSQL version and the user-defined range types.
//
// Discovery runs once, before the registry is built. Its result is an
// options record; the registry built from it is never mutated afterwards.
package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/roach88/pgxlate/internal/config"
	"github.com/roach88/pgxlate/internal/typemap"
)

// Querier is the subset of a pgx connection or pool discovery needs.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const (
	versionQuery = `SELECT current_setting('server_version_num')::int, version()`

	rangesQuery = `SELECT ns.nspname, rt.typname, format_type(r.rngsubtype, NULL)
FROM pg_range r
JOIN pg_type rt ON rt.oid = r.rngtypid
JOIN pg_namespace ns ON ns.oid = rt.typnamespace
WHERE ns.nspname NOT IN ('pg_catalog', 'information_schema')
ORDER BY ns.nspname, rt.typname`
)

// Discoverer reads catalog facts.
type Discoverer struct {
	logger *zap.Logger
}

// Option configures a Discoverer.
type Option func(*Discoverer)

// WithLogger sets the logger discovery is reported to.
func WithLogger(l *zap.Logger) Option {
	return func(d *Discoverer) {
		if l != nil {
			d.logger = l
		}
	}
}

// New creates a Discoverer.
func New(opts ...Option) *Discoverer {
	d := &Discoverer{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Discover extends base with the server version and every user range type
// whose subtype the registry can map. Ranges over unmappable subtypes are
// skipped. A Redshift base keeps no explicit version.
func (d *Discoverer) Discover(ctx context.Context, q Querier, base config.Options) (config.Options, error) {
	opts := base

	var (
		num     int
		banner  string
		version config.PostgresVersion
	)
	if err := q.QueryRow(ctx, versionQuery).Scan(&num, &banner); err != nil {
		return base, fmt.Errorf("query server version: %w", err)
	}
	switch {
	case base.Redshift() || strings.Contains(banner, "Redshift"):
		opts = opts.WithRedshift(true)
	default:
		v, err := config.VersionFromNum(num)
		if err != nil {
			return base, err
		}
		version = v
		opts = opts.WithPostgresVersion(v)
	}

	known, err := typemap.NewRegistry()
	if err != nil {
		return base, err
	}
	existing := make(map[string]bool)
	for _, r := range base.UserRanges() {
		existing[r.StoreType()] = true
	}

	rows, err := q.Query(ctx, rangesQuery)
	if err != nil {
		return base, fmt.Errorf("query range types: %w", err)
	}
	defer rows.Close()

	var found int
	for rows.Next() {
		var r typemap.UserRange
		if err := rows.Scan(&r.SchemaName, &r.RangeName, &r.SubtypeName); err != nil {
			return base, fmt.Errorf("scan range type: %w", err)
		}
		if r.SchemaName == "public" {
			r.SchemaName = ""
		}
		if existing[r.StoreType()] {
			continue
		}
		if known.FindMappingByStoreType(r.SubtypeName) == nil {
			d.logger.Warn("skipping range with unmapped subtype",
				zap.String("range", r.StoreType()),
				zap.String("subtype", r.SubtypeName))
			continue
		}
		existing[r.StoreType()] = true
		opts = opts.WithUserRangeDefinition(r)
		found++
	}
	if err := rows.Err(); err != nil {
		return base, fmt.Errorf("read range types: %w", err)
	}

	d.logger.Info("catalog discovered",
		zap.Stringer("postgres_version", version),
		zap.Bool("redshift", opts.Redshift()),
		zap.Int("user_ranges", found))
	return opts, opts.Validate()
}

// NormalizeDSN accepts a postgres:// URL or a keyword/value connection
// string and returns the keyword/value form.
func NormalizeDSN(dsn string) (string, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return "", fmt.Errorf("empty connection string")
	}
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		kv, err := pq.ParseURL(dsn)
		if err != nil {
			return "", fmt.Errorf("invalid connection URL: %w", err)
		}
		return kv, nil
	}
	if !strings.Contains(dsn, "=") {
		return "", fmt.Errorf("invalid connection string %q", dsn)
	}
	return dsn, nil
}

// Connect opens a pool for dsn.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	kv, err := NormalizeDSN(dsn)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.New(ctx, kv)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	return pool, nil
}
