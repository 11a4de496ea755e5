// Package config holds the provider options.
//
// Options is an immutable value: every With* builder returns a modified
// copy and leaves the receiver untouched, so one Options can be shared by
// any number of translations. Options that shape the type-mapping registry
// are singleton options; see Singleton.
package config

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/roach88/pgxlate/internal/nullability"
	"github.com/roach88/pgxlate/internal/sqlfactory"
	"github.com/roach88/pgxlate/internal/typemap"
)

// Options configures translation.
type Options struct {
	postgresVersion     PostgresVersion
	redshift            bool
	reverseNullOrdering bool
	relationalNulls     bool
	userRanges          []typemap.UserRange
	adminDatabase       string
	inferencePreference sqlfactory.InferencePreference
	legacyTimestamps    bool
}

// Default returns the default options.
func Default() Options { return Options{} }

// WithPostgresVersion targets a specific server version.
func (o Options) WithPostgresVersion(v PostgresVersion) Options {
	o.postgresVersion = v
	return o
}

// WithRedshift targets Amazon Redshift.
func (o Options) WithRedshift(enabled bool) Options {
	o.redshift = enabled
	return o
}

// WithReverseNullOrdering sorts NULLs first in ascending order.
func (o Options) WithReverseNullOrdering(enabled bool) Options {
	o.reverseNullOrdering = enabled
	return o
}

// WithRelationalNulls disables null compensation.
func (o Options) WithRelationalNulls(enabled bool) Options {
	o.relationalNulls = enabled
	return o
}

// WithUserRangeDefinition registers a user-defined range type.
func (o Options) WithUserRangeDefinition(r typemap.UserRange) Options {
	o.userRanges = append(slices.Clone(o.userRanges), r)
	return o
}

// WithAdminDatabase sets the database administrative commands connect to.
func (o Options) WithAdminDatabase(name string) Options {
	o.adminDatabase = name
	return o
}

// WithInferencePreference sets the tie-break between disagreeing operand
// mappings.
func (o Options) WithInferencePreference(p sqlfactory.InferencePreference) Options {
	o.inferencePreference = p
	return o
}

// WithLegacyTimestampBehavior allows mixing timestamp and timestamptz.
func (o Options) WithLegacyTimestampBehavior(enabled bool) Options {
	o.legacyTimestamps = enabled
	return o
}

// PostgresVersion returns the configured version, or the default.
func (o Options) PostgresVersion() PostgresVersion {
	if o.postgresVersion.IsZero() {
		return DefaultPostgresVersion
	}
	return o.postgresVersion
}

// ExplicitPostgresVersion returns the version only when one was configured.
func (o Options) ExplicitPostgresVersion() (PostgresVersion, bool) {
	return o.postgresVersion, !o.postgresVersion.IsZero()
}

func (o Options) Redshift() bool                                      { return o.redshift }
func (o Options) ReverseNullOrdering() bool                           { return o.reverseNullOrdering }
func (o Options) RelationalNulls() bool                               { return o.relationalNulls }
func (o Options) InferencePreference() sqlfactory.InferencePreference { return o.inferencePreference }
func (o Options) LegacyTimestampBehavior() bool                       { return o.legacyTimestamps }

// AdminDatabase returns the administrative database, "postgres" by default.
func (o Options) AdminDatabase() string {
	if o.adminDatabase == "" {
		return "postgres"
	}
	return o.adminDatabase
}

// UserRanges returns a copy of the user-defined ranges.
func (o Options) UserRanges() []typemap.UserRange { return slices.Clone(o.userRanges) }

// SupportsMultiranges reports whether multirange types exist on the target.
// Without an explicit version the newest server is assumed.
func (o Options) SupportsMultiranges() bool {
	v, ok := o.ExplicitPostgresVersion()
	return !o.redshift && (!ok || v.AtLeast(14, 0))
}

// Validate checks the options for contradictions.
func (o Options) Validate() error {
	if o.redshift && !o.postgresVersion.IsZero() {
		return fmt.Errorf("redshift and an explicit PostgreSQL version (%s) are mutually exclusive", o.postgresVersion)
	}
	seen := make(map[string]bool, len(o.userRanges))
	for _, r := range o.userRanges {
		if r.RangeName == "" {
			return fmt.Errorf("user range without a name")
		}
		if r.SubtypeName == "" && r.SubtypeClr == nil {
			return fmt.Errorf("user range %s: needs a subtype name or host type", r.StoreType())
		}
		if seen[r.StoreType()] {
			return fmt.Errorf("user range %s defined twice", r.StoreType())
		}
		seen[r.StoreType()] = true
	}
	return nil
}

// Equal reports whether o and other configure the same behavior.
func (o Options) Equal(other Options) bool {
	return o.postgresVersion == other.postgresVersion &&
		o.redshift == other.redshift &&
		o.reverseNullOrdering == other.reverseNullOrdering &&
		o.relationalNulls == other.relationalNulls &&
		slices.Equal(o.userRanges, other.userRanges) &&
		o.AdminDatabase() == other.AdminDatabase() &&
		o.inferencePreference == other.inferencePreference &&
		o.legacyTimestamps == other.legacyTimestamps
}

// Hash returns a hash consistent with Equal.
func (o Options) Hash() uint64 {
	d := xxhash.New()
	write := func(s string) {
		_, _ = d.WriteString(s)
		_, _ = d.Write([]byte{0})
	}
	write(o.postgresVersion.String())
	write(strconv.FormatBool(o.redshift))
	write(strconv.FormatBool(o.reverseNullOrdering))
	write(strconv.FormatBool(o.relationalNulls))
	for _, r := range o.userRanges {
		write(r.StoreType())
		write(r.SubtypeName)
		if r.SubtypeClr != nil {
			write(r.SubtypeClr.String())
		}
	}
	write(o.AdminDatabase())
	write(o.inferencePreference.String())
	write(strconv.FormatBool(o.legacyTimestamps))
	return d.Sum64()
}

// RegistryOptions returns the registry configuration these options imply.
func (o Options) RegistryOptions() []typemap.RegistryOption {
	return []typemap.RegistryOption{
		typemap.WithUserRanges(o.userRanges...),
		typemap.WithMultiranges(o.SupportsMultiranges()),
	}
}

// FactoryOptions returns the expression factory configuration.
func (o Options) FactoryOptions() []sqlfactory.Option {
	return []sqlfactory.Option{
		sqlfactory.WithInferencePreference(o.inferencePreference),
		sqlfactory.WithLegacyTimestampBehavior(o.legacyTimestamps),
	}
}

// ProcessorOptions returns the nullability processor configuration.
func (o Options) ProcessorOptions() []nullability.Option {
	return []nullability.Option{nullability.WithRelationalNulls(o.relationalNulls)}
}
