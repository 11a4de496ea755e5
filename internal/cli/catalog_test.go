package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pgxlate/internal/config"
	"github.com/roach88/pgxlate/internal/hosttype"
	"github.com/roach88/pgxlate/internal/typemap"
)

func TestCatalog_NoConnectionString(t *testing.T) {
	t.Setenv("PGXLATE_DSN", "")
	out, err := execute(t, "catalog")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "set --dsn or PGXLATE_DSN")
}

func TestCatalog_InvalidConnectionString(t *testing.T) {
	out, err := execute(t, "catalog", "--dsn", "not a dsn")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E008]: failed to connect")
}

func TestCatalogResult(t *testing.T) {
	o := config.Default().
		WithPostgresVersion(config.PostgresVersion{Major: 15}).
		WithUserRangeDefinition(typemap.UserRange{RangeName: "floatrange", SubtypeName: "double precision", SubtypeClr: hosttype.Float64})

	r := catalogResult(o)
	assert.Equal(t, CatalogResult{
		PostgresVersion: "15.0",
		UserRanges:      []string{"floatrange(double precision)"},
	}, r)

	assert.Equal(t, CatalogResult{Redshift: true, UserRanges: []string{}}, catalogResult(config.Default().WithRedshift(true)))
}
