package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/pgxlate/internal/hosttype"
	"github.com/roach88/pgxlate/internal/sqlexpr"
	"github.com/roach88/pgxlate/internal/sqlfactory"
	"github.com/roach88/pgxlate/internal/typemap"
)

// NewRegistry builds a type-mapping registry, failing the test on error.
func NewRegistry(t testing.TB, opts ...typemap.RegistryOption) *typemap.Registry {
	t.Helper()
	r, err := typemap.NewRegistry(opts...)
	require.NoError(t, err)
	return r
}

// NewFactory builds an expression factory over a default registry.
func NewFactory(t testing.TB, opts ...sqlfactory.Option) *sqlfactory.Factory {
	t.Helper()
	f, err := sqlfactory.New(NewRegistry(t), opts...)
	require.NoError(t, err)
	return f
}

// Column builds a mapped column of table "t".
func Column(t testing.TB, f *sqlfactory.Factory, name string, typ *hosttype.Type, nullable bool) *sqlexpr.Column {
	t.Helper()
	c, err := f.Column("t", name, typ, nullable, nil)
	require.NoError(t, err)
	return c
}

// Must unwraps a factory result and panics on error, so construction can
// be nested inside table literals.
func Must[E sqlexpr.Expression](e E, err error) E {
	if err != nil {
		panic(err)
	}
	return e
}
