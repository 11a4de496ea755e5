package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pgxlate/internal/hosttype"
	"github.com/roach88/pgxlate/internal/sqlfactory"
	"github.com/roach88/pgxlate/internal/typemap"
)

var floatRange = typemap.UserRange{
	RangeName:   "floatrange",
	SchemaName:  "public",
	SubtypeName: "double precision",
	SubtypeClr:  hosttype.Float64,
}

func TestOptions_BuildersReturnCopies(t *testing.T) {
	base := Default()
	withRange := base.WithUserRangeDefinition(floatRange)
	withTwo := withRange.WithUserRangeDefinition(typemap.UserRange{RangeName: "other", SubtypeName: "integer"})

	assert.Empty(t, base.UserRanges())
	assert.Len(t, withRange.UserRanges(), 1)
	assert.Len(t, withTwo.UserRanges(), 2)

	relational := base.WithRelationalNulls(true)
	assert.False(t, base.RelationalNulls())
	assert.True(t, relational.RelationalNulls())
}

func TestOptions_Defaults(t *testing.T) {
	o := Default()

	assert.Equal(t, PostgresVersion{Major: 12}, o.PostgresVersion())
	_, explicit := o.ExplicitPostgresVersion()
	assert.False(t, explicit)
	assert.Equal(t, "postgres", o.AdminDatabase())
	assert.Equal(t, sqlfactory.PreferLeft, o.InferencePreference())
	assert.True(t, o.SupportsMultiranges())
}

func TestOptions_SupportsMultiranges(t *testing.T) {
	testCases := []struct {
		name string
		o    Options
		want bool
	}{
		{"unset", Default(), true},
		{"13", Default().WithPostgresVersion(PostgresVersion{Major: 13}), false},
		{"14", Default().WithPostgresVersion(PostgresVersion{Major: 14}), true},
		{"redshift", Default().WithRedshift(true), false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.o.SupportsMultiranges())
		})
	}
}

func TestOptions_EqualAndHash(t *testing.T) {
	a := Default().WithPostgresVersion(PostgresVersion{Major: 14}).WithUserRangeDefinition(floatRange)
	b := Default().WithUserRangeDefinition(floatRange).WithPostgresVersion(PostgresVersion{Major: 14})
	c := a.WithRelationalNulls(true)

	assert.True(t, a.Equal(b))
	assert.Equal(t, a.Hash(), b.Hash())
	assert.False(t, a.Equal(c))
	assert.NotEqual(t, a.Hash(), c.Hash())

	// The default admin database is the same as naming it.
	assert.True(t, Default().Equal(Default().WithAdminDatabase("postgres")))
	assert.Equal(t, Default().Hash(), Default().WithAdminDatabase("postgres").Hash())
}

func TestOptions_Validate(t *testing.T) {
	testCases := []struct {
		name    string
		o       Options
		wantErr bool
	}{
		{"default", Default(), false},
		{"redshift", Default().WithRedshift(true), false},
		{"redshift with version", Default().WithRedshift(true).WithPostgresVersion(PostgresVersion{Major: 13}), true},
		{"unnamed range", Default().WithUserRangeDefinition(typemap.UserRange{SubtypeName: "integer"}), true},
		{"range without subtype", Default().WithUserRangeDefinition(typemap.UserRange{RangeName: "r"}), true},
		{"duplicate range", Default().WithUserRangeDefinition(floatRange).WithUserRangeDefinition(floatRange), true},
		{
			"same name other schema",
			Default().WithUserRangeDefinition(floatRange).WithUserRangeDefinition(typemap.UserRange{RangeName: "floatrange", SubtypeName: "real"}),
			false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.o.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestOptions_RegistryOptionsBuildRegistry(t *testing.T) {
	o := Default().WithUserRangeDefinition(floatRange)

	r, err := typemap.NewRegistry(o.RegistryOptions()...)
	require.NoError(t, err)
	m := r.FindMappingByStoreType("public.floatrange")
	require.NotNil(t, m)
	assert.Equal(t, "double precision", m.SubtypeMapping().StoreType())

	f, err := sqlfactory.New(r, o.WithLegacyTimestampBehavior(true).FactoryOptions()...)
	require.NoError(t, err)
	assert.True(t, f.LegacyTimestamps())
}

func TestPostgresVersion(t *testing.T) {
	v, err := ParsePostgresVersion("14.2")
	require.NoError(t, err)
	assert.Equal(t, PostgresVersion{Major: 14, Minor: 2}, v)
	assert.True(t, v.AtLeast(14, 0))
	assert.True(t, v.AtLeast(13, 9))
	assert.False(t, v.AtLeast(14, 3))
	assert.False(t, v.AtLeast(15, 0))
	assert.Equal(t, "14.2", v.String())

	for _, bad := range []string{"", "x", "14.x", "-1", "0"} {
		_, err := ParsePostgresVersion(bad)
		assert.Error(t, err, bad)
	}

	fromNum, err := VersionFromNum(140002)
	require.NoError(t, err)
	assert.Equal(t, PostgresVersion{Major: 14, Minor: 2}, fromNum)

	old, err := VersionFromNum(90605)
	require.NoError(t, err)
	assert.Equal(t, PostgresVersion{Major: 9, Minor: 6}, old)

	_, err = VersionFromNum(70400)
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	want := Default().
		WithPostgresVersion(PostgresVersion{Major: 14, Minor: 2}).
		WithRelationalNulls(true).
		WithInferencePreference(sqlfactory.PreferRight).
		WithAdminDatabase("admin").
		WithUserRangeDefinition(floatRange)

	for _, name := range []string{"options.yaml", "options.cue"} {
		t.Run(name, func(t *testing.T) {
			o, err := Load(filepath.Join("testdata", name))
			require.NoError(t, err)
			assert.True(t, want.Equal(o), "got %+v", o)
		})
	}
}

func TestLoad_Errors(t *testing.T) {
	testCases := []string{
		"typo.yaml",
		"typo.cue",
		"bad_preference.cue",
		"redshift_with_version.yaml",
		"missing.yaml",
		"options.toml",
	}

	for _, name := range testCases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(filepath.Join("testdata", name))
			assert.Error(t, err)
		})
	}
}

func TestSingleton(t *testing.T) {
	var s Singleton
	_, ok := s.Options()
	assert.False(t, ok)

	first := Default().WithPostgresVersion(PostgresVersion{Major: 14})
	require.NoError(t, s.Record(first))
	require.NoError(t, s.Record(first))

	// Non-singleton settings may vary per translation.
	require.NoError(t, s.Record(first.WithRelationalNulls(true)))

	err := s.Record(first.WithPostgresVersion(PostgresVersion{Major: 15}))
	assert.True(t, errors.Is(err, ErrSingletonChanged))

	err = s.Record(first.WithUserRangeDefinition(floatRange))
	assert.True(t, errors.Is(err, ErrSingletonChanged))

	got, ok := s.Options()
	assert.True(t, ok)
	assert.True(t, got.Equal(first))
}

func TestMarshal_RoundTrips(t *testing.T) {
	o, err := Load(filepath.Join("testdata", "options.yaml"))
	require.NoError(t, err)

	data, err := Marshal(o)
	require.NoError(t, err)
	assert.Contains(t, string(data), "postgresVersion: \"14.2\"")

	path := filepath.Join(t.TempDir(), "options.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	back, err := Load(path)
	require.NoError(t, err)
	assert.True(t, o.Equal(back), "got %+v", back)
}

func TestMarshal_DefaultIsEmpty(t *testing.T) {
	data, err := Marshal(Default())
	require.NoError(t, err)
	assert.Equal(t, "{}\n", string(data))
}
