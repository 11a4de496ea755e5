package typemap

import (
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pgxlate/internal/hosttype"
)

func TestGenerateSQLLiteral(t *testing.T) {
	r := newTestRegistry(t)
	ts := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	v := "v"

	testCases := []struct {
		name  string
		m     *Mapping
		value any
		want  string
	}{
		{"null", r.FindMapping(hosttype.Int32), nil, "NULL"},
		{"bool", r.FindMapping(hosttype.Bool), true, "TRUE"},
		{"int", r.FindMapping(hosttype.Int32), 42, "42"},
		{"real", r.FindMapping(hosttype.Float32), float32(1.5), "1.5::real"},
		{"double", r.FindMapping(hosttype.Float64), 2.25, "2.25"},
		{"numeric", r.FindMapping(hosttype.Decimal), "10.50", "10.50"},
		{"text", r.FindMapping(hosttype.String), "it's", "'it''s'"},
		{"text with backslash", r.FindMapping(hosttype.String), `a\b`, ` E'a\\b'`},
		{"bytea", r.FindMapping(hosttype.Bytes), []byte{0xde, 0xad}, `'\xDEAD'::bytea`},
		{"uuid", r.FindMapping(hosttype.UUID), "00000000-0000-0000-0000-000000000001", "'00000000-0000-0000-0000-000000000001'::uuid"},
		{"timestamptz", r.FindMapping(hosttype.DateTime), ts, "TIMESTAMPTZ '2024-03-01T12:30:00Z'"},
		{"timestamp", r.FindMapping(hosttype.LocalDateTime), ts, "TIMESTAMP '2024-03-01T12:30:00'"},
		{"date", r.FindMapping(hosttype.DateOnly), ts, "DATE '2024-03-01'"},
		{"time", r.FindMapping(hosttype.TimeOnly), 90*time.Minute + 1500*time.Millisecond, "TIME '01:30:01.5'"},
		{"interval", r.FindMapping(hosttype.TimeSpan), 26 * time.Hour, "INTERVAL '1 02:00:00'"},
		{"jsonb", r.FindMapping(hosttype.JSONDocument), map[string]any{"a": 1}, `'{"a":1}'`},
		{"hstore", r.FindMapping(hosttype.Hstore), map[string]*string{"k": &v, "n": nil}, `HSTORE '"k"=>"v","n"=>NULL'`},
		{"inet", r.FindMapping(hosttype.IPAddress), netip.MustParseAddr("10.0.0.1"), "INET '10.0.0.1'"},
		{"cidr", r.FindMapping(hosttype.Cidr), netip.MustParsePrefix("10.0.0.0/8"), "CIDR '10.0.0.0/8'"},
		{"tsquery", r.FindMapping(hosttype.TsQuery), "a & b", "TSQUERY 'a & b'"},
		{"int array", r.FindMapping(hosttype.ArrayOf(hosttype.NullableOf(hosttype.Int32))), []any{1, nil, 3}, "ARRAY[1,NULL,3]::integer[]"},
		{"empty array", r.FindMapping(hosttype.ArrayOf(hosttype.Int32)), []any{}, "'{}'::integer[]"},
		{"range", r.FindMapping(hosttype.RangeOf(hosttype.Int32)), Range{Lower: 1, Upper: 10, LowerInclusive: true}, "'[1,10)'::int4range"},
		{"empty range", r.FindMapping(hosttype.RangeOf(hosttype.Int32)), Range{Empty: true}, "'empty'::int4range"},
		{"unbounded range", r.FindMapping(hosttype.RangeOf(hosttype.Int32)), Range{Lower: 5, LowerInclusive: true, UpperInfinite: true}, "'[5,)'::int4range"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.NotNil(t, tc.m)
			got, err := tc.m.GenerateSQLLiteral(tc.value)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestGenerateSQLLiteral_TypeErrors(t *testing.T) {
	r := newTestRegistry(t)

	_, err := r.FindMapping(hosttype.Int32).GenerateSQLLiteral("nope")
	assert.Error(t, err)

	_, err = r.FindMapping(hosttype.ArrayOf(hosttype.Int32)).GenerateSQLLiteral(1)
	assert.Error(t, err)

	_, err = r.FindMapping(hosttype.Decimal).GenerateSQLLiteral("1.2.3")
	assert.Error(t, err)
}

func TestParseStoreType(t *testing.T) {
	testCases := []struct {
		in   string
		want string
	}{
		{"varchar(10)", "varchar(10)"},
		{"  Numeric( 10 , 2 ) ", "numeric(10,2)"},
		{"timestamp(6) without time zone", "timestamp(6) without time zone"},
		{"time(2) with time zone", "time(2) with time zone"},
		{"int4[]", "int4[]"},
		{"bit varying(8)", "bit varying(8)"},
	}

	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			n, err := parseStoreType(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, n.String())
		})
	}

	for _, bad := range []string{"", "varchar(10", "numeric(1,2,3)", "varchar(-1)"} {
		_, err := parseStoreType(bad)
		assert.Error(t, err, bad)
	}
}
