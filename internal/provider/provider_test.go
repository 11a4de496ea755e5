package provider_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	otelcodes "go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/roach88/pgxlate/internal/config"
	"github.com/roach88/pgxlate/internal/hosttype"
	"github.com/roach88/pgxlate/internal/provider"
	"github.com/roach88/pgxlate/internal/qerrors"
	"github.com/roach88/pgxlate/internal/sqlexpr"
	"github.com/roach88/pgxlate/internal/testutil"
	"github.com/roach88/pgxlate/internal/typemap"
)

type fixture struct {
	p      *provider.Provider
	spans  *tracetest.SpanRecorder
	reader *sdkmetric.ManualReader
}

func newFixture(t *testing.T, opts config.Options) *fixture {
	t.Helper()
	spans := tracetest.NewSpanRecorder()
	reader := sdkmetric.NewManualReader()
	p, err := provider.New(opts,
		provider.WithTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))),
		provider.WithMeterProvider(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))),
	)
	require.NoError(t, err)
	return &fixture{p: p, spans: spans, reader: reader}
}

func (fx *fixture) counter(t *testing.T, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, fx.reader.Collect(context.Background(), &rm))
	var total int64
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "metric %s is not an int64 sum", name)
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	return total
}

func nullableEquality(t *testing.T, p *provider.Provider) sqlexpr.Expression {
	t.Helper()
	f := p.Factory()
	a := testutil.Column(t, f, "a", hosttype.NullableOf(hosttype.Int32), true)
	b := testutil.Column(t, f, "b", hosttype.NullableOf(hosttype.Int32), true)
	return testutil.Must(f.Equal(a, b))
}

func TestTranslate_NullCompensation(t *testing.T) {
	tests := []struct {
		name      string
		opts      config.Options
		optimized bool
		want      string
	}{
		{
			name: "full expansion",
			opts: config.Default(),
			want: "(t.a = t.b AND t.a IS NOT NULL AND t.b IS NOT NULL) OR (t.a IS NULL AND t.b IS NULL)",
		},
		{
			name:      "optimized expansion",
			opts:      config.Default(),
			optimized: true,
			want:      "t.a = t.b OR (t.a IS NULL AND t.b IS NULL)",
		},
		{
			name: "relational nulls",
			opts: config.Default().WithRelationalNulls(true),
			want: "t.a = t.b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture(t, tt.opts)
			res, err := fx.p.Translate(context.Background(), provider.Request{
				Expression:              nullableEquality(t, fx.p),
				AllowOptimizedExpansion: tt.optimized,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.SQL)
			assert.Empty(t, res.Parameters)
		})
	}
}

func TestTranslate_BoundParameter(t *testing.T) {
	fx := newFixture(t, config.Default())
	f := fx.p.Factory()
	a := testutil.Column(t, f, "a", hosttype.Int32, false)
	eq := testutil.Must(f.Equal(a, f.Parameter("p", hosttype.Int32, nil)))

	res, err := fx.p.Translate(context.Background(), provider.Request{
		Expression:      eq,
		ParameterValues: map[string]any{"p": 5},
	})
	require.NoError(t, err)
	assert.Equal(t, "t.a = $1", res.SQL)
	assert.Equal(t, []string{"p"}, res.Parameters)
	assert.False(t, res.Nullable)
}

func TestTranslate_RecordsSpanAndMetrics(t *testing.T) {
	fx := newFixture(t, config.Default())

	res, err := fx.p.Translate(context.Background(), provider.Request{Expression: nullableEquality(t, fx.p)})
	require.NoError(t, err)
	assert.False(t, res.Nullable)

	ended := fx.spans.Ended()
	require.Len(t, ended, 1)
	span := ended[0]
	assert.Equal(t, "pgxlate.translate", span.Name())
	assert.Equal(t, otelcodes.Ok, span.Status().Code)

	attrs := make(map[string]string)
	for _, kv := range span.Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "Binary", attrs["pgxlate.expression.kind"])
	assert.Equal(t, "false", attrs["pgxlate.relational_nulls"])
	assert.Equal(t, "false", attrs["pgxlate.nullable"])

	assert.Equal(t, int64(1), fx.counter(t, "pgxlate.translations"))
	assert.Equal(t, int64(0), fx.counter(t, "pgxlate.translation.failures"))
}

func TestTranslate_FailureIsRecorded(t *testing.T) {
	fx := newFixture(t, config.Default())

	_, err := fx.p.Translate(context.Background(), provider.Request{
		Expression: sqlexpr.NewConstant(1, hosttype.Int32, nil),
	})
	require.Error(t, err)
	assert.True(t, qerrors.IsUnresolvedTypeMapping(err))

	ended := fx.spans.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, otelcodes.Error, ended[0].Status().Code)
	assert.NotEmpty(t, ended[0].Events(), "error should be recorded as a span event")

	assert.Equal(t, int64(1), fx.counter(t, "pgxlate.translations"))
	assert.Equal(t, int64(1), fx.counter(t, "pgxlate.translation.failures"))
}

func TestTranslate_NilExpression(t *testing.T) {
	fx := newFixture(t, config.Default())
	_, err := fx.p.Translate(context.Background(), provider.Request{})
	require.Error(t, err)
	assert.Empty(t, fx.spans.Ended())
}

func TestNew_RejectsInvalidOptions(t *testing.T) {
	opts := config.Default().
		WithRedshift(true).
		WithPostgresVersion(config.PostgresVersion{Major: 14})
	_, err := provider.New(opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid options")
}

func TestNew_UserRangesReachRegistry(t *testing.T) {
	opts := config.Default().WithUserRangeDefinition(typemap.UserRange{
		RangeName:   "floatrange",
		SchemaName:  "public",
		SubtypeName: "double precision",
		SubtypeClr:  hosttype.Float64,
	})
	fx := newFixture(t, opts)

	m := fx.p.Registry().FindMappingByStoreType("public.floatrange")
	require.NotNil(t, m)
	assert.True(t, opts.Equal(fx.p.Options()))
	assert.NotEmpty(t, fx.p.Translators().Methods())
}
