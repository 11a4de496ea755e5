// Package provider wires the translation pipeline together: one registry,
// factory and translator set built from an immutable options record, and a
// Translate call that runs null compensation and renders the result.
//
// The registry is built once in New and never mutated, so a Provider is safe
// for concurrent use. Every Translate call opens a "pgxlate.translate" span
// and records counters and a duration histogram.
package provider

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/roach88/pgxlate/internal/config"
	"github.com/roach88/pgxlate/internal/nullability"
	"github.com/roach88/pgxlate/internal/qerrors"
	"github.com/roach88/pgxlate/internal/sqlexpr"
	"github.com/roach88/pgxlate/internal/sqlfactory"
	"github.com/roach88/pgxlate/internal/sqlgen"
	"github.com/roach88/pgxlate/internal/translators"
	"github.com/roach88/pgxlate/internal/typemap"
)

const instrumentationName = "github.com/roach88/pgxlate/internal/provider"

// Provider translates expression trees under one set of options.
type Provider struct {
	options     config.Options
	registry    *typemap.Registry
	factory     *sqlfactory.Factory
	translators *translators.Translator
	generator   *sqlgen.Generator
	logger      *zap.Logger

	tracer       trace.Tracer
	translations metric.Int64Counter
	failures     metric.Int64Counter
	duration     metric.Float64Histogram
}

type settings struct {
	logger         *zap.Logger
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

// Option configures a Provider.
type Option func(*settings)

// WithLogger sets the logger passed down to every pipeline stage.
func WithLogger(l *zap.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithTracerProvider overrides the global tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *settings) {
		if tp != nil {
			s.tracerProvider = tp
		}
	}
}

// WithMeterProvider overrides the global meter provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *settings) {
		if mp != nil {
			s.meterProvider = mp
		}
	}
}

// New validates opts and builds the registry, factory and translators.
func New(opts config.Options, options ...Option) (*Provider, error) {
	s := settings{
		logger:         zap.NewNop(),
		tracerProvider: otel.GetTracerProvider(),
		meterProvider:  otel.GetMeterProvider(),
	}
	for _, o := range options {
		o(&s)
	}

	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	registry, err := typemap.NewRegistry(opts.RegistryOptions()...)
	if err != nil {
		return nil, fmt.Errorf("build type mapping registry: %w", err)
	}
	factory, err := sqlfactory.New(registry, append(opts.FactoryOptions(), sqlfactory.WithLogger(s.logger))...)
	if err != nil {
		return nil, fmt.Errorf("build expression factory: %w", err)
	}

	meter := s.meterProvider.Meter(instrumentationName)
	translations, err := meter.Int64Counter("pgxlate.translations",
		metric.WithDescription("Number of expression translations"),
	)
	if err != nil {
		return nil, err
	}
	failures, err := meter.Int64Counter("pgxlate.translation.failures",
		metric.WithDescription("Number of failed expression translations"),
	)
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram("pgxlate.translation.duration",
		metric.WithDescription("Duration of expression translation in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("provider initialized",
		zap.Stringer("postgres_version", opts.PostgresVersion()),
		zap.Bool("redshift", opts.Redshift()),
		zap.Int("mappings", len(registry.Mappings())),
		zap.Int("user_ranges", len(opts.UserRanges())))

	return &Provider{
		options:      opts,
		registry:     registry,
		factory:      factory,
		translators:  translators.New(factory, translators.WithLogger(s.logger)),
		generator:    sqlgen.New(),
		logger:       s.logger,
		tracer:       s.tracerProvider.Tracer(instrumentationName),
		translations: translations,
		failures:     failures,
		duration:     duration,
	}, nil
}

// Options returns the options the provider was built with.
func (p *Provider) Options() config.Options { return p.options }

// Registry returns the type-mapping registry.
func (p *Provider) Registry() *typemap.Registry { return p.registry }

// Factory returns the expression factory.
func (p *Provider) Factory() *sqlfactory.Factory { return p.factory }

// Translators returns the method and member translators.
func (p *Provider) Translators() *translators.Translator { return p.translators }

// Request is one expression to translate.
type Request struct {
	Expression sqlexpr.Expression

	// ParameterValues are the values parameters will be bound to. A
	// parameter absent from the map is treated as possibly null.
	ParameterValues map[string]any

	// AllowOptimizedExpansion states that a NULL result is treated like
	// false by the caller, as in a WHERE clause.
	AllowOptimizedExpansion bool
}

// Result is a translated expression.
type Result struct {
	// Expression is the tree after null compensation.
	Expression sqlexpr.Expression
	Nullable   bool
	SQL        string
	Parameters []string
}

// Translate compensates req.Expression for null semantics and renders it.
func (p *Provider) Translate(ctx context.Context, req Request) (Result, error) {
	if req.Expression == nil {
		return Result{}, fmt.Errorf("translate: nil expression")
	}
	kind := req.Expression.Kind().String()

	ctx, span := p.tracer.Start(ctx, "pgxlate.translate",
		trace.WithAttributes(
			attribute.String("pgxlate.expression.kind", kind),
			attribute.Bool("pgxlate.relational_nulls", p.options.RelationalNulls()),
			attribute.Bool("pgxlate.optimized", req.AllowOptimizedExpansion),
		),
	)
	defer span.End()

	start := time.Now()
	res, err := p.translate(req)
	elapsed := time.Since(start)

	attrs := metric.WithAttributes(attribute.String("kind", kind))
	p.translations.Add(ctx, 1, attrs)
	p.duration.Record(ctx, elapsed.Seconds(), attrs)

	if err != nil {
		code := string(qerrors.Code(err))
		p.failures.Add(ctx, 1, metric.WithAttributes(
			attribute.String("kind", kind),
			attribute.String("code", code),
		))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.logger.Debug("translation failed",
			zap.String("kind", kind),
			zap.String("code", code),
			zap.Error(err))
		return Result{}, err
	}

	span.SetAttributes(
		attribute.Bool("pgxlate.nullable", res.Nullable),
		attribute.Int("pgxlate.parameters", len(res.Parameters)),
	)
	span.SetStatus(codes.Ok, "")
	p.logger.Debug("translated expression",
		zap.String("kind", kind),
		zap.Bool("nullable", res.Nullable),
		zap.Duration("elapsed", elapsed))
	return res, nil
}

func (p *Provider) translate(req Request) (Result, error) {
	opts := append(p.options.ProcessorOptions(),
		nullability.WithParameterValues(req.ParameterValues),
		nullability.WithLogger(p.logger))
	processed, nullable, err := nullability.New(p.factory, opts...).
		Process(req.Expression, req.AllowOptimizedExpansion)
	if err != nil {
		return Result{}, err
	}

	rendered, err := p.generator.Generate(processed)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Expression: processed,
		Nullable:   nullable,
		SQL:        rendered.SQL,
		Parameters: rendered.Parameters,
	}, nil
}
