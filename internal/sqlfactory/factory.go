// Package sqlfactory constructs SQL expression nodes and resolves their type
// mappings.
//
// Every constructor returns a node whose mapping has been inferred from its
// operands, the mapping passed in by the caller, or the registry default for
// its host type, in that order of precedence per node kind. Inference that
// cannot resolve a store type is an error, never a silent default.
package sqlfactory

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/roach88/pgxlate/internal/hosttype"
	"github.com/roach88/pgxlate/internal/qerrors"
	"github.com/roach88/pgxlate/internal/sqlexpr"
	"github.com/roach88/pgxlate/internal/typemap"
)

// InferencePreference decides which operand's mapping wins when both sides
// of a same-type inference already carry mappings that disagree.
type InferencePreference uint8

const (
	// PreferLeft takes the left operand's mapping, matching the order SQL is
	// rendered in.
	PreferLeft InferencePreference = iota
	PreferRight
)

func (p InferencePreference) String() string {
	if p == PreferRight {
		return "right"
	}
	return "left"
}

// ParseInferencePreference parses "left" or "right".
func ParseInferencePreference(s string) (InferencePreference, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "left":
		return PreferLeft, nil
	case "right":
		return PreferRight, nil
	default:
		return 0, fmt.Errorf("invalid inference preference %q (want left or right)", s)
	}
}

// Factory builds typed expressions against a mapping source. It holds no
// mutable state and is safe for concurrent use.
type Factory struct {
	source           typemap.Source
	boolMapping      *typemap.Mapping
	doubleMapping    *typemap.Mapping
	textMapping      *typemap.Mapping
	intMapping       *typemap.Mapping
	preference       InferencePreference
	legacyTimestamps bool
	logger           *zap.Logger
}

// Option configures a Factory.
type Option func(*Factory)

// WithInferencePreference sets the tie-break between disagreeing operands.
// Default: PreferLeft.
func WithInferencePreference(p InferencePreference) Option {
	return func(f *Factory) {
		f.preference = p
	}
}

// WithLegacyTimestampBehavior allows mixing timestamp and timestamptz
// operands in one operation.
func WithLegacyTimestampBehavior(enabled bool) Option {
	return func(f *Factory) {
		f.legacyTimestamps = enabled
	}
}

// WithLogger sets the logger inference decisions are reported to.
func WithLogger(l *zap.Logger) Option {
	return func(f *Factory) {
		if l != nil {
			f.logger = l
		}
	}
}

// New creates a Factory over source. The source must map bool, double,
// string and int.
func New(source typemap.Source, opts ...Option) (*Factory, error) {
	if source == nil {
		return nil, fmt.Errorf("sqlfactory: nil mapping source")
	}
	f := &Factory{
		source:        source,
		boolMapping:   source.FindMapping(hosttype.Bool),
		doubleMapping: source.FindMapping(hosttype.Float64),
		textMapping:   source.FindMapping(hosttype.String),
		intMapping:    source.FindMapping(hosttype.Int32),
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}

	for name, m := range map[string]*typemap.Mapping{
		"bool":   f.boolMapping,
		"double": f.doubleMapping,
		"string": f.textMapping,
		"int":    f.intMapping,
	} {
		if m == nil {
			return nil, qerrors.NewUnresolvedTypeMappingError("factory default", name)
		}
	}
	return f, nil
}

// Source returns the mapping source the factory resolves against.
func (f *Factory) Source() typemap.Source { return f.source }

// BoolMapping returns the mapping used for boolean results.
func (f *Factory) BoolMapping() *typemap.Mapping { return f.boolMapping }

// LegacyTimestamps reports whether timestamp mixing is allowed.
func (f *Factory) LegacyTimestamps() bool { return f.legacyTimestamps }

// InferTypeMapping returns the mapping shared operands resolve to, or nil
// when none of them carries one.
func (f *Factory) InferTypeMapping(exprs ...sqlexpr.Expression) *typemap.Mapping {
	return f.inferTypeMapping(exprs...)
}

// inferTypeMapping returns the first mapping carried by exprs in preference
// order. Nil expressions are skipped.
func (f *Factory) inferTypeMapping(exprs ...sqlexpr.Expression) *typemap.Mapping {
	var chosen *typemap.Mapping
	visit := func(e sqlexpr.Expression) {
		if e == nil || e.TypeMapping() == nil {
			return
		}
		m := e.TypeMapping()
		if chosen == nil {
			chosen = m
			return
		}
		if !chosen.Equal(m) {
			f.logger.Debug("operand type mappings disagree",
				zap.String("chosen", chosen.StoreType()),
				zap.String("other", m.StoreType()),
				zap.Stringer("preference", f.preference))
		}
	}

	if f.preference == PreferRight {
		for i := len(exprs) - 1; i >= 0; i-- {
			visit(exprs[i])
		}
	} else {
		for _, e := range exprs {
			visit(e)
		}
	}
	return chosen
}

// ApplyDefaultTypeMapping resolves e with the registry's default mapping
// for its host type when it carries none.
func (f *Factory) ApplyDefaultTypeMapping(e sqlexpr.Expression) (sqlexpr.Expression, error) {
	if e == nil || e.TypeMapping() != nil {
		return e, nil
	}
	return f.ApplyTypeMapping(e, f.source.FindMapping(e.Type()))
}

// ApplyTypeMapping resolves an unmapped e, using m as the mapping the
// surrounding context expects. Nodes that already carry a mapping are
// returned unchanged, but applying a timestamp mapping to a timestamptz node
// (or the reverse) is a MIXED_TIMESTAMP error.
func (f *Factory) ApplyTypeMapping(e sqlexpr.Expression, m *typemap.Mapping) (sqlexpr.Expression, error) {
	if e == nil {
		return nil, nil
	}
	if e.TypeMapping() == nil {
		var err error
		if e, err = f.applyTypeMapping(e, m); err != nil {
			return nil, err
		}
	}

	if !f.legacyTimestamps && m != nil {
		if got := e.TypeMapping(); got != nil &&
			(m.IsTimestamp() && got.IsTimestampTz() || m.IsTimestampTz() && got.IsTimestamp()) {
			return nil, qerrors.NewMixedTimestampError()
		}
	}
	return e, nil
}

func (f *Factory) applyTypeMapping(e sqlexpr.Expression, m *typemap.Mapping) (sqlexpr.Expression, error) {
	switch x := e.(type) {
	case *sqlexpr.Column, *sqlexpr.Constant, *sqlexpr.Parameter,
		*sqlexpr.Function, *sqlexpr.JsonTraversal, *sqlexpr.UnknownBinary:
		return sqlexpr.WithTypeMapping(e, m), nil
	case *sqlexpr.Unary:
		return f.applyOnUnary(x, m)
	case *sqlexpr.Binary:
		return f.applyOnBinary(x, m)
	case *sqlexpr.Like:
		return f.applyOnLike(x)
	case *sqlexpr.Case:
		return f.applyOnCase(x, m)
	case *sqlexpr.Any:
		item, array, err := f.applyOnItemAndArray(x.Item, x.Array)
		if err != nil {
			return nil, err
		}
		return sqlexpr.NewAny(item, array, x.Op, f.boolMapping), nil
	case *sqlexpr.All:
		item, array, err := f.applyOnItemAndArray(x.Item, x.Array)
		if err != nil {
			return nil, err
		}
		return sqlexpr.NewAll(item, array, x.Op, f.boolMapping), nil
	case *sqlexpr.ArrayIndex:
		return f.applyOnArrayIndex(x, m)
	case *sqlexpr.PgBinary:
		return f.applyOnPgBinary(x, m)
	case *sqlexpr.ILike:
		return f.applyOnILike(x)
	case *sqlexpr.NewArray:
		return f.applyOnNewArray(x, m)
	case *sqlexpr.RegexMatch:
		return f.applyOnRegexMatch(x)
	default:
		return nil, qerrors.NewUnsupportedExpressionError(fmt.Sprintf("%T", e))
	}
}

func (f *Factory) applyAll(es []sqlexpr.Expression, m *typemap.Mapping) ([]sqlexpr.Expression, error) {
	out := make([]sqlexpr.Expression, len(es))
	for i, e := range es {
		var err error
		if out[i], err = f.ApplyTypeMapping(e, m); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (f *Factory) applyDefaultAll(es []sqlexpr.Expression) ([]sqlexpr.Expression, error) {
	out := make([]sqlexpr.Expression, len(es))
	for i, e := range es {
		var err error
		if out[i], err = f.ApplyDefaultTypeMapping(e); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (f *Factory) applyOnUnary(u *sqlexpr.Unary, m *typemap.Mapping) (sqlexpr.Expression, error) {
	switch {
	case u.Op == sqlexpr.OpIsNull || u.Op == sqlexpr.OpIsNotNull ||
		u.Op == sqlexpr.OpNot && hosttype.Unwrap(u.Type()) == hosttype.Bool:
		operand, err := f.ApplyDefaultTypeMapping(u.Operand)
		if err != nil {
			return nil, err
		}
		return sqlexpr.NewUnary(u.Op, operand, u.Type(), f.boolMapping), nil

	case u.Op == sqlexpr.OpConvert:
		operand, err := f.ApplyDefaultTypeMapping(u.Operand)
		if err != nil {
			return nil, err
		}
		return sqlexpr.NewUnary(u.Op, operand, u.Type(), m), nil

	default:
		operand, err := f.ApplyTypeMapping(u.Operand, m)
		if err != nil {
			return nil, err
		}
		return sqlexpr.NewUnary(u.Op, operand, u.Type(), m), nil
	}
}

func (f *Factory) applyOnLike(l *sqlexpr.Like) (sqlexpr.Expression, error) {
	inferred := f.inferTypeMapping(l.Match, l.Pattern, l.EscapeChar)
	if inferred == nil {
		inferred = f.source.FindMapping(l.Match.Type())
	}
	match, pattern, escape, err := f.applyMatchPattern(l.Match, l.Pattern, l.EscapeChar, inferred)
	if err != nil {
		return nil, err
	}
	return sqlexpr.NewLike(match, pattern, escape, l.Type(), f.boolMapping), nil
}

func (f *Factory) applyMatchPattern(match, pattern, escape sqlexpr.Expression, m *typemap.Mapping) (sqlexpr.Expression, sqlexpr.Expression, sqlexpr.Expression, error) {
	match, err := f.ApplyTypeMapping(match, m)
	if err != nil {
		return nil, nil, nil, err
	}
	if pattern, err = f.ApplyTypeMapping(pattern, m); err != nil {
		return nil, nil, nil, err
	}
	if escape, err = f.ApplyTypeMapping(escape, m); err != nil {
		return nil, nil, nil, err
	}
	return match, pattern, escape, nil
}

func (f *Factory) applyOnCase(c *sqlexpr.Case, m *typemap.Mapping) (sqlexpr.Expression, error) {
	inferred := m
	if inferred == nil {
		results := make([]sqlexpr.Expression, 0, len(c.Whens)+1)
		for _, w := range c.Whens {
			results = append(results, w.Result)
		}
		inferred = f.inferTypeMapping(append(results, c.Else)...)
	}

	whens := make([]sqlexpr.CaseWhen, len(c.Whens))
	for i, w := range c.Whens {
		result, err := f.ApplyTypeMapping(w.Result, inferred)
		if err != nil {
			return nil, err
		}
		whens[i] = sqlexpr.CaseWhen{Test: w.Test, Result: result}
	}
	elseResult, err := f.ApplyTypeMapping(c.Else, inferred)
	if err != nil {
		return nil, err
	}
	return sqlexpr.NewCase(c.Operand, whens, elseResult, c.Type(), inferred), nil
}
