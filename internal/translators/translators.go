// Package translators maps host method calls and member accesses onto
// expression factory calls.
//
// Every translation is registered explicitly by qualified name
// ("Range.Contains", "TimeSpan.Days", ...). Methods receive the instance
// (nil for static functions) and their arguments; members receive the
// instance only. An unregistered name is an UNSUPPORTED_EXPRESSION error.
package translators

import (
	"sort"

	"go.uber.org/zap"

	"github.com/roach88/pgxlate/internal/hosttype"
	"github.com/roach88/pgxlate/internal/qerrors"
	"github.com/roach88/pgxlate/internal/sqlexpr"
	"github.com/roach88/pgxlate/internal/sqlfactory"
	"github.com/roach88/pgxlate/internal/typemap"
)

// MethodFunc translates a method call.
type MethodFunc func(instance sqlexpr.Expression, args []sqlexpr.Expression) (sqlexpr.Expression, error)

// MemberFunc translates a member access.
type MemberFunc func(instance sqlexpr.Expression) (sqlexpr.Expression, error)

type method struct {
	// minArgs and maxArgs bound the argument count.
	minArgs, maxArgs int
	instance         bool
	fn               MethodFunc
}

// Translator holds the registered translations. It is populated by New and
// read-only afterwards.
type Translator struct {
	f       *sqlfactory.Factory
	logger  *zap.Logger
	methods map[string]method
	members map[string]MemberFunc
}

// Option configures a Translator.
type Option func(*Translator)

// WithLogger sets the logger translations are reported to.
func WithLogger(l *zap.Logger) Option {
	return func(t *Translator) {
		if l != nil {
			t.logger = l
		}
	}
}

// New creates a Translator with every built-in translation registered.
func New(f *sqlfactory.Factory, opts ...Option) *Translator {
	t := &Translator{
		f:       f,
		logger:  zap.NewNop(),
		methods: make(map[string]method),
		members: make(map[string]MemberFunc),
	}
	for _, opt := range opts {
		opt(t)
	}

	t.registerRange()
	t.registerTrigrams()
	t.registerText()
	t.registerJSON()
	t.registerTimeSpan()
	t.registerObject()
	t.registerArray()
	return t
}

func (t *Translator) static(name string, minArgs, maxArgs int, fn MethodFunc) {
	t.methods[name] = method{minArgs: minArgs, maxArgs: maxArgs, fn: fn}
}

func (t *Translator) onInstance(name string, args int, fn MethodFunc) {
	t.methods[name] = method{minArgs: args, maxArgs: args, instance: true, fn: fn}
}

func (t *Translator) member(name string, fn MemberFunc) {
	t.members[name] = fn
}

// Method translates a call of the named method.
func (t *Translator) Method(name string, instance sqlexpr.Expression, args ...sqlexpr.Expression) (sqlexpr.Expression, error) {
	m, ok := t.methods[name]
	if !ok {
		return nil, qerrors.NewUnsupportedExpressionError("method " + name)
	}
	if m.instance && instance == nil {
		return nil, qerrors.NewInvalidShapeError("method %s requires an instance", name)
	}
	if len(args) < m.minArgs || len(args) > m.maxArgs {
		return nil, qerrors.NewInvalidShapeError("method %s takes %d to %d arguments, got %d", name, m.minArgs, m.maxArgs, len(args))
	}
	for i, a := range args {
		if a == nil {
			return nil, qerrors.NewInvalidShapeError("method %s: argument %d is nil", name, i)
		}
	}

	e, err := m.fn(instance, args)
	if err != nil {
		return nil, err
	}
	t.logger.Debug("translated method", zap.String("method", name), zap.Stringer("kind", e.Kind()))
	return e, nil
}

// Member translates an access of the named member.
func (t *Translator) Member(name string, instance sqlexpr.Expression) (sqlexpr.Expression, error) {
	fn, ok := t.members[name]
	if !ok {
		return nil, qerrors.NewUnsupportedExpressionError("member " + name)
	}
	if instance == nil {
		return nil, qerrors.NewInvalidShapeError("member %s requires an instance", name)
	}

	e, err := fn(instance)
	if err != nil {
		return nil, err
	}
	t.logger.Debug("translated member", zap.String("member", name), zap.Stringer("kind", e.Kind()))
	return e, nil
}

// Methods returns the registered method names, sorted.
func (t *Translator) Methods() []string {
	names := make([]string, 0, len(t.methods))
	for name := range t.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Members returns the registered member names, sorted.
func (t *Translator) Members() []string {
	names := make([]string, 0, len(t.members))
	for name := range t.members {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// function builds a call whose arguments all propagate nulls.
func (t *Translator) function(name string, args []sqlexpr.Expression, typ *hosttype.Type, m *typemap.Mapping) (*sqlexpr.Function, error) {
	propagates := make([]bool, len(args))
	for i := range propagates {
		propagates[i] = true
	}
	return t.f.Function(name, args, true, propagates, typ, m)
}
