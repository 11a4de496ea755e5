package exprdoc

import (
	"encoding/base64"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/roach88/pgxlate/internal/hosttype"
	"github.com/roach88/pgxlate/internal/qerrors"
	"github.com/roach88/pgxlate/internal/sqlexpr"
	"github.com/roach88/pgxlate/internal/sqlfactory"
	"github.com/roach88/pgxlate/internal/translators"
	"github.com/roach88/pgxlate/internal/typemap"
)

// Builder turns document nodes into expressions.
type Builder struct {
	f  *sqlfactory.Factory
	tr *translators.Translator
}

// NewBuilder creates a Builder. tr may be nil when documents use no
// method or member nodes.
func NewBuilder(f *sqlfactory.Factory, tr *translators.Translator) *Builder {
	return &Builder{f: f, tr: tr}
}

// Build builds the document's expression tree.
func (b *Builder) Build(doc *Document) (sqlexpr.Expression, error) {
	e, err := b.node(doc.Expression, "expression")
	if err != nil {
		return nil, err
	}
	return e, nil
}

// ParameterValues returns the document's parameter values coerced to the
// host types of the parameters named in e.
func (b *Builder) ParameterValues(doc *Document, e sqlexpr.Expression) (map[string]any, error) {
	if len(doc.Parameters) == 0 {
		return nil, nil
	}
	types := make(map[string]*hosttype.Type)
	collectParameters(e, types)

	out := make(map[string]any, len(doc.Parameters))
	for name, v := range doc.Parameters {
		typ, ok := types[name]
		if !ok {
			out[name] = v
			continue
		}
		cv, err := coerce(v, typ)
		if err != nil {
			return nil, fmt.Errorf("parameter %s: %w", name, err)
		}
		out[name] = cv
	}
	return out, nil
}

func (b *Builder) node(n Node, at string) (sqlexpr.Expression, error) {
	switch {
	case n.Column != nil:
		return b.column(n.Column, at)
	case n.Constant != nil:
		return b.constant(n.Constant, at)
	case n.Parameter != nil:
		typ, err := parseType(n.Parameter.Type, at)
		if err != nil {
			return nil, err
		}
		if n.Parameter.Name == "" {
			return nil, fmt.Errorf("%s: parameter without a name", at)
		}
		return b.f.Parameter(n.Parameter.Name, typ, nil), nil
	case n.Function != nil:
		return b.function(n, at)
	case n.Method != "":
		return b.method(n, at)
	case n.Member != "":
		return b.member(n, at)
	case n.JSON != nil:
		return b.json(n, at)
	case n.Case != nil:
		return b.caseExpr(n.Case, at)
	case n.Op != "":
		return b.op(n, at)
	default:
		return nil, fmt.Errorf("%s: empty node", at)
	}
}

func (b *Builder) nodes(ns []Node, at string) ([]sqlexpr.Expression, error) {
	out := make([]sqlexpr.Expression, len(ns))
	for i, n := range ns {
		e, err := b.node(n, fmt.Sprintf("%s[%d]", at, i))
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}

func (b *Builder) column(c *ColumnRef, at string) (sqlexpr.Expression, error) {
	typ, err := parseType(c.Type, at)
	if err != nil {
		return nil, err
	}
	table := c.Table
	if table == "" {
		table = "t"
	}
	m, err := b.storeType(c.StoreType, typ, at)
	if err != nil {
		return nil, err
	}
	return b.f.Column(table, c.Name, typ, c.Nullable, m)
}

func (b *Builder) constant(c *ConstantRef, at string) (sqlexpr.Expression, error) {
	if c.Type == "" {
		if c.Value == nil {
			return nil, fmt.Errorf("%s: null constant needs a type", at)
		}
		return b.f.ConstantOf(normalize(c.Value)), nil
	}
	typ, err := parseType(c.Type, at)
	if err != nil {
		return nil, err
	}
	v, err := coerce(c.Value, typ)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", at, err)
	}
	return b.f.Constant(v, typ, nil), nil
}

func (b *Builder) function(n Node, at string) (sqlexpr.Expression, error) {
	fn := n.Function
	typ, err := parseType(n.Type, at)
	if err != nil {
		return nil, err
	}
	args, err := b.nodes(fn.Args, at+".args")
	if err != nil {
		return nil, err
	}
	m, err := b.storeType(fn.StoreType, typ, at)
	if err != nil {
		return nil, err
	}
	if len(args) == 0 && !strings.HasSuffix(fn.Name, "()") {
		return b.f.NiladicFunction(fn.Name, fn.Nullable, typ, m), nil
	}
	propagates := make([]bool, len(args))
	for i := range propagates {
		propagates[i] = true
	}
	return b.f.Function(strings.TrimSuffix(fn.Name, "()"), args, fn.Nullable, propagates, typ, m)
}

func (b *Builder) method(n Node, at string) (sqlexpr.Expression, error) {
	if b.tr == nil {
		return nil, qerrors.NewUnsupportedExpressionError("method " + n.Method)
	}
	var instance sqlexpr.Expression
	if n.Instance != nil {
		var err error
		if instance, err = b.node(*n.Instance, at+".instance"); err != nil {
			return nil, err
		}
	}
	args, err := b.nodes(n.Args, at+".args")
	if err != nil {
		return nil, err
	}
	return b.tr.Method(n.Method, instance, args...)
}

func (b *Builder) member(n Node, at string) (sqlexpr.Expression, error) {
	if b.tr == nil {
		return nil, qerrors.NewUnsupportedExpressionError("member " + n.Member)
	}
	if n.Instance == nil {
		return nil, fmt.Errorf("%s: member %s needs an instance", at, n.Member)
	}
	instance, err := b.node(*n.Instance, at+".instance")
	if err != nil {
		return nil, err
	}
	return b.tr.Member(n.Member, instance)
}

func (b *Builder) json(n Node, at string) (sqlexpr.Expression, error) {
	of, err := b.node(n.JSON.Of, at+".json.of")
	if err != nil {
		return nil, err
	}
	path := make([]sqlexpr.Expression, len(n.JSON.Path))
	for i, step := range n.JSON.Path {
		path[i] = b.f.ConstantOf(step)
	}
	typ := of.Type()
	if n.JSON.Text {
		typ = hosttype.NullableOf(hosttype.String)
	}
	if n.Type != "" {
		if typ, err = parseType(n.Type, at); err != nil {
			return nil, err
		}
	}
	var m *typemap.Mapping
	if !n.JSON.Text {
		m = of.TypeMapping()
	}
	return b.f.JsonTraversal(of, path, n.JSON.Text, typ, m)
}

func (b *Builder) caseExpr(c *CaseRef, at string) (sqlexpr.Expression, error) {
	var operand, elseResult sqlexpr.Expression
	var err error
	if c.Operand != nil {
		if operand, err = b.node(*c.Operand, at+".operand"); err != nil {
			return nil, err
		}
	}
	if len(c.Whens) == 0 {
		return nil, fmt.Errorf("%s: case without whens", at)
	}
	whens := make([]sqlexpr.CaseWhen, len(c.Whens))
	for i, w := range c.Whens {
		test, err := b.node(w.When, fmt.Sprintf("%s.whens[%d].when", at, i))
		if err != nil {
			return nil, err
		}
		result, err := b.node(w.Then, fmt.Sprintf("%s.whens[%d].then", at, i))
		if err != nil {
			return nil, err
		}
		whens[i] = sqlexpr.CaseWhen{Test: test, Result: result}
	}
	if c.Else != nil {
		if elseResult, err = b.node(*c.Else, at+".else"); err != nil {
			return nil, err
		}
	}
	return b.f.Case(operand, whens, elseResult, nil)
}

func (b *Builder) storeType(name string, typ *hosttype.Type, at string) (*typemap.Mapping, error) {
	if name == "" {
		return nil, nil
	}
	m := b.f.Source().FindMappingFor(typ, name)
	if m == nil {
		return nil, qerrors.NewUnresolvedTypeMappingError(at, typ.String()+" as "+name)
	}
	return m, nil
}

func parseType(s, at string) (*hosttype.Type, error) {
	if s == "" {
		return nil, fmt.Errorf("%s: missing type", at)
	}
	t, err := hosttype.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", at, err)
	}
	return t, nil
}

func collectParameters(e sqlexpr.Expression, into map[string]*hosttype.Type) {
	if e == nil {
		return
	}
	if p, ok := e.(*sqlexpr.Parameter); ok {
		into[p.Name] = p.Type()
		return
	}
	for _, c := range sqlexpr.Children(e) {
		collectParameters(c, into)
	}
}

// normalize maps decoder number types onto the ones ConstantOf infers.
func normalize(v any) any {
	switch x := v.(type) {
	case int64:
		if x >= math.MinInt32 && x <= math.MaxInt32 {
			return int(x)
		}
		return x
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = normalize(e)
		}
		return out
	default:
		return v
	}
}

// coerce converts a decoded document value to the Go value typemap
// literals expect for typ. nil stays nil.
func coerce(v any, typ *hosttype.Type) (any, error) {
	if v == nil {
		return nil, nil
	}
	if hosttype.IsArrayOrList(typ) && hosttype.Unwrap(typ) != hosttype.Bytes {
		elems, ok := v.([]any)
		if !ok {
			return nil, fmt.Errorf("expected a list for %s, got %T", typ, v)
		}
		elem, _ := hosttype.ElementType(typ)
		out := make([]any, len(elems))
		for i, e := range elems {
			ce, err := coerce(e, elem)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out[i] = ce
		}
		return out, nil
	}

	switch base := hosttype.Unwrap(typ); base {
	case hosttype.Int16, hosttype.Int32, hosttype.Int64, hosttype.Byte, hosttype.UInt32:
		switch x := v.(type) {
		case int:
			return x, nil
		case int64:
			return int(x), nil
		case float64:
			if x == math.Trunc(x) {
				return int(x), nil
			}
		}
		return nil, fmt.Errorf("expected an integer for %s, got %v", base, v)
	case hosttype.Float32, hosttype.Float64:
		switch x := v.(type) {
		case int:
			return float64(x), nil
		case int64:
			return float64(x), nil
		case float64:
			return x, nil
		}
		return nil, fmt.Errorf("expected a number for %s, got %v", base, v)
	case hosttype.Decimal:
		switch x := v.(type) {
		case int64:
			return int(x), nil
		case int, float64, string:
			return x, nil
		}
		return nil, fmt.Errorf("expected a number for %s, got %v", base, v)
	case hosttype.DateTime, hosttype.DateTimeOffset, hosttype.DateOnly, hosttype.Instant,
		hosttype.LocalDateTime, hosttype.LocalDate, hosttype.ZonedDateTime:
		switch x := v.(type) {
		case time.Time:
			return x, nil
		case string:
			for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
				if t, err := time.Parse(layout, x); err == nil {
					return t, nil
				}
			}
		}
		return nil, fmt.Errorf("expected a timestamp for %s, got %v", base, v)
	case hosttype.TimeSpan, hosttype.Duration, hosttype.TimeOnly, hosttype.LocalTime:
		if s, ok := v.(string); ok {
			d, err := time.ParseDuration(s)
			if err != nil {
				return nil, fmt.Errorf("expected a duration for %s: %w", base, err)
			}
			return d, nil
		}
		return nil, fmt.Errorf("expected a duration for %s, got %v", base, v)
	case hosttype.Bytes:
		if s, ok := v.(string); ok {
			data, err := base64.StdEncoding.DecodeString(s)
			if err != nil {
				return nil, fmt.Errorf("expected base64 bytes: %w", err)
			}
			return data, nil
		}
		return nil, fmt.Errorf("expected base64 bytes, got %T", v)
	default:
		return normalize(v), nil
	}
}
