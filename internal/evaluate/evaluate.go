// Package evaluate interprets expression trees under SQL three-valued
// logic, the way PostgreSQL would evaluate their rendering. It is the
// reference used to check that rewritten trees keep host semantics.
//
// NULL is represented by a nil value. Booleans are bool, numbers any Go
// numeric type, arrays any slice.
package evaluate

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/roach88/pgxlate/internal/hosttype"
	"github.com/roach88/pgxlate/internal/sqlexpr"
)

// Truth is the three-valued result of a predicate.
type Truth int8

const (
	Unknown Truth = iota
	False
	True
)

func (t Truth) String() string {
	switch t {
	case True:
		return "TRUE"
	case False:
		return "FALSE"
	default:
		return "UNKNOWN"
	}
}

// TruthOf converts an evaluated value to a Truth.
func TruthOf(v any) (Truth, error) {
	switch b := v.(type) {
	case nil:
		return Unknown, nil
	case bool:
		if b {
			return True, nil
		}
		return False, nil
	default:
		return Unknown, fmt.Errorf("value %v (%T) is not a boolean", v, v)
	}
}

// Row binds column values. Keys are "table.column", or a bare column name
// matched when no qualified key exists.
type Row map[string]any

// Evaluator evaluates expressions against rows with fixed parameter values.
type Evaluator struct {
	params map[string]any
}

// New creates an Evaluator with the given parameter bindings.
func New(params map[string]any) *Evaluator {
	return &Evaluator{params: params}
}

// Truth evaluates a predicate.
func (ev *Evaluator) Truth(e sqlexpr.Expression, row Row) (Truth, error) {
	v, err := ev.Eval(e, row)
	if err != nil {
		return Unknown, err
	}
	return TruthOf(v)
}

// Eval evaluates e against row.
func (ev *Evaluator) Eval(e sqlexpr.Expression, row Row) (any, error) {
	switch x := e.(type) {
	case *sqlexpr.Column:
		if v, ok := row[x.Table+"."+x.Name]; ok {
			return v, nil
		}
		if v, ok := row[x.Name]; ok {
			return v, nil
		}
		return nil, fmt.Errorf("column %s.%s is not bound", x.Table, x.Name)
	case *sqlexpr.Constant:
		return x.Value, nil
	case *sqlexpr.Parameter:
		v, ok := ev.params[x.Name]
		if !ok {
			return nil, fmt.Errorf("parameter %s is not bound", x.Name)
		}
		return v, nil
	case *sqlexpr.Unary:
		return ev.unary(x, row)
	case *sqlexpr.Binary:
		return ev.binary(x, row)
	case *sqlexpr.Like:
		return ev.like(x.Match, x.Pattern, x.EscapeChar, false, row)
	case *sqlexpr.ILike:
		return ev.like(x.Match, x.Pattern, x.EscapeChar, true, row)
	case *sqlexpr.Function:
		return ev.function(x, row)
	case *sqlexpr.Case:
		return ev.caseExpr(x, row)
	case *sqlexpr.Any:
		return ev.any(x, row)
	case *sqlexpr.All:
		return ev.all(x, row)
	case *sqlexpr.ArrayIndex:
		return ev.arrayIndex(x, row)
	case *sqlexpr.PgBinary:
		return ev.pgBinary(x, row)
	case *sqlexpr.NewArray:
		out := make([]any, len(x.Elements))
		for i, el := range x.Elements {
			v, err := ev.Eval(el, row)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case *sqlexpr.RegexMatch:
		return ev.regexMatch(x, row)
	case *sqlexpr.JsonTraversal:
		return ev.jsonTraversal(x, row)
	default:
		return nil, fmt.Errorf("cannot evaluate %s", e.Kind())
	}
}

func (ev *Evaluator) pair(l, r sqlexpr.Expression, row Row) (any, any, error) {
	lv, err := ev.Eval(l, row)
	if err != nil {
		return nil, nil, err
	}
	rv, err := ev.Eval(r, row)
	if err != nil {
		return nil, nil, err
	}
	return lv, rv, nil
}

func (ev *Evaluator) unary(u *sqlexpr.Unary, row Row) (any, error) {
	v, err := ev.Eval(u.Operand, row)
	if err != nil {
		return nil, err
	}
	switch u.Op {
	case sqlexpr.OpIsNull:
		return v == nil, nil
	case sqlexpr.OpIsNotNull:
		return v != nil, nil
	case sqlexpr.OpNot:
		t, err := TruthOf(v)
		if err != nil {
			return nil, err
		}
		return fromTruth(not(t)), nil
	case sqlexpr.OpNegate:
		if v == nil {
			return nil, nil
		}
		return arithmetic(sqlexpr.OpSubtract, 0, v)
	case sqlexpr.OpConvert:
		if v == nil || u.Type() == nil || hosttype.Unwrap(u.Type()) != hosttype.String {
			return v, nil
		}
		return fmt.Sprint(v), nil
	default:
		return nil, fmt.Errorf("cannot evaluate unary %s", u.Op)
	}
}

func not(t Truth) Truth {
	switch t {
	case True:
		return False
	case False:
		return True
	default:
		return Unknown
	}
}

func fromTruth(t Truth) any {
	switch t {
	case True:
		return true
	case False:
		return false
	default:
		return nil
	}
}

func (ev *Evaluator) binary(b *sqlexpr.Binary, row Row) (any, error) {
	lv, rv, err := ev.pair(b.Left, b.Right, row)
	if err != nil {
		return nil, err
	}

	if b.Op.IsLogical() {
		lt, err := TruthOf(lv)
		if err != nil {
			return nil, err
		}
		rt, err := TruthOf(rv)
		if err != nil {
			return nil, err
		}
		if b.Op == sqlexpr.OpAndAlso {
			return fromTruth(and(lt, rt)), nil
		}
		return fromTruth(or(lt, rt)), nil
	}

	if lv == nil || rv == nil {
		return nil, nil
	}
	if b.Op.IsArithmetic() {
		return arithmetic(b.Op, lv, rv)
	}

	c, err := compare(lv, rv)
	if err != nil {
		return nil, err
	}
	switch b.Op {
	case sqlexpr.OpEqual:
		return c == 0, nil
	case sqlexpr.OpNotEqual:
		return c != 0, nil
	case sqlexpr.OpLessThan:
		return c < 0, nil
	case sqlexpr.OpLessThanOrEqual:
		return c <= 0, nil
	case sqlexpr.OpGreaterThan:
		return c > 0, nil
	case sqlexpr.OpGreaterThanOrEqual:
		return c >= 0, nil
	default:
		return nil, fmt.Errorf("cannot evaluate binary %s", b.Op)
	}
}

func and(l, r Truth) Truth {
	switch {
	case l == False || r == False:
		return False
	case l == True && r == True:
		return True
	default:
		return Unknown
	}
}

func or(l, r Truth) Truth {
	switch {
	case l == True || r == True:
		return True
	case l == False && r == False:
		return False
	default:
		return Unknown
	}
}

func (ev *Evaluator) function(f *sqlexpr.Function, row Row) (any, error) {
	args := make([]any, len(f.Args))
	for i, a := range f.Args {
		v, err := ev.Eval(a, row)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	switch strings.ToLower(f.Name) {
	case "array_position":
		if len(args) != 2 || args[0] == nil {
			return nil, nil
		}
		elems, err := toSlice(args[0])
		if err != nil {
			return nil, err
		}
		for i, el := range elems {
			// array_position compares with IS NOT DISTINCT FROM.
			if el == nil && args[1] == nil {
				return i + 1, nil
			}
			if el != nil && args[1] != nil {
				if c, err := compare(el, args[1]); err == nil && c == 0 {
					return i + 1, nil
				}
			}
		}
		return nil, nil
	case "cardinality":
		if args[0] == nil {
			return nil, nil
		}
		elems, err := toSlice(args[0])
		if err != nil {
			return nil, err
		}
		return len(elems), nil
	case "coalesce":
		for _, a := range args {
			if a != nil {
				return a, nil
			}
		}
		return nil, nil
	case "lower", "upper":
		if args[0] == nil {
			return nil, nil
		}
		s, ok := args[0].(string)
		if !ok {
			return nil, fmt.Errorf("%s expects text, got %T", f.Name, args[0])
		}
		if strings.EqualFold(f.Name, "lower") {
			return strings.ToLower(s), nil
		}
		return strings.ToUpper(s), nil
	default:
		return nil, fmt.Errorf("cannot evaluate function %s", f.Name)
	}
}

func (ev *Evaluator) caseExpr(c *sqlexpr.Case, row Row) (any, error) {
	var operand any
	if c.Operand != nil {
		v, err := ev.Eval(c.Operand, row)
		if err != nil {
			return nil, err
		}
		operand = v
	}

	for _, w := range c.Whens {
		test, err := ev.Eval(w.Test, row)
		if err != nil {
			return nil, err
		}
		matched := false
		if c.Operand == nil {
			t, err := TruthOf(test)
			if err != nil {
				return nil, err
			}
			matched = t == True
		} else if operand != nil && test != nil {
			cmp, err := compare(operand, test)
			if err != nil {
				return nil, err
			}
			matched = cmp == 0
		}
		if matched {
			return ev.Eval(w.Result, row)
		}
	}
	if c.Else == nil {
		return nil, nil
	}
	return ev.Eval(c.Else, row)
}

// compare orders two non-null values of compatible types.
func compare(a, b any) (int, error) {
	if an, ok := toFloat(a); ok {
		if bn, ok := toFloat(b); ok {
			switch {
			case an < bn:
				return -1, nil
			case an > bn:
				return 1, nil
			default:
				return 0, nil
			}
		}
	}

	switch x := a.(type) {
	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y), nil
		}
	case bool:
		if y, ok := b.(bool); ok {
			switch {
			case x == y:
				return 0, nil
			case !x:
				return -1, nil
			default:
				return 1, nil
			}
		}
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y), nil
		}
	}

	if reflect.DeepEqual(a, b) {
		return 0, nil
	}
	return 0, fmt.Errorf("cannot compare %T with %T", a, b)
}

func toFloat(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	default:
		return 0, false
	}
}

func arithmetic(op sqlexpr.BinaryOperator, a, b any) (any, error) {
	x, ok := toFloat(a)
	if !ok {
		return nil, fmt.Errorf("cannot apply %s to %T", op, a)
	}
	y, ok := toFloat(b)
	if !ok {
		return nil, fmt.Errorf("cannot apply %s to %T", op, b)
	}
	switch op {
	case sqlexpr.OpAdd:
		return x + y, nil
	case sqlexpr.OpSubtract:
		return x - y, nil
	case sqlexpr.OpMultiply:
		return x * y, nil
	case sqlexpr.OpDivide:
		if y == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		return x / y, nil
	case sqlexpr.OpModulo:
		if y == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		return float64(int64(x) % int64(y)), nil
	default:
		return nil, fmt.Errorf("%s is not arithmetic", op)
	}
}

func toSlice(v any) ([]any, error) {
	if s, ok := v.([]any); ok {
		return s, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("value %v (%T) is not an array", v, v)
	}
	out := make([]any, rv.Len())
	for i := range out {
		el := rv.Index(i)
		if el.Kind() == reflect.Pointer && el.IsNil() {
			continue
		}
		if el.Kind() == reflect.Pointer {
			el = el.Elem()
		}
		out[i] = el.Interface()
	}
	return out, nil
}
