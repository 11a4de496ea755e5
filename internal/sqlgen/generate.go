// Package sqlgen renders expression trees to PostgreSQL SQL fragments.
//
// Rendering covers expressions only, never whole statements. Parameters
// become positional placeholders ($1, $2, ...) numbered by first
// appearance, and constants are inlined through their mapping's literal
// generator. Every constant, parameter and array literal must carry a type
// mapping; an unmapped one is an UNRESOLVED_TYPE_MAPPING error.
package sqlgen

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/lib/pq"

	"github.com/roach88/pgxlate/internal/qerrors"
	"github.com/roach88/pgxlate/internal/sqlexpr"
)

// Result is a rendered fragment.
type Result struct {
	SQL string
	// Parameters lists parameter names; Parameters[i] is bound to $i+1.
	Parameters []string
}

// Generator renders expressions. It holds no state and is safe for
// concurrent use.
type Generator struct{}

// New creates a Generator.
func New() *Generator { return &Generator{} }

// Generate renders e.
func (g *Generator) Generate(e sqlexpr.Expression) (Result, error) {
	if e == nil {
		return Result{}, fmt.Errorf("cannot render nil expression")
	}
	w := &writer{positions: make(map[string]int)}
	w.expr(e)
	if w.err != nil {
		return Result{}, w.err
	}
	return Result{SQL: w.sb.String(), Parameters: w.params}, nil
}

type writer struct {
	sb        strings.Builder
	params    []string
	positions map[string]int
	err       error
}

type operator interface {
	Symbol() string
	String() string
}

// symbol renders op, failing for operators outside the operator tables.
func (w *writer) symbol(op operator) string {
	s := op.Symbol()
	if s == "" {
		w.fail(qerrors.NewUnsupportedExpressionError("operator " + op.String()))
	}
	return s
}

func (w *writer) fail(err error) {
	if w.err == nil {
		w.err = err
	}
}

func (w *writer) write(parts ...string) {
	for _, p := range parts {
		w.sb.WriteString(p)
	}
}

// Operator precedence, loosest first, following the PostgreSQL table.
const (
	precOr = iota + 1
	precAnd
	precNot
	precIs
	precComparison
	precLike
	precOther
	precAdditive
	precMultiplicative
	precAtTimeZone
	precUnaryMinus
	precPostfix
	precAtom
)

func precedence(e sqlexpr.Expression) int {
	switch x := e.(type) {
	case *sqlexpr.Unary:
		switch x.Op {
		case sqlexpr.OpNot:
			return precNot
		case sqlexpr.OpIsNull, sqlexpr.OpIsNotNull:
			return precIs
		case sqlexpr.OpNegate:
			return precUnaryMinus
		default:
			if x.TypeMapping() == nil {
				return precedence(x.Operand)
			}
			return precPostfix
		}
	case *sqlexpr.Binary:
		switch {
		case x.Op == sqlexpr.OpOrElse:
			return precOr
		case x.Op == sqlexpr.OpAndAlso:
			return precAnd
		case x.Op.IsComparison():
			return precComparison
		case x.Op == sqlexpr.OpAdd || x.Op == sqlexpr.OpSubtract:
			return precAdditive
		default:
			return precMultiplicative
		}
	case *sqlexpr.Any:
		if x.Op == sqlexpr.AnyEqual {
			return precComparison
		}
		return precLike
	case *sqlexpr.Like, *sqlexpr.ILike, *sqlexpr.All:
		return precLike
	case *sqlexpr.PgBinary:
		if x.Op == sqlexpr.PgAtTimeZone {
			return precAtTimeZone
		}
		return precOther
	case *sqlexpr.RegexMatch, *sqlexpr.JsonTraversal, *sqlexpr.UnknownBinary:
		return precOther
	case *sqlexpr.ArrayIndex:
		return precPostfix
	default:
		return precAtom
	}
}

// operand renders child of a parent with precedence prec, parenthesizing
// when the child binds looser. At equal precedence the right operand is
// wrapped unless the operator is associative, and comparison operands are
// always wrapped since PostgreSQL does not chain them. AND under OR is
// wrapped for readability.
func (w *writer) operand(child sqlexpr.Expression, prec int, right bool) {
	cp := precedence(child)
	wrap := cp < prec || (prec == precOr && cp == precAnd)
	if cp == prec {
		switch prec {
		case precAnd, precOr:
		case precComparison, precIs, precLike:
			wrap = true
		default:
			wrap = right
		}
	}
	if wrap {
		w.write("(")
	}
	w.expr(child)
	if wrap {
		w.write(")")
	}
}

func (w *writer) infix(left sqlexpr.Expression, op string, right sqlexpr.Expression, prec int) {
	w.operand(left, prec, false)
	w.write(" ", op, " ")
	w.operand(right, prec, true)
}

var bareIdentifier = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// reserved lists keywords that cannot appear as bare column names.
var reserved = map[string]bool{
	"all": true, "and": true, "any": true, "array": true, "as": true, "case": true,
	"cast": true, "check": true, "column": true, "default": true, "do": true,
	"else": true, "end": true, "false": true, "from": true, "group": true,
	"in": true, "is": true, "like": true, "limit": true, "not": true, "null": true,
	"on": true, "or": true, "order": true, "select": true, "table": true,
	"then": true, "to": true, "true": true, "user": true, "when": true, "where": true,
}

// identifier quotes name unless it is a plain lower-case identifier.
func identifier(name string) string {
	if bareIdentifier.MatchString(name) && !reserved[name] {
		return name
	}
	return pq.QuoteIdentifier(name)
}

func (w *writer) expr(e sqlexpr.Expression) {
	if w.err != nil {
		return
	}

	switch x := e.(type) {
	case *sqlexpr.Column:
		if x.Table != "" {
			w.write(identifier(x.Table), ".")
		}
		w.write(identifier(x.Name))
	case *sqlexpr.Constant:
		w.constant(x)
	case *sqlexpr.Parameter:
		w.parameter(x)
	case *sqlexpr.Unary:
		w.unary(x)
	case *sqlexpr.Binary:
		w.infix(x.Left, w.symbol(x.Op), x.Right, precedence(x))
	case *sqlexpr.Like:
		w.like(x.Match, "LIKE", x.Pattern, x.EscapeChar)
	case *sqlexpr.ILike:
		w.like(x.Match, "ILIKE", x.Pattern, x.EscapeChar)
	case *sqlexpr.Function:
		w.function(x)
	case *sqlexpr.Case:
		w.caseExpr(x)
	case *sqlexpr.Any:
		w.operand(x.Item, precedence(x), false)
		w.write(" ", w.symbol(x.Op), " ANY (")
		w.expr(x.Array)
		w.write(")")
	case *sqlexpr.All:
		w.operand(x.Item, precLike, false)
		w.write(" ", w.symbol(x.Op), " ALL (")
		w.expr(x.Array)
		w.write(")")
	case *sqlexpr.ArrayIndex:
		w.operand(x.Array, precPostfix, false)
		w.write("[")
		w.expr(x.Index)
		w.write("]")
	case *sqlexpr.PgBinary:
		w.infix(x.Left, w.symbol(x.Op), x.Right, precedence(x))
	case *sqlexpr.NewArray:
		w.newArray(x)
	case *sqlexpr.RegexMatch:
		w.regexMatch(x)
	case *sqlexpr.JsonTraversal:
		w.jsonTraversal(x)
	case *sqlexpr.UnknownBinary:
		w.infix(x.Left, x.Operator, x.Right, precOther)
	default:
		w.fail(qerrors.NewUnsupportedExpressionError(fmt.Sprintf("%T", e)))
	}
}

func (w *writer) constant(c *sqlexpr.Constant) {
	m := c.TypeMapping()
	if m == nil {
		w.fail(qerrors.NewUnresolvedTypeMappingError("constant", c.Type().String()))
		return
	}
	lit, err := m.GenerateSQLLiteral(c.Value)
	if err != nil {
		w.fail(fmt.Errorf("render constant: %w", err))
		return
	}
	lit = strings.TrimLeft(lit, " ")
	if strings.HasPrefix(lit, "-") {
		// Keeps "- -1" from becoming a "--" comment.
		lit = "(" + lit + ")"
	}
	w.write(lit)
}

func (w *writer) parameter(p *sqlexpr.Parameter) {
	if p.TypeMapping() == nil {
		w.fail(qerrors.NewUnresolvedTypeMappingError("parameter @"+p.Name, p.Type().String()))
		return
	}
	pos, ok := w.positions[p.Name]
	if !ok {
		w.params = append(w.params, p.Name)
		pos = len(w.params)
		w.positions[p.Name] = pos
	}
	w.write(fmt.Sprintf("$%d", pos))
}

func (w *writer) unary(u *sqlexpr.Unary) {
	prec := precedence(u)
	switch u.Op {
	case sqlexpr.OpNot:
		w.write("NOT ")
		w.operand(u.Operand, prec, false)
	case sqlexpr.OpNegate:
		w.write("-")
		w.operand(u.Operand, prec+1, false)
	case sqlexpr.OpIsNull:
		w.operand(u.Operand, prec+1, false)
		w.write(" IS NULL")
	case sqlexpr.OpIsNotNull:
		w.operand(u.Operand, prec+1, false)
		w.write(" IS NOT NULL")
	case sqlexpr.OpConvert:
		if u.TypeMapping() == nil {
			// A cast to object only changes the host view.
			w.expr(u.Operand)
			return
		}
		w.operand(u.Operand, precPostfix, false)
		w.write("::", u.TypeMapping().StoreType())
	}
}

func (w *writer) like(match sqlexpr.Expression, op string, pattern, escape sqlexpr.Expression) {
	w.infix(match, op, pattern, precLike)
	if escape != nil {
		w.write(" ESCAPE ")
		w.expr(escape)
	}
}

func (w *writer) list(es []sqlexpr.Expression) {
	for i, e := range es {
		if i > 0 {
			w.write(", ")
		}
		w.expr(e)
	}
}

func (w *writer) function(f *sqlexpr.Function) {
	if f.Schema != "" {
		w.write(identifier(f.Schema), ".")
	}
	w.write(f.Name)
	if f.Niladic {
		return
	}
	w.write("(")
	w.list(f.Args)
	w.write(")")
}

func (w *writer) caseExpr(c *sqlexpr.Case) {
	w.write("CASE")
	if c.Operand != nil {
		w.write(" ")
		w.expr(c.Operand)
	}
	for _, when := range c.Whens {
		w.write(" WHEN ")
		w.expr(when.Test)
		w.write(" THEN ")
		w.expr(when.Result)
	}
	if c.Else != nil {
		w.write(" ELSE ")
		w.expr(c.Else)
	}
	w.write(" END")
}

func (w *writer) newArray(n *sqlexpr.NewArray) {
	if n.TypeMapping() == nil {
		w.fail(qerrors.NewUnresolvedTypeMappingError("array literal", n.Type().String()))
		return
	}
	w.write("ARRAY[")
	w.list(n.Elements)
	w.write("]::", n.TypeMapping().StoreType())
}

// regexFlags returns the embedded ARE options for a pattern. PostgreSQL
// lets "." match newlines by default, so the plain case needs "p".
func regexFlags(o sqlexpr.RegexOptions) string {
	var sb strings.Builder
	if o.Has(sqlexpr.RegexIgnoreCase) {
		sb.WriteByte('i')
	}
	multi, single := o.Has(sqlexpr.RegexMultiline), o.Has(sqlexpr.RegexSingleline)
	switch {
	case multi && single:
		sb.WriteByte('w')
	case multi:
		sb.WriteByte('n')
	case !single:
		sb.WriteByte('p')
	}
	if o.Has(sqlexpr.RegexIgnorePatternWhitespace) {
		sb.WriteByte('x')
	}
	return sb.String()
}

func (w *writer) regexMatch(r *sqlexpr.RegexMatch) {
	w.operand(r.Match, precOther, false)
	w.write(" ~ ")
	flags := regexFlags(r.Options)
	if flags == "" {
		w.operand(r.Pattern, precOther, true)
		return
	}
	w.write("('(?", flags, ")' || ")
	w.expr(r.Pattern)
	w.write(")")
}

func (w *writer) jsonTraversal(j *sqlexpr.JsonTraversal) {
	if len(j.Path) == 0 {
		w.expr(j.Root)
		return
	}
	w.operand(j.Root, precOther, false)
	for i, component := range j.Path {
		op := "->"
		if j.ReturnsText && i == len(j.Path)-1 {
			op = "->>"
		}
		w.write(" ", op, " ")
		w.operand(component, precOther, true)
	}
}
