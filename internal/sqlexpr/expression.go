package sqlexpr

import (
	"fmt"

	"github.com/roach88/pgxlate/internal/hosttype"
	"github.com/roach88/pgxlate/internal/typemap"
)

// Kind identifies the variant of an Expression.
type Kind uint8

const (
	KindColumn Kind = iota
	KindConstant
	KindParameter
	KindUnary
	KindBinary
	KindLike
	KindFunction
	KindCase
	KindAny
	KindAll
	KindArrayIndex
	KindPgBinary
	KindILike
	KindNewArray
	KindRegexMatch
	KindJsonTraversal
	KindUnknownBinary

	kindCount
)

var kindNames = [kindCount]string{
	KindColumn:        "Column",
	KindConstant:      "Constant",
	KindParameter:     "Parameter",
	KindUnary:         "Unary",
	KindBinary:        "Binary",
	KindLike:          "Like",
	KindFunction:      "Function",
	KindCase:          "Case",
	KindAny:           "Any",
	KindAll:           "All",
	KindArrayIndex:    "ArrayIndex",
	KindPgBinary:      "PgBinary",
	KindILike:         "ILike",
	KindNewArray:      "NewArray",
	KindRegexMatch:    "RegexMatch",
	KindJsonTraversal: "JsonTraversal",
	KindUnknownBinary: "UnknownBinary",
}

func (k Kind) String() string {
	if k < kindCount {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// IsPostgres reports whether the kind is one of the PostgreSQL-specific nodes.
func (k Kind) IsPostgres() bool { return k >= KindAny && k < kindCount }

// Kinds returns every expression kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, kindCount)
	for i := range out {
		out[i] = Kind(i)
	}
	return out
}

// Expression is a node of the SQL expression tree.
//
// The interface is sealed by the unexported marker method.
type Expression interface {
	// Type is the host type of the value the expression produces.
	Type() *hosttype.Type
	// TypeMapping is the resolved database type, nil while unresolved.
	TypeMapping() *typemap.Mapping
	Kind() Kind
	sqlExpression()
}

type typed struct {
	typ     *hosttype.Type
	mapping *typemap.Mapping
}

func (t typed) Type() *hosttype.Type          { return t.typ }
func (t typed) TypeMapping() *typemap.Mapping { return t.mapping }

// Column references a table column.
type Column struct {
	typed
	Table    string
	Name     string
	Nullable bool
}

func NewColumn(table, name string, typ *hosttype.Type, nullable bool, mapping *typemap.Mapping) *Column {
	return &Column{typed: typed{typ, mapping}, Table: table, Name: name, Nullable: nullable}
}

func (*Column) Kind() Kind     { return KindColumn }
func (*Column) sqlExpression() {}

// Constant is an inline value rendered as a SQL literal.
type Constant struct {
	typed
	Value any
}

func NewConstant(value any, typ *hosttype.Type, mapping *typemap.Mapping) *Constant {
	return &Constant{typed: typed{typ, mapping}, Value: value}
}

func (*Constant) Kind() Kind     { return KindConstant }
func (*Constant) sqlExpression() {}

// Parameter is a named query parameter bound at execution time.
type Parameter struct {
	typed
	Name string
}

func NewParameter(name string, typ *hosttype.Type, mapping *typemap.Mapping) *Parameter {
	return &Parameter{typed: typed{typ, mapping}, Name: name}
}

func (*Parameter) Kind() Kind     { return KindParameter }
func (*Parameter) sqlExpression() {}

// Unary applies a prefix or postfix operator to one operand. For OpConvert
// the node's own type and mapping are the conversion target.
type Unary struct {
	typed
	Op      UnaryOperator
	Operand Expression
}

func NewUnary(op UnaryOperator, operand Expression, typ *hosttype.Type, mapping *typemap.Mapping) *Unary {
	return &Unary{typed: typed{typ, mapping}, Op: op, Operand: operand}
}

func (*Unary) Kind() Kind     { return KindUnary }
func (*Unary) sqlExpression() {}

// Update returns a Unary over operand, or u itself when operand is unchanged.
func (u *Unary) Update(operand Expression) *Unary {
	if operand == u.Operand {
		return u
	}
	return &Unary{typed: u.typed, Op: u.Op, Operand: operand}
}

// Binary is a comparison, logical or arithmetic operation.
type Binary struct {
	typed
	Op    BinaryOperator
	Left  Expression
	Right Expression
}

func NewBinary(op BinaryOperator, left, right Expression, typ *hosttype.Type, mapping *typemap.Mapping) *Binary {
	return &Binary{typed: typed{typ, mapping}, Op: op, Left: left, Right: right}
}

func (*Binary) Kind() Kind     { return KindBinary }
func (*Binary) sqlExpression() {}

func (b *Binary) Update(left, right Expression) *Binary {
	if left == b.Left && right == b.Right {
		return b
	}
	return &Binary{typed: b.typed, Op: b.Op, Left: left, Right: right}
}

// Like is a case-sensitive LIKE match. EscapeChar may be nil.
type Like struct {
	typed
	Match      Expression
	Pattern    Expression
	EscapeChar Expression
}

func NewLike(match, pattern, escapeChar Expression, typ *hosttype.Type, mapping *typemap.Mapping) *Like {
	return &Like{typed: typed{typ, mapping}, Match: match, Pattern: pattern, EscapeChar: escapeChar}
}

func (*Like) Kind() Kind     { return KindLike }
func (*Like) sqlExpression() {}

func (l *Like) Update(match, pattern, escapeChar Expression) *Like {
	if match == l.Match && pattern == l.Pattern && escapeChar == l.EscapeChar {
		return l
	}
	return &Like{typed: l.typed, Match: match, Pattern: pattern, EscapeChar: escapeChar}
}

// Function is a SQL function call.
//
// Nullable reports whether the function can return NULL for non-null
// arguments. PropagatesNull has one entry per argument: true when a NULL in
// that argument makes the result NULL. Niladic functions render without
// parentheses (CURRENT_DATE).
type Function struct {
	typed
	Schema         string
	Name           string
	Args           []Expression
	Niladic        bool
	Nullable       bool
	PropagatesNull []bool
}

func NewFunction(name string, args []Expression, nullable bool, propagatesNull []bool, typ *hosttype.Type, mapping *typemap.Mapping) *Function {
	return &Function{
		typed:          typed{typ, mapping},
		Name:           name,
		Args:           args,
		Nullable:       nullable,
		PropagatesNull: propagatesNull,
	}
}

// NewNiladicFunction builds a function rendered without an argument list.
func NewNiladicFunction(name string, nullable bool, typ *hosttype.Type, mapping *typemap.Mapping) *Function {
	return &Function{typed: typed{typ, mapping}, Name: name, Niladic: true, Nullable: nullable}
}

func (*Function) Kind() Kind     { return KindFunction }
func (*Function) sqlExpression() {}

// ArgPropagatesNull reports whether argument i propagates nullability.
func (f *Function) ArgPropagatesNull(i int) bool {
	return i < len(f.PropagatesNull) && f.PropagatesNull[i]
}

func (f *Function) Update(args []Expression) *Function {
	if sameExpressions(args, f.Args) {
		return f
	}
	out := *f
	out.Args = args
	return &out
}

// CaseWhen is one WHEN ... THEN ... arm.
type CaseWhen struct {
	Test   Expression
	Result Expression
}

// Case is a searched (Operand nil) or simple CASE expression. Else may be nil.
type Case struct {
	typed
	Operand Expression
	Whens   []CaseWhen
	Else    Expression
}

func NewCase(operand Expression, whens []CaseWhen, elseResult Expression, typ *hosttype.Type, mapping *typemap.Mapping) *Case {
	return &Case{typed: typed{typ, mapping}, Operand: operand, Whens: whens, Else: elseResult}
}

func (*Case) Kind() Kind     { return KindCase }
func (*Case) sqlExpression() {}

func (c *Case) Update(operand Expression, whens []CaseWhen, elseResult Expression) *Case {
	if operand == c.Operand && elseResult == c.Else && sameWhens(whens, c.Whens) {
		return c
	}
	return &Case{typed: c.typed, Operand: operand, Whens: whens, Else: elseResult}
}

func sameExpressions(a, b []Expression) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sameWhens(a, b []CaseWhen) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Test != b[i].Test || a[i].Result != b[i].Result {
			return false
		}
	}
	return true
}
