package sqlexpr

import (
	"fmt"
	"strings"
)

// UnaryOperator is the operator of a Unary node.
type UnaryOperator uint8

const (
	OpNot UnaryOperator = iota
	OpNegate
	OpIsNull
	OpIsNotNull
	OpConvert
)

var unaryNames = [...]string{
	OpNot:       "Not",
	OpNegate:    "Negate",
	OpIsNull:    "IsNull",
	OpIsNotNull: "IsNotNull",
	OpConvert:   "Convert",
}

func (o UnaryOperator) String() string {
	if int(o) < len(unaryNames) {
		return unaryNames[o]
	}
	return fmt.Sprintf("UnaryOperator(%d)", uint8(o))
}

// BinaryOperator is the operator of a Binary node.
type BinaryOperator uint8

const (
	OpEqual BinaryOperator = iota
	OpNotEqual
	OpLessThan
	OpLessThanOrEqual
	OpGreaterThan
	OpGreaterThanOrEqual
	OpAndAlso
	OpOrElse
	OpAdd
	OpSubtract
	OpMultiply
	OpDivide
	OpModulo
)

var binaryOperators = [...]struct {
	name   string
	symbol string
}{
	OpEqual:              {"Equal", "="},
	OpNotEqual:           {"NotEqual", "<>"},
	OpLessThan:           {"LessThan", "<"},
	OpLessThanOrEqual:    {"LessThanOrEqual", "<="},
	OpGreaterThan:        {"GreaterThan", ">"},
	OpGreaterThanOrEqual: {"GreaterThanOrEqual", ">="},
	OpAndAlso:            {"AndAlso", "AND"},
	OpOrElse:             {"OrElse", "OR"},
	OpAdd:                {"Add", "+"},
	OpSubtract:           {"Subtract", "-"},
	OpMultiply:           {"Multiply", "*"},
	OpDivide:             {"Divide", "/"},
	OpModulo:             {"Modulo", "%"},
}

func (o BinaryOperator) String() string {
	if int(o) < len(binaryOperators) {
		return binaryOperators[o].name
	}
	return fmt.Sprintf("BinaryOperator(%d)", uint8(o))
}

// Symbol returns the SQL rendering of the operator, or "" when o is
// not a declared operator.
func (o BinaryOperator) Symbol() string {
	if int(o) < len(binaryOperators) {
		return binaryOperators[o].symbol
	}
	return ""
}

// IsComparison reports whether the operator compares its operands.
func (o BinaryOperator) IsComparison() bool {
	return o <= OpGreaterThanOrEqual
}

// IsLogical reports whether the operator is AND or OR.
func (o BinaryOperator) IsLogical() bool {
	return o == OpAndAlso || o == OpOrElse
}

// IsArithmetic reports whether the operator is an arithmetic operator.
func (o BinaryOperator) IsArithmetic() bool {
	return o >= OpAdd && o <= OpModulo
}

// AnyOperator is the comparison applied by an Any node.
type AnyOperator uint8

const (
	AnyEqual AnyOperator = iota
	AnyLike
	AnyILike
)

func (o AnyOperator) String() string {
	switch o {
	case AnyEqual:
		return "Equal"
	case AnyLike:
		return "Like"
	case AnyILike:
		return "ILike"
	default:
		return fmt.Sprintf("AnyOperator(%d)", uint8(o))
	}
}

// Symbol returns the SQL rendering of the operator, or "" when o is
// not a declared operator.
func (o AnyOperator) Symbol() string {
	switch o {
	case AnyEqual:
		return "="
	case AnyLike:
		return "LIKE"
	case AnyILike:
		return "ILIKE"
	default:
		return ""
	}
}

// AllOperator is the comparison applied by an All node.
type AllOperator uint8

const (
	AllLike AllOperator = iota
	AllILike
)

func (o AllOperator) String() string {
	switch o {
	case AllLike:
		return "Like"
	case AllILike:
		return "ILike"
	default:
		return fmt.Sprintf("AllOperator(%d)", uint8(o))
	}
}

// Symbol returns the SQL rendering of the operator, or "" when o is
// not a declared operator.
func (o AllOperator) Symbol() string {
	switch o {
	case AllLike:
		return "LIKE"
	case AllILike:
		return "ILIKE"
	default:
		return ""
	}
}

// PgOperator is the operator of a PgBinary node.
type PgOperator uint8

const (
	PgContains PgOperator = iota
	PgContainedBy
	PgOverlaps
	PgAtTimeZone
	PgNetworkContainedByOrEqual
	PgNetworkContainsOrEqual
	PgNetworkContainsOrContainedBy
	PgRangeIsStrictlyLeftOf
	PgRangeIsStrictlyRightOf
	PgRangeDoesNotExtendRightOf
	PgRangeDoesNotExtendLeftOf
	PgRangeIsAdjacentTo
	PgRangeUnion
	PgRangeIntersect
	PgRangeExcept
	PgTextSearchMatch
	PgTextSearchAnd
	PgTextSearchOr
	PgJsonExists
	PgJsonExistsAny
	PgJsonExistsAll
	PgLTreeMatches
	PgLTreeMatchesAny
	PgLTreeFirstAncestor
	PgLTreeFirstDescendent
	PgLTreeFirstMatches
	PgDistanceKnn

	pgOperatorCount
)

// pgOperators is the rendering table for PgOperator, indexed by operator.
var pgOperators = [pgOperatorCount]struct {
	name   string
	symbol string
}{
	PgContains:                     {"Contains", "@>"},
	PgContainedBy:                  {"ContainedBy", "<@"},
	PgOverlaps:                     {"Overlaps", "&&"},
	PgAtTimeZone:                   {"AtTimeZone", "AT TIME ZONE"},
	PgNetworkContainedByOrEqual:    {"NetworkContainedByOrEqual", "<<="},
	PgNetworkContainsOrEqual:       {"NetworkContainsOrEqual", ">>="},
	PgNetworkContainsOrContainedBy: {"NetworkContainsOrContainedBy", "&&"},
	PgRangeIsStrictlyLeftOf:        {"RangeIsStrictlyLeftOf", "<<"},
	PgRangeIsStrictlyRightOf:       {"RangeIsStrictlyRightOf", ">>"},
	PgRangeDoesNotExtendRightOf:    {"RangeDoesNotExtendRightOf", "&<"},
	PgRangeDoesNotExtendLeftOf:     {"RangeDoesNotExtendLeftOf", "&>"},
	PgRangeIsAdjacentTo:            {"RangeIsAdjacentTo", "-|-"},
	PgRangeUnion:                   {"RangeUnion", "+"},
	PgRangeIntersect:               {"RangeIntersect", "*"},
	PgRangeExcept:                  {"RangeExcept", "-"},
	PgTextSearchMatch:              {"TextSearchMatch", "@@"},
	PgTextSearchAnd:                {"TextSearchAnd", "&&"},
	PgTextSearchOr:                 {"TextSearchOr", "||"},
	PgJsonExists:                   {"JsonExists", "?"},
	PgJsonExistsAny:                {"JsonExistsAny", "?|"},
	PgJsonExistsAll:                {"JsonExistsAll", "?&"},
	PgLTreeMatches:                 {"LTreeMatches", "~"},
	PgLTreeMatchesAny:              {"LTreeMatchesAny", "?"},
	PgLTreeFirstAncestor:           {"LTreeFirstAncestor", "?@>"},
	PgLTreeFirstDescendent:         {"LTreeFirstDescendent", "?<@"},
	PgLTreeFirstMatches:            {"LTreeFirstMatches", "?~"},
	PgDistanceKnn:                  {"DistanceKnn", "<->"},
}

var pgOperatorsByName = func() map[string]PgOperator {
	m := make(map[string]PgOperator, pgOperatorCount)
	for i, op := range pgOperators {
		m[strings.ToLower(op.name)] = PgOperator(i)
	}
	return m
}()

func (o PgOperator) String() string {
	if o < pgOperatorCount {
		return pgOperators[o].name
	}
	return fmt.Sprintf("PgOperator(%d)", uint8(o))
}

// Symbol returns the SQL rendering of the operator, or "" when o is
// not a declared operator.
func (o PgOperator) Symbol() string {
	if o < pgOperatorCount {
		return pgOperators[o].symbol
	}
	return ""
}

// PgOperators returns every PgOperator in declaration order.
func PgOperators() []PgOperator {
	out := make([]PgOperator, pgOperatorCount)
	for i := range out {
		out[i] = PgOperator(i)
	}
	return out
}

// ParsePgOperator looks an operator up by name, case-insensitively.
func ParsePgOperator(name string) (PgOperator, error) {
	if op, ok := pgOperatorsByName[strings.ToLower(name)]; ok {
		return op, nil
	}
	return 0, fmt.Errorf("unknown PostgreSQL operator %q", name)
}

// RegexOptions are the matching flags of a RegexMatch node.
type RegexOptions uint8

const (
	RegexNone       RegexOptions = 0
	RegexIgnoreCase RegexOptions = 1 << (iota - 1)
	RegexMultiline
	RegexSingleline
	RegexIgnorePatternWhitespace
)

// Has reports whether every flag in f is set.
func (o RegexOptions) Has(f RegexOptions) bool { return o&f == f }

func (o RegexOptions) String() string {
	if o == RegexNone {
		return "None"
	}
	var parts []string
	for _, f := range []struct {
		flag RegexOptions
		name string
	}{
		{RegexIgnoreCase, "IgnoreCase"},
		{RegexMultiline, "Multiline"},
		{RegexSingleline, "Singleline"},
		{RegexIgnorePatternWhitespace, "IgnorePatternWhitespace"},
	} {
		if o.Has(f.flag) {
			parts = append(parts, f.name)
		}
	}
	return strings.Join(parts, "|")
}

// ParseRegexOptions parses a "|"-separated list of option names.
func ParseRegexOptions(s string) (RegexOptions, error) {
	var o RegexOptions
	if strings.TrimSpace(s) == "" {
		return RegexNone, nil
	}
	for _, part := range strings.Split(s, "|") {
		switch strings.ToLower(strings.TrimSpace(part)) {
		case "none":
		case "ignorecase":
			o |= RegexIgnoreCase
		case "multiline":
			o |= RegexMultiline
		case "singleline":
			o |= RegexSingleline
		case "ignorepatternwhitespace":
			o |= RegexIgnorePatternWhitespace
		default:
			return 0, fmt.Errorf("unknown regex option %q", part)
		}
	}
	return o, nil
}
