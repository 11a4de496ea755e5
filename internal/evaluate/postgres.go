package evaluate

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dlclark/regexp2"

	"github.com/roach88/pgxlate/internal/sqlexpr"
)

// elementwise folds a predicate over array elements the way ANY and ALL
// do: an empty array decides emptyResult, NULL outcomes are remembered.
func elementwise(elems []any, emptyResult bool, short Truth, test func(el any) (Truth, error)) (any, error) {
	if len(elems) == 0 {
		return emptyResult, nil
	}
	sawUnknown := false
	for _, el := range elems {
		t, err := test(el)
		if err != nil {
			return nil, err
		}
		switch t {
		case short:
			return short == True, nil
		case Unknown:
			sawUnknown = true
		}
	}
	if sawUnknown {
		return nil, nil
	}
	return short != True, nil
}

func (ev *Evaluator) quantified(itemExpr, arrayExpr sqlexpr.Expression, row Row) (any, []any, bool, error) {
	item, array, err := ev.pair(itemExpr, arrayExpr, row)
	if err != nil || array == nil {
		return nil, nil, false, err
	}
	elems, err := toSlice(array)
	if err != nil {
		return nil, nil, false, err
	}
	return item, elems, true, nil
}

func (ev *Evaluator) any(a *sqlexpr.Any, row Row) (any, error) {
	item, elems, ok, err := ev.quantified(a.Item, a.Array, row)
	if err != nil || !ok {
		return nil, err
	}
	return elementwise(elems, false, True, func(el any) (Truth, error) {
		if item == nil || el == nil {
			return Unknown, nil
		}
		switch a.Op {
		case sqlexpr.AnyEqual:
			c, err := compare(item, el)
			if err != nil {
				return Unknown, err
			}
			return boolTruth(c == 0), nil
		default:
			return likeTruth(item, el, nil, a.Op == sqlexpr.AnyILike)
		}
	})
}

func (ev *Evaluator) all(a *sqlexpr.All, row Row) (any, error) {
	item, elems, ok, err := ev.quantified(a.Item, a.Array, row)
	if err != nil || !ok {
		return nil, err
	}
	return elementwise(elems, true, False, func(el any) (Truth, error) {
		if item == nil || el == nil {
			return Unknown, nil
		}
		return likeTruth(item, el, nil, a.Op == sqlexpr.AllILike)
	})
}

func boolTruth(b bool) Truth {
	if b {
		return True
	}
	return False
}

func (ev *Evaluator) arrayIndex(a *sqlexpr.ArrayIndex, row Row) (any, error) {
	array, index, err := ev.pair(a.Array, a.Index, row)
	if err != nil || array == nil || index == nil {
		return nil, err
	}
	elems, err := toSlice(array)
	if err != nil {
		return nil, err
	}
	i, ok := toFloat(index)
	if !ok {
		return nil, fmt.Errorf("array index %v (%T) is not an integer", index, index)
	}
	pos := int(i) - 1
	if pos < 0 || pos >= len(elems) {
		return nil, nil
	}
	return elems[pos], nil
}

func (ev *Evaluator) pgBinary(b *sqlexpr.PgBinary, row Row) (any, error) {
	lv, rv, err := ev.pair(b.Left, b.Right, row)
	if err != nil || lv == nil || rv == nil {
		return nil, err
	}

	switch b.Op {
	case sqlexpr.PgContains, sqlexpr.PgContainedBy, sqlexpr.PgOverlaps:
	default:
		return nil, fmt.Errorf("cannot evaluate %s", b.Op)
	}

	left, err := toSlice(lv)
	if err != nil {
		return nil, err
	}
	right, err := toSlice(rv)
	if err != nil {
		return nil, err
	}
	switch b.Op {
	case sqlexpr.PgContains:
		return containsAll(left, right), nil
	case sqlexpr.PgContainedBy:
		return containsAll(right, left), nil
	default:
		for _, el := range right {
			if contains(left, el) {
				return true, nil
			}
		}
		return false, nil
	}
}

// contains reports whether elems holds el. NULL elements never match.
func contains(elems []any, el any) bool {
	if el == nil {
		return false
	}
	for _, x := range elems {
		if x == nil {
			continue
		}
		if c, err := compare(x, el); err == nil && c == 0 {
			return true
		}
	}
	return false
}

func containsAll(container, containee []any) bool {
	for _, el := range containee {
		if !contains(container, el) {
			return false
		}
	}
	return true
}

func (ev *Evaluator) like(matchExpr, patternExpr, escapeExpr sqlexpr.Expression, ignoreCase bool, row Row) (any, error) {
	match, pattern, err := ev.pair(matchExpr, patternExpr, row)
	if err != nil {
		return nil, err
	}
	var escape any = `\`
	if escapeExpr != nil {
		if escape, err = ev.Eval(escapeExpr, row); err != nil {
			return nil, err
		}
		if escape == nil {
			return nil, nil
		}
	}
	if match == nil || pattern == nil {
		return nil, nil
	}
	t, err := likeTruth(match, pattern, escape, ignoreCase)
	return fromTruth(t), err
}

func likeTruth(match, pattern, escape any, ignoreCase bool) (Truth, error) {
	m, ok := match.(string)
	if !ok {
		return Unknown, fmt.Errorf("LIKE match %v (%T) is not text", match, match)
	}
	p, ok := pattern.(string)
	if !ok {
		return Unknown, fmt.Errorf("LIKE pattern %v (%T) is not text", pattern, pattern)
	}
	if escape == nil {
		escape = `\`
	}
	esc, ok := escape.(string)
	if !ok {
		return Unknown, fmt.Errorf("LIKE escape %v (%T) is not text", escape, escape)
	}

	opts := regexp2.RegexOptions(regexp2.Singleline)
	if ignoreCase {
		opts |= regexp2.IgnoreCase
	}
	re, err := regexp2.Compile(likeToRegex(p, esc), opts)
	if err != nil {
		return Unknown, fmt.Errorf("compile LIKE pattern %q: %w", p, err)
	}
	ok, err = re.MatchString(m)
	if err != nil {
		return Unknown, err
	}
	return boolTruth(ok), nil
}

// likeToRegex translates a LIKE pattern. An empty escape disables escaping.
func likeToRegex(pattern, escape string) string {
	var sb strings.Builder
	sb.WriteString(`\A`)
	runes := []rune(pattern)
	escRunes := []rune(escape)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case len(escRunes) == 1 && r == escRunes[0] && i+1 < len(runes):
			i++
			sb.WriteString(regexp2.Escape(string(runes[i])))
		case r == '%':
			sb.WriteString(".*")
		case r == '_':
			sb.WriteString(".")
		default:
			sb.WriteString(regexp2.Escape(string(r)))
		}
	}
	sb.WriteString(`\z`)
	return sb.String()
}

var regexFlags = []struct {
	option sqlexpr.RegexOptions
	flag   regexp2.RegexOptions
}{
	{sqlexpr.RegexIgnoreCase, regexp2.IgnoreCase},
	{sqlexpr.RegexMultiline, regexp2.Multiline},
	{sqlexpr.RegexSingleline, regexp2.Singleline},
	{sqlexpr.RegexIgnorePatternWhitespace, regexp2.IgnorePatternWhitespace},
}

func (ev *Evaluator) regexMatch(r *sqlexpr.RegexMatch, row Row) (any, error) {
	match, pattern, err := ev.pair(r.Match, r.Pattern, row)
	if err != nil || match == nil || pattern == nil {
		return nil, err
	}
	m, ok := match.(string)
	if !ok {
		return nil, fmt.Errorf("regex match %v (%T) is not text", match, match)
	}
	p, ok := pattern.(string)
	if !ok {
		return nil, fmt.Errorf("regex pattern %v (%T) is not text", pattern, pattern)
	}

	var opts regexp2.RegexOptions
	for _, f := range regexFlags {
		if r.Options.Has(f.option) {
			opts |= f.flag
		}
	}
	re, err := regexp2.Compile(p, opts)
	if err != nil {
		return nil, fmt.Errorf("compile regex %q: %w", p, err)
	}
	return re.MatchString(m)
}

func (ev *Evaluator) jsonTraversal(j *sqlexpr.JsonTraversal, row Row) (any, error) {
	cur, err := ev.Eval(j.Root, row)
	if err != nil || cur == nil {
		return nil, err
	}
	if s, ok := cur.(string); ok {
		if err := json.Unmarshal([]byte(s), &cur); err != nil {
			return nil, fmt.Errorf("parse json root: %w", err)
		}
	}

	for _, component := range j.Path {
		step, err := ev.Eval(component, row)
		if err != nil {
			return nil, err
		}
		if cur, err = jsonStep(cur, step); err != nil || cur == nil {
			return nil, err
		}
	}

	if !j.ReturnsText {
		return cur, nil
	}
	if s, ok := cur.(string); ok {
		return s, nil
	}
	b, err := json.Marshal(cur)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func jsonStep(cur, step any) (any, error) {
	switch c := cur.(type) {
	case map[string]any:
		key, ok := step.(string)
		if !ok {
			return nil, nil
		}
		return c[key], nil
	case []any:
		i, ok := toFloat(step)
		if !ok {
			return nil, nil
		}
		pos := int(i)
		if pos < 0 {
			pos += len(c)
		}
		if pos < 0 || pos >= len(c) {
			return nil, nil
		}
		return c[pos], nil
	default:
		return nil, nil
	}
}
