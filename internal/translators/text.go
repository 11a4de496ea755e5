package translators

import (
	"strings"

	"github.com/roach88/pgxlate/internal/qerrors"
	"github.com/roach88/pgxlate/internal/sqlexpr"
)

func (t *Translator) registerText() {
	t.static("String.Like", 2, 3, func(_ sqlexpr.Expression, args []sqlexpr.Expression) (sqlexpr.Expression, error) {
		match, pattern, escape := t.likeOperands(args)
		return t.f.Like(match, pattern, escape)
	})
	t.static("String.ILike", 2, 3, func(_ sqlexpr.Expression, args []sqlexpr.Expression) (sqlexpr.Expression, error) {
		match, pattern, escape := t.likeOperands(args)
		return t.f.ILike(match, pattern, escape)
	})
	t.static("Regex.IsMatch", 2, 3, t.regexIsMatch)
}

// likeOperands returns the LIKE operands. PostgreSQL escapes with a
// backslash by default while host patterns have no escape character, so
// without an explicit escape the default is disabled with an empty ESCAPE unless
// the pattern is a constant free of backslashes.
func (t *Translator) likeOperands(args []sqlexpr.Expression) (match, pattern, escape sqlexpr.Expression) {
	match, pattern = args[0], args[1]
	if len(args) == 3 {
		return match, pattern, args[2]
	}
	if c, ok := pattern.(*sqlexpr.Constant); ok {
		if s, ok := c.Value.(string); ok && !strings.Contains(s, `\`) {
			return match, pattern, nil
		}
	}
	return match, pattern, t.f.ConstantOf("")
}

func (t *Translator) regexIsMatch(_ sqlexpr.Expression, args []sqlexpr.Expression) (sqlexpr.Expression, error) {
	options := sqlexpr.RegexNone
	if len(args) == 3 {
		c, ok := args[2].(*sqlexpr.Constant)
		if !ok {
			return nil, qerrors.NewInvalidShapeError("regex options must be a constant")
		}
		switch v := c.Value.(type) {
		case sqlexpr.RegexOptions:
			options = v
		case string:
			parsed, err := sqlexpr.ParseRegexOptions(v)
			if err != nil {
				return nil, qerrors.NewInvalidShapeError("%v", err)
			}
			options = parsed
		default:
			return nil, qerrors.NewInvalidShapeError("regex options constant of type %T", c.Value)
		}
	}
	return t.f.RegexMatch(args[0], args[1], options)
}
