package translators

import (
	"github.com/roach88/pgxlate/internal/hosttype"
	"github.com/roach88/pgxlate/internal/qerrors"
	"github.com/roach88/pgxlate/internal/sqlexpr"
)

// toStringTypes render with a plain text cast.
var toStringTypes = map[*hosttype.Type]bool{
	hosttype.Byte:           true,
	hosttype.Int16:          true,
	hosttype.Int32:          true,
	hosttype.Int64:          true,
	hosttype.UInt32:         true,
	hosttype.Float32:        true,
	hosttype.Float64:        true,
	hosttype.Decimal:        true,
	hosttype.String:         true,
	hosttype.Char:           true,
	hosttype.UUID:           true,
	hosttype.DateTime:       true,
	hosttype.DateTimeOffset: true,
	hosttype.DateOnly:       true,
	hosttype.TimeOnly:       true,
	hosttype.TimeSpan:       true,
}

func (t *Translator) registerObject() {
	t.onInstance("Object.ToString", 0, func(instance sqlexpr.Expression, _ []sqlexpr.Expression) (sqlexpr.Expression, error) {
		return t.toString(instance)
	})
	t.static("Functions.Random", 0, 0, func(_ sqlexpr.Expression, _ []sqlexpr.Expression) (sqlexpr.Expression, error) {
		return t.f.Function("random", nil, false, nil, hosttype.Float64, nil)
	})
}

func (t *Translator) toString(instance sqlexpr.Expression) (sqlexpr.Expression, error) {
	typ := hosttype.Unwrap(instance.Type())
	if typ != hosttype.Bool {
		if !toStringTypes[typ] {
			return nil, qerrors.NewUnsupportedExpressionError("ToString over " + typ.String())
		}
		return t.f.Convert(instance, hosttype.String, nil)
	}

	isFalse, err := t.f.Equal(instance, t.f.ConstantOf(false))
	if err != nil {
		return nil, err
	}
	whens := []sqlexpr.CaseWhen{{Test: isFalse, Result: t.f.ConstantOf("False")}}

	col, ok := instance.(*sqlexpr.Column)
	if !ok || !col.Nullable {
		return t.f.Case(nil, whens, t.f.ConstantOf("True"), nil)
	}
	// A nullable column maps NULL to NULL rather than to "True".
	isTrue, err := t.f.Equal(instance, t.f.ConstantOf(true))
	if err != nil {
		return nil, err
	}
	whens = append(whens, sqlexpr.CaseWhen{Test: isTrue, Result: t.f.ConstantOf("True")})
	return t.f.Case(nil, whens, t.f.Constant(nil, hosttype.String, nil), nil)
}
