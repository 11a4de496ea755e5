package translators

import (
	"github.com/roach88/pgxlate/internal/hosttype"
	"github.com/roach88/pgxlate/internal/qerrors"
	"github.com/roach88/pgxlate/internal/sqlexpr"
)

func (t *Translator) registerArray() {
	contains := func(instance sqlexpr.Expression, args []sqlexpr.Expression) (sqlexpr.Expression, error) {
		if err := requireArray(instance); err != nil {
			return nil, err
		}
		return t.f.Any(args[0], instance, sqlexpr.AnyEqual)
	}
	t.onInstance("Array.Contains", 1, contains)
	t.onInstance("List.Contains", 1, contains)

	length := func(instance sqlexpr.Expression) (sqlexpr.Expression, error) {
		if err := requireArray(instance); err != nil {
			return nil, err
		}
		return t.function("cardinality", []sqlexpr.Expression{instance}, hosttype.Int32, nil)
	}
	t.member("Array.Length", length)
	t.member("List.Count", length)

	// Host indexes are zero-based.
	index := func(instance sqlexpr.Expression, args []sqlexpr.Expression) (sqlexpr.Expression, error) {
		oneBased, err := t.f.GenerateOneBasedIndexExpression(args[0])
		if err != nil {
			return nil, err
		}
		return t.f.ArrayIndex(instance, oneBased, nil)
	}
	t.onInstance("Array.Index", 1, index)
	t.onInstance("List.Index", 1, index)
}

func requireArray(e sqlexpr.Expression) error {
	if !hosttype.IsArrayOrList(hosttype.Unwrap(e.Type())) {
		return qerrors.NewInvalidShapeError("array operation over %s", e.Type())
	}
	return nil
}
