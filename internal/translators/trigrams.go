package translators

import (
	"github.com/roach88/pgxlate/internal/hosttype"
	"github.com/roach88/pgxlate/internal/sqlexpr"
)

// pg_trgm functions and operators.
var (
	trigramFunctions = map[string]struct {
		name string
		typ  *hosttype.Type
		args int
	}{
		"Trigrams.Show":                 {"show_trgm", hosttype.ArrayOf(hosttype.String), 1},
		"Trigrams.Similarity":           {"similarity", hosttype.Float64, 2},
		"Trigrams.WordSimilarity":       {"word_similarity", hosttype.Float64, 2},
		"Trigrams.StrictWordSimilarity": {"strict_word_similarity", hosttype.Float64, 2},
	}

	trigramBoolOperators = map[string]string{
		"Trigrams.AreSimilar":              "%",
		"Trigrams.AreWordSimilar":          "<%",
		"Trigrams.AreNotWordSimilar":       "%>",
		"Trigrams.AreStrictWordSimilar":    "<<%",
		"Trigrams.AreNotStrictWordSimilar": "%>>",
	}

	trigramDistanceOperators = map[string]string{
		"Trigrams.SimilarityDistance":                   "<->",
		"Trigrams.WordSimilarityDistance":               "<<->",
		"Trigrams.WordSimilarityDistanceInverted":       "<->>",
		"Trigrams.StrictWordSimilarityDistance":         "<<<->",
		"Trigrams.StrictWordSimilarityDistanceInverted": "<->>>",
	}
)

func (t *Translator) registerTrigrams() {
	for name, fn := range trigramFunctions {
		name, fn := name, fn
		t.static(name, fn.args, fn.args, func(_ sqlexpr.Expression, args []sqlexpr.Expression) (sqlexpr.Expression, error) {
			return t.function(fn.name, args, fn.typ, nil)
		})
	}
	for name, op := range trigramBoolOperators {
		name, op := name, op
		t.static(name, 2, 2, func(_ sqlexpr.Expression, args []sqlexpr.Expression) (sqlexpr.Expression, error) {
			return t.f.UnknownBinary(args[0], args[1], op, hosttype.Bool, t.f.BoolMapping())
		})
	}
	for name, op := range trigramDistanceOperators {
		name, op := name, op
		t.static(name, 2, 2, func(_ sqlexpr.Expression, args []sqlexpr.Expression) (sqlexpr.Expression, error) {
			return t.f.UnknownBinary(args[0], args[1], op, hosttype.Float64, nil)
		})
	}
}
