package typemap

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// unset marks an absent size/precision/scale facet.
const unset = -1

// facets holds the optional parenthesized parts of a store type name.
type facets struct {
	size      int
	precision int
	scale     int
}

var noFacets = facets{size: unset, precision: unset, scale: unset}

// storeTypeName is a parsed store type such as "numeric(10,2)" or "varchar(20)[]".
type storeTypeName struct {
	base    string // as written, without facets, normalized
	facets  facets
	element *storeTypeName // non-nil for array store types
}

var folder = cases.Fold()

// normalizeStoreType applies NFC normalization, case folding and whitespace
// collapsing so lookups are insensitive to how a store type was spelled.
func normalizeStoreType(s string) string {
	s = norm.NFC.String(s)
	s = folder.String(s)
	return strings.Join(strings.Fields(s), " ")
}

// canonicalBases resolves store type aliases to one canonical spelling.
var canonicalBases = map[string]string{
	"int":                         "integer",
	"int4":                        "integer",
	"integer":                     "integer",
	"int2":                        "smallint",
	"smallint":                    "smallint",
	"int8":                        "bigint",
	"bigint":                      "bigint",
	"float4":                      "real",
	"real":                        "real",
	"float8":                      "double precision",
	"double precision":            "double precision",
	"bool":                        "boolean",
	"boolean":                     "boolean",
	"decimal":                     "numeric",
	"numeric":                     "numeric",
	"varchar":                     "character varying",
	"character varying":           "character varying",
	"char":                        "character",
	"character":                   "character",
	"bpchar":                      "character",
	"timestamptz":                 "timestamp with time zone",
	"timestamp with time zone":    "timestamp with time zone",
	"timestamp":                   "timestamp without time zone",
	"timestamp without time zone": "timestamp without time zone",
	"timetz":                      "time with time zone",
	"time with time zone":         "time with time zone",
	"time":                        "time without time zone",
	"time without time zone":      "time without time zone",
	"varbit":                      "bit varying",
	"bit varying":                 "bit varying",
}

// canonicalBase returns the canonical spelling of a normalized base name.
func canonicalBase(base string) string {
	if c, ok := canonicalBases[base]; ok {
		return c
	}
	return base
}

// sizedBases take a single facet meaning length.
var sizedBases = map[string]bool{
	"character varying": true,
	"character":         true,
	"bit":               true,
	"bit varying":       true,
}

// parseStoreType splits a store type into base, facets and array element.
func parseStoreType(s string) (storeTypeName, error) {
	n := normalizeStoreType(s)
	if n == "" {
		return storeTypeName{}, fmt.Errorf("empty store type")
	}

	if strings.HasSuffix(n, "[]") {
		elem, err := parseStoreType(strings.TrimSuffix(n, "[]"))
		if err != nil {
			return storeTypeName{}, err
		}
		return storeTypeName{base: elem.String() + "[]", facets: noFacets, element: &elem}, nil
	}

	open := strings.IndexByte(n, '(')
	if open < 0 {
		return storeTypeName{base: n, facets: noFacets}, nil
	}
	closeIdx := strings.IndexByte(n[open:], ')')
	if closeIdx < 0 {
		return storeTypeName{}, fmt.Errorf("unbalanced parenthesis in store type %q", s)
	}
	closeIdx += open

	base := strings.TrimSpace(strings.TrimSpace(n[:open]) + " " + strings.TrimSpace(n[closeIdx+1:]))
	args := strings.Split(n[open+1:closeIdx], ",")

	f := noFacets
	values := make([]int, 0, len(args))
	for _, a := range args {
		v, err := strconv.Atoi(strings.TrimSpace(a))
		if err != nil || v < 0 {
			return storeTypeName{}, fmt.Errorf("invalid facet %q in store type %q", a, s)
		}
		values = append(values, v)
	}

	switch {
	case len(values) == 1 && sizedBases[canonicalBase(base)]:
		f.size = values[0]
	case len(values) == 1:
		f.precision = values[0]
	case len(values) == 2:
		f.precision, f.scale = values[0], values[1]
	default:
		return storeTypeName{}, fmt.Errorf("too many facets in store type %q", s)
	}

	return storeTypeName{base: base, facets: f}, nil
}

// String renders the store type with its facets.
func (n storeTypeName) String() string {
	if n.element != nil {
		return n.base
	}
	return formatStoreType(n.base, n.facets)
}

// formatStoreType renders base plus facets. Facets of the "with/without time
// zone" spellings go right after the leading keyword, as PostgreSQL expects.
func formatStoreType(base string, f facets) string {
	var args string
	switch {
	case f.size != unset:
		args = fmt.Sprintf("(%d)", f.size)
	case f.precision != unset && f.scale != unset:
		args = fmt.Sprintf("(%d,%d)", f.precision, f.scale)
	case f.precision != unset:
		args = fmt.Sprintf("(%d)", f.precision)
	default:
		return base
	}

	if head, tail, ok := strings.Cut(base, " with"); ok && (head == "timestamp" || head == "time") {
		return head + args + " with" + tail
	}
	return base + args
}
