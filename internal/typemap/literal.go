package typemap

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"net/netip"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
)

// GenerateSQLLiteral renders a host value as a SQL literal of this mapping's
// store type. A nil value renders as NULL. Values go through the mapping's
// converter first.
func (m *Mapping) GenerateSQLLiteral(v any) (string, error) {
	if v == nil {
		return "NULL", nil
	}
	if m.converter != nil {
		converted, err := m.converter.ConvertToProvider(v)
		if err != nil {
			return "", fmt.Errorf("convert %s literal: %w", m.storeType, err)
		}
		v = converted
		if m.kind != KindArray {
			// Provider values are rendered by the provider-side mapping.
			return literalFor(m.family, m.storeType, v)
		}
	}

	switch m.kind {
	case KindArray:
		return m.arrayLiteral(v)
	case KindRange:
		return m.rangeLiteral(v)
	default:
		return literalFor(m.family, m.storeType, v)
	}
}

func (m *Mapping) arrayLiteral(v any) (string, error) {
	elems, ok := v.([]any)
	if !ok {
		return "", fmt.Errorf("array literal for %s: expected []any, got %T", m.storeType, v)
	}
	if len(elems) == 0 {
		return "'{}'::" + m.storeType, nil
	}
	parts := make([]string, len(elems))
	for i, e := range elems {
		if e == nil {
			parts[i] = "NULL"
			continue
		}
		s, err := literalFor(m.element.family, m.element.storeType, e)
		if err != nil {
			return "", fmt.Errorf("array literal element %d: %w", i, err)
		}
		parts[i] = s
	}
	return "ARRAY[" + strings.Join(parts, ",") + "]::" + m.storeType, nil
}

func (m *Mapping) rangeLiteral(v any) (string, error) {
	r, ok := v.(Range)
	if !ok {
		return "", fmt.Errorf("range literal for %s: expected typemap.Range, got %T", m.storeType, v)
	}
	if r.Empty {
		return "'empty'::" + m.storeType, nil
	}
	var b strings.Builder
	if r.LowerInclusive && !r.LowerInfinite {
		b.WriteByte('[')
	} else {
		b.WriteByte('(')
	}
	if !r.LowerInfinite && r.Lower != nil {
		b.WriteString(rangeBound(r.Lower))
	}
	b.WriteByte(',')
	if !r.UpperInfinite && r.Upper != nil {
		b.WriteString(rangeBound(r.Upper))
	}
	if r.UpperInclusive && !r.UpperInfinite {
		b.WriteByte(']')
	} else {
		b.WriteByte(')')
	}
	return pq.QuoteLiteral(b.String()) + "::" + m.storeType, nil
}

func rangeBound(v any) string {
	switch x := v.(type) {
	case time.Time:
		return `"` + x.Format("2006-01-02 15:04:05.999999Z07:00") + `"`
	default:
		return fmt.Sprint(v)
	}
}

// literalFor renders one non-null scalar value of the given family.
func literalFor(family Family, storeType string, v any) (string, error) {
	switch family {
	case FamilyBool:
		b, ok := v.(bool)
		if !ok {
			return "", typeErr(storeType, v)
		}
		if b {
			return "TRUE", nil
		}
		return "FALSE", nil

	case FamilyInteger:
		switch x := v.(type) {
		case int:
			return strconv.Itoa(x), nil
		case int16:
			return strconv.FormatInt(int64(x), 10), nil
		case int32:
			return strconv.FormatInt(int64(x), 10), nil
		case int64:
			return strconv.FormatInt(x, 10), nil
		case uint8:
			return strconv.FormatUint(uint64(x), 10), nil
		case uint32:
			return strconv.FormatUint(uint64(x), 10), nil
		case float64:
			if x == math.Trunc(x) {
				return strconv.FormatInt(int64(x), 10), nil
			}
		}
		return "", typeErr(storeType, v)

	case FamilyFloat:
		var f float64
		switch x := v.(type) {
		case float32:
			f = float64(x)
		case float64:
			f = x
		case int:
			f = float64(x)
		default:
			return "", typeErr(storeType, v)
		}
		switch {
		case math.IsNaN(f):
			return "'NaN'::" + storeType, nil
		case math.IsInf(f, 1):
			return "'Infinity'::" + storeType, nil
		case math.IsInf(f, -1):
			return "'-Infinity'::" + storeType, nil
		}
		s := strconv.FormatFloat(f, 'G', -1, 64)
		if storeType == "real" {
			return s + "::real", nil
		}
		return s, nil

	case FamilyNumeric:
		switch x := v.(type) {
		case string:
			if _, err := strconv.ParseFloat(x, 64); err != nil {
				return "", fmt.Errorf("invalid numeric literal %q", x)
			}
			return x, nil
		case float64:
			return strconv.FormatFloat(x, 'f', -1, 64), nil
		case int:
			return strconv.Itoa(x), nil
		case int64:
			return strconv.FormatInt(x, 10), nil
		}
		return "", typeErr(storeType, v)

	case FamilyText, FamilyChar:
		switch x := v.(type) {
		case string:
			return pq.QuoteLiteral(x), nil
		case rune:
			return pq.QuoteLiteral(string(x)), nil
		}
		return "", typeErr(storeType, v)

	case FamilyBytea:
		b, ok := v.([]byte)
		if !ok {
			return "", typeErr(storeType, v)
		}
		return `'\x` + strings.ToUpper(hex.EncodeToString(b)) + `'::bytea`, nil

	case FamilyUUID:
		return typed(storeType, "uuid", v)

	case FamilyTimestamp:
		t, ok := v.(time.Time)
		if !ok {
			return "", typeErr(storeType, v)
		}
		return "TIMESTAMP '" + t.Format("2006-01-02T15:04:05.999999") + "'", nil

	case FamilyTimestampTz:
		t, ok := v.(time.Time)
		if !ok {
			return "", typeErr(storeType, v)
		}
		return "TIMESTAMPTZ '" + t.UTC().Format("2006-01-02T15:04:05.999999") + "Z'", nil

	case FamilyDate:
		t, ok := v.(time.Time)
		if !ok {
			return "", typeErr(storeType, v)
		}
		return "DATE '" + t.Format("2006-01-02") + "'", nil

	case FamilyTime:
		switch x := v.(type) {
		case time.Time:
			return "TIME '" + x.Format("15:04:05.999999") + "'", nil
		case time.Duration:
			return "TIME '" + formatClock(x) + "'", nil
		}
		return "", typeErr(storeType, v)

	case FamilyTimeTz:
		t, ok := v.(time.Time)
		if !ok {
			return "", typeErr(storeType, v)
		}
		return "TIMETZ '" + t.Format("15:04:05.999999-07") + "'", nil

	case FamilyInterval:
		d, ok := v.(time.Duration)
		if !ok {
			return "", typeErr(storeType, v)
		}
		return "INTERVAL '" + formatInterval(d) + "'", nil

	case FamilyJSON, FamilyJSONB:
		var s string
		switch x := v.(type) {
		case string:
			s = x
		case json.RawMessage:
			s = string(x)
		default:
			b, err := json.Marshal(x)
			if err != nil {
				return "", fmt.Errorf("json literal: %w", err)
			}
			s = string(b)
		}
		return pq.QuoteLiteral(s), nil

	case FamilyHstore:
		h, ok := v.(map[string]*string)
		if !ok {
			return "", typeErr(storeType, v)
		}
		return hstoreLiteral(h), nil

	case FamilyNetwork:
		switch x := v.(type) {
		case netip.Addr:
			return strings.ToUpper(storeType) + " '" + x.String() + "'", nil
		case netip.Prefix:
			return strings.ToUpper(storeType) + " '" + x.String() + "'", nil
		case string:
			return strings.ToUpper(storeType) + " " + pq.QuoteLiteral(x), nil
		}
		return "", typeErr(storeType, v)

	case FamilyTsVector, FamilyTsQuery, FamilyLTree, FamilyBit:
		return typed(storeType, strings.ToUpper(storeType), v)

	default:
		return typed(storeType, storeType, v)
	}
}

// typed renders 'value'::type for values whose text form is their literal.
func typed(storeType, cast string, v any) (string, error) {
	var s string
	switch x := v.(type) {
	case string:
		s = x
	case fmt.Stringer:
		s = x.String()
	default:
		return "", typeErr(storeType, v)
	}
	if cast == strings.ToUpper(cast) {
		return cast + " " + pq.QuoteLiteral(s), nil
	}
	return pq.QuoteLiteral(s) + "::" + cast, nil
}

func hstoreLiteral(h map[string]*string) string {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(`"` + escapeHstore(k) + `"=>`)
		if v := h[k]; v == nil {
			b.WriteString("NULL")
		} else {
			b.WriteString(`"` + escapeHstore(*v) + `"`)
		}
	}
	return "HSTORE " + pq.QuoteLiteral(b.String())
}

func escapeHstore(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}

func formatClock(d time.Duration) string {
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	d -= s * time.Second
	out := fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	if d > 0 {
		out += strings.TrimRight(fmt.Sprintf(".%06d", d/time.Microsecond), "0")
	}
	return out
}

func formatInterval(d time.Duration) string {
	sign := ""
	if d < 0 {
		sign = "-"
		d = -d
	}
	days := d / (24 * time.Hour)
	d -= days * 24 * time.Hour
	if days > 0 {
		return fmt.Sprintf("%s%d %s", sign, days, formatClock(d))
	}
	return sign + formatClock(d)
}

func typeErr(storeType string, v any) error {
	return fmt.Errorf("can't generate a %s SQL literal for value of type %T", storeType, v)
}
