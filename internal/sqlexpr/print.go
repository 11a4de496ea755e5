package sqlexpr

import (
	"fmt"
	"strings"
)

// Format renders e as a compact, deterministic S-expression for logs,
// golden files and the CLI. Mappings are shown as ":store" suffixes.
func Format(e Expression) string {
	var b strings.Builder
	format(&b, e)
	return b.String()
}

func format(b *strings.Builder, e Expression) {
	if e == nil {
		b.WriteString("nil")
		return
	}

	b.WriteByte('(')
	b.WriteString(e.Kind().String())
	switch x := e.(type) {
	case *Column:
		fmt.Fprintf(b, " %s.%s", x.Table, x.Name)
		if x.Nullable {
			b.WriteString(" nullable")
		}
	case *Constant:
		fmt.Fprintf(b, " %#v", x.Value)
	case *Parameter:
		fmt.Fprintf(b, " @%s", x.Name)
	case *Unary:
		b.WriteString(" " + x.Op.String())
	case *Binary:
		b.WriteString(" " + x.Op.String())
	case *Function:
		b.WriteString(" " + x.Name)
	case *Any:
		b.WriteString(" " + x.Op.String())
	case *All:
		b.WriteString(" " + x.Op.String())
	case *PgBinary:
		b.WriteString(" " + x.Op.String())
	case *RegexMatch:
		b.WriteString(" " + x.Options.String())
	case *JsonTraversal:
		if x.ReturnsText {
			b.WriteString(" text")
		}
	case *UnknownBinary:
		b.WriteString(" " + x.Operator)
	}
	if m := e.TypeMapping(); m != nil {
		b.WriteString(" :" + m.StoreType())
	}
	for _, c := range Children(e) {
		b.WriteByte(' ')
		format(b, c)
	}
	b.WriteByte(')')
}
