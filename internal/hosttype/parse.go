package hosttype

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidType is returned by Parse for malformed or unknown type names.
var ErrInvalidType = errors.New("invalid host type")

// Parse reads the canonical textual form produced by Type.String.
//
// Grammar:
//
//	type   := base { "?" | "[]" }
//	base   := name | generic "<" type ">"
//	generic:= "List" | "Range" | "Multirange"
func Parse(s string) (*Type, error) {
	p := &typeParser{src: strings.TrimSpace(s)}
	t, err := p.parseType()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.src) {
		return nil, fmt.Errorf("%w: unexpected %q at offset %d in %q", ErrInvalidType, p.src[p.pos:], p.pos, s)
	}
	return t, nil
}

// MustParse is like Parse but panics on error. Intended for tables and tests.
func MustParse(s string) *Type {
	t, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return t
}

type typeParser struct {
	src string
	pos int
}

func (p *typeParser) parseType() (*Type, error) {
	t, err := p.parseBase()
	if err != nil {
		return nil, err
	}
	for p.pos < len(p.src) {
		switch {
		case p.src[p.pos] == '?':
			p.pos++
			t = NullableOf(t)
		case strings.HasPrefix(p.src[p.pos:], "[]"):
			p.pos += 2
			t = ArrayOf(t)
		default:
			return t, nil
		}
	}
	return t, nil
}

func (p *typeParser) parseBase() (*Type, error) {
	start := p.pos
	for p.pos < len(p.src) && isNameByte(p.src[p.pos]) {
		p.pos++
	}
	name := p.src[start:p.pos]
	if name == "" {
		return nil, fmt.Errorf("%w: expected a type name at offset %d in %q", ErrInvalidType, start, p.src)
	}

	if p.pos < len(p.src) && p.src[p.pos] == '<' {
		p.pos++
		inner, err := p.parseType()
		if err != nil {
			return nil, err
		}
		if p.pos >= len(p.src) || p.src[p.pos] != '>' {
			return nil, fmt.Errorf("%w: unterminated generic %q in %q", ErrInvalidType, name, p.src)
		}
		p.pos++
		switch name {
		case "List":
			return ListOf(inner), nil
		case "Range":
			return RangeOf(inner), nil
		case "Multirange":
			return MultirangeOf(inner), nil
		default:
			return nil, fmt.Errorf("%w: unknown generic type %q", ErrInvalidType, name)
		}
	}

	t, ok := Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidType, name)
	}
	return t, nil
}

func isNameByte(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}
