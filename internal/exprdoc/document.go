// Package exprdoc loads expression documents: YAML or CUE files that
// describe one expression tree, the values its parameters are bound to,
// and how the result is used.
//
// A document is data only. Build turns its tree into factory and
// translator calls, so every node a document names goes through the same
// type inference as a node built in code.
//
//	name: nullable-equality
//	optimized: true
//	parameters:
//	  ids: [1, null, 3]
//	expression:
//	  op: equal
//	  args:
//	    - column: {name: a, type: "int?", nullable: true}
//	    - parameter: {name: p, type: "int?"}
package exprdoc

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

// Document is one expression to translate.
type Document struct {
	Name        string         `yaml:"name" json:"name"`
	Description string         `yaml:"description,omitempty" json:"description,omitempty"`
	Optimized   bool           `yaml:"optimized,omitempty" json:"optimized,omitempty"`
	Parameters  map[string]any `yaml:"parameters,omitempty" json:"parameters,omitempty"`
	Expression  Node           `yaml:"expression" json:"expression"`
}

// Node is one expression node. Exactly one of the leaf fields (Column,
// Constant, Parameter) or one of the operation fields (Op, Function,
// Method, Member, JSON, Case) is set.
type Node struct {
	Column    *ColumnRef    `yaml:"column,omitempty" json:"column,omitempty"`
	Constant  *ConstantRef  `yaml:"constant,omitempty" json:"constant,omitempty"`
	Parameter *ParameterRef `yaml:"parameter,omitempty" json:"parameter,omitempty"`

	// Op names a factory operation ("equal", "like", "any", ...).
	Op   string `yaml:"op,omitempty" json:"op,omitempty"`
	Args []Node `yaml:"args,omitempty" json:"args,omitempty"`

	// Type is the host result type for operations that need one (convert,
	// array, function, atTimeZone, unknownBinary).
	Type string `yaml:"type,omitempty" json:"type,omitempty"`

	// Operator is the raw operator of an unknownBinary, the comparison of
	// any/all ("equal", "like", "ilike") or the name of a PostgreSQL
	// operator for op "pg".
	Operator string `yaml:"operator,omitempty" json:"operator,omitempty"`

	// Options are the regex options, e.g. "IgnoreCase|Multiline".
	Options string `yaml:"options,omitempty" json:"options,omitempty"`

	Function *FunctionRef `yaml:"function,omitempty" json:"function,omitempty"`

	// Method and Member name a registered translation ("Range.Contains").
	Method   string `yaml:"method,omitempty" json:"method,omitempty"`
	Member   string `yaml:"member,omitempty" json:"member,omitempty"`
	Instance *Node  `yaml:"instance,omitempty" json:"instance,omitempty"`

	JSON *JSONRef `yaml:"json,omitempty" json:"json,omitempty"`
	Case *CaseRef `yaml:"case,omitempty" json:"case,omitempty"`
}

// ColumnRef is a column leaf. Table defaults to "t".
type ColumnRef struct {
	Table    string `yaml:"table,omitempty" json:"table,omitempty"`
	Name     string `yaml:"name" json:"name"`
	Type     string `yaml:"type" json:"type"`
	Nullable bool   `yaml:"nullable,omitempty" json:"nullable,omitempty"`
	// StoreType overrides the registry default mapping.
	StoreType string `yaml:"storeType,omitempty" json:"storeType,omitempty"`
}

// ConstantRef is a constant leaf. A missing Type is inferred from Value.
type ConstantRef struct {
	Value any    `yaml:"value" json:"value"`
	Type  string `yaml:"type,omitempty" json:"type,omitempty"`
}

// ParameterRef is a parameter leaf.
type ParameterRef struct {
	Name string `yaml:"name" json:"name"`
	Type string `yaml:"type" json:"type"`
}

// FunctionRef is a function call.
type FunctionRef struct {
	Name     string `yaml:"name" json:"name"`
	Args     []Node `yaml:"args,omitempty" json:"args,omitempty"`
	Nullable bool   `yaml:"nullable,omitempty" json:"nullable,omitempty"`
	// StoreType overrides the registry default mapping of the result.
	StoreType string `yaml:"storeType,omitempty" json:"storeType,omitempty"`
}

// JSONRef is a traversal of a JSON column along constant path steps.
type JSONRef struct {
	Of   Node     `yaml:"of" json:"of"`
	Path []string `yaml:"path" json:"path"`
	Text bool     `yaml:"text,omitempty" json:"text,omitempty"`
}

// CaseRef is a CASE expression.
type CaseRef struct {
	Operand *Node      `yaml:"operand,omitempty" json:"operand,omitempty"`
	Whens   []WhenNode `yaml:"whens" json:"whens"`
	Else    *Node      `yaml:"else,omitempty" json:"else,omitempty"`
}

// WhenNode is one WHEN ... THEN arm.
type WhenNode struct {
	When Node `yaml:"when" json:"when"`
	Then Node `yaml:"then" json:"then"`
}

// schema constrains the top level of CUE documents; nodes are checked by
// Build.
const schema = `
#Document: {
	name:         string & !=""
	description?: string
	optimized?:   bool
	parameters?: [string]: _
	expression: {...}
}
`

// Load reads a document, choosing the decoder by file extension.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read expression document: %w", err)
	}

	var doc *Document
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		doc, err = DecodeYAML(bytes.NewReader(data))
	case ".cue":
		doc, err = DecodeCUE(path, data)
	default:
		return nil, fmt.Errorf("unsupported expression document format %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if doc.Name == "" {
		doc.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return doc, nil
}

// DecodeYAML decodes one document, rejecting unknown fields.
func DecodeYAML(r io.Reader) (*Document, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty expression document")
		}
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return &doc, nil
}

// DecodeCUE evaluates data against the document schema and decodes it.
func DecodeCUE(filename string, data []byte) (*Document, error) {
	ctx := cuecontext.New()
	def := ctx.CompileString(schema).LookupPath(cue.ParsePath("#Document"))
	if err := def.Err(); err != nil {
		return nil, fmt.Errorf("compile document schema: %w", err)
	}

	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("compile cue: %w", err)
	}
	v = def.Unify(v)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("validate cue: %w", err)
	}

	var doc Document
	if err := v.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode cue: %w", err)
	}
	return &doc, nil
}
