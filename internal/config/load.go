package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/pgxlate/internal/hosttype"
	"github.com/roach88/pgxlate/internal/sqlfactory"
	"github.com/roach88/pgxlate/internal/typemap"
)

// file is the on-disk form of Options, shared by YAML and CUE.
type file struct {
	PostgresVersion         string      `yaml:"postgresVersion,omitempty" json:"postgresVersion,omitempty"`
	Redshift                bool        `yaml:"redshift,omitempty" json:"redshift,omitempty"`
	ReverseNullOrdering     bool        `yaml:"reverseNullOrdering,omitempty" json:"reverseNullOrdering,omitempty"`
	RelationalNulls         bool        `yaml:"relationalNulls,omitempty" json:"relationalNulls,omitempty"`
	AdminDatabase           string      `yaml:"adminDatabase,omitempty" json:"adminDatabase,omitempty"`
	InferencePreference     string      `yaml:"inferencePreference,omitempty" json:"inferencePreference,omitempty"`
	LegacyTimestampBehavior bool        `yaml:"legacyTimestampBehavior,omitempty" json:"legacyTimestampBehavior,omitempty"`
	UserRanges              []fileRange `yaml:"userRanges,omitempty" json:"userRanges,omitempty"`
}

type fileRange struct {
	Name     string `yaml:"name" json:"name"`
	Schema   string `yaml:"schema,omitempty" json:"schema,omitempty"`
	Subtype  string `yaml:"subtype,omitempty" json:"subtype,omitempty"`
	HostType string `yaml:"hostType,omitempty" json:"hostType,omitempty"`
}

// schema constrains CUE option files. Definitions are closed, so unknown
// fields are rejected the same way the YAML decoder rejects them.
const schema = `
#Range: {
	name:      string & != ""
	schema?:   string
	subtype?:  string
	hostType?: string
}

#Options: {
	postgresVersion?:         =~"^[0-9]+(\\.[0-9]+)?$"
	redshift?:                bool
	reverseNullOrdering?:     bool
	relationalNulls?:         bool
	adminDatabase?:           string & != ""
	inferencePreference?:     "left" | "right"
	legacyTimestampBehavior?: bool
	userRanges?: [...#Range]
}
`

// Load reads options from a .yaml/.yml or .cue file and validates them.
func Load(path string) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Options{}, fmt.Errorf("read options: %w", err)
	}

	var f file
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		err = decodeYAML(data, &f)
	case ".cue":
		err = decodeCUE(path, data, &f)
	default:
		return Options{}, fmt.Errorf("options file %s: unsupported extension (want .yaml, .yml or .cue)", path)
	}
	if err != nil {
		return Options{}, fmt.Errorf("options file %s: %w", path, err)
	}

	o, err := f.options()
	if err != nil {
		return Options{}, fmt.Errorf("options file %s: %w", path, err)
	}
	if err := o.Validate(); err != nil {
		return Options{}, fmt.Errorf("options file %s: %w", path, err)
	}
	return o, nil
}

func decodeYAML(data []byte, f *file) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(f); err != nil {
		return fmt.Errorf("parse YAML: %w", err)
	}
	return nil
}

func decodeCUE(path string, data []byte, f *file) error {
	ctx := cuecontext.New()
	def := ctx.CompileString(schema).LookupPath(cue.ParsePath("#Options"))
	if err := def.Err(); err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}

	v := ctx.CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return fmt.Errorf("compile CUE: %w", err)
	}
	unified := def.Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("validate CUE: %w", err)
	}
	if err := unified.Decode(f); err != nil {
		return fmt.Errorf("decode CUE: %w", err)
	}
	return nil
}

func (f file) options() (Options, error) {
	o := Default().
		WithRedshift(f.Redshift).
		WithReverseNullOrdering(f.ReverseNullOrdering).
		WithRelationalNulls(f.RelationalNulls).
		WithAdminDatabase(f.AdminDatabase).
		WithLegacyTimestampBehavior(f.LegacyTimestampBehavior)

	if f.PostgresVersion != "" {
		v, err := ParsePostgresVersion(f.PostgresVersion)
		if err != nil {
			return Options{}, err
		}
		o = o.WithPostgresVersion(v)
	}

	p, err := sqlfactory.ParseInferencePreference(f.InferencePreference)
	if err != nil {
		return Options{}, err
	}
	o = o.WithInferencePreference(p)

	for _, r := range f.UserRanges {
		u := typemap.UserRange{RangeName: r.Name, SchemaName: r.Schema, SubtypeName: r.Subtype}
		if r.HostType != "" {
			t, err := hosttype.Parse(r.HostType)
			if err != nil {
				return Options{}, fmt.Errorf("user range %s: %w", r.Name, err)
			}
			u.SubtypeClr = t
		}
		o = o.WithUserRangeDefinition(u)
	}
	return o, nil
}

// Marshal renders o in the YAML form Load reads.
func Marshal(o Options) ([]byte, error) {
	f := file{
		Redshift:                o.redshift,
		ReverseNullOrdering:     o.reverseNullOrdering,
		RelationalNulls:         o.relationalNulls,
		AdminDatabase:           o.adminDatabase,
		LegacyTimestampBehavior: o.legacyTimestamps,
	}
	if v, ok := o.ExplicitPostgresVersion(); ok {
		f.PostgresVersion = v.String()
	}
	if o.inferencePreference != sqlfactory.PreferLeft {
		f.InferencePreference = o.inferencePreference.String()
	}
	for _, r := range o.userRanges {
		fr := fileRange{Name: r.RangeName, Schema: r.SchemaName, Subtype: r.SubtypeName}
		if r.SubtypeClr != nil {
			fr.HostType = r.SubtypeClr.String()
		}
		f.UserRanges = append(f.UserRanges, fr)
	}
	return yaml.Marshal(f)
}
