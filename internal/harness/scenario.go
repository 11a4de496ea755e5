package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/pgxlate/internal/exprdoc"
)

// Scenario is a suite of expression documents translated under one set of
// options, with per-case expectations and suite-level assertions.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Options is an optional options file (.yaml or .cue). Without one the
	// scenario runs under default options.
	Options string `yaml:"options,omitempty"`

	// Cases are translated in order.
	Cases []Case `yaml:"cases"`

	// Assertions validate the outcomes and the journal after all cases ran.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Case is one expression document to translate. Exactly one of Document
// and Inline is set.
type Case struct {
	// Document is a path to a .yaml or .cue expression document.
	Document string `yaml:"document,omitempty"`

	// Inline is an expression document embedded in the scenario.
	Inline *exprdoc.Document `yaml:"inline,omitempty"`

	// Expect specifies the expected translation. If nil, the case only has
	// to translate without error.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies an expected translation. Unset fields are not
// checked.
type ExpectClause struct {
	SQL        string   `yaml:"sql,omitempty"`
	Nullable   *bool    `yaml:"nullable,omitempty"`
	Parameters []string `yaml:"parameters,omitempty"`

	// Error is the expected error code, e.g. UNRESOLVED_TYPE_MAPPING. A case
	// expecting an error fails when it translates.
	Error string `yaml:"error,omitempty"`

	// Truth evaluates the rewritten tree against rows under SQL
	// three-valued logic.
	Truth []TruthCheck `yaml:"truth,omitempty"`
}

// TruthCheck is one row and the predicate result expected for it: TRUE,
// FALSE or UNKNOWN.
type TruthCheck struct {
	Row  map[string]any `yaml:"row"`
	Want string         `yaml:"want"`
}

// Assertion validates the scenario's outcomes as a whole.
type Assertion struct {
	// Type specifies the assertion type:
	// - "sql_contains": the named case's SQL contains Text
	// - "failure_count": exactly Count cases failed
	// - "journal_state": the journal record of the named case has the
	//   Expect field values
	Type string `yaml:"type"`

	// Case is the document name (used by sql_contains and journal_state).
	Case string `yaml:"case,omitempty"`

	// Text is the expected SQL fragment (used by sql_contains).
	Text string `yaml:"text,omitempty"`

	// Count is the expected number of failed cases (used by failure_count).
	Count int `yaml:"count,omitempty"`

	// Expect contains expected journal columns (used by journal_state).
	// Subset match: only specified fields are validated.
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertSQLContains  = "sql_contains"
	AssertFailureCount = "failure_count"
	AssertJournalState = "journal_state"
)

// LoadScenario reads and parses a scenario YAML file. Document and options
// paths are resolved relative to the scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	base := filepath.Dir(path)
	if scenario.Options != "" && !filepath.IsAbs(scenario.Options) {
		scenario.Options = filepath.Join(base, scenario.Options)
	}
	for i, c := range scenario.Cases {
		if c.Document != "" && !filepath.IsAbs(c.Document) {
			scenario.Cases[i].Document = filepath.Join(base, c.Document)
		}
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Cases) == 0 {
		return fmt.Errorf("cases list is required and must be non-empty")
	}

	if s.Options != "" {
		if _, err := os.Stat(s.Options); os.IsNotExist(err) {
			return fmt.Errorf("options file not found: %s", s.Options)
		}
	}

	for i, c := range s.Cases {
		switch {
		case c.Document == "" && c.Inline == nil:
			return fmt.Errorf("cases[%d]: document or inline is required", i)
		case c.Document != "" && c.Inline != nil:
			return fmt.Errorf("cases[%d]: document and inline are mutually exclusive", i)
		case c.Inline != nil && c.Inline.Name == "":
			return fmt.Errorf("cases[%d]: inline document needs a name", i)
		}
		if c.Document != "" {
			if _, err := os.Stat(c.Document); os.IsNotExist(err) {
				return fmt.Errorf("cases[%d]: document not found: %s", i, c.Document)
			}
		}
		if e := c.Expect; e != nil && e.Error != "" && (e.SQL != "" || e.Nullable != nil || len(e.Parameters) > 0 || len(e.Truth) > 0) {
			return fmt.Errorf("cases[%d].expect: error excludes sql, nullable, parameters and truth", i)
		}
		if c.Expect != nil {
			for j, tc := range c.Expect.Truth {
				switch tc.Want {
				case "TRUE", "FALSE", "UNKNOWN":
				default:
					return fmt.Errorf("cases[%d].expect.truth[%d]: want must be TRUE, FALSE or UNKNOWN, got %q", i, j, tc.Want)
				}
			}
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertSQLContains:
		if a.Case == "" || a.Text == "" {
			return fmt.Errorf("assertions[%d]: case and text are required for sql_contains", index)
		}
	case AssertFailureCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for failure_count", index)
		}
	case AssertJournalState:
		if a.Case == "" {
			return fmt.Errorf("assertions[%d]: case is required for journal_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for journal_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
