package harness

import (
	"context"
	"fmt"
	"reflect"
	"slices"
	"sort"
	"strings"

	"github.com/roach88/pgxlate/internal/evaluate"
	"github.com/roach88/pgxlate/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes the outcomes to help debug the failure.
type AssertionError struct {
	Type     string    // Assertion type for categorization
	Expected string    // Human-readable expected outcome
	Actual   string    // Human-readable actual outcome
	Outcomes []Outcome // All outcomes for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Outcomes) > 0 {
		fmt.Fprintf(&buf, "\nOutcomes:\n")
		for _, o := range e.Outcomes {
			if o.Failed() {
				fmt.Fprintf(&buf, "  [%d] %s: %s\n", o.Seq, o.Name, o.Error)
			} else {
				fmt.Fprintf(&buf, "  [%d] %s: %s\n", o.Seq, o.Name, o.SQL)
			}
		}
	}
	return buf.String()
}

// checkExpect compares one outcome with its expect clause. A nil clause
// only requires the translation to succeed.
func checkExpect(out Outcome, expect *ExpectClause) []string {
	if expect == nil {
		if out.Failed() {
			return []string{"unexpected error: " + out.Error}
		}
		return nil
	}

	if expect.Error != "" {
		switch {
		case !out.Failed():
			return []string{fmt.Sprintf("expected error %s, translated to %q", expect.Error, out.SQL)}
		case out.ErrorCode != expect.Error:
			return []string{fmt.Sprintf("expected error %s, got %s", expect.Error, out.Error)}
		}
		return nil
	}
	if out.Failed() {
		return []string{"unexpected error: " + out.Error}
	}

	var msgs []string
	if expect.SQL != "" && out.SQL != expect.SQL {
		msgs = append(msgs, fmt.Sprintf("sql: expected %q, got %q", expect.SQL, out.SQL))
	}
	if expect.Nullable != nil && out.Nullable != *expect.Nullable {
		msgs = append(msgs, fmt.Sprintf("nullable: expected %t, got %t", *expect.Nullable, out.Nullable))
	}
	if expect.Parameters != nil && !slices.Equal(expect.Parameters, out.Parameters) {
		msgs = append(msgs, fmt.Sprintf("parameters: expected %v, got %v", expect.Parameters, out.Parameters))
	}
	return msgs
}

// checkTruth evaluates the rewritten tree of a translated case against each
// check's row.
func checkTruth(tr translation, checks []TruthCheck) []string {
	if len(checks) == 0 || tr.expr == nil {
		return nil
	}
	ev := evaluate.New(tr.values)
	var msgs []string
	for i, tc := range checks {
		got, err := ev.Truth(tr.expr, evaluate.Row(tc.Row))
		switch {
		case err != nil:
			msgs = append(msgs, fmt.Sprintf("truth[%d]: %v", i, err))
		case got.String() != tc.Want:
			msgs = append(msgs, fmt.Sprintf("truth[%d]: expected %s, got %s for row %v", i, tc.Want, got, tc.Row))
		}
	}
	return msgs
}

// assertSQLContains checks that the named case translated to SQL containing
// the assertion text.
func assertSQLContains(result *Result, assertion Assertion) error {
	out, ok := result.Outcome(assertion.Case)
	if !ok {
		return &AssertionError{
			Type:     AssertSQLContains,
			Expected: fmt.Sprintf("case %s", assertion.Case),
			Actual:   "no such case",
			Outcomes: result.Outcomes,
		}
	}
	if !strings.Contains(out.SQL, assertion.Text) {
		return &AssertionError{
			Type:     AssertSQLContains,
			Expected: fmt.Sprintf("%s SQL containing %q", assertion.Case, assertion.Text),
			Actual:   fmt.Sprintf("%q", out.SQL),
			Outcomes: result.Outcomes,
		}
	}
	return nil
}

// assertFailureCount checks the number of failed cases.
func assertFailureCount(result *Result, assertion Assertion) error {
	count := 0
	for _, o := range result.Outcomes {
		if o.Failed() {
			count++
		}
	}
	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertFailureCount,
			Expected: fmt.Sprintf("%d failed cases", assertion.Count),
			Actual:   fmt.Sprintf("%d failed cases", count),
			Outcomes: result.Outcomes,
		}
	}
	return nil
}

// assertJournalState reads the latest journal record of the named case and
// checks the expected columns (subset match).
func assertJournalState(ctx context.Context, st *store.Store, assertion Assertion) error {
	history, err := st.ReadHistory(ctx, store.HistoryFilter{Name: assertion.Case, Limit: 1})
	if err != nil {
		return fmt.Errorf("journal_state: failed to read journal: %w", err)
	}
	if len(history) == 0 {
		return &AssertionError{
			Type:     AssertJournalState,
			Expected: fmt.Sprintf("journal record for %s", assertion.Case),
			Actual:   "no record found",
		}
	}

	actual := recordFields(history[0])
	keys := make([]string, 0, len(assertion.Expect))
	for k := range assertion.Expect {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		got, ok := actual[key]
		if !ok {
			return fmt.Errorf("journal_state: unknown field %q", key)
		}
		if !stateValuesEqual(assertion.Expect[key], got) {
			return &AssertionError{
				Type:     AssertJournalState,
				Expected: fmt.Sprintf("%s.%s = %v", assertion.Case, key, assertion.Expect[key]),
				Actual:   fmt.Sprintf("%v", got),
			}
		}
	}
	return nil
}

func recordFields(r store.Record) map[string]any {
	return map[string]any{
		"id":         r.ID,
		"seq":        r.Seq,
		"input":      r.Input,
		"sql":        r.SQL,
		"parameters": r.Parameters,
		"nullable":   r.Nullable,
		"error_code": r.ErrorCode,
		"error":      r.Error,
	}
}

// stateValuesEqual compares a YAML-decoded expected value with a journal
// column value.
func stateValuesEqual(expected, actual any) bool {
	if expected == nil || actual == nil {
		return expected == nil && actual == nil
	}

	switch exp := expected.(type) {
	case int:
		if actualInt, ok := actual.(int64); ok {
			return int64(exp) == actualInt
		}
		return false
	case []any:
		actualStrs, ok := actual.([]string)
		if !ok || len(actualStrs) != len(exp) {
			return false
		}
		for i, e := range exp {
			if s, ok := e.(string); !ok || s != actualStrs[i] {
				return false
			}
		}
		return true
	}

	return reflect.DeepEqual(expected, actual)
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Store *store.Store
	Ctx   context.Context
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides journal access for journal_state assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertSQLContains:
			err = assertSQLContains(result, assertion)
		case AssertFailureCount:
			err = assertFailureCount(result, assertion)
		case AssertJournalState:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: journal_state requires a journal", i)
			} else {
				err = assertJournalState(actx.Ctx, actx.Store, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
