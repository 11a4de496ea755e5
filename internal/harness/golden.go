package harness

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// Snapshot renders a result as deterministic text: one block per outcome
// with its SQL, bound parameters and nullability, or its error code.
//
//	-- case 1: nullable-equality
//	t.a = $1 OR (t.a IS NULL AND $1 IS NULL)
//	-- $1 = @p
//	-- nullable: false
func Snapshot(scenarioName string, result *Result) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "-- scenario: %s\n", scenarioName)
	for _, o := range result.Outcomes {
		fmt.Fprintf(&b, "\n-- case %d: %s\n", o.Seq, o.Name)
		if o.Failed() {
			code := o.ErrorCode
			if code == "" {
				code = "ERROR"
			}
			fmt.Fprintf(&b, "-- error: %s\n", code)
			continue
		}
		b.WriteString(o.SQL + "\n")
		for i, p := range o.Parameters {
			fmt.Fprintf(&b, "-- $%d = @%s\n", i+1, p)
		}
		fmt.Fprintf(&b, "-- nullable: %t\n", o.Nullable)
	}
	return []byte(b.String())
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns an error if the scenario cannot run. A snapshot mismatch fails
// t through goldie.
func RunWithGolden(t *testing.T, scenario *Scenario, opts ...Option) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario, opts...)
	if err != nil {
		return nil, err
	}
	AssertGolden(t, scenario.Name, result)
	return result, nil
}

// AssertGolden compares the snapshot of an existing result against the
// golden file for name.
func AssertGolden(t *testing.T, name string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, Snapshot(name, result))
}
