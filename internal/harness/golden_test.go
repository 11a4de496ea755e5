package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSnapshot_Format(t *testing.T) {
	r := NewResult()
	r.Outcomes = []Outcome{
		{Name: "eq", Seq: 1, SQL: "t.a = $1", Parameters: []string{"p"}},
		{Name: "bad", Seq: 2, ErrorCode: "INVALID_SHAPE", Error: "INVALID_SHAPE: x"},
		{Name: "plain", Seq: 3, Error: "unknown op"},
	}

	want := `-- scenario: demo

-- case 1: eq
t.a = $1
-- $1 = @p
-- nullable: false

-- case 2: bad
-- error: INVALID_SHAPE

-- case 3: plain
-- error: ERROR
`
	assert.Equal(t, want, string(Snapshot("demo", r)))
}

func TestAssertGolden_FromResult(t *testing.T) {
	result, err := Run(context.Background(), loadScenario(t, "testdata/scenarios/null_semantics.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	AssertGolden(t, "null_semantics", result)
}
