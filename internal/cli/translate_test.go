package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslate_Text(t *testing.T) {
	out, err := execute(t, "translate", "testdata/docs")
	require.NoError(t, err)

	assert.Contains(t, out, "✓ nullable-equality\n  (t.a = t.b AND t.a IS NOT NULL AND t.b IS NOT NULL) OR (t.a IS NULL AND t.b IS NULL)\n  nullable: false\n")
	assert.Contains(t, out, "✓ like\n  t.name LIKE $1\n  $1 = @pattern\n  nullable: false\n")
	assert.Contains(t, out, "Translate Summary: 2 translated, 0 failed, 2 total")
}

func TestTranslate_Optimized(t *testing.T) {
	out, err := execute(t, "translate", "--optimized", "testdata/docs/equality.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "  t.a = t.b OR (t.a IS NULL AND t.b IS NULL)\n  nullable: true\n")
}

func TestTranslate_ConfigFile(t *testing.T) {
	out, err := execute(t, "translate", "--config", "testdata/options/pg14_relational.cue", "testdata/docs/equality.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "  t.a = t.b\n  nullable: true\n")
}

func TestTranslate_JSON(t *testing.T) {
	out, err := execute(t, "translate", "--format", "json", "testdata/docs/like.yaml", "testdata/bad/broken.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string          `json:"status"`
		Data   TranslateResult `json:"data"`
		Error  *CLIError       `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeTranslation, resp.Error.Code)

	assert.Equal(t, 2, resp.Data.Total)
	assert.Equal(t, 1, resp.Data.Passed)
	assert.Equal(t, 1, resp.Data.Failed)
	require.Len(t, resp.Data.Documents, 2)

	like := resp.Data.Documents[0]
	assert.Equal(t, "testdata/docs/like.yaml", like.Path)
	assert.Equal(t, "t.name LIKE $1", like.SQL)
	assert.Equal(t, []string{"pattern"}, like.Parameters)

	broken := resp.Data.Documents[1]
	assert.Equal(t, "broken", broken.Name)
	assert.Contains(t, broken.Error, "unknown op")
	assert.Empty(t, broken.SQL)
}

func TestTranslate_FailureExitCode(t *testing.T) {
	out, err := execute(t, "translate", "testdata/bad/broken.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ broken (testdata/bad/broken.yaml)")
	assert.Contains(t, out, "1 failed, 1 total")
}

func TestTranslate_CommandErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing path", []string{"translate", "testdata/nope.yaml"}, "Error [E005]"},
		{"undecodable document", []string{"translate", "testdata/bad/typo.yaml"}, "Error [E004]"},
		{"bad options", []string{"translate", "--config", "testdata/options/typo.yaml", "testdata/docs"}, "Error [E006]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, out, tt.want)
		})
	}
}

func TestTranslate_MissingArgs(t *testing.T) {
	_, err := execute(t, "translate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg")
}

func TestTranslate_JournalsToDatabase(t *testing.T) {
	db := filepath.Join(t.TempDir(), "journal.db")

	_, err := execute(t, "translate", "--db", db, "testdata/docs")
	require.NoError(t, err)
	_, err = execute(t, "translate", "--db", db, "testdata/bad/broken.yaml")
	require.Error(t, err)

	out, err := execute(t, "history", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "[1] nullable-equality: (t.a = t.b AND t.a IS NOT NULL AND t.b IS NOT NULL) OR (t.a IS NULL AND t.b IS NULL)\n"+
		"[2] like: t.name LIKE $1\n"+
		"[3] broken: ")
	assert.Contains(t, out, `unknown op "nope"`)
}
