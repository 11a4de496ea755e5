package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pgxlate/internal/testutil"
)

func createTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "journal.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

func testRecord(id string, seq int64, name string) Record {
	return Record{
		ID:          id,
		Seq:         seq,
		Name:        name,
		Input:       "(Binary Equal (Column t.a) (Column t.b))",
		SQL:         "t.a = t.b",
		Parameters:  []string{"p"},
		Nullable:    true,
		OptionsHash: 0xfeedfacecafebeef,
	}
}

func TestOpen_CreatesAndReopens(t *testing.T) {
	s, path := createTestStore(t)
	_, err := os.Stat(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		require.NoError(t, err, "open %d", i)
		require.NoError(t, s.verifyPragma("journal_mode", "wal"))
		require.NoError(t, s.verifyPragma("synchronous", "1"))
		require.NoError(t, s.Close())
	}
}

func TestOpen_CreatesIndexes(t *testing.T) {
	s, _ := createTestStore(t)

	rows, err := s.db.Query(`SELECT name FROM sqlite_master WHERE type = 'index' AND tbl_name = 'translations' AND name LIKE 'idx_%' ORDER BY name`)
	require.NoError(t, err)
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		names = append(names, name)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []string{"idx_translations_error_code", "idx_translations_name"}, names)
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing", "dir", "journal.db"))
	assert.Error(t, err)
}

func TestWriteTranslation_RoundTrip(t *testing.T) {
	s, _ := createTestStore(t)
	ctx := context.Background()

	rec := testRecord("rec-1", 1, "equality")
	require.NoError(t, s.WriteTranslation(ctx, rec))

	got, found, err := s.ReadTranslation(ctx, "rec-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, rec, got)
	assert.False(t, got.Failed())
}

func TestWriteTranslation_DuplicateIDIgnored(t *testing.T) {
	s, _ := createTestStore(t)
	ctx := context.Background()

	first := testRecord("rec-1", 1, "first")
	require.NoError(t, s.WriteTranslation(ctx, first))
	second := testRecord("rec-1", 2, "second")
	require.NoError(t, s.WriteTranslation(ctx, second))

	got, found, err := s.ReadTranslation(ctx, "rec-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "first", got.Name)
}

func TestWriteTranslation_DuplicateSeqRejected(t *testing.T) {
	s, _ := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.WriteTranslation(ctx, testRecord("rec-1", 1, "a")))
	assert.Error(t, s.WriteTranslation(ctx, testRecord("rec-2", 1, "b")))
}

func TestWriteTranslation_EmptyID(t *testing.T) {
	s, _ := createTestStore(t)
	assert.Error(t, s.WriteTranslation(context.Background(), testRecord("", 1, "a")))
}

func TestWriteTranslation_NilParametersStoredEmpty(t *testing.T) {
	s, _ := createTestStore(t)
	ctx := context.Background()

	rec := testRecord("rec-1", 1, "a")
	rec.Parameters = nil
	require.NoError(t, s.WriteTranslation(ctx, rec))

	got, _, err := s.ReadTranslation(ctx, "rec-1")
	require.NoError(t, err)
	assert.Equal(t, []string{}, got.Parameters)
}

func TestReadTranslation_NotFound(t *testing.T) {
	s, _ := createTestStore(t)
	_, found, err := s.ReadTranslation(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestReadHistory_Filters(t *testing.T) {
	s, _ := createTestStore(t)
	ctx := context.Background()

	failed := testRecord("rec-3", 3, "equality")
	failed.SQL = ""
	failed.ErrorCode = "UNRESOLVED_TYPE_MAPPING"
	failed.Error = "UNRESOLVED_TYPE_MAPPING: no mapping"
	for _, rec := range []Record{
		testRecord("rec-2", 2, "any"),
		testRecord("rec-1", 1, "equality"),
		failed,
		testRecord("rec-4", 4, "like"),
	} {
		require.NoError(t, s.WriteTranslation(ctx, rec))
	}

	ids := func(recs []Record) []string {
		out := make([]string, len(recs))
		for i, r := range recs {
			out[i] = r.ID
		}
		return out
	}

	tests := []struct {
		name   string
		filter HistoryFilter
		want   []string
	}{
		{"all in seq order", HistoryFilter{}, []string{"rec-1", "rec-2", "rec-3", "rec-4"}},
		{"by name", HistoryFilter{Name: "equality"}, []string{"rec-1", "rec-3"}},
		{"failed only", HistoryFilter{FailedOnly: true}, []string{"rec-3"}},
		{"most recent two", HistoryFilter{Limit: 2}, []string{"rec-3", "rec-4"}},
		{"no match", HistoryFilter{Name: "missing"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ReadHistory(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestJournal_AppendDeterministic(t *testing.T) {
	s, _ := createTestStore(t)
	ctx := context.Background()

	j, err := NewJournal(ctx, s,
		WithIDGenerator(testutil.NewSequentialIDGenerator("rec")),
		WithSequencer(testutil.NewDeterministicClock()))
	require.NoError(t, err)

	first, err := j.Append(ctx, Record{Name: "a", Input: "(Column t.a)"})
	require.NoError(t, err)
	second, err := j.Append(ctx, Record{Name: "b", Input: "(Column t.b)", ID: "ignored", Seq: 99})
	require.NoError(t, err)

	assert.Equal(t, "rec-0001", first.ID)
	assert.Equal(t, int64(1), first.Seq)
	assert.Equal(t, "rec-0002", second.ID)
	assert.Equal(t, int64(2), second.Seq)

	history, err := s.ReadHistory(ctx, HistoryFilter{})
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "b", history[1].Name)
}

func TestJournal_ResumesAfterMaxSeq(t *testing.T) {
	s, _ := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.WriteTranslation(ctx, testRecord("old", 41, "old")))

	j, err := NewJournal(ctx, s)
	require.NoError(t, err)
	rec, err := j.Append(ctx, Record{Name: "new", Input: "(Column t.a)"})
	require.NoError(t, err)

	assert.Equal(t, int64(42), rec.Seq)
	parsed, err := uuid.Parse(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
}

func TestMaxSeq_Empty(t *testing.T) {
	s, _ := createTestStore(t)
	seq, err := s.MaxSeq(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), seq)
}
