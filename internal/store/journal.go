package store

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// IDGenerator produces record IDs.
type IDGenerator interface {
	Generate() string
}

// Sequencer hands out strictly increasing seq numbers.
type Sequencer interface {
	Next() int64
}

// UUIDv7Generator generates time-sortable UUIDv7 record IDs.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
// Panics if UUID generation fails.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Clock is a monotonic logical clock for record ordering.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
type Clock struct {
	seq atomic.Int64
}

// NewClockAt creates a clock whose first Next returns start+1.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number.
func (c *Clock) Next() int64 { return c.seq.Add(1) }

// Journal appends records with generated IDs and seq numbers.
type Journal struct {
	store *Store
	ids   IDGenerator
	clock Sequencer
}

// JournalOption configures a Journal.
type JournalOption func(*Journal)

// WithIDGenerator overrides the UUIDv7 ID generator.
func WithIDGenerator(g IDGenerator) JournalOption {
	return func(j *Journal) { j.ids = g }
}

// WithSequencer overrides the clock resumed from the journal's max seq.
func WithSequencer(s Sequencer) JournalOption {
	return func(j *Journal) { j.clock = s }
}

// NewJournal creates a Journal over s. Unless a sequencer is supplied, the
// clock resumes after the highest seq already stored.
func NewJournal(ctx context.Context, s *Store, opts ...JournalOption) (*Journal, error) {
	j := &Journal{store: s, ids: UUIDv7Generator{}}
	for _, opt := range opts {
		opt(j)
	}
	if j.clock == nil {
		last, err := s.MaxSeq(ctx)
		if err != nil {
			return nil, fmt.Errorf("resume journal: %w", err)
		}
		j.clock = NewClockAt(last)
	}
	return j, nil
}

// Append stamps rec with a fresh ID and seq, writes it and returns the
// stored record. Any ID or seq already set on rec is overwritten.
func (j *Journal) Append(ctx context.Context, rec Record) (Record, error) {
	rec.ID = j.ids.Generate()
	rec.Seq = j.clock.Next()
	if err := j.store.WriteTranslation(ctx, rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}
