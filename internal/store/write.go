package store

import (
	"context"
	"fmt"
)

// Record is one journaled translation.
type Record struct {
	ID   string
	Seq  int64
	Name string

	// Input is the S-expression form of the tree before null compensation.
	Input      string
	SQL        string
	Parameters []string
	Nullable   bool

	// ErrorCode and Error are empty for successful translations.
	ErrorCode string
	Error     string

	OptionsHash uint64
}

// Failed reports whether the translation failed.
func (r Record) Failed() bool { return r.Error != "" }

// WriteTranslation inserts a record into the store.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - duplicate IDs are silently ignored.
// A different record reusing an existing seq is still an error.
func (s *Store) WriteTranslation(ctx context.Context, rec Record) error {
	if rec.ID == "" {
		return fmt.Errorf("write translation: empty id")
	}
	params, err := marshalParameters(rec.Parameters)
	if err != nil {
		return fmt.Errorf("write translation: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO translations
		(id, seq, name, input, output_sql, parameters, nullable, error_code, error, options_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		rec.ID,
		rec.Seq,
		rec.Name,
		rec.Input,
		rec.SQL,
		params,
		rec.Nullable,
		rec.ErrorCode,
		rec.Error,
		formatHash(rec.OptionsHash),
	)
	if err != nil {
		return fmt.Errorf("write translation: %w", err)
	}

	return nil
}
