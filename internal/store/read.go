package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

const recordColumns = `id, seq, name, input, output_sql, parameters, nullable, error_code, error, options_hash`

// HistoryFilter narrows ReadHistory.
type HistoryFilter struct {
	// Name keeps only records with this name when non-empty.
	Name string

	// FailedOnly keeps only failed translations.
	FailedOnly bool

	// Limit keeps only the most recent Limit records when positive.
	Limit int
}

// ReadTranslation returns the record with the given ID.
// Returns found=false if no such record exists.
func (s *Store) ReadTranslation(ctx context.Context, id string) (Record, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM translations WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, err
	}
	return rec, true, nil
}

// ReadHistory returns journaled translations ordered by seq ASC, id ASC.
// With a positive Limit, the most recent records are kept but the result
// is still in ascending order.
//
// Returns an empty slice (not nil) if no records match.
func (s *Store) ReadHistory(ctx context.Context, f HistoryFilter) ([]Record, error) {
	var (
		where []string
		args  []any
	)
	if f.Name != "" {
		where = append(where, "name = ?")
		args = append(args, f.Name)
	}
	if f.FailedOnly {
		where = append(where, "error <> ''")
	}

	query := `SELECT ` + recordColumns + ` FROM translations`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	if f.Limit > 0 {
		query = `SELECT * FROM (` + query + ` ORDER BY seq DESC, id COLLATE BINARY DESC LIMIT ?)`
		args = append(args, f.Limit)
	}
	query += ` ORDER BY seq ASC, id COLLATE BINARY ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query translations: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate translations: %w", err)
	}
	return records, nil
}

// MaxSeq returns the highest seq in the journal, or 0 when it is empty.
// A clock resuming an existing journal starts here.
func (s *Store) MaxSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM translations`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("query max seq: %w", err)
	}
	return seq.Int64, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (Record, error) {
	var (
		rec    Record
		params string
		hash   string
	)
	err := sc.Scan(
		&rec.ID,
		&rec.Seq,
		&rec.Name,
		&rec.Input,
		&rec.SQL,
		&params,
		&rec.Nullable,
		&rec.ErrorCode,
		&rec.Error,
		&hash,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, err
		}
		return Record{}, fmt.Errorf("scan translation: %w", err)
	}
	if rec.Parameters, err = unmarshalParameters(params); err != nil {
		return Record{}, err
	}
	if rec.OptionsHash, err = parseHash(hash); err != nil {
		return Record{}, err
	}
	return rec, nil
}
