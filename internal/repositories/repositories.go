package repositories

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/desertthunder/ampsync/internal/models"
)

// NextSequence atomically increments and returns the next sequence number for the given table.
//
// Sequence numbers give the offline mutation log a stable insertion order independent of ids and timestamps.
func NextSequence(db *sql.DB, table string) (int, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	sequenceTable := table + "_sequence"

	_, err = tx.Exec(fmt.Sprintf("UPDATE %s SET value = value + 1 WHERE id = 1", sequenceTable))
	if err != nil {
		return 0, fmt.Errorf("failed to increment sequence: %w", err)
	}

	var sequence int
	err = tx.QueryRow(fmt.Sprintf("SELECT value FROM %s WHERE id = 1", sequenceTable)).Scan(&sequence)
	if err != nil {
		return 0, fmt.Errorf("failed to get sequence value: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit sequence transaction: %w", err)
	}

	return sequence, nil
}

// upsertAll runs stmt once per item inside a single transaction.
func upsertAll[T any](db *sql.DB, stmt string, items []T, args func(T) []any) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	prepared, err := tx.Prepare(stmt)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer prepared.Close()

	for _, item := range items {
		if _, err := prepared.Exec(args(item)...); err != nil {
			return fmt.Errorf("failed to upsert record: %w", err)
		}
	}

	return tx.Commit()
}

// updateColumn sets a single integer column by id. Unknown ids are not an error.
func updateColumn(db *sql.DB, table, column, id string, value int) error {
	query := fmt.Sprintf("UPDATE %s SET %s = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?", table, column)
	if _, err := db.Exec(query, value, id); err != nil {
		return fmt.Errorf("failed to update %s.%s: %w", table, column, err)
	}
	return nil
}

func countRows(db *sql.DB, table string) (int, error) {
	var n int
	if err := db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return n, nil
}

func clearTable(db *sql.DB, table string) error {
	if _, err := db.Exec(fmt.Sprintf("DELETE FROM %s", table)); err != nil {
		return fmt.Errorf("failed to clear %s: %w", table, err)
	}
	return nil
}

// likePattern builds a LIKE pattern matching query anywhere, escaping wildcards.
func likePattern(query string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.TrimSpace(query)) + "%"
}

func encodeAttributes(attrs []models.MusicAttribute) string {
	if len(attrs) == 0 {
		return "[]"
	}
	data, err := json.Marshal(attrs)
	if err != nil {
		return "[]"
	}
	return string(data)
}

func decodeAttributes(raw string) ([]models.MusicAttribute, error) {
	if raw == "" || raw == "[]" {
		return nil, nil
	}
	var attrs []models.MusicAttribute
	if err := json.Unmarshal([]byte(raw), &attrs); err != nil {
		return nil, fmt.Errorf("failed to decode attributes: %w", err)
	}
	return attrs, nil
}

// scanner is satisfied by both [sql.Row] and [sql.Rows].
type scanner interface {
	Scan(dest ...any) error
}
