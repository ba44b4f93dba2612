package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/ampsync/internal/models"
	"github.com/desertthunder/ampsync/internal/shared"
)

// OfflineRepository stores the append-only log of [models.OfflineMutation] records.
type OfflineRepository struct {
	db *sql.DB
}

// NewOfflineRepository creates a new OfflineRepository with the given database connection
func NewOfflineRepository(db *sql.DB) *OfflineRepository {
	return &OfflineRepository{db: db}
}

// Enqueue appends m to the log, assigning its id, sequence and timestamp.
//
// Repeated mutations of the same target are kept as separate records.
func (r *OfflineRepository) Enqueue(m *models.OfflineMutation) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "offline_mutations")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	m.ID = shared.GenerateID()
	m.Sequence = sequence
	m.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO offline_mutations (id, sequence, kind, target_id, type, value, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query, m.ID, m.Sequence, string(m.Kind), m.TargetID, string(m.Type), m.Value, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert offline mutation: %w", err)
	}
	return nil
}

// Pending returns the queued mutations of one kind in insertion order.
func (r *OfflineRepository) Pending(kind models.MutationKind) ([]models.OfflineMutation, error) {
	return r.list(`WHERE kind = ?`, string(kind))
}

// All returns every queued mutation in insertion order.
func (r *OfflineRepository) All() ([]models.OfflineMutation, error) {
	return r.list("")
}

// Remove deletes a single mutation after it has been replayed.
func (r *OfflineRepository) Remove(id string) error {
	if _, err := r.db.Exec(`DELETE FROM offline_mutations WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to remove offline mutation: %w", err)
	}
	return nil
}

// Drain deletes every queued mutation of one kind.
func (r *OfflineRepository) Drain(kind models.MutationKind) error {
	if _, err := r.db.Exec(`DELETE FROM offline_mutations WHERE kind = ?`, string(kind)); err != nil {
		return fmt.Errorf("failed to drain offline mutations: %w", err)
	}
	return nil
}

// Count returns the number of queued mutations of one kind, or all of them when kind is empty.
func (r *OfflineRepository) Count(kind models.MutationKind) (int, error) {
	if kind == "" {
		return countRows(r.db, "offline_mutations")
	}

	var n int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM offline_mutations WHERE kind = ?`, string(kind)).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count offline mutations: %w", err)
	}
	return n, nil
}

// Clear removes every queued mutation
func (r *OfflineRepository) Clear() error {
	return clearTable(r.db, "offline_mutations")
}

func (r *OfflineRepository) list(where string, args ...any) ([]models.OfflineMutation, error) {
	query := `SELECT id, sequence, kind, target_id, type, value, created_at FROM offline_mutations ` +
		where + ` ORDER BY sequence ASC`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query offline mutations: %w", err)
	}
	defer rows.Close()

	mutations := []models.OfflineMutation{}
	for rows.Next() {
		var (
			m         models.OfflineMutation
			kind, typ string
		)
		if err := rows.Scan(&m.ID, &m.Sequence, &kind, &m.TargetID, &typ, &m.Value, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan offline mutation: %w", err)
		}
		m.Kind = models.MutationKind(kind)
		m.Type = models.ResourceType(typ)
		mutations = append(mutations, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return mutations, nil
}
