package repositories

import (
	"database/sql"
	"fmt"

	"github.com/desertthunder/ampsync/internal/models"
)

// PlaylistRepository implements [models.Cache] for [models.Playlist] headers.
//
// Playlist contents are always fetched from the server and never stored here.
type PlaylistRepository struct {
	db *sql.DB
}

var _ models.Cache[models.Playlist] = (*PlaylistRepository)(nil)

// NewPlaylistRepository creates a new PlaylistRepository with the given database connection
func NewPlaylistRepository(db *sql.DB) *PlaylistRepository {
	return &PlaylistRepository{db: db}
}

// Upsert inserts playlists, replacing any cached row with the same id.
func (r *PlaylistRepository) Upsert(playlists []models.Playlist) error {
	query := `
		INSERT INTO playlists (id, name, owner, items, type, art, flag, rating, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			owner = excluded.owner,
			items = excluded.items,
			type = excluded.type,
			art = excluded.art,
			flag = excluded.flag,
			rating = excluded.rating,
			updated_at = excluded.updated_at
	`

	err := upsertAll(r.db, query, playlists, func(p models.Playlist) []any {
		return []any{p.ID, p.Name, p.Owner, p.Items, p.Type, p.Art, p.Flag, p.Rating}
	})
	if err != nil {
		return fmt.Errorf("failed to upsert playlists: %w", err)
	}
	return nil
}

// Get retrieves a playlist by id
func (r *PlaylistRepository) Get(id string) (*models.Playlist, error) {
	query := `SELECT id, name, owner, items, type, art, flag, rating FROM playlists WHERE id = ?`

	var p models.Playlist
	err := r.db.QueryRow(query, id).Scan(&p.ID, &p.Name, &p.Owner, &p.Items, &p.Type, &p.Art, &p.Flag, &p.Rating)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("playlist not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan playlist: %w", err)
	}
	return &p, nil
}

// Search returns playlists whose name or owner contains query, ordered by name.
func (r *PlaylistRepository) Search(query string) ([]models.Playlist, error) {
	stmt := `SELECT id, name, owner, items, type, art, flag, rating FROM playlists`
	args := []any{}

	if query != "" {
		stmt += ` WHERE name LIKE ? ESCAPE '\' OR owner LIKE ? ESCAPE '\'`
		p := likePattern(query)
		args = append(args, p, p)
	}

	stmt += " ORDER BY name COLLATE NOCASE ASC, id ASC"

	rows, err := r.db.Query(stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlists: %w", err)
	}
	defer rows.Close()

	playlists := []models.Playlist{}
	for rows.Next() {
		var p models.Playlist
		if err := rows.Scan(&p.ID, &p.Name, &p.Owner, &p.Items, &p.Type, &p.Art, &p.Flag, &p.Rating); err != nil {
			return nil, fmt.Errorf("failed to scan playlist: %w", err)
		}
		playlists = append(playlists, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return playlists, nil
}

// Clear removes every cached playlist
func (r *PlaylistRepository) Clear() error {
	return clearTable(r.db, "playlists")
}

// Count returns the number of cached playlists
func (r *PlaylistRepository) Count() (int, error) {
	return countRows(r.db, "playlists")
}

// SetFlag updates the like flag of a cached playlist
func (r *PlaylistRepository) SetFlag(id string, flag int) error {
	return updateColumn(r.db, "playlists", "flag", id, flag)
}

// SetRating updates the rating of a cached playlist
func (r *PlaylistRepository) SetRating(id string, rating int) error {
	return updateColumn(r.db, "playlists", "rating", id, rating)
}
