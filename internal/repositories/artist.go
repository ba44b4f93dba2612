package repositories

import (
	"database/sql"
	"fmt"

	"github.com/desertthunder/ampsync/internal/models"
)

const artistColumns = `id, name, album_count, song_count, genre, summary, art, flag, rating`

// ArtistRepository implements [models.Cache] for [models.Artist].
type ArtistRepository struct {
	db *sql.DB
}

var _ models.Cache[models.Artist] = (*ArtistRepository)(nil)

// NewArtistRepository creates a new ArtistRepository with the given database connection
func NewArtistRepository(db *sql.DB) *ArtistRepository {
	return &ArtistRepository{db: db}
}

// Upsert inserts artists, replacing any cached row with the same id.
func (r *ArtistRepository) Upsert(artists []models.Artist) error {
	query := `
		INSERT INTO artists (` + artistColumns + `, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			album_count = excluded.album_count,
			song_count = excluded.song_count,
			genre = excluded.genre,
			summary = excluded.summary,
			art = excluded.art,
			flag = excluded.flag,
			rating = excluded.rating,
			updated_at = excluded.updated_at
	`

	err := upsertAll(r.db, query, artists, func(a models.Artist) []any {
		return []any{a.ID, a.Name, a.AlbumCount, a.SongCount, encodeAttributes(a.Genre), a.Summary, a.Art, a.Flag, a.Rating}
	})
	if err != nil {
		return fmt.Errorf("failed to upsert artists: %w", err)
	}
	return nil
}

// Get retrieves an artist by id
func (r *ArtistRepository) Get(id string) (*models.Artist, error) {
	artist, err := r.scan(r.db.QueryRow(`SELECT `+artistColumns+` FROM artists WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("artist not found: %s", id)
	}
	return artist, err
}

// Search returns artists whose name contains query, ordered by name.
func (r *ArtistRepository) Search(query string) ([]models.Artist, error) {
	stmt := `SELECT ` + artistColumns + ` FROM artists`
	args := []any{}

	if query != "" {
		stmt += ` WHERE name LIKE ? ESCAPE '\'`
		args = append(args, likePattern(query))
	}

	stmt += " ORDER BY name COLLATE NOCASE ASC, id ASC"

	rows, err := r.db.Query(stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query artists: %w", err)
	}
	defer rows.Close()

	artists := []models.Artist{}
	for rows.Next() {
		artist, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		artists = append(artists, *artist)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return artists, nil
}

// Clear removes every cached artist
func (r *ArtistRepository) Clear() error {
	return clearTable(r.db, "artists")
}

// Count returns the number of cached artists
func (r *ArtistRepository) Count() (int, error) {
	return countRows(r.db, "artists")
}

// SetFlag updates the like flag of a cached artist
func (r *ArtistRepository) SetFlag(id string, flag int) error {
	return updateColumn(r.db, "artists", "flag", id, flag)
}

// SetRating updates the rating of a cached artist
func (r *ArtistRepository) SetRating(id string, rating int) error {
	return updateColumn(r.db, "artists", "rating", id, rating)
}

func (r *ArtistRepository) scan(row scanner) (*models.Artist, error) {
	var (
		a     models.Artist
		genre string
	)

	err := row.Scan(&a.ID, &a.Name, &a.AlbumCount, &a.SongCount, &genre, &a.Summary, &a.Art, &a.Flag, &a.Rating)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan artist: %w", err)
	}

	if a.Genre, err = decodeAttributes(genre); err != nil {
		return nil, err
	}
	return &a, nil
}
