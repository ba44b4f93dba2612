package repositories

import (
	"database/sql"
	"fmt"

	"github.com/desertthunder/ampsync/internal/models"
)

const albumColumns = `id, name, artist_id, artist_name, artists, year, song_count, disk_count, genre, art, flag, rating`

// AlbumRepository implements [models.Cache] for [models.Album].
type AlbumRepository struct {
	db *sql.DB
}

var _ models.Cache[models.Album] = (*AlbumRepository)(nil)

// NewAlbumRepository creates a new AlbumRepository with the given database connection
func NewAlbumRepository(db *sql.DB) *AlbumRepository {
	return &AlbumRepository{db: db}
}

// Upsert inserts albums, replacing any cached row with the same id.
//
// The artists column is replaced wholesale, so callers that know about additional credited artists must merge them before upserting.
func (r *AlbumRepository) Upsert(albums []models.Album) error {
	query := `
		INSERT INTO albums (` + albumColumns + `, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			artist_id = excluded.artist_id,
			artist_name = excluded.artist_name,
			artists = excluded.artists,
			year = excluded.year,
			song_count = excluded.song_count,
			disk_count = excluded.disk_count,
			genre = excluded.genre,
			art = excluded.art,
			flag = excluded.flag,
			rating = excluded.rating,
			updated_at = excluded.updated_at
	`

	err := upsertAll(r.db, query, albums, func(a models.Album) []any {
		return []any{
			a.ID, a.Name, a.Artist.ID, a.Artist.Name, encodeAttributes(a.Artists), a.Year,
			a.SongCount, a.DiskCount, encodeAttributes(a.Genre), a.Art, a.Flag, a.Rating,
		}
	})
	if err != nil {
		return fmt.Errorf("failed to upsert albums: %w", err)
	}
	return nil
}

// Get retrieves an album by id
func (r *AlbumRepository) Get(id string) (*models.Album, error) {
	album, err := r.scan(r.db.QueryRow(`SELECT `+albumColumns+` FROM albums WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("album not found: %s", id)
	}
	return album, err
}

// Search returns albums whose name or primary artist contains query, ordered by name.
func (r *AlbumRepository) Search(query string) ([]models.Album, error) {
	stmt := `SELECT ` + albumColumns + ` FROM albums`
	args := []any{}

	if query != "" {
		stmt += ` WHERE name LIKE ? ESCAPE '\' OR artist_name LIKE ? ESCAPE '\'`
		p := likePattern(query)
		args = append(args, p, p)
	}

	stmt += " ORDER BY name COLLATE NOCASE ASC, id ASC"
	return r.list(stmt, args...)
}

// All returns every cached album ordered by name.
func (r *AlbumRepository) All() ([]models.Album, error) {
	return r.Search("")
}

// Clear removes every cached album
func (r *AlbumRepository) Clear() error {
	return clearTable(r.db, "albums")
}

// Count returns the number of cached albums
func (r *AlbumRepository) Count() (int, error) {
	return countRows(r.db, "albums")
}

// SetFlag updates the like flag of a cached album
func (r *AlbumRepository) SetFlag(id string, flag int) error {
	return updateColumn(r.db, "albums", "flag", id, flag)
}

// SetRating updates the rating of a cached album
func (r *AlbumRepository) SetRating(id string, rating int) error {
	return updateColumn(r.db, "albums", "rating", id, rating)
}

func (r *AlbumRepository) list(query string, args ...any) ([]models.Album, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query albums: %w", err)
	}
	defer rows.Close()

	albums := []models.Album{}
	for rows.Next() {
		album, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		albums = append(albums, *album)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return albums, nil
}

func (r *AlbumRepository) scan(row scanner) (*models.Album, error) {
	var (
		a              models.Album
		artists, genre string
	)

	err := row.Scan(
		&a.ID, &a.Name, &a.Artist.ID, &a.Artist.Name, &artists, &a.Year,
		&a.SongCount, &a.DiskCount, &genre, &a.Art, &a.Flag, &a.Rating,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan album: %w", err)
	}

	if a.Artists, err = decodeAttributes(artists); err != nil {
		return nil, err
	}
	if a.Genre, err = decodeAttributes(genre); err != nil {
		return nil, err
	}
	return &a, nil
}
