package repositories

import (
	"database/sql"
	"fmt"

	"github.com/desertthunder/ampsync/internal/models"
)

const songColumns = `id, title, artist_id, artist_name, album_id, album_name, album_artist_id, album_artist_name,
	track, disk, year, duration, genre, url, art, mime, play_count, flag, rating`

// SongRepository implements [models.Cache] for [models.Song].
type SongRepository struct {
	db *sql.DB
}

var _ models.Cache[models.Song] = (*SongRepository)(nil)

// NewSongRepository creates a new SongRepository with the given database connection
func NewSongRepository(db *sql.DB) *SongRepository {
	return &SongRepository{db: db}
}

// Upsert inserts songs, replacing any cached row with the same id.
func (r *SongRepository) Upsert(songs []models.Song) error {
	query := `
		INSERT INTO songs (` + songColumns + `, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			artist_id = excluded.artist_id,
			artist_name = excluded.artist_name,
			album_id = excluded.album_id,
			album_name = excluded.album_name,
			album_artist_id = excluded.album_artist_id,
			album_artist_name = excluded.album_artist_name,
			track = excluded.track,
			disk = excluded.disk,
			year = excluded.year,
			duration = excluded.duration,
			genre = excluded.genre,
			url = excluded.url,
			art = excluded.art,
			mime = excluded.mime,
			play_count = excluded.play_count,
			flag = excluded.flag,
			rating = excluded.rating,
			updated_at = excluded.updated_at
	`

	err := upsertAll(r.db, query, songs, func(s models.Song) []any {
		return []any{
			s.ID, s.Title, s.Artist.ID, s.Artist.Name, s.Album.ID, s.Album.Name, s.AlbumArtist.ID, s.AlbumArtist.Name,
			s.Track, s.Disk, s.Year, s.Duration, encodeAttributes(s.Genre), s.URL, s.Art, s.Mime, s.PlayCount, s.Flag, s.Rating,
		}
	})
	if err != nil {
		return fmt.Errorf("failed to upsert songs: %w", err)
	}
	return nil
}

// Get retrieves a song by id
func (r *SongRepository) Get(id string) (*models.Song, error) {
	query := `SELECT ` + songColumns + ` FROM songs WHERE id = ?`

	song, err := r.scan(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("song not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	return song, nil
}

// Search returns songs whose title, artist or album contains query, ordered by title.
func (r *SongRepository) Search(query string) ([]models.Song, error) {
	stmt := `SELECT ` + songColumns + ` FROM songs`
	args := []any{}

	if query != "" {
		stmt += ` WHERE title LIKE ? ESCAPE '\' OR artist_name LIKE ? ESCAPE '\' OR album_name LIKE ? ESCAPE '\'`
		p := likePattern(query)
		args = append(args, p, p, p)
	}

	stmt += " ORDER BY title COLLATE NOCASE ASC, id ASC"
	return r.list(stmt, args...)
}

// All returns every cached song ordered by title.
func (r *SongRepository) All() ([]models.Song, error) {
	return r.Search("")
}

// Clear removes every cached song
func (r *SongRepository) Clear() error {
	return clearTable(r.db, "songs")
}

// Count returns the number of cached songs
func (r *SongRepository) Count() (int, error) {
	return countRows(r.db, "songs")
}

// SetFlag updates the like flag of a cached song
func (r *SongRepository) SetFlag(id string, flag int) error {
	return updateColumn(r.db, "songs", "flag", id, flag)
}

// SetRating updates the rating of a cached song
func (r *SongRepository) SetRating(id string, rating int) error {
	return updateColumn(r.db, "songs", "rating", id, rating)
}

func (r *SongRepository) list(query string, args ...any) ([]models.Song, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query songs: %w", err)
	}
	defer rows.Close()

	songs := []models.Song{}
	for rows.Next() {
		song, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		songs = append(songs, *song)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return songs, nil
}

// scan reads one row into a [models.Song]
func (r *SongRepository) scan(row scanner) (*models.Song, error) {
	var (
		s     models.Song
		genre string
	)

	err := row.Scan(
		&s.ID, &s.Title, &s.Artist.ID, &s.Artist.Name, &s.Album.ID, &s.Album.Name, &s.AlbumArtist.ID, &s.AlbumArtist.Name,
		&s.Track, &s.Disk, &s.Year, &s.Duration, &genre, &s.URL, &s.Art, &s.Mime, &s.PlayCount, &s.Flag, &s.Rating,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan song: %w", err)
	}

	if s.Genre, err = decodeAttributes(genre); err != nil {
		return nil, err
	}
	return &s, nil
}
