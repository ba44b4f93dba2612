package library

import (
	"github.com/sahilm/fuzzy"

	"github.com/desertthunder/ampsync/internal/models"
)

// Match is one fuzzy search hit across the cache.
type Match struct {
	Type  models.ResourceType `json:"type"`
	ID    string              `json:"id"`
	Name  string              `json:"name"`
	Score int                 `json:"score"`
}

type candidate struct {
	kind models.ResourceType
	id   string
	name string
}

type candidates []candidate

func (c candidates) String(i int) string { return c[i].name }
func (c candidates) Len() int            { return len(c) }

// Find fuzzy matches query against the names of every cached record, best match first.
//
// Songs are matched as "artist - title" so either part can be typed. limit <= 0 returns every match.
func (e *Engine) Find(query string, limit int) ([]Match, error) {
	var pool candidates

	songs, err := e.songs.Search("")
	if err != nil {
		return nil, err
	}
	for _, s := range songs {
		pool = append(pool, candidate{models.TypeSong, s.ID, s.Artist.Name + " - " + s.Title})
	}

	albums, err := e.albums.Search("")
	if err != nil {
		return nil, err
	}
	for _, a := range albums {
		pool = append(pool, candidate{models.TypeAlbum, a.ID, a.Name})
	}

	artists, err := e.artists.Search("")
	if err != nil {
		return nil, err
	}
	for _, a := range artists {
		pool = append(pool, candidate{models.TypeArtist, a.ID, a.Name})
	}

	playlists, err := e.playlists.Search("")
	if err != nil {
		return nil, err
	}
	for _, p := range playlists {
		pool = append(pool, candidate{models.TypePlaylist, p.ID, p.Name})
	}

	found := fuzzy.FindFrom(query, pool)
	if limit > 0 && len(found) > limit {
		found = found[:limit]
	}

	matches := make([]Match, 0, len(found))
	for _, f := range found {
		c := pool[f.Index]
		matches = append(matches, Match{Type: c.kind, ID: c.id, Name: c.name, Score: f.Score})
	}
	return matches, nil
}
