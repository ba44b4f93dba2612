package testing

import (
	"context"
	"fmt"
	"sync"

	"github.com/desertthunder/ampsync/internal/models"
	"github.com/desertthunder/ampsync/internal/services"
)

// FlagCall records one call to [MockAmpache.Flag]
type FlagCall struct {
	ID      string
	Type    models.ResourceType
	Flagged bool
}

// RateCall records one call to [MockAmpache.Rate]
type RateCall struct {
	ID     string
	Type   models.ResourceType
	Rating int
}

// MockAmpache is a test double for [services.Ampache] with canned results, injected errors and call counters.
//
// It is safe for concurrent use; set fields before handing it to the code under test.
type MockAmpache struct {
	mu    sync.Mutex
	calls map[string]int

	HandshakeSession *models.Session
	HandshakeErr     error
	LastAuthHash     string
	LastTimestamp    int64

	PingResponse *services.PingResponse
	PingErr      error

	GoodbyeErr error

	UserResult *models.User
	UserErr    error

	SongsResult         []models.Song
	AlbumsResult        []models.Album
	ArtistsResult       []models.Artist
	PlaylistsResult     []models.Playlist
	ArtistAlbumsResult  []models.Album
	AlbumSongsResult    []models.Song
	PlaylistSongsResult []models.Song
	ListErr             error
	LastParams          services.ListParams
	LastParentID        string

	FlagErr   error
	RateErr   error
	FailIDs   map[string]error // per-target errors for Flag and Rate
	FlagCalls []FlagCall
	RateCalls []RateCall
}

var _ services.Ampache = (*MockAmpache)(nil)

// Calls returns how many times action was invoked.
func (m *MockAmpache) Calls(action string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[action]
}

// TotalCalls returns the number of calls across every action.
func (m *MockAmpache) TotalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		n += c
	}
	return n
}

func (m *MockAmpache) record(action string) {
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[action]++
}

func (m *MockAmpache) Handshake(ctx context.Context, serverURL, username, authHash string, timestamp int64) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("handshake")
	m.LastAuthHash, m.LastTimestamp = authHash, timestamp

	if m.HandshakeErr != nil {
		return nil, m.HandshakeErr
	}
	if m.HandshakeSession == nil {
		return nil, fmt.Errorf("mock: no handshake fixture")
	}
	sess := *m.HandshakeSession
	sess.ServerURL = serverURL
	return &sess, nil
}

func (m *MockAmpache) Ping(ctx context.Context, serverURL, auth string) (*services.PingResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("ping")

	if m.PingErr != nil {
		return nil, m.PingErr
	}
	if m.PingResponse == nil {
		return &services.PingResponse{Info: models.ServerInfo{Server: "mock"}}, nil
	}
	resp := *m.PingResponse
	return &resp, nil
}

func (m *MockAmpache) Goodbye(ctx context.Context, sess models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("goodbye")
	return m.GoodbyeErr
}

func (m *MockAmpache) User(ctx context.Context, sess models.Session, username string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("user")

	if m.UserErr != nil {
		return nil, m.UserErr
	}
	if m.UserResult == nil {
		return nil, fmt.Errorf("mock: no user fixture")
	}
	user := *m.UserResult
	return &user, nil
}

func list[T any](m *MockAmpache, action, parentID string, params services.ListParams, items []T) ([]T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record(action)
	m.LastParams = params
	m.LastParentID = parentID

	if m.ListErr != nil {
		return nil, m.ListErr
	}
	return append([]T(nil), items...), nil
}

func (m *MockAmpache) Songs(ctx context.Context, sess models.Session, params services.ListParams) ([]models.Song, error) {
	return list(m, "search_songs", "", params, m.SongsResult)
}

func (m *MockAmpache) Albums(ctx context.Context, sess models.Session, params services.ListParams) ([]models.Album, error) {
	return list(m, "albums", "", params, m.AlbumsResult)
}

func (m *MockAmpache) Artists(ctx context.Context, sess models.Session, params services.ListParams) ([]models.Artist, error) {
	return list(m, "artists", "", params, m.ArtistsResult)
}

func (m *MockAmpache) Playlists(ctx context.Context, sess models.Session, params services.ListParams) ([]models.Playlist, error) {
	return list(m, "playlists", "", params, m.PlaylistsResult)
}

func (m *MockAmpache) ArtistAlbums(ctx context.Context, sess models.Session, artistID string, params services.ListParams) ([]models.Album, error) {
	return list(m, "artist_albums", artistID, params, m.ArtistAlbumsResult)
}

func (m *MockAmpache) AlbumSongs(ctx context.Context, sess models.Session, albumID string, params services.ListParams) ([]models.Song, error) {
	return list(m, "album_songs", albumID, params, m.AlbumSongsResult)
}

func (m *MockAmpache) PlaylistSongs(ctx context.Context, sess models.Session, playlistID string, params services.ListParams) ([]models.Song, error) {
	return list(m, "playlist_songs", playlistID, params, m.PlaylistSongsResult)
}

func (m *MockAmpache) Flag(ctx context.Context, sess models.Session, id string, kind models.ResourceType, flagged bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("flag")

	if err, ok := m.FailIDs[id]; ok {
		return err
	}
	if m.FlagErr != nil {
		return m.FlagErr
	}
	m.FlagCalls = append(m.FlagCalls, FlagCall{ID: id, Type: kind, Flagged: flagged})
	return nil
}

func (m *MockAmpache) Rate(ctx context.Context, sess models.Session, id string, kind models.ResourceType, rating int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("rate")

	if err, ok := m.FailIDs[id]; ok {
		return err
	}
	if m.RateErr != nil {
		return m.RateErr
	}
	m.RateCalls = append(m.RateCalls, RateCall{ID: id, Type: kind, Rating: rating})
	return nil
}
