// package services defines the Ampache interface for talking to the media server
package services

import (
	"context"

	"github.com/desertthunder/ampsync/internal/models"
)

// Ampache defines the remote actions ampsync needs from an Ampache-compatible server.
//
// Every call either returns decoded records or an error; server error payloads surface as [*APIError].
type Ampache interface {
	// Handshake exchanges a time-salted password hash for a session token.
	Handshake(ctx context.Context, serverURL, username, authHash string, timestamp int64) (*models.Session, error)

	// Ping reports server details and, when auth is still valid, a renewed session expiry.
	Ping(ctx context.Context, serverURL, auth string) (*PingResponse, error)

	// Goodbye destroys the session on the server.
	Goodbye(ctx context.Context, sess models.Session) error

	// User fetches the profile for username.
	User(ctx context.Context, sess models.Session, username string) (*models.User, error)

	Songs(ctx context.Context, sess models.Session, params ListParams) ([]models.Song, error)
	Albums(ctx context.Context, sess models.Session, params ListParams) ([]models.Album, error)
	Artists(ctx context.Context, sess models.Session, params ListParams) ([]models.Artist, error)
	Playlists(ctx context.Context, sess models.Session, params ListParams) ([]models.Playlist, error)

	ArtistAlbums(ctx context.Context, sess models.Session, artistID string, params ListParams) ([]models.Album, error)
	AlbumSongs(ctx context.Context, sess models.Session, albumID string, params ListParams) ([]models.Song, error)
	PlaylistSongs(ctx context.Context, sess models.Session, playlistID string, params ListParams) ([]models.Song, error)

	// Flag sets or unsets the favourite flag on a library item.
	Flag(ctx context.Context, sess models.Session, id string, kind models.ResourceType, flagged bool) error

	// Rate sets a 0..5 rating on a library item.
	Rate(ctx context.Context, sess models.Session, id string, kind models.ResourceType, rating int) error
}

// ListParams are the paging and filter inputs shared by every list action.
type ListParams struct {
	Filter string
	Offset int
	Limit  int
}

// PingResponse is the decoded result of a ping.
//
// SessionExpire is left raw so callers can decide what an unparseable renewal means.
type PingResponse struct {
	Info          models.ServerInfo
	Auth          string
	SessionExpire string
}

// Renewed reports whether the server returned session renewal data.
func (p PingResponse) Renewed() bool {
	return p.SessionExpire != ""
}
