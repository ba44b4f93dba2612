package models

import (
	"fmt"
	"time"
)

// ResourceType names a kind of library record as the server spells it.
type ResourceType string

const (
	TypeSong     ResourceType = "song"
	TypeAlbum    ResourceType = "album"
	TypeArtist   ResourceType = "artist"
	TypePlaylist ResourceType = "playlist"
)

// ResourceTypes lists every [ResourceType] in display order.
var ResourceTypes = []ResourceType{TypeSong, TypeAlbum, TypeArtist, TypePlaylist}

// ParseResourceType validates a user supplied type name.
func ParseResourceType(s string) (ResourceType, error) {
	for _, t := range ResourceTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown resource type %q", s)
}

// MusicAttribute references another record by id and display name.
type MusicAttribute struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Song is a cached track.
type Song struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Artist      MusicAttribute   `json:"artist"`
	Album       MusicAttribute   `json:"album"`
	AlbumArtist MusicAttribute   `json:"album_artist"`
	Track       int              `json:"track"` // 0 when the server has no track number
	Disk        int              `json:"disk"`
	Year        int              `json:"year"`
	Duration    int              `json:"duration"` // seconds
	Genre       []MusicAttribute `json:"genre,omitempty"`
	URL         string           `json:"url,omitempty"`
	Art         string           `json:"art,omitempty"`
	Mime        string           `json:"mime,omitempty"`
	PlayCount   int              `json:"play_count"`
	Flag        int              `json:"flag"`
	Rating      int              `json:"rating"`
}

// Album is a cached album. Artists holds every artist credited on it, including Artist.
type Album struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Artist    MusicAttribute   `json:"artist"`
	Artists   []MusicAttribute `json:"artists,omitempty"`
	Year      int              `json:"year"`
	SongCount int              `json:"song_count"`
	DiskCount int              `json:"disk_count"`
	Genre     []MusicAttribute `json:"genre,omitempty"`
	Art       string           `json:"art,omitempty"`
	Flag      int              `json:"flag"`
	Rating    int              `json:"rating"`
}

// HasArtist reports whether artistID is the primary or any secondary artist of the album.
func (a Album) HasArtist(artistID string) bool {
	if a.Artist.ID == artistID {
		return true
	}
	for _, artist := range a.Artists {
		if artist.ID == artistID {
			return true
		}
	}
	return false
}

// Artist is a cached artist.
type Artist struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	AlbumCount int              `json:"album_count"`
	SongCount  int              `json:"song_count"`
	Genre      []MusicAttribute `json:"genre,omitempty"`
	Summary    string           `json:"summary,omitempty"`
	Art        string           `json:"art,omitempty"`
	Flag       int              `json:"flag"`
	Rating     int              `json:"rating"`
}

// Playlist is a cached playlist header; its songs are never cached.
type Playlist struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Owner  string `json:"owner"`
	Items  int    `json:"items"`
	Type   string `json:"type"`
	Art    string `json:"art,omitempty"`
	Flag   int    `json:"flag"`
	Rating int    `json:"rating"`
}

// Session is an authenticated server session.
type Session struct {
	Auth       string    `json:"auth"`
	Expiry     time.Time `json:"expiry"`
	ServerURL  string    `json:"server_url"`
	APIVersion string    `json:"api_version,omitempty"`
}

// IsExpiredAt reports whether now is at or past the session expiry.
func (s Session) IsExpiredAt(now time.Time) bool {
	return !now.Before(s.Expiry)
}

// Credentials are persisted separately from [Session] so an expired session can be renewed without prompting.
//
// Password holds the sha256 hex digest, never the clear text.
type Credentials struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	ServerURL string `json:"server_url"`
}

// ServerInfo is what a ping reports about the server.
type ServerInfo struct {
	Server     string `json:"server"`
	Version    string `json:"version"`
	Compatible string `json:"compatible"`
}

// User is the profile of the logged in account.
type User struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	Email          string `json:"email"`
	Access         int    `json:"access"`
	StreamToken    string `json:"stream_token,omitempty"`
	FullName       string `json:"full_name"`
	FullNamePublic int    `json:"full_name_public"`
	Disabled       bool   `json:"disabled"`
	CreateDate     int64  `json:"create_date"`
	LastSeen       int64  `json:"last_seen"`
	Website        string `json:"website"`
	State          string `json:"state"`
	City           string `json:"city"`
}

// MutationKind distinguishes the two offline mutation logs.
type MutationKind string

const (
	MutationLike MutationKind = "like"
	MutationRate MutationKind = "rate"
)

// OfflineMutation is one queued like or rate.
//
// Value is 1/0 for likes and 0..5 for ratings. Sequence orders the log (FIFO).
type OfflineMutation struct {
	ID        string       `json:"id"`
	Sequence  int          `json:"sequence"`
	Kind      MutationKind `json:"kind"`
	TargetID  string       `json:"target_id"`
	Type      ResourceType `json:"type"`
	Value     int          `json:"value"`
	CreatedAt time.Time    `json:"created_at"`
}

// Validate checks kind, type and value ranges.
func (m OfflineMutation) Validate() error {
	if m.TargetID == "" {
		return fmt.Errorf("target id is required")
	}
	if _, err := ParseResourceType(string(m.Type)); err != nil {
		return err
	}
	switch m.Kind {
	case MutationLike:
		if m.Value != 0 && m.Value != 1 {
			return fmt.Errorf("like value must be 0 or 1, got %d", m.Value)
		}
	case MutationRate:
		if err := ValidateRating(m.Value); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown mutation kind %q", m.Kind)
	}
	return nil
}

// ValidateRating accepts ratings between 0 and 5 inclusive.
func ValidateRating(rating int) error {
	if rating < 0 || rating > 5 {
		return fmt.Errorf("rating must be between 0 and 5, got %d", rating)
	}
	return nil
}

// FlagValue converts a like state into the 1/0 flag the server and cache store.
func FlagValue(liked bool) int {
	if liked {
		return 1
	}
	return 0
}

// Cache defines the local store operations the reconciliation engine needs for one record kind.
// Implementations live in the repositories package.
type Cache[T any] interface {
	Upsert(items []T) error                // Upsert inserts or replaces records by id
	Search(query string) ([]T, error)      // Search returns records matching query; "" matches everything
	Clear() error                          // Clear removes every record of this kind
	Count() (int, error)                   // Count returns the number of cached records
	SetFlag(id string, flag int) error     // SetFlag updates the like flag, ignoring unknown ids
	SetRating(id string, rating int) error // SetRating updates the rating, ignoring unknown ids
}
