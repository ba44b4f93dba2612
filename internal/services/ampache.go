package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/ampsync/internal/models"
	"github.com/desertthunder/ampsync/internal/shared"
)

const endpointPath = "/json.server.php"

// AmpacheService implements [Ampache] over the JSON API.
type AmpacheService struct {
	httpClient *http.Client
	logger     *log.Logger
}

var _ Ampache = (*AmpacheService)(nil)

// NewAmpacheService creates a new Ampache client. Nil arguments fall back to defaults.
func NewAmpacheService(client *http.Client, logger *log.Logger) *AmpacheService {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}

	return &AmpacheService{httpClient: client, logger: logger}
}

// BuildServerURL normalises a user supplied server address.
//
// A missing scheme becomes https and the API root "/server" is appended when absent.
func BuildServerURL(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	s = strings.TrimRight(s, "/")
	if !strings.HasSuffix(s, "/server") {
		s += "/server"
	}
	return s
}

// ParseSessionExpire parses the expiry timestamp of a handshake or ping response.
func ParseSessionExpire(raw string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05-0700"} {
		if t, err := time.Parse(layout, strings.TrimSpace(raw)); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: invalid session_expire %q", shared.ErrUnexpectedResponse, raw)
}

// doRequest performs a GET of action against serverURL and decodes the body into result.
//
// An error payload in the body is returned as [*APIError] regardless of the HTTP status.
func (a *AmpacheService) doRequest(ctx context.Context, serverURL, action string, params url.Values, result any) error {
	if serverURL == "" {
		return fmt.Errorf("%w: server url is empty", shared.ErrMissingConfig)
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("action", action)
	apiURL := strings.TrimRight(serverURL, "/") + endpointPath + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := a.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return fmt.Errorf("%w: %s request failed: %v", shared.ErrServiceUnavailable, action, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %v", shared.ErrServiceUnavailable, err)
	}

	a.logger.Debug("ampache request", "action", action, "status", resp.StatusCode, "bytes", len(body), "took", time.Since(start))

	var env envelope
	if err := json.Unmarshal(body, &env); err == nil && env.Error != nil {
		return env.Error.toAPIError()
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %s returned status %d", shared.ErrAPIRequest, action, resp.StatusCode)
	}

	if result != nil {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("%w: failed to decode %s response: %v", shared.ErrUnexpectedResponse, action, err)
		}
	}

	return nil
}

func authParams(sess models.Session) url.Values {
	return url.Values{"auth": {sess.Auth}}
}

func listParams(sess models.Session, p ListParams) url.Values {
	v := authParams(sess)
	v.Set("filter", p.Filter)
	v.Set("exact", "0")
	v.Set("offset", strconv.Itoa(p.Offset))
	v.Set("limit", strconv.Itoa(p.Limit))
	return v
}

func childParams(sess models.Session, parentID string, p ListParams) url.Values {
	v := authParams(sess)
	v.Set("filter", parentID)
	v.Set("offset", strconv.Itoa(p.Offset))
	v.Set("limit", strconv.Itoa(p.Limit))
	return v
}

// Handshake authenticates username with authHash and returns a session bound to serverURL.
func (a *AmpacheService) Handshake(ctx context.Context, serverURL, username, authHash string, timestamp int64) (*models.Session, error) {
	params := url.Values{
		"auth":      {authHash},
		"user":      {username},
		"timestamp": {strconv.FormatInt(timestamp, 10)},
	}

	var dto handshakeDTO
	if err := a.doRequest(ctx, serverURL, "handshake", params, &dto); err != nil {
		return nil, err
	}

	if dto.Auth == "" {
		return nil, fmt.Errorf("%w: handshake returned no token", shared.ErrUnexpectedResponse)
	}

	expiry, err := ParseSessionExpire(dto.SessionExpire)
	if err != nil {
		return nil, err
	}

	return &models.Session{Auth: dto.Auth, Expiry: expiry, ServerURL: serverURL, APIVersion: dto.API}, nil
}

// Ping reports server details. auth may be empty.
func (a *AmpacheService) Ping(ctx context.Context, serverURL, auth string) (*PingResponse, error) {
	params := url.Values{}
	if auth != "" {
		params.Set("auth", auth)
	}

	var dto pingDTO
	if err := a.doRequest(ctx, serverURL, "ping", params, &dto); err != nil {
		return nil, err
	}

	return &PingResponse{
		Info:          models.ServerInfo{Server: dto.Server, Version: dto.Version, Compatible: dto.Compatible},
		Auth:          dto.Auth,
		SessionExpire: dto.SessionExpire,
	}, nil
}

// Goodbye ends the session. Only an explicit success payload counts as success.
func (a *AmpacheService) Goodbye(ctx context.Context, sess models.Session) error {
	var env envelope
	if err := a.doRequest(ctx, sess.ServerURL, "goodbye", authParams(sess), &env); err != nil {
		return err
	}
	if env.Success == "" {
		return fmt.Errorf("%w: goodbye was not confirmed", shared.ErrUnexpectedResponse)
	}
	return nil
}

func (a *AmpacheService) User(ctx context.Context, sess models.Session, username string) (*models.User, error) {
	params := authParams(sess)
	params.Set("username", username)

	var wrapped struct {
		userDTO
		User *userDTO `json:"user"`
	}
	if err := a.doRequest(ctx, sess.ServerURL, "user", params, &wrapped); err != nil {
		return nil, err
	}

	dto := wrapped.userDTO
	if wrapped.User != nil {
		dto = *wrapped.User
	}
	if dto.Username == "" {
		return nil, fmt.Errorf("%w: user %s", shared.ErrNotFound, username)
	}

	user := dto.toModel()
	return &user, nil
}

func (a *AmpacheService) Songs(ctx context.Context, sess models.Session, params ListParams) ([]models.Song, error) {
	var resp songsResponse
	if err := a.doRequest(ctx, sess.ServerURL, "search_songs", listParams(sess, params), &resp); err != nil {
		return nil, err
	}
	return mapSlice(resp.Songs, songDTO.toModel), nil
}

func (a *AmpacheService) Albums(ctx context.Context, sess models.Session, params ListParams) ([]models.Album, error) {
	var resp albumsResponse
	if err := a.doRequest(ctx, sess.ServerURL, "albums", listParams(sess, params), &resp); err != nil {
		return nil, err
	}
	return mapSlice(resp.Albums, albumDTO.toModel), nil
}

func (a *AmpacheService) Artists(ctx context.Context, sess models.Session, params ListParams) ([]models.Artist, error) {
	var resp artistsResponse
	if err := a.doRequest(ctx, sess.ServerURL, "artists", listParams(sess, params), &resp); err != nil {
		return nil, err
	}
	return mapSlice(resp.Artists, artistDTO.toModel), nil
}

func (a *AmpacheService) Playlists(ctx context.Context, sess models.Session, params ListParams) ([]models.Playlist, error) {
	var resp playlistsResponse
	if err := a.doRequest(ctx, sess.ServerURL, "playlists", listParams(sess, params), &resp); err != nil {
		return nil, err
	}
	return mapSlice(resp.Playlists, playlistDTO.toModel), nil
}

func (a *AmpacheService) ArtistAlbums(ctx context.Context, sess models.Session, artistID string, params ListParams) ([]models.Album, error) {
	var resp albumsResponse
	if err := a.doRequest(ctx, sess.ServerURL, "artist_albums", childParams(sess, artistID, params), &resp); err != nil {
		return nil, err
	}
	return mapSlice(resp.Albums, albumDTO.toModel), nil
}

func (a *AmpacheService) AlbumSongs(ctx context.Context, sess models.Session, albumID string, params ListParams) ([]models.Song, error) {
	var resp songsResponse
	if err := a.doRequest(ctx, sess.ServerURL, "album_songs", childParams(sess, albumID, params), &resp); err != nil {
		return nil, err
	}
	return mapSlice(resp.Songs, songDTO.toModel), nil
}

func (a *AmpacheService) PlaylistSongs(ctx context.Context, sess models.Session, playlistID string, params ListParams) ([]models.Song, error) {
	var resp songsResponse
	if err := a.doRequest(ctx, sess.ServerURL, "playlist_songs", childParams(sess, playlistID, params), &resp); err != nil {
		return nil, err
	}
	return mapSlice(resp.Songs, songDTO.toModel), nil
}

func (a *AmpacheService) Flag(ctx context.Context, sess models.Session, id string, kind models.ResourceType, flagged bool) error {
	params := authParams(sess)
	params.Set("id", id)
	params.Set("flag", strconv.Itoa(models.FlagValue(flagged)))
	params.Set("type", string(kind))

	return a.doRequest(ctx, sess.ServerURL, "flag", params, nil)
}

func (a *AmpacheService) Rate(ctx context.Context, sess models.Session, id string, kind models.ResourceType, rating int) error {
	if err := models.ValidateRating(rating); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	params := authParams(sess)
	params.Set("id", id)
	params.Set("rating", strconv.Itoa(rating))
	params.Set("type", string(kind))

	return a.doRequest(ctx, sess.ServerURL, "rate", params, nil)
}
