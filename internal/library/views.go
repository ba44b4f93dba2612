package library

import (
	"context"
	"slices"
	"sort"

	"github.com/desertthunder/ampsync/internal/models"
	"github.com/desertthunder/ampsync/internal/services"
)

// AlbumsFromArtist streams the albums crediting artistID, newest first.
//
// The local view scans every cached album so secondary artist credits are found too.
func (e *Engine) AlbumsFromArtist(ctx context.Context, artistID string, fetchRemote bool) <-chan models.Resource[[]models.Album] {
	read := func(string) ([]models.Album, error) {
		all, err := e.albums.Search("")
		if err != nil {
			return nil, err
		}
		return albumsByArtist(all, artistID), nil
	}

	fetch := func(ctx context.Context, sess models.Session, _ services.ListParams) ([]models.Album, error) {
		return e.service.ArtistAlbums(ctx, sess, artistID, services.ListParams{})
	}

	prepare := func(remote []models.Album) ([]models.Album, error) {
		credited := make([]models.Album, 0, len(remote))
		for _, album := range remote {
			if !album.HasArtist(artistID) {
				album.Artists = append(slices.Clone(album.Artists), models.MusicAttribute{ID: artistID})
			}
			credited = append(credited, album)
		}
		return e.mergeAlbumArtists(credited)
	}

	return reconcile(ctx, e, source[models.Album]{
		name:    "artist_albums",
		cache:   e.albums,
		read:    read,
		fetch:   fetch,
		prepare: prepare,
	}, Query{FetchRemote: fetchRemote})
}

// SongsFromAlbum streams the songs of albumID in track order.
func (e *Engine) SongsFromAlbum(ctx context.Context, albumID string, fetchRemote bool) <-chan models.Resource[[]models.Song] {
	read := func(string) ([]models.Song, error) {
		all, err := e.songs.Search("")
		if err != nil {
			return nil, err
		}
		return songsByAlbum(all, albumID), nil
	}

	fetch := func(ctx context.Context, sess models.Session, _ services.ListParams) ([]models.Song, error) {
		return e.service.AlbumSongs(ctx, sess, albumID, services.ListParams{})
	}

	return reconcile(ctx, e, source[models.Song]{
		name:  "album_songs",
		cache: e.songs,
		read:  read,
		fetch: fetch,
	}, Query{FetchRemote: fetchRemote})
}

// SongsFromPlaylist streams the songs of playlistID straight from the server.
//
// Playlist contents are never cached, so the single Success carries the remote list as both data and network payload.
func (e *Engine) SongsFromPlaylist(ctx context.Context, playlistID string) <-chan models.Resource[[]models.Song] {
	out := make(chan models.Resource[[]models.Song], streamBuffer)

	go func() {
		defer close(out)
		out <- models.Loading[[]models.Song](true)

		sess, err := e.sessions.Session(ctx)
		if err != nil {
			out <- models.Failure[[]models.Song](services.ErrorMessage(err), err)
			return
		}

		songs, err := e.service.PlaylistSongs(ctx, *sess, playlistID, services.ListParams{})
		if err != nil {
			e.logger.Warn("playlist songs failed", "playlist", playlistID, "error", err)
			out <- models.Failure[[]models.Song](services.ErrorMessage(err), err)
			return
		}

		out <- models.NetworkSuccess(songs, songs)
		out <- models.Loading[[]models.Song](false)
	}()

	return out
}

// mergeAlbumArtists unions the credited artists of already cached albums into remote, since upserts replace the list.
func (e *Engine) mergeAlbumArtists(remote []models.Album) ([]models.Album, error) {
	cached, err := e.albums.Search("")
	if err != nil {
		return nil, err
	}

	known := make(map[string][]models.MusicAttribute, len(cached))
	for _, album := range cached {
		known[album.ID] = album.Artists
	}

	merged := make([]models.Album, 0, len(remote))
	for _, album := range remote {
		for _, artist := range known[album.ID] {
			if !album.HasArtist(artist.ID) {
				album.Artists = append(slices.Clone(album.Artists), artist)
			}
		}
		merged = append(merged, album)
	}
	return merged, nil
}

// albumsByArtist filters albums crediting artistID, drops duplicate ids and sorts by year descending.
func albumsByArtist(albums []models.Album, artistID string) []models.Album {
	seen := make(map[string]bool, len(albums))
	result := []models.Album{}

	for _, album := range albums {
		if seen[album.ID] || !album.HasArtist(artistID) {
			continue
		}
		seen[album.ID] = true
		result = append(result, album)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Year > result[j].Year
	})
	return result
}

// songsByAlbum filters songs of albumID sorted by track, with unnumbered tracks last.
func songsByAlbum(songs []models.Song, albumID string) []models.Song {
	result := []models.Song{}
	for _, song := range songs {
		if song.Album.ID == albumID {
			result = append(result, song)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		a, b := result[i].Track, result[j].Track
		switch {
		case a <= 0:
			return false
		case b <= 0:
			return true
		default:
			return a < b
		}
	})
	return result
}
