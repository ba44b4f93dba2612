// Package library reconciles the local cache with the server.
//
// Every list operation returns a stream of [models.Resource] values: the cached view first, then the
// reconciled view after a remote fetch has been merged. The local store is the single source of truth;
// remote payloads are upserted and read back, never returned unmerged except as [models.Resource.Network].
package library

import (
	"context"
	"io"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/ampsync/internal/models"
	"github.com/desertthunder/ampsync/internal/services"
)

// streamBuffer holds every emission a single reconciliation can produce, so sends never block.
const streamBuffer = 4

// SessionProvider hands out a valid session, renewing it when needed.
type SessionProvider interface {
	Session(ctx context.Context) (*models.Session, error)
}

// Query selects a page of records.
type Query struct {
	Filter      string
	Offset      int
	FetchRemote bool
}

// Options configures an [Engine].
type Options struct {
	Songs     models.Cache[models.Song]
	Albums    models.Cache[models.Album]
	Artists   models.Cache[models.Artist]
	Playlists models.Cache[models.Playlist]

	Service  services.Ampache
	Sessions SessionProvider
	Logger   *log.Logger

	PageSize         int
	ClearBeforeFetch bool
}

// Engine runs cache-first reconciliation for every record kind.
type Engine struct {
	songs     models.Cache[models.Song]
	albums    models.Cache[models.Album]
	artists   models.Cache[models.Artist]
	playlists models.Cache[models.Playlist]

	service  services.Ampache
	sessions SessionProvider
	logger   *log.Logger

	pageSize         int
	clearBeforeFetch bool
}

// NewEngine creates an Engine from opts.
func NewEngine(opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 100
	}

	return &Engine{
		songs:            opts.Songs,
		albums:           opts.Albums,
		artists:          opts.Artists,
		playlists:        opts.Playlists,
		service:          opts.Service,
		sessions:         opts.Sessions,
		logger:           opts.Logger,
		pageSize:         opts.PageSize,
		clearBeforeFetch: opts.ClearBeforeFetch,
	}
}

// source describes how one view is read locally and fetched remotely.
type source[T any] struct {
	name  string
	cache models.Cache[T]

	// read returns the local view for the query
	read func(filter string) ([]T, error)

	// fetch calls the remote list action
	fetch func(ctx context.Context, sess models.Session, params services.ListParams) ([]T, error)

	// prepare adjusts remote records before they are upserted
	prepare func(remote []T) ([]T, error)

	// clearable views may wipe their table before an unfiltered first-page fetch
	clearable bool
}

// reconcile runs the cache-first flow for src and streams its emissions.
//
// Emission order is Loading(true), an optional provisional Success, then either a Success carrying the
// network payload followed by Loading(false), or a terminal Failure. The channel is closed afterwards.
func reconcile[T any](ctx context.Context, e *Engine, src source[T], q Query) <-chan models.Resource[[]T] {
	out := make(chan models.Resource[[]T], streamBuffer)

	go func() {
		defer close(out)
		logger := e.logger.With("view", src.name)

		fail := func(err error) {
			logger.Warn("reconciliation failed", "error", err)
			out <- models.Failure[[]T](services.ErrorMessage(err), err)
		}

		out <- models.Loading[[]T](true)

		var local []T
		if q.Offset == 0 {
			var err error
			if local, err = src.read(q.Filter); err != nil {
				fail(err)
				return
			}
			if len(local) > 0 || q.Filter != "" {
				out <- models.Success(local)
			}
		}

		if len(local) > 0 && !q.FetchRemote {
			logger.Debug("served from cache", "count", len(local))
			out <- models.Loading[[]T](false)
			return
		}

		sess, err := e.sessions.Session(ctx)
		if err != nil {
			fail(err)
			return
		}

		params := services.ListParams{Filter: q.Filter, Offset: q.Offset, Limit: e.pageSize}
		remote, err := src.fetch(ctx, *sess, params)
		if err != nil {
			fail(err)
			return
		}

		if src.clearable && e.clearBeforeFetch && q.Filter == "" && q.Offset == 0 {
			if err := src.cache.Clear(); err != nil {
				fail(err)
				return
			}
		}

		toStore := remote
		if src.prepare != nil {
			if toStore, err = src.prepare(remote); err != nil {
				fail(err)
				return
			}
		}

		if err := src.cache.Upsert(toStore); err != nil {
			fail(err)
			return
		}

		fresh, err := src.read(q.Filter)
		if err != nil {
			fail(err)
			return
		}

		logger.Debug("reconciled", "remote", len(remote), "local", len(fresh))
		out <- models.NetworkSuccess(fresh, remote)
		out <- models.Loading[[]T](false)
	}()

	return out
}

// Songs streams songs matching q.
func (e *Engine) Songs(ctx context.Context, q Query) <-chan models.Resource[[]models.Song] {
	return reconcile(ctx, e, source[models.Song]{
		name:      "songs",
		cache:     e.songs,
		read:      e.songs.Search,
		fetch:     e.service.Songs,
		clearable: true,
	}, q)
}

// Albums streams albums matching q.
func (e *Engine) Albums(ctx context.Context, q Query) <-chan models.Resource[[]models.Album] {
	return reconcile(ctx, e, source[models.Album]{
		name:      "albums",
		cache:     e.albums,
		read:      e.albums.Search,
		fetch:     e.service.Albums,
		prepare:   e.mergeAlbumArtists,
		clearable: true,
	}, q)
}

// Artists streams artists matching q.
func (e *Engine) Artists(ctx context.Context, q Query) <-chan models.Resource[[]models.Artist] {
	return reconcile(ctx, e, source[models.Artist]{
		name:      "artists",
		cache:     e.artists,
		read:      e.artists.Search,
		fetch:     e.service.Artists,
		clearable: true,
	}, q)
}

// Playlists streams playlists matching q.
func (e *Engine) Playlists(ctx context.Context, q Query) <-chan models.Resource[[]models.Playlist] {
	return reconcile(ctx, e, source[models.Playlist]{
		name:      "playlists",
		cache:     e.playlists,
		read:      e.playlists.Search,
		fetch:     e.service.Playlists,
		clearable: true,
	}, q)
}

// Counts returns the number of cached records per kind.
func (e *Engine) Counts() (map[models.ResourceType]int, error) {
	counters := map[models.ResourceType]func() (int, error){
		models.TypeSong:     e.songs.Count,
		models.TypeAlbum:    e.albums.Count,
		models.TypeArtist:   e.artists.Count,
		models.TypePlaylist: e.playlists.Count,
	}

	counts := make(map[models.ResourceType]int, len(counters))
	for kind, count := range counters {
		n, err := count()
		if err != nil {
			return nil, err
		}
		counts[kind] = n
	}
	return counts, nil
}
