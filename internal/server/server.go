// package server contains the router, middleware and handlers of the local library API
package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/ampsync/internal/library"
	"github.com/desertthunder/ampsync/internal/models"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Handler is an [http.Handler] that knows the path patterns it serves.
type Handler interface {
	http.Handler      // ServeHTTP handles the HTTP request and writes the response
	Routes() []string // Routes returns the path patterns this handler serves
}

// Router registers handlers behind a shared middleware stack.
type Router interface {
	Use(middleware ...Middleware)                     // Use adds middleware to the router's middleware stack
	Handle(method, path string, handler http.Handler) // Handle registers a handler for the specified method and path
	Handler(handler Handler)                          // Handler registers a custom Handler implementation
	ServeHTTP(w http.ResponseWriter, r *http.Request) // ServeHTTP implements http.Handler for the entire router
}

// Library is the read side of the reconciliation engine.
type Library interface {
	Songs(ctx context.Context, q library.Query) <-chan models.Resource[[]models.Song]
	Albums(ctx context.Context, q library.Query) <-chan models.Resource[[]models.Album]
	Artists(ctx context.Context, q library.Query) <-chan models.Resource[[]models.Artist]
	Playlists(ctx context.Context, q library.Query) <-chan models.Resource[[]models.Playlist]
	AlbumsFromArtist(ctx context.Context, artistID string, fetchRemote bool) <-chan models.Resource[[]models.Album]
	SongsFromAlbum(ctx context.Context, albumID string, fetchRemote bool) <-chan models.Resource[[]models.Song]
	SongsFromPlaylist(ctx context.Context, playlistID string) <-chan models.Resource[[]models.Song]
	Counts() (map[models.ResourceType]int, error)
}

// Mutations is the write side: likes and ratings through the offline queue.
type Mutations interface {
	Like(ctx context.Context, id string, liked bool, kind models.ResourceType) <-chan models.Resource[bool]
	Rate(ctx context.Context, id string, rating int, kind models.ResourceType) <-chan models.Resource[bool]
}

// Server serves the library API over HTTP.
type Server struct {
	router *BasicRouter
	http   *http.Server
	logger *log.Logger
}

// New builds a [Server] listening on addr with every API route registered.
func New(addr string, lib Library, mut Mutations, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard)
	}

	router := NewBasicRouter()
	router.Use(Recover(logger), Logging(logger))
	router.Handler(NewLibraryHandler(lib, logger))
	router.Handler(NewMutationHandler(mut, logger))
	router.Handle(http.MethodGet, "/api/status", statusHandler(lib))

	return &Server{
		router: router,
		logger: logger,
		http: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Handler returns the root handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("starting library API", "addr", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
		close(serverErrors)
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("error shutting down server", "error", err)
		return err
	}
	s.logger.Info("library API stopped")
	return nil
}
