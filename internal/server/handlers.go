package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/ampsync/internal/library"
	"github.com/desertthunder/ampsync/internal/models"
	"github.com/desertthunder/ampsync/internal/services"
	"github.com/desertthunder/ampsync/internal/shared"
)

const ndjson = "application/x-ndjson"

// LibraryHandler streams reconciliation results as newline-delimited JSON, one line per emission.
type LibraryHandler struct {
	lib    Library
	logger *log.Logger
}

// NewLibraryHandler creates a handler for every read route.
func NewLibraryHandler(lib Library, logger *log.Logger) *LibraryHandler {
	return &LibraryHandler{lib: lib, logger: logger}
}

// Routes returns the HTTP routes this handler serves.
func (h *LibraryHandler) Routes() []string {
	return []string{
		"/api/songs",
		"/api/albums",
		"/api/artists",
		"/api/playlists",
		"/api/artists/{id}/albums",
		"/api/albums/{id}/songs",
		"/api/playlists/{id}/songs",
	}
}

// ServeHTTP dispatches on the matched route pattern.
func (h *LibraryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	q, err := parseQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	id := r.PathValue("id")

	switch r.Pattern {
	case "/api/songs":
		stream(w, h.lib.Songs(ctx, q))
	case "/api/albums":
		stream(w, h.lib.Albums(ctx, q))
	case "/api/artists":
		stream(w, h.lib.Artists(ctx, q))
	case "/api/playlists":
		stream(w, h.lib.Playlists(ctx, q))
	case "/api/artists/{id}/albums":
		stream(w, h.lib.AlbumsFromArtist(ctx, id, q.FetchRemote))
	case "/api/albums/{id}/songs":
		stream(w, h.lib.SongsFromAlbum(ctx, id, q.FetchRemote))
	case "/api/playlists/{id}/songs":
		stream(w, h.lib.SongsFromPlaylist(ctx, id))
	default:
		h.logger.Warn("unrouted pattern", "pattern", r.Pattern)
		writeError(w, http.StatusNotFound, "not found")
	}
}

// LikeRequest is the body of POST /api/like.
type LikeRequest struct {
	Type  string `json:"type"`
	ID    string `json:"id"`
	Liked bool   `json:"liked"`
}

// RateRequest is the body of POST /api/rate.
type RateRequest struct {
	Type   string `json:"type"`
	ID     string `json:"id"`
	Rating int    `json:"rating"`
}

// MutationHandler runs likes and ratings through the offline queue.
type MutationHandler struct {
	mut    Mutations
	logger *log.Logger
}

// NewMutationHandler creates a handler for the write routes.
func NewMutationHandler(mut Mutations, logger *log.Logger) *MutationHandler {
	return &MutationHandler{mut: mut, logger: logger}
}

// Routes returns the HTTP routes this handler serves.
func (h *MutationHandler) Routes() []string {
	return []string{"/api/like", "/api/rate"}
}

// ServeHTTP decodes the request body and reports the final mutation result.
func (h *MutationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var results <-chan models.Resource[bool]

	switch r.Pattern {
	case "/api/like":
		var req LikeRequest
		kind, err := decodeMutation(r, &req, func() (string, string) { return req.Type, req.ID })
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		results = h.mut.Like(r.Context(), req.ID, req.Liked, kind)
	case "/api/rate":
		var req RateRequest
		kind, err := decodeMutation(r, &req, func() (string, string) { return req.Type, req.ID })
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		results = h.mut.Rate(r.Context(), req.ID, req.Rating, kind)
	default:
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	var failure *models.Resource[bool]
	for res := range results {
		if res.IsError() {
			failure = &res
		}
	}

	if failure != nil {
		h.logger.Warn("mutation failed", "path", r.URL.Path, "error", failure.Err)
		writeError(w, statusFor(failure.Err), failure.Message)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"status": models.StatusSuccess.String()})
}

// statusHandler reports how many records of each kind are cached.
func statusHandler(lib Library) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		counts, err := lib.Counts()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		out := make(map[string]int, len(counts))
		for kind, n := range counts {
			out[string(kind)] = n
		}
		writeJSON(w, http.StatusOK, map[string]any{"cached": out})
	})
}

func decodeMutation(r *http.Request, dest any, fields func() (string, string)) (models.ResourceType, error) {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		return "", fmt.Errorf("invalid request body: %v", err)
	}

	typ, id := fields()
	if strings.TrimSpace(id) == "" {
		return "", fmt.Errorf("id is required")
	}
	return models.ParseResourceType(typ)
}

func parseQuery(r *http.Request) (library.Query, error) {
	values := r.URL.Query()
	q := library.Query{Filter: values.Get("query")}

	if raw := values.Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return q, fmt.Errorf("offset must be a non-negative integer")
		}
		q.Offset = offset
	}

	if raw := values.Get("remote"); raw != "" {
		remote, err := strconv.ParseBool(raw)
		if err != nil {
			return q, fmt.Errorf("remote must be a boolean")
		}
		q.FetchRemote = remote
	}

	return q, nil
}

// stream writes each emission on its own line and flushes it.
func stream[T any](w http.ResponseWriter, results <-chan models.Resource[T]) {
	w.Header().Set("Content-Type", ndjson)
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	enc := json.NewEncoder(w)

	for res := range results {
		if err := enc.Encode(emission(res)); err != nil {
			for range results {
			}
			return
		}
		_ = rc.Flush()
	}
}

// emission is the wire form of a [models.Resource].
func emission[T any](res models.Resource[T]) map[string]any {
	out := map[string]any{"status": res.Status.String()}

	switch res.Status {
	case models.StatusLoading:
		out["loading"] = res.Loading
	case models.StatusSuccess:
		out["data"] = res.Data
		if res.HasNetwork {
			out["network"] = res.Network
		}
	case models.StatusError:
		out["message"] = res.Message
	}
	return out
}

func statusFor(err error) int {
	var apiErr *services.APIError
	switch {
	case errors.Is(err, shared.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrNotAuthenticated), errors.Is(err, shared.ErrAuthFailed):
		return http.StatusUnauthorized
	case errors.Is(err, shared.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrServiceUnavailable):
		return http.StatusServiceUnavailable
	case errors.As(err, &apiErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
