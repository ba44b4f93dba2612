package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/ampsync/internal/library"
	"github.com/desertthunder/ampsync/internal/models"
	"github.com/desertthunder/ampsync/internal/services"
	"github.com/desertthunder/ampsync/internal/shared"
)

func emit[T any](values ...models.Resource[T]) <-chan models.Resource[T] {
	ch := make(chan models.Resource[T], len(values))
	for _, v := range values {
		ch <- v
	}
	close(ch)
	return ch
}

type fakeLibrary struct {
	lastQuery  library.Query
	lastID     string
	lastRemote bool
	songs      []models.Song
	err        error
}

func (f *fakeLibrary) songStream() <-chan models.Resource[[]models.Song] {
	if f.err != nil {
		return emit(models.Loading[[]models.Song](true), models.Failure[[]models.Song]("boom", f.err))
	}
	return emit(
		models.Loading[[]models.Song](true),
		models.Success(f.songs),
		models.NetworkSuccess(f.songs, f.songs),
		models.Loading[[]models.Song](false),
	)
}

func (f *fakeLibrary) Songs(ctx context.Context, q library.Query) <-chan models.Resource[[]models.Song] {
	f.lastQuery = q
	return f.songStream()
}

func (f *fakeLibrary) Albums(ctx context.Context, q library.Query) <-chan models.Resource[[]models.Album] {
	f.lastQuery = q
	return emit(models.Success([]models.Album{{ID: "al1", Name: "A"}}))
}

func (f *fakeLibrary) Artists(ctx context.Context, q library.Query) <-chan models.Resource[[]models.Artist] {
	f.lastQuery = q
	return emit(models.Success([]models.Artist{}))
}

func (f *fakeLibrary) Playlists(ctx context.Context, q library.Query) <-chan models.Resource[[]models.Playlist] {
	f.lastQuery = q
	return emit(models.Success([]models.Playlist{}))
}

func (f *fakeLibrary) AlbumsFromArtist(ctx context.Context, id string, remote bool) <-chan models.Resource[[]models.Album] {
	f.lastID, f.lastRemote = id, remote
	return emit(models.Success([]models.Album{{ID: "al1"}}))
}

func (f *fakeLibrary) SongsFromAlbum(ctx context.Context, id string, remote bool) <-chan models.Resource[[]models.Song] {
	f.lastID, f.lastRemote = id, remote
	return f.songStream()
}

func (f *fakeLibrary) SongsFromPlaylist(ctx context.Context, id string) <-chan models.Resource[[]models.Song] {
	f.lastID = id
	return f.songStream()
}

func (f *fakeLibrary) Counts() (map[models.ResourceType]int, error) {
	return map[models.ResourceType]int{models.TypeSong: len(f.songs), models.TypeAlbum: 0}, nil
}

type fakeMutations struct {
	err       error
	lastID    string
	lastKind  models.ResourceType
	lastLiked bool
	lastRate  int
}

func (f *fakeMutations) result() <-chan models.Resource[bool] {
	if f.err != nil {
		return emit(models.Loading[bool](true), models.Failure[bool](services.ErrorMessage(f.err), f.err))
	}
	return emit(models.Loading[bool](true), models.Success(true), models.Loading[bool](false))
}

func (f *fakeMutations) Like(ctx context.Context, id string, liked bool, kind models.ResourceType) <-chan models.Resource[bool] {
	f.lastID, f.lastLiked, f.lastKind = id, liked, kind
	return f.result()
}

func (f *fakeMutations) Rate(ctx context.Context, id string, rating int, kind models.ResourceType) <-chan models.Resource[bool] {
	f.lastID, f.lastRate, f.lastKind = id, rating, kind
	return f.result()
}

func newTestServer(t *testing.T, lib *fakeLibrary, mut *fakeMutations) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(New("", lib, mut, nil).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func readLines(t *testing.T, resp *http.Response) []map[string]any {
	t.Helper()
	defer resp.Body.Close()

	var lines []map[string]any
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		var line map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
			t.Fatalf("invalid ndjson line %q: %v", scanner.Text(), err)
		}
		lines = append(lines, line)
	}
	return lines
}

func TestLibraryRoutes(t *testing.T) {
	t.Run("streams every emission", func(t *testing.T) {
		lib := &fakeLibrary{songs: []models.Song{{ID: "s1", Title: "One"}}}
		srv := newTestServer(t, lib, &fakeMutations{})

		resp, err := http.Get(srv.URL + "/api/songs?query=one&offset=25&remote=true")
		if err != nil {
			t.Fatal(err)
		}
		if ct := resp.Header.Get("Content-Type"); ct != ndjson {
			t.Errorf("expected %s, got %s", ndjson, ct)
		}
		if resp.Header.Get("X-Request-ID") == "" {
			t.Error("expected request id header")
		}

		lines := readLines(t, resp)
		if len(lines) != 4 {
			t.Fatalf("expected 4 lines, got %d: %v", len(lines), lines)
		}
		if lines[0]["status"] != "loading" || lines[0]["loading"] != true {
			t.Errorf("unexpected first line %v", lines[0])
		}
		if _, ok := lines[1]["network"]; ok {
			t.Errorf("provisional emission should not carry network data: %v", lines[1])
		}
		if _, ok := lines[2]["network"]; !ok {
			t.Errorf("network emission missing network data: %v", lines[2])
		}
		if lines[3]["loading"] != false {
			t.Errorf("unexpected last line %v", lines[3])
		}

		want := library.Query{Filter: "one", Offset: 25, FetchRemote: true}
		if lib.lastQuery != want {
			t.Errorf("expected query %+v, got %+v", want, lib.lastQuery)
		}
	})

	t.Run("failure ends stream", func(t *testing.T) {
		lib := &fakeLibrary{err: shared.ErrServiceUnavailable}
		srv := newTestServer(t, lib, &fakeMutations{})

		resp, err := http.Get(srv.URL + "/api/songs")
		if err != nil {
			t.Fatal(err)
		}
		lines := readLines(t, resp)
		last := lines[len(lines)-1]
		if last["status"] != "error" || last["message"] != "boom" {
			t.Errorf("unexpected terminal line %v", last)
		}
	})

	t.Run("child routes pass the path id", func(t *testing.T) {
		tests := []struct {
			path   string
			id     string
			remote bool
		}{
			{"/api/artists/ar1/albums?remote=1", "ar1", true},
			{"/api/albums/al2/songs", "al2", false},
			{"/api/playlists/p3/songs", "p3", false},
		}

		for _, tt := range tests {
			t.Run(tt.path, func(t *testing.T) {
				lib := &fakeLibrary{}
				srv := newTestServer(t, lib, &fakeMutations{})

				resp, err := http.Get(srv.URL + tt.path)
				if err != nil {
					t.Fatal(err)
				}
				readLines(t, resp)

				if lib.lastID != tt.id || lib.lastRemote != tt.remote {
					t.Errorf("expected id=%s remote=%v, got id=%s remote=%v", tt.id, tt.remote, lib.lastID, lib.lastRemote)
				}
			})
		}
	})

	t.Run("bad query parameters", func(t *testing.T) {
		srv := newTestServer(t, &fakeLibrary{}, &fakeMutations{})

		for _, q := range []string{"offset=-1", "offset=x", "remote=maybe"} {
			resp, err := http.Get(srv.URL + "/api/albums?" + q)
			if err != nil {
				t.Fatal(err)
			}
			resp.Body.Close()
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("%s: expected 400, got %d", q, resp.StatusCode)
			}
		}
	})

	t.Run("wrong method", func(t *testing.T) {
		srv := newTestServer(t, &fakeLibrary{}, &fakeMutations{})

		resp, err := http.Post(srv.URL+"/api/songs", "application/json", nil)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", resp.StatusCode)
		}
	})

	t.Run("status", func(t *testing.T) {
		lib := &fakeLibrary{songs: []models.Song{{ID: "s1"}, {ID: "s2"}}}
		srv := newTestServer(t, lib, &fakeMutations{})

		resp, err := http.Get(srv.URL + "/api/status")
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()

		var body struct {
			Cached map[string]int `json:"cached"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			t.Fatal(err)
		}
		if body.Cached["song"] != 2 {
			t.Errorf("expected 2 songs, got %v", body.Cached)
		}
	})
}

func TestMutationRoutes(t *testing.T) {
	post := func(t *testing.T, srv *httptest.Server, path, body string) *http.Response {
		t.Helper()
		resp, err := http.Post(srv.URL+path, "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}

	t.Run("like", func(t *testing.T) {
		mut := &fakeMutations{}
		srv := newTestServer(t, &fakeLibrary{}, mut)

		resp := post(t, srv, "/api/like", `{"type":"album","id":"al1","liked":true}`)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		if mut.lastID != "al1" || mut.lastKind != models.TypeAlbum || !mut.lastLiked {
			t.Errorf("unexpected like call: %+v", mut)
		}
	})

	t.Run("rate", func(t *testing.T) {
		mut := &fakeMutations{}
		srv := newTestServer(t, &fakeLibrary{}, mut)

		resp := post(t, srv, "/api/rate", `{"type":"song","id":"s1","rating":3}`)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		if mut.lastRate != 3 || mut.lastKind != models.TypeSong {
			t.Errorf("unexpected rate call: %+v", mut)
		}
	})

	t.Run("invalid bodies", func(t *testing.T) {
		srv := newTestServer(t, &fakeLibrary{}, &fakeMutations{})

		for _, body := range []string{`{`, `{"type":"song"}`, `{"type":"genre","id":"g1"}`} {
			if resp := post(t, srv, "/api/like", body); resp.StatusCode != http.StatusBadRequest {
				t.Errorf("%s: expected 400, got %d", body, resp.StatusCode)
			}
		}
	})

	t.Run("error status mapping", func(t *testing.T) {
		tests := []struct {
			err  error
			want int
		}{
			{shared.ErrInvalidInput, http.StatusBadRequest},
			{shared.ErrNotAuthenticated, http.StatusUnauthorized},
			{&services.APIError{Code: 4704, Message: "missing"}, http.StatusNotFound},
			{&services.APIError{Code: 4710, Message: "bad"}, http.StatusBadGateway},
			{shared.ErrServiceUnavailable, http.StatusServiceUnavailable},
			{errors.New("disk full"), http.StatusInternalServerError},
		}

		for _, tt := range tests {
			mut := &fakeMutations{err: tt.err}
			srv := newTestServer(t, &fakeLibrary{}, mut)

			resp := post(t, srv, "/api/rate", `{"type":"song","id":"s1","rating":3}`)
			if resp.StatusCode != tt.want {
				t.Errorf("%v: expected %d, got %d", tt.err, tt.want, resp.StatusCode)
			}
		}
	})
}

func TestMiddleware(t *testing.T) {
	t.Run("recover", func(t *testing.T) {
		router := NewBasicRouter()
		router.Use(Recover(nilLogger()))
		router.Handle(http.MethodGet, "/panic", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("boom")
		}))

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", rec.Code)
		}
	})

	t.Run("order", func(t *testing.T) {
		var order []string
		mark := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}

		router := NewBasicRouter()
		router.Use(mark("first"), mark("second"))
		router.Handle(http.MethodGet, "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		if strings.Join(order, ",") != "first,second" {
			t.Errorf("expected first,second, got %v", order)
		}
	})
}

func nilLogger() *log.Logger {
	return log.New(io.Discard)
}
