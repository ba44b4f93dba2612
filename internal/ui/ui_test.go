package ui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/ampsync/internal/library"
	"github.com/desertthunder/ampsync/internal/models"
)

func emit[T any](values ...models.Resource[T]) <-chan models.Resource[T] {
	ch := make(chan models.Resource[T], len(values))
	for _, v := range values {
		ch <- v
	}
	close(ch)
	return ch
}

func reconciled[T any](local, network T) <-chan models.Resource[T] {
	return emit(models.Loading[T](true), models.Success(local), models.NetworkSuccess(network, network), models.Loading[T](false))
}

type fakeLibrary struct {
	songs      []models.Song
	albums     []models.Album
	albumSongs []models.Song
	err        error
	lastRemote bool
	lastID     string
}

func (f *fakeLibrary) Songs(ctx context.Context, q library.Query) <-chan models.Resource[[]models.Song] {
	f.lastRemote = q.FetchRemote
	if f.err != nil {
		return emit(models.Loading[[]models.Song](true), models.Failure[[]models.Song]("cannot reach the server", f.err))
	}
	return reconciled(f.songs[:1], f.songs)
}

func (f *fakeLibrary) Albums(ctx context.Context, q library.Query) <-chan models.Resource[[]models.Album] {
	return reconciled(f.albums, f.albums)
}

func (f *fakeLibrary) Artists(ctx context.Context, q library.Query) <-chan models.Resource[[]models.Artist] {
	return reconciled([]models.Artist{}, []models.Artist{{ID: "ar1", Name: "One"}})
}

func (f *fakeLibrary) Playlists(ctx context.Context, q library.Query) <-chan models.Resource[[]models.Playlist] {
	return reconciled([]models.Playlist{}, []models.Playlist{})
}

func (f *fakeLibrary) AlbumsFromArtist(ctx context.Context, id string, remote bool) <-chan models.Resource[[]models.Album] {
	f.lastID, f.lastRemote = id, remote
	return reconciled(f.albums, f.albums)
}

func (f *fakeLibrary) SongsFromAlbum(ctx context.Context, id string, remote bool) <-chan models.Resource[[]models.Song] {
	f.lastID, f.lastRemote = id, remote
	return reconciled(f.albumSongs, f.albumSongs)
}

func (f *fakeLibrary) SongsFromPlaylist(ctx context.Context, id string) <-chan models.Resource[[]models.Song] {
	f.lastID = id
	return reconciled(f.albumSongs, f.albumSongs)
}

type fakeMutations struct {
	err    error
	lastID string
	liked  bool
}

func (f *fakeMutations) Like(ctx context.Context, id string, liked bool, kind models.ResourceType) <-chan models.Resource[bool] {
	f.lastID, f.liked = id, liked
	if f.err != nil {
		return emit(models.Loading[bool](true), models.Failure[bool]("not logged in", f.err))
	}
	return emit(models.Loading[bool](true), models.Success(true), models.Loading[bool](false))
}

func newTestModel(t *testing.T) (*Model, *fakeLibrary, *fakeMutations) {
	t.Helper()

	lib := &fakeLibrary{
		songs:      []models.Song{{ID: "s1", Title: "One"}, {ID: "s2", Title: "Two"}},
		albums:     []models.Album{{ID: "al1", Name: "First"}},
		albumSongs: []models.Song{{ID: "s3", Title: "Three"}},
	}
	mut := &fakeMutations{}
	m := NewModel(context.Background(), lib, mut)
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})

	for _, kind := range m.kinds {
		drain(m, m.load(kind, false))
	}
	return m, lib, mut
}

// drain runs a stream command chain to completion against m.
func drain(m *Model, cmd tea.Cmd) {
	for cmd != nil {
		switch msg := cmd().(type) {
		case streamMsg:
			m.handleStream(msg)
			cmd = msg.next
		default:
			m.Update(msg)
			cmd = nil
		}
	}
}

func press(m *Model, k tea.KeyMsg) tea.Cmd {
	_, cmd := m.Update(k)
	return cmd
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestBrowse(t *testing.T) {
	t.Run("streams fill every list", func(t *testing.T) {
		m, _, _ := newTestModel(t)

		if got := len(m.lists[models.TypeSong].Items()); got != 2 {
			t.Errorf("expected network result of 2 songs, got %d", got)
		}
		if got := len(m.lists[models.TypeArtist].Items()); got != 1 {
			t.Errorf("expected 1 artist, got %d", got)
		}
		if len(m.loading) != 0 {
			t.Errorf("expected nothing loading, got %v", m.loading)
		}
	})

	t.Run("tab cycles kinds", func(t *testing.T) {
		m, _, _ := newTestModel(t)

		press(m, tea.KeyMsg{Type: tea.KeyTab})
		if m.kinds[m.active] != models.TypeAlbum {
			t.Errorf("expected albums, got %s", m.kinds[m.active])
		}

		press(m, tea.KeyMsg{Type: tea.KeyShiftTab})
		press(m, tea.KeyMsg{Type: tea.KeyShiftTab})
		if m.kinds[m.active] != models.TypePlaylist {
			t.Errorf("expected wrap to playlists, got %s", m.kinds[m.active])
		}
	})

	t.Run("enter drills into album songs", func(t *testing.T) {
		m, lib, _ := newTestModel(t)
		press(m, tea.KeyMsg{Type: tea.KeyTab})

		drain(m, press(m, tea.KeyMsg{Type: tea.KeyEnter}))

		if m.detail == nil {
			t.Fatal("expected detail view")
		}
		if lib.lastID != "al1" {
			t.Errorf("expected album al1, got %s", lib.lastID)
		}
		if got := len(m.detail.list.Items()); got != 1 {
			t.Errorf("expected 1 album song, got %d", got)
		}
		if !strings.Contains(m.View(), "First") {
			t.Error("expected breadcrumb with album name")
		}

		press(m, tea.KeyMsg{Type: tea.KeyEsc})
		if m.detail != nil {
			t.Error("expected esc to leave detail view")
		}
	})

	t.Run("enter on a song does nothing", func(t *testing.T) {
		m, _, _ := newTestModel(t)

		if cmd := press(m, tea.KeyMsg{Type: tea.KeyEnter}); cmd != nil || m.detail != nil {
			t.Error("expected no drill-down for songs")
		}
	})

	t.Run("stale detail stream is dropped", func(t *testing.T) {
		m, _, _ := newTestModel(t)
		press(m, tea.KeyMsg{Type: tea.KeyTab})

		cmd := press(m, tea.KeyMsg{Type: tea.KeyEnter})
		press(m, tea.KeyMsg{Type: tea.KeyEsc})
		drain(m, cmd)

		if m.detail != nil || len(m.loading) != 0 {
			t.Errorf("expected stale stream ignored, detail=%v loading=%v", m.detail, m.loading)
		}
	})

	t.Run("refresh fetches remote", func(t *testing.T) {
		m, lib, _ := newTestModel(t)

		drain(m, press(m, runes("r")))
		if !lib.lastRemote {
			t.Error("expected refresh to fetch remote")
		}
		if !strings.Contains(m.status, "synced") {
			t.Errorf("expected synced status, got %q", m.status)
		}
	})

	t.Run("stream failure shows message", func(t *testing.T) {
		m, lib, _ := newTestModel(t)
		lib.err = errors.New("dial tcp: refused")

		drain(m, press(m, runes("r")))
		if !strings.Contains(m.status, "cannot reach the server") {
			t.Errorf("expected error status, got %q", m.status)
		}
	})
}

func TestLike(t *testing.T) {
	t.Run("toggles flag on success", func(t *testing.T) {
		m, _, mut := newTestModel(t)

		drain(m, press(m, runes("f")))
		if mut.lastID != "s1" || !mut.liked {
			t.Errorf("expected like of s1, got id=%s liked=%v", mut.lastID, mut.liked)
		}

		item := m.lists[models.TypeSong].Items()[0].(songItem)
		if item.song.Flag != 1 {
			t.Errorf("expected flag 1, got %d", item.song.Flag)
		}
		if !strings.HasPrefix(item.Title(), "♥") {
			t.Errorf("expected heart in title, got %q", item.Title())
		}

		drain(m, press(m, runes("f")))
		if mut.liked {
			t.Error("expected second press to unlike")
		}
	})

	t.Run("failure keeps flag", func(t *testing.T) {
		m, _, mut := newTestModel(t)
		mut.err = errors.New("not authenticated")

		drain(m, press(m, runes("f")))

		item := m.lists[models.TypeSong].Items()[0].(songItem)
		if item.song.Flag != 0 {
			t.Errorf("expected flag unchanged, got %d", item.song.Flag)
		}
		if !strings.Contains(m.status, "not logged in") {
			t.Errorf("expected failure status, got %q", m.status)
		}
	})
}
