package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/desertthunder/ampsync/internal/library"
	"github.com/desertthunder/ampsync/internal/models"
)

// Library is the read side of the reconciliation engine.
type Library interface {
	Songs(ctx context.Context, q library.Query) <-chan models.Resource[[]models.Song]
	Albums(ctx context.Context, q library.Query) <-chan models.Resource[[]models.Album]
	Artists(ctx context.Context, q library.Query) <-chan models.Resource[[]models.Artist]
	Playlists(ctx context.Context, q library.Query) <-chan models.Resource[[]models.Playlist]
	AlbumsFromArtist(ctx context.Context, artistID string, fetchRemote bool) <-chan models.Resource[[]models.Album]
	SongsFromAlbum(ctx context.Context, albumID string, fetchRemote bool) <-chan models.Resource[[]models.Song]
	SongsFromPlaylist(ctx context.Context, playlistID string) <-chan models.Resource[[]models.Song]
}

// Mutations toggles likes through the offline queue.
type Mutations interface {
	Like(ctx context.Context, id string, liked bool, kind models.ResourceType) <-chan models.Resource[bool]
}

// detailView is a drilled-down list: an album's songs, an artist's albums or a playlist's songs.
type detailView struct {
	parent record
	list   list.Model
	gen    int
}

// Model is the library browser.
type Model struct {
	ctx     context.Context
	lib     Library
	mut     Mutations
	kinds   []models.ResourceType
	active  int
	lists   map[models.ResourceType]*list.Model
	detail  *detailView
	gen     int
	loading map[pane]bool
	status  string
	err     error
	width   int
	height  int
	spinner spinner.Model
	help    help.Model
	keys    keyMap
}

// NewModel creates a browser over lib. Likes go through mut.
func NewModel(ctx context.Context, lib Library, mut Mutations) *Model {
	m := &Model{
		ctx:     ctx,
		lib:     lib,
		mut:     mut,
		kinds:   models.ResourceTypes,
		lists:   make(map[models.ResourceType]*list.Model, len(models.ResourceTypes)),
		loading: make(map[pane]bool),
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
		help:    help.New(),
		keys:    newKeyMap(),
	}

	for _, kind := range m.kinds {
		l := newList(strings.ToUpper(string(kind[:1])) + string(kind[1:]) + "s")
		m.lists[kind] = &l
	}
	return m
}

func newList(title string) list.Model {
	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = title
	l.SetShowHelp(false)
	l.DisableQuitKeybindings()
	return l
}

// Init loads every kind from the cache so tab switches are instant.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick}
	for _, kind := range m.kinds {
		cmds = append(cmds, m.load(kind, false))
	}
	return tea.Batch(cmds...)
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		for _, l := range m.lists {
			l.SetSize(msg.Width-4, msg.Height-6)
		}
		if m.detail != nil {
			m.detail.list.SetSize(msg.Width-4, msg.Height-6)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)

	case streamMsg:
		return m, m.handleStream(msg)

	case streamDoneMsg:
		delete(m.loading, msg.pane)
		return m, nil

	case likedMsg:
		m.handleLiked(msg)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m.updateList(msg)
}

// View renders the tab bar, the focused list and a status line.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(m.renderTabs())
	b.WriteString("\n")
	b.WriteString(m.current().View())
	b.WriteString("\n")
	b.WriteString(m.renderStatus())
	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView(m.helpKeys()))

	return b.String()
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.current().FilterState() == list.Filtering {
		return m.updateList(msg)
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.next):
		m.detail = nil
		m.active = (m.active + 1) % len(m.kinds)
		return m, nil
	case key.Matches(msg, m.keys.prev):
		m.detail = nil
		m.active = (m.active - 1 + len(m.kinds)) % len(m.kinds)
		return m, nil
	case key.Matches(msg, m.keys.back):
		if m.detail != nil {
			m.detail = nil
			return m, nil
		}
	case key.Matches(msg, m.keys.enter):
		if r, ok := m.selected(); ok {
			return m, m.open(r, false)
		}
		return m, nil
	case key.Matches(msg, m.keys.like):
		if r, ok := m.selected(); ok {
			return m, m.toggleLike(r)
		}
		return m, nil
	case key.Matches(msg, m.keys.refresh):
		return m, m.refresh()
	}

	return m.updateList(msg)
}

func (m *Model) handleStream(msg streamMsg) tea.Cmd {
	target := m.listFor(msg.pane)
	if target == nil {
		delete(m.loading, msg.pane)
		return nil
	}

	switch msg.status {
	case models.StatusLoading:
		if msg.loading {
			m.loading[msg.pane] = true
		} else {
			delete(m.loading, msg.pane)
		}
	case models.StatusSuccess:
		cmd := target.SetItems(msg.items)
		if msg.network {
			m.status = fmt.Sprintf("%s synced: %d records", target.Title, len(msg.items))
		}
		return tea.Batch(cmd, msg.next)
	case models.StatusError:
		delete(m.loading, msg.pane)
		m.status = styles.err.Render(msg.message)
	}
	return msg.next
}

func (m *Model) handleLiked(msg likedMsg) {
	if msg.err != nil {
		m.status = styles.err.Render(msg.message)
		return
	}

	lists := []*list.Model{m.lists[msg.kind]}
	if m.detail != nil {
		lists = append(lists, &m.detail.list)
	}
	for _, l := range lists {
		for i, item := range l.Items() {
			r, ok := item.(record)
			if !ok {
				continue
			}
			if kind, id := r.ref(); kind == msg.kind && id == msg.id {
				l.SetItem(i, r.withFlag(msg.flag))
			}
		}
	}

	if msg.flag == 1 {
		m.status = styles.ok.Render("liked")
	} else {
		m.status = "unliked"
	}
}

// listFor returns the list a pane writes to, or nil for a stale detail stream.
func (m *Model) listFor(p pane) *list.Model {
	if p.detail {
		if m.detail == nil || m.detail.gen != p.gen {
			return nil
		}
		return &m.detail.list
	}
	return m.lists[p.kind]
}

func (m *Model) current() *list.Model {
	if m.detail != nil {
		return &m.detail.list
	}
	return m.lists[m.kinds[m.active]]
}

func (m *Model) selected() (record, bool) {
	r, ok := m.current().SelectedItem().(record)
	return r, ok
}

func (m *Model) updateList(msg tea.Msg) (tea.Model, tea.Cmd) {
	l := m.current()
	updated, cmd := l.Update(msg)
	*l = updated
	return m, cmd
}

// load starts a reconciliation stream for a top-level kind.
func (m *Model) load(kind models.ResourceType, remote bool) tea.Cmd {
	p := pane{kind: kind}
	q := library.Query{FetchRemote: remote}

	switch kind {
	case models.TypeSong:
		return listen(p, m.lib.Songs(m.ctx, q), songItems)
	case models.TypeAlbum:
		return listen(p, m.lib.Albums(m.ctx, q), albumItems)
	case models.TypeArtist:
		return listen(p, m.lib.Artists(m.ctx, q), artistItems)
	case models.TypePlaylist:
		return listen(p, m.lib.Playlists(m.ctx, q), playlistItems)
	}
	return nil
}

// open drills into r. Songs have no children.
func (m *Model) open(r record, remote bool) tea.Cmd {
	kind, id := r.ref()
	if kind == models.TypeSong {
		return nil
	}

	m.gen++
	d := &detailView{parent: r, list: newList(r.Title()), gen: m.gen}
	d.list.SetSize(m.width-4, m.height-6)
	m.detail = d

	switch kind {
	case models.TypeAlbum:
		p := pane{kind: models.TypeSong, detail: true, gen: d.gen}
		return listen(p, m.lib.SongsFromAlbum(m.ctx, id, remote), songItems)
	case models.TypeArtist:
		p := pane{kind: models.TypeAlbum, detail: true, gen: d.gen}
		return listen(p, m.lib.AlbumsFromArtist(m.ctx, id, remote), albumItems)
	case models.TypePlaylist:
		p := pane{kind: models.TypeSong, detail: true, gen: d.gen}
		return listen(p, m.lib.SongsFromPlaylist(m.ctx, id), songItems)
	}
	return nil
}

// refresh re-runs the focused view against the server.
func (m *Model) refresh() tea.Cmd {
	m.status = "refreshing..."
	if m.detail != nil {
		return m.open(m.detail.parent, true)
	}
	return m.load(m.kinds[m.active], true)
}

func (m *Model) toggleLike(r record) tea.Cmd {
	kind, id := r.ref()
	liked := !r.liked()
	stream := m.mut.Like(m.ctx, id, liked, kind)

	return func() tea.Msg {
		msg := likedMsg{kind: kind, id: id, flag: models.FlagValue(liked)}
		for res := range stream {
			if res.IsError() {
				msg.err, msg.message = res.Err, res.Message
			}
		}
		return msg
	}
}

func (m *Model) renderTabs() string {
	tabs := make([]string, len(m.kinds))
	for i, kind := range m.kinds {
		label := string(kind) + "s"
		if i == m.active {
			tabs[i] = styles.activeTab.Render(label)
		} else {
			tabs[i] = styles.tab.Render(label)
		}
	}

	bar := lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
	if m.detail != nil {
		bar = lipgloss.JoinHorizontal(lipgloss.Top, bar, styles.help.Render("  › "+m.detail.parent.Title()))
	}
	return bar
}

func (m *Model) renderStatus() string {
	if len(m.loading) > 0 {
		return m.spinner.View() + " loading " + m.status
	}
	return m.status
}

func (m *Model) helpKeys() []key.Binding {
	if m.detail != nil {
		return []key.Binding{m.keys.back, m.keys.like, m.keys.refresh, m.keys.quit}
	}
	return m.keys.ShortHelp()
}
