package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"

	"github.com/desertthunder/ampsync/internal/formatter"
	"github.com/desertthunder/ampsync/internal/models"
)

// record is a list row that can be liked or opened.
type record interface {
	list.DefaultItem
	ref() (models.ResourceType, string)
	liked() bool
	withFlag(flag int) record
}

var (
	_ record = songItem{}
	_ record = albumItem{}
	_ record = artistItem{}
	_ record = playlistItem{}
)

func heart(flag int, title string) string {
	if flag == 1 {
		return "♥ " + title
	}
	return title
}

// songItem wraps [models.Song] to implement [list.Item].
type songItem struct{ song models.Song }

func (i songItem) FilterValue() string { return i.song.Artist.Name + " " + i.song.Title }
func (i songItem) Title() string       { return heart(i.song.Flag, i.song.Title) }
func (i songItem) Description() string {
	parts := []string{i.song.Artist.Name}
	if i.song.Album.Name != "" {
		parts = append(parts, i.song.Album.Name)
	}
	parts = append(parts, formatter.FormatDuration(i.song.Duration))
	return strings.Join(parts, " • ")
}
func (i songItem) ref() (models.ResourceType, string) { return models.TypeSong, i.song.ID }
func (i songItem) liked() bool                        { return i.song.Flag == 1 }
func (i songItem) withFlag(flag int) record           { i.song.Flag = flag; return i }

// albumItem wraps [models.Album] to implement [list.Item].
type albumItem struct{ album models.Album }

func (i albumItem) FilterValue() string { return i.album.Artist.Name + " " + i.album.Name }
func (i albumItem) Title() string       { return heart(i.album.Flag, i.album.Name) }
func (i albumItem) Description() string {
	desc := fmt.Sprintf("%s • %d songs", i.album.Artist.Name, i.album.SongCount)
	if i.album.Year > 0 {
		desc = fmt.Sprintf("%s • %d", desc, i.album.Year)
	}
	return desc
}
func (i albumItem) ref() (models.ResourceType, string) { return models.TypeAlbum, i.album.ID }
func (i albumItem) liked() bool                        { return i.album.Flag == 1 }
func (i albumItem) withFlag(flag int) record           { i.album.Flag = flag; return i }

// artistItem wraps [models.Artist] to implement [list.Item].
type artistItem struct{ artist models.Artist }

func (i artistItem) FilterValue() string { return i.artist.Name }
func (i artistItem) Title() string       { return heart(i.artist.Flag, i.artist.Name) }
func (i artistItem) Description() string {
	return fmt.Sprintf("%d albums • %d songs", i.artist.AlbumCount, i.artist.SongCount)
}
func (i artistItem) ref() (models.ResourceType, string) { return models.TypeArtist, i.artist.ID }
func (i artistItem) liked() bool                        { return i.artist.Flag == 1 }
func (i artistItem) withFlag(flag int) record           { i.artist.Flag = flag; return i }

// playlistItem wraps [models.Playlist] to implement [list.Item].
type playlistItem struct{ playlist models.Playlist }

func (i playlistItem) FilterValue() string { return i.playlist.Name }
func (i playlistItem) Title() string       { return heart(i.playlist.Flag, i.playlist.Name) }
func (i playlistItem) Description() string {
	desc := fmt.Sprintf("%d songs", i.playlist.Items)
	if i.playlist.Owner != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.playlist.Owner)
	}
	return desc
}
func (i playlistItem) ref() (models.ResourceType, string) { return models.TypePlaylist, i.playlist.ID }
func (i playlistItem) liked() bool                        { return i.playlist.Flag == 1 }
func (i playlistItem) withFlag(flag int) record           { i.playlist.Flag = flag; return i }

func songItems(songs []models.Song) []list.Item {
	items := make([]list.Item, len(songs))
	for i, s := range songs {
		items[i] = songItem{s}
	}
	return items
}

func albumItems(albums []models.Album) []list.Item {
	items := make([]list.Item, len(albums))
	for i, a := range albums {
		items[i] = albumItem{a}
	}
	return items
}

func artistItems(artists []models.Artist) []list.Item {
	items := make([]list.Item, len(artists))
	for i, a := range artists {
		items[i] = artistItem{a}
	}
	return items
}

func playlistItems(playlists []models.Playlist) []list.Item {
	items := make([]list.Item, len(playlists))
	for i, p := range playlists {
		items[i] = playlistItem{p}
	}
	return items
}
