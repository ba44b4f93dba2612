// package formatter renders cached library records as terminal tables, CSV, Markdown or plain text
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/desertthunder/ampsync/internal/models"
	"github.com/desertthunder/ampsync/internal/shared"
)

// Format names an output format accepted by [Render].
type Format string

const (
	FormatTable    Format = "table"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
)

// ParseFormat validates a user supplied format name. An empty name selects [FormatTable].
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatTable, nil
	case FormatTable, FormatCSV, FormatMarkdown, FormatText:
		return f, nil
	case "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q (want table, csv, markdown or text)", shared.ErrInvalidFlag, s)
	}
}

// Extension returns the file extension used when writing f to disk.
func (f Format) Extension() string {
	switch f {
	case FormatCSV:
		return ".csv"
	case FormatMarkdown:
		return ".md"
	default:
		return ".txt"
	}
}

// Table is a titled grid of rendered cells, one row per record.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
}

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

// SongTable lists songs with their album position.
func SongTable(title string, songs []models.Song) Table {
	t := Table{Title: title, Headers: []string{"ID", "Title", "Artist", "Album", "Track", "Duration", "Liked", "Rating"}}
	for _, s := range songs {
		t.Rows = append(t.Rows, []string{
			s.ID,
			s.Title,
			s.Artist.Name,
			s.Album.Name,
			trackNumber(s.Disk, s.Track),
			FormatDuration(s.Duration),
			liked(s.Flag),
			stars(s.Rating),
		})
	}
	return t
}

// AlbumTable lists albums with every credited artist.
func AlbumTable(title string, albums []models.Album) Table {
	t := Table{Title: title, Headers: []string{"ID", "Name", "Artist", "Year", "Songs", "Liked", "Rating"}}
	for _, a := range albums {
		t.Rows = append(t.Rows, []string{
			a.ID,
			a.Name,
			artistNames(a),
			yearString(a.Year),
			strconv.Itoa(a.SongCount),
			liked(a.Flag),
			stars(a.Rating),
		})
	}
	return t
}

// ArtistTable lists artists.
func ArtistTable(title string, artists []models.Artist) Table {
	t := Table{Title: title, Headers: []string{"ID", "Name", "Albums", "Songs", "Liked", "Rating"}}
	for _, a := range artists {
		t.Rows = append(t.Rows, []string{
			a.ID,
			a.Name,
			strconv.Itoa(a.AlbumCount),
			strconv.Itoa(a.SongCount),
			liked(a.Flag),
			stars(a.Rating),
		})
	}
	return t
}

// PlaylistTable lists playlist headers.
func PlaylistTable(title string, playlists []models.Playlist) Table {
	t := Table{Title: title, Headers: []string{"ID", "Name", "Owner", "Items", "Visibility", "Liked"}}
	for _, p := range playlists {
		t.Rows = append(t.Rows, []string{
			p.ID,
			p.Name,
			p.Owner,
			strconv.Itoa(p.Items),
			p.Type,
			liked(p.Flag),
		})
	}
	return t
}

// Render renders t in format f.
func Render(t Table, f Format) ([]byte, error) {
	switch f {
	case FormatTable, "":
		return ToTable(t), nil
	case FormatCSV:
		return ToCSV(t)
	case FormatMarkdown:
		return ToMarkdown(t), nil
	case FormatText:
		return ToText(t), nil
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, f)
	}
}

// ToTable draws t as a bordered terminal table.
func ToTable(t Table) []byte {
	tbl := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers(t.Headers...).
		Rows(t.Rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	var buf bytes.Buffer
	if t.Title != "" {
		buf.WriteString(t.Title + "\n")
	}
	buf.WriteString(tbl.String())
	buf.WriteString(fmt.Sprintf("\n%d records\n", len(t.Rows)))
	return buf.Bytes()
}

// ToCSV converts t to CSV with a header row.
func ToCSV(t Table) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(t.Headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, row := range t.Rows {
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ToMarkdown converts t to a Markdown document with a pipe table.
func ToMarkdown(t Table) []byte {
	var buf bytes.Buffer

	if t.Title != "" {
		buf.WriteString(fmt.Sprintf("# %s\n\n", t.Title))
	}
	buf.WriteString(fmt.Sprintf("**Records**: %d\n\n", len(t.Rows)))

	buf.WriteString("| " + strings.Join(escapeCells(t.Headers), " | ") + " |\n")
	buf.WriteString("|" + strings.Repeat(" --- |", len(t.Headers)) + "\n")
	for _, row := range t.Rows {
		buf.WriteString("| " + strings.Join(escapeCells(row), " | ") + " |\n")
	}

	return buf.Bytes()
}

// ToText converts t to a numbered plain text list using the first two non-id columns.
func ToText(t Table) []byte {
	var buf bytes.Buffer

	if t.Title != "" {
		buf.WriteString(t.Title + "\n")
	}
	buf.WriteString(fmt.Sprintf("Records: %d\n\n", len(t.Rows)))

	for i, row := range t.Rows {
		label := cell(row, 1)
		if secondary := cell(row, 2); secondary != "" {
			label = fmt.Sprintf("%s - %s", secondary, label)
		}
		buf.WriteString(fmt.Sprintf("%d. %s\n", i+1, label))
	}

	return buf.Bytes()
}

// WriteExport renders t in format f and writes it to path.
//
// Defaults to {slug(title)}{ext} when path is empty. Parent directories are created as needed.
func WriteExport(t Table, f Format, path string) (string, error) {
	if path == "" {
		name := slug(t.Title)
		if name == "" {
			name = "export"
		}
		path = name + f.Extension()
	}

	data, err := Render(t, f)
	if err != nil {
		return "", err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}

	return path, nil
}

// FormatDuration formats seconds as m:ss, or h:mm:ss past an hour.
func FormatDuration(seconds int) string {
	if seconds <= 0 {
		return "0:00"
	}
	h, m, s := seconds/3600, (seconds%3600)/60, seconds%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

func trackNumber(disk, track int) string {
	switch {
	case track <= 0:
		return ""
	case disk > 1:
		return fmt.Sprintf("%d-%d", disk, track)
	default:
		return strconv.Itoa(track)
	}
}

func artistNames(a models.Album) string {
	names := []string{}
	seen := map[string]bool{}
	add := func(attr models.MusicAttribute) {
		if attr.Name == "" || seen[attr.ID+attr.Name] {
			return
		}
		seen[attr.ID+attr.Name] = true
		names = append(names, attr.Name)
	}

	add(a.Artist)
	for _, artist := range a.Artists {
		add(artist)
	}
	return strings.Join(names, ", ")
}

func yearString(year int) string {
	if year <= 0 {
		return ""
	}
	return strconv.Itoa(year)
}

func liked(flag int) string {
	if flag == 1 {
		return "♥"
	}
	return ""
}

func stars(rating int) string {
	if rating <= 0 {
		return ""
	}
	return strings.Repeat("★", rating) + strings.Repeat("☆", 5-min(rating, 5))
}

func escapeCells(row []string) []string {
	out := make([]string, len(row))
	for i, c := range row {
		out[i] = strings.ReplaceAll(c, "|", `\|`)
	}
	return out
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

func slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
