package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/ampsync/internal/formatter"
	"github.com/desertthunder/ampsync/internal/library"
	"github.com/desertthunder/ampsync/internal/models"
	"github.com/desertthunder/ampsync/internal/shared"
)

func query(cmd *cli.Command) library.Query {
	return library.Query{
		Filter:      cmd.String("query"),
		Offset:      max(int(cmd.Int("offset")), 0),
		FetchRemote: cmd.Bool("remote"),
	}
}

// Songs lists cached songs, reconciling with the server when --remote is set.
func (r *Runner) Songs(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(); err != nil {
		return err
	}
	return show(r, cmd, "Songs", r.engine.Songs(ctx, query(cmd)), formatter.SongTable)
}

// Albums lists cached albums.
func (r *Runner) Albums(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(); err != nil {
		return err
	}
	return show(r, cmd, "Albums", r.engine.Albums(ctx, query(cmd)), formatter.AlbumTable)
}

// Artists lists cached artists.
func (r *Runner) Artists(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(); err != nil {
		return err
	}
	return show(r, cmd, "Artists", r.engine.Artists(ctx, query(cmd)), formatter.ArtistTable)
}

// Playlists lists cached playlists.
func (r *Runner) Playlists(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(); err != nil {
		return err
	}
	return show(r, cmd, "Playlists", r.engine.Playlists(ctx, query(cmd)), formatter.PlaylistTable)
}

// ArtistAlbums lists the albums of one artist.
func (r *Runner) ArtistAlbums(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(); err != nil {
		return err
	}
	id := cmd.String("id")
	stream := r.engine.AlbumsFromArtist(ctx, id, cmd.Bool("remote"))
	return show(r, cmd, "Albums by artist "+id, stream, formatter.AlbumTable)
}

// AlbumSongs lists the tracks of one album.
func (r *Runner) AlbumSongs(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(); err != nil {
		return err
	}
	id := cmd.String("id")
	stream := r.engine.SongsFromAlbum(ctx, id, cmd.Bool("remote"))
	return show(r, cmd, "Songs on album "+id, stream, formatter.SongTable)
}

// PlaylistSongs fetches the contents of a playlist. Playlist items are never cached.
func (r *Runner) PlaylistSongs(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(); err != nil {
		return err
	}
	id := cmd.String("id")
	return show(r, cmd, "Playlist "+id, r.engine.SongsFromPlaylist(ctx, id), formatter.SongTable)
}

// show drains stream and writes the last successful view.
//
// A failed refresh still prints what the cache held, with a warning.
func show[T any](r *Runner, cmd *cli.Command, title string, stream <-chan models.Resource[[]T], table func(string, []T) formatter.Table) error {
	last, ok, err := models.Final(stream)
	if err != nil {
		if !ok {
			return err
		}
		r.logger.Warn("refresh failed, showing cached records", "error", err)
	}

	items := last.Data
	if items == nil {
		items = []T{}
	}

	if cmd.Bool("json") {
		return r.writeJSON(items, cmd.Bool("pretty"))
	}

	format, ferr := formatter.ParseFormat(cmd.String("format"))
	if ferr != nil {
		return ferr
	}

	t := table(title, items)
	if cmd.IsSet("output") {
		path, werr := formatter.WriteExport(t, format, cmd.String("output"))
		if werr != nil {
			return werr
		}
		return r.writePlain("✓ Exported %d records to %s\n", len(items), path)
	}

	data, rerr := formatter.Render(t, format)
	if rerr != nil {
		return rerr
	}
	if _, werr := r.output.Write(data); werr != nil {
		return fmt.Errorf("failed to write output: %w", werr)
	}
	return nil
}

// Find fuzzy searches every cached record.
func (r *Runner) Find(ctx context.Context, cmd *cli.Command) error {
	q := cmd.StringArg("query")
	if q == "" {
		return fmt.Errorf("%w: query", shared.ErrMissingArgument)
	}

	if err := r.open(); err != nil {
		return err
	}

	matches, err := r.engine.Find(q, int(cmd.Int("limit")))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		if matches == nil {
			matches = []library.Match{}
		}
		return r.writeJSON(matches, cmd.Bool("pretty"))
	}

	if len(matches) == 0 {
		return r.writePlain("No matches for %q\n", q)
	}

	for _, m := range matches {
		r.writePlain("%-9s %-12s %s\n", m.Type, m.ID, m.Name)
	}
	return nil
}
