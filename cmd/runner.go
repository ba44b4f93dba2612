package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/ampsync/internal/library"
	"github.com/desertthunder/ampsync/internal/models"
	"github.com/desertthunder/ampsync/internal/repositories"
	"github.com/desertthunder/ampsync/internal/services"
	"github.com/desertthunder/ampsync/internal/session"
	"github.com/desertthunder/ampsync/internal/shared"
	"github.com/desertthunder/ampsync/internal/store"
	"github.com/desertthunder/ampsync/internal/tasks"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Storage and services are opened lazily by [Runner.open] so commands like setup work before a database exists.
type Runner struct {
	config     *shared.Config
	configPath string
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer

	db        *sql.DB
	store     *store.Store
	service   services.Ampache
	ownsDB    bool
	ownsStore bool

	songs     *repositories.SongRepository
	albums    *repositories.AlbumRepository
	artists   *repositories.ArtistRepository
	playlists *repositories.PlaylistRepository
	users     *repositories.UserRepository
	offline   *repositories.OfflineRepository

	sessions *session.Manager
	engine   *library.Engine
	mutator  *tasks.Mutator
}

// RunnerOpts contains configuration options for creating a Runner.
//
// DB, Store and Service are optional; when nil they are built from Config on first use.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	DB         *sql.DB
	Store      *store.Store
	Service    services.Ampache
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Config.Server.Timeout()}
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		db:         opts.DB,
		store:      opts.Store,
		service:    opts.Service,
	}
}

// app builds the root command.
func (r *Runner) app() *cli.Command {
	return &cli.Command{
		Name:    "ampsync",
		Usage:   "Keep a local cache of an Ampache library in sync",
		Version: "0.3.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (debug, info, warn, error); overrides config",
			},
		},
		Before:   r.configure,
		After:    func(ctx context.Context, cmd *cli.Command) error { return r.Close() },
		Commands: r.register(),
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, loginCommand, logoutCommand, pingCommand, whoamiCommand,
		songsCommand, albumsCommand, artistsCommand, playlistsCommand,
		artistCommand, albumCommand, playlistCommand,
		likeCommand, rateCommand, offlineCommand, findCommand, browseCommand, serveCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// configure loads the config file named by --config when it exists and applies the log level.
func (r *Runner) configure(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	path := cmd.String("config")
	if path != "" {
		r.configPath = path
	}

	if _, err := os.Stat(r.configPath); err == nil {
		config, err := shared.LoadConfig(r.configPath)
		if err != nil {
			return ctx, err
		}
		r.config = config
	} else {
		if cmd.IsSet("config") && cmd.Args().First() != "setup" {
			return ctx, fmt.Errorf("%w: %s", shared.ErrMissingConfig, r.configPath)
		}
		shared.ApplyEnv(r.config)
	}

	level := r.config.Log.Level
	if cmd.IsSet("log-level") {
		level = cmd.String("log-level")
	}
	shared.SetLogLevel(r.logger, shared.ParseLogLevel(level))
	return ctx, nil
}

// SetLogger replaces the logger. Must be called before [Runner.open].
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// open builds storage, the Ampache client and every component on first use.
func (r *Runner) open() error {
	if r.engine != nil {
		return nil
	}

	if r.db == nil {
		db, err := shared.NewDatabase(r.config.Database.Path)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)
		r.db, r.ownsDB = db, true
	}
	if err := shared.RunMigrations(r.db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if r.store == nil {
		st, err := store.Open(r.config.Store.Path)
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		r.store, r.ownsStore = st, true
	}

	if r.service == nil {
		r.service = services.NewAmpacheService(r.httpClient, shared.WithLogger(r.logger, "component", "ampache"))
	}

	r.songs = repositories.NewSongRepository(r.db)
	r.albums = repositories.NewAlbumRepository(r.db)
	r.artists = repositories.NewArtistRepository(r.db)
	r.playlists = repositories.NewPlaylistRepository(r.db)
	r.users = repositories.NewUserRepository(r.db)
	r.offline = repositories.NewOfflineRepository(r.db)

	r.sessions = session.NewManager(session.Options{
		Store:   r.store,
		Users:   r.users,
		Caches:  []session.Clearer{r.songs, r.albums, r.artists, r.playlists, r.offline},
		Service: r.service,
		Logger:  shared.WithLogger(r.logger, "component", "session"),
	})

	r.engine = library.NewEngine(library.Options{
		Songs:            r.songs,
		Albums:           r.albums,
		Artists:          r.artists,
		Playlists:        r.playlists,
		Service:          r.service,
		Sessions:         r.sessions,
		Logger:           shared.WithLogger(r.logger, "component", "library"),
		PageSize:         r.config.Library.PageSize,
		ClearBeforeFetch: r.config.Library.ClearBeforeFetch,
	})

	r.mutator = tasks.NewMutator(tasks.Options{
		Caches: map[models.ResourceType]tasks.LocalCache{
			models.TypeSong:     r.songs,
			models.TypeAlbum:    r.albums,
			models.TypeArtist:   r.artists,
			models.TypePlaylist: r.playlists,
		},
		Log:      r.offline,
		Mode:     r.store,
		Service:  r.service,
		Sessions: r.sessions,
		Pinger:   r.sessions,
		Logger:   shared.WithLogger(r.logger, "component", "offline"),
	})

	return nil
}

// Close releases storage opened by the runner.
func (r *Runner) Close() error {
	var errs []error
	if r.ownsStore && r.store != nil {
		errs = append(errs, r.store.Close())
		r.store, r.ownsStore = nil, false
	}
	if r.ownsDB && r.db != nil {
		errs = append(errs, r.db.Close())
		r.db, r.ownsDB = nil, false
	}
	r.engine = nil
	return errors.Join(errs...)
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
