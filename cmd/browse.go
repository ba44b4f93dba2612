package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/ampsync/internal/server"
	"github.com/desertthunder/ampsync/internal/shared"
	"github.com/desertthunder/ampsync/internal/ui"
)

// Browse opens the interactive library browser. Logs go to the configured log file while it runs.
func (r *Runner) Browse(ctx context.Context, cmd *cli.Command) error {
	if r.config.Log.File != "" {
		logger, err := shared.NewFileLogger(r.config.Log.File)
		if err != nil {
			return err
		}
		shared.SetLogLevel(logger, r.logger.GetLevel())
		r.SetLogger(logger)
	}

	if err := r.open(); err != nil {
		return err
	}

	p := tea.NewProgram(
		ui.NewModel(ctx, r.engine, r.mutator),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("browser exited: %w", err)
	}
	return nil
}

// Serve runs the local HTTP API until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(); err != nil {
		return err
	}

	cfg := r.config.Serve
	if cmd.IsSet("host") {
		cfg.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		cfg.Port = int(cmd.Int("port"))
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := cfg.Addr()
	r.writePlain("Serving library on http://%s (Ctrl+C to stop)\n", addr)

	srv := server.New(addr, r.engine, r.mutator, shared.WithLogger(r.logger, "component", "server"))
	return srv.ListenAndServe(ctx)
}
