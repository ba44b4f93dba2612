package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/desertthunder/ampsync/internal/shared"
)

// Setup writes config.toml from the embedded template when missing, then initializes storage.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	if _, err := os.Stat(r.configPath); err != nil {
		r.logger.Info("config file not found, creating from template", "path", r.configPath)
		if err := shared.CreateConfigFile(r.configPath); err != nil {
			return fmt.Errorf("failed to create config file: %w", err)
		}
		config, err := shared.LoadConfig(r.configPath)
		if err != nil {
			return err
		}
		r.config = config
	}

	if cmd.Bool("interactive") {
		if !isTerminal() {
			return fmt.Errorf("%w: --interactive requires a terminal", shared.ErrInvalidFlag)
		}

		url, username := r.config.Server.URL, r.config.Server.Username
		err := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().Title("Server URL").Placeholder("https://music.example.com").Value(&url).Validate(required("server URL")),
				huh.NewInput().Title("Username").Value(&username).Validate(required("username")),
			),
		).Run()
		if err != nil {
			return fmt.Errorf("failed to read settings: %w", err)
		}

		r.config.Server.URL, r.config.Server.Username = strings.TrimSpace(url), strings.TrimSpace(username)
		if err := shared.SaveConfig(r.configPath, r.config); err != nil {
			return err
		}
		r.logger.Info("config saved", "path", r.configPath)
	}

	r.logger.Info("initializing database", "path", r.config.Database.Path)
	if err := r.open(); err != nil {
		return err
	}

	versions, err := shared.AppliedVersions(r.db)
	if err != nil {
		return err
	}

	r.writePlainHeader("ampsync setup")
	r.writePlain("Config:     %s\n", r.configPath)
	r.writePlain("Database:   %s (migrations %v)\n", r.config.Database.Path, versions)
	r.writePlain("Store:      %s\n", r.config.Store.Path)
	r.writePlain("Server:     %s\n", r.config.Server.URL)
	r.writePlainln("Next: run 'ampsync login' to authenticate.")
	return nil
}

// Login authenticates with the server, prompting for anything missing when attached to a terminal.
func (r *Runner) Login(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(); err != nil {
		return err
	}

	server := firstNonEmpty(cmd.String("server"), r.config.Server.URL)
	username := firstNonEmpty(cmd.String("username"), r.config.Server.Username)
	password := firstNonEmpty(cmd.String("password"), r.config.Server.Password)

	if server == "" || username == "" || password == "" {
		if !isTerminal() {
			return fmt.Errorf("%w: server, username and password are required", shared.ErrMissingCredentials)
		}

		var err error
		if server, username, password, err = promptCredentials(server, username); err != nil {
			return err
		}
	}

	r.logger.Info("logging in", "server", server, "username", username)

	sess, err := r.sessions.Authorize(ctx, username, shared.SHA256(password), server, cmd.Bool("force"))
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	r.writePlain("✓ Logged in to %s as %s\n", sess.ServerURL, username)
	r.writePlain("  Session expires %s\n", sess.Expiry.Local().Format(time.RFC1123))
	return nil
}

// Logout ends the session and clears local state.
func (r *Runner) Logout(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(); err != nil {
		return err
	}

	err := r.sessions.Logout(ctx)
	switch {
	case errors.Is(err, shared.ErrNotAuthenticated):
		r.writePlain("Not logged in; local data cleared\n")
		return nil
	case err != nil:
		r.logger.Warn("server did not confirm logout", "error", err)
		r.writePlain("⚠ Local data cleared, but the server did not confirm the logout\n")
		return err
	}

	return r.writePlain("✓ Logged out\n")
}

// Ping checks connectivity and renews the stored session.
func (r *Runner) Ping(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(); err != nil {
		return err
	}

	info, err := r.sessions.Ping(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}

	sess, err := r.store.Session()
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(map[string]any{"server": info, "session": sess}, true)
	}

	r.writePlain("✓ %s %s (compatible %s)\n", info.Server, info.Version, info.Compatible)
	if sess != nil {
		r.writePlain("  Session valid until %s\n", sess.Expiry.Local().Format(time.RFC1123))
	} else {
		r.writePlain("  No session\n")
	}
	return nil
}

// WhoAmI prints the logged in account.
func (r *Runner) WhoAmI(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(); err != nil {
		return err
	}

	user, err := r.sessions.User(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(user, cmd.Bool("pretty"))
	}

	r.writePlain("%s", user.Username)
	if user.FullName != "" {
		r.writePlain(" (%s)", user.FullName)
	}
	r.writePlain("\n")
	if user.Email != "" {
		r.writePlain("  Email:  %s\n", user.Email)
	}
	r.writePlain("  Access: %d\n", user.Access)
	return nil
}

// promptCredentials asks for the server, username and password with a huh form.
func promptCredentials(server, username string) (string, string, string, error) {
	var password string

	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Server URL").Value(&server).Validate(required("server URL")),
			huh.NewInput().Title("Username").Value(&username).Validate(required("username")),
			huh.NewInput().Title("Password").EchoMode(huh.EchoModePassword).Value(&password).Validate(required("password")),
		),
	).Run()
	if err != nil {
		return "", "", "", fmt.Errorf("failed to read credentials: %w", err)
	}

	return strings.TrimSpace(server), strings.TrimSpace(username), password, nil
}

func required(name string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", name)
		}
		return nil
	}
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
