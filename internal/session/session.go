// Package session owns authentication state: credentials, the current session token and its renewal.
//
// [Manager] is the only component that talks to the handshake, ping and goodbye actions.
// Everything else asks it for a valid [models.Session] via [Manager.Session].
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/ampsync/internal/models"
	"github.com/desertthunder/ampsync/internal/services"
	"github.com/desertthunder/ampsync/internal/shared"
)

// StateStore persists the session and credentials.
type StateStore interface {
	Session() (*models.Session, error)
	SaveSession(models.Session) error
	ClearSession() error
	Credentials() (*models.Credentials, error)
	SaveCredentials(models.Credentials) error
	ClearCredentials() error
}

// UserStore persists the profile of the logged in account.
type UserStore interface {
	Get(username string) (*models.User, error)
	Save(*models.User) error
	Clear() error
}

// Clearer is any cache that logout empties.
type Clearer interface {
	Clear() error
}

// Options configures a [Manager]. Store and Service are required.
type Options struct {
	Store   StateStore
	Users   UserStore
	Caches  []Clearer
	Service services.Ampache
	Logger  *log.Logger
	Now     func() time.Time
}

// Manager authenticates against the server and keeps the stored session valid.
type Manager struct {
	store   StateStore
	users   UserStore
	caches  []Clearer
	service services.Ampache
	logger  *log.Logger
	now     func() time.Time
}

// NewManager creates a Manager from opts, defaulting the clock and logger.
func NewManager(opts Options) *Manager {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}

	return &Manager{
		store:   opts.Store,
		users:   opts.Users,
		caches:  opts.Caches,
		service: opts.Service,
		logger:  opts.Logger,
		now:     opts.Now,
	}
}

// Authorize returns a valid session for the given account.
//
// Credentials are saved before anything else so a later [Manager.AutoLogin] can reuse them even when this call fails.
// A stored, unexpired session is returned as is unless force is set.
func (m *Manager) Authorize(ctx context.Context, username, hashedPassword, serverURL string, force bool) (*models.Session, error) {
	serverURL = services.BuildServerURL(serverURL)

	creds := models.Credentials{Username: username, Password: hashedPassword, ServerURL: serverURL}
	if err := m.store.SaveCredentials(creds); err != nil {
		return nil, fmt.Errorf("failed to save credentials: %w", err)
	}

	current, err := m.store.Session()
	if err != nil {
		return nil, err
	}
	if current != nil && !force && !m.IsTokenExpired(current) {
		m.logger.Debug("reusing stored session", "expires", current.Expiry)
		return current, nil
	}

	timestamp := m.now().Unix()
	sess, err := m.service.Handshake(ctx, serverURL, username, shared.AuthHash(timestamp, hashedPassword), timestamp)
	if err != nil {
		m.logger.Warn("handshake failed", "user", username, "error", err)
		return nil, err
	}

	if err := m.store.SaveSession(*sess); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	m.logger.Info("authorized", "user", username, "server", serverURL, "expires", sess.Expiry)
	return sess, nil
}

// AutoLogin forces a new handshake with the stored credentials.
//
// Missing credentials are sent as empty strings, which the server rejects.
func (m *Manager) AutoLogin(ctx context.Context) (*models.Session, error) {
	creds, err := m.store.Credentials()
	if err != nil {
		return nil, err
	}
	if creds == nil {
		creds = &models.Credentials{}
	}
	return m.Authorize(ctx, creds.Username, creds.Password, creds.ServerURL, true)
}

// IsTokenExpired reports whether sess is expired at the manager's current time.
func (m *Manager) IsTokenExpired(sess *models.Session) bool {
	return sess.IsExpiredAt(m.now())
}

// Session returns the current session, renewing it through [Manager.AutoLogin] when expired.
func (m *Manager) Session(ctx context.Context) (*models.Session, error) {
	sess, err := m.store.Session()
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, shared.ErrNotAuthenticated
	}
	if m.IsTokenExpired(sess) {
		m.logger.Debug("session expired, logging in again", "expired", sess.Expiry)
		return m.AutoLogin(ctx)
	}
	return sess, nil
}

// Ping checks connectivity and refreshes the stored session from the response.
//
// When a session is stored, a parseable renewal replaces it and anything else clears it.
func (m *Manager) Ping(ctx context.Context) (*models.ServerInfo, error) {
	current, err := m.store.Session()
	if err != nil {
		return nil, err
	}

	serverURL, auth := "", ""
	if current != nil {
		serverURL, auth = current.ServerURL, current.Auth
	}
	if serverURL == "" {
		if creds, err := m.store.Credentials(); err == nil && creds != nil {
			serverURL = creds.ServerURL
		}
	}

	resp, err := m.service.Ping(ctx, serverURL, auth)
	if err != nil {
		return nil, err
	}

	if current != nil {
		if err := m.renew(*current, resp); err != nil {
			return nil, err
		}
	}

	return &resp.Info, nil
}

func (m *Manager) renew(current models.Session, resp *services.PingResponse) error {
	expiry, err := services.ParseSessionExpire(resp.SessionExpire)
	if err != nil {
		m.logger.Info("session no longer valid, clearing", "error", err)
		return m.store.ClearSession()
	}

	renewed := current
	renewed.Expiry = expiry
	if resp.Auth != "" {
		renewed.Auth = resp.Auth
	}
	return m.store.SaveSession(renewed)
}

// Logout ends the server session and removes every piece of local state.
//
// Local state is cleared even when the server does not confirm, in which case the confirmation error is returned.
func (m *Manager) Logout(ctx context.Context) error {
	var goodbyeErr error

	sess, err := m.store.Session()
	switch {
	case err != nil:
		goodbyeErr = err
	case sess == nil:
		goodbyeErr = shared.ErrNotAuthenticated
	default:
		goodbyeErr = m.service.Goodbye(ctx, *sess)
	}

	errs := []error{
		m.store.ClearCredentials(),
		m.store.ClearSession(),
	}
	if m.users != nil {
		errs = append(errs, m.users.Clear())
	}
	for _, c := range m.caches {
		errs = append(errs, c.Clear())
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("failed to clear local state: %w", err)
	}

	if goodbyeErr != nil {
		return fmt.Errorf("logout not confirmed by server: %w", goodbyeErr)
	}

	m.logger.Info("logged out")
	return nil
}

// User returns the profile of the logged in account, fetching and storing it on first use.
func (m *Manager) User(ctx context.Context) (*models.User, error) {
	creds, err := m.store.Credentials()
	if err != nil {
		return nil, err
	}
	if creds == nil || creds.Username == "" {
		return nil, shared.ErrNotAuthenticated
	}

	if m.users != nil {
		if user, err := m.users.Get(creds.Username); err != nil {
			return nil, err
		} else if user != nil {
			return user, nil
		}
	}

	sess, err := m.Session(ctx)
	if err != nil {
		return nil, err
	}

	user, err := m.service.User(ctx, *sess, creds.Username)
	if err != nil {
		return nil, err
	}

	if m.users != nil {
		if err := m.users.Save(user); err != nil {
			return nil, fmt.Errorf("failed to save user: %w", err)
		}
	}
	return user, nil
}
