package repositories

import (
	"database/sql"
	"fmt"

	"github.com/desertthunder/ampsync/internal/models"
)

// UserRepository persists the [models.User] profile of the logged in account.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new [UserRepository] with the given database connection
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Save inserts or replaces the profile keyed by username.
func (r *UserRepository) Save(user *models.User) error {
	if user.Username == "" {
		return fmt.Errorf("validation failed: username is required")
	}

	query := `
		INSERT INTO users (id, username, email, access, stream_token, full_name, full_name_public,
			disabled, create_date, last_seen, website, state, city, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(username) DO UPDATE SET
			id = excluded.id,
			email = excluded.email,
			access = excluded.access,
			stream_token = excluded.stream_token,
			full_name = excluded.full_name,
			full_name_public = excluded.full_name_public,
			disabled = excluded.disabled,
			create_date = excluded.create_date,
			last_seen = excluded.last_seen,
			website = excluded.website,
			state = excluded.state,
			city = excluded.city,
			updated_at = excluded.updated_at
	`

	_, err := r.db.Exec(query,
		user.ID, user.Username, user.Email, user.Access, user.StreamToken, user.FullName, user.FullNamePublic,
		user.Disabled, user.CreateDate, user.LastSeen, user.Website, user.State, user.City,
	)
	if err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

// Get retrieves a user by username. A missing row returns (nil, nil).
func (r *UserRepository) Get(username string) (*models.User, error) {
	query := `
		SELECT id, username, email, access, stream_token, full_name, full_name_public,
			disabled, create_date, last_seen, website, state, city
		FROM users
		WHERE username = ?
	`

	var u models.User
	err := r.db.QueryRow(query, username).Scan(
		&u.ID, &u.Username, &u.Email, &u.Access, &u.StreamToken, &u.FullName, &u.FullNamePublic,
		&u.Disabled, &u.CreateDate, &u.LastSeen, &u.Website, &u.State, &u.City,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &u, nil
}

// Clear removes every stored profile
func (r *UserRepository) Clear() error {
	return clearTable(r.db, "users")
}
