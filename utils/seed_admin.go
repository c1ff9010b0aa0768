package utils

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/princinho/dashbackend/database"
	"github.com/princinho/dashbackend/logging"
	"github.com/princinho/dashbackend/models"
)

type AdminSeed struct {
	Email    string
	Username string
	Password string
}

var errUsersPresent = errors.New("users already present")

// SeedAdminUser creates the default admin, but only when there are no users
// at all. It reports whether a user was created.
func SeedAdminUser(ctx context.Context, store *database.Store, seed AdminSeed, log logging.Logger) (bool, error) {
	email := strings.ToLower(strings.TrimSpace(seed.Email))
	if email == "" || seed.Password == "" {
		return false, fmt.Errorf("missing admin email or password")
	}

	hash, err := HashPassword(seed.Password)
	if err != nil {
		return false, fmt.Errorf("hash admin password: %w", err)
	}

	now := time.Now().UTC().Format(database.TimestampLayout)
	err = store.Update(ctx, func(db *models.Database) error {
		if len(db.Users) > 0 {
			return errUsersPresent
		}
		db.Users = append(db.Users, models.User{
			ID:           uuid.NewString(),
			Username:     strings.TrimSpace(seed.Username),
			Email:        email,
			PasswordHash: hash,
			Role:         models.RoleAdmin,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
		return nil
	})
	if errors.Is(err, errUsersPresent) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("seed admin: %w", err)
	}

	log.Warn(ctx, "no users found: created default admin account, change its password",
		"email", email, "username", seed.Username)
	return true, nil
}
