package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/princinho/dashbackend/database"
	"github.com/princinho/dashbackend/logging"
	"github.com/princinho/dashbackend/models"
	"github.com/princinho/dashbackend/telemetry"
	"github.com/princinho/dashbackend/utils"
)

const DefaultTokenTTL = 7 * 24 * time.Hour

type AuthOptions struct {
	TokenTTL time.Duration
	Logger   logging.Logger
	Metrics  *telemetry.Collectors
	Now      func() time.Time
}

// AuthService issues, checks and revokes session tokens.
type AuthService struct {
	store    *database.Store
	tokenTTL time.Duration
	log      logging.Logger
	metrics  *telemetry.Collectors
	now      func() time.Time
	newToken func() string
}

// Identity selects a user by email, or by username when no email is given.
type Identity struct {
	Email    string
	Username string
}

func (id Identity) empty() bool {
	return strings.TrimSpace(id.Email) == "" && strings.TrimSpace(id.Username) == ""
}

type AuthResult struct {
	Token     string
	Role      models.Role
	UserID    string
	ExpiresAt int64
	// MustReset is set instead of a token when the user has to choose a new
	// password first.
	MustReset bool
}

// Session is what a valid bearer token resolves to.
type Session struct {
	Token     string
	UserID    string
	Role      models.Role
	ExpiresAt int64
}

func (s Session) IsAdmin() bool {
	return s.Role == models.RoleAdmin
}

func NewAuthService(store *database.Store, opts AuthOptions) *AuthService {
	s := &AuthService{
		store:    store,
		tokenTTL: opts.TokenTTL,
		log:      opts.Logger,
		metrics:  opts.Metrics,
		now:      opts.Now,
		newToken: utils.NewSessionToken,
	}
	if s.tokenTTL <= 0 {
		s.tokenTTL = DefaultTokenTTL
	}
	if s.log == nil {
		s.log = logging.Discard()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *AuthService) TokenTTL() time.Duration {
	return s.tokenTTL
}

func (s *AuthService) nowMs() int64 {
	return s.now().UnixMilli()
}

func findByIdentity(db *models.Database, id Identity) *models.User {
	if email := strings.TrimSpace(id.Email); email != "" {
		for i := range db.Users {
			if db.Users[i].HasEmail(email) {
				return &db.Users[i]
			}
		}
		return nil
	}
	username := strings.TrimSpace(id.Username)
	for i := range db.Users {
		if username != "" && db.Users[i].Username == username {
			return &db.Users[i]
		}
	}
	return nil
}

// Login checks the password against the stored hash. A user record that still
// holds a plaintext password is accepted on an exact match and upgraded to a
// hash in the same write. Unknown users and wrong passwords are reported
// identically.
func (s *AuthService) Login(ctx context.Context, id Identity, password string) (*AuthResult, error) {
	if id.empty() {
		return nil, NewInvalidError("email or username required")
	}
	if password == "" {
		return nil, NewInvalidError("password required")
	}

	var (
		res      AuthResult
		migrated string
		tooLong  string
	)
	err := s.store.Update(ctx, func(db *models.Database) error {
		u := findByIdentity(db, id)
		if u == nil {
			return NewUnauthorizedError("invalid credentials")
		}

		switch {
		case utils.IsPasswordHash(u.PasswordHash) && utils.CheckPassword(u.PasswordHash, password) == nil:
		case !utils.IsPasswordHash(u.StoredSecret()) && utils.EqualPlaintext(u.StoredSecret(), password):
			// bcrypt cannot hold it; the record stays plaintext until the
			// user picks a shorter password
			if len(password) > utils.MaxPasswordBytes {
				tooLong = u.ID
				break
			}
			hash, err := utils.HashPassword(password)
			if err != nil {
				return fmt.Errorf("hash password: %w", err)
			}
			u.PasswordHash = hash
			u.Password = ""
			u.UpdatedAt = s.now().UTC().Format(database.TimestampLayout)
			migrated = u.ID
		default:
			return NewUnauthorizedError("invalid credentials")
		}

		if u.MustReset {
			res = AuthResult{UserID: u.ID, Role: u.Role, MustReset: true}
			if migrated == "" {
				return errNoChange
			}
			return nil
		}

		t := s.issue(db, u)
		res = AuthResult{Token: t.Token, Role: t.Role, UserID: u.ID, ExpiresAt: t.ExpiresAt}
		return nil
	})
	if err != nil && !errors.Is(err, errNoChange) {
		if CodeOf(err) == ErrorUnauthorized {
			s.metrics.AuthEvent("login_failed")
		}
		return nil, err
	}

	if tooLong != "" {
		s.log.Warn(ctx, "plaintext password too long to hash, left unmigrated", "user_id", tooLong)
	}
	if migrated != "" {
		s.metrics.AuthEvent("password_migrated")
		s.log.Warn(ctx, "migrated plaintext password to hash", "user_id", migrated)
	}
	if res.MustReset {
		s.metrics.AuthEvent("login_reset_required")
	} else {
		s.metrics.AuthEvent("login_ok")
	}
	return &res, nil
}

// issue appends a new token for u to db.
func (s *AuthService) issue(db *models.Database, u *models.User) models.Token {
	t := models.Token{
		Token:     s.newToken(),
		UserID:    u.ID,
		Role:      u.Role,
		ExpiresAt: s.now().Add(s.tokenTTL).UnixMilli(),
	}
	db.Tokens = append(db.Tokens, t)
	return t
}

// IssueToken creates and persists a session for an existing user.
func (s *AuthService) IssueToken(ctx context.Context, userID string) (*AuthResult, error) {
	var res AuthResult
	err := s.store.Update(ctx, func(db *models.Database) error {
		_, u := db.FindUser(userID)
		if u == nil {
			return NewNotFoundError("user not found")
		}
		t := s.issue(db, u)
		res = AuthResult{Token: t.Token, Role: t.Role, UserID: u.ID, ExpiresAt: t.ExpiresAt}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// ResetPassword completes the forced-reset flow: it only applies to users
// flagged MustReset and requires the current (temporary) password.
func (s *AuthService) ResetPassword(ctx context.Context, id Identity, oldPassword, newPassword string) (*AuthResult, error) {
	if id.empty() {
		return nil, NewInvalidError("email or username required")
	}
	if oldPassword == "" || newPassword == "" {
		return nil, NewInvalidError("oldPassword and newPassword required")
	}

	hash, err := hashPassword(newPassword)
	if err != nil {
		return nil, err
	}

	var res AuthResult
	err = s.store.Update(ctx, func(db *models.Database) error {
		u := findByIdentity(db, id)
		if u == nil {
			return NewUnauthorizedError("invalid credentials")
		}
		if !u.MustReset {
			return NewInvalidError("reset not required")
		}
		if utils.CheckPassword(u.PasswordHash, oldPassword) != nil {
			return NewUnauthorizedError("invalid credentials")
		}
		u.PasswordHash = hash
		u.Password = ""
		u.MustReset = false
		u.UpdatedAt = s.now().UTC().Format(database.TimestampLayout)

		t := s.issue(db, u)
		res = AuthResult{Token: t.Token, Role: t.Role, UserID: u.ID, ExpiresAt: t.ExpiresAt}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.AuthEvent("password_reset")
	return &res, nil
}

// Authenticate resolves a bearer token. Every call also drops expired tokens
// from the store; a failure to persist that sweep is logged and retried on
// the next call.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*Session, error) {
	token = strings.TrimSpace(token)

	var (
		found *Session
		swept int
	)
	err := s.store.Update(ctx, func(db *models.Database) error {
		nowMs := s.nowMs()
		kept := make([]models.Token, 0, len(db.Tokens))
		for _, t := range db.Tokens {
			if t.ExpiredAt(nowMs) {
				swept++
				continue
			}
			kept = append(kept, t)
			if token != "" && t.Token == token {
				found = &Session{Token: t.Token, UserID: t.UserID, Role: t.Role, ExpiresAt: t.ExpiresAt}
			}
		}
		if swept == 0 {
			return errNoChange
		}
		db.Tokens = kept
		return nil
	})
	switch {
	case err == nil:
		s.log.Debug(ctx, "swept expired tokens", "count", swept)
	case !errors.Is(err, errNoChange):
		s.log.Warn(ctx, "expired token sweep not persisted", "err", err)
	}

	if found == nil {
		s.metrics.AuthEvent("token_rejected")
		return nil, NewUnauthorizedError("invalid or expired token")
	}
	return found, nil
}

// AuthorizeAdmin is Authenticate plus a check of the role recorded on the token.
func (s *AuthService) AuthorizeAdmin(ctx context.Context, token string) (*Session, error) {
	sess, err := s.Authenticate(ctx, token)
	if err != nil {
		return nil, err
	}
	if !sess.IsAdmin() {
		return nil, NewForbiddenError("admin role required")
	}
	return sess, nil
}

// Logout removes the token. Logging out twice is not an error.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	err := s.store.Update(ctx, func(db *models.Database) error {
		n := len(db.Tokens)
		db.Tokens = removeTokens(db.Tokens, func(t models.Token) bool { return t.Token == token })
		if len(db.Tokens) == n {
			return errNoChange
		}
		return nil
	})
	if err != nil && !errors.Is(err, errNoChange) {
		return err
	}
	s.metrics.AuthEvent("logout")
	return nil
}

// ChangePassword lets a signed-in user replace their password. All of the
// user's other sessions are revoked; keepToken stays valid.
func (s *AuthService) ChangePassword(ctx context.Context, userID, keepToken, current, next string) error {
	if current == "" || next == "" {
		return NewInvalidError("currentPassword and newPassword required")
	}
	hash, err := hashPassword(next)
	if err != nil {
		return err
	}
	return s.store.Update(ctx, func(db *models.Database) error {
		_, u := db.FindUser(userID)
		if u == nil {
			return NewUnauthorizedError("invalid user")
		}
		if utils.CheckPassword(u.PasswordHash, current) != nil {
			return NewUnauthorizedError("current password is incorrect")
		}
		u.PasswordHash = hash
		u.Password = ""
		u.MustReset = false
		u.UpdatedAt = s.now().UTC().Format(database.TimestampLayout)
		db.Tokens = removeTokens(db.Tokens, func(t models.Token) bool {
			return t.UserID == userID && t.Token != keepToken
		})
		return nil
	})
}

// CurrentUser returns the summary of the session's user.
func (s *AuthService) CurrentUser(ctx context.Context, userID string) (*models.UserSummary, error) {
	var out *models.UserSummary
	s.store.View(func(db *models.Database) {
		if _, u := db.FindUser(userID); u != nil {
			sum := u.Summary()
			out = &sum
		}
	})
	if out == nil {
		return nil, NewUnauthorizedError("user no longer exists")
	}
	return out, nil
}

func removeTokens(tokens []models.Token, drop func(models.Token) bool) []models.Token {
	kept := make([]models.Token, 0, len(tokens))
	for _, t := range tokens {
		if !drop(t) {
			kept = append(kept, t)
		}
	}
	return kept
}
