package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/princinho/dashbackend/database"
	"github.com/princinho/dashbackend/logging"
	"github.com/princinho/dashbackend/models"
	"github.com/princinho/dashbackend/utils"
)

// Collection is the generic CRUD contract behind /api/:resource. Serial
// collections address rows by their positional sr; the users collection
// addresses rows by stable id.
type Collection interface {
	Kind() models.ResourceKind
	List(ctx context.Context) any
	Create(ctx context.Context, payload map[string]any) (*Created, error)
	// Update shallow-merges patch into the row with the given key and returns
	// the updated row, or nil when no row matches.
	Update(ctx context.Context, key string, patch map[string]any) (any, error)
	// Delete removes the row with the given key. Unknown keys are ignored.
	Delete(ctx context.Context, key string) error
}

type Created struct {
	Record any
	// TemporaryPassword is only set for users created without a password.
	// It is not stored anywhere and cannot be recovered later.
	TemporaryPassword string
}

type ResourceOptions struct {
	Logger logging.Logger
	Now    func() time.Time
}

type ResourceService struct {
	store       *database.Store
	collections map[models.ResourceKind]Collection
}

func NewResourceService(store *database.Store, opts ResourceOptions) *ResourceService {
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	s := &ResourceService{store: store, collections: map[models.ResourceKind]Collection{}}
	for _, kind := range models.ResourceKinds() {
		if kind == models.ResourceUsers {
			s.collections[kind] = &userCollection{store: store, log: opts.Logger, now: opts.Now, newID: uuid.NewString}
			continue
		}
		s.collections[kind] = &serialCollection{kind: kind, store: store}
	}
	return s
}

// Collection looks up a collection by its URL name. Unknown names are
// reported as not found.
func (s *ResourceService) Collection(name string) (Collection, error) {
	kind, ok := models.ParseResourceKind(name)
	if !ok {
		return nil, NewNotFoundError("resource not found")
	}
	return s.collections[kind], nil
}

func (s *ResourceService) List(ctx context.Context, name string) (any, error) {
	c, err := s.Collection(name)
	if err != nil {
		return nil, err
	}
	return c.List(ctx), nil
}

func (s *ResourceService) Create(ctx context.Context, name string, payload map[string]any) (*Created, error) {
	c, err := s.Collection(name)
	if err != nil {
		return nil, err
	}
	return c.Create(ctx, payload)
}

func (s *ResourceService) Update(ctx context.Context, name, key string, patch map[string]any) (any, error) {
	c, err := s.Collection(name)
	if err != nil {
		return nil, err
	}
	return c.Update(ctx, key, patch)
}

func (s *ResourceService) Delete(ctx context.Context, name, key string) error {
	c, err := s.Collection(name)
	if err != nil {
		return err
	}
	return c.Delete(ctx, key)
}

// AppendRaw adds rows to a serial collection without validating their
// fields. Rows without a numeric sr are numbered after the current maximum
// so they stay addressable. It returns the rows as stored.
func (s *ResourceService) AppendRaw(ctx context.Context, name string, rows []models.Item) ([]models.Item, error) {
	kind, ok := models.ParseResourceKind(name)
	if !ok {
		return nil, NewNotFoundError("resource not found")
	}
	if kind == models.ResourceUsers {
		return nil, NewInvalidError("users cannot be imported")
	}
	out := make([]models.Item, 0, len(rows))
	err := s.store.Update(ctx, func(db *models.Database) error {
		items := db.Items(kind)
		for _, r := range rows {
			row := r.Clone()
			if _, ok := row.SR(); !ok {
				row.SetSR(nextSerial(*items))
			}
			*items = append(*items, row)
			out = append(out, row.Clone())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// serialCollection keeps sr contiguous from 1: new rows take max(sr)+1 and
// every delete renumbers the remaining rows in order.
type serialCollection struct {
	kind  models.ResourceKind
	store *database.Store
}

func (c *serialCollection) Kind() models.ResourceKind { return c.kind }

func (c *serialCollection) List(ctx context.Context) any {
	var out []models.Item
	c.store.View(func(db *models.Database) {
		items := *db.Items(c.kind)
		out = make([]models.Item, len(items))
		for i, it := range items {
			out[i] = it.Clone()
		}
	})
	return out
}

func (c *serialCollection) Create(ctx context.Context, payload map[string]any) (*Created, error) {
	if payload == nil {
		return nil, NewInvalidError("request body must be a JSON object")
	}
	item := models.Item(payload).Clone()
	err := c.store.Update(ctx, func(db *models.Database) error {
		items := db.Items(c.kind)
		if _, ok := item[models.SerialKey]; !ok {
			item.SetSR(nextSerial(*items))
		}
		*items = append(*items, item)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Created{Record: item.Clone()}, nil
}

func (c *serialCollection) Update(ctx context.Context, key string, patch map[string]any) (any, error) {
	sr, err := parseSerial(key)
	if err != nil {
		return nil, err
	}
	var updated models.Item
	err = c.store.Update(ctx, func(db *models.Database) error {
		items := *db.Items(c.kind)
		for i, it := range items {
			if n, ok := it.SR(); !ok || n != sr {
				continue
			}
			for k, v := range patch {
				// sr is positional and owned by the collection
				if k == models.SerialKey {
					continue
				}
				it[k] = v
			}
			items[i] = it
			updated = it.Clone()
		}
		if updated == nil {
			return errNoChange
		}
		return nil
	})
	if err != nil && !errors.Is(err, errNoChange) {
		return nil, err
	}
	if updated == nil {
		return nil, nil
	}
	return updated, nil
}

func (c *serialCollection) Delete(ctx context.Context, key string) error {
	sr, err := parseSerial(key)
	if err != nil {
		return err
	}
	err = c.store.Update(ctx, func(db *models.Database) error {
		items := db.Items(c.kind)
		kept := make([]models.Item, 0, len(*items))
		for _, it := range *items {
			if n, ok := it.SR(); ok && n == sr {
				continue
			}
			kept = append(kept, it)
		}
		if len(kept) == len(*items) {
			return errNoChange
		}
		renumber(kept)
		*items = kept
		return nil
	})
	if err != nil && !errors.Is(err, errNoChange) {
		return err
	}
	return nil
}

func nextSerial(items []models.Item) int {
	highest := 0
	for _, it := range items {
		if n, ok := it.SR(); ok && n > highest {
			highest = n
		}
	}
	return highest + 1
}

// renumber assigns sr 1..N in slice order.
func renumber(items []models.Item) {
	for i, it := range items {
		it.SetSR(i + 1)
	}
}

func parseSerial(key string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(key))
	if err != nil {
		return 0, NewInvalidError(fmt.Sprintf("invalid serial number %q", key))
	}
	return n, nil
}

// userCollection stores typed user records addressed by their stable id.
type userCollection struct {
	store *database.Store
	log   logging.Logger
	now   func() time.Time
	newID func() string
}

func (c *userCollection) Kind() models.ResourceKind { return models.ResourceUsers }

func (c *userCollection) List(ctx context.Context) any {
	var out []models.UserSummary
	c.store.View(func(db *models.Database) {
		out = make([]models.UserSummary, 0, len(db.Users))
		for _, u := range db.Users {
			out = append(out, u.Summary())
		}
	})
	return out
}

func (c *userCollection) Create(ctx context.Context, payload map[string]any) (*Created, error) {
	email := strings.ToLower(stringField(payload, "email"))
	username := stringField(payload, "username")
	if email == "" || username == "" {
		return nil, NewInvalidError("email and username are required")
	}
	role := models.RoleUser
	if r := stringField(payload, "role"); r != "" {
		role = models.Role(strings.ToLower(r))
		if !role.Valid() {
			return nil, NewInvalidError(fmt.Sprintf("invalid role %q", r))
		}
	}

	var (
		password  = stringField(payload, "password")
		temporary string
		mustReset bool
	)
	if password == "" {
		p, err := utils.RandomPassword(9)
		if err != nil {
			return nil, err
		}
		password, temporary, mustReset = p, p, true
	}
	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}

	now := c.now().UTC().Format(database.TimestampLayout)
	user := models.User{
		ID:           c.newID(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		MustReset:    mustReset,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err = c.store.Update(ctx, func(db *models.Database) error {
		for _, u := range db.Users {
			if u.HasEmail(email) {
				return NewConflictError("email already exists")
			}
		}
		db.Users = append(db.Users, user)
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.log.Info(ctx, "user created", "id", user.ID, "role", user.Role, "must_reset", mustReset)
	return &Created{Record: user.Summary(), TemporaryPassword: temporary}, nil
}

func (c *userCollection) Update(ctx context.Context, id string, patch map[string]any) (any, error) {
	var hash string
	if p := stringField(patch, "password"); p != "" {
		h, err := hashPassword(p)
		if err != nil {
			return nil, err
		}
		hash = h
	}

	var updated *models.UserSummary
	err := c.store.Update(ctx, func(db *models.Database) error {
		_, u := db.FindUser(id)
		if u == nil {
			return errNoChange
		}
		if _, ok := patch["email"]; ok {
			email := strings.ToLower(stringField(patch, "email"))
			if email == "" {
				return NewInvalidError("email cannot be empty")
			}
			for _, other := range db.Users {
				if other.ID != u.ID && other.HasEmail(email) {
					return NewConflictError("email already exists")
				}
			}
			u.Email = email
		}
		if _, ok := patch["username"]; ok {
			username := stringField(patch, "username")
			if username == "" {
				return NewInvalidError("username cannot be empty")
			}
			u.Username = username
		}
		if _, ok := patch["role"]; ok {
			role := models.Role(strings.ToLower(stringField(patch, "role")))
			if !role.Valid() {
				return NewInvalidError("invalid role")
			}
			u.Role = role
		}
		if v, ok := patch["mustReset"].(bool); ok {
			u.MustReset = v
		}
		if hash != "" {
			u.PasswordHash = hash
			u.Password = ""
		}
		u.UpdatedAt = c.now().UTC().Format(database.TimestampLayout)
		sum := u.Summary()
		updated = &sum
		return nil
	})
	if err != nil && !errors.Is(err, errNoChange) {
		return nil, err
	}
	if updated == nil {
		return nil, nil
	}
	return *updated, nil
}

// Delete removes the user and every session issued to them.
func (c *userCollection) Delete(ctx context.Context, id string) error {
	err := c.store.Update(ctx, func(db *models.Database) error {
		i, _ := db.FindUser(id)
		if i < 0 {
			return errNoChange
		}
		db.Users = append(db.Users[:i], db.Users[i+1:]...)
		db.Tokens = removeTokens(db.Tokens, func(t models.Token) bool { return t.UserID == id })
		return nil
	})
	if err != nil && !errors.Is(err, errNoChange) {
		return err
	}
	return nil
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return strings.TrimSpace(s)
}
