package services

import (
	"context"
	"math/rand/v2"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/princinho/dashbackend/database"
	"github.com/princinho/dashbackend/models"
)

func newResources(t *testing.T) (*ResourceService, *database.Store) {
	t.Helper()
	store := newTestStore(t)
	return NewResourceService(store, ResourceOptions{Now: newFakeClock().Now}), store
}

func listItems(t *testing.T, rs *ResourceService, name string) []models.Item {
	t.Helper()
	out, err := rs.List(context.Background(), name)
	require.NoError(t, err)
	items, ok := out.([]models.Item)
	require.True(t, ok, "unexpected list type %T", out)
	return items
}

func serials(items []models.Item) []int {
	out := make([]int, len(items))
	for i, it := range items {
		out[i], _ = it.SR()
	}
	return out
}

func TestSerialCollection_CreateDeleteRenumbers(t *testing.T) {
	rs, _ := newResources(t)
	ctx := context.Background()

	for _, title := range []string{"A", "B", "C"} {
		_, err := rs.Create(ctx, "tracks", map[string]any{"title": title})
		require.NoError(t, err)
	}
	assert.Equal(t, []int{1, 2, 3}, serials(listItems(t, rs, "tracks")))

	require.NoError(t, rs.Delete(ctx, "tracks", "2"))
	items := listItems(t, rs, "tracks")
	require.Len(t, items, 2)
	assert.Equal(t, "A", items[0]["title"])
	assert.Equal(t, "C", items[1]["title"])
	assert.Equal(t, []int{1, 2}, serials(items))

	created, err := rs.Create(ctx, "tracks", map[string]any{"title": "D"})
	require.NoError(t, err)
	sr, ok := created.Record.(models.Item).SR()
	require.True(t, ok)
	assert.Equal(t, 3, sr)
	assert.Empty(t, created.TemporaryPassword)
}

func TestSerialCollection_StaysContiguous(t *testing.T) {
	rs, store := newResources(t)
	ctx := context.Background()
	rng := rand.New(rand.NewPCG(7, 11))

	creates, deletes := 0, 0
	for i := 0; i < 60; i++ {
		n := len(listItems(t, rs, "events"))
		if n == 0 || rng.IntN(3) > 0 {
			_, err := rs.Create(ctx, "events", map[string]any{"n": i})
			require.NoError(t, err)
			creates++
		} else {
			require.NoError(t, rs.Delete(ctx, "events", strconv.Itoa(1+rng.IntN(n))))
			deletes++
		}

		items := listItems(t, rs, "events")
		require.Len(t, items, creates-deletes)
		for j, got := range serials(items) {
			require.Equal(t, j+1, got)
		}
	}

	// the same holds for the persisted copy, where numbers decode as float64
	store.Reload(ctx)
	for j, it := range store.Read().Events {
		got, ok := it.SR()
		require.True(t, ok)
		assert.Equal(t, j+1, got)
	}
}

func TestSerialCollection_RoundTrip(t *testing.T) {
	rs, _ := newResources(t)
	ctx := context.Background()
	payload := map[string]any{"name": "Widget", "price": 12.5, "tags": []any{"a", "b"}}

	_, err := rs.Create(ctx, "catalog", payload)
	require.NoError(t, err)
	_, touched := payload[models.SerialKey]
	assert.False(t, touched, "payload is not mutated")

	items := listItems(t, rs, "catalog")
	require.Len(t, items, 1)
	got := items[0].Clone()
	delete(got, models.SerialKey)
	assert.Equal(t, models.Item(payload), got)
}

func TestSerialCollection_KeepsCallerSerial(t *testing.T) {
	rs, _ := newResources(t)
	ctx := context.Background()

	_, err := rs.Create(ctx, "tracks", map[string]any{"sr": 5, "title": "x"})
	require.NoError(t, err)
	created, err := rs.Create(ctx, "tracks", map[string]any{"title": "y"})
	require.NoError(t, err)

	sr, _ := created.Record.(models.Item).SR()
	assert.Equal(t, 6, sr)
}

func TestSerialCollection_Update(t *testing.T) {
	rs, _ := newResources(t)
	ctx := context.Background()
	_, err := rs.Create(ctx, "tracks", map[string]any{"title": "A", "artist": "x"})
	require.NoError(t, err)
	_, err = rs.Create(ctx, "tracks", map[string]any{"title": "B"})
	require.NoError(t, err)

	out, err := rs.Update(ctx, "tracks", "1", map[string]any{"title": "A2", "sr": 9})
	require.NoError(t, err)
	item := out.(models.Item)
	assert.Equal(t, "A2", item["title"])
	assert.Equal(t, "x", item["artist"])
	sr, _ := item.SR()
	assert.Equal(t, 1, sr, "sr cannot be patched")

	items := listItems(t, rs, "tracks")
	assert.Equal(t, "B", items[1]["title"])

	out, err = rs.Update(ctx, "tracks", "42", map[string]any{"title": "nope"})
	require.NoError(t, err)
	assert.Nil(t, out)

	_, err = rs.Update(ctx, "tracks", "abc", map[string]any{})
	assert.Equal(t, ErrorInvalid, CodeOf(err))
}

func TestSerialCollection_DeleteUnknownIsNoop(t *testing.T) {
	rs, store := newResources(t)
	ctx := context.Background()
	_, err := rs.Create(ctx, "tracks", map[string]any{"title": "A"})
	require.NoError(t, err)
	before := store.Read().Metadata.LastUpdated()

	require.NoError(t, rs.Delete(ctx, "tracks", "7"))
	assert.Len(t, listItems(t, rs, "tracks"), 1)
	assert.Equal(t, before, store.Read().Metadata.LastUpdated())
}

func TestResourceService_UnknownResource(t *testing.T) {
	rs, _ := newResources(t)
	ctx := context.Background()

	_, err := rs.List(ctx, "widgets")
	assert.Equal(t, ErrorNotFound, CodeOf(err))
	_, err = rs.Create(ctx, "widgets", map[string]any{})
	assert.Equal(t, ErrorNotFound, CodeOf(err))
	assert.Equal(t, ErrorNotFound, CodeOf(rs.Delete(ctx, "widgets", "1")))
	_, err = rs.AppendRaw(ctx, "widgets", nil)
	assert.Equal(t, ErrorNotFound, CodeOf(err))
	_, err = rs.AppendRaw(ctx, "users", nil)
	assert.Equal(t, ErrorInvalid, CodeOf(err))
}

func TestUsers_CreateWithoutPassword(t *testing.T) {
	rs, store := newResources(t)
	ctx := context.Background()

	created, err := rs.Create(ctx, "users", map[string]any{"username": "bob", "email": "Bob@X.io"})
	require.NoError(t, err)
	require.NotEmpty(t, created.TemporaryPassword)

	sum := created.Record.(models.UserSummary)
	assert.True(t, sum.MustReset)
	assert.Equal(t, models.RoleUser, sum.Role)
	assert.Equal(t, "bob@x.io", sum.Email)
	assert.NotEmpty(t, sum.ID)

	db := store.Read()
	_, u := db.FindUser(sum.ID)
	require.NotNil(t, u)
	assert.NotEqual(t, created.TemporaryPassword, u.PasswordHash, "never stored in plaintext")

	auth := NewAuthService(store, AuthOptions{})
	res, err := auth.Login(ctx, Identity{Username: "bob"}, created.TemporaryPassword)
	require.NoError(t, err)
	assert.True(t, res.MustReset)
}

func TestUsers_CreateValidation(t *testing.T) {
	rs, _ := newResources(t)
	ctx := context.Background()

	_, err := rs.Create(ctx, "users", map[string]any{"username": "a"})
	assert.Equal(t, ErrorInvalid, CodeOf(err))
	_, err = rs.Create(ctx, "users", map[string]any{"username": "a", "email": "a@x.io", "role": "root"})
	assert.Equal(t, ErrorInvalid, CodeOf(err))

	created, err := rs.Create(ctx, "users", map[string]any{"username": "a", "email": "a@x.io", "password": "pw", "role": "ADMIN"})
	require.NoError(t, err)
	assert.Empty(t, created.TemporaryPassword)
	assert.False(t, created.Record.(models.UserSummary).MustReset)
	assert.Equal(t, models.RoleAdmin, created.Record.(models.UserSummary).Role)

	_, err = rs.Create(ctx, "users", map[string]any{"username": "b", "email": "A@x.io", "password": "pw"})
	assert.Equal(t, ErrorConflict, CodeOf(err))
	assert.EqualError(t, err, "email already exists")
}

func TestUsers_UpdateAndDelete(t *testing.T) {
	rs, store := newResources(t)
	ctx := context.Background()

	a, err := rs.Create(ctx, "users", map[string]any{"username": "a", "email": "a@x.io", "password": "pw"})
	require.NoError(t, err)
	b, err := rs.Create(ctx, "users", map[string]any{"username": "b", "email": "b@x.io", "password": "pw"})
	require.NoError(t, err)
	aID := a.Record.(models.UserSummary).ID
	bID := b.Record.(models.UserSummary).ID

	out, err := rs.Update(ctx, "users", aID, map[string]any{"role": "admin", "username": "alice"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, out.(models.UserSummary).Role)
	assert.Equal(t, "alice", out.(models.UserSummary).Username)

	_, err = rs.Update(ctx, "users", aID, map[string]any{"email": "b@x.io"})
	assert.Equal(t, ErrorConflict, CodeOf(err))

	out, err = rs.Update(ctx, "users", "missing", map[string]any{"username": "z"})
	require.NoError(t, err)
	assert.Nil(t, out)

	auth := NewAuthService(store, AuthOptions{})
	tok, err := auth.IssueToken(ctx, bID)
	require.NoError(t, err)

	require.NoError(t, rs.Delete(ctx, "users", bID))
	require.NoError(t, rs.Delete(ctx, "users", bID))

	users := listUsers(t, rs)
	require.Len(t, users, 1)
	assert.Equal(t, aID, users[0].ID, "ids are stable across deletes")

	_, err = auth.Authenticate(ctx, tok.Token)
	assert.Error(t, err, "sessions of a deleted user are revoked")
}

func listUsers(t *testing.T, rs *ResourceService) []models.UserSummary {
	t.Helper()
	out, err := rs.List(context.Background(), "users")
	require.NoError(t, err)
	return out.([]models.UserSummary)
}

func TestAppendRaw_NumbersRowsWithoutSerial(t *testing.T) {
	rs, _ := newResources(t)
	ctx := context.Background()

	stored, err := rs.AppendRaw(ctx, "tracks", []models.Item{{"title": "A"}, {"title": "B"}, {"title": "C", "sr": "7"}})
	require.NoError(t, err)
	require.Len(t, stored, 3)
	assert.Equal(t, "7", stored[2]["sr"], "a caller-supplied sr is kept as given")
	assert.Equal(t, []int{1, 2, 7}, serials(listItems(t, rs, "tracks")))

	out, err := rs.Update(ctx, "tracks", "1", map[string]any{"artist": "Ann"})
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, "Ann", out.(models.Item)["artist"])

	require.NoError(t, rs.Delete(ctx, "tracks", "1"))
	items := listItems(t, rs, "tracks")
	require.Len(t, items, 2)
	assert.Equal(t, "B", items[0]["title"])
	assert.Equal(t, []int{1, 2}, serials(items))
}

func TestUsers_PasswordLengthLimit(t *testing.T) {
	rs, _ := newResources(t)
	ctx := context.Background()
	long := strings.Repeat("p", 80)

	_, err := rs.Create(ctx, "users", map[string]any{"username": "l", "email": "l@x.io", "password": long})
	assert.Equal(t, ErrorInvalid, CodeOf(err))

	created, err := rs.Create(ctx, "users", map[string]any{"username": "l", "email": "l@x.io", "password": strings.Repeat("p", 72)})
	require.NoError(t, err)
	id := created.Record.(models.UserSummary).ID

	_, err = rs.Update(ctx, "users", id, map[string]any{"password": long})
	assert.Equal(t, ErrorInvalid, CodeOf(err))
}
