package utils

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/princinho/dashbackend/database"
	"github.com/princinho/dashbackend/logging"
	"github.com/princinho/dashbackend/models"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", hash)
	assert.NoError(t, CheckPassword(hash, "s3cret"))
	assert.Error(t, CheckPassword(hash, "wrong"))
	assert.Error(t, CheckPassword("plaintext", "plaintext"), "a plaintext value is not a valid hash")
}

func TestEqualPlaintext(t *testing.T) {
	assert.True(t, EqualPlaintext("abc", "abc"))
	assert.False(t, EqualPlaintext("abc", "abd"))
	assert.False(t, EqualPlaintext("", ""))
}

func TestRandomSecrets(t *testing.T) {
	a, err := RandomPassword(9)
	require.NoError(t, err)
	b, err := RandomPassword(9)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.Regexp(t, `^[0-9A-Za-z]+$`, a)

	assert.NotEqual(t, NewSessionToken(), NewSessionToken())
	assert.Len(t, NewSessionToken(), 26)
}

func TestSafeFileName(t *testing.T) {
	tests := map[string]string{
		"Café Menu.PDF":        "cafe-menu.pdf",
		"../../etc/passwd":     "passwd",
		`C:\photos\Día 1.jpg`:  "dia-1.jpg",
		"...":                  "file",
		"report_final-v2.png":  "report_final-v2.png",
		"  spaced   out .webp": "spaced-out-.webp",
	}
	for in, want := range tests {
		assert.Equal(t, want, SafeFileName(in), in)
	}
}

func fileHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("files", name)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))
	return req.MultipartForm.File["files"][0]
}

func TestFileValidator(t *testing.T) {
	v := NewPDFOrImageValidator(1)
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	pdf := []byte("%PDF-1.4\n%âãÏÓ\n")

	mime, err := v.ValidateFile(fileHeader(t, "a.png", png))
	require.NoError(t, err)
	assert.Equal(t, "image/png", mime)

	mime, err = v.ValidateFile(fileHeader(t, "doc.pdf", pdf))
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", mime)

	_, err = v.ValidateFile(fileHeader(t, "a.exe", png))
	assert.Error(t, err, "extension not allowed")

	_, err = v.ValidateFile(fileHeader(t, "fake.png", []byte("just text")))
	assert.Error(t, err, "content does not match")

	big := append(append([]byte{}, png...), make([]byte, 2<<20)...)
	_, err = v.ValidateFile(fileHeader(t, "big.png", big))
	assert.Error(t, err, "too large")
}

func TestSeedAdminUser(t *testing.T) {
	store, err := database.New(&database.Options{Filename: filepath.Join(t.TempDir(), "db.json")})
	require.NoError(t, err)
	ctx := context.Background()
	seed := AdminSeed{Email: "Admin@Example.com", Username: "admin", Password: "admin123"}

	created, err := SeedAdminUser(ctx, store, seed, logging.Discard())
	require.NoError(t, err)
	assert.True(t, created)

	created, err = SeedAdminUser(ctx, store, seed, logging.Discard())
	require.NoError(t, err)
	assert.False(t, created, "second run is a no-op")

	db := store.Read()
	require.Len(t, db.Users, 1)
	u := db.Users[0]
	assert.Equal(t, "admin@example.com", u.Email)
	assert.Equal(t, models.RoleAdmin, u.Role)
	assert.False(t, u.MustReset)
	assert.NoError(t, CheckPassword(u.PasswordHash, "admin123"))
}

func TestSeedAdminUser_SkipsWhenAnyUserExists(t *testing.T) {
	store, err := database.New(&database.Options{Filename: filepath.Join(t.TempDir(), "db.json")})
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, store.Write(ctx, models.Database{Users: []models.User{{ID: "u1", Email: "x@y.z", Role: models.RoleUser}}}))

	created, err := SeedAdminUser(ctx, store, AdminSeed{Email: "a@b.c", Password: "p"}, logging.Discard())
	require.NoError(t, err)
	assert.False(t, created)
	assert.Len(t, store.Read().Users, 1)
}

func TestSeedAdminUser_RequiresCredentials(t *testing.T) {
	store, err := database.New(&database.Options{Filename: filepath.Join(t.TempDir(), "db.json")})
	require.NoError(t, err)
	_, err = SeedAdminUser(context.Background(), store, AdminSeed{Email: "a@b.c"}, logging.Discard())
	assert.Error(t, err)
}
