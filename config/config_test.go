package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "8080", c.Port)
	assert.Equal(t, "data/db.json", c.DataFile)
	assert.Equal(t, "uploads", c.UploadsDir)
	assert.Equal(t, BackendLocal, c.UploadBackend)
	assert.Equal(t, "admin@example.com", c.AdminEmail)
	assert.Equal(t, "admin", c.AdminUsername)
	assert.Equal(t, "admin123", c.AdminPassword)
	assert.Equal(t, 7*24*time.Hour, c.TokenTTL)
	assert.Equal(t, 10, c.MaxReviewFiles)
	assert.Equal(t, 25, c.MaxUploadSizeMB)
	assert.Equal(t, ":8080", c.Addr())
}

func TestApplyEnv_Overrides(t *testing.T) {
	var c Config
	c.LoadDefaults()
	c.applyEnv(envMap(map[string]string{
		"PORT":             "9090",
		"DATA_FILE":        "/tmp/x.json",
		"UPLOAD_BACKEND":   "GCS",
		"ADMIN_EMAIL":      " Root@Example.com ",
		"TOKEN_TTL_HOURS":  "2",
		"MAX_REVIEW_FILES": "3",
		"ALLOWED_ORIGINS":  "http://a.test, ,http://b.test",
		"GCS_BUCKET":       "bucket",
	}))

	assert.Equal(t, "9090", c.Port)
	assert.Equal(t, "/tmp/x.json", c.DataFile)
	assert.Equal(t, BackendGCS, c.UploadBackend)
	assert.Equal(t, "root@example.com", c.AdminEmail)
	assert.Equal(t, 2*time.Hour, c.TokenTTL)
	assert.Equal(t, 3, c.MaxReviewFiles)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, c.AllowedOrigins)
	assert.Equal(t, "bucket", c.GCSBucket)
}

func TestApplyEnv_IgnoresInvalidNumbers(t *testing.T) {
	var c Config
	c.LoadDefaults()
	c.applyEnv(envMap(map[string]string{
		"MAX_REVIEW_FILES": "lots",
		"TOKEN_TTL_HOURS":  "-1",
		"PORT":             "   ",
	}))

	assert.Equal(t, 10, c.MaxReviewFiles)
	assert.Equal(t, 7*24*time.Hour, c.TokenTTL)
	assert.Equal(t, "8080", c.Port)
}
