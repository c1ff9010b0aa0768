// Package config loads runtime settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendLocal = "local"
	BackendGCS   = "gcs"
	BackendR2    = "r2"
)

type Config struct {
	Port           string
	DataFile       string
	UploadsDir     string
	UploadBackend  string
	AllowedOrigins []string
	LogLevel       string

	AdminEmail    string
	AdminUsername string
	AdminPassword string
	TokenTTL      time.Duration

	MaxReviewFiles  int
	MaxUploadSizeMB int

	GCSBucket       string
	CredentialsFile string

	R2Bucket          string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2Endpoint        string
}

// LoadDefaults populates c with development defaults. The admin password is
// well known and must be rotated on any shared deployment.
func (c *Config) LoadDefaults() {
	c.Port = "8080"
	c.DataFile = "data/db.json"
	c.UploadsDir = "uploads"
	c.UploadBackend = BackendLocal
	c.LogLevel = "info"
	c.AdminEmail = "admin@example.com"
	c.AdminUsername = "admin"
	c.AdminPassword = "admin123"
	c.TokenTTL = 7 * 24 * time.Hour
	c.MaxReviewFiles = 10
	c.MaxUploadSizeMB = 25
}

// Load reads .env (if present) and overlays environment variables on top of
// the defaults.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}
	cfg := &Config{}
	cfg.LoadDefaults()
	cfg.applyEnv(os.LookupEnv)
	return cfg
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok {
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
				*dst = n
			}
		}
	}

	str("PORT", &c.Port)
	str("DATA_FILE", &c.DataFile)
	str("UPLOADS_DIR", &c.UploadsDir)
	str("UPLOAD_BACKEND", &c.UploadBackend)
	str("LOG_LEVEL", &c.LogLevel)
	str("ADMIN_EMAIL", &c.AdminEmail)
	str("ADMIN_USERNAME", &c.AdminUsername)
	str("ADMIN_PASSWORD", &c.AdminPassword)
	str("GCS_BUCKET", &c.GCSBucket)
	str("CREDENTIALS_FILE_LOCATION", &c.CredentialsFile)
	str("R2_BUCKET", &c.R2Bucket)
	str("R2_ACCESS_KEY_ID", &c.R2AccessKeyID)
	str("R2_SECRET_ACCESS_KEY", &c.R2SecretAccessKey)
	str("R2_ENDPOINT", &c.R2Endpoint)
	num("MAX_REVIEW_FILES", &c.MaxReviewFiles)
	num("MAX_UPLOAD_SIZE_MB", &c.MaxUploadSizeMB)

	ttlHours := int(c.TokenTTL / time.Hour)
	num("TOKEN_TTL_HOURS", &ttlHours)
	c.TokenTTL = time.Duration(ttlHours) * time.Hour

	c.AdminEmail = strings.ToLower(c.AdminEmail)
	c.UploadBackend = strings.ToLower(c.UploadBackend)

	if v, ok := lookup("ALLOWED_ORIGINS"); ok {
		c.AllowedOrigins = c.AllowedOrigins[:0]
		for _, origin := range strings.Split(v, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				c.AllowedOrigins = append(c.AllowedOrigins, origin)
			}
		}
	}
}

func (c *Config) Addr() string {
	return ":" + c.Port
}
