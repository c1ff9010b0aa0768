// Package storage persists uploaded review files. The local backend keeps
// them under the uploads directory; the bucket backends keep them in Google
// Cloud Storage or an S3-compatible store such as Cloudflare R2.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/princinho/dashbackend/config"
)

// ErrNotFound is returned by Open and Delete for unknown object names.
var ErrNotFound = errors.New("object not found")

type Backend interface {
	// Put stores size bytes from r under name.
	Put(ctx context.Context, name string, r io.Reader, size int64, contentType string) error
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	Delete(ctx context.Context, name string) error
	// Describe names the backend for logs.
	Describe() string
}

// FromConfig builds the backend selected by cfg.UploadBackend.
func FromConfig(ctx context.Context, cfg *config.Config) (Backend, error) {
	switch cfg.UploadBackend {
	case "", config.BackendLocal:
		return NewLocalBackend(cfg.UploadsDir)
	case config.BackendGCS:
		return NewGCSBackend(ctx, cfg.GCSBucket, cfg.CredentialsFile)
	case config.BackendR2:
		return NewR2Backend(ctx, R2Options{
			Bucket:          cfg.R2Bucket,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			Endpoint:        cfg.R2Endpoint,
		})
	}
	return nil, fmt.Errorf("unknown upload backend %q", cfg.UploadBackend)
}
