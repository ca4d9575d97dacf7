// Package storage fetches sound objects from the configured object store.
//
// The original deployment reads from Amazon S3. Local directories, SFTP and
// FTP servers are supported as well; for those the bucket names a directory
// below the configured root or the server's login directory.
package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/asterisksounds/asterisk-sound-bot/internal/conf"
	"github.com/asterisksounds/asterisk-sound-bot/internal/errors"
	"github.com/asterisksounds/asterisk-sound-bot/internal/logger"
)

// Sentinel errors. Backend specific causes stay in the chain.
var (
	ErrObjectNotFound = errors.NewStd("object not found")
	ErrInvalidKey     = errors.NewStd("invalid object key")
)

// ObjectStore returns the full contents of one object.
type ObjectStore interface {
	Get(ctx context.Context, bucket, key string) ([]byte, error)
}

// MaxObjectSize bounds how much of an object is read into memory. Mastodon
// rejects audio attachments far below this.
const MaxObjectSize = 100 * 1024 * 1024

// GetLogger returns the storage package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("storage")
}

// New returns the backend selected by settings.Backend.
func New(ctx context.Context, settings *conf.StorageSettings) (ObjectStore, error) {
	switch settings.Backend {
	case "s3", "":
		return NewS3Store(ctx, &settings.S3)
	case "local":
		return NewLocalStore(settings.Local.Root)
	case "sftp":
		return NewSFTPStore(&settings.SFTP), nil
	case "ftp":
		return NewFTPStore(&settings.FTP), nil
	default:
		return nil, errors.Newf("unknown storage backend %q", settings.Backend).
			Component("storage").
			Category(errors.CategoryConfiguration).
			Build()
	}
}

// ValidateKey rejects keys that are empty, absolute or escape their bucket.
func ValidateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || !filepath.IsLocal(filepath.FromSlash(key)) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

// validateBucket accepts an empty bucket, meaning the backend root.
func validateBucket(bucket string) error {
	if bucket == "" {
		return nil
	}
	if err := ValidateKey(bucket); err != nil {
		return fmt.Errorf("bucket: %w", err)
	}
	return nil
}

// fetchError wraps a backend failure in the storage error category.
func fetchError(err error, backend, bucket, key string) error {
	return errors.New(err).
		Component("storage").
		Category(errors.CategoryStorage).
		Context("backend", backend).
		Context("bucket", bucket).
		Context("key", key).
		Build()
}

// notFound marks err as a missing object while keeping the cause.
func notFound(err error, key string) error {
	return fmt.Errorf("%w: %s: %w", ErrObjectNotFound, key, err)
}
