package storage

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/asterisksounds/asterisk-sound-bot/internal/errors"
	"github.com/asterisksounds/asterisk-sound-bot/internal/logger"
)

// LocalStore reads objects from <root>/<bucket>/<key> on the local
// filesystem. Reads go through os.Root, so neither ".." nor symlinks can
// reach outside root.
type LocalStore struct {
	root string
}

// NewLocalStore checks that root is a directory.
func NewLocalStore(root string) (*LocalStore, error) {
	fi, err := os.Stat(root)
	if err != nil {
		return nil, errors.New(fmt.Errorf("local: storage root unavailable: %w", err)).
			Component("storage").
			Category(errors.CategoryConfiguration).
			FileContext(root, 0).
			Build()
	}
	if !fi.IsDir() {
		return nil, errors.Newf("local: storage root %s is not a directory", root).
			Component("storage").
			Category(errors.CategoryConfiguration).
			Build()
	}
	return &LocalStore{root: root}, nil
}

// Get reads the object. The context is only checked before the read starts.
func (s *LocalStore) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fetchError(err, "local", bucket, key)
	}
	if err := validateBucket(bucket); err != nil {
		return nil, fetchError(err, "local", bucket, key)
	}
	if err := ValidateKey(key); err != nil {
		return nil, fetchError(err, "local", bucket, key)
	}

	root, err := os.OpenRoot(s.root)
	if err != nil {
		return nil, fetchError(fmt.Errorf("local: failed to open root: %w", err), "local", bucket, key)
	}
	defer root.Close()

	name := filepath.Join(filepath.FromSlash(bucket), filepath.FromSlash(key))
	file, err := root.Open(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			err = notFound(err, key)
		} else {
			err = fmt.Errorf("local: failed to open object: %w", err)
		}
		return nil, fetchError(err, "local", bucket, key)
	}
	defer file.Close()

	fi, err := file.Stat()
	if err != nil {
		return nil, fetchError(fmt.Errorf("local: failed to stat object: %w", err), "local", bucket, key)
	}
	if fi.IsDir() {
		return nil, fetchError(notFound(fmt.Errorf("%s is a directory", name), key), "local", bucket, key)
	}
	if fi.Size() > MaxObjectSize {
		return nil, fetchError(fmt.Errorf("local: object exceeds %d bytes", MaxObjectSize), "local", bucket, key)
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fetchError(fmt.Errorf("local: failed to read object: %w", err), "local", bucket, key)
	}

	GetLogger().Debug("Fetched object",
		logger.String("backend", "local"),
		logger.String("path", name),
		logger.Int("bytes", len(data)))

	return data, nil
}
