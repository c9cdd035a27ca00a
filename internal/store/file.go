package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"music.mint/internal/models"
)

var _ Store = (*FileStore)(nil)

// FileStore writes the snapshot to a single JSON file. A sibling lock file
// keeps a second process from rewriting the same snapshot.
type FileStore struct {
	path string
	lock *flock.Flock
}

func NewFileStore(path string) (*FileStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating snapshot dir: %w", err)
		}
	}

	lock := flock.New(path + ".lock")
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire snapshot lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, path)
	}

	return &FileStore{path: path, lock: lock}, nil
}

func (f *FileStore) Path() string {
	return f.path
}

func (f *FileStore) Load(ctx context.Context) ([]*models.Mint, error) {
	return ReadSnapshot(f.path)
}

// Save writes to a temporary file and renames it over the snapshot so a
// crash mid-write leaves the previous snapshot intact.
func (f *FileStore) Save(ctx context.Context, mints []*models.Mint) error {
	data, err := encode(mints)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), "."+filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp snapshot: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("syncing snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("closing snapshot: %w", err)
	}

	if err := os.Rename(tmpPath, f.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replacing snapshot: %w", err)
	}
	return nil
}

// Quarantine renames the snapshot to <path>.corrupt-<unixms>.
func (f *FileStore) Quarantine(ctx context.Context) (string, error) {
	dest := f.path + "." + quarantineSuffix(time.Now())
	if err := os.Rename(f.path, dest); err != nil {
		return "", fmt.Errorf("moving snapshot aside: %w", err)
	}
	return dest, nil
}

func (f *FileStore) Close() error {
	return f.lock.Unlock()
}

// ReadSnapshot decodes a snapshot file without taking the writer lock.
// A missing file yields an empty registry.
func ReadSnapshot(path string) ([]*models.Mint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []*models.Mint{}, nil
		}
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	return decode(data)
}
