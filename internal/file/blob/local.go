package blob

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/lumenis/lumenis/internal/file/domain"
)

// LocalStore keeps blobs as plain files under a root directory.
type LocalStore struct {
	root string
}

func NewLocalStore(root string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("blob root: %w", err)
	}
	return &LocalStore{root: root}, nil
}

func (s *LocalStore) Store(ctx context.Context, key string, content io.Reader, size int64) error {
	path := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	written, err := io.Copy(tmp, io.LimitReader(content, size))
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}
	if written != size {
		return domain.ErrInvalidFile
	}
	return os.Rename(tmp.Name(), path)
}

func (s *LocalStore) Delete(ctx context.Context, key string) error {
	path := filepath.Join(s.root, filepath.FromSlash(key))
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
