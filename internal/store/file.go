package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/sirupsen/logrus"
)

// FileStore keeps every key as a file below the root of a billy filesystem
type FileStore struct {
	fs billy.Filesystem
}

// NewFileStore opens root on disk, creating it if needed. Keys cannot escape it.
func NewFileStore(root string) (*FileStore, error) {
	if root == "" {
		return nil, errors.New("file store root directory is required")
	}
	fsys := osfs.New(root)
	if err := fsys.MkdirAll(".", 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory %s: %w", root, err)
	}
	return NewFileStoreFS(fsys), nil
}

// NewMemFileStore keeps the files in memory
func NewMemFileStore() *FileStore {
	return NewFileStoreFS(memfs.New())
}

// NewFileStoreFS stores files in fsys
func NewFileStoreFS(fsys billy.Filesystem) *FileStore {
	return &FileStore{fs: fsys}
}

// Root returns the directory the store writes to
func (s *FileStore) Root() string {
	return s.fs.Root()
}

// Put replaces the file for key with value
func (s *FileStore) Put(_ context.Context, key string, value []byte) error {
	p, err := cleanKey(key)
	if err != nil {
		return err
	}
	if dir := path.Dir(p); dir != "." {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create folder for %s: %w", key, err)
		}
	}
	if err := util.WriteFile(s.fs, p, value, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", s.fs.Join(s.Root(), p), err)
	}

	logrus.WithField("path", s.fs.Join(s.Root(), p)).Debug("Stored artifact")
	return nil
}

// Get reads the file for key
func (s *FileStore) Get(_ context.Context, key string) ([]byte, error) {
	p, err := cleanKey(key)
	if err != nil {
		return nil, err
	}
	value, err := util.ReadFile(s.fs, p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", s.fs.Join(s.Root(), p), ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.fs.Join(s.Root(), p), err)
	}
	return value, nil
}

// Close is a no-op for files
func (s *FileStore) Close() error {
	return nil
}
