// Package storage keeps uploaded avatar files on an afero filesystem.
package storage

import (
	"context"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/Aidin1998/accounts/pkg/errors"
	"github.com/spf13/afero"
)

// Storage saves and removes files addressed by a relative key.
type Storage interface {
	Save(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

// FileStorage stores files on an afero filesystem rooted at the avatar dir.
type FileStorage struct {
	fs      afero.Fs
	baseURL string
}

var _ Storage = (*FileStorage)(nil)

func New(fs afero.Fs, baseURL string) *FileStorage {
	return &FileStorage{fs: fs, baseURL: strings.TrimRight(baseURL, "/")}
}

// NewLocal stores files under dir on the OS filesystem.
func NewLocal(dir, baseURL string) (*FileStorage, error) {
	osFs := afero.NewOsFs()
	if err := osFs.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.New("failed to create storage dir").Wrap(err)
	}
	return New(afero.NewBasePathFs(osFs, dir), baseURL), nil
}

func (s *FileStorage) Save(ctx context.Context, key string, data []byte) error {
	name, err := clean(key)
	if err != nil {
		return err
	}
	if dir := path.Dir(name); dir != "/" {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return errors.New("failed to create directory").Wrap(err)
		}
	}
	if err := afero.WriteFile(s.fs, name, data, 0o644); err != nil {
		return errors.New("failed to write file").Wrap(err)
	}
	return nil
}

// Delete removes the file; a missing file is not an error.
func (s *FileStorage) Delete(ctx context.Context, key string) error {
	name, err := clean(key)
	if err != nil {
		return err
	}
	if err := s.fs.Remove(name); err != nil && !os.IsNotExist(err) {
		return errors.New("failed to delete file").Wrap(err)
	}
	return nil
}

func (s *FileStorage) URL(key string) string {
	if key == "" {
		return ""
	}
	return s.baseURL + "/" + strings.TrimLeft(key, "/")
}

// HTTP exposes the stored files for static serving.
func (s *FileStorage) HTTP() http.FileSystem {
	return afero.NewHttpFs(s.fs)
}

func clean(key string) (string, error) {
	// rooted names keep keys inside the filesystem and match HttpFs lookups
	name := path.Clean("/" + key)
	if name == "/" {
		return "", errors.Invalid.Explain("invalid storage key %q", key)
	}
	return name, nil
}
