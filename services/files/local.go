// Package filestore implements core.FileStore on local disk, S3-compatible object storage and Backblaze B2.
package filestore

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
)

type localStore struct {
	root string
}

var _ core.FileStore = (*localStore)(nil) // interface compliance check

// NewLocalStore stores files under root, one directory per category.
func NewLocalStore(root string) (*localStore, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrap(err, "resolving storage root")
	}
	for _, cat := range core.FileCategories {
		if err := os.MkdirAll(filepath.Join(root, string(cat)), 0o755); err != nil {
			return nil, errors.Wrapf(err, "creating %s directory", cat)
		}
	}
	return &localStore{root: root}, nil
}

func (s *localStore) fullPath(relPath string) (string, error) {
	cat, name, err := core.SplitFilePath(relPath)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, string(cat), name), nil
}

func (s *localStore) Save(_ context.Context, r io.Reader, originalName string, category core.FileCategory) (string, error) {
	if !category.IsValid() {
		return "", core.ErrInvalidFilePath
	}
	name, err := core.GenerateFileName(originalName)
	if err != nil {
		return "", err
	}
	relPath := core.FilePath(category, name)
	fp, _ := s.fullPath(relPath)

	// O_EXCL: a generated name never overwrites an existing file
	f, err := os.OpenFile(fp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", errors.Wrap(err, "creating file")
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(fp)
		return "", errors.Wrap(err, "writing file")
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(fp)
		return "", errors.Wrap(err, "closing file")
	}
	return relPath, nil
}

func (s *localStore) Open(_ context.Context, relPath string) (io.ReadCloser, error) {
	fp, err := s.fullPath(relPath)
	if err != nil {
		return nil, core.ErrFileNotFound
	}
	f, err := os.Open(fp)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, core.ErrFileNotFound
		}
		return nil, errors.Wrap(err, "opening file")
	}
	return f, nil
}

func (s *localStore) Delete(_ context.Context, relPath string) error {
	fp, err := s.fullPath(relPath)
	if err != nil {
		return err
	}
	if err := os.Remove(fp); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "deleting file")
	}
	return nil
}

func (s *localStore) List(_ context.Context, category core.FileCategory) ([]core.StoredFile, error) {
	if !category.IsValid() {
		return nil, core.ErrInvalidFilePath
	}
	entries, err := os.ReadDir(filepath.Join(s.root, string(category)))
	if err != nil {
		return nil, errors.Wrap(err, "reading directory")
	}
	files := make([]core.StoredFile, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		relPath := core.FilePath(category, e.Name())
		if _, _, err := core.SplitFilePath(relPath); err != nil {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, core.StoredFile{Path: relPath, ModifiedAt: info.ModTime()})
	}
	return files, nil
}
