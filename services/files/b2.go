package filestore

import (
	"context"
	"io"

	"github.com/kurin/blazer/b2"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
)

type b2Store struct {
	bucket *b2.Bucket
}

var _ core.FileStore = (*b2Store)(nil) // interface compliance check

// NewB2Store stores files in a Backblaze B2 bucket, keyed by their relative path.
func NewB2Store(ctx context.Context, conf core.B2Config) (*b2Store, error) {
	client, err := b2.NewClient(ctx, conf.AccountID, conf.ApplicationKey)
	if err != nil {
		return nil, errors.Wrap(err, "creating b2 client")
	}
	bucket, err := client.Bucket(ctx, conf.Bucket)
	if err != nil {
		return nil, errors.Wrap(err, "getting b2 bucket")
	}
	return &b2Store{bucket: bucket}, nil
}

func (s *b2Store) Save(ctx context.Context, r io.Reader, originalName string, category core.FileCategory) (string, error) {
	if !category.IsValid() {
		return "", core.ErrInvalidFilePath
	}
	name, err := core.GenerateFileName(originalName)
	if err != nil {
		return "", err
	}
	key := core.FilePath(category, name)

	w := s.bucket.Object(key).NewWriter(ctx, b2.WithAttrsOption(&b2.Attrs{ContentType: ContentType(name)}))
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", errors.Wrap(err, "writing object")
	}
	if err := w.Close(); err != nil {
		return "", errors.Wrap(err, "closing object writer")
	}
	return key, nil
}

func (s *b2Store) Open(ctx context.Context, relPath string) (io.ReadCloser, error) {
	if _, _, err := core.SplitFilePath(relPath); err != nil {
		return nil, core.ErrFileNotFound
	}
	obj := s.bucket.Object(relPath)
	if _, err := obj.Attrs(ctx); err != nil {
		if b2.IsNotExist(err) {
			return nil, core.ErrFileNotFound
		}
		return nil, errors.Wrap(err, "getting object attributes")
	}
	return obj.NewReader(ctx), nil
}

func (s *b2Store) Delete(ctx context.Context, relPath string) error {
	if _, _, err := core.SplitFilePath(relPath); err != nil {
		return err
	}
	if err := s.bucket.Object(relPath).Delete(ctx); err != nil && !b2.IsNotExist(err) {
		return errors.Wrap(err, "deleting object")
	}
	return nil
}

func (s *b2Store) List(ctx context.Context, category core.FileCategory) ([]core.StoredFile, error) {
	if !category.IsValid() {
		return nil, core.ErrInvalidFilePath
	}
	var files []core.StoredFile
	iter := s.bucket.List(ctx, b2.ListPrefix(string(category)+"/"))
	for iter.Next() {
		obj := iter.Object()
		attrs, err := obj.Attrs(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "getting object attributes")
		}
		files = append(files, core.StoredFile{Path: obj.Name(), ModifiedAt: attrs.UploadTimestamp})
	}
	if err := iter.Err(); err != nil {
		return nil, errors.Wrap(err, "listing objects")
	}
	return files, nil
}
