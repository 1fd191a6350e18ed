package filestore

import (
	"context"
	"mime"
	"path"

	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
)

// Drivers
const (
	DriverLocal = "local"
	DriverS3    = "s3"
	DriverB2    = "b2"
)

// New returns the file store selected by conf.Storage.Driver.
func New(ctx context.Context, conf *core.Config) (core.FileStore, error) {
	switch conf.Storage.Driver {
	case DriverLocal, "":
		return NewLocalStore(conf.Storage.Root)
	case DriverS3:
		return NewS3Store(conf.Storage.S3)
	case DriverB2:
		return NewB2Store(ctx, conf.Storage.B2)
	}
	return nil, errors.Errorf("unknown storage driver %q", conf.Storage.Driver)
}

// ContentType guesses the MIME type of a file from its extension.
func ContentType(name string) string {
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
