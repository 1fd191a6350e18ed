package filestore

import (
	"context"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
)

type s3Store struct {
	client   *s3.S3
	uploader *s3manager.Uploader
	bucket   string
}

var _ core.FileStore = (*s3Store)(nil) // interface compliance check

// NewS3Store stores files as objects keyed by their relative path in an S3-compatible bucket.
func NewS3Store(conf core.S3Config) (*s3Store, error) {
	awsConf := &aws.Config{
		Credentials: credentials.NewStaticCredentials(conf.AccessKey, conf.SecretKey, ""),
		Region:      aws.String(conf.Region),
	}
	if conf.Endpoint != "" {
		awsConf.Endpoint = aws.String(conf.Endpoint)
		awsConf.S3ForcePathStyle = aws.Bool(true)
	}
	sess, err := session.NewSession(awsConf)
	if err != nil {
		return nil, errors.Wrap(err, "creating S3 session")
	}
	return &s3Store{
		client:   s3.New(sess),
		uploader: s3manager.NewUploader(sess),
		bucket:   conf.Bucket,
	}, nil
}

func (s *s3Store) Save(ctx context.Context, r io.Reader, originalName string, category core.FileCategory) (string, error) {
	if !category.IsValid() {
		return "", core.ErrInvalidFilePath
	}
	name, err := core.GenerateFileName(originalName)
	if err != nil {
		return "", err
	}
	key := core.FilePath(category, name)
	_, err = s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        r,
		ContentType: aws.String(ContentType(name)),
	})
	if err != nil {
		return "", errors.Wrap(err, "uploading object")
	}
	return key, nil
}

func isS3NotFound(err error) bool {
	if aErr, ok := err.(awserr.Error); ok {
		switch aErr.Code() {
		case s3.ErrCodeNoSuchKey, "NotFound":
			return true
		}
	}
	return false
}

func (s *s3Store) Open(ctx context.Context, relPath string) (io.ReadCloser, error) {
	if _, _, err := core.SplitFilePath(relPath); err != nil {
		return nil, core.ErrFileNotFound
	}
	out, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(relPath),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, core.ErrFileNotFound
		}
		return nil, errors.Wrap(err, "getting object")
	}
	return out.Body, nil
}

func (s *s3Store) Delete(ctx context.Context, relPath string) error {
	if _, _, err := core.SplitFilePath(relPath); err != nil {
		return err
	}
	_, err := s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(relPath),
	})
	if err != nil && !isS3NotFound(err) {
		return errors.Wrap(err, "deleting object")
	}
	return nil
}

func (s *s3Store) List(ctx context.Context, category core.FileCategory) ([]core.StoredFile, error) {
	if !category.IsValid() {
		return nil, core.ErrInvalidFilePath
	}
	var files []core.StoredFile
	err := s.client.ListObjectsV2PagesWithContext(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(string(category) + "/"),
	}, func(page *s3.ListObjectsV2Output, _ bool) bool {
		for _, obj := range page.Contents {
			key := aws.StringValue(obj.Key)
			if strings.HasSuffix(key, "/") {
				continue
			}
			files = append(files, core.StoredFile{Path: key, ModifiedAt: aws.TimeValue(obj.LastModified)})
		}
		return true
	})
	if err != nil {
		return nil, errors.Wrap(err, "listing objects")
	}
	return files, nil
}
