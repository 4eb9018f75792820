package export

import (
	"bytes"
	"context"

	"github.com/goliatone/go-errors"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioConfig holds the object store settings.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// MinioArchive stores exports in an S3 compatible bucket.
type MinioArchive struct {
	client *minio.Client
	bucket string
}

var _ Archive = (*MinioArchive)(nil)

// NewMinioArchive connects and creates the bucket when missing.
func NewMinioArchive(ctx context.Context, cfg MinioConfig) (*MinioArchive, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryBadInput, "invalid minio configuration")
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryExternal, "minio bucket check failed")
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, errors.Wrap(err, errors.CategoryExternal, "minio make bucket failed")
		}
	}

	return &MinioArchive{client: client, bucket: cfg.Bucket}, nil
}

// Upload implements Archive.
func (a *MinioArchive) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return errors.Wrap(err, errors.CategoryExternal, "minio upload failed").
			WithMetadata(map[string]any{"bucket": a.bucket, "key": key})
	}
	return nil
}
