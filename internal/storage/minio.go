package storage

import (
	"bytes"
	"context"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rotisserie/eris"

	"github.com/attestix/compliance-cli/internal/config"
	"github.com/attestix/compliance-cli/internal/resilience"
)

// MinioStorage implements Storage against any S3-compatible endpoint.
type MinioStorage struct {
	client *minio.Client
	bucket string
	retry  resilience.RetryConfig
}

// NewMinio connects to the configured endpoint and ensures the bucket exists.
func NewMinio(ctx context.Context, cfg config.StorageConfig) (*MinioStorage, error) {
	cli, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, eris.Wrap(err, "storage: connect minio")
	}

	exists, err := cli.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, eris.Wrapf(err, "storage: check bucket %s", cfg.Bucket)
	}
	if !exists {
		if err := cli.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, eris.Wrapf(err, "storage: create bucket %s", cfg.Bucket)
		}
	}

	retry := resilience.DefaultRetryConfig()
	retry.OnRetry = resilience.RetryLogger("minio", "download")

	return &MinioStorage{client: cli, bucket: cfg.Bucket, retry: retry}, nil
}

// Download fetches the object's full content. Transient endpoint failures
// are retried in-process; whatever still fails is reported as *StorageError
// for the dispatch layer to reschedule.
func (s *MinioStorage) Download(ctx context.Context, key string) ([]byte, error) {
	data, err := resilience.DoVal(ctx, s.retry, func(ctx context.Context) ([]byte, error) {
		obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
		if err != nil {
			return nil, err
		}
		defer obj.Close() //nolint:errcheck
		return io.ReadAll(obj)
	})
	if err != nil {
		return nil, &StorageError{Key: key, Err: err}
	}
	return data, nil
}

// Upload stores data under key with the given content type.
func (s *MinioStorage) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return &StorageError{Key: key, Err: err}
	}
	return nil
}
