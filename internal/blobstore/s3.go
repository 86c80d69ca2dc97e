package blobstore

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Config holds configuration for an S3-compatible object store.
type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// S3 is a Store backend over one object in an S3-compatible bucket.
type S3 struct {
	client *minio.Client
	bucket string
	object string
}

// OpenS3 connects to the object store and creates the bucket if it does not
// exist yet.
func OpenS3(ctx context.Context, config *S3Config, object string) (*S3, error) {
	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKey, config.SecretKey, ""),
		Secure: config.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 client: %w", err)
	}

	exists, err := client.BucketExists(ctx, config.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check s3 bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, config.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create s3 bucket: %w", err)
		}
	}

	return &S3{client: client, bucket: config.Bucket, object: object}, nil
}

func (s *S3) Load(ctx context.Context) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, s.object, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to load blob: %w", err)
	}
	defer obj.Close()

	blob, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load blob: %w", err)
	}
	return blob, nil
}

func (s *S3) Save(ctx context.Context, blob []byte) error {
	_, err := s.client.PutObject(
		ctx,
		s.bucket,
		s.object,
		bytes.NewReader(blob),
		int64(len(blob)),
		minio.PutObjectOptions{ContentType: "application/octet-stream"},
	)
	if err != nil {
		return fmt.Errorf("failed to save blob: %w", err)
	}
	return nil
}

func (s *S3) Close() error { return nil }
