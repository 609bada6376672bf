package objectsync

import (
	"context"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectStore is the narrow contract against the durable object store.
type ObjectStore interface {
	Exists(ctx context.Context, objectName string) (bool, error)
	Upload(ctx context.Context, objectName, localPath, contentType string) error
}

// MinioStore talks to any S3-compatible object store.
type MinioStore struct {
	client *minio.Client
	bucket string
}

func NewMinioStore(cfg *Config) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, err
	}

	return &MinioStore{
		client: client,
		bucket: cfg.Bucket,
	}, nil
}

func (m *MinioStore) Exists(ctx context.Context, objectName string) (bool, error) {
	_, err := m.client.StatObject(ctx, m.bucket, objectName, minio.StatObjectOptions{})
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket" {
			return false, nil
		}
		return false, err
	}

	return true, nil
}

func (m *MinioStore) Upload(ctx context.Context, objectName, localPath, contentType string) error {
	_, err := m.client.FPutObject(ctx, m.bucket, objectName, localPath, minio.PutObjectOptions{
		ContentType: contentType,
	})

	return err
}
