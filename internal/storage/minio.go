package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"memories-backend/internal/models"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var _ ObjectStore = (*MinioStore)(nil)

// minioAPI is the subset of *minio.Client the store needs
type minioAPI interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expiry time.Duration, reqParams url.Values) (*url.URL, error)
}

// MinioOptions configures the MinIO driver
type MinioOptions struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	Prefix    string
	ViewTTL   time.Duration
}

// MinioStore stores images in a MinIO bucket
type MinioStore struct {
	api     minioAPI
	bucket  string
	prefix  string
	viewTTL time.Duration
	now     func() time.Time
}

// NewMinioStore connects to MinIO and makes sure the bucket exists
func NewMinioStore(ctx context.Context, opts MinioOptions) (*MinioStore, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	return NewMinioStoreWithAPI(ctx, client, opts)
}

// NewMinioStoreWithAPI allows injecting a fake client
func NewMinioStoreWithAPI(ctx context.Context, api minioAPI, opts MinioOptions) (*MinioStore, error) {
	ttl := opts.ViewTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	s := &MinioStore{
		api:     api,
		bucket:  opts.Bucket,
		prefix:  opts.Prefix,
		viewTTL: ttl,
		now:     time.Now,
	}

	if err := s.ensureBucketExists(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure bucket exists: %w", err)
	}
	return s, nil
}

func (s *MinioStore) ensureBucketExists(ctx context.Context) error {
	exists, err := s.api.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := s.api.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}
	return nil
}

// CreateFile uploads the file under the prefixed id
func (s *MinioStore) CreateFile(ctx context.Context, id string, file File) (*FileRef, error) {
	size := file.Size
	if size <= 0 {
		size = -1
	}
	info, err := s.api.PutObject(ctx, s.bucket, objectKey(s.prefix, id), file.Body, size, minio.PutObjectOptions{
		ContentType: file.ContentType,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload object: %w: %w", models.ErrRemoteUnavailable, err)
	}

	return &FileRef{ID: id, Name: file.Name, ContentType: file.ContentType, Size: info.Size}, nil
}

// GetFileView returns a presigned GET URL for the file
func (s *MinioStore) GetFileView(ctx context.Context, id string) (*ViewRef, error) {
	u, err := s.api.PresignedGetObject(ctx, s.bucket, objectKey(s.prefix, id), s.viewTTL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate pre-signed URL: %w: %w", models.ErrRemoteUnavailable, err)
	}
	return &ViewRef{URL: u.String(), ExpiresAt: s.now().Add(s.viewTTL)}, nil
}
