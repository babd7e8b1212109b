package storage

import (
	"context"
	"fmt"
	"time"

	"memories-backend/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

var _ ObjectStore = (*S3Store)(nil)

type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type s3Presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3Options configures the S3 driver
type S3Options struct {
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	// Endpoint overrides the AWS endpoint for S3 compatible providers
	Endpoint string
	Prefix   string
	ViewTTL  time.Duration
}

// S3Store stores images in an S3 bucket and serves presigned GET URLs
type S3Store struct {
	api     s3API
	presign s3Presigner
	bucket  string
	prefix  string
	viewTTL time.Duration
	now     func() time.Time
}

// NewS3Store creates an S3 backed object store
func NewS3Store(ctx context.Context, opts S3Options) (*S3Store, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(opts.Region)}
	if opts.AccessKey != "" && opts.SecretKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	return newS3Store(client, s3.NewPresignClient(client), opts), nil
}

func newS3Store(api s3API, presign s3Presigner, opts S3Options) *S3Store {
	ttl := opts.ViewTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &S3Store{
		api:     api,
		presign: presign,
		bucket:  opts.Bucket,
		prefix:  opts.Prefix,
		viewTTL: ttl,
		now:     time.Now,
	}
}

// CreateFile uploads the file under the prefixed id
func (s *S3Store) CreateFile(ctx context.Context, id string, file File) (*FileRef, error) {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(objectKey(s.prefix, id)),
		Body:        file.Body,
		ContentType: aws.String(file.ContentType),
	}
	if file.Size > 0 {
		input.ContentLength = aws.Int64(file.Size)
	}

	if _, err := s.api.PutObject(ctx, input); err != nil {
		return nil, fmt.Errorf("failed to upload object: %w: %w", models.ErrRemoteUnavailable, err)
	}

	return &FileRef{ID: id, Name: file.Name, ContentType: file.ContentType, Size: file.Size}, nil
}

// GetFileView returns a presigned GET URL for the file
func (s *S3Store) GetFileView(ctx context.Context, id string) (*ViewRef, error) {
	request, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(s.prefix, id)),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = s.viewTTL
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate pre-signed URL: %w: %w", models.ErrRemoteUnavailable, err)
	}

	return &ViewRef{URL: request.URL, ExpiresAt: s.now().Add(s.viewTTL)}, nil
}
