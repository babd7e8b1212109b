package storage

import (
	"context"
	"fmt"

	"memories-backend/internal/models"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

var _ ObjectStore = (*CloudinaryStore)(nil)

// cloudinaryAPI hides the SDK so tests can run without the network
type cloudinaryAPI interface {
	Upload(ctx context.Context, file File, publicID, folder string) (string, error)
	DeliveryURL(publicID string) (string, error)
}

type cloudinaryClient struct {
	cld *cloudinary.Cloudinary
}

func (c cloudinaryClient) Upload(ctx context.Context, file File, publicID, folder string) (string, error) {
	result, err := c.cld.Upload.Upload(ctx, file.Body, uploader.UploadParams{
		PublicID:     publicID,
		Folder:       folder,
		ResourceType: "auto",
	})
	if err != nil {
		return "", err
	}
	if result.Error.Message != "" {
		return "", fmt.Errorf("cloudinary: %s", result.Error.Message)
	}
	return result.PublicID, nil
}

func (c cloudinaryClient) DeliveryURL(publicID string) (string, error) {
	image, err := c.cld.Image(publicID)
	if err != nil {
		return "", err
	}
	return image.String()
}

// CloudinaryStore stores images in Cloudinary and serves delivery URLs
type CloudinaryStore struct {
	api    cloudinaryAPI
	folder string
}

// NewCloudinaryStore creates a Cloudinary backed object store
func NewCloudinaryStore(cloudName, apiKey, apiSecret, folder string) (*CloudinaryStore, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Cloudinary: %w", err)
	}
	return &CloudinaryStore{api: cloudinaryClient{cld: cld}, folder: folder}, nil
}

// CreateFile uploads the file with the id as public id
func (s *CloudinaryStore) CreateFile(ctx context.Context, id string, file File) (*FileRef, error) {
	if _, err := s.api.Upload(ctx, file, id, s.folder); err != nil {
		return nil, fmt.Errorf("failed to upload to Cloudinary: %w: %w", models.ErrRemoteUnavailable, err)
	}
	return &FileRef{ID: id, Name: file.Name, ContentType: file.ContentType, Size: file.Size}, nil
}

// GetFileView returns the delivery URL of the file
func (s *CloudinaryStore) GetFileView(ctx context.Context, id string) (*ViewRef, error) {
	u, err := s.api.DeliveryURL(objectKey(s.folder, id))
	if err != nil {
		return nil, fmt.Errorf("failed to build Cloudinary URL: %w: %w", models.ErrRemoteUnavailable, err)
	}
	return &ViewRef{URL: u}, nil
}
