package storage

import (
	"context"
	"io"
	"time"
)

// File is an asset to upload
type File struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// FileRef identifies an uploaded file
type FileRef struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// ViewRef is a directly renderable reference to a stored file
type ViewRef struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// ObjectStore is the bucket holding image blobs
type ObjectStore interface {
	CreateFile(ctx context.Context, id string, file File) (*FileRef, error)
	GetFileView(ctx context.Context, id string) (*ViewRef, error)
}

// objectKey is the bucket key for a file id
func objectKey(prefix, id string) string {
	if prefix == "" {
		return id
	}
	return prefix + "/" + id
}
