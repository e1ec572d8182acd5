package domain

import (
	"context"
	"time"
)

// Image is an uploaded preview image belonging to an archive.
// Hash is the hex sha256 of Content; Name is the file name it is served under.
type Image struct {
	ArchiveID   string
	Name        string
	Hash        string
	ContentType string
	Content     []byte
	UpdatedAt   time.Time
	CreatedAt   time.Time
}

type ImageRepository interface {
	// SaveImage saves an image to both filesystem and database
	SaveImage(ctx context.Context, img *Image) error

	// GetImage retrieves an image record and its file content
	GetImage(ctx context.Context, archiveID string, name string) (*Image, error)

	// DeleteImage removes an image from both filesystem and database
	DeleteImage(ctx context.Context, archiveID string, name string) error

	// DeleteArchiveImages removes every image stored for an archive
	DeleteArchiveImages(ctx context.Context, archiveID string) error
}
