package domain

import (
	"context"
	"time"
)

// Post is a single content item of an archive.
// Content is markdown. Tags keep the order and case they were stored with.
type Post struct {
	ID              string
	ArchiveID       string
	Title           string
	Content         string
	Description     string
	PreviewImageURL string
	Tags            []string
	CreatedAt       time.Time
	UpdatedAt       time.Time

	// DeletedAt is set while a post sits in the undo window.
	DeletedAt time.Time
}

// IsDeleted reports whether the post has been soft deleted.
func (p Post) IsDeleted() bool {
	return !p.DeletedAt.IsZero()
}

type PostRepository interface {
	UpsertPost(ctx context.Context, p *Post) error
	GetPost(ctx context.Context, archiveID string, id string) (*Post, error)
	ListPosts(ctx context.Context, archiveID string) ([]Post, error)
	GetLatestUpdatedTime(ctx context.Context, archiveID string) (time.Time, error)

	// DeletePost marks a post deleted; RestorePost undoes it.
	DeletePost(ctx context.Context, archiveID string, id string) error
	RestorePost(ctx context.Context, archiveID string, id string) error
	// RemovePost deletes a post row outright.
	RemovePost(ctx context.Context, archiveID string, id string) error
	PurgeDeleted(ctx context.Context, before time.Time) (int64, error)
}
