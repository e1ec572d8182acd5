package domain

import (
	"context"
	"time"
)

// DefaultArchiveName is used when a post is created before any archive exists.
const DefaultArchiveName = "My Archive"

// SourceKind records where an archive's content comes from.
type SourceKind string

const (
	SourceKindLocal  SourceKind = ""
	SourceKindURL    SourceKind = "url"
	SourceKindGitHub SourceKind = "github"
)

// Archive is a named collection of posts plus the display preferences the
// render layer uses for it.
// Online archives come from a URL or a GitHub repository and are read-only.
type Archive struct {
	ID             string
	Name           string
	Description    string
	IsOnline       bool
	SourceURL      string
	SourceKind     SourceKind
	DisplayOptions DisplayOptions
	Posts          []Post
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// FeaturedPostIDs returns the featured ranking stored in the portal options.
func (a *Archive) FeaturedPostIDs() []string {
	if a == nil {
		return nil
	}
	return a.DisplayOptions.PortalOptions.FeaturedPostIDs
}

type ArchiveRepository interface {
	// UpsertArchive stores the archive row only; Posts is ignored.
	UpsertArchive(ctx context.Context, a *Archive) error
	// ReplaceArchive stores the archive and replaces all of its posts with a.Posts.
	ReplaceArchive(ctx context.Context, a *Archive) error
	// GetArchive returns the archive with its live posts loaded.
	GetArchive(ctx context.Context, id string) (*Archive, error)
	ListArchives(ctx context.Context) ([]Archive, error)
	ListOnlineArchives(ctx context.Context) ([]Archive, error)
	DeleteArchive(ctx context.Context, id string) error
}
