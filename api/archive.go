package api

import (
	"time"

	"github.com/dfryer1193/dururack/archive/domain"
)

// Archive is the archive file format used for import, export and the REST API.
type Archive struct {
	ID             string                `json:"id"`
	Name           string                `json:"name"`
	Description    string                `json:"description,omitempty"`
	IsOnline       bool                  `json:"isOnline,omitempty"`
	SourceURL      string                `json:"sourceUrl,omitempty"`
	DisplayOptions domain.DisplayOptions `json:"displayOptions"`
	Posts          []Post                `json:"posts"`
}

// ArchiveSummary is an archive without its posts.
type ArchiveSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	IsOnline    bool   `json:"isOnline"`
	SourceURL   string `json:"sourceUrl,omitempty"`
	CreatedAt   string `json:"createdAt,omitempty"`
}

// ArchiveProto carries the fields of an archive create or update. Nil fields are left unchanged.
type ArchiveProto struct {
	Name           *string                `json:"name"`
	Description    *string                `json:"description"`
	DisplayOptions *domain.DisplayOptions `json:"displayOptions"`
}

type ImportURLRequest struct {
	URL string `json:"url" binding:"required"`
}

func NewArchive(a *domain.Archive) Archive {
	return Archive{
		ID:             a.ID,
		Name:           a.Name,
		Description:    a.Description,
		IsOnline:       a.IsOnline,
		SourceURL:      a.SourceURL,
		DisplayOptions: a.DisplayOptions,
		Posts:          NewPosts(a.Posts),
	}
}

func NewArchiveSummary(a domain.Archive) ArchiveSummary {
	return ArchiveSummary{
		ID:          a.ID,
		Name:        a.Name,
		Description: a.Description,
		IsOnline:    a.IsOnline,
		SourceURL:   a.SourceURL,
		CreatedAt:   FormatTime(a.CreatedAt),
	}
}

func NewArchiveSummaries(archives []domain.Archive) []ArchiveSummary {
	out := make([]ArchiveSummary, 0, len(archives))
	for _, a := range archives {
		out = append(out, NewArchiveSummary(a))
	}
	return out
}

// FormatTime renders t as an RFC 3339 timestamp; the zero time is empty.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
