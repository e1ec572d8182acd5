// Package view derives the read-only views of an archive: the filtered post
// list, the tag cloud and the featured posts. Everything here is a pure
// function of its inputs.
package view

import "github.com/dfryer1193/dururack/archive/domain"

// EmptyState explains why a page has no posts to show.
type EmptyState string

const (
	EmptyNone      EmptyState = ""
	EmptyArchive   EmptyState = "archive-empty"
	EmptyNoResults EmptyState = "no-results"
)

// Page is everything the render layer needs for one archive page.
type Page struct {
	ArchiveID    string
	Name         string
	Description  string
	ReadOnly     bool
	Options      domain.DisplayOptions
	Query        Query
	Posts        []domain.Post
	Tags         []string
	Featured     []domain.Post
	ShowTagCloud bool
	Empty        EmptyState
}

// Build computes the page for archive a under query q. Display options are
// resolved once here so renderers never see unknown enum values.
func Build(a *domain.Archive, q Query) Page {
	if a == nil {
		return Page{
			Options:  domain.DisplayOptions{}.Resolved(),
			Query:    q,
			Posts:    []domain.Post{},
			Tags:     []string{},
			Featured: []domain.Post{},
			Empty:    EmptyArchive,
		}
	}

	opts := a.DisplayOptions.Resolved()
	page := Page{
		ArchiveID:    a.ID,
		Name:         a.Name,
		Description:  a.Description,
		ReadOnly:     a.IsOnline,
		Options:      opts,
		Query:        q,
		Posts:        Filter(a.Posts, q),
		Tags:         ExtractTags(a.Posts),
		Featured:     []domain.Post{},
		ShowTagCloud: a.DisplayOptions.TagCloudVisible(),
	}

	if opts.Layout.IsPortal() {
		page.Featured = SelectFeatured(a.Posts, a.FeaturedPostIDs())
	}

	if len(page.Posts) == 0 {
		page.Posts = []domain.Post{}
		switch {
		case q.Active():
			page.Empty = EmptyNoResults
		default:
			page.Empty = EmptyArchive
		}
	}

	return page
}
