package api

import (
	"github.com/dfryer1193/dururack/archive/domain"
	"github.com/dfryer1193/dururack/archive/view"
)

// Page is the JSON form of view.Page.
type Page struct {
	ArchiveID    string                `json:"archiveId"`
	Name         string                `json:"name"`
	Description  string                `json:"description,omitempty"`
	ReadOnly     bool                  `json:"readOnly"`
	Options      domain.DisplayOptions `json:"displayOptions"`
	Query        string                `json:"query"`
	Tag          string                `json:"tag"`
	Posts        []Post                `json:"posts"`
	Tags         []string              `json:"tags"`
	Featured     []Post                `json:"featured"`
	ShowTagCloud bool                  `json:"showTagCloud"`
	Empty        string                `json:"empty,omitempty"`
	Cards        []Card                `json:"cards,omitempty"`
}

// Card is how a post is previewed in a page view.
type Card struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Date            string   `json:"date"`
	Excerpt         string   `json:"excerpt,omitempty"`
	PreviewImageURL string   `json:"previewImageUrl,omitempty"`
	Tags            []string `json:"tags"`
}

func NewPage(p view.Page) Page {
	return Page{
		ArchiveID:    p.ArchiveID,
		Name:         p.Name,
		Description:  p.Description,
		ReadOnly:     p.ReadOnly,
		Options:      p.Options,
		Query:        p.Query.Text,
		Tag:          p.Query.Tag,
		Posts:        NewPosts(p.Posts),
		Tags:         p.Tags,
		Featured:     NewPosts(p.Featured),
		ShowTagCloud: p.ShowTagCloud,
		Empty:        string(p.Empty),
	}
}

type Image struct {
	Name        string `json:"name"`
	Hash        string `json:"hash"`
	ContentType string `json:"contentType,omitempty"`
	URL         string `json:"url"`
}

func NewImage(img *domain.Image) Image {
	return Image{
		Name:        img.Name,
		Hash:        img.Hash,
		ContentType: img.ContentType,
		URL:         "/archives/" + img.ArchiveID + "/images/" + img.Name,
	}
}

type Error struct {
	Error string `json:"error"`
}
