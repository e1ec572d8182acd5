package api

import "github.com/dfryer1193/dururack/archive/domain"

type Post struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Content         string   `json:"content"`
	Description     string   `json:"description,omitempty"`
	CreatedAt       string   `json:"createdAt"`
	PreviewImageURL string   `json:"previewImageUrl,omitempty"`
	Tags            []string `json:"tags"`
}

// PostProto is the body of a post create or edit.
type PostProto struct {
	Title           string   `json:"title" binding:"required"`
	Content         string   `json:"content"`
	Description     string   `json:"description"`
	PreviewImageURL string   `json:"previewImageUrl"`
	Tags            []string `json:"tags"`
}

// RenderedPost is a post with its markdown body rendered to HTML.
type RenderedPost struct {
	Post
	HTML string `json:"html"`
}

func NewPost(p domain.Post) Post {
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}

	return Post{
		ID:              p.ID,
		Title:           p.Title,
		Content:         p.Content,
		Description:     p.Description,
		CreatedAt:       FormatTime(p.CreatedAt),
		PreviewImageURL: p.PreviewImageURL,
		Tags:            tags,
	}
}

func NewPosts(posts []domain.Post) []Post {
	out := make([]Post, 0, len(posts))
	for _, p := range posts {
		out = append(out, NewPost(p))
	}
	return out
}
