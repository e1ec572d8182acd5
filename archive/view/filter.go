package view

import (
	"slices"
	"strings"

	"github.com/dfryer1193/dururack/archive/domain"
)

// Query is the user's current filter state.
// An empty Tag means no tag is selected; an empty Text means no search.
type Query struct {
	Text string
	Tag  string
}

// Active reports whether the query narrows the post list at all.
func (q Query) Active() bool {
	return q.Text != "" || q.Tag != ""
}

// Filter applies the tag filter and then the text filter.
func Filter(posts []domain.Post, q Query) []domain.Post {
	return FilterByQuery(FilterByTag(posts, q.Tag), q.Text)
}

// FilterByTag keeps the posts carrying tag exactly (case-sensitive).
// With no tag selected the input is returned unchanged.
func FilterByTag(posts []domain.Post, tag string) []domain.Post {
	if tag == "" {
		return posts
	}

	out := make([]domain.Post, 0)
	for _, p := range posts {
		if slices.Contains(p.Tags, tag) {
			out = append(out, p)
		}
	}
	return out
}

// FilterByQuery keeps the posts whose title, content or one of whose tags
// contains query, ignoring case. Only the empty string disables the filter;
// whitespace is matched literally.
func FilterByQuery(posts []domain.Post, query string) []domain.Post {
	if query == "" {
		return posts
	}

	needle := strings.ToLower(query)
	out := make([]domain.Post, 0)
	for _, p := range posts {
		if matchesQuery(p, needle) {
			out = append(out, p)
		}
	}
	return out
}

func matchesQuery(p domain.Post, needle string) bool {
	if strings.Contains(strings.ToLower(p.Title), needle) ||
		strings.Contains(strings.ToLower(p.Content), needle) {
		return true
	}
	return slices.ContainsFunc(p.Tags, func(tag string) bool {
		return strings.Contains(strings.ToLower(tag), needle)
	})
}
