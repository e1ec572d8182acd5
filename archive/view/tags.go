package view

import (
	"slices"

	"github.com/dfryer1193/dururack/archive/domain"
)

// ExtractTags returns every distinct tag used by posts, sorted ascending.
// Tags are compared exactly, so "Go" and "go" are two tags.
func ExtractTags(posts []domain.Post) []string {
	seen := make(map[string]struct{})
	tags := make([]string, 0)
	for _, p := range posts {
		for _, tag := range p.Tags {
			if _, ok := seen[tag]; ok {
				continue
			}
			seen[tag] = struct{}{}
			tags = append(tags, tag)
		}
	}
	slices.Sort(tags)
	return tags
}
