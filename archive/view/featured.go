package view

import (
	"cmp"
	"slices"

	"github.com/dfryer1193/dururack/archive/domain"
)

// SelectFeatured returns the posts named in ranking, ordered by their
// position in it. Ranking entries with no matching post are skipped, and an
// empty ranking features nothing. If an id is ranked twice its first
// position counts.
func SelectFeatured(posts []domain.Post, ranking []string) []domain.Post {
	out := make([]domain.Post, 0)
	if len(ranking) == 0 {
		return out
	}

	rank := make(map[string]int, len(ranking))
	for i, id := range ranking {
		if _, ok := rank[id]; !ok {
			rank[id] = i
		}
	}

	for _, p := range posts {
		if _, ok := rank[p.ID]; ok {
			out = append(out, p)
		}
	}
	slices.SortStableFunc(out, func(a, b domain.Post) int {
		return cmp.Compare(rank[a.ID], rank[b.ID])
	})
	return out
}
