// Package feed orders posts and cuts them into fixed-size pages.
package feed

import (
	"sort"

	"postroom/app/models"
)

// PageSize is the number of posts shown per feed page.
const PageSize = 10

// SortNewestFirst orders posts by creation time, newest first. Posts created
// at the same instant are ordered by ID descending, so the later insertion
// comes first and pagination stays reproducible.
func SortNewestFirst(posts []*models.Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		a, b := posts[i], posts[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
}
