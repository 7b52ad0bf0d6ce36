package exam

import "sort"

// SortByCompletion orders results by completion time. Results that were never
// completed sort before completed ones; ties fall back to creation time and id.
// desc reverses the whole order.
func SortByCompletion(rs []Result, desc bool) {
	sort.SliceStable(rs, func(i, j int) bool {
		if desc {
			return completedBefore(rs[j], rs[i])
		}
		return completedBefore(rs[i], rs[j])
	})
}

func completedBefore(a, b Result) bool {
	switch {
	case a.CompletedAt == nil && b.CompletedAt != nil:
		return true
	case a.CompletedAt != nil && b.CompletedAt == nil:
		return false
	case a.CompletedAt != nil && !a.CompletedAt.Equal(*b.CompletedAt):
		return a.CompletedAt.Before(*b.CompletedAt)
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}
