package urlstate

import "github.com/rebelice/lazyadmin/internal/models"

// ToggleSort advances the sort of a column through asc, desc and back to
// unsorted. Picking another column starts over at asc. The page is kept since
// sorting never changes which rows match.
func (s QueryState) ToggleSort(column string) QueryState {
	if s.Sort != column || s.Order == models.SortNone {
		s.Sort = column
		s.Order = models.SortAsc
		return s
	}

	switch s.Order {
	case models.SortAsc:
		s.Order = models.SortDesc
	default:
		s.Sort = ""
		s.Order = models.SortNone
	}
	return s
}

// Sorted reports whether a sort column is active
func (s QueryState) Sorted() bool {
	return s.Sort != "" && s.Order != models.SortNone
}
