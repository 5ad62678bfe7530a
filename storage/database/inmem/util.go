package inmemdb

import (
	"sort"
	"strings"

	"github.com/darasahq/darasa/core"
)

// paginate slices one page out of the full result set, returning the page
// and the unpaginated total.
func paginate[T any](all []T, p core.Params) ([]T, int) {
	total := len(all)
	start := p.Offset()
	if start >= total {
		return []T{}, total
	}
	end := start + p.Limit()
	if end > total {
		end = total
	}
	return all[start:end], total
}

func matchSearch(search string, fields ...string) bool {
	if search == "" {
		return true
	}
	search = strings.ToLower(search)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), search) {
			return true
		}
	}
	return false
}

func sortByID[T any](items []T, id func(T) string) {
	sort.Slice(items, func(i, j int) bool { return id(items[i]) < id(items[j]) })
}
