// Package search derives the displayed restaurant set from the catalog and
// the visitor's filter state.
package search

import (
	"sort"
	"strings"

	"larica/models"
)

const (
	// MaxResults caps the derived set to bound rendering cost
	MaxResults = 50
	// PageSize is the initial and incremental visible count in list view
	PageSize = 4
)

// Filter is a pure function of (items, f): it dedupes by ID, keeps items
// with the selected category, keeps names containing the trimmed
// case-insensitive term, sorts by rating descending (ties keep catalog
// order) and caps the result at MaxResults. items is never modified.
func Filter(items []models.Restaurant, f models.FilterState) []models.Restaurant {
	term := strings.ToLower(strings.TrimSpace(f.Term))

	out := make([]models.Restaurant, 0, min(len(items), MaxResults))
	seen := make(map[string]struct{}, len(items))
	for _, r := range items {
		if _, dup := seen[r.ID]; dup {
			continue
		}
		seen[r.ID] = struct{}{}

		if f.Category != "" && !r.HasTag(f.Category) {
			continue
		}
		if term != "" && !strings.Contains(strings.ToLower(r.Name), term) {
			continue
		}
		out = append(out, r)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Rating > out[j].Rating
	})

	if len(out) > MaxResults {
		out = out[:MaxResults]
	}
	return out
}

// Categories returns the sorted set of tags across items
func Categories(items []models.Restaurant) []string {
	set := make(map[string]struct{})
	for _, r := range items {
		for _, t := range r.Tags {
			set[t] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
