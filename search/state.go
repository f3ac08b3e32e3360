package search

import (
	"sync"

	"larica/models"
)

// ViewMode selects between the paginated list and the full map
type ViewMode string

const (
	ViewList ViewMode = "list"
	ViewMap  ViewMode = "map"
)

// View is what the presentation layer renders
type View struct {
	Restaurants []models.Restaurant `json:"restaurants"`
	Total       int                 `json:"total"`
	HasMore     bool                `json:"has_more"`
	Categories  []string            `json:"categories"`
	Filter      models.FilterState  `json:"filter"`
	Mode        ViewMode            `json:"mode"`
	Visible     int                 `json:"visible"`
}

// State is one visitor's filter state, visible count and view mode
type State struct {
	mu         sync.Mutex
	filter     models.FilterState
	visible    int
	mode       ViewMode
	generation uint64
}

func NewState() *State {
	return &State{visible: PageSize, mode: ViewList}
}

// SetTerm replaces the search term
func (s *State) SetTerm(term string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter.Term = term
	s.visible = PageSize
}

// ToggleCategory selects category, or resets the filter to its defaults if
// category is already selected. An empty category clears the selection.
func (s *State) ToggleCategory(category string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if category == "" || s.filter.Category == category {
		s.filter = models.FilterState{}
	} else {
		s.filter.Category = category
	}
	s.visible = PageSize
}

// ClearFilters resets term and category
func (s *State) ClearFilters() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter = models.FilterState{}
	s.visible = PageSize
}

// ShowMore grows the visible count by one page
func (s *State) ShowMore() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visible += PageSize
}

// SetViewMode switches between list and map; unknown modes are ignored
func (s *State) SetViewMode(mode ViewMode) {
	if mode != ViewList && mode != ViewMap {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = mode
}

// Sync resets the filter state when the catalog identity changed
func (s *State) Sync(generation uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation == generation {
		return
	}
	s.generation = generation
	s.filter = models.FilterState{}
	s.visible = PageSize
}

func (s *State) Filter() models.FilterState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter
}

func (s *State) Mode() ViewMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// View derives the displayed set for items. items must belong to
// generation; a newer generation resets the state first.
func (s *State) View(items []models.Restaurant, generation uint64) View {
	s.Sync(generation)

	s.mu.Lock()
	f, visible, mode := s.filter, s.visible, s.mode
	s.mu.Unlock()

	filtered := Filter(items, f)
	v := View{
		Total:      len(filtered),
		Categories: Categories(items),
		Filter:     f,
		Mode:       mode,
		Visible:    visible,
	}
	if mode == ViewList && visible < len(filtered) {
		v.Restaurants = filtered[:visible]
		v.HasMore = true
	} else {
		v.Restaurants = filtered
	}
	return v
}
