package models

// GeoPoint is a latitude/longitude pair as rendered on maps
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Restaurant is one search result from the restaurant API.
// Values are never mutated after decoding; a refetch replaces them.
type Restaurant struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Location         GeoPoint `json:"location"`
	Tags             []string `json:"tags"`
	Rating           float64  `json:"rating"`
	UserRatingsTotal int      `json:"user_ratings_total"`
	PhotoReference   string   `json:"photo_reference,omitempty"`
	Phone            string   `json:"phone,omitempty"`
	Address          string   `json:"address,omitempty"`
	BusinessStatus   string   `json:"business_status,omitempty"`
	OpenNow          *bool    `json:"open_now,omitempty"`
	PriceLevel       *int     `json:"price_level,omitempty"`
}

// HasTag reports whether tag is one of the restaurant's category tags
func (r Restaurant) HasTag(tag string) bool {
	for _, t := range r.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// PageCursor tracks pagination of the restaurant API for one set of coordinates
type PageCursor struct {
	Page         int `json:"current_page"`
	TotalPages   int `json:"total_pages"`
	TotalResults int `json:"total_results"`
}

// HasMore reports whether another page can be requested
func (c PageCursor) HasMore() bool {
	return c.Page < c.TotalPages
}

// FilterState is the user's search term and selected category.
// An empty Category means no category filter.
type FilterState struct {
	Term     string `json:"term"`
	Category string `json:"category,omitempty"`
}

// IsZero reports whether the filter is at its defaults
func (f FilterState) IsZero() bool {
	return f.Term == "" && f.Category == ""
}
