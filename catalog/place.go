package catalog

import (
	"fmt"

	"larica/models"
)

// apiPlace is a Places-style record as the restaurant API returns it.
// Some deployments add camelCase copies of a few fields.
type apiPlace struct {
	PlaceID    string `json:"place_id"`
	PlaceIDAlt string `json:"placeId"`
	Name       string `json:"name"`
	Geometry   struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
	} `json:"geometry"`
	Lat    *float64 `json:"lat"`
	Log    *float64 `json:"log"`
	Photos []struct {
		PhotoReference string `json:"photo_reference"`
	} `json:"photos"`
	PhotoReference      string   `json:"photoReference"`
	Vicinity            string   `json:"vicinity"`
	Rating              float64  `json:"rating"`
	UserRatingsTotal    int      `json:"user_ratings_total"`
	UserRatingsTotalAlt int      `json:"userRatingsTotal"`
	BusinessStatus      string   `json:"business_status"`
	Types               []string `json:"types"`
	Phone               string   `json:"international_phone_number"`
	PhoneAlt            string   `json:"internationalPhoneNumber"`
	PriceLevel          *int     `json:"price_level"`
	OpeningHours        *struct {
		OpenNow *bool `json:"open_now"`
	} `json:"opening_hours"`
	OpenNow *bool `json:"openNow"`
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// toRestaurant converts the wire record; records with neither id nor name
// are dropped.
func (p apiPlace) toRestaurant() (models.Restaurant, bool) {
	loc := models.GeoPoint{Lat: p.Geometry.Location.Lat, Lng: p.Geometry.Location.Lng}
	if loc.Lat == 0 && loc.Lng == 0 && p.Lat != nil && p.Log != nil {
		loc = models.GeoPoint{Lat: *p.Lat, Lng: *p.Log}
	}

	id := firstNonEmpty(p.PlaceID, p.PlaceIDAlt)
	if id == "" {
		if p.Name == "" {
			return models.Restaurant{}, false
		}
		id = fmt.Sprintf("%s@%.6f,%.6f", p.Name, loc.Lat, loc.Lng)
	}

	photo := p.PhotoReference
	if len(p.Photos) > 0 && p.Photos[0].PhotoReference != "" {
		photo = p.Photos[0].PhotoReference
	}

	openNow := p.OpenNow
	if p.OpeningHours != nil && p.OpeningHours.OpenNow != nil {
		openNow = p.OpeningHours.OpenNow
	}

	ratings := p.UserRatingsTotal
	if ratings == 0 {
		ratings = p.UserRatingsTotalAlt
	}

	tags := make([]string, 0, len(p.Types))
	seen := make(map[string]struct{}, len(p.Types))
	for _, t := range p.Types {
		if _, dup := seen[t]; dup || t == "" {
			continue
		}
		seen[t] = struct{}{}
		tags = append(tags, t)
	}

	return models.Restaurant{
		ID:               id,
		Name:             p.Name,
		Location:         loc,
		Tags:             tags,
		Rating:           p.Rating,
		UserRatingsTotal: ratings,
		PhotoReference:   photo,
		Phone:            firstNonEmpty(p.Phone, p.PhoneAlt),
		Address:          p.Vicinity,
		BusinessStatus:   p.BusinessStatus,
		OpenNow:          openNow,
		PriceLevel:       p.PriceLevel,
	}, true
}
