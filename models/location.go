package models

import "math"

// Coordinates is a resolved position. Freshness increases on every
// resolution attempt and is the identity catalog fetches are keyed by.
type Coordinates struct {
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	Freshness uint64  `json:"freshness"`
}

// IsSentinel reports whether the coordinates are the reserved (0,0) pair
// meaning the location could not be determined.
func (c Coordinates) IsSentinel() bool {
	return c.Lat == 0 && c.Lon == 0
}

// Valid reports whether lat/lon are finite and within range
func (c Coordinates) Valid() bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lon) || math.IsInf(c.Lat, 0) || math.IsInf(c.Lon, 0) {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}
