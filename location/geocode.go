package location

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// ErrNoPlace is returned when the reverse geocoder knows no locality
var ErrNoPlace = errors.New("no locality for coordinates")

// ReverseGeocoder turns coordinates into a human-readable place name
type ReverseGeocoder interface {
	ReverseGeocode(ctx context.Context, lat, lon float64) (string, error)
}

// NominatimClient talks to a Nominatim compatible /reverse endpoint
type NominatimClient struct {
	baseURL   string
	userAgent string
	http      *http.Client
}

func NewNominatimClient(baseURL, userAgent string, httpClient *http.Client) *NominatimClient {
	return &NominatimClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		http:      httpClient,
	}
}

type nominatimResponse struct {
	Error   string `json:"error"`
	Address struct {
		City    string `json:"city"`
		Town    string `json:"town"`
		Village string `json:"village"`
	} `json:"address"`
}

// ReverseGeocode returns the city, town or village at lat/lon, in that order
func (c *NominatimClient) ReverseGeocode(ctx context.Context, lat, lon float64) (string, error) {
	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/reverse?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("build reverse geocode request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		// Nominatim rejects requests without an identifying agent
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("reverse geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("reverse geocode: unexpected status %d", resp.StatusCode)
	}

	var body nominatimResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedLocation, err)
	}
	if body.Error != "" {
		return "", fmt.Errorf("%w: %s", ErrNoPlace, body.Error)
	}
	for _, name := range []string{body.Address.City, body.Address.Town, body.Address.Village} {
		if name != "" {
			return name, nil
		}
	}
	return "", ErrNoPlace
}
