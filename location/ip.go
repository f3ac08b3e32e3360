package location

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/netip"
	"net/url"
	"strings"

	"larica/models"
)

// ErrMalformedLocation is returned when a geolocation service answers with
// something that is not a usable position.
var ErrMalformedLocation = errors.New("malformed geolocation response")

// IPLocator resolves an approximate position from a client IP address
type IPLocator interface {
	LocateIP(ctx context.Context, ip string) (Fix, error)
}

// IPAPIClient talks to an ipapi.co compatible endpoint
type IPAPIClient struct {
	baseURL   string
	userAgent string
	http      *http.Client
}

func NewIPAPIClient(baseURL, userAgent string, httpClient *http.Client) *IPAPIClient {
	return &IPAPIClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		http:      httpClient,
	}
}

type ipAPIResponse struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	City      string   `json:"city"`
	Error     bool     `json:"error"`
	Reason    string   `json:"reason"`
}

// LocateIP looks up ip. Private, loopback and empty addresses are resolved
// as the caller's own address, which is what the service does for /json/.
func (c *IPAPIClient) LocateIP(ctx context.Context, ip string) (Fix, error) {
	endpoint := c.baseURL + "/json/"
	if addr, err := netip.ParseAddr(ip); err == nil && isPublic(addr) {
		endpoint = c.baseURL + "/" + url.PathEscape(addr.String()) + "/json/"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Fix{}, fmt.Errorf("build ip geolocation request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Fix{}, fmt.Errorf("ip geolocation request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Fix{}, fmt.Errorf("ip geolocation: unexpected status %d", resp.StatusCode)
	}

	var body ipAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Fix{}, fmt.Errorf("%w: %v", ErrMalformedLocation, err)
	}
	if body.Error {
		return Fix{}, fmt.Errorf("ip geolocation: %s", body.Reason)
	}
	if body.Latitude == nil || body.Longitude == nil {
		return Fix{}, fmt.Errorf("%w: missing latitude/longitude", ErrMalformedLocation)
	}

	fix := Fix{Lat: *body.Latitude, Lon: *body.Longitude, City: body.City}
	if c := (models.Coordinates{Lat: fix.Lat, Lon: fix.Lon}); !c.Valid() || c.IsSentinel() {
		return Fix{}, fmt.Errorf("%w: %v,%v", ErrMalformedLocation, fix.Lat, fix.Lon)
	}
	return fix, nil
}

func isPublic(addr netip.Addr) bool {
	return addr.IsValid() &&
		!addr.IsLoopback() &&
		!addr.IsPrivate() &&
		!addr.IsLinkLocalUnicast() &&
		!addr.IsUnspecified()
}
