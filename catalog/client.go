package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"larica/models"

	"golang.org/x/sync/singleflight"
)

const maxBodyBytes = 10 << 20

var (
	// ErrMalformedResponse means the API answered with an unexpected shape
	ErrMalformedResponse = errors.New("malformed restaurant api response")
	// ErrSentinelCoordinates is returned instead of querying for (0,0)
	ErrSentinelCoordinates = errors.New("coordinates unresolved")
	// ErrMissingPhotoReference is returned by FetchImage for an empty ref
	ErrMissingPhotoReference = errors.New("photo_reference is required")
)

// StatusError is a non-success HTTP status from the restaurant API
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return "restaurant api: unexpected status " + strconv.Itoa(e.Code)
}

// Page is one normalized page of search results
type Page struct {
	Results []models.Restaurant
	Cursor  models.PageCursor
}

// Image is a proxied restaurant photo
type Image struct {
	ContentType string
	Data        []byte
}

// Client talks to the external restaurant API
type Client struct {
	baseURL string
	http    *http.Client
	images  singleflight.Group
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// Search fetches one page of restaurants around coords
func (c *Client) Search(ctx context.Context, coords models.Coordinates, page int) (*Page, error) {
	if coords.IsSentinel() {
		return nil, ErrSentinelCoordinates
	}
	if page < 1 {
		page = 1
	}

	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(coords.Lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(coords.Lon, 'f', -1, 64))
	q.Set("page", strconv.Itoa(page))

	body, _, err := c.get(ctx, "/restaurantes?"+q.Encode())
	if err != nil {
		return nil, err
	}
	return decodePage(body, page)
}

// FetchImage proxies a photo. Concurrent requests for the same reference
// share one upstream call.
func (c *Client) FetchImage(ctx context.Context, ref string) (*Image, error) {
	if ref == "" {
		return nil, ErrMissingPhotoReference
	}
	v, err, _ := c.images.Do(ref, func() (any, error) {
		data, contentType, err := c.get(ctx, "/get-image?photo_reference="+url.QueryEscape(ref))
		if err != nil {
			return nil, err
		}
		if contentType == "" {
			contentType = http.DetectContentType(data)
		}
		return &Image{ContentType: contentType, Data: data}, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Image), nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("restaurant api request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, "", &StatusError{Code: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, "", fmt.Errorf("read restaurant api response: %w", err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

// envelope is the paginated response shape
type envelope struct {
	Results      json.RawMessage `json:"results"`
	CurrentPage  *int            `json:"currentPage"`
	TotalPages   *int            `json:"totalPages"`
	TotalResults *int            `json:"totalResults"`
}

// decodePage accepts either a bare array of places or an envelope object
func decodePage(body []byte, requested int) (*Page, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrMalformedResponse)
	}

	var raw json.RawMessage
	cursor := models.PageCursor{Page: requested, TotalPages: requested}

	switch body[0] {
	case '[':
		raw = body
	case '{':
		var env envelope
		if err := json.Unmarshal(body, &env); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		trimmed := bytes.TrimSpace(env.Results)
		if len(trimmed) == 0 || trimmed[0] != '[' {
			return nil, fmt.Errorf("%w: results is not an array", ErrMalformedResponse)
		}
		raw = trimmed
		if env.CurrentPage != nil {
			cursor.Page = *env.CurrentPage
		}
		if env.TotalPages != nil {
			cursor.TotalPages = *env.TotalPages
		} else {
			cursor.TotalPages = cursor.Page
		}
		if env.TotalResults != nil {
			cursor.TotalResults = *env.TotalResults
		}
	default:
		return nil, fmt.Errorf("%w: unexpected %q", ErrMalformedResponse, body[0])
	}

	var places []apiPlace
	if err := json.Unmarshal(raw, &places); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	page := &Page{Results: make([]models.Restaurant, 0, len(places)), Cursor: cursor}
	for _, p := range places {
		if r, ok := p.toRestaurant(); ok {
			page.Results = append(page.Results, r)
		}
	}
	if page.Cursor.TotalResults == 0 {
		page.Cursor.TotalResults = len(page.Results)
	}
	return page, nil
}
