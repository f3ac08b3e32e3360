package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"larica/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serveJSON(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

var aveiro = models.Coordinates{Lat: 40.6405, Lon: -8.6538, Freshness: 1}

func TestSearchEnvelope(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/restaurantes", r.URL.Path)
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`{
			"results": [{
				"place_id": "p1",
				"name": "Salpoente",
				"geometry": {"location": {"lat": 40.6405, "lng": -8.6537}},
				"photos": [{"photo_reference": "ref-1", "width": 400}],
				"vicinity": "Cais de São Roque 83",
				"rating": 4.9,
				"user_ratings_total": 1200,
				"business_status": "OPERATIONAL",
				"opening_hours": {"open_now": true},
				"types": ["restaurant", "food", "restaurant"],
				"international_phone_number": "+351 234 382 674",
				"price_level": 3
			}],
			"currentPage": 2,
			"totalPages": 5,
			"totalResults": 97
		}`))
	}))
	defer srv.Close()

	page, err := NewClient(srv.URL+"/", srv.Client()).Search(context.Background(), aveiro, 2)
	require.NoError(t, err)
	assert.Equal(t, "lat=40.6405&lon=-8.6538&page=2", gotQuery)

	assert.Equal(t, models.PageCursor{Page: 2, TotalPages: 5, TotalResults: 97}, page.Cursor)
	require.Len(t, page.Results, 1)
	r := page.Results[0]
	assert.Equal(t, "p1", r.ID)
	assert.Equal(t, "Salpoente", r.Name)
	assert.Equal(t, models.GeoPoint{Lat: 40.6405, Lng: -8.6537}, r.Location)
	assert.Equal(t, []string{"restaurant", "food"}, r.Tags)
	assert.Equal(t, "ref-1", r.PhotoReference)
	assert.Equal(t, "Cais de São Roque 83", r.Address)
	assert.Equal(t, "+351 234 382 674", r.Phone)
	assert.Equal(t, 1200, r.UserRatingsTotal)
	require.NotNil(t, r.OpenNow)
	assert.True(t, *r.OpenNow)
	require.NotNil(t, r.PriceLevel)
	assert.Equal(t, 3, *r.PriceLevel)
}

func TestSearchBareArray(t *testing.T) {
	srv, _ := serveJSON(t, http.StatusOK, `[
		{"placeId": "p2", "name": "O Bairro", "lat": 40.6412, "log": -8.6545, "rating": 4.8, "types": ["bar"]},
		{"name": "No Id", "geometry": {"location": {"lat": 1, "lng": 2}}},
		{"rating": 3}
	]`)

	page, err := NewClient(srv.URL, srv.Client()).Search(context.Background(), aveiro, 1)
	require.NoError(t, err)
	assert.Equal(t, models.PageCursor{Page: 1, TotalPages: 1, TotalResults: 2}, page.Cursor)
	require.Len(t, page.Results, 2)
	assert.Equal(t, "p2", page.Results[0].ID)
	assert.Equal(t, models.GeoPoint{Lat: 40.6412, Lng: -8.6545}, page.Results[0].Location)
	assert.Equal(t, "No Id@1.000000,2.000000", page.Results[1].ID)
	assert.False(t, page.Cursor.HasMore())
}

func TestSearchMalformed(t *testing.T) {
	for name, body := range map[string]string{
		"empty":            ``,
		"string":           `"nope"`,
		"missing results":  `{"currentPage": 1}`,
		"results object":   `{"results": {"a": 1}}`,
		"truncated":        `[{"name": "x"`,
		"wrong field type": `[{"name": 5}]`,
	} {
		t.Run(name, func(t *testing.T) {
			srv, _ := serveJSON(t, http.StatusOK, body)
			_, err := NewClient(srv.URL, srv.Client()).Search(context.Background(), aveiro, 1)
			assert.ErrorIs(t, err, ErrMalformedResponse)
		})
	}
}

func TestSearchHTTPError(t *testing.T) {
	srv, _ := serveJSON(t, http.StatusServiceUnavailable, `{"error":"down"}`)
	_, err := NewClient(srv.URL, srv.Client()).Search(context.Background(), aveiro, 1)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.Code)
}

func TestSearchSentinelMakesNoRequest(t *testing.T) {
	srv, hits := serveJSON(t, http.StatusOK, `[]`)
	_, err := NewClient(srv.URL, srv.Client()).Search(context.Background(), models.Coordinates{}, 1)
	assert.ErrorIs(t, err, ErrSentinelCoordinates)
	assert.Zero(t, hits.Load())
}

func TestFetchImage(t *testing.T) {
	release := make(chan struct{})
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/get-image", r.URL.Path)
		assert.Equal(t, "ref 1", r.URL.Query().Get("photo_reference"))
		<-release
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte{0xff, 0xd8, 0xff})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client())
	var wg sync.WaitGroup
	images := make([]*Image, 4)
	for i := range images {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			img, err := c.FetchImage(context.Background(), "ref 1")
			assert.NoError(t, err)
			images[i] = img
		}(i)
	}
	close(release)
	wg.Wait()

	assert.LessOrEqual(t, hits.Load(), int32(4))
	for _, img := range images {
		require.NotNil(t, img)
		assert.Equal(t, "image/jpeg", img.ContentType)
		assert.Equal(t, []byte{0xff, 0xd8, 0xff}, img.Data)
	}

	_, err := c.FetchImage(context.Background(), "")
	assert.ErrorIs(t, err, ErrMissingPhotoReference)
}
