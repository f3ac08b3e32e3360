package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"larica/auth"
	"larica/catalog"
	"larica/config"
	"larica/handlers"
	"larica/logging"
	"larica/metrics"
	"larica/middleware"
	"larica/models"
	"larica/visitor"
	"larica/web"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRestaurants struct{}

func (stubRestaurants) Search(ctx context.Context, coords models.Coordinates, page int) (*catalog.Page, error) {
	return &catalog.Page{
		Results: []models.Restaurant{
			{ID: "1", Name: "Sushi Bar", Rating: 4.5, Tags: []string{"japanese"}},
			{ID: "2", Name: "Pizza Place", Rating: 4.8, Tags: []string{"italian"}},
		},
		Cursor: models.PageCursor{Page: 1, TotalPages: 1, TotalResults: 2},
	}, nil
}

func (stubRestaurants) FetchImage(ctx context.Context, ref string) (*catalog.Image, error) {
	if ref == "" {
		return nil, catalog.ErrMissingPhotoReference
	}
	return &catalog.Image{ContentType: "image/png", Data: []byte("png")}, nil
}

var cookies = middleware.Cookies{Visitor: "sid", Token: "token"}

func newServer(t *testing.T) (*gin.Engine, *auth.Accounts) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := config.OpenDB(filepath.Join(t.TempDir(), "accounts.db"))
	require.NoError(t, err)
	accounts := auth.NewAccounts(db, "test-secret-0123456789", time.Hour)

	m := metrics.New()
	registry := visitor.NewRegistry(visitor.Deps{
		Restaurants:  stubRestaurants{},
		Accounts:     accounts,
		DefaultLat:   40.640506,
		DefaultLon:   -8.653783,
		UnknownPlace: "Unknown",
		Logger:       logging.Discard(),
		Metrics:      m,
	}, time.Minute)
	t.Cleanup(registry.CloseAll)

	tmpl, err := web.Templates()
	require.NoError(t, err)

	r := gin.New()
	r.SetHTMLTemplate(tmpl)
	SetupRoutes(r, Options{
		Handler:      handlers.New(stubRestaurants{}, registry, cookies.Token),
		Visitors:     registry,
		Metrics:      m,
		Cookies:      cookies,
		ReadyTimeout: time.Second,
	})
	return r, accounts
}

// browser replays cookies between requests like a user agent would
type browser struct {
	t       *testing.T
	r       *gin.Engine
	cookies map[string]*http.Cookie
	json    bool
}

func newBrowser(t *testing.T, r *gin.Engine) *browser {
	return &browser{t: t, r: r, cookies: map[string]*http.Cookie{}}
}

func (b *browser) do(method, path string, form url.Values) *httptest.ResponseRecorder {
	b.t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if b.json {
		req.Header.Set("Accept", "application/json")
	} else {
		req.Header.Set("Accept", "text/html")
	}
	for _, c := range b.cookies {
		req.AddCookie(c)
	}

	w := httptest.NewRecorder()
	b.r.ServeHTTP(w, req)
	for _, c := range w.Result().Cookies() {
		if c.MaxAge < 0 {
			delete(b.cookies, c.Name)
			continue
		}
		b.cookies[c.Name] = c
	}
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func register(b *browser) *httptest.ResponseRecorder {
	return b.do(http.MethodPost, "/register", url.Values{
		"display_name":     {"Alice"},
		"email":            {"alice@example.com"},
		"password":         {"secret1"},
		"confirm_password": {"secret1"},
	})
}

func TestUnknownPathRedirectsHome(t *testing.T) {
	r, _ := newServer(t)
	w := newBrowser(t, r).do(http.MethodGet, "/nowhere", nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
}

func TestPrivatePageRequiresLogin(t *testing.T) {
	r, _ := newServer(t)
	b := newBrowser(t, r)

	w := b.do(http.MethodGet, "/profile", nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))

	b.json = true
	w = b.do(http.MethodGet, "/profile", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegisterSignsInAndGatesPublicPages(t *testing.T) {
	r, _ := newServer(t)
	b := newBrowser(t, r)

	w := b.do(http.MethodGet, "/register", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Create account")

	w = register(b)
	require.Equal(t, http.StatusSeeOther, w.Code, w.Body.String())
	assert.Contains(t, b.cookies, cookies.Token)
	assert.Contains(t, b.cookies, cookies.Visitor)

	w = b.do(http.MethodGet, "/login", nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	w = b.do(http.MethodGet, "/profile", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "alice@example.com")

	w = b.do(http.MethodPost, "/logout", url.Values{})
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.NotContains(t, b.cookies, cookies.Token)

	w = b.do(http.MethodGet, "/profile", nil)
	assert.Equal(t, http.StatusFound, w.Code)
}

func TestRegisterRejectsMismatchedPasswords(t *testing.T) {
	r, _ := newServer(t)
	w := newBrowser(t, r).do(http.MethodPost, "/register", url.Values{
		"display_name":     {"Alice"},
		"email":            {"alice@example.com"},
		"password":         {"secret1"},
		"confirm_password": {"secret2"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Passwords do not match")
}

func TestLoginWithWrongPassword(t *testing.T) {
	r, accounts := newServer(t)
	_, err := accounts.Create(context.Background(), "alice@example.com", "secret1", "Alice")
	require.NoError(t, err)

	b := newBrowser(t, r)
	b.json = true
	w := b.do(http.MethodPost, "/login", url.Values{"email": {"alice@example.com"}, "password": {"wrong1"}})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	body := decode(t, w)
	assert.NotEmpty(t, body["error"])
	assert.Equal(t, string(models.StatusAnonymous), body["session"])
	assert.NotContains(t, b.cookies, cookies.Token)
}

func TestTokenCookieRestoresSession(t *testing.T) {
	r, _ := newServer(t)
	first := newBrowser(t, r)
	require.Equal(t, http.StatusSeeOther, register(first).Code)

	// a new visitor that only carries the token, as after a server restart
	second := newBrowser(t, r)
	second.cookies[cookies.Token] = first.cookies[cookies.Token]

	w := second.do(http.MethodGet, "/profile", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestChangePasswordSamePassword(t *testing.T) {
	r, _ := newServer(t)
	b := newBrowser(t, r)
	require.Equal(t, http.StatusSeeOther, register(b).Code)

	b.json = true
	w := b.do(http.MethodPost, "/profile/password", url.Values{
		"current_password": {"secret1"},
		"new_password":     {"secret1"},
		"confirm_password": {"secret1"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotEmpty(t, decode(t, w)["password_error"])
}

func TestHomeAndFilters(t *testing.T) {
	r, _ := newServer(t)
	b := newBrowser(t, r)

	w := b.do(http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Pizza Place")
	assert.Contains(t, w.Body.String(), "Sushi Bar")

	w = b.do(http.MethodPost, "/search", url.Values{"term": {"piz"}})
	assert.Equal(t, http.StatusSeeOther, w.Code)

	b.json = true
	w = b.do(http.MethodGet, "/", nil)
	body := decode(t, w)
	view := body["view"].(map[string]any)
	restaurants := view["restaurants"].([]any)
	require.Len(t, restaurants, 1)
	assert.Equal(t, "Pizza Place", restaurants[0].(map[string]any)["name"])

	w = b.do(http.MethodPost, "/filters/clear", url.Values{})
	view = decode(t, w)["view"].(map[string]any)
	assert.Len(t, view["restaurants"], 2)

	w = b.do(http.MethodPost, "/view", url.Values{"mode": {"satellite"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = b.do(http.MethodPost, "/view", url.Values{"mode": {"map"}})
	body = decode(t, w)
	assert.Len(t, body["markers"], 2)
}

func TestDetail(t *testing.T) {
	r, _ := newServer(t)
	b := newBrowser(t, r)
	b.do(http.MethodGet, "/", nil)

	w := b.do(http.MethodGet, "/restaurants/2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Pizza Place")

	w = b.do(http.MethodGet, "/restaurants/404", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "No restaurant selected")
}

func TestStatelessEndpoints(t *testing.T) {
	r, _ := newServer(t)
	b := newBrowser(t, r)
	b.json = true

	w := b.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decode(t, w)["status"])

	w = b.do(http.MethodGet, "/api/routes", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"/profile"`)
	assert.Contains(t, w.Body.String(), `"private"`)

	w = b.do(http.MethodGet, "/api/session-states", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "authenticated")

	w = b.do(http.MethodGet, "/get-image?photo_reference=abc", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))

	w = b.do(http.MethodGet, "/get-image", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = b.do(http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "larica_visitors_active")
	assert.Empty(t, b.cookies, "stateless endpoints create no visitor")
}
