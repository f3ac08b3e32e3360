package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"larica/auth"
	"larica/logging"
	"larica/middleware"
	"larica/models"
	"larica/visitor"
	"larica/web"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stuckProvider keeps its user signed in and refuses to sign out
type stuckProvider struct {
	user *models.User
}

func (p *stuckProvider) SignInWithPassword(context.Context, string, string) (*models.User, error) {
	return p.user, nil
}

func (p *stuckProvider) CreateAccount(context.Context, string, string) (*models.User, error) {
	return nil, auth.ErrEmailInUse
}

func (p *stuckProvider) UpdateProfile(context.Context, string) error { return nil }
func (p *stuckProvider) Reauthenticate(context.Context, string, string) error { return nil }
func (p *stuckProvider) UpdatePassword(context.Context, string) error { return nil }

func (p *stuckProvider) SignOut(context.Context) error {
	return errors.New("provider unavailable")
}

func (p *stuckProvider) CurrentUser() *models.User { return p.user }

func (p *stuckProvider) OnAuthStateChanged(fn func(*models.User)) func() {
	fn(p.user)
	return func() {}
}

func logoutRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	session := auth.NewSession(&stuckProvider{
		user: &models.User{ID: "u1", Email: "ana@example.com", DisplayName: "Ana"},
	}, logging.Discard(), nil)
	session.Initialize()
	require.NoError(t, session.WaitReady(context.Background()))
	v := &visitor.Visitor{ID: "v1", Session: session}

	tmpl, err := web.Templates()
	require.NoError(t, err)

	r := gin.New()
	r.SetHTMLTemplate(tmpl)
	r.Use(func(c *gin.Context) {
		middleware.SetVisitor(c, v)
		c.Next()
	})
	r.POST("/logout", New(nil, nil, "token").Logout)
	return r
}

func TestLogoutFailure(t *testing.T) {
	t.Run("browser gets the profile page", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/logout", nil)
		req.Header.Set("Accept", "text/html")
		logoutRouter(t).ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
		assert.Contains(t, w.Body.String(), "Failed to sign out")
	})

	t.Run("json client gets an error body", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/logout", nil)
		req.Header.Set("Accept", "application/json")
		logoutRouter(t).ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
		assert.Contains(t, w.Body.String(), `"error":"Failed to sign out"`)
	})
}
