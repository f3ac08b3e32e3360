package routes

import (
	"net/http"
	"time"

	"larica/handlers"
	"larica/metrics"
	"larica/middleware"
	"larica/visitor"

	"github.com/gin-gonic/gin"
)

// Access decides who may see a page
type Access int

const (
	// Open pages are shown to everyone
	Open Access = iota
	// Private pages need a signed-in session
	Private
	// Public pages are for signed-out visitors only (login, register)
	Public
)

func (a Access) String() string {
	switch a {
	case Private:
		return "private"
	case Public:
		return "public"
	default:
		return "open"
	}
}

// Page maps a path to the handler that renders it
type Page struct {
	Method  string
	Path    string
	Access  Access
	Handler gin.HandlerFunc
}

// Pages is the page table of the site
func Pages(h *handlers.Handler) []Page {
	return []Page{
		{http.MethodGet, "/", Open, h.Home},
		{http.MethodGet, "/restaurants/:id", Open, h.Detail},
		{http.MethodPost, "/location", Open, h.SetLocation},
		{http.MethodPost, "/search", Open, h.Search},
		{http.MethodPost, "/filters/category", Open, h.ToggleCategory},
		{http.MethodPost, "/filters/clear", Open, h.ClearFilters},
		{http.MethodPost, "/more", Open, h.More},
		{http.MethodPost, "/view", Open, h.SetView},
		{http.MethodPost, "/reload", Open, h.Reload},

		{http.MethodGet, "/login", Public, h.LoginPage},
		{http.MethodPost, "/login", Public, h.Login},
		{http.MethodGet, "/register", Public, h.RegisterPage},
		{http.MethodPost, "/register", Public, h.Register},

		{http.MethodGet, "/profile", Private, h.Profile},
		{http.MethodPost, "/profile", Private, h.UpdateProfile},
		{http.MethodPost, "/profile/password", Private, h.ChangePassword},
		{http.MethodPost, "/logout", Private, h.Logout},
	}
}

type Options struct {
	Handler      *handlers.Handler
	Visitors     *visitor.Registry
	Metrics      *metrics.Metrics
	Cookies      middleware.Cookies
	ReadyTimeout time.Duration
}

func SetupRoutes(r *gin.Engine, opts Options) {
	h := opts.Handler
	pages := Pages(h)

	// ── Stateless endpoints ────────────────────────────────────────
	r.GET("/health", h.Health)
	r.GET("/get-image", h.GetImage)
	r.GET("/api/session-states", h.SessionStates)
	r.GET("/api/routes", describe(pages))
	if opts.Metrics != nil {
		r.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}

	// ── Pages, bound to the caller's visitor ───────────────────────
	site := r.Group("/")
	site.Use(middleware.Visitor(opts.Visitors, opts.Cookies))
	for _, p := range pages {
		chain := []gin.HandlerFunc{}
		switch p.Access {
		case Private:
			chain = append(chain, middleware.AuthRequired(opts.ReadyTimeout))
		case Public:
			chain = append(chain, middleware.GuestOnly(opts.ReadyTimeout))
		}
		site.Handle(p.Method, p.Path, append(chain, p.Handler)...)
	}

	r.NoRoute(func(c *gin.Context) {
		c.Redirect(http.StatusFound, middleware.HomePath)
	})
}

func describe(pages []Page) gin.HandlerFunc {
	info := make([]gin.H, 0, len(pages))
	for _, p := range pages {
		info = append(info, gin.H{"method": p.Method, "path": p.Path, "access": p.Access.String()})
	}
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"count":  len(info),
			"routes": info,
		})
	}
}
