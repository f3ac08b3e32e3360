// Package handlers renders the pages of the site. Every handler answers
// HTML by default and JSON when the client asks for application/json.
package handlers

import (
	"context"
	"net/http"
	"time"

	"larica/catalog"
	"larica/middleware"
	"larica/visitor"

	"github.com/gin-gonic/gin"
)

// ImageSource proxies restaurant photos
type ImageSource interface {
	FetchImage(ctx context.Context, ref string) (*catalog.Image, error)
}

type Handler struct {
	images      ImageSource
	visitors    *visitor.Registry
	tokenCookie string
}

func New(images ImageSource, visitors *visitor.Registry, tokenCookie string) *Handler {
	return &Handler{images: images, visitors: visitors, tokenCookie: tokenCookie}
}

// respond renders page, or data as JSON for JSON clients
func respond(c *gin.Context, status int, page string, data gin.H) {
	if middleware.WantsJSON(c) {
		c.JSON(status, data)
		return
	}
	c.HTML(status, page, data)
}

// done finishes a successful form post: browsers follow a 303 to target,
// JSON clients get data.
func done(c *gin.Context, status int, target string, data gin.H) {
	if middleware.WantsJSON(c) {
		c.JSON(status, data)
		return
	}
	c.Redirect(http.StatusSeeOther, target)
}

// page is the data every template expects
func page(v *visitor.Visitor, title string) gin.H {
	return gin.H{
		"title":   title,
		"user":    v.Session.User(),
		"session": v.Session.Status(),
	}
}

// syncToken mirrors the provider's ID token into the token cookie
func (h *Handler) syncToken(c *gin.Context, v *visitor.Visitor) {
	c.SetSameSite(http.SameSiteLaxMode)
	token := v.Token()
	if token == "" {
		c.SetCookie(h.tokenCookie, "", -1, "/", "", false, true)
		return
	}
	maxAge := int(time.Until(v.TokenExpiry()).Seconds())
	c.SetCookie(h.tokenCookie, token, maxAge, "/", "", false, true)
}
