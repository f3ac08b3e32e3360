package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// LoginPath and HomePath are where gated pages redirect to
const (
	LoginPath = "/login"
	HomePath  = "/"
)

// WantsJSON reports whether the client negotiated a JSON response
func WantsJSON(c *gin.Context) bool {
	return c.NegotiateFormat(gin.MIMEHTML, gin.MIMEJSON) == gin.MIMEJSON
}

// authenticated waits for the visitor's session to leave loading, for at
// most readyTimeout, then reports whether it is signed in. A session that
// is still loading counts as signed out.
func authenticated(c *gin.Context, readyTimeout time.Duration) bool {
	v := GetVisitor(c)
	if v == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), readyTimeout)
	defer cancel()
	if err := v.Session.WaitReady(ctx); err != nil {
		Logger(c).Warn("Auth session not ready", "error", err)
		return false
	}
	return v.Session.IsAuthenticated()
}

// AuthRequired gates private pages: signed-out visitors are sent to the
// login page, JSON clients get a 401.
func AuthRequired(readyTimeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if authenticated(c, readyTimeout) {
			c.Next()
			return
		}
		if WantsJSON(c) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			c.Abort()
			return
		}
		c.Redirect(http.StatusFound, LoginPath)
		c.Abort()
	}
}

// GuestOnly gates public pages like login and register: signed-in visitors
// are sent home.
func GuestOnly(readyTimeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !authenticated(c, readyTimeout) {
			c.Next()
			return
		}
		c.Redirect(http.StatusFound, HomePath)
		c.Abort()
	}
}
