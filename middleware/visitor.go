package middleware

import (
	"net/http"

	"larica/visitor"

	"github.com/gin-gonic/gin"
)

const visitorKey = "visitor"

// Cookies names the cookies that carry a browser's identity
type Cookies struct {
	Visitor string
	Token   string
}

// Visitor attaches the caller's visitor to the context, creating it (and
// the session cookie) on first contact. The token cookie is only read when
// a visitor is created.
func Visitor(registry *visitor.Registry, cookies Cookies) gin.HandlerFunc {
	return func(c *gin.Context) {
		sid, _ := c.Cookie(cookies.Visitor)
		token, _ := c.Cookie(cookies.Token)

		v, created := registry.Acquire(sid, token)
		if created || sid != v.ID {
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(cookies.Visitor, v.ID, 0, "/", "", false, true)
		}
		SetVisitor(c, v)
		c.Next()
	}
}

// SetVisitor attaches v to the request context
func SetVisitor(c *gin.Context, v *visitor.Visitor) {
	c.Set(visitorKey, v)
}

// GetVisitor returns the visitor attached by Visitor, or nil
func GetVisitor(c *gin.Context) *visitor.Visitor {
	val, ok := c.Get(visitorKey)
	if !ok {
		return nil
	}
	v, _ := val.(*visitor.Visitor)
	return v
}
