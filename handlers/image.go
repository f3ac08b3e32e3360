package handlers

import (
	"errors"
	"net/http"

	"larica/catalog"
	"larica/middleware"

	"github.com/gin-gonic/gin"
)

// GetImage proxies a restaurant photo from the restaurant API
func (h *Handler) GetImage(c *gin.Context) {
	img, err := h.images.FetchImage(c.Request.Context(), c.Query("photo_reference"))
	if err != nil {
		var statusErr *catalog.StatusError
		switch {
		case errors.Is(err, catalog.ErrMissingPhotoReference):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.As(err, &statusErr) && statusErr.Code == http.StatusNotFound:
			c.JSON(http.StatusNotFound, gin.H{"error": "Image not found"})
		default:
			middleware.Logger(c).Warn("Image proxy failed", "error", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to fetch image"})
		}
		return
	}
	c.Header("Cache-Control", "public, max-age=86400")
	c.Data(http.StatusOK, img.ContentType, img.Data)
}
