package handlers

import (
	"net/http"

	"larica/models"
	"larica/statemachine"

	"github.com/gin-gonic/gin"
)

// Health reports liveness
func (h *Handler) Health(c *gin.Context) {
	body := gin.H{
		"status":  "healthy",
		"service": "larica",
		"version": "1.0.0",
	}
	if h.visitors != nil {
		body["visitors"] = h.visitors.Len()
	}
	c.JSON(http.StatusOK, body)
}

// SessionStates returns the auth session state machine for documentation
func (h *Handler) SessionStates(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"state_machine": statemachine.GetAllTransitions(),
		"initial_state": models.StatusUninitialized,
		"description":   "Auth session lifecycle; only the provider settles or changes a session",
	})
}
