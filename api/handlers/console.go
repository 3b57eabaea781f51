package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/siebog/console/internal/feed"
	"github.com/siebog/console/internal/ws"
)

// ConsoleHandler exposes the console push endpoint and lets other
// components publish lines to it.
type ConsoleHandler struct {
	wsHandler *ws.Handler
}

// NewConsoleHandler creates a new ConsoleHandler.
func NewConsoleHandler(wsHandler *ws.Handler) *ConsoleHandler {
	return &ConsoleHandler{wsHandler: wsHandler}
}

// PublishRequest is the body of POST /api/console.
type PublishRequest struct {
	Text string `json:"text" binding:"required"`
}

// Attach handles WS /siebog/console.
func (h *ConsoleHandler) Attach(c *gin.Context) {
	h.wsHandler.ServeHTTP(c.Writer, c.Request)
}

// Publish handles POST /api/console.
func (h *ConsoleHandler) Publish(c *gin.Context) {
	var req PublishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body: "+err.Error())
		return
	}
	h.wsHandler.Hub().Publish(req.Text)
	c.Status(http.StatusAccepted)
}

// Health handles GET /health.
func (h *ConsoleHandler) Health(c *gin.Context) {
	hub := h.wsHandler.Hub()
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"clients":   hub.ClientCount(),
		"listening": hub.HasClients(),
	})
}

// RegisterRoutes registers the push endpoint and health check on r and the
// publish route on api.
func (h *ConsoleHandler) RegisterRoutes(r gin.IRoutes, api *gin.RouterGroup) {
	r.GET("/health", h.Health)
	r.GET(feed.ConsolePath, h.Attach)
	api.POST("/console", h.Publish)
}
