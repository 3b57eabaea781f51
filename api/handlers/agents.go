package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/siebog/console/internal/logger"
	"github.com/siebog/console/internal/model"
	"github.com/siebog/console/internal/repository"
	"github.com/siebog/console/internal/ws"
)

// AgentHandler serves the running-agent registry and announces changes on
// the console.
type AgentHandler struct {
	repo *repository.AgentRepository
	hub  *ws.Hub
	log  *logger.Entry
	now  func() time.Time
}

// NewAgentHandler creates a new AgentHandler.
func NewAgentHandler(repo *repository.AgentRepository, hub *ws.Hub) *AgentHandler {
	return &AgentHandler{
		repo: repo,
		hub:  hub,
		log:  logger.Named("agents"),
		now:  time.Now,
	}
}

// Running handles GET /api/agents/running.
func (h *AgentHandler) Running(c *gin.Context) {
	agents, err := h.repo.List(c.Request.Context())
	if err != nil {
		sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list agents: "+err.Error())
		return
	}
	c.JSON(http.StatusOK, agents)
}

// Register handles POST /api/agents.
func (h *AgentHandler) Register(c *gin.Context) {
	var req model.RegisterAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body: "+err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	agent := &model.Agent{
		Name:      strings.TrimSpace(req.Name),
		Host:      req.Host,
		Class:     req.Class,
		StartedAt: h.now(),
	}
	exists, err := h.repo.Exists(c.Request.Context(), agent.Name, agent.Host)
	if err != nil {
		sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to register agent: "+err.Error())
		return
	}
	if exists {
		sendError(c, http.StatusConflict, "AGENT_EXISTS", "Agent "+agent.AID()+" is already running")
		return
	}
	// A concurrent register can still hit the unique constraint.
	if err := h.repo.Create(c.Request.Context(), agent); err != nil {
		if errors.Is(err, model.ErrAgentExists) {
			sendError(c, http.StatusConflict, "AGENT_EXISTS", "Agent "+agent.AID()+" is already running")
			return
		}
		sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to register agent: "+err.Error())
		return
	}

	h.log.WithField("class", agent.Class).Debugf("registered %s", agent.AID())
	h.hub.Publishf("%s registered", agent.AID())
	c.JSON(http.StatusCreated, agent)
}

// Deregister handles DELETE /api/agents/:name. The optional host query
// parameter selects the agent's host.
func (h *AgentHandler) Deregister(c *gin.Context) {
	name := c.Param("name")
	host := c.Query("host")

	if err := h.repo.Delete(c.Request.Context(), name, host); err != nil {
		if errors.Is(err, model.ErrAgentNotFound) {
			sendError(c, http.StatusNotFound, "AGENT_NOT_FOUND", "Agent "+name+" not found")
			return
		}
		sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to deregister agent: "+err.Error())
		return
	}

	aid := model.Agent{Name: name, Host: host}.AID()
	h.log.Debugf("deregistered %s", aid)
	h.hub.Publishf("%s deregistered", aid)
	c.Status(http.StatusNoContent)
}

// RegisterRoutes registers the agent routes on a Gin router group.
func (h *AgentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/agents/running", h.Running)
	rg.POST("/agents", h.Register)
	rg.DELETE("/agents/:name", h.Deregister)
}
