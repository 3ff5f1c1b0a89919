// Package handlers exposes the orchestration service over HTTP.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aditya1513/casting-ai-sub015/internal/common/logger"
	"github.com/aditya1513/casting-ai-sub015/internal/orchestrator/dto"
	"github.com/aditya1513/casting-ai-sub015/internal/trigger"
	v1 "github.com/aditya1513/casting-ai-sub015/pkg/api/v1"
)

// Service is the orchestration surface the handlers expose.
type Service interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Running() bool
	GetAgentStatus(id v1.AgentID) (v1.AgentStatus, bool)
	GetAllStatuses() map[v1.AgentID]v1.AgentStatus
	GetAgentMetrics(id v1.AgentID) (v1.AgentMetrics, bool)
	GetAllMetrics() map[v1.AgentID]v1.AgentMetrics
	GetHealthSummary() v1.HealthSummary
	AssignTask(ctx context.Context, id v1.AgentID, task v1.Task) v1.CommandResult
	ExecuteManualTrigger(ctx context.Context, name string, params map[string]interface{}) (string, error)
	Triggers() []v1.AutomationTrigger
	EnableTrigger(id string) bool
	DisableTrigger(id string) bool
	LatestReport() *v1.ProgressReport
}

// Handlers contains the HTTP handlers for the orchestration API.
type Handlers struct {
	service Service
	logger  *logger.Logger
}

// NewHandlers creates the handler set.
func NewHandlers(svc Service, log *logger.Logger) *Handlers {
	return &Handlers{
		service: svc,
		logger:  log.WithFields(zap.String("component", "orchestrator-handlers")),
	}
}

// RegisterRoutes mounts the orchestration API under /api/v1.
func RegisterRoutes(router *gin.Engine, svc Service, log *logger.Logger) {
	handlers := NewHandlers(svc, log)
	handlers.registerHTTP(router)
}

func (h *Handlers) registerHTTP(router *gin.Engine) {
	api := router.Group("/api/v1")
	api.GET("/system/health", h.httpSystemHealth)
	api.POST("/system/start", h.httpStartSystem)
	api.POST("/system/stop", h.httpStopSystem)
	api.GET("/agents", h.httpListAgents)
	api.GET("/status", h.httpGetAllStatuses)
	api.GET("/agents/:id/status", h.httpGetAgentStatus)
	api.GET("/metrics", h.httpGetAllMetrics)
	api.GET("/agents/:id/metrics", h.httpGetAgentMetrics)
	api.POST("/agents/:id/tasks", h.httpAssignTask)
	api.GET("/report", h.httpGetReport)
	api.GET("/triggers", h.httpListTriggers)
	api.POST("/triggers/:name/execute", h.httpExecuteTrigger)
	api.POST("/triggers/:name/enable", h.httpEnableTrigger)
	api.POST("/triggers/:name/disable", h.httpDisableTrigger)
}

func (h *Handlers) httpSystemHealth(c *gin.Context) {
	c.JSON(http.StatusOK, dto.SystemHealthResponse{
		Running: h.service.Running(),
		Summary: h.service.GetHealthSummary(),
	})
}

func (h *Handlers) httpStartSystem(c *gin.Context) {
	if err := h.service.Start(c.Request.Context()); err != nil {
		h.logger.Error("failed to start orchestration", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.SystemHealthResponse{
		Running: h.service.Running(),
		Summary: h.service.GetHealthSummary(),
	})
}

func (h *Handlers) httpStopSystem(c *gin.Context) {
	if err := h.service.Stop(c.Request.Context()); err != nil {
		h.logger.Error("failed to stop orchestration", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.SystemHealthResponse{
		Running: h.service.Running(),
		Summary: h.service.GetHealthSummary(),
	})
}

func (h *Handlers) httpListAgents(c *gin.Context) {
	agents := v1.AllAgentIDs()
	c.JSON(http.StatusOK, dto.AgentListResponse{
		Agents: agents,
		Total:  len(agents),
	})
}

func (h *Handlers) httpGetAllStatuses(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.GetAllStatuses())
}

func (h *Handlers) httpGetAgentStatus(c *gin.Context) {
	id := v1.AgentID(c.Param("id"))
	status, ok := h.service.GetAgentStatus(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("unknown agent %q", c.Param("id"))})
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *Handlers) httpGetAllMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.GetAllMetrics())
}

func (h *Handlers) httpGetAgentMetrics(c *gin.Context) {
	id := v1.AgentID(c.Param("id"))
	metrics, ok := h.service.GetAgentMetrics(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("unknown agent %q", c.Param("id"))})
		return
	}
	c.JSON(http.StatusOK, metrics)
}

func (h *Handlers) httpAssignTask(c *gin.Context) {
	id := v1.AgentID(c.Param("id"))
	if !id.Valid() {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("unknown agent %q", c.Param("id"))})
		return
	}

	var body dto.AssignTaskRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if err := body.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result := h.service.AssignTask(c.Request.Context(), id, v1.Task{
		Name:     body.Name,
		Priority: body.Priority,
		Payload:  body.Payload,
	})
	if !result.Success {
		c.JSON(http.StatusUnprocessableEntity, result)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handlers) httpGetReport(c *gin.Context) {
	report := h.service.LatestReport()
	if report == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no report generated yet"})
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *Handlers) httpListTriggers(c *gin.Context) {
	triggers := h.service.Triggers()
	c.JSON(http.StatusOK, dto.TriggerListResponse{
		Triggers: triggers,
		Total:    len(triggers),
	})
}

func (h *Handlers) httpExecuteTrigger(c *gin.Context) {
	name := c.Param("name")

	var body dto.ExecuteTriggerRequest
	if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	message, err := h.service.ExecuteManualTrigger(c.Request.Context(), name, body.Params)
	if err != nil {
		switch {
		case errors.Is(err, trigger.ErrTriggerNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, trigger.ErrTriggerDisabled):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		case errors.Is(err, trigger.ErrNotRunning):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		default:
			h.logger.Error("failed to execute trigger",
				zap.String("trigger", name),
				zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, v1.CommandResult{Success: true, Message: message})
}

func (h *Handlers) httpEnableTrigger(c *gin.Context) {
	tr, ok := h.resolveTrigger(c.Param("name"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("unknown trigger %q", c.Param("name"))})
		return
	}
	h.service.EnableTrigger(tr.ID)
	c.JSON(http.StatusOK, v1.CommandResult{
		Success: true,
		Message: fmt.Sprintf("trigger %q enabled", tr.Name),
	})
}

func (h *Handlers) httpDisableTrigger(c *gin.Context) {
	tr, ok := h.resolveTrigger(c.Param("name"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("unknown trigger %q", c.Param("name"))})
		return
	}
	h.service.DisableTrigger(tr.ID)
	c.JSON(http.StatusOK, v1.CommandResult{
		Success: true,
		Message: fmt.Sprintf("trigger %q disabled", tr.Name),
	})
}

// resolveTrigger finds a catalog entry by id or name. Operators see names;
// listings expose ids; both address the same trigger.
func (h *Handlers) resolveTrigger(key string) (v1.AutomationTrigger, bool) {
	for _, tr := range h.service.Triggers() {
		if tr.ID == key || tr.Name == key {
			return tr, true
		}
	}
	return v1.AutomationTrigger{}, false
}
