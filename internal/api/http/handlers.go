// Package http contains the REST handlers for the IPC daemon.
package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	clip "github.com/happy-forks/ipcd/internal/clipboard"
	"github.com/happy-forks/ipcd/internal/ipc"
	"github.com/happy-forks/ipcd/internal/monitoring"
	"github.com/happy-forks/ipcd/internal/service"
	"github.com/happy-forks/ipcd/internal/types"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	registry *service.Registry
	manager  *ipc.Manager
	store    *clip.Store
	metrics  *monitoring.Metrics
	started  time.Time
}

// NewHandlers creates a new handler set
func NewHandlers(registry *service.Registry, manager *ipc.Manager, store *clip.Store) *Handlers {
	return &Handlers{
		registry: registry,
		manager:  manager,
		store:    store,
		started:  time.Now(),
	}
}

// WithMetrics attaches prometheus counters for service calls.
func (h *Handlers) WithMetrics(metrics *monitoring.Metrics) *Handlers {
	h.metrics = metrics
	return h
}

// Root handles the service banner
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "ipcd",
		"version": "0.1.0",
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":           "healthy",
		"uptime_seconds":   int(time.Since(h.started).Seconds()),
		"service_registry": h.registry.Stats(),
		"ipc":              h.manager.Stats(),
		"clipboard":        h.store.Stats(),
	})
}

// ListServices lists all available services
func (h *Handlers) ListServices(c *gin.Context) {
	var category *types.Category
	if categoryStr := c.Query("category"); categoryStr != "" {
		cat := types.Category(categoryStr)
		category = &cat
	}

	services := h.registry.List(category)
	stats := h.registry.Stats()

	c.JSON(http.StatusOK, gin.H{
		"services": services,
		"stats":    stats,
	})
}

// ExecuteService executes a service tool
func (h *Handlers) ExecuteService(c *gin.Context) {
	var req types.ExecuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var ctx *types.Context
	if req.AppID != nil {
		ctx = &types.Context{AppID: req.AppID}
	}

	var timer *monitoring.Timer
	if h.metrics != nil {
		serviceID, toolName, _ := strings.Cut(req.ToolID, ".")
		timer = monitoring.NewTimer(h.metrics, serviceID, toolName)
	}

	result, err := h.registry.Execute(c.Request.Context(), req.ToolID, req.Params, ctx)
	if timer != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		timer.Stop(status)
	}
	if err != nil {
		// Failed tool calls still carry a structured result; would-block
		// and validation failures are not server errors.
		if result != nil {
			c.JSON(http.StatusOK, result)
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// IPCStats reports live handle counts
func (h *Handlers) IPCStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.manager.Stats())
}

// ClipboardStats reports clipboard usage
func (h *Handlers) ClipboardStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Stats())
}
