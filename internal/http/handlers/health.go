package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/ewilhelmy-resolve/rita-webhook-simulator/internal/http/response"
	"github.com/ewilhelmy-resolve/rita-webhook-simulator/internal/simulator"
)

// HealthHandler serves the health and config endpoints. The config echo is
// built once at wiring time with secrets already stripped.
type HealthHandler struct {
	configEcho map[string]any
}

func NewHealthHandler(configEcho map[string]any) *HealthHandler {
	return &HealthHandler{configEcho: configEcho}
}

// GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	response.RespondOK(c, gin.H{
		"status": "ok",
		"config": h.configEcho,
	})
}

// GET /config
func (h *HealthHandler) Config(c *gin.Context) {
	response.RespondOK(c, gin.H{
		"config":    h.configEcho,
		"scenarios": simulator.Scenarios(),
	})
}
