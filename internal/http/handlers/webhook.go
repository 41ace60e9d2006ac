package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ewilhelmy-resolve/rita-webhook-simulator/internal/domain"
	"github.com/ewilhelmy-resolve/rita-webhook-simulator/internal/http/response"
	"github.com/ewilhelmy-resolve/rita-webhook-simulator/internal/services"
)

type WebhookHandler struct {
	dispatcher *services.Dispatcher
	secret     string
}

func NewWebhookHandler(dispatcher *services.Dispatcher, secret string) *WebhookHandler {
	return &WebhookHandler{dispatcher: dispatcher, secret: secret}
}

// POST /webhook
func (h *WebhookHandler) PostWebhook(c *gin.Context) {
	auth := strings.TrimSpace(c.GetHeader("Authorization"))
	token := strings.TrimPrefix(auth, "Bearer ")
	if h.secret == "" || token == auth || token != h.secret {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized",
			fmt.Errorf("invalid webhook token"))
		return
	}
	h.handle(c, "")
}

// POST /api/Webhooks/postEvent/:tenantId
//
// Tenant-scoped variant for embedded chat. Trusts the path-based tenant
// binding instead of the shared secret; tenant_id defaults from the path.
func (h *WebhookHandler) PostTenantEvent(c *gin.Context) {
	h.handle(c, c.Param("tenantId"))
}

func (h *WebhookHandler) handle(c *gin.Context, tenantFallback string) {
	var p domain.WebhookPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_payload", err)
		return
	}
	if err := p.Validate(tenantFallback); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_payload", err)
		return
	}

	body, apiErr := h.dispatcher.Dispatch(c.Request.Context(), p)
	if apiErr != nil {
		response.RespondError(c, apiErr.Status, apiErr.Code, apiErr)
		return
	}
	response.RespondOK(c, body)
}
