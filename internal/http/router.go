package http

import (
	"github.com/gin-gonic/gin"

	httpH "github.com/ewilhelmy-resolve/rita-webhook-simulator/internal/http/handlers"
	httpMW "github.com/ewilhelmy-resolve/rita-webhook-simulator/internal/http/middleware"
	"github.com/ewilhelmy-resolve/rita-webhook-simulator/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	WebhookHandler *httpH.WebhookHandler
	HealthHandler  *httpH.HealthHandler
	FilesHandler   *httpH.FilesHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpMW.Tracing("rita-webhook-simulator"))
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS())

	if cfg.HealthHandler != nil {
		r.GET("/health", cfg.HealthHandler.Health)
		r.GET("/config", cfg.HealthHandler.Config)
	}

	if cfg.WebhookHandler != nil {
		r.POST("/webhook", cfg.WebhookHandler.PostWebhook)
		r.POST("/api/Webhooks/postEvent/:tenantId", cfg.WebhookHandler.PostTenantEvent)
	}

	if cfg.FilesHandler != nil {
		r.GET("/blobs", cfg.FilesHandler.ListBlobs)
		r.GET("/blobs/:blobId", cfg.FilesHandler.GetBlob)
		r.GET("/api/files/:documentId/metadata", cfg.FilesHandler.GetFileMetadata)
		r.GET("/api/files/:documentId/download", cfg.FilesHandler.DownloadFile)
	}

	return r
}
