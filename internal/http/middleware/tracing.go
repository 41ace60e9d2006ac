package middleware

import (
	"sync"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

var propagatorOnce sync.Once

// Tracing installs otel gin instrumentation. Inbound W3C traceparent and
// baggage headers are extracted into the request context; AttachTraceContext
// must run after this middleware to see the span context.
func Tracing(serviceName string) gin.HandlerFunc {
	propagatorOnce.Do(func() {
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))
	})
	return otelgin.Middleware(serviceName)
}
