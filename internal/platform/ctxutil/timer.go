package ctxutil

import (
	"context"
	"time"

	"github.com/ewilhelmy-resolve/rita-webhook-simulator/internal/platform/logger"
)

// Timer logs how long a named operation took, tagged with the correlation
// id from the context. Usage:
//
//	done := ctxutil.StartTimer(ctx, log, "keycloak.create_user")
//	defer done()
func StartTimer(ctx context.Context, log *logger.Logger, op string) func() {
	start := time.Now()
	return func() {
		if log == nil {
			return
		}
		fields := []interface{}{
			"op", op,
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if cid := CorrelationID(ctx); cid != "" {
			fields = append(fields, "request_id", cid)
		}
		log.Debug("operation timed", fields...)
	}
}
