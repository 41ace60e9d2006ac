package broker

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/ewilhelmy-resolve/rita-webhook-simulator/internal/platform/logger"
)

// Publisher pushes one JSON message onto a named queue. Implementations are
// safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, queue string, body any) error
	Close() error
}

// New selects a publisher from the broker URL scheme: amqp/amqps for
// RabbitMQ, redis/rediss for a pub/sub bus used in local development.
func New(log *logger.Logger, brokerURL string) (Publisher, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	brokerURL = strings.TrimSpace(brokerURL)
	if brokerURL == "" {
		return nil, fmt.Errorf("missing BROKER_URL")
	}
	u, err := url.Parse(brokerURL)
	if err != nil {
		return nil, fmt.Errorf("parse broker url: %w", err)
	}
	switch u.Scheme {
	case "amqp", "amqps":
		return NewAMQP(log, brokerURL)
	case "redis", "rediss":
		return NewRedis(log, brokerURL)
	default:
		return nil, fmt.Errorf("unsupported broker scheme %q", u.Scheme)
	}
}
