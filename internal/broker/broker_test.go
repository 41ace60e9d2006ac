package broker

import (
	"context"
	"testing"

	"github.com/ewilhelmy-resolve/rita-webhook-simulator/internal/platform/logger"
)

func testLog(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

func TestNewRejectsUnsupportedScheme(t *testing.T) {
	if _, err := New(testLog(t), "kafka://localhost:9092"); err == nil {
		t.Fatalf("expected error for unsupported scheme")
	}
	if _, err := New(testLog(t), ""); err == nil {
		t.Fatalf("expected error for empty broker url")
	}
}

func TestNewRedisSurvivesUnreachableBroker(t *testing.T) {
	// Port 1 refuses immediately; construction must still succeed so the
	// process can start before the broker does.
	pub, err := NewRedis(testLog(t), "redis://127.0.0.1:1/0")
	if err != nil {
		t.Fatalf("NewRedis with unreachable broker: %v", err)
	}
	defer pub.Close()

	if err := pub.Publish(context.Background(), "chat.responses", map[string]any{"k": "v"}); err == nil {
		t.Fatalf("Publish should fail while the broker is down")
	}
}

func TestNewRedisRejectsBadURL(t *testing.T) {
	if _, err := NewRedis(testLog(t), "redis://[::bad"); err == nil {
		t.Fatalf("expected parse error")
	}
}
