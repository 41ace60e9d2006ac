package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/ewilhelmy-resolve/rita-webhook-simulator/internal/platform/httpx"
	"github.com/ewilhelmy-resolve/rita-webhook-simulator/internal/platform/logger"
)

// AMQPPublisher publishes persistent messages to durable queues on the
// default exchange. A failed dial at startup does not fail construction; a
// background reconnect loop keeps trying while Publish returns errors.
type AMQPPublisher struct {
	log *logger.Logger
	url string

	mu       sync.Mutex
	conn     *amqp.Connection
	ch       *amqp.Channel
	declared map[string]bool
	closed   bool
}

func NewAMQP(log *logger.Logger, brokerURL string) (*AMQPPublisher, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	p := &AMQPPublisher{
		log:      log.With("service", "AMQPPublisher"),
		url:      brokerURL,
		declared: map[string]bool{},
	}
	if err := p.connect(); err != nil {
		p.log.Warn("broker unreachable at startup, reconnecting in background", "error", err)
		go p.Reconnect()
		return p, nil
	}
	return p, nil
}

func (p *AMQPPublisher) connect() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("amqp channel: %w", err)
	}

	p.mu.Lock()
	p.conn = conn
	p.ch = ch
	p.declared = map[string]bool{}
	p.mu.Unlock()

	go p.watch(conn)
	p.log.Info("broker connected")
	return nil
}

func (p *AMQPPublisher) watch(conn *amqp.Connection) {
	errCh := conn.NotifyClose(make(chan *amqp.Error, 1))
	amqpErr, ok := <-errCh
	if !ok {
		return
	}
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return
	}
	p.log.Warn("broker connection lost", "error", amqpErr.Error())
	p.Reconnect()
}

// Reconnect redials the broker with exponential backoff until it succeeds
// or the publisher is closed.
func (p *AMQPPublisher) Reconnect() {
	backoff := 1 * time.Second
	for {
		p.mu.Lock()
		closed := p.closed
		p.mu.Unlock()
		if closed {
			return
		}
		err := p.connect()
		if err == nil {
			return
		}
		p.log.Warn("broker reconnect failed", "error", err, "retry_in", backoff.String())
		time.Sleep(httpx.JitterSleep(backoff))
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

func (p *AMQPPublisher) Publish(ctx context.Context, queue string, body any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch == nil {
		return fmt.Errorf("broker not connected")
	}
	if !p.declared[queue] {
		if _, err := p.ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %q: %w", queue, err)
		}
		p.declared[queue] = true
	}
	return p.ch.PublishWithContext(ctx, "", queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         raw,
	})
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		err := p.conn.Close()
		p.conn = nil
		return err
	}
	return nil
}
