package simulator

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ewilhelmy-resolve/rita-webhook-simulator/internal/broker"
	"github.com/ewilhelmy-resolve/rita-webhook-simulator/internal/domain"
	"github.com/ewilhelmy-resolve/rita-webhook-simulator/internal/platform/ctxutil"
	"github.com/ewilhelmy-resolve/rita-webhook-simulator/internal/platform/logger"
)

// partStagger spaces successive publishes of one multi-part reply so the
// consumer observes them in generation order even if the broker reorders.
const partStagger = 100 * time.Millisecond

// Pipeline converts generated reply parts into wire messages and publishes
// them onto the response queue.
type Pipeline struct {
	log       *logger.Logger
	pub       broker.Publisher
	gen       *Generator
	queue     string
	baseDelay time.Duration
	stagger   time.Duration
}

func NewPipeline(log *logger.Logger, pub broker.Publisher, gen *Generator, queue string, baseDelay time.Duration) *Pipeline {
	return &Pipeline{
		log:       log.With("service", "DeliveryPipeline"),
		pub:       pub,
		gen:       gen,
		queue:     queue,
		baseDelay: baseDelay,
		stagger:   partStagger,
	}
}

// BuildResponses converts ordered parts into wire messages sharing one
// response group id. Text parts keep their body in response; every other
// kind moves its payload into metadata under the part's tag. Exactly the
// last part carries metadata.turn_complete = true.
func BuildResponses(p domain.WebhookPayload, parts []domain.MessagePart, groupID string) []domain.GeneratedResponse {
	out := make([]domain.GeneratedResponse, 0, len(parts))
	for i, part := range parts {
		meta := map[string]any{
			"turn_complete": i == len(parts)-1,
		}
		resp := domain.GeneratedResponse{
			MessageID:       p.MessageID,
			ConversationID:  p.ConversationID,
			TenantID:        p.TenantID,
			UserID:          p.UserID,
			Metadata:        meta,
			ResponseGroupID: groupID,
		}
		switch part.Kind {
		case domain.PartText:
			resp.Response = part.Text
		case domain.PartReasoning:
			meta["reasoning"] = part.Reasoning
		case domain.PartSources:
			meta["sources"] = part.Sources
		case domain.PartTasks:
			meta["tasks"] = part.Tasks
		}
		if part.CitationVariant != "" {
			meta["citation_variant"] = part.CitationVariant
		}
		out = append(out, resp)
	}
	return out
}

// Deliver waits the scenario's base response delay, then publishes every
// part. A single-part reply is not delayed beyond the base delay; multi-part
// replies space publishes by a strictly increasing per-part stagger.
func (d *Pipeline) Deliver(ctx context.Context, p domain.WebhookPayload, parts []domain.MessagePart) {
	if len(parts) == 0 {
		return
	}
	if d.baseDelay > 0 {
		time.Sleep(d.baseDelay)
	}
	if err := d.publishAll(ctx, p, parts); err != nil {
		d.log.Error("reply delivery failed, publishing failure reply",
			"request_id", ctxutil.CorrelationID(ctx),
			"conversation_id", p.ConversationID,
			"queue", d.queue,
			"error", err,
		)
		// Best effort: the caller must hear something rather than silence.
		if err := d.publishAll(ctx, p, d.gen.FailureReply()); err != nil {
			d.log.Error("failure reply delivery also failed",
				"request_id", ctxutil.CorrelationID(ctx),
				"conversation_id", p.ConversationID,
				"error", err,
			)
		}
	}
}

func (d *Pipeline) publishAll(ctx context.Context, p domain.WebhookPayload, parts []domain.MessagePart) error {
	groupID := uuid.New().String()
	responses := BuildResponses(p, parts, groupID)
	for i, resp := range responses {
		if i > 0 {
			time.Sleep(d.stagger)
		}
		if err := d.pub.Publish(ctx, d.queue, resp); err != nil {
			return err
		}
	}
	d.log.Info("reply delivered",
		"request_id", ctxutil.CorrelationID(ctx),
		"conversation_id", p.ConversationID,
		"parts", len(responses),
		"response_group_id", groupID,
	)
	return nil
}
