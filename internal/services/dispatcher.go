package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/ewilhelmy-resolve/rita-webhook-simulator/internal/domain"
	"github.com/ewilhelmy-resolve/rita-webhook-simulator/internal/platform/apierr"
	"github.com/ewilhelmy-resolve/rita-webhook-simulator/internal/platform/ctxutil"
	"github.com/ewilhelmy-resolve/rita-webhook-simulator/internal/platform/logger"
	"github.com/ewilhelmy-resolve/rita-webhook-simulator/internal/simulator"
)

// Dispatcher routes validated webhook payloads by (source, action). It is
// the only component that knows the full payload taxonomy. Asynchronous
// flows are acknowledged immediately and performed on their own goroutine;
// account lifecycle flows are awaited before responding.
type Dispatcher struct {
	log      *logger.Logger
	gen      *simulator.Generator
	pipeline *simulator.Pipeline
	docs     *simulator.DocumentProcessor
	sync     *simulator.SyncSimulator
	accounts *AccountService
	tickets  simulator.TicketSeeder
}

func NewDispatcher(
	log *logger.Logger,
	gen *simulator.Generator,
	pipeline *simulator.Pipeline,
	docs *simulator.DocumentProcessor,
	syncSim *simulator.SyncSimulator,
	accounts *AccountService,
	tickets simulator.TicketSeeder,
) *Dispatcher {
	return &Dispatcher{
		log:      log.With("service", "Dispatcher"),
		gen:      gen,
		pipeline: pipeline,
		docs:     docs,
		sync:     syncSim,
		accounts: accounts,
		tickets:  tickets,
	}
}

func badRequest(code string, format string, args ...any) *apierr.Error {
	return apierr.New(http.StatusBadRequest, code, fmt.Errorf(format, args...))
}

// Dispatch handles one validated payload and returns the response body for
// the webhook acknowledgment. Validation and auth errors come back as
// *apierr.Error; soft failures of recoverable side effects come back as a
// 200 body with success=false.
func (d *Dispatcher) Dispatch(ctx context.Context, p domain.WebhookPayload) (map[string]any, *apierr.Error) {
	route := p.Route()
	d.log.Info("webhook received",
		"request_id", ctxutil.CorrelationID(ctx),
		"source", p.Source,
		"action", p.Action,
		"tenant_id", p.TenantID,
	)

	switch route {
	case domain.Route{Source: domain.SourceChat, Action: domain.ActionMessageCreated}:
		return d.messageCreated(ctx, p)

	case domain.Route{Source: domain.SourceDocuments, Action: domain.ActionDocumentUploaded}:
		if len(p.DocumentIDs) == 0 && p.DocumentID == "" {
			return nil, badRequest("missing_document_ids", "document_ids is required")
		}
		go d.docs.ProcessUpload(ctxutil.Detach(ctx), p)
		return accepted(), nil

	case domain.Route{Source: domain.SourceDocuments, Action: domain.ActionDocumentDeleted}:
		if len(p.DocumentIDs) == 0 && p.DocumentID == "" {
			return nil, badRequest("missing_document_ids", "document_ids is required")
		}
		go d.docs.ProcessDelete(ctxutil.Detach(ctx), p)
		return accepted(), nil

	case domain.Route{Source: domain.SourceUsers, Action: domain.ActionUserSignup}:
		if strings.TrimSpace(p.Email) == "" || strings.TrimSpace(p.Password) == "" {
			return nil, badRequest("missing_credentials", "email and password are required")
		}
		id, err := d.accounts.Signup(ctx, p)
		return softFail(map[string]any{"external_user_id": id}, err), nil

	case domain.Route{Source: domain.SourceUsers, Action: domain.ActionSendInvitation}:
		if strings.TrimSpace(p.Email) == "" {
			return nil, badRequest("missing_email", "email is required")
		}
		err := d.accounts.SendInvitation(ctx, p)
		return softFail(nil, err), nil

	case domain.Route{Source: domain.SourceUsers, Action: domain.ActionAcceptInvitation}:
		if strings.TrimSpace(p.Email) == "" || strings.TrimSpace(p.Password) == "" {
			return nil, badRequest("missing_credentials", "email and password are required")
		}
		id, err := d.accounts.AcceptInvitation(ctx, p)
		return softFail(map[string]any{"external_user_id": id}, err), nil

	case domain.Route{Source: domain.SourceUsers, Action: domain.ActionDeleteUser}:
		if strings.TrimSpace(p.Email) == "" && strings.TrimSpace(p.ExternalUserID) == "" {
			return nil, badRequest("missing_identifier", "email or external_user_id is required")
		}
		if err := d.accounts.DeleteUser(ctx, p); err != nil {
			// Deletion failures are not locally recoverable.
			return nil, apierr.New(http.StatusInternalServerError, "delete_user_failed", err)
		}
		return map[string]any{"success": true}, nil

	case domain.Route{Source: domain.SourceDataSources, Action: domain.ActionVerifyCredentials}:
		if strings.TrimSpace(p.ConnectionID) == "" {
			return nil, badRequest("missing_connection_id", "connection_id is required")
		}
		go d.sync.Verify(ctxutil.Detach(ctx), p)
		return accepted(), nil

	case domain.Route{Source: domain.SourceDataSources, Action: domain.ActionTriggerSync}:
		if strings.TrimSpace(p.ConnectionID) == "" {
			return nil, badRequest("missing_connection_id", "connection_id is required")
		}
		go d.sync.Run(ctxutil.Detach(ctx), p)
		return accepted(), nil

	case domain.Route{Source: domain.SourceDataSources, Action: domain.ActionCancelSync}:
		if strings.TrimSpace(p.ConnectionID) == "" {
			return nil, badRequest("missing_connection_id", "connection_id is required")
		}
		d.sync.Registry().Cancel(p.ConnectionID)
		return map[string]any{"status": "cancelled", "connection_id": p.ConnectionID}, nil

	case domain.Route{Source: domain.SourceTickets, Action: domain.ActionSyncTickets}:
		if d.tickets == nil {
			return nil, apierr.New(http.StatusInternalServerError, "ticket_store_unavailable",
				fmt.Errorf("ticket store not configured"))
		}
		inserted, err := d.tickets.SeedDemoTickets(ctx, p.TenantID, p.TicketCount)
		if err != nil {
			return nil, apierr.New(http.StatusInternalServerError, "seed_tickets_failed", err)
		}
		return map[string]any{"success": true, "inserted": inserted}, nil

	case domain.Route{Source: domain.SourceEmail, Action: domain.ActionSendDelegationEmail}:
		if strings.TrimSpace(p.RecipientEmail) == "" {
			return nil, badRequest("missing_recipient", "recipient_email is required")
		}
		err := d.accounts.SendDelegationEmail(ctx, p)
		return softFail(nil, err), nil
	}

	return nil, badRequest("unsupported_event", "unsupported source/action pair %q", route.String())
}

func (d *Dispatcher) messageCreated(ctx context.Context, p domain.WebhookPayload) (map[string]any, *apierr.Error) {
	if strings.TrimSpace(p.ConversationID) == "" {
		return nil, badRequest("missing_conversation_id", "conversation_id is required")
	}
	if strings.TrimSpace(p.MessageID) == "" {
		return nil, badRequest("missing_message_id", "message_id is required")
	}

	parts := d.gen.Generate(p)
	if len(parts) == 0 {
		return nil, badRequest("empty_message", "no reply could be generated")
	}
	go d.pipeline.Deliver(ctxutil.Detach(ctx), p, parts)
	return accepted(), nil
}

func accepted() map[string]any {
	return map[string]any{"status": "accepted"}
}

// softFail wraps recoverable side-effect outcomes: failures surface in the
// 200 body so the caller's own flow is not blocked by a degraded simulator.
func softFail(extra map[string]any, err error) map[string]any {
	body := map[string]any{"success": err == nil}
	if err != nil {
		body["error"] = err.Error()
		return body
	}
	for k, v := range extra {
		body[k] = v
	}
	return body
}
