package domain

import (
	"fmt"
	"strings"
)

// Webhook sources and actions. A payload is routed by its (source, action)
// pair; everything else on the struct is variant-specific.
const (
	SourceChat        = "rita-chat"
	SourceDocuments   = "rita-documents"
	SourceUsers       = "rita-users"
	SourceDataSources = "rita-data-sources"
	SourceTickets     = "rita-tickets"
	SourceEmail       = "rita-email"
)

const (
	ActionMessageCreated      = "message_created"
	ActionDocumentUploaded    = "document_uploaded"
	ActionDocumentDeleted     = "document_deleted"
	ActionUserSignup          = "user_signup"
	ActionSendInvitation      = "send_invitation"
	ActionAcceptInvitation    = "accept_invitation"
	ActionDeleteUser          = "delete_user"
	ActionVerifyCredentials   = "verify_credentials"
	ActionTriggerSync         = "trigger_sync"
	ActionCancelSync          = "cancel_sync"
	ActionSyncTickets         = "sync_tickets"
	ActionSendDelegationEmail = "send_delegation_email"
)

// WebhookPayload is the single decode target for every webhook variant.
// Source and Action select the variant; TenantID is required on all of them
// (the embeddable chat route may fill it from the URL path).
type WebhookPayload struct {
	Source   string `json:"source"`
	Action   string `json:"action"`
	TenantID string `json:"tenant_id"`

	// Chat message fields.
	CustomerMessage string `json:"customer_message,omitempty"`
	ConversationID  string `json:"conversation_id,omitempty"`
	MessageID       string `json:"message_id,omitempty"`
	UserID          string `json:"user_id,omitempty"`
	Scenario        string `json:"scenario,omitempty"`

	// Document fields.
	DocumentIDs []string `json:"document_ids,omitempty"`
	DocumentID  string   `json:"document_id,omitempty"`
	BlobID      string   `json:"blob_id,omitempty"`
	FileName    string   `json:"file_name,omitempty"`

	// Account lifecycle fields.
	Email             string `json:"email,omitempty"`
	Password          string `json:"password,omitempty"`
	FirstName         string `json:"first_name,omitempty"`
	LastName          string `json:"last_name,omitempty"`
	Company           string `json:"company,omitempty"`
	PendingUserID     string `json:"pending_user_id,omitempty"`
	VerificationToken string `json:"verification_token,omitempty"`
	InvitationLink    string `json:"invitation_link,omitempty"`
	InvitedByName     string `json:"invited_by_name,omitempty"`
	ExternalUserID    string `json:"external_user_id,omitempty"`

	// Data source fields.
	ConnectionID  string `json:"connection_id,omitempty"`
	ConnectorType string `json:"connector_type,omitempty"`
	SyncEstimate  int    `json:"sync_estimate,omitempty"`

	// Ticket demo fields.
	TicketCount int `json:"ticket_count,omitempty"`

	// Delegation email fields.
	RecipientEmail string `json:"recipient_email,omitempty"`
	RecipientName  string `json:"recipient_name,omitempty"`
	DelegatorName  string `json:"delegator_name,omitempty"`
	TaskSummary    string `json:"task_summary,omitempty"`
}

// Validate checks the shape every variant must satisfy. When
// tenantFallback is non-empty it fills a missing TenantID, which is how the
// tenant-scoped embeddable route binds tenancy from the URL path.
func (p *WebhookPayload) Validate(tenantFallback string) error {
	if strings.TrimSpace(p.Source) == "" {
		return fmt.Errorf("source is required")
	}
	if strings.TrimSpace(p.Action) == "" {
		return fmt.Errorf("action is required")
	}
	if strings.TrimSpace(p.TenantID) == "" {
		if strings.TrimSpace(tenantFallback) == "" {
			return fmt.Errorf("tenant_id is required")
		}
		p.TenantID = strings.TrimSpace(tenantFallback)
	}
	return nil
}

// Route is the (source, action) pair used for dispatch.
type Route struct {
	Source string
	Action string
}

func (p *WebhookPayload) Route() Route {
	return Route{Source: p.Source, Action: p.Action}
}

func (r Route) String() string {
	return r.Source + "/" + r.Action
}
