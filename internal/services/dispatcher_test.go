package services

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ewilhelmy-resolve/rita-webhook-simulator/internal/domain"
	"github.com/ewilhelmy-resolve/rita-webhook-simulator/internal/platform/keycloak"
	"github.com/ewilhelmy-resolve/rita-webhook-simulator/internal/platform/logger"
	"github.com/ewilhelmy-resolve/rita-webhook-simulator/internal/platform/sendgrid"
	"github.com/ewilhelmy-resolve/rita-webhook-simulator/internal/simulator"
)

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []any
}

func (f *recordingPublisher) Publish(ctx context.Context, queue string, body any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, body)
	return nil
}

func (f *recordingPublisher) Close() error { return nil }

func (f *recordingPublisher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.msgs)
}

type fakeIDP struct {
	createID  string
	createErr error
	deleteErr error
	deleted   []string
}

func (f *fakeIDP) AdminToken(ctx context.Context) (string, error) { return "tok", nil }

func (f *fakeIDP) CreateUser(ctx context.Context, data keycloak.SignupData) (string, error) {
	return f.createID, f.createErr
}

func (f *fakeIDP) DeleteUser(ctx context.Context, email, userID string) error {
	f.deleted = append(f.deleted, email)
	return f.deleteErr
}

type fakeMail struct {
	sent    []sendgrid.SendEmailRequest
	sendErr error
}

func (f *fakeMail) Send(ctx context.Context, req sendgrid.SendEmailRequest) (*sendgrid.SendEmailResult, error) {
	f.sent = append(f.sent, req)
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	return &sendgrid.SendEmailResult{StatusCode: http.StatusAccepted}, nil
}

type stubSeeder struct {
	inserted int
	err      error
}

func (s *stubSeeder) SeedDemoTickets(ctx context.Context, tenantID string, count int) (int, error) {
	return s.inserted, s.err
}

type dispatcherFixture struct {
	d    *Dispatcher
	pub  *recordingPublisher
	idp  *fakeIDP
	mail *fakeMail
}

func newFixture(t *testing.T, seeder simulator.TicketSeeder) *dispatcherFixture {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	pub := &recordingPublisher{}
	gen := simulator.NewGenerator(simulator.ScenarioSuccess, 100)
	pipeline := simulator.NewPipeline(log, pub, gen, "chat.responses", 0)
	docs := simulator.NewDocumentProcessor(log, pub, simulator.NewBlobStore(), "document_processing_status", 0)
	syncSim := simulator.NewSyncSimulator(log, pub, simulator.NewRegistry(), seeder, "data_source_status")
	idp := &fakeIDP{createID: "ext-1"}
	mail := &fakeMail{}
	accounts := NewAccountService(log, idp, mail)
	return &dispatcherFixture{
		d:    NewDispatcher(log, gen, pipeline, docs, syncSim, accounts, seeder),
		pub:  pub,
		idp:  idp,
		mail: mail,
	}
}

// waitFor polls until cond holds or the deadline passes. Used for flows the
// dispatcher acknowledges before their goroutine publishes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}

func TestDispatchRejectsUnsupportedPair(t *testing.T) {
	fx := newFixture(t, nil)

	_, apiErr := fx.d.Dispatch(context.Background(), domain.WebhookPayload{
		Source:   "rita-chat",
		Action:   "no_such_action",
		TenantID: "t1",
	})
	if apiErr == nil || apiErr.Status != http.StatusBadRequest {
		t.Fatalf("expected 400, got %+v", apiErr)
	}
	if apiErr.Code != "unsupported_event" {
		t.Fatalf("code = %q", apiErr.Code)
	}
	if !strings.Contains(apiErr.Error(), "rita-chat/no_such_action") {
		t.Fatalf("error should name the pair: %v", apiErr)
	}
}

func TestDispatchMessageCreatedRequiresIdentifiers(t *testing.T) {
	fx := newFixture(t, nil)

	cases := []struct {
		name   string
		mutate func(*domain.WebhookPayload)
		code   string
	}{
		{"missing conversation", func(p *domain.WebhookPayload) { p.ConversationID = "" }, "missing_conversation_id"},
		{"missing message", func(p *domain.WebhookPayload) { p.MessageID = "" }, "missing_message_id"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := domain.WebhookPayload{
				Source:          domain.SourceChat,
				Action:          domain.ActionMessageCreated,
				TenantID:        "t1",
				ConversationID:  "c1",
				MessageID:       "m1",
				CustomerMessage: "hello",
			}
			tc.mutate(&p)
			_, apiErr := fx.d.Dispatch(context.Background(), p)
			if apiErr == nil || apiErr.Status != http.StatusBadRequest || apiErr.Code != tc.code {
				t.Fatalf("expected 400 %s, got %+v", tc.code, apiErr)
			}
		})
	}
	if fx.pub.count() != 0 {
		t.Fatalf("invalid payloads must not publish")
	}
}

func TestDispatchMessageCreatedDeliversReply(t *testing.T) {
	fx := newFixture(t, nil)

	body, apiErr := fx.d.Dispatch(context.Background(), domain.WebhookPayload{
		Source:          domain.SourceChat,
		Action:          domain.ActionMessageCreated,
		TenantID:        "t1",
		ConversationID:  "c1",
		MessageID:       "m1",
		CustomerMessage: "test1 hello",
	})
	if apiErr != nil {
		t.Fatalf("dispatch: %v", apiErr)
	}
	if body["status"] != "accepted" {
		t.Fatalf("body = %+v", body)
	}

	waitFor(t, func() bool { return fx.pub.count() == 1 })
	fx.pub.mu.Lock()
	defer fx.pub.mu.Unlock()
	resp, ok := fx.pub.msgs[0].(domain.GeneratedResponse)
	if !ok {
		t.Fatalf("published %T", fx.pub.msgs[0])
	}
	if resp.ConversationID != "c1" || resp.MessageID != "m1" || resp.TenantID != "t1" {
		t.Fatalf("reply lost identifiers: %+v", resp)
	}
	if tc, _ := resp.Metadata["turn_complete"].(bool); !tc {
		t.Fatalf("single-part reply must be turn_complete")
	}
}

func TestDispatchDocumentUploadRequiresIDs(t *testing.T) {
	fx := newFixture(t, nil)

	_, apiErr := fx.d.Dispatch(context.Background(), domain.WebhookPayload{
		Source:   domain.SourceDocuments,
		Action:   domain.ActionDocumentUploaded,
		TenantID: "t1",
	})
	if apiErr == nil || apiErr.Code != "missing_document_ids" {
		t.Fatalf("expected missing_document_ids, got %+v", apiErr)
	}
}

func TestDispatchDocumentUploadPublishesStatuses(t *testing.T) {
	fx := newFixture(t, nil)

	body, apiErr := fx.d.Dispatch(context.Background(), domain.WebhookPayload{
		Source:      domain.SourceDocuments,
		Action:      domain.ActionDocumentUploaded,
		TenantID:    "t1",
		DocumentIDs: []string{"d1"},
	})
	if apiErr != nil || body["status"] != "accepted" {
		t.Fatalf("dispatch: body=%+v err=%+v", body, apiErr)
	}
	waitFor(t, func() bool { return fx.pub.count() == 1 })

	fx.pub.mu.Lock()
	defer fx.pub.mu.Unlock()
	st, ok := fx.pub.msgs[0].(domain.DocumentStatus)
	if !ok {
		t.Fatalf("published %T", fx.pub.msgs[0])
	}
	if st.Status != domain.DocumentProcessingCompleted || st.BlobMetadataID != "d1" {
		t.Fatalf("unexpected status: %+v", st)
	}
}

func TestDispatchSignupSoftFailsOnProviderError(t *testing.T) {
	fx := newFixture(t, nil)
	fx.idp.createErr = errors.New("keycloak unreachable")

	body, apiErr := fx.d.Dispatch(context.Background(), domain.WebhookPayload{
		Source:   domain.SourceUsers,
		Action:   domain.ActionUserSignup,
		TenantID: "t1",
		Email:    "jo@example.com",
		Password: "hashed",
	})
	if apiErr != nil {
		t.Fatalf("soft failures must not surface as HTTP errors: %v", apiErr)
	}
	if body["success"] != false || body["error"] == nil {
		t.Fatalf("body = %+v", body)
	}
}

func TestDispatchSignupReturnsExternalID(t *testing.T) {
	fx := newFixture(t, nil)

	body, apiErr := fx.d.Dispatch(context.Background(), domain.WebhookPayload{
		Source:   domain.SourceUsers,
		Action:   domain.ActionUserSignup,
		TenantID: "t1",
		Email:    "jo@example.com",
		Password: "hashed",
	})
	if apiErr != nil {
		t.Fatalf("dispatch: %v", apiErr)
	}
	if body["success"] != true || body["external_user_id"] != "ext-1" {
		t.Fatalf("body = %+v", body)
	}
}

func TestDispatchAcceptInvitationRequiresPendingUser(t *testing.T) {
	fx := newFixture(t, nil)

	body, apiErr := fx.d.Dispatch(context.Background(), domain.WebhookPayload{
		Source:   domain.SourceUsers,
		Action:   domain.ActionAcceptInvitation,
		TenantID: "t1",
		Email:    "jo@example.com",
		Password: "hashed",
	})
	if apiErr != nil {
		t.Fatalf("dispatch: %v", apiErr)
	}
	if body["success"] != false {
		t.Fatalf("missing pending_user_id should soft-fail: %+v", body)
	}
}

func TestDispatchSendInvitationEmailsLink(t *testing.T) {
	fx := newFixture(t, nil)

	body, apiErr := fx.d.Dispatch(context.Background(), domain.WebhookPayload{
		Source:         domain.SourceUsers,
		Action:         domain.ActionSendInvitation,
		TenantID:       "t1",
		Email:          "jo@example.com",
		InvitationLink: "https://app.example.com/invite/abc",
		InvitedByName:  "Sam",
	})
	if apiErr != nil || body["success"] != true {
		t.Fatalf("dispatch: body=%+v err=%+v", body, apiErr)
	}
	if len(fx.mail.sent) != 1 {
		t.Fatalf("expected 1 email, got %d", len(fx.mail.sent))
	}
	msg := fx.mail.sent[0]
	if !strings.Contains(msg.Text, "https://app.example.com/invite/abc") {
		t.Fatalf("invitation link missing from body: %q", msg.Text)
	}
	if !strings.Contains(msg.Subject, "Sam") {
		t.Fatalf("inviter missing from subject: %q", msg.Subject)
	}
}

func TestDispatchDeleteUserFailureIsHard(t *testing.T) {
	fx := newFixture(t, nil)
	fx.idp.deleteErr = errors.New("user lookup failed")

	_, apiErr := fx.d.Dispatch(context.Background(), domain.WebhookPayload{
		Source:   domain.SourceUsers,
		Action:   domain.ActionDeleteUser,
		TenantID: "t1",
		Email:    "jo@example.com",
	})
	if apiErr == nil || apiErr.Status != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %+v", apiErr)
	}
}

func TestDispatchCancelSyncMarksRegistry(t *testing.T) {
	fx := newFixture(t, nil)

	body, apiErr := fx.d.Dispatch(context.Background(), domain.WebhookPayload{
		Source:       domain.SourceDataSources,
		Action:       domain.ActionCancelSync,
		TenantID:     "t1",
		ConnectionID: "conn-1",
	})
	if apiErr != nil {
		t.Fatalf("dispatch: %v", apiErr)
	}
	if body["status"] != "cancelled" || body["connection_id"] != "conn-1" {
		t.Fatalf("body = %+v", body)
	}
}

func TestDispatchSyncTicketsWithoutStore(t *testing.T) {
	fx := newFixture(t, nil)

	_, apiErr := fx.d.Dispatch(context.Background(), domain.WebhookPayload{
		Source:   domain.SourceTickets,
		Action:   domain.ActionSyncTickets,
		TenantID: "t1",
	})
	if apiErr == nil || apiErr.Status != http.StatusInternalServerError || apiErr.Code != "ticket_store_unavailable" {
		t.Fatalf("expected 500 ticket_store_unavailable, got %+v", apiErr)
	}
}

func TestDispatchSyncTicketsReportsInserted(t *testing.T) {
	fx := newFixture(t, &stubSeeder{inserted: 8})

	body, apiErr := fx.d.Dispatch(context.Background(), domain.WebhookPayload{
		Source:      domain.SourceTickets,
		Action:      domain.ActionSyncTickets,
		TenantID:    "t1",
		TicketCount: 8,
	})
	if apiErr != nil {
		t.Fatalf("dispatch: %v", apiErr)
	}
	if body["success"] != true || body["inserted"] != 8 {
		t.Fatalf("body = %+v", body)
	}
}

func TestDispatchDelegationEmail(t *testing.T) {
	fx := newFixture(t, nil)

	body, apiErr := fx.d.Dispatch(context.Background(), domain.WebhookPayload{
		Source:         domain.SourceEmail,
		Action:         domain.ActionSendDelegationEmail,
		TenantID:       "t1",
		RecipientEmail: "delegate@example.com",
		DelegatorName:  "Sam",
		TaskSummary:    "Review the quarterly access report",
	})
	if apiErr != nil || body["success"] != true {
		t.Fatalf("dispatch: body=%+v err=%+v", body, apiErr)
	}
	if len(fx.mail.sent) != 1 || !strings.Contains(fx.mail.sent[0].Text, "quarterly access report") {
		t.Fatalf("delegation email not sent: %+v", fx.mail.sent)
	}
}
