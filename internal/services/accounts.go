package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/ewilhelmy-resolve/rita-webhook-simulator/internal/domain"
	"github.com/ewilhelmy-resolve/rita-webhook-simulator/internal/platform/ctxutil"
	"github.com/ewilhelmy-resolve/rita-webhook-simulator/internal/platform/keycloak"
	"github.com/ewilhelmy-resolve/rita-webhook-simulator/internal/platform/logger"
	"github.com/ewilhelmy-resolve/rita-webhook-simulator/internal/platform/sendgrid"
)

// AccountService performs the real side effects behind account lifecycle
// webhooks: identity-provider accounts and transactional email.
type AccountService struct {
	log  *logger.Logger
	idp  keycloak.Client
	mail sendgrid.Client
}

func NewAccountService(log *logger.Logger, idp keycloak.Client, mail sendgrid.Client) *AccountService {
	return &AccountService{
		log:  log.With("service", "AccountService"),
		idp:  idp,
		mail: mail,
	}
}

func (s *AccountService) signupData(p domain.WebhookPayload) keycloak.SignupData {
	return keycloak.SignupData{
		Email:             p.Email,
		FirstName:         p.FirstName,
		LastName:          p.LastName,
		HashedPassword:    p.Password,
		Company:           p.Company,
		PendingUserID:     p.PendingUserID,
		VerificationToken: p.VerificationToken,
	}
}

// Signup creates the external identity-provider account for a new user and
// returns its external id.
func (s *AccountService) Signup(ctx context.Context, p domain.WebhookPayload) (string, error) {
	defer ctxutil.StartTimer(ctx, s.log, "accounts.signup")()
	if s.idp == nil {
		return "", fmt.Errorf("identity provider not configured")
	}
	return s.idp.CreateUser(ctx, s.signupData(p))
}

// AcceptInvitation creates the identity-provider account for an invited
// user; the pending_user_id attribute correlates it with the invitation.
func (s *AccountService) AcceptInvitation(ctx context.Context, p domain.WebhookPayload) (string, error) {
	defer ctxutil.StartTimer(ctx, s.log, "accounts.accept_invitation")()
	if s.idp == nil {
		return "", fmt.Errorf("identity provider not configured")
	}
	if strings.TrimSpace(p.PendingUserID) == "" {
		return "", fmt.Errorf("pending_user_id is required")
	}
	return s.idp.CreateUser(ctx, s.signupData(p))
}

// SendInvitation emails the invitation link to the invitee.
func (s *AccountService) SendInvitation(ctx context.Context, p domain.WebhookPayload) error {
	defer ctxutil.StartTimer(ctx, s.log, "accounts.send_invitation")()
	if s.mail == nil {
		return fmt.Errorf("mail client not configured")
	}
	invitedBy := p.InvitedByName
	if invitedBy == "" {
		invitedBy = "Your team"
	}
	_, err := s.mail.Send(ctx, sendgrid.SendEmailRequest{
		To:      []sendgrid.EmailAddress{{Email: p.Email, Name: strings.TrimSpace(p.FirstName + " " + p.LastName)}},
		Subject: fmt.Sprintf("%s invited you to Rita", invitedBy),
		Text: fmt.Sprintf("%s invited you to join Rita.\n\nAccept the invitation: %s\n",
			invitedBy, p.InvitationLink),
		Categories: []string{"invitation"},
	})
	if err != nil {
		s.log.Error("invitation email failed",
			"request_id", ctxutil.CorrelationID(ctx),
			"email", p.Email,
			"error", err,
		)
	}
	return err
}

// DeleteUser removes the identity-provider account, looking it up by email
// when no external id was supplied.
func (s *AccountService) DeleteUser(ctx context.Context, p domain.WebhookPayload) error {
	defer ctxutil.StartTimer(ctx, s.log, "accounts.delete_user")()
	if s.idp == nil {
		return fmt.Errorf("identity provider not configured")
	}
	return s.idp.DeleteUser(ctx, p.Email, p.ExternalUserID)
}

// SendDelegationEmail notifies a delegate that a task was handed to them.
func (s *AccountService) SendDelegationEmail(ctx context.Context, p domain.WebhookPayload) error {
	defer ctxutil.StartTimer(ctx, s.log, "accounts.send_delegation_email")()
	if s.mail == nil {
		return fmt.Errorf("mail client not configured")
	}
	_, err := s.mail.Send(ctx, sendgrid.SendEmailRequest{
		To:      []sendgrid.EmailAddress{{Email: p.RecipientEmail, Name: p.RecipientName}},
		Subject: fmt.Sprintf("%s delegated a task to you", p.DelegatorName),
		Text: fmt.Sprintf("%s delegated the following task to you:\n\n%s\n",
			p.DelegatorName, p.TaskSummary),
		Categories: []string{"delegation"},
	})
	if err != nil {
		s.log.Error("delegation email failed",
			"request_id", ctxutil.CorrelationID(ctx),
			"email", p.RecipientEmail,
			"error", err,
		)
	}
	return err
}
