package services

import (
	"context"
	"fmt"
	"net/http"

	brevo "github.com/getbrevo/brevo-go/lib"
)

// EmailMessage is one outbound transactional email
type EmailMessage struct {
	FromEmail string
	FromName  string
	To        string
	Subject   string
	HTML      string
	Text      string
}

// EmailSender delivers transactional email
type EmailSender interface {
	SendEmail(ctx context.Context, msg EmailMessage) error
}

// BrevoService provides Brevo email service
type BrevoService struct {
	client    *brevo.APIClient
	apiKey    string
	FromEmail string
	FromName  string
}

// NewBrevoService creates a new Brevo service instance
func NewBrevoService(apiKey, fromEmail, fromName string) *BrevoService {
	cfg := brevo.NewConfiguration()
	cfg.AddDefaultHeader("api-key", apiKey)
	return &BrevoService{
		client:    brevo.NewAPIClient(cfg),
		apiKey:    apiKey,
		FromEmail: fromEmail,
		FromName:  fromName,
	}
}

// SendEmail sends one email through the Brevo transactional API. The sender
// defaults to the configured from address.
func (s *BrevoService) SendEmail(ctx context.Context, msg EmailMessage) error {
	if s.apiKey == "" {
		return ErrEmailUnavailable
	}

	fromEmail, fromName := msg.FromEmail, msg.FromName
	if fromEmail == "" {
		fromEmail = s.FromEmail
	}
	if fromName == "" {
		fromName = s.FromName
	}

	email := brevo.SendSmtpEmail{
		Sender: &brevo.SendSmtpEmailSender{
			Name:  fromName,
			Email: fromEmail,
		},
		To: []brevo.SendSmtpEmailTo{
			{Email: msg.To},
		},
		Subject:     msg.Subject,
		HtmlContent: msg.HTML,
		TextContent: msg.Text,
	}

	_, resp, err := s.client.TransactionalEmailsApi.SendTransacEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if resp != nil && resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("brevo API error: status %d", resp.StatusCode)
	}
	return nil
}
