package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rpupo63/portfolio-backend/config"
	"github.com/rs/zerolog/log"
	"gopkg.in/gomail.v2"
)

// Email is one outgoing message. Text is required, HTML optional.
type Email struct {
	To      []string
	ReplyTo string
	Subject string
	Text    string
	HTML    string
}

// Mailer delivers e-mail through some transport.
type Mailer interface {
	Send(ctx context.Context, email Email) error
}

// NewMailer picks the transport named by MAIL_TRANSPORT (smtp or resend).
func NewMailer(c map[string]string) (Mailer, error) {
	from := config.GetString(c, "DEFAULT_FROM_EMAIL", "webmaster@localhost")

	switch t := config.GetString(c, "MAIL_TRANSPORT", "smtp"); t {
	case "smtp":
		return &SMTPMailer{
			Host:     config.GetString(c, "SMTP_HOST", "localhost"),
			Port:     config.GetInt(c, "SMTP_PORT", 587),
			Username: config.GetString(c, "SMTP_USER", ""),
			Password: config.GetString(c, "SMTP_PASSWORD", ""),
			From:     from,
		}, nil
	case "resend":
		apiKey := config.GetString(c, "RESEND_API_KEY", "")
		if apiKey == "" {
			return nil, errors.New("RESEND_API_KEY is required for the resend transport")
		}
		return NewResendMailer(apiKey, from), nil
	default:
		return nil, fmt.Errorf("unsupported mail transport: %s", t)
	}
}

// SMTPMailer sends through an SMTP relay.
type SMTPMailer struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

func (m *SMTPMailer) Send(ctx context.Context, email Email) error {
	if len(email.To) == 0 {
		return fmt.Errorf("at least one recipient is required")
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.From)
	msg.SetHeader("To", email.To...)
	msg.SetHeader("Subject", email.Subject)
	if email.ReplyTo != "" {
		msg.SetHeader("Reply-To", email.ReplyTo)
	}
	msg.SetBody("text/plain", email.Text)
	if email.HTML != "" {
		msg.AddAlternative("text/html", email.HTML)
	}

	d := gomail.NewDialer(m.Host, m.Port, m.Username, m.Password)

	done := make(chan error, 1)
	go func() { done <- d.DialAndSend(msg) }()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ResendEmailRequest represents the request payload for Resend API
type ResendEmailRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Html    string   `json:"html,omitempty"`
	Text    string   `json:"text,omitempty"`
	ReplyTo string   `json:"reply_to,omitempty"`
}

// ResendEmailResponse represents the response from Resend API
type ResendEmailResponse struct {
	ID string `json:"id"`
}

// ResendErrorResponse represents an error response from Resend API
type ResendErrorResponse struct {
	Message string `json:"message"`
}

const resendBaseURL = "https://api.resend.com"

// ResendMailer sends through the Resend HTTP API.
type ResendMailer struct {
	APIKey  string
	From    string
	BaseURL string
	Client  *http.Client
}

func NewResendMailer(apiKey, from string) *ResendMailer {
	return &ResendMailer{
		APIKey:  apiKey,
		From:    from,
		BaseURL: resendBaseURL,
		Client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (m *ResendMailer) Send(ctx context.Context, email Email) error {
	if len(email.To) == 0 {
		return fmt.Errorf("at least one recipient is required")
	}

	payload := ResendEmailRequest{
		From:    m.From,
		To:      email.To,
		Subject: email.Subject,
		Html:    email.HTML,
		Text:    email.Text,
		ReplyTo: email.ReplyTo,
	}

	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(m.BaseURL, "/")+"/emails", bytes.NewBuffer(jsonPayload))
	if err != nil {
		return fmt.Errorf("failed to create Resend API request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.Client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request to Resend API: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read Resend API response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errorResp ResendErrorResponse
		if err := json.Unmarshal(bodyBytes, &errorResp); err == nil && errorResp.Message != "" {
			return fmt.Errorf("resend API error (status %d): %s", resp.StatusCode, errorResp.Message)
		}
		return fmt.Errorf("resend API error (status %d): %s", resp.StatusCode, string(bodyBytes))
	}

	var emailResponse ResendEmailResponse
	if err := json.Unmarshal(bodyBytes, &emailResponse); err != nil {
		log.Warn().Err(err).Msg("Failed to parse Resend email response, but email was sent")
	} else {
		log.Info().Str("emailId", emailResponse.ID).Msg("Successfully sent email via Resend")
	}

	return nil
}

// ContactMessage is a visitor's submission from the contact form.
type ContactMessage struct {
	Name    string
	Email   string
	Subject string
	Message string
}

// ContactEmail formats msg as a notification addressed to recipient.
func ContactEmail(msg ContactMessage, recipient string) Email {
	var b strings.Builder
	fmt.Fprintf(&b, "New contact form submission from %s (%s)\n\n", msg.Name, msg.Email)
	fmt.Fprintf(&b, "Subject: %s\n\n", msg.Subject)
	fmt.Fprintf(&b, "Message:\n%s\n", msg.Message)

	return Email{
		To:      []string{recipient},
		ReplyTo: msg.Email,
		Subject: "New Contact Form Submission: " + msg.Subject,
		Text:    b.String(),
	}
}
