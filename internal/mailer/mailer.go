package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// Mailer sends transactional account emails. Handlers depend on this
// interface so tests can swap in a stub.
type Mailer interface {
	SendVerificationEmail(ctx context.Context, toName, toEmail, verifyLink string) error
	SendPasswordResetEmail(ctx context.Context, toName, toEmail, resetLink string) error
}

// BrevoMailer delivers mail through the Brevo transactional email API.
type BrevoMailer struct {
	apiKey      string
	senderName  string
	senderEmail string
	client      *http.Client
}

const brevoEndpoint = "https://api.brevo.com/v3/smtp/email"

func NewBrevoMailer(apiKey, senderName, senderEmail string) *BrevoMailer {
	return &BrevoMailer{
		apiKey:      apiKey,
		senderName:  senderName,
		senderEmail: senderEmail,
		client:      &http.Client{Timeout: 10 * time.Second},
	}
}

type brevoAddress struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

type brevoEmail struct {
	Sender      brevoAddress   `json:"sender"`
	To          []brevoAddress `json:"to"`
	Subject     string         `json:"subject"`
	HTMLContent string         `json:"htmlContent"`
}

func (m *BrevoMailer) send(ctx context.Context, toName, toEmail, subject, html string) error {
	payload := brevoEmail{
		Sender:      brevoAddress{Name: m.senderName, Email: m.senderEmail},
		To:          []brevoAddress{{Name: toName, Email: toEmail}},
		Subject:     subject,
		HTMLContent: html,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, brevoEndpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", m.apiKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("brevo: status %d: %s", resp.StatusCode, detail)
	}

	return nil
}

func (m *BrevoMailer) SendVerificationEmail(ctx context.Context, toName, toEmail, verifyLink string) error {
	html := fmt.Sprintf(`
		<h2>Email Verification</h2>
		<p>Hi %s,</p>
		<p>Click the link below to verify your account:</p>
		<a href="%s">Verify Email</a>
		<p>This link is valid for 24 hours.</p>
	`, toName, verifyLink)

	return m.send(ctx, toName, toEmail, "Verify Your Email", html)
}

func (m *BrevoMailer) SendPasswordResetEmail(ctx context.Context, toName, toEmail, resetLink string) error {
	html := fmt.Sprintf(`
		<h2>Password Reset Request</h2>
		<p>Hi %s,</p>
		<p>Click the link below to reset your password:</p>
		<a href="%s">Reset Password</a>
		<p>This link is valid for 1 hour. If you did not request this, you can ignore this email.</p>
	`, toName, resetLink)

	return m.send(ctx, toName, toEmail, "Reset Your Password", html)
}

// LogMailer writes mail to the process log instead of sending it. Used
// in development when no API key is configured.
type LogMailer struct{}

func (LogMailer) SendVerificationEmail(_ context.Context, toName, toEmail, verifyLink string) error {
	log.Printf("MAIL: verification for %s <%s>: %s", toName, toEmail, verifyLink)
	return nil
}

func (LogMailer) SendPasswordResetEmail(_ context.Context, toName, toEmail, resetLink string) error {
	log.Printf("MAIL: password reset for %s <%s>: %s", toName, toEmail, resetLink)
	return nil
}
