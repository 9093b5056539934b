// Package notify delivers password-reset mail. The core only builds the
// payload; delivery is a single attempt with no retries.
package notify

import (
	"bytes"         // Request bodies
	"context"       // Request-scoped deadlines
	"encoding/json" // JSON encoding
	"fmt"           // Formatting
	"html/template" // Mail body rendering
	"net/http"      // HTTP client
	"time"          // Timestamps and durations

	"github.com/sirupsen/logrus" // Structured logging
	"github.com/sony/gobreaker"  // Circuit breaker
)

// ResetMessage is the payload for a password-reset mail
type ResetMessage struct {
	To        string // Recipient address
	Username  string // Display name used in the greeting
	ResetLink string // Single-use link
}

// Sender delivers reset mails
type Sender interface {
	SendPasswordReset(ctx context.Context, msg ResetMessage) error
}

const resetSubject = "Reset your scorekeeper password"

var resetTemplate = template.Must(template.New("reset").Parse(`<div style="font-family: Helvetica, Arial, sans-serif; background-color: #f9fafb; padding: 24px;">
  <div style="background-color: #ffffff; padding: 32px; border-radius: 12px; max-width: 520px; margin: 0 auto;">
    <h2 style="font-size: 24px; color: #111827;">Reset Your Password</h2>
    <p style="font-size: 16px; color: #374151;">Hello {{.Username}},</p>
    <p style="font-size: 16px; color: #374151;">We received a request to reset your <strong>scorekeeper</strong> password. Use the button below to choose a new one:</p>
    <div style="text-align: center; margin: 24px 0;">
      <a href="{{.ResetLink}}" style="background-color: #22c55e; color: #ffffff; padding: 12px 24px; border-radius: 8px; text-decoration: none;">Reset Password</a>
    </div>
    <p style="font-size: 16px; color: #374151;">This link expires in {{.Minutes}} minutes. If you did not ask for it, ignore this email.</p>
  </div>
</div>`))

// RenderReset renders the HTML body of a reset mail
func RenderReset(msg ResetMessage, ttl time.Duration) (string, error) {
	username := msg.Username
	if username == "" {
		username = "User"
	}
	var buf bytes.Buffer
	err := resetTemplate.Execute(&buf, struct {
		Username  string
		ResetLink string
		Minutes   int
	}{username, msg.ResetLink, int(ttl.Minutes())})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

// LogSender writes reset mails to the log instead of delivering them
type LogSender struct {
	Log logrus.FieldLogger
}

func (s LogSender) SendPasswordReset(_ context.Context, msg ResetMessage) error {
	s.Log.WithFields(logrus.Fields{
		"to":         msg.To,
		"reset_link": msg.ResetLink,
	}).Info("Password reset mail (not delivered, no mail API configured)")
	return nil
}

// ResendSender posts mails to the Resend HTTP API behind a circuit breaker
type ResendSender struct {
	apiKey  string
	from    string
	baseURL string
	ttl     time.Duration
	client  *http.Client
	cb      *gobreaker.CircuitBreaker
}

// NewResendSender builds a sender for the Resend API
func NewResendSender(apiKey, from string, ttl time.Duration, log logrus.FieldLogger) *ResendSender {
	st := gobreaker.Settings{
		Name:        "ResendMail",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warnf("CircuitBreaker[%s] state changed from %s to %s", name, from, to)
		},
	}
	return &ResendSender{
		apiKey:  apiKey,
		from:    from,
		baseURL: "https://api.resend.com",
		ttl:     ttl,
		client:  &http.Client{Timeout: 10 * time.Second},
		cb:      gobreaker.NewCircuitBreaker(st),
	}
}

type resendEmail struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

func (s *ResendSender) SendPasswordReset(ctx context.Context, msg ResetMessage) error {
	html, err := RenderReset(msg, s.ttl)
	if err != nil {
		return err
	}
	body, err := json.Marshal(resendEmail{From: s.from, To: []string{msg.To}, Subject: resetSubject, HTML: html})
	if err != nil {
		return err
	}

	_, err = s.cb.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/emails", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 300 {
			return nil, fmt.Errorf("resend: unexpected status %d", resp.StatusCode)
		}
		return nil, nil
	})
	return err
}
