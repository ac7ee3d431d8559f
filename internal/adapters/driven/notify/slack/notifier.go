// Package slack delivers analysis notifications to a Slack incoming webhook.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/contract-agent/internal/core/domain"
	"github.com/custodia-labs/contract-agent/internal/core/ports/driven"
	"github.com/custodia-labs/contract-agent/internal/logger"
)

const (
	// Footer is shown under every attachment.
	Footer = "Smart Contract Analysis Agent"

	// DefaultPerMinute caps outbound webhook calls when none is configured.
	DefaultPerMinute = 30

	// maxErrorBody bounds how much of an error response is read.
	maxErrorBody = 512

	defaultHTTPTimeout = 30 * time.Second
)

// Ensure Notifier implements the interface.
var _ driven.Notifier = (*Notifier)(nil)

// Config holds Slack webhook configuration.
type Config struct {
	// WebhookURL is the incoming webhook. Empty disables notifications.
	WebhookURL string

	// PerMinute caps outbound messages. Zero selects DefaultPerMinute.
	PerMinute int

	// HTTPClient is optional; a client with a 30s timeout is used otherwise.
	HTTPClient *http.Client
}

// Notifier posts attachment messages to a Slack webhook.
type Notifier struct {
	webhookURL string
	client     *http.Client
	limiter    *rate.Limiter
	now        func() time.Time
}

// NewNotifier creates a Slack notifier.
func NewNotifier(cfg Config) *Notifier {
	perMinute := cfg.PerMinute
	if perMinute <= 0 {
		perMinute = DefaultPerMinute
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &Notifier{
		webhookURL: strings.TrimSpace(cfg.WebhookURL),
		client:     client,
		limiter:    rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1),
		now:        time.Now,
	}
}

// Enabled reports whether a webhook is configured.
func (n *Notifier) Enabled() bool {
	return n.webhookURL != ""
}

// message is the Slack webhook payload.
type message struct {
	Text        string       `json:"text"`
	Attachments []attachment `json:"attachments"`
}

type attachment struct {
	Color  string  `json:"color"`
	Fields []field `json:"fields"`
	Footer string  `json:"footer"`
	TS     int64   `json:"ts"`
}

type field struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

// Notify posts a summary of a finished analysis.
// Without a webhook it logs and returns nil.
func (n *Notifier) Notify(ctx context.Context, note driven.Notification) error {
	if !n.Enabled() {
		logger.Debug("Slack webhook not configured, skipping notification")
		return nil
	}

	if err := n.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for rate limiter: %w", err)
	}

	body, err := json.Marshal(n.buildMessage(note))
	if err != nil {
		return fmt.Errorf("marshalling message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	logger.Debug("Slack notification sent for %q", note.Title)
	return nil
}

func (n *Notifier) buildMessage(note driven.Notification) message {
	return message{
		Text: "Contract Analysis Complete: " + note.Title,
		Attachments: []attachment{{
			Color: RiskColor(note.RiskLevel),
			Fields: []field{
				{Title: "Contract", Value: note.Title, Short: true},
				{Title: "Risk Level", Value: string(note.RiskLevel), Short: true},
				{Title: "Summary", Value: note.Summary, Short: false},
			},
			Footer: Footer,
			TS:     n.now().Unix(),
		}},
	}
}

// RiskColor maps a risk level to a Slack attachment colour.
func RiskColor(level domain.RiskLevel) string {
	switch strings.ToLower(string(level)) {
	case "high":
		return "danger"
	case "medium":
		return "warning"
	case "low":
		return "good"
	default:
		return "#36a64f"
	}
}
