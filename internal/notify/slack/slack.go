// Package slack posts emergency triage escalations to a Slack incoming webhook.
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
	"unicode/utf8"

	"github.com/linnemanlabs/go-core/log"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/linnemanlabs/careline/internal/triage"
)

const (
	maxSymptomsLen = 1500
	maxStepLen     = 200
	httpTimeout    = 10 * time.Second
)

// Notifier implements triage.Notifier against a Slack webhook.
type Notifier struct {
	webhookURL string
	client     *http.Client
	logger     log.Logger
	now        func() time.Time
}

// New creates a Slack notifier. If webhookURL is empty, Notify is a no-op.
func New(webhookURL string, logger log.Logger) *Notifier {
	if logger == nil {
		logger = log.Nop()
	}
	return &Notifier{
		webhookURL: webhookURL,
		client: &http.Client{
			Timeout:   httpTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: logger,
		now:    time.Now,
	}
}

// Notify posts an escalation to the configured webhook.
func (n *Notifier) Notify(ctx context.Context, e *triage.Escalation) error {
	if n.webhookURL == "" || e == nil {
		return nil
	}

	body, err := json.Marshal(buildMessage(e, n.now()))
	if err != nil {
		return fmt.Errorf("slack: marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req) //nolint:gosec // G704: webhookURL is from trusted config, not user input
	if err != nil {
		return fmt.Errorf("slack: post webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("slack: webhook returned %d: %s", resp.StatusCode, string(respBody))
	}
	n.logger.Info(ctx, "slack escalation delivered", "session_id", e.SessionID)
	return nil
}

func buildMessage(e *triage.Escalation, at time.Time) map[string]any {
	return map[string]any{
		"text": fmt.Sprintf("%s triage escalation: %s", urgencyEmoji(e.Assessment.Urgency), e.Assessment.Urgency),
		"blocks": []map[string]any{
			headerBlock(e),
			{"type": "divider"},
			fieldsBlock(e),
			{"type": "divider"},
			symptomsBlock(e),
			stepsBlock(e),
			{"type": "divider"},
			contextBlock(e, at),
		},
	}
}

func headerBlock(e *triage.Escalation) map[string]any {
	text := fmt.Sprintf("%s Triage escalation: %s", urgencyEmoji(e.Assessment.Urgency), strings.ToUpper(string(e.Assessment.Urgency)))
	return map[string]any{
		"type": "header",
		"text": map[string]any{
			"type": "plain_text",
			"text": text,
		},
	}
}

func fieldsBlock(e *triage.Escalation) map[string]any {
	age := "not given"
	if e.Request.PatientAge != nil {
		age = fmt.Sprintf("%d", *e.Request.PatientAge)
	}
	duration := e.Request.Duration
	if duration == "" {
		duration = "not given"
	}
	fields := []map[string]any{
		{"type": "mrkdwn", "text": fmt.Sprintf("*Severity:* %s", e.Request.Severity)},
		{"type": "mrkdwn", "text": fmt.Sprintf("*Duration:* %s", duration)},
		{"type": "mrkdwn", "text": fmt.Sprintf("*Patient age:* %s", age)},
		{"type": "mrkdwn", "text": fmt.Sprintf("*Confidence:* %.0f%%", e.Assessment.Confidence*100)},
		{"type": "mrkdwn", "text": fmt.Sprintf("*Source:* %s", e.Source)},
	}
	return map[string]any{
		"type":   "section",
		"fields": fields,
	}
}

func symptomsBlock(e *triage.Escalation) map[string]any {
	text := truncate(strings.Join(e.Request.Symptoms, ", "), maxSymptomsLen)
	if text == "" {
		text = "_No symptoms recorded._"
	}
	return map[string]any{
		"type": "section",
		"text": map[string]any{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Symptoms*\n%s", text),
		},
	}
}

func stepsBlock(e *triage.Escalation) map[string]any {
	var b strings.Builder
	fmt.Fprintf(&b, "*Recommended:* %s", e.Assessment.RecommendedAction)
	for _, s := range e.Assessment.NextSteps {
		fmt.Fprintf(&b, "\n• %s", truncate(s.Action, maxStepLen))
	}
	return map[string]any{
		"type": "section",
		"text": map[string]any{
			"type": "mrkdwn",
			"text": b.String(),
		},
	}
}

func contextBlock(e *triage.Escalation, at time.Time) map[string]any {
	session := e.SessionID
	if session == "" {
		session = "anonymous"
	}
	return map[string]any{
		"type": "context",
		"elements": []map[string]any{
			{
				"type": "mrkdwn",
				"text": fmt.Sprintf("careline • session %s • %s", session, at.UTC().Format("2006-01-02 15:04 UTC")),
			},
		},
	}
}

func urgencyEmoji(u triage.Urgency) string {
	switch u {
	case triage.UrgencyEmergency:
		return "\U0001f534" // red circle
	case triage.UrgencyHigh:
		return "\U0001f7e0" // orange circle
	case triage.UrgencyModerate:
		return "\U0001f7e1" // yellow circle
	default:
		return "\U0001f7e2" // green circle
	}
}

// truncate cuts s to at most limit bytes without splitting a UTF-8 sequence.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
