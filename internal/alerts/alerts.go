// Package alerts pushes halt notifications to external channels. A dispatch
// that halts on a guardrail or a blocked instruction is worth a human's
// attention; the pipeline fans the event out to every registered notifier.
package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
)

// Notifier is an outbound channel that can deliver a short message.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, message string) error
}

// Registry holds configured notifiers by name.
type Registry struct {
	mu        sync.RWMutex
	notifiers map[string]Notifier
}

func NewRegistry() *Registry {
	return &Registry{notifiers: make(map[string]Notifier)}
}

func (r *Registry) Register(name string, n Notifier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifiers[name] = n
}

func (r *Registry) Get(name string) Notifier {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.notifiers[name]
}

// NotifyAll sends the message to every registered notifier. Delivery is best
// effort; failures are logged and never surfaced to the dispatch path.
func (r *Registry) NotifyAll(ctx context.Context, message string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for name, n := range r.notifiers {
		if err := n.Notify(ctx, message); err != nil {
			slog.Warn("alert delivery failed", "notifier", name, "err", err)
		}
	}
}

// HaltAlert formats a halted dispatch for notification.
func HaltAlert(instruction, haltReason, riskLevel string) string {
	short := instruction
	if len(short) > 120 {
		short = short[:120] + "..."
	}
	return fmt.Sprintf("dispatch halted (%s, risk %s): %s", haltReason, riskLevel, short)
}

// SlackWebhook sends messages to a Slack channel via incoming webhook URL.
type SlackWebhook struct {
	WebhookURL string
	Channel    string // optional override
	Username   string // optional
}

func (s SlackWebhook) Name() string { return "slack" }

func (s SlackWebhook) Notify(ctx context.Context, message string) error {
	if s.WebhookURL == "" {
		return fmt.Errorf("slack webhook URL not set")
	}
	payload := map[string]any{"text": message}
	if s.Channel != "" {
		payload["channel"] = s.Channel
	}
	if s.Username != "" {
		payload["username"] = s.Username
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.WebhookURL, strings.NewReader(string(body)))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("slack webhook returned %d", resp.StatusCode)
	}
	return nil
}

// WebhookNotifier POSTs the raw message as JSON to an arbitrary endpoint.
type WebhookNotifier struct {
	URL string
}

func (w WebhookNotifier) Name() string { return "webhook" }

func (w WebhookNotifier) Notify(ctx context.Context, message string) error {
	if w.URL == "" {
		return fmt.Errorf("webhook URL not set")
	}
	body, err := json.Marshal(map[string]string{"message": message})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, strings.NewReader(string(body)))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned %d", resp.StatusCode)
	}
	return nil
}
