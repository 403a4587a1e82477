package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/taskboard/taskboard/server/internal/config"
	"github.com/taskboard/taskboard/server/internal/tasks"
)

// Notifier posts task change events to the configured webhooks.
type Notifier struct {
	webhooks []config.WebhookConfig
	client   *http.Client

	wg sync.WaitGroup
}

// New creates a Notifier from the notify configuration. A Notifier with no
// webhooks is valid; Publish becomes a no-op.
func New(cfg config.NotifyConfig) *Notifier {
	return &Notifier{
		webhooks: cfg.Webhooks,
		client:   &http.Client{Timeout: cfg.Timeout},
	}
}

// Publish delivers ev to every webhook in the background. It never blocks the
// caller and never reports delivery errors; those are logged.
func (n *Notifier) Publish(ev tasks.Event) {
	if len(n.webhooks) == 0 {
		return
	}
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.deliver(ev)
	}()
}

// Wait blocks until every in-flight delivery has finished.
func (n *Notifier) Wait() { n.wg.Wait() }

// deliver sends ev to all configured targets.
func (n *Notifier) deliver(ev tasks.Event) {
	for _, wh := range n.webhooks {
		url := wh.URL()
		if url == "" {
			continue
		}

		var err error
		switch wh.Type {
		case "slack":
			err = n.sendSlack(url, ev)
		case "teams":
			err = n.sendTeams(url, ev)
		case "http":
			err = n.sendHTTP(url, ev)
		default:
			slog.Warn("notify: unknown webhook type, skipping", "type", wh.Type)
			continue
		}

		if err != nil {
			slog.Error("notify: webhook delivery failed",
				"type", wh.Type,
				"action", ev.Action,
				"err", err,
			)
		} else {
			slog.Debug("notify: webhook delivered",
				"type", wh.Type,
				"action", ev.Action,
			)
		}
	}
}

func (n *Notifier) sendSlack(url string, ev tasks.Event) error {
	body, _ := json.Marshal(map[string]string{"text": summary(ev)})
	return n.post(url, body)
}

func (n *Notifier) sendTeams(url string, ev tasks.Event) error {
	payload := map[string]interface{}{
		"@type":      "MessageCard",
		"@context":   "http://schema.org/extensions",
		"themeColor": actionColor(ev.Action),
		"summary":    "Task " + ev.Action,
		"title":      "Taskboard: task " + ev.Action,
		"text":       summary(ev),
	}
	body, _ := json.Marshal(payload)
	return n.post(url, body)
}

func (n *Notifier) sendHTTP(url string, ev tasks.Event) error {
	body, _ := json.Marshal(map[string]interface{}{"event": ev})
	return n.post(url, body)
}

func (n *Notifier) post(url string, body []byte) error {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}

// summary renders ev as one line, e.g. `updated "Buy milk" (done)`.
func summary(ev tasks.Event) string {
	parts := make([]string, 0, len(ev.Tasks))
	for _, t := range ev.Tasks {
		parts = append(parts, fmt.Sprintf("%q (%s)", t.Title, t.Status))
	}
	return ev.Action + " " + strings.Join(parts, ", ")
}

func actionColor(action string) string {
	switch action {
	case tasks.ActionCreated:
		return "2EB67D"
	case tasks.ActionDeleted:
		return "E01E5A"
	default:
		return "36C5F0"
	}
}
