package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"sheetlingo/internal/config"
)

const userAgent = "sheetlingo/0.1.0"

// Event names a notification type.
type Event string

const (
	EventJobCompleted Event = "job_completed"
	EventJobPartial   Event = "job_partial"
	EventJobFailed    Event = "job_failed"
	EventTest         Event = "test"
)

// Payload carries event fields. Known keys: source, languages, words,
// errors, error, jobID.
type Payload map[string]any

// Service publishes workflow events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := cfg.NotificationTimeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	suppressed := map[Event]bool{}
	if !cfg.Notifications.NotifyPartial {
		suppressed[EventJobPartial] = true
	}
	return &ntfyService{
		endpoint:   topic,
		client:     &http.Client{Timeout: timeout},
		suppressed: suppressed,
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint   string
	client     *http.Client
	suppressed map[Event]bool
}

// Publish sends event to ntfy. Suppressed and unknown events are dropped.
func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if n.suppressed[event] {
		return nil
	}
	msg, ok := format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func format(event Event, payload Payload) (message, bool) {
	source := payloadString(payload, "source", "catalog")
	languages := payloadString(payload, "languages", "")
	subject := source
	if languages != "" {
		subject = fmt.Sprintf("%s (%s)", source, languages)
	}

	switch event {
	case EventJobCompleted:
		body := "✅ Translated: " + subject
		if words := payloadString(payload, "words", ""); words != "" {
			body += "\n" + words + " words"
		}
		return message{
			title: "sheetlingo - Job Complete",
			body:  body,
			tags:  []string{"sheetlingo", "job", "completed"},
		}, true
	case EventJobPartial:
		body := "⚠️ Translated with errors: " + subject
		if count := payloadString(payload, "errors", ""); count != "" {
			body += "\n" + count + " cell(s) failed"
		}
		return message{
			title: "sheetlingo - Job Partial",
			body:  body,
			tags:  []string{"sheetlingo", "job", "partial"},
		}, true
	case EventJobFailed:
		reason := payloadString(payload, "error", "unknown")
		return message{
			title:    "sheetlingo - Job Failed",
			body:     fmt.Sprintf("❌ Failed: %s\n%s", subject, reason),
			tags:     []string{"sheetlingo", "job", "failed"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "sheetlingo - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"sheetlingo", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func payloadString(payload Payload, key, fallback string) string {
	if payload == nil {
		return fallback
	}
	value, ok := payload[key]
	if !ok || value == nil {
		return fallback
	}
	var text string
	switch v := value.(type) {
	case string:
		text = v
	case []string:
		text = strings.Join(v, ", ")
	default:
		text = fmt.Sprint(v)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return fallback
	}
	return text
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" && msg.priority != "default" {
		req.Header.Set("Priority", msg.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
