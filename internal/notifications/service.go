package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"framebridge/internal/config"
)

const userAgent = "framebridge/0.1.0"

// Event identifies the kind of notification.
type Event string

const (
	EventInstallCompleted  Event = "install_completed"
	EventCompressCompleted Event = "compress_completed"
	EventExtractCompleted  Event = "extract_completed"
	EventScriptCompleted   Event = "script_completed"
	EventError             Event = "error"
	EventTest              Event = "test"
)

// Payload carries the values rendered into a message.
type Payload map[string]any

// Service is the notification surface used by the bridge.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	msg, ok := render(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func render(event Event, payload Payload) (message, bool) {
	switch event {
	case EventInstallCompleted:
		version := payload.text("version")
		if version == "" {
			version = "unknown version"
		}
		return message{
			title: "framebridge - Tool Installed",
			body:  fmt.Sprintf("frame-extractor %s installed", version),
			tags:  []string{"framebridge", "install", "completed"},
		}, true
	case EventCompressCompleted:
		return message{
			title: "framebridge - Compress Complete",
			body:  batchBody("Compressed", "files", payload),
			tags:  []string{"framebridge", "compress", "completed"},
		}, true
	case EventExtractCompleted:
		return message{
			title: "framebridge - Frames Extracted",
			body:  batchBody("Extracted first frames from", "videos", payload),
			tags:  []string{"framebridge", "extract", "completed"},
		}, true
	case EventError:
		var builder strings.Builder
		builder.WriteString("Error")
		if op := payload.text("operation"); op != "" {
			builder.WriteString(" during ")
			builder.WriteString(strings.ReplaceAll(op, "_", " "))
		}
		builder.WriteString(": ")
		if errText := payload.text("error"); errText != "" {
			builder.WriteString(errText)
		} else {
			builder.WriteString("unknown")
		}
		return message{
			title:    "framebridge - Error",
			body:     builder.String(),
			tags:     []string{"framebridge", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "framebridge - Test",
			body:     "Notification system test",
			tags:     []string{"framebridge", "test"},
			priority: "low",
		}, true
	default:
		// Script completions are too frequent to be worth a push.
		return message{}, false
	}
}

func batchBody(verb, noun string, payload Payload) string {
	body := verb
	if total, ok := payload["total"].(int); ok {
		body = fmt.Sprintf("%s %d %s", verb, total, noun)
	}
	if failed, ok := payload["failed"].(int); ok && failed > 0 {
		body = fmt.Sprintf("%s (%d failed)", body, failed)
	}
	if dir := payload.text("outputDir"); dir != "" {
		body = fmt.Sprintf("%s\nOutput: %s", body, dir)
	}
	return body
}

func (p Payload) text(key string) string {
	if p == nil {
		return ""
	}
	if value, ok := p[key]; ok && value != nil {
		return strings.TrimSpace(fmt.Sprint(value))
	}
	return ""
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
