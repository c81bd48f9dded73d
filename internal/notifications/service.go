package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"rarpack/internal/config"
)

const userAgent = "rarpack/0.1.0"

// Service defines the notification surface exposed to the packer.
type Service interface {
	NotifyRunStarted(ctx context.Context, entries, threads int) error
	NotifyRunCompleted(ctx context.Context, result RunResult) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// RunResult carries the final counters of a run.
type RunResult struct {
	Succeeded int
	Failed    int
	Dropped   int
	Stopped   bool
	Duration  time.Duration
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

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyRunStarted(ctx context.Context, entries, threads int) error {
	return n.send(ctx, payload{
		title:   "rarpack - Run Started",
		message: fmt.Sprintf("Compressing %d entries using %d threads", entries, threads),
		tags:    []string{"rarpack", "run", "started"},
	})
}

func (n *ntfyService) NotifyRunCompleted(ctx context.Context, result RunResult) error {
	duration := result.Duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}

	data := payload{tags: []string{"rarpack", "run", "completed"}}
	switch {
	case result.Stopped:
		data.title = "rarpack - Run Stopped"
		data.message = fmt.Sprintf("Stopped after %s: %d compressed, %d failed, %d not started",
			duration, result.Succeeded, result.Failed, result.Dropped)
		data.tags = []string{"rarpack", "run", "stopped"}
	case result.Failed == 0:
		data.title = "rarpack - Run Complete"
		data.message = fmt.Sprintf("%d entries compressed in %s", result.Succeeded, duration)
	default:
		data.title = "rarpack - Run Complete (with errors)"
		data.message = fmt.Sprintf("%d compressed, %d failed in %s", result.Succeeded, result.Failed, duration)
		data.priority = "high"
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" during ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	return n.send(ctx, payload{
		title:    "rarpack - Error",
		message:  builder.String(),
		tags:     []string{"rarpack", "error", "alert"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "rarpack - Test",
		message:  "Notification system test",
		tags:     []string{"rarpack", "test"},
		priority: "low",
	})
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
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

func (noopService) NotifyRunStarted(context.Context, int, int) error    { return nil }
func (noopService) NotifyRunCompleted(context.Context, RunResult) error { return nil }
func (noopService) NotifyError(context.Context, error, string) error    { return nil }
func (noopService) TestNotification(context.Context) error              { return nil }
