package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"gamesort/internal/config"
)

const userAgent = "gamesort/0.1"

// BatchReport summarizes one finished batch.
type BatchReport struct {
	TaskID    string
	Total     int
	Succeeded int
	Negative  int
	Failed    int
	TimedOut  int
	Duration  time.Duration
}

// Service is the notification surface used by the CLI.
type Service interface {
	NotifyBatchCompleted(ctx context.Context, report BatchReport) error
	NotifyError(ctx context.Context, err error, label string) error
	TestNotification(ctx context.Context) error
}

// NewService builds an ntfy-backed service, or a no-op when cfg has no topic.
func NewService(cfg config.Notifications) Service {
	topic := strings.TrimSpace(cfg.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	timeout := time.Duration(cfg.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: topic,
		minItems: cfg.MinItems,
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
	minItems int
	client   *http.Client
}

func (n *ntfyService) NotifyBatchCompleted(ctx context.Context, report BatchReport) error {
	if report.Total < n.minItems {
		return nil
	}
	duration := report.Duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}

	problems := report.Failed + report.TimedOut
	data := payload{
		title: "gamesort - Batch Complete",
		message: fmt.Sprintf("%d items in %s: %d ok, %d not found, %d failed, %d timed out",
			report.Total, duration, report.Succeeded, report.Negative, report.Failed, report.TimedOut),
		tags: []string{"gamesort", "batch", "completed"},
	}
	if problems > 0 {
		data.title = "gamesort - Batch Complete (with errors)"
		data.tags = []string{"gamesort", "batch", "warning"}
	}
	if problems == report.Total && report.Total > 0 {
		data.priority = "high"
	}
	if report.TaskID != "" {
		data.message += "\nTask: " + report.TaskID
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, label string) error {
	var builder strings.Builder
	builder.WriteString("Error")
	if label = strings.TrimSpace(label); label != "" {
		builder.WriteString(" during ")
		builder.WriteString(label)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}
	return n.send(ctx, payload{
		title:    "gamesort - Error",
		message:  builder.String(),
		tags:     []string{"gamesort", "error"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "gamesort - Test",
		message:  "Notification test",
		tags:     []string{"gamesort", "test"},
		priority: "low",
	})
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
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
	if data.priority != "" {
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

func (noopService) NotifyBatchCompleted(context.Context, BatchReport) error { return nil }
func (noopService) NotifyError(context.Context, error, string) error        { return nil }
func (noopService) TestNotification(context.Context) error                  { return nil }
