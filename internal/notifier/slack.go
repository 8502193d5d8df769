package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/skuld-io/skuld/internal/config"
	"github.com/skuld-io/skuld/internal/errs"
	"github.com/skuld-io/skuld/internal/flag"
	"github.com/skuld-io/skuld/internal/logger"
	"github.com/skuld-io/skuld/internal/observability"
)

// Compile-time check to verify that Slack implements Notifier.
var _ Notifier = (*Slack)(nil)

// Slack delivers change announcements to a Slack incoming webhook.
type Slack struct {
	webhookURL string
	client     *http.Client
	excluded   map[ChangeKind]struct{}
}

// NewSlack builds a Slack notifier from config. Excluded event names are
// validated eagerly so a typo fails at startup instead of silently
// suppressing the wrong kind.
func NewSlack(cfg *config.NotifierConfig) (*Slack, error) {
	if cfg == nil || cfg.SlackWebhookURL == "" {
		return nil, fmt.Errorf("slack webhook URL is required")
	}

	excluded := make(map[ChangeKind]struct{}, len(cfg.ExcludedEvents))
	for _, name := range cfg.ExcludedEvents {
		kind, err := ParseKind(name)
		if err != nil {
			return nil, fmt.Errorf("invalid excluded event: %w", err)
		}
		excluded[kind] = struct{}{}
	}

	return &Slack{
		webhookURL: cfg.SlackWebhookURL,
		client:     &http.Client{Timeout: cfg.Timeout},
		excluded:   excluded,
	}, nil
}

// slackMessage is the minimal incoming-webhook payload.
type slackMessage struct {
	Text string `json:"text"`
}

// Notify posts one message per change. Excluded kinds are suppressed
// without touching the network.
func (s *Slack) Notify(ctx context.Context, kind ChangeKind, rec *flag.Record) error {
	if _, skip := s.excluded[kind]; skip {
		observability.NotifierDeliveries.WithLabelValues(string(kind), "excluded").Inc()
		return nil
	}

	body, err := json.Marshal(slackMessage{Text: formatMessage(kind, rec)})
	if err != nil {
		return s.fail(ctx, kind, rec, fmt.Errorf("failed to encode message: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return s.fail(ctx, kind, rec, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return s.fail(ctx, kind, rec, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return s.fail(ctx, kind, rec, fmt.Errorf("slack webhook returned status %d", resp.StatusCode))
	}

	observability.NotifierDeliveries.WithLabelValues(string(kind), "delivered").Inc()
	return nil
}

func (s *Slack) fail(ctx context.Context, kind ChangeKind, rec *flag.Record, err error) error {
	observability.NotifierDeliveries.WithLabelValues(string(kind), "failed").Inc()
	logger.FromContext(ctx).Warn("notification delivery failed",
		slog.String("channel", "slack"),
		slog.String("event", string(kind)),
		slog.String("flag", rec.Code),
		slog.Any("error", err),
	)
	return &errs.NotifierError{Kind: string(kind), Err: err}
}

func formatMessage(kind ChangeKind, rec *flag.Record) string {
	state := "disabled"
	if rec.Enabled {
		state = "enabled"
	}
	return fmt.Sprintf("Feature flag `%s` (%s) was %s. Current state: %s.",
		rec.Code, rec.Name, kind, state)
}
