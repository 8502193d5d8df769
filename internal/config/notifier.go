package config

import (
	"fmt"
	"time"
)

// NotifierConfig controls outbound change notifications. When no webhook URL
// is set the notifier is disabled and mutations proceed silently.
type NotifierConfig struct {
	// SlackWebhookURL receives a message per flag mutation.
	SlackWebhookURL string `envconfig:"SLACK_WEBHOOK_URL"`

	// ExcludedEvents lists change kinds that must not be announced,
	// e.g. "updated,enabled". Unknown names are rejected at wiring time.
	ExcludedEvents []string `envconfig:"EXCLUDED_EVENTS"`

	// Timeout bounds a single webhook delivery.
	Timeout time.Duration `envconfig:"TIMEOUT" default:"5s" validate:"min=1s"`
}

// Validate checks NotifierConfig fields for correctness.
func (c *NotifierConfig) Validate() error {
	if c.SlackWebhookURL == "" {
		return nil
	}
	if _, err := parseAndValidateURL(c.SlackWebhookURL, []string{"http", "https"}); err != nil {
		return fmt.Errorf("invalid slack webhook URL: %w", err)
	}
	return nil
}

// IsConfigured returns true when a webhook destination is set.
func (c *NotifierConfig) IsConfigured() bool {
	return c.SlackWebhookURL != ""
}
