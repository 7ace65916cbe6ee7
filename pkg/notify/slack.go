// Package notify posts scheduling-run outcomes to external channels.
// It is pure side effect — nothing here feeds back into scheduler.Service.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	goslack "github.com/slack-go/slack"

	"github.com/covermd/dutyplanner/internal/telemetry"
)

// RunSummary is the minimal information a notifier announces about a
// completed scheduling run.
type RunSummary struct {
	RunID            string
	Year             int
	Month            int
	WereAnyDutiesSet bool
	WereAllDutiesSet bool
	Errors           []string
}

// SlackNotifier posts a message to a Slack channel when a scheduling run
// completes. If no bot token is configured it is a no-op, so callers can
// always construct and call it unconditionally.
type SlackNotifier struct {
	client  *goslack.Client
	channel string
	logger  *slog.Logger
}

// NewSlackNotifier creates a SlackNotifier. If botToken is empty, the
// notifier is disabled (logging only).
func NewSlackNotifier(botToken, channel string, logger *slog.Logger) *SlackNotifier {
	var client *goslack.Client
	if botToken != "" {
		client = goslack.New(botToken)
	}
	return &SlackNotifier{client: client, channel: channel, logger: logger}
}

// IsEnabled reports whether the notifier has a usable client and channel.
func (n *SlackNotifier) IsEnabled() bool {
	return n.client != nil && n.channel != ""
}

// NotifyRunComplete posts a one-line summary of a scheduling run.
func (n *SlackNotifier) NotifyRunComplete(ctx context.Context, summary RunSummary) error {
	if !n.IsEnabled() {
		n.logger.Debug("slack notifier disabled, skipping run notification", "run_id", summary.RunID)
		return nil
	}

	text := runSummaryText(summary)

	_, _, err := n.client.PostMessageContext(ctx, n.channel, goslack.MsgOptionText(text, false))
	if err != nil {
		telemetry.NotificationsTotal.WithLabelValues("slack_error").Inc()
		return fmt.Errorf("posting run notification to slack: %w", err)
	}

	telemetry.NotificationsTotal.WithLabelValues("slack").Inc()
	n.logger.Info("posted run notification to slack", "run_id", summary.RunID, "channel", n.channel)
	return nil
}

func runSummaryText(s RunSummary) string {
	switch {
	case len(s.Errors) > 0:
		return fmt.Sprintf(":x: scheduling run %s for %04d-%02d failed validation (%d error(s))", s.RunID, s.Year, s.Month, len(s.Errors))
	case s.WereAllDutiesSet:
		return fmt.Sprintf(":white_check_mark: scheduling run %s for %04d-%02d filled every duty", s.RunID, s.Year, s.Month)
	case s.WereAnyDutiesSet:
		return fmt.Sprintf(":warning: scheduling run %s for %04d-%02d only partially filled (some duties unassigned)", s.RunID, s.Year, s.Month)
	default:
		return fmt.Sprintf(":warning: scheduling run %s for %04d-%02d assigned no duties", s.RunID, s.Year, s.Month)
	}
}
