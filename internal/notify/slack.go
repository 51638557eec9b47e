package notify

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/slack-go/slack"
)

// SlackAPI is the slice of the Slack client used here, extracted for
// testing. *slack.Client satisfies it.
type SlackAPI interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// SlackNotifier posts retention sweep summaries to an operations channel.
// It is optional; main constructs it only when a bot token is configured.
type SlackNotifier struct {
	api     SlackAPI
	channel string
	logger  zerolog.Logger
}

func NewSlackNotifier(api SlackAPI, channel string, logger zerolog.Logger) *SlackNotifier {
	return &SlackNotifier{
		api:     api,
		channel: channel,
		logger:  logger,
	}
}

// SweepCompleted posts a summary. Empty sweeps stay quiet.
func (n *SlackNotifier) SweepCompleted(ctx context.Context, deleted int64) {
	if deleted == 0 {
		return
	}
	n.post(ctx, fmt.Sprintf("audit retention sweep removed %d entries", deleted))
}

func (n *SlackNotifier) SweepFailed(ctx context.Context, err error) {
	n.post(ctx, fmt.Sprintf(":warning: audit retention sweep failed: %v", err))
}

func (n *SlackNotifier) post(ctx context.Context, text string) {
	_, _, err := n.api.PostMessageContext(ctx, n.channel, slack.MsgOptionText(text, false))
	if err != nil {
		n.logger.Warn().Err(err).Str("channel", n.channel).Msg("slack notification failed")
	}
}
