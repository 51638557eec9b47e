package notify_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perimeterhq/tenantd/internal/notify"
)

type mockSlackAPI struct {
	channels []string
	options  [][]slack.MsgOption
	err      error
}

func (m *mockSlackAPI) PostMessageContext(_ context.Context, channelID string, options ...slack.MsgOption) (string, string, error) {
	m.channels = append(m.channels, channelID)
	m.options = append(m.options, options)
	return channelID, "ts", m.err
}

func TestSweepCompleted(t *testing.T) {
	t.Parallel()

	t.Run("posts_summary", func(t *testing.T) {
		t.Parallel()

		api := &mockSlackAPI{}
		notifier := notify.NewSlackNotifier(api, "#audit-ops", zerolog.Nop())

		notifier.SweepCompleted(context.Background(), 42)

		require.Len(t, api.channels, 1)
		assert.Equal(t, "#audit-ops", api.channels[0])
	})

	t.Run("silent_when_nothing_deleted", func(t *testing.T) {
		t.Parallel()

		api := &mockSlackAPI{}
		notifier := notify.NewSlackNotifier(api, "#audit-ops", zerolog.Nop())

		notifier.SweepCompleted(context.Background(), 0)

		assert.Empty(t, api.channels)
	})
}

func TestSweepFailed(t *testing.T) {
	t.Parallel()

	api := &mockSlackAPI{}
	notifier := notify.NewSlackNotifier(api, "#audit-ops", zerolog.Nop())

	notifier.SweepFailed(context.Background(), errors.New("pg: connection refused"))

	require.Len(t, api.channels, 1)
	assert.Equal(t, "#audit-ops", api.channels[0])
}

func TestPostFailureIsSwallowed(t *testing.T) {
	t.Parallel()

	api := &mockSlackAPI{err: errors.New("slack: channel_not_found")}
	notifier := notify.NewSlackNotifier(api, "#audit-ops", zerolog.Nop())

	// Notification failures must never propagate into the sweep.
	notifier.SweepFailed(context.Background(), errors.New("sweep error"))
	notifier.SweepCompleted(context.Background(), 7)

	assert.Len(t, api.channels, 2)
}
