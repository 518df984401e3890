package background

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/byteowlz/pagebridge/internal/messaging"
)

func TestListener_LogsNotifications(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	l := New(zap.New(core))
	sender := messaging.Sender{ID: "tab-1"}

	assert.Nil(t, l.OnMessage(context.Background(), messaging.Message{
		Action: messaging.ActionPageLoaded,
		URL:    "https://example.com/",
	}, sender))
	assert.Nil(t, l.OnMessage(context.Background(), messaging.Message{
		Action:   messaging.ActionElementFound,
		Selector: "div",
		Count:    12,
	}, sender))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "page loaded", entries[0].Message)
	assert.Equal(t, "https://example.com/", entries[0].ContextMap()["url"])
	assert.Equal(t, "elements found", entries[1].Message)
	assert.Equal(t, int64(12), entries[1].ContextMap()["count"])
	assert.Equal(t, "div", entries[1].ContextMap()["selector"])
}

func TestListener_IgnoresOtherActions(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := New(zap.New(core))

	assert.Nil(t, l.OnMessage(context.Background(), messaging.Message{Action: messaging.ActionExtractContent, Mode: "Basic"}, messaging.Sender{}))
	assert.Nil(t, l.OnMessage(context.Background(), messaging.Message{Action: "ping"}, messaging.Sender{}))
	assert.Zero(t, logs.Len())
}

func TestListener_OverBusDoesNotAnswer(t *testing.T) {
	bus := messaging.NewBus()
	bus.AddListener(New(nil))

	_, err := bus.SendMessage(context.Background(), messaging.Message{Action: messaging.ActionPageLoaded}, messaging.Sender{})
	assert.ErrorIs(t, err, messaging.ErrNoResponse)
}
