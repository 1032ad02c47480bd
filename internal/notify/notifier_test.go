package notify

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSender records everything delivered to it.
type fakeSender struct {
	name string
	sent []Notification
	err  error
}

func (f *fakeSender) Send(ctx context.Context, n Notification) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, n)
	return nil
}

func (f *fakeSender) Name() string { return f.name }

func TestNotifierEventFilter(t *testing.T) {
	s := &fakeSender{name: "fake"}
	n := NewNotifier([]Sender{s}, []string{EventMarketClosed}, slog.New(slog.DiscardHandler))

	require.NoError(t, n.Notify(context.Background(), EventMarketClosed, "Market closed", "m1 closed"))
	require.NoError(t, n.Notify(context.Background(), EventArchiveFailed, "Archive failed", "m2 failed"))

	require.Len(t, s.sent, 1)
	assert.Equal(t, EventMarketClosed, s.sent[0].Event)
	assert.Equal(t, "Market closed", s.sent[0].Title)
}

func TestNotifierEmptyFilterAllowsAll(t *testing.T) {
	s := &fakeSender{name: "fake"}
	n := NewNotifier([]Sender{s}, nil, slog.New(slog.DiscardHandler))

	require.NoError(t, n.Notify(context.Background(), EventMarketClosed, "a", "b"))
	require.NoError(t, n.Notify(context.Background(), EventArchiveFailed, "c", "d"))
	assert.Len(t, s.sent, 2)
}

func TestNotifierCollectsSenderFailures(t *testing.T) {
	good := &fakeSender{name: "good"}
	bad := &fakeSender{name: "bad", err: errors.New("webhook down")}
	n := NewNotifier([]Sender{bad, good}, nil, slog.New(slog.DiscardHandler))

	err := n.Notify(context.Background(), EventError, "boom", "details")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad: webhook down")

	// The healthy sender still received the alert.
	require.Len(t, good.sent, 1)
	assert.Equal(t, EventError, good.sent[0].Event)
}

func TestNotifierNoSenders(t *testing.T) {
	n := NewNotifier(nil, nil, slog.New(slog.DiscardHandler))
	assert.NoError(t, n.Notify(context.Background(), EventMarketClosed, "a", "b"))
}

func TestNotificationSeverity(t *testing.T) {
	assert.Equal(t, "error", Notification{Event: EventArchiveFailed}.Severity())
	assert.Equal(t, "error", Notification{Event: EventError}.Severity())
	assert.Equal(t, "info", Notification{Event: EventMarketClosed}.Severity())
	assert.Equal(t, "info", Notification{}.Severity())
}
