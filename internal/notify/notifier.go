// Package notify delivers operational alerts about engine events (market
// lifecycle transitions, archive failures) to chat channels. Alerts are
// dispatched to every registered sender and filtered by event type so
// operators receive only the alerts they care about.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Well-known engine event types carried on notifications. The config
// [notify] events list selects among these.
const (
	EventMarketClosed  = "market_closed"
	EventArchiveFailed = "archive_failed"
	EventError         = "error"
)

// Notification is one operational alert about an engine event.
type Notification struct {
	// Event is the engine event type, e.g. "market_closed".
	Event   string
	Title   string
	Message string
}

// Severity buckets events for sender-side formatting: failures render as
// alerts, lifecycle transitions as plain notices.
func (n Notification) Severity() string {
	switch n.Event {
	case EventArchiveFailed, EventError:
		return "error"
	default:
		return "info"
	}
}

// Sender is the interface that each notification channel must implement.
type Sender interface {
	// Send delivers one notification.
	Send(ctx context.Context, n Notification) error
	// Name returns a human-readable identifier for the sender (e.g. "telegram").
	Name() string
}

// Notifier dispatches notifications to one or more Senders. It maintains a
// set of allowed event types; Notify only forwards alerts whose event type is
// in the allowed set.
type Notifier struct {
	senders []Sender
	events  map[string]bool // allowed event types
	logger  *slog.Logger
}

// NewNotifier creates a Notifier that will deliver to the given senders. Only
// events whose type appears in the events slice will be forwarded by Notify.
// If events is empty, all event types are allowed.
func NewNotifier(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		allowed[strings.TrimSpace(e)] = true
	}
	return &Notifier{
		senders: senders,
		events:  allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// Notify sends an alert to all senders if the event type is in the allowed
// list. If no events were configured (empty list), all events pass.
func (n *Notifier) Notify(ctx context.Context, event, title, message string) error {
	if len(n.events) > 0 && !n.events[event] {
		n.logger.DebugContext(ctx, "event filtered out",
			slog.String("event", event),
		)
		return nil
	}

	return n.dispatch(ctx, Notification{
		Event:   event,
		Title:   title,
		Message: message,
	})
}

// dispatch iterates over all senders and delivers the notification. Errors
// from individual senders are collected and returned as a combined error; a
// single sender failure does not prevent delivery to the remaining senders.
func (n *Notifier) dispatch(ctx context.Context, note Notification) error {
	if len(n.senders) == 0 {
		return nil
	}

	var errs []string
	for _, s := range n.senders {
		if err := s.Send(ctx, note); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("event", note.Event),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Sprintf("%s: %v", s.Name(), err))
		} else {
			n.logger.DebugContext(ctx, "notification sent",
				slog.String("sender", s.Name()),
				slog.String("event", note.Event),
				slog.String("title", note.Title),
			)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}
