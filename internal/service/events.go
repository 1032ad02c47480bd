// Package service composes the trading engine with persistence, caching,
// eventing, and notification. Services own the write-behind path: the engine
// mutates in memory, services flush the results to Postgres and Redis.
package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/outcomefi/engine/internal/domain"
)

// Redis channels and the durable stream engine events are published on.
const (
	ChannelOrders  = "ch:orders"
	ChannelTrades  = "ch:trades"
	ChannelAMM     = "ch:amm"
	ChannelMarkets = "ch:markets"
	EventStream    = "stream:events"
)

// publishTimeout bounds each fire-and-forget publish.
const publishTimeout = 5 * time.Second

// EventPublisher implements domain.EventSink on top of the signal bus. Each
// event gets a uuid, is published on its type's pub/sub channel for live
// subscribers, and is appended to the durable event stream for replay.
// Publishing is fire-and-forget: failures are logged and never propagate to
// the operation that emitted the event.
type EventPublisher struct {
	bus    domain.SignalBus
	logger *slog.Logger
}

// NewEventPublisher creates an EventPublisher backed by the given bus.
func NewEventPublisher(bus domain.SignalBus, logger *slog.Logger) *EventPublisher {
	return &EventPublisher{bus: bus, logger: logger}
}

// Emit publishes the event asynchronously.
func (p *EventPublisher) Emit(evt domain.Event) {
	evt.ID = uuid.New().String()

	payload, err := json.Marshal(evt)
	if err != nil {
		p.logger.Error("events: marshal failed",
			slog.String("type", string(evt.Type)),
			slog.String("error", err.Error()),
		)
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()

		channel := channelFor(evt.Type)
		if err := p.bus.Publish(ctx, channel, payload); err != nil {
			p.logger.Warn("events: publish failed",
				slog.String("channel", channel),
				slog.String("type", string(evt.Type)),
				slog.String("error", err.Error()),
			)
		}
		if err := p.bus.StreamAppend(ctx, EventStream, payload); err != nil {
			p.logger.Warn("events: stream append failed",
				slog.String("type", string(evt.Type)),
				slog.String("error", err.Error()),
			)
		}
	}()
}

func channelFor(t domain.EventType) string {
	switch t {
	case domain.EventOrderPlaced, domain.EventOrderCancelled:
		return ChannelOrders
	case domain.EventTradeExecuted:
		return ChannelTrades
	case domain.EventPoolCreated, domain.EventLiquidityAdded,
		domain.EventLiquidityRemoved, domain.EventSwapExecuted,
		domain.EventClaimsWithdrawn:
		return ChannelAMM
	default:
		return ChannelMarkets
	}
}

// Compile-time interface check.
var _ domain.EventSink = (*EventPublisher)(nil)
