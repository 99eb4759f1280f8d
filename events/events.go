// Package events publishes ticket lifecycle events to an AMQP exchange
// for external moderation tooling. Publishing is best-effort: a broker
// outage is logged and never blocks the interaction path.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const exchange = "hom.tickets"

// Kind is the lifecycle transition an event describes.
type Kind string

const (
	TicketCreated  Kind = "ticket.created"
	TicketClosed   Kind = "ticket.closed"
	TicketArchived Kind = "ticket.archived"
)

// TicketEvent is the wire payload.
type TicketEvent struct {
	Kind      Kind      `json:"kind"`
	GuildID   string    `json:"guild_id"`
	ChannelID string    `json:"channel_id"`
	OwnerID   string    `json:"owner_id"`
	ActorID   string    `json:"actor_id"`
	Label     string    `json:"label"`
	Timestamp time.Time `json:"timestamp"`
}

// channel is the slice of *amqp.Channel the publisher uses.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher fans ticket events out to the hom.tickets exchange. A nil
// Publisher is valid and drops every event, so callers never need to
// branch on whether AMQP is configured.
type Publisher struct {
	conn *amqp.Connection
	ch   channel
}

// Connect dials the broker and declares the exchange. An empty URL
// returns a nil publisher and no error.
func Connect(url string) (*Publisher, error) {
	if url == "" {
		return nil, nil
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("events: dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("events: open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, "fanout", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("events: declare exchange: %w", err)
	}

	slog.Info("Connected to AMQP broker", "exchange", exchange)
	return &Publisher{conn: conn, ch: ch}, nil
}

// Publish sends one event. Failures are logged, not returned: the
// ticket flow must not stall on the broker.
func (p *Publisher) Publish(ev TicketEvent) {
	if p == nil {
		return
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	body, err := json.Marshal(ev)
	if err != nil {
		slog.Error("Failed to encode ticket event", "kind", ev.Kind, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = p.ch.PublishWithContext(ctx, exchange, string(ev.Kind), false, false, amqp.Publishing{
		ContentType: "application/json",
		Timestamp:   ev.Timestamp,
		Body:        body,
	})
	if err != nil {
		slog.Error("Failed to publish ticket event", "kind", ev.Kind, "error", err)
	}
}

// Close tears down the channel and connection.
func (p *Publisher) Close() {
	if p == nil {
		return
	}
	_ = p.ch.Close()
	if p.conn != nil {
		_ = p.conn.Close()
	}
}
