package events

import (
	"context"
	"errors"
	"github.com/ariefcatur/go-storefront-orders.git/internal/cart"
	kafkax "github.com/ariefcatur/go-storefront-orders.git/internal/kafka"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"time"
)

var ErrDropped = errors.New("event dropped")

// Sink is where envelopes end up; *kafka.Producer satisfies it.
type Sink interface {
	Publish(topic string, key, value []byte, headers ...kafkago.Header) bool
}

// Publisher wraps payloads in an Envelope and hands them to the Sink.
// Publishing never blocks the caller.
type Publisher struct {
	Sink    Sink
	Service string
}

func (p *Publisher) publish(ctx context.Context, topic, eventType, correlation string, key []byte, payload any) error {
	ev := Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  Version,
		OccurredAt:    time.Now().UTC(),
		Producer:      p.Service,
		TraceID:       middleware.GetReqID(ctx),
		CorrelationID: correlation,
		Payload:       kafkax.MustMarshal(payload),
	}
	if !p.Sink.Publish(topic, key, kafkax.MustMarshal(ev), kafkax.EventHeaders(eventType, Version)...) {
		return ErrDropped
	}
	return nil
}

func (p *Publisher) OrderPlaced(ctx context.Context, pl OrderPlacedPayload) error {
	return p.publish(ctx, TopicOrderPlaced, EventOrderPlaced, pl.OrderID, OrderKey(pl.OrderNumber), pl)
}

func (p *Publisher) OrderStatusChanged(ctx context.Context, pl OrderStatusChangedPayload) error {
	return p.publish(ctx, TopicOrderStatusChanged, EventOrderStatusChanged, "", OrderKey(pl.OrderNumber), pl)
}

// ItemAdded makes Publisher a cart.Notifier.
func (p *Publisher) ItemAdded(ctx context.Context, li cart.LineItem) error {
	return p.publish(ctx, TopicCartItemAdded, EventCartItemAdded, li.ID, []byte(li.ProductID), CartItemAddedPayload{
		LineID:    li.ID,
		ProductID: li.ProductID,
		Color:     li.Color,
		Size:      li.Size,
		Quantity:  li.Quantity,
	})
}
