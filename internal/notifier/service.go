package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/ariefcatur/go-storefront-orders.git/internal/events"
	kafkax "github.com/ariefcatur/go-storefront-orders.git/internal/kafka"
	"github.com/ariefcatur/go-storefront-orders.git/internal/redisx"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Topics the notifier subscribes to.
var Topics = []string{events.TopicOrderPlaced, events.TopicOrderStatusChanged, events.TopicCartItemAdded}

// State is the Redis side of the notifier: event dedup and the tracking
// cache it keeps fresh.
type State interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	MarkSeen(ctx context.Context, eventID string) error
	InvalidateOrder(ctx context.Context, orderNumber int64) error
}

type RedisState struct {
	Redis   redis.Cmdable
	Service string
}

func (s RedisState) dedupKey(id string) string { return fmt.Sprintf(redisx.KeyDedup, s.Service, id) }

func (s RedisState) Seen(ctx context.Context, eventID string) (bool, error) {
	return redisx.Exists(ctx, s.Redis, s.dedupKey(eventID))
}

func (s RedisState) MarkSeen(ctx context.Context, eventID string) error {
	_, err := redisx.MarkOnce(ctx, s.Redis, s.dedupKey(eventID), redisx.TTLDedup)
	return err
}

func (s RedisState) InvalidateOrder(ctx context.Context, orderNumber int64) error {
	return s.Redis.Del(ctx, fmt.Sprintf(redisx.KeyOrderStatus, orderNumber)).Err()
}

type Service struct {
	State State
	Log   *zap.Logger
}

// Handle dipasang sebagai handler consumer. Returning nil commits the offset.
func (s *Service) Handle(ctx context.Context, m kafkago.Message) error {
	// 1) decode envelope
	var env events.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		// pesan rusak tidak akan pernah sukses; commit saja
		s.Log.Warn("undecodable event", zap.String("topic", m.Topic), zap.Error(err))
		return nil
	}
	if env.EventVersion != events.Version {
		s.Log.Warn("unsupported event version", zap.String("type", env.EventType), zap.Int("version", env.EventVersion))
		return nil
	}

	// 2) dedup via Redis (pakai event_id)
	if seen, err := s.State.Seen(ctx, env.EventID); err != nil {
		s.Log.Warn("dedup lookup failed", zap.String("event_id", env.EventID), zap.Error(err))
	} else if seen {
		return nil
	}

	// 3) proses per tipe
	var err error
	switch env.EventType {
	case events.EventOrderPlaced:
		err = s.orderPlaced(ctx, env)
	case events.EventOrderStatusChanged:
		err = s.statusChanged(ctx, env)
	case events.EventCartItemAdded:
		err = s.cartItemAdded(env)
	default:
		return nil // ignore
	}
	if err != nil {
		return err
	}

	if err := s.State.MarkSeen(ctx, env.EventID); err != nil {
		s.Log.Warn("dedup mark failed", zap.String("event_id", env.EventID), zap.Error(err))
	}
	return nil
}

func (s *Service) orderPlaced(ctx context.Context, env events.Envelope) error {
	p, err := kafkax.UnwrapPayload[events.OrderPlacedPayload](env.Payload)
	if err != nil {
		s.badPayload(env, err)
		return nil
	}
	qty := 0
	for _, it := range p.Items {
		qty += it.Quantity
	}
	s.Log.Info("new order",
		zap.Int64("order_number", p.OrderNumber),
		zap.Int("lines", len(p.Items)),
		zap.Int("quantity", qty),
		zap.String("products_total", p.TotalAmount.String()),
		zap.String("shipping_cost", p.ShippingCost.String()),
		zap.String("trace_id", env.TraceID))
	return s.State.InvalidateOrder(ctx, p.OrderNumber)
}

func (s *Service) statusChanged(ctx context.Context, env events.Envelope) error {
	p, err := kafkax.UnwrapPayload[events.OrderStatusChangedPayload](env.Payload)
	if err != nil {
		s.badPayload(env, err)
		return nil
	}
	s.Log.Info("order status changed",
		zap.Int64("order_number", p.OrderNumber),
		zap.String("from", p.From),
		zap.String("to", p.To),
		zap.Time("changed_at", p.ChangedAt))
	return s.State.InvalidateOrder(ctx, p.OrderNumber)
}

func (s *Service) cartItemAdded(env events.Envelope) error {
	p, err := kafkax.UnwrapPayload[events.CartItemAddedPayload](env.Payload)
	if err != nil {
		s.badPayload(env, err)
		return nil
	}
	s.Log.Info("cart item added",
		zap.String("product_id", p.ProductID),
		zap.String("color", p.Color),
		zap.String("size", p.Size),
		zap.Int("quantity", p.Quantity))
	return nil
}

func (s *Service) badPayload(env events.Envelope, err error) {
	s.Log.Warn("bad event payload", zap.String("event_id", env.EventID), zap.String("type", env.EventType), zap.Error(err))
}
