package notifier

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ariefcatur/go-storefront-orders.git/internal/events"
	kafkax "github.com/ariefcatur/go-storefront-orders.git/internal/kafka"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type memState struct {
	seen        map[string]bool
	invalidated []int64
	invErr      error
}

func newMemState() *memState { return &memState{seen: map[string]bool{}} }

func (m *memState) Seen(_ context.Context, id string) (bool, error) { return m.seen[id], nil }

func (m *memState) MarkSeen(_ context.Context, id string) error {
	m.seen[id] = true
	return nil
}

func (m *memState) InvalidateOrder(_ context.Context, n int64) error {
	if m.invErr != nil {
		return m.invErr
	}
	m.invalidated = append(m.invalidated, n)
	return nil
}

func message(t *testing.T, id, eventType string, payload any) kafka.Message {
	t.Helper()
	return kafka.Message{Value: kafkax.MustMarshal(events.Envelope{
		EventID:      id,
		EventType:    eventType,
		EventVersion: events.Version,
		OccurredAt:   time.Now().UTC(),
		Payload:      kafkax.MustMarshal(payload),
	})}
}

func newService(st State) (*Service, *observer.ObservedLogs) {
	core, logs := observer.New(zap.InfoLevel)
	return &Service{State: st, Log: zap.New(core)}, logs
}

func TestHandle_OrderPlaced(t *testing.T) {
	st := newMemState()
	svc, logs := newService(st)

	m := message(t, "e1", events.EventOrderPlaced, events.OrderPlacedPayload{
		OrderNumber:  1042,
		Items:        []events.OrderItem{{ProductID: "p1", Quantity: 2}, {ProductID: "p2", Quantity: 1}},
		TotalAmount:  decimal.NewFromInt(250),
		ShippingCost: decimal.NewFromInt(30),
	})
	require.NoError(t, svc.Handle(context.Background(), m))

	assert.Equal(t, []int64{1042}, st.invalidated)
	assert.True(t, st.seen["e1"])
	entries := logs.FilterMessage("new order").All()
	require.Len(t, entries, 1)
	assert.EqualValues(t, 3, entries[0].ContextMap()["quantity"])
}

func TestHandle_DuplicateSkipped(t *testing.T) {
	st := newMemState()
	svc, _ := newService(st)
	m := message(t, "e1", events.EventOrderStatusChanged, events.OrderStatusChangedPayload{OrderNumber: 7, From: "pending", To: "processing"})

	require.NoError(t, svc.Handle(context.Background(), m))
	require.NoError(t, svc.Handle(context.Background(), m))
	assert.Equal(t, []int64{7}, st.invalidated)
}

func TestHandle_CacheFailureRetries(t *testing.T) {
	st := newMemState()
	st.invErr = errors.New("redis down")
	svc, _ := newService(st)
	m := message(t, "e1", events.EventOrderStatusChanged, events.OrderStatusChangedPayload{OrderNumber: 7})

	assert.Error(t, svc.Handle(context.Background(), m))
	assert.False(t, st.seen["e1"], "failed events must stay eligible for redelivery")
}

func TestHandle_IgnoresGarbage(t *testing.T) {
	st := newMemState()
	svc, logs := newService(st)

	assert.NoError(t, svc.Handle(context.Background(), kafka.Message{Value: []byte("{not json")}))
	assert.NoError(t, svc.Handle(context.Background(), message(t, "e2", "SomethingElse", map[string]string{})))
	assert.NoError(t, svc.Handle(context.Background(), message(t, "e3", events.EventCartItemAdded, "oops")))
	assert.Empty(t, st.invalidated)
	assert.Equal(t, 1, logs.FilterMessage("bad event payload").Len())
}

func TestHandle_CartItemAdded(t *testing.T) {
	st := newMemState()
	svc, logs := newService(st)
	m := message(t, "e4", events.EventCartItemAdded, events.CartItemAddedPayload{ProductID: "p1", Color: "red", Quantity: 3})

	require.NoError(t, svc.Handle(context.Background(), m))
	assert.Equal(t, 1, logs.FilterMessage("cart item added").Len())
	assert.True(t, st.seen["e4"])
}
