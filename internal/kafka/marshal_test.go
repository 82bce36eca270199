package kafka

import (
	"encoding/json"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventHeaders(t *testing.T) {
	m := kafka.Message{Headers: EventHeaders("OrderPlaced", 1)}
	assert.Equal(t, "OrderPlaced", HeaderValue(m, HeaderEventType))
	assert.Equal(t, "1", HeaderValue(m, HeaderEventVersion))
	assert.Equal(t, "", HeaderValue(m, "missing"))
}

func TestUnwrapPayload(t *testing.T) {
	type payload struct {
		OrderNumber int64 `json:"order_number"`
	}
	p, err := UnwrapPayload[payload](json.RawMessage(`{"order_number":42}`))
	require.NoError(t, err)
	assert.Equal(t, int64(42), p.OrderNumber)

	_, err = UnwrapPayload[payload](json.RawMessage(`{`))
	assert.ErrorContains(t, err, "decode payload")
}

func TestProducer_PublishAfterCloseIsDropped(t *testing.T) {
	p := NewProducer([]string{"localhost:9092"}, 1, nil)
	assert.True(t, p.Publish("t", nil, []byte("a")))
	assert.False(t, p.Publish("t", nil, []byte("b")), "inbox full")

	p.Close()
	p.Close()
	assert.False(t, p.Publish("t", nil, []byte("c")))
}
