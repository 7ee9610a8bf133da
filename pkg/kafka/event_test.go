package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type samplePayload struct {
	ReservationID string `json:"reservation_id"`
	Quantity      int    `json:"quantity"`
}

func TestNewEvent_PopulatesEnvelope(t *testing.T) {
	ev, err := NewEvent("merch.reservation.created", "res-1", "reservation", "merch-service",
		samplePayload{ReservationID: "res-1", Quantity: 3})
	require.NoError(t, err)

	assert.NotEmpty(t, ev.EventID)
	assert.Equal(t, "merch.reservation.created", ev.EventType)
	assert.Equal(t, "res-1", ev.AggregateID)
	assert.Equal(t, "reservation", ev.AggregateType)
	assert.Equal(t, 1, ev.Version)
	assert.False(t, ev.Timestamp.IsZero())
}

func TestEvent_MarshalRoundTrip(t *testing.T) {
	ev, err := NewEvent("merch.stock.adjusted", "2001/M", "stock", "merch-service",
		samplePayload{Quantity: -3})
	require.NoError(t, err)
	ev.WithCorrelationID("corr-7")

	raw, err := ev.Marshal()
	require.NoError(t, err)

	decoded, err := UnmarshalEvent(raw)
	require.NoError(t, err)
	assert.Equal(t, ev.EventID, decoded.EventID)
	assert.Equal(t, "corr-7", decoded.CorrelationID)

	var payload samplePayload
	require.NoError(t, decoded.UnmarshalData(&payload))
	assert.Equal(t, -3, payload.Quantity)
}
