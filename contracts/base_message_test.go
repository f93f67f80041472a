package contracts

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBaseMessage(t *testing.T) {
	before := time.Now().UTC()
	msg := NewBaseMessage("OrderPlaced")
	after := time.Now().UTC()

	t.Run("generates a unique id", func(t *testing.T) {
		_, err := uuid.Parse(msg.GetID())
		assert.NoError(t, err)
		assert.NotEqual(t, msg.GetID(), NewBaseMessage("OrderPlaced").GetID())
	})

	t.Run("stamps the creation time in UTC", func(t *testing.T) {
		assert.Equal(t, time.UTC, msg.GetTimestamp().Location())
		assert.False(t, msg.GetTimestamp().Before(before))
		assert.False(t, msg.GetTimestamp().After(after))
	})

	t.Run("carries the declared type", func(t *testing.T) {
		assert.Equal(t, "OrderPlaced", msg.GetType())
	})

	t.Run("correlation id starts empty and is settable", func(t *testing.T) {
		m := NewBaseMessage("OrderPlaced")
		assert.Empty(t, m.GetCorrelationID())

		m.SetCorrelationID("corr-1")
		assert.Equal(t, "corr-1", m.GetCorrelationID())
	})
}

func TestBaseMessageJSON(t *testing.T) {
	msg := BaseMessage{
		ID:            "m-1",
		Timestamp:     time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC),
		Type:          "OrderPlaced",
		CorrelationID: "corr-9",
	}

	data, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"id": "m-1",
		"timestamp": "2026-02-01T08:00:00Z",
		"type": "OrderPlaced",
		"correlationId": "corr-9"
	}`, string(data))
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("handler", "must not be nil")
	assert.Equal(t, "handler", err.Field)
	assert.Contains(t, err.Error(), "handler")
	assert.Contains(t, err.Error(), "must not be nil")
}
