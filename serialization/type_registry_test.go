package serialization

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bus6/bus6-go/contracts"
)

func TestTypeRegistry(t *testing.T) {
	t.Run("creates fresh instances of registered types", func(t *testing.T) {
		registry := NewTypeRegistry()
		require.NoError(t, registry.Register("PaymentReceived", &paymentReceived{}))

		first, err := registry.CreateInstance("PaymentReceived")
		require.NoError(t, err)
		second, err := registry.CreateInstance("PaymentReceived")
		require.NoError(t, err)

		require.IsType(t, &paymentReceived{}, first)
		assert.NotSame(t, first, second)
	})

	t.Run("re-registering the same type is a no-op", func(t *testing.T) {
		registry := NewTypeRegistry()
		require.NoError(t, registry.Register("PaymentReceived", &paymentReceived{}))
		assert.NoError(t, registry.Register("PaymentReceived", &paymentReceived{}))
	})

	t.Run("rejects rebinding a name to a different type", func(t *testing.T) {
		registry := NewTypeRegistry()
		require.NoError(t, registry.Register("Conflict", &paymentReceived{}))

		err := registry.Register("Conflict", &contracts.BaseMessage{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already registered")
	})

	t.Run("validates arguments", func(t *testing.T) {
		registry := NewTypeRegistry()
		assert.Error(t, registry.Register("", &paymentReceived{}))
		assert.Error(t, registry.Register("NilType", nil))
	})

	t.Run("unknown lookups fail", func(t *testing.T) {
		registry := NewTypeRegistry()
		assert.False(t, registry.IsRegistered("Missing"))

		_, err := registry.CreateInstance("Missing")
		assert.Error(t, err)
	})

	t.Run("lists registered names", func(t *testing.T) {
		registry := NewTypeRegistry()
		require.NoError(t, registry.Register("A", &paymentReceived{}))
		require.NoError(t, registry.Register("B", &contracts.BaseMessage{}))

		assert.ElementsMatch(t, []string{"A", "B"}, registry.ListTypes())
	})
}
