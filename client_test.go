package bus6

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bus6/bus6-go/config"
	"github.com/bus6/bus6-go/health"
	"github.com/bus6/bus6-go/messaging"
)

func testConfig() config.Config {
	return config.Config{
		Host:                  "localhost",
		Port:                  5672,
		User:                  "guest",
		Password:              "guest",
		VirtualHost:           "/",
		ConnectionName:        "bus6-test",
		MaxConnectionLifetime: time.Minute,
		SeparateConnections:   true,
		PrefetchCount:         10,
	}
}

func TestNewClient(t *testing.T) {
	t.Run("wires all components", func(t *testing.T) {
		client, err := NewClient(testConfig())
		require.NoError(t, err)
		t.Cleanup(func() { _ = client.Close() })

		assert.NotNil(t, client.Publisher())
		assert.NotNil(t, client.Subscriber())
		assert.NotNil(t, client.Dispatcher())
		assert.NotNil(t, client.Registry())
		assert.NotNil(t, client.Routes())
		assert.Equal(t, "bus6-test", client.Config().ConnectionName)
	})

	t.Run("rejects invalid configuration", func(t *testing.T) {
		cfg := testConfig()
		cfg.Port = 0

		_, err := NewClient(cfg)
		assert.Error(t, err)
	})

	t.Run("uses a provided route registry", func(t *testing.T) {
		routes := messaging.NewRouteRegistry()
		require.NoError(t, routes.Register("OrderPlaced", messaging.Route{Exchange: "commerce", RoutingKey: "orders"}))

		client, err := NewClient(testConfig(), WithRouteRegistry(routes))
		require.NoError(t, err)
		t.Cleanup(func() { _ = client.Close() })

		assert.Equal(t, "commerce", client.Routes().Resolve("OrderPlaced").Exchange)
	})
}

func TestClientClose(t *testing.T) {
	t.Run("is idempotent", func(t *testing.T) {
		client, err := NewClient(testConfig())
		require.NoError(t, err)

		require.NoError(t, client.Close())
		require.NoError(t, client.Close())
	})
}

func TestClientCheckHealth(t *testing.T) {
	t.Run("reports a cold client as degraded", func(t *testing.T) {
		client, err := NewClient(testConfig())
		require.NoError(t, err)
		t.Cleanup(func() { _ = client.Close() })

		results := client.CheckHealth(context.Background())
		require.Len(t, results, 1)
		assert.Equal(t, health.StatusDegraded, results[0].Status)
	})

	t.Run("reports a closed client as unhealthy", func(t *testing.T) {
		client, err := NewClient(testConfig())
		require.NoError(t, err)
		require.NoError(t, client.Close())

		results := client.CheckHealth(context.Background())
		require.Len(t, results, 1)
		assert.Equal(t, health.StatusUnhealthy, results[0].Status)
	})
}
