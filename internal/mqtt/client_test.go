package mqtt

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/gridscreen-go/internal/conf"
	"github.com/tphakala/gridscreen-go/internal/errors"
)

func testClient(t *testing.T, broker string) *client {
	t.Helper()

	settings := &conf.Settings{}
	settings.Main.Name = "gridscreen-test"
	settings.MQTT.Broker = broker
	settings.MQTT.Topic = "gridscreen/runs"

	mqttClient, err := NewClient(settings)
	require.NoError(t, err)

	c, ok := mqttClient.(*client)
	require.True(t, ok)

	// Stop any paho retry loop a failed connect attempt leaves behind.
	t.Cleanup(func() {
		if c.internalClient != nil {
			c.internalClient.Disconnect(0)
		}
	})
	return c
}

// closedPort returns a loopback address that refuses connections.
func closedPort(t *testing.T) string {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())
	return addr
}

func TestNewClient(t *testing.T) {
	t.Parallel()

	settings := &conf.Settings{}
	settings.Main.Name = "gridscreen-node"
	settings.MQTT.Broker = "tcp://broker.local:1883"
	settings.MQTT.Topic = "gridscreen/runs"
	settings.MQTT.Username = "user"
	settings.MQTT.Retain = true

	mqttClient, err := NewClient(settings)
	require.NoError(t, err)

	c, ok := mqttClient.(*client)
	require.True(t, ok)
	assert.Equal(t, "tcp://broker.local:1883", c.config.Broker)
	assert.Equal(t, "gridscreen-node", c.config.ClientID)
	assert.Equal(t, "gridscreen/runs", c.config.Topic)
	assert.True(t, c.config.Retain)
	assert.Equal(t, 30*time.Second, c.config.ConnectTimeout)
	assert.False(t, mqttClient.IsConnected())
}

func TestNewClientWithoutBroker(t *testing.T) {
	t.Parallel()

	settings := &conf.Settings{}
	_, err := NewClient(settings)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	config := DefaultConfig()
	assert.Equal(t, 5*time.Second, config.ReconnectCooldown)
	assert.Equal(t, 30*time.Second, config.ConnectTimeout)
	assert.Equal(t, 10*time.Second, config.PublishTimeout)
	assert.Equal(t, 250*time.Millisecond, config.DisconnectTimeout)
}

func TestConnectInvalidBrokerURL(t *testing.T) {
	t.Parallel()

	c := testClient(t, "://not-a-url")

	err := c.Connect(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
	assert.False(t, c.IsConnected())
}

func TestConnectUnresolvableHost(t *testing.T) {
	t.Parallel()

	c := testClient(t, "tcp://unresolvable.invalid:1883")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := c.Connect(ctx)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryMQTTConnection))
	assert.False(t, c.IsConnected())
}

func TestConnectCooldown(t *testing.T) {
	t.Parallel()

	c := testClient(t, "tcp://127.0.0.1:1883")
	c.lastConnAttempt = time.Now()

	err := c.Connect(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryMQTTConnection))
	assert.Contains(t, err.Error(), "too recent")
}

func TestConnectTimeoutOnClosedPort(t *testing.T) {
	t.Parallel()

	c := testClient(t, "tcp://"+closedPort(t))
	c.config.ConnectTimeout = 250 * time.Millisecond

	err := c.Connect(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryMQTTConnection))
	assert.False(t, c.IsConnected())
}

func TestPublishWhileDisconnected(t *testing.T) {
	t.Parallel()

	c := testClient(t, "tcp://127.0.0.1:1883")

	err := c.Publish(context.Background(), "gridscreen/runs", "payload")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryMQTTPublish))
	assert.Contains(t, err.Error(), "not connected")
}

func TestPublishCancelledContext(t *testing.T) {
	t.Parallel()

	c := testClient(t, "tcp://127.0.0.1:1883")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.Publish(ctx, "gridscreen/runs", "payload")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDisconnectWithoutConnect(t *testing.T) {
	t.Parallel()

	c := testClient(t, "tcp://127.0.0.1:1883")
	assert.NotPanics(t, c.Disconnect)
}

func TestTestConnectionUnreachableBroker(t *testing.T) {
	t.Parallel()

	c := testClient(t, "tcp://"+closedPort(t))
	c.config.ConnectTimeout = 250 * time.Millisecond

	results := c.TestConnection(context.Background())
	require.Len(t, results, 1, "publish stage is skipped when connect fails")
	assert.Equal(t, StageConnect, results[0].Stage)
	assert.False(t, results[0].Success)
	assert.NotEmpty(t, results[0].Message)
}
