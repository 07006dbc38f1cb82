package mqtt

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/tphakala/gridscreen-go/internal/errors"
)

// client implements the Client interface over paho.
type client struct {
	config          Config
	internalClient  mqtt.Client
	lastConnAttempt time.Time
	mu              sync.Mutex
}

// Connect attempts to establish a connection to the MQTT broker. The broker
// hostname is resolved first so an unreachable DNS name fails here instead
// of spinning inside paho's retry loop.
func (c *client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if since := time.Since(c.lastConnAttempt); since < c.config.ReconnectCooldown {
		return errors.Newf("connection attempt too recent, last attempt was %v ago", since.Round(time.Millisecond)).
			Component("mqtt").
			Category(errors.CategoryMQTTConnection).
			Context("broker", c.config.Broker).
			Build()
	}
	c.lastConnAttempt = time.Now()

	u, err := url.Parse(c.config.Broker)
	if err != nil {
		return errors.New(err).
			Component("mqtt").
			Category(errors.CategoryConfiguration).
			Context("broker", c.config.Broker).
			Build()
	}

	host := u.Hostname()
	if net.ParseIP(host) == nil {
		if _, err := net.DefaultResolver.LookupHost(ctx, host); err != nil {
			return errors.New(err).
				Component("mqtt").
				Category(errors.CategoryMQTTConnection).
				Context("broker", c.config.Broker).
				Context("host", host).
				Build()
		}
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(c.config.Broker)
	opts.SetClientID(c.config.ClientID)
	opts.SetUsername(c.config.Username)
	opts.SetPassword(c.config.Password)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetOnConnectHandler(c.onConnect)
	opts.SetConnectionLostHandler(c.onConnectionLost)

	c.internalClient = mqtt.NewClient(opts)

	token := c.internalClient.Connect()
	if !token.WaitTimeout(c.config.ConnectTimeout) {
		return errors.Newf("connection timeout after %v", c.config.ConnectTimeout).
			Component("mqtt").
			Category(errors.CategoryMQTTConnection).
			Context("broker", c.config.Broker).
			Build()
	}
	if err := token.Error(); err != nil {
		return errors.New(err).
			Component("mqtt").
			Category(errors.CategoryMQTTConnection).
			Context("broker", c.config.Broker).
			Build()
	}

	return nil
}

// Publish sends a message to the specified topic on the MQTT broker.
func (c *client) Publish(ctx context.Context, topic, payload string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if !c.connected() {
		return errors.Newf("not connected to MQTT broker").
			Component("mqtt").
			Category(errors.CategoryMQTTPublish).
			Context("broker", c.config.Broker).
			Context("topic", topic).
			Build()
	}

	token := c.internalClient.Publish(topic, 0, c.config.Retain, payload)
	if !token.WaitTimeout(c.config.PublishTimeout) {
		return errors.Newf("publish timeout after %v", c.config.PublishTimeout).
			Component("mqtt").
			Category(errors.CategoryMQTTPublish).
			Context("topic", topic).
			Build()
	}
	if err := token.Error(); err != nil {
		return errors.New(err).
			Component("mqtt").
			Category(errors.CategoryMQTTPublish).
			Context("topic", topic).
			Build()
	}

	mqttLogger.Debug("Message published", "topic", topic, "bytes", len(payload))
	return nil
}

// IsConnected reports whether the client currently holds a broker connection.
func (c *client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected()
}

// connected is the lock-free variant for callers already holding mu.
func (c *client) connected() bool {
	return c.internalClient != nil && c.internalClient.IsConnected()
}

// Disconnect closes the connection to the MQTT broker.
func (c *client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected() {
		c.internalClient.Disconnect(uint(c.config.DisconnectTimeout.Milliseconds()))
		mqttLogger.Info("Disconnected from MQTT broker", "broker", c.config.Broker)
	}
}

func (c *client) onConnect(_ mqtt.Client) {
	mqttLogger.Info("Connected to MQTT broker", "broker", c.config.Broker)
}

func (c *client) onConnectionLost(_ mqtt.Client, err error) {
	mqttLogger.Warn("Connection to MQTT broker lost, paho will reconnect",
		"broker", c.config.Broker, "error", err)
}

// TestConnection runs the staged connectivity check used by the support
// command: a connect attempt, then a probe message on a test subtopic.
func (c *client) TestConnection(ctx context.Context) []TestResult {
	results := make([]TestResult, 0, 2)

	start := time.Now()
	if c.IsConnected() {
		results = append(results, TestResult{
			Success: true,
			Stage:   StageConnect,
			Message: "already connected to " + c.config.Broker,
		})
	} else if err := c.Connect(ctx); err != nil {
		results = append(results, TestResult{
			Stage:     StageConnect,
			Message:   err.Error(),
			ElapsedMs: time.Since(start).Milliseconds(),
		})
		return results
	} else {
		results = append(results, TestResult{
			Success:   true,
			Stage:     StageConnect,
			Message:   "connected to " + c.config.Broker,
			ElapsedMs: time.Since(start).Milliseconds(),
		})
	}

	start = time.Now()
	probe := fmt.Sprintf(`{"test":true,"client_id":%q,"timestamp":%q}`,
		c.config.ClientID, time.Now().Format(time.RFC3339))
	if err := c.Publish(ctx, c.config.Topic+"/test", probe); err != nil {
		results = append(results, TestResult{
			Stage:     StagePublish,
			Message:   err.Error(),
			ElapsedMs: time.Since(start).Milliseconds(),
		})
		return results
	}

	results = append(results, TestResult{
		Success:   true,
		Stage:     StagePublish,
		Message:   "probe message published to " + c.config.Topic + "/test",
		ElapsedMs: time.Since(start).Milliseconds(),
	})
	return results
}
