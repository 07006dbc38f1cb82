// Package mqtt publishes screening run summaries to an MQTT broker.
package mqtt

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/tphakala/gridscreen-go/internal/conf"
	"github.com/tphakala/gridscreen-go/internal/errors"
	"github.com/tphakala/gridscreen-go/internal/logging"
)

// Client defines the broker operations the screening service needs.
type Client interface {
	// Connect attempts to connect to the MQTT broker.
	Connect(ctx context.Context) error

	// Publish sends a message to the specified topic on the MQTT broker.
	Publish(ctx context.Context, topic, payload string) error

	// IsConnected reports whether the client currently holds a broker
	// connection.
	IsConnected() bool

	// Disconnect closes the connection to the MQTT broker.
	Disconnect()

	// TestConnection runs a staged connectivity check (connect, then a
	// probe publish) and reports each stage.
	TestConnection(ctx context.Context) []TestResult
}

// Config holds the configuration for the MQTT client.
type Config struct {
	Broker   string
	ClientID string
	Username string
	Password string
	Topic    string // default topic for run summaries
	Retain   bool

	ReconnectCooldown time.Duration
	ConnectTimeout    time.Duration
	PublishTimeout    time.Duration
	DisconnectTimeout time.Duration
}

// DefaultConfig returns a Config with reasonable default values.
func DefaultConfig() Config {
	return Config{
		ReconnectCooldown: 5 * time.Second,
		ConnectTimeout:    30 * time.Second,
		PublishTimeout:    10 * time.Second,
		DisconnectTimeout: 250 * time.Millisecond,
	}
}

// Connectivity test stages.
const (
	StageConnect = "connect"
	StagePublish = "publish"
)

// TestResult reports one stage of a broker connectivity test.
type TestResult struct {
	Success   bool   `json:"success"`
	Stage     string `json:"stage"`
	Message   string `json:"message"`
	ElapsedMs int64  `json:"elapsed_ms"`
}

var (
	mqttLogger   *slog.Logger
	mqttLevelVar = new(slog.LevelVar)
)

func init() {
	var err error
	mqttLevelVar.Set(slog.LevelInfo)

	mqttLogger, _, err = logging.NewFileLogger("logs/mqtt.log", "mqtt", mqttLevelVar)
	if err != nil {
		logging.Error("Failed to initialize MQTT file logger", "error", err)
		mqttLogger = logging.ForService("mqtt")
		if mqttLogger == nil {
			fbHandler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: mqttLevelVar})
			mqttLogger = slog.New(fbHandler).With("service", "mqtt")
		}
	}
}

// NewClient creates an MQTT client from the application settings.
func NewClient(settings *conf.Settings) (Client, error) {
	if settings.MQTT.Broker == "" {
		return nil, errors.Newf("MQTT enabled without a broker URL").
			Component("mqtt").
			Category(errors.CategoryConfiguration).
			Build()
	}

	config := DefaultConfig()
	config.Broker = settings.MQTT.Broker
	config.ClientID = settings.Main.Name
	config.Username = settings.MQTT.Username
	config.Password = settings.MQTT.Password
	config.Topic = settings.MQTT.Topic
	config.Retain = settings.MQTT.Retain

	return &client{config: config}, nil
}
