// Settings structs plus loading of the configuration file with defaults.
package conf

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
)

//go:embed config.yaml
var configFiles embed.FS

// DatasetSource identifies where a static GeoJSON dataset comes from.
// Path takes precedence; URL is used when Path is empty.
type DatasetSource struct {
	Path string // local GeoJSON file
	URL  string // HTTP(S) endpoint serving the GeoJSON document
}

// DatasetsSettings contains the static dataset sources and cache behavior.
type DatasetsSettings struct {
	Substations     DatasetSource // substation feature collection
	Lines           DatasetSource // transmission line feature collection
	CacheTTL        int           // minutes a remote payload stays fresh
	RefreshInterval int           // minimum seconds between remote refetch attempts
}

// ScreeningSettings contains settings for coordinate conversion and run behavior.
type ScreeningSettings struct {
	UTMZone        int  // UTM zone of uploaded projected coordinates
	North          bool // true for the northern hemisphere false northing
	FallbackCenter struct {
		Latitude  float64 // map center when a run yields no points
		Longitude float64
	}
}

// WebServerSettings contains settings for the JSON API server.
type WebServerSettings struct {
	Enabled bool   // true to enable the API server
	Debug   bool   // true to enable HTTP debug logging
	Port    string // port to listen on
}

// TelemetrySettings contains settings for the Prometheus metrics endpoint.
type TelemetrySettings struct {
	Enabled bool   // true to enable Prometheus compatible telemetry endpoint
	Listen  string // IP address and port to listen on
}

// SentrySettings contains settings for error telemetry.
type SentrySettings struct {
	Enabled bool   // true to enable Sentry error reporting, opt-in
	DSN     string // Sentry project DSN
}

// MQTTSettings contains settings for MQTT integration.
type MQTTSettings struct {
	Enabled  bool   // true to enable MQTT run summaries
	Broker   string // MQTT broker (tcp://host:port)
	Topic    string // topic run summaries are published to
	Username string // MQTT username
	Password string // MQTT password
	Retain   bool   // true to retain the last summary at the broker
}

// NotificationSettings contains settings for push notifications on completed runs.
type NotificationSettings struct {
	Enabled bool     // true to send run notifications
	URLs    []string // shoutrrr service URLs
}

// ExportSettings controls automatic export of screened points after each run.
type ExportSettings struct {
	Enabled bool   // true to export after every run
	Path    string // directory exports are written to
	Format  string // "csv" or "geojson"
}

// OutputSettings contains settings for persistence and export.
type OutputSettings struct {
	SQLite struct {
		Enabled bool   // true to enable sqlite output
		Path    string // path to sqlite database
	}

	MySQL struct {
		Enabled  bool   // true to enable mysql output
		Username string // username for mysql database
		Password string // password for mysql database
		Database string // database name for mysql database
		Host     string // host for mysql database
		Port     string // port for mysql database
	}

	Export ExportSettings // automatic export settings
}

// Settings is the root configuration for the application.
type Settings struct {
	Debug bool // true to enable debug mode

	Main struct {
		Name string    // node name, used in logs, MQTT client ID and the health endpoint
		Log  LogConfig // main log configuration
	}

	Datasets     DatasetsSettings     // static dataset sources
	Screening    ScreeningSettings    // conversion and run behavior
	Output       OutputSettings       // persistence and export
	WebServer    WebServerSettings    // JSON API server
	Telemetry    TelemetrySettings    // Prometheus endpoint
	Sentry       SentrySettings       // error telemetry
	MQTT         MQTTSettings         // MQTT integration
	Notification NotificationSettings // push notifications
}

// LogConfig configures a single rotated log file.
type LogConfig struct {
	Enabled     bool         // write this log at all
	Path        string       // log file location
	Rotation    RotationType // rotation mode
	MaxSize     int64        // size threshold in bytes for RotationSize
	RotationDay string       // weekday name for RotationWeekly
}

// RotationType selects how log files are rotated.
type RotationType string

const (
	RotationDaily  RotationType = "daily"
	RotationWeekly RotationType = "weekly"
	RotationSize   RotationType = "size"
)

var (
	settingsInstance *Settings
	once             sync.Once
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file, applies defaults, and installs the
// validated result as the process settings.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	if err := readConfig(); err != nil {
		return nil, fmt.Errorf("reading configuration: %w", err)
	}

	settings := &Settings{}
	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("unmarshaling configuration: %w", err)
	}
	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	settingsInstance = settings
	return settings, nil
}

// readConfig points viper at the per-OS config locations and reads the first
// config.yaml it finds, generating one from the embedded template on first
// run.
func readConfig() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return err
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	setDefaultConfig()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return createDefaultConfig()
		}
		return err
	}
	return nil
}

// createDefaultConfig writes the embedded template to the primary config
// location and loads it.
func createDefaultConfig() error {
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return err
	}
	configPath := filepath.Join(configPaths[0], configFileName)

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(configPath, []byte(defaultConfigTemplate()), 0o644); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}

	fmt.Println("Created default configuration at:", configPath)
	return viper.ReadInConfig()
}

// defaultConfigTemplate returns the config.yaml shipped inside the binary.
func defaultConfigTemplate() string {
	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		log.Fatalf("reading embedded config template: %v", err)
	}
	return string(data)
}

// GetSettings returns the currently loaded settings, nil before Load.
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// Setting returns the loaded settings, loading them on first use. It exits
// the process when that first load fails.
func Setting() *Settings {
	once.Do(func() {
		if GetSettings() == nil {
			if _, err := Load(); err != nil {
				log.Fatalf("loading settings: %v", err)
			}
		}
	})
	return GetSettings()
}
