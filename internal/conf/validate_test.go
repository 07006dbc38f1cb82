package conf

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// baseSettings returns a Settings struct populated with the shipped defaults,
// bypassing viper so tests stay hermetic.
func baseSettings(t *testing.T) *Settings {
	t.Helper()
	s := &Settings{}
	s.Main.Name = "GridScreen-Go"
	s.Main.Log.Enabled = true
	s.Main.Log.Path = "logs/gridscreen.log"
	s.Main.Log.Rotation = RotationDaily
	s.Main.Log.MaxSize = 1048576
	s.Main.Log.RotationDay = "Sunday"
	s.Datasets.Substations.Path = "data/subestaciones.geojson"
	s.Datasets.Lines.Path = "data/line.geojson"
	s.Datasets.CacheTTL = 15
	s.Datasets.RefreshInterval = 60
	s.Screening.UTMZone = 30
	s.Screening.North = true
	s.Screening.FallbackCenter.Latitude = 40.4168
	s.Screening.FallbackCenter.Longitude = -3.7038
	s.Output.SQLite.Enabled = true
	s.Output.SQLite.Path = "gridscreen.db"
	s.Output.Export.Format = "csv"
	s.WebServer.Enabled = true
	s.WebServer.Port = "8080"
	s.Telemetry.Listen = "0.0.0.0:8090"
	s.MQTT.Broker = "tcp://localhost:1883"
	s.MQTT.Topic = "gridscreen/runs"
	return s
}

func TestValidateSettingsDefaults(t *testing.T) {
	t.Parallel()

	s := baseSettings(t)
	require.NoError(t, ValidateSettings(s), "shipped defaults must validate")
}

func TestValidateSettings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantErr string
	}{
		{
			name:    "empty application name",
			mutate:  func(s *Settings) { s.Main.Name = "" },
			wantErr: "main.name",
		},
		{
			name:    "unknown log rotation",
			mutate:  func(s *Settings) { s.Main.Log.Rotation = "hourly" },
			wantErr: "main.log.rotation",
		},
		{
			name: "weekly rotation with bad day",
			mutate: func(s *Settings) {
				s.Main.Log.Rotation = RotationWeekly
				s.Main.Log.RotationDay = "Someday"
			},
			wantErr: "rotationday",
		},
		{
			name:    "dataset URL without scheme",
			mutate:  func(s *Settings) { s.Datasets.Substations.URL = "example.com/subs.geojson" },
			wantErr: "datasets.substations.url",
		},
		{
			name:    "negative cache TTL",
			mutate:  func(s *Settings) { s.Datasets.CacheTTL = -1 },
			wantErr: "cachettl",
		},
		{
			name:    "UTM zone out of range",
			mutate:  func(s *Settings) { s.Screening.UTMZone = 61 },
			wantErr: "utmzone",
		},
		{
			name:    "fallback latitude out of range",
			mutate:  func(s *Settings) { s.Screening.FallbackCenter.Latitude = 95 },
			wantErr: "fallbackcenter",
		},
		{
			name: "both database outputs enabled",
			mutate: func(s *Settings) {
				s.Output.MySQL.Enabled = true
				s.Output.MySQL.Host = "localhost"
				s.Output.MySQL.Database = "gridscreen"
				s.Output.MySQL.Port = "3306"
			},
			wantErr: "only one of output.sqlite and output.mysql",
		},
		{
			name:    "sqlite without path",
			mutate:  func(s *Settings) { s.Output.SQLite.Path = "" },
			wantErr: "sqlite.path",
		},
		{
			name: "mysql without host",
			mutate: func(s *Settings) {
				s.Output.SQLite.Enabled = false
				s.Output.MySQL.Enabled = true
				s.Output.MySQL.Database = "gridscreen"
				s.Output.MySQL.Port = "3306"
			},
			wantErr: "mysql.host",
		},
		{
			name: "export with unknown format",
			mutate: func(s *Settings) {
				s.Output.Export.Enabled = true
				s.Output.Export.Path = "output/"
				s.Output.Export.Format = "xlsx"
			},
			wantErr: "export.format",
		},
		{
			name:    "webserver port not numeric",
			mutate:  func(s *Settings) { s.WebServer.Port = "http" },
			wantErr: "webserver.port",
		},
		{
			name: "telemetry listen without port",
			mutate: func(s *Settings) {
				s.Telemetry.Enabled = true
				s.Telemetry.Listen = "0.0.0.0"
			},
			wantErr: "telemetry.listen",
		},
		{
			name: "mqtt with unsupported scheme",
			mutate: func(s *Settings) {
				s.MQTT.Enabled = true
				s.MQTT.Broker = "amqp://localhost:5672"
			},
			wantErr: "mqtt.broker",
		},
		{
			name: "mqtt without topic",
			mutate: func(s *Settings) {
				s.MQTT.Enabled = true
				s.MQTT.Topic = ""
			},
			wantErr: "mqtt.topic",
		},
		{
			name: "notification enabled without URLs",
			mutate: func(s *Settings) {
				s.Notification.Enabled = true
				s.Notification.URLs = nil
			},
			wantErr: "notification.urls",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := baseSettings(t)
			tt.mutate(s)

			err := ValidateSettings(s)
			require.Error(t, err)

			var ve ValidationError
			require.ErrorAs(t, err, &ve)
			assert.True(t, containsError(ve, tt.wantErr),
				"expected an error mentioning %q, got %v", tt.wantErr, ve.Errors)
		})
	}
}

func containsError(ve ValidationError, substr string) bool {
	for _, e := range ve.Errors {
		if strings.Contains(e, substr) {
			return true
		}
	}
	return false
}

func TestValidateSettingsCollectsAllErrors(t *testing.T) {
	t.Parallel()

	s := baseSettings(t)
	s.Main.Name = ""
	s.Screening.UTMZone = 0
	s.WebServer.Port = "99999"

	err := ValidateSettings(s)
	require.Error(t, err)

	var ve ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Errors, 3, "each failing section should contribute one entry")
}
