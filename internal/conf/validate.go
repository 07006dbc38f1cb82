// conf/validate.go

package conf

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	if err := validateMainSettings(settings); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateDatasetsSettings(&settings.Datasets); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateScreeningSettings(&settings.Screening); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateOutputSettings(&settings.Output); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateWebServerSettings(&settings.WebServer); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateTelemetrySettings(&settings.Telemetry); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateMQTTSettings(&settings.MQTT); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateNotificationSettings(&settings.Notification); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

// validateMainSettings validates the application-level settings
func validateMainSettings(settings *Settings) error {
	var errs []string

	if settings.Main.Name == "" {
		errs = append(errs, "main.name must not be empty")
	}

	log := &settings.Main.Log
	if log.Enabled {
		if log.Path == "" {
			errs = append(errs, "main.log.path is required when logging is enabled")
		}
		switch log.Rotation {
		case RotationDaily, RotationWeekly, RotationSize:
		default:
			errs = append(errs, fmt.Sprintf("main.log.rotation must be one of daily, weekly or size, got %q", log.Rotation))
		}
		if log.Rotation == RotationWeekly {
			if _, err := ParseWeekday(log.RotationDay); err != nil {
				errs = append(errs, fmt.Sprintf("main.log.rotationday: %v", err))
			}
		}
		if log.Rotation == RotationSize && log.MaxSize <= 0 {
			errs = append(errs, "main.log.maxsize must be positive for size based rotation")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// validateDatasetsSettings validates the static dataset sources
func validateDatasetsSettings(settings *DatasetsSettings) error {
	var errs []string

	for name, src := range map[string]DatasetSource{
		"substations": settings.Substations,
		"lines":       settings.Lines,
	} {
		if src.URL == "" {
			continue
		}
		u, err := url.Parse(src.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			errs = append(errs, fmt.Sprintf("datasets.%s.url must be an http(s) URL, got %q", name, src.URL))
		}
	}

	if settings.CacheTTL < 0 {
		errs = append(errs, "datasets.cachettl must not be negative")
	}
	if settings.RefreshInterval < 0 {
		errs = append(errs, "datasets.refreshinterval must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("dataset settings errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// validateScreeningSettings validates the conversion settings
func validateScreeningSettings(settings *ScreeningSettings) error {
	var errs []string

	if settings.UTMZone < 1 || settings.UTMZone > 60 {
		errs = append(errs, fmt.Sprintf("screening.utmzone must be between 1 and 60, got %d", settings.UTMZone))
	}

	lat := settings.FallbackCenter.Latitude
	lon := settings.FallbackCenter.Longitude
	if lat < -90 || lat > 90 {
		errs = append(errs, fmt.Sprintf("screening.fallbackcenter.latitude must be between -90 and 90, got %g", lat))
	}
	if lon < -180 || lon > 180 {
		errs = append(errs, fmt.Sprintf("screening.fallbackcenter.longitude must be between -180 and 180, got %g", lon))
	}

	if len(errs) > 0 {
		return fmt.Errorf("screening settings errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// validateOutputSettings validates persistence and export settings
func validateOutputSettings(settings *OutputSettings) error {
	var errs []string

	if settings.SQLite.Enabled && settings.MySQL.Enabled {
		errs = append(errs, "only one of output.sqlite and output.mysql may be enabled")
	}
	if settings.SQLite.Enabled && settings.SQLite.Path == "" {
		errs = append(errs, "output.sqlite.path is required when sqlite output is enabled")
	}
	if settings.MySQL.Enabled {
		if settings.MySQL.Host == "" || settings.MySQL.Database == "" {
			errs = append(errs, "output.mysql.host and output.mysql.database are required when mysql output is enabled")
		}
		if _, err := strconv.Atoi(settings.MySQL.Port); err != nil {
			errs = append(errs, fmt.Sprintf("output.mysql.port must be numeric, got %q", settings.MySQL.Port))
		}
	}

	if settings.Export.Enabled {
		switch settings.Export.Format {
		case "csv", "geojson":
		default:
			errs = append(errs, fmt.Sprintf("output.export.format must be csv or geojson, got %q", settings.Export.Format))
		}
		if settings.Export.Path == "" {
			errs = append(errs, "output.export.path is required when export is enabled")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("output settings errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// validateWebServerSettings validates the API server settings
func validateWebServerSettings(settings *WebServerSettings) error {
	if !settings.Enabled {
		return nil
	}
	port, err := strconv.Atoi(settings.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("webserver.port must be a number between 1 and 65535, got %q", settings.Port)
	}
	return nil
}

// validateTelemetrySettings validates the metrics endpoint settings
func validateTelemetrySettings(settings *TelemetrySettings) error {
	if !settings.Enabled {
		return nil
	}
	host, port, err := net.SplitHostPort(settings.Listen)
	if err != nil {
		return fmt.Errorf("telemetry.listen must be host:port, got %q", settings.Listen)
	}
	if p, err := strconv.Atoi(port); err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("telemetry.listen port must be between 1 and 65535, got %q", port)
	}
	if host != "" && net.ParseIP(host) == nil && host != "localhost" {
		return fmt.Errorf("telemetry.listen host must be an IP address or localhost, got %q", host)
	}
	return nil
}

// validateMQTTSettings validates the MQTT integration settings
func validateMQTTSettings(settings *MQTTSettings) error {
	if !settings.Enabled {
		return nil
	}
	var errs []string

	if settings.Broker == "" {
		errs = append(errs, "mqtt.broker is required when mqtt is enabled")
	} else {
		u, err := url.Parse(settings.Broker)
		if err != nil {
			errs = append(errs, fmt.Sprintf("mqtt.broker is not a valid URL: %v", err))
		} else {
			switch u.Scheme {
			case "tcp", "ssl", "mqtt", "mqtts", "ws", "wss":
			default:
				errs = append(errs, fmt.Sprintf("mqtt.broker scheme %q is not supported", u.Scheme))
			}
		}
	}
	if settings.Topic == "" {
		errs = append(errs, "mqtt.topic is required when mqtt is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("MQTT settings errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// validateNotificationSettings validates the push notification settings
func validateNotificationSettings(settings *NotificationSettings) error {
	if !settings.Enabled {
		return nil
	}
	if len(settings.URLs) == 0 {
		return fmt.Errorf("notification.urls must not be empty when notifications are enabled")
	}
	for _, u := range settings.URLs {
		if strings.TrimSpace(u) == "" {
			return fmt.Errorf("notification.urls must not contain empty entries")
		}
	}
	return nil
}
