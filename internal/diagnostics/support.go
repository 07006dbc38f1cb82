package diagnostics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tphakala/gridscreen-go/internal/buildinfo"
	"github.com/tphakala/gridscreen-go/internal/conf"
	"github.com/tphakala/gridscreen-go/internal/mqtt"
)

// SupportDump aggregates everything an operator attaches to a support
// request. Secrets are masked before they enter the dump.
type SupportDump struct {
	GeneratedAt time.Time         `json:"generated_at"`
	App         buildinfo.Info    `json:"app"`
	System      SystemInfo        `json:"system"`
	Resources   ResourceInfo      `json:"resources"`
	Disks       []DiskInfo        `json:"disks,omitempty"`
	Config      map[string]any    `json:"config,omitempty"`
	MQTT        []mqtt.TestResult `json:"mqtt,omitempty"`
	Notes       []string          `json:"notes,omitempty"`
}

// CollectSupportDump gathers the full support dump. Collection is best
// effort: a failing collector adds a note instead of aborting, so a dump
// from a half-broken system still carries what could be read.
func CollectSupportDump(ctx context.Context, settings *conf.Settings) *SupportDump {
	dump := &SupportDump{
		GeneratedAt: time.Now(),
		App:         buildinfo.Get(),
		Config:      configOverview(settings),
	}

	system, err := CollectSystemInfo()
	if err != nil {
		dump.Notes = append(dump.Notes, fmt.Sprintf("system info: %v", err))
	} else {
		dump.System = system
	}

	resources, err := CollectResourceInfo(0)
	if err != nil {
		dump.Notes = append(dump.Notes, fmt.Sprintf("resource info: %v", err))
	} else {
		dump.Resources = resources
	}

	disks, err := CollectDiskInfo()
	if err != nil {
		dump.Notes = append(dump.Notes, fmt.Sprintf("disk info: %v", err))
	} else {
		dump.Disks = disks
	}

	if settings != nil && settings.MQTT.Enabled {
		client, err := mqtt.NewClient(settings)
		if err != nil {
			dump.Notes = append(dump.Notes, fmt.Sprintf("mqtt client: %v", err))
		} else {
			dump.MQTT = client.TestConnection(ctx)
			client.Disconnect()
		}
	}

	return dump
}

// configOverview reduces the settings to the fields that matter when
// debugging a deployment. Credentials never appear, the broker keeps its
// scheme only, and notification URLs collapse to their service schemes.
func configOverview(settings *conf.Settings) map[string]any {
	if settings == nil {
		return nil
	}

	configFile := "defaults"
	if path, err := conf.FindConfigFile(); err == nil {
		configFile = path
	}

	return map[string]any{
		"node":        settings.Main.Name,
		"debug":       settings.Debug,
		"config_file": configFile,
		"screening": map[string]any{
			"utm_zone": settings.Screening.UTMZone,
			"north":    settings.Screening.North,
		},
		"datasets": map[string]any{
			"substations":       datasetSourceOverview(settings.Datasets.Substations),
			"lines":             datasetSourceOverview(settings.Datasets.Lines),
			"cache_ttl_minutes": settings.Datasets.CacheTTL,
		},
		"output": map[string]any{
			"sqlite_enabled": settings.Output.SQLite.Enabled,
			"mysql_enabled":  settings.Output.MySQL.Enabled,
			"export_enabled": settings.Output.Export.Enabled,
			"export_format":  settings.Output.Export.Format,
		},
		"webserver": map[string]any{
			"enabled": settings.WebServer.Enabled,
			"port":    settings.WebServer.Port,
		},
		"telemetry": map[string]any{
			"prometheus_enabled": settings.Telemetry.Enabled,
			"sentry_enabled":     settings.Sentry.Enabled,
		},
		"mqtt": map[string]any{
			"enabled": settings.MQTT.Enabled,
			"broker":  maskBrokerURL(settings.MQTT.Broker),
			"topic":   settings.MQTT.Topic,
			"retain":  settings.MQTT.Retain,
		},
		"notification": map[string]any{
			"enabled":  settings.Notification.Enabled,
			"services": serviceSchemes(settings.Notification.URLs),
		},
	}
}

// datasetSourceOverview reports where a dataset comes from without exposing
// the full remote URL.
func datasetSourceOverview(source conf.DatasetSource) string {
	switch {
	case source.Path != "":
		return "file:" + source.Path
	case source.URL != "":
		return maskBrokerURL(source.URL)
	default:
		return "unset"
	}
}

// maskBrokerURL keeps the scheme and masks everything after it, which may
// include credentials in userinfo form.
func maskBrokerURL(raw string) string {
	if raw == "" {
		return ""
	}
	scheme, rest, found := strings.Cut(raw, "://")
	if !found {
		return strings.Repeat("*", len(raw))
	}
	return scheme + "://" + strings.Repeat("*", len(rest))
}

// serviceSchemes reduces shoutrrr URLs to their scheme names.
func serviceSchemes(urls []string) []string {
	schemes := make([]string, 0, len(urls))
	for _, raw := range urls {
		if scheme, _, found := strings.Cut(raw, "://"); found {
			schemes = append(schemes, scheme)
		} else {
			schemes = append(schemes, "invalid")
		}
	}
	return schemes
}
