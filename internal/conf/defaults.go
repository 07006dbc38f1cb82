// conf/defaults.go default values for settings
package conf

import (
	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "GridScreen-Go")
	viper.SetDefault("main.log.enabled", true)
	viper.SetDefault("main.log.path", "logs/gridscreen.log")
	viper.SetDefault("main.log.rotation", RotationDaily)
	viper.SetDefault("main.log.maxsize", 1048576)
	viper.SetDefault("main.log.rotationday", "Sunday")

	viper.SetDefault("datasets.substations.path", "data/subestaciones.geojson")
	viper.SetDefault("datasets.substations.url", "")
	viper.SetDefault("datasets.lines.path", "data/line.geojson")
	viper.SetDefault("datasets.lines.url", "")
	viper.SetDefault("datasets.cachettl", 15)
	viper.SetDefault("datasets.refreshinterval", 60)

	viper.SetDefault("screening.utmzone", 30)
	viper.SetDefault("screening.north", true)
	// Madrid, where the REE exports center
	viper.SetDefault("screening.fallbackcenter.latitude", 40.4168)
	viper.SetDefault("screening.fallbackcenter.longitude", -3.7038)

	viper.SetDefault("output.sqlite.enabled", true)
	viper.SetDefault("output.sqlite.path", "gridscreen.db")

	viper.SetDefault("output.mysql.enabled", false)
	viper.SetDefault("output.mysql.username", "gridscreen")
	viper.SetDefault("output.mysql.password", "secret")
	viper.SetDefault("output.mysql.database", "gridscreen")
	viper.SetDefault("output.mysql.host", "localhost")
	viper.SetDefault("output.mysql.port", "3306")

	viper.SetDefault("output.export.enabled", false)
	viper.SetDefault("output.export.path", "output/")
	viper.SetDefault("output.export.format", "csv")

	viper.SetDefault("webserver.enabled", true)
	viper.SetDefault("webserver.debug", false)
	viper.SetDefault("webserver.port", "8080")

	viper.SetDefault("telemetry.enabled", false)
	viper.SetDefault("telemetry.listen", "0.0.0.0:8090")

	viper.SetDefault("sentry.enabled", false)
	viper.SetDefault("sentry.dsn", "")

	viper.SetDefault("mqtt.enabled", false)
	viper.SetDefault("mqtt.broker", "tcp://localhost:1883")
	viper.SetDefault("mqtt.topic", "gridscreen/runs")
	viper.SetDefault("mqtt.username", "gridscreen")
	viper.SetDefault("mqtt.password", "secret")
	viper.SetDefault("mqtt.retain", false)

	viper.SetDefault("notification.enabled", false)
	viper.SetDefault("notification.urls", []string{})
}
