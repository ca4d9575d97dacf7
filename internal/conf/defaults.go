// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Default values shared with other packages.
const (
	DefaultCatalogPath       = "data/sound-list.txt"
	DefaultBackend           = "s3"
	DefaultVisibility        = "public"
	DefaultRequestTimeout    = 30 * time.Second
	DefaultPollInterval      = 2 * time.Second
	DefaultProcessingTimeout = 5 * time.Minute
	DefaultMetricsJob        = "asterisk_sound_bot"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)
	viper.SetDefault("dryrun", false)

	viper.SetDefault("catalog.path", DefaultCatalogPath)

	viper.SetDefault("storage.backend", DefaultBackend)
	viper.SetDefault("storage.bucket", "")
	viper.SetDefault("storage.s3.region", "")
	viper.SetDefault("storage.s3.endpoint", "")
	viper.SetDefault("storage.s3.usepathstyle", false)
	viper.SetDefault("storage.local.root", ".")
	viper.SetDefault("storage.sftp.port", 22)
	viper.SetDefault("storage.sftp.timeout", 30*time.Second)
	viper.SetDefault("storage.ftp.port", 21)
	viper.SetDefault("storage.ftp.timeout", 30*time.Second)

	viper.SetDefault("mastodon.instance", "")
	viper.SetDefault("mastodon.accesstoken", "")
	viper.SetDefault("mastodon.visibility", DefaultVisibility)
	viper.SetDefault("mastodon.useragent", AppName)
	viper.SetDefault("mastodon.setlanguage", false)
	viper.SetDefault("mastodon.requesttimeout", DefaultRequestTimeout)
	viper.SetDefault("mastodon.pollinterval", DefaultPollInterval)
	viper.SetDefault("mastodon.processingtimeout", DefaultProcessingTimeout)

	viper.SetDefault("logging.defaultlevel", "info")
	viper.SetDefault("logging.timezone", "Local")
	viper.SetDefault("logging.console.enabled", true)
	viper.SetDefault("logging.console.level", "info")
	viper.SetDefault("logging.console.stderr", true)
	viper.SetDefault("logging.fileoutput.enabled", false)
	viper.SetDefault("logging.fileoutput.path", "logs/asterisk-sound-bot.log")
	viper.SetDefault("logging.fileoutput.level", "info")

	viper.SetDefault("telemetry.enabled", false)
	viper.SetDefault("telemetry.dsn", "")
	viper.SetDefault("telemetry.environment", "production")

	viper.SetDefault("metrics.pushgateway", "")
	viper.SetDefault("metrics.job", DefaultMetricsJob)

	viper.SetDefault("notify.urls", []string{})
	viper.SetDefault("notify.timeout", 10*time.Second)
	viper.SetDefault("notify.onlyfailures", false)
	viper.SetDefault("notify.mqtt.broker", "")
	viper.SetDefault("notify.mqtt.topic", "asterisk-sound-bot/runs")
	viper.SetDefault("notify.mqtt.clientid", AppName)
}
