// Package conf loads and validates the bot configuration from a YAML file,
// a .env file and environment variables.
package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/asterisksounds/asterisk-sound-bot/internal/errors"
	"github.com/asterisksounds/asterisk-sound-bot/internal/logger"
)

// AppName is used for config directories and the HTTP User-Agent.
const AppName = "asterisk-sound-bot"

// CatalogSettings locates the sound catalog file.
type CatalogSettings struct {
	Path string // tab-separated catalog file, one sound per line
}

// S3Settings contains Amazon S3 (or S3-compatible) options.
type S3Settings struct {
	Region       string // AWS region, empty uses the SDK default chain
	Endpoint     string // custom endpoint for S3-compatible services
	UsePathStyle bool   // path-style addressing, needed by most S3-compatible services
}

// LocalSettings contains options for the local directory backend.
type LocalSettings struct {
	Root string // directory holding the buckets
}

// SFTPSettings contains SFTP backend options.
type SFTPSettings struct {
	Host           string
	Port           int
	Username       string
	Password       string
	KeyFile        string // private key path, takes precedence over password
	KnownHostsFile string // known_hosts path, empty disables host key checking
	Timeout        time.Duration
}

// FTPSettings contains FTP backend options.
type FTPSettings struct {
	Host     string
	Port     int
	Username string
	Password string
	Timeout  time.Duration
}

// StorageSettings selects and configures the object store holding the sounds.
type StorageSettings struct {
	Backend string // s3, local, sftp or ftp
	Bucket  string // bucket name, or base directory for file backends
	S3      S3Settings
	Local   LocalSettings
	SFTP    SFTPSettings
	FTP     FTPSettings
}

// MastodonSettings contains the social network account and client options.
type MastodonSettings struct {
	Instance          string        // base URL of the Mastodon instance
	AccessToken       string        // OAuth access token of the bot account
	Visibility        string        // status visibility
	UserAgent         string        // HTTP User-Agent
	SetLanguage       bool          // send the record's language with the status
	RequestTimeout    time.Duration // per HTTP request
	PollInterval      time.Duration // media processing poll interval
	ProcessingTimeout time.Duration // upper bound for synchronous media processing
}

// TelemetrySettings controls Sentry error reporting.
type TelemetrySettings struct {
	Enabled     bool
	DSN         string
	Environment string
}

// MetricsSettings controls pushing run metrics to a Prometheus Pushgateway.
type MetricsSettings struct {
	PushGateway string // Pushgateway URL, empty disables pushing
	Job         string
}

// MQTTSettings configures the MQTT run outcome notifier.
type MQTTSettings struct {
	Broker   string
	Topic    string
	ClientID string
	Username string
	Password string
}

// NotifySettings configures run outcome notifications.
type NotifySettings struct {
	URLs         []string      // shoutrrr service URLs
	Timeout      time.Duration // per notifier
	OnlyFailures bool          // notify only when a run aborts
	MQTT         MQTTSettings
}

// Settings contains all configuration options for the bot.
type Settings struct {
	Debug     bool
	DryRun    bool
	Catalog   CatalogSettings
	Storage   StorageSettings
	Mastodon  MastodonSettings
	Logging   logger.LoggingConfig
	Telemetry TelemetrySettings
	Metrics   MetricsSettings
	Notify    NotifySettings
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads configuration from the optional .env file, the config file
// (explicit path or the default search paths), environment variables and any
// bound command line flags, then validates the result.
func Load(configFile string) (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	if err := initViper(configFile); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	settings := &Settings{}
	if err := viper.Unmarshal(settings); err != nil {
		return nil, errors.New(fmt.Errorf("error unmarshaling config into struct: %w", err)).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, errors.New(fmt.Errorf("error validating settings: %w", err)).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// GetSettings returns the most recently loaded settings, or nil.
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// loadDotEnv loads KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set. A missing file is fine.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return errors.New(fmt.Errorf("error loading %s: %w", path, err)).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}
	return nil
}

// initViper sets defaults, binds environment variables and reads the config file.
func initViper(configFile string) error {
	setDefaultConfig()

	if err := bindEnvVars(); err != nil {
		// Bad environment values are reported but validation decides whether they are fatal
		GetLogger().Warn("Environment variable problems", logger.Error(err))
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		for _, path := range defaultConfigPaths() {
			viper.AddConfigPath(path)
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) && configFile == "" {
			// No config file is a supported setup: everything comes from the environment
			return nil
		}
		return fmt.Errorf("error reading config file: %w", err)
	}

	GetLogger().Debug("Loaded config file", logger.String("path", viper.ConfigFileUsed()))
	return nil
}

// defaultConfigPaths lists the directories searched for config.yaml.
func defaultConfigPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", AppName))
	}
	return append(paths, filepath.Join("/etc", AppName))
}
