// env.go - Environment variable configuration and validation
package conf

import (
	"fmt"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// envBinding holds metadata for environment variable bindings (internal use)
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

// getEnvBindings returns all environment variable bindings with validation
func getEnvBindings() []envBinding {
	return []envBinding{
		// Names shared with existing deployments
		{"storage.bucket", "SOUND_S3_BUCKET", nil},
		{"mastodon.accesstoken", "MASTODON_ACCESS_TOKEN", nil},
		{"mastodon.instance", "MASTODON_INSTANCE", validateEnvURL},

		// Catalog and storage
		{"catalog.path", "SOUND_CATALOG_PATH", nil},
		{"storage.backend", "SOUND_STORAGE_BACKEND", validateEnvBackend},
		{"storage.s3.region", "AWS_REGION", nil},
		{"storage.s3.endpoint", "SOUND_S3_ENDPOINT", validateEnvURL},
		{"storage.local.root", "SOUND_LOCAL_ROOT", nil},
		{"storage.sftp.host", "SOUND_SFTP_HOST", nil},
		{"storage.sftp.username", "SOUND_SFTP_USERNAME", nil},
		{"storage.sftp.password", "SOUND_SFTP_PASSWORD", nil},
		{"storage.sftp.keyfile", "SOUND_SFTP_KEYFILE", nil},
		{"storage.ftp.host", "SOUND_FTP_HOST", nil},
		{"storage.ftp.username", "SOUND_FTP_USERNAME", nil},
		{"storage.ftp.password", "SOUND_FTP_PASSWORD", nil},

		// Mastodon client tuning
		{"mastodon.visibility", "MASTODON_VISIBILITY", validateEnvVisibility},

		// Ambient
		{"debug", "SOUNDBOT_DEBUG", validateEnvBool},
		{"dryrun", "SOUNDBOT_DRY_RUN", validateEnvBool},
		{"telemetry.dsn", "SENTRY_DSN", nil},
		{"metrics.pushgateway", "SOUNDBOT_PUSHGATEWAY", validateEnvURL},
		{"notify.mqtt.broker", "SOUNDBOT_MQTT_BROKER", nil},
	}
}

// bindEnvVars sets up environment variable bindings with validation (internal)
func bindEnvVars() error {
	var warnings []string

	for _, binding := range getEnvBindings() {
		if err := viper.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("Failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		if binding.Validate != nil {
			if envValue := os.Getenv(binding.EnvVar); envValue != "" {
				if err := binding.Validate(envValue); err != nil {
					warnings = append(warnings, fmt.Sprintf("Invalid %s value: %v", binding.EnvVar, err))
				}
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}

	return nil
}

// Environment variable validation functions

// validateEnvBool validates boolean environment variables
func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("invalid boolean value '%s': must be true/false, 1/0, t/f", value)
	}
	return nil
}

// validateEnvURL requires an absolute http(s) URL
func validateEnvURL(value string) error {
	u, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got '%s'", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must include a host")
	}
	return nil
}

func validateEnvBackend(value string) error {
	if !slices.Contains(validBackends, value) {
		return fmt.Errorf("must be one of: %s", strings.Join(validBackends, ", "))
	}
	return nil
}

func validateEnvVisibility(value string) error {
	if !slices.Contains(validVisibilities, value) {
		return fmt.Errorf("must be one of: %s", strings.Join(validVisibilities, ", "))
	}
	return nil
}
