// conf/validate.go

package conf

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
)

var (
	validBackends     = []string{"s3", "local", "sftp", "ftp"}
	validVisibilities = []string{"public", "unlisted", "private", "direct"}
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates everything needed to select and fetch a sound.
// Publishing credentials are checked separately by ValidatePublishing because
// dry runs and catalog checks do not need them.
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	if strings.TrimSpace(settings.Catalog.Path) == "" {
		ve.Errors = append(ve.Errors, "catalog path must not be empty")
	}

	if err := validateStorageSettings(&settings.Storage); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateMastodonClientSettings(&settings.Mastodon); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateTelemetrySettings(&settings.Telemetry); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if settings.Metrics.PushGateway != "" {
		if err := validateEnvURL(settings.Metrics.PushGateway); err != nil {
			ve.Errors = append(ve.Errors, fmt.Sprintf("metrics pushgateway: %v", err))
		}
	}

	if err := validateNotifySettings(&settings.Notify); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

// ValidatePublishing checks the Mastodon account settings required to post.
func ValidatePublishing(settings *Settings) error {
	ve := ValidationError{}

	if settings.Mastodon.Instance == "" {
		ve.Errors = append(ve.Errors, "mastodon instance is required (MASTODON_INSTANCE)")
	} else if err := validateEnvURL(settings.Mastodon.Instance); err != nil {
		ve.Errors = append(ve.Errors, fmt.Sprintf("mastodon instance: %v", err))
	}

	if strings.TrimSpace(settings.Mastodon.AccessToken) == "" {
		ve.Errors = append(ve.Errors, "mastodon access token is required (MASTODON_ACCESS_TOKEN)")
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

// validateStorageSettings validates the selected storage backend
func validateStorageSettings(settings *StorageSettings) error {
	var errs []string

	switch settings.Backend {
	case "s3":
		if settings.Bucket == "" {
			errs = append(errs, "storage bucket is required for the s3 backend (SOUND_S3_BUCKET)")
		}
		if settings.S3.Endpoint != "" {
			if err := validateEnvURL(settings.S3.Endpoint); err != nil {
				errs = append(errs, fmt.Sprintf("s3 endpoint: %v", err))
			}
		}
	case "local":
		if settings.Local.Root == "" {
			errs = append(errs, "local storage root must not be empty")
		}
	case "sftp":
		if settings.SFTP.Host == "" {
			errs = append(errs, "sftp host is required")
		}
		if settings.SFTP.Username == "" {
			errs = append(errs, "sftp username is required")
		}
		if settings.SFTP.KeyFile == "" && settings.SFTP.Password == "" {
			errs = append(errs, "sftp requires a key file or a password")
		}
		if settings.SFTP.Port <= 0 || settings.SFTP.Port > 65535 {
			errs = append(errs, fmt.Sprintf("sftp port %d out of range", settings.SFTP.Port))
		}
	case "ftp":
		if settings.FTP.Host == "" {
			errs = append(errs, "ftp host is required")
		}
		if settings.FTP.Port <= 0 || settings.FTP.Port > 65535 {
			errs = append(errs, fmt.Sprintf("ftp port %d out of range", settings.FTP.Port))
		}
	default:
		errs = append(errs, fmt.Sprintf("unknown storage backend '%s', must be one of: %s",
			settings.Backend, strings.Join(validBackends, ", ")))
	}

	if len(errs) > 0 {
		return fmt.Errorf("storage settings errors: %v", errs)
	}
	return nil
}

// validateMastodonClientSettings validates client tuning that applies even in dry-run
func validateMastodonClientSettings(settings *MastodonSettings) error {
	var errs []string

	if !slices.Contains(validVisibilities, settings.Visibility) {
		errs = append(errs, fmt.Sprintf("visibility '%s' must be one of: %s",
			settings.Visibility, strings.Join(validVisibilities, ", ")))
	}
	if settings.RequestTimeout <= 0 {
		errs = append(errs, "request timeout must be positive")
	}
	if settings.PollInterval <= 0 {
		errs = append(errs, "poll interval must be positive")
	}
	if settings.ProcessingTimeout < settings.PollInterval {
		errs = append(errs, "processing timeout must not be shorter than the poll interval")
	}

	if len(errs) > 0 {
		return fmt.Errorf("mastodon settings errors: %v", errs)
	}
	return nil
}

// validateTelemetrySettings requires a DSN when telemetry is enabled
func validateTelemetrySettings(settings *TelemetrySettings) error {
	if !settings.Enabled {
		return nil
	}
	if settings.DSN == "" {
		return fmt.Errorf("telemetry is enabled but no sentry DSN is configured (SENTRY_DSN)")
	}
	if _, err := url.Parse(settings.DSN); err != nil {
		return fmt.Errorf("invalid sentry DSN: %w", err)
	}
	return nil
}

// validateNotifySettings validates notification targets
func validateNotifySettings(settings *NotifySettings) error {
	var errs []string

	for _, raw := range settings.URLs {
		if u, err := url.Parse(raw); err != nil || u.Scheme == "" {
			errs = append(errs, fmt.Sprintf("invalid notification URL scheme in '%s'", redactURL(raw)))
		}
	}

	if settings.MQTT.Broker != "" {
		if settings.MQTT.Topic == "" {
			errs = append(errs, "mqtt topic is required when a broker is configured")
		}
		if u, err := url.Parse(settings.MQTT.Broker); err != nil || u.Scheme == "" {
			errs = append(errs, "mqtt broker must be a URL like tcp://host:1883")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify settings errors: %v", errs)
	}
	return nil
}

// redactURL keeps only the scheme of a URL that may carry credentials
func redactURL(raw string) string {
	if scheme, _, found := strings.Cut(raw, "://"); found {
		return scheme + "://[REDACTED]"
	}
	return "[REDACTED]"
}
