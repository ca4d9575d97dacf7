package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asterisksounds/asterisk-sound-bot/internal/errors"
)

// resetViper gives each test a clean global viper instance
func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromOriginalEnvironmentVariables(t *testing.T) {
	resetViper(t)
	t.Setenv("SOUND_S3_BUCKET", "asterisk-sounds")
	t.Setenv("MASTODON_INSTANCE", "https://botsin.space")
	t.Setenv("MASTODON_ACCESS_TOKEN", "secret-token")

	settings, err := Load(writeConfig(t, "debug: false\n"))
	require.NoError(t, err)

	assert.Equal(t, "asterisk-sounds", settings.Storage.Bucket)
	assert.Equal(t, "https://botsin.space", settings.Mastodon.Instance)
	assert.Equal(t, "secret-token", settings.Mastodon.AccessToken)
	require.NoError(t, ValidatePublishing(settings))

	// Defaults
	assert.Equal(t, DefaultCatalogPath, settings.Catalog.Path)
	assert.Equal(t, "s3", settings.Storage.Backend)
	assert.Equal(t, "public", settings.Mastodon.Visibility)
	assert.False(t, settings.Mastodon.SetLanguage, "language is opt-in")
	assert.Equal(t, AppName, settings.Mastodon.UserAgent)
	assert.Equal(t, DefaultPollInterval, settings.Mastodon.PollInterval)
	assert.Equal(t, DefaultProcessingTimeout, settings.Mastodon.ProcessingTimeout)
	assert.False(t, settings.DryRun)
	require.NotNil(t, settings.Logging.Console)
	assert.True(t, settings.Logging.Console.Stderr)

	assert.Same(t, settings, GetSettings())
}

func TestLoadFromYAMLFile(t *testing.T) {
	resetViper(t)
	root := t.TempDir()

	path := writeConfig(t, `
catalog:
  path: /srv/sounds/list.txt
storage:
  backend: local
  bucket: sounds
  local:
    root: `+root+`
mastodon:
  visibility: unlisted
  pollinterval: 500ms
  processingtimeout: 1m
notify:
  urls:
    - "generic://hooks.example/run"
  mqtt:
    broker: tcp://localhost:1883
    topic: bots/asterisk
`)

	settings, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/sounds/list.txt", settings.Catalog.Path)
	assert.Equal(t, "local", settings.Storage.Backend)
	assert.Equal(t, root, settings.Storage.Local.Root)
	assert.Equal(t, "unlisted", settings.Mastodon.Visibility)
	assert.Equal(t, 500*time.Millisecond, settings.Mastodon.PollInterval)
	assert.Equal(t, time.Minute, settings.Mastodon.ProcessingTimeout)
	assert.Equal(t, []string{"generic://hooks.example/run"}, settings.Notify.URLs)
	assert.Equal(t, "bots/asterisk", settings.Notify.MQTT.Topic)
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	resetViper(t)

	path := writeConfig(t, `
storage:
  backend: s3
mastodon:
  visibility: everyone
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))

	var ve ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Errors, 2)
	assert.Contains(t, err.Error(), "SOUND_S3_BUCKET")
	assert.Contains(t, err.Error(), "visibility 'everyone'")
}

func TestLoadExplicitMissingConfigFails(t *testing.T) {
	resetViper(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestValidatePublishing(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		instance string
		token    string
		wantErrs int
	}{
		{"complete", "https://social.example", "tok", 0},
		{"missing both", "", "", 2},
		{"bad scheme", "ftp://social.example", "tok", 1},
		{"blank token", "https://social.example", "   ", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			settings := &Settings{Mastodon: MastodonSettings{Instance: tt.instance, AccessToken: tt.token}}
			err := ValidatePublishing(settings)
			if tt.wantErrs == 0 {
				require.NoError(t, err)
				return
			}
			var ve ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Len(t, ve.Errors, tt.wantErrs)
		})
	}
}

func TestValidateStorageBackends(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		storage StorageSettings
		wantErr bool
	}{
		{"s3 with bucket", StorageSettings{Backend: "s3", Bucket: "b"}, false},
		{"s3 bad endpoint", StorageSettings{Backend: "s3", Bucket: "b", S3: S3Settings{Endpoint: "minio:9000"}}, true},
		{"local", StorageSettings{Backend: "local", Local: LocalSettings{Root: "/srv"}}, false},
		{"sftp with key", StorageSettings{Backend: "sftp", SFTP: SFTPSettings{Host: "h", Port: 22, Username: "u", KeyFile: "/k"}}, false},
		{"sftp without auth", StorageSettings{Backend: "sftp", SFTP: SFTPSettings{Host: "h", Port: 22, Username: "u"}}, true},
		{"ftp", StorageSettings{Backend: "ftp", FTP: FTPSettings{Host: "h", Port: 21}}, false},
		{"ftp bad port", StorageSettings{Backend: "ftp", FTP: FTPSettings{Host: "h", Port: 0}}, true},
		{"unknown", StorageSettings{Backend: "gcs"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := validateStorageSettings(&tt.storage)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBindEnvVarsReportsInvalidValues(t *testing.T) {
	resetViper(t)
	t.Setenv("SOUND_STORAGE_BACKEND", "gcs")
	t.Setenv("SOUNDBOT_DEBUG", "maybe")

	err := bindEnvVars()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SOUND_STORAGE_BACKEND")
	assert.Contains(t, err.Error(), "SOUNDBOT_DEBUG")
}

func TestLoadDotEnvDoesNotOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("SOUND_S3_BUCKET=from-dotenv\nSOUNDBOT_TEST_ONLY=loaded\n"), 0o600))

	t.Setenv("SOUND_S3_BUCKET", "from-env")
	t.Setenv("SOUNDBOT_TEST_ONLY", "")
	require.NoError(t, os.Unsetenv("SOUNDBOT_TEST_ONLY"))

	require.NoError(t, loadDotEnv(path))
	assert.Equal(t, "from-env", os.Getenv("SOUND_S3_BUCKET"))
	assert.Equal(t, "loaded", os.Getenv("SOUNDBOT_TEST_ONLY"))

	require.NoError(t, loadDotEnv(filepath.Join(dir, "absent.env")))
}
