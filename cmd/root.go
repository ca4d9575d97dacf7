// Package cmd wires the command line interface.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/asterisksounds/asterisk-sound-bot/cmd/check"
	"github.com/asterisksounds/asterisk-sound-bot/cmd/notify"
	"github.com/asterisksounds/asterisk-sound-bot/cmd/post"
	"github.com/asterisksounds/asterisk-sound-bot/internal/buildinfo"
	"github.com/asterisksounds/asterisk-sound-bot/internal/conf"
	"github.com/asterisksounds/asterisk-sound-bot/internal/errors"
	"github.com/asterisksounds/asterisk-sound-bot/internal/logger"
)

// RootCommand creates and returns the root command. Running it without a
// subcommand posts a sound, like the post subcommand.
func RootCommand() *cobra.Command {
	var configFile string

	rootCmd := &cobra.Command{
		Use:           "asterisk-sound-bot",
		Short:         "Post a random Asterisk IVR sound to Mastodon",
		Version:       buildinfo.Current().GetVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
	}

	// Set up the global flags for the root command.
	if err := setupFlags(rootCmd, &configFile); err != nil {
		panic(err) // flag names are static
	}

	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return errors.New(err).
			Component("cmd").
			Category(errors.CategoryConfiguration).
			Build()
	})

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		settings, err := conf.Load(configFile)
		if err != nil {
			return err
		}
		return initialize(settings)
	}

	postCmd := post.Command()
	rootCmd.RunE = postCmd.RunE

	rootCmd.AddCommand(postCmd, check.Command(), notify.Command())
	return rootCmd
}

// setupFlags defines flags that are global to the command line interface
// and binds them into viper so they override file and environment values.
func setupFlags(rootCmd *cobra.Command, configFile *string) error {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(configFile, "config", "c", "", "Path to config.yaml (default: search ., ~/.config/asterisk-sound-bot, /etc/asterisk-sound-bot)")
	flags.BoolP("debug", "d", false, "Enable debug output")
	flags.Bool("dry-run", false, "Select and fetch a sound, print the report and do not publish")
	flags.String("catalog", conf.DefaultCatalogPath, "Path to the tab-separated sound catalog")
	flags.String("backend", conf.DefaultBackend, "Storage backend: s3, local, sftp or ftp")

	bindings := map[string]string{
		"debug":           "debug",
		"dryrun":          "dry-run",
		"catalog.path":    "catalog",
		"storage.backend": "backend",
	}
	for key, flag := range bindings {
		if err := viper.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return fmt.Errorf("error binding flag %s: %w", flag, err)
		}
	}
	return nil
}

// initialize installs the process logger and optional Sentry reporting.
func initialize(settings *conf.Settings) error {
	if settings.Debug {
		settings.Logging.DefaultLevel = string(logger.LogLevelDebug)
		if settings.Logging.Console != nil {
			settings.Logging.Console.Level = string(logger.LogLevelDebug)
		}
	}

	centralLogger, err := logger.NewCentralLogger(&settings.Logging)
	if err != nil {
		return errors.New(err).
			Component("cmd").
			Category(errors.CategoryConfiguration).
			Context("operation", "init_logger").
			Build()
	}
	logger.SetGlobal(centralLogger)

	if settings.Telemetry.Enabled {
		if err := errors.InitSentry(settings.Telemetry.DSN, buildinfo.Current().Release(), settings.Telemetry.Environment); err != nil {
			logger.Global().Module("cmd").Warn("Sentry disabled", logger.Error(err))
		}
	}
	return nil
}
