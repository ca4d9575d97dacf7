package conf

import "github.com/asterisksounds/asterisk-sound-bot/internal/logger"

// GetLogger returns the config package logger scoped to the config module.
// The logger is fetched from the global logger each time so it follows the
// centralized logger installed after configuration is loaded.
func GetLogger() logger.Logger {
	return logger.Global().Module("config")
}
