package observability

import "github.com/asterisksounds/asterisk-sound-bot/internal/logger"

// GetLogger returns the observability package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("observability")
}
