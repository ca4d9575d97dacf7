package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/asterisksounds/asterisk-sound-bot/cmd"
	"github.com/asterisksounds/asterisk-sound-bot/internal/errors"
	"github.com/asterisksounds/asterisk-sound-bot/internal/logger"
	"github.com/asterisksounds/asterisk-sound-bot/internal/publish"
)

func main() {
	os.Exit(run())
}

// run executes the command line and maps its error to the process exit code.
func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := cmd.RootCommand().ExecuteContext(ctx)

	errors.FlushTelemetry(2 * time.Second)
	if err := logger.Global().Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "error flushing logs: %v\n", err)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return publish.ExitCode(err)
}
