package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/plsync/internal/shared"
)

func main() {
	logger := shared.NewLogger(nil)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runner := NewRunner(RunnerOpts{Logger: logger})
	app := newApp(runner)

	if err := app.Run(ctx, os.Args); err != nil {
		switch {
		case errors.Is(err, shared.ErrCancelled), errors.Is(err, context.Canceled):
			logger.Warn("cancelled")
			os.Exit(130)
		default:
			logger.Fatalf("application error: %v", err)
		}
	}
}
