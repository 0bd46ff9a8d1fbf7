package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/vovakirdan/formrelay/internal/log"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		logger := log.New("info", "console")
		logger.Error().Err(err).Msg("formrelay exited with error")
		stop()
		os.Exit(1)
	}
}
