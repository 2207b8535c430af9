package shared

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
)

// SignalContext is cancelled on SIGINT or SIGTERM. A second signal exits
// immediately.
func SignalContext(parent context.Context, logger zerolog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info().Str("signal", sig.String()).Msg("Received signal, shutting down gracefully")
			cancel()
		case <-ctx.Done():
			return
		}
		if sig, ok := <-sigChan; ok {
			logger.Warn().Str("signal", sig.String()).Msg("Received second signal, exiting")
			os.Exit(1)
		}
	}()

	return ctx, cancel
}
