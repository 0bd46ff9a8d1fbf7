package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/formrelay/internal/config"
	"github.com/vovakirdan/formrelay/internal/metrics"
	"github.com/vovakirdan/formrelay/internal/proto"
	"github.com/vovakirdan/formrelay/internal/relay"
	transporthttp "github.com/vovakirdan/formrelay/internal/transport/http"
)

// Web wires the static/form server to the datagram sender.
type Web struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	log             *zerolog.Logger
}

// NewWeb constructs the web process with provided configuration.
func NewWeb(cfg config.Config, logger *zerolog.Logger) (*Web, error) {
	enc, err := proto.ParseEncoding(cfg.Relay.Encoding)
	if err != nil {
		return nil, fmt.Errorf("relay encoding: %w", err)
	}

	m := metrics.New()
	sender := relay.NewSender(cfg.Relay.Addr, enc, m)
	server := transporthttp.NewServer(cfg.HTTP, sender, m, logger)

	logger.Info().
		Str("static_dir", cfg.HTTP.StaticDir).
		Str("send_path", cfg.HTTP.SendPath).
		Str("relay_addr", cfg.Relay.Addr).
		Msg("web server configured")

	return &Web{
		server:          server,
		shutdownTimeout: cfg.HTTP.ShutdownTimeout,
		log:             logger,
	}, nil
}

// Run binds the listen socket and serves until ctx is cancelled or serving fails.
// A bind failure is returned immediately.
func (w *Web) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", w.server.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", w.server.Addr, err)
	}
	w.log.Info().Str("addr", ln.Addr().String()).Msg("http server listening")

	return serveHTTP(ctx, w.server, ln, w.shutdownTimeout, w.log)
}

// serveHTTP serves on ln and shuts the server down gracefully once ctx ends.
func serveHTTP(ctx context.Context, server *stdhttp.Server, ln net.Listener, shutdownTimeout time.Duration, logger *zerolog.Logger) error {
	serverErr := make(chan error, 1)
	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		logger.Info().Str("addr", server.Addr).Msg("shutting down http server")
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return <-serverErr
	}
}
