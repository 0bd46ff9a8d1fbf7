package app

import (
	"context"
	"fmt"
	"net"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/formrelay/internal/config"
	"github.com/vovakirdan/formrelay/internal/metrics"
	"github.com/vovakirdan/formrelay/internal/proto"
	"github.com/vovakirdan/formrelay/internal/relay"
	"github.com/vovakirdan/formrelay/internal/store"
)

// Relay wires the datagram listener to the persistence sink.
type Relay struct {
	listener    *relay.Listener
	sink        store.Sink
	metricsAddr string
	metrics     *metrics.Metrics
	log         *zerolog.Logger
}

// NewRelay opens the sink and binds the listener socket. Both failures are fatal for the process.
func NewRelay(cfg config.Config, logger *zerolog.Logger) (*Relay, error) {
	enc, err := proto.ParseEncoding(cfg.Relay.Encoding)
	if err != nil {
		return nil, fmt.Errorf("relay encoding: %w", err)
	}

	sink, err := OpenSink(cfg.Store)
	if err != nil {
		return nil, err
	}
	logger.Info().
		Str("driver", cfg.Store.Driver).
		Str("collection", cfg.Store.Collection).
		Msg("persistence sink ready")

	m := metrics.New()
	listener, err := relay.Listen(relay.Config{
		Addr:          cfg.Relay.Addr,
		BufferSize:    cfg.Relay.BufferSize,
		Encoding:      enc,
		InsertTimeout: cfg.Relay.InsertTimeout,
	}, sink, logger, m)
	if err != nil {
		_ = sink.Close()
		return nil, fmt.Errorf("bind relay listener: %w", err)
	}

	return &Relay{
		listener:    listener,
		sink:        sink,
		metricsAddr: cfg.Relay.MetricsAddr,
		metrics:     m,
		log:         logger,
	}, nil
}

// Addr returns the bound datagram address.
func (r *Relay) Addr() net.Addr {
	return r.listener.Addr()
}

// Run blocks in the receive loop until ctx is cancelled or the socket fails.
func (r *Relay) Run(ctx context.Context) error {
	defer r.cleanup()

	if r.metricsAddr != "" {
		ln, err := net.Listen("tcp", r.metricsAddr)
		if err != nil {
			_ = r.listener.Close()
			return fmt.Errorf("listen metrics %s: %w", r.metricsAddr, err)
		}

		mux := stdhttp.NewServeMux()
		mux.Handle("/metrics", r.metrics.Handler())
		srv := &stdhttp.Server{Addr: r.metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

		metricsCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			if err := serveHTTP(metricsCtx, srv, ln, 5*time.Second, r.log); err != nil {
				r.log.Warn().Err(err).Msg("metrics server stopped")
			}
		}()
		r.log.Info().Str("addr", ln.Addr().String()).Msg("relay metrics listening")
	}

	err := r.listener.Serve(ctx)

	stats := r.listener.Stats()
	r.log.Info().
		Uint64("received", stats.Received).
		Uint64("stored", stats.Stored).
		Uint64("decode_errors", stats.DecodeErrors).
		Uint64("insert_errors", stats.InsertErrors).
		Uint64("truncated", stats.Truncated).
		Msg("relay listener stopped")

	return err
}

// cleanup closes the sink.
func (r *Relay) cleanup() {
	if err := r.sink.Close(); err != nil {
		r.log.Warn().Err(err).Msg("failed to close sink")
	} else {
		r.log.Info().Msg("sink closed")
	}
}
