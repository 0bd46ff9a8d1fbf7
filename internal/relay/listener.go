package relay

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/formrelay/internal/metrics"
	"github.com/vovakirdan/formrelay/internal/proto"
	"github.com/vovakirdan/formrelay/internal/store"
)

// Config configures the listening side of the relay.
type Config struct {
	Addr          string
	BufferSize    int
	Encoding      proto.Encoding
	InsertTimeout time.Duration
}

// Listener receives datagrams and writes each one to a sink, one at a time.
// A slow sink throttles receiving; the OS socket buffer is the only queue.
type Listener struct {
	conn    *net.UDPConn
	cfg     Config
	sink    store.Sink
	log     *zerolog.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	received     atomic.Uint64
	truncated    atomic.Uint64
	decodeErrors atomic.Uint64
	insertErrors atomic.Uint64
	stored       atomic.Uint64
}

// Stats is a snapshot of listener counters.
type Stats struct {
	Received     uint64 `json:"received"`
	Truncated    uint64 `json:"truncated"`
	DecodeErrors uint64 `json:"decode_errors"`
	InsertErrors uint64 `json:"insert_errors"`
	Stored       uint64 `json:"stored"`
}

// Listen binds the UDP socket. A bind failure is returned to the caller,
// which is expected to treat it as fatal.
func Listen(cfg Config, sink store.Sink, logger *zerolog.Logger, m *metrics.Metrics) (*Listener, error) {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1024
	}
	if cfg.InsertTimeout <= 0 {
		cfg.InsertTimeout = 10 * time.Second
	}
	if cfg.Encoding == "" {
		cfg.Encoding = proto.EncodingJSON
	}

	addr, err := net.ResolveUDPAddr("udp", cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("resolve udp address %s: %w", cfg.Addr, err)
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen udp %s: %w", cfg.Addr, err)
	}

	return &Listener{
		conn:    conn,
		cfg:     cfg,
		sink:    sink,
		log:     logger,
		metrics: m,
		now:     time.Now,
	}, nil
}

// Addr returns the bound local address.
func (l *Listener) Addr() net.Addr {
	return l.conn.LocalAddr()
}

// Close closes the socket, which makes Serve return.
func (l *Listener) Close() error {
	return l.conn.Close()
}

// Serve runs the receive loop until ctx is cancelled (returns nil) or the
// socket fails for good (returns the error). The socket is closed either way.
func (l *Listener) Serve(ctx context.Context) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = l.conn.Close()
		case <-stop:
		}
	}()
	defer l.conn.Close()

	l.log.Info().
		Str("addr", l.Addr().String()).
		Int("buffer_size", l.cfg.BufferSize).
		Str("encoding", string(l.cfg.Encoding)).
		Msg("relay listener started")

	buf := make([]byte, l.cfg.BufferSize)
	for {
		n, from, err := l.conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return fmt.Errorf("read datagram: %w", err)
			}
			l.log.Error().Err(err).Msg("failed to read datagram")
			continue
		}

		l.handle(ctx, buf[:n], n == len(buf), from)
	}
}

// handle decodes, stamps and inserts one datagram. Every failure is logged and
// the datagram dropped.
func (l *Listener) handle(ctx context.Context, payload []byte, full bool, from *net.UDPAddr) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error().Interface("panic", r).Str("from", from.String()).Msg("datagram handler panicked")
		}
	}()

	l.received.Add(1)
	l.metrics.DatagramsReceived.Inc()

	l.log.Debug().
		Str("from", from.String()).
		Int("size", len(payload)).
		Bytes("payload", payload).
		Msg("datagram received")

	// A datagram larger than the buffer is cut silently by the kernel;
	// filling the buffer exactly is the only signal we get.
	if full {
		l.truncated.Add(1)
		l.metrics.DatagramsTruncated.Inc()
		l.log.Warn().
			Str("from", from.String()).
			Int("buffer_size", l.cfg.BufferSize).
			Msg("datagram filled receive buffer, payload may be truncated")
	}

	sub, err := proto.Unmarshal(l.cfg.Encoding, payload)
	if err != nil {
		l.decodeErrors.Add(1)
		l.metrics.DecodeErrors.Inc()
		l.log.Error().Err(err).Str("from", from.String()).Msg("failed to decode datagram")
		return
	}

	msg := store.NewMessage(sub, l.now())

	// An insert already in progress is allowed to finish during shutdown.
	insertCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.cfg.InsertTimeout)
	defer cancel()

	start := time.Now()
	err = l.sink.Insert(insertCtx, msg)
	l.metrics.InsertDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		l.insertErrors.Add(1)
		l.metrics.InsertErrors.Inc()
		l.log.Error().Err(err).Strs("fields", sub.Keys()).Msg("failed to store message")
		return
	}

	l.stored.Add(1)
	l.metrics.MessagesStored.Inc()
	l.log.Info().
		Str("date", msg[store.DateField]).
		Strs("fields", sub.Keys()).
		Msg("message stored")
}

// Stats returns current counters.
func (l *Listener) Stats() Stats {
	return Stats{
		Received:     l.received.Load(),
		Truncated:    l.truncated.Load(),
		DecodeErrors: l.decodeErrors.Load(),
		InsertErrors: l.insertErrors.Load(),
		Stored:       l.stored.Load(),
	}
}
