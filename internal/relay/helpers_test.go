package relay

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/formrelay/internal/metrics"
	"github.com/vovakirdan/formrelay/internal/proto"
	"github.com/vovakirdan/formrelay/internal/store"
)

var errSinkDown = errors.New("sink down")

// recordingSink delivers every inserted message on a channel. The first
// failFirst inserts return errSinkDown instead.
type recordingSink struct {
	mu        sync.Mutex
	failFirst int
	calls     int
	messages  chan store.Message
}

func newRecordingSink(failFirst int) *recordingSink {
	return &recordingSink{failFirst: failFirst, messages: make(chan store.Message, 16)}
}

func (s *recordingSink) Insert(_ context.Context, msg store.Message) error {
	s.mu.Lock()
	s.calls++
	fail := s.calls <= s.failFirst
	s.mu.Unlock()

	if fail {
		return errSinkDown
	}
	s.messages <- msg
	return nil
}

func (s *recordingSink) Close() error { return nil }

func (s *recordingSink) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// startListener binds on an ephemeral loopback port and serves until the test ends.
func startListener(t *testing.T, cfg Config, sink store.Sink, setup ...func(*Listener)) (*Listener, *metrics.Metrics) {
	t.Helper()

	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:0"
	}
	if cfg.Encoding == "" {
		cfg.Encoding = proto.EncodingJSON
	}

	logger := zerolog.Nop()
	m := metrics.New()
	l, err := Listen(cfg, sink, &logger, m)
	require.NoError(t, err)
	for _, fn := range setup {
		fn(l)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Serve(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Error("listener did not stop")
		}
	})

	return l, m
}

func mustMessage(t *testing.T, ch <-chan store.Message) store.Message {
	t.Helper()

	select {
	case msg := <-ch:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("expected stored message not received")
		return nil
	}
}
