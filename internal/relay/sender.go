package relay

import (
	"context"
	"fmt"
	"net"

	"github.com/vovakirdan/formrelay/internal/form"
	"github.com/vovakirdan/formrelay/internal/metrics"
	"github.com/vovakirdan/formrelay/internal/proto"
)

// Sender relays submissions as single UDP datagrams. It never waits for the
// listener; a successful Send only means the datagram left the socket.
type Sender struct {
	addr     string
	encoding proto.Encoding
	metrics  *metrics.Metrics
	dialer   net.Dialer
}

// NewSender creates a sender targeting the listener at addr.
func NewSender(addr string, enc proto.Encoding, m *metrics.Metrics) *Sender {
	return &Sender{
		addr:     addr,
		encoding: enc,
		metrics:  m,
	}
}

// Send encodes sub and writes it as one datagram on a fresh socket.
func (s *Sender) Send(ctx context.Context, sub form.Submission) error {
	payload, err := proto.Marshal(s.encoding, sub)
	if err != nil {
		s.metrics.SendErrors.Inc()
		return fmt.Errorf("encode submission: %w", err)
	}

	conn, err := s.dialer.DialContext(ctx, "udp", s.addr)
	if err != nil {
		s.metrics.SendErrors.Inc()
		return fmt.Errorf("dial %s: %w", s.addr, err)
	}
	defer conn.Close()

	if _, err := conn.Write(payload); err != nil {
		s.metrics.SendErrors.Inc()
		return fmt.Errorf("write datagram to %s: %w", s.addr, err)
	}

	s.metrics.DatagramsSent.Inc()
	return nil
}
