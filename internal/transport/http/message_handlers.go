package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/formrelay/internal/form"
	"github.com/vovakirdan/formrelay/internal/metrics"
)

var errBodyTooLarge = errors.New("request body too large")

// MessageHandlers relays form posts to the listener.
type MessageHandlers struct {
	relay   Relay
	maxBody int64
	metrics *metrics.Metrics
	log     *zerolog.Logger
}

// NewMessageHandlers creates a new message handlers instance.
func NewMessageHandlers(relay Relay, maxBody int64, m *metrics.Metrics, logger *zerolog.Logger) *MessageHandlers {
	return &MessageHandlers{
		relay:   relay,
		maxBody: maxBody,
		metrics: m,
		log:     logger,
	}
}

// Send parses the form body and relays it as one datagram.
// The client is always redirected to the index page; relay failures are only logged.
// POST /send_message
func (h *MessageHandlers) Send(c *gin.Context) {
	defer c.Redirect(http.StatusSeeOther, "/")

	requestID := c.GetString(ContextKeyRequestID)

	body, err := readBody(c.Request, h.maxBody)
	if err != nil {
		h.metrics.FormErrors.Inc()
		h.log.Warn().Err(err).Str("request_id", requestID).Msg("failed to read form body")
		return
	}

	sub, err := form.Parse(body)
	if err != nil {
		h.metrics.FormErrors.Inc()
		h.log.Warn().Err(err).Str("request_id", requestID).Msg("failed to parse form body")
		return
	}

	if err := h.relay.Send(c.Request.Context(), sub); err != nil {
		h.log.Error().Err(err).Str("request_id", requestID).Msg("failed to relay message")
		return
	}

	h.log.Info().
		Str("request_id", requestID).
		Strs("fields", sub.Keys()).
		Msg("message relayed")
}

// readBody reads Content-Length bytes, never more than limit.
func readBody(r *http.Request, limit int64) ([]byte, error) {
	if r.ContentLength > limit {
		return nil, fmt.Errorf("%w: %d > %d", errBodyTooLarge, r.ContentLength, limit)
	}
	if r.ContentLength >= 0 {
		limit = r.ContentLength
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, limit))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}
