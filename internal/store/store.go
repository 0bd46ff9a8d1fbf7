package store

import (
	"context"
	"errors"
	"time"

	"github.com/vovakirdan/formrelay/internal/form"
)

// DateField is the key the listener adds to every stored message.
const DateField = "date"

// DateLayout formats DateField values, e.g. "2024-05-01 13:04:05.123456".
const DateLayout = "2006-01-02 15:04:05.000000"

// ErrUnknownDriver is returned when no sink exists for the configured driver.
var ErrUnknownDriver = errors.New("unknown store driver")

// Message is a form submission plus its receive-time date field.
type Message map[string]string

// NewMessage copies the submission fields and stamps DateField with at.
// A client-supplied date field is overwritten.
func NewMessage(sub form.Submission, at time.Time) Message {
	msg := make(Message, len(sub)+1)
	for key, val := range sub {
		msg[key] = val
	}
	msg[DateField] = at.Format(DateLayout)
	return msg
}

// Date parses DateField back into a time in the local zone.
func (m Message) Date() (time.Time, error) {
	return time.ParseInLocation(DateLayout, m[DateField], time.Local)
}

// Sink persists messages. Implementations own durable storage after Insert returns nil.
type Sink interface {
	// Insert stores exactly one message. Failures are returned as a single error.
	Insert(ctx context.Context, msg Message) error

	// Close releases resources held by the sink.
	Close() error
}
