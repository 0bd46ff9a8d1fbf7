package proto

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vovakirdan/formrelay/internal/form"
)

// Encoding names a datagram payload format.
type Encoding string

const (
	// EncodingJSON carries the submission as a flat JSON object of strings.
	EncodingJSON Encoding = "json"
	// EncodingForm carries the submission re-encoded as x-www-form-urlencoded.
	EncodingForm Encoding = "form"
)

var (
	// ErrInvalidPayload is returned when a datagram cannot be decoded.
	ErrInvalidPayload = errors.New("invalid payload")
	// ErrUnknownEncoding is returned for an Encoding other than json or form.
	ErrUnknownEncoding = errors.New("unknown encoding")
)

// ParseEncoding validates a configured encoding name.
func ParseEncoding(name string) (Encoding, error) {
	switch enc := Encoding(name); enc {
	case EncodingJSON, EncodingForm:
		return enc, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownEncoding, name)
	}
}

// Marshal encodes a submission into a single datagram payload.
func Marshal(enc Encoding, sub form.Submission) ([]byte, error) {
	switch enc {
	case EncodingJSON:
		if sub == nil {
			sub = form.Submission{}
		}
		return json.Marshal(sub)
	case EncodingForm:
		return []byte(sub.Encode()), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEncoding, enc)
	}
}

// Unmarshal decodes a datagram payload produced by Marshal.
func Unmarshal(enc Encoding, payload []byte) (form.Submission, error) {
	switch enc {
	case EncodingJSON:
		return unmarshalJSON(payload)
	case EncodingForm:
		sub, err := form.Parse(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		return sub, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEncoding, enc)
	}
}

func unmarshalJSON(payload []byte) (form.Submission, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: expected json object", ErrInvalidPayload)
	}

	var sub form.Submission
	if err := json.Unmarshal(trimmed, &sub); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if sub == nil {
		sub = form.Submission{}
	}
	return sub, nil
}
