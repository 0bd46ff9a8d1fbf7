package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/formrelay/internal/form"
)

func TestNewMessageStampsDate(t *testing.T) {
	at := time.Date(2024, 5, 1, 13, 4, 5, 123456000, time.Local)
	sub := form.Submission{"username": "alice", "message": "hi", "date": "client supplied"}

	msg := NewMessage(sub, at)

	require.Equal(t, "alice", msg["username"])
	require.Equal(t, "hi", msg["message"])
	require.Equal(t, "2024-05-01 13:04:05.123456", msg[DateField])
	require.Equal(t, "client supplied", sub["date"], "submission must not be mutated")

	parsed, err := msg.Date()
	require.NoError(t, err)
	require.True(t, parsed.Equal(at))
}
