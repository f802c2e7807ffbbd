package queue

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteLineConfirmed(t *testing.T) {
	body, err := json.Marshal(BookingConfirmedEvent{
		BookingID: 9, UserID: 2, EventID: 4, EventTitle: "Jazz Night", EventDate: "2025-09-01",
		Quantity: 3, TotalPrice: "59.97", SeatsLeft: 2, ConfirmedAt: "2025-05-01T12:00:00Z",
	})
	require.NoError(t, err)

	var sb strings.Builder
	require.NoError(t, writeLine(&sb, BookingConfirmedQueue, body))
	assert.Equal(t,
		"[2025-05-01T12:00:00Z] Booking confirmed | booking_id=9 | user_id=2 | event_id=4 | event=\"Jazz Night\" | date=2025-09-01 | quantity=3 | total=59.97 | seats_left=2\n",
		sb.String())
}

func TestWriteLineCancelled(t *testing.T) {
	body, err := json.Marshal(BookingCancelledEvent{
		BookingID: 9, UserID: 2, EventID: 4, Quantity: 3, TotalPrice: "59.97", CancelledBy: 1, CancelledAt: "t",
	})
	require.NoError(t, err)

	var sb strings.Builder
	require.NoError(t, writeLine(&sb, BookingCancelledQueue, body))
	assert.Contains(t, sb.String(), "Booking cancelled | booking_id=9")
	assert.Contains(t, sb.String(), "cancelled_by=1")
}

func TestWriteLineRejectsBadInput(t *testing.T) {
	var sb strings.Builder
	assert.Error(t, writeLine(&sb, BookingConfirmedQueue, []byte("{")))
	assert.Error(t, writeLine(&sb, "other", []byte("{}")))
	assert.Empty(t, sb.String())
}

func TestHandleAppendsToFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	c := NewConsumer("amqp://unused", dir)
	body, _ := json.Marshal(BookingCancelledEvent{BookingID: 1})

	require.NoError(t, c.handle(BookingCancelledQueue, body))
	require.NoError(t, c.handle(BookingCancelledQueue, body))

	data, err := os.ReadFile(filepath.Join(dir, "booking.log"))
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), "\n"))
}
