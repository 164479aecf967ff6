package types

import (
	"time"

	"github.com/google/uuid"
)

// RequestID identifies one API request in logs.
type RequestID string

// NewRequestID generates a UUIDv7 request identifier.
// Time-ordered ids keep log lines for concurrent requests sortable.
// Panics on clock regression (uuid.Must); acceptable for ID generation.
func NewRequestID() RequestID {
	return RequestID(uuid.Must(uuid.NewV7()).String())
}

// ParseRequestID validates a caller-supplied request id.
// Rejects malformed UUIDs so arbitrary header values never reach the logs.
func ParseRequestID(s string) (RequestID, error) {
	if _, err := uuid.Parse(s); err != nil {
		return "", err
	}
	return RequestID(s), nil
}

// RequestIDTime extracts the timestamp embedded in a UUIDv7 id.
// Returns zero time for invalid UUIDs; caller should check IsZero().
func RequestIDTime(id RequestID) time.Time {
	u, err := uuid.Parse(string(id))
	if err != nil {
		return time.Time{}
	}
	sec, nsec := u.Time().UnixTime()
	return time.Unix(sec, nsec)
}
