package types

import (
	"time"

	"github.com/google/uuid"
)

// SetID identifies a stored rule-set snapshot. String alias keeps type
// safety while serializing as a plain string.
type SetID string

// RunID identifies a recorded analysis run.
type RunID string

// NewSetID generates a UUIDv7 snapshot identifier.
// Time-ordered IDs ensure sequential inserts cluster in B-tree pages.
// Panics on clock regression (uuid.Must); acceptable for ID generation.
func NewSetID() SetID {
	return SetID(uuid.Must(uuid.NewV7()).String())
}

// NewRunID generates a UUIDv7 run identifier.
// Panics on clock regression (uuid.Must); acceptable for ID generation.
func NewRunID() RunID {
	return RunID(uuid.Must(uuid.NewV7()).String())
}

// ParseSetID validates and converts a string to SetID.
func ParseSetID(s string) (SetID, error) {
	if _, err := uuid.Parse(s); err != nil {
		return "", err
	}
	return SetID(s), nil
}

// ParseRunID validates and converts a string to RunID.
func ParseRunID(s string) (RunID, error) {
	if _, err := uuid.Parse(s); err != nil {
		return "", err
	}
	return RunID(s), nil
}

// RunIDTime extracts the timestamp embedded in a UUIDv7 run ID.
// Returns zero time for invalid UUIDs; caller should check IsZero().
func RunIDTime(id RunID) time.Time {
	u, err := uuid.Parse(string(id))
	if err != nil {
		return time.Time{}
	}
	sec, nsec := u.Time().UnixTime()
	return time.Unix(sec, nsec)
}
