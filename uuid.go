package ravrf

import (
	"time"

	"github.com/google/uuid"
)

// ScanID is a thin wrapper over github.com/google/uuid.UUID, kept so
// callers never import the uuid package directly.
type ScanID uuid.UUID

// NewScanID returns a new randomly generated identifier, used to correlate
// a single lint pass across a report's log lines. Generation is attempted
// up to 10 times, 1ms apart, and panics only if every attempt fails,
// which should never happen under normal conditions.
func NewScanID() ScanID {
	var err error
	for i := 0; i < 10; i++ {
		var id uuid.UUID
		id, err = uuid.NewRandom()
		if err == nil {
			return ScanID(id)
		}
		time.Sleep(time.Millisecond)
	}
	panic(err)
}

// String returns the canonical string representation of the identifier.
func (id ScanID) String() string {
	return uuid.UUID(id).String()
}
