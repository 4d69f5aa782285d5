// Package ulid provides batch-correlation identifiers attached to every
// structured log line for one ingest Export call.
package ulid

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// ULID is a lexicographically sortable identifier used to correlate the
// structured log lines and error reports belonging to one ingest batch.
type ULID struct {
	ulid.ULID
}

// New generates a new ULID from the current timestamp.
func New() ULID {
	return ULID{ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader)}
}

// Parse parses a ULID string.
func Parse(s string) (ULID, error) {
	parsed, err := ulid.Parse(s)
	if err != nil {
		return ULID{}, err
	}
	return ULID{parsed}, nil
}

// String returns the canonical 26-character string representation.
func (u ULID) String() string {
	return u.ULID.String()
}
