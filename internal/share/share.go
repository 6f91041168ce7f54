// Package share stores editor snapshots under content-derived hashes so
// a playground state can be reopened from a short link.
package share

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"time"

	"github.com/mr-tron/base58"
)

var ErrNotFound = errors.New("snapshot not found")

type Snapshot struct {
	Hash      string
	Payload   json.RawMessage
	CreatedAt time.Time
}

type Store interface {
	// Save stores payload and returns its hash. Saving the same payload
	// twice yields the same hash.
	Save(ctx context.Context, payload json.RawMessage) (string, error)
	Get(ctx context.Context, hash string) (*Snapshot, error)
}

const hashBytes = 12

// Hash returns the base58 encoding of the leading bytes of the payload's
// SHA-256 digest.
func Hash(payload []byte) string {
	sum := sha256.Sum256(payload)
	return base58.Encode(sum[:hashBytes])
}
