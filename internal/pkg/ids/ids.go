package ids

import (
	mathrand "math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0)
)

// Reference returns a lexicographically sortable identifier, used as the
// human-facing reference of repayment postings.
func Reference(at time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(at), entropy).String()
}

// NewID returns a UUIDv7 primary key.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Derived returns a stable UUIDv5 under parent so regenerated rows keep
// their identity.
func Derived(parent string, name string) string {
	ns, err := uuid.Parse(parent)
	if err != nil {
		ns = uuid.NewSHA1(uuid.NameSpaceOID, []byte(parent))
	}
	return uuid.NewSHA1(ns, []byte(name)).String()
}
