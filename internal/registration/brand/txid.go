package brand

import (
	"strconv"
	"sync"
	"time"

	dErrors "carreg/pkg/domain-errors"
)

const (
	maxTransactionIDLength = 32
	// ticksAtUnixEpoch is the number of 100ns intervals between
	// 0001-01-01 and 1970-01-01.
	ticksAtUnixEpoch int64 = 621355968000000000
)

// TransactionIDs issues clock-derived transaction ids in tick units.
// Ids are strictly increasing per instance even when the clock stalls.
type TransactionIDs struct {
	clock func() time.Time

	mu   sync.Mutex
	last int64
}

// NewTransactionIDs returns a generator reading clock; nil means time.Now.
func NewTransactionIDs(clock func() time.Time) *TransactionIDs {
	if clock == nil {
		clock = time.Now
	}
	return &TransactionIDs{clock: clock}
}

// Next returns a new id. It fails only when the clock yields no time.
func (g *TransactionIDs) Next() (string, error) {
	now := g.clock()
	if now.IsZero() {
		return "", dErrors.New(dErrors.CodeInternal, "transaction id clock unavailable")
	}
	ticks := now.UnixNano()/100 + ticksAtUnixEpoch

	g.mu.Lock()
	if ticks <= g.last {
		ticks = g.last + 1
	}
	g.last = ticks
	g.mu.Unlock()

	return truncate(strconv.FormatInt(ticks, 10), maxTransactionIDLength), nil
}
