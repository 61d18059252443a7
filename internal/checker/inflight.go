package checker

import (
	"errors"
	"sync"
)

// ErrCheckInFlight is returned when a check for the same product is already
// running, e.g. a manual "check now" racing the scheduled sweep.
var ErrCheckInFlight = errors.New("a check for this product is already in flight")

// InFlight is a per-product mutual-exclusion token set. Holding the token for
// a product ID covers the whole check-and-persist sequence, so two concurrent
// triggers cannot interleave history writes or double-fire a drop
// notification for the same transition.
type InFlight struct {
	mu  sync.Mutex
	ids map[int]struct{}
}

func NewInFlight() *InFlight {
	return &InFlight{ids: make(map[int]struct{})}
}

// TryAcquire claims the token for id. It never blocks; callers that lose the
// race should fail fast with ErrCheckInFlight.
func (f *InFlight) TryAcquire(id int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, busy := f.ids[id]; busy {
		return false
	}
	f.ids[id] = struct{}{}
	return true
}

func (f *InFlight) Release(id int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.ids, id)
}
