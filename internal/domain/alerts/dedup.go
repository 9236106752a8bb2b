package alerts

import "time"

// DefaultFiredLimit bounds the fired set; past it the set is cleared wholesale
const DefaultFiredLimit = 500

// firedSet records delivered alerts until their event leaves the active window.
// Callers hold the scheduler lock.
type firedSet struct {
	keys  map[FiredKey]time.Time // key -> expiry
	limit int
}

func newFiredSet(limit int) *firedSet {
	if limit <= 0 {
		limit = DefaultFiredLimit
	}
	return &firedSet{keys: make(map[FiredKey]time.Time), limit: limit}
}

func (f *firedSet) has(key FiredKey) bool {
	_, ok := f.keys[key]
	return ok
}

// mark records key and reports whether it was new
func (f *firedSet) mark(key FiredKey, expires time.Time) bool {
	if _, ok := f.keys[key]; ok {
		return false
	}
	f.keys[key] = expires
	return true
}

// expire drops keys whose event has left the active window
func (f *firedSet) expire(now time.Time) int {
	dropped := 0
	for k, exp := range f.keys {
		if now.After(exp) {
			delete(f.keys, k)
			dropped++
		}
	}
	return dropped
}

// enforceLimit clears the set when it has grown past the limit
func (f *firedSet) enforceLimit() bool {
	if len(f.keys) <= f.limit {
		return false
	}
	f.keys = make(map[FiredKey]time.Time)
	return true
}

func (f *firedSet) len() int {
	return len(f.keys)
}
