package events

import (
	"hash/fnv"
	"sync"
)

const trackerMaxEntries = 65536

// deliveryTracker counts failed persistence attempts per message body so the
// consumer can stop requeueing a record that keeps failing. The count is
// per-process and best-effort: a consumer restart resets it, which only means
// a few extra redeliveries before the threshold is hit again.
type deliveryTracker struct {
	mu       sync.Mutex
	attempts map[uint64]int
}

func newDeliveryTracker() *deliveryTracker {
	return &deliveryTracker{
		attempts: make(map[uint64]int),
	}
}

func fingerprint(body []byte) uint64 {
	h := fnv.New64a()
	h.Write(body)
	return h.Sum64()
}

// bump records one more failed attempt and returns the running total.
func (t *deliveryTracker) bump(body []byte) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	// Bounded memory: under sustained store outage every queued message fails
	// here, so shed all counts rather than grow without limit.
	if len(t.attempts) >= trackerMaxEntries {
		t.attempts = make(map[uint64]int)
	}

	key := fingerprint(body)
	t.attempts[key]++
	return t.attempts[key]
}

func (t *deliveryTracker) forget(body []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.attempts, fingerprint(body))
}
