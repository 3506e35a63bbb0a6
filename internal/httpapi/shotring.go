package httpapi

import (
	"sync"

	"github.com/flighthook/flighthook/internal/shot"
)

// ringCapacity bounds the in-memory shot history per §4.8: the last
// 1000 shots, oldest evicted first.
const ringCapacity = 1000

// shotRing is an in-memory FIFO of the most recently emitted shots,
// oldest first. It backs GET /api/shots without any persistence layer.
type shotRing struct {
	mu   sync.Mutex
	buf  []shot.Data
	next int
	full bool
}

func newShotRing() *shotRing {
	return &shotRing{buf: make([]shot.Data, ringCapacity)}
}

// push appends d, evicting the oldest entry once the ring is full.
func (r *shotRing) push(d shot.Data) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf[r.next] = d
	r.next = (r.next + 1) % ringCapacity
	if r.next == 0 {
		r.full = true
	}
}

// snapshot returns up to limit of the most recently pushed shots,
// oldest first. limit <= 0 returns every shot currently held.
func (r *shotRing) snapshot(limit int) []shot.Data {
	r.mu.Lock()
	defer r.mu.Unlock()

	var ordered []shot.Data
	if r.full {
		ordered = append(ordered, r.buf[r.next:]...)
		ordered = append(ordered, r.buf[:r.next]...)
	} else {
		ordered = append(ordered, r.buf[:r.next]...)
	}

	if limit > 0 && limit < len(ordered) {
		ordered = ordered[len(ordered)-limit:]
	}
	out := make([]shot.Data, len(ordered))
	copy(out, ordered)
	return out
}
