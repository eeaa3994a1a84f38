package broadcast

import "sync"

// Ring buffers the most recent tick frames so a newly connected client can
// backfill its chart before live frames arrive. Frames are stored already
// serialized; replay is a straight copy.
type Ring struct {
	mu     sync.Mutex
	frames [][]byte
	next   int
	full   bool
}

func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = 1
	}
	return &Ring{frames: make([][]byte, capacity)}
}

func (r *Ring) Add(frame []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames[r.next] = frame
	r.next = (r.next + 1) % len(r.frames)
	if r.next == 0 {
		r.full = true
	}
}

// Snapshot returns buffered frames oldest first.
func (r *Ring) Snapshot() [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.full {
		out := make([][]byte, r.next)
		copy(out, r.frames[:r.next])
		return out
	}
	out := make([][]byte, 0, len(r.frames))
	out = append(out, r.frames[r.next:]...)
	out = append(out, r.frames[:r.next]...)
	return out
}

// Clear drops buffered frames (symbol switch makes old ticks misleading).
func (r *Ring) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.frames {
		r.frames[i] = nil
	}
	r.next = 0
	r.full = false
}

func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.full {
		return len(r.frames)
	}
	return r.next
}
