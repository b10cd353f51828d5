package enforcer

import (
	"sync"

	"github.com/ruteri/shard-integrity-enforcer/interfaces"
)

// alertHistory is a fixed-capacity ring of the most recent alerts. Once
// full, new alerts evict the oldest.
type alertHistory struct {
	mu    sync.RWMutex
	buf   []interfaces.Alert
	next  int
	full  bool
	total uint64
}

func newAlertHistory(capacity int) *alertHistory {
	return &alertHistory{buf: make([]interfaces.Alert, capacity)}
}

func (h *alertHistory) add(alert interfaces.Alert) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.total++
	h.buf[h.next] = alert
	h.next++
	if h.next == len(h.buf) {
		h.next = 0
		h.full = true
	}
}

// recent returns up to n alerts, newest first. n of zero or less returns
// everything the ring holds.
func (h *alertHistory) recent(n int) []interfaces.Alert {
	h.mu.RLock()
	defer h.mu.RUnlock()

	held := h.next
	if h.full {
		held = len(h.buf)
	}
	if n <= 0 || n > held {
		n = held
	}

	out := make([]interfaces.Alert, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, h.buf[(h.next-i+len(h.buf))%len(h.buf)])
	}
	return out
}

// count reports how many alerts were recorded over the enforcer's
// lifetime, including ones already evicted from the ring.
func (h *alertHistory) count() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.total
}
