package events

import "sync"

// RecentBuffer keeps the last N ingested events in memory for the quick
// inspection endpoint, mirroring what operators see before the database
// catches up.
type RecentBuffer struct {
	mu    sync.RWMutex
	items []Event
	next  int
	size  int
	count int
}

func NewRecentBuffer(capacity int) *RecentBuffer {
	if capacity <= 0 {
		capacity = 100
	}
	return &RecentBuffer{
		items: make([]Event, capacity),
		size:  capacity,
	}
}

func (b *RecentBuffer) Add(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.items[b.next] = event
	b.next = (b.next + 1) % b.size
	if b.count < b.size {
		b.count++
	}
}

// List returns up to limit events, newest first.
func (b *RecentBuffer) List(limit int) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if limit <= 0 || limit > b.count {
		limit = b.count
	}

	result := make([]Event, 0, limit)
	for i := 0; i < limit; i++ {
		idx := (b.next - 1 - i + b.size*2) % b.size
		result = append(result, b.items[idx])
	}
	return result
}

func (b *RecentBuffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.count
}
