package notification

import "sync"

const defaultBufferSize = 10000

// RingBuffer is a bounded, thread-safe FIFO of events. When full, the oldest
// event is dropped to make room.
type RingBuffer struct {
	mu       sync.Mutex
	events   []Event
	head     int // next write position
	tail     int // next read position
	count    int
	capacity int

	dropped int64
}

func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		capacity = defaultBufferSize
	}
	return &RingBuffer{
		events:   make([]Event, capacity),
		capacity: capacity,
	}
}

// Enqueue adds an event. It reports whether an older event was dropped.
func (b *RingBuffer) Enqueue(event Event) (droppedOldest bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count >= b.capacity {
		b.events[b.tail] = Event{}
		b.tail = (b.tail + 1) % b.capacity
		b.count--
		b.dropped++
		droppedOldest = true
	}

	b.events[b.head] = event
	b.head = (b.head + 1) % b.capacity
	b.count++
	return droppedOldest
}

// DequeueBatch removes up to n events, oldest first.
func (b *RingBuffer) DequeueBatch(n int) []Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count == 0 || n <= 0 {
		return nil
	}
	if n > b.count {
		n = b.count
	}

	result := make([]Event, n)
	for i := 0; i < n; i++ {
		result[i] = b.events[b.tail]
		b.events[b.tail] = Event{}
		b.tail = (b.tail + 1) % b.capacity
	}
	b.count -= n
	return result
}

func (b *RingBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Dropped returns the total number of events evicted by Enqueue.
func (b *RingBuffer) Dropped() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}
