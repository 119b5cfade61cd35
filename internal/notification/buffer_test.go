package notification

import (
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ev(n int) Event {
	return Event{ID: strconv.Itoa(n)}
}

func TestRingBuffer_FIFO(t *testing.T) {
	b := NewRingBuffer(4)
	for i := 0; i < 3; i++ {
		assert.False(t, b.Enqueue(ev(i)))
	}

	batch := b.DequeueBatch(2)
	require.Len(t, batch, 2)
	assert.Equal(t, "0", batch[0].ID)
	assert.Equal(t, "1", batch[1].ID)
	assert.Equal(t, 1, b.Len())
}

func TestRingBuffer_DropsOldestWhenFull(t *testing.T) {
	b := NewRingBuffer(3)
	for i := 0; i < 3; i++ {
		b.Enqueue(ev(i))
	}
	assert.True(t, b.Enqueue(ev(3)))
	assert.True(t, b.Enqueue(ev(4)))

	batch := b.DequeueBatch(10)
	require.Len(t, batch, 3)
	assert.Equal(t, []string{"2", "3", "4"}, []string{batch[0].ID, batch[1].ID, batch[2].ID})
	assert.Equal(t, int64(2), b.Dropped())
	assert.Nil(t, b.DequeueBatch(1))
}

func TestRingBuffer_DefaultCapacity(t *testing.T) {
	b := NewRingBuffer(0)
	assert.Equal(t, defaultBufferSize, b.capacity)
}

func TestRingBuffer_ConcurrentEnqueue(t *testing.T) {
	b := NewRingBuffer(1000)
	var wg sync.WaitGroup
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				b.Enqueue(ev(i))
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1000, b.Len())
	assert.Equal(t, int64(1000), b.Dropped())
}
