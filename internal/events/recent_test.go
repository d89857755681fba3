package events

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecentBufferEmpty(t *testing.T) {
	b := NewRecentBuffer(10)
	assert.Equal(t, 0, b.Len())
	assert.Empty(t, b.List(5))
}

func TestRecentBufferNewestFirst(t *testing.T) {
	b := NewRecentBuffer(10)
	for i := 1; i <= 3; i++ {
		b.Add(Event{ID: int64(i)})
	}

	got := b.List(0)
	assert.Len(t, got, 3)
	assert.Equal(t, int64(3), got[0].ID)
	assert.Equal(t, int64(2), got[1].ID)
	assert.Equal(t, int64(1), got[2].ID)
}

func TestRecentBufferWrapsAround(t *testing.T) {
	b := NewRecentBuffer(3)
	for i := 1; i <= 5; i++ {
		b.Add(Event{ID: int64(i)})
	}

	assert.Equal(t, 3, b.Len())

	got := b.List(0)
	assert.Len(t, got, 3)
	assert.Equal(t, int64(5), got[0].ID)
	assert.Equal(t, int64(4), got[1].ID)
	assert.Equal(t, int64(3), got[2].ID)
}

func TestRecentBufferLimit(t *testing.T) {
	b := NewRecentBuffer(10)
	for i := 1; i <= 8; i++ {
		b.Add(Event{ID: int64(i)})
	}

	got := b.List(2)
	assert.Len(t, got, 2)
	assert.Equal(t, int64(8), got[0].ID)

	got = b.List(100)
	assert.Len(t, got, 8)
}

func TestRecentBufferDefaultCapacity(t *testing.T) {
	b := NewRecentBuffer(0)
	b.Add(Event{ID: 1})
	assert.Equal(t, 1, b.Len())
}

func TestRecentBufferConcurrentAccess(t *testing.T) {
	b := NewRecentBuffer(50)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				b.Add(Event{ID: int64(n*100 + j), Camera: fmt.Sprintf("cam-%d", n)})
				b.List(10)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, b.Len())
}
