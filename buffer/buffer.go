// Package buffer provides the bounded queue between the update cycle and the
// remote-write pusher.
package buffer

import (
	"sync"

	"go.uber.org/zap"
)

// RingBuffer is a thread-safe circular buffer. When full, adding overwrites
// the oldest entry, so a long remote-write outage costs old data rather than
// memory.
type RingBuffer[T any] struct {
	mu         sync.RWMutex
	data       []T
	capacity   int
	size       int
	next       int
	overwrites int
	logger     *zap.Logger
}

// New creates a RingBuffer with the given capacity
func New[T any](capacity int, logger *zap.Logger) *RingBuffer[T] {
	return &RingBuffer[T]{
		data:     make([]T, capacity),
		capacity: capacity,
		logger:   logger,
	}
}

// Add inserts an item, overwriting the oldest entry when the buffer is full
func (rb *RingBuffer[T]) Add(item T) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	if rb.size == rb.capacity {
		rb.overwrites++
		rb.logger.Warn("ring buffer full, overwriting oldest entry",
			zap.Int("capacity", rb.capacity),
			zap.Int("overwrites", rb.overwrites))
	}

	rb.data[rb.next] = item
	rb.next = (rb.next + 1) % rb.capacity

	if rb.size < rb.capacity {
		rb.size++
	}
}

// GetAllAndClear atomically drains the buffer, returning entries oldest
// first. The returned slice is a copy.
func (rb *RingBuffer[T]) GetAllAndClear() []T {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	if rb.size == 0 {
		return nil
	}

	results := make([]T, rb.size)
	if rb.size < rb.capacity {
		copy(results, rb.data[:rb.size])
	} else {
		// Full buffer: oldest entry sits at next, wrap around from there
		for i := 0; i < rb.size; i++ {
			results[i] = rb.data[(rb.next+i)%rb.capacity]
		}
	}

	rb.size = 0
	rb.next = 0

	return results
}

// Size returns the current number of buffered entries
func (rb *RingBuffer[T]) Size() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.size
}

// Capacity returns the maximum number of entries the buffer holds
func (rb *RingBuffer[T]) Capacity() int {
	return rb.capacity
}

// Overwrites returns how many entries have been lost to overflow
func (rb *RingBuffer[T]) Overwrites() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.overwrites
}
