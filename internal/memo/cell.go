// Package memo provides a write-once slot for values that are expensive to
// produce and must be observed consistently once produced.
package memo

import (
	"sync"
	"sync/atomic"
)

type state uint32

const (
	stateEmpty state = iota
	stateFilled
)

// Cell holds a value that transitions from empty to filled exactly once.
//
// The zero Cell is empty and ready to use. A Cell must not be copied after
// first use.
type Cell[T any] struct {
	state atomic.Uint32
	mu    sync.Mutex
	value T
}

// Get returns the stored value and true if the cell is filled.
func (c *Cell[T]) Get() (T, bool) {
	if state(c.state.Load()) == stateFilled {
		return c.value, true
	}
	var zero T
	return zero, false
}

// Filled reports whether a value has been stored.
func (c *Cell[T]) Filled() bool {
	return state(c.state.Load()) == stateFilled
}

// GetOrInit returns the stored value, running init to produce it if the cell
// is still empty. Concurrent callers block until the single init finishes;
// whatever init returns (zero values included) is kept for good.
func (c *Cell[T]) GetOrInit(init func() T) T {
	if state(c.state.Load()) == stateFilled {
		return c.value
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// повторная проверка под замком
	if state(c.state.Load()) == stateFilled {
		return c.value
	}
	c.value = init()
	c.state.Store(uint32(stateFilled))
	return c.value
}
