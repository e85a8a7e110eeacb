// Package handles keeps registries of Go objects that are referenced from
// the host through opaque integer handles.
package handles

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/ethereum/go-ethereum/metrics"
)

var ErrInvalidHandle = errors.New("invalid handle")

// Handles maps non-zero integer handles to objects of type T. Go pointers
// must not be handed to foreign code, so the host only ever sees the handle.
//
// Handle 0 is never issued, hosts can use it as "null".
type Handles[T any] struct {
	mu      sync.RWMutex
	used    map[int]T
	current int
	live    gauge
}

type gauge interface {
	Update(int64)
}

// New creates an empty registry. The name is used for the live-handle gauge
// bridge/handles/<name>.
func New[T any](name string) *Handles[T] {
	return &Handles[T]{
		used: make(map[int]T),
		live: metrics.GetOrRegisterGauge("bridge/handles/"+name, nil),
	}
}

// Add registers obj and returns its handle. Handles are handed out in
// increasing order and wrap around at MaxInt32, skipping handles still in use.
func (h *Handles[T]) Add(obj T) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	// The int32 space will hardly be exhausted before memory is.
	if len(h.used) == math.MaxInt32 {
		panic(fmt.Sprintf("out of handles, unable to add %T", obj))
	}
	for {
		if h.current == math.MaxInt32 {
			h.current = 0
		}
		h.current++
		if _, exists := h.used[h.current]; !exists {
			h.used[h.current] = obj
			h.live.Update(int64(len(h.used)))
			return h.current
		}
	}
}

// Get returns the object registered under handle.
func (h *Handles[T]) Get(handle int) (T, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	obj, exists := h.used[handle]
	if !exists {
		return obj, fmt.Errorf("%w: %d", ErrInvalidHandle, handle)
	}
	return obj, nil
}

// Remove releases handle and returns the object it referred to. The boolean
// reports whether the handle was registered.
func (h *Handles[T]) Remove(handle int) (T, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	obj, exists := h.used[handle]
	if exists {
		delete(h.used, handle)
		h.live.Update(int64(len(h.used)))
	}
	return obj, exists
}

// Len returns the number of live handles.
func (h *Handles[T]) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.used)
}

// Range calls fn for every live handle until fn returns false. The registry
// must not be modified from within fn.
func (h *Handles[T]) Range(fn func(handle int, obj T) bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for handle, obj := range h.used {
		if !fn(handle, obj) {
			return
		}
	}
}
