// Package arena stores values in reusable slots addressed by
// generation-checked handles.
//
// A Handle stays valid until the value it names is removed. Removing a value
// bumps the slot's generation, so every copy of the old handle goes stale at
// once and a second Remove through any of them fails instead of touching
// whatever later reuses the slot.
package arena

import "github.com/cockroachdb/errors"

// ErrStale is returned when a handle is empty, was never issued by this
// arena, or names a value that has already been removed.
var ErrStale = errors.New("stale or empty arena handle")

// Handle names one value inside an Arena. The zero Handle is never issued.
type Handle struct {
	index      uint32
	generation uint32
}

// IsZero reports whether h is the empty handle.
func (h Handle) IsZero() bool {
	return h.generation == 0
}

type slot[T any] struct {
	value      T
	generation uint32
	occupied   bool
}

// Arena is not safe for concurrent use.
type Arena[T any] struct {
	slots []slot[T]
	free  []uint32
	live  int
}

// Insert stores v and returns the handle that names it.
func (a *Arena[T]) Insert(v T) Handle {
	var index uint32
	if n := len(a.free); n > 0 {
		index = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		a.slots = append(a.slots, slot[T]{})
		index = uint32(len(a.slots) - 1)
	}

	s := &a.slots[index]
	// generation 0 is reserved for the zero Handle
	s.generation++
	if s.generation == 0 {
		s.generation = 1
	}
	s.value = v
	s.occupied = true
	a.live++

	return Handle{index: index, generation: s.generation}
}

func (a *Arena[T]) lookup(h Handle) (*slot[T], error) {
	if h.IsZero() || int(h.index) >= len(a.slots) {
		return nil, ErrStale
	}
	s := &a.slots[h.index]
	if !s.occupied || s.generation != h.generation {
		return nil, ErrStale
	}
	return s, nil
}

// Get returns the value named by h.
func (a *Arena[T]) Get(h Handle) (T, bool) {
	s, err := a.lookup(h)
	if err != nil {
		var zero T
		return zero, false
	}
	return s.value, true
}

// Remove deletes the value named by h and returns it. Every copy of h is
// stale afterwards.
func (a *Arena[T]) Remove(h Handle) (T, error) {
	var zero T
	s, err := a.lookup(h)
	if err != nil {
		return zero, err
	}

	v := s.value
	s.value = zero
	s.occupied = false
	s.generation++
	if s.generation == 0 {
		s.generation = 1
	}
	a.free = append(a.free, h.index)
	a.live--

	return v, nil
}

// Len returns the number of live values.
func (a *Arena[T]) Len() int {
	return a.live
}

// Each calls fn for every live value in slot order. fn must not insert into
// or remove from the arena.
func (a *Arena[T]) Each(fn func(h Handle, v T)) {
	for i := range a.slots {
		s := &a.slots[i]
		if s.occupied {
			fn(Handle{index: uint32(i), generation: s.generation}, s.value)
		}
	}
}

// Drain removes every live value, calling fn for each in slot order.
func (a *Arena[T]) Drain(fn func(v T)) {
	for i := range a.slots {
		s := &a.slots[i]
		if !s.occupied {
			continue
		}
		v, _ := a.Remove(Handle{index: uint32(i), generation: s.generation})
		if fn != nil {
			fn(v)
		}
	}
}
