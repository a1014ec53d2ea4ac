// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rtipc

import (
	"sync"
)

// Handle is the opaque integer spec §3 describes: never zero on a live
// object, encoding a slot + generation pair so a stale or aliased value
// is rejected without dereferencing anything. A Go process has no
// pointer arithmetic across address spaces to do, but the shape —
// opaque integer in, magic-checked control block out, rejected under
// lock on a generation mismatch — is the same contract the spec
// describes for cross-process arenas (§4.2).
type Handle uint64

const nullHandle Handle = 0

func newHandle(slot, generation uint32) Handle {
	return Handle(uint64(generation)<<32 | uint64(slot))
}

func (h Handle) slot() uint32       { return uint32(h) }
func (h Handle) generation() uint32 { return uint32(h >> 32) }

// magicChecked is implemented by every control block Reference can
// hold: the generation-tagged slot table only hands a pointer back to
// its caller after this check passes, defeating a racing delete that
// landed between Resolve reading the slot and the caller locking the
// object's own sync object (spec §4.2 "the magic is re-checked under
// the sync-object lock to defeat racing deletions" — callers must
// still do that second check themselves after taking their lock).
type magicChecked interface {
	validMagic() bool
}

// Reference is the generation-tagged slot table backing Handle
// resolution for one control-block type. Each component (Mutex, Event,
// ...) owns one Reference[*itsControlBlock].
type Reference[T magicChecked] struct {
	mu    sync.RWMutex
	slots []refSlot[T]
	free  []uint32
}

type refSlot[T magicChecked] struct {
	obj        T
	generation uint32
	occupied   bool
}

// NewReference creates an empty slot table.
func NewReference[T magicChecked]() *Reference[T] {
	return &Reference[T]{}
}

// Register mints a Handle for obj and makes it resolvable.
func (r *Reference[T]) Register(obj T) Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n := len(r.free); n > 0 {
		idx := r.free[n-1]
		r.free = r.free[:n-1]
		s := &r.slots[idx]
		s.obj = obj
		s.occupied = true
		return newHandle(idx, s.generation)
	}

	idx := uint32(len(r.slots))
	r.slots = append(r.slots, refSlot[T]{obj: obj, occupied: true})
	return newHandle(idx, 0)
}

// Resolve translates h into its control block. Returns ErrInvalid if h
// is null, out of range, stale (generation mismatch — the slot was
// freed and reused or freed and not reused), or the object's own magic
// check fails.
func (r *Reference[T]) Resolve(h Handle) (T, error) {
	var zero T
	if h == nullHandle {
		return zero, ErrInvalid
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	idx := h.slot()
	if int(idx) >= len(r.slots) {
		return zero, ErrInvalid
	}
	s := &r.slots[idx]
	if !s.occupied || s.generation != h.generation() {
		return zero, ErrInvalid
	}
	if !s.obj.validMagic() {
		return zero, ErrInvalid
	}
	return s.obj, nil
}

// Unregister retires h: the slot is freed and its generation bumped so
// any outstanding copy of h becomes stale (ErrInvalid on Resolve).
func (r *Reference[T]) Unregister(h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := h.slot()
	if int(idx) >= len(r.slots) {
		return
	}
	s := &r.slots[idx]
	if !s.occupied || s.generation != h.generation() {
		return
	}
	var zero T
	s.obj = zero
	s.occupied = false
	s.generation++
	r.free = append(r.free, idx)
}
