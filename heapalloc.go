// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rtipc

import (
	"context"

	"code.hybscloud.com/rtipc/internal/arena"
)

const heapMagic uint32 = 0x68656170 // "heap"

// Heap is the general block allocator of spec §4.9: a backing
// [arena.Arena] plus a grant-side waiter queue. A failed alloc enqueues
// the caller with its requested size instead of failing outright; a
// free re-scans the queue, in order, granting every waiter its scan
// can now satisfy.
type Heap struct {
	magic  uint32
	sync   *SyncObject
	guard  Guard
	arena  *arena.Arena
	single bool
	pinned int
	hasPin bool
}

func (h *Heap) validMagic() bool { return h != nil && h.magic == heapMagic }

// NewHeap creates a heap over a fresh arena of size bytes. single
// selects single-block mode (spec §4.9): the whole arena is handed out
// as one block to every allocator, pinned on first use, and free
// becomes a no-op.
func NewHeap(order Order, size int, single bool) (*Heap, error) {
	a, err := arena.New(size)
	if err != nil {
		return nil, err
	}
	return &Heap{
		magic:  heapMagic,
		sync:   NewSyncObject(order),
		arena:  a,
		single: single,
	}, nil
}

// Alloc reserves size bytes, blocking per timeout if the arena cannot
// currently satisfy the request. Returns the block's arena offset.
func (h *Heap) Alloc(ctx context.Context, self *Thread, size int, timeout Timeout) (int, error) {
	defer Enter(&h.guard)()
	if err := h.sync.Lock(); err != nil {
		return 0, err
	}

	if h.single {
		if h.hasPin {
			h.sync.Unlock()
			return h.pinned, nil
		}
		off, ok := h.arena.Alloc(h.arena.Len())
		if ok {
			h.pinned = off
			h.hasPin = true
			h.sync.Unlock()
			return off, nil
		}
	} else if off, ok := h.arena.Alloc(size); ok {
		h.sync.Unlock()
		return off, nil
	}

	if timeout.IsNonBlocking() {
		h.sync.Unlock()
		return 0, ErrWouldBlock
	}
	w, err := h.sync.WaitGrant(ctx, self, timeout, size)
	if err == ErrDeleted {
		return 0, err
	}
	if err != nil {
		h.sync.Unlock()
		return 0, err
	}
	off := w.Payload.(int)
	h.sync.Unlock()
	return off, nil
}

// Free returns block's offset to the allocator and grants it (or a
// piece of the space it freed) to every waiter the scan can satisfy,
// in queue order (spec §4.9 "free").
func (h *Heap) Free(block int) error {
	defer Enter(&h.guard)()
	if err := h.sync.Lock(); err != nil {
		return err
	}
	defer h.sync.Unlock()

	if h.single {
		return nil // single-block mode: free is a no-op
	}
	if !h.arena.Validate(block) {
		return ErrInvalid
	}
	h.arena.Free(block)
	h.satisfyWaiters()
	return nil
}

// satisfyWaiters scans every grant waiter in queue order, granting each
// one the allocator can now serve and skipping past the ones it can't,
// so a smaller waiter behind an unsatisfiable head still gets served
// (spec §4.9 "free"; spec §8 scenario 5).
func (h *Heap) satisfyWaiters() {
	h.sync.ScanGrant(func(w *Waiter) bool {
		size := w.Payload.(int)
		off, ok := h.arena.Alloc(size)
		if !ok {
			return false
		}
		w.Payload = off
		return true
	})
}

// Delete destroys the heap, releasing every waiter with ErrDeleted.
func (h *Heap) Delete() error {
	defer Enter(&h.guard)()
	if err := h.sync.Lock(); err != nil {
		return err
	}
	h.sync.Destroy()
	h.sync.Unlock()
	return h.arena.Close()
}
