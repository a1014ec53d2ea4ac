// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rtipc

import (
	"context"

	"code.hybscloud.com/rtipc/internal/arena"
)

const regionMagic uint32 = 0x72676e00 // "rgn\0"

// Region is the pSOS-flavored fixed-interior allocator of
// SPEC_FULL.md §C.2 / spec §4.10: like [Heap], but over a caller-sized
// arena with an explicit usage cap equal to the arena's length, and a
// force-delete flag that lets a region be torn down out from under
// still-live segments.
type Region struct {
	magic    uint32
	sync     *SyncObject
	guard    Guard
	arena    *arena.Arena
	used     int
	length   int
	force    bool
	segsOut  int
	segSizes map[int]int // offset -> size, for RetSeg's usage-cap bookkeeping
}

func (r *Region) validMagic() bool { return r != nil && r.magic == regionMagic }

// NewRegion creates a region over a fresh arena of length bytes.
// force, if set, allows Delete to succeed with segments still
// outstanding (spec §4.10 "force-delete flag").
func NewRegion(order Order, length int, force bool) (*Region, error) {
	a, err := arena.New(length)
	if err != nil {
		return nil, err
	}
	return &Region{
		magic:    regionMagic,
		sync:     NewSyncObject(order),
		arena:    a,
		length:   length,
		force:    force,
		segSizes: make(map[int]int),
	}, nil
}

// GetSeg reserves size bytes, blocking per timeout while used+size
// would exceed length (spec §4.10 "getseg").
func (r *Region) GetSeg(ctx context.Context, self *Thread, size int, timeout Timeout) (int, error) {
	defer Enter(&r.guard)()
	if err := r.sync.Lock(); err != nil {
		return 0, err
	}

	if r.used+size <= r.length {
		if off, ok := r.arena.Alloc(size); ok {
			r.used += size
			r.segsOut++
			r.segSizes[off] = size
			r.sync.Unlock()
			return off, nil
		}
	}

	if timeout.IsNonBlocking() {
		r.sync.Unlock()
		return 0, ErrWouldBlock
	}
	w, err := r.sync.WaitGrant(ctx, self, timeout, size)
	if err == ErrDeleted {
		return 0, err
	}
	if err != nil {
		r.sync.Unlock()
		return 0, err
	}
	off := w.Payload.(int)
	r.sync.Unlock()
	return off, nil
}

// RetSeg returns seg's offset to the allocator and performs the same
// waiter scan as [Heap.Free] (spec §4.10 "retseg").
func (r *Region) RetSeg(seg int) error {
	defer Enter(&r.guard)()
	if err := r.sync.Lock(); err != nil {
		return err
	}
	defer r.sync.Unlock()

	if !r.arena.Validate(seg) {
		return ErrInvalid
	}
	size := r.segSizes[seg]
	delete(r.segSizes, seg)
	r.arena.Free(seg)
	r.used -= size
	r.segsOut--
	r.satisfyWaiters()
	return nil
}

// satisfyWaiters scans every grant waiter in queue order, skipping past
// any whose request the usage cap or the allocator can't currently
// serve, so a smaller waiter behind one isn't starved by it.
func (r *Region) satisfyWaiters() {
	r.sync.ScanGrant(func(w *Waiter) bool {
		size := w.Payload.(int)
		if r.used+size > r.length {
			return false
		}
		off, ok := r.arena.Alloc(size)
		if !ok {
			return false
		}
		r.used += size
		r.segsOut++
		r.segSizes[off] = size
		w.Payload = off
		return true
	})
}

// Delete destroys the region. Fails with ErrBusy if segments are still
// outstanding, unless force was set at creation.
func (r *Region) Delete() error {
	defer Enter(&r.guard)()
	if err := r.sync.Lock(); err != nil {
		return err
	}
	if r.segsOut > 0 && !r.force {
		r.sync.Unlock()
		return ErrBusy
	}
	r.sync.Destroy()
	r.sync.Unlock()
	return r.arena.Close()
}
