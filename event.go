// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rtipc

import (
	"context"

	"code.hybscloud.com/atomix"
)

// EventMode selects how a waiter's mask is tested against the group's
// current flags (spec §4.6 "wait mode").
type EventMode int

const (
	// Any is satisfied once at least one requested bit is set
	// (disjunctive wait).
	Any EventMode = iota
	// All is satisfied only once every requested bit is set
	// (conjunctive wait).
	All
)

// EventConsume, when combined with a wait mode, clears the matched bits
// from the group atomically with the wait's return (spec §4.6
// "consume on read"). Without it, flags persist until explicitly
// cleared.
const EventConsume EventMode = 1 << 4

const eventMagic uint32 = 0x65766e74 // "evnt"

// Event is the event-flag group of spec §4.6: a 32-bit mask, tested
// disjunctively or conjunctively, with no-lost-signals semantics (a
// Post that arrives between a waiter's mask check and its suspend is
// never missed, since both run under the same [SyncObject] lock).
type Event struct {
	magic uint32
	mask  atomix.Uint32
	sync  *SyncObject
	guard Guard
}

func (e *Event) validMagic() bool { return e != nil && e.magic == eventMagic }

// NewEvent creates an event-flag group, initially all clear, ordering
// waiters per order.
func NewEvent(order Order) *Event {
	return &Event{
		magic: eventMagic,
		sync:  NewSyncObject(order),
	}
}

// satisfied tests whether bits matches the request under mode (modulo
// the Consume bit, which only affects post-match bookkeeping).
func satisfied(bits, request uint32, mode EventMode) bool {
	if mode&All != 0 {
		return bits&request == request
	}
	return bits&request != 0
}

// Wait blocks until the group's current flags satisfy request under
// mode, or the timeout/context/deletion outcome fires first. Returns
// the matched subset (bits & request) observed at the moment of match,
// before any Consume clear — unrelated bits set at match time are not
// included (spec §4.6 "return the matched subset").
func (e *Event) Wait(ctx context.Context, self *Thread, request uint32, mode EventMode, timeout Timeout) (uint32, error) {
	defer Enter(&e.guard)()
	if err := e.sync.Lock(); err != nil {
		return 0, err
	}

	timeout = timeout.Anchor()
	for {
		bits := e.mask.LoadAcquire()
		if satisfied(bits, request, mode) {
			if mode&EventConsume != 0 {
				e.mask.StoreRelease(bits &^ request)
			}
			e.sync.Unlock()
			return bits & request, nil
		}
		if timeout.IsNonBlocking() {
			e.sync.Unlock()
			return 0, ErrWouldBlock
		}
		_, err := e.sync.WaitGrant(ctx, self, timeout, nil)
		if err == ErrDeleted {
			return 0, err
		}
		if err != nil {
			e.sync.Unlock()
			return 0, err
		}
		// WaitGrant re-acquired the lock; loop to re-test the mask —
		// a Post's GrantAll wakes every waiter regardless of whose
		// request it actually satisfies.
	}
}

// Post ORs bits into the group's flags and wakes every waiter (spec
// §4.6 "post"). Each woken waiter re-tests its own mask and returns
// only if it is satisfied, otherwise it waits again, so an overlapping
// request from another Post in between can never be missed.
func (e *Event) Post(bits uint32) error {
	defer Enter(&e.guard)()
	if err := e.sync.Lock(); err != nil {
		return err
	}
	defer e.sync.Unlock()
	e.mask.StoreRelease(e.mask.LoadAcquire() | bits)
	e.sync.GrantAll()
	return nil
}

// Clear clears bits from the group's flags without affecting waiters.
func (e *Event) Clear(bits uint32) error {
	if err := e.sync.Lock(); err != nil {
		return err
	}
	defer e.sync.Unlock()
	e.mask.StoreRelease(e.mask.LoadAcquire() &^ bits)
	return nil
}

// Peek returns the group's current flags without blocking.
func (e *Event) Peek() (uint32, error) {
	if err := e.sync.Lock(); err != nil {
		return 0, err
	}
	defer e.sync.Unlock()
	return e.mask.LoadAcquire(), nil
}

// Delete destroys the event group, releasing every waiter with
// ErrDeleted.
func (e *Event) Delete() error {
	defer Enter(&e.guard)()
	if err := e.sync.Lock(); err != nil {
		return err
	}
	e.sync.Destroy()
	e.sync.Unlock()
	return nil
}
