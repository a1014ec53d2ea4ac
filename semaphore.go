// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rtipc

import "context"

const semaphoreMagic uint32 = 0x73656d61 // "sema"

// Semaphore is the counting semaphore of spec §4.7: a non-negative
// count, Take blocking while it is zero, Give handing its unit to the
// head waiter or, with nobody queued, incrementing the count, and
// Pulse waking everyone currently queued without touching the count
// at all.
type Semaphore struct {
	magic uint32
	sync  *SyncObject
	guard Guard
	count uint32
	limit uint32 // 0 means unbounded
}

func (s *Semaphore) validMagic() bool { return s != nil && s.magic == semaphoreMagic }

// NewSemaphore creates a counting semaphore with the given initial
// count, ordering waiters per order. limit bounds Give (ErrNoBuffers
// past it); 0 leaves it unbounded.
func NewSemaphore(order Order, initial, limit uint32) *Semaphore {
	return &Semaphore{
		magic: semaphoreMagic,
		sync:  NewSyncObject(order),
		count: initial,
		limit: limit,
	}
}

// Take decrements the count, blocking while it is zero.
func (s *Semaphore) Take(ctx context.Context, self *Thread, timeout Timeout) error {
	defer Enter(&s.guard)()
	if err := s.sync.Lock(); err != nil {
		return err
	}

	timeout = timeout.Anchor()
	for {
		if s.count > 0 {
			s.count--
			s.sync.Unlock()
			return nil
		}
		if timeout.IsNonBlocking() {
			s.sync.Unlock()
			return ErrWouldBlock
		}
		w, err := s.sync.WaitGrant(ctx, self, timeout, nil)
		if err == ErrDeleted {
			return err
		}
		if err != nil {
			s.sync.Unlock()
			return err
		}
		if granted, _ := w.Payload.(bool); granted {
			// A Give handed its unit straight to us (see Give); no
			// further count bookkeeping needed.
			s.sync.Unlock()
			return nil
		}
		// A Pulse woke us with no unit deposited — loop back and
		// re-wait on the current count.
	}
}

// Give hands one unit to the head waiter, if any; otherwise it
// increments the count (capped at limit, if set). Returns ErrNoBuffers
// if limit would be exceeded.
func (s *Semaphore) Give() error {
	defer Enter(&s.guard)()
	if err := s.sync.Lock(); err != nil {
		return err
	}
	defer s.sync.Unlock()

	if w := s.sync.PopGrant(); w != nil {
		// Hand the unit straight to the waiter: count never observably
		// rises above zero while someone is already queued for it.
		w.Payload = true
		s.sync.Grant(w)
		return nil
	}
	if s.limit > 0 && s.count >= s.limit {
		return ErrNoBuffers
	}
	s.count++
	return nil
}

// Pulse wakes every current waiter without incrementing the count
// (spec §4.7 "pulse": a broadcast notification, not a unit transfer —
// each woken waiter re-blocks immediately since the count it actually
// needs was never deposited).
func (s *Semaphore) Pulse() error {
	defer Enter(&s.guard)()
	if err := s.sync.Lock(); err != nil {
		return err
	}
	defer s.sync.Unlock()
	s.sync.GrantAll()
	return nil
}

// Count returns the current count without blocking.
func (s *Semaphore) Count() (uint32, error) {
	if err := s.sync.Lock(); err != nil {
		return 0, err
	}
	defer s.sync.Unlock()
	return s.count, nil
}

// Delete destroys the semaphore, releasing every waiter with
// ErrDeleted.
func (s *Semaphore) Delete() error {
	defer Enter(&s.guard)()
	if err := s.sync.Lock(); err != nil {
		return err
	}
	s.sync.Destroy()
	s.sync.Unlock()
	return nil
}
