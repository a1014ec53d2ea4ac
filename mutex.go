// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rtipc

import "context"

// MutexMode selects a Mutex's creation-time behavior (spec §4.5 "create").
type MutexMode int

const (
	// Recursive allows the owner to re-acquire without blocking,
	// incrementing a lock count. Without it, self re-entry is
	// detected as a deadlock (ErrDeadlock) instead (xenomai's
	// "errorcheck" mode, supplemental per SPEC_FULL.md §C.5).
	Recursive MutexMode = 1 << iota
	// PriorityInherit raises the owner's effective priority to the
	// highest waiter's for the duration of ownership.
	PriorityInherit
	// Shared marks the control block for placement in a shared arena
	// (selection of the backing arena is the caller's responsibility;
	// this flag is bookkeeping only at this layer).
	Shared
)

const mutexMagic uint32 = 0x6d757478 // "mutx"

// Mutex is the recursive, priority-inheriting, robustness-aware lock of
// spec §4.5, built directly over [SyncObject]'s priority-ordered grant
// queue rather than the generic grant/drain pair (a mutex only ever has
// one kind of waiter: the next owner).
type Mutex struct {
	magic uint32
	name  string
	mode  MutexMode

	sync  *SyncObject
	guard Guard

	owner     *Thread
	ownerBase int32 // owner's own priority, pre-PI-boost
	count     int

	inconsistent     bool
	pendingOwnerDead bool
	condBindings     int
}

func (m *Mutex) validMagic() bool { return m != nil && m.magic == mutexMagic }

// NewMutex creates a mutex with the given mode bits.
func NewMutex(mode MutexMode) *Mutex {
	return &Mutex{
		magic: mutexMagic,
		mode:  mode,
		sync:  NewSyncObject(Priority),
	}
}

// Acquire locks the mutex, blocking per timeout if it is held by
// another thread. See spec §4.5 for the full outcome table.
func (m *Mutex) Acquire(ctx context.Context, self *Thread, timeout Timeout) error {
	defer Enter(&m.guard)()
	if err := m.sync.Lock(); err != nil {
		return err
	}

	if m.owner == self {
		if m.mode&Recursive == 0 {
			m.sync.Unlock()
			return ErrDeadlock
		}
		m.count++
		m.sync.Unlock()
		return nil
	}

	if m.owner == nil {
		m.grantTo(self)
		var err error
		if m.pendingOwnerDead {
			m.pendingOwnerDead = false
			err = ErrOwnerDead
		}
		m.sync.Unlock()
		return err
	}

	if timeout.IsNonBlocking() {
		m.sync.Unlock()
		return ErrWouldBlock
	}

	m.boost(self)
	_, err := m.sync.WaitGrant(ctx, self, timeout, nil)
	if err == ErrDeleted {
		return err
	}
	if err != nil {
		m.boost(nil) // the queue composition changed; recompute the boost ceiling
		m.sync.Unlock()
		return err
	}
	// Granted: release() in Release() already installed self as owner.
	m.sync.Unlock()
	if m.pendingOwnerDead {
		m.pendingOwnerDead = false
		return ErrOwnerDead
	}
	return nil
}

// grantTo installs self as the uncontended new owner. Must be called
// under m.sync.Lock.
func (m *Mutex) grantTo(self *Thread) {
	m.owner = self
	m.ownerBase = self.Priority()
	m.count = 1
}

// boost recomputes the current owner's effective priority as the max
// of its own base priority, candidate's priority (a thread about to
// enqueue, or nil), and every already-queued waiter's priority. Must
// be called under m.sync.Lock.
func (m *Mutex) boost(candidate *Thread) {
	if m.mode&PriorityInherit == 0 || m.owner == nil {
		return
	}
	max := m.ownerBase
	if w := m.sync.PeekGrant(); w != nil {
		if p := w.Thread.Priority(); p > max {
			max = p
		}
	}
	if candidate != nil {
		if p := candidate.Priority(); p > max {
			max = p
		}
	}
	m.owner.SetPriority(max)
}

// Release unlocks the mutex. Past the last recursive unlock, ownership
// hands off to the highest-priority waiter (spec §4.5 "release").
// Returns ErrPermission if self is not the current owner.
func (m *Mutex) Release(self *Thread) error {
	defer Enter(&m.guard)()
	if err := m.sync.Lock(); err != nil {
		return err
	}
	defer m.sync.Unlock()

	if m.owner != self {
		return ErrPermission
	}
	m.count--
	if m.count > 0 {
		return nil
	}

	m.owner.SetPriority(m.ownerBase) // drop any PI boost before handing off
	if w := m.sync.PopGrant(); w != nil {
		next := w.Thread
		m.grantTo(next)
		m.boost(nil)
		m.sync.Grant(w)
		return nil
	}
	m.owner = nil
	m.ownerBase = 0
	return nil
}

// Abandon marks the mutex as having lost its owner without a release
// (spec §4.5 "EOWNERDEAD"). Go has no pthread robust-mutex kernel
// notification for a dead thread, so the owning goroutine (or a
// supervisor recovering from its panic) calls this explicitly — the
// Go-idiomatic stand-in for the OS noticing a dead thread still holding
// a futex. The next successful Acquire returns ErrOwnerDead exactly
// once and leaves the mutex inconsistent until Reinit.
func (m *Mutex) Abandon() {
	if err := m.sync.Lock(); err != nil {
		return
	}
	defer m.sync.Unlock()

	m.owner = nil
	m.count = 0
	m.inconsistent = true
	m.pendingOwnerDead = true
	if w := m.sync.PopGrant(); w != nil {
		m.grantTo(w.Thread)
		m.pendingOwnerDead = true
		m.sync.Grant(w)
	}
}

// Reinit clears the inconsistent flag after a caller has recovered from
// an ErrOwnerDead acquisition. Must be called by the current owner.
func (m *Mutex) Reinit(self *Thread) error {
	if err := m.sync.Lock(); err != nil {
		return err
	}
	defer m.sync.Unlock()
	if m.owner != self {
		return ErrPermission
	}
	m.inconsistent = false
	return nil
}

// Inconsistent reports whether the mutex is in the post-owner-death
// state requiring Reinit.
func (m *Mutex) Inconsistent() bool {
	if err := m.sync.Lock(); err != nil {
		return false
	}
	defer m.sync.Unlock()
	return m.inconsistent
}

// lockDepth reports self's current recursive hold count without
// changing it. Used by Condvar.Wait to save a recursive owner's depth
// before dropping the mutex to zero across a suspend, so it can be
// restored on wake (spec §4.8 "Wait ... restore the prior recursion
// count").
func (m *Mutex) lockDepth(self *Thread) (int, error) {
	if err := m.sync.Lock(); err != nil {
		return 0, err
	}
	defer m.sync.Unlock()
	if m.owner != self {
		return 0, ErrPermission
	}
	return m.count, nil
}

// bindCondvar and unbindCondvar let Condvar enforce "delete fails if
// still bound to any condvar" (spec §4.5 "delete").
func (m *Mutex) bindCondvar()   { m.condBindings++ }
func (m *Mutex) unbindCondvar() { m.condBindings-- }

// Delete destroys the mutex. Fails with ErrBusy if held or bound to a
// condition variable.
func (m *Mutex) Delete() error {
	defer Enter(&m.guard)()
	if err := m.sync.Lock(); err != nil {
		return err
	}
	if m.owner != nil || m.condBindings > 0 {
		m.sync.Unlock()
		return ErrBusy
	}
	m.sync.Destroy()
	m.sync.Unlock()
	return nil
}
