// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rtipc

import "context"

const condvarMagic uint32 = 0x636f6e64 // "cond"

// Condvar is the condition variable of SPEC_FULL.md §C.4: bound to
// exactly one [Mutex] for its lifetime, Wait atomically releases that
// mutex and suspends, re-acquiring it before returning under every
// outcome (spec §4.4's re-acquire-on-every-outcome-but-EIDRM contract,
// carried down from [SyncObject]).
type Condvar struct {
	magic uint32
	sync  *SyncObject
	guard Guard
	mutex *Mutex
}

func (c *Condvar) validMagic() bool { return c != nil && c.magic == condvarMagic }

// NewCondvar creates a condition variable bound to mutex, ordering
// waiters per order. The binding prevents mutex from being deleted
// while this condvar is still live (spec §4.5 "delete").
func NewCondvar(order Order, mutex *Mutex) *Condvar {
	mutex.bindCondvar()
	return &Condvar{
		magic: condvarMagic,
		sync:  NewSyncObject(order),
		mutex: mutex,
	}
}

// Wait drops the bound mutex to a fully unlocked state, suspends until
// Signal/Broadcast or the timeout/context outcome fires, then
// re-acquires the mutex and restores its prior recursive depth before
// returning — including on a timeout or interrupted wait, matching
// pthread_cond_timedwait's contract that the caller always gets the
// mutex back. If self held the mutex recursively, the mutex is released
// to other threads for the full suspend (spec §4.8 "atomically drop the
// mutex's recursion fully to zero ... restore the prior recursion count
// on wake"); holding it recursively across the suspend would otherwise
// deadlock any signaling thread that itself needs the mutex. self must
// currently hold the mutex.
func (c *Condvar) Wait(ctx context.Context, self *Thread, timeout Timeout) error {
	defer Enter(&c.guard)()
	if err := c.sync.Lock(); err != nil {
		return err
	}
	depth, err := c.mutex.lockDepth(self)
	if err != nil {
		c.sync.Unlock()
		return err
	}
	// The condvar's own lock stays held from here until WaitGrant has
	// enqueued us, so a Signal issued after the mutex is released below
	// cannot run before we are on the queue.
	for i := 0; i < depth; i++ {
		if relErr := c.mutex.Release(self); relErr != nil {
			c.sync.Unlock()
			return relErr
		}
	}

	_, waitErr := c.sync.WaitGrant(ctx, self, timeout, nil)
	if waitErr == ErrDeleted {
		if acqErr := c.reacquire(ctx, self, depth); acqErr != nil {
			return acqErr
		}
		return waitErr
	}
	c.sync.Unlock()

	if acqErr := c.reacquire(ctx, self, depth); acqErr != nil {
		return acqErr
	}
	return waitErr
}

// reacquire re-locks the bound mutex for self and bumps its recursive
// count back up to depth (the first Acquire brings it to 1; each
// further Acquire is a recursive re-entry, valid here because only a
// mutex created Recursive can ever have had depth > 1 to save).
func (c *Condvar) reacquire(ctx context.Context, self *Thread, depth int) error {
	for i := 0; i < depth; i++ {
		if err := c.mutex.Acquire(ctx, self, Infinite()); err != nil {
			return err
		}
	}
	return nil
}

// Signal wakes one waiter.
func (c *Condvar) Signal() error {
	defer Enter(&c.guard)()
	if err := c.sync.Lock(); err != nil {
		return err
	}
	defer c.sync.Unlock()
	c.sync.GrantOne()
	return nil
}

// Broadcast wakes every waiter.
func (c *Condvar) Broadcast() error {
	defer Enter(&c.guard)()
	if err := c.sync.Lock(); err != nil {
		return err
	}
	defer c.sync.Unlock()
	c.sync.GrantAll()
	return nil
}

// Delete destroys the condition variable and releases its binding to
// the mutex.
func (c *Condvar) Delete() error {
	defer Enter(&c.guard)()
	if err := c.sync.Lock(); err != nil {
		return err
	}
	c.sync.Destroy()
	c.sync.Unlock()
	c.mutex.unbindCondvar()
	return nil
}
