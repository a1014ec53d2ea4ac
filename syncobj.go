// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rtipc

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"code.hybscloud.com/atomix"
)

// Order selects how a SyncObject's wait queues are ranked.
type Order int

const (
	// FIFO orders waiters strictly by arrival.
	FIFO Order = iota
	// Priority orders waiters by descending [Thread] priority, ties
	// broken by arrival order (spec §4.4 "Ordering contract").
	Priority
)

const (
	waiterWaiting int32 = iota
	waiterGranted
	waiterCanceled
	waiterDeleted
)

// Waiter is one thread's position in a SyncObject queue. Components
// that need to attach data to a grant before waking it (Heap's
// allocated pointer, MessageQueue's delivered reference) mutate Payload
// between PopGrant/PopDrain and Grant.
//
// Modeled on the request/ready-channel/atomic-state shape of a
// priority-ordered semaphore waiter (grounded on the "siso" build
// system's priority_semaphore.go), generalized to two independent
// queues (grant/drain) and to FIFO-or-priority ordering.
type Waiter struct {
	Thread  *Thread
	Payload any

	seq   uint64
	side  *waiterSide // queue currently holding this waiter, nil once popped
	index int         // heap.Interface bookkeeping

	state atomix.Int32
	ready chan struct{}
	err   error
}

// waiterSide is one of a SyncObject's two queues (grant or drain).
type waiterSide struct {
	order Order
	items []*Waiter
}

func (s *waiterSide) Len() int { return len(s.items) }

func (s *waiterSide) Less(i, j int) bool {
	a, b := s.items[i], s.items[j]
	if s.order == Priority {
		pa, pb := a.Thread.Priority(), b.Thread.Priority()
		if pa != pb {
			return pa > pb
		}
	}
	return a.seq < b.seq
}

func (s *waiterSide) Swap(i, j int) {
	s.items[i], s.items[j] = s.items[j], s.items[i]
	s.items[i].index = i
	s.items[j].index = j
}

func (s *waiterSide) Push(x any) {
	w := x.(*Waiter)
	w.index = len(s.items)
	s.items = append(s.items, w)
}

func (s *waiterSide) Pop() any {
	old := s.items
	n := len(old)
	w := old[n-1]
	old[n-1] = nil
	w.index = -1
	s.items = old[:n-1]
	return w
}

// SyncObject is the core wait coordinator described in spec §4.4: a
// lock, a grant queue (waiters for a produced resource/signal) and a
// drain queue (waiters for space/consumption), FIFO or priority
// ordered.
type SyncObject struct {
	mu      sync.Mutex
	grant   waiterSide
	drain   waiterSide
	deleted atomix.Bool
	nextSeq uint64
}

// NewSyncObject creates a sync object with the given queue ordering.
func NewSyncObject(order Order) *SyncObject {
	s := &SyncObject{}
	s.grant.order = order
	s.drain.order = order
	return s
}

// Lock acquires the sync object's internal mutual exclusion. Returns
// ErrInvalid if the object has been destroyed.
func (s *SyncObject) Lock() error {
	s.mu.Lock()
	if s.deleted.LoadAcquire() {
		s.mu.Unlock()
		return ErrInvalid
	}
	return nil
}

// Unlock releases the sync object's lock.
func (s *SyncObject) Unlock() { s.mu.Unlock() }

// CountGrant returns the current grant-queue depth. Must be called
// under Lock.
func (s *SyncObject) CountGrant() int { return len(s.grant.items) }

// CountDrain returns the current drain-queue depth. Must be called
// under Lock.
func (s *SyncObject) CountDrain() int { return len(s.drain.items) }

// PeekGrant returns the current grant-queue head without removing it,
// or nil if the queue is empty. Must be called under Lock.
func (s *SyncObject) PeekGrant() *Waiter { return peek(&s.grant) }

// PeekDrain returns the current drain-queue head without removing it,
// or nil if the queue is empty. Must be called under Lock.
func (s *SyncObject) PeekDrain() *Waiter { return peek(&s.drain) }

func peek(side *waiterSide) *Waiter {
	if len(side.items) == 0 {
		return nil
	}
	return side.items[0]
}

// PopGrant removes and returns the grant-queue head, or nil if empty.
// The waiter is not yet woken: callers that need to attach a payload
// (an allocated pointer, a delivered message) do so before calling
// Grant. Must be called under Lock.
func (s *SyncObject) PopGrant() *Waiter { return pop(&s.grant) }

// PopDrain removes and returns the drain-queue head, or nil if empty.
// Must be called under Lock.
func (s *SyncObject) PopDrain() *Waiter { return pop(&s.drain) }

func pop(side *waiterSide) *Waiter {
	if len(side.items) == 0 {
		return nil
	}
	w := heap.Pop(side).(*Waiter)
	w.side = nil
	return w
}

// Grant wakes w with a nil error. w must already be detached from its
// queue (via PopGrant/PopDrain): Grant signals it exactly once but does
// not remove it from a queue.
func (s *SyncObject) Grant(w *Waiter) {
	s.release(w, nil)
}

// GrantOne pops and wakes the grant-queue head. Returns false if the
// queue was empty. Must be called under Lock.
func (s *SyncObject) GrantOne() bool {
	w := pop(&s.grant)
	if w == nil {
		return false
	}
	s.release(w, nil)
	return true
}

// DrainOne pops and wakes the drain-queue head. Returns false if the
// queue was empty. Must be called under Lock.
func (s *SyncObject) DrainOne() bool {
	w := pop(&s.drain)
	if w == nil {
		return false
	}
	s.release(w, nil)
	return true
}

// GrantTo wakes a specific thread if it is currently on the grant
// queue (for a producer that has already reserved its result for that
// waiter). Must be called under Lock.
func (s *SyncObject) GrantTo(t *Thread) bool { return grantSpecific(&s.grant, s, t) }

// DrainTo wakes a specific thread if it is currently on the drain
// queue. Must be called under Lock.
func (s *SyncObject) DrainTo(t *Thread) bool { return grantSpecific(&s.drain, s, t) }

func grantSpecific(side *waiterSide, s *SyncObject, t *Thread) bool {
	for i, w := range side.items {
		if w.Thread == t {
			heap.Remove(side, i)
			w.side = nil
			s.release(w, nil)
			return true
		}
	}
	return false
}

// GrantAll wakes every grant waiter. Returns the count woken. The set
// of threads woken is exactly the set enqueued at the moment the
// caller holds the lock (spec §5 "Ordering guarantees").
func (s *SyncObject) GrantAll() int { return releaseAll(&s.grant, s) }

// DrainAll wakes every drain waiter. Returns the count woken.
func (s *SyncObject) DrainAll() int { return releaseAll(&s.drain, s) }

func releaseAll(side *waiterSide, s *SyncObject) int {
	n := len(side.items)
	items := side.items
	side.items = nil
	for _, w := range items {
		w.side = nil
		s.release(w, nil)
	}
	return n
}

// release transitions w from waiting to granted (or to the terminal
// error state err) and wakes its goroutine. Safe to call at most once
// per waiter; a second call is a no-op via the CAS guard, which also
// resolves the race against a waiter timing out or being cancelled
// concurrently with a grant.
func (s *SyncObject) release(w *Waiter, err error) {
	target := waiterGranted
	if err != nil {
		target = waiterDeleted
	}
	if !w.state.CompareAndSwapAcqRel(waiterWaiting, target) {
		return
	}
	w.err = err
	close(w.ready)
}

// enqueue creates a waiter for self carrying payload and pushes it
// onto side.
func (s *SyncObject) enqueue(side *waiterSide, self *Thread, payload any) *Waiter {
	s.nextSeq++
	w := &Waiter{
		Thread:  self,
		Payload: payload,
		seq:     s.nextSeq,
		side:    side,
		ready:   make(chan struct{}),
	}
	heap.Push(side, w)
	return w
}

// unlink removes w from its queue if it is still enqueued (used when a
// wait times out or is cancelled before being granted).
func (s *SyncObject) unlink(w *Waiter) {
	if w.side == nil {
		return
	}
	side := w.side
	if w.index >= 0 && w.index < len(side.items) && side.items[w.index] == w {
		heap.Remove(side, w.index)
	}
	w.side = nil
}

// WaitGrant enqueues self on the grant queue and blocks until granted,
// the deadline elapses, ctx is cancelled, or the object is destroyed.
// Must be called with the lock held; releases it while suspended and,
// per spec §4.4, re-acquires it on every outcome except EIDRM.
func (s *SyncObject) WaitGrant(ctx context.Context, self *Thread, timeout Timeout, payload any) (*Waiter, error) {
	return s.wait(ctx, &s.grant, self, timeout, payload)
}

// WaitDrain is the drain-side counterpart of WaitGrant.
func (s *SyncObject) WaitDrain(ctx context.Context, self *Thread, timeout Timeout, payload any) (*Waiter, error) {
	return s.wait(ctx, &s.drain, self, timeout, payload)
}

func (s *SyncObject) wait(ctx context.Context, side *waiterSide, self *Thread, timeout Timeout, payload any) (*Waiter, error) {
	if timeout.IsNonBlocking() {
		s.mu.Unlock()
		return nil, ErrWouldBlock
	}

	w := s.enqueue(side, self, payload)
	s.mu.Unlock()

	var timerC <-chan time.Time
	if !timeout.IsInfinite() {
		deadline, _ := timeout.Deadline(time.Now())
		timer := time.NewTimer(time.Until(deadline))
		defer timer.Stop()
		timerC = timer.C
	}

	var err error
	var needUnlink bool
	select {
	case <-w.ready:
		err = w.err
	case <-timerC:
		if w.state.CompareAndSwapAcqRel(waiterWaiting, waiterCanceled) {
			err = ErrTimedOut
			needUnlink = true
		} else {
			<-w.ready
			err = w.err
		}
	case <-ctx.Done():
		if w.state.CompareAndSwapAcqRel(waiterWaiting, waiterCanceled) {
			err = ErrInterrupted
			needUnlink = true
		} else {
			<-w.ready
			err = w.err
		}
	}

	// §4.4: re-acquire the lock on every outcome except EIDRM (the
	// object was destroyed — Destroy already dropped every waiter's
	// queue link and there is nothing left to lock).
	if err == ErrDeleted {
		return w, err
	}
	s.mu.Lock()
	if needUnlink {
		s.unlink(w)
	}
	return w, err
}

// ScanGrant walks every grant waiter in queue order, calling visit on
// each. visit attaches any payload to w.Payload and returns true to
// grant and remove that waiter, or false to leave it queued. Waiters
// visit skips are re-enqueued in their original relative order once the
// scan completes, so a waiter behind an unsatisfiable one is not
// starved (spec §4.9/§4.10 "a free re-scans every waiter, not just the
// head"). Must be called under Lock.
func (s *SyncObject) ScanGrant(visit func(w *Waiter) bool) {
	var skipped []*Waiter
	for {
		w := pop(&s.grant)
		if w == nil {
			break
		}
		if visit(w) {
			s.release(w, nil)
		} else {
			skipped = append(skipped, w)
		}
	}
	for _, w := range skipped {
		w.side = &s.grant
		heap.Push(&s.grant, w)
	}
}

// Reprioritize repositions a still-enqueued waiter belonging to t after
// its priority has changed (spec §4.4 "Priority updates while waiting
// reorder the queue"). Must be called under Lock. No-op if t is not
// currently enqueued on this object.
func (s *SyncObject) Reprioritize(t *Thread) {
	for _, w := range s.grant.items {
		if w.Thread == t {
			heap.Fix(&s.grant, w.index)
			return
		}
	}
	for _, w := range s.drain.items {
		if w.Thread == t {
			heap.Fix(&s.drain, w.index)
			return
		}
	}
}

// Destroy marks the object deleted and releases every current waiter
// with ErrDeleted (spec §4.4 "destroy"). Must be called under Lock;
// the caller should Unlock immediately after, since the object can no
// longer be locked again.
func (s *SyncObject) Destroy() {
	s.deleted.StoreRelease(true)
	for _, w := range s.grant.items {
		w.side = nil
		s.release(w, ErrDeleted)
	}
	s.grant.items = nil
	for _, w := range s.drain.items {
		w.side = nil
		s.release(w, ErrDeleted)
	}
	s.drain.items = nil
}

// Deleted reports whether Destroy has been called.
func (s *SyncObject) Deleted() bool { return s.deleted.LoadAcquire() }
