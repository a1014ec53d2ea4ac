// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rtipc

import "code.hybscloud.com/atomix"

// threadMagic tags a live Thread control block.
const threadMagic uint32 = 0x7468726f // "thro"

// Thread is the per-caller record the spec calls the thread object
// (thobj, §3): current priority, a short diagnostic name, and (while
// enqueued) a wait payload. Go has no pthread_self() equivalent, so
// unlike the underlying C library a *Thread is passed explicitly by
// every caller of a blocking rtipc entry point — one per goroutine that
// calls into this package, reused across calls the way a pthread_t is
// reused across blocking libc calls. It carries the caller's real-time
// priority so the sync object can order its wait queues and so Mutex
// can apply priority inheritance.
//
// A Thread may be enqueued on at most one [SyncObject] wait queue at a
// time (spec §4.4 invariant); rtipc enforces this by construction since
// each wait call creates its own waiter record and clears it on exit.
type Thread struct {
	magic    uint32
	name     string
	priority atomix.Int32
}

// NewThread creates a thread object with the given name and initial
// real-time priority (higher value == higher priority, ties broken by
// FIFO insertion order per spec §4.4).
func NewThread(name string, priority int32) *Thread {
	t := &Thread{name: name}
	t.magic = threadMagic
	t.priority.StoreRelaxed(priority)
	return t
}

// Name returns the thread's diagnostic name.
func (t *Thread) Name() string { return t.name }

// Priority returns the thread's current effective priority.
func (t *Thread) Priority() int32 { return t.priority.LoadAcquire() }

// SetPriority updates the thread's priority. If the thread is currently
// enqueued on a sync object's priority-ordered queue, the queue is not
// automatically reordered by this call alone — pair it with
// [SyncObject.Reprioritize]. Mutex priority inheritance boosts and
// restores an owner through SetPriority alone and does not call
// Reprioritize.
func (t *Thread) SetPriority(p int32) { t.priority.StoreRelease(p) }

func (t *Thread) valid() bool { return t != nil && t.magic == threadMagic }
