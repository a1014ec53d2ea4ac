// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package rtipc provides the core of a real-time, application-level IPC
// and synchronization substrate: a single set of named, cross-process
// capable primitives historically exposed under two classic-RTOS
// facades ("Alchemy" and "pSOS"). This package is the shared substrate,
// not either facade.
//
// # Primitives
//
//	Mutex        - recursive, priority-inheriting, robust against owner death
//	Event        - bitmask group with conjunctive (ALL) / disjunctive (ANY) wait
//	Semaphore    - counting semaphore, FIFO or priority-ordered waiters, pulse mode
//	Condvar      - condition variable bound to one mutex for its lifetime
//	Heap         - general block allocator with waiter requeue on free
//	Region       - fixed-interior allocator with a usage cap (pSOS rn)
//	Partition    - fixed-size block pool, lock-free freelist, never blocks
//	ByteBuffer   - circular FIFO of bytes with short-read deadlock avoidance
//	MessageQueue - variable-length messages, broadcast, refcounted payloads
//	Alarm        - one-shot or periodic timer bound to a callback
//	Registry     - named lookup shared by every primitive above
//
// # Quick Start
//
//	self := rtipc.NewThread("motor_ctl", 10)
//	m := rtipc.NewMutex(rtipc.Recursive | rtipc.PriorityInherit)
//
//	ctx := context.Background()
//	if err := m.Acquire(ctx, self, rtipc.Infinite()); err != nil {
//	    // EOWNERDEAD, ETIMEDOUT, EINTR, EWOULDBLOCK
//	}
//	defer m.Release(self)
//
// A caller that wants motor_ctl's mutex reachable by name from another
// thread mints it a [Handle] and publishes that in a [Registry]:
//
//	refs := rtipc.NewReference[*rtipc.Mutex]()
//	reg := rtipc.NewRegistry(rtipc.DefaultNameLen)
//	reg.AddUnique("mlck", refs.Register(m))
//	// elsewhere: h, err := reg.Bind(ctx, self, "mlck", rtipc.Infinite())
//
// # Suspension and cancellation
//
// Every blocking entry point takes a context.Context (the cancellation
// channel — ctx.Done() delivers EINTR) and a [Timeout] (the spec's
// relative/absolute/infinite/non-blocking deadline). A zero timeout
// never suspends: it returns [ErrWouldBlock] immediately on a contended
// primitive. See [Timeout] for the clock contract.
//
// # Errors
//
// Operations fail with the sentinels declared in errors.go
// (ErrInvalid, ErrPermission, ErrNoMemory, ErrExist, ErrNotExist,
// ErrTimedOut, ErrInterrupted, ErrDeleted, ErrBusy, ErrDeadlock,
// ErrOwnerDead, ErrNoBuffers, ErrAgain, ErrDoubleFree, ErrBlockInUse)
// plus [ErrWouldBlock], reused from [code.hybscloud.com/iox] for
// ecosystem consistency. The exception is NewHeap, NewRegion and
// NewPartition, which pass through the arena's own error for a
// non-positive size. Check with errors.Is, never by string comparison.
//
//	err := sem.Take(ctx, self, rtipc.NonBlock())
//	if errors.Is(err, rtipc.ErrWouldBlock) {
//	    // counter was zero, no waiter queued
//	}
//
// # Shared-memory arenas
//
// [code.hybscloud.com/rtipc/internal/arena] provides process-private and
// shared (memfd-backed on Linux) byte arenas whose blocks are addressed
// by offsets from the arena base; [Heap], [Region] and [Partition] hand
// out such offsets. Control blocks themselves are ordinary Go values
// holding Go pointers. [Reference] resolves a [Handle] to a control
// block through an in-process slot table, so a Handle is meaningful
// only within the process that minted it.
//
// # Dependencies
//
// This package uses [code.hybscloud.com/iox] for semantic errors,
// [code.hybscloud.com/atomix] for atomic primitives with explicit
// memory ordering, and [code.hybscloud.com/spin] for CPU pause
// instructions on the lock-free partition freelist.
package rtipc
