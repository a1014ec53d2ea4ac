// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rtipc_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"code.hybscloud.com/rtipc"
)

func TestMutexUncontended(t *testing.T) {
	m := rtipc.NewMutex(0)
	t1 := rtipc.NewThread("t1", 0)

	if err := m.Acquire(context.Background(), t1, rtipc.Infinite()); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if err := m.Release(t1); err != nil {
		t.Fatalf("Release: %v", err)
	}
}

func TestMutexRecursive(t *testing.T) {
	m := rtipc.NewMutex(rtipc.Recursive)
	t1 := rtipc.NewThread("t1", 0)

	for i := 0; i < 3; i++ {
		if err := m.Acquire(context.Background(), t1, rtipc.Infinite()); err != nil {
			t.Fatalf("Acquire(%d): %v", i, err)
		}
	}
	for i := 0; i < 3; i++ {
		if err := m.Release(t1); err != nil {
			t.Fatalf("Release(%d): %v", i, err)
		}
	}
}

func TestMutexNonRecursiveSelfDeadlock(t *testing.T) {
	m := rtipc.NewMutex(0)
	t1 := rtipc.NewThread("t1", 0)

	if err := m.Acquire(context.Background(), t1, rtipc.Infinite()); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if err := m.Acquire(context.Background(), t1, rtipc.Infinite()); !errors.Is(err, rtipc.ErrDeadlock) {
		t.Fatalf("re-Acquire: got %v, want ErrDeadlock", err)
	}
}

func TestMutexContentionHandoff(t *testing.T) {
	m := rtipc.NewMutex(0)
	t1 := rtipc.NewThread("t1", 0)
	t2 := rtipc.NewThread("t2", 0)

	if err := m.Acquire(context.Background(), t1, rtipc.Infinite()); err != nil {
		t.Fatalf("t1 Acquire: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- m.Acquire(context.Background(), t2, rtipc.Infinite())
	}()

	time.Sleep(20 * time.Millisecond)
	if err := m.Release(t1); err != nil {
		t.Fatalf("t1 Release: %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("t2 Acquire: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("t2 never acquired the mutex")
	}
	if err := m.Release(t2); err != nil {
		t.Fatalf("t2 Release: %v", err)
	}
}

func TestMutexNonBlockingWouldBlock(t *testing.T) {
	m := rtipc.NewMutex(0)
	t1 := rtipc.NewThread("t1", 0)
	t2 := rtipc.NewThread("t2", 0)

	if err := m.Acquire(context.Background(), t1, rtipc.Infinite()); err != nil {
		t.Fatalf("t1 Acquire: %v", err)
	}
	if err := m.Acquire(context.Background(), t2, rtipc.NonBlock()); !errors.Is(err, rtipc.ErrWouldBlock) {
		t.Fatalf("t2 Acquire(NonBlock): got %v, want ErrWouldBlock", err)
	}
}

func TestMutexTimeout(t *testing.T) {
	m := rtipc.NewMutex(0)
	t1 := rtipc.NewThread("t1", 0)
	t2 := rtipc.NewThread("t2", 0)

	if err := m.Acquire(context.Background(), t1, rtipc.Infinite()); err != nil {
		t.Fatalf("t1 Acquire: %v", err)
	}
	err := m.Acquire(context.Background(), t2, rtipc.After(20*time.Millisecond))
	if !errors.Is(err, rtipc.ErrTimedOut) {
		t.Fatalf("t2 Acquire: got %v, want ErrTimedOut", err)
	}
}

func TestMutexPriorityInheritance(t *testing.T) {
	m := rtipc.NewMutex(rtipc.PriorityInherit)
	low := rtipc.NewThread("low", 1)
	high := rtipc.NewThread("high", 10)

	if err := m.Acquire(context.Background(), low, rtipc.Infinite()); err != nil {
		t.Fatalf("low Acquire: %v", err)
	}

	done := make(chan struct{})
	go func() {
		_ = m.Acquire(context.Background(), high, rtipc.Infinite())
		close(done)
	}()

	// Give the high-priority waiter time to enqueue and boost low.
	time.Sleep(20 * time.Millisecond)
	if p := low.Priority(); p != high.Priority() {
		t.Fatalf("low.Priority() = %d, want boosted to %d", p, high.Priority())
	}

	if err := m.Release(low); err != nil {
		t.Fatalf("low Release: %v", err)
	}
	<-done
	if p := low.Priority(); p != 1 {
		t.Fatalf("low.Priority() after release = %d, want restored to 1", p)
	}
	_ = m.Release(high)
}

func TestMutexAbandonEOwnerDead(t *testing.T) {
	m := rtipc.NewMutex(0)
	t1 := rtipc.NewThread("t1", 0)
	t2 := rtipc.NewThread("t2", 0)

	if err := m.Acquire(context.Background(), t1, rtipc.Infinite()); err != nil {
		t.Fatalf("t1 Acquire: %v", err)
	}
	m.Abandon()

	if err := m.Acquire(context.Background(), t2, rtipc.Infinite()); !errors.Is(err, rtipc.ErrOwnerDead) {
		t.Fatalf("t2 Acquire after abandon: got %v, want ErrOwnerDead", err)
	}
	if !m.Inconsistent() {
		t.Fatal("mutex should be inconsistent after an owner-death acquisition")
	}
	if err := m.Reinit(t2); err != nil {
		t.Fatalf("Reinit: %v", err)
	}
	if m.Inconsistent() {
		t.Fatal("mutex should no longer be inconsistent after Reinit")
	}
	if err := m.Release(t2); err != nil {
		t.Fatalf("t2 Release: %v", err)
	}
}

func TestMutexDeleteBusy(t *testing.T) {
	m := rtipc.NewMutex(0)
	t1 := rtipc.NewThread("t1", 0)
	if err := m.Acquire(context.Background(), t1, rtipc.Infinite()); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if err := m.Delete(); !errors.Is(err, rtipc.ErrBusy) {
		t.Fatalf("Delete while held: got %v, want ErrBusy", err)
	}
	if err := m.Release(t1); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if err := m.Delete(); err != nil {
		t.Fatalf("Delete: %v", err)
	}
}
