// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rtipc_test

import (
	"errors"
	"testing"
	"time"

	"code.hybscloud.com/rtipc"
)

func TestThreadPriority(t *testing.T) {
	th := rtipc.NewThread("worker", 5)
	if th.Name() != "worker" {
		t.Fatalf("Name() = %q, want %q", th.Name(), "worker")
	}
	if th.Priority() != 5 {
		t.Fatalf("Priority() = %d, want 5", th.Priority())
	}
	th.SetPriority(9)
	if th.Priority() != 9 {
		t.Fatalf("Priority() after SetPriority = %d, want 9", th.Priority())
	}
}

func TestGuardNesting(t *testing.T) {
	var g rtipc.Guard
	exit1 := rtipc.Enter(&g)
	exit2 := rtipc.Enter(&g)
	if g.Depth() != 2 {
		t.Fatalf("Depth() = %d, want 2", g.Depth())
	}
	exit2()
	if g.Depth() != 1 {
		t.Fatalf("Depth() after one Exit = %d, want 1", g.Depth())
	}
	exit1()
	if g.Depth() != 0 {
		t.Fatalf("Depth() after both Exit = %d, want 0", g.Depth())
	}
}

func TestReferenceRegisterResolveUnregister(t *testing.T) {
	ref := rtipc.NewReference[*rtipc.Mutex]()
	o := rtipc.NewMutex(0)
	h := ref.Register(o)

	got, err := ref.Resolve(h)
	if err != nil || got != o {
		t.Fatalf("Resolve = (%v, %v), want (%v, nil)", got, err, o)
	}

	ref.Unregister(h)
	if _, err := ref.Resolve(h); !errors.Is(err, rtipc.ErrInvalid) {
		t.Fatalf("Resolve after Unregister: got %v, want ErrInvalid", err)
	}
}

func TestReferenceGenerationRejectsStaleHandle(t *testing.T) {
	ref := rtipc.NewReference[*rtipc.Mutex]()
	o1 := rtipc.NewMutex(0)
	h1 := ref.Register(o1)
	ref.Unregister(h1)

	o2 := rtipc.NewMutex(0)
	h2 := ref.Register(o2)

	if _, err := ref.Resolve(h1); !errors.Is(err, rtipc.ErrInvalid) {
		t.Fatalf("stale handle Resolve: got %v, want ErrInvalid", err)
	}
	if got, err := ref.Resolve(h2); err != nil || got != o2 {
		t.Fatalf("fresh handle Resolve = (%v, %v), want (%v, nil)", got, err, o2)
	}
}

func TestTimeoutNonBlockingAndInfinite(t *testing.T) {
	if !rtipc.NonBlock().IsNonBlocking() {
		t.Fatal("NonBlock() should be non-blocking")
	}
	if !rtipc.Infinite().IsInfinite() {
		t.Fatal("Infinite() should be infinite")
	}
	if rtipc.After(time.Second).IsNonBlocking() {
		t.Fatal("After(time.Second) should not be non-blocking")
	}
}

func TestTimeoutDeadline(t *testing.T) {
	now := time.Now()
	d, ok := rtipc.After(time.Second).Deadline(now)
	if !ok || d.Before(now) {
		t.Fatalf("Deadline = (%v, %v), want a time after now", d, ok)
	}
	if _, ok := rtipc.Infinite().Deadline(now); ok {
		t.Fatal("Infinite().Deadline should report no deadline")
	}
}
