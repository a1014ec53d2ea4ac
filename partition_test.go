// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rtipc_test

import (
	"errors"
	"testing"

	"code.hybscloud.com/rtipc"
)

func TestPartitionAllocFree(t *testing.T) {
	p, err := rtipc.NewPartition(2, 16)
	if err != nil {
		t.Fatalf("NewPartition: %v", err)
	}
	a1, err := p.Alloc()
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	a2, err := p.Alloc()
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if a1 == a2 {
		t.Fatalf("Alloc returned the same block twice: %d", a1)
	}
	if _, err := p.Alloc(); !errors.Is(err, rtipc.ErrNoBuffers) {
		t.Fatalf("Alloc on exhausted pool: got %v, want ErrNoBuffers", err)
	}

	if nblocks, used, bsize := p.Stat(); nblocks != 2 || used != 2 || bsize != 16 {
		t.Fatalf("Stat = (%d, %d, %d), want (2, 2, 16)", nblocks, used, bsize)
	}

	if err := p.Free(a1); err != nil {
		t.Fatalf("Free: %v", err)
	}
	if _, used, _ := p.Stat(); used != 1 {
		t.Fatalf("used after Free = %d, want 1", used)
	}
	if _, err := p.Alloc(); err != nil {
		t.Fatalf("Alloc after Free: %v", err)
	}
}

func TestPartitionDoubleFree(t *testing.T) {
	p, _ := rtipc.NewPartition(1, 8)
	a, _ := p.Alloc()
	if err := p.Free(a); err != nil {
		t.Fatalf("Free: %v", err)
	}
	if err := p.Free(a); !errors.Is(err, rtipc.ErrDoubleFree) {
		t.Fatalf("double Free: got %v, want ErrDoubleFree", err)
	}
}

func TestPartitionFreeMisaligned(t *testing.T) {
	p, _ := rtipc.NewPartition(2, 8)
	if err := p.Free(3); !errors.Is(err, rtipc.ErrInvalid) {
		t.Fatalf("Free(3): got %v, want ErrInvalid", err)
	}
}

func TestPartitionDeleteBusy(t *testing.T) {
	p, _ := rtipc.NewPartition(1, 8)
	a, _ := p.Alloc()
	if err := p.Delete(); !errors.Is(err, rtipc.ErrBlockInUse) {
		t.Fatalf("Delete while allocated: got %v, want ErrBlockInUse", err)
	}
	if err := p.Free(a); err != nil {
		t.Fatalf("Free: %v", err)
	}
	if err := p.Delete(); err != nil {
		t.Fatalf("Delete: %v", err)
	}
}
