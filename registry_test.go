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

func TestRegistryAddUniqueFindDelete(t *testing.T) {
	r := rtipc.NewRegistry(rtipc.DefaultNameLen)
	if err := r.AddUnique("obj1", 42); err != nil {
		t.Fatalf("AddUnique: %v", err)
	}
	if err := r.AddUnique("obj1", 43); !errors.Is(err, rtipc.ErrExist) {
		t.Fatalf("duplicate AddUnique: got %v, want ErrExist", err)
	}
	h, ok := r.Find("obj1")
	if !ok || h != 42 {
		t.Fatalf("Find = (%v, %v), want (42, true)", h, ok)
	}
	r.Delete("obj1")
	if _, ok := r.Find("obj1"); ok {
		t.Fatal("Find after Delete should report not found")
	}
}

func TestRegistryAddDupAutoSuffix(t *testing.T) {
	r := rtipc.NewRegistry(rtipc.ExtendedNameLen)
	name1, err := r.AddDup("obj", 1)
	if err != nil {
		t.Fatalf("AddDup: %v", err)
	}
	name2, err := r.AddDup("obj", 2)
	if err != nil {
		t.Fatalf("AddDup: %v", err)
	}
	if name1 == name2 {
		t.Fatalf("AddDup collided: both got %q", name1)
	}
}

func TestRegistryBindBlocksUntilInsert(t *testing.T) {
	r := rtipc.NewRegistry(rtipc.DefaultNameLen)
	self := rtipc.NewThread("t", 0)

	done := make(chan rtipc.Handle, 1)
	go func() {
		h, err := r.Bind(context.Background(), self, "late", rtipc.Infinite())
		if err != nil {
			t.Error(err)
			return
		}
		done <- h
	}()
	time.Sleep(10 * time.Millisecond)
	if err := r.AddUnique("late", 7); err != nil {
		t.Fatalf("AddUnique: %v", err)
	}

	select {
	case h := <-done:
		if h != 7 {
			t.Fatalf("Bind = %v, want 7", h)
		}
	case <-time.After(time.Second):
		t.Fatal("Bind never resolved after the matching insert")
	}
}

func TestRegistryBindWouldBlock(t *testing.T) {
	r := rtipc.NewRegistry(rtipc.DefaultNameLen)
	self := rtipc.NewThread("t", 0)
	if _, err := r.Bind(context.Background(), self, "nope", rtipc.NonBlock()); !errors.Is(err, rtipc.ErrWouldBlock) {
		t.Fatalf("Bind(NonBlock): got %v, want ErrWouldBlock", err)
	}
}

func TestRegistryNameLengthValidation(t *testing.T) {
	r := rtipc.NewRegistry(rtipc.DefaultNameLen)
	if err := r.AddUnique("toolongname", 1); !errors.Is(err, rtipc.ErrInvalid) {
		t.Fatalf("AddUnique with overlong name: got %v, want ErrInvalid", err)
	}
}
