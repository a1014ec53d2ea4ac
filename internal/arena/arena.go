// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package arena implements the heap-arena contract of the reference
// layer (spec §6 "Heap arena contract"): arena_init, arena_alloc,
// arena_free, arena_validate. A process-private arena is a plain Go
// byte slice; a shared arena is backed by a memfd + MAP_SHARED mapping
// so multiple processes can attach the same bytes at independently
// chosen addresses (spec §5 "Shared-resource policy").
//
// Layout is a classic first-fit free-list allocator over the backing
// slice, generalizing the shape of Xenomai's lib/cobalt/umm.c user
// memory manager into Go slices and offsets instead of inline C headers.
package arena

import (
	"fmt"
	"sort"
	"sync"
	"unsafe"
)

// Arena is a fixed-size backing region with a first-fit free-list
// allocator. All offsets are relative to the start of mem, so the same
// Arena can be mapped at different addresses in different processes
// (the offsets never change; only Base() does).
type Arena struct {
	mem    []byte
	shared bool
	closer func() error

	mu     sync.Mutex
	blocks []block // sorted by offset, contiguous coverage of mem
}

type block struct {
	offset int
	size   int
	free   bool
}

// New creates a process-private arena of the given size.
func New(size int) (*Arena, error) {
	if size <= 0 {
		return nil, fmt.Errorf("arena: size must be > 0")
	}
	return &Arena{
		mem:    make([]byte, size),
		blocks: []block{{offset: 0, size: size, free: true}},
	}, nil
}

// NewShared creates a shared arena of the given size, backed by a
// memfd + MAP_SHARED mapping on platforms that support it (see
// arena_linux.go). On platforms without that support, it falls back to
// a process-private mapping (see arena_fallback.go) — cross-process
// attach is then unavailable, but the offset-based API still works
// within the creating process.
func NewShared(size int) (*Arena, error) {
	if size <= 0 {
		return nil, fmt.Errorf("arena: size must be > 0")
	}
	mem, closer, err := newSharedMapping(size)
	if err != nil {
		return nil, fmt.Errorf("arena: shared mapping: %w", err)
	}
	return &Arena{
		mem:    mem,
		shared: true,
		closer: closer,
		blocks: []block{{offset: 0, size: size, free: true}},
	}, nil
}

// Shared reports whether this arena is backed by a cross-process mapping.
func (a *Arena) Shared() bool { return a.shared }

// Len returns the arena's total size in bytes.
func (a *Arena) Len() int { return len(a.mem) }

// Base returns the address mem is mapped at in this process. Offsets
// computed against Base are only meaningful within a single process;
// the signed-offset contract (spec §4.2) is what crosses processes.
func (a *Arena) Base() unsafe.Pointer {
	if len(a.mem) == 0 {
		return nil
	}
	return unsafe.Pointer(&a.mem[0])
}

// Close releases a shared mapping. A no-op for process-private arenas.
func (a *Arena) Close() error {
	if a.closer != nil {
		return a.closer()
	}
	return nil
}

// Alloc reserves size bytes and returns their offset from Base. ok is
// false if no free block is large enough.
func (a *Arena) Alloc(size int) (offset int, ok bool) {
	if size <= 0 {
		return 0, false
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	for i := range a.blocks {
		b := &a.blocks[i]
		if !b.free || b.size < size {
			continue
		}
		if b.size > size {
			rem := block{offset: b.offset + size, size: b.size - size, free: true}
			b.size = size
			a.blocks = append(a.blocks, block{})
			copy(a.blocks[i+2:], a.blocks[i+1:])
			a.blocks[i+1] = rem
		}
		a.blocks[i].free = false
		return a.blocks[i].offset, true
	}
	return 0, false
}

// Free returns the block at offset to the allocator, coalescing with
// free neighbours. Panics if offset does not name the start of an
// allocated block (a programmer error in a caller's own control block
// bookkeeping, not a user-facing API error).
func (a *Arena) Free(offset int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	idx := a.indexOf(offset)
	if idx < 0 || a.blocks[idx].free {
		panic("arena: free of invalid or already-free offset")
	}
	a.blocks[idx].free = true
	a.coalesce()
}

// Validate reports whether offset names the start of a currently
// allocated block.
func (a *Arena) Validate(offset int) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	idx := a.indexOf(offset)
	return idx >= 0 && !a.blocks[idx].free
}

// Used returns the number of bytes currently allocated.
func (a *Arena) Used() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	used := 0
	for _, b := range a.blocks {
		if !b.free {
			used += b.size
		}
	}
	return used
}

func (a *Arena) indexOf(offset int) int {
	i := sort.Search(len(a.blocks), func(i int) bool { return a.blocks[i].offset >= offset })
	if i < len(a.blocks) && a.blocks[i].offset == offset {
		return i
	}
	return -1
}

func (a *Arena) coalesce() {
	out := a.blocks[:0]
	for _, b := range a.blocks {
		if n := len(out); n > 0 && out[n-1].free && b.free {
			out[n-1].size += b.size
			continue
		}
		out = append(out, b)
	}
	a.blocks = out
}

// Bytes returns the backing slice at [offset:offset+size]. Callers use
// this to read/write the payload of a block they already hold by
// offset; it performs no bounds validation against the free-list, only
// against the slice length.
func (a *Arena) Bytes(offset, size int) []byte {
	return a.mem[offset : offset+size]
}
