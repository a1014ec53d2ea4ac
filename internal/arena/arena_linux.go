// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build linux

package arena

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// newSharedMapping creates an anonymous memory-backed file (memfd) and
// maps it MAP_SHARED, so every process that receives the same fd
// observes the same bytes. This is the shared-arena backend for the
// blocks that Heap, Region and Partition hand out by offset; control
// blocks themselves are ordinary Go values and are not placed in it.
func newSharedMapping(size int) ([]byte, func() error, error) {
	fd, err := unix.MemfdCreate("rtipc-arena", 0)
	if err != nil {
		return nil, nil, fmt.Errorf("memfd_create: %w", err)
	}
	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		_ = unix.Close(fd)
		return nil, nil, fmt.Errorf("ftruncate: %w", err)
	}
	mem, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = unix.Close(fd)
		return nil, nil, fmt.Errorf("mmap: %w", err)
	}
	closer := func() error {
		err := unix.Munmap(mem)
		if cerr := unix.Close(fd); err == nil {
			err = cerr
		}
		return err
	}
	return mem, closer, nil
}
