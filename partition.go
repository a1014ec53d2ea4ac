// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rtipc

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/rtipc/internal/arena"
)

const partitionMagic uint32 = 0x70747430 // "ptt0"

// Partition is the pSOS-flavored fixed-size block pool of spec §4.11:
// entirely non-blocking. The freelist is the lock-free [ring] also
// used nowhere else in this package but here, since a partition is the
// one component the spec actually specifies as wait-free rather than
// merely "doesn't take a timeout" — alloc and free genuinely never
// take a lock against each other.
type Partition struct {
	magic    uint32
	arena    *arena.Arena
	bsize    int
	nblocks  int
	freelist *ring[uint32]
	busy     []atomix.Bool
	used     atomix.Int32
}

func (p *Partition) validMagic() bool { return p != nil && p.magic == partitionMagic }

// NewPartition creates a partition of nblocks blocks of bsize bytes
// each, all initially free.
func NewPartition(nblocks, bsize int) (*Partition, error) {
	a, err := arena.New(nblocks * bsize)
	if err != nil {
		return nil, err
	}
	p := &Partition{
		magic:    partitionMagic,
		arena:    a,
		bsize:    bsize,
		nblocks:  nblocks,
		freelist: newRing[uint32](nblocks),
		busy:     make([]atomix.Bool, nblocks),
	}
	for i := 0; i < nblocks; i++ {
		p.freelist.push(uint32(i))
	}
	return p, nil
}

// Alloc pops the freelist head. Returns ErrNoBuffers if every block is
// currently out.
func (p *Partition) Alloc() (int, error) {
	idx, ok := p.freelist.pop()
	if !ok {
		return 0, ErrNoBuffers
	}
	p.busy[idx].StoreRelease(true)
	p.used.AddAcqRel(1)
	return int(idx) * p.bsize, nil
}

// Free validates addr names a block this partition owns (in range and
// aligned to bsize), clears its busy bit, and pushes it back onto the
// freelist. Returns ErrInvalid for an out-of-range or misaligned
// address, ErrDoubleFree if the block's bit was already clear.
func (p *Partition) Free(addr int) error {
	if addr < 0 || addr >= p.nblocks*p.bsize || addr%p.bsize != 0 {
		return ErrInvalid
	}
	idx := uint32(addr / p.bsize)
	if !p.busy[idx].CompareAndSwapAcqRel(true, false) {
		return ErrDoubleFree
	}
	p.used.AddAcqRel(-1)
	p.freelist.push(idx)
	return nil
}

// Stat reports the pool's total block count, how many are currently
// allocated, and the fixed size of each block, for diagnostics
// (SPEC_FULL.md §C.3 "{NBlocks, Used, BlockSize}").
func (p *Partition) Stat() (nblocks, used, blockSize int) {
	return p.nblocks, int(p.used.LoadAcquire()), p.bsize
}

// Delete destroys the partition. Fails with ErrBlockInUse if any block
// is still allocated.
func (p *Partition) Delete() error {
	if p.used.LoadAcquire() > 0 {
		return ErrBlockInUse
	}
	return p.arena.Close()
}
