// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rtipc

import "context"

const byteBufferMagic uint32 = 0x62627566 // "bbuf"

// ByteBuffer is the circular byte FIFO of spec §4.12: a fixed-size ring
// with no short writes, but a deliberate short-read escape hatch that
// prevents a reader and writer from deadlocking on a too-small buffer
// (the "mutual-starvation rule").
type ByteBuffer struct {
	magic    uint32
	sync     *SyncObject // drain queue = writers waiting for space, grant queue = readers waiting for data
	guard    Guard
	buf      []byte
	rdoff    int
	wroff    int
	fill     int
	capacity int
}

func (b *ByteBuffer) validMagic() bool { return b != nil && b.magic == byteBufferMagic }

// NewByteBuffer creates an empty byte buffer of the given capacity.
func NewByteBuffer(order Order, capacity int) *ByteBuffer {
	return &ByteBuffer{
		magic:    byteBufferMagic,
		sync:     NewSyncObject(order),
		buf:      make([]byte, capacity),
		capacity: capacity,
	}
}

// Write copies p into the buffer atomically (never a short write). If
// there is not yet room, the caller blocks on the drain queue,
// recording len(p) as its requested size. Per spec §4.12, before
// blocking, if data is already available and a reader is already
// waiting, every reader is granted a short read first, so the two
// sides can never both sit blocked on a buffer too small for either.
func (b *ByteBuffer) Write(ctx context.Context, self *Thread, p []byte, timeout Timeout) error {
	defer Enter(&b.guard)()
	if len(p) > b.capacity {
		return ErrInvalid
	}
	if len(p) == 0 {
		return nil
	}
	if err := b.sync.Lock(); err != nil {
		return err
	}

	timeout = timeout.Anchor()
	for {
		if b.fill+len(p) <= b.capacity {
			b.writeLocked(p)
			b.sync.Unlock()
			return nil
		}
		if b.fill > 0 && b.sync.CountGrant() > 0 {
			b.sync.GrantAll() // let readers drain a short read before we block
		}
		if timeout.IsNonBlocking() {
			b.sync.Unlock()
			return ErrWouldBlock
		}
		if waitErr := b.blockOnDrain(ctx, self, len(p), timeout); waitErr != nil {
			return waitErr
		}
		// Granted: a reader freed enough space. Loop to recheck and
		// write (another writer may have raced us to it first).
	}
}

func (b *ByteBuffer) blockOnDrain(ctx context.Context, self *Thread, n int, timeout Timeout) error {
	_, err := b.sync.WaitDrain(ctx, self, timeout, n)
	if err == ErrDeleted {
		return err
	}
	if err != nil {
		b.sync.Unlock()
		return err
	}
	return nil
}

// writeLocked performs the raw ring-buffer copy and wakes any readers
// the new fill level can now satisfy. Must be called under Lock with
// fill+len(p) already known to fit.
func (b *ByteBuffer) writeLocked(p []byte) {
	for i := 0; i < len(p); i++ {
		b.buf[b.wroff] = p[i]
		b.wroff = (b.wroff + 1) % b.capacity
	}
	b.fill += len(p)
	b.satisfyReaders()
}

// satisfyReaders wakes every grant-queue reader if the current fill
// level now meets the head reader's requested size. Must be called
// under Lock.
func (b *ByteBuffer) satisfyReaders() {
	w := b.sync.PeekGrant()
	if w == nil {
		return
	}
	if n := w.Payload.(int); b.fill >= n {
		b.sync.GrantAll()
	}
}

// Read blocks until n bytes are available and returns exactly n,
// unless a writer is already waiting for space with fill > 0 — in
// that one case ("short read", spec §4.12) Read returns immediately
// with whatever is currently available, fewer than n bytes.
func (b *ByteBuffer) Read(ctx context.Context, self *Thread, n int, timeout Timeout) ([]byte, error) {
	defer Enter(&b.guard)()
	if n > b.capacity {
		return nil, ErrInvalid
	}
	if n == 0 {
		return nil, nil
	}
	if err := b.sync.Lock(); err != nil {
		return nil, err
	}

	timeout = timeout.Anchor()
	for {
		if b.fill >= n {
			out := b.readLocked(n)
			b.sync.Unlock()
			return out, nil
		}
		if b.fill > 0 && b.sync.CountDrain() > 0 {
			out := b.readLocked(b.fill) // short read
			b.sync.Unlock()
			return out, nil
		}
		if timeout.IsNonBlocking() {
			b.sync.Unlock()
			return nil, ErrWouldBlock
		}
		_, err := b.sync.WaitGrant(ctx, self, timeout, n)
		if err == ErrDeleted {
			return nil, err
		}
		if err != nil {
			b.sync.Unlock()
			return nil, err
		}
		// Granted: the buffer may now hold enough, or this thread may
		// have been part of a GrantAll short-read broadcast — recheck.
	}
}

// readLocked performs the raw ring-buffer copy of n bytes, advances
// rdoff/fill, and wakes any drain-queue writer the freed space can
// now satisfy. Must be called under Lock with n ≤ fill.
func (b *ByteBuffer) readLocked(n int) []byte {
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		out[i] = b.buf[b.rdoff]
		b.rdoff = (b.rdoff + 1) % b.capacity
	}
	b.fill -= n
	b.satisfyWriters()
	return out
}

// satisfyWriters wakes every drain-queue writer if the space just freed
// makes the head writer's requested size fit. Must be called under Lock.
func (b *ByteBuffer) satisfyWriters() {
	w := b.sync.PeekDrain()
	if w == nil {
		return
	}
	if n := w.Payload.(int); b.fill+n <= b.capacity {
		b.sync.DrainAll()
	}
}

// Delete destroys the buffer, releasing every waiter with ErrDeleted.
func (b *ByteBuffer) Delete() error {
	defer Enter(&b.guard)()
	if err := b.sync.Lock(); err != nil {
		return err
	}
	b.sync.Destroy()
	b.sync.Unlock()
	return nil
}
