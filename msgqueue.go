// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rtipc

import (
	"context"

	"code.hybscloud.com/atomix"
)

// SendMode selects how Send/Write places a message relative to the
// queue (spec §4.13 "send").
type SendMode int

const (
	// Normal appends the message to the tail of the queue (FIFO).
	Normal SendMode = iota
	// Urgent prepends the message to the head of the queue (LIFO).
	Urgent
	// Broadcast delivers the message to every currently waiting
	// receiver, sharing one physical message via refcount.
	Broadcast
)

const msgQueueMagic uint32 = 0x6d737167 // "msqg"

// Message is a refcounted payload reference (spec §4.13 "message
// lifetime"). The zero value is not valid; obtain one from
// [MessageQueue.Alloc].
type Message struct {
	buf      []byte
	refcount atomix.Int32
}

// Bytes returns the message's payload. Callers must not retain the
// slice past the matching Free.
func (m *Message) Bytes() []byte { return m.buf }

func (m *Message) retain()       { m.refcount.AddAcqRel(1) }
func (m *Message) release() bool { return m.refcount.AddAcqRel(-1) == 0 }

// MessageQueue is the variable-length message queue of spec §4.13: an
// optional hard limit on queued message count, URGENT/NORMAL/BROADCAST
// delivery, and a Write fast path that hands a message straight to an
// already-waiting Read without queuing it (see [MessageQueue.Write]).
type MessageQueue struct {
	magic    uint32
	sync     *SyncObject // grant queue = receivers waiting for a message
	guard    Guard
	queue    []*Message
	limit    int // 0 means unbounded
	maxBytes int // 0 means unbounded
}

func (q *MessageQueue) validMagic() bool { return q != nil && q.magic == msgQueueMagic }

// NewMessageQueue creates an empty queue. limit bounds the queued
// message count (0 for unbounded); maxPayload bounds a single
// message's size (0 for unbounded).
func NewMessageQueue(order Order, limit, maxPayload int) *MessageQueue {
	return &MessageQueue{
		magic:    msgQueueMagic,
		sync:     NewSyncObject(order),
		limit:    limit,
		maxBytes: maxPayload,
	}
}

// Alloc reserves a message descriptor with a size-byte payload buffer,
// refcount 1. The caller fills Bytes() before Send.
func (q *MessageQueue) Alloc(size int) (*Message, error) {
	if q.maxBytes > 0 && size > q.maxBytes {
		return nil, ErrInvalid
	}
	m := &Message{buf: make([]byte, size)}
	m.refcount.StoreRelease(1)
	return m, nil
}

// Send enqueues or delivers msg per mode (spec §4.13 "send"). msg's
// reference handed in is consumed (its refcount's "caller holds one"
// share transfers to the queue or to whichever receivers absorb it).
func (q *MessageQueue) Send(msg *Message, mode SendMode) error {
	defer Enter(&q.guard)()
	if err := q.sync.Lock(); err != nil {
		return err
	}
	defer q.sync.Unlock()

	if mode == Broadcast {
		delivered := false
		for {
			w := q.sync.PopGrant()
			if w == nil {
				break
			}
			msg.retain()
			w.Payload = msg
			q.sync.Grant(w)
			delivered = true
		}
		if msg.release() {
			// Every waiter's retain balances the initial refcount of
			// 1; if nothing was waiting, this drops it back to 0 and
			// the broadcast message is simply discarded, matching a
			// plain send to an empty receiver set.
			_ = delivered
		}
		return nil
	}

	if w := q.sync.PopGrant(); w != nil {
		w.Payload = msg
		q.sync.Grant(w)
		return nil
	}

	if q.limit > 0 && len(q.queue) >= q.limit {
		return ErrNoMemory
	}
	if mode == Urgent {
		q.queue = append([]*Message{msg}, q.queue...)
	} else {
		q.queue = append(q.queue, msg)
	}
	return nil
}

// Write is Send's raw-bytes convenience form: it copies buf into a
// fresh message and sends it, except for the fast path (spec §4.13
// "write"): if the grant-queue head is a Read waiter and buf fits its
// buffer size, the message goes straight into that waiter's slot and
// the queue is never touched. The fast path is not zero-copy: buf is
// copied into a fresh message, and Read then copies it into its own
// buffer. Receive waiters never take the fast path.
func (q *MessageQueue) Write(buf []byte, mode SendMode) error {
	defer Enter(&q.guard)()
	if err := q.sync.Lock(); err != nil {
		return err
	}

	if mode != Broadcast {
		if w := q.sync.PeekGrant(); w != nil {
			if bufCap, ok := w.Payload.(int); ok && len(buf) <= bufCap {
				msg := &Message{buf: make([]byte, len(buf))}
				msg.refcount.StoreRelease(1)
				copy(msg.buf, buf)
				q.sync.PopGrant()
				w.Payload = msg
				q.sync.Grant(w)
				q.sync.Unlock()
				return nil
			}
		}
	}
	q.sync.Unlock()

	if q.maxBytes > 0 && len(buf) > q.maxBytes {
		return ErrInvalid
	}
	msg, err := q.Alloc(len(buf))
	if err != nil {
		return err
	}
	copy(msg.buf, buf)
	return q.Send(msg, mode)
}

// Receive pops the oldest message, blocking on the grant queue while
// the queue is empty (spec §4.13 "receive"). The caller must later
// Free the returned message.
func (q *MessageQueue) Receive(ctx context.Context, self *Thread, timeout Timeout) (*Message, error) {
	defer Enter(&q.guard)()
	if err := q.sync.Lock(); err != nil {
		return nil, err
	}
	if len(q.queue) > 0 {
		msg := q.queue[0]
		q.queue = q.queue[1:]
		q.sync.Unlock()
		return msg, nil
	}
	if timeout.IsNonBlocking() {
		q.sync.Unlock()
		return nil, ErrWouldBlock
	}
	w, err := q.sync.WaitGrant(ctx, self, timeout, nil)
	if err == ErrDeleted {
		return nil, err
	}
	if err != nil {
		q.sync.Unlock()
		return nil, err
	}
	q.sync.Unlock()
	return w.Payload.(*Message), nil
}

// Read pops a message and copies up to len(buf) bytes into it,
// truncating a larger payload, then frees the message (spec §4.13
// "read"). Returns the number of bytes copied.
func (q *MessageQueue) Read(ctx context.Context, self *Thread, buf []byte, timeout Timeout) (int, error) {
	defer Enter(&q.guard)()
	if err := q.sync.Lock(); err != nil {
		return 0, err
	}
	if len(q.queue) > 0 {
		msg := q.queue[0]
		q.queue = q.queue[1:]
		q.sync.Unlock()
		n := copy(buf, msg.buf)
		q.Free(msg)
		return n, nil
	}
	if timeout.IsNonBlocking() {
		q.sync.Unlock()
		return 0, ErrWouldBlock
	}
	w, err := q.sync.WaitGrant(ctx, self, timeout, len(buf))
	if err == ErrDeleted {
		return 0, err
	}
	if err != nil {
		q.sync.Unlock()
		return 0, err
	}
	q.sync.Unlock()
	msg := w.Payload.(*Message)
	n := copy(buf, msg.buf)
	q.Free(msg)
	return n, nil
}

// Free releases the caller's reference to msg, releasing the payload
// once the refcount reaches zero (spec §4.13 "message lifetime").
// Double-free is a programmer error the refcount itself guards against
// becoming negative observable state, but is still reported.
func (q *MessageQueue) Free(msg *Message) error {
	defer Enter(&q.guard)()
	if msg.refcount.LoadAcquire() <= 0 {
		return ErrInvalid
	}
	msg.release()
	return nil
}

// Flush drops every queued message, freeing each.
func (q *MessageQueue) Flush() error {
	defer Enter(&q.guard)()
	if err := q.sync.Lock(); err != nil {
		return err
	}
	defer q.sync.Unlock()
	for _, msg := range q.queue {
		q.Free(msg)
	}
	q.queue = nil
	return nil
}

// Delete destroys the queue, releasing every waiter with ErrDeleted
// and flushing any still-queued messages.
func (q *MessageQueue) Delete() error {
	defer Enter(&q.guard)()
	if err := q.sync.Lock(); err != nil {
		return err
	}
	for _, msg := range q.queue {
		q.Free(msg)
	}
	q.queue = nil
	q.sync.Destroy()
	q.sync.Unlock()
	return nil
}
