// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rtipc_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"code.hybscloud.com/rtipc"
)

func TestMessageQueueSendReceive(t *testing.T) {
	q := rtipc.NewMessageQueue(rtipc.FIFO, 0, 0)
	self := rtipc.NewThread("t", 0)

	msg, err := q.Alloc(3)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	copy(msg.Bytes(), "abc")
	if err := q.Send(msg, rtipc.Normal); err != nil {
		t.Fatalf("Send: %v", err)
	}

	got, err := q.Receive(context.Background(), self, rtipc.NonBlock())
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if !bytes.Equal(got.Bytes(), []byte("abc")) {
		t.Fatalf("Receive = %q, want %q", got.Bytes(), "abc")
	}
	_ = q.Free(got)
}

func TestMessageQueueUrgentPrepends(t *testing.T) {
	q := rtipc.NewMessageQueue(rtipc.FIFO, 0, 0)
	self := rtipc.NewThread("t", 0)

	m1, _ := q.Alloc(1)
	copy(m1.Bytes(), "1")
	_ = q.Send(m1, rtipc.Normal)

	m2, _ := q.Alloc(1)
	copy(m2.Bytes(), "2")
	_ = q.Send(m2, rtipc.Urgent)

	first, err := q.Receive(context.Background(), self, rtipc.NonBlock())
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if !bytes.Equal(first.Bytes(), []byte("2")) {
		t.Fatalf("first Receive = %q, want %q (urgent prepend)", first.Bytes(), "2")
	}
}

func TestMessageQueueReadTruncates(t *testing.T) {
	q := rtipc.NewMessageQueue(rtipc.FIFO, 0, 0)
	self := rtipc.NewThread("t", 0)

	msg, _ := q.Alloc(5)
	copy(msg.Bytes(), "hello")
	_ = q.Send(msg, rtipc.Normal)

	buf := make([]byte, 3)
	n, err := q.Read(context.Background(), self, buf, rtipc.NonBlock())
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if n != 3 || !bytes.Equal(buf, []byte("hel")) {
		t.Fatalf("Read = (%d, %q), want (3, \"hel\")", n, buf)
	}
}

func TestMessageQueueWriteZeroCopyFastPath(t *testing.T) {
	q := rtipc.NewMessageQueue(rtipc.FIFO, 0, 0)
	self := rtipc.NewThread("t", 0)

	buf := make([]byte, 8)
	readDone := make(chan int, 1)
	go func() {
		n, err := q.Read(context.Background(), self, buf, rtipc.Infinite())
		if err != nil {
			t.Error(err)
			return
		}
		readDone <- n
	}()
	time.Sleep(10 * time.Millisecond)

	if err := q.Write([]byte("hi"), rtipc.Normal); err != nil {
		t.Fatalf("Write: %v", err)
	}

	select {
	case n := <-readDone:
		if n != 2 || !bytes.Equal(buf[:2], []byte("hi")) {
			t.Fatalf("Read = (%d, %q), want (2, \"hi\")", n, buf[:2])
		}
	case <-time.After(time.Second):
		t.Fatal("reader never got the fast-path delivery")
	}
}

func TestMessageQueueBroadcast(t *testing.T) {
	q := rtipc.NewMessageQueue(rtipc.FIFO, 0, 0)
	r1 := rtipc.NewThread("r1", 0)
	r2 := rtipc.NewThread("r2", 0)

	done1 := make(chan *rtipc.Message, 1)
	done2 := make(chan *rtipc.Message, 1)
	go func() {
		m, err := q.Receive(context.Background(), r1, rtipc.Infinite())
		if err != nil {
			t.Error(err)
			return
		}
		done1 <- m
	}()
	go func() {
		m, err := q.Receive(context.Background(), r2, rtipc.Infinite())
		if err != nil {
			t.Error(err)
			return
		}
		done2 <- m
	}()
	time.Sleep(10 * time.Millisecond)

	msg, _ := q.Alloc(3)
	copy(msg.Bytes(), "abc")
	if err := q.Send(msg, rtipc.Broadcast); err != nil {
		t.Fatalf("Send(Broadcast): %v", err)
	}

	var got1, got2 *rtipc.Message
	select {
	case got1 = <-done1:
	case <-time.After(time.Second):
		t.Fatal("r1 never received the broadcast")
	}
	select {
	case got2 = <-done2:
	case <-time.After(time.Second):
		t.Fatal("r2 never received the broadcast")
	}
	if !bytes.Equal(got1.Bytes(), []byte("abc")) || !bytes.Equal(got2.Bytes(), []byte("abc")) {
		t.Fatal("broadcast receivers did not get the same payload")
	}
	_ = q.Free(got1)
	_ = q.Free(got2)
}

func TestMessageQueueHardLimit(t *testing.T) {
	q := rtipc.NewMessageQueue(rtipc.FIFO, 1, 0)
	m1, _ := q.Alloc(1)
	if err := q.Send(m1, rtipc.Normal); err != nil {
		t.Fatalf("Send: %v", err)
	}
	m2, _ := q.Alloc(1)
	if err := q.Send(m2, rtipc.Normal); !errors.Is(err, rtipc.ErrNoMemory) {
		t.Fatalf("Send past limit: got %v, want ErrNoMemory", err)
	}
}
