// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rtipc

import "code.hybscloud.com/iox"

// ErrWouldBlock indicates a non-blocking operation could not proceed
// immediately (zero timeout on a contended primitive).
//
// This is an alias for [iox.ErrWouldBlock] for ecosystem consistency with
// every other code.hybscloud.com package.
//
// Example:
//
//	backoff := iox.Backoff{}
//	for {
//	    err := sem.Take(ctx, self, rtipc.NonBlock())
//	    if err == nil {
//	        backoff.Reset()
//	        break
//	    }
//	    if rtipc.IsWouldBlock(err) {
//	        backoff.Wait()
//	        continue
//	    }
//	    return err
//	}
var ErrWouldBlock = iox.ErrWouldBlock

// The remaining sentinels mirror the POSIX-flavored error surface the
// spec requires at the public boundary (§6, §7). They are not part of
// iox, which only carries generic control-flow classification, so they
// are declared locally, in iox's own "one var, one doc comment" style.
var (
	// ErrInvalid is returned for a null/misaligned handle, a bad magic
	// tag, invalid mode bits, or a size that can never fit.
	ErrInvalid = newErrno("EINVAL", "invalid argument")
	// ErrPermission is returned when a mutex is released or reinitialized
	// by a thread that does not own it, or when Condvar.Wait is called by
	// a thread that does not hold the bound mutex. The calling context is
	// not checked: a blocking call made from an alarm handler is not
	// rejected.
	ErrPermission = newErrno("EPERM", "operation not permitted")
	// ErrNoMemory is returned by MessageQueue.Send when the queue's hard
	// limit is reached and no receiver is waiting to take the message.
	ErrNoMemory = newErrno("ENOMEM", "out of memory")
	// ErrExist is returned by a unique-name registry insert when the
	// name is already taken.
	ErrExist = newErrno("EEXIST", "name already exists")
	// ErrNotExist is the "no such name" code of the error surface. No
	// function in this package returns it: Registry.Find reports a miss
	// with ok == false, and a non-blocking Registry.Bind returns
	// ErrWouldBlock.
	ErrNotExist = newErrno("ENOENT", "no such name")
	// ErrTimedOut is returned when a bounded wait's deadline elapses.
	ErrTimedOut = newErrno("ETIMEDOUT", "timed out")
	// ErrInterrupted is returned when a blocked caller is cancelled.
	// The caller's waiter slot is always unlinked before this is
	// returned; no residual state survives the call.
	ErrInterrupted = newErrno("EINTR", "interrupted")
	// ErrDeleted is returned to every waiter released by Destroy. It is
	// terminal: the descriptor must not be used again (a later call on
	// it fails with ErrInvalid, since SyncObject.Lock rejects a destroyed
	// object).
	ErrDeleted = newErrno("EIDRM", "identifier removed")
	// ErrBusy is returned when deletion is attempted on an object that
	// still has users (a region with live segments, a mutex still held
	// or bound to a condvar). A partition with blocks still out reports
	// ErrBlockInUse instead.
	ErrBusy = newErrno("EBUSY", "resource busy")
	// ErrDeadlock is returned for a detected self-deadlock on a mutex
	// created with recursion disabled.
	ErrDeadlock = newErrno("EDEADLK", "resource deadlock avoided")
	// ErrOwnerDead is returned by Mutex.Acquire when the previous owner
	// died while holding the lock. The mutex is left marked
	// inconsistent; it must be reinitialized before further use.
	ErrOwnerDead = newErrno("EOWNERDEAD", "owner died")
	// ErrNoBuffers is returned by Partition.Alloc when every block is
	// out, and by Semaphore.Give when the count is already at its limit.
	ErrNoBuffers = newErrno("ENOBUFS", "no buffer space available")
	// ErrAgain is a generic retry signal distinct from ErrWouldBlock:
	// ErrWouldBlock means "the non-blocking variant of this call would
	// have blocked"; ErrAgain names a transient condition a caller
	// should retry. No function in this package returns it.
	ErrAgain = newErrno("EAGAIN", "resource temporarily unavailable")
	// ErrDoubleFree is returned by Partition.Free for an address whose
	// bitmap bit is already clear.
	ErrDoubleFree = newErrno("EBUFFREE", "block already freed")
	// ErrBlockInUse is returned by Partition.Delete when any block is
	// still allocated.
	ErrBlockInUse = newErrno("EBUFINUSE", "block still allocated")
)

// errno is a comparable sentinel error, declared the same way across
// every rtipc component so errors.Is works without string comparison.
type errno struct {
	code string
	msg  string
}

func newErrno(code, msg string) *errno { return &errno{code: code, msg: msg} }

func (e *errno) Error() string { return e.code + ": " + e.msg }

// IsWouldBlock reports whether err indicates the operation would block.
// Delegates to [iox.IsWouldBlock] for wrapped error support.
func IsWouldBlock(err error) bool {
	return iox.IsWouldBlock(err)
}

// IsSemantic reports whether err is a control-flow signal rather than a
// failure (ErrWouldBlock, ErrTimedOut, ErrInterrupted are all outcomes a
// well-behaved caller plans for). Delegates to [iox.IsSemantic] for the
// ErrWouldBlock case and extends it with the wait-outcome sentinels the
// spec calls out in §7 "Wait outcomes propagate up unchanged".
func IsSemantic(err error) bool {
	if iox.IsSemantic(err) {
		return true
	}
	switch err {
	case ErrTimedOut, ErrInterrupted, ErrDeleted:
		return true
	default:
		return false
	}
}

// IsNonFailure reports whether err represents a non-failure condition.
// Delegates to [iox.IsNonFailure].
func IsNonFailure(err error) bool {
	return iox.IsNonFailure(err)
}
