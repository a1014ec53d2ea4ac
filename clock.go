// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rtipc

import "time"

// Timeout is the clock contract of spec §6: every blocking call accepts
// a relative timeout, an absolute deadline, non-blocking (zero), or an
// infinite wait. TM_INFINITE and TM_NONBLOCK map to [Infinite] and
// [NonBlock] (the zero value), respectively.
type Timeout struct {
	infinite bool
	deadline time.Time // zero if relative and not yet anchored
	relative time.Duration
	absolute bool
}

// Infinite waits forever. Equivalent to TM_INFINITE.
func Infinite() Timeout { return Timeout{infinite: true} }

// NonBlock never suspends. Equivalent to TM_NONBLOCK, (sec, nsec) = (0, 0).
func NonBlock() Timeout { return Timeout{} }

// After waits at most d, measured from the moment the blocking call
// starts (not from when Timeout was constructed).
func After(d time.Duration) Timeout {
	if d <= 0 {
		return NonBlock()
	}
	return Timeout{relative: d}
}

// At waits until the absolute deadline t on the caller's clock.
func At(t time.Time) Timeout {
	return Timeout{deadline: t, absolute: true}
}

// IsNonBlocking reports whether this Timeout never suspends.
func (t Timeout) IsNonBlocking() bool {
	return !t.infinite && !t.absolute && t.relative <= 0
}

// IsInfinite reports whether this Timeout waits forever.
func (t Timeout) IsInfinite() bool {
	return t.infinite
}

// Deadline resolves the Timeout to an absolute instant as of now. ok is
// false for an infinite wait (no deadline applies).
func (t Timeout) Deadline(now time.Time) (deadline time.Time, ok bool) {
	switch {
	case t.infinite:
		return time.Time{}, false
	case t.absolute:
		return t.deadline, true
	case t.relative > 0:
		return now.Add(t.relative), true
	default:
		return now, true // non-blocking: deadline is "now"
	}
}

// Anchor converts a relative Timeout into an absolute one, fixed to
// now. Callers that may re-wait in a retry loop (Registry.Bind on a
// spurious wake, Event.Wait across a Post that didn't satisfy its mask)
// must anchor once before the loop so a relative deadline doesn't reset
// on every iteration.
func (t Timeout) Anchor() Timeout {
	if t.infinite || t.absolute || t.relative <= 0 {
		return t
	}
	d, _ := t.Deadline(time.Now())
	return At(d)
}
