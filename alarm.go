// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rtipc

import (
	"sync"
	"time"

	"code.hybscloud.com/atomix"
)

const alarmMagic uint32 = 0x616c726d // "alrm"

// AlarmFunc is an alarm's callback. It runs on its own goroutine under
// a restricted context (spec §4.14): handlers may only invoke
// non-blocking core operations (NonBlock timeouts), never a suspending
// one, since there is no caller thread left to attribute the wait to.
type AlarmFunc func(arg any)

// Alarm is the timer object of spec §4.14 and SPEC_FULL.md §C.1: a
// one-shot or periodic callback bound to an argument, backed by
// time.AfterFunc. A periodic alarm re-arms after each firing by
// scheduling a fresh time.AfterFunc for the next period.
type Alarm struct {
	magic uint32
	fn    AlarmFunc
	arg   any

	mu      sync.Mutex
	timer   *time.Timer
	period  time.Duration
	active  bool
	expiry  atomix.Uint64
}

func (a *Alarm) validMagic() bool { return a != nil && a.magic == alarmMagic }

// NewAlarm creates an alarm bound to fn and arg, initially stopped.
func NewAlarm(fn AlarmFunc, arg any) *Alarm {
	return &Alarm{magic: alarmMagic, fn: fn, arg: arg}
}

// Start arms the alarm to first fire after initial; if period is
// nonzero, it re-arms itself for period after every firing (spec
// §4.14 "start(initial, period)"). Starting an already-running alarm
// replaces its schedule.
func (a *Alarm) Start(initial, period time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.timer != nil {
		a.timer.Stop()
	}
	a.period = period
	a.active = true
	a.timer = time.AfterFunc(initial, a.fire)
}

func (a *Alarm) fire() {
	a.mu.Lock()
	active := a.active
	period := a.period
	a.mu.Unlock()
	if !active {
		return
	}

	a.expiry.AddAcqRel(1)
	a.fn(a.arg)

	if period > 0 {
		a.mu.Lock()
		if a.active {
			a.timer = time.AfterFunc(period, a.fire)
		}
		a.mu.Unlock()
	} else {
		a.mu.Lock()
		a.active = false
		a.mu.Unlock()
	}
}

// Stop halts the alarm. A periodic alarm's control block stays valid
// but quiescent (spec §4.14 "stopping a periodic timer leaves the
// control block valid but quiescent"); Start re-arms it.
func (a *Alarm) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.active = false
	if a.timer != nil {
		a.timer.Stop()
	}
}

// Inquire reports the alarm's cumulative expiry count and whether it
// is currently armed.
func (a *Alarm) Inquire() (expiryCount uint64, isActive bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.expiry.LoadAcquire(), a.active
}

// Delete stops and releases the alarm.
func (a *Alarm) Delete() {
	a.Stop()
}
