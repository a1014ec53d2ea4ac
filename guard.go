// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rtipc

import "sync/atomic"

// Guard is the scoped service guard of spec §4.1: every public entry
// that may modify or inspect state opens one. Guard itself does not
// touch cancellation. In Go terms "asynchronous cancellation" is a
// ctx.Done() that is only observed inside a [SyncObject] wait's select,
// so a call is already uncancellable everywhere outside that one
// suspend point. Guard's job is purely bookkeeping — nesting count and
// a cheap no-alloc RAII shape.
//
// Guard has no failure mode (spec §4.1 "no errors; this is a
// RAII-shaped construct"): Enter always succeeds, Exit always restores.
type Guard struct {
	depth int32
}

// Enter opens (or re-enters) the scoped region. Nested Enter calls are
// idempotent and only bump a counter (spec §4.1 "Nested entries are
// idempotent and cheap").
func (g *Guard) Enter() { atomic.AddInt32(&g.depth, 1) }

// Exit closes one level of the scoped region opened by Enter. Safe to
// call via defer on every exit path, including a panic unwind.
func (g *Guard) Exit() { atomic.AddInt32(&g.depth, -1) }

// Depth reports the current nesting depth, for diagnostics only.
func (g *Guard) Depth() int32 { return atomic.LoadInt32(&g.depth) }

// Enter opens a Guard and returns a closer bound to it, for the common
// one-line defer at the top of every public entry point:
//
//	defer rtipc.Enter(&obj.guard)()
func Enter(g *Guard) func() {
	g.Enter()
	return g.Exit
}
