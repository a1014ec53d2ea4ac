// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build race

package rtipc

// RaceEnabled is true when the race detector is active. It lets
// callers tell when the race detector's instrumentation overhead may
// make wall-clock deadlines flaky; no test in this package reads it.
const RaceEnabled = true
