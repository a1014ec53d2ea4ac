// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !linux

package arena

// newSharedMapping falls back to a process-private slice on platforms
// without the memfd+MAP_SHARED backend (arena_linux.go). The offset
// contract still works for callers within this process; there is no
// cross-process attach on this platform.
func newSharedMapping(size int) ([]byte, func() error, error) {
	return make([]byte, size), func() error { return nil }, nil
}
