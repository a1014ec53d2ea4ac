// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rtipc

import (
	"context"
	"fmt"

	"code.hybscloud.com/atomix"
)

// DefaultNameLen is the pSOS-compatible short-name bound (spec §4.3).
// Extended-name clusters pass a larger maxNameLen to NewRegistry.
const DefaultNameLen = 4

// ExtendedNameLen is the bound used by the Alchemy-flavored facade's
// longer names (spec §6 "Name format").
const ExtendedNameLen = 32

// Registry is the named-lookup cluster of spec §4.3: a mapping from
// short names to control-block records, supporting unique insertion,
// duplicate insertion with auto-renaming, non-blocking find, and a
// timed bind that suspends until a name appears.
//
// All map access and the "new object" wait condition share one
// [SyncObject] lock, so AddUnique's GrantAll and a blocked Bind's
// re-check of the map can never race (spec §4.4 "exactly one thread at
// a time owns the sync object's internal lock").
type Registry struct {
	sync        *SyncObject
	entries     map[string]Handle
	maxNameLen  int
	anonCounter atomix.Uint64
}

// NewRegistry creates an empty cluster with the given name-length bound.
func NewRegistry(maxNameLen int) *Registry {
	return &Registry{
		sync:       NewSyncObject(FIFO),
		entries:    make(map[string]Handle),
		maxNameLen: maxNameLen,
	}
}

func (r *Registry) checkName(name string) error {
	if name == "" || len(name) > r.maxNameLen {
		return ErrInvalid
	}
	return nil
}

// AddUnique inserts name → h. Fails with ErrExist if name is taken.
func (r *Registry) AddUnique(name string, h Handle) error {
	if err := r.checkName(name); err != nil {
		return err
	}
	if err := r.sync.Lock(); err != nil {
		return err
	}
	defer r.sync.Unlock()

	if _, exists := r.entries[name]; exists {
		return ErrExist
	}
	r.entries[name] = h
	r.sync.GrantAll()
	return nil
}

// AddDup inserts h under name, or under an automatically suffixed
// variant of name if it is already taken (private-cluster policy, spec
// §4.3). Returns the name actually used.
func (r *Registry) AddDup(name string, h Handle) (string, error) {
	if err := r.checkName(name); err != nil {
		return "", err
	}
	if err := r.sync.Lock(); err != nil {
		return "", err
	}
	defer r.sync.Unlock()

	final := name
	if _, exists := r.entries[final]; exists {
		for i := 1; ; i++ {
			candidate := fmt.Sprintf("%s~%d", name, i)
			if _, exists := r.entries[candidate]; !exists {
				final = candidate
				break
			}
		}
	}
	r.entries[final] = h
	r.sync.GrantAll()
	return final, nil
}

// Find returns the handle registered under name, or (0, false).
func (r *Registry) Find(name string) (Handle, bool) {
	if err := r.sync.Lock(); err != nil {
		return nullHandle, false
	}
	defer r.sync.Unlock()
	h, ok := r.entries[name]
	return h, ok
}

// Bind returns the handle registered under name, suspending until it
// appears if it is not yet present. Returns ErrWouldBlock for a
// non-blocking timeout with no match, ErrTimedOut past the deadline, or
// ErrInterrupted if ctx is cancelled while waiting (spec §4.3 "bind").
func (r *Registry) Bind(ctx context.Context, self *Thread, name string, timeout Timeout) (Handle, error) {
	if err := r.sync.Lock(); err != nil {
		return nullHandle, err
	}
	if h, ok := r.entries[name]; ok {
		r.sync.Unlock()
		return h, nil
	}
	if timeout.IsNonBlocking() {
		r.sync.Unlock()
		return nullHandle, ErrWouldBlock
	}

	timeout = timeout.Anchor()
	for {
		_, err := r.sync.WaitGrant(ctx, self, timeout, name)
		if err == ErrDeleted {
			return nullHandle, err
		}
		if err != nil {
			r.sync.Unlock()
			return nullHandle, err
		}
		// WaitGrant re-acquired the lock; re-check under it before
		// looping, since GrantAll wakes on every insert, not just a
		// matching one.
		if h, ok := r.entries[name]; ok {
			r.sync.Unlock()
			return h, nil
		}
		// Still holding the lock (WaitGrant re-acquired it) — loop
		// straight back into another WaitGrant on a spurious wake.
	}
}

// Delete removes name from the cluster, if present.
func (r *Registry) Delete(name string) {
	if err := r.sync.Lock(); err != nil {
		return
	}
	defer r.sync.Unlock()
	delete(r.entries, name)
}

// Anonymous returns a generator-issued name unique within this
// cluster's anonymous namespace, e.g. "queue3" for prefix "queue".
func (r *Registry) Anonymous(prefix string) string {
	n := r.anonCounter.AddAcqRel(1)
	return fmt.Sprintf("%s%d", prefix, n)
}
