/*
 * Copyright 2026 The Yorkie Authors. All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package locker provides named locks, e.g. one per itinerary, created on
// first use and dropped once nobody holds or waits for them.
package locker

import (
	"sync"

	"github.com/yorkie-team/tripsync/pkg/errors"
)

// ErrNoSuchLock is returned when the requested lock does not exist.
var ErrNoSuchLock = errors.FailedPrecond("no such lock").WithCode("ErrNoSuchLock")

// Locker holds the named locks.
type Locker struct {
	mu    sync.Mutex
	locks map[string]*lockCtr
}

// lockCtr is a lock with the number of callers holding or waiting for it.
type lockCtr struct {
	mu   sync.Mutex
	refs int
}

// New creates a new Locker.
func New() *Locker {
	return &Locker{
		locks: make(map[string]*lockCtr),
	}
}

// Lock locks the lock with the given name, waiting until it is released.
func (l *Locker) Lock(name string) {
	l.acquire(name).mu.Lock()
}

// TryLock locks the lock with the given name unless it is held already. It
// reports whether the lock was acquired.
func (l *Locker) TryLock(name string) bool {
	ctr := l.acquire(name)
	if ctr.mu.TryLock() {
		return true
	}

	l.release(name, ctr)
	return false
}

// Unlock unlocks the lock with the given name.
func (l *Locker) Unlock(name string) error {
	l.mu.Lock()
	ctr, ok := l.locks[name]
	l.mu.Unlock()
	if !ok {
		return ErrNoSuchLock
	}

	l.release(name, ctr)
	ctr.mu.Unlock()
	return nil
}

// Len returns the number of locks held or waited for.
func (l *Locker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.locks)
}

// acquire returns the lock with the given name, counting the caller as a
// holder so the lock is not dropped before the caller is done with it.
func (l *Locker) acquire(name string) *lockCtr {
	l.mu.Lock()
	defer l.mu.Unlock()

	ctr, ok := l.locks[name]
	if !ok {
		ctr = &lockCtr{}
		l.locks[name] = ctr
	}
	ctr.refs++
	return ctr
}

func (l *Locker) release(name string, ctr *lockCtr) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ctr.refs--
	if ctr.refs == 0 {
		delete(l.locks, name)
	}
}
