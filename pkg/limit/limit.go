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

// Package limit provides per key debouncing of events.
package limit

import (
	"container/list"
	"sync"
	"time"
)

// bucket grants one token per window.
type bucket struct {
	window time.Duration
	last   time.Time
}

func (b *bucket) allow(now time.Time) bool {
	if now.Before(b.last.Add(b.window)) {
		return false
	}
	b.last = now
	return true
}

type entry[K comparable] struct {
	key      K
	bucket   bucket
	expireAt time.Time

	// trailing runs when the entry expires. It is the callback of the last
	// event that was not allowed.
	trailing func()
}

// Limiter allows one event per key and window. An event that is not allowed
// leaves its callback behind, and the callback runs once the key saw no
// event for the TTL, so the last event of a burst is never lost.
type Limiter[K comparable] struct {
	mu      sync.Mutex
	entries map[K]*list.Element
	lru     *list.List

	window time.Duration
	ttl    time.Duration

	closing chan struct{}
	once    sync.Once
}

// New creates a Limiter that checks for expired keys every interval.
func New[K comparable](interval, ttl, window time.Duration) *Limiter[K] {
	l := &Limiter[K]{
		entries: make(map[K]*list.Element),
		lru:     list.New(),
		window:  window,
		ttl:     ttl,
		closing: make(chan struct{}),
	}
	go l.loop(interval)
	return l
}

// Allow reports whether the event of the key may run now. When it may not,
// the callback is kept as the trailing callback of the key, replacing the
// previous one.
func (l *Limiter[K]) Allow(key K, callback func()) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	elem, ok := l.entries[key]
	if !ok {
		l.entries[key] = l.lru.PushFront(&entry[K]{
			key:      key,
			bucket:   bucket{window: l.window, last: now},
			expireAt: now.Add(l.ttl),
		})
		return true
	}

	e := elem.Value.(*entry[K])
	allowed := e.bucket.allow(now)
	if allowed {
		e.trailing = nil
	} else {
		e.trailing = callback
	}
	e.expireAt = now.Add(l.ttl)
	l.lru.MoveToFront(elem)
	return allowed
}

// Len returns the number of tracked keys.
func (l *Limiter[K]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (l *Limiter[K]) loop(interval time.Duration) {
	if interval <= 0 {
		interval = l.ttl
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.expire(time.Now())
		case <-l.closing:
			return
		}
	}
}

// expire drops the keys idle past their TTL and runs their trailing
// callbacks outside the lock.
func (l *Limiter[K]) expire(now time.Time) {
	var trailing []func()

	l.mu.Lock()
	for elem := l.lru.Back(); elem != nil; elem = l.lru.Back() {
		e := elem.Value.(*entry[K])
		if now.Before(e.expireAt) {
			break
		}
		l.lru.Remove(elem)
		delete(l.entries, e.key)
		if e.trailing != nil {
			trailing = append(trailing, e.trailing)
		}
	}
	l.mu.Unlock()

	for _, fn := range trailing {
		fn()
	}
}

// Close stops the expiration loop. Pending trailing callbacks are dropped.
func (l *Limiter[K]) Close() {
	l.once.Do(func() {
		close(l.closing)
	})
}
