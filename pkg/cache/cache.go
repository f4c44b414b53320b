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

// Package cache provides an LRU cache whose entries expire.
package cache

import (
	"container/list"
	"sync"
	"time"

	"github.com/yorkie-team/tripsync/pkg/errors"
)

// ErrInvalidMaxSize is returned when the given max size is not positive.
var ErrInvalidMaxSize = errors.InvalidArgument("max size must be > 0").WithCode("ErrInvalidMaxSize")

// LRUExpireCache keeps the most recently used entries up to its max size.
// Entries older than their ttl are never returned.
type LRUExpireCache[K comparable, V any] struct {
	lock sync.Mutex

	maxSize      int
	now          func() time.Time
	evictionList list.List
	entries      map[K]*list.Element
}

type entry[K comparable, V any] struct {
	key        K
	value      V
	expireTime time.Time
}

// NewLRUExpireCache creates an expiring cache with the given size.
func NewLRUExpireCache[K comparable, V any](maxSize int) (*LRUExpireCache[K, V], error) {
	return NewLRUExpireCacheWithClock[K, V](maxSize, time.Now)
}

// NewLRUExpireCacheWithClock creates an expiring cache reading the time from
// the given clock.
func NewLRUExpireCacheWithClock[K comparable, V any](
	maxSize int,
	now func() time.Time,
) (*LRUExpireCache[K, V], error) {
	if maxSize <= 0 {
		return nil, ErrInvalidMaxSize
	}

	return &LRUExpireCache[K, V]{
		maxSize: maxSize,
		now:     now,
		entries: make(map[K]*list.Element),
	}, nil
}

// Add adds the value to the cache at key with the given ttl, evicting the
// least recently used entry when the cache is full.
func (c *LRUExpireCache[K, V]) Add(key K, value V, ttl time.Duration) {
	c.lock.Lock()
	defer c.lock.Unlock()

	expireTime := c.now().Add(ttl)
	if element, ok := c.entries[key]; ok {
		c.evictionList.MoveToFront(element)
		e := element.Value.(*entry[K, V])
		e.value = value
		e.expireTime = expireTime
		return
	}

	if c.evictionList.Len() >= c.maxSize {
		c.remove(c.evictionList.Back())
	}

	c.entries[key] = c.evictionList.PushFront(&entry[K, V]{
		key:        key,
		value:      value,
		expireTime: expireTime,
	})
}

// Get returns the value at the key if it exists and is not expired.
func (c *LRUExpireCache[K, V]) Get(key K) (V, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()

	element, ok := c.lookup(key)
	if !ok {
		var zero V
		return zero, false
	}

	c.evictionList.MoveToFront(element)
	return element.Value.(*entry[K, V]).value, true
}

// Take returns the value at the key and removes it, so a value is taken at
// most once.
func (c *LRUExpireCache[K, V]) Take(key K) (V, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()

	element, ok := c.lookup(key)
	if !ok {
		var zero V
		return zero, false
	}

	c.remove(element)
	return element.Value.(*entry[K, V]).value, true
}

// Remove removes the value at the key.
func (c *LRUExpireCache[K, V]) Remove(key K) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if element, ok := c.entries[key]; ok {
		c.remove(element)
	}
}

// Len returns the number of entries including the expired ones not yet
// dropped.
func (c *LRUExpireCache[K, V]) Len() int {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.evictionList.Len()
}

// Range calls fn for the unexpired entries from the most recently used one
// until fn returns false. The order of the entries is kept. fn must not
// call the cache.
func (c *LRUExpireCache[K, V]) Range(fn func(key K, value V) bool) {
	c.lock.Lock()
	defer c.lock.Unlock()

	now := c.now()
	for element := c.evictionList.Front(); element != nil; element = element.Next() {
		e := element.Value.(*entry[K, V])
		if now.After(e.expireTime) {
			continue
		}
		if !fn(e.key, e.value) {
			return
		}
	}
}

// lookup returns the element at the key, dropping it when it is expired.
func (c *LRUExpireCache[K, V]) lookup(key K) (*list.Element, bool) {
	element, ok := c.entries[key]
	if !ok {
		return nil, false
	}

	if c.now().After(element.Value.(*entry[K, V]).expireTime) {
		c.remove(element)
		return nil, false
	}
	return element, true
}

func (c *LRUExpireCache[K, V]) remove(element *list.Element) {
	c.evictionList.Remove(element)
	delete(c.entries, element.Value.(*entry[K, V]).key)
}
