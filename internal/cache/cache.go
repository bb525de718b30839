// Copyright (c) 2012-present The upper.io/db authors. All rights reserved.
//
// Permission is hereby granted, free of charge, to any person obtaining
// a copy of this software and associated documentation files (the
// "Software"), to deal in the Software without restriction, including
// without limitation the rights to use, copy, modify, merge, publish,
// distribute, sublicense, and/or sell copies of the Software, and to
// permit persons to whom the Software is furnished to do so, subject to
// the following conditions:
//
// The above copyright notice and this permission notice shall be
// included in all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
// EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF
// MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND
// NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT HOLDERS BE
// LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER IN AN ACTION
// OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN CONNECTION
// WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.

// Package cache provides a concurrency-safe, construct-once cache keyed by
// fnv1a hashes.
package cache

import (
	"sync"

	"github.com/segmentio/fasthash/fnv1a"
)

// Hashable types must implement a method that returns a key. The key is hashed
// to find the bucket it belongs to.
type Hashable interface {
	Key() string
	Hash() uint64
}

type hashableString string

func (s hashableString) Key() string {
	return string(s)
}

func (s hashableString) Hash() uint64 {
	return fnv1a.HashString64(string(s))
}

// String returns a Hashable for a plain string.
func String(s string) Hashable {
	return hashableString(s)
}

type entry struct {
	key   string
	value interface{}
}

// Cache holds a map of hash -> values.
type Cache struct {
	mu    sync.RWMutex
	cache map[uint64][]entry
}

// NewCache initializes a new caching space.
func NewCache() *Cache {
	return &Cache{
		cache: make(map[uint64][]entry),
	}
}

func (c *Cache) lookup(ob Hashable) (interface{}, bool) {
	key := ob.Key()
	for _, e := range c.cache[ob.Hash()] {
		if e.key == key {
			return e.value, true
		}
	}
	return nil, false
}

// ReadRaw attempts to retrieve a cached value.
func (c *Cache) ReadRaw(ob Hashable) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lookup(ob)
}

// GetOrCreate returns the value stored under ob, calling fn to create it if
// missing. Concurrent callers asking for the same missing key get the value
// created by the first one; fn is not called twice.
func (c *Cache) GetOrCreate(ob Hashable, fn func() (interface{}, error)) (interface{}, error) {
	if v, ok := c.ReadRaw(ob); ok {
		return v, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if v, ok := c.lookup(ob); ok {
		return v, nil
	}
	v, err := fn()
	if err != nil {
		return nil, err
	}
	h := ob.Hash()
	c.cache[h] = append(c.cache[h], entry{key: ob.Key(), value: v})
	return v, nil
}
