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

package cache

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

type collidingKey string

func (k collidingKey) Key() string {
	return string(k)
}

func (k collidingKey) Hash() uint64 {
	return 42
}

func TestCache(t *testing.T) {
	c := NewCache()
	key := String("foo")

	_, ok := c.ReadRaw(key)
	assert.False(t, ok)

	v, err := c.GetOrCreate(key, func() (interface{}, error) {
		return "bar", nil
	})
	assert.NoError(t, err)
	assert.Equal(t, "bar", v)

	v, err = c.GetOrCreate(key, func() (interface{}, error) {
		return "baz", nil
	})
	assert.NoError(t, err)
	assert.Equal(t, "bar", v)

	v, ok = c.ReadRaw(key)
	assert.True(t, ok)
	assert.Equal(t, "bar", v)
}

func TestCacheCollisions(t *testing.T) {
	c := NewCache()

	for i, k := range []string{"a", "b"} {
		n := i + 1
		_, err := c.GetOrCreate(collidingKey(k), func() (interface{}, error) {
			return n, nil
		})
		assert.NoError(t, err)
	}

	v, ok := c.ReadRaw(collidingKey("a"))
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	v, ok = c.ReadRaw(collidingKey("b"))
	assert.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestGetOrCreateConcurrently(t *testing.T) {
	c := NewCache()

	var calls int32
	var wg sync.WaitGroup

	results := make([]interface{}, 64)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.GetOrCreate(String("main"), func() (interface{}, error) {
				atomic.AddInt32(&calls, 1)
				return &struct{ n int }{i}, nil
			})
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls)
	for i := range results {
		assert.Same(t, results[0], results[i])
	}
}

func TestGetOrCreateError(t *testing.T) {
	c := NewCache()

	_, err := c.GetOrCreate(String("x"), func() (interface{}, error) {
		return nil, fmt.Errorf("boom")
	})
	assert.Error(t, err)

	_, ok := c.ReadRaw(String("x"))
	assert.False(t, ok)
}

func BenchmarkReadExistentValue(b *testing.B) {
	key := String("main")

	z := NewCache()
	_, _ = z.GetOrCreate(key, func() (interface{}, error) {
		return "bar", nil
	})
	for i := 0; i < b.N; i++ {
		z.ReadRaw(key)
	}
}
