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

package dal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func rowsOf(keys ...interface{}) [][]interface{} {
	rows := make([][]interface{}, len(keys))
	for i, k := range keys {
		rows[i] = []interface{}{k, i}
	}
	return rows
}

func TestChunkRows(t *testing.T) {
	rows := rowsOf(1, 2, 3, 4, 5)

	chunks := chunkRows(rows, 2)
	assert.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 2)
	assert.Len(t, chunks[2], 1)

	assert.Len(t, chunkRows(rows, 5), 1)
	assert.Len(t, chunkRows(rows, 100), 1)
	assert.Empty(t, chunkRows(nil, 10))
}

func TestReplaceChunks(t *testing.T) {
	keys := [][]int{{0}}

	chunks := replaceChunks(rowsOf(1, 2, 3), keys, 10)
	assert.Len(t, chunks, 1)

	// a repeated key starts a new chunk
	chunks = replaceChunks(rowsOf(1, 2, 1, 3, 2), keys, 10)
	if assert.Len(t, chunks, 2) {
		assert.Equal(t, rowsOf(1, 2), chunks[0])
		assert.Len(t, chunks[1], 3)
		assert.Equal(t, 1, chunks[1][0][0])
	}

	// size still applies
	chunks = replaceChunks(rowsOf(1, 2, 3, 4, 5), keys, 2)
	assert.Len(t, chunks, 3)

	// NULL keys never collide
	chunks = replaceChunks(rowsOf(nil, nil, nil), keys, 10)
	assert.Len(t, chunks, 1)

	// byte slices and strings are the same key
	chunks = replaceChunks(rowsOf("a", []byte("a")), keys, 10)
	assert.Len(t, chunks, 2)
}

func TestReplaceKeys(t *testing.T) {
	tbl := roleTable()

	keys := replaceKeys(tbl, []string{"ID", "Name", "Code"})
	assert.Equal(t, [][]int{{0}, {1}, {2, 1}}, keys)

	// the identity isn't written, only the unique keys are covered
	keys = replaceKeys(tbl, []string{"name", "Remark"})
	assert.Equal(t, [][]int{{0}}, keys)

	assert.Empty(t, replaceKeys(tbl, []string{"Remark"}))
}

func TestChunkSize(t *testing.T) {
	dialect := &fakeDialect{maxParameters: 100}

	assert.Equal(t, 10, (&BatchWriter{BatchSize: 10}).chunkSize(dialect, 3))
	assert.Equal(t, 33, (&BatchWriter{}).chunkSize(dialect, 3))
	assert.Equal(t, 1, (&BatchWriter{}).chunkSize(dialect, 200))

	dialect.maxParameters = 100000
	assert.Equal(t, DefaultBatchSize, (&BatchWriter{}).chunkSize(dialect, 3))
}

func TestPolicyString(t *testing.T) {
	assert.Equal(t, "insert", PolicyInsert.String())
	assert.Equal(t, "insert-ignore", PolicyInsertIgnore.String())
	assert.Equal(t, "replace", PolicyReplace.String())
	assert.Equal(t, "policy(9)", Policy(9).String())
}

func TestBatchColumns(t *testing.T) {
	typ := NewEntityType("Role", roleTable())
	s := newEntitySession(typ, "unused")

	a := typ.NewFrom(map[string]interface{}{"Name": "a"})
	b := typ.NewFrom(map[string]interface{}{"Name": "b", "Remark": "x"})
	assert.Equal(t, []string{"Name", "Remark"}, s.batchColumns([]*Entity{a, b}))

	a.Set("ID", 1)
	assert.Equal(t, []string{"Name", "Remark"}, s.batchColumns([]*Entity{a, b}))

	b.Set("ID", 2)
	assert.Equal(t, []string{"ID", "Name", "Remark"}, s.batchColumns([]*Entity{a, b}))
}
