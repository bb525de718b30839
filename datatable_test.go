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
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataTable(t *testing.T) {
	dt := &DataTable{
		Columns: []string{"ID", "Name"},
		Rows: [][]interface{}{
			{int64(1), "admin"},
			{int64(2), nil},
		},
	}

	assert.Equal(t, 2, dt.Count())
	assert.Equal(t, 1, dt.ColumnIndex("name"))
	assert.Equal(t, -1, dt.ColumnIndex("missing"))
	assert.Equal(t, "admin", dt.Get(0, "Name"))
	assert.Nil(t, dt.Get(1, "Name"))
	assert.Nil(t, dt.Get(5, "Name"))
	assert.Nil(t, dt.Get(0, "missing"))

	assert.Equal(t, []map[string]interface{}{
		{"ID": int64(1), "Name": "admin"},
		{"ID": int64(2), "Name": nil},
	}, dt.Maps())

	buf, err := json.Marshal(dt)
	require.NoError(t, err)
	assert.Equal(t, `[{"ID":1,"Name":"admin"},{"ID":2,"Name":null}]`, string(buf))

	buf, err = json.Marshal(&DataTable{Columns: []string{"ID"}, Rows: [][]interface{}{}})
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(buf))
}
