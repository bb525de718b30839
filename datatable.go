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
	"bytes"
	"database/sql"
	"encoding/json"
	"strings"
)

// DataTable is the generic tabular result of a query.
type DataTable struct {
	Columns []string
	Rows    [][]interface{}
}

// Count returns the number of rows.
func (dt *DataTable) Count() int {
	return len(dt.Rows)
}

// ColumnIndex returns the position of a column, matched case-insensitively,
// or -1.
func (dt *DataTable) ColumnIndex(name string) int {
	for i, col := range dt.Columns {
		if strings.EqualFold(col, name) {
			return i
		}
	}
	return -1
}

// Get returns the value of a column in the i-th row.
func (dt *DataTable) Get(i int, column string) interface{} {
	j := dt.ColumnIndex(column)
	if j < 0 || i < 0 || i >= len(dt.Rows) {
		return nil
	}
	return dt.Rows[i][j]
}

// Maps converts every row into a column name -> value map.
func (dt *DataTable) Maps() []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(dt.Rows))
	for _, row := range dt.Rows {
		m := make(map[string]interface{}, len(dt.Columns))
		for j, col := range dt.Columns {
			m[col] = row[j]
		}
		out = append(out, m)
	}
	return out
}

// MarshalJSON encodes the table as an array of objects, keeping column
// order.
func (dt *DataTable) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, row := range dt.Rows {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('{')
		for j, col := range dt.Columns {
			if j > 0 {
				buf.WriteByte(',')
			}
			k, err := json.Marshal(col)
			if err != nil {
				return nil, err
			}
			v, err := json.Marshal(row[j])
			if err != nil {
				return nil, err
			}
			buf.Write(k)
			buf.WriteByte(':')
			buf.Write(v)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

var binaryTypes = map[string]bool{
	"BLOB":      true,
	"BINARY":    true,
	"VARBINARY": true,
	"BYTEA":     true,
	"IMAGE":     true,
	"LONGBLOB":  true,
}

// ReadDataTable reads every remaining row and closes rows. Text read as
// []byte is converted to string, binary columns are kept as []byte.
func ReadDataTable(rows *sql.Rows) (*DataTable, error) {
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}

	dt := &DataTable{Columns: columns, Rows: [][]interface{}{}}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok && !binaryTypes[strings.ToUpper(types[i].DatabaseTypeName())] {
				values[i] = string(b)
			}
		}
		dt.Rows = append(dt.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return dt, nil
}
