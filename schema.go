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
	"strconv"
	"strings"
)

// ColumnType is the semantic type of a column. Each dialect maps it to a
// native type.
type ColumnType uint8

// Column types
const (
	String ColumnType = iota
	Int
	Int64
	Bool
	Float
	Time
	Bytes
)

var columnTypeNames = map[ColumnType]string{
	String: "string",
	Int:    "int",
	Int64:  "int64",
	Bool:   "bool",
	Float:  "float",
	Time:   "time",
	Bytes:  "bytes",
}

func (t ColumnType) String() string {
	return columnTypeNames[t]
}

// Column describes a single column of a table.
type Column struct {
	Name string
	Type ColumnType

	// Length is the declared maximum length, 0 means unbounded.
	Length int

	Nullable   bool
	PrimaryKey bool
	Identity   bool

	Description string
}

// Index describes an index or a unique constraint.
type Index struct {
	Name       string
	Columns    []string
	Unique     bool
	PrimaryKey bool
}

// Table describes a table, either declared by the application or reflected
// from a live database.
type Table struct {
	Name        string
	Description string

	Columns []*Column
	Indexes []*Index
}

// Clone returns a deep copy of the table under a different name. Index names
// are rewritten so they don't collide with the source table's.
func (t *Table) Clone(name string) *Table {
	c := &Table{
		Name:        name,
		Description: t.Description,
		Columns:     make([]*Column, 0, len(t.Columns)),
		Indexes:     make([]*Index, 0, len(t.Indexes)),
	}
	for _, col := range t.Columns {
		cc := *col
		c.Columns = append(c.Columns, &cc)
	}
	for _, idx := range t.Indexes {
		ci := *idx
		ci.Columns = append([]string(nil), idx.Columns...)
		if ci.Name != "" && !ci.PrimaryKey {
			ci.Name = IndexName(name, ci.Unique, ci.Columns)
		}
		c.Indexes = append(c.Indexes, &ci)
	}
	return c
}

// Column looks up a column by name, case-insensitively.
func (t *Table) Column(name string) *Column {
	for _, col := range t.Columns {
		if strings.EqualFold(col.Name, name) {
			return col
		}
	}
	return nil
}

// PrimaryKeys returns the names of the primary key columns.
func (t *Table) PrimaryKeys() []string {
	pk := []string{}
	for _, col := range t.Columns {
		if col.PrimaryKey {
			pk = append(pk, col.Name)
		}
	}
	return pk
}

// Identity returns the auto-increment column, if any.
func (t *Table) Identity() *Column {
	for _, col := range t.Columns {
		if col.Identity {
			return col
		}
	}
	return nil
}

// UniqueKeys returns every set of columns that must be unique across the
// table, the primary key included.
func (t *Table) UniqueKeys() [][]string {
	keys := [][]string{}
	if pk := t.PrimaryKeys(); len(pk) > 0 {
		keys = append(keys, pk)
	}
	for _, idx := range t.Indexes {
		if idx.Unique && !idx.PrimaryKey {
			keys = append(keys, idx.Columns)
		}
	}
	return keys
}

// MinLength returns the smallest declared maximum length among the columns
// that declare one, or 0 if none does.
func (t *Table) MinLength() int {
	min := 0
	for _, col := range t.Columns {
		if col.Length > 0 && (min == 0 || col.Length < min) {
			min = col.Length
		}
	}
	return min
}

// IndexName builds a conventional index name.
func IndexName(table string, unique bool, columns []string) string {
	prefix := "IX_"
	if unique {
		prefix = "IU_"
	}
	return prefix + table + "_" + strings.Join(columns, "_")
}

// ParseColumnType maps a native column type, like "VARCHAR(50)" or
// "bigint", to a ColumnType and its declared length.
func ParseColumnType(native string) (ColumnType, int) {
	native = strings.ToLower(strings.TrimSpace(native))

	length := 0
	if i := strings.IndexByte(native, '('); i >= 0 {
		if j := strings.IndexAny(native[i:], ",)"); j > 0 {
			length, _ = strconv.Atoi(strings.TrimSpace(native[i+1 : i+j]))
		}
		native = strings.TrimSpace(native[:i])
	}

	switch {
	case native == "tinyint" && length == 1, native == "bit", strings.HasPrefix(native, "bool"):
		return Bool, 0
	case strings.Contains(native, "char"), strings.Contains(native, "text"), strings.Contains(native, "clob"), native == "uuid":
		if length < 0 || native == "text" {
			length = 0
		}
		return String, length
	case strings.Contains(native, "bigint"), native == "int8":
		return Int64, 0
	case strings.Contains(native, "int"), strings.Contains(native, "serial"):
		return Int, 0
	case strings.Contains(native, "real"), strings.Contains(native, "floa"), strings.Contains(native, "doub"),
		strings.Contains(native, "numeric"), strings.Contains(native, "decimal"), strings.Contains(native, "money"):
		return Float, 0
	case strings.Contains(native, "date"), strings.Contains(native, "time"):
		return Time, 0
	case strings.Contains(native, "blob"), strings.Contains(native, "binary"), native == "bytea", native == "image":
		return Bytes, 0
	}
	return String, 0
}
