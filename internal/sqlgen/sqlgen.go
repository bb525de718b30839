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

// Package sqlgen renders the handful of statements the persistence core
// issues on its own: selects with simple predicates, multi-row inserts,
// updates and deletes.
package sqlgen

import (
	"strings"
)

// Dialect is the subset of a SQL dialect sqlgen needs.
type Dialect interface {
	Quote(identifier string) string
	Placeholder(n int) string
}

// Builder accumulates SQL text and its arguments.
type Builder struct {
	d    Dialect
	buf  strings.Builder
	args []interface{}
}

// New creates a builder for the given dialect.
func New(d Dialect) *Builder {
	return &Builder{d: d}
}

// Raw appends verbatim SQL.
func (b *Builder) Raw(s string) *Builder {
	b.buf.WriteString(s)
	return b
}

// Ident appends a quoted identifier.
func (b *Builder) Ident(name string) *Builder {
	b.buf.WriteString(b.d.Quote(name))
	return b
}

// Idents appends a comma separated list of quoted identifiers.
func (b *Builder) Idents(names []string) *Builder {
	for i, name := range names {
		if i > 0 {
			b.buf.WriteString(", ")
		}
		b.Ident(name)
	}
	return b
}

// Arg appends a placeholder bound to v.
func (b *Builder) Arg(v interface{}) *Builder {
	b.args = append(b.args, v)
	b.buf.WriteString(b.d.Placeholder(len(b.args)))
	return b
}

// Tuple appends a parenthesized list of placeholders bound to values.
func (b *Builder) Tuple(values []interface{}) *Builder {
	b.buf.WriteByte('(')
	for i, v := range values {
		if i > 0 {
			b.buf.WriteString(", ")
		}
		b.Arg(v)
	}
	b.buf.WriteByte(')')
	return b
}

// Where appends a WHERE clause, if w is not empty.
func (b *Builder) Where(w Where) *Builder {
	if w.Empty() {
		return b
	}
	b.buf.WriteString(" WHERE ")
	first := true
	for _, p := range w.And {
		if !first {
			b.buf.WriteString(" AND ")
		}
		first = false
		b.pred(p)
	}
	if len(w.AnyOf) > 0 {
		if !first {
			b.buf.WriteString(" AND ")
		}
		b.buf.WriteByte('(')
		for i, p := range w.AnyOf {
			if i > 0 {
				b.buf.WriteString(" OR ")
			}
			b.pred(p)
		}
		b.buf.WriteByte(')')
	}
	return b
}

func (b *Builder) pred(p Pred) {
	b.Ident(p.Column)
	op := p.Op
	if op == "" {
		op = "="
	}
	if p.Value == nil {
		if op == "=" {
			b.buf.WriteString(" IS NULL")
			return
		}
		if op == "<>" || op == "!=" {
			b.buf.WriteString(" IS NOT NULL")
			return
		}
	}
	b.buf.WriteString(" " + op + " ")
	b.Arg(p.Value)
}

// String returns the statement.
func (b *Builder) String() string {
	return b.buf.String()
}

// Args returns the arguments bound so far.
func (b *Builder) Args() []interface{} {
	return b.args
}

// Pred is a single comparison against a bound value.
type Pred struct {
	Column string
	Op     string
	Value  interface{}
}

// Where is a conjunction of predicates, plus an optional disjunctive group.
type Where struct {
	And   []Pred
	AnyOf []Pred
}

// Empty is true when there are no predicates at all.
func (w Where) Empty() bool {
	return len(w.And) == 0 && len(w.AnyOf) == 0
}

// Select renders SELECT * FROM table WHERE ... ORDER BY ...
func Select(d Dialect, table string, w Where, orderBy []string) (string, []interface{}) {
	b := New(d).Raw("SELECT * FROM ").Ident(table).Where(w)
	if len(orderBy) > 0 {
		b.Raw(" ORDER BY ").Idents(orderBy)
	}
	return b.String(), b.Args()
}

// Count renders SELECT COUNT(*) FROM table WHERE ...
func Count(d Dialect, table string, w Where) (string, []interface{}) {
	b := New(d).Raw("SELECT COUNT(*) FROM ").Ident(table).Where(w)
	return b.String(), b.Args()
}

// Insert renders a multi-row insert. The statement starts with prefix (like
// "INSERT INTO") and ends with suffix.
func Insert(d Dialect, prefix, table string, columns []string, rows [][]interface{}, suffix string) (string, []interface{}) {
	b := New(d).Raw(prefix + " ").Ident(table).Raw(" (").Idents(columns).Raw(") VALUES ")
	for i, row := range rows {
		if i > 0 {
			b.Raw(", ")
		}
		b.Tuple(row)
	}
	if suffix != "" {
		b.Raw(" " + suffix)
	}
	return b.String(), b.Args()
}

// Update renders UPDATE table SET ... WHERE ...
func Update(d Dialect, table string, columns []string, values []interface{}, w Where) (string, []interface{}) {
	b := New(d).Raw("UPDATE ").Ident(table).Raw(" SET ")
	for i := range columns {
		if i > 0 {
			b.Raw(", ")
		}
		b.Ident(columns[i]).Raw(" = ").Arg(values[i])
	}
	b.Where(w)
	return b.String(), b.Args()
}

// Delete renders DELETE FROM table WHERE ...
func Delete(d Dialect, table string, w Where) (string, []interface{}) {
	b := New(d).Raw("DELETE FROM ").Ident(table).Where(w)
	return b.String(), b.Args()
}

// DeleteKeys renders a DELETE matching any of the given key tuples, each
// tuple holding one value per column:
//
//	DELETE FROM table WHERE (a = ? AND b = ?) OR (a = ? AND b = ?)
//
// Single column keys render as an IN list.
func DeleteKeys(d Dialect, table string, columns []string, keys [][]interface{}) (string, []interface{}) {
	b := New(d).Raw("DELETE FROM ").Ident(table).Raw(" WHERE ")
	if len(columns) == 1 {
		values := make([]interface{}, len(keys))
		for i := range keys {
			values[i] = keys[i][0]
		}
		b.Ident(columns[0]).Raw(" IN ").Tuple(values)
		return b.String(), b.Args()
	}
	for i, key := range keys {
		if i > 0 {
			b.Raw(" OR ")
		}
		b.Raw("(")
		for j, col := range columns {
			if j > 0 {
				b.Raw(" AND ")
			}
			b.Ident(col).Raw(" = ").Arg(key[j])
		}
		b.Raw(")")
	}
	return b.String(), b.Args()
}
