// Copyright (c) 2012-2015 The upper.io/db authors. All rights reserved.
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

// Package schema keeps what is known about the tables of a live database:
// whether they exist, their columns, primary keys and descriptions.
package schema

import (
	"sort"
	"strings"
	"sync"
)

// DatabaseSchema represents a collection of tables. Table names are matched
// case-insensitively.
type DatabaseSchema struct {
	name   string
	tables map[string]*TableSchema

	mu sync.RWMutex
}

// TableSchema represents a single table.
type TableSchema struct {
	pk          []string
	columns     map[string]struct{}
	description string
	exists      bool

	mu sync.RWMutex
}

// NewDatabaseSchema creates and returns a database schema.
func NewDatabaseSchema() *DatabaseSchema {
	s := &DatabaseSchema{
		tables: make(map[string]*TableSchema),
	}
	return s
}

// Name returns the name of the database.
func (s *DatabaseSchema) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

// SetName sets the name of the database.
func (s *DatabaseSchema) SetName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
}

// Table retrieves a table from the schema, adding it if missing.
func (s *DatabaseSchema) Table(name string) *TableSchema {
	key := strings.ToLower(name)

	s.mu.RLock()
	t, ok := s.tables[key]
	s.mu.RUnlock()
	if ok {
		return t
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tables[key]; !ok {
		s.tables[key] = &TableSchema{columns: map[string]struct{}{}}
	}

	return s.tables[key]
}

// Lookup retrieves a table only if it was added before.
func (s *DatabaseSchema) Lookup(name string) (*TableSchema, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tables[strings.ToLower(name)]
	return t, ok
}

// Forget removes a table from the schema.
func (s *DatabaseSchema) Forget(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.tables, strings.ToLower(name))
}

// Reset removes every table.
func (s *DatabaseSchema) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tables = make(map[string]*TableSchema)
}

func (t *TableSchema) SetPrimaryKeys(pk []string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(pk) == 0 {
		t.pk = []string{} // if nil or empty array
		return
	}

	t.pk = pk
}

func (t *TableSchema) PrimaryKeys() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.pk
}

// SetColumns replaces the known columns.
func (t *TableSchema) SetColumns(columns []string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.columns = make(map[string]struct{}, len(columns))
	for _, c := range columns {
		t.columns[strings.ToLower(c)] = struct{}{}
	}
}

// AddColumn adds a single column.
func (t *TableSchema) AddColumn(column string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.columns[strings.ToLower(column)] = struct{}{}
}

// HasColumn reports whether the column is known.
func (t *TableSchema) HasColumn(column string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	_, ok := t.columns[strings.ToLower(column)]
	return ok
}

// Columns returns the (lowercased) column names, sorted.
func (t *TableSchema) Columns() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	columns := make([]string, 0, len(t.columns))
	for c := range t.columns {
		columns = append(columns, c)
	}
	sort.Strings(columns)
	return columns
}

func (t *TableSchema) SetDescription(description string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.description = description
}

func (t *TableSchema) Description() string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.description
}

// SetExists records whether the table was found in (or created on) the
// database.
func (t *TableSchema) SetExists(exists bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.exists = exists
}

func (t *TableSchema) Exists() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.exists
}
