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
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/upper/dal/internal/sqlgen"
)

// Policy tells a batch write what to do with rows that collide with existing
// rows on a unique key.
type Policy uint8

// Batch write policies
const (
	// PolicyInsert fails the whole batch on the first conflict.
	PolicyInsert Policy = iota
	// PolicyInsertIgnore skips conflicting rows.
	PolicyInsertIgnore
	// PolicyReplace deletes the existing conflicting rows and inserts the new
	// ones, which get new identity values.
	PolicyReplace
)

var policyNames = map[Policy]string{
	PolicyInsert:       "insert",
	PolicyInsertIgnore: "insert-ignore",
	PolicyReplace:      "replace",
}

func (p Policy) String() string {
	if name, ok := policyNames[p]; ok {
		return name
	}
	return fmt.Sprintf("policy(%d)", uint8(p))
}

// DefaultBatchSize is the number of rows written per statement when a
// BatchWriter doesn't set one. Dialects with a lower parameter limit get
// smaller chunks.
var DefaultBatchSize = 500

// BatchWriter writes many entities of the same type at once. The result of a
// write doesn't depend on how many rows go into each statement.
type BatchWriter struct {
	Session   *EntitySession
	BatchSize int
}

// Batch returns a writer for the session that writes up to size rows per
// statement.
func (s *EntitySession) Batch(size int) *BatchWriter {
	return &BatchWriter{Session: s, BatchSize: size}
}

// BatchInsert inserts every entity or none. A conflict fails the batch with
// a *ConstraintError. It returns the number of rows inserted.
func (s *EntitySession) BatchInsert(ctx context.Context, items []*Entity) (int64, error) {
	return s.Batch(0).Write(ctx, PolicyInsert, items)
}

// BatchInsertIgnore inserts the entities that don't conflict with existing
// rows and returns how many were inserted. Existing rows are left untouched.
func (s *EntitySession) BatchInsertIgnore(ctx context.Context, items []*Entity) (int64, error) {
	return s.Batch(0).Write(ctx, PolicyInsertIgnore, items)
}

// BatchReplace deletes the rows the entities conflict with, then inserts
// the entities. It returns the number of rows deleted plus the number of
// rows inserted.
func (s *EntitySession) BatchReplace(ctx context.Context, items []*Entity) (int64, error) {
	return s.Batch(0).Write(ctx, PolicyReplace, items)
}

// Insert writes with PolicyInsert.
func (w *BatchWriter) Insert(ctx context.Context, items []*Entity) (int64, error) {
	return w.Write(ctx, PolicyInsert, items)
}

// InsertIgnore writes with PolicyInsertIgnore.
func (w *BatchWriter) InsertIgnore(ctx context.Context, items []*Entity) (int64, error) {
	return w.Write(ctx, PolicyInsertIgnore, items)
}

// Replace writes with PolicyReplace.
func (w *BatchWriter) Replace(ctx context.Context, items []*Entity) (int64, error) {
	return w.Write(ctx, PolicyReplace, items)
}

// Write runs every entity through the modules of its type and writes them
// with the given policy. Generated identities are not read back.
func (w *BatchWriter) Write(ctx context.Context, policy Policy, items []*Entity) (int64, error) {
	if _, ok := policyNames[policy]; !ok {
		return 0, fmt.Errorf("%w: %v", ErrUnknownPolicy, policy)
	}
	if len(items) == 0 {
		return 0, nil
	}

	s := w.Session
	for _, e := range items {
		if err := s.check(e); err != nil {
			return 0, err
		}
		if err := e.Valid(ctx, true); err != nil {
			return 0, err
		}
	}

	d, table, err := s.target(ctx)
	if err != nil {
		return 0, err
	}

	columns := s.batchColumns(items)
	if len(columns) == 0 {
		return 0, fmt.Errorf("entity type %q: %w: batch without values", s.typ.Name, ErrUnsupported)
	}
	rows := make([][]interface{}, len(items))
	for i, e := range items {
		row := make([]interface{}, len(columns))
		for j, col := range columns {
			row[j] = e.values[col]
		}
		rows[i] = row
	}

	size := w.chunkSize(d.Dialect(), len(columns))
	bulk := d.Driver().NewBulkAdapter()

	var affected, delta int64
	switch policy {
	case PolicyInsert:
		err = d.tx(ctx, func(tx *sql.Tx) error {
			ex := &tableExecer{d: d, ex: tx, table: table}
			var inserted int64
			for _, chunk := range chunkRows(rows, size) {
				n, err := bulk.Insert(ctx, ex, &BulkInsert{Policy: PolicyInsert, Table: table, Columns: columns, Rows: chunk})
				if err != nil {
					return err
				}
				inserted += n
			}
			affected, delta = inserted, inserted
			return nil
		})

	case PolicyInsertIgnore:
		var sess *sql.DB
		if sess, err = d.DB(ctx); err != nil {
			return 0, err
		}
		ex := &tableExecer{d: d, ex: sess, table: table}
		for _, chunk := range chunkRows(rows, size) {
			var n int64
			n, err = bulk.Insert(ctx, ex, &BulkInsert{Policy: PolicyInsertIgnore, Table: table, Columns: columns, Rows: chunk})
			if err != nil {
				break
			}
			affected += n
			delta += n
		}

	case PolicyReplace:
		// If the rows cover no unique key nothing can conflict, and the
		// chunks are plain inserts.
		keys := replaceKeys(s.typ.Table, columns)
		for _, chunk := range replaceChunks(rows, keys, size) {
			var deleted, inserted int64
			err = d.tx(ctx, func(tx *sql.Tx) error {
				ex := &tableExecer{d: d, ex: tx, table: table}
				for _, key := range keys {
					n, err := deleteConflicts(ctx, d.Dialect(), ex, table, columns, key, chunk)
					if err != nil {
						return err
					}
					deleted += n
				}
				n, err := bulk.Insert(ctx, ex, &BulkInsert{Policy: PolicyInsert, Table: table, Columns: columns, Rows: chunk})
				if err != nil {
					return err
				}
				inserted = n
				return nil
			})
			if err != nil {
				break
			}
			affected += deleted + inserted
			delta += inserted - deleted
		}
	}

	if err != nil {
		s.forgetCount(table)
		return affected, err
	}

	s.adjustCount(table, delta)
	LC().Debugf("entity type %q: %s of %d row(s) into %q affected %d", s.typ.Name, policy, len(rows), table, affected)
	return affected, nil
}

func (w *BatchWriter) chunkSize(dialect Dialect, columns int) int {
	size := w.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}
	if max := dialect.MaxParameters() / columns; max < size {
		size = max
	}
	if size < 1 {
		size = 1
	}
	return size
}

// batchColumns returns the declared columns any of the entities has a value
// for. The identity column is only written if every entity sets it.
func (s *EntitySession) batchColumns(items []*Entity) []string {
	identity := s.typ.Table.Identity()
	columns := []string{}
	for _, col := range s.typ.Table.Columns {
		if col == identity {
			all := true
			for _, e := range items {
				if toInt64(e.values[col.Name]) == 0 {
					all = false
					break
				}
			}
			if all {
				columns = append(columns, col.Name)
			}
			continue
		}
		for _, e := range items {
			if _, ok := e.values[col.Name]; ok {
				columns = append(columns, col.Name)
				break
			}
		}
	}
	return columns
}

func chunkRows(rows [][]interface{}, size int) [][][]interface{} {
	chunks := make([][][]interface{}, 0, len(rows)/size+1)
	for len(rows) > size {
		chunks = append(chunks, rows[:size])
		rows = rows[size:]
	}
	if len(rows) > 0 {
		chunks = append(chunks, rows)
	}
	return chunks
}

// replaceKeys returns, for each unique key of the table that is fully
// covered by columns, the positions of its columns.
func replaceKeys(t *Table, columns []string) [][]int {
	keys := [][]int{}
	for _, key := range t.UniqueKeys() {
		positions := make([]int, 0, len(key))
		for _, name := range key {
			for i, col := range columns {
				if strings.EqualFold(col, name) {
					positions = append(positions, i)
					break
				}
			}
		}
		if len(positions) == len(key) {
			keys = append(keys, positions)
		}
	}
	return keys
}

// keyValues returns the values of a key in a row, or nil if any of them is
// NULL. NULLs never conflict.
func keyValues(row []interface{}, key []int) []interface{} {
	values := make([]interface{}, len(key))
	for i, pos := range key {
		if row[pos] == nil {
			return nil
		}
		values[i] = row[pos]
	}
	return values
}

func keyString(values []interface{}) string {
	parts := make([]string, len(values))
	for i, v := range values {
		if b, ok := v.([]byte); ok {
			v = string(b)
		}
		parts[i] = fmt.Sprintf("%v", v)
	}
	return strings.Join(parts, "\x00")
}

// replaceChunks splits rows into chunks of at most size rows where no two
// rows share a key, so that a row replacing an earlier row of the same batch
// lands in a later chunk.
func replaceChunks(rows [][]interface{}, keys [][]int, size int) [][][]interface{} {
	chunks := [][][]interface{}{}

	start := 0
	seen := make([]map[string]struct{}, len(keys))
	reset := func() {
		for i := range seen {
			seen[i] = map[string]struct{}{}
		}
	}
	reset()

	for i, row := range rows {
		collides := i-start >= size
		for k, key := range keys {
			values := keyValues(row, key)
			if values == nil {
				continue
			}
			if _, ok := seen[k][keyString(values)]; ok {
				collides = true
			}
		}
		if collides {
			chunks = append(chunks, rows[start:i])
			start = i
			reset()
		}
		for k, key := range keys {
			if values := keyValues(row, key); values != nil {
				seen[k][keyString(values)] = struct{}{}
			}
		}
	}
	if start < len(rows) {
		chunks = append(chunks, rows[start:])
	}
	return chunks
}

// deleteConflicts deletes the rows that share the given key with any of the
// rows of the chunk.
func deleteConflicts(ctx context.Context, dialect Dialect, ex Execer, table string, columns []string, key []int, chunk [][]interface{}) (int64, error) {
	keyColumns := make([]string, len(key))
	for i, pos := range key {
		keyColumns[i] = columns[pos]
	}

	values := make([][]interface{}, 0, len(chunk))
	for _, row := range chunk {
		if v := keyValues(row, key); v != nil {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return 0, nil
	}

	query, args := sqlgen.DeleteKeys(dialect, table, keyColumns, values)
	res, err := ex.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// tableExecer runs statements through the DAL, so they're logged and their
// errors classified.
type tableExecer struct {
	d     *DAL
	ex    Execer
	table string
}

func (t *tableExecer) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return t.d.exec(ctx, t.ex, t.table, query, args...)
}

func (t *tableExecer) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return t.d.query(ctx, t.ex, t.table, query, args...)
}

func (t *tableExecer) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return t.ex.QueryRowContext(ctx, query, args...)
}

type bulkAdapter struct {
	dialect Dialect
}

// NewBulkAdapter returns a BulkAdapter that writes each chunk with a single
// multi-row INSERT, using the dialect's verb for the policy.
func NewBulkAdapter(dialect Dialect) BulkAdapter {
	return &bulkAdapter{dialect: dialect}
}

func (a *bulkAdapter) Insert(ctx context.Context, ex Execer, b *BulkInsert) (int64, error) {
	if len(b.Rows) == 0 {
		return 0, nil
	}
	prefix, suffix, ok := a.dialect.InsertVerb(b.Policy, b.Columns)
	if !ok {
		return 0, fmt.Errorf("%w: %v", ErrUnsupported, b.Policy)
	}
	query, args := sqlgen.Insert(a.dialect, prefix, b.Table, b.Columns, b.Rows, suffix)
	res, err := ex.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
