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
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/upper/dal/internal/sqlgen"
)

// Cond is a set of column = value conditions that must all hold. A nil value
// matches NULL.
type Cond map[string]interface{}

// EntitySession reads and writes the entities of one type on one connection.
// The table it works on is resolved on every call: the table of the type's
// active split on that connection, if any, or the connection's prefix plus
// the type's table name.
type EntitySession struct {
	typ      *EntityType
	connName string

	countMu sync.Mutex
	counts  map[string]int64
}

func newEntitySession(t *EntityType, connName string) *EntitySession {
	return &EntitySession{
		typ:      t,
		connName: connName,
		counts:   map[string]int64{},
	}
}

// Type returns the entity type of the session.
func (s *EntitySession) Type() *EntityType {
	return s.typ
}

// ConnName returns the name of the connection of the session.
func (s *EntitySession) ConnName() string {
	return s.connName
}

// DAL returns the data access layer of the session's connection.
func (s *EntitySession) DAL() (*DAL, error) {
	return Resolve(s.connName)
}

// TableName returns the physical table the session works on right now.
func (s *EntitySession) TableName() (string, error) {
	d, err := s.DAL()
	if err != nil {
		return "", err
	}
	return s.tableName(d), nil
}

func (s *EntitySession) tableName(d *DAL) string {
	if sp := s.typ.split.Load(); sp != nil && sp.connName == s.connName {
		return sp.table
	}
	return d.TablePrefix() + s.typ.Table.Name
}

// target resolves the DAL and the current table, creating the table if
// needed.
func (s *EntitySession) target(ctx context.Context) (*DAL, string, error) {
	d, err := s.DAL()
	if err != nil {
		return nil, "", err
	}
	table := s.tableName(d)
	if err := d.Schema().ensure(ctx, table, s.typ.Table); err != nil {
		return nil, "", err
	}
	return d, table, nil
}

// Count returns the number of rows in the table. The value is cached and kept
// up to date by the writes made through the session.
func (s *EntitySession) Count(ctx context.Context) (int64, error) {
	d, table, err := s.target(ctx)
	if err != nil {
		return 0, err
	}

	s.countMu.Lock()
	defer s.countMu.Unlock()

	if n, ok := s.counts[table]; ok {
		return n, nil
	}

	query, args := sqlgen.Count(d.Dialect(), table, sqlgen.Where{})
	var n int64
	if err := d.queryScalar(ctx, nil, table, query, args, &n); err != nil {
		return 0, err
	}
	s.counts[table] = n
	return n, nil
}

// InvalidateCount forgets the cached row count of the current table.
func (s *EntitySession) InvalidateCount() {
	d, err := s.DAL()
	if err != nil {
		return
	}
	s.forgetCount(s.tableName(d))
}

func (s *EntitySession) forgetCount(table string) {
	s.countMu.Lock()
	defer s.countMu.Unlock()
	delete(s.counts, table)
}

func (s *EntitySession) adjustCount(table string, delta int64) {
	s.countMu.Lock()
	defer s.countMu.Unlock()
	if n, ok := s.counts[table]; ok {
		s.counts[table] = n + delta
	}
}

func (s *EntitySession) setCount(table string, n int64) {
	s.countMu.Lock()
	defer s.countMu.Unlock()
	s.counts[table] = n
}

// FindAll returns every entity matching the filter, ordered by primary key.
func (s *EntitySession) FindAll(ctx context.Context, filter Cond) ([]*Entity, error) {
	return s.find(ctx, sqlgen.Where{And: s.preds(filter)})
}

// Search returns the entities matching the filter that contain keyword in
// any of their string columns. An empty keyword matches everything.
func (s *EntitySession) Search(ctx context.Context, keyword string, filter Cond) ([]*Entity, error) {
	w := sqlgen.Where{And: s.preds(filter)}
	if keyword = strings.TrimSpace(keyword); keyword != "" {
		pattern := "%" + keyword + "%"
		for _, col := range s.typ.Table.Columns {
			if col.Type == String {
				w.AnyOf = append(w.AnyOf, sqlgen.Pred{Column: col.Name, Op: "LIKE", Value: pattern})
			}
		}
		if len(w.AnyOf) == 0 {
			return []*Entity{}, nil
		}
	}
	return s.find(ctx, w)
}

// FindByID returns the entity with the given identity value.
func (s *EntitySession) FindByID(ctx context.Context, id int64) (*Entity, error) {
	col := s.typ.Table.Identity()
	if col == nil {
		return nil, fmt.Errorf("entity type %q: %w", s.typ.Name, ErrMissingPrimaryKeys)
	}
	items, err := s.find(ctx, sqlgen.Where{And: []sqlgen.Pred{{Column: col.Name, Value: id}}})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrNoMoreRows
	}
	return items[0], nil
}

func (s *EntitySession) preds(filter Cond) []sqlgen.Pred {
	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	preds := make([]sqlgen.Pred, 0, len(keys))
	for _, k := range keys {
		preds = append(preds, sqlgen.Pred{Column: s.typ.fieldName(k), Value: filter[k]})
	}
	return preds
}

func (s *EntitySession) find(ctx context.Context, w sqlgen.Where) ([]*Entity, error) {
	d, table, err := s.target(ctx)
	if err != nil {
		return nil, err
	}

	query, args := sqlgen.Select(d.Dialect(), table, w, s.typ.Table.PrimaryKeys())
	rows, err := d.query(ctx, nil, table, query, args...)
	if err != nil {
		return nil, err
	}
	dt, err := ReadDataTable(rows)
	if err != nil {
		return nil, d.wrapErr(table, query, err)
	}

	items := make([]*Entity, 0, len(dt.Rows))
	for _, row := range dt.Rows {
		items = append(items, s.typ.load(dt.Columns, row))
	}
	return items, nil
}

// Truncate deletes every row and, where the backend allows it, resets the
// identity counter.
func (s *EntitySession) Truncate(ctx context.Context) error {
	d, table, err := s.target(ctx)
	if err != nil {
		return err
	}
	for _, stmt := range d.Dialect().Truncate(table, s.typ.Table.Identity() != nil) {
		if _, err := d.exec(ctx, nil, table, stmt); err != nil {
			s.forgetCount(table)
			return err
		}
	}
	s.setCount(table, 0)
	return nil
}

// InitData inserts the rows returned by the type's Seed function if the table
// is empty. It returns the number of rows inserted.
func (s *EntitySession) InitData(ctx context.Context) (int, error) {
	if s.typ.Seed == nil {
		return 0, nil
	}
	n, err := s.Count(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		return 0, nil
	}

	seeded := 0
	for _, e := range s.typ.Seed() {
		if err := s.Insert(ctx, e); err != nil {
			return seeded, err
		}
		seeded++
	}
	if seeded > 0 {
		LC().Infof("entity type %q: seeded %d row(s)", s.typ.Name, seeded)
	}
	return seeded, nil
}

func (s *EntitySession) check(e *Entity) error {
	if e == nil {
		return ErrNilEntity
	}
	if e.typ != s.typ {
		return fmt.Errorf("%w: %q is not %q", ErrEntityTypeMismatch, e.typ.Name, s.typ.Name)
	}
	return nil
}

// insertColumns returns the declared columns the entity has a value for,
// leaving out an unset identity.
func (s *EntitySession) insertColumns(e *Entity) []string {
	identity := s.typ.Table.Identity()
	columns := make([]string, 0, len(e.values))
	for _, col := range s.typ.Table.Columns {
		v, ok := e.values[col.Name]
		if !ok {
			continue
		}
		if col == identity && toInt64(v) == 0 {
			continue
		}
		columns = append(columns, col.Name)
	}
	return columns
}

// Insert validates and stores a new entity. The generated identity is read
// back into the entity.
func (s *EntitySession) Insert(ctx context.Context, e *Entity) error {
	if err := s.check(e); err != nil {
		return err
	}
	if err := e.Valid(ctx, true); err != nil {
		return err
	}

	d, table, err := s.target(ctx)
	if err != nil {
		return err
	}

	columns := s.insertColumns(e)
	values := make([]interface{}, len(columns))
	for i, col := range columns {
		values[i] = e.values[col]
	}

	var identity string
	if col := s.typ.Table.Identity(); col != nil {
		identity = col.Name
	}

	query, returning := d.Dialect().InsertReturning(table, columns, identity)
	if returning {
		var id int64
		if err := d.queryScalar(ctx, nil, table, query, values, &id); err != nil {
			return err
		}
		e.values[identity] = id
	} else {
		res, err := d.exec(ctx, nil, table, query, values...)
		if err != nil {
			return err
		}
		if identity != "" {
			if id, err := res.LastInsertId(); err == nil {
				e.values[identity] = id
			}
		}
	}

	e.clean()
	s.adjustCount(table, 1)
	return nil
}

func (s *EntitySession) keyWhere(e *Entity) (sqlgen.Where, error) {
	pk := s.typ.Table.PrimaryKeys()
	if len(pk) == 0 {
		return sqlgen.Where{}, fmt.Errorf("entity type %q: %w", s.typ.Name, ErrMissingPrimaryKeys)
	}
	w := sqlgen.Where{}
	for _, col := range pk {
		v, ok := e.values[col]
		if !ok || v == nil {
			return sqlgen.Where{}, fmt.Errorf("entity type %q: %w", s.typ.Name, ErrZeroItemID)
		}
		w.And = append(w.And, sqlgen.Pred{Column: col, Value: v})
	}
	return w, nil
}

// Update validates and writes the changed fields of a stored entity. Nothing
// is written if no field changed. It returns the number of rows affected.
func (s *EntitySession) Update(ctx context.Context, e *Entity) (int64, error) {
	if err := s.check(e); err != nil {
		return 0, err
	}
	if err := e.Valid(ctx, false); err != nil {
		return 0, err
	}

	var columns []string
	for _, name := range e.changes() {
		col := s.typ.Table.Column(name)
		if col == nil || col.PrimaryKey {
			continue
		}
		columns = append(columns, col.Name)
	}
	if len(columns) == 0 {
		return 0, nil
	}

	w, err := s.keyWhere(e)
	if err != nil {
		return 0, err
	}

	d, table, err := s.target(ctx)
	if err != nil {
		return 0, err
	}

	values := make([]interface{}, len(columns))
	for i, col := range columns {
		values[i] = e.values[col]
	}

	query, args := sqlgen.Update(d.Dialect(), table, columns, values, w)
	res, err := d.exec(ctx, nil, table, query, args...)
	if err != nil {
		return 0, err
	}
	e.clean()
	return res.RowsAffected()
}

// Save inserts new entities and updates stored ones.
func (s *EntitySession) Save(ctx context.Context, e *Entity) error {
	if e != nil && e.isNew {
		return s.Insert(ctx, e)
	}
	_, err := s.Update(ctx, e)
	return err
}

// Delete removes a stored entity by primary key. It returns the number of
// rows affected.
func (s *EntitySession) Delete(ctx context.Context, e *Entity) (int64, error) {
	if err := s.check(e); err != nil {
		return 0, err
	}
	w, err := s.keyWhere(e)
	if err != nil {
		return 0, err
	}

	d, table, err := s.target(ctx)
	if err != nil {
		return 0, err
	}

	query, args := sqlgen.Delete(d.Dialect(), table, w)
	res, err := d.exec(ctx, nil, table, query, args...)
	if err != nil {
		s.forgetCount(table)
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		s.forgetCount(table)
		return 0, err
	}
	s.adjustCount(table, -n)
	return n, nil
}
