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
	"sync"

	"github.com/upper/dal/internal/schema"
)

// SchemaReflector reconciles declared tables with a live database and
// reflects what the database actually holds. Each DAL owns one, see
// DAL.Schema.
type SchemaReflector struct {
	dal    *DAL
	schema *schema.DatabaseSchema

	// serializes DDL
	mu sync.Mutex
}

func newSchemaReflector(d *DAL) *SchemaReflector {
	s := schema.NewDatabaseSchema()
	s.SetName(d.DatabaseName())
	return &SchemaReflector{
		dal:    d,
		schema: s,
	}
}

// PhysicalName applies the connection's table prefix to a logical table
// name.
func (r *SchemaReflector) PhysicalName(logical string) string {
	return r.dal.TablePrefix() + logical
}

// SetTables reconciles each declared table with the database. Tables are
// looked up by their physical name: a missing table is created along with
// its indexes; an existing table only gets the columns it lacks. Existing
// columns are never altered nor dropped.
func (r *SchemaReflector) SetTables(ctx context.Context, tables ...*Table) error {
	for _, t := range tables {
		if t == nil || t.Name == "" {
			return &SchemaError{ConnName: r.dal.Name(), Err: ErrMissingTableName}
		}
		if err := r.reconcile(ctx, r.PhysicalName(t.Name), t); err != nil {
			return err
		}
	}
	return nil
}

// ensure reconciles a declared table under the given physical name, unless
// that was already done.
func (r *SchemaReflector) ensure(ctx context.Context, physical string, declared *Table) error {
	if ts, ok := r.schema.Lookup(physical); ok && ts.Exists() {
		return nil
	}
	return r.reconcile(ctx, physical, declared)
}

func (r *SchemaReflector) reconcile(ctx context.Context, physical string, declared *Table) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	schemaErr := func(column string, err error) error {
		return &SchemaError{ConnName: r.dal.Name(), Table: physical, Column: column, Err: err}
	}

	sess, err := r.dal.DB(ctx)
	if err != nil {
		return err
	}

	dialect := r.dal.Dialect()
	live, err := dialect.DescribeTable(ctx, sess, physical)
	if err != nil {
		return schemaErr("", err)
	}

	ts := r.schema.Table(physical)
	if declared.Description != "" {
		ts.SetDescription(declared.Description)
	}

	if live == nil {
		t := declared.Clone(physical)
		for _, stmt := range dialect.CreateTable(t) {
			if _, err := r.dal.exec(ctx, nil, physical, stmt); err != nil {
				return schemaErr("", err)
			}
		}
		LC().Infof("connection %q: created table %q", r.dal.Name(), physical)

		ts.SetColumns(columnNames(t.Columns))
		ts.SetPrimaryKeys(t.PrimaryKeys())
		ts.SetExists(true)
		return nil
	}

	ts.SetColumns(columnNames(live.Columns))
	ts.SetPrimaryKeys(live.PrimaryKeys())

	for _, col := range declared.Columns {
		if ts.HasColumn(col.Name) {
			continue
		}
		if _, err := r.dal.exec(ctx, nil, physical, dialect.AddColumn(physical, col)); err != nil {
			return schemaErr(col.Name, err)
		}
		LC().Infof("connection %q: added column %q to table %q", r.dal.Name(), col.Name, physical)
		ts.AddColumn(col.Name)
	}

	ts.SetExists(true)
	return nil
}

// Tables reflects every table in the database. A table's description comes
// from the backend's comments or, for backends without comments, from the
// declared table it was created from.
func (r *SchemaReflector) Tables(ctx context.Context) ([]*Table, error) {
	sess, err := r.dal.DB(ctx)
	if err != nil {
		return nil, err
	}

	dialect := r.dal.Dialect()
	names, err := dialect.TableNames(ctx, sess)
	if err != nil {
		return nil, r.dal.wrapErr("", "", err)
	}

	tables := make([]*Table, 0, len(names))
	for _, name := range names {
		t, err := r.describe(ctx, sess, name)
		if err != nil {
			return nil, err
		}
		if t != nil {
			tables = append(tables, t)
		}
	}
	return tables, nil
}

// Table reflects a single table given its logical name. It returns nil if
// the table does not exist.
func (r *SchemaReflector) Table(ctx context.Context, logical string) (*Table, error) {
	sess, err := r.dal.DB(ctx)
	if err != nil {
		return nil, err
	}
	return r.describe(ctx, sess, r.PhysicalName(logical))
}

// Exists reports whether a table with the given physical name exists.
func (r *SchemaReflector) Exists(ctx context.Context, physical string) (bool, error) {
	sess, err := r.dal.DB(ctx)
	if err != nil {
		return false, err
	}
	t, err := r.dal.Dialect().DescribeTable(ctx, sess, physical)
	if err != nil {
		return false, r.dal.wrapErr(physical, "", err)
	}
	return t != nil, nil
}

// Invalidate drops whatever is cached about a physical table, so it's
// reconciled again on next use.
func (r *SchemaReflector) Invalidate(physical string) {
	r.schema.Forget(physical)
}

func (r *SchemaReflector) describe(ctx context.Context, q Queryer, physical string) (*Table, error) {
	t, err := r.dal.Dialect().DescribeTable(ctx, q, physical)
	if err != nil {
		return nil, r.dal.wrapErr(physical, "", err)
	}
	if t == nil {
		return nil, nil
	}
	if t.Description == "" {
		if ts, ok := r.schema.Lookup(physical); ok {
			t.Description = ts.Description()
		}
	}
	return t, nil
}

func columnNames(columns []*Column) []string {
	names := make([]string, 0, len(columns))
	for _, col := range columns {
		names = append(names, col.Name)
	}
	return names
}
