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
	"sync/atomic"
)

// Split binds an entity type to another physical table for as long as it's
// open. Sessions of the type on the split's connection read and write that
// table until the split is closed. A type can have only one open split.
type Split struct {
	typ      *EntityType
	connName string
	table    string

	closed atomic.Bool
}

// CreateSplit creates the given physical table on a connection, with the
// columns and indexes of the type's table, and binds the type to it. An
// existing table with that name is reused. If connName is empty the type's
// connection is used.
//
// The split must be closed to restore the type's table; closing never drops
// the split table.
func (t *EntityType) CreateSplit(ctx context.Context, connName, tableName string) (*Split, error) {
	if connName == "" {
		connName = t.ConnName()
	}
	if tableName == "" {
		return nil, fmt.Errorf("entity type %q: %w", t.Name, ErrMissingTableName)
	}

	d, err := Resolve(connName)
	if err != nil {
		return nil, err
	}

	sp := &Split{
		typ:      t,
		connName: connName,
		table:    tableName,
	}
	if !t.split.CompareAndSwap(nil, sp) {
		conflict := &SplitConflictError{EntityType: t.Name, Requested: tableName}
		if active := t.split.Load(); active != nil {
			conflict.Active = active.table
		}
		return nil, conflict
	}

	if err := d.Schema().ensure(ctx, tableName, t.Table); err != nil {
		t.split.CompareAndSwap(sp, nil)
		return nil, err
	}

	LC().Debugf("entity type %q: split onto %q (connection %q)", t.Name, tableName, connName)
	return sp, nil
}

// WithSplit runs fn with the type split onto the given table and closes the
// split when fn returns.
func (t *EntityType) WithSplit(ctx context.Context, connName, tableName string, fn func(s *EntitySession) error) error {
	sp, err := t.CreateSplit(ctx, connName, tableName)
	if err != nil {
		return err
	}
	defer sp.Close()

	sess, err := sp.Session()
	if err != nil {
		return err
	}
	return fn(sess)
}

// Type returns the entity type that was split.
func (sp *Split) Type() *EntityType {
	return sp.typ
}

// ConnName returns the connection the split table lives on.
func (sp *Split) ConnName() string {
	return sp.connName
}

// TableName returns the split table.
func (sp *Split) TableName() string {
	return sp.table
}

// Session returns the session of the type on the split's connection.
func (sp *Split) Session() (*EntitySession, error) {
	return sp.typ.Session(sp.connName)
}

// Close restores the type's table. Closing a split twice is harmless.
func (sp *Split) Close() error {
	if sp.closed.Swap(true) {
		return nil
	}
	if sp.typ.split.CompareAndSwap(sp, nil) {
		LC().Debugf("entity type %q: split onto %q closed", sp.typ.Name, sp.table)
	}
	return nil
}
