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

// Package sqlite registers the "sqlite" backend kind, backed by the
// github.com/mattn/go-sqlite3 driver.
//
//	import _ "github.com/upper/dal/adapter/sqlite"
//
//	dal.Register("main", "Database=./data/main.db", nil, "sqlite")
package sqlite

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"path/filepath"
	"strings"

	sqlite3 "github.com/mattn/go-sqlite3" // SQLite3 driver.
	"github.com/upper/dal"
)

// Kind is the name the backend is registered under.
const Kind = `sqlite`

type database struct{}

var _ = dal.Driver(&database{})

func init() {
	dal.RegisterDriver(Kind, &database{})
	dal.RegisterDriver("sqlite3", &database{})
}

func (*database) Kind() string {
	return Kind
}

func (*database) Open(cs dal.ConnectionString) (*sql.DB, error) {
	dsn := FromConnectionString(cs).String()
	if dsn == "" {
		return nil, dal.ErrMissingConnString
	}
	return sql.Open("sqlite3", dsn)
}

func (*database) ServerVersion(ctx context.Context, q dal.Queryer) (string, error) {
	var version string
	if err := q.QueryRowContext(ctx, `SELECT sqlite_version()`).Scan(&version); err != nil {
		return "", err
	}
	return version, nil
}

func (*database) DatabaseName(cs dal.ConnectionString) string {
	c := FromConnectionString(cs)
	if c.Database == memoryDatabase {
		return "main"
	}
	return strings.TrimSuffix(filepath.Base(c.Database), filepath.Ext(c.Database))
}

func (*database) Dialect() dal.Dialect {
	return template
}

func (*database) NewBulkAdapter() dal.BulkAdapter {
	return dal.NewBulkAdapter(template)
}

func (*database) IsUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	if sqliteErr.Code != sqlite3.ErrConstraint {
		return false
	}
	switch sqliteErr.ExtendedCode {
	case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
		return true
	}
	return false
}

func (*database) IsRecoverable(err error) bool {
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}
	return false
}
