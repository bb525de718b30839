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

// Package mysql registers the "mysql" backend kind, backed by the
// github.com/go-sql-driver/mysql driver.
//
//	import _ "github.com/upper/dal/adapter/mysql"
//
//	dal.Register("main", "Server=localhost;Port=3306;Database=membership;User=root;Password=pass", nil, "mysql")
package mysql

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"

	"github.com/go-sql-driver/mysql" // MySQL driver.
	"github.com/upper/dal"
)

// Kind is the name the backend is registered under.
const Kind = `mysql`

const (
	errDuplicateEntry = 1062
	errLockDeadlock   = 1213
	errLockWait       = 1205
)

type database struct{}

var _ = dal.Driver(&database{})

func init() {
	dal.RegisterDriver(Kind, &database{})
	dal.RegisterDriver("mariadb", &database{})
}

func (*database) Kind() string {
	return Kind
}

func (*database) Open(cs dal.ConnectionString) (*sql.DB, error) {
	dsn := FromConnectionString(cs).String()
	if dsn == "" {
		return nil, dal.ErrMissingConnString
	}
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, err
	}
	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, err
	}
	return sql.OpenDB(connector), nil
}

func (*database) ServerVersion(ctx context.Context, q dal.Queryer) (string, error) {
	var version string
	if err := q.QueryRowContext(ctx, `SELECT VERSION()`).Scan(&version); err != nil {
		return "", err
	}
	return version, nil
}

func (*database) DatabaseName(cs dal.ConnectionString) string {
	return cs.Database
}

func (*database) Dialect() dal.Dialect {
	return template
}

func (*database) NewBulkAdapter() dal.BulkAdapter {
	return dal.NewBulkAdapter(template)
}

func (*database) IsUniqueViolation(err error) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == errDuplicateEntry
	}
	return false
}

func (*database) IsRecoverable(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysql.ErrInvalidConn) {
		return true
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == errLockDeadlock || mysqlErr.Number == errLockWait
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
