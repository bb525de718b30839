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

// Package mssql registers the "mssql" backend kind, backed by the
// github.com/denisenkom/go-mssqldb driver.
//
//	import _ "github.com/upper/dal/adapter/mssql"
//
//	dal.Register("main", "Server=localhost;Port=1433;Database=membership;User=sa;Password=pass", nil, "mssql")
package mssql

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"

	mssql "github.com/denisenkom/go-mssqldb" // MSSQL driver
	"github.com/upper/dal"
)

// Kind is the name the backend is registered under.
const Kind = `mssql`

const (
	errUniqueConstraint = 2627
	errUniqueIndex      = 2601
	errDeadlockVictim   = 1205
)

type database struct{}

var _ = dal.Driver(&database{})

func init() {
	dal.RegisterDriver(Kind, &database{})
	dal.RegisterDriver("sqlserver", &database{})
}

func (*database) Kind() string {
	return Kind
}

func (*database) Open(cs dal.ConnectionString) (*sql.DB, error) {
	dsn := FromConnectionString(cs).String()
	if dsn == "" {
		return nil, dal.ErrMissingConnString
	}
	connector, err := mssql.NewConnector(dsn)
	if err != nil {
		return nil, err
	}
	return sql.OpenDB(connector), nil
}

func (*database) ServerVersion(ctx context.Context, q dal.Queryer) (string, error) {
	var version string
	if err := q.QueryRowContext(ctx, `SELECT CAST(SERVERPROPERTY('ProductVersion') AS NVARCHAR(128))`).Scan(&version); err != nil {
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
	return &bulkAdapter{
		rows: dal.NewBulkAdapter(template),
	}
}

func errorNumber(err error) int32 {
	var mssqlErr mssql.Error
	if errors.As(err, &mssqlErr) {
		return mssqlErr.Number
	}
	return 0
}

func (*database) IsUniqueViolation(err error) bool {
	switch errorNumber(err) {
	case errUniqueConstraint, errUniqueIndex:
		return true
	}
	return false
}

func (*database) IsRecoverable(err error) bool {
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	if n := errorNumber(err); n != 0 {
		return n == errDeadlockVictim
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
