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

// Package postgresql registers the "postgresql" backend kind. Connections
// go through github.com/jackc/pgx/v5 unless the connection string asks for
// github.com/lib/pq with Driver=pq.
//
//	import _ "github.com/upper/dal/adapter/postgresql"
//
//	dal.Register("main", "Server=localhost;Database=membership;User=postgres;Password=pass", nil, "postgresql")
package postgresql

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"
	"github.com/upper/dal"
)

// Kind is the name the backend is registered under.
const Kind = `postgresql`

// optionDriver selects the database/sql driver: "pgx" (the default) or "pq".
const optionDriver = "Driver"

const (
	codeUniqueViolation      = "23505"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeAdminShutdown        = "57P01"
	codeCannotConnectNow     = "57P03"
)

type database struct{}

var _ = dal.Driver(&database{})

func init() {
	dal.RegisterDriver(Kind, &database{})
	dal.RegisterDriver("postgres", &database{})
	dal.RegisterDriver("pgsql", &database{})
}

func (*database) Kind() string {
	return Kind
}

func usePQ(cs dal.ConnectionString) bool {
	name, _ := cs.Option(optionDriver)
	return strings.EqualFold(name, "pq")
}

func (*database) Open(cs dal.ConnectionString) (*sql.DB, error) {
	c := FromConnectionString(cs)

	if usePQ(cs) {
		dsn := c.format(pqDefaultOptions)
		if dsn == "" {
			return nil, dal.ErrMissingConnString
		}
		connector, err := pq.NewConnector(dsn)
		if err != nil {
			return nil, err
		}
		return sql.OpenDB(connector), nil
	}

	dsn := c.String()
	if dsn == "" {
		return nil, dal.ErrMissingConnString
	}
	cfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	return stdlib.OpenDB(*cfg), nil
}

func (*database) ServerVersion(ctx context.Context, q dal.Queryer) (string, error) {
	var version string
	if err := q.QueryRowContext(ctx, `SHOW server_version`).Scan(&version); err != nil {
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

func sqlState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

func (*database) IsUniqueViolation(err error) bool {
	return sqlState(err) == codeUniqueViolation
}

func (*database) IsRecoverable(err error) bool {
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	switch sqlState(err) {
	case codeSerializationFailure, codeDeadlockDetected, codeAdminShutdown, codeCannotConnectNow:
		return true
	case "":
	default:
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
