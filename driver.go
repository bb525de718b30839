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
	"sort"
	"strings"
	"sync"
)

// Queryer is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type Queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Execer is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type Execer interface {
	Queryer
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Driver is the set of capabilities a database backend must provide. Drivers
// are registered by kind name with RegisterDriver and are picked by the kind
// given to Register.
type Driver interface {
	// Kind returns the name the driver is registered under.
	Kind() string

	// Open returns a handle for the given connection string. The handle does
	// not need to be connected yet.
	Open(cs ConnectionString) (*sql.DB, error)

	// ServerVersion asks the server for its version.
	ServerVersion(ctx context.Context, q Queryer) (string, error)

	// DatabaseName returns the name of the database the connection string
	// points to.
	DatabaseName(cs ConnectionString) string

	// Dialect returns the SQL dialect spoken by the backend.
	Dialect() Dialect

	// NewBulkAdapter returns a bulk writer for this backend.
	NewBulkAdapter() BulkAdapter

	// IsUniqueViolation reports whether err is a unique or primary key
	// violation.
	IsUniqueViolation(err error) bool

	// IsRecoverable reports whether err means the connection was lost and
	// could be re-established.
	IsRecoverable(err error) bool
}

// Dialect generates the statements the persistence core needs from a
// backend.
type Dialect interface {
	// Quote quotes an identifier.
	Quote(identifier string) string

	// Placeholder returns the bind parameter for the n-th argument, starting
	// at 1.
	Placeholder(n int) string

	// MaxParameters is the maximum number of bind parameters a single
	// statement accepts.
	MaxParameters() int

	// ColumnType returns the native type of a column.
	ColumnType(col *Column) string

	// CreateTable returns the statements that create the table, its indexes
	// and comments.
	CreateTable(t *Table) []string

	// AddColumn returns an statement that adds a column to an existing table.
	AddColumn(table string, col *Column) string

	// Truncate returns the statements that delete every row of a table and,
	// if it has an identity column, reset its counter.
	Truncate(table string, identity bool) []string

	// InsertVerb returns the text that goes before the table name and after
	// the VALUES list of a multi-row insert of columns for the given policy.
	// ok is false when the backend has no native form for it. PolicyReplace
	// is never asked for. The PolicyInsertIgnore form must skip unique key
	// conflicts only; any other constraint violation is still an error.
	InsertVerb(p Policy, columns []string) (prefix string, suffix string, ok bool)

	// InsertReturning returns a single row insert statement. If returning is
	// true the statement yields the generated identity as a row, otherwise it
	// must be read from sql.Result.LastInsertId.
	InsertReturning(table string, columns []string, identity string) (query string, returning bool)

	// TableNames lists the user tables of the current database.
	TableNames(ctx context.Context, q Queryer) ([]string, error)

	// DescribeTable reflects a live table. It returns (nil, nil) if the table
	// does not exist.
	DescribeTable(ctx context.Context, q Queryer, name string) (*Table, error)
}

// BulkInsert is a chunk of rows to be written with a single policy.
type BulkInsert struct {
	Policy  Policy
	Table   string
	Columns []string
	Rows    [][]interface{}
}

// BulkAdapter writes chunks of rows. It returns the number of rows the
// backend reports as inserted.
type BulkAdapter interface {
	Insert(ctx context.Context, ex Execer, b *BulkInsert) (int64, error)
}

var (
	driversMu sync.RWMutex
	drivers   = map[string]Driver{}
)

// RegisterDriver makes a driver available under the given kind. Kind names
// are case-insensitive. Registering a kind twice replaces the old driver.
func RegisterDriver(kind string, driver Driver) {
	if kind == "" {
		panic(`dal: missing driver kind`)
	}
	if driver == nil {
		panic(`dal: nil driver`)
	}
	driversMu.Lock()
	defer driversMu.Unlock()
	drivers[strings.ToLower(kind)] = driver
}

// LookupDriver returns the driver registered under kind.
func LookupDriver(kind string) (Driver, error) {
	driversMu.RLock()
	defer driversMu.RUnlock()
	if d, ok := drivers[strings.ToLower(kind)]; ok {
		return d, nil
	}
	return nil, fmt.Errorf("%w: %q (did you import the adapter package?)", ErrUnknownDriver, kind)
}

// Drivers returns the kinds of all registered drivers.
func Drivers() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()
	kinds := make([]string, 0, len(drivers))
	for kind := range drivers {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}
