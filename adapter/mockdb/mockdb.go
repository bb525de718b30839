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

// Package mockdb registers the "mockdb" backend kind: connections backed by
// github.com/DATA-DOG/go-sqlmock, for testing code built on package dal
// without a database.
//
//	m := mockdb.New("main")
//	dal.Register("main", "Database=main", nil, mockdb.Kind)
//	m.ExpectNoTable("Role")
//
// Statements are matched verbatim.
package mockdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/upper/dal"
)

// Kind is the name the backend is registered under.
const Kind = "mockdb"

const defaultDatabase = "mockdb"

var (
	// ErrUnavailable is a recoverable error: connecting and statements are
	// retried after it.
	ErrUnavailable = errors.New("mockdb: database unavailable")

	// ErrUniqueViolation reports a duplicate key.
	ErrUniqueViolation = errors.New("mockdb: unique constraint violated")

	// ErrUnknownDatabase is returned when opening a database no mock was
	// created for.
	ErrUnknownDatabase = errors.New("mockdb: unknown database")
)

// MockDB is a mock database. Every connection opened on it shares the same
// *sql.DB and expectations.
type MockDB struct {
	sqlmock.Sqlmock

	name string
	db   *sql.DB

	mu       sync.Mutex
	openErrs []error
}

var (
	mocksMu sync.Mutex
	mocks   = map[string]*MockDB{}
)

// New creates the mock database with the given name, replacing any previous
// one. Connection strings select it with Database=name.
func New(name string) (*MockDB, error) {
	if name == "" {
		name = defaultDatabase
	}
	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	if err != nil {
		return nil, err
	}
	m := &MockDB{
		Sqlmock: mock,
		name:    name,
		db:      sqlDB,
	}

	mocksMu.Lock()
	mocks[name] = m
	mocksMu.Unlock()
	return m, nil
}

// Lookup returns the mock database with the given name.
func Lookup(name string) (*MockDB, bool) {
	if name == "" {
		name = defaultDatabase
	}
	mocksMu.Lock()
	defer mocksMu.Unlock()
	m, ok := mocks[name]
	return m, ok
}

// Name returns the name of the mock database.
func (m *MockDB) Name() string {
	return m.name
}

// FailOpen makes the next len(errs) attempts to connect fail with the given
// errors, in order.
func (m *MockDB) FailOpen(errs ...error) *MockDB {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.openErrs = append(m.openErrs, errs...)
	return m
}

func (m *MockDB) open() (*sql.DB, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.openErrs) > 0 {
		err := m.openErrs[0]
		m.openErrs = m.openErrs[1:]
		return nil, err
	}
	return m.db, nil
}

// Close closes the mock database and forgets it.
func (m *MockDB) Close() error {
	mocksMu.Lock()
	if mocks[m.name] == m {
		delete(mocks, m.name)
	}
	mocksMu.Unlock()
	return m.db.Close()
}

// NewRows returns mock rows with the given text columns. Unlike
// sqlmock.NewRows, the rows carry column definitions, so they can be read
// with dal.ReadDataTable.
func NewRows(columns ...string) *sqlmock.Rows {
	defs := make([]*sqlmock.Column, len(columns))
	for i, name := range columns {
		defs[i] = sqlmock.NewColumn(name).OfType("TEXT", "")
	}
	return sqlmock.NewRowsWithColumnDefinition(defs...)
}

// ExpectNoTable expects the table to be looked up and not found.
func (m *MockDB) ExpectNoTable(name string) *MockDB {
	m.ExpectQuery(describeQuery(name)).
		WillReturnRows(NewRows(describeColumns...))
	return m
}

// ExpectTable expects the table to be looked up and found as described.
func (m *MockDB) ExpectTable(t *dal.Table) *MockDB {
	rows := NewRows(describeColumns...)
	for _, col := range t.Columns {
		unique := ""
		for _, idx := range t.Indexes {
			if idx.Unique && !idx.PrimaryKey && len(idx.Columns) == 1 && strings.EqualFold(idx.Columns[0], col.Name) {
				unique = idx.Name
				if unique == "" {
					unique = dal.IndexName(t.Name, true, idx.Columns)
				}
			}
		}
		rows.AddRow(t.Name, col.Name, template.ColumnType(col), col.Nullable, col.PrimaryKey, col.Identity, unique)
	}
	m.ExpectQuery(describeQuery(t.Name)).WillReturnRows(rows)
	return m
}

// ExpectCreateTable expects the table to be created.
func (m *MockDB) ExpectCreateTable(t *dal.Table) *MockDB {
	for _, stmt := range template.CreateTable(t) {
		m.ExpectExec(stmt).WillReturnResult(sqlmock.NewResult(0, 0))
	}
	return m
}

type database struct{}

var _ = dal.Driver(&database{})

func init() {
	dal.RegisterDriver(Kind, &database{})
}

func (*database) Kind() string {
	return Kind
}

func (*database) Open(cs dal.ConnectionString) (*sql.DB, error) {
	m, ok := Lookup(cs.Database)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDatabase, cs.Database)
	}
	return m.open()
}

func (*database) ServerVersion(ctx context.Context, q dal.Queryer) (string, error) {
	var version string
	if err := q.QueryRowContext(ctx, sqlServerVersion).Scan(&version); err != nil {
		return "", err
	}
	return version, nil
}

func (*database) DatabaseName(cs dal.ConnectionString) string {
	if cs.Database == "" {
		return defaultDatabase
	}
	return cs.Database
}

func (*database) Dialect() dal.Dialect {
	return template
}

func (*database) NewBulkAdapter() dal.BulkAdapter {
	return dal.NewBulkAdapter(template)
}

func (*database) IsUniqueViolation(err error) bool {
	return errors.Is(err, ErrUniqueViolation)
}

func (*database) IsRecoverable(err error) bool {
	return errors.Is(err, ErrUnavailable) || errors.Is(err, driver.ErrBadConn)
}
