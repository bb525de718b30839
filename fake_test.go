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
	"errors"
	"strings"
)

var errFakeOpen = errors.New("fake: can't open")

// fakeDriver never connects. It lets registry and schema code run without a
// database.
type fakeDriver struct {
	dialect *fakeDialect
}

func (*fakeDriver) Kind() string {
	return "fake"
}

func (*fakeDriver) Open(ConnectionString) (*sql.DB, error) {
	return nil, errFakeOpen
}

func (*fakeDriver) ServerVersion(context.Context, Queryer) (string, error) {
	return "", errFakeOpen
}

func (*fakeDriver) DatabaseName(cs ConnectionString) string {
	return cs.Database
}

func (f *fakeDriver) Dialect() Dialect {
	return f.dialect
}

func (f *fakeDriver) NewBulkAdapter() BulkAdapter {
	return NewBulkAdapter(f.dialect)
}

func (*fakeDriver) IsUniqueViolation(error) bool {
	return false
}

func (*fakeDriver) IsRecoverable(error) bool {
	return false
}

type fakeDialect struct {
	maxParameters int
}

func (*fakeDialect) Quote(identifier string) string {
	return `"` + identifier + `"`
}

func (*fakeDialect) Placeholder(int) string {
	return "?"
}

func (d *fakeDialect) MaxParameters() int {
	return d.maxParameters
}

func (*fakeDialect) ColumnType(col *Column) string {
	return strings.ToUpper(col.Type.String())
}

func (*fakeDialect) CreateTable(*Table) []string {
	return nil
}

func (*fakeDialect) AddColumn(string, *Column) string {
	return ""
}

func (*fakeDialect) Truncate(string, bool) []string {
	return nil
}

func (*fakeDialect) InsertVerb(p Policy, _ []string) (string, string, bool) {
	return "INSERT INTO", "", p == PolicyInsert
}

func (*fakeDialect) InsertReturning(string, []string, string) (string, bool) {
	return "", false
}

func (*fakeDialect) TableNames(context.Context, Queryer) ([]string, error) {
	return nil, errFakeOpen
}

func (*fakeDialect) DescribeTable(context.Context, Queryer, string) (*Table, error) {
	return nil, errFakeOpen
}

var testDriver = &fakeDriver{dialect: &fakeDialect{maxParameters: 100}}

func init() {
	RegisterDriver("fake", testDriver)
}
