// Copyright (c) 2012-today The upper.io/db authors. All rights reserved.
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

package sqlite

import (
	"context"
	"errors"
	"testing"

	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upper/dal"
	"github.com/upper/dal/internal/testsuite"
)

func TestSuites(t *testing.T) {
	testsuite.Run(t, &Helper{})
}

func TestDriverRegistered(t *testing.T) {
	for _, kind := range []string{"sqlite", "sqlite3", "SQLite"} {
		d, err := dal.LookupDriver(kind)
		require.NoError(t, err, kind)
		assert.Equal(t, Kind, d.Kind())
	}
}

func TestDatabaseName(t *testing.T) {
	d := &database{}

	cs := dal.ParseConnectionString("Database=./data/membership.db")
	assert.Equal(t, "membership", d.DatabaseName(cs))

	cs = dal.ParseConnectionString("Data Source=:memory:")
	assert.Equal(t, "main", d.DatabaseName(cs))
}

func TestCreateTable(t *testing.T) {
	stmts := template.CreateTable(testsuite.RoleTable().Clone("member_Role"))
	require.Len(t, stmts, 2)

	assert.Contains(t, stmts[0], `CREATE TABLE IF NOT EXISTS "member_Role"`)
	assert.Contains(t, stmts[0], `"ID" INTEGER PRIMARY KEY AUTOINCREMENT`)
	assert.Contains(t, stmts[0], `"Name" VARCHAR(50) NOT NULL`)
	assert.NotContains(t, stmts[0], `"Remark" VARCHAR(200) NOT NULL`)

	assert.Equal(t, `CREATE UNIQUE INDEX IF NOT EXISTS "IU_member_Role_Name" ON "member_Role" ("Name")`, stmts[1])
}

func TestCompositePrimaryKey(t *testing.T) {
	stmts := template.CreateTable(&dal.Table{
		Name: "Grant",
		Columns: []*dal.Column{
			{Name: "RoleID", Type: dal.Int, PrimaryKey: true},
			{Name: "Resource", Type: dal.String, Length: 100, PrimaryKey: true},
		},
	})
	require.Len(t, stmts, 1)
	assert.Contains(t, stmts[0], `PRIMARY KEY ("RoleID", "Resource")`)
}

func TestInsertVerb(t *testing.T) {
	prefix, suffix, ok := template.InsertVerb(dal.PolicyInsertIgnore, []string{"Name"})
	assert.True(t, ok)
	assert.Equal(t, "INSERT INTO", prefix)
	assert.Equal(t, "ON CONFLICT DO NOTHING", suffix)

	_, _, ok = template.InsertVerb(dal.PolicyReplace, []string{"Name"})
	assert.False(t, ok)
}

func TestQuote(t *testing.T) {
	assert.Equal(t, `"Role"`, template.Quote("Role"))
	assert.Equal(t, `"a""b"`, template.Quote(`a"b`))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, []string{`DELETE FROM "Log"`}, template.Truncate("Log", false))
	assert.Len(t, template.Truncate("Role", true), 2)
}

func TestErrorClassification(t *testing.T) {
	d := &database{}

	unique := sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique}
	assert.True(t, d.IsUniqueViolation(unique))
	assert.True(t, d.IsUniqueViolation(&dal.BackendError{Err: unique}))
	assert.False(t, d.IsUniqueViolation(sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintNotNull}))
	assert.False(t, d.IsUniqueViolation(errors.New("UNIQUE constraint failed")))

	assert.True(t, d.IsRecoverable(sqlite3.Error{Code: sqlite3.ErrBusy}))
	assert.False(t, d.IsRecoverable(unique))
}

func TestDescribeTable(t *testing.T) {
	h := &Helper{}
	require.NoError(t, h.TearUp())
	defer h.TearDown()

	name := t.Name()
	require.NoError(t, dal.Register(name, h.ConnString(), nil, Kind))
	defer dal.Unregister(name)

	ctx := context.Background()
	d, err := dal.Resolve(name)
	require.NoError(t, err)

	sqldb, err := d.DB(ctx)
	require.NoError(t, err)

	tbl, err := template.DescribeTable(ctx, sqldb, "Role")
	require.NoError(t, err)
	assert.Nil(t, tbl)

	require.NoError(t, d.SetTables(ctx, testsuite.RoleTable()))

	tbl, err = template.DescribeTable(ctx, sqldb, "role")
	require.NoError(t, err)
	require.NotNil(t, tbl)
	assert.Equal(t, "Role", tbl.Name)

	id := tbl.Column("ID")
	require.NotNil(t, id)
	assert.True(t, id.PrimaryKey)
	assert.True(t, id.Identity)

	col := tbl.Column("Name")
	require.NotNil(t, col)
	assert.Equal(t, dal.String, col.Type)
	assert.Equal(t, 50, col.Length)
	assert.Equal(t, [][]string{{"ID"}, {"Name"}}, tbl.UniqueKeys())
}

func TestMemoryDatabasePerConnection(t *testing.T) {
	ctx := context.Background()

	names := []string{t.Name() + "_a", t.Name() + "_b"}
	for _, name := range names {
		require.NoError(t, dal.Register(name, "Database=:memory:", nil, Kind))
		defer dal.Unregister(name)
	}

	a, err := dal.Resolve(names[0])
	require.NoError(t, err)
	require.NoError(t, a.SetTables(ctx, testsuite.RoleTable()))

	ok, err := a.Schema().Exists(ctx, "Role")
	require.NoError(t, err)
	assert.True(t, ok)

	b, err := dal.Resolve(names[1])
	require.NoError(t, err)

	ok, err = b.Schema().Exists(ctx, "Role")
	require.NoError(t, err)
	assert.False(t, ok)
}
