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

package mssql

import (
	"testing"

	mssql "github.com/denisenkom/go-mssqldb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upper/dal"
	"github.com/upper/dal/internal/testsuite"
)

func TestSuites(t *testing.T) {
	if settings.Database == "" {
		t.Skip("DB_NAME is not set")
	}
	testsuite.Run(t, &Helper{})
}

func TestCreateTable(t *testing.T) {
	stmts := template.CreateTable(testsuite.RoleTable())
	require.Len(t, stmts, 3)

	assert.Contains(t, stmts[0], "CREATE TABLE [Role]")
	assert.Contains(t, stmts[0], "[ID] INT IDENTITY(1,1) NOT NULL")
	assert.Contains(t, stmts[0], "[Name] NVARCHAR(50) NOT NULL")
	assert.Contains(t, stmts[0], "[Remark] NVARCHAR(200) NULL")
	assert.Contains(t, stmts[0], "CONSTRAINT [PK_Role] PRIMARY KEY ([ID])")
	assert.Contains(t, stmts[1], "CREATE UNIQUE INDEX [IU_Role_Name] ON [Role] ([Name])")
	assert.Contains(t, stmts[2], "@value = N'角色'")
}

func TestInsertReturning(t *testing.T) {
	stmt, returning := template.InsertReturning("Role", []string{"Name", "Remark"}, "ID")
	assert.True(t, returning)
	assert.Equal(t, "INSERT INTO [Role] ([Name], [Remark]) OUTPUT INSERTED.[ID] VALUES (@p1, @p2)", stmt)

	stmt, returning = template.InsertReturning("Log", nil, "")
	assert.False(t, returning)
	assert.Equal(t, "INSERT INTO [Log] DEFAULT VALUES", stmt)
}

func TestInsertVerb(t *testing.T) {
	_, _, ok := template.InsertVerb(dal.PolicyInsert, []string{"Name"})
	assert.True(t, ok)

	_, _, ok = template.InsertVerb(dal.PolicyInsertIgnore, []string{"Name"})
	assert.False(t, ok)
}

func TestQuote(t *testing.T) {
	assert.Equal(t, "[Role]", template.Quote("Role"))
	assert.Equal(t, "[a]]b]", template.Quote("a]b"))
}

func TestErrorClassification(t *testing.T) {
	d := &database{}

	assert.True(t, d.IsUniqueViolation(mssql.Error{Number: errUniqueConstraint}))
	assert.True(t, d.IsUniqueViolation(mssql.Error{Number: errUniqueIndex}))
	assert.True(t, d.IsUniqueViolation(&dal.BackendError{Err: mssql.Error{Number: errUniqueIndex}}))
	assert.False(t, d.IsUniqueViolation(mssql.Error{Number: 18456}))

	assert.True(t, d.IsRecoverable(mssql.Error{Number: errDeadlockVictim}))
	assert.False(t, d.IsRecoverable(mssql.Error{Number: 18456}))
}
