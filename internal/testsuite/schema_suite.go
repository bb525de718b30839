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

package testsuite

import (
	"errors"

	"github.com/upper/dal"
)

type SchemaSuite struct {
	Suite
}

func (s *SchemaSuite) TestSetTablesCreatesMissingTables() {
	d := s.Resolve(s.Register(nil))

	exists, err := d.Schema().Exists(s.Ctx(), "Role")
	s.NoError(err)
	s.False(exists)

	s.NoError(d.SetTables(s.Ctx(), RoleTable(), LogTable()))

	exists, err = d.Schema().Exists(s.Ctx(), "Role")
	s.NoError(err)
	s.True(exists)

	tables, err := d.Tables(s.Ctx())
	s.NoError(err)

	role := FindTable(tables, "Role")
	s.Require().NotNil(role)
	s.Equal("角色", role.Description)

	s.NotNil(role.Column("Name"))
	s.NotNil(role.Column("TraceId"))
	s.Equal([]string{"ID"}, role.PrimaryKeys())
	s.NotNil(role.Identity())

	unique := false
	for _, idx := range role.Indexes {
		if idx.Unique && !idx.PrimaryKey && len(idx.Columns) == 1 && idx.Columns[0] == "Name" {
			unique = true
		}
	}
	s.True(unique, "expecting the unique index on Name to be created")

	// Reconciling again is a no-op.
	s.NoError(d.SetTables(s.Ctx(), RoleTable()))
}

func (s *SchemaSuite) TestTablePrefix() {
	d := s.Resolve(s.Register(map[string]string{"TablePrefix": "member_"}))
	s.Equal("member_", d.TablePrefix())
	s.Equal("member_Role", d.Schema().PhysicalName("Role"))

	s.NoError(d.SetTables(s.Ctx(), RoleTable()))

	tables, err := d.Tables(s.Ctx())
	s.NoError(err)
	s.NotNil(FindTable(tables, "member_Role"))
	s.Nil(FindTable(tables, "Role"))

	role, err := d.Schema().Table(s.Ctx(), "Role")
	s.NoError(err)
	s.Require().NotNil(role)
	s.Equal("member_role", lower(role.Name))
}

func (s *SchemaSuite) TestSetTablesAddsMissingColumns() {
	d := s.Resolve(s.Register(nil))

	partial := RoleTable()
	partial.Columns = partial.Columns[:2]
	s.NoError(d.SetTables(s.Ctx(), partial))

	role, err := d.Schema().Table(s.Ctx(), "Role")
	s.NoError(err)
	s.Require().NotNil(role)
	s.Nil(role.Column("Remark"))

	d.Schema().Invalidate("Role")
	s.NoError(d.SetTables(s.Ctx(), RoleTable()))

	role, err = d.Schema().Table(s.Ctx(), "Role")
	s.NoError(err)
	s.Require().NotNil(role)
	s.NotNil(role.Column("Remark"))
	s.NotNil(role.Column("TraceId"))
	s.NotNil(role.Column("UpdateTime"))
}

func (s *SchemaSuite) TestSetTablesNeverDropsColumns() {
	d := s.Resolve(s.Register(nil))
	s.NoError(d.SetTables(s.Ctx(), RoleTable()))

	partial := RoleTable()
	partial.Columns = partial.Columns[:2]
	s.NoError(d.SetTables(s.Ctx(), partial))

	role, err := d.Schema().Table(s.Ctx(), "Role")
	s.NoError(err)
	s.Require().NotNil(role)
	s.Len(role.Columns, len(RoleTable().Columns))
}

func (s *SchemaSuite) TestSchemaError() {
	name := s.Register(nil)
	d := s.Resolve(name)

	err := d.SetTables(s.Ctx(), &dal.Table{})
	s.Error(err)

	var schemaErr *dal.SchemaError
	s.True(errors.As(err, &schemaErr))
	s.Equal(name, schemaErr.ConnName)
	s.True(errors.Is(err, dal.ErrMissingTableName))
}

func (s *SchemaSuite) TestMissingTable() {
	d := s.Resolve(s.Register(nil))

	role, err := d.Schema().Table(s.Ctx(), "Role")
	s.NoError(err)
	s.Nil(role)
}
