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
	"strings"

	"github.com/upper/dal"
)

// RoleTable declares the table roles are stored in.
func RoleTable() *dal.Table {
	return &dal.Table{
		Name:        "Role",
		Description: "角色",
		Columns: []*dal.Column{
			{Name: "ID", Type: dal.Int, PrimaryKey: true, Identity: true, Description: "编号"},
			{Name: "Name", Type: dal.String, Length: 50, Description: "名称"},
			{Name: "Remark", Type: dal.String, Length: 200, Nullable: true, Description: "备注"},
			{Name: "TraceId", Type: dal.String, Length: 50, Nullable: true, Description: "链路追踪"},
			{Name: "CreateTime", Type: dal.Time, Nullable: true},
			{Name: "UpdateTime", Type: dal.Time, Nullable: true},
		},
		Indexes: []*dal.Index{
			{Columns: []string{"Name"}, Unique: true},
		},
	}
}

// LogTable declares a table without unique keys.
func LogTable() *dal.Table {
	return &dal.Table{
		Name: "Log",
		Columns: []*dal.Column{
			{Name: "Message", Type: dal.String, Length: 200},
		},
	}
}

// RoleNames are the roles seeded by NewRoleType.
var RoleNames = []string{"管理员", "高级用户", "普通用户", "游客"}

// NewRoleType declares a role entity type stored on the given connection.
func NewRoleType(connName string, modules ...dal.Module) *dal.EntityType {
	t := dal.NewEntityType("Role", RoleTable(), modules...).SetConnName(connName)
	t.Seed = func() []*dal.Entity {
		items := make([]*dal.Entity, 0, len(RoleNames))
		for _, name := range RoleNames {
			items = append(items, NewRole(t, name, ""))
		}
		return items
	}
	return t
}

// NewRole creates a new role.
func NewRole(t *dal.EntityType, name, remark string) *dal.Entity {
	e := t.New().Set("Name", name)
	if remark != "" {
		e.Set("Remark", remark)
	}
	return e
}

// Names returns the names of the given roles.
func Names(items []*dal.Entity) []string {
	names := make([]string, 0, len(items))
	for _, e := range items {
		names = append(names, e.String("Name"))
	}
	return names
}

// FindTable looks a table up by name, case-insensitively.
func FindTable(tables []*dal.Table, name string) *dal.Table {
	for _, t := range tables {
		if strings.EqualFold(t.Name, name) {
			return t
		}
	}
	return nil
}

func lower(s string) string {
	return strings.ToLower(s)
}
