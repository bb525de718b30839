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

package sqlgen

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
)

type questionDialect struct{}

func (questionDialect) Quote(s string) string { return `"` + s + `"` }
func (questionDialect) Placeholder(int) string { return "?" }

type dollarDialect struct{}

func (dollarDialect) Quote(s string) string { return `"` + s + `"` }
func (dollarDialect) Placeholder(n int) string { return "$" + strconv.Itoa(n) }

func TestSelect(t *testing.T) {
	query, args := Select(questionDialect{}, "Role", Where{}, nil)
	assert.Equal(t, `SELECT * FROM "Role"`, query)
	assert.Empty(t, args)

	query, args = Select(dollarDialect{}, "Role", Where{
		And: []Pred{
			{Column: "Enabled", Value: true},
			{Column: "Remark", Value: nil},
		},
		AnyOf: []Pred{
			{Column: "Name", Op: "LIKE", Value: "%adm%"},
			{Column: "Code", Op: "LIKE", Value: "%adm%"},
		},
	}, []string{"ID"})
	assert.Equal(t, `SELECT * FROM "Role" WHERE "Enabled" = $1 AND "Remark" IS NULL AND ("Name" LIKE $2 OR "Code" LIKE $3) ORDER BY "ID"`, query)
	assert.Equal(t, []interface{}{true, "%adm%", "%adm%"}, args)

	query, _ = Select(questionDialect{}, "Role", Where{AnyOf: []Pred{{Column: "Name", Op: "<>", Value: nil}}}, []string{"A", "B"})
	assert.Equal(t, `SELECT * FROM "Role" WHERE ("Name" IS NOT NULL) ORDER BY "A", "B"`, query)
}

func TestCount(t *testing.T) {
	query, args := Count(questionDialect{}, "Log", Where{And: []Pred{{Column: "Level", Op: ">", Value: 2}}})
	assert.Equal(t, `SELECT COUNT(*) FROM "Log" WHERE "Level" > ?`, query)
	assert.Equal(t, []interface{}{2}, args)
}

func TestInsert(t *testing.T) {
	query, args := Insert(dollarDialect{}, "INSERT INTO", "Role", []string{"Name", "Code"}, [][]interface{}{
		{"admin", "A"},
		{"guest", "G"},
	}, "ON CONFLICT DO NOTHING")
	assert.Equal(t, `INSERT INTO "Role" ("Name", "Code") VALUES ($1, $2), ($3, $4) ON CONFLICT DO NOTHING`, query)
	assert.Equal(t, []interface{}{"admin", "A", "guest", "G"}, args)

	query, _ = Insert(questionDialect{}, "INSERT IGNORE INTO", "Role", []string{"Name"}, [][]interface{}{{"admin"}}, "")
	assert.Equal(t, `INSERT IGNORE INTO "Role" ("Name") VALUES (?)`, query)
}

func TestUpdate(t *testing.T) {
	query, args := Update(dollarDialect{}, "Role", []string{"Name", "Remark"}, []interface{}{"root", nil}, Where{
		And: []Pred{{Column: "ID", Value: 1}},
	})
	assert.Equal(t, `UPDATE "Role" SET "Name" = $1, "Remark" = $2 WHERE "ID" = $3`, query)
	assert.Equal(t, []interface{}{"root", nil, 1}, args)
}

func TestDelete(t *testing.T) {
	query, args := Delete(questionDialect{}, "Role", Where{And: []Pred{{Column: "ID", Value: 1}}})
	assert.Equal(t, `DELETE FROM "Role" WHERE "ID" = ?`, query)
	assert.Equal(t, []interface{}{1}, args)

	query, args = Delete(questionDialect{}, "Role", Where{})
	assert.Equal(t, `DELETE FROM "Role"`, query)
	assert.Empty(t, args)
}

func TestDeleteKeys(t *testing.T) {
	query, args := DeleteKeys(dollarDialect{}, "Role", []string{"Name"}, [][]interface{}{{"a"}, {"b"}})
	assert.Equal(t, `DELETE FROM "Role" WHERE "Name" IN ($1, $2)`, query)
	assert.Equal(t, []interface{}{"a", "b"}, args)

	query, args = DeleteKeys(dollarDialect{}, "Role", []string{"Code", "Name"}, [][]interface{}{{"x", "a"}, {"y", "b"}})
	assert.Equal(t, `DELETE FROM "Role" WHERE ("Code" = $1 AND "Name" = $2) OR ("Code" = $3 AND "Name" = $4)`, query)
	assert.Equal(t, []interface{}{"x", "a", "y", "b"}, args)
}

func TestBuilder(t *testing.T) {
	b := New(dollarDialect{}).Raw("SELECT ").Idents([]string{"a", "b"}).Raw(" FROM ").Ident("t").Raw(" WHERE a IN ").Tuple([]interface{}{1, 2})
	assert.Equal(t, `SELECT "a", "b" FROM "t" WHERE a IN ($1, $2)`, b.String())
	assert.Equal(t, []interface{}{1, 2}, b.Args())

	assert.True(t, Where{}.Empty())
	assert.False(t, Where{AnyOf: []Pred{{Column: "a"}}}.Empty())
}
