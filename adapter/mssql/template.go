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
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/upper/dal"
)

const (
	// SQL Server accepts at most 2100 parameters per request.
	sqlMaxParameters = 2000

	sqlTableNames = `
		SELECT TABLE_NAME AS name FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_TYPE = 'BASE TABLE'
		ORDER BY TABLE_NAME
	`

	sqlTableDefinition = `
		SELECT t.name AS name, CAST(ep.value AS NVARCHAR(4000)) AS comment
		FROM sys.tables t
		LEFT JOIN sys.extended_properties ep
			ON ep.major_id = t.object_id AND ep.minor_id = 0 AND ep.name = 'MS_Description'
		WHERE t.name = @p1
	`

	sqlTableColumns = `
		SELECT
			c.name AS name, ty.name AS type, c.max_length AS max_length,
			c.is_nullable AS nullable, c.is_identity AS is_identity,
			CAST(ep.value AS NVARCHAR(4000)) AS comment
		FROM sys.columns c
		JOIN sys.types ty ON ty.user_type_id = c.user_type_id
		LEFT JOIN sys.extended_properties ep
			ON ep.major_id = c.object_id AND ep.minor_id = c.column_id AND ep.name = 'MS_Description'
		WHERE c.object_id = OBJECT_ID(QUOTENAME(@p1))
		ORDER BY c.column_id
	`

	sqlTableIndexes = `
		SELECT i.name AS name, i.is_unique AS is_unique, i.is_primary_key AS is_primary, c.name AS col
		FROM sys.indexes i
		JOIN sys.index_columns ic ON ic.object_id = i.object_id AND ic.index_id = i.index_id
		JOIN sys.columns c ON c.object_id = ic.object_id AND c.column_id = ic.column_id
		WHERE i.object_id = OBJECT_ID(QUOTENAME(@p1)) AND ic.is_included_column = 0
		ORDER BY i.name, ic.key_ordinal
	`

	sqlIdentityColumn = `
		SELECT name FROM sys.identity_columns WHERE object_id = OBJECT_ID(QUOTENAME(@p1))
	`
)

type dialect struct{}

var template = &dialect{}

var _ = dal.Dialect(template)

func (*dialect) Quote(identifier string) string {
	return "[" + strings.ReplaceAll(identifier, "]", "]]") + "]"
}

func (*dialect) Placeholder(n int) string {
	return "@p" + strconv.Itoa(n)
}

func (*dialect) MaxParameters() int {
	return sqlMaxParameters
}

func (*dialect) ColumnType(col *dal.Column) string {
	switch col.Type {
	case dal.Int:
		return "INT"
	case dal.Int64:
		return "BIGINT"
	case dal.Bool:
		return "BIT"
	case dal.Float:
		return "FLOAT"
	case dal.Time:
		return "DATETIME2"
	case dal.Bytes:
		return "VARBINARY(MAX)"
	}
	if col.Length > 0 && col.Length <= 4000 {
		return fmt.Sprintf("NVARCHAR(%d)", col.Length)
	}
	return "NVARCHAR(MAX)"
}

func quoteString(s string) string {
	return "N'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func (d *dialect) columnDefinition(col *dal.Column) string {
	def := d.Quote(col.Name) + " " + d.ColumnType(col)
	if col.Identity {
		def += " IDENTITY(1,1)"
	}
	if !col.Nullable || col.PrimaryKey {
		def += " NOT NULL"
	} else {
		def += " NULL"
	}
	return def
}

func (d *dialect) quoteColumns(columns []string) string {
	quoted := make([]string, len(columns))
	for i := range columns {
		quoted[i] = d.Quote(columns[i])
	}
	return strings.Join(quoted, ", ")
}

func (d *dialect) describe(table, column, description string) string {
	stmt := "EXEC sp_addextendedproperty @name = N'MS_Description', @value = " + quoteString(description) +
		", @level0type = N'SCHEMA', @level0name = N'dbo', @level1type = N'TABLE', @level1name = " + quoteString(table)
	if column != "" {
		stmt += ", @level2type = N'COLUMN', @level2name = " + quoteString(column)
	}
	return stmt
}

func (d *dialect) CreateTable(t *dal.Table) []string {
	defs := make([]string, 0, len(t.Columns)+1)
	for _, col := range t.Columns {
		defs = append(defs, d.columnDefinition(col))
	}
	if pk := t.PrimaryKeys(); len(pk) > 0 {
		defs = append(defs, "CONSTRAINT "+d.Quote("PK_"+t.Name)+" PRIMARY KEY ("+d.quoteColumns(pk)+")")
	}

	stmts := []string{
		"IF OBJECT_ID(" + quoteString(d.Quote(t.Name)) + ", N'U') IS NULL\nCREATE TABLE " + d.Quote(t.Name) + " (\n\t" + strings.Join(defs, ",\n\t") + "\n)",
	}
	for _, idx := range t.Indexes {
		if idx.PrimaryKey {
			continue
		}
		name := idx.Name
		if name == "" {
			name = dal.IndexName(t.Name, idx.Unique, idx.Columns)
		}
		verb := "CREATE INDEX "
		if idx.Unique {
			verb = "CREATE UNIQUE INDEX "
		}
		stmts = append(stmts, "IF NOT EXISTS (SELECT 1 FROM sys.indexes WHERE name = "+quoteString(name)+" AND object_id = OBJECT_ID("+quoteString(d.Quote(t.Name))+"))\n"+
			verb+d.Quote(name)+" ON "+d.Quote(t.Name)+" ("+d.quoteColumns(idx.Columns)+")")
	}
	if t.Description != "" {
		stmts = append(stmts, d.describe(t.Name, "", t.Description))
	}
	for _, col := range t.Columns {
		if col.Description != "" {
			stmts = append(stmts, d.describe(t.Name, col.Name, col.Description))
		}
	}
	return stmts
}

func (d *dialect) AddColumn(table string, col *dal.Column) string {
	stmt := "ALTER TABLE " + d.Quote(table) + " ADD " + d.Quote(col.Name) + " " + d.ColumnType(col)
	if col.Nullable {
		return stmt + " NULL"
	}
	return stmt + " NOT NULL DEFAULT " + zeroValue(col.Type)
}

func zeroValue(t dal.ColumnType) string {
	switch t {
	case dal.Int, dal.Int64, dal.Bool, dal.Float:
		return "0"
	case dal.Time:
		return "'0001-01-01T00:00:00'"
	case dal.Bytes:
		return "0x"
	}
	return "N''"
}

func (d *dialect) Truncate(table string, identity bool) []string {
	return []string{"TRUNCATE TABLE " + d.Quote(table)}
}

// InsertVerb has no verb for PolicyInsertIgnore; the bulk adapter skips
// duplicates itself.
func (*dialect) InsertVerb(p dal.Policy, _ []string) (string, string, bool) {
	if p == dal.PolicyInsert {
		return "INSERT INTO", "", true
	}
	return "", "", false
}

func (d *dialect) InsertReturning(table string, columns []string, identity string) (string, bool) {
	stmt := "INSERT INTO " + d.Quote(table)
	if len(columns) > 0 {
		stmt += " (" + d.quoteColumns(columns) + ")"
	}
	if identity != "" {
		stmt += " OUTPUT INSERTED." + d.Quote(identity)
	}
	if len(columns) == 0 {
		stmt += " DEFAULT VALUES"
	} else {
		placeholders := make([]string, len(columns))
		for i := range columns {
			placeholders[i] = d.Placeholder(i + 1)
		}
		stmt += " VALUES (" + strings.Join(placeholders, ", ") + ")"
	}
	return stmt, identity != ""
}

func (*dialect) TableNames(ctx context.Context, q dal.Queryer) ([]string, error) {
	dt, err := query(ctx, q, sqlTableNames)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, dt.Count())
	for i := 0; i < dt.Count(); i++ {
		names = append(names, toString(dt.Get(i, "name")))
	}
	return names, nil
}

func (d *dialect) DescribeTable(ctx context.Context, q dal.Queryer, name string) (*dal.Table, error) {
	info, err := query(ctx, q, sqlTableDefinition, name)
	if err != nil {
		return nil, err
	}
	if info.Count() == 0 {
		return nil, nil
	}

	t := &dal.Table{
		Name:        toString(info.Get(0, "name")),
		Description: toString(info.Get(0, "comment")),
	}

	columns, err := query(ctx, q, sqlTableColumns, t.Name)
	if err != nil {
		return nil, err
	}
	for i := 0; i < columns.Count(); i++ {
		native := toString(columns.Get(i, "type"))
		typ, _ := dal.ParseColumnType(native)
		length := 0
		if typ == dal.String {
			// max_length is in bytes, -1 for MAX.
			length = int(toInt(columns.Get(i, "max_length")))
			if strings.HasPrefix(strings.ToLower(native), "n") && length > 0 {
				length /= 2
			}
			if length < 0 {
				length = 0
			}
		}
		t.Columns = append(t.Columns, &dal.Column{
			Name:        toString(columns.Get(i, "name")),
			Type:        typ,
			Length:      length,
			Nullable:    toBool(columns.Get(i, "nullable")),
			Identity:    toBool(columns.Get(i, "is_identity")),
			Description: toString(columns.Get(i, "comment")),
		})
	}

	indexes, err := query(ctx, q, sqlTableIndexes, t.Name)
	if err != nil {
		return nil, err
	}
	var idx *dal.Index
	for i := 0; i < indexes.Count(); i++ {
		name := toString(indexes.Get(i, "name"))
		if idx == nil || idx.Name != name {
			idx = &dal.Index{
				Name:       name,
				Unique:     toBool(indexes.Get(i, "is_unique")),
				PrimaryKey: toBool(indexes.Get(i, "is_primary")),
			}
			t.Indexes = append(t.Indexes, idx)
		}
		col := toString(indexes.Get(i, "col"))
		idx.Columns = append(idx.Columns, col)
		if idx.PrimaryKey {
			if c := t.Column(col); c != nil {
				c.PrimaryKey = true
			}
		}
	}

	return t, nil
}

func query(ctx context.Context, q dal.Queryer, stmt string, args ...interface{}) (*dal.DataTable, error) {
	rows, err := q.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	return dal.ReadDataTable(rows)
}

func toString(v interface{}) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case []byte:
		return string(s)
	}
	return fmt.Sprint(v)
}

func toInt(v interface{}) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int32:
		return int64(n)
	case int16:
		return int64(n)
	case int:
		return int64(n)
	}
	n, _ := strconv.ParseInt(toString(v), 10, 64)
	return n
}

func toBool(v interface{}) bool {
	switch b := v.(type) {
	case bool:
		return b
	case nil:
		return false
	}
	ok, _ := strconv.ParseBool(toString(v))
	return ok
}
