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

package postgresql

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/upper/dal"
)

const (
	sqlIdentifierQuote = `"`

	sqlMaxParameters = 65535

	sqlTableNames = `
		SELECT table_name AS name FROM information_schema.tables
		WHERE table_schema = current_schema() AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`

	sqlTableDefinition = `
		SELECT c.relname AS name, obj_description(c.oid, 'pg_class') AS comment
		FROM pg_catalog.pg_class c
		JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
		WHERE n.nspname = current_schema() AND c.relkind = 'r' AND lower(c.relname) = lower($1)
		ORDER BY c.relname = $1 DESC
		LIMIT 1
	`

	sqlTableColumns = `
		SELECT
			a.attname AS name,
			format_type(a.atttypid, a.atttypmod) AS type,
			NOT a.attnotnull AS nullable,
			(a.attidentity <> '' OR coalesce(pg_get_expr(d.adbin, d.adrelid), '') LIKE 'nextval(%') AS identity,
			col_description(a.attrelid, a.attnum) AS comment
		FROM pg_catalog.pg_attribute a
		LEFT JOIN pg_catalog.pg_attrdef d ON d.adrelid = a.attrelid AND d.adnum = a.attnum
		WHERE a.attrelid = to_regclass(quote_ident($1)) AND a.attnum > 0 AND NOT a.attisdropped
		ORDER BY a.attnum
	`

	sqlTableIndexes = `
		SELECT
			i.relname AS name, x.indisunique AS is_unique, x.indisprimary AS is_primary,
			a.attname AS col
		FROM pg_catalog.pg_index x
		JOIN pg_catalog.pg_class i ON i.oid = x.indexrelid
		JOIN LATERAL unnest(x.indkey) WITH ORDINALITY AS k(attnum, pos) ON true
		JOIN pg_catalog.pg_attribute a ON a.attrelid = x.indrelid AND a.attnum = k.attnum
		WHERE x.indrelid = to_regclass(quote_ident($1))
		ORDER BY i.relname, k.pos
	`
)

type dialect struct{}

var template = &dialect{}

var _ = dal.Dialect(template)

func (*dialect) Quote(identifier string) string {
	return sqlIdentifierQuote + strings.ReplaceAll(identifier, sqlIdentifierQuote, sqlIdentifierQuote+sqlIdentifierQuote) + sqlIdentifierQuote
}

func (*dialect) Placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}

func (*dialect) MaxParameters() int {
	return sqlMaxParameters
}

func (*dialect) ColumnType(col *dal.Column) string {
	switch col.Type {
	case dal.Int:
		return "INTEGER"
	case dal.Int64:
		return "BIGINT"
	case dal.Bool:
		return "BOOLEAN"
	case dal.Float:
		return "DOUBLE PRECISION"
	case dal.Time:
		return "TIMESTAMP"
	case dal.Bytes:
		return "BYTEA"
	}
	if col.Length > 0 {
		return fmt.Sprintf("VARCHAR(%d)", col.Length)
	}
	return "TEXT"
}

func quoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func (d *dialect) columnDefinition(col *dal.Column) string {
	def := d.Quote(col.Name) + " " + d.ColumnType(col)
	if col.Identity {
		def += " GENERATED BY DEFAULT AS IDENTITY"
	}
	if !col.Nullable || col.PrimaryKey {
		def += " NOT NULL"
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

func (d *dialect) CreateTable(t *dal.Table) []string {
	defs := make([]string, 0, len(t.Columns)+1)
	for _, col := range t.Columns {
		defs = append(defs, d.columnDefinition(col))
	}
	if pk := t.PrimaryKeys(); len(pk) > 0 {
		defs = append(defs, "PRIMARY KEY ("+d.quoteColumns(pk)+")")
	}

	stmts := []string{
		"CREATE TABLE IF NOT EXISTS " + d.Quote(t.Name) + " (\n\t" + strings.Join(defs, ",\n\t") + "\n)",
	}
	for _, idx := range t.Indexes {
		if idx.PrimaryKey {
			continue
		}
		name := idx.Name
		if name == "" {
			name = dal.IndexName(t.Name, idx.Unique, idx.Columns)
		}
		verb := "CREATE INDEX IF NOT EXISTS "
		if idx.Unique {
			verb = "CREATE UNIQUE INDEX IF NOT EXISTS "
		}
		stmts = append(stmts, verb+d.Quote(name)+" ON "+d.Quote(t.Name)+" ("+d.quoteColumns(idx.Columns)+")")
	}
	if t.Description != "" {
		stmts = append(stmts, "COMMENT ON TABLE "+d.Quote(t.Name)+" IS "+quoteString(t.Description))
	}
	for _, col := range t.Columns {
		if col.Description != "" {
			stmts = append(stmts, "COMMENT ON COLUMN "+d.Quote(t.Name)+"."+d.Quote(col.Name)+" IS "+quoteString(col.Description))
		}
	}
	return stmts
}

func (d *dialect) AddColumn(table string, col *dal.Column) string {
	stmt := "ALTER TABLE " + d.Quote(table) + " ADD COLUMN " + d.Quote(col.Name) + " " + d.ColumnType(col)
	if !col.Nullable {
		stmt += " NOT NULL DEFAULT " + zeroValue(col.Type)
	}
	return stmt
}

func zeroValue(t dal.ColumnType) string {
	switch t {
	case dal.Int, dal.Int64, dal.Float:
		return "0"
	case dal.Bool:
		return "FALSE"
	case dal.Time:
		return "'epoch'"
	case dal.Bytes:
		return "''::bytea"
	}
	return "''"
}

func (d *dialect) Truncate(table string, identity bool) []string {
	stmt := "TRUNCATE TABLE " + d.Quote(table)
	if identity {
		stmt += " RESTART IDENTITY"
	}
	return []string{stmt}
}

func (*dialect) InsertVerb(p dal.Policy, _ []string) (string, string, bool) {
	switch p {
	case dal.PolicyInsert:
		return "INSERT INTO", "", true
	case dal.PolicyInsertIgnore:
		return "INSERT INTO", "ON CONFLICT DO NOTHING", true
	}
	return "", "", false
}

func (d *dialect) InsertReturning(table string, columns []string, identity string) (string, bool) {
	var stmt string
	if len(columns) == 0 {
		stmt = "INSERT INTO " + d.Quote(table) + " DEFAULT VALUES"
	} else {
		placeholders := make([]string, len(columns))
		for i := range columns {
			placeholders[i] = d.Placeholder(i + 1)
		}
		stmt = "INSERT INTO " + d.Quote(table) + " (" + d.quoteColumns(columns) + ") VALUES (" + strings.Join(placeholders, ", ") + ")"
	}
	if identity == "" {
		return stmt, false
	}
	return stmt + " RETURNING " + d.Quote(identity), true
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
		typ, length := dal.ParseColumnType(toString(columns.Get(i, "type")))
		if typ != dal.String {
			length = 0
		}
		t.Columns = append(t.Columns, &dal.Column{
			Name:        toString(columns.Get(i, "name")),
			Type:        typ,
			Length:      length,
			Nullable:    toBool(columns.Get(i, "nullable")),
			Identity:    toBool(columns.Get(i, "identity")),
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
