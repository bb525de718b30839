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

package mysql

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/upper/dal"
)

const (
	sqlIdentifierQuote = "`"

	sqlMaxParameters = 65535

	sqlTableNames = `
		SELECT TABLE_NAME AS name FROM information_schema.TABLES
		WHERE TABLE_SCHEMA = DATABASE() AND TABLE_TYPE = 'BASE TABLE'
		ORDER BY TABLE_NAME
	`

	sqlTableDefinition = `
		SELECT TABLE_NAME AS name, TABLE_COMMENT AS comment FROM information_schema.TABLES
		WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ?
	`

	sqlTableColumns = `
		SELECT
			COLUMN_NAME AS name, COLUMN_TYPE AS type, IS_NULLABLE AS nullable,
			COLUMN_KEY AS ckey, EXTRA AS extra, COLUMN_COMMENT AS comment
		FROM information_schema.COLUMNS
		WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ?
		ORDER BY ORDINAL_POSITION
	`

	sqlTableIndexes = `
		SELECT INDEX_NAME AS name, NON_UNIQUE AS non_unique, COLUMN_NAME AS col
		FROM information_schema.STATISTICS
		WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ?
		ORDER BY INDEX_NAME, SEQ_IN_INDEX
	`
)

type dialect struct{}

var template = &dialect{}

var _ = dal.Dialect(template)

func (*dialect) Quote(identifier string) string {
	return sqlIdentifierQuote + strings.ReplaceAll(identifier, sqlIdentifierQuote, sqlIdentifierQuote+sqlIdentifierQuote) + sqlIdentifierQuote
}

func (*dialect) Placeholder(int) string {
	return "?"
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
		return "TINYINT(1)"
	case dal.Float:
		return "DOUBLE"
	case dal.Time:
		return "DATETIME"
	case dal.Bytes:
		return "LONGBLOB"
	}
	if col.Length > 0 {
		return fmt.Sprintf("VARCHAR(%d)", col.Length)
	}
	return "LONGTEXT"
}

func quoteString(s string) string {
	return "'" + strings.ReplaceAll(strings.ReplaceAll(s, `\`, `\\`), "'", "''") + "'"
}

func (d *dialect) columnDefinition(col *dal.Column) string {
	def := d.Quote(col.Name) + " " + d.ColumnType(col)
	if !col.Nullable || col.PrimaryKey {
		def += " NOT NULL"
	}
	if col.Identity {
		def += " AUTO_INCREMENT"
	}
	if col.Description != "" {
		def += " COMMENT " + quoteString(col.Description)
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
	defs := make([]string, 0, len(t.Columns)+len(t.Indexes)+1)
	for _, col := range t.Columns {
		defs = append(defs, d.columnDefinition(col))
	}
	if pk := t.PrimaryKeys(); len(pk) > 0 {
		defs = append(defs, "PRIMARY KEY ("+d.quoteColumns(pk)+")")
	}
	for _, idx := range t.Indexes {
		if idx.PrimaryKey {
			continue
		}
		name := idx.Name
		if name == "" {
			name = dal.IndexName(t.Name, idx.Unique, idx.Columns)
		}
		kind := "KEY "
		if idx.Unique {
			kind = "UNIQUE KEY "
		}
		defs = append(defs, kind+d.Quote(name)+" ("+d.quoteColumns(idx.Columns)+")")
	}

	stmt := "CREATE TABLE IF NOT EXISTS " + d.Quote(t.Name) + " (\n\t" + strings.Join(defs, ",\n\t") + "\n) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4"
	if t.Description != "" {
		stmt += " COMMENT=" + quoteString(t.Description)
	}
	return []string{stmt}
}

func (d *dialect) AddColumn(table string, col *dal.Column) string {
	stmt := "ALTER TABLE " + d.Quote(table) + " ADD COLUMN " + d.Quote(col.Name) + " " + d.ColumnType(col)
	if !col.Nullable {
		stmt += " NOT NULL"
		// TEXT and BLOB columns can't have a default; existing rows get the
		// implicit zero value.
		if zero := zeroValue(col); zero != "" {
			stmt += " DEFAULT " + zero
		}
	}
	if col.Description != "" {
		stmt += " COMMENT " + quoteString(col.Description)
	}
	return stmt
}

func zeroValue(col *dal.Column) string {
	switch col.Type {
	case dal.Int, dal.Int64, dal.Bool, dal.Float:
		return "0"
	case dal.Time:
		return "'1970-01-01 00:00:00'"
	case dal.String:
		if col.Length > 0 {
			return "''"
		}
	}
	return ""
}

func (d *dialect) Truncate(table string, identity bool) []string {
	return []string{"TRUNCATE TABLE " + d.Quote(table)}
}

// InsertVerb turns duplicate keys into a no-op update for
// PolicyInsertIgnore. INSERT IGNORE would also downgrade NOT NULL, range and
// truncation errors to warnings. Unchanged rows count as 0 affected rows
// unless clientFoundRows is set.
func (d *dialect) InsertVerb(p dal.Policy, columns []string) (string, string, bool) {
	switch p {
	case dal.PolicyInsert:
		return "INSERT INTO", "", true
	case dal.PolicyInsertIgnore:
		if len(columns) == 0 {
			return "", "", false
		}
		col := d.Quote(columns[0])
		return "INSERT INTO", "ON DUPLICATE KEY UPDATE " + col + " = " + col, true
	}
	return "", "", false
}

func (d *dialect) InsertReturning(table string, columns []string, identity string) (string, bool) {
	if len(columns) == 0 {
		return "INSERT INTO " + d.Quote(table) + " () VALUES ()", false
	}
	return "INSERT INTO " + d.Quote(table) + " (" + d.quoteColumns(columns) + ") VALUES (" +
		strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ") + ")", false
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
			Nullable:    strings.EqualFold(toString(columns.Get(i, "nullable")), "YES"),
			PrimaryKey:  toString(columns.Get(i, "ckey")) == "PRI",
			Identity:    strings.Contains(strings.ToLower(toString(columns.Get(i, "extra"))), "auto_increment"),
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
				Unique:     toInt(indexes.Get(i, "non_unique")) == 0,
				PrimaryKey: name == "PRIMARY",
			}
			t.Indexes = append(t.Indexes, idx)
		}
		idx.Columns = append(idx.Columns, toString(indexes.Get(i, "col")))
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
	case uint64:
		return int64(n)
	case int:
		return int64(n)
	}
	n, _ := strconv.ParseInt(toString(v), 10, 64)
	return n
}
