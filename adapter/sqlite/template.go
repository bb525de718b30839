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

package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/upper/dal"
)

const (
	sqlIdentifierQuote = `"`

	// SQLITE_MAX_VARIABLE_NUMBER of builds older than 3.32.0.
	sqlMaxParameters = 999

	sqlTableNames = `
		SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`

	sqlTableDefinition = `
		SELECT name, sql FROM sqlite_master
		WHERE type = 'table' AND name = ? COLLATE NOCASE
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
	case dal.Int, dal.Int64:
		return "INTEGER"
	case dal.Bool:
		return "BOOLEAN"
	case dal.Float:
		return "REAL"
	case dal.Time:
		return "DATETIME"
	case dal.Bytes:
		return "BLOB"
	}
	if col.Length > 0 {
		return fmt.Sprintf("VARCHAR(%d)", col.Length)
	}
	return "TEXT"
}

func (d *dialect) columnDefinition(col *dal.Column, inlinePK bool) string {
	if col.Identity && inlinePK {
		return d.Quote(col.Name) + " INTEGER PRIMARY KEY AUTOINCREMENT"
	}
	def := d.Quote(col.Name) + " " + d.ColumnType(col)
	if !col.Nullable || col.PrimaryKey {
		def += " NOT NULL"
	}
	return def
}

func (d *dialect) CreateTable(t *dal.Table) []string {
	pk := t.PrimaryKeys()
	identity := t.Identity()
	inlinePK := identity != nil && len(pk) == 1 && strings.EqualFold(pk[0], identity.Name)

	defs := make([]string, 0, len(t.Columns)+1)
	for _, col := range t.Columns {
		defs = append(defs, d.columnDefinition(col, inlinePK))
	}
	if len(pk) > 0 && !inlinePK {
		quoted := make([]string, len(pk))
		for i := range pk {
			quoted[i] = d.Quote(pk[i])
		}
		defs = append(defs, "PRIMARY KEY ("+strings.Join(quoted, ", ")+")")
	}

	stmts := []string{
		"CREATE TABLE IF NOT EXISTS " + d.Quote(t.Name) + " (\n\t" + strings.Join(defs, ",\n\t") + "\n)",
	}
	for _, idx := range t.Indexes {
		if idx.PrimaryKey {
			continue
		}
		stmts = append(stmts, d.createIndex(t.Name, idx))
	}
	return stmts
}

func (d *dialect) createIndex(table string, idx *dal.Index) string {
	name := idx.Name
	if name == "" {
		name = dal.IndexName(table, idx.Unique, idx.Columns)
	}
	quoted := make([]string, len(idx.Columns))
	for i := range idx.Columns {
		quoted[i] = d.Quote(idx.Columns[i])
	}
	verb := "CREATE INDEX IF NOT EXISTS "
	if idx.Unique {
		verb = "CREATE UNIQUE INDEX IF NOT EXISTS "
	}
	return verb + d.Quote(name) + " ON " + d.Quote(table) + " (" + strings.Join(quoted, ", ") + ")"
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
	case dal.Int, dal.Int64, dal.Bool, dal.Float:
		return "0"
	case dal.Time:
		return "'0001-01-01 00:00:00'"
	case dal.Bytes:
		return "X''"
	}
	return "''"
}

func (d *dialect) Truncate(table string, identity bool) []string {
	stmts := []string{"DELETE FROM " + d.Quote(table)}
	if identity {
		stmts = append(stmts, "DELETE FROM sqlite_sequence WHERE name = '"+strings.ReplaceAll(table, "'", "''")+"'")
	}
	return stmts
}

// InsertVerb uses an upsert clause for PolicyInsertIgnore. INSERT OR IGNORE
// would also drop rows that break NOT NULL or CHECK constraints.
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
	if len(columns) == 0 {
		return "INSERT INTO " + d.Quote(table) + " DEFAULT VALUES", false
	}
	quoted := make([]string, len(columns))
	for i := range columns {
		quoted[i] = d.Quote(columns[i])
	}
	return "INSERT INTO " + d.Quote(table) + " (" + strings.Join(quoted, ", ") + ") VALUES (" +
		strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ") + ")", false
}

func (*dialect) TableNames(ctx context.Context, q dal.Queryer) ([]string, error) {
	rows, err := q.QueryContext(ctx, sqlTableNames)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (d *dialect) DescribeTable(ctx context.Context, q dal.Queryer, name string) (*dal.Table, error) {
	info, err := query(ctx, q, sqlTableDefinition, name)
	if err != nil {
		return nil, err
	}
	if info.Count() == 0 {
		return nil, nil
	}

	t := &dal.Table{Name: fmt.Sprint(info.Get(0, "name"))}
	autoincrement := strings.Contains(strings.ToUpper(fmt.Sprint(info.Get(0, "sql"))), "AUTOINCREMENT")

	columns, err := query(ctx, q, "PRAGMA table_info("+d.Quote(t.Name)+")")
	if err != nil {
		return nil, err
	}
	pk := []string{}
	for i := 0; i < columns.Count(); i++ {
		typ, length := dal.ParseColumnType(fmt.Sprint(columns.Get(i, "type")))
		col := &dal.Column{
			Name:       fmt.Sprint(columns.Get(i, "name")),
			Type:       typ,
			Length:     length,
			Nullable:   toInt(columns.Get(i, "notnull")) == 0,
			PrimaryKey: toInt(columns.Get(i, "pk")) > 0,
		}
		if col.PrimaryKey {
			pk = append(pk, col.Name)
		}
		t.Columns = append(t.Columns, col)
	}
	// An INTEGER PRIMARY KEY is an alias of the rowid.
	if len(pk) == 1 {
		if col := t.Column(pk[0]); col != nil && (autoincrement || col.Type == dal.Int) {
			col.Identity = true
		}
	}

	indexes, err := query(ctx, q, "PRAGMA index_list("+d.Quote(t.Name)+")")
	if err != nil {
		return nil, err
	}
	for i := 0; i < indexes.Count(); i++ {
		idx := &dal.Index{
			Name:       fmt.Sprint(indexes.Get(i, "name")),
			Unique:     toInt(indexes.Get(i, "unique")) == 1,
			PrimaryKey: fmt.Sprint(indexes.Get(i, "origin")) == "pk",
		}
		info, err := query(ctx, q, "PRAGMA index_info("+d.Quote(idx.Name)+")")
		if err != nil {
			return nil, err
		}
		for j := 0; j < info.Count(); j++ {
			idx.Columns = append(idx.Columns, fmt.Sprint(info.Get(j, "name")))
		}
		t.Indexes = append(t.Indexes, idx)
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

func toInt(v interface{}) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case bool:
		if n {
			return 1
		}
	}
	return 0
}
