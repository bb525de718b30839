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

package mockdb

import (
	"context"
	"fmt"
	"strings"

	"github.com/upper/dal"
)

const (
	sqlServerVersion = `SELECT VERSION()`

	sqlTableNames = `SHOW TABLES`

	// Small on purpose, so tests can make batches split.
	sqlMaxParameters = 100
)

var describeColumns = []string{"table", "column", "type", "nullable", "primary", "identity", "unique"}

func describeQuery(table string) string {
	return "DESCRIBE " + template.Quote(table)
}

type dialect struct{}

var template = &dialect{}

var _ = dal.Dialect(template)

// Dialect returns the SQL dialect of mock databases, to build the statements
// tests expect.
func Dialect() dal.Dialect {
	return template
}

func (*dialect) Quote(identifier string) string {
	return `"` + strings.ReplaceAll(identifier, `"`, `""`) + `"`
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
		return "BOOL"
	case dal.Float:
		return "FLOAT"
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
		def := d.Quote(col.Name) + " " + d.ColumnType(col)
		if !col.Nullable {
			def += " NOT NULL"
		}
		if col.Identity {
			def += " AUTO_INCREMENT"
		}
		defs = append(defs, def)
	}
	if pk := t.PrimaryKeys(); len(pk) > 0 {
		defs = append(defs, "PRIMARY KEY ("+d.quoteColumns(pk)+")")
	}
	stmts := []string{"CREATE TABLE " + d.Quote(t.Name) + " (" + strings.Join(defs, ", ") + ")"}
	for _, idx := range t.Indexes {
		if idx.PrimaryKey || !idx.Unique {
			continue
		}
		name := idx.Name
		if name == "" {
			name = dal.IndexName(t.Name, true, idx.Columns)
		}
		stmts = append(stmts, "CREATE UNIQUE INDEX "+d.Quote(name)+" ON "+d.Quote(t.Name)+" ("+d.quoteColumns(idx.Columns)+")")
	}
	return stmts
}

func (d *dialect) AddColumn(table string, col *dal.Column) string {
	stmt := "ALTER TABLE " + d.Quote(table) + " ADD COLUMN " + d.Quote(col.Name) + " " + d.ColumnType(col)
	if !col.Nullable {
		stmt += " NOT NULL"
	}
	return stmt
}

func (d *dialect) Truncate(table string, identity bool) []string {
	return []string{"TRUNCATE TABLE " + d.Quote(table)}
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
	return "INSERT INTO " + d.Quote(table) + " (" + d.quoteColumns(columns) + ") VALUES (" +
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
	rows, err := q.QueryContext(ctx, describeQuery(name))
	if err != nil {
		return nil, err
	}
	dt, err := dal.ReadDataTable(rows)
	if err != nil {
		return nil, err
	}
	if dt.Count() == 0 {
		return nil, nil
	}

	t := &dal.Table{Name: fmt.Sprint(dt.Get(0, "table"))}
	for i := 0; i < dt.Count(); i++ {
		typ, length := dal.ParseColumnType(fmt.Sprint(dt.Get(i, "type")))
		col := &dal.Column{
			Name:       fmt.Sprint(dt.Get(i, "column")),
			Type:       typ,
			Length:     length,
			Nullable:   dt.Get(i, "nullable") == true,
			PrimaryKey: dt.Get(i, "primary") == true,
			Identity:   dt.Get(i, "identity") == true,
		}
		t.Columns = append(t.Columns, col)
		if unique, _ := dt.Get(i, "unique").(string); unique != "" {
			t.Indexes = append(t.Indexes, &dal.Index{Name: unique, Unique: true, Columns: []string{col.Name}})
		}
	}
	return t, nil
}
