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
	"errors"
	"strings"

	"github.com/upper/dal"
	"github.com/upper/dal/internal/sqlgen"
)

// bulkAdapter writes multi-row inserts with the generic adapter. SQL Server
// has no INSERT IGNORE, so those rows go one at a time and the ones that
// violate a unique key are skipped.
type bulkAdapter struct {
	rows dal.BulkAdapter
}

func (adt *bulkAdapter) Insert(ctx context.Context, ex dal.Execer, b *dal.BulkInsert) (int64, error) {
	if b.Policy != dal.PolicyInsertIgnore {
		return adt.insert(ctx, ex, b)
	}

	var inserted int64
	for _, row := range b.Rows {
		n, err := adt.insert(ctx, ex, &dal.BulkInsert{
			Policy:  dal.PolicyInsert,
			Table:   b.Table,
			Columns: b.Columns,
			Rows:    [][]interface{}{row},
		})
		if err != nil {
			var constraintErr *dal.ConstraintError
			if errors.As(err, &constraintErr) {
				continue
			}
			return inserted, err
		}
		inserted += n
	}
	return inserted, nil
}

// insert turns IDENTITY_INSERT on around the statement when the rows carry
// values for an identity column. The setting is per connection, so it goes
// in the same batch as the insert.
func (adt *bulkAdapter) insert(ctx context.Context, ex dal.Execer, b *dal.BulkInsert) (int64, error) {
	identity, err := identityColumn(ctx, ex, b.Table)
	if err != nil {
		return 0, err
	}

	hasIdentity := false
	for _, col := range b.Columns {
		if identity != "" && strings.EqualFold(col, identity) {
			hasIdentity = true
			break
		}
	}
	if !hasIdentity {
		return adt.rows.Insert(ctx, ex, b)
	}

	table := template.Quote(b.Table)
	query, args := sqlgen.Insert(template, "INSERT INTO", b.Table, b.Columns, b.Rows, "")
	query = "SET IDENTITY_INSERT " + table + " ON;\n" + query + ";\nSET IDENTITY_INSERT " + table + " OFF"

	res, err := ex.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func identityColumn(ctx context.Context, q dal.Queryer, table string) (string, error) {
	rows, err := q.QueryContext(ctx, sqlIdentityColumn, table)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	var name string
	if rows.Next() {
		if err := rows.Scan(&name); err != nil {
			return "", err
		}
	}
	return name, rows.Err()
}
