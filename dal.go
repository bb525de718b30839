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

// Package dal is the persistence core of an entity-mapping data access layer.
//
// Connections are registered by name and resolved into long-lived DAL
// values, one per name. Each DAL owns a backend Driver, picked by kind from
// the drivers registered by the adapter packages:
//
//	import (
//		"github.com/upper/dal"
//		_ "github.com/upper/dal/adapter/sqlite"
//	)
//
//	dal.Register("main", "Database=./main.db", nil, "sqlite")
//	d, err := dal.Resolve("main")
//
// Entity types declare their table and are read and written through
// EntitySession values, which also anchor batch writes (Insert, InsertIgnore,
// Replace) and table splits.
package dal

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

var (
	// If a statement fails with a recoverable error it's going to be retried
	// at most maxQueryRetryAttempts times.
	maxQueryRetryAttempts = 3

	// Minimum interval when waiting before trying to reconnect.
	minConnectionRetryInterval = time.Millisecond * 100

	// Maximum interval when waiting before trying to reconnect.
	maxConnectionRetryInterval = time.Millisecond * 2500

	// Maximum time each connection attempt can take.
	maxConnectionRetryTime = time.Second * 5

	// Maximum reconnection attempts per DAL before giving up.
	maxReconnectionAttempts uint64 = 12
)

// DAL is the data access layer of a single named connection. There is at
// most one live DAL per registered name, use Resolve to get it.
type DAL struct {
	cfg    *ConnectionConfig
	driver Driver

	connectMu       sync.Mutex
	sess            atomic.Pointer[sql.DB]
	closed          atomic.Bool
	connectAttempts uint64

	reflectorOnce sync.Once
	reflector     *SchemaReflector

	versionMu sync.Mutex
	version   string
}

func newDAL(cfg *ConnectionConfig, driver Driver) *DAL {
	return &DAL{
		cfg:    cfg,
		driver: driver,
	}
}

// Name returns the connection name.
func (d *DAL) Name() string {
	return d.cfg.Name
}

// Kind returns the backend kind.
func (d *DAL) Kind() string {
	return d.cfg.Kind
}

// Config returns the connection configuration the DAL was created with.
func (d *DAL) Config() *ConnectionConfig {
	return d.cfg
}

// Driver returns the backend driver.
func (d *DAL) Driver() Driver {
	return d.driver
}

// Dialect returns the backend's SQL dialect.
func (d *DAL) Dialect() Dialect {
	return d.driver.Dialect()
}

// TablePrefix returns the configured table prefix.
func (d *DAL) TablePrefix() string {
	return d.cfg.TablePrefix()
}

// DatabaseName returns the name of the database the connection points to.
func (d *DAL) DatabaseName() string {
	return d.driver.DatabaseName(d.cfg.ConnString)
}

// DB returns the underlying *sql.DB, connecting on first use.
func (d *DAL) DB(ctx context.Context) (*sql.DB, error) {
	if d.closed.Load() {
		return nil, d.connErr(ErrClosed)
	}
	if sess := d.sess.Load(); sess != nil {
		return sess, nil
	}

	d.connectMu.Lock()
	defer d.connectMu.Unlock()

	if sess := d.sess.Load(); sess != nil {
		return sess, nil
	}

	sess, err := d.connect(ctx)
	if err != nil {
		return nil, d.connErr(err)
	}
	d.sess.Store(sess)

	LC().Infof("connection %q (%s) opened", d.Name(), d.Kind())
	return sess, nil
}

func (d *DAL) connErr(err error) error {
	return &ConnectionError{ConnName: d.Name(), Kind: d.Kind(), Err: err}
}

func (d *DAL) connect(ctx context.Context) (*sql.DB, error) {
	if atomic.AddUint64(&d.connectAttempts, 1) >= maxReconnectionAttempts {
		return nil, ErrTooManyReconnectionAttempts
	}

	for start, i := time.Now(), 1; time.Since(start) < maxConnectionRetryTime; i++ {
		sess, err := d.driver.Open(d.cfg.ConnString)
		if err == nil {
			if err = sess.PingContext(ctx); err == nil {
				atomic.StoreUint64(&d.connectAttempts, 0)
				return sess, nil
			}
			sess.Close()
		}

		if !d.driver.IsRecoverable(err) {
			return nil, err
		}

		waitTime := time.Duration(i) * minConnectionRetryInterval
		if waitTime > maxConnectionRetryInterval {
			waitTime = maxConnectionRetryInterval
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(waitTime):
		}
	}

	return nil, ErrGivingUpTryingToConnect
}

// Close terminates the underlying connection. A closed DAL can't be used
// again; resolve the name again to get a new one.
func (d *DAL) Close() error {
	if d.closed.Swap(true) {
		return nil
	}

	d.connectMu.Lock()
	defer d.connectMu.Unlock()

	if sess := d.sess.Swap(nil); sess != nil {
		return sess.Close()
	}
	return nil
}

// Execute runs a statement that returns no rows and reports the number of
// rows affected.
func (d *DAL) Execute(ctx context.Context, query string, args ...interface{}) (int64, error) {
	res, err := d.exec(ctx, nil, "", query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Query runs a statement and returns every row it yields.
func (d *DAL) Query(ctx context.Context, query string, args ...interface{}) (*DataTable, error) {
	rows, err := d.query(ctx, nil, "", query, args...)
	if err != nil {
		return nil, err
	}
	dt, err := ReadDataTable(rows)
	if err != nil {
		return nil, d.wrapErr("", query, err)
	}
	return dt, nil
}

// ServerVersion returns the version reported by the backend. The value is
// cached after the first successful call.
func (d *DAL) ServerVersion(ctx context.Context) (string, error) {
	d.versionMu.Lock()
	defer d.versionMu.Unlock()

	if d.version != "" {
		return d.version, nil
	}

	sess, err := d.DB(ctx)
	if err != nil {
		return "", err
	}
	version, err := d.driver.ServerVersion(ctx, sess)
	if err != nil {
		return "", d.wrapErr("", "", err)
	}
	d.version = version
	return version, nil
}

// Schema returns the schema reflector bound to this DAL.
func (d *DAL) Schema() *SchemaReflector {
	d.reflectorOnce.Do(func() {
		d.reflector = newSchemaReflector(d)
	})
	return d.reflector
}

// SetTables reconciles the given declared tables with the database. See
// SchemaReflector.SetTables.
func (d *DAL) SetTables(ctx context.Context, tables ...*Table) error {
	return d.Schema().SetTables(ctx, tables...)
}

// Tables returns the tables found in the database. See
// SchemaReflector.Tables.
func (d *DAL) Tables(ctx context.Context) ([]*Table, error) {
	return d.Schema().Tables(ctx)
}

func (d *DAL) wrapErr(table, query string, err error) error {
	if err == nil {
		return nil
	}
	var connErr *ConnectionError
	if errors.As(err, &connErr) {
		return err
	}
	if d.driver.IsUniqueViolation(err) {
		return &ConstraintError{ConnName: d.Name(), Table: table, Err: err}
	}
	return &BackendError{ConnName: d.Name(), Table: table, Query: query, Err: err}
}

// execer returns ex, or the DAL's handle if ex is nil. Statements are only
// retried outside transactions.
func (d *DAL) execer(ctx context.Context, ex Execer) (Execer, bool, error) {
	if ex != nil {
		_, inTx := ex.(*sql.Tx)
		return ex, inTx, nil
	}
	sess, err := d.DB(ctx)
	if err != nil {
		return nil, false, err
	}
	return sess, false, nil
}

func (d *DAL) exec(ctx context.Context, ex Execer, table, query string, args ...interface{}) (res sql.Result, err error) {
	ex, inTx, err := d.execer(ctx, ex)
	if err != nil {
		return nil, err
	}

	defer func(start time.Time) {
		status := &QueryStatus{
			ConnName: d.Name(),
			Table:    table,
			Query:    query,
			Args:     args,
			Err:      err,
			Start:    start,
			End:      time.Now(),
		}
		if res != nil {
			if rowsAffected, err := res.RowsAffected(); err == nil {
				status.RowsAffected = &rowsAffected
			}
			if lastInsertID, err := res.LastInsertId(); err == nil {
				status.LastInsertID = &lastInsertID
			}
		}
		LC().LogQuery(status)
	}(time.Now())

	for i := 0; ; i++ {
		res, err = ex.ExecContext(ctx, query, args...)
		if err == nil || inTx || i >= maxQueryRetryAttempts || !d.driver.IsRecoverable(err) {
			break
		}
	}
	if err != nil {
		return nil, d.wrapErr(table, query, err)
	}
	return res, nil
}

func (d *DAL) query(ctx context.Context, q Queryer, table, query string, args ...interface{}) (rows *sql.Rows, err error) {
	var inTx bool
	if q == nil {
		sess, err := d.DB(ctx)
		if err != nil {
			return nil, err
		}
		q = sess
	} else {
		_, inTx = q.(*sql.Tx)
	}

	defer func(start time.Time) {
		LC().LogQuery(&QueryStatus{
			ConnName: d.Name(),
			Table:    table,
			Query:    query,
			Args:     args,
			Err:      err,
			Start:    start,
			End:      time.Now(),
		})
	}(time.Now())

	for i := 0; ; i++ {
		rows, err = q.QueryContext(ctx, query, args...)
		if err == nil || inTx || i >= maxQueryRetryAttempts || !d.driver.IsRecoverable(err) {
			break
		}
	}
	if err != nil {
		return nil, d.wrapErr(table, query, err)
	}
	return rows, nil
}

// queryScalar runs a query that yields a single value.
func (d *DAL) queryScalar(ctx context.Context, q Queryer, table, query string, args []interface{}, dest interface{}) error {
	rows, err := d.query(ctx, q, table, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return d.wrapErr(table, query, err)
		}
		return d.wrapErr(table, query, sql.ErrNoRows)
	}
	if err := rows.Scan(dest); err != nil {
		return d.wrapErr(table, query, err)
	}
	return d.wrapErr(table, query, rows.Err())
}

// tx runs fn within a transaction, committing if fn returns nil and rolling
// back otherwise.
func (d *DAL) tx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	sess, err := d.DB(ctx)
	if err != nil {
		return err
	}
	tx, err := sess.BeginTx(ctx, nil)
	if err != nil {
		return d.wrapErr("", "BEGIN", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			LC().Warnf("connection %q: rollback failed: %v", d.Name(), rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return d.wrapErr("", "COMMIT", err)
	}
	return nil
}
