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

package dal

import (
	"errors"
	"fmt"
)

// Error messages
var (
	ErrClosed                      = errors.New(`data access layer was closed`)
	ErrEntityTypeMismatch          = errors.New(`entity does not belong to this entity type`)
	ErrGivingUpTryingToConnect     = errors.New(`giving up trying to connect`)
	ErrMissingConnName             = errors.New(`missing connection name`)
	ErrMissingConnString           = errors.New(`missing connection string`)
	ErrMissingDriverKind           = errors.New(`missing backend kind`)
	ErrMissingPrimaryKeys          = errors.New(`table has no primary keys`)
	ErrMissingTableName            = errors.New(`missing table name`)
	ErrNilEntity                   = errors.New(`invalid entity (nil)`)
	ErrNoMoreRows                  = errors.New(`no more rows in this result set`)
	ErrNotConnected                = errors.New(`not connected to a database`)
	ErrTooManyReconnectionAttempts = errors.New(`too many reconnection attempts`)
	ErrUnknownConnection           = errors.New(`unknown connection name`)
	ErrUnknownDriver               = errors.New(`unknown backend kind`)
	ErrUnknownPolicy               = errors.New(`unknown conflict policy`)
	ErrUnsupported                 = errors.New(`action is not supported by the backend`)
	ErrWarnSlowQuery               = errors.New(`slow query`)
	ErrZeroItemID                  = errors.New(`entity ID is not defined`)
)

// ConnectionError means the backend could not be reached or refused to
// authenticate us.
type ConnectionError struct {
	ConnName string
	Kind     string
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("dal: connection %q (%s): %v", e.ConnName, e.Kind, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// BackendError is a statement rejected by the backend. Err is the driver's
// error, untouched.
type BackendError struct {
	ConnName string
	Table    string
	Query    string
	Err      error
}

func (e *BackendError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("dal: connection %q, table %q: %v", e.ConnName, e.Table, e.Err)
	}
	return fmt.Sprintf("dal: connection %q: %v", e.ConnName, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// SchemaError is returned when a declared table could not be reconciled with
// the live database.
type SchemaError struct {
	ConnName string
	Table    string
	Column   string
	Err      error
}

func (e *SchemaError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("dal: connection %q, table %q, column %q: %v", e.ConnName, e.Table, e.Column, e.Err)
	}
	return fmt.Sprintf("dal: connection %q, table %q: %v", e.ConnName, e.Table, e.Err)
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

// ConstraintError is a unique or foreign key violation.
type ConstraintError struct {
	ConnName string
	Table    string
	Err      error
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("dal: connection %q, table %q: constraint violation: %v", e.ConnName, e.Table, e.Err)
}

func (e *ConstraintError) Unwrap() error {
	return e.Err
}

// SplitConflictError is returned when a split is requested for an entity type
// that already has an active one.
type SplitConflictError struct {
	EntityType string
	Active     string
	Requested  string
}

func (e *SplitConflictError) Error() string {
	return fmt.Sprintf("dal: entity type %q is already split onto %q, can't split onto %q", e.EntityType, e.Active, e.Requested)
}

// ValidationError means a lifecycle module refused to let an entity be saved.
type ValidationError struct {
	EntityType string
	Module     string
	IsNew      bool
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("dal: entity type %q: save rejected by module %s", e.EntityType, e.Module)
}
