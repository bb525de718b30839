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
	"context"
	"time"
)

// Field names TimeModule writes to.
const (
	CreateTimeField = "CreateTime"
	UpdateTimeField = "UpdateTime"
)

// TimeModule stamps CreateTime on inserts and UpdateTime on every save, for
// entity types that declare either field as a time column.
type TimeModule struct {
	// Now defaults to time.Now.
	Now func() time.Time
}

var _ Module = &TimeModule{}

func (m *TimeModule) String() string {
	return "TimeModule"
}

// Init accepts entity types with a CreateTime or UpdateTime field.
func (m *TimeModule) Init(t *EntityType) bool {
	if t.Table == nil {
		return false
	}
	for _, name := range []string{CreateTimeField, UpdateTimeField} {
		if col := t.Table.Column(name); col != nil && col.Type == Time {
			return true
		}
	}
	return false
}

// Valid stamps the time fields the caller did not set.
func (m *TimeModule) Valid(ctx context.Context, e *Entity, isNew bool) bool {
	if !isNew && !e.HasDirty() {
		return true
	}

	now := time.Now
	if m.Now != nil {
		now = m.Now
	}
	ts := now()

	table := e.typ.Table
	if isNew && table.Column(CreateTimeField) != nil && !e.IsDirty(CreateTimeField) {
		e.Set(CreateTimeField, ts)
	}
	if table.Column(UpdateTimeField) != nil && !e.IsDirty(UpdateTimeField) {
		e.Set(UpdateTimeField, ts)
	}
	return true
}
