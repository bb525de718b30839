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
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// TraceIDField is the name of the field TraceModule writes to.
const TraceIDField = "TraceId"

// DefaultTraceLength bounds the trace ledger when no field of the entity
// type declares a length.
const DefaultTraceLength = 50

type traceIDKey struct{}

// ContextWithTraceID returns a copy of ctx carrying the given trace
// identifier.
func ContextWithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey{}, traceID)
}

// TraceIDFromContext returns the trace identifier carried by ctx, if any.
func TraceIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	traceID, _ := ctx.Value(traceIDKey{}).(string)
	return traceID
}

// TraceIDFunc returns the trace identifier active in ctx. Replace it to read
// identifiers from a tracing library.
var TraceIDFunc = TraceIDFromContext

// NewTraceID returns a random identifier: 32 lowercase hex characters.
func NewTraceID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

// TraceModule records the identifier of every trace that created or changed
// an entity in its TraceId field, as a comma separated list that keeps the
// newest identifiers.
type TraceModule struct{}

var _ Module = &TraceModule{}

func (m *TraceModule) String() string {
	return "TraceModule"
}

// Init accepts entity types with a string field named TraceId.
func (m *TraceModule) Init(t *EntityType) bool {
	if t.Table == nil {
		return false
	}
	col := t.Table.Column(TraceIDField)
	return col != nil && col.Type == String
}

// Valid merges the active trace identifier into the TraceId field. Updates
// that change nothing are left alone.
func (m *TraceModule) Valid(ctx context.Context, e *Entity, isNew bool) bool {
	if !isNew && !e.HasDirty() {
		return true
	}

	traceID := TraceIDFunc(ctx)
	if traceID == "" {
		return true
	}

	max := e.typ.Table.MinLength()
	if max <= 0 {
		max = DefaultTraceLength
	}

	e.SetNoDirty(TraceIDField, MergeTraceID(e.String(TraceIDField), traceID, max))
	return true
}

// MergeTraceID appends traceID to a comma separated ledger and returns the
// longest tail of the result that fits in max characters, counted as runes.
// The ledger is returned as-is when it already holds traceID. The newest
// identifier is kept even if it alone is longer than max.
func MergeTraceID(ledger, traceID string, max int) string {
	if traceID == "" {
		return ledger
	}

	var ids []string
	if ledger != "" {
		ids = strings.Split(ledger, ",")
	}
	for _, id := range ids {
		if id == traceID {
			return ledger
		}
	}
	ids = append(ids, traceID)

	merged := traceID
	for i := len(ids) - 1; i >= 0; i-- {
		s := strings.Join(ids[i:], ",")
		if utf8.RuneCountInString(s) > max {
			break
		}
		merged = s
	}
	return merged
}
