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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeTraceID(t *testing.T) {
	testCases := []struct {
		ledger  string
		traceID string
		max     int
		out     string
	}{
		{"", "t1", 50, "t1"},
		{"t1", "t2", 50, "t1,t2"},
		{"t1,t2", "t1", 50, "t1,t2"},
		{"t1,t2", "t2", 50, "t1,t2"},
		{"t1,t2", "", 50, "t1,t2"},
		{"t1,t2", "t3", 5, "t2,t3"},
		{"t1,t2", "t3", 2, "t3"},
		{"t1", "a-very-long-trace-id", 5, "a-very-long-trace-id"},
		{"aaaa,bbbb,cccc", "dddd", 14, "bbbb,cccc,dddd"},
		{"aaaa,bbbb,cccc", "dddd", 13, "cccc,dddd"},
		{"追踪一,追踪二", "追踪三", 7, "追踪二,追踪三"},
		{"追踪一,追踪二", "追踪三", 6, "追踪三"},
	}

	for _, test := range testCases {
		assert.Equal(t, test.out, MergeTraceID(test.ledger, test.traceID, test.max), "%q + %q (%d)", test.ledger, test.traceID, test.max)
	}
}

func TestTraceIDContext(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, "", TraceIDFromContext(ctx))

	ctx = ContextWithTraceID(ctx, "abc")
	assert.Equal(t, "abc", TraceIDFromContext(ctx))
}

func TestNewTraceID(t *testing.T) {
	a, b := NewTraceID(), NewTraceID()
	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
	assert.Equal(t, strings.ToLower(a), a)
	assert.NotContains(t, a, "-")
}

func traceType() *EntityType {
	return NewEntityType("Audit", &Table{
		Name: "Audit",
		Columns: []*Column{
			{Name: "ID", Type: Int, PrimaryKey: true, Identity: true},
			{Name: "Action", Type: String, Length: 100},
			{Name: "TraceId", Type: String, Length: 20},
		},
	}, &TraceModule{})
}

func TestTraceModuleInit(t *testing.T) {
	m := &TraceModule{}
	assert.True(t, m.Init(traceType()))

	assert.False(t, m.Init(NewEntityType("Plain", &Table{
		Name:    "Plain",
		Columns: []*Column{{Name: "ID", Type: Int}},
	})))

	assert.False(t, m.Init(NewEntityType("Numeric", &Table{
		Name:    "Numeric",
		Columns: []*Column{{Name: "TraceId", Type: Int64}},
	})))

	assert.False(t, m.Init(NewEntityType("NoTable", nil)))
}

func TestTraceModuleValid(t *testing.T) {
	typ := traceType()
	ctx := ContextWithTraceID(context.Background(), "t1")

	e := typ.New().Set("Action", "login")
	assert.NoError(t, e.Valid(ctx, true))
	assert.Equal(t, "t1", e.String(TraceIDField))
	assert.False(t, e.IsDirty(TraceIDField))
	assert.Equal(t, []string{"Action", "TraceId"}, e.changes())

	e.clean()

	// nothing changed
	assert.NoError(t, e.Valid(ContextWithTraceID(context.Background(), "t2"), false))
	assert.Equal(t, "t1", e.String(TraceIDField))
	assert.Empty(t, e.changes())

	e.Set("Action", "logout")
	assert.NoError(t, e.Valid(ContextWithTraceID(context.Background(), "t2"), false))
	assert.Equal(t, "t1,t2", e.String(TraceIDField))

	// bounded by the shortest declared length
	assert.NoError(t, e.Valid(ContextWithTraceID(context.Background(), "t3-0123456789abc"), false))
	assert.Equal(t, "t2,t3-0123456789abc", e.String(TraceIDField))

	// no ambient trace
	e.clean()
	e.Set("Action", "noop")
	assert.NoError(t, e.Valid(context.Background(), false))
	assert.Equal(t, "t2,t3-0123456789abc", e.String(TraceIDField))
}

func TestTraceIDFunc(t *testing.T) {
	defer func(fn func(context.Context) string) {
		TraceIDFunc = fn
	}(TraceIDFunc)

	TraceIDFunc = func(context.Context) string {
		return "from-tracer"
	}

	e := traceType().New().Set("Action", "login")
	assert.NoError(t, e.Valid(context.Background(), true))
	assert.Equal(t, "from-tracer", e.String(TraceIDField))
}
