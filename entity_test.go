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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entityType() *EntityType {
	return NewEntityType("User", &Table{
		Name: "User",
		Columns: []*Column{
			{Name: "ID", Type: Int, PrimaryKey: true, Identity: true},
			{Name: "Name", Type: String, Length: 50},
			{Name: "Avatar", Type: Bytes, Nullable: true},
			{Name: "Logins", Type: Int},
		},
	})
}

func TestEntityDirtyTracking(t *testing.T) {
	e := entityType().New()
	assert.True(t, e.IsNew())
	assert.False(t, e.HasDirty())

	e.Set("name", "alice")
	assert.True(t, e.IsDirty("Name"))
	assert.Equal(t, "alice", e.Get("NAME"))
	assert.Equal(t, []string{"Name"}, e.Dirty())

	e.clean()
	assert.False(t, e.IsNew())
	assert.False(t, e.HasDirty())

	// same value
	e.Set("Name", "alice")
	assert.False(t, e.HasDirty())

	e.Set("Avatar", []byte("png"))
	e.clean()
	e.Set("Avatar", []byte("png"))
	assert.False(t, e.HasDirty())

	// same number, different type
	e.Set("Logins", 1)
	e.clean()
	e.Set("Logins", int64(1))
	assert.True(t, e.IsDirty("Logins"))
}

func TestEntitySetNoDirty(t *testing.T) {
	e := entityType().New()
	e.SetNoDirty("Name", "bob")
	assert.False(t, e.HasDirty())
	assert.Equal(t, []string{"Name"}, e.changes())

	e.Set("Logins", 2)
	e.SetNoDirty("Logins", 3)
	assert.True(t, e.IsDirty("Logins"))
	assert.Equal(t, []string{"Logins", "Name"}, e.changes())
	assert.Equal(t, 3, e.Get("Logins"))
}

func TestEntityAccessors(t *testing.T) {
	typ := entityType()
	ts := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	e := typ.NewFrom(map[string]interface{}{
		"ID":     int64(7),
		"Name":   []byte("carol"),
		"Logins": "12",
		"Extra":  ts,
	})

	assert.Equal(t, int64(7), e.ID())
	assert.Equal(t, "carol", e.String("Name"))
	assert.Equal(t, int64(12), e.Int64("Logins"))
	assert.Equal(t, "2024-05-06T07:08:09Z", e.String("Extra"))
	assert.Equal(t, "", e.String("Avatar"))
	assert.Equal(t, "7", e.String("ID"))

	values := e.Values()
	values["Name"] = "changed"
	assert.Equal(t, "carol", e.String("Name"))

	noID := NewEntityType("Pair", &Table{Name: "Pair", Columns: []*Column{{Name: "A", Type: Int, PrimaryKey: true}}})
	assert.Equal(t, int64(0), noID.NewFrom(map[string]interface{}{"A": 3}).ID())
}

func TestEntityLoad(t *testing.T) {
	typ := entityType()
	e := typ.load([]string{"id", "name"}, []interface{}{int64(1), "dave"})

	assert.False(t, e.IsNew())
	assert.False(t, e.HasDirty())
	assert.Equal(t, int64(1), e.Get("ID"))
	assert.Equal(t, map[string]interface{}{"ID": int64(1), "Name": "dave"}, e.Values())
}

func TestToInt64(t *testing.T) {
	testCases := []struct {
		in  interface{}
		out int64
	}{
		{nil, 0},
		{int(3), 3},
		{int8(3), 3},
		{int32(3), 3},
		{uint64(3), 3},
		{float64(3.9), 3},
		{true, 1},
		{false, 0},
		{"42", 42},
		{" 42 ", 42},
		{[]byte("42"), 42},
		{"abc", 0},
		{struct{}{}, 0},
	}

	for _, test := range testCases {
		assert.Equal(t, test.out, toInt64(test.in), "%#v", test.in)
	}
}

func TestEqualValues(t *testing.T) {
	ts := time.Now()
	assert.True(t, equalValues(nil, nil))
	assert.False(t, equalValues(nil, 0))
	assert.True(t, equalValues("a", "a"))
	assert.False(t, equalValues(1, int64(1)))
	assert.True(t, equalValues([]byte("x"), []byte("x")))
	assert.False(t, equalValues([]byte("x"), "x"))
	assert.True(t, equalValues(ts, ts.In(time.UTC)))
	assert.False(t, equalValues([]int{1}, []int{1}))
}

func TestSessionErrors(t *testing.T) {
	typ := entityType()

	_, err := typ.Session("")
	assert.ErrorIs(t, err, ErrMissingConnName)

	_, err = typ.Session("entity_unknown")
	assert.ErrorIs(t, err, ErrUnknownConnection)

	_, err = NewEntityType("NoTable", nil).Session("entity_unknown")
	assert.ErrorIs(t, err, ErrMissingTableName)

	require.NoError(t, Register("entity_sessions", "Database=main;TablePrefix=p_", nil, "fake"))
	defer Unregister("entity_sessions")

	a, err := typ.Session("entity_sessions")
	require.NoError(t, err)
	b, err := typ.SetConnName("entity_sessions").Default()
	require.NoError(t, err)
	assert.Same(t, a, b)

	table, err := a.TableName()
	require.NoError(t, err)
	assert.Equal(t, "p_User", table)
}
