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
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upper/dal"
)

func TestConnectionURL(t *testing.T) {
	relative, err := filepath.Abs("membership.db")
	require.NoError(t, err)

	testCases := []struct {
		url ConnectionURL
		dsn string
	}{
		{
			ConnectionURL{},
			"",
		},
		{
			ConnectionURL{Database: "membership.db"},
			"file://" + relative + "?_busy_timeout=10000",
		},
		{
			ConnectionURL{Database: "/var/lib/membership.db", Options: map[string]string{"mode": "ro", "_busy_timeout": "500"}},
			"file:///var/lib/membership.db?_busy_timeout=500&mode=ro",
		},
		{
			ConnectionURL{Database: ":memory:", Options: map[string]string{"cache": "private"}},
			"file::memory:?_busy_timeout=10000&cache=private",
		},
		{
			ConnectionURL{Database: ":memory:", Name: "member"},
			"file:member?_busy_timeout=10000&cache=shared&mode=memory",
		},
		{
			ConnectionURL{Database: ":memory:", Name: "member", Options: map[string]string{"cache": "private"}},
			"file::memory:?_busy_timeout=10000&cache=private",
		},
	}

	for _, test := range testCases {
		assert.Equal(t, test.dsn, test.url.String())
	}
}

func TestParseConnectionURL(t *testing.T) {
	u, err := ParseURL("file:///var/lib/membership.db?_busy_timeout=500&mode=ro")
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/membership.db", u.Database)
	assert.Equal(t, "ro", u.Options["mode"])
	assert.Equal(t, "500", u.Options["_busy_timeout"])

	u, err = ParseURL("file://membership.db")
	require.NoError(t, err)
	assert.Equal(t, "membership.db", u.Database)
	assert.Equal(t, "shared", u.Options["cache"])

	_, err = ParseURL("sqlite://membership.db")
	assert.Error(t, err)
}

func TestFromConnectionString(t *testing.T) {
	cs := dal.ParseConnectionString("Database=/tmp/membership.db;TablePrefix=member_;mode=ro")

	c := FromConnectionString(cs)
	assert.Equal(t, "/tmp/membership.db", c.Database)
	assert.Equal(t, map[string]string{"mode": "ro"}, c.Options)
	assert.Equal(t, "file:///tmp/membership.db?_busy_timeout=10000&mode=ro", c.String())

	c = FromConnectionString(dal.ParseConnectionString("Data Source=/tmp/main.db"))
	assert.Equal(t, "/tmp/main.db", c.Database)

	c = FromConnectionString(dal.ParseConnectionString("Database=:memory:"))
	assert.Equal(t, "file::memory:?_busy_timeout=10000&cache=shared", c.String())
}
