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
	"fmt"
	"net/url"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/upper/dal"
)

const connectionScheme = `file`

const memoryDatabase = `:memory:`

// ConnectionURL implements a SQLite connection struct.
type ConnectionURL struct {
	Database string
	Options  map[string]string

	// Name keeps shared in-memory databases of different connections apart.
	Name string
}

// FromConnectionString picks the database file and driver options out of a
// connection string. The Server key is accepted as the file name too.
func FromConnectionString(cs dal.ConnectionString) ConnectionURL {
	c := ConnectionURL{
		Database: cs.Database,
		Options:  map[string]string{},
		Name:     cs.Name,
	}
	if c.Database == "" {
		c.Database = cs.Server
	}
	for k, v := range cs.Options {
		c.Options[k] = v
	}
	return c
}

func (c ConnectionURL) String() (s string) {
	vv := url.Values{}

	if c.Database == "" {
		return ""
	}

	// Do we have any options?
	if c.Options == nil {
		c.Options = map[string]string{}
	}

	if _, ok := c.Options["_busy_timeout"]; !ok {
		c.Options["_busy_timeout"] = "10000"
	}

	// Converting options into URL values.
	for k, v := range c.Options {
		vv.Set(k, v)
	}

	// A private in-memory database per connection is useless with a pool, so
	// the pool shares one named after the connection.
	if c.Database == memoryDatabase {
		if vv.Get("cache") == "" {
			vv.Set("cache", "shared")
		}
		if c.Name != "" && vv.Get("cache") == "shared" {
			vv.Set("mode", "memory")
			return connectionScheme + ":" + url.PathEscape(c.Name) + "?" + vv.Encode()
		}
		return connectionScheme + ":" + memoryDatabase + "?" + vv.Encode()
	}

	// Did the user provided a full database path?
	if !strings.HasPrefix(c.Database, "/") {
		c.Database, _ = filepath.Abs(c.Database)
		if runtime.GOOS == "windows" {
			// Closes https://github.com/upper/db/issues/60
			c.Database = "/" + strings.Replace(c.Database, `\`, `/`, -1)
		}
	}

	// Building URL.
	u := url.URL{
		Scheme:   connectionScheme,
		Path:     c.Database,
		RawQuery: vv.Encode(),
	}

	return u.String()
}

// ParseURL parses s into a ConnectionURL struct.
func ParseURL(s string) (conn ConnectionURL, err error) {
	var u *url.URL

	if !strings.HasPrefix(s, connectionScheme+"://") {
		return conn, fmt.Errorf(`expecting file:// connection scheme`)
	}

	if u, err = url.Parse(s); err != nil {
		return conn, err
	}

	conn.Database = u.Host + u.Path
	conn.Options = map[string]string{}

	var vv url.Values

	if vv, err = url.ParseQuery(u.RawQuery); err != nil {
		return conn, err
	}

	for k := range vv {
		conn.Options[k] = vv.Get(k)
	}

	if _, ok := conn.Options["cache"]; !ok {
		conn.Options["cache"] = "shared"
	}

	return conn, err
}
