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
	"errors"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/upper/dal"
)

const connectionScheme = `sqlserver`

// ConnectionURL implements a SQL Server connection struct.
type ConnectionURL struct {
	User     string
	Password string
	Database string
	Host     string
	Options  map[string]string
}

// FromConnectionString maps a connection string onto a ConnectionURL. Keys
// that aren't well known are passed to the driver as URL parameters.
func FromConnectionString(cs dal.ConnectionString) ConnectionURL {
	c := ConnectionURL{
		User:     cs.User,
		Password: cs.Password,
		Database: cs.Database,
		Host:     cs.Server,
		Options:  map[string]string{},
	}
	// Server=host\instance names an instance.
	if host, instance, ok := strings.Cut(c.Host, `\`); ok {
		c.Host = host
		c.Options["instance"] = instance
	}
	if c.Host != "" && cs.Port > 0 {
		c.Host = net.JoinHostPort(c.Host, strconv.Itoa(cs.Port))
	}
	for k, v := range cs.Options {
		c.Options[k] = v
	}
	return c
}

func (c ConnectionURL) String() (s string) {
	if c.Database == "" {
		return ""
	}

	// Adding username.
	if c.User != "" {
		s = s + c.User
		// Adding password.
		if c.Password != "" {
			s = s + ":" + c.Password
		}
		s = s + "@"
	}

	// Adding protocol and address
	if c.Host == "" {
		c.Host = "127.0.0.1"
	}
	s = s + c.Host

	// Do we have any options?
	vv := url.Values{}
	for k, v := range c.Options {
		vv.Set(k, v)
	}

	// An instance goes in the path.
	if instance := vv.Get("instance"); instance != "" {
		vv.Del("instance")
		s = s + "/" + instance
	}

	vv.Set("database", c.Database)

	return connectionScheme + "://" + s + "?" + vv.Encode()
}

// ParseURL parses s into a ConnectionURL struct.
func ParseURL(s string) (conn ConnectionURL, err error) {
	var u *url.URL

	if !strings.HasPrefix(s, connectionScheme+"://") {
		return conn, errors.New(`expecting sqlserver:// connection scheme`)
	}

	if u, err = url.Parse(s); err != nil {
		return conn, err
	}

	conn.Host = u.Host
	if u.User != nil {
		conn.User = u.User.Username()
		conn.Password, _ = u.User.Password()
	}

	conn.Options = map[string]string{}
	for k, v := range u.Query() {
		if len(v) > 0 {
			conn.Options[k] = v[0]
		}
	}
	if instance := strings.Trim(u.Path, "/"); instance != "" {
		conn.Options["instance"] = instance
	}

	conn.Database = conn.Options["database"]
	delete(conn.Options, "database")

	return conn, nil
}
