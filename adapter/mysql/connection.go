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

package mysql

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/upper/dal"
)

// ConnectionURL implements a MySQL connection struct.
type ConnectionURL struct {
	User     string
	Password string
	Database string
	Host     string
	Socket   string
	Options  map[string]string
}

// FromConnectionString maps a connection string onto a ConnectionURL. Keys
// that aren't well known are passed to the driver as DSN parameters.
func FromConnectionString(cs dal.ConnectionString) ConnectionURL {
	c := ConnectionURL{
		User:     cs.User,
		Password: cs.Password,
		Database: cs.Database,
		Options:  map[string]string{},
	}
	if strings.HasPrefix(cs.Server, "/") {
		c.Socket = cs.Server
	} else if cs.Server != "" {
		c.Host = cs.Server
		if cs.Port > 0 {
			c.Host = net.JoinHostPort(cs.Server, strconv.Itoa(cs.Port))
		}
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
	if c.Socket != "" {
		s = s + fmt.Sprintf("unix(%s)", c.Socket)
	} else if c.Host != "" {
		host, port, err := net.SplitHostPort(c.Host)
		if err != nil {
			host = c.Host
			port = "3306"
		}
		s = s + fmt.Sprintf("tcp(%s:%s)", host, port)
	}

	// Adding database
	s = s + "/" + c.Database

	// Do we have any options?
	if c.Options == nil {
		c.Options = map[string]string{}
	}

	// Default options.
	if _, ok := c.Options["charset"]; !ok {
		c.Options["charset"] = "utf8"
	}

	if _, ok := c.Options["parseTime"]; !ok {
		c.Options["parseTime"] = "true"
	}

	// Converting options into URL values.
	vv := url.Values{}

	for k, v := range c.Options {
		vv.Set(k, v)
	}

	// Inserting options.
	if p := vv.Encode(); p != "" {
		s = s + "?" + p
	}

	return s
}

// ParseURL parses s into a ConnectionURL struct.
func ParseURL(s string) (conn ConnectionURL, err error) {
	var cfg *mysql.Config

	if cfg, err = mysql.ParseDSN(s); err != nil {
		return
	}

	conn.User = cfg.User
	conn.Password = cfg.Passwd

	if cfg.Net == "unix" {
		conn.Socket = cfg.Addr
	} else if cfg.Net == "tcp" {
		conn.Host = cfg.Addr
	}

	conn.Database = cfg.DBName

	conn.Options = map[string]string{}

	// The driver keeps some parameters, like charset, to itself.
	if i := strings.IndexByte(s, '?'); i >= 0 {
		var vv url.Values
		if vv, err = url.ParseQuery(s[i+1:]); err != nil {
			return
		}
		for k := range vv {
			conn.Options[k] = vv.Get(k)
		}
	}

	return
}
