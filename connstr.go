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
	"sort"
	"strconv"
	"strings"
)

// Well known connection string keys. Aliases are folded into these when
// parsing.
const (
	KeyServer      = "Server"
	KeyPort        = "Port"
	KeyDatabase    = "Database"
	KeyUser        = "User"
	KeyPassword    = "Password"
	KeyTablePrefix = "TablePrefix"
	KeyProvider    = "Provider"
)

var connStringAliases = map[string]string{
	"server":          KeyServer,
	"host":            KeyServer,
	"data source":     KeyServer,
	"address":         KeyServer,
	"port":            KeyPort,
	"database":        KeyDatabase,
	"initial catalog": KeyDatabase,
	"dbname":          KeyDatabase,
	"user":            KeyUser,
	"uid":             KeyUser,
	"user id":         KeyUser,
	"username":        KeyUser,
	"password":        KeyPassword,
	"pwd":             KeyPassword,
	"tableprefix":     KeyTablePrefix,
	"provider":        KeyProvider,
	"dbtype":          KeyProvider,
}

// ConnectionString is a parsed semicolon separated list of key=value pairs,
// like:
//
//	Server=localhost;Port=3306;Database=membership;User=root;Password=pass;TablePrefix=member_
//
// Well known keys are normalized; any other key is kept as-is and handed to the
// driver as an option.
type ConnectionString struct {
	Server      string
	Port        int
	Database    string
	User        string
	Password    string
	TablePrefix string
	Provider    string

	// Name is the connection name the string was registered under. It's not
	// part of the rendered string.
	Name string

	Options map[string]string
}

// ParseConnectionString parses s. Empty segments are ignored and later keys
// override earlier ones.
func ParseConnectionString(s string) ConnectionString {
	cs := ConnectionString{
		Options: map[string]string{},
	}
	for _, chunk := range strings.Split(s, ";") {
		chunk = strings.TrimSpace(chunk)
		if chunk == "" {
			continue
		}
		key, value, _ := strings.Cut(chunk, "=")
		cs.Set(strings.TrimSpace(key), strings.TrimSpace(value))
	}
	return cs
}

// Set assigns a value to the given key, folding known aliases.
func (cs *ConnectionString) Set(key, value string) {
	if cs.Options == nil {
		cs.Options = map[string]string{}
	}
	canonical, ok := connStringAliases[strings.ToLower(key)]
	if !ok {
		cs.Options[key] = value
		return
	}
	switch canonical {
	case KeyServer:
		cs.Server = value
	case KeyPort:
		cs.Port, _ = strconv.Atoi(value)
	case KeyDatabase:
		cs.Database = value
	case KeyUser:
		cs.User = value
	case KeyPassword:
		cs.Password = value
	case KeyTablePrefix:
		cs.TablePrefix = value
	case KeyProvider:
		cs.Provider = value
	}
}

// Option returns the value of a driver specific option, matching the key
// case-insensitively.
func (cs ConnectionString) Option(key string) (string, bool) {
	if v, ok := cs.Options[key]; ok {
		return v, true
	}
	for k, v := range cs.Options {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return "", false
}

// String renders the connection string back with a stable key order. The
// password is included.
func (cs ConnectionString) String() string {
	parts := make([]string, 0, 7+len(cs.Options))
	add := func(k, v string) {
		if v != "" {
			parts = append(parts, k+"="+v)
		}
	}
	add(KeyServer, cs.Server)
	if cs.Port > 0 {
		add(KeyPort, strconv.Itoa(cs.Port))
	}
	add(KeyDatabase, cs.Database)
	add(KeyUser, cs.User)
	add(KeyPassword, cs.Password)
	add(KeyTablePrefix, cs.TablePrefix)
	add(KeyProvider, cs.Provider)

	keys := make([]string, 0, len(cs.Options))
	for k := range cs.Options {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		add(k, cs.Options[k])
	}
	return strings.Join(parts, ";")
}
