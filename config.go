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
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// ConnectionConfig is what gets stored in the registry under a connection
// name. It is never mutated once registered; re-registering a name replaces
// it.
type ConnectionConfig struct {
	Name       string
	ConnString ConnectionString
	Kind       string
}

// TablePrefix returns the prefix applied to every logical table name on this
// connection.
func (c *ConnectionConfig) TablePrefix() string {
	return c.ConnString.TablePrefix
}

func newConnectionConfig(name, connString string, options map[string]string, kind string) (*ConnectionConfig, error) {
	if name == "" {
		return nil, ErrMissingConnName
	}
	if connString == "" {
		return nil, ErrMissingConnString
	}
	cs := ParseConnectionString(connString)
	for k, v := range options {
		cs.Set(k, v)
	}
	cs.Name = name
	if kind == "" {
		kind = cs.Provider
	}
	if kind == "" {
		return nil, fmt.Errorf("connection %q: %w", name, ErrMissingDriverKind)
	}
	return &ConnectionConfig{
		Name:       name,
		ConnString: cs,
		Kind:       kind,
	}, nil
}

type fileConfig struct {
	Connections map[string]struct {
		ConnString string            `yaml:"connstr"`
		Kind       string            `yaml:"kind"`
		Options    map[string]string `yaml:"options"`
	} `yaml:"connections"`
}

// LoadConfig reads connection definitions from a YAML document and registers
// every one of them.
//
// Example:
//
//	connections:
//	  main:
//	    kind: sqlite
//	    connstr: "Database=./data/main.db"
//	  member:
//	    kind: mysql
//	    connstr: "Server=localhost;Port=3306;Database=membership;User=root;Password=pass"
//	    options:
//	      TablePrefix: member_
func LoadConfig(r io.Reader) ([]string, error) {
	var conf fileConfig
	if err := yaml.NewDecoder(r).Decode(&conf); err != nil && err != io.EOF {
		return nil, fmt.Errorf("dal: parsing config: %w", err)
	}
	names := make([]string, 0, len(conf.Connections))
	for name, c := range conf.Connections {
		if err := Register(name, c.ConnString, c.Options, c.Kind); err != nil {
			return names, err
		}
		names = append(names, name)
	}
	return names, nil
}

// LoadConfigFile is like LoadConfig, but reads from a file.
func LoadConfigFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadConfig(f)
}
