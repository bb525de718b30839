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
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	doc := `
connections:
  cfg_main:
    kind: fake
    connstr: "Database=main"
  cfg_member:
    connstr: "Database=membership;Provider=fake"
    options:
      TablePrefix: member_
`
	names, err := LoadConfig(strings.NewReader(doc))
	require.NoError(t, err)
	defer func() {
		for _, name := range names {
			_ = Unregister(name)
		}
	}()

	sort.Strings(names)
	assert.Equal(t, []string{"cfg_main", "cfg_member"}, names)

	d, err := Resolve("cfg_member")
	require.NoError(t, err)
	assert.Equal(t, "fake", d.Kind())
	assert.Equal(t, "member_", d.TablePrefix())
	assert.Equal(t, "membership", d.DatabaseName())
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(strings.NewReader("connections: [1, 2"))
	assert.Error(t, err)

	_, err = LoadConfig(strings.NewReader(`
connections:
  cfg_nokind:
    connstr: "Database=main"
`))
	assert.ErrorIs(t, err, ErrMissingDriverKind)

	names, err := LoadConfig(strings.NewReader(""))
	assert.NoError(t, err)
	assert.Empty(t, names)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dal.yml")
	require.NoError(t, os.WriteFile(path, []byte("connections:\n  cfg_file:\n    kind: fake\n    connstr: Database=file\n"), 0o600))

	names, err := LoadConfigFile(path)
	require.NoError(t, err)
	defer Unregister("cfg_file")
	assert.Equal(t, []string{"cfg_file"}, names)

	_, err = LoadConfigFile(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}
