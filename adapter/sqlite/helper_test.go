// Copyright (c) 2012-today The upper.io/db authors. All rights reserved.
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
	"os"
	"path/filepath"

	"github.com/upper/dal/internal/testsuite"
)

// Helper gives every test a database file of its own.
type Helper struct {
	dir string
}

func (h *Helper) Kind() string {
	return Kind
}

func (h *Helper) ConnString() string {
	return "Database=" + filepath.Join(h.dir, "dal.db")
}

func (h *Helper) BadConnString() string {
	return "Database=/nonexistent/dir/dal.db"
}

func (h *Helper) TearUp() error {
	dir, err := os.MkdirTemp("", "dal-sqlite-")
	if err != nil {
		return err
	}
	h.dir = dir
	return nil
}

func (h *Helper) TearDown() error {
	if h.dir == "" {
		return nil
	}
	defer func() { h.dir = "" }()
	return os.RemoveAll(h.dir)
}

var _ testsuite.Helper = &Helper{}
