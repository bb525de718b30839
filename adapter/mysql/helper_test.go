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
	"database/sql"
	"fmt"
	"os"
	"strings"

	"github.com/upper/dal/internal/testsuite"
)

var settings = ConnectionURL{
	Database: os.Getenv("DB_NAME"),
	User:     os.Getenv("DB_USERNAME"),
	Password: os.Getenv("DB_PASSWORD"),
	Host:     os.Getenv("DB_HOST") + ":" + os.Getenv("DB_PORT"),
}

type Helper struct{}

func (h *Helper) Kind() string {
	return Kind
}

func (h *Helper) connString(user, password string) string {
	parts := []string{
		"Server=" + os.Getenv("DB_HOST"),
		"Port=" + os.Getenv("DB_PORT"),
		"Database=" + settings.Database,
		"User=" + user,
		"Password=" + password,
	}
	return strings.Join(parts, ";")
}

func (h *Helper) ConnString() string {
	return h.connString(settings.User, settings.Password)
}

func (h *Helper) BadConnString() string {
	return h.connString(settings.User, settings.Password+"-wrong")
}

func (h *Helper) TearUp() error {
	sess, err := sql.Open("mysql", settings.String())
	if err != nil {
		return err
	}
	defer sess.Close()

	for _, table := range testsuite.Tables {
		if _, err := sess.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s", template.Quote(table))); err != nil {
			return err
		}
	}
	return nil
}

func (h *Helper) TearDown() error {
	return nil
}

var _ testsuite.Helper = &Helper{}
