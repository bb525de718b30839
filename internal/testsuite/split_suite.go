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

package testsuite

import (
	"errors"

	"github.com/upper/dal"
)

type SplitSuite struct {
	Suite
}

func (s *SplitSuite) countRows(d *dal.DAL, table string) int64 {
	dt, err := d.Query(s.Ctx(), "SELECT COUNT(*) AS n FROM "+d.Dialect().Quote(table))
	s.Require().NoError(err)
	s.Require().Equal(1, dt.Count())

	switch n := dt.Get(0, "n").(type) {
	case int64:
		return n
	case int32:
		return int64(n)
	case int:
		return int64(n)
	}
	s.Failf("unexpected count type", "%T", dt.Get(0, "n"))
	return 0
}

func (s *SplitSuite) TestSplitRedirectsSessions() {
	name := s.Register(nil)
	d := s.Resolve(name)
	t := NewRoleType(name)

	sess, err := t.Default()
	s.Require().NoError(err)
	s.NoError(sess.Insert(s.Ctx(), NewRole(t, "管理员", "")))

	sp, err := t.CreateSplit(s.Ctx(), name, "Role_2024")
	s.Require().NoError(err)
	s.Same(sp, t.Active())

	split, err := t.Default()
	s.Require().NoError(err)
	table, err := split.TableName()
	s.NoError(err)
	s.Equal("Role_2024", table)

	n, err := split.BatchInsert(s.Ctx(), []*dal.Entity{NewRole(t, "高级用户", ""), NewRole(t, "普通用户", "")})
	s.NoError(err)
	s.Equal(int64(2), n)

	count, err := split.Count(s.Ctx())
	s.NoError(err)
	s.Equal(int64(2), count)

	items, err := split.FindAll(s.Ctx(), nil)
	s.NoError(err)
	s.Equal([]string{"高级用户", "普通用户"}, Names(items))

	s.NoError(sp.Close())
	s.Nil(t.Active())

	sess, err = t.Default()
	s.Require().NoError(err)
	table, err = sess.TableName()
	s.NoError(err)
	s.Equal("Role", table)

	count, err = sess.Count(s.Ctx())
	s.NoError(err)
	s.Equal(int64(1), count)

	// The split table is kept.
	s.Equal(int64(2), s.countRows(d, "Role_2024"))
}

func (s *SplitSuite) TestNestedSplitConflicts() {
	name := s.Register(nil)
	t := NewRoleType(name)

	sp, err := t.CreateSplit(s.Ctx(), name, "Role_2024")
	s.Require().NoError(err)

	_, err = t.CreateSplit(s.Ctx(), name, "Role_2025")
	s.Error(err)

	var conflict *dal.SplitConflictError
	s.True(errors.As(err, &conflict))
	s.Equal("Role", conflict.EntityType)
	s.Equal("Role_2024", conflict.Active)
	s.Equal("Role_2025", conflict.Requested)
	s.Same(sp, t.Active())

	s.NoError(sp.Close())
	s.NoError(sp.Close())

	sp, err = t.CreateSplit(s.Ctx(), name, "Role_2025")
	s.NoError(err)
	s.NoError(sp.Close())
}

func (s *SplitSuite) TestSplitReusesExistingTable() {
	name := s.Register(nil)
	t := NewRoleType(name)

	err := t.WithSplit(s.Ctx(), name, "Role_2024", func(sess *dal.EntitySession) error {
		return sess.Insert(s.Ctx(), NewRole(t, "管理员", ""))
	})
	s.NoError(err)

	err = t.WithSplit(s.Ctx(), name, "Role_2024", func(sess *dal.EntitySession) error {
		count, err := sess.Count(s.Ctx())
		s.NoError(err)
		s.Equal(int64(1), count)

		// Constraints are cloned along with the columns.
		n, err := sess.BatchInsertIgnore(s.Ctx(), []*dal.Entity{NewRole(t, "管理员", "")})
		s.NoError(err)
		s.Zero(n)
		return nil
	})
	s.NoError(err)
}

func (s *SplitSuite) TestWithSplitReleasesOnError() {
	name := s.Register(nil)
	t := NewRoleType(name)

	errBoom := errors.New("boom")
	err := t.WithSplit(s.Ctx(), name, "Role_2024", func(sess *dal.EntitySession) error {
		s.NotNil(t.Active())
		return errBoom
	})
	s.True(errors.Is(err, errBoom))
	s.Nil(t.Active())
}

func (s *SplitSuite) TestSplitWithPrefix() {
	name := s.Register(map[string]string{"TablePrefix": "member_"})
	d := s.Resolve(name)
	t := NewRoleType(name)

	sess, err := t.Default()
	s.Require().NoError(err)
	s.NoError(sess.Insert(s.Ctx(), NewRole(t, "管理员", "")))

	err = t.WithSplit(s.Ctx(), "", "Role_2024", func(sess *dal.EntitySession) error {
		return sess.Insert(s.Ctx(), NewRole(t, "游客", ""))
	})
	s.NoError(err)

	s.Equal(int64(1), s.countRows(d, "member_Role"))
	s.Equal(int64(1), s.countRows(d, "Role_2024"))
}
