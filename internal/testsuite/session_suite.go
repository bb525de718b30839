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
	"context"
	"errors"
	"time"

	"github.com/upper/dal"
)

type vetoModule struct {
	calls int
}

func (m *vetoModule) Init(t *dal.EntityType) bool {
	return true
}

func (m *vetoModule) Valid(ctx context.Context, e *dal.Entity, isNew bool) bool {
	m.calls++
	return e.String("Name") != "forbidden"
}

type SessionSuite struct {
	Suite
}

func (s *SessionSuite) TestInsertAndFind() {
	t := NewRoleType(s.Register(nil))
	sess, err := t.Default()
	s.Require().NoError(err)

	for _, name := range RoleNames[:3] {
		e := NewRole(t, name, "")
		s.True(e.IsNew())
		s.NoError(sess.Insert(s.Ctx(), e))
		s.False(e.IsNew())
		s.False(e.HasDirty())
		s.NotZero(e.ID())
	}

	n, err := sess.Count(s.Ctx())
	s.NoError(err)
	s.Equal(int64(3), n)

	items, err := sess.FindAll(s.Ctx(), nil)
	s.NoError(err)
	s.Equal(RoleNames[:3], Names(items))
	for i := 1; i < len(items); i++ {
		s.Greater(items[i].ID(), items[i-1].ID())
	}

	items, err = sess.FindAll(s.Ctx(), dal.Cond{"Name": RoleNames[1]})
	s.NoError(err)
	s.Require().Len(items, 1)

	e, err := sess.FindByID(s.Ctx(), items[0].ID())
	s.NoError(err)
	s.Equal(RoleNames[1], e.String("Name"))
	s.False(e.IsNew())

	_, err = sess.FindByID(s.Ctx(), 9999)
	s.True(errors.Is(err, dal.ErrNoMoreRows))

	items, err = sess.FindAll(s.Ctx(), dal.Cond{"Remark": nil})
	s.NoError(err)
	s.Len(items, 3)
}

func (s *SessionSuite) TestSearch() {
	t := NewRoleType(s.Register(nil))
	sess, err := t.Default()
	s.Require().NoError(err)

	_, err = sess.InitData(s.Ctx())
	s.NoError(err)

	items, err := sess.Search(s.Ctx(), "用户", nil)
	s.NoError(err)
	s.Equal([]string{"高级用户", "普通用户"}, Names(items))

	items, err = sess.Search(s.Ctx(), "用户", dal.Cond{"Name": "普通用户"})
	s.NoError(err)
	s.Len(items, 1)

	items, err = sess.Search(s.Ctx(), "", nil)
	s.NoError(err)
	s.Len(items, len(RoleNames))

	items, err = sess.Search(s.Ctx(), "nobody", nil)
	s.NoError(err)
	s.Empty(items)
}

func (s *SessionSuite) TestInitDataSeedsOnlyEmptyTables() {
	t := NewRoleType(s.Register(nil))
	sess, err := t.Default()
	s.Require().NoError(err)

	n, err := sess.InitData(s.Ctx())
	s.NoError(err)
	s.Equal(len(RoleNames), n)

	n, err = sess.InitData(s.Ctx())
	s.NoError(err)
	s.Zero(n)

	count, err := sess.Count(s.Ctx())
	s.NoError(err)
	s.Equal(int64(len(RoleNames)), count)
}

func (s *SessionSuite) TestTruncateResetsIdentity() {
	t := NewRoleType(s.Register(nil))
	sess, err := t.Default()
	s.Require().NoError(err)

	_, err = sess.InitData(s.Ctx())
	s.NoError(err)

	s.NoError(sess.Truncate(s.Ctx()))

	n, err := sess.Count(s.Ctx())
	s.NoError(err)
	s.Zero(n)

	items, err := sess.FindAll(s.Ctx(), nil)
	s.NoError(err)
	s.Empty(items)

	e := NewRole(t, "管理员", "")
	s.NoError(sess.Insert(s.Ctx(), e))
	s.Equal(int64(1), e.ID())
}

func (s *SessionSuite) TestUpdateAndDelete() {
	t := NewRoleType(s.Register(nil))
	sess, err := t.Default()
	s.Require().NoError(err)

	e := NewRole(t, "管理员", "")
	s.NoError(sess.Insert(s.Ctx(), e))

	e.Set("Remark", "全部权限")
	s.True(e.IsDirty("Remark"))

	n, err := sess.Update(s.Ctx(), e)
	s.NoError(err)
	s.Equal(int64(1), n)
	s.False(e.HasDirty())

	// Nothing changed.
	n, err = sess.Update(s.Ctx(), e)
	s.NoError(err)
	s.Zero(n)

	stored, err := sess.FindByID(s.Ctx(), e.ID())
	s.NoError(err)
	s.Equal("全部权限", stored.String("Remark"))

	stored.Set("Remark", "全部权限")
	s.False(stored.HasDirty())

	stored.Set("Remark", "部分权限")
	s.NoError(sess.Save(s.Ctx(), stored))

	n, err = sess.Delete(s.Ctx(), stored)
	s.NoError(err)
	s.Equal(int64(1), n)

	count, err := sess.Count(s.Ctx())
	s.NoError(err)
	s.Zero(count)
}

func (s *SessionSuite) TestValidationError() {
	veto := &vetoModule{}
	t := NewRoleType(s.Register(nil), veto)
	sess, err := t.Default()
	s.Require().NoError(err)

	s.NoError(sess.Insert(s.Ctx(), NewRole(t, "管理员", "")))

	err = sess.Insert(s.Ctx(), NewRole(t, "forbidden", ""))
	var validationErr *dal.ValidationError
	s.True(errors.As(err, &validationErr))
	s.Equal("Role", validationErr.EntityType)
	s.True(validationErr.IsNew)

	_, err = sess.BatchInsert(s.Ctx(), []*dal.Entity{NewRole(t, "游客", ""), NewRole(t, "forbidden", "")})
	s.True(errors.As(err, &validationErr))

	n, err := sess.Count(s.Ctx())
	s.NoError(err)
	s.Equal(int64(1), n)
	s.Equal(4, veto.calls)
}

func (s *SessionSuite) TestEntityTypeMismatch() {
	name := s.Register(nil)
	roles := NewRoleType(name)
	others := NewRoleType(name)

	sess, err := roles.Default()
	s.Require().NoError(err)

	err = sess.Insert(s.Ctx(), NewRole(others, "管理员", ""))
	s.True(errors.Is(err, dal.ErrEntityTypeMismatch))

	s.True(errors.Is(sess.Insert(s.Ctx(), nil), dal.ErrNilEntity))
}

func (s *SessionSuite) TestSessionIsCachedPerConnection() {
	name := s.Register(nil)
	t := NewRoleType(name)

	a, err := t.Session(name)
	s.NoError(err)
	b, err := t.Default()
	s.NoError(err)
	s.Same(a, b)

	other := s.Register(nil)
	c, err := t.Session(other)
	s.NoError(err)
	s.NotSame(a, c)

	_, err = t.Session("does_not_exist")
	s.True(errors.Is(err, dal.ErrUnknownConnection))
}

func (s *SessionSuite) TestTimeModule() {
	now := time.Date(2024, 10, 1, 8, 0, 0, 0, time.UTC)
	t := NewRoleType(s.Register(nil), &dal.TimeModule{Now: func() time.Time { return now }})
	sess, err := t.Default()
	s.Require().NoError(err)

	e := NewRole(t, "管理员", "")
	s.NoError(sess.Insert(s.Ctx(), e))
	s.Equal(now, e.Get("CreateTime"))
	s.Equal(now, e.Get("UpdateTime"))

	stored, err := sess.FindByID(s.Ctx(), e.ID())
	s.NoError(err)
	s.NotNil(stored.Get("CreateTime"))
}
