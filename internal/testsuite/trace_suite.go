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
	"strings"

	"github.com/upper/dal"
)

type TraceSuite struct {
	Suite
}

func (s *TraceSuite) TestTraceIdIsMergedOnEverySave() {
	t := NewRoleType(s.Register(nil), &dal.TraceModule{})
	sess, err := t.Default()
	s.Require().NoError(err)

	e := NewRole(t, "管理员", "")
	s.NoError(sess.Insert(dal.ContextWithTraceID(s.Ctx(), "t1"), e))
	s.Equal("t1", e.String("TraceId"))

	stored, err := sess.FindByID(s.Ctx(), e.ID())
	s.Require().NoError(err)
	s.Equal("t1", stored.String("TraceId"))

	stored.Set("Remark", "全部权限")
	s.False(stored.IsDirty("TraceId"))
	_, err = sess.Update(dal.ContextWithTraceID(s.Ctx(), "t2"), stored)
	s.NoError(err)
	s.Equal("t1,t2", stored.String("TraceId"))

	// Same trace again: the ledger is left alone.
	stored.Set("Remark", "部分权限")
	_, err = sess.Update(dal.ContextWithTraceID(s.Ctx(), "t1"), stored)
	s.NoError(err)

	stored, err = sess.FindByID(s.Ctx(), e.ID())
	s.Require().NoError(err)
	s.Equal("t1,t2", stored.String("TraceId"))
	s.Equal("部分权限", stored.String("Remark"))
}

func (s *TraceSuite) TestUnchangedUpdateKeepsTraceId() {
	t := NewRoleType(s.Register(nil), &dal.TraceModule{})
	sess, err := t.Default()
	s.Require().NoError(err)

	e := NewRole(t, "管理员", "")
	s.NoError(sess.Insert(dal.ContextWithTraceID(s.Ctx(), "t1"), e))

	stored, err := sess.FindByID(s.Ctx(), e.ID())
	s.Require().NoError(err)

	n, err := sess.Update(dal.ContextWithTraceID(s.Ctx(), "t2"), stored)
	s.NoError(err)
	s.Zero(n)
	s.Equal("t1", stored.String("TraceId"))

	stored, err = sess.FindByID(s.Ctx(), e.ID())
	s.Require().NoError(err)
	s.Equal("t1", stored.String("TraceId"))
}

func (s *TraceSuite) TestLedgerIsBounded() {
	t := NewRoleType(s.Register(nil), &dal.TraceModule{})
	sess, err := t.Default()
	s.Require().NoError(err)

	ids := []string{
		strings.Repeat("a", 20),
		strings.Repeat("b", 20),
		strings.Repeat("c", 20),
	}

	e := NewRole(t, "管理员", "")
	s.NoError(sess.Insert(dal.ContextWithTraceID(s.Ctx(), ids[0]), e))

	for i, id := range ids[1:] {
		e.Set("Remark", id)
		_, err := sess.Update(dal.ContextWithTraceID(s.Ctx(), id), e)
		s.NoError(err)
		s.LessOrEqual(len(e.String("TraceId")), 50)
		s.True(strings.HasSuffix(e.String("TraceId"), id), "iteration %d", i)
	}

	stored, err := sess.FindByID(s.Ctx(), e.ID())
	s.Require().NoError(err)
	s.Equal(ids[1]+","+ids[2], stored.String("TraceId"))
}

func (s *TraceSuite) TestNoAmbientTrace() {
	t := NewRoleType(s.Register(nil), &dal.TraceModule{})
	sess, err := t.Default()
	s.Require().NoError(err)

	e := NewRole(t, "管理员", "")
	s.NoError(sess.Insert(s.Ctx(), e))

	stored, err := sess.FindByID(s.Ctx(), e.ID())
	s.Require().NoError(err)
	s.Empty(stored.String("TraceId"))
}
