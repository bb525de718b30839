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
	"sort"

	"github.com/upper/dal"
)

type BatchSuite struct {
	Suite
}

func (s *BatchSuite) seed(sess *dal.EntitySession, names ...string) map[string]int64 {
	t := sess.Type()
	items := make([]*dal.Entity, 0, len(names))
	for _, name := range names {
		items = append(items, NewRole(t, name, ""))
	}
	n, err := sess.BatchInsert(s.Ctx(), items)
	s.Require().NoError(err)
	s.Require().Equal(int64(len(names)), n)
	return s.ids(sess)
}

func (s *BatchSuite) ids(sess *dal.EntitySession) map[string]int64 {
	items, err := sess.FindAll(s.Ctx(), nil)
	s.Require().NoError(err)
	ids := map[string]int64{}
	for _, e := range items {
		ids[e.String("Name")] = e.ID()
	}
	return ids
}

func sortedNames(items []*dal.Entity) []string {
	names := Names(items)
	sort.Strings(names)
	return names
}

func (s *BatchSuite) TestInsertIgnoreSkipsConflicts() {
	t := NewRoleType(s.Register(nil))
	sess, err := t.Default()
	s.Require().NoError(err)

	before := s.seed(sess, "A", "B", "C")

	n, err := sess.BatchInsertIgnore(s.Ctx(), []*dal.Entity{NewRole(t, "A", "again"), NewRole(t, "D", "")})
	s.NoError(err)
	s.Equal(int64(1), n)

	items, err := sess.FindAll(s.Ctx(), nil)
	s.NoError(err)
	s.Equal([]string{"A", "B", "C", "D"}, sortedNames(items))

	after := s.ids(sess)
	s.Equal(before["A"], after["A"])

	a, err := sess.FindAll(s.Ctx(), dal.Cond{"Name": "A"})
	s.NoError(err)
	s.Require().Len(a, 1)
	s.Empty(a[0].String("Remark"))

	count, err := sess.Count(s.Ctx())
	s.NoError(err)
	s.Equal(int64(4), count)
}

func (s *BatchSuite) TestReplaceDeletesThenInserts() {
	t := NewRoleType(s.Register(nil))
	sess, err := t.Default()
	s.Require().NoError(err)

	before := s.seed(sess, "A", "B", "C")

	n, err := sess.BatchReplace(s.Ctx(), []*dal.Entity{NewRole(t, "A", "again"), NewRole(t, "D", "")})
	s.NoError(err)
	s.Equal(int64(3), n)

	items, err := sess.FindAll(s.Ctx(), nil)
	s.NoError(err)
	s.Equal([]string{"A", "B", "C", "D"}, sortedNames(items))

	after := s.ids(sess)
	s.NotEqual(before["A"], after["A"])
	s.Equal(before["B"], after["B"])
	s.Equal(before["C"], after["C"])

	a, err := sess.FindAll(s.Ctx(), dal.Cond{"Name": "A"})
	s.NoError(err)
	s.Require().Len(a, 1)
	s.Equal("again", a[0].String("Remark"))

	count, err := sess.Count(s.Ctx())
	s.NoError(err)
	s.Equal(int64(4), count)
}

func (s *BatchSuite) TestInsertFailsWholeBatch() {
	name := s.Register(nil)
	t := NewRoleType(name)
	sess, err := t.Default()
	s.Require().NoError(err)

	s.seed(sess, "A", "B", "C")

	_, err = sess.Batch(1).Insert(s.Ctx(), []*dal.Entity{NewRole(t, "D", ""), NewRole(t, "A", "")})
	s.Error(err)

	var constraintErr *dal.ConstraintError
	s.True(errors.As(err, &constraintErr))
	s.Equal(name, constraintErr.ConnName)
	s.Equal("Role", constraintErr.Table)

	items, err := sess.FindAll(s.Ctx(), nil)
	s.NoError(err)
	s.Equal([]string{"A", "B", "C"}, sortedNames(items))

	count, err := sess.Count(s.Ctx())
	s.NoError(err)
	s.Equal(int64(3), count)
}

func (s *BatchSuite) TestResultDoesNotDependOnBatchSize() {
	type result struct {
		affected []int64
		names    []string
		remarks  map[string]string
	}

	run := func(prefix string, size int) result {
		t := NewRoleType(s.Register(map[string]string{"TablePrefix": prefix}))
		sess, err := t.Default()
		s.Require().NoError(err)

		w := sess.Batch(size)
		res := result{remarks: map[string]string{}}

		n, err := w.Insert(s.Ctx(), []*dal.Entity{NewRole(t, "A", "1"), NewRole(t, "B", "1"), NewRole(t, "C", "1")})
		s.Require().NoError(err)
		res.affected = append(res.affected, n)

		n, err = w.InsertIgnore(s.Ctx(), []*dal.Entity{NewRole(t, "B", "2"), NewRole(t, "D", "2"), NewRole(t, "D", "3"), NewRole(t, "E", "2")})
		s.Require().NoError(err)
		res.affected = append(res.affected, n)

		n, err = w.Replace(s.Ctx(), []*dal.Entity{NewRole(t, "A", "4"), NewRole(t, "F", "4"), NewRole(t, "F", "5"), NewRole(t, "C", "4")})
		s.Require().NoError(err)
		res.affected = append(res.affected, n)

		items, err := sess.FindAll(s.Ctx(), nil)
		s.Require().NoError(err)
		res.names = sortedNames(items)
		for _, e := range items {
			res.remarks[e.String("Name")] = e.String("Remark")
		}

		count, err := sess.Count(s.Ctx())
		s.Require().NoError(err)
		s.Equal(int64(len(items)), count)
		return res
	}

	one := run("a_", 1)
	all := run("b_", 100)

	s.Equal([]int64{3, 2, 7}, all.affected)
	s.Equal(all, one)
	s.Equal([]string{"A", "B", "C", "D", "E", "F"}, all.names)
	s.Equal(map[string]string{"A": "4", "B": "1", "C": "4", "D": "2", "E": "2", "F": "5"}, all.remarks)
}

func (s *BatchSuite) TestReplaceWithoutUniqueKeyInserts() {
	name := s.Register(nil)
	t := dal.NewEntityType("Log", LogTable()).SetConnName(name)
	sess, err := t.Default()
	s.Require().NoError(err)

	n, err := sess.BatchInsert(s.Ctx(), []*dal.Entity{t.New().Set("Message", "hello")})
	s.NoError(err)
	s.Equal(int64(1), n)

	n, err = sess.BatchReplace(s.Ctx(), []*dal.Entity{t.New().Set("Message", "hello"), t.New().Set("Message", "world")})
	s.NoError(err)
	s.Equal(int64(2), n)

	count, err := sess.Count(s.Ctx())
	s.NoError(err)
	s.Equal(int64(3), count)
}

func (s *BatchSuite) TestInsertIgnoreKeepsOtherErrors() {
	t := NewRoleType(s.Register(nil))
	sess, err := t.Default()
	s.Require().NoError(err)

	s.seed(sess, "A")

	_, err = sess.BatchInsertIgnore(s.Ctx(), []*dal.Entity{NewRole(t, "A", ""), t.New().Set("Name", nil)})
	s.Error(err)

	var backendErr *dal.BackendError
	s.True(errors.As(err, &backendErr))

	count, err := sess.Count(s.Ctx())
	s.NoError(err)
	s.Equal(int64(1), count)
}

func (s *BatchSuite) TestUnknownPolicy() {
	t := NewRoleType(s.Register(nil))
	sess, err := t.Default()
	s.Require().NoError(err)

	_, err = sess.Batch(0).Write(s.Ctx(), dal.Policy(42), []*dal.Entity{NewRole(t, "A", "")})
	s.True(errors.Is(err, dal.ErrUnknownPolicy))
}

// Declare Role, insert three roles, then insert-ignore two roles, one of
// which conflicts. Start over with the same three roles and replace two
// roles, one of which conflicts.
func (s *BatchSuite) TestEndToEnd() {
	name := s.Register(nil)
	t := NewRoleType(name, &dal.TraceModule{})

	d := s.Resolve(name)
	s.NoError(d.SetTables(s.Ctx(), t.Table))

	sess, err := t.Default()
	s.Require().NoError(err)

	ctx := dal.ContextWithTraceID(s.Ctx(), "trace1")
	initial := func() []*dal.Entity {
		return []*dal.Entity{NewRole(t, "管理员", ""), NewRole(t, "高级用户", ""), NewRole(t, "普通用户", "")}
	}

	n, err := sess.BatchInsert(ctx, initial())
	s.NoError(err)
	s.Equal(int64(3), n)

	n, err = sess.BatchInsertIgnore(ctx, []*dal.Entity{NewRole(t, "管理员", ""), NewRole(t, "游客", "")})
	s.NoError(err)
	s.Equal(int64(1), n)

	count, err := sess.Count(s.Ctx())
	s.NoError(err)
	s.Equal(int64(4), count)

	s.NoError(sess.Truncate(s.Ctx()))

	n, err = sess.BatchInsert(ctx, initial())
	s.NoError(err)
	s.Equal(int64(3), n)

	before := s.ids(sess)

	n, err = sess.BatchReplace(ctx, []*dal.Entity{NewRole(t, "管理员", ""), NewRole(t, "游客", "")})
	s.NoError(err)
	s.Equal(int64(3), n)

	count, err = sess.Count(s.Ctx())
	s.NoError(err)
	s.Equal(int64(4), count)

	items, err := sess.FindAll(s.Ctx(), nil)
	s.NoError(err)
	s.Len(items, 4)

	after := s.ids(sess)
	s.NotEqual(before["管理员"], after["管理员"])
	s.Equal(before["高级用户"], after["高级用户"])

	for _, e := range items {
		s.Equal("trace1", e.String("TraceId"))
	}
}
