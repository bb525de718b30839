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
	"sync"

	detectrace "github.com/ipfs/go-detect-race"
	"github.com/upper/dal"
)

type DALSuite struct {
	Suite
}

func (s *DALSuite) TestResolveReturnsSingleInstance() {
	name := s.Register(nil)

	limit := 200
	if detectrace.WithRace() {
		limit = 20
	}

	var wg sync.WaitGroup
	instances := make([]*dal.DAL, limit)
	for i := 0; i < limit; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			d, err := dal.Resolve(name)
			s.NoError(err)
			instances[i] = d
		}(i)
	}
	wg.Wait()

	for i := range instances {
		s.Same(instances[0], instances[i])
	}
	s.Equal(name, instances[0].Name())
	s.Equal(s.Kind(), instances[0].Kind())
}

func (s *DALSuite) TestRegisterAgainReplacesInstance() {
	name := s.Register(nil)
	d1 := s.Resolve(name)

	_, err := d1.ServerVersion(s.Ctx())
	s.NoError(err)

	s.NoError(dal.Register(name, s.ConnString(), nil, s.Kind()))
	d2 := s.Resolve(name)
	s.NotSame(d1, d2)

	_, err = d1.Execute(s.Ctx(), "SELECT 1")
	s.True(errors.Is(err, dal.ErrClosed))

	_, err = d2.ServerVersion(s.Ctx())
	s.NoError(err)
}

func (s *DALSuite) TestResolveUnknown() {
	_, err := dal.Resolve("does_not_exist")
	s.True(errors.Is(err, dal.ErrUnknownConnection))
}

func (s *DALSuite) TestServerVersion() {
	d := s.Resolve(s.Register(nil))

	version, err := d.ServerVersion(s.Ctx())
	s.NoError(err)
	s.NotEmpty(version)

	again, err := d.ServerVersion(s.Ctx())
	s.NoError(err)
	s.Equal(version, again)

	s.NotEmpty(d.DatabaseName())
}

func (s *DALSuite) TestQueryAndExecute() {
	d := s.Resolve(s.Register(nil))
	s.NoError(d.SetTables(s.Ctx(), LogTable()))

	table := d.Dialect().Quote("Log")
	column := d.Dialect().Quote("Message")

	n, err := d.Execute(s.Ctx(), "INSERT INTO "+table+" ("+column+") VALUES ("+d.Dialect().Placeholder(1)+")", "hello")
	s.NoError(err)
	s.Equal(int64(1), n)

	dt, err := d.Query(s.Ctx(), "SELECT "+column+" FROM "+table)
	s.NoError(err)
	s.Equal(1, dt.Count())
	s.Equal("hello", dt.Get(0, "Message"))

	maps := dt.Maps()
	s.Len(maps, 1)

	buf, err := dt.MarshalJSON()
	s.NoError(err)
	s.JSONEq(`[{"Message":"hello"}]`, string(buf))
}

func (s *DALSuite) TestBackendError() {
	name := s.Register(nil)
	d := s.Resolve(name)

	_, err := d.Query(s.Ctx(), "SELECT * FROM "+d.Dialect().Quote("no_such_table"))
	s.Error(err)

	var backendErr *dal.BackendError
	s.True(errors.As(err, &backendErr))
	s.Equal(name, backendErr.ConnName)
	s.NotNil(backendErr.Err)
	s.Contains(err.Error(), backendErr.Err.Error())
}

func (s *DALSuite) TestConnectionError() {
	name := s.Register(nil)
	s.NoError(dal.Register(name, s.BadConnString(), nil, s.Kind()))

	d := s.Resolve(name)
	_, err := d.ServerVersion(s.Ctx())
	s.Error(err)

	var connErr *dal.ConnectionError
	s.True(errors.As(err, &connErr))
	s.Equal(name, connErr.ConnName)
	s.Equal(s.Kind(), connErr.Kind)
}
