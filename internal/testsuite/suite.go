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

// Package testsuite holds the backend-agnostic test suites every adapter
// runs against its own database.
package testsuite

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"
	"github.com/upper/dal"
)

// Tables lists every table the suites may create. Helpers drop them in
// TearUp.
var Tables = []string{
	"Role",
	"member_Role",
	"a_Role",
	"b_Role",
	"Role_2024",
	"Role_2025",
	"Log",
}

// Helper prepares a database for the suites.
type Helper interface {
	// Kind returns the backend kind under test.
	Kind() string

	// ConnString returns a connection string to the test database.
	ConnString() string

	// BadConnString returns a connection string that can't be opened.
	BadConnString() string

	// TearUp leaves the test database without any of the Tables.
	TearUp() error

	TearDown() error
}

var connSeq uint64

type Suite struct {
	suite.Suite

	Helper

	conns    []string
	logLevel dal.LogLevel
}

func (s *Suite) SetupSuite() {
	s.logLevel = dal.LC().Level()

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)
	dal.LC().SetLogger(logger)
}

func (s *Suite) TearDownSuite() {
	dal.LC().SetLogger(nil)
	dal.LC().SetLevel(s.logLevel)
}

func (s *Suite) BeforeTest(suiteName, testName string) {
	err := s.TearUp()
	s.NoError(err)
}

func (s *Suite) AfterTest(suiteName, testName string) {
	for _, name := range s.conns {
		s.NoError(dal.Unregister(name))
	}
	s.conns = nil

	err := s.TearDown()
	s.NoError(err)
}

// Ctx returns the context tests run with.
func (s *Suite) Ctx() context.Context {
	return context.Background()
}

// Register registers a connection to the test database under a new name.
func (s *Suite) Register(options map[string]string) string {
	name := fmt.Sprintf("%s_%d", s.Kind(), atomic.AddUint64(&connSeq, 1))
	s.Require().NoError(dal.Register(name, s.ConnString(), options, s.Kind()))
	s.conns = append(s.conns, name)
	return name
}

// Resolve returns the DAL of a connection registered with Register.
func (s *Suite) Resolve(name string) *dal.DAL {
	d, err := dal.Resolve(name)
	s.Require().NoError(err)
	return d
}

// Run runs every suite with the given helper.
func Run(t *testing.T, h Helper) {
	t.Run("DAL", func(t *testing.T) {
		suite.Run(t, &DALSuite{Suite: Suite{Helper: h}})
	})
	t.Run("Schema", func(t *testing.T) {
		suite.Run(t, &SchemaSuite{Suite: Suite{Helper: h}})
	})
	t.Run("Session", func(t *testing.T) {
		suite.Run(t, &SessionSuite{Suite: Suite{Helper: h}})
	})
	t.Run("Batch", func(t *testing.T) {
		suite.Run(t, &BatchSuite{Suite: Suite{Helper: h}})
	})
	t.Run("Split", func(t *testing.T) {
		suite.Run(t, &SplitSuite{Suite: Suite{Helper: h}})
	})
	t.Run("Trace", func(t *testing.T) {
		suite.Run(t, &TraceSuite{Suite: Suite{Helper: h}})
	})
}
