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
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func captureLogs(t *testing.T, level LogLevel) *bytes.Buffer {
	buf := &bytes.Buffer{}
	logger := logrus.New()
	logger.Out = buf
	logger.Formatter = &logrus.TextFormatter{DisableTimestamp: true, DisableQuote: true}

	prev := LC().Level()
	LC().SetLogger(logger)
	LC().SetLevel(level)
	t.Cleanup(func() {
		LC().SetLogger(nil)
		LC().SetLevel(prev)
	})
	return buf
}

func TestLogLevels(t *testing.T) {
	buf := captureLogs(t, LogLevelWarn)

	LC().Debugf("hidden %d", 1)
	LC().Info("hidden")
	assert.Empty(t, buf.String())

	LC().Warnf("visible %d", 2)
	assert.Contains(t, buf.String(), "WARNING")
	assert.Contains(t, buf.String(), "visible 2")

	assert.True(t, LC().Enabled(LogLevelError))
	assert.False(t, LC().Enabled(LogLevelInfo))
}

func TestLogQuery(t *testing.T) {
	buf := captureLogs(t, LogLevelDebug)

	start := time.Now()
	LC().LogQuery(&QueryStatus{ConnName: "main", Query: "SELECT 1", Start: start, End: start})
	assert.Contains(t, buf.String(), "DEBUG")
	assert.Contains(t, buf.String(), "Query: SELECT 1")

	buf.Reset()
	LC().LogQuery(&QueryStatus{ConnName: "main", Query: "SELECT 2", Start: start, End: start.Add(SlowQueryThreshold)})
	assert.Contains(t, buf.String(), "WARNING")
	assert.Contains(t, buf.String(), ErrWarnSlowQuery.Error())

	buf.Reset()
	LC().LogQuery(&QueryStatus{ConnName: "main", Query: "SELECT 3", Err: errors.New("boom"), Start: start, End: start})
	assert.Contains(t, buf.String(), "ERROR")
	assert.Contains(t, buf.String(), "Error: boom")
}

func TestQueryStatusString(t *testing.T) {
	rows, id := int64(2), int64(9)
	start := time.Now()
	q := &QueryStatus{
		ConnName:     "main",
		Table:        "Role",
		Query:        "INSERT INTO\n\t\"Role\"   (\"Name\")\n VALUES (?)",
		Args:         []interface{}{"admin"},
		RowsAffected: &rows,
		LastInsertID: &id,
		Start:        start,
		End:          start.Add(1500 * time.Millisecond),
	}

	s := q.String()
	assert.Contains(t, s, "Connection: main")
	assert.Contains(t, s, "Table: Role")
	assert.Contains(t, s, `Query: INSERT INTO "Role" ("Name") VALUES (?)`)
	assert.Contains(t, s, `Arguments: []interface {}{"admin"}`)
	assert.Contains(t, s, "Rows affected: 2")
	assert.Contains(t, s, "Last insert ID: 9")
	assert.Contains(t, s, "Time taken: 1.50000s")
	assert.NotContains(t, s, "Error:")
}

func TestLogLevelString(t *testing.T) {
	assert.Equal(t, "TRACE", LogLevelTrace.String())
	assert.Equal(t, "INFO", LogLevelInfo.String())
	assert.Equal(t, "PANIC", LogLevelPanic.String())
}
