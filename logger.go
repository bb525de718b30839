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
	"fmt"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// EnvEnableDebug can be used to turn on query logging without touching code.
//
// Example:
//
//	UPPER_DAL_DEBUG=1 go test
const (
	EnvEnableDebug = `UPPER_DAL_DEBUG`
)

// SlowQueryThreshold is the duration after which a statement is reported as
// slow.
var SlowQueryThreshold = time.Second

// LogLevel represents a verbosity level for logs
type LogLevel int8

// Log levels
const (
	LogLevelTrace LogLevel = -1

	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
	LogLevelFatal
	LogLevelPanic
)

var logLevels = map[LogLevel]string{
	LogLevelTrace: "TRACE",
	LogLevelDebug: "DEBUG",
	LogLevelInfo:  "INFO",
	LogLevelWarn:  "WARNING",
	LogLevelError: "ERROR",
	LogLevelFatal: "FATAL",
	LogLevelPanic: "PANIC",
}

func (ll LogLevel) String() string {
	return logLevels[ll]
}

const (
	defaultLogLevel LogLevel = LogLevelWarn
)

// Logger represents a logging interface that is compatible with the standard
// "log" and with many other logging libraries, logrus included.
type Logger interface {
	Fatal(v ...interface{})
	Fatalf(format string, v ...interface{})

	Print(v ...interface{})
	Printf(format string, v ...interface{})

	Panic(v ...interface{})
	Panicf(format string, v ...interface{})
}

// LoggingCollector provides different methods for collecting and classifying
// log messages.
type LoggingCollector interface {
	Enabled(LogLevel) bool

	Level() LogLevel

	SetLogger(Logger)
	SetLevel(LogLevel)

	Debug(v ...interface{})
	Debugf(format string, v ...interface{})

	Info(v ...interface{})
	Infof(format string, v ...interface{})

	Warn(v ...interface{})
	Warnf(format string, v ...interface{})

	Error(v ...interface{})
	Errorf(format string, v ...interface{})

	LogQuery(*QueryStatus)
}

type loggingCollector struct {
	level  int32
	logger atomic.Value
}

type loggerBox struct {
	Logger
}

func (c *loggingCollector) Enabled(level LogLevel) bool {
	return level >= c.Level()
}

func (c *loggingCollector) Level() LogLevel {
	return LogLevel(atomic.LoadInt32(&c.level))
}

func (c *loggingCollector) SetLevel(level LogLevel) {
	atomic.StoreInt32(&c.level, int32(level))
}

func (c *loggingCollector) SetLogger(logger Logger) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	c.logger.Store(loggerBox{logger})
}

func (c *loggingCollector) getLogger() Logger {
	if lg, ok := c.logger.Load().(loggerBox); ok {
		return lg.Logger
	}
	return logrus.StandardLogger()
}

func (c *loggingCollector) logf(level LogLevel, f string, v ...interface{}) {
	if !c.Enabled(level) {
		return
	}
	format := level.String() + "\n" + f
	c.getLogger().Printf(format, v...)
}

func (c *loggingCollector) log(level LogLevel, v ...interface{}) {
	if !c.Enabled(level) {
		return
	}
	c.getLogger().Print(append([]interface{}{level.String() + "\n"}, v...)...)
}

func (c *loggingCollector) Debugf(format string, v ...interface{}) {
	c.logf(LogLevelDebug, format, v...)
}

func (c *loggingCollector) Debug(v ...interface{}) {
	c.log(LogLevelDebug, v...)
}

func (c *loggingCollector) Infof(format string, v ...interface{}) {
	c.logf(LogLevelInfo, format, v...)
}

func (c *loggingCollector) Info(v ...interface{}) {
	c.log(LogLevelInfo, v...)
}

func (c *loggingCollector) Warnf(format string, v ...interface{}) {
	c.logf(LogLevelWarn, format, v...)
}

func (c *loggingCollector) Warn(v ...interface{}) {
	c.log(LogLevelWarn, v...)
}

func (c *loggingCollector) Errorf(format string, v ...interface{}) {
	c.logf(LogLevelError, format, v...)
}

func (c *loggingCollector) Error(v ...interface{}) {
	c.log(LogLevelError, v...)
}

// LogQuery reports an executed statement. Failed statements are logged at
// error level, slow ones at warn level and everything else at debug level.
func (c *loggingCollector) LogQuery(q *QueryStatus) {
	switch {
	case q.Err != nil:
		c.Error(q)
	case q.End.Sub(q.Start) >= SlowQueryThreshold:
		c.Warnf("%v\n\t%s", ErrWarnSlowQuery, q)
	default:
		c.Debug(q)
	}
}

var defaultLoggingCollector = func() *loggingCollector {
	c := &loggingCollector{}
	c.SetLevel(defaultLogLevel)
	return c
}()

// LC returns the logging collector.
func LC() LoggingCollector {
	return defaultLoggingCollector
}

func init() {
	if envEnabled(EnvEnableDebug) {
		defaultLoggingCollector.SetLevel(LogLevelDebug)
	}
}

// QueryStatus represents a statement after being executed.
type QueryStatus struct {
	ConnName string
	Table    string

	Query string
	Args  []interface{}

	RowsAffected *int64
	LastInsertID *int64

	Err error

	Start time.Time
	End   time.Time
}

var (
	reInvisibleChars = regexp.MustCompile(`[\s\r\n\t]+`)
)

// String returns a formatted log message.
func (q *QueryStatus) String() string {
	lines := make([]string, 0, 8)

	if q.ConnName != "" {
		lines = append(lines, fmt.Sprintf("Connection: %s", q.ConnName))
	}

	if q.Table != "" {
		lines = append(lines, fmt.Sprintf("Table: %s", q.Table))
	}

	if query := strings.TrimSpace(reInvisibleChars.ReplaceAllString(q.Query, ` `)); query != "" {
		lines = append(lines, fmt.Sprintf("Query: %s", query))
	}

	if len(q.Args) > 0 {
		lines = append(lines, fmt.Sprintf("Arguments: %#v", q.Args))
	}

	if q.RowsAffected != nil {
		lines = append(lines, fmt.Sprintf("Rows affected: %d", *q.RowsAffected))
	}

	if q.LastInsertID != nil {
		lines = append(lines, fmt.Sprintf("Last insert ID: %d", *q.LastInsertID))
	}

	if q.Err != nil {
		lines = append(lines, fmt.Sprintf("Error: %v", q.Err))
	}

	lines = append(lines, fmt.Sprintf("Time taken: %0.5fs", float64(q.End.UnixNano()-q.Start.UnixNano())/float64(1e9)))

	return "\t" + strings.Join(lines, "\n\t") + "\n"
}
