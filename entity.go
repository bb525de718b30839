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
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/upper/dal/internal/cache"
)

// EntityType declares a kind of entity: the table its instances live in, the
// connection they're stored on by default and the modules that see every
// save.
type EntityType struct {
	// Name identifies the type in errors and logs.
	Name string

	// Table is the declared table. Its name is the logical table name, the
	// connection's prefix is applied on top of it.
	Table *Table

	// Seed returns the rows InitData writes into an empty table.
	Seed func() []*Entity

	mu       sync.RWMutex
	connName string
	modules  []Module

	pipelineOnce sync.Once
	pipeline     []Module

	split    atomic.Pointer[Split]
	sessions *cache.Cache
}

// NewEntityType declares an entity type stored in the given table.
func NewEntityType(name string, table *Table, modules ...Module) *EntityType {
	return &EntityType{
		Name:     name,
		Table:    table,
		modules:  modules,
		sessions: cache.NewCache(),
	}
}

// ConnName returns the name of the connection the type is stored on by
// default.
func (t *EntityType) ConnName() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.connName
}

// SetConnName changes the default connection of the type.
func (t *EntityType) SetConnName(name string) *EntityType {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.connName = name
	return t
}

// AddModule attaches modules to the type. Modules must be attached before
// the first entity of the type is saved.
func (t *EntityType) AddModule(modules ...Module) *EntityType {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.modules = append(t.modules, modules...)
	return t
}

// New creates a new, unsaved entity.
func (t *EntityType) New() *Entity {
	return &Entity{
		typ:    t,
		values: map[string]interface{}{},
		dirty:  map[string]struct{}{},
		quiet:  map[string]struct{}{},
		isNew:  true,
	}
}

// NewFrom creates a new, unsaved entity with the given values set.
func (t *EntityType) NewFrom(values map[string]interface{}) *Entity {
	e := t.New()
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		e.Set(k, values[k])
	}
	return e
}

func (t *EntityType) load(columns []string, row []interface{}) *Entity {
	e := &Entity{
		typ:    t,
		values: make(map[string]interface{}, len(columns)),
		dirty:  map[string]struct{}{},
		quiet:  map[string]struct{}{},
	}
	for i, col := range columns {
		e.values[t.fieldName(col)] = row[i]
	}
	return e
}

// fieldName maps a column name to the name it's declared with.
func (t *EntityType) fieldName(name string) string {
	if col := t.Table.Column(name); col != nil {
		return col.Name
	}
	return name
}

// Active returns the split the type is currently bound to, or nil.
func (t *EntityType) Active() *Split {
	return t.split.Load()
}

// Default returns the session the type is currently bound to: the active
// split's connection, if any, or the type's default connection.
func (t *EntityType) Default() (*EntitySession, error) {
	if s := t.split.Load(); s != nil {
		return t.Session(s.connName)
	}
	return t.Session(t.ConnName())
}

// Session returns the session of the type on the given connection. There's
// a single session per type and connection name.
func (t *EntityType) Session(connName string) (*EntitySession, error) {
	if connName == "" {
		return nil, fmt.Errorf("entity type %q: %w", t.Name, ErrMissingConnName)
	}
	if t.Table == nil || t.Table.Name == "" {
		return nil, fmt.Errorf("entity type %q: %w", t.Name, ErrMissingTableName)
	}
	if _, ok := lookupConfig(connName); !ok {
		return nil, fmt.Errorf("entity type %q: %w: %q", t.Name, ErrUnknownConnection, connName)
	}

	s, err := t.sessions.GetOrCreate(cache.String(connName), func() (interface{}, error) {
		return newEntitySession(t, connName), nil
	})
	if err != nil {
		return nil, err
	}
	return s.(*EntitySession), nil
}

// Entity is an instance of an entity type. Values are keyed by column name;
// every change made with Set is tracked until the entity is saved.
type Entity struct {
	typ    *EntityType
	values map[string]interface{}

	// changed by Set, saved and reported by HasDirty
	dirty map[string]struct{}
	// changed by SetNoDirty, saved along with the next write but not reported
	quiet map[string]struct{}

	isNew bool
}

// Type returns the entity type.
func (e *Entity) Type() *EntityType {
	return e.typ
}

// IsNew is true until the entity is stored or if it wasn't loaded from the
// database.
func (e *Entity) IsNew() bool {
	return e.isNew
}

// Get returns the value of a field.
func (e *Entity) Get(name string) interface{} {
	return e.values[e.typ.fieldName(name)]
}

// Set assigns a value to a field and marks the field as changed if the value
// is different from the current one.
func (e *Entity) Set(name string, value interface{}) *Entity {
	name = e.typ.fieldName(name)
	if old, ok := e.values[name]; ok && equalValues(old, value) {
		return e
	}
	e.values[name] = value
	e.dirty[name] = struct{}{}
	return e
}

// SetNoDirty assigns a value to a field without marking it as changed. The
// value is still written along with the next insert or update.
func (e *Entity) SetNoDirty(name string, value interface{}) *Entity {
	name = e.typ.fieldName(name)
	e.values[name] = value
	if _, ok := e.dirty[name]; !ok {
		e.quiet[name] = struct{}{}
	}
	return e
}

// IsDirty reports whether a field was changed with Set.
func (e *Entity) IsDirty(name string) bool {
	_, ok := e.dirty[e.typ.fieldName(name)]
	return ok
}

// HasDirty reports whether any field was changed with Set.
func (e *Entity) HasDirty() bool {
	return len(e.dirty) > 0
}

// Dirty returns the names of the changed fields, sorted.
func (e *Entity) Dirty() []string {
	names := make([]string, 0, len(e.dirty))
	for name := range e.dirty {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Values returns a copy of the entity values.
func (e *Entity) Values() map[string]interface{} {
	values := make(map[string]interface{}, len(e.values))
	for k, v := range e.values {
		values[k] = v
	}
	return values
}

// String returns a field as a string. Missing and NULL fields are empty.
func (e *Entity) String(name string) string {
	switch v := e.Get(name).(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case time.Time:
		return v.Format(time.RFC3339Nano)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Int64 returns a field as an integer. Missing, NULL and non numeric fields
// are zero.
func (e *Entity) Int64(name string) int64 {
	return toInt64(e.Get(name))
}

// ID returns the value of the identity column, or zero if the table has none
// or the entity wasn't stored yet.
func (e *Entity) ID() int64 {
	col := e.typ.Table.Identity()
	if col == nil {
		return 0
	}
	return e.Int64(col.Name)
}

// changes returns the names of the fields to be written on next update.
func (e *Entity) changes() []string {
	names := make([]string, 0, len(e.dirty)+len(e.quiet))
	for name := range e.dirty {
		names = append(names, name)
	}
	for name := range e.quiet {
		if _, ok := e.dirty[name]; !ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func (e *Entity) clean() {
	e.dirty = map[string]struct{}{}
	e.quiet = map[string]struct{}{}
	e.isNew = false
}

func toInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case int16:
		return int64(n)
	case int8:
		return int64(n)
	case uint64:
		return int64(n)
	case uint32:
		return int64(n)
	case uint:
		return int64(n)
	case float64:
		return int64(n)
	case float32:
		return int64(n)
	case bool:
		if n {
			return 1
		}
		return 0
	case []byte:
		i, _ := strconv.ParseInt(strings.TrimSpace(string(n)), 10, 64)
		return i
	case string:
		i, _ := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		return i
	}
	return 0
}

func equalValues(a, b interface{}) bool {
	switch x := a.(type) {
	case []byte:
		y, ok := b.([]byte)
		return ok && string(x) == string(y)
	case time.Time:
		y, ok := b.(time.Time)
		return ok && x.Equal(y)
	}
	if a == nil || b == nil {
		return a == b
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}
