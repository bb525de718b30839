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
	"context"
	"fmt"
	"sync"
)

// Module sees every entity before it is inserted or updated and may change
// its values. Modules must not save entities themselves.
type Module interface {
	// Init is called once per entity type. Modules that return false are
	// never called again for that type.
	Init(t *EntityType) bool

	// Valid is called before each insert or update. Returning false rejects
	// the save with a *ValidationError.
	Valid(ctx context.Context, e *Entity, isNew bool) bool
}

// ModuleList is an ordered, concurrency-safe set of modules.
type ModuleList struct {
	mu      sync.RWMutex
	modules []Module
}

// Modules are applied to every entity type, before the type's own modules.
// They must be added before any entity type is first used.
var Modules = &ModuleList{}

// Add appends modules to the list.
func (l *ModuleList) Add(modules ...Module) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.modules = append(l.modules, modules...)
}

// List returns a copy of the modules in the list.
func (l *ModuleList) List() []Module {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Module(nil), l.modules...)
}

// Reset removes every module.
func (l *ModuleList) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.modules = nil
}

// Modules returns the modules that apply to the type. Applicability is
// checked once, the first time this is called.
func (t *EntityType) Modules() []Module {
	t.pipelineOnce.Do(func() {
		t.mu.RLock()
		candidates := append(Modules.List(), t.modules...)
		t.mu.RUnlock()

		for _, m := range candidates {
			if m.Init(t) {
				t.pipeline = append(t.pipeline, m)
			}
		}
		if len(t.pipeline) > 0 {
			LC().Debugf("entity type %q: %d module(s) active", t.Name, len(t.pipeline))
		}
	})
	return t.pipeline
}

// Valid runs the entity through the type's modules.
func (e *Entity) Valid(ctx context.Context, isNew bool) error {
	for _, m := range e.typ.Modules() {
		if !m.Valid(ctx, e, isNew) {
			return &ValidationError{
				EntityType: e.typ.Name,
				Module:     moduleName(m),
				IsNew:      isNew,
			}
		}
	}
	return nil
}

func moduleName(m Module) string {
	if s, ok := m.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", m)
}
