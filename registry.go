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
	"sort"
	"sync"
)

var registry = &connRegistry{
	configs: map[string]*ConnectionConfig{},
	dals:    map[string]*DAL{},
}

type connRegistry struct {
	mu      sync.RWMutex
	configs map[string]*ConnectionConfig
	dals    map[string]*DAL
}

// Register stores the configuration of a named connection. Registering a name
// that already exists replaces its configuration and closes the DAL that was
// resolved for it, if any; the next Resolve builds a fresh one.
//
// options are merged into the connection string, overriding keys it already
// has. If kind is empty the Provider key of the connection string is used.
func Register(name, connString string, options map[string]string, kind string) error {
	cfg, err := newConnectionConfig(name, connString, options, kind)
	if err != nil {
		return err
	}
	if _, err := LookupDriver(cfg.Kind); err != nil {
		return fmt.Errorf("connection %q: %w", name, err)
	}

	registry.mu.Lock()
	old := registry.dals[name]
	delete(registry.dals, name)
	registry.configs[name] = cfg
	registry.mu.Unlock()

	if old != nil {
		if err := old.Close(); err != nil {
			LC().Warnf("connection %q: closing replaced instance: %v", name, err)
		}
	}
	return nil
}

// Unregister forgets a connection name and closes its DAL.
func Unregister(name string) error {
	registry.mu.Lock()
	old := registry.dals[name]
	delete(registry.dals, name)
	delete(registry.configs, name)
	registry.mu.Unlock()

	if old != nil {
		return old.Close()
	}
	return nil
}

// Resolve returns the DAL for a registered connection name. Every call for
// the same name returns the same instance until the name is registered again.
func Resolve(name string) (*DAL, error) {
	registry.mu.RLock()
	d, ok := registry.dals[name]
	registry.mu.RUnlock()
	if ok {
		return d, nil
	}

	registry.mu.Lock()
	defer registry.mu.Unlock()

	if d, ok := registry.dals[name]; ok {
		return d, nil
	}

	cfg, ok := registry.configs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownConnection, name)
	}
	driver, err := LookupDriver(cfg.Kind)
	if err != nil {
		return nil, fmt.Errorf("connection %q: %w", name, err)
	}

	d = newDAL(cfg, driver)
	registry.dals[name] = d
	return d, nil
}

// MustResolve is like Resolve but panics on error.
func MustResolve(name string) *DAL {
	d, err := Resolve(name)
	if err != nil {
		panic(err.Error())
	}
	return d
}

// ConnNames returns the registered connection names, sorted.
func ConnNames() []string {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	names := make([]string, 0, len(registry.configs))
	for name := range registry.configs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// lookupConfig returns the configuration registered under name.
func lookupConfig(name string) (*ConnectionConfig, bool) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	cfg, ok := registry.configs[name]
	return cfg, ok
}
