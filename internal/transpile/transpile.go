/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package transpile renders a compiled script into downstream engine
// formats. Backends register themselves under a short name; callers pick
// one by name and get bytes back. The json backend is lossless and can be
// decoded again, the dialect backends (renpy, twee, fflow) are one-way.
package transpile

import (
	"fmt"
	"sort"
	"sync"

	"github.com/mikezilla14/fountain-flow/internal/ast"
)

// Backend turns a script into one output document. Render must not mutate
// the script and must be deterministic for a given tree.
type Backend interface {
	Name() string
	Render(s *ast.Script) ([]byte, error)
}

var (
	mu       sync.RWMutex
	backends = map[string]Backend{}
)

// Register makes a backend available under its name. It panics when the
// name is already taken; registration happens once at init time.
func Register(b Backend) {
	mu.Lock()
	defer mu.Unlock()
	if _, dup := backends[b.Name()]; dup {
		panic(fmt.Sprintf("transpile: backend %q registered twice", b.Name()))
	}
	backends[b.Name()] = b
}

// Lookup returns the backend registered under name.
func Lookup(name string) (Backend, bool) {
	mu.RLock()
	defer mu.RUnlock()
	b, ok := backends[name]
	return b, ok
}

// Names lists the registered backends, sorted.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(backends))
	for n := range backends {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Render runs the named backend over s.
func Render(name string, s *ast.Script) ([]byte, error) {
	b, ok := Lookup(name)
	if !ok {
		return nil, fmt.Errorf("unknown backend %q (have %v)", name, Names())
	}
	return b.Render(s)
}

// UnsupportedConstructError reports a script element the target dialect
// cannot express. The script itself is fine; only this backend rejects it.
type UnsupportedConstructError struct {
	Backend string
	Kind    string
	Line    int
}

func (e *UnsupportedConstructError) Error() string {
	return fmt.Sprintf("%s backend cannot express %s (line %d)", e.Backend, e.Kind, e.Line)
}

func unsupported(backend, kind string, line int) error {
	return &UnsupportedConstructError{Backend: backend, Kind: kind, Line: line}
}
