/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package ast

import "github.com/mikezilla14/fountain-flow/internal/expr"

// Symbol is one declared state variable.
type Symbol struct {
	Name string
	Type expr.Type
	Init expr.Value
	Line int // declaration line
}

// SymbolTable maps variable names to their declarations and remembers
// declaration order. It satisfies expr.Resolver.
type SymbolTable struct {
	order  []string
	byName map[string]*Symbol
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{byName: map[string]*Symbol{}}
}

// Declare records s; it reports false when the name is already taken.
func (t *SymbolTable) Declare(s *Symbol) bool {
	if _, exists := t.byName[s.Name]; exists {
		return false
	}
	t.byName[s.Name] = s
	t.order = append(t.order, s.Name)
	return true
}

// Lookup returns the declaration for name.
func (t *SymbolTable) Lookup(name string) (*Symbol, bool) {
	s, ok := t.byName[name]
	return s, ok
}

// TypeOf implements expr.Resolver.
func (t *SymbolTable) TypeOf(name string) (expr.Type, bool) {
	s, ok := t.byName[name]
	if !ok {
		return expr.TypeInvalid, false
	}
	return s.Type, true
}

// Names returns variable names in declaration order.
func (t *SymbolTable) Names() []string {
	return append([]string(nil), t.order...)
}

func (t *SymbolTable) Len() int { return len(t.byName) }

// AnchorTable maps anchor names to their labels in declaration order.
type AnchorTable struct {
	order  []string
	byName map[string]*AnchorLabel
}

func NewAnchorTable() *AnchorTable {
	return &AnchorTable{byName: map[string]*AnchorLabel{}}
}

// Declare records a; it reports false when the name is already taken.
func (t *AnchorTable) Declare(a *AnchorLabel) bool {
	if _, exists := t.byName[a.Name]; exists {
		return false
	}
	t.byName[a.Name] = a
	t.order = append(t.order, a.Name)
	return true
}

// Lookup returns the label for name.
func (t *AnchorTable) Lookup(name string) (*AnchorLabel, bool) {
	a, ok := t.byName[name]
	return a, ok
}

// Names returns anchor names in declaration order.
func (t *AnchorTable) Names() []string {
	return append([]string(nil), t.order...)
}

func (t *AnchorTable) Len() int { return len(t.byName) }

// Script is the root artifact of a compile: the document-ordered node list
// plus the tables the resolver filled in. Valid is true only after a
// resolver pass found no diagnostics.
type Script struct {
	Nodes   []Node
	Symbols *SymbolTable
	Anchors *AnchorTable
	Valid   bool
}

func NewScript(nodes []Node) *Script {
	return &Script{Nodes: nodes, Symbols: NewSymbolTable(), Anchors: NewAnchorTable()}
}

// Meta returns the string form of a declared variable's initial value.
// Scripts carry their metadata (title, author) as ordinary declarations, so
// tooling reads e.g. Meta("TITLE") for display purposes.
func (s *Script) Meta(name string) (string, bool) {
	sym, ok := s.Symbols.Lookup(name)
	if !ok {
		return "", false
	}
	if sym.Init.Type == expr.TypeString {
		return sym.Init.Str, true
	}
	return sym.Init.Literal(), true
}

// Walk visits every node of the script in document order.
func (s *Script) Walk(fn func(Node)) { WalkAll(s.Nodes, fn) }
