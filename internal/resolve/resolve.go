/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package resolve runs the semantic pass over a parsed script: it fills the
// symbol and anchor tables, type-checks guards and assignments, and links
// every jump to its anchor.
//
// Variables resolve in document order, so a reference is only legal below
// its declaration. Anchors are different: jumps may point forward, so they
// are resolved against the full table at the end of the walk.
//
// The pass never stops early. Every problem becomes a Diagnostic and the
// whole batch comes back as one error, which is what editors and CI want.
package resolve

import (
	"fmt"
	"sort"

	"github.com/mikezilla14/fountain-flow/internal/ast"
	"github.com/mikezilla14/fountain-flow/internal/expr"
)

// Code classifies a diagnostic.
type Code int

const (
	codeInvalid Code = iota
	UndeclaredVariable
	TypeMismatch
	UnresolvedAnchor
	DuplicateAnchor
	DuplicateVariable
)

func (c Code) String() string {
	switch c {
	case UndeclaredVariable:
		return "undeclared-variable"
	case TypeMismatch:
		return "type-mismatch"
	case UnresolvedAnchor:
		return "unresolved-anchor"
	case DuplicateAnchor:
		return "duplicate-anchor"
	case DuplicateVariable:
		return "duplicate-variable"
	default:
		return "invalid"
	}
}

// Diagnostic is one resolution problem, pointing at the offending line and
// the variable or anchor name involved.
type Diagnostic struct {
	Code   Code
	Name   string
	Line   int
	Detail string
}

func (d Diagnostic) String() string {
	if d.Name == "" {
		return fmt.Sprintf("line %d: %s: %s", d.Line, d.Code, d.Detail)
	}
	return fmt.Sprintf("line %d: %s %s: %s", d.Line, d.Code, d.Name, d.Detail)
}

// Diagnostics is the batch of problems from one pass; it is the error value
// Resolve returns when the script is invalid.
type Diagnostics []Diagnostic

func (ds Diagnostics) Error() string {
	if len(ds) == 0 {
		return "no diagnostics"
	}
	return fmt.Sprintf("script has %d problem(s); first: %s", len(ds), ds[0])
}

// Resolve walks s once, populating s.Symbols and s.Anchors and linking
// Jump.Anchor in place. It returns nil and marks the script valid when no
// diagnostics were found; otherwise it returns the full batch sorted by
// line.
func Resolve(s *ast.Script) error {
	r := &resolver{script: s}
	r.walk(s.Nodes)
	r.resolveJumps()

	if len(r.diags) == 0 {
		s.Valid = true
		return nil
	}
	s.Valid = false
	sort.SliceStable(r.diags, func(i, j int) bool { return r.diags[i].Line < r.diags[j].Line })
	return r.diags
}

type resolver struct {
	script *ast.Script
	jumps  []*ast.Jump
	diags  Diagnostics
}

func (r *resolver) report(code Code, name string, line int, format string, args ...any) {
	r.diags = append(r.diags, Diagnostic{
		Code:   code,
		Name:   name,
		Line:   line,
		Detail: fmt.Sprintf(format, args...),
	})
}

func (r *resolver) walk(nodes []ast.Node) {
	for _, n := range nodes {
		switch v := n.(type) {
		case *ast.StateDecl:
			sym := &ast.Symbol{Name: v.Name, Type: v.Init.Type, Init: v.Init, Line: v.Pos()}
			if !r.script.Symbols.Declare(sym) {
				prev, _ := r.script.Symbols.Lookup(v.Name)
				r.report(DuplicateVariable, v.Name, v.Pos(), "already declared on line %d", prev.Line)
			}

		case *ast.StateMutation:
			r.checkMutation(v)

		case *ast.Conditional:
			for _, br := range v.Branches {
				if br.Guard != nil {
					r.checkGuard(br.Guard, br.Line)
				}
				r.walk(br.Body)
			}

		case *ast.ChoiceBlock:
			for _, opt := range v.Options {
				r.walk(opt.Body)
			}

		case *ast.Jump:
			r.jumps = append(r.jumps, v)

		case *ast.AnchorLabel:
			if !r.script.Anchors.Declare(v) {
				prev, _ := r.script.Anchors.Lookup(v.Name)
				r.report(DuplicateAnchor, v.Name, v.Pos(), "already declared on line %d", prev.Pos())
			}
		}
	}
}

// checkExprVars reports each variable the expression references without a
// declaration above it. It returns true when all references resolved, which
// is the precondition for type-checking the expression at all.
func (r *resolver) checkExprVars(e expr.Expr, line int) bool {
	ok := true
	for _, name := range expr.Vars(e) {
		if _, declared := r.script.Symbols.Lookup(name); !declared {
			r.report(UndeclaredVariable, name, line, "no declaration above this line")
			ok = false
		}
	}
	return ok
}

func (r *resolver) checkGuard(guard expr.Expr, line int) {
	if !r.checkExprVars(guard, line) {
		return
	}
	t, err := expr.Check(guard, r.script.Symbols)
	if err != nil {
		r.reportCheckErr(err, line)
		return
	}
	if t != expr.TypeBool {
		r.report(TypeMismatch, "", line, "guard (IF: %s) must be boolean, got %s", guard, t)
	}
}

func (r *resolver) checkMutation(m *ast.StateMutation) {
	sym, declared := r.script.Symbols.Lookup(m.Name)
	if !declared {
		r.report(UndeclaredVariable, m.Name, m.Pos(), "no declaration above this line")
	}
	if !r.checkExprVars(m.Value, m.Pos()) || !declared {
		return
	}
	t, err := expr.Check(m.Value, r.script.Symbols)
	if err != nil {
		r.reportCheckErr(err, m.Pos())
		return
	}
	switch m.Op {
	case ast.MutateAdd, ast.MutateSub:
		if sym.Type != expr.TypeNumber {
			r.report(TypeMismatch, m.Name, m.Pos(), "%s on %s variable", m.Op, sym.Type)
			return
		}
		if t != expr.TypeNumber {
			r.report(TypeMismatch, m.Name, m.Pos(), "%s needs a number, got %s", m.Op, t)
		}
	case ast.MutateAssign:
		if t != sym.Type {
			r.report(TypeMismatch, m.Name, m.Pos(), "declared %s, assigned %s", sym.Type, t)
		}
	}
}

func (r *resolver) reportCheckErr(err error, line int) {
	switch e := err.(type) {
	case *expr.UndeclaredError:
		// checkExprVars should have caught these; keep the safety net for
		// programmatically built trees
		r.report(UndeclaredVariable, e.Name, line, "no declaration above this line")
	case *expr.MismatchError:
		r.report(TypeMismatch, "", line, "%s", e)
	default:
		r.report(TypeMismatch, "", line, "%v", err)
	}
}

// resolveJumps links every jump after the walk so forward references work.
func (r *resolver) resolveJumps() {
	for _, j := range r.jumps {
		anchor, ok := r.script.Anchors.Lookup(j.Target)
		if !ok {
			r.report(UnresolvedAnchor, j.Target, j.Pos(), "no anchor with this name")
			continue
		}
		j.Anchor = anchor
	}
}
