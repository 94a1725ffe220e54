/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package expr implements the inline expression language used by condition
// guards and state assignments: numeric/boolean/string literals, variable
// references, arithmetic (+ - * /) and comparisons (> < >= <= == !=).
//
// The package is purely static from the compiler's point of view: Parse
// builds a tree, Check infers and verifies types against declared state.
// Eval is exposed as well so a downstream runtime can execute the same
// parsed tree during play; the compiler itself never calls it.
package expr

import (
	"strconv"
	"strings"
)

// Type is the static type of an expression or state variable.
type Type int

const (
	TypeInvalid Type = iota
	TypeNumber
	TypeBool
	TypeString
)

func (t Type) String() string {
	switch t {
	case TypeNumber:
		return "number"
	case TypeBool:
		return "boolean"
	case TypeString:
		return "string"
	default:
		return "invalid"
	}
}

// Value is a literal or computed value. Exactly the field matching Type is
// meaningful; the zero Value is invalid.
type Value struct {
	Type Type
	Num  float64
	Bool bool
	Str  string
}

func Number(f float64) Value { return Value{Type: TypeNumber, Num: f} }
func Bool(b bool) Value      { return Value{Type: TypeBool, Bool: b} }
func String(s string) Value  { return Value{Type: TypeString, Str: s} }

// Literal returns the source form of the value: numbers without a trailing
// fraction when whole, booleans as true/false, strings quoted.
func (v Value) Literal() string {
	switch v.Type {
	case TypeNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case TypeBool:
		return strconv.FormatBool(v.Bool)
	case TypeString:
		return strconv.Quote(v.Str)
	default:
		return "<invalid>"
	}
}

// Op is a unary or binary operator.
type Op int

const (
	OpInvalid Op = iota
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpLT
	OpGT
	OpLE
	OpGE
	OpEQ
	OpNE
	OpNeg // unary minus
)

func (o Op) String() string {
	switch o {
	case OpAdd:
		return "+"
	case OpSub, OpNeg:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpLT:
		return "<"
	case OpGT:
		return ">"
	case OpLE:
		return "<="
	case OpGE:
		return ">="
	case OpEQ:
		return "=="
	case OpNE:
		return "!="
	default:
		return "?"
	}
}

// Expr is an expression tree node. The set of implementations is closed:
// Literal, VarRef, Unary and Binary.
type Expr interface {
	exprNode()
	// String renders the canonical source form; Parse(e.String()) yields a
	// structurally equal tree.
	String() string
}

// Lit is a literal constant.
type Lit struct {
	Val Value
}

// VarRef is a reference to a declared state variable.
type VarRef struct {
	Name string
}

// Unary is a prefix operation; only negation exists today.
type Unary struct {
	Op Op
	X  Expr
}

// Binary is an infix operation.
type Binary struct {
	Op   Op
	L, R Expr
}

func (*Lit) exprNode()    {}
func (*VarRef) exprNode() {}
func (*Unary) exprNode()  {}
func (*Binary) exprNode() {}

func (e *Lit) String() string    { return Render(e, nil) }
func (e *VarRef) String() string { return Render(e, nil) }
func (e *Unary) String() string  { return Render(e, nil) }
func (e *Binary) String() string { return Render(e, nil) }

// RenderOpts customizes Render for dialect emitters. Rename is applied to
// every variable name (e.g. prefixing $); Literal overrides how constants
// print (e.g. Python's True/False). Nil hooks keep the canonical form.
type RenderOpts struct {
	Rename  func(string) string
	Literal func(Value) string
}

// Render writes the canonical source form of e. When rename is non-nil it is
// applied to every variable name; transpiler backends use this for dialects
// that sigil their variables (e.g. $NAME).
func Render(e Expr, rename func(string) string) string {
	return RenderWith(e, RenderOpts{Rename: rename})
}

// RenderWith is Render with full dialect hooks.
func RenderWith(e Expr, opts RenderOpts) string {
	var b strings.Builder
	render(&b, e, opts)
	return b.String()
}

func render(b *strings.Builder, e Expr, opts RenderOpts) {
	switch n := e.(type) {
	case *Lit:
		if opts.Literal != nil {
			b.WriteString(opts.Literal(n.Val))
		} else {
			b.WriteString(n.Val.Literal())
		}
	case *VarRef:
		name := n.Name
		if opts.Rename != nil {
			name = opts.Rename(name)
		}
		b.WriteString(name)
	case *Unary:
		b.WriteString(n.Op.String())
		renderChild(b, n.X, precPrefix, opts)
	case *Binary:
		p := opPrecedence(n.Op)
		renderChild(b, n.L, p, opts)
		b.WriteString(" ")
		b.WriteString(n.Op.String())
		b.WriteString(" ")
		// right child needs parens at equal precedence to keep left associativity
		renderChild(b, n.R, p+1, opts)
	}
}

func renderChild(b *strings.Builder, e Expr, minPrec int, opts RenderOpts) {
	if bin, ok := e.(*Binary); ok && opPrecedence(bin.Op) < minPrec {
		b.WriteString("(")
		render(b, e, opts)
		b.WriteString(")")
		return
	}
	render(b, e, opts)
}

// Vars returns every variable referenced by e, in source order, without
// de-duplication.
func Vars(e Expr) []string {
	var out []string
	walk(e, func(n Expr) {
		if v, ok := n.(*VarRef); ok {
			out = append(out, v.Name)
		}
	})
	return out
}

func walk(e Expr, fn func(Expr)) {
	if e == nil {
		return
	}
	fn(e)
	switch n := e.(type) {
	case *Unary:
		walk(n.X, fn)
	case *Binary:
		walk(n.L, fn)
		walk(n.R, fn)
	}
}
