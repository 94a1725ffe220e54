/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package expr

import "fmt"

// Env supplies variable values during evaluation.
type Env interface {
	Get(name string) (Value, bool)
}

// MapEnv is an Env over a plain map.
type MapEnv map[string]Value

func (m MapEnv) Get(name string) (Value, bool) {
	v, ok := m[name]
	return v, ok
}

// Eval computes e under env. The compiler never evaluates; this exists for
// runtimes that replay a compiled script and want the exact same operator
// semantics the checker assumed.
func Eval(e Expr, env Env) (Value, error) {
	switch n := e.(type) {
	case *Lit:
		return n.Val, nil
	case *VarRef:
		v, ok := env.Get(n.Name)
		if !ok {
			return Value{}, &UndeclaredError{Name: n.Name}
		}
		return v, nil
	case *Unary:
		v, err := Eval(n.X, env)
		if err != nil {
			return Value{}, err
		}
		if v.Type != TypeNumber {
			return Value{}, &MismatchError{Want: TypeNumber, Got: v.Type, Context: "operand of unary '-'"}
		}
		return Number(-v.Num), nil
	case *Binary:
		l, err := Eval(n.L, env)
		if err != nil {
			return Value{}, err
		}
		r, err := Eval(n.R, env)
		if err != nil {
			return Value{}, err
		}
		return evalBinary(n.Op, l, r)
	}
	return Value{}, fmt.Errorf("unknown expression node %T", e)
}

func evalBinary(op Op, l, r Value) (Value, error) {
	switch op {
	case OpAdd, OpSub, OpMul, OpDiv, OpLT, OpGT, OpLE, OpGE:
		if l.Type != TypeNumber {
			return Value{}, &MismatchError{Want: TypeNumber, Got: l.Type, Context: fmt.Sprintf("left operand of '%s'", op)}
		}
		if r.Type != TypeNumber {
			return Value{}, &MismatchError{Want: TypeNumber, Got: r.Type, Context: fmt.Sprintf("right operand of '%s'", op)}
		}
	}
	switch op {
	case OpAdd:
		return Number(l.Num + r.Num), nil
	case OpSub:
		return Number(l.Num - r.Num), nil
	case OpMul:
		return Number(l.Num * r.Num), nil
	case OpDiv:
		if r.Num == 0 {
			return Value{}, fmt.Errorf("division by zero")
		}
		return Number(l.Num / r.Num), nil
	case OpLT:
		return Bool(l.Num < r.Num), nil
	case OpGT:
		return Bool(l.Num > r.Num), nil
	case OpLE:
		return Bool(l.Num <= r.Num), nil
	case OpGE:
		return Bool(l.Num >= r.Num), nil
	case OpEQ, OpNE:
		if l.Type != r.Type {
			return Value{}, &MismatchError{Want: l.Type, Got: r.Type, Context: fmt.Sprintf("operands of '%s' must share a type", op)}
		}
		eq := false
		switch l.Type {
		case TypeNumber:
			eq = l.Num == r.Num
		case TypeBool:
			eq = l.Bool == r.Bool
		case TypeString:
			eq = l.Str == r.Str
		}
		if op == OpNE {
			eq = !eq
		}
		return Bool(eq), nil
	}
	return Value{}, fmt.Errorf("unknown operator %s", op)
}
