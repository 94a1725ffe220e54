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

// Resolver answers what type a state variable was declared with. The symbol
// resolver passes its table; tests pass a map.
type Resolver interface {
	TypeOf(name string) (Type, bool)
}

// MapResolver is a Resolver over a plain map, mainly for tests.
type MapResolver map[string]Type

func (m MapResolver) TypeOf(name string) (Type, bool) {
	t, ok := m[name]
	return t, ok
}

// UndeclaredError reports a reference to a variable the resolver does not
// know. During document resolution that means the variable has no
// declaration above the referencing line.
type UndeclaredError struct {
	Name string
}

func (e *UndeclaredError) Error() string { return fmt.Sprintf("undeclared variable %s", e.Name) }

// MismatchError reports an operand whose type does not fit its operator.
type MismatchError struct {
	Want    Type
	Got     Type
	Context string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("%s: want %s, got %s", e.Context, e.Want, e.Got)
}

// Check infers the static type of e against declared state. It returns the
// first problem it finds; callers wanting every undeclared reference walk
// Vars first.
func Check(e Expr, syms Resolver) (Type, error) {
	switch n := e.(type) {
	case *Lit:
		return n.Val.Type, nil
	case *VarRef:
		t, ok := syms.TypeOf(n.Name)
		if !ok {
			return TypeInvalid, &UndeclaredError{Name: n.Name}
		}
		return t, nil
	case *Unary:
		t, err := Check(n.X, syms)
		if err != nil {
			return TypeInvalid, err
		}
		if t != TypeNumber {
			return TypeInvalid, &MismatchError{Want: TypeNumber, Got: t, Context: "operand of unary '-'"}
		}
		return TypeNumber, nil
	case *Binary:
		lt, err := Check(n.L, syms)
		if err != nil {
			return TypeInvalid, err
		}
		rt, err := Check(n.R, syms)
		if err != nil {
			return TypeInvalid, err
		}
		switch n.Op {
		case OpAdd, OpSub, OpMul, OpDiv:
			if lt != TypeNumber {
				return TypeInvalid, &MismatchError{Want: TypeNumber, Got: lt, Context: fmt.Sprintf("left operand of '%s'", n.Op)}
			}
			if rt != TypeNumber {
				return TypeInvalid, &MismatchError{Want: TypeNumber, Got: rt, Context: fmt.Sprintf("right operand of '%s'", n.Op)}
			}
			return TypeNumber, nil
		case OpLT, OpGT, OpLE, OpGE:
			if lt != TypeNumber {
				return TypeInvalid, &MismatchError{Want: TypeNumber, Got: lt, Context: fmt.Sprintf("left operand of '%s'", n.Op)}
			}
			if rt != TypeNumber {
				return TypeInvalid, &MismatchError{Want: TypeNumber, Got: rt, Context: fmt.Sprintf("right operand of '%s'", n.Op)}
			}
			return TypeBool, nil
		case OpEQ, OpNE:
			if lt != rt {
				return TypeInvalid, &MismatchError{Want: lt, Got: rt, Context: fmt.Sprintf("operands of '%s' must share a type", n.Op)}
			}
			return TypeBool, nil
		}
	}
	return TypeInvalid, fmt.Errorf("unknown expression node %T", e)
}
