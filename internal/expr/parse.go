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

import "strconv"

// Operator precedence, lowest binds loosest. Comparisons bind looser than
// arithmetic so "HP + 5 > 10" parses as "(HP + 5) > 10", and equality binds
// loosest so "HP > 5 == true" compares the comparison's result.
const (
	precLowest = iota + 1
	precEquality
	precComparison
	precSum
	precProduct
	precPrefix
)

var tokenPrecedence = map[tokKind]int{
	tkEQ:    precEquality,
	tkNE:    precEquality,
	tkLT:    precComparison,
	tkGT:    precComparison,
	tkLE:    precComparison,
	tkGE:    precComparison,
	tkPlus:  precSum,
	tkMinus: precSum,
	tkStar:  precProduct,
	tkSlash: precProduct,
}

var tokenOp = map[tokKind]Op{
	tkPlus:  OpAdd,
	tkMinus: OpSub,
	tkStar:  OpMul,
	tkSlash: OpDiv,
	tkLT:    OpLT,
	tkGT:    OpGT,
	tkLE:    OpLE,
	tkGE:    OpGE,
	tkEQ:    OpEQ,
	tkNE:    OpNE,
}

func opPrecedence(op Op) int {
	switch op {
	case OpMul, OpDiv:
		return precProduct
	case OpAdd, OpSub:
		return precSum
	case OpLT, OpGT, OpLE, OpGE:
		return precComparison
	case OpEQ, OpNE:
		return precEquality
	case OpNeg:
		return precPrefix
	default:
		return precLowest
	}
}

// Parse builds the expression tree for src. All operators are
// left-associative; parentheses group as usual.
func Parse(src string) (Expr, error) {
	p := &parser{sc: scanner{src: src}}
	p.advance()
	p.advance()
	e := p.parseExpr(precLowest)
	if p.err != nil {
		return nil, p.err
	}
	if p.cur.kind != tkEOF {
		return nil, &SyntaxError{Offset: p.cur.pos, Msg: "unexpected " + p.cur.kind.String()}
	}
	return e, nil
}

// MustParse is a test helper; it panics on malformed input.
func MustParse(src string) Expr {
	e, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return e
}

type parser struct {
	sc   scanner
	cur  token
	peek token
	err  *SyntaxError
}

func (p *parser) advance() {
	p.cur = p.peek
	p.peek = p.sc.next()
	if p.sc.err != nil && p.err == nil {
		p.err = p.sc.err
	}
}

func (p *parser) failf(pos int, msg string) {
	if p.err == nil {
		p.err = &SyntaxError{Offset: pos, Msg: msg}
	}
}

// parseExpr parses operators of precedence >= minPrec; recursing with
// nextPrec+1 on the right side keeps every operator left-associative.
func (p *parser) parseExpr(minPrec int) Expr {
	left := p.parsePrefix()
	if left == nil {
		return nil
	}
	for {
		nextPrec, ok := tokenPrecedence[p.cur.kind]
		if !ok || nextPrec < minPrec {
			return left
		}
		op := tokenOp[p.cur.kind]
		p.advance()
		right := p.parseExpr(nextPrec + 1)
		if right == nil {
			return nil
		}
		left = &Binary{Op: op, L: left, R: right}
	}
}

func (p *parser) parsePrefix() Expr {
	tok := p.cur
	switch tok.kind {
	case tkNumber:
		f, err := strconv.ParseFloat(tok.lit, 64)
		if err != nil {
			p.failf(tok.pos, "malformed number "+strconv.Quote(tok.lit))
			return nil
		}
		p.advance()
		return &Lit{Val: Number(f)}
	case tkString:
		p.advance()
		return &Lit{Val: String(tok.lit)}
	case tkTrue:
		p.advance()
		return &Lit{Val: Bool(true)}
	case tkFalse:
		p.advance()
		return &Lit{Val: Bool(false)}
	case tkIdent:
		p.advance()
		return &VarRef{Name: tok.lit}
	case tkMinus:
		p.advance()
		x := p.parseExpr(precPrefix)
		if x == nil {
			return nil
		}
		return &Unary{Op: OpNeg, X: x}
	case tkLParen:
		p.advance()
		e := p.parseExpr(precLowest)
		if e == nil {
			return nil
		}
		if p.cur.kind != tkRParen {
			p.failf(p.cur.pos, "expected ')', found "+p.cur.kind.String())
			return nil
		}
		p.advance()
		return e
	case tkEOF:
		p.failf(tok.pos, "expression is empty or ends early")
		return nil
	default:
		if p.err == nil {
			p.failf(tok.pos, "unexpected "+tok.kind.String())
		}
		return nil
	}
}
