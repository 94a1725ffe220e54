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

// SyntaxError reports a malformed expression. Offset is the byte position in
// the expression source the caller handed to Parse.
type SyntaxError struct {
	Offset int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("expression: %s (offset %d)", e.Msg, e.Offset)
}

type tokKind int

const (
	tkInvalid tokKind = iota
	tkEOF
	tkIdent
	tkNumber
	tkString
	tkTrue
	tkFalse
	tkPlus
	tkMinus
	tkStar
	tkSlash
	tkLT
	tkGT
	tkLE
	tkGE
	tkEQ
	tkNE
	tkLParen
	tkRParen
)

func (k tokKind) String() string {
	switch k {
	case tkEOF:
		return "end of expression"
	case tkIdent:
		return "identifier"
	case tkNumber:
		return "number"
	case tkString:
		return "string"
	case tkTrue, tkFalse:
		return "boolean"
	case tkPlus:
		return "'+'"
	case tkMinus:
		return "'-'"
	case tkStar:
		return "'*'"
	case tkSlash:
		return "'/'"
	case tkLT:
		return "'<'"
	case tkGT:
		return "'>'"
	case tkLE:
		return "'<='"
	case tkGE:
		return "'>='"
	case tkEQ:
		return "'=='"
	case tkNE:
		return "'!='"
	case tkLParen:
		return "'('"
	case tkRParen:
		return "')'"
	default:
		return "invalid token"
	}
}

type token struct {
	kind tokKind
	lit  string
	pos  int
}

// scanner walks the expression source byte by byte; expressions are ASCII
// plus whatever UTF-8 appears inside string literals, so byte-wise reads
// with opaque copying of string contents are enough.
type scanner struct {
	src string
	pos int
	err *SyntaxError
}

func (s *scanner) failf(pos int, format string, args ...any) token {
	if s.err == nil {
		s.err = &SyntaxError{Offset: pos, Msg: fmt.Sprintf(format, args...)}
	}
	return token{kind: tkInvalid, pos: pos}
}

func (s *scanner) peekChar() byte {
	if s.pos+1 < len(s.src) {
		return s.src[s.pos+1]
	}
	return 0
}

func (s *scanner) next() token {
	for s.pos < len(s.src) && (s.src[s.pos] == ' ' || s.src[s.pos] == '\t') {
		s.pos++
	}
	if s.pos >= len(s.src) {
		return token{kind: tkEOF, pos: s.pos}
	}
	start := s.pos
	ch := s.src[s.pos]
	switch {
	case ch == '(':
		s.pos++
		return token{kind: tkLParen, lit: "(", pos: start}
	case ch == ')':
		s.pos++
		return token{kind: tkRParen, lit: ")", pos: start}
	case ch == '+':
		s.pos++
		return token{kind: tkPlus, lit: "+", pos: start}
	case ch == '-':
		s.pos++
		return token{kind: tkMinus, lit: "-", pos: start}
	case ch == '*':
		s.pos++
		return token{kind: tkStar, lit: "*", pos: start}
	case ch == '/':
		s.pos++
		return token{kind: tkSlash, lit: "/", pos: start}
	case ch == '<':
		if s.peekChar() == '=' {
			s.pos += 2
			return token{kind: tkLE, lit: "<=", pos: start}
		}
		s.pos++
		return token{kind: tkLT, lit: "<", pos: start}
	case ch == '>':
		if s.peekChar() == '=' {
			s.pos += 2
			return token{kind: tkGE, lit: ">=", pos: start}
		}
		s.pos++
		return token{kind: tkGT, lit: ">", pos: start}
	case ch == '=':
		if s.peekChar() == '=' {
			s.pos += 2
			return token{kind: tkEQ, lit: "==", pos: start}
		}
		return s.failf(start, "single '=' is not an operator, use '=='")
	case ch == '!':
		if s.peekChar() == '=' {
			s.pos += 2
			return token{kind: tkNE, lit: "!=", pos: start}
		}
		return s.failf(start, "unexpected '!'")
	case ch == '"':
		return s.scanString(start)
	case ch >= '0' && ch <= '9':
		return s.scanNumber(start)
	case isIdentStart(ch):
		return s.scanIdent(start)
	default:
		return s.failf(start, "unexpected character %q", string(ch))
	}
}

func (s *scanner) scanString(start int) token {
	s.pos++ // opening quote
	var out []byte
	for s.pos < len(s.src) {
		ch := s.src[s.pos]
		switch ch {
		case '"':
			s.pos++
			return token{kind: tkString, lit: string(out), pos: start}
		case '\\':
			if s.pos+1 >= len(s.src) {
				return s.failf(start, "unterminated string literal")
			}
			s.pos++
			switch s.src[s.pos] {
			case '"':
				out = append(out, '"')
			case '\\':
				out = append(out, '\\')
			case 'n':
				out = append(out, '\n')
			case 't':
				out = append(out, '\t')
			default:
				return s.failf(s.pos, "unknown escape %q", string(s.src[s.pos]))
			}
			s.pos++
		default:
			out = append(out, ch)
			s.pos++
		}
	}
	return s.failf(start, "unterminated string literal")
}

func (s *scanner) scanNumber(start int) token {
	sawDot := false
	for s.pos < len(s.src) {
		ch := s.src[s.pos]
		if ch >= '0' && ch <= '9' {
			s.pos++
			continue
		}
		if ch == '.' && !sawDot {
			sawDot = true
			s.pos++
			continue
		}
		break
	}
	lit := s.src[start:s.pos]
	if lit[len(lit)-1] == '.' {
		return s.failf(start, "malformed number %q", lit)
	}
	return token{kind: tkNumber, lit: lit, pos: start}
}

func (s *scanner) scanIdent(start int) token {
	for s.pos < len(s.src) && isIdentPart(s.src[s.pos]) {
		s.pos++
	}
	lit := s.src[start:s.pos]
	switch lit {
	case "true":
		return token{kind: tkTrue, lit: lit, pos: start}
	case "false":
		return token{kind: tkFalse, lit: lit, pos: start}
	}
	return token{kind: tkIdent, lit: lit, pos: start}
}

func isIdentStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || (ch >= '0' && ch <= '9')
}
