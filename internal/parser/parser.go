/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package parser builds the syntax tree from the lexer's token stream.
//
// Nesting is indentation scoped: a block's body is the maximal run of
// following tokens indented deeper than the block's own header line.
// Choice options sit at the same depth as their "?" marker; an "(ELSE)"
// sits at the same depth as its "(IF: ...)". Blank lines and comments are
// invisible to scoping.
//
// The parser assigns every node a document-order ID ("n0001", "n0002", ...)
// so later passes can reference nodes without holding pointers. Identical
// input always yields identical IDs.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mikezilla14/fountain-flow/internal/ast"
	"github.com/mikezilla14/fountain-flow/internal/expr"
	"github.com/mikezilla14/fountain-flow/internal/lexer"
)

// ParseError is fatal: the tree would be structurally unsound past it.
type ParseError struct {
	Line     int
	Expected string
	Found    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: expected %s, found %s", e.Line, e.Expected, e.Found)
}

// Parse consumes the token stream and returns the script with an empty
// symbol and anchor table; resolution is a separate pass.
func Parse(tokens []ast.Token) (*ast.Script, error) {
	p := &parser{toks: tokens}
	nodes, err := p.parseNodes(-1)
	if err != nil {
		return nil, err
	}
	if tok := p.cur(); tok.Kind != ast.KindEOF {
		return nil, p.errf(tok, "end of input")
	}
	return ast.NewScript(nodes), nil
}

type parser struct {
	toks   []ast.Token
	pos    int
	nextID int
}

func (p *parser) cur() ast.Token {
	if p.pos < len(p.toks) {
		return p.toks[p.pos]
	}
	return ast.Token{Kind: ast.KindEOF, Line: -1}
}

func (p *parser) advance() { p.pos++ }

// skipTrivia consumes blank lines and comments; they never carry structure.
func (p *parser) skipTrivia() {
	for {
		k := p.cur().Kind
		if k != ast.KindBlankLine && k != ast.KindComment {
			return
		}
		p.advance()
	}
}

func (p *parser) newInfo(tok ast.Token) ast.Info {
	p.nextID++
	return ast.Info{NodeID: fmt.Sprintf("n%04d", p.nextID), Line: tok.Line}
}

func (p *parser) errf(tok ast.Token, expected string) *ParseError {
	found := tok.Kind.String()
	if tok.Text != "" {
		found = fmt.Sprintf("%s %q", found, tok.Text)
	}
	return &ParseError{Line: tok.Line, Expected: expected, Found: found}
}

// parseNodes collects sibling nodes while tokens stay indented deeper than
// parentIndent. The top level passes -1 so every token qualifies.
func (p *parser) parseNodes(parentIndent int) ([]ast.Node, error) {
	var nodes []ast.Node
	for {
		p.skipTrivia()
		tok := p.cur()
		if tok.Kind == ast.KindEOF || tok.Indent <= parentIndent {
			return nodes, nil
		}

		switch tok.Kind {
		case ast.KindSceneHeading:
			nodes = append(nodes, &ast.SceneHeading{Info: p.newInfo(tok), Text: tok.Text})
			p.advance()

		case ast.KindActionLine:
			nodes = append(nodes, &ast.Action{Info: p.newInfo(tok), Text: tok.Text})
			p.advance()

		case ast.KindDialogueSpeaker:
			n, err := p.parseDialogue(tok)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, n)

		case ast.KindDialogueLine:
			return nil, p.errf(tok, "a dialogue speaker before speech")

		case ast.KindAssetDirective:
			keyword, payload := lexer.SplitAsset(tok.Text)
			kind, ok := ast.AssetKindFor(keyword)
			if !ok {
				return nil, p.errf(tok, "a known asset keyword")
			}
			nodes = append(nodes, &ast.AssetDirective{Info: p.newInfo(tok), Kind: kind, Payload: payload})
			p.advance()

		case ast.KindStateDecl:
			n, err := p.parseStateDecl(tok)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, n)

		case ast.KindStateAssign:
			n, err := p.parseStateAssign(tok)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, n)

		case ast.KindChoiceMarker:
			n, err := p.parseChoice(tok)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, n)

		case ast.KindChoiceOptionHeader:
			return nil, p.errf(tok, "a '?' choice marker before its options")

		case ast.KindConditionGuard:
			n, err := p.parseConditional(tok)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, n)

		case ast.KindElseGuard:
			return nil, p.errf(tok, "an '(IF: ...)' guard at the same depth before '(ELSE)'")

		case ast.KindJumpDirective:
			nodes = append(nodes, &ast.Jump{Info: p.newInfo(tok), Target: lexer.JumpTarget(tok.Text)})
			p.advance()

		case ast.KindAnchorLabel:
			nodes = append(nodes, &ast.AnchorLabel{Info: p.newInfo(tok), Name: lexer.AnchorName(tok.Text)})
			p.advance()

		default:
			return nil, p.errf(tok, "a script construct")
		}
	}
}

// isParenthetical reports a line that is wholly a performance note.
func isParenthetical(text string) (string, bool) {
	if len(text) >= 2 && text[0] == '(' && text[len(text)-1] == ')' && !strings.ContainsAny(text[1:len(text)-1], "()") {
		return strings.TrimSpace(text[1 : len(text)-1]), true
	}
	return "", false
}

// parseDialogue consumes a cue and its run of dialogue lines. A leading
// "(note)" line becomes the parenthetical and wins over a cue extension
// like "RAVEN (V.O.)".
func (p *parser) parseDialogue(cueTok ast.Token) (*ast.Dialogue, error) {
	name, ext := lexer.SpeakerCue(cueTok.Text)
	d := &ast.Dialogue{Info: p.newInfo(cueTok), Speaker: name, Parenthetical: ext}
	p.advance()

	first := true
	for {
		tok := p.cur()
		if tok.Kind == ast.KindComment {
			p.advance()
			continue
		}
		if tok.Kind != ast.KindDialogueLine {
			break
		}
		if note, ok := isParenthetical(tok.Text); ok && first {
			d.Parenthetical = note
		} else {
			d.Lines = append(d.Lines, tok.Text)
		}
		first = false
		p.advance()
	}
	return d, nil
}

func (p *parser) parseStateDecl(tok ast.Token) (*ast.StateDecl, error) {
	name, op, rhs := lexer.SplitState(tok.Text)
	if op != ":" {
		return nil, p.errf(tok, "a ':' declaration")
	}
	val, err := parseLiteral(rhs)
	if err != nil {
		return nil, &ParseError{Line: tok.Line, Expected: "a literal initial value for " + name, Found: err.Error()}
	}
	n := &ast.StateDecl{Info: p.newInfo(tok), Name: name, Init: val}
	p.advance()
	return n, nil
}

// parseLiteral reads a declaration value: true/false, a number, a quoted
// string, or bare text which counts as a string.
func parseLiteral(raw string) (expr.Value, error) {
	switch raw {
	case "true":
		return expr.Bool(true), nil
	case "false":
		return expr.Bool(false), nil
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return expr.Number(f), nil
	}
	if strings.HasPrefix(raw, "\"") {
		s, err := strconv.Unquote(raw)
		if err != nil {
			return expr.Value{}, fmt.Errorf("malformed quoted string %s", raw)
		}
		return expr.String(s), nil
	}
	return expr.String(raw), nil
}

func (p *parser) parseStateAssign(tok ast.Token) (*ast.StateMutation, error) {
	name, op, rhs := lexer.SplitState(tok.Text)
	var mop ast.MutateOp
	switch op {
	case "=":
		mop = ast.MutateAssign
	case "+=":
		mop = ast.MutateAdd
	case "-=":
		mop = ast.MutateSub
	default:
		return nil, p.errf(tok, "an assignment operator")
	}
	e, err := expr.Parse(rhs)
	if err != nil {
		return nil, &ParseError{Line: tok.Line, Expected: "a well-formed expression", Found: err.Error()}
	}
	n := &ast.StateMutation{Info: p.newInfo(tok), Name: name, Op: mop, Value: e}
	p.advance()
	return n, nil
}

// parseChoice reads "? prompt" plus its options. Options sit at the same
// depth as the marker; each option's body is the deeper-indented run under
// its header, with an inline "-> #T" desugaring to a trailing jump.
func (p *parser) parseChoice(markerTok ast.Token) (*ast.ChoiceBlock, error) {
	cb := &ast.ChoiceBlock{Info: p.newInfo(markerTok), Prompt: lexer.Prompt(markerTok.Text)}
	p.advance()

	for {
		p.skipTrivia()
		tok := p.cur()
		if tok.Kind != ast.KindChoiceOptionHeader {
			break
		}
		if tok.Indent != markerTok.Indent {
			if len(cb.Options) == 0 && tok.Indent > markerTok.Indent {
				return nil, p.errf(tok, "choice options at the same depth as their '?' marker")
			}
			break
		}
		label, display, target := lexer.SplitOption(tok.Text)
		opt := &ast.ChoiceOption{Info: p.newInfo(tok), Label: label, Text: display}
		var inlineJump *ast.Jump
		if target != "" {
			inlineJump = &ast.Jump{Info: p.newInfo(tok), Target: target}
		}
		p.advance()

		body, err := p.parseNodes(tok.Indent)
		if err != nil {
			return nil, err
		}
		opt.Body = body
		if inlineJump != nil {
			opt.Body = append(opt.Body, inlineJump)
		}
		cb.Options = append(cb.Options, opt)
	}

	if len(cb.Options) == 0 {
		return nil, p.errf(p.cur(), "at least one '+' option after the choice prompt")
	}
	return cb, nil
}

// parseConditional reads an "(IF: ...)" branch and an optional "(ELSE)" at
// the same depth. A sibling "(IF: ...)" does not chain; it starts its own
// conditional.
func (p *parser) parseConditional(guardTok ast.Token) (*ast.Conditional, error) {
	cond := &ast.Conditional{Info: p.newInfo(guardTok)}

	guard, err := expr.Parse(lexer.GuardExpr(guardTok.Text))
	if err != nil {
		return nil, &ParseError{Line: guardTok.Line, Expected: "a well-formed guard expression", Found: err.Error()}
	}
	p.advance()
	body, err := p.parseNodes(guardTok.Indent)
	if err != nil {
		return nil, err
	}
	cond.Branches = append(cond.Branches, ast.CondBranch{Line: guardTok.Line, Guard: guard, Body: body})

	p.skipTrivia()
	if tok := p.cur(); tok.Kind == ast.KindElseGuard && tok.Indent == guardTok.Indent {
		p.advance()
		elseBody, err := p.parseNodes(tok.Indent)
		if err != nil {
			return nil, err
		}
		cond.Branches = append(cond.Branches, ast.CondBranch{Line: tok.Line, Body: elseBody})
	}
	return cond, nil
}
