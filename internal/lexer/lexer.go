/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package lexer turns fountain-flow source into a flat token stream. The
// language is line oriented, so lexing means classifying each physical line
// and recording its indentation; nesting is the parser's business.
//
// Two classifications are context dependent. A "$" line declares a variable
// on its first sighting and assigns afterwards, so the lexer tracks names it
// has seen. An uppercase line is a dialogue cue only when the next line
// carries speakable text; once a cue opens a dialogue run, following lines
// stay dialogue until a blank line or a logic marker closes the run.
package lexer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/mikezilla14/fountain-flow/internal/ast"
)

// LexError is fatal: the lexer stops at the first line it cannot classify.
type LexError struct {
	Line   int
	Reason string
}

func (e *LexError) Error() string { return fmt.Sprintf("line %d: %s", e.Line, e.Reason) }

var (
	reAsset   = regexp.MustCompile(`^!\s*([A-Za-z]+)\s*:\s*(.*)$`)
	reState   = regexp.MustCompile(`^([$~])\s*([A-Za-z_][A-Za-z0-9_]*)\s*(.*)$`)
	reOption  = regexp.MustCompile(`^\+\s*\[([^\]]+)\]\s*(.*)$`)
	reTarget  = regexp.MustCompile(`^(.*?)\s*->\s*#\s*([A-Za-z_][A-Za-z0-9_]*)\s*$`)
	reJump    = regexp.MustCompile(`^->\s*#\s*([A-Za-z_][A-Za-z0-9_]*)\s*$`)
	reAnchor  = regexp.MustCompile(`^#\s*([A-Za-z0-9_][A-Za-z0-9_ ]*)\s*$`)
	reScene   = regexp.MustCompile(`^(?:INT\./EXT\.|INT\.|EXT\.|EST\.|I/E)(?:\s|$)`)
	reSpeaker = regexp.MustCompile(`^([A-Z][A-Z0-9 ]*?)(?:\s*\(([^()]*)\))?$`)
)

// Lex tokenizes src. Every physical line yields exactly one token, followed
// by a single end-of-input sentinel, so token slices can be re-walked any
// number of times by downstream passes.
func Lex(src string) ([]ast.Token, error) {
	lines := strings.Split(src, "\n")
	// a trailing newline produces a phantom final element; drop it
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}

	lx := &lexer{lines: lines, seen: map[string]bool{}}
	tokens := make([]ast.Token, 0, len(lines)+1)
	for i := range lines {
		tok, err := lx.classify(i)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
	}
	tokens = append(tokens, ast.Token{Kind: ast.KindEOF, Line: len(lines) + 1})
	return tokens, nil
}

type lexer struct {
	lines      []string
	seen       map[string]bool // variable names declared so far
	inDialogue bool
}

func (lx *lexer) classify(i int) (ast.Token, error) {
	lineNo := i + 1
	indent, text := splitIndent(lx.lines[i])
	tok := ast.Token{Text: text, Line: lineNo, Indent: indent}

	fail := func(format string, args ...any) (ast.Token, error) {
		return ast.Token{}, &LexError{Line: lineNo, Reason: fmt.Sprintf(format, args...)}
	}

	switch {
	case text == "" || isFence(text):
		lx.inDialogue = false
		tok.Kind = ast.KindBlankLine
		tok.Text = ""
		return tok, nil

	case strings.HasPrefix(text, ";"):
		// notes do not interrupt a dialogue run
		tok.Kind = ast.KindComment
		return tok, nil
	}

	if lx.inDialogue && !isStructural(text) {
		tok.Kind = ast.KindDialogueLine
		return tok, nil
	}
	lx.inDialogue = false

	switch {
	case text[0] == '$' || text[0] == '~':
		m := reState.FindStringSubmatch(text)
		if m == nil {
			return fail("state line needs a variable name, e.g. \"$ GOLD: 10\"")
		}
		sigil, name, rest := m[1], m[2], m[3]
		switch {
		case strings.HasPrefix(rest, ":"):
			if sigil == "~" {
				return fail("~ assigns existing state; declare %s with \"$ %s: value\"", name, name)
			}
			if lx.seen[name] {
				return fail("variable %s is already declared; assign with =, += or -=", name)
			}
			if strings.TrimSpace(rest[1:]) == "" {
				return fail("declaration of %s is missing a value", name)
			}
			lx.seen[name] = true
			tok.Kind = ast.KindStateDecl
			return tok, nil
		case strings.HasPrefix(rest, "=="):
			return fail("assignment to %s uses a single =", name)
		case strings.HasPrefix(rest, "="), strings.HasPrefix(rest, "+="), strings.HasPrefix(rest, "-="):
			op := "="
			if len(rest) >= 2 && (rest[0] == '+' || rest[0] == '-') {
				op = rest[:2]
			}
			if strings.TrimSpace(strings.TrimPrefix(rest, op)) == "" {
				return fail("assignment to %s is missing an expression", name)
			}
			tok.Kind = ast.KindStateAssign
			return tok, nil
		default:
			return fail("state line for %s must declare with ':' or assign with =, += or -=", name)
		}

	case text[0] == '!':
		m := reAsset.FindStringSubmatch(text)
		if m == nil {
			return fail("asset directive must look like \"! BG: payload\"")
		}
		keyword, payload := m[1], strings.TrimSpace(m[2])
		if _, ok := ast.AssetKindFor(keyword); !ok {
			return fail("unknown asset keyword %s (want BG, SHOW, MUSIC or SFX)", keyword)
		}
		if payload == "" {
			return fail("asset directive %s is missing its payload", keyword)
		}
		tok.Kind = ast.KindAssetDirective
		return tok, nil

	case text[0] == '?':
		tok.Kind = ast.KindChoiceMarker
		return tok, nil

	case text[0] == '+':
		m := reOption.FindStringSubmatch(text)
		if m == nil {
			return fail("choice option is missing its [label]")
		}
		if rest := m[2]; strings.Contains(rest, "->") && !reTarget.MatchString(rest) {
			return fail("option jump must point at an anchor, e.g. \"-> #NAME\"")
		}
		tok.Kind = ast.KindChoiceOptionHeader
		return tok, nil

	case strings.HasPrefix(text, "(IF:"):
		// prose in parentheses is still possible ("(IF ONLY.)" has no
		// colon and stays an action line)
		if !strings.HasSuffix(text, ")") {
			return fail("unterminated condition guard")
		}
		if strings.TrimSpace(text[len("(IF:"):len(text)-1]) == "" {
			return fail("condition guard is empty")
		}
		tok.Kind = ast.KindConditionGuard
		return tok, nil

	case text == "(ELSE)":
		tok.Kind = ast.KindElseGuard
		return tok, nil

	case text == "(ELSE":
		return fail("malformed else guard, want \"(ELSE)\"")

	case strings.HasPrefix(text, "->"):
		if !reJump.MatchString(text) {
			return fail("jump target must be an anchor, e.g. \"-> #NAME\"")
		}
		tok.Kind = ast.KindJumpDirective
		return tok, nil

	case text[0] == '#':
		rest := strings.TrimSpace(text[1:])
		if rest == "" {
			return fail("anchor label is empty")
		}
		if !reAnchor.MatchString(text) {
			return fail("anchor name may use letters, digits, underscores and spaces")
		}
		tok.Kind = ast.KindAnchorLabel
		return tok, nil

	case isSceneHeading(text):
		tok.Kind = ast.KindSceneHeading
		return tok, nil

	case isSpeakerCue(text) && lx.speakableNext(i):
		lx.inDialogue = true
		tok.Kind = ast.KindDialogueSpeaker
		return tok, nil

	default:
		tok.Kind = ast.KindActionLine
		return tok, nil
	}
}

// speakableNext reports whether line i+1 carries dialogue text, which is
// what turns an uppercase line into a cue.
func (lx *lexer) speakableNext(i int) bool {
	if i+1 >= len(lx.lines) {
		return false
	}
	_, next := splitIndent(lx.lines[i+1])
	if next == "" || isFence(next) {
		return false
	}
	return !isStructural(next)
}

// isStructural reports whether a line opens a logic or layout construct.
// Structural lines close a dialogue run and can never be speech.
func isStructural(text string) bool {
	if text == "" {
		return false
	}
	switch text[0] {
	case '$', '~', '!', '?', '+', ';', '#':
		return true
	}
	if strings.HasPrefix(text, "->") || strings.HasPrefix(text, "(IF:") || text == "(ELSE)" {
		return true
	}
	return isSceneHeading(text)
}

func isSceneHeading(text string) bool {
	return text == strings.ToUpper(text) && reScene.MatchString(text)
}

func isSpeakerCue(text string) bool {
	m := reSpeaker.FindStringSubmatch(text)
	if m == nil {
		return false
	}
	return strings.TrimSpace(m[1]) != ""
}

// isFence reports a "===" frontmatter fence; it renders like a blank line.
func isFence(text string) bool {
	if len(text) < 3 {
		return false
	}
	return strings.Trim(text, "=") == ""
}

// splitIndent measures the leading whitespace of a raw line in columns and
// returns the remaining text without trailing whitespace. A tab advances to
// the next multiple of four.
func splitIndent(line string) (int, string) {
	col := 0
	i := 0
	for ; i < len(line); i++ {
		switch line[i] {
		case ' ':
			col++
		case '\t':
			col += 4 - col%4
		default:
			return col, strings.TrimRight(line[i:], " \t\r")
		}
	}
	return 0, ""
}
