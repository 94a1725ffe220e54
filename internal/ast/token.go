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

// TokenKind classifies one source line. The lexer is line oriented: every
// physical line maps to exactly one token.
type TokenKind int

const (
	KindInvalid TokenKind = iota
	// KindSceneHeading is an uppercase INT./EXT. style slug line.
	KindSceneHeading
	// KindActionLine is prose that matched nothing more specific.
	KindActionLine
	// KindDialogueSpeaker is an uppercase character cue, optionally with a
	// trailing (parenthetical).
	KindDialogueSpeaker
	// KindDialogueLine is speech or a standalone (parenthetical) under a cue.
	KindDialogueLine
	// KindAssetDirective is "! KEYWORD: payload" (BG, SHOW, MUSIC, SFX).
	KindAssetDirective
	// KindStateDecl is the first "$ NAME: value" sighting of a variable.
	KindStateDecl
	// KindStateAssign is "$ NAME op value" or "~ NAME op value" for a known
	// variable, with op one of =, +=, -=.
	KindStateAssign
	// KindChoiceMarker is "? prompt".
	KindChoiceMarker
	// KindChoiceOptionHeader is "+ [Label] text" with optional "-> #TARGET".
	KindChoiceOptionHeader
	// KindConditionGuard is "(IF: expr)".
	KindConditionGuard
	// KindElseGuard is "(ELSE)".
	KindElseGuard
	// KindJumpDirective is "-> #TARGET".
	KindJumpDirective
	// KindAnchorLabel is "# NAME".
	KindAnchorLabel
	// KindComment is a "; ..." author note.
	KindComment
	// KindBlankLine separates blocks and terminates dialogue runs.
	KindBlankLine
	// KindEOF is the sentinel the lexer appends after the last line.
	KindEOF
)

var tokenKindNames = map[TokenKind]string{
	KindInvalid:            "invalid",
	KindSceneHeading:       "scene heading",
	KindActionLine:         "action line",
	KindDialogueSpeaker:    "dialogue speaker",
	KindDialogueLine:       "dialogue line",
	KindAssetDirective:     "asset directive",
	KindStateDecl:          "state declaration",
	KindStateAssign:        "state assignment",
	KindChoiceMarker:       "choice marker",
	KindChoiceOptionHeader: "choice option",
	KindConditionGuard:     "condition guard",
	KindElseGuard:          "else guard",
	KindJumpDirective:      "jump directive",
	KindAnchorLabel:        "anchor label",
	KindComment:            "comment",
	KindBlankLine:          "blank line",
	KindEOF:                "end of input",
}

func (k TokenKind) String() string {
	if s, ok := tokenKindNames[k]; ok {
		return s
	}
	return "invalid"
}

// Token is one classified source line. Text is the line verbatim minus the
// leading indentation and trailing newline; Indent is the indentation width
// in columns (a tab advances to the next multiple of four).
type Token struct {
	Kind   TokenKind
	Text   string
	Line   int // 1-based
	Indent int
}
