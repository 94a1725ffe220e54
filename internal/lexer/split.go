/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package lexer

import "strings"

// The Split helpers pull payloads out of token text the classifier already
// validated. The parser uses them so both sides agree on one set of
// patterns; on text of the wrong shape they return zero values.

// SplitAsset returns the keyword and payload of "! KEYWORD: payload".
func SplitAsset(text string) (keyword, payload string) {
	m := reAsset.FindStringSubmatch(text)
	if m == nil {
		return "", ""
	}
	return m[1], strings.TrimSpace(m[2])
}

// SplitState returns the pieces of a "$"/"~" line. Op is ":" for a
// declaration and "=", "+=" or "-=" for an assignment.
func SplitState(text string) (name, op, rhs string) {
	m := reState.FindStringSubmatch(text)
	if m == nil {
		return "", "", ""
	}
	name = m[2]
	rest := m[3]
	switch {
	case strings.HasPrefix(rest, ":"):
		return name, ":", strings.TrimSpace(rest[1:])
	case strings.HasPrefix(rest, "+="), strings.HasPrefix(rest, "-="):
		return name, rest[:2], strings.TrimSpace(rest[2:])
	case strings.HasPrefix(rest, "="):
		return name, "=", strings.TrimSpace(rest[1:])
	}
	return name, "", ""
}

// SplitOption returns the label, display text and optional inline jump
// target of "+ [Label] text -> #TARGET".
func SplitOption(text string) (label, display, target string) {
	m := reOption.FindStringSubmatch(text)
	if m == nil {
		return "", "", ""
	}
	label = strings.TrimSpace(m[1])
	rest := strings.TrimSpace(m[2])
	if mt := reTarget.FindStringSubmatch(rest); mt != nil {
		return label, strings.TrimSpace(mt[1]), mt[2]
	}
	return label, rest, ""
}

// GuardExpr returns the expression source inside "(IF: ...)".
func GuardExpr(text string) string {
	if !strings.HasPrefix(text, "(IF") || !strings.HasSuffix(text, ")") {
		return ""
	}
	inner := text[len("(IF") : len(text)-1]
	return strings.TrimSpace(strings.TrimPrefix(inner, ":"))
}

// JumpTarget returns the anchor name of "-> #TARGET".
func JumpTarget(text string) string {
	m := reJump.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[1]
}

// AnchorName returns the canonical name of "# ..." labels. Multi-word
// labels slug to uppercase with underscores so prose headings and strict
// "#NAME" targets share one namespace.
func AnchorName(text string) string {
	m := reAnchor.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.ToUpper(strings.Join(strings.Fields(m[1]), "_"))
}

// SpeakerCue returns the character name and optional cue extension of an
// uppercase cue line such as "RAVEN (V.O.)".
func SpeakerCue(text string) (name, extension string) {
	m := reSpeaker.FindStringSubmatch(text)
	if m == nil {
		return "", ""
	}
	return strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
}

// Prompt returns the prompt text of a "? ..." choice marker.
func Prompt(text string) string {
	return strings.TrimSpace(strings.TrimPrefix(text, "?"))
}
