/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package ast defines the token stream and syntax tree for fountain-flow
// scripts: screenplay prose (scenes, action, dialogue) interleaved with
// branching logic (state, choices, conditionals, jumps, anchors).
//
// The node set is closed; consumers dispatch with a type switch. Every node
// carries a stable document-order ID and its source line, so derived views
// and diagnostics can point back into the tree without copying it.
package ast

import "github.com/mikezilla14/fountain-flow/internal/expr"

// Node is one syntax tree node. Implementations live in this package only.
type Node interface {
	node()
	// ID returns the document-order identifier assigned at parse time,
	// e.g. "n0042". IDs are stable across re-parses of identical input.
	ID() string
	// Pos returns the 1-based source line the node starts on.
	Pos() int
}

// Info is the bookkeeping every node embeds.
type Info struct {
	NodeID string
	Line   int
}

func (i Info) ID() string { return i.NodeID }
func (i Info) Pos() int   { return i.Line }

// SceneHeading is a slug line such as "INT. ABANDONED CHURCH - NIGHT".
type SceneHeading struct {
	Info
	Text string
}

// Action is a paragraph of scene description.
type Action struct {
	Info
	Text string
}

// Dialogue is a character cue with its speech. Parenthetical is the
// performance note without its parentheses, empty when absent.
type Dialogue struct {
	Info
	Speaker       string
	Parenthetical string
	Lines         []string
}

// AssetKind says which presentation channel an asset directive drives.
type AssetKind int

const (
	AssetInvalid AssetKind = iota
	AssetBackground
	AssetShow
	AssetMusic
	AssetSFX
)

// assetKeywords maps the surface keyword to its kind; Keyword is the
// inverse. The zero AssetKind has no keyword.
var assetKeywords = map[string]AssetKind{
	"BG":    AssetBackground,
	"SHOW":  AssetShow,
	"MUSIC": AssetMusic,
	"SFX":   AssetSFX,
}

// AssetKindFor resolves a directive keyword such as "BG"; ok is false for
// unknown keywords.
func AssetKindFor(keyword string) (AssetKind, bool) {
	k, ok := assetKeywords[keyword]
	return k, ok
}

// Keyword returns the surface keyword for the kind ("BG", "SHOW", ...).
func (k AssetKind) Keyword() string {
	for kw, kind := range assetKeywords {
		if kind == k {
			return kw
		}
	}
	return ""
}

func (k AssetKind) String() string {
	switch k {
	case AssetBackground:
		return "background"
	case AssetShow:
		return "show"
	case AssetMusic:
		return "music"
	case AssetSFX:
		return "sfx"
	default:
		return "invalid"
	}
}

// AssetDirective requests a background, sprite, music or sound change.
// Payload is the text after the colon, verbatim.
type AssetDirective struct {
	Info
	Kind    AssetKind
	Payload string
}

// StateDecl introduces a variable with its initial literal value; the
// variable's type is Init.Type.
type StateDecl struct {
	Info
	Name string
	Init expr.Value
}

// MutateOp is the operator of a state mutation.
type MutateOp int

const (
	MutateInvalid MutateOp = iota
	MutateAssign
	MutateAdd
	MutateSub
)

func (o MutateOp) String() string {
	switch o {
	case MutateAssign:
		return "="
	case MutateAdd:
		return "+="
	case MutateSub:
		return "-="
	default:
		return "?"
	}
}

// StateMutation reassigns or adjusts a declared variable.
type StateMutation struct {
	Info
	Name  string
	Op    MutateOp
	Value expr.Expr
}

// ChoiceBlock presents a prompt and its options to the player.
type ChoiceBlock struct {
	Info
	Prompt  string
	Options []*ChoiceOption
}

// ChoiceOption is one selectable answer. Label is the short menu text in
// brackets, Text the optional longer line shown with it. Body holds the
// nodes run when the option is picked; an inline "-> #TARGET" on the header
// line parses as a trailing Jump in Body.
type ChoiceOption struct {
	Info
	Label string
	Text  string
	Body  []Node
}

// CondBranch is one arm of a Conditional. Guard is nil on the else arm.
type CondBranch struct {
	Line  int
	Guard expr.Expr
	Body  []Node
}

// Conditional is an (IF: ...) guard with optional (ELSE); the else branch,
// when present, is last.
type Conditional struct {
	Info
	Branches []CondBranch
}

// Jump transfers control to an anchor. Target is the bare name without the
// "#"; Anchor is filled in by the resolver and is a non-owning reference
// into the same tree.
type Jump struct {
	Info
	Target string
	Anchor *AnchorLabel
}

// AnchorLabel names a jump target.
type AnchorLabel struct {
	Info
	Name string
}

func (*SceneHeading) node()   {}
func (*Action) node()         {}
func (*Dialogue) node()       {}
func (*AssetDirective) node() {}
func (*StateDecl) node()      {}
func (*StateMutation) node()  {}
func (*ChoiceBlock) node()    {}
func (*ChoiceOption) node()   {}
func (*Conditional) node()    {}
func (*Jump) node()           {}
func (*AnchorLabel) node()    {}

// Walk calls fn for n and then for every node beneath it, in document
// order. ChoiceOption nodes are visited between their block and their body.
func Walk(n Node, fn func(Node)) {
	if n == nil {
		return
	}
	fn(n)
	switch v := n.(type) {
	case *ChoiceBlock:
		for _, opt := range v.Options {
			Walk(opt, fn)
		}
	case *ChoiceOption:
		WalkAll(v.Body, fn)
	case *Conditional:
		for _, br := range v.Branches {
			WalkAll(br.Body, fn)
		}
	}
}

// WalkAll walks each node of a body in order.
func WalkAll(nodes []Node, fn func(Node)) {
	for _, n := range nodes {
		Walk(n, fn)
	}
}
