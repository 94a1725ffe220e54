/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package views derives the two audience-specific projections of a script.
//
// The narrative view is for writers and editors: prose, cues, prompts and
// option labels survive; every logic construct collapses to an opaque
// marker that still carries the node ID and line, so nothing about state or
// branching leaks but everything can be traced back. Prose nested inside a
// conditional is kept (a reader must see both versions of a scene); only
// the guards vanish.
//
// The logic view is the inverse, for systems designers: state, choices,
// conditionals, jumps and anchors survive with their expressions, and each
// run of prose collapses to a single elided span. The logic view also
// carries the jump graph.
//
// Both projections are pure functions of the tree: deriving twice yields
// deeply equal values, and deriving never mutates the script.
package views

import "github.com/mikezilla14/fountain-flow/internal/ast"

// NarrativeKind classifies a narrative view item.
type NarrativeKind int

const (
	NarrativeScene NarrativeKind = iota + 1
	NarrativeAction
	NarrativeDialogue
	NarrativeAsset
	NarrativeChoice
	NarrativeOption
	// NarrativeLogicElided stands in for a logic construct. For elided
	// conditionals the children hold the branch bodies' narrative content.
	NarrativeLogicElided
)

func (k NarrativeKind) String() string {
	switch k {
	case NarrativeScene:
		return "scene"
	case NarrativeAction:
		return "action"
	case NarrativeDialogue:
		return "dialogue"
	case NarrativeAsset:
		return "asset"
	case NarrativeChoice:
		return "choice"
	case NarrativeOption:
		return "option"
	case NarrativeLogicElided:
		return "logic-elided"
	default:
		return "invalid"
	}
}

// NarrativeItem is one entry of the narrative view. Ref and Line point back
// at the underlying AST node.
type NarrativeItem struct {
	Kind NarrativeKind
	Ref  string
	Line int

	Text          string // heading, prose, payload, prompt or option label
	Detail        string // asset keyword, option display text
	Speaker       string
	Parenthetical string
	Lines         []string

	Children []NarrativeItem
}

// NarrativeView is the writer-facing projection of a script.
type NarrativeView struct {
	Items []NarrativeItem
}

// Narrative projects s. The projection is read-only and deterministic.
func Narrative(s *ast.Script) *NarrativeView {
	return &NarrativeView{Items: narrativeNodes(s.Nodes)}
}

func narrativeNodes(nodes []ast.Node) []NarrativeItem {
	var out []NarrativeItem
	for _, n := range nodes {
		switch v := n.(type) {
		case *ast.SceneHeading:
			out = append(out, NarrativeItem{Kind: NarrativeScene, Ref: v.ID(), Line: v.Pos(), Text: v.Text})
		case *ast.Action:
			out = append(out, NarrativeItem{Kind: NarrativeAction, Ref: v.ID(), Line: v.Pos(), Text: v.Text})
		case *ast.Dialogue:
			out = append(out, NarrativeItem{
				Kind:          NarrativeDialogue,
				Ref:           v.ID(),
				Line:          v.Pos(),
				Speaker:       v.Speaker,
				Parenthetical: v.Parenthetical,
				Lines:         append([]string(nil), v.Lines...),
			})
		case *ast.AssetDirective:
			out = append(out, NarrativeItem{Kind: NarrativeAsset, Ref: v.ID(), Line: v.Pos(), Text: v.Payload, Detail: v.Kind.Keyword()})
		case *ast.ChoiceBlock:
			item := NarrativeItem{Kind: NarrativeChoice, Ref: v.ID(), Line: v.Pos(), Text: v.Prompt}
			for _, opt := range v.Options {
				item.Children = append(item.Children, NarrativeItem{
					Kind:     NarrativeOption,
					Ref:      opt.ID(),
					Line:     opt.Pos(),
					Text:     opt.Label,
					Detail:   opt.Text,
					Children: narrativeNodes(opt.Body),
				})
			}
			out = append(out, item)
		case *ast.Conditional:
			marker := NarrativeItem{Kind: NarrativeLogicElided, Ref: v.ID(), Line: v.Pos()}
			for _, br := range v.Branches {
				marker.Children = append(marker.Children, narrativeNodes(br.Body)...)
			}
			out = append(out, marker)
		default:
			// state, jumps and anchors are logic; only the marker remains
			out = append(out, NarrativeItem{Kind: NarrativeLogicElided, Ref: n.ID(), Line: n.Pos()})
		}
	}
	return out
}

// Walk visits every item depth-first in document order.
func (v *NarrativeView) Walk(fn func(NarrativeItem)) {
	walkNarrative(v.Items, fn)
}

func walkNarrative(items []NarrativeItem, fn func(NarrativeItem)) {
	for _, it := range items {
		fn(it)
		walkNarrative(it.Children, fn)
	}
}

// Count returns how many items of kind k the view holds.
func (v *NarrativeView) Count(k NarrativeKind) int {
	n := 0
	v.Walk(func(it NarrativeItem) {
		if it.Kind == k {
			n++
		}
	})
	return n
}
