/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package views

import "github.com/mikezilla14/fountain-flow/internal/ast"

// LogicKind classifies a logic view item.
type LogicKind int

const (
	LogicStateDecl LogicKind = iota + 1
	LogicStateMutation
	LogicChoice
	LogicOption
	LogicCond
	LogicBranch
	LogicJump
	LogicAnchor
	// LogicNarrativeElided stands in for a run of consecutive prose
	// nodes. FromLine/ToLine span the run, Count is the node count.
	LogicNarrativeElided
)

func (k LogicKind) String() string {
	switch k {
	case LogicStateDecl:
		return "state-decl"
	case LogicStateMutation:
		return "state-mutation"
	case LogicChoice:
		return "choice"
	case LogicOption:
		return "option"
	case LogicCond:
		return "conditional"
	case LogicBranch:
		return "branch"
	case LogicJump:
		return "jump"
	case LogicAnchor:
		return "anchor"
	case LogicNarrativeElided:
		return "narrative-elided"
	default:
		return "invalid"
	}
}

// LogicItem is one entry of the logic view. Ref points at the underlying
// AST node; branches borrow their conditional's ID.
type LogicItem struct {
	Kind LogicKind
	Ref  string
	Line int

	Name  string // variable or anchor name, jump target
	Op    string // mutation operator
	Expr  string // initial literal, assigned expression or guard
	Label string // option label

	// Elided prose span.
	FromLine int
	ToLine   int
	Count    int

	Children []LogicItem
}

// Edge is one jump in the graph. ToID is empty while the jump is
// unresolved; Target always carries the anchor name as written.
type Edge struct {
	FromID string
	Target string
	ToID   string
	Line   int
}

// GraphNode is an anchor vertex.
type GraphNode struct {
	ID   string
	Name string
	Line int
}

// Graph is the script's jump graph: anchors as vertices, one edge per
// jump directive wherever it sits in the tree.
type Graph struct {
	Nodes []GraphNode
	Edges []Edge
}

// LogicView is the systems-facing projection of a script.
type LogicView struct {
	Items []LogicItem
	Graph Graph
}

// Logic projects s. The projection is read-only and deterministic.
func Logic(s *ast.Script) *LogicView {
	return &LogicView{Items: logicNodes(s.Nodes), Graph: buildGraph(s)}
}

func isProse(n ast.Node) bool {
	switch n.(type) {
	case *ast.SceneHeading, *ast.Action, *ast.Dialogue, *ast.AssetDirective:
		return true
	}
	return false
}

func logicNodes(nodes []ast.Node) []LogicItem {
	var out []LogicItem
	var run []ast.Node
	flush := func() {
		if len(run) == 0 {
			return
		}
		out = append(out, LogicItem{
			Kind:     LogicNarrativeElided,
			Ref:      run[0].ID(),
			Line:     run[0].Pos(),
			FromLine: run[0].Pos(),
			ToLine:   run[len(run)-1].Pos(),
			Count:    len(run),
		})
		run = nil
	}
	for _, n := range nodes {
		if isProse(n) {
			run = append(run, n)
			continue
		}
		flush()
		switch v := n.(type) {
		case *ast.StateDecl:
			out = append(out, LogicItem{Kind: LogicStateDecl, Ref: v.ID(), Line: v.Pos(), Name: v.Name, Expr: v.Init.Literal()})
		case *ast.StateMutation:
			out = append(out, LogicItem{Kind: LogicStateMutation, Ref: v.ID(), Line: v.Pos(), Name: v.Name, Op: v.Op.String(), Expr: v.Value.String()})
		case *ast.ChoiceBlock:
			item := LogicItem{Kind: LogicChoice, Ref: v.ID(), Line: v.Pos()}
			for _, opt := range v.Options {
				item.Children = append(item.Children, LogicItem{
					Kind:     LogicOption,
					Ref:      opt.ID(),
					Line:     opt.Pos(),
					Label:    opt.Label,
					Children: logicNodes(opt.Body),
				})
			}
			out = append(out, item)
		case *ast.Conditional:
			out = append(out, logicConditional(v))
		case *ast.Jump:
			out = append(out, LogicItem{Kind: LogicJump, Ref: v.ID(), Line: v.Pos(), Name: v.Target})
		case *ast.AnchorLabel:
			out = append(out, LogicItem{Kind: LogicAnchor, Ref: v.ID(), Line: v.Pos(), Name: v.Name})
		}
	}
	flush()
	return out
}

func logicConditional(v *ast.Conditional) LogicItem {
	item := LogicItem{Kind: LogicCond, Ref: v.ID(), Line: v.Pos()}
	for _, br := range v.Branches {
		child := LogicItem{Kind: LogicBranch, Ref: v.ID(), Line: br.Line, Children: logicNodes(br.Body)}
		if br.Guard != nil {
			child.Expr = br.Guard.String()
		}
		item.Children = append(item.Children, child)
	}
	return item
}

func buildGraph(s *ast.Script) Graph {
	var g Graph
	byName := make(map[string]string)
	ast.WalkAll(s.Nodes, func(n ast.Node) {
		if a, ok := n.(*ast.AnchorLabel); ok {
			g.Nodes = append(g.Nodes, GraphNode{ID: a.ID(), Name: a.Name, Line: a.Pos()})
			if _, dup := byName[a.Name]; !dup {
				byName[a.Name] = a.ID()
			}
		}
	})
	ast.WalkAll(s.Nodes, func(n ast.Node) {
		j, ok := n.(*ast.Jump)
		if !ok {
			return
		}
		e := Edge{FromID: j.ID(), Target: j.Target, Line: j.Pos()}
		if j.Anchor != nil {
			e.ToID = j.Anchor.ID()
		} else if id, ok := byName[j.Target]; ok {
			e.ToID = id
		}
		g.Edges = append(g.Edges, e)
	})
	return g
}

// Walk visits every item depth-first in document order.
func (v *LogicView) Walk(fn func(LogicItem)) {
	walkLogic(v.Items, fn)
}

func walkLogic(items []LogicItem, fn func(LogicItem)) {
	for _, it := range items {
		fn(it)
		walkLogic(it.Children, fn)
	}
}

// Count returns how many items of kind k the view holds.
func (v *LogicView) Count(k LogicKind) int {
	n := 0
	v.Walk(func(it LogicItem) {
		if it.Kind == k {
			n++
		}
	})
	return n
}
