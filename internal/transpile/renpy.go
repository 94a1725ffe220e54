/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package transpile

import (
	"strconv"
	"strings"

	"github.com/mikezilla14/fountain-flow/internal/ast"
	"github.com/mikezilla14/fountain-flow/internal/expr"
)

// The renpy backend emits a Ren'Py script. Control flow maps one to one:
// anchors become labels, jumps become jump statements, choices become menu
// blocks and conditionals become if/else. State lines ride on "$" python
// statements, so literals print in Python spelling. Scene headings survive
// as comments; parentheticals are folded into the dialogue line.
//
// Anchors inside option or branch bodies have no Ren'Py equivalent (labels
// are top level) and reject the render.

func init() { Register(renpyBackend{}) }

type renpyBackend struct{}

func (renpyBackend) Name() string { return "renpy" }

func (renpyBackend) Render(s *ast.Script) ([]byte, error) {
	e := &renpyEmitter{}
	e.line(0, "label start:")
	open := 0 // statements under the current label
	for _, n := range s.Nodes {
		if a, ok := n.(*ast.AnchorLabel); ok {
			if open == 0 {
				e.line(1, "pass")
			}
			e.blank()
			e.line(0, "label "+a.Name+":")
			open = 0
			continue
		}
		if err := e.node(n, 1); err != nil {
			return nil, err
		}
		open++
	}
	if open == 0 {
		e.line(1, "pass")
	}
	return []byte(e.b.String()), nil
}

type renpyEmitter struct {
	b strings.Builder
}

func (e *renpyEmitter) line(indent int, s string) {
	for i := 0; i < indent; i++ {
		e.b.WriteString("    ")
	}
	e.b.WriteString(s)
	e.b.WriteString("\n")
}

func (e *renpyEmitter) blank() { e.b.WriteString("\n") }

func (e *renpyEmitter) node(n ast.Node, indent int) error {
	switch v := n.(type) {
	case *ast.SceneHeading:
		e.line(indent, "# "+v.Text)
	case *ast.Action:
		e.line(indent, strconv.Quote(v.Text))
	case *ast.Dialogue:
		text := strings.Join(v.Lines, " ")
		if v.Parenthetical != "" {
			text = "(" + v.Parenthetical + ") " + text
		}
		e.line(indent, renpyCharacter(v.Speaker)+" "+strconv.Quote(text))
	case *ast.AssetDirective:
		switch v.Kind {
		case ast.AssetBackground:
			e.line(indent, "scene "+v.Payload)
		case ast.AssetShow:
			e.line(indent, "show "+v.Payload)
		case ast.AssetMusic:
			e.line(indent, "play music "+strconv.Quote(v.Payload))
		case ast.AssetSFX:
			e.line(indent, "play sound "+strconv.Quote(v.Payload))
		}
	case *ast.StateDecl:
		e.line(indent, "$ "+v.Name+" = "+pyLiteral(v.Init))
	case *ast.StateMutation:
		e.line(indent, "$ "+v.Name+" "+v.Op.String()+" "+pyExpr(v.Value))
	case *ast.Conditional:
		for _, br := range v.Branches {
			if br.Guard != nil {
				e.line(indent, "if "+pyExpr(br.Guard)+":")
			} else {
				e.line(indent, "else:")
			}
			if err := e.body(br.Body, indent+1); err != nil {
				return err
			}
		}
	case *ast.ChoiceBlock:
		e.line(indent, "menu:")
		if v.Prompt != "" {
			e.line(indent+1, strconv.Quote(v.Prompt))
		}
		for _, opt := range v.Options {
			e.line(indent+1, strconv.Quote(opt.Label)+":")
			if opt.Text != "" {
				e.line(indent+2, strconv.Quote(opt.Text))
			}
			if len(opt.Body) == 0 && opt.Text == "" {
				e.line(indent+2, "pass")
				continue
			}
			if err := e.bodyNodes(opt.Body, indent+2); err != nil {
				return err
			}
		}
	case *ast.Jump:
		e.line(indent, "jump "+v.Target)
	case *ast.AnchorLabel:
		return unsupported("renpy", "an anchor inside a nested block", v.Pos())
	}
	return nil
}

func (e *renpyEmitter) body(nodes []ast.Node, indent int) error {
	if len(nodes) == 0 {
		e.line(indent, "pass")
		return nil
	}
	return e.bodyNodes(nodes, indent)
}

func (e *renpyEmitter) bodyNodes(nodes []ast.Node, indent int) error {
	for _, n := range nodes {
		if err := e.node(n, indent); err != nil {
			return err
		}
	}
	return nil
}

// renpyCharacter turns an uppercase cue such as "OLD MAN" into an
// identifier-shaped character name, "OldMan".
func renpyCharacter(speaker string) string {
	var b strings.Builder
	for _, word := range strings.Fields(speaker) {
		lower := strings.ToLower(word)
		b.WriteString(strings.ToUpper(lower[:1]))
		b.WriteString(lower[1:])
	}
	return b.String()
}

func pyExpr(e expr.Expr) string {
	return expr.RenderWith(e, expr.RenderOpts{Literal: pyLiteral})
}

// pyLiteral prints a value the way a "$" python line needs it; only the
// booleans differ from the canonical spelling.
func pyLiteral(v expr.Value) string {
	if v.Type == expr.TypeBool {
		if v.Bool {
			return "True"
		}
		return "False"
	}
	return v.Literal()
}
