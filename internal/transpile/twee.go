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

// The twee backend emits Twee 3 notation for the SugarCube story format.
// Variable declarations are hoisted into a StoryInit passage; anchors open
// passages, and a scene heading directly after an anchor stays inside that
// passage instead of opening its own. State mutations and conditionals ride
// on <<set>> and <<if>> macros with $-prefixed variables.
//
// Twee passages are flat hyperlinks, so two shapes reject the render: an
// anchor nested inside a block, and a choice option whose body is anything
// other than a single jump (SugarCube links carry a target and nothing
// else).

func init() { Register(tweeBackend{}) }

type tweeBackend struct{}

func (tweeBackend) Name() string { return "twee" }

func (tweeBackend) Render(s *ast.Script) ([]byte, error) {
	e := &tweeEmitter{}
	if s.Symbols.Len() > 0 {
		e.line(":: StoryInit")
		for _, name := range s.Symbols.Names() {
			sym, _ := s.Symbols.Lookup(name)
			e.line("<<set $" + sym.Name + " to " + sym.Init.Literal() + ">>")
		}
		e.blank()
	}
	e.line(":: Start")
	afterAnchor := false
	for _, n := range s.Nodes {
		switch v := n.(type) {
		case *ast.AnchorLabel:
			e.blank()
			e.line(":: " + v.Name)
			afterAnchor = true
			continue
		case *ast.SceneHeading:
			if !afterAnchor {
				e.blank()
				e.line(":: " + passageID(v.Text))
			}
			e.line("**" + v.Text + "**")
			afterAnchor = false
			continue
		}
		if err := e.node(n); err != nil {
			return nil, err
		}
		afterAnchor = false
	}
	return []byte(e.b.String()), nil
}

type tweeEmitter struct {
	b strings.Builder
}

func (e *tweeEmitter) line(s string) {
	e.b.WriteString(s)
	e.b.WriteString("\n")
}

func (e *tweeEmitter) blank() { e.b.WriteString("\n") }

func (e *tweeEmitter) node(n ast.Node) error {
	switch v := n.(type) {
	case *ast.SceneHeading:
		// nested headings are decoration only
		e.line("**" + v.Text + "**")
	case *ast.Action:
		e.line(v.Text)
	case *ast.Dialogue:
		cue := "**" + v.Speaker + "**"
		if v.Parenthetical != "" {
			cue += " (" + v.Parenthetical + ")"
		}
		e.line(cue + ": " + strings.Join(v.Lines, " "))
	case *ast.AssetDirective:
		switch v.Kind {
		case ast.AssetBackground:
			e.line(`<script>$("body").css("background-image", "url('` + v.Payload + `.jpg')");</script>`)
		case ast.AssetShow:
			e.line("<!-- SHOW: " + v.Payload + " -->")
		default:
			e.line("<!-- Asset: " + v.Kind.Keyword() + " " + v.Payload + " -->")
		}
	case *ast.StateDecl:
		// hoisted into StoryInit
	case *ast.StateMutation:
		e.line("<<set $" + v.Name + " " + v.Op.String() + " " + tweeExpr(v.Value) + ">>")
	case *ast.Conditional:
		for i, br := range v.Branches {
			if br.Guard != nil {
				e.line("<<if " + tweeExpr(br.Guard) + ">>")
			} else {
				e.line("<<else>>")
			}
			for _, bn := range br.Body {
				if err := e.node(bn); err != nil {
					return err
				}
			}
			if i == len(v.Branches)-1 {
				e.line("<<endif>>")
			}
		}
	case *ast.ChoiceBlock:
		e.blank()
		if v.Prompt != "" {
			e.line(v.Prompt)
		}
		for _, opt := range v.Options {
			target, ok := linkTarget(opt)
			if !ok {
				return unsupported("twee", "a choice option with an inline body", opt.Pos())
			}
			display := opt.Text
			if display == "" {
				display = opt.Label
			}
			e.line("[[" + display + "|" + target + "]]")
		}
	case *ast.Jump:
		e.line("<<goto " + strconv.Quote(v.Target) + ">>")
	case *ast.AnchorLabel:
		return unsupported("twee", "an anchor inside a nested block", v.Pos())
	}
	return nil
}

// linkTarget reports the jump target of an option expressible as a plain
// [[link]]: exactly one body node, and that node a jump.
func linkTarget(opt *ast.ChoiceOption) (string, bool) {
	if len(opt.Body) != 1 {
		return "", false
	}
	j, ok := opt.Body[0].(*ast.Jump)
	if !ok {
		return "", false
	}
	return j.Target, true
}

func tweeExpr(e expr.Expr) string {
	return expr.Render(e, func(name string) string { return "$" + name })
}

// passageID slugs a scene heading into a passage name the way hand-written
// Twee does it: dots dropped, spaces to underscores.
func passageID(text string) string {
	return strings.ReplaceAll(strings.ReplaceAll(text, " ", "_"), ".", "")
}
