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
	"strings"

	"github.com/mikezilla14/fountain-flow/internal/ast"
	"github.com/mikezilla14/fountain-flow/internal/expr"
)

// The fflow backend prints the script back as fountain-flow source in a
// canonical shape: four-space indents, one blank line between elements,
// mutations on "~", string values quoted, and options whose body is a lone
// jump re-sugared onto the header line. Re-parsing the output yields the
// same tree give or take source line numbers, which makes the backend the
// formatter for the language.

func init() { Register(fflowBackend{}) }

type fflowBackend struct{}

func (fflowBackend) Name() string { return "fflow" }

func (fflowBackend) Render(s *ast.Script) ([]byte, error) {
	e := &fflowEmitter{}
	e.nodes(s.Nodes, 0)
	out := e.b.String()
	// nested emissions leave stacked separators behind; collapse them
	for strings.Contains(out, "\n\n\n") {
		out = strings.ReplaceAll(out, "\n\n\n", "\n\n")
	}
	out = strings.TrimRight(out, "\n")
	return []byte(out + "\n"), nil
}

type fflowEmitter struct {
	b strings.Builder
}

func (e *fflowEmitter) line(depth int, s string) {
	for i := 0; i < depth; i++ {
		e.b.WriteString("    ")
	}
	e.b.WriteString(s)
	e.b.WriteString("\n")
}

func (e *fflowEmitter) blank() { e.b.WriteString("\n") }

func (e *fflowEmitter) nodes(nodes []ast.Node, depth int) {
	for _, n := range nodes {
		e.node(n, depth)
		e.blank()
	}
}

func (e *fflowEmitter) node(n ast.Node, depth int) {
	switch v := n.(type) {
	case *ast.SceneHeading:
		e.line(depth, v.Text)
	case *ast.Action:
		e.line(depth, v.Text)
	case *ast.Dialogue:
		e.line(depth, v.Speaker)
		if v.Parenthetical != "" {
			e.line(depth, "("+v.Parenthetical+")")
		}
		for _, l := range v.Lines {
			e.line(depth, l)
		}
	case *ast.AssetDirective:
		e.line(depth, "! "+v.Kind.Keyword()+": "+v.Payload)
	case *ast.StateDecl:
		e.line(depth, "$ "+v.Name+": "+v.Init.Literal())
	case *ast.StateMutation:
		e.line(depth, "~ "+v.Name+" "+v.Op.String()+" "+expr.Render(v.Value, nil))
	case *ast.ChoiceBlock:
		e.line(depth, "? "+v.Prompt)
		e.blank()
		for _, opt := range v.Options {
			e.option(opt, depth)
			e.blank()
		}
	case *ast.Conditional:
		for _, br := range v.Branches {
			if br.Guard != nil {
				e.line(depth, "(IF: "+expr.Render(br.Guard, nil)+")")
			} else {
				e.line(depth, "(ELSE)")
			}
			e.nodes(br.Body, depth+1)
		}
	case *ast.Jump:
		e.line(depth, "-> #"+v.Target)
	case *ast.AnchorLabel:
		e.line(depth, "# "+v.Name)
	}
}

func (e *fflowEmitter) option(opt *ast.ChoiceOption, depth int) {
	header := "+ [" + opt.Label + "]"
	if opt.Text != "" {
		header += " " + opt.Text
	}
	if target, ok := linkTarget(opt); ok {
		e.line(depth, header+" -> #"+target)
		return
	}
	e.line(depth, header)
	e.nodes(opt.Body, depth+1)
}
