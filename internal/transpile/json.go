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
	"encoding/json"
	"fmt"

	"github.com/mikezilla14/fountain-flow/internal/ast"
	"github.com/mikezilla14/fountain-flow/internal/expr"
)

// The json backend is the reference serialization: every node variant, the
// symbol table and the anchor table are written out, and Decode restores a
// structurally equal script. Expressions travel in their canonical source
// form, which re-parses to an equal tree.

const (
	jsonFormat  = "fountain-flow-ast"
	jsonVersion = 1
)

func init() { Register(jsonBackend{}) }

type jsonBackend struct{}

func (jsonBackend) Name() string { return "json" }

func (jsonBackend) Render(s *ast.Script) ([]byte, error) {
	doc := jsonDoc{
		Format:  jsonFormat,
		Version: jsonVersion,
		Valid:   s.Valid,
		Nodes:   encodeNodes(s.Nodes),
	}
	for _, name := range s.Symbols.Names() {
		sym, _ := s.Symbols.Lookup(name)
		doc.Symbols = append(doc.Symbols, jsonSymbol{
			Name: sym.Name,
			Type: sym.Type.String(),
			Init: encodeValue(sym.Init),
			Line: sym.Line,
		})
	}
	for _, name := range s.Anchors.Names() {
		a, _ := s.Anchors.Lookup(name)
		doc.Anchors = append(doc.Anchors, jsonAnchor{Name: a.Name, Ref: a.ID(), Line: a.Pos()})
	}
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode script: %w", err)
	}
	return append(out, '\n'), nil
}

// Decode restores a script from the json backend's output. Jumps are
// re-linked against the decoded anchors, so the round trip preserves the
// resolver's work.
func Decode(data []byte) (*ast.Script, error) {
	var doc jsonDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode script: %w", err)
	}
	if doc.Format != jsonFormat {
		return nil, fmt.Errorf("decode script: unexpected format %q", doc.Format)
	}
	if doc.Version != jsonVersion {
		return nil, fmt.Errorf("decode script: unsupported version %d", doc.Version)
	}
	nodes, err := decodeNodes(doc.Nodes)
	if err != nil {
		return nil, err
	}
	s := ast.NewScript(nodes)
	s.Valid = doc.Valid

	for _, js := range doc.Symbols {
		t, err := typeFor(js.Type)
		if err != nil {
			return nil, err
		}
		init, err := decodeValue(js.Init)
		if err != nil {
			return nil, err
		}
		s.Symbols.Declare(&ast.Symbol{Name: js.Name, Type: t, Init: init, Line: js.Line})
	}

	// Anchor table entries and Jump.Anchor both point into the decoded tree.
	byName := map[string]*ast.AnchorLabel{}
	ast.WalkAll(nodes, func(n ast.Node) {
		if a, ok := n.(*ast.AnchorLabel); ok {
			byName[a.Name] = a
		}
	})
	for _, ja := range doc.Anchors {
		a, ok := byName[ja.Name]
		if !ok {
			return nil, fmt.Errorf("decode script: anchor table names %s but the tree has no such label", ja.Name)
		}
		s.Anchors.Declare(a)
	}
	ast.WalkAll(nodes, func(n ast.Node) {
		if j, ok := n.(*ast.Jump); ok {
			j.Anchor = byName[j.Target]
		}
	})
	return s, nil
}

type jsonDoc struct {
	Format  string       `json:"format"`
	Version int          `json:"version"`
	Valid   bool         `json:"valid"`
	Symbols []jsonSymbol `json:"symbols,omitempty"`
	Anchors []jsonAnchor `json:"anchors,omitempty"`
	Nodes   []jsonNode   `json:"nodes"`
}

type jsonSymbol struct {
	Name string    `json:"name"`
	Type string    `json:"type"`
	Init jsonValue `json:"init"`
	Line int       `json:"line"`
}

type jsonAnchor struct {
	Name string `json:"name"`
	Ref  string `json:"ref"`
	Line int    `json:"line"`
}

type jsonValue struct {
	Type  string `json:"type"`
	Value any    `json:"value"`
}

// jsonNode is the union of all node encodings; Node tags which fields are
// meaningful. Bodies nest, so the shape mirrors the tree exactly.
type jsonNode struct {
	Node string `json:"node"`
	Ref  string `json:"ref,omitempty"`
	Line int    `json:"line,omitempty"`

	Text          string     `json:"text,omitempty"`
	Speaker       string     `json:"speaker,omitempty"`
	Parenthetical string     `json:"parenthetical,omitempty"`
	Lines         []string   `json:"lines,omitempty"`
	Asset         string     `json:"asset,omitempty"`
	Payload       string     `json:"payload,omitempty"`
	Name          string     `json:"name,omitempty"`
	Init          *jsonValue `json:"init,omitempty"`
	Op            string     `json:"op,omitempty"`
	Expr          string     `json:"expr,omitempty"`
	Prompt        string     `json:"prompt,omitempty"`
	Label         string     `json:"label,omitempty"`
	Target        string     `json:"target,omitempty"`

	Options  []jsonNode   `json:"options,omitempty"`
	Branches []jsonBranch `json:"branches,omitempty"`
	Body     []jsonNode   `json:"body,omitempty"`
}

type jsonBranch struct {
	Line  int        `json:"line"`
	Guard string     `json:"guard,omitempty"`
	Body  []jsonNode `json:"body,omitempty"`
}

func encodeNodes(nodes []ast.Node) []jsonNode {
	out := make([]jsonNode, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, encodeNode(n))
	}
	return out
}

func encodeNode(n ast.Node) jsonNode {
	jn := jsonNode{Ref: n.ID(), Line: n.Pos()}
	switch v := n.(type) {
	case *ast.SceneHeading:
		jn.Node = "scene"
		jn.Text = v.Text
	case *ast.Action:
		jn.Node = "action"
		jn.Text = v.Text
	case *ast.Dialogue:
		jn.Node = "dialogue"
		jn.Speaker = v.Speaker
		jn.Parenthetical = v.Parenthetical
		jn.Lines = v.Lines
	case *ast.AssetDirective:
		jn.Node = "asset"
		jn.Asset = v.Kind.Keyword()
		jn.Payload = v.Payload
	case *ast.StateDecl:
		jn.Node = "decl"
		jn.Name = v.Name
		init := encodeValue(v.Init)
		jn.Init = &init
	case *ast.StateMutation:
		jn.Node = "mutate"
		jn.Name = v.Name
		jn.Op = v.Op.String()
		jn.Expr = expr.Render(v.Value, nil)
	case *ast.ChoiceBlock:
		jn.Node = "choice"
		jn.Prompt = v.Prompt
		for _, opt := range v.Options {
			jn.Options = append(jn.Options, encodeNode(opt))
		}
	case *ast.ChoiceOption:
		jn.Node = "option"
		jn.Label = v.Label
		jn.Text = v.Text
		jn.Body = encodeNodes(v.Body)
	case *ast.Conditional:
		jn.Node = "cond"
		for _, br := range v.Branches {
			jb := jsonBranch{Line: br.Line, Body: encodeNodes(br.Body)}
			if br.Guard != nil {
				jb.Guard = expr.Render(br.Guard, nil)
			}
			jn.Branches = append(jn.Branches, jb)
		}
	case *ast.Jump:
		jn.Node = "jump"
		jn.Target = v.Target
	case *ast.AnchorLabel:
		jn.Node = "anchor"
		jn.Name = v.Name
	}
	return jn
}

func decodeNodes(jns []jsonNode) ([]ast.Node, error) {
	if len(jns) == 0 {
		return nil, nil
	}
	out := make([]ast.Node, 0, len(jns))
	for i := range jns {
		n, err := decodeNode(&jns[i])
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func decodeNode(jn *jsonNode) (ast.Node, error) {
	info := ast.Info{NodeID: jn.Ref, Line: jn.Line}
	switch jn.Node {
	case "scene":
		return &ast.SceneHeading{Info: info, Text: jn.Text}, nil
	case "action":
		return &ast.Action{Info: info, Text: jn.Text}, nil
	case "dialogue":
		return &ast.Dialogue{Info: info, Speaker: jn.Speaker, Parenthetical: jn.Parenthetical, Lines: jn.Lines}, nil
	case "asset":
		kind, ok := ast.AssetKindFor(jn.Asset)
		if !ok {
			return nil, fmt.Errorf("decode script: unknown asset keyword %q at line %d", jn.Asset, jn.Line)
		}
		return &ast.AssetDirective{Info: info, Kind: kind, Payload: jn.Payload}, nil
	case "decl":
		if jn.Init == nil {
			return nil, fmt.Errorf("decode script: declaration of %s has no initial value", jn.Name)
		}
		init, err := decodeValue(*jn.Init)
		if err != nil {
			return nil, err
		}
		return &ast.StateDecl{Info: info, Name: jn.Name, Init: init}, nil
	case "mutate":
		op, err := mutateOpFor(jn.Op)
		if err != nil {
			return nil, err
		}
		e, err := expr.Parse(jn.Expr)
		if err != nil {
			return nil, fmt.Errorf("decode script: expression of %s: %w", jn.Name, err)
		}
		return &ast.StateMutation{Info: info, Name: jn.Name, Op: op, Value: e}, nil
	case "choice":
		blk := &ast.ChoiceBlock{Info: info, Prompt: jn.Prompt}
		for i := range jn.Options {
			n, err := decodeNode(&jn.Options[i])
			if err != nil {
				return nil, err
			}
			opt, ok := n.(*ast.ChoiceOption)
			if !ok {
				return nil, fmt.Errorf("decode script: choice at line %d holds a %s where an option belongs", jn.Line, jn.Options[i].Node)
			}
			blk.Options = append(blk.Options, opt)
		}
		return blk, nil
	case "option":
		body, err := decodeNodes(jn.Body)
		if err != nil {
			return nil, err
		}
		return &ast.ChoiceOption{Info: info, Label: jn.Label, Text: jn.Text, Body: body}, nil
	case "cond":
		cond := &ast.Conditional{Info: info}
		for i := range jn.Branches {
			jb := &jn.Branches[i]
			br := ast.CondBranch{Line: jb.Line}
			if jb.Guard != "" {
				g, err := expr.Parse(jb.Guard)
				if err != nil {
					return nil, fmt.Errorf("decode script: guard at line %d: %w", jb.Line, err)
				}
				br.Guard = g
			}
			body, err := decodeNodes(jb.Body)
			if err != nil {
				return nil, err
			}
			br.Body = body
			cond.Branches = append(cond.Branches, br)
		}
		return cond, nil
	case "jump":
		return &ast.Jump{Info: info, Target: jn.Target}, nil
	case "anchor":
		return &ast.AnchorLabel{Info: info, Name: jn.Name}, nil
	default:
		return nil, fmt.Errorf("decode script: unknown node tag %q at line %d", jn.Node, jn.Line)
	}
}

func encodeValue(v expr.Value) jsonValue {
	switch v.Type {
	case expr.TypeNumber:
		return jsonValue{Type: "number", Value: v.Num}
	case expr.TypeBool:
		return jsonValue{Type: "boolean", Value: v.Bool}
	default:
		return jsonValue{Type: "string", Value: v.Str}
	}
}

func decodeValue(jv jsonValue) (expr.Value, error) {
	switch jv.Type {
	case "number":
		f, ok := jv.Value.(float64)
		if !ok {
			return expr.Value{}, fmt.Errorf("decode script: number value holds %T", jv.Value)
		}
		return expr.Number(f), nil
	case "boolean":
		b, ok := jv.Value.(bool)
		if !ok {
			return expr.Value{}, fmt.Errorf("decode script: boolean value holds %T", jv.Value)
		}
		return expr.Bool(b), nil
	case "string":
		s, ok := jv.Value.(string)
		if !ok {
			return expr.Value{}, fmt.Errorf("decode script: string value holds %T", jv.Value)
		}
		return expr.String(s), nil
	default:
		return expr.Value{}, fmt.Errorf("decode script: unknown value type %q", jv.Type)
	}
}

func typeFor(name string) (expr.Type, error) {
	switch name {
	case "number":
		return expr.TypeNumber, nil
	case "boolean":
		return expr.TypeBool, nil
	case "string":
		return expr.TypeString, nil
	default:
		return expr.TypeInvalid, fmt.Errorf("decode script: unknown type %q", name)
	}
}

func mutateOpFor(op string) (ast.MutateOp, error) {
	switch op {
	case "=":
		return ast.MutateAssign, nil
	case "+=":
		return ast.MutateAdd, nil
	case "-=":
		return ast.MutateSub, nil
	default:
		return ast.MutateInvalid, fmt.Errorf("decode script: unknown mutation operator %q", op)
	}
}
