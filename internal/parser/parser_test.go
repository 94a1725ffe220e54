/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package parser

import (
	"errors"
	"strings"
	"testing"

	"github.com/mikezilla14/fountain-flow/internal/ast"
	"github.com/mikezilla14/fountain-flow/internal/expr"
	"github.com/mikezilla14/fountain-flow/internal/lexer"
)

func parse(t *testing.T, src string) *ast.Script {
	t.Helper()
	toks, err := lexer.Lex(src)
	if err != nil {
		t.Fatalf("Lex: %v", err)
	}
	s, err := Parse(toks)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return s
}

func parseErr(t *testing.T, src string) *ParseError {
	t.Helper()
	toks, err := lexer.Lex(src)
	if err != nil {
		t.Fatalf("Lex: %v", err)
	}
	_, err = Parse(toks)
	if err == nil {
		t.Fatalf("Parse succeeded, want error")
	}
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("error type = %T, want *ParseError", err)
	}
	return perr
}

func TestParseFlatScript(t *testing.T) {
	s := parse(t, strings.Join([]string{
		"$ TITLE: \"Static\"",
		"$ PLAYER_HP: 100",
		"",
		"INT. CHURCH - NIGHT",
		"! BG: ruined_church",
		"Dust hangs in the air.",
		"",
		"RAVEN (V.O.)",
		"(weary)",
		"We should not be here.",
		"It listens.",
		"",
		"~ PLAYER_HP -= 10",
		"-> #CRYPT",
		"# CRYPT",
	}, "\n"))

	if len(s.Nodes) != 9 {
		t.Fatalf("node count = %d, want 9", len(s.Nodes))
	}
	if d, ok := s.Nodes[0].(*ast.StateDecl); !ok || d.Name != "TITLE" || d.Init.Str != "Static" {
		t.Fatalf("node 0 = %#v", s.Nodes[0])
	}
	if d, ok := s.Nodes[1].(*ast.StateDecl); !ok || d.Init.Type != expr.TypeNumber || d.Init.Num != 100 {
		t.Fatalf("node 1 = %#v", s.Nodes[1])
	}
	if sc, ok := s.Nodes[2].(*ast.SceneHeading); !ok || sc.Text != "INT. CHURCH - NIGHT" {
		t.Fatalf("node 2 = %#v", s.Nodes[2])
	}
	if a, ok := s.Nodes[3].(*ast.AssetDirective); !ok || a.Kind != ast.AssetBackground || a.Payload != "ruined_church" {
		t.Fatalf("node 3 = %#v", s.Nodes[3])
	}
	d, ok := s.Nodes[5].(*ast.Dialogue)
	if !ok {
		t.Fatalf("node 5 = %#v", s.Nodes[5])
	}
	if d.Speaker != "RAVEN" || d.Parenthetical != "weary" {
		t.Fatalf("dialogue = %+v", d)
	}
	if len(d.Lines) != 2 || d.Lines[0] != "We should not be here." {
		t.Fatalf("dialogue lines = %+v", d.Lines)
	}
	if m, ok := s.Nodes[6].(*ast.StateMutation); !ok || m.Op != ast.MutateSub || m.Name != "PLAYER_HP" {
		t.Fatalf("node 6 = %#v", s.Nodes[6])
	}
	if j, ok := s.Nodes[7].(*ast.Jump); !ok || j.Target != "CRYPT" {
		t.Fatalf("node 7 = %#v", s.Nodes[7])
	}
	if a, ok := s.Nodes[8].(*ast.AnchorLabel); !ok || a.Name != "CRYPT" {
		t.Fatalf("node 8 = %#v", s.Nodes[8])
	}
}

func TestParseAnchorAfterJump(t *testing.T) {
	s := parse(t, "-> #CRYPT\n# CRYPT")
	if len(s.Nodes) != 2 {
		t.Fatalf("node count = %d, want 2", len(s.Nodes))
	}
	j := s.Nodes[0].(*ast.Jump)
	if j.Target != "CRYPT" || j.Anchor != nil {
		t.Fatalf("jump = %+v (anchor must stay nil until resolution)", j)
	}
	a := s.Nodes[1].(*ast.AnchorLabel)
	if a.Name != "CRYPT" {
		t.Fatalf("anchor = %+v", a)
	}
}

func TestParseChoiceBlockWithBodiesAndInlineTargets(t *testing.T) {
	s := parse(t, strings.Join([]string{
		"? Enter the church or walk away?",
		"+ [Enter] Push the heavy door. -> #CHURCH",
		"+ [Leave] The road is long.",
		"    ~ RESOLVE -= 1",
		"    You keep walking.",
		"$ RESOLVE: 3",
	}, "\n"))

	cb, ok := s.Nodes[0].(*ast.ChoiceBlock)
	if !ok {
		t.Fatalf("node 0 = %#v", s.Nodes[0])
	}
	if cb.Prompt != "Enter the church or walk away?" {
		t.Fatalf("prompt = %q", cb.Prompt)
	}
	if len(cb.Options) != 2 {
		t.Fatalf("options = %d, want 2", len(cb.Options))
	}

	first := cb.Options[0]
	if first.Label != "Enter" || first.Text != "Push the heavy door." {
		t.Fatalf("option 0 = %+v", first)
	}
	if len(first.Body) != 1 {
		t.Fatalf("option 0 body = %d nodes, want 1 (the desugared jump)", len(first.Body))
	}
	if j, ok := first.Body[0].(*ast.Jump); !ok || j.Target != "CHURCH" {
		t.Fatalf("option 0 body = %#v", first.Body[0])
	}

	second := cb.Options[1]
	if len(second.Body) != 2 {
		t.Fatalf("option 1 body = %d nodes, want 2", len(second.Body))
	}
	if _, ok := second.Body[0].(*ast.StateMutation); !ok {
		t.Fatalf("option 1 body 0 = %#v", second.Body[0])
	}

	// the trailing declaration dedents out of the block
	if _, ok := s.Nodes[1].(*ast.StateDecl); !ok {
		t.Fatalf("node 1 = %#v", s.Nodes[1])
	}
}

func TestParseNestedChoice(t *testing.T) {
	s := parse(t, strings.Join([]string{
		"? Outer?",
		"+ [A] First.",
		"    ? Inner?",
		"    + [B] Second. -> #DONE",
		"# DONE",
	}, "\n"))

	outer := s.Nodes[0].(*ast.ChoiceBlock)
	if len(outer.Options) != 1 {
		t.Fatalf("outer options = %d", len(outer.Options))
	}
	body := outer.Options[0].Body
	if len(body) != 1 {
		t.Fatalf("outer option body = %d nodes", len(body))
	}
	inner, ok := body[0].(*ast.ChoiceBlock)
	if !ok {
		t.Fatalf("inner = %#v", body[0])
	}
	if len(inner.Options) != 1 || inner.Options[0].Label != "B" {
		t.Fatalf("inner options = %+v", inner.Options)
	}
}

func TestParseConditionalWithElse(t *testing.T) {
	s := parse(t, strings.Join([]string{
		"$ PLAYER_HP: 100",
		"(IF: PLAYER_HP > 50)",
		"    You feel fine.",
		"    ~ PLAYER_HP -= 5",
		"(ELSE)",
		"    Everything hurts.",
		"After either branch.",
	}, "\n"))

	cond, ok := s.Nodes[1].(*ast.Conditional)
	if !ok {
		t.Fatalf("node 1 = %#v", s.Nodes[1])
	}
	if len(cond.Branches) != 2 {
		t.Fatalf("branches = %d, want 2", len(cond.Branches))
	}
	ifBr, elseBr := cond.Branches[0], cond.Branches[1]
	if ifBr.Guard == nil || elseBr.Guard != nil {
		t.Fatalf("guards = %v / %v", ifBr.Guard, elseBr.Guard)
	}
	if got := ifBr.Guard.String(); got != "PLAYER_HP > 50" {
		t.Fatalf("guard = %q", got)
	}
	if len(ifBr.Body) != 2 || len(elseBr.Body) != 1 {
		t.Fatalf("body sizes = %d / %d", len(ifBr.Body), len(elseBr.Body))
	}
	if a, ok := s.Nodes[2].(*ast.Action); !ok || a.Text != "After either branch." {
		t.Fatalf("node 2 = %#v", s.Nodes[2])
	}
}

func TestParseSiblingIfsDoNotChain(t *testing.T) {
	s := parse(t, strings.Join([]string{
		"$ HP: 1",
		"(IF: HP > 0)",
		"    Alive.",
		"(IF: HP > 90)",
		"    Thriving.",
	}, "\n"))
	if len(s.Nodes) != 3 {
		t.Fatalf("node count = %d, want 3 (decl + two conditionals)", len(s.Nodes))
	}
	for i := 1; i <= 2; i++ {
		c := s.Nodes[i].(*ast.Conditional)
		if len(c.Branches) != 1 {
			t.Fatalf("conditional %d branches = %d, want 1", i, len(c.Branches))
		}
	}
}

func TestParseBlankLinesInsideBodiesDoNotCloseThem(t *testing.T) {
	s := parse(t, strings.Join([]string{
		"(IF: true)",
		"    First.",
		"",
		"    Second.",
	}, "\n"))
	cond := s.Nodes[0].(*ast.Conditional)
	if len(cond.Branches[0].Body) != 2 {
		t.Fatalf("body = %d nodes, want 2", len(cond.Branches[0].Body))
	}
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		src          string
		wantLine     int
		wantExpected string
	}{
		{"? Choose?\nNo options here.", 2, "'+' option"},
		{"+ [A] floating option", 1, "choice marker"},
		{"(ELSE)\nLonely.", 1, "(IF:"},
		{"? Choose?\n    + [A] deep", 2, "same depth"},
		{"$ HP: 1\n~ HP = 1 +", 2, "well-formed expression"},
		{"(IF: 1 ++ 2)\n    x", 1, "guard expression"},
	}
	for _, c := range cases {
		perr := parseErr(t, c.src)
		if perr.Line != c.wantLine {
			t.Fatalf("src %q: error line = %d, want %d (%v)", c.src, perr.Line, c.wantLine, perr)
		}
		if !strings.Contains(perr.Expected, c.wantExpected) {
			t.Fatalf("src %q: expected field %q, want substring %q", c.src, perr.Expected, c.wantExpected)
		}
	}
}

func TestParseNodeIDsAreStable(t *testing.T) {
	src := "$ HP: 1\n(IF: HP > 0)\n    Alive.\n-> #END\n# END"
	a := parse(t, src)
	b := parse(t, src)

	var idsA, idsB []string
	a.Walk(func(n ast.Node) { idsA = append(idsA, n.ID()) })
	b.Walk(func(n ast.Node) { idsB = append(idsB, n.ID()) })

	if len(idsA) == 0 || len(idsA) != len(idsB) {
		t.Fatalf("id walks disagree: %v vs %v", idsA, idsB)
	}
	seen := map[string]bool{}
	for i := range idsA {
		if idsA[i] != idsB[i] {
			t.Fatalf("id %d differs across parses: %s vs %s", i, idsA[i], idsB[i])
		}
		if seen[idsA[i]] {
			t.Fatalf("duplicate node id %s", idsA[i])
		}
		seen[idsA[i]] = true
	}
}

func TestParseLiteralInference(t *testing.T) {
	s := parse(t, strings.Join([]string{
		"$ N: 42.5",
		"$ B: true",
		"$ Q: \"quoted\"",
		"$ W: Noir",
	}, "\n"))
	wantTypes := []expr.Type{expr.TypeNumber, expr.TypeBool, expr.TypeString, expr.TypeString}
	for i, want := range wantTypes {
		d := s.Nodes[i].(*ast.StateDecl)
		if d.Init.Type != want {
			t.Fatalf("decl %s type = %s, want %s", d.Name, d.Init.Type, want)
		}
	}
	if s.Nodes[3].(*ast.StateDecl).Init.Str != "Noir" {
		t.Fatalf("bare word literal = %+v", s.Nodes[3].(*ast.StateDecl).Init)
	}
}
