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

import (
	"reflect"
	"strings"
	"testing"

	"github.com/mikezilla14/fountain-flow/internal/ast"
	"github.com/mikezilla14/fountain-flow/internal/lexer"
	"github.com/mikezilla14/fountain-flow/internal/parser"
	"github.com/mikezilla14/fountain-flow/internal/resolve"
)

const towerScript = `$ HP: 100

INT. TOWER - DUSK
! BG: tower_dusk
The stairs spiral upward.

GUARD
(weary)
Nobody climbs at this hour.

(IF: HP > 50)
    You take the stairs two at a time.
(ELSE)
    You pause on each landing.

? Keep climbing?
+ [Up] Onward and upward.
    ~ HP -= 10
    The torchlight thins.
+ [Down] Back to the hall. -> #HALL

-> #TOP
# TOP
The wind greets you.
# HALL`

func parse(t *testing.T, src string) *ast.Script {
	t.Helper()
	toks, err := lexer.Lex(src)
	if err != nil {
		t.Fatalf("Lex: %v", err)
	}
	s, err := parser.Parse(toks)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return s
}

func parseResolved(t *testing.T, src string) *ast.Script {
	t.Helper()
	s := parse(t, src)
	if err := resolve.Resolve(s); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	return s
}

func TestNarrativeProjection(t *testing.T) {
	v := Narrative(parseResolved(t, towerScript))
	if len(v.Items) != 11 {
		for i, it := range v.Items {
			t.Logf("item %d: %s line %d", i, it.Kind, it.Line)
		}
		t.Fatalf("top-level items = %d, want 11", len(v.Items))
	}

	if v.Items[0].Kind != NarrativeLogicElided || v.Items[0].Line != 1 {
		t.Fatalf("item 0 = %+v, want elided state decl on line 1", v.Items[0])
	}
	if v.Items[1].Kind != NarrativeScene || v.Items[1].Text != "INT. TOWER - DUSK" {
		t.Fatalf("item 1 = %+v", v.Items[1])
	}
	if v.Items[2].Kind != NarrativeAsset || v.Items[2].Detail != "BG" || v.Items[2].Text != "tower_dusk" {
		t.Fatalf("item 2 = %+v", v.Items[2])
	}

	d := v.Items[4]
	if d.Kind != NarrativeDialogue || d.Speaker != "GUARD" || d.Parenthetical != "weary" {
		t.Fatalf("dialogue = %+v", d)
	}
	if len(d.Lines) != 1 || d.Lines[0] != "Nobody climbs at this hour." {
		t.Fatalf("dialogue lines = %q", d.Lines)
	}

	cond := v.Items[5]
	if cond.Kind != NarrativeLogicElided || len(cond.Children) != 2 {
		t.Fatalf("conditional marker = %+v", cond)
	}
	if cond.Children[0].Text != "You take the stairs two at a time." ||
		cond.Children[1].Text != "You pause on each landing." {
		t.Fatalf("branch prose = %+v", cond.Children)
	}

	choice := v.Items[6]
	if choice.Kind != NarrativeChoice || choice.Text != "Keep climbing?" || len(choice.Children) != 2 {
		t.Fatalf("choice = %+v", choice)
	}
	up := choice.Children[0]
	if up.Text != "Up" || up.Detail != "Onward and upward." {
		t.Fatalf("option = %+v", up)
	}
	if len(up.Children) != 2 || up.Children[0].Kind != NarrativeLogicElided || up.Children[1].Kind != NarrativeAction {
		t.Fatalf("option body = %+v", up.Children)
	}
	down := choice.Children[1]
	if len(down.Children) != 1 || down.Children[0].Kind != NarrativeLogicElided {
		t.Fatalf("inline jump should leave a marker, got %+v", down.Children)
	}
}

func TestNarrativeHidesExpressions(t *testing.T) {
	v := Narrative(parseResolved(t, towerScript))
	v.Walk(func(it NarrativeItem) {
		for _, s := range []string{it.Text, it.Detail} {
			if strings.Contains(s, "HP") || strings.Contains(s, "-=") {
				t.Fatalf("logic leaked into narrative view: %+v", it)
			}
		}
	})
}

func TestNarrativeKeepsAllProse(t *testing.T) {
	s := parseResolved(t, towerScript)

	want := 0
	ast.WalkAll(s.Nodes, func(n ast.Node) {
		switch n.(type) {
		case *ast.SceneHeading, *ast.Action, *ast.Dialogue, *ast.AssetDirective:
			want++
		}
	})

	v := Narrative(s)
	got := v.Count(NarrativeScene) + v.Count(NarrativeAction) + v.Count(NarrativeDialogue) + v.Count(NarrativeAsset)
	if got != want {
		t.Fatalf("narrative view shows %d prose nodes, tree has %d", got, want)
	}
	if want != 8 {
		t.Fatalf("fixture drifted: tree has %d prose nodes, want 8", want)
	}
}

func TestLogicProjection(t *testing.T) {
	v := Logic(parseResolved(t, towerScript))
	if len(v.Items) != 8 {
		for i, it := range v.Items {
			t.Logf("item %d: %s line %d", i, it.Kind, it.Line)
		}
		t.Fatalf("top-level items = %d, want 8", len(v.Items))
	}

	if v.Items[0].Kind != LogicStateDecl || v.Items[0].Name != "HP" || v.Items[0].Expr != "100" {
		t.Fatalf("item 0 = %+v", v.Items[0])
	}

	run := v.Items[1]
	if run.Kind != LogicNarrativeElided || run.FromLine != 3 || run.ToLine != 7 || run.Count != 4 {
		t.Fatalf("prose run = %+v, want lines 3-7 count 4", run)
	}

	cond := v.Items[2]
	if cond.Kind != LogicCond || len(cond.Children) != 2 {
		t.Fatalf("conditional = %+v", cond)
	}
	if cond.Children[0].Expr != "HP > 50" || cond.Children[1].Expr != "" {
		t.Fatalf("guards = %q / %q", cond.Children[0].Expr, cond.Children[1].Expr)
	}
	if len(cond.Children[0].Children) != 1 || cond.Children[0].Children[0].Kind != LogicNarrativeElided {
		t.Fatalf("then branch = %+v", cond.Children[0].Children)
	}

	choice := v.Items[3]
	if choice.Kind != LogicChoice || len(choice.Children) != 2 {
		t.Fatalf("choice = %+v", choice)
	}
	up := choice.Children[0]
	if up.Label != "Up" || len(up.Children) != 2 {
		t.Fatalf("option Up = %+v", up)
	}
	if up.Children[0].Kind != LogicStateMutation || up.Children[0].Op != "-=" || up.Children[0].Expr != "10" {
		t.Fatalf("mutation = %+v", up.Children[0])
	}
	down := choice.Children[1]
	if down.Label != "Down" || len(down.Children) != 1 || down.Children[0].Kind != LogicJump || down.Children[0].Name != "HALL" {
		t.Fatalf("option Down = %+v", down)
	}

	if v.Items[4].Kind != LogicJump || v.Items[4].Name != "TOP" {
		t.Fatalf("item 4 = %+v", v.Items[4])
	}
	if v.Items[5].Kind != LogicAnchor || v.Items[5].Name != "TOP" {
		t.Fatalf("item 5 = %+v", v.Items[5])
	}
	if v.Items[6].Kind != LogicNarrativeElided || v.Items[6].Count != 1 {
		t.Fatalf("item 6 = %+v", v.Items[6])
	}
	if v.Items[7].Kind != LogicAnchor || v.Items[7].Name != "HALL" {
		t.Fatalf("item 7 = %+v", v.Items[7])
	}
}

func TestJumpGraph(t *testing.T) {
	s := parseResolved(t, towerScript)
	g := Logic(s).Graph

	jumps := 0
	ast.WalkAll(s.Nodes, func(n ast.Node) {
		if _, ok := n.(*ast.Jump); ok {
			jumps++
		}
	})
	if len(g.Edges) != jumps {
		t.Fatalf("edges = %d, jumps in tree = %d", len(g.Edges), jumps)
	}
	if len(g.Nodes) != 2 {
		t.Fatalf("graph nodes = %+v", g.Nodes)
	}

	ids := make(map[string]bool)
	for _, n := range g.Nodes {
		ids[n.ID] = true
	}
	for _, e := range g.Edges {
		if e.ToID == "" || !ids[e.ToID] {
			t.Fatalf("dangling edge %+v", e)
		}
	}

	// the inline option jump sits earlier in the document than -> #TOP
	if g.Edges[0].Target != "HALL" || g.Edges[1].Target != "TOP" {
		t.Fatalf("edge order = %+v", g.Edges)
	}
}

func TestGraphUnresolvedJumpKeepsEdge(t *testing.T) {
	s := parse(t, "-> #NOWHERE")
	g := Logic(s).Graph
	if len(g.Edges) != 1 {
		t.Fatalf("edges = %+v", g.Edges)
	}
	if g.Edges[0].Target != "NOWHERE" || g.Edges[0].ToID != "" {
		t.Fatalf("edge = %+v", g.Edges[0])
	}
}

func TestProjectionsAreIdempotent(t *testing.T) {
	s := parseResolved(t, towerScript)
	if !reflect.DeepEqual(Narrative(s), Narrative(s)) {
		t.Fatalf("narrative projection not stable")
	}
	if !reflect.DeepEqual(Logic(s), Logic(s)) {
		t.Fatalf("logic projection not stable")
	}
}

func TestProjectionsDoNotMutateScript(t *testing.T) {
	s1 := parseResolved(t, towerScript)
	s2 := parseResolved(t, towerScript)
	Narrative(s1)
	Logic(s1)
	if !reflect.DeepEqual(s1, s2) {
		t.Fatalf("projection mutated the script")
	}
}
