/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package diagram

import (
	"reflect"
	"testing"
)

func TestLayoutRanksChain(t *testing.T) {
	nodes := []NodeSpec{
		{ID: "start", Label: "START", Line: 0},
		{ID: "n0004", Label: "ALARM", Line: 5},
		{ID: "n0008", Label: "ESCAPE", Line: 9},
	}
	edges := []EdgeSpec{
		{From: 0, To: 1, Label: "ALARM", Line: 2},
		{From: 1, To: 2, Label: "ESCAPE", Line: 7},
	}

	d := Layout(nodes, edges, LayoutOptions{})
	if d.Nodes[0].Rank != 0 || d.Nodes[1].Rank != 1 || d.Nodes[2].Rank != 2 {
		t.Fatalf("ranks got %d %d %d", d.Nodes[0].Rank, d.Nodes[1].Rank, d.Nodes[2].Rank)
	}
	if d.Nodes[1].Box.Y <= d.Nodes[0].Box.Y || d.Nodes[2].Box.Y <= d.Nodes[1].Box.Y {
		t.Fatalf("ranks should stack downward")
	}
	for i, e := range d.Edges {
		if e.Back {
			t.Fatalf("edge %d should be forward", i)
		}
		if len(e.Path.Cmds) == 0 {
			t.Fatalf("edge %d has no path", i)
		}
	}
}

func TestLayoutMarksBackAndSelfEdges(t *testing.T) {
	nodes := []NodeSpec{
		{ID: "start", Label: "START", Line: 0},
		{ID: "n0002", Label: "LOOP", Line: 4},
	}
	edges := []EdgeSpec{
		{From: 0, To: 1, Label: "LOOP", Line: 2},
		{From: 1, To: 1, Label: "LOOP", Line: 6},
		{From: 1, To: 0, Label: "TOP", Line: 8},
	}

	d := Layout(nodes, edges, LayoutOptions{})
	if len(d.Edges) != 3 {
		t.Fatalf("expected 3 edges, got %d", len(d.Edges))
	}
	if d.Edges[0].Back {
		t.Fatalf("downward edge marked back")
	}
	if !d.Edges[1].Back || !d.Edges[2].Back {
		t.Fatalf("self-loop and upward edge must be marked back")
	}
}

func TestLayoutDanglingEdgeKeepsLabel(t *testing.T) {
	nodes := []NodeSpec{{ID: "start", Label: "START", Line: 0}}
	edges := []EdgeSpec{{From: 0, To: -1, Label: "DOOM", Line: 3}}

	d := Layout(nodes, edges, LayoutOptions{})
	if len(d.Edges) != 1 {
		t.Fatalf("expected 1 edge, got %d", len(d.Edges))
	}
	e := d.Edges[0]
	if e.To != -1 || e.Label != "DOOM" {
		t.Fatalf("dangling edge lost its target, got %+v", e)
	}
	bottom := d.Nodes[0].Box.Y + d.Nodes[0].Box.H
	if e.LabelAt.Y <= bottom {
		t.Fatalf("label should hang below the box, got %v vs bottom %v", e.LabelAt.Y, bottom)
	}
}

func TestLayoutOrphanSeedsBelow(t *testing.T) {
	nodes := []NodeSpec{
		{ID: "start", Label: "START", Line: 0},
		{ID: "n0003", Label: "GATE", Line: 4},
		{ID: "n0009", Label: "EPILOGUE", Line: 20},
	}
	edges := []EdgeSpec{{From: 0, To: 1, Label: "GATE", Line: 2}}

	d := Layout(nodes, edges, LayoutOptions{})
	if d.Nodes[2].Rank <= d.Nodes[1].Rank {
		t.Fatalf("orphan should land below reached nodes, got rank %d", d.Nodes[2].Rank)
	}
}

func TestLayoutBoundsCoverEverything(t *testing.T) {
	nodes := []NodeSpec{
		{ID: "start", Label: "START", Line: 0},
		{ID: "n0005", Label: "KEEP", Line: 6},
	}
	edges := []EdgeSpec{
		{From: 0, To: 1, Label: "KEEP", Line: 3},
		{From: 1, To: 0, Label: "TOP", Line: 9},
		{From: 1, To: -1, Label: "LOST", Line: 11},
	}

	d := Layout(nodes, edges, LayoutOptions{})
	for i, n := range d.Nodes {
		if n.Box.X < d.Bounds.X || n.Box.Y < d.Bounds.Y ||
			n.Box.X+n.Box.W > d.Bounds.X+d.Bounds.W ||
			n.Box.Y+n.Box.H > d.Bounds.Y+d.Bounds.H {
			t.Fatalf("node %d box %+v escapes bounds %+v", i, n.Box, d.Bounds)
		}
	}
	for i, e := range d.Edges {
		pb := e.Path.Bounds()
		if pb.X < d.Bounds.X || pb.Y < d.Bounds.Y ||
			pb.X+pb.W > d.Bounds.X+d.Bounds.W ||
			pb.Y+pb.H > d.Bounds.Y+d.Bounds.H {
			t.Fatalf("edge %d path %+v escapes bounds %+v", i, pb, d.Bounds)
		}
	}
}

func TestLayoutDeterministic(t *testing.T) {
	nodes := []NodeSpec{
		{ID: "start", Label: "START", Line: 0},
		{ID: "n0002", Label: "A", Line: 3},
		{ID: "n0006", Label: "B", Line: 8},
		{ID: "n0011", Label: "C", Line: 14},
	}
	edges := []EdgeSpec{
		{From: 0, To: 1, Label: "A", Line: 1},
		{From: 1, To: 2, Label: "B", Line: 5},
		{From: 2, To: 1, Label: "A", Line: 10},
		{From: 2, To: 3, Label: "C", Line: 11},
		{From: 3, To: -1, Label: "GONE", Line: 16},
	}

	a := Layout(nodes, edges, LayoutOptions{})
	b := Layout(nodes, edges, LayoutOptions{})
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("layout must be deterministic for identical input")
	}
}

func TestLayoutEmpty(t *testing.T) {
	d := Layout(nil, nil, LayoutOptions{})
	if len(d.Nodes) != 0 || len(d.Edges) != 0 {
		t.Fatalf("empty input should yield an empty diagram")
	}
	if d.Bounds.W <= 0 || d.Bounds.H <= 0 {
		t.Fatalf("empty diagram still needs a positive canvas, got %+v", d.Bounds)
	}
}
