/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package diagram lays out and styles the jump graph for the vector and
// raster exporters. Anchors become ranked boxes, jumps become curved edges
// with computed arrowheads. Placement is a pure function of the input:
// ranks follow breadth-first distance from the entry, order within a rank
// follows document order, and every coordinate rounds to three decimals,
// so the same script always draws the same picture.
package diagram

// NodeSpec is one vertex to place: an anchor, or the synthetic entry.
type NodeSpec struct {
	ID    string
	Label string
	Line  int
}

// EdgeSpec connects nodes by index into the spec slice. To is negative
// when the target never resolved; Label carries the target name as
// written in the source.
type EdgeSpec struct {
	From, To int
	Label    string
	Line     int
}

// LayoutOptions sizes the drawing. Zero fields fall back to defaults.
type LayoutOptions struct {
	NodeHeight float32 // box height; default 28
	NodePadX   float32 // label padding inside a box; default 10
	NodeGap    float32 // gap between boxes in a rank; default 28
	RankGap    float32 // vertical gap between ranks; default 56
	Margin     float32 // outer margin; default 24
	CharWidth  float32 // monospace advance used to size boxes; default 7
}

func (o LayoutOptions) withDefaults() LayoutOptions {
	if o.NodeHeight <= 0 {
		o.NodeHeight = 28
	}
	if o.NodePadX <= 0 {
		o.NodePadX = 10
	}
	if o.NodeGap <= 0 {
		o.NodeGap = 28
	}
	if o.RankGap <= 0 {
		o.RankGap = 56
	}
	if o.Margin <= 0 {
		o.Margin = 24
	}
	if o.CharWidth <= 0 {
		o.CharWidth = 7
	}
	return o
}

// Node is a placed vertex.
type Node struct {
	ID    string
	Label string
	Line  int
	Rank  int
	Box   Rect
}

// Edge is a routed jump. To is negative for dangling edges. Back marks
// edges landing at the same or an earlier rank, self-loops included.
type Edge struct {
	From, To int
	Label    string
	Line     int
	Back     bool
	Path     Path
	Arrow    Arrow
	LabelAt  Pt // curve midpoint; below the stub for dangling edges
}

// Diagram is the placed graph. Bounds covers every box, edge and label
// plus the margin; renderers size their canvas from it.
type Diagram struct {
	Nodes  []Node
	Edges  []Edge
	Bounds Rect
}

type edgeClass uint8

const (
	classForward edgeClass = iota
	classBack
	classSelf
	classDangling
	classInvalid
)

// Layout places nodes and routes edges. The node at index 0 seeds rank
// zero; nodes no edge reaches start fresh waves below everything placed
// so far, so orphaned sections stay visible instead of vanishing.
func Layout(nodes []NodeSpec, edges []EdgeSpec, opts LayoutOptions) *Diagram {
	o := opts.withDefaults()
	d := &Diagram{}
	if len(nodes) == 0 {
		d.Bounds = R(0, 0, 2*o.Margin, 2*o.Margin)
		return d
	}

	rank := rankNodes(nodes, edges)
	maxRank := 0
	for _, r := range rank {
		if r > maxRank {
			maxRank = r
		}
	}
	byRank := make([][]int, maxRank+1)
	for i, r := range rank {
		byRank[r] = append(byRank[r], i)
	}

	// Box sizes from label length; rows centered on the widest rank.
	widths := make([]float32, len(nodes))
	for i, ns := range nodes {
		w := o.CharWidth*float32(len(ns.Label)) + 2*o.NodePadX
		if w < 2*o.NodeHeight {
			w = 2 * o.NodeHeight
		}
		widths[i] = w
	}
	var contentW float32
	rowW := make([]float32, len(byRank))
	for r, row := range byRank {
		var w float32
		for j, i := range row {
			if j > 0 {
				w += o.NodeGap
			}
			w += widths[i]
		}
		rowW[r] = w
		if w > contentW {
			contentW = w
		}
	}
	d.Nodes = make([]Node, len(nodes))
	for r, row := range byRank {
		x := o.Margin + (contentW-rowW[r])/2
		y := o.Margin + float32(r)*(o.NodeHeight+o.RankGap)
		for _, i := range row {
			d.Nodes[i] = Node{
				ID:    nodes[i].ID,
				Label: nodes[i].Label,
				Line:  nodes[i].Line,
				Rank:  r,
				Box:   R(FloatRound(x, 3), FloatRound(y, 3), FloatRound(widths[i], 3), o.NodeHeight),
			}
			x += widths[i] + o.NodeGap
		}
	}

	// Classify edges first so attachment points can fan out: forward and
	// dangling edges leave through the bottom, back edges and loops
	// through the right side.
	cls := make([]edgeClass, len(edges))
	outN := make([]int, len(nodes))
	inN := make([]int, len(nodes))
	for k, e := range edges {
		switch {
		case e.From < 0 || e.From >= len(nodes):
			cls[k] = classInvalid
		case e.To < 0 || e.To >= len(nodes):
			cls[k] = classDangling
			outN[e.From]++
		case e.To == e.From:
			cls[k] = classSelf
		case rank[e.To] <= rank[e.From]:
			cls[k] = classBack
		default:
			cls[k] = classForward
			outN[e.From]++
			inN[e.To]++
		}
	}

	outSeen := make([]int, len(nodes))
	inSeen := make([]int, len(nodes))
	for k, e := range edges {
		if cls[k] == classInvalid {
			continue
		}
		ed := Edge{From: e.From, To: e.To, Label: e.Label, Line: e.Line}
		f := d.Nodes[e.From].Box
		switch cls[k] {
		case classForward:
			t := d.Nodes[e.To].Box
			sx := f.X + f.W/2 + spread(outSeen[e.From], outN[e.From], f.W)
			outSeen[e.From]++
			ex := t.X + t.W/2 + spread(inSeen[e.To], inN[e.To], t.W)
			inSeen[e.To]++
			sy := f.Y + f.H
			ey := t.Y
			bend := o.RankGap / 2
			ed.Path.MoveTo(FloatRound(sx, 3), FloatRound(sy, 3))
			ed.Path.CubicTo(FloatRound(sx, 3), FloatRound(sy+bend, 3), FloatRound(ex, 3), FloatRound(ey-bend, 3), FloatRound(ex, 3), FloatRound(ey, 3))
			ed.Arrow = ComputeArrowHead(Pt{X: ex, Y: ey}, Pt{X: 0, Y: 1}, ArrowOptions{})
			ed.LabelAt = roundPt(cubicPoint(Pt{sx, sy}, Pt{sx, sy + bend}, Pt{ex, ey - bend}, Pt{ex, ey}, 0.5))
		case classBack:
			t := d.Nodes[e.To].Box
			ed.Back = true
			sx := f.X + f.W
			sy := f.Y + f.H/2
			ex := t.X + t.W
			ey := t.Y + t.H/2
			bulge := o.NodeGap*1.5 + float32(rank[e.From]-rank[e.To])*8
			ed.Path.MoveTo(FloatRound(sx, 3), FloatRound(sy, 3))
			ed.Path.CubicTo(FloatRound(sx+bulge, 3), FloatRound(sy, 3), FloatRound(ex+bulge, 3), FloatRound(ey, 3), FloatRound(ex, 3), FloatRound(ey, 3))
			ed.Arrow = ComputeArrowHead(Pt{X: ex, Y: ey}, Pt{X: -1, Y: 0}, ArrowOptions{})
			ed.LabelAt = roundPt(cubicPoint(Pt{sx, sy}, Pt{sx + bulge, sy}, Pt{ex + bulge, ey}, Pt{ex, ey}, 0.5))
		case classSelf:
			ed.Back = true
			sx := f.X + f.W
			sy := f.Y + f.H/2 - 6
			ey := f.Y + f.H/2 + 6
			loop := o.NodeGap * 1.2
			ed.Path.MoveTo(FloatRound(sx, 3), FloatRound(sy, 3))
			ed.Path.CubicTo(FloatRound(sx+loop, 3), FloatRound(sy-10, 3), FloatRound(sx+loop, 3), FloatRound(ey+10, 3), FloatRound(sx, 3), FloatRound(ey, 3))
			ed.Arrow = ComputeArrowHead(Pt{X: sx, Y: ey}, Pt{X: -loop, Y: -10}, ArrowOptions{})
			ed.LabelAt = roundPt(cubicPoint(Pt{sx, sy}, Pt{sx + loop, sy - 10}, Pt{sx + loop, ey + 10}, Pt{sx, ey}, 0.5))
		case classDangling:
			sx := f.X + f.W/2 + spread(outSeen[e.From], outN[e.From], f.W)
			outSeen[e.From]++
			sy := f.Y + f.H
			stub := o.RankGap * 0.6
			ed.Path.MoveTo(FloatRound(sx, 3), FloatRound(sy, 3))
			ed.Path.LineTo(FloatRound(sx, 3), FloatRound(sy+stub, 3))
			ed.Arrow = ComputeArrowHead(Pt{X: sx, Y: sy + stub}, Pt{X: 0, Y: 1}, ArrowOptions{})
			ed.LabelAt = roundPt(Pt{X: sx, Y: sy + stub + 14})
		}
		d.Edges = append(d.Edges, ed)
	}

	u := d.Nodes[0].Box
	for _, n := range d.Nodes[1:] {
		u = u.Union(n.Box)
	}
	for _, e := range d.Edges {
		u = u.Union(e.Path.Bounds())
		u = u.Union(e.Arrow.Path.Bounds())
		if e.To < 0 {
			lw := o.CharWidth*float32(len(e.Label)+1) + 4
			u = u.Union(R(e.LabelAt.X-lw/2, e.LabelAt.Y-12, lw, 16))
		}
	}
	u = u.Inset(-o.Margin, -o.Margin)
	d.Bounds = R(FloatRound(u.X, 3), FloatRound(u.Y, 3), FloatRound(u.W, 3), FloatRound(u.H, 3))
	return d
}

// rankNodes assigns breadth-first ranks. Self-loops and repeat visits are
// ignored; a node nothing reaches seeds a new wave one rank below the
// deepest placement so far.
func rankNodes(nodes []NodeSpec, edges []EdgeSpec) []int {
	rank := make([]int, len(nodes))
	for i := range rank {
		rank[i] = -1
	}
	adj := make([][]int, len(nodes))
	for _, e := range edges {
		if e.From < 0 || e.From >= len(nodes) || e.To < 0 || e.To >= len(nodes) || e.To == e.From {
			continue
		}
		adj[e.From] = append(adj[e.From], e.To)
	}
	maxRank := 0
	queue := []int{0}
	rank[0] = 0
	seed := 1
	for {
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			for _, nx := range adj[cur] {
				if rank[nx] >= 0 {
					continue
				}
				rank[nx] = rank[cur] + 1
				if rank[nx] > maxRank {
					maxRank = rank[nx]
				}
				queue = append(queue, nx)
			}
		}
		found := false
		for ; seed < len(nodes); seed++ {
			if rank[seed] < 0 {
				maxRank++
				rank[seed] = maxRank
				queue = append(queue, seed)
				found = true
				break
			}
		}
		if !found {
			break
		}
	}
	return rank
}

// spread fans n attachment slots across a box edge of width w; slot i of a
// single edge sits dead center.
func spread(i, n int, w float32) float32 {
	if n <= 1 {
		return 0
	}
	step := min(12, (w-12)/float32(n-1))
	if step < 0 {
		step = 0
	}
	return (float32(i) - float32(n-1)/2) * step
}
