/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package diagram

// Path commands for edge routing and arrowhead outlines.

import (
	"fmt"
	"strconv"
	"strings"
)

type PathOp uint8

const (
	MoveTo PathOp = iota
	LineTo
	QuadTo  // quadratic bezier (cx, cy, x, y)
	CubicTo // cubic bezier (cx1, cy1, cx2, cy2, x, y)
	Close
)

type PathCmd struct {
	Op   PathOp
	Data [6]float32 // enough for cubic; unused slots are zero
}

type Path struct{ Cmds []PathCmd }

func (p *Path) MoveTo(x, y float32) {
	p.Cmds = append(p.Cmds, PathCmd{Op: MoveTo, Data: [6]float32{x, y}})
}
func (p *Path) LineTo(x, y float32) {
	p.Cmds = append(p.Cmds, PathCmd{Op: LineTo, Data: [6]float32{x, y}})
}
func (p *Path) QuadTo(cx, cy, x, y float32) {
	p.Cmds = append(p.Cmds, PathCmd{Op: QuadTo, Data: [6]float32{cx, cy, x, y}})
}
func (p *Path) CubicTo(cx1, cy1, cx2, cy2, x, y float32) {
	p.Cmds = append(p.Cmds, PathCmd{Op: CubicTo, Data: [6]float32{cx1, cy1, cx2, cy2, x, y}})
}
func (p *Path) Close() { p.Cmds = append(p.Cmds, PathCmd{Op: Close}) }

// SVGData renders the path in SVG "d" attribute syntax. Coordinates round
// to three decimals so identical diagrams serialize byte-identically.
func (p *Path) SVGData() string {
	var b strings.Builder
	for i, c := range p.Cmds {
		if i > 0 {
			b.WriteByte(' ')
		}
		switch c.Op {
		case MoveTo:
			fmt.Fprintf(&b, "M %s %s", f3(c.Data[0]), f3(c.Data[1]))
		case LineTo:
			fmt.Fprintf(&b, "L %s %s", f3(c.Data[0]), f3(c.Data[1]))
		case QuadTo:
			fmt.Fprintf(&b, "Q %s %s %s %s", f3(c.Data[0]), f3(c.Data[1]), f3(c.Data[2]), f3(c.Data[3]))
		case CubicTo:
			fmt.Fprintf(&b, "C %s %s %s %s %s %s", f3(c.Data[0]), f3(c.Data[1]), f3(c.Data[2]), f3(c.Data[3]), f3(c.Data[4]), f3(c.Data[5]))
		case Close:
			b.WriteByte('Z')
		}
	}
	return b.String()
}

func f3(v float32) string {
	return strconv.FormatFloat(float64(FloatRound(v, 3)), 'f', -1, 32)
}

// Flatten approximates the path as a polyline, sampling every curve at
// steps points. Rasterizers draw the result pairwise.
func (p *Path) Flatten(steps int) []Pt {
	if steps < 1 {
		steps = 8
	}
	var out []Pt
	var cur, start Pt
	for _, c := range p.Cmds {
		switch c.Op {
		case MoveTo:
			cur = Pt{c.Data[0], c.Data[1]}
			start = cur
			out = append(out, cur)
		case LineTo:
			cur = Pt{c.Data[0], c.Data[1]}
			out = append(out, cur)
		case QuadTo:
			c1 := Pt{c.Data[0], c.Data[1]}
			end := Pt{c.Data[2], c.Data[3]}
			for i := 1; i <= steps; i++ {
				t := float32(i) / float32(steps)
				out = append(out, quadPoint(cur, c1, end, t))
			}
			cur = end
		case CubicTo:
			c1 := Pt{c.Data[0], c.Data[1]}
			c2 := Pt{c.Data[2], c.Data[3]}
			end := Pt{c.Data[4], c.Data[5]}
			for i := 1; i <= steps; i++ {
				t := float32(i) / float32(steps)
				out = append(out, cubicPoint(cur, c1, c2, end, t))
			}
			cur = end
		case Close:
			out = append(out, start)
			cur = start
		}
	}
	return out
}

func quadPoint(p0, c, p1 Pt, t float32) Pt {
	u := 1 - t
	return Pt{
		X: u*u*p0.X + 2*u*t*c.X + t*t*p1.X,
		Y: u*u*p0.Y + 2*u*t*c.Y + t*t*p1.Y,
	}
}

func cubicPoint(p0, c1, c2, p1 Pt, t float32) Pt {
	u := 1 - t
	return Pt{
		X: u*u*u*p0.X + 3*u*u*t*c1.X + 3*u*t*t*c2.X + t*t*t*p1.X,
		Y: u*u*u*p0.Y + 3*u*u*t*c1.Y + 3*u*t*t*c2.Y + t*t*t*p1.Y,
	}
}

// Bounds returns an axis-aligned bounding box of the path using a simple
// approximation by considering control points. Tight enough for sizing a
// canvas around routed edges.
func (p *Path) Bounds() Rect {
	minX, minY := float32(+1e9), float32(+1e9)
	maxX, maxY := float32(-1e9), float32(-1e9)
	grow := func(pts ...Pt) {
		for _, q := range pts {
			if q.X < minX {
				minX = q.X
			}
			if q.Y < minY {
				minY = q.Y
			}
			if q.X > maxX {
				maxX = q.X
			}
			if q.Y > maxY {
				maxY = q.Y
			}
		}
	}
	cur := Pt{}
	for _, c := range p.Cmds {
		switch c.Op {
		case MoveTo, LineTo:
			cur = Pt{c.Data[0], c.Data[1]}
			grow(cur)
		case QuadTo:
			grow(cur, Pt{c.Data[0], c.Data[1]}, Pt{c.Data[2], c.Data[3]})
			cur = Pt{c.Data[2], c.Data[3]}
		case CubicTo:
			grow(cur, Pt{c.Data[0], c.Data[1]}, Pt{c.Data[2], c.Data[3]}, Pt{c.Data[4], c.Data[5]})
			cur = Pt{c.Data[4], c.Data[5]}
		case Close:
			// no-op for bounds
		}
	}
	if minX > maxX || minY > maxY {
		return Rect{}
	}
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}
