/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package diagram

// Styles and paint definitions shared by the graph renderers.

type Color struct{ R, G, B, A uint8 }

var (
	Black       = Color{0, 0, 0, 255}
	White       = Color{255, 255, 255, 255}
	Transparent = Color{0, 0, 0, 0}
)

type LineCap uint8

const (
	CapButt LineCap = iota
	CapRound
	CapSquare
)

type Fill struct {
	Color   Color
	Enabled bool
}

type Stroke struct {
	Color Color
	Width float32
	Cap   LineCap
	Dash  []float32 // on/off run lengths; empty means solid
}

// Style bundles the paints for one rendered graph so the SVG and PNG
// output of the same diagram read the same.
type Style struct {
	Background Color
	NodeFill   Fill
	NodeStroke Stroke
	Text       Color
	FontSizePt float32

	Edge     Stroke
	BackEdge Stroke // jumps landing at the same or an earlier rank
	Dangling Stroke // jumps whose target never resolved
}

// DefaultStyle is the black-on-white scheme. Back edges go gray and
// dashed, dangling edges red and dotted, so a draft's loose ends stand out
// at a glance.
func DefaultStyle() Style {
	return Style{
		Background: White,
		NodeFill:   Fill{Color: White, Enabled: true},
		NodeStroke: Stroke{Color: Black, Width: 1},
		Text:       Black,
		FontSizePt: 11,
		Edge:       Stroke{Color: Black, Width: 1, Cap: CapRound},
		BackEdge:   Stroke{Color: Color{R: 112, G: 112, B: 112, A: 255}, Width: 1, Cap: CapRound, Dash: []float32{4, 3}},
		Dangling:   Stroke{Color: Color{R: 196, G: 32, B: 32, A: 255}, Width: 1, Cap: CapRound, Dash: []float32{2, 2}},
	}
}
