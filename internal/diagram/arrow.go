/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package diagram

import "math"

// ArrowOptions controls the generated head geometry. Units are canvas
// units. Deterministic results are ensured by rounding output points to
// 3 decimals.
type ArrowOptions struct {
	// Width is the base width of the head where it meets the edge.
	Width float32
	// Length is the distance from the base to the tip.
	Length float32
}

// Arrow is a filled triangular head sitting at the end of an edge.
type Arrow struct {
	Tip       Pt
	BaseLeft  Pt
	BaseRight Pt
	Angle     float32 // radians, direction of travel at the tip
	Side      string  // dominant approach: left/right/top/bottom
	Path      Path
}

// ComputeArrowHead builds the head for an edge arriving at tip travelling
// in direction dir. The template head points +X with its tip at the
// origin; it is rotated into the travel direction and translated onto the
// tip. A zero direction points down so degenerate edges still render.
func ComputeArrowHead(tip, dir Pt, opts ArrowOptions) Arrow {
	if opts.Width <= 0 {
		opts.Width = 7
	}
	if opts.Length <= 0 {
		opts.Length = 9
	}
	if dir.X == 0 && dir.Y == 0 {
		dir = Pt{X: 0, Y: 1}
	}
	mag := hypot(dir.X, dir.Y)
	ux, uy := dir.X/mag, dir.Y/mag
	angle := float32(math.Atan2(float64(uy), float64(ux)))

	m := Translate(tip.X, tip.Y).Mul(Rotate(angle))
	tp := roundPt(m.Apply(Pt{}))
	bl := roundPt(m.Apply(Pt{X: -opts.Length, Y: -opts.Width / 2}))
	br := roundPt(m.Apply(Pt{X: -opts.Length, Y: opts.Width / 2}))

	var path Path
	path.MoveTo(tp.X, tp.Y)
	path.LineTo(bl.X, bl.Y)
	path.LineTo(br.X, br.Y)
	path.Close()

	return Arrow{
		Tip:       tp,
		BaseLeft:  bl,
		BaseRight: br,
		Angle:     angle,
		Side:      classifySide(ux, uy),
		Path:      path,
	}
}

func classifySide(ux, uy float32) string {
	// Determine the dominant axis of the direction vector.
	ax, ay := float32(math.Abs(float64(ux))), float32(math.Abs(float64(uy)))
	if ax >= ay {
		if ux >= 0 {
			return "right"
		}
		return "left"
	}
	if uy >= 0 {
		return "bottom"
	}
	return "top"
}
