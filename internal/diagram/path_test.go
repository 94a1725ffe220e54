/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package diagram

import "testing"

func TestPathSVGData(t *testing.T) {
	var p Path
	p.MoveTo(10, 20)
	p.LineTo(30, 20)
	p.CubicTo(30, 40, 50, 40, 50, 60)
	p.Close()

	got := p.SVGData()
	want := "M 10 20 L 30 20 C 30 40 50 40 50 60 Z"
	if got != want {
		t.Fatalf("svg data\n got %q\nwant %q", got, want)
	}
}

func TestPathFlattenSamplesCurve(t *testing.T) {
	var p Path
	p.MoveTo(0, 0)
	p.CubicTo(0, 10, 10, 10, 10, 20)

	pts := p.Flatten(4)
	if len(pts) != 5 {
		t.Fatalf("expected 5 points (move + 4 samples), got %d", len(pts))
	}
	if pts[0] != (Pt{}) {
		t.Fatalf("first point should be the move target, got %+v", pts[0])
	}
	last := pts[len(pts)-1]
	if !almostEq(last.X, 10, 1e-4) || !almostEq(last.Y, 20, 1e-4) {
		t.Fatalf("last sample should hit the curve end, got %+v", last)
	}
	for i := 1; i < len(pts); i++ {
		if pts[i].Y < pts[i-1].Y {
			t.Fatalf("samples should descend monotonically for this curve, got %+v", pts)
		}
	}
}

func TestPathBoundsCoversControlPoints(t *testing.T) {
	var p Path
	p.MoveTo(10, 10)
	p.QuadTo(60, -20, 110, 10)

	b := p.Bounds()
	if b.X != 10 || b.Y != -20 || b.W != 100 || b.H != 30 {
		t.Fatalf("bounds got %+v", b)
	}
}

func TestPathBoundsEmpty(t *testing.T) {
	var p Path
	if b := p.Bounds(); b != (Rect{}) {
		t.Fatalf("empty path should have zero bounds, got %+v", b)
	}
}
