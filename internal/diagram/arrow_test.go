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

import "testing"

func TestComputeArrowHeadPointsDown(t *testing.T) {
	a := ComputeArrowHead(Pt{X: 50, Y: 100}, Pt{X: 0, Y: 1}, ArrowOptions{Width: 8, Length: 10})

	if a.Side != "bottom" {
		t.Fatalf("expected side bottom, got %s", a.Side)
	}
	if a.Tip.X != 50 || a.Tip.Y != 100 {
		t.Fatalf("tip should stay on the edge endpoint, got %+v", a.Tip)
	}
	// The base trails the tip against the travel direction.
	if !almostEq(a.BaseLeft.Y, 90, 0.01) || !almostEq(a.BaseRight.Y, 90, 0.01) {
		t.Fatalf("base should sit 10 above the tip, got %+v / %+v", a.BaseLeft, a.BaseRight)
	}
	if !almostEq(a.BaseLeft.X+a.BaseRight.X, 100, 0.01) {
		t.Fatalf("base should straddle the travel axis, got %+v / %+v", a.BaseLeft, a.BaseRight)
	}
	if n := len(a.Path.Cmds); n == 0 || a.Path.Cmds[n-1].Op != Close {
		t.Fatalf("expected closed triangle path")
	}
}

func TestComputeArrowHeadLeftward(t *testing.T) {
	a := ComputeArrowHead(Pt{X: 10, Y: 0}, Pt{X: -1, Y: 0}, ArrowOptions{Width: 6, Length: 8})

	if a.Side != "left" {
		t.Fatalf("expected side left, got %s", a.Side)
	}
	if !almostEq(a.BaseLeft.X, 18, 0.01) || !almostEq(a.BaseRight.X, 18, 0.01) {
		t.Fatalf("base should trail 8 to the right of the tip, got %+v / %+v", a.BaseLeft, a.BaseRight)
	}
}

func TestComputeArrowHeadZeroDirectionDefaultsDown(t *testing.T) {
	a := ComputeArrowHead(Pt{}, Pt{}, ArrowOptions{})

	if a.Side != "bottom" {
		t.Fatalf("degenerate direction should point down, got %s", a.Side)
	}
	if !almostEq(a.BaseLeft.Y, -9, 0.01) {
		t.Fatalf("default length should place the base 9 behind the tip, got %+v", a.BaseLeft)
	}
}
