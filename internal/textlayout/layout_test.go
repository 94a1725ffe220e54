/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"testing"

	"golang.org/x/image/font/opentype"
)

func TestWordWrap_BreaksProse(t *testing.T) {
	l := NewWordWrap(BasicProvider{})
	box := l.Layout([]Span{{Text: "The vault door grinds open at last"}}, 80)
	if len(box.Lines) < 2 {
		t.Fatalf("expected wrapping into multiple lines, got %d", len(box.Lines))
	}
	if box.Width <= 0 || box.Height <= 0 {
		t.Fatalf("expected positive box size: %+v", box)
	}
}

func TestWrapColumns(t *testing.T) {
	cases := []struct {
		name string
		in   string
		cols int
		want []string
	}{
		{"exact budget", "abcde fghi jklmn", 10, []string{"abcde fghi", "jklmn"}},
		{"long word overflows", "incontrovertibly so", 8, []string{"incontrovertibly", "so"}},
		{"fits", "short line", 24, []string{"short line"}},
		{"empty", "", 10, []string{""}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := WrapColumns(tc.in, tc.cols)
			if len(got) != len(tc.want) {
				t.Fatalf("lines = %q, want %q", got, tc.want)
			}
			for i := range tc.want {
				if got[i] != tc.want[i] {
					t.Fatalf("line %d = %q, want %q", i, got[i], tc.want[i])
				}
			}
		})
	}
}

func TestMeasure_SpanSplitInvariant(t *testing.T) {
	w1, h1 := Measure(BasicProvider{}, []Span{{Text: "MIRA"}})
	w2, h2 := Measure(BasicProvider{}, []Span{{Text: "MI"}, {Text: "RA"}})
	if w1 != w2 || h1 != h2 {
		t.Fatalf("measurement depends on span split: %v,%v vs %v,%v", w1, h1, w2, h2)
	}
	if w1 != 4*monoAdvancePx {
		t.Fatalf("width = %v, want %v", w1, 4*monoAdvancePx)
	}
}

func TestOTProvider_FallsBackWithoutLibrary(t *testing.T) {
	face, met := OTProvider{}.Resolve(FontSpec{SizePt: 11})
	if face == nil {
		t.Fatalf("no face resolved")
	}
	if met.Ascent != 11 || met.Descent != 2 {
		t.Fatalf("fallback metrics = %+v, want the 7x13 face", met)
	}
}

func TestFontLibrary_NearestWeight(t *testing.T) {
	regular, bold := new(opentype.Font), new(opentype.Font)
	fl := NewFontLibrary()
	fl.fonts[fontKey{family: "Label", weight: 400}] = regular
	fl.fonts[fontKey{family: "Label", weight: 700}] = bold
	if got := fl.find(FontSpec{Family: "Label", Weight: 500}); got != regular {
		t.Fatalf("weight 500 did not resolve to regular")
	}
	if got := fl.find(FontSpec{Family: "Label", Weight: 650}); got != bold {
		t.Fatalf("weight 650 did not resolve to bold")
	}
	if got := fl.find(FontSpec{Family: "Other"}); got != nil {
		t.Fatalf("unknown family resolved to a font")
	}
}
