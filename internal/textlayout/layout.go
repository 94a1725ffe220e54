/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

// Deterministic text measurement and line breaking for the exporters.
// The reading-copy writer wraps prose at a character column budget and
// the graph rasterizer resolves label faces here; both go through the
// same Provider seam so output never depends on the host's font stack.

import (
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

// FontSpec describes a requested font.
type FontSpec struct {
	Family string // logical family name
	SizePt float32
	Weight int // 100..900
	Italic bool
}

// Metrics provides font metrics in pixels for the resolved face.
type Metrics struct {
	Ascent, Descent, LineGap float32
}

// Span is a run of text with the same font.
type Span struct {
	Text string
	Font FontSpec
}

// Line is a single laid out line with width and ascent/descent.
type Line struct {
	Spans   []Span
	Width   float32
	Ascent  float32
	Descent float32
}

// TextBox is the result of laying out text into a box width.
type TextBox struct {
	Lines   []Line
	Width   float32
	Height  float32
	Metrics Metrics
}

// Provider maps FontSpec to a concrete font.Face.
type Provider interface {
	Resolve(FontSpec) (font.Face, Metrics)
}

// BasicProvider resolves everything to the fixed 7x13 bitmap face. Every
// glyph advances the same 7px, which is what makes column budgets exact.
type BasicProvider struct{}

// monoAdvancePx is the per-glyph advance of BasicProvider's face.
const monoAdvancePx = 7

func (BasicProvider) Resolve(FontSpec) (font.Face, Metrics) {
	f := basicfont.Face7x13
	m := f.Metrics()
	return f, Metrics{
		Ascent:  float32(m.Ascent.Round()),
		Descent: float32(m.Descent.Round()),
		LineGap: float32(m.Height.Round() - m.Ascent.Round() - m.Descent.Round()),
	}
}

// WordWrapLayouter breaks spans on spaces against a pixel budget. No
// shaping, no hyphenation: a word that alone exceeds the budget gets a
// line to itself rather than splitting mid-word.
type WordWrapLayouter struct{ Provider Provider }

func NewWordWrap(provider Provider) *WordWrapLayouter { return &WordWrapLayouter{Provider: provider} }

func (l *WordWrapLayouter) Layout(spans []Span, maxWidth float32) TextBox {
	if l.Provider == nil {
		l.Provider = BasicProvider{}
	}
	// Metrics come from the zero spec; the wrap assumes one face per box.
	face, met := l.Provider.Resolve(FontSpec{})
	drawer := &font.Drawer{Face: face}
	cur := Line{Ascent: met.Ascent, Descent: met.Descent}
	box := TextBox{Metrics: met}
	addLine := func() {
		box.Lines = append(box.Lines, cur)
		if cur.Width > box.Width {
			box.Width = cur.Width
		}
		box.Height += met.Ascent + met.Descent + met.LineGap
		cur = Line{Ascent: met.Ascent, Descent: met.Descent}
	}
	for _, sp := range spans {
		if sp.Text == "" {
			continue
		}
		start := 0
		for i := 0; i <= len(sp.Text); i++ {
			if i < len(sp.Text) && sp.Text[i] != ' ' && sp.Text[i] != '\n' {
				continue
			}
			word := sp.Text[start:i]
			w := advance(drawer, word)
			if cur.Width > 0 && maxWidth > 0 && cur.Width+w > maxWidth {
				addLine()
			}
			if word != "" {
				cur.Spans = append(cur.Spans, Span{Text: word, Font: sp.Font})
				cur.Width += w
			}
			if i < len(sp.Text) {
				if sp.Text[i] == '\n' {
					addLine()
				} else {
					cur.Spans = append(cur.Spans, Span{Text: " ", Font: sp.Font})
					cur.Width += advance(drawer, " ")
				}
			}
			start = i + 1
		}
	}
	if len(cur.Spans) > 0 || len(box.Lines) == 0 {
		addLine()
	}
	return box
}

// WrapColumns breaks s into lines of at most cols display columns,
// splitting on spaces. Trailing spaces are trimmed from each line; an
// empty input still yields one empty line.
func WrapColumns(s string, cols int) []string {
	if cols < 1 {
		cols = 1
	}
	l := NewWordWrap(BasicProvider{})
	box := l.Layout([]Span{{Text: s}}, float32(cols)*monoAdvancePx)
	out := make([]string, 0, len(box.Lines))
	for _, ln := range box.Lines {
		var b strings.Builder
		for _, sp := range ln.Spans {
			b.WriteString(sp.Text)
		}
		out = append(out, strings.TrimRight(b.String(), " "))
	}
	if len(out) == 0 {
		out = []string{""}
	}
	return out
}

func advance(d *font.Drawer, s string) float32 {
	return float32(d.MeasureString(s) >> 6) // fixed.Int26_6 to px
}

// Measure reports the width and line height of the spans without any
// line breaking.
func Measure(provider Provider, spans []Span) (w, h float32) {
	if provider == nil {
		provider = BasicProvider{}
	}
	_, met := provider.Resolve(FontSpec{})
	var width float32
	var face font.Face
	for _, sp := range spans {
		face, _ = provider.Resolve(sp.Font)
		d := &font.Drawer{Face: face}
		width += advance(d, sp.Text)
	}
	lineH := met.Ascent + met.Descent
	return width, lineH
}
