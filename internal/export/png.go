/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/mikezilla14/fountain-flow/internal/diagram"
	"github.com/mikezilla14/fountain-flow/internal/storage"
	"github.com/mikezilla14/fountain-flow/internal/textlayout"
	"github.com/mikezilla14/fountain-flow/internal/views"
)

// PNGOptions controls the raster graph export.
//   - DPI: output resolution; <= 0 means 144 (1 diagram unit = 1/72")
//   - LabelFont: path to a TTF/OTF used for node and edge labels. Empty
//     falls back to the fixed 7x13 bitmap face, which does not grow with
//     DPI; point a real font here when rastering above screen resolution.
//
//nolint:revive // clarity is preferred
type PNGOptions struct {
	DPI       int
	LabelFont string
	Layout    diagram.LayoutOptions
	Style     diagram.Style
}

// ExportScriptPNG writes the jump graph of a registered script as a PNG
// image.
func ExportScriptPNG(ph *storage.ProjectHandle, rel, outPath string, opt PNGOptions) error {
	rel = effectiveRel(rel)
	s, err := loadScript(ph, rel)
	if err != nil {
		return err
	}
	img, err := renderGraphPNG(views.Logic(s), opt)
	if err != nil {
		return err
	}
	out, err := resolveOut(ph, outPath)
	if err != nil {
		return err
	}
	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("create png: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode png: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close png: %w", err)
	}
	return nil
}

func renderGraphPNG(lv *views.LogicView, opt PNGOptions) (*image.RGBA, error) {
	st := opt.Style
	if st.NodeStroke.Width == 0 {
		st = diagram.DefaultStyle()
	}
	dpi := opt.DPI
	if dpi <= 0 {
		dpi = 144
	}
	face, err := labelFace(opt.LabelFont, dpi, st.FontSizePt)
	if err != nil {
		return nil, err
	}
	d := graphDiagram(lv, opt.Layout)

	scale := float32(dpi) / 72.0
	pixW := int(math.Round(float64(d.Bounds.W * scale)))
	pixH := int(math.Round(float64(d.Bounds.H * scale)))
	if pixW < 1 {
		pixW = 1
	}
	if pixH < 1 {
		pixH = 1
	}
	m := diagram.Scale(scale, scale).Mul(diagram.Translate(-d.Bounds.X, -d.Bounds.Y))

	img := image.NewRGBA(image.Rect(0, 0, pixW, pixH))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: toRGBA(st.Background)}, image.Point{}, draw.Src)

	for _, e := range d.Edges {
		stroke := st.Edge
		switch {
		case e.To < 0:
			stroke = st.Dangling
		case e.Back:
			stroke = st.BackEdge
		}
		col := toRGBA(stroke.Color)
		pts := e.Path.Flatten(16)
		for i := 1; i < len(pts); i++ {
			drawLine(img, m.Apply(pts[i-1]), m.Apply(pts[i]), col)
		}
		fillTriangle(img, m.Apply(e.Arrow.Tip), m.Apply(e.Arrow.BaseLeft), m.Apply(e.Arrow.BaseRight), col)
		if e.To < 0 {
			drawLabel(img, face, m.Apply(e.LabelAt), e.Label+"?", col)
		}
	}

	for _, n := range d.Nodes {
		p := m.Apply(n.Box.Min())
		x0 := int(math.Round(float64(p.X)))
		y0 := int(math.Round(float64(p.Y)))
		x1 := x0 + int(math.Round(float64(n.Box.W*scale))) - 1
		y1 := y0 + int(math.Round(float64(n.Box.H*scale))) - 1
		if st.NodeFill.Enabled {
			fillRect(img, x0, y0, x1, y1, toRGBA(st.NodeFill.Color))
		}
		strokeRect(img, x0, y0, x1, y1, toRGBA(st.NodeStroke.Color))
		drawLabel(img, face, m.Apply(n.Box.Center()), n.Label, toRGBA(st.Text))
	}
	return img, nil
}

// labelFace resolves the face labels raster with. A font file, when
// given, is sized at the diagram's label point size against the raster
// DPI so text keeps pace with the geometry.
func labelFace(path string, dpi int, sizePt float32) (font.Face, error) {
	if path == "" {
		return basicfont.Face7x13, nil
	}
	lib := textlayout.NewFontLibrary()
	if err := lib.LoadTTF("label", 400, false, path); err != nil {
		return nil, fmt.Errorf("label font: %w", err)
	}
	prov := textlayout.OTProvider{Lib: lib, DPI: float64(dpi), Fallback: textlayout.BasicProvider{}}
	face, _ := prov.Resolve(textlayout.FontSpec{Family: "label", SizePt: sizePt})
	return face, nil
}

func toRGBA(c diagram.Color) color.RGBA {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: c.A}
}

// strokeRect draws a 1px axis-aligned rectangle border inclusive of endpoints.
func strokeRect(img *image.RGBA, x0, y0, x1, y1 int, col color.RGBA) {
	// top and bottom
	for x := x0; x <= x1; x++ {
		img.SetRGBA(x, y0, col)
		img.SetRGBA(x, y1, col)
	}
	// left and right
	for y := y0; y <= y1; y++ {
		img.SetRGBA(x0, y, col)
		img.SetRGBA(x1, y, col)
	}
}

func fillRect(img *image.RGBA, x0, y0, x1, y1 int, col color.RGBA) {
	if x1 < x0 {
		x0, x1 = x1, x0
	}
	if y1 < y0 {
		y0, y1 = y1, y0
	}
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			img.SetRGBA(x, y, col)
		}
	}
}

// drawLine rasterizes a 1px segment. SetRGBA drops out-of-bounds pixels,
// so no clipping is needed here.
func drawLine(img *image.RGBA, a, b diagram.Pt, col color.RGBA) {
	x0 := int(math.Round(float64(a.X)))
	y0 := int(math.Round(float64(a.Y)))
	x1 := int(math.Round(float64(b.X)))
	y1 := int(math.Round(float64(b.Y)))
	dx := iabs(x1 - x0)
	dy := -iabs(y1 - y0)
	sx, sy := 1, 1
	if x0 >= x1 {
		sx = -1
	}
	if y0 >= y1 {
		sy = -1
	}
	e := dx + dy
	for {
		img.SetRGBA(x0, y0, col)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

// fillTriangle rasterizes the arrowhead with a sign-consistent edge test
// over its bounding box.
func fillTriangle(img *image.RGBA, a, b, c diagram.Pt, col color.RGBA) {
	minX := int(math.Floor(float64(min(a.X, b.X, c.X))))
	maxX := int(math.Ceil(float64(max(a.X, b.X, c.X))))
	minY := int(math.Floor(float64(min(a.Y, b.Y, c.Y))))
	maxY := int(math.Ceil(float64(max(a.Y, b.Y, c.Y))))
	edge := func(p, q diagram.Pt, x, y float32) float32 {
		return (q.X-p.X)*(y-p.Y) - (q.Y-p.Y)*(x-p.X)
	}
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			fx := float32(x) + 0.5
			fy := float32(y) + 0.5
			w0 := edge(a, b, fx, fy)
			w1 := edge(b, c, fx, fy)
			w2 := edge(c, a, fx, fy)
			if (w0 >= 0 && w1 >= 0 && w2 >= 0) || (w0 <= 0 && w1 <= 0 && w2 <= 0) {
				img.SetRGBA(x, y, col)
			}
		}
	}
}

// drawLabel centers s on the given point.
func drawLabel(img *image.RGBA, face font.Face, at diagram.Pt, s string, col color.RGBA) {
	if s == "" {
		return
	}
	w := font.MeasureString(face, s).Round()
	met := face.Metrics()
	dy := (met.Ascent.Round() - met.Descent.Round()) / 2
	dr := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.P(int(at.X)-w/2, int(at.Y)+dy),
	}
	dr.DrawString(s)
}

func iabs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
