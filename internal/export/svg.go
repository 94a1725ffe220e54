/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/mikezilla14/fountain-flow/internal/diagram"
	"github.com/mikezilla14/fountain-flow/internal/storage"
	"github.com/mikezilla14/fountain-flow/internal/views"
)

// SVGOptions controls the standalone SVG graph export.
// The coordinate system is the diagram's (one unit per point); a viewBox
// scales it to the declared pixel size.
//
//nolint:revive // clarity is preferred
type SVGOptions struct {
	Layout diagram.LayoutOptions // zero fields fall back to layout defaults
	Style  diagram.Style         // zero value falls back to DefaultStyle
}

// ExportScriptSVG writes the jump graph of a registered script as a
// standalone SVG document.
func ExportScriptSVG(ph *storage.ProjectHandle, rel, outPath string, opt SVGOptions) error {
	rel = effectiveRel(rel)
	s, err := loadScript(ph, rel)
	if err != nil {
		return err
	}
	data, err := renderGraphSVG(views.Logic(s), opt)
	if err != nil {
		return err
	}
	out, err := resolveOut(ph, outPath)
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("write svg: %w", err)
	}
	return nil
}

// graphDiagram lays out the logic view's jump graph. Shared by the SVG
// and PNG exporters so both plot identical geometry.
func graphDiagram(lv *views.LogicView, lo diagram.LayoutOptions) *diagram.Diagram {
	nodes, arcs := flowSections(lv.Graph)
	specs := make([]diagram.NodeSpec, len(nodes))
	for i, n := range nodes {
		specs[i] = diagram.NodeSpec{ID: n.id, Label: n.label, Line: n.line}
	}
	edges := make([]diagram.EdgeSpec, len(arcs))
	for i, a := range arcs {
		edges[i] = diagram.EdgeSpec{From: a.from, To: a.to, Label: a.target, Line: a.line}
	}
	return diagram.Layout(specs, edges, lo)
}

func renderGraphSVG(lv *views.LogicView, opt SVGOptions) ([]byte, error) {
	st := opt.Style
	if st.NodeStroke.Width == 0 {
		st = diagram.DefaultStyle()
	}
	d := graphDiagram(lv, opt.Layout)

	var buf bytes.Buffer
	var werr error
	wf := func(format string, args ...any) {
		if werr != nil {
			return
		}
		_, werr = fmt.Fprintf(&buf, format, args...)
	}

	wf("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	wf("<svg xmlns=\"http://www.w3.org/2000/svg\" version=\"1.1\" width=\"%gpx\" height=\"%gpx\" viewBox=\"%g %g %g %g\">\n",
		d.Bounds.W, d.Bounds.H, d.Bounds.X, d.Bounds.Y, d.Bounds.W, d.Bounds.H)
	wf("  <rect x=\"%g\" y=\"%g\" width=\"%g\" height=\"%g\" fill=\"%s\"/>\n",
		d.Bounds.X, d.Bounds.Y, d.Bounds.W, d.Bounds.H, svgColor(st.Background))

	// edges first so boxes paint over the attachment points
	for _, e := range d.Edges {
		stroke := st.Edge
		switch {
		case e.To < 0:
			stroke = st.Dangling
		case e.Back:
			stroke = st.BackEdge
		}
		wf("  <path d=\"%s\" fill=\"none\" stroke=\"%s\" stroke-width=\"%g\"%s%s/>\n",
			e.Path.SVGData(), svgColor(stroke.Color), stroke.Width, svgDash(stroke.Dash), svgCap(stroke.Cap))
		wf("  <path d=\"%s\" fill=\"%s\"/>\n", e.Arrow.Path.SVGData(), svgColor(stroke.Color))
		if e.To < 0 {
			wf("  <text x=\"%g\" y=\"%g\" text-anchor=\"middle\" font-family=\"Courier, monospace\" font-size=\"%g\" fill=\"%s\">%s?</text>\n",
				e.LabelAt.X, e.LabelAt.Y, st.FontSizePt, svgColor(stroke.Color), escText(e.Label))
		}
	}

	for i, n := range d.Nodes {
		rx := float32(3)
		if i == 0 {
			// pill shape marks the entry
			rx = n.Box.H / 2
		}
		fill := "none"
		if st.NodeFill.Enabled {
			fill = svgColor(st.NodeFill.Color)
		}
		wf("  <rect x=\"%g\" y=\"%g\" width=\"%g\" height=\"%g\" rx=\"%g\" ry=\"%g\" fill=\"%s\" stroke=\"%s\" stroke-width=\"%g\"/>\n",
			n.Box.X, n.Box.Y, n.Box.W, n.Box.H, rx, rx, fill, svgColor(st.NodeStroke.Color), st.NodeStroke.Width)
		c := n.Box.Center()
		wf("  <text x=\"%g\" y=\"%g\" text-anchor=\"middle\" font-family=\"Courier, monospace\" font-size=\"%g\" fill=\"%s\">%s</text>\n",
			c.X, c.Y+st.FontSizePt*0.35, st.FontSizePt, svgColor(st.Text), escText(n.Label))
	}

	wf("</svg>\n")
	if werr != nil {
		return nil, fmt.Errorf("build svg: %w", werr)
	}
	return buf.Bytes(), nil
}

func svgColor(c diagram.Color) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func svgDash(dash []float32) string {
	if len(dash) == 0 {
		return ""
	}
	parts := make([]string, len(dash))
	for i, v := range dash {
		parts[i] = fmt.Sprintf("%g", v)
	}
	return fmt.Sprintf(" stroke-dasharray=\"%s\"", strings.Join(parts, " "))
}

func svgCap(c diagram.LineCap) string {
	switch c {
	case diagram.CapRound:
		return " stroke-linecap=\"round\""
	case diagram.CapSquare:
		return " stroke-linecap=\"square\""
	}
	return ""
}

func escText(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch ch {
		case '&':
			out = append(out, '&', 'a', 'm', 'p', ';')
		case '<':
			out = append(out, '&', 'l', 't', ';')
		case '>':
			out = append(out, '&', 'g', 't', ';')
		default:
			out = append(out, ch)
		}
	}
	return string(out)
}
