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
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/mikezilla14/fountain-flow/internal/ast"
	"github.com/mikezilla14/fountain-flow/internal/compile"
	"github.com/mikezilla14/fountain-flow/internal/storage"
	"github.com/mikezilla14/fountain-flow/internal/textlayout"
	"github.com/mikezilla14/fountain-flow/internal/views"
)

// Screenplay page metrics in points. US Letter with the customary wide
// binding margin on the left; the indents step dialogue, parentheticals
// and speaker cues in from the body margin the way a typed manuscript
// does.
const (
	letterWidthPt  = 612.0
	letterHeightPt = 792.0

	marginLeft   = 108.0
	marginRight  = 72.0
	marginTop    = 72.0
	marginBottom = 72.0

	dialogueIndentPt = 72.0
	parenIndentPt    = 115.0
	speakerIndentPt  = 158.0
)

// PDFOptions controls PDF export behavior.
// Units are points (pt). The built-in Courier face keeps text vector and
// portable without font embedding; at size s every glyph advances 0.6*s,
// which is what the column math below relies on.
//
//nolint:revive // keep options grouped and explicit for clarity
type PDFOptions struct {
	PageWidth   float64 // 0 uses the manifest build setting, then US Letter
	PageHeight  float64 // 0 uses the manifest build setting, then US Letter
	FontSize    float64 // body size in points; 0 means 12
	LineNumbers bool    // print source line numbers in the left margin
	Title       string  // empty uses the script title, then the project name
}

// ExportScriptPDF typesets the narrative view of a registered script as a
// screenplay PDF placed at outPath. Logic constructs appear only as the
// elision markers the narrative view carries.
func ExportScriptPDF(ph *storage.ProjectHandle, rel, outPath string, opt PDFOptions) error {
	rel = effectiveRel(rel)
	s, err := loadScript(ph, rel)
	if err != nil {
		return err
	}
	view := views.Narrative(s)

	pageW := opt.PageWidth
	if pageW <= 0 {
		pageW = ph.Project.Build.PageWidth
	}
	if pageW <= 0 {
		pageW = letterWidthPt
	}
	pageH := opt.PageHeight
	if pageH <= 0 {
		pageH = ph.Project.Build.PageHeight
	}
	if pageH <= 0 {
		pageH = letterHeightPt
	}
	fontSize := opt.FontSize
	if fontSize <= 0 {
		fontSize = 12
	}
	title := opt.Title
	if title == "" {
		if sc, ok := ph.Project.ScriptByPath(rel); ok && sc.Title != "" {
			title = sc.Title
		}
	}
	if title == "" {
		title = ph.Project.Name
	}
	author := ph.Project.Metadata.Author

	// Monospace column widths for the word wrapper. Courier advances
	// 0.6*size per glyph regardless of style.
	charW := fontSize * 0.6
	lineH := fontSize
	bodyW := pageW - marginLeft - marginRight
	cols := func(w float64) int {
		n := int(w / charW)
		if n < 1 {
			n = 1
		}
		return n
	}
	actionCols := cols(bodyW)
	dialogueCols := cols(bodyW - dialogueIndentPt - 108)
	parenCols := cols(bodyW - parenIndentPt - 144)

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: pageW, Ht: pageH},
		// Orientation follows from the size
		OrientationStr: "",
	})
	pdf.SetTitle(title, false)
	if author != "" {
		pdf.SetAuthor(author, false)
	}
	pdf.SetFont("Courier", "", fontSize)

	y := 0.0
	maxY := pageH - marginBottom
	pageLines := int((pageH - marginTop - marginBottom) / lineH)

	newPage := func() {
		pdf.AddPageFormat("", gofpdf.SizeType{Wd: pageW, Ht: pageH})
		y = marginTop + lineH
	}
	// ensure keeps the next n lines on one page when they fit on any page
	ensure := func(n int) {
		if n > pageLines {
			n = 1
		}
		if y+float64(n-1)*lineH > maxY {
			newPage()
		}
	}
	newPage()

	lineNo := func(line int) {
		if !opt.LineNumbers || line <= 0 {
			return
		}
		num := strconv.Itoa(line)
		pdf.SetFont("Courier", "", fontSize*0.66)
		pdf.SetTextColor(128, 128, 128)
		wd := pdf.GetStringWidth(num)
		pdf.Text(marginLeft-18-wd, y, num)
		pdf.SetTextColor(0, 0, 0)
		pdf.SetFont("Courier", "", fontSize)
	}

	var render func(items []views.NarrativeItem)
	render = func(items []views.NarrativeItem) {
		for _, it := range items {
			switch it.Kind {
			case views.NarrativeScene:
				// never strand a heading at the bottom of a page
				ensure(3)
				lineNo(it.Line)
				pdf.SetFont("Courier", "B", fontSize)
				pdf.Text(marginLeft, y, strings.ToUpper(it.Text))
				pdf.SetFont("Courier", "", fontSize)
				y += 2 * lineH
			case views.NarrativeAction:
				for i, ln := range textlayout.WrapColumns(it.Text, actionCols) {
					ensure(1)
					if i == 0 {
						lineNo(it.Line)
					}
					pdf.Text(marginLeft, y, ln)
					y += lineH
				}
				y += lineH
			case views.NarrativeDialogue:
				var paren []string
				if it.Parenthetical != "" {
					paren = textlayout.WrapColumns("("+it.Parenthetical+")", parenCols)
				}
				var body []string
				for _, dl := range it.Lines {
					body = append(body, textlayout.WrapColumns(dl, dialogueCols)...)
				}
				ensure(1 + len(paren) + len(body))
				lineNo(it.Line)
				pdf.Text(marginLeft+speakerIndentPt, y, strings.ToUpper(it.Speaker))
				y += lineH
				for _, ln := range paren {
					ensure(1)
					pdf.Text(marginLeft+parenIndentPt, y, ln)
					y += lineH
				}
				for _, ln := range body {
					ensure(1)
					pdf.Text(marginLeft+dialogueIndentPt, y, ln)
					y += lineH
				}
				y += lineH
			case views.NarrativeAsset:
				ensure(2)
				lineNo(it.Line)
				pdf.Text(marginLeft, y, fmt.Sprintf("[%s: %s]", it.Detail, it.Text))
				y += 2 * lineH
			case views.NarrativeChoice:
				ensure(2)
				lineNo(it.Line)
				pdf.SetFont("Courier", "I", fontSize)
				pdf.Text(marginLeft+dialogueIndentPt, y, it.Text)
				pdf.SetFont("Courier", "", fontSize)
				y += lineH
				render(it.Children)
				y += lineH
			case views.NarrativeOption:
				label := "+ [" + it.Text + "]"
				if it.Detail != "" {
					label += " " + it.Detail
				}
				for i, ln := range textlayout.WrapColumns(label, dialogueCols) {
					ensure(1)
					if i == 0 {
						lineNo(it.Line)
					}
					pdf.Text(marginLeft+dialogueIndentPt, y, ln)
					y += lineH
				}
				render(it.Children)
			case views.NarrativeLogicElided:
				ensure(1)
				lineNo(it.Line)
				pdf.SetTextColor(150, 150, 150)
				pdf.Text(marginLeft+dialogueIndentPt, y, "...")
				pdf.SetTextColor(0, 0, 0)
				y += lineH
				render(it.Children)
			}
		}
	}
	render(view.Items)

	out, err := resolveOut(ph, outPath)
	if err != nil {
		return err
	}
	if err := pdf.OutputFileAndClose(out); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// effectiveRel substitutes the conventional main script when no script
// path was given.
func effectiveRel(rel string) string {
	if strings.TrimSpace(rel) == "" {
		return storage.DefaultScriptFileName
	}
	return rel
}

// loadScript reads and compiles a registered script. Resolver diagnostics
// do not block an export: the tree still projects into views and plotting
// a draft with unresolved jumps is precisely what the graph exports are
// for.
func loadScript(ph *storage.ProjectHandle, rel string) (*ast.Script, error) {
	if ph == nil {
		return nil, fmt.Errorf("project handle is nil")
	}
	rel = effectiveRel(rel)
	src, err := storage.ReadScriptAt(ph, rel)
	if err != nil {
		return nil, fmt.Errorf("read script %s: %w", rel, err)
	}
	if strings.TrimSpace(src) == "" {
		return nil, fmt.Errorf("script %s is empty or missing", rel)
	}
	s, cerr := compile.Source(src)
	if s == nil {
		return nil, fmt.Errorf("compile %s: %w", rel, cerr)
	}
	return s, nil
}

// resolveOut places relative outputs under the project exports folder and
// ensures the parent directory exists.
func resolveOut(ph *storage.ProjectHandle, outPath string) (string, error) {
	if !filepath.IsAbs(outPath) {
		outPath = filepath.Join(ph.Root, storage.ExportsDirName, outPath)
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", fmt.Errorf("ensure out dir: %w", err)
	}
	return outPath, nil
}
