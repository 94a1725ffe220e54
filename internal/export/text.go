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

	"github.com/mikezilla14/fountain-flow/internal/storage"
	"github.com/mikezilla14/fountain-flow/internal/textlayout"
	"github.com/mikezilla14/fountain-flow/internal/views"
)

const (
	defaultTextWidth = 60
	minTextWidth     = 24
)

// TextOptions controls the plain-text export.
type TextOptions struct {
	Width int // wrap column; 0 uses the manifest build setting, then 60
}

// ExportScriptText renders the narrative view of a registered script as a
// plain-text reading copy wrapped at the configured column.
func ExportScriptText(ph *storage.ProjectHandle, rel, outPath string, opt TextOptions) error {
	rel = effectiveRel(rel)
	s, err := loadScript(ph, rel)
	if err != nil {
		return err
	}
	width := opt.Width
	if width <= 0 {
		width = ph.Project.Build.TextWidth
	}
	if width <= 0 {
		width = defaultTextWidth
	}
	data := renderNarrativeText(views.Narrative(s), width)
	out, err := resolveOut(ph, outPath)
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("write text: %w", err)
	}
	return nil
}

// renderNarrativeText typesets a narrative view at the given column width.
// Scene headings stay flush left; dialogue blocks step in the way a typed
// manuscript would. Also used for the reading copy inside bundles.
func renderNarrativeText(view *views.NarrativeView, width int) []byte {
	if width < minTextWidth {
		width = minTextWidth
	}
	var b bytes.Buffer

	speakerIn := width / 3
	parenIn := width / 4
	dialogueIn := width / 6

	writeBlock := func(indent int, lines []string) {
		pad := strings.Repeat(" ", indent)
		for _, ln := range lines {
			if ln == "" {
				b.WriteByte('\n')
				continue
			}
			b.WriteString(pad)
			b.WriteString(ln)
			b.WriteByte('\n')
		}
	}

	var render func(items []views.NarrativeItem)
	render = func(items []views.NarrativeItem) {
		for _, it := range items {
			switch it.Kind {
			case views.NarrativeScene:
				writeBlock(0, []string{strings.ToUpper(it.Text), ""})
			case views.NarrativeAction:
				writeBlock(0, append(textlayout.WrapColumns(it.Text, width), ""))
			case views.NarrativeDialogue:
				writeBlock(speakerIn, []string{strings.ToUpper(it.Speaker)})
				if it.Parenthetical != "" {
					writeBlock(parenIn, textlayout.WrapColumns("("+it.Parenthetical+")", width-2*parenIn))
				}
				for _, dl := range it.Lines {
					writeBlock(dialogueIn, textlayout.WrapColumns(dl, width-2*dialogueIn))
				}
				b.WriteByte('\n')
			case views.NarrativeAsset:
				writeBlock(0, []string{fmt.Sprintf("[%s: %s]", it.Detail, it.Text), ""})
			case views.NarrativeChoice:
				writeBlock(dialogueIn, textlayout.WrapColumns(it.Text, width-2*dialogueIn))
				render(it.Children)
				b.WriteByte('\n')
			case views.NarrativeOption:
				label := "+ [" + it.Text + "]"
				if it.Detail != "" {
					label += " " + it.Detail
				}
				writeBlock(dialogueIn, textlayout.WrapColumns(label, width-2*dialogueIn))
				render(it.Children)
			case views.NarrativeLogicElided:
				writeBlock(dialogueIn, []string{"..."})
				render(it.Children)
			}
		}
	}
	render(view.Items)

	out := bytes.TrimRight(b.Bytes(), "\n")
	out = append(out, '\n')
	return out
}
