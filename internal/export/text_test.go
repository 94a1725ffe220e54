/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mikezilla14/fountain-flow/internal/compile"
	"github.com/mikezilla14/fountain-flow/internal/views"
)

func TestExportScriptText_WrapsAtColumn(t *testing.T) {
	ph := testHandle(t, vaultScript)
	out := filepath.Join(ph.Root, "exports", "pilot.txt")
	if err := ExportScriptText(ph, "main.fflow", out, TextOptions{Width: 40}); err != nil {
		t.Fatalf("export: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read text: %v", err)
	}
	txt := string(data)
	for i, ln := range strings.Split(txt, "\n") {
		if len(ln) > 40 {
			t.Fatalf("line %d exceeds column 40 (%d chars): %q", i+1, len(ln), ln)
		}
	}
	if !strings.Contains(txt, "INT. VAULT - NIGHT") {
		t.Fatalf("scene heading missing:\n%s", txt)
	}
	if !strings.Contains(txt, "MIRA") {
		t.Fatalf("speaker missing:\n%s", txt)
	}
	// the longest action sentence cannot fit in 40 columns unwrapped
	if strings.Contains(txt, "The heavy door stands ajar, its hinges caked") {
		t.Fatalf("action not wrapped:\n%s", txt)
	}
}

func TestExportScriptText_DefaultWidthFromManifest(t *testing.T) {
	ph := testHandle(t, vaultScript)
	ph.Project.Build.TextWidth = 48
	out := filepath.Join(ph.Root, "exports", "pilot.txt")
	if err := ExportScriptText(ph, "main.fflow", out, TextOptions{}); err != nil {
		t.Fatalf("export: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read text: %v", err)
	}
	for i, ln := range strings.Split(string(data), "\n") {
		if len(ln) > 48 {
			t.Fatalf("line %d exceeds column 48: %q", i+1, ln)
		}
	}
}

func TestRenderNarrativeText_HidesLogic(t *testing.T) {
	s, err := compile.Source(vaultScript)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	txt := string(renderNarrativeText(views.Narrative(s), 60))
	if strings.Contains(txt, "GOLD") {
		t.Fatalf("state leaked into reading copy:\n%s", txt)
	}
	if !strings.Contains(txt, "...") {
		t.Fatalf("elision marker missing:\n%s", txt)
	}
	if !strings.Contains(txt, "+ [Search the shelves]") {
		t.Fatalf("choice option missing:\n%s", txt)
	}
	if !strings.HasSuffix(txt, "\n") || strings.HasSuffix(txt, "\n\n") {
		t.Fatalf("want single trailing newline, got %q", txt[len(txt)-3:])
	}
}
