/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"archive/zip"
	"io"
	"path/filepath"
	"strings"
	"testing"
)

func TestExportScriptBundle(t *testing.T) {
	ph := testHandle(t, vaultScript)
	out := filepath.Join(ph.Root, "exports", "pilot")
	if err := ExportScriptBundle(ph, "main.fflow", out, BundleOptions{Backends: []string{"renpy", "json"}}); err != nil {
		t.Fatalf("export bundle: %v", err)
	}

	// .zip extension is enforced
	rd, err := zip.OpenReader(out + ".zip")
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	defer func() { _ = rd.Close() }()

	want := map[string]bool{
		"bundle.xml":          false,
		"source/main.fflow":   false,
		"reading/main.txt":    false,
		"artifacts/main.json": false,
		"artifacts/main.rpy":  false,
	}
	for _, f := range rd.File {
		if _, ok := want[f.Name]; ok {
			want[f.Name] = true
		}
	}
	for name, ok := range want {
		if !ok {
			t.Fatalf("missing entry: %s", name)
		}
	}

	readEntry := func(name string) string {
		t.Helper()
		for _, f := range rd.File {
			if f.Name != name {
				continue
			}
			r, err := f.Open()
			if err != nil {
				t.Fatalf("open %s: %v", name, err)
			}
			data, err := io.ReadAll(r)
			_ = r.Close()
			if err != nil {
				t.Fatalf("read %s: %v", name, err)
			}
			return string(data)
		}
		t.Fatalf("entry %s not found", name)
		return ""
	}

	manifest := readEntry("bundle.xml")
	for _, wantSub := range []string{
		"<Title>Pilot</Title>",
		"<Series>Vault Stories</Series>",
		"<Script>main.fflow</Script>",
		"<Writer>A. Writer</Writer>",
		"<Artifact backend=\"json\"",
		"<Artifact backend=\"renpy\"",
	} {
		if !strings.Contains(manifest, wantSub) {
			t.Fatalf("manifest missing %q: %s", wantSub, manifest)
		}
	}

	if src := readEntry("source/main.fflow"); src != vaultScript {
		t.Fatalf("bundled source differs from the script on disk")
	}
	if reading := readEntry("reading/main.txt"); strings.Contains(reading, "GOLD") {
		t.Fatalf("reading copy leaked state:\n%s", reading)
	}
	if art := readEntry("artifacts/main.rpy"); !strings.Contains(art, "label") {
		t.Fatalf("renpy artifact looks wrong:\n%s", art)
	}
}

func TestExportScriptBundle_DefaultsToRegisteredBackends(t *testing.T) {
	ph := testHandle(t, vaultScript)
	ph.Project.Build.Backends = []string{"twee"}
	out := filepath.Join(ph.Root, "exports", "pilot.zip")
	if err := ExportScriptBundle(ph, "main.fflow", out, BundleOptions{}); err != nil {
		t.Fatalf("export bundle: %v", err)
	}
	rd, err := zip.OpenReader(out)
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	defer func() { _ = rd.Close() }()
	var foundTwee, foundOther bool
	for _, f := range rd.File {
		if f.Name == "artifacts/main.twee" {
			foundTwee = true
		}
		if strings.HasPrefix(f.Name, "artifacts/") && f.Name != "artifacts/main.twee" {
			foundOther = true
		}
	}
	if !foundTwee {
		t.Fatalf("twee artifact missing")
	}
	if foundOther {
		t.Fatalf("unexpected artifacts beyond the manifest build targets")
	}
}
