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
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mikezilla14/fountain-flow/internal/compile"
	"github.com/mikezilla14/fountain-flow/internal/storage"
	"github.com/mikezilla14/fountain-flow/internal/transpile"
	"github.com/mikezilla14/fountain-flow/internal/version"
	"github.com/mikezilla14/fountain-flow/internal/views"
)

// BundleOptions controls the distribution bundle export.
//
//nolint:revive // clarity
type BundleOptions struct {
	Backends  []string // empty means the manifest build targets, then every registered backend
	TextWidth int      // wrap column for the bundled reading copy; 0 follows the text export defaults
}

// ExportScriptBundle packages a script for hand-off: the source, the
// transpiled artifact for every requested backend, a plain-text reading
// copy and an XML manifest, all in one ZIP archive.
func ExportScriptBundle(ph *storage.ProjectHandle, rel, outPath string, opt BundleOptions) error {
	rel = effectiveRel(rel)
	s, err := loadScript(ph, rel)
	if err != nil {
		return err
	}
	src, err := storage.ReadScriptAt(ph, rel)
	if err != nil {
		return fmt.Errorf("read script %s: %w", rel, err)
	}

	backends := opt.Backends
	if len(backends) == 0 {
		backends = ph.Project.Build.Backends
	}
	if len(backends) == 0 {
		backends = transpile.Names()
	}
	norm := make([]string, 0, len(backends))
	for _, b := range backends {
		b = strings.ToLower(strings.TrimSpace(b))
		if b != "" {
			norm = append(norm, b)
		}
	}
	arts, err := compile.RenderAll(s, norm)
	if err != nil {
		return fmt.Errorf("render artifacts: %w", err)
	}

	width := opt.TextWidth
	if width <= 0 {
		width = ph.Project.Build.TextWidth
	}
	if width <= 0 {
		width = defaultTextWidth
	}
	reading := renderNarrativeText(views.Narrative(s), width)

	out, err := resolveOut(ph, outPath)
	if err != nil {
		return err
	}
	if !strings.HasSuffix(strings.ToLower(out), ".zip") {
		out += ".zip"
	}

	zw, f, err := createZip(out)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	stem := scriptStem(rel)
	names := make([]string, 0, len(arts))
	for n := range arts {
		names = append(names, n)
	}
	sort.Strings(names)

	manifest, merr := buildBundleXML(ph, rel, names, arts)
	if merr != nil {
		return fmt.Errorf("build manifest: %w", merr)
	}
	if err := addZipFile(zw, "bundle.xml", []byte(manifest)); err != nil {
		return fmt.Errorf("zip add manifest: %w", err)
	}
	if err := addZipFile(zw, "source/"+stem+".fflow", []byte(src)); err != nil {
		return fmt.Errorf("zip add source: %w", err)
	}
	if err := addZipFile(zw, "reading/"+stem+".txt", reading); err != nil {
		return fmt.Errorf("zip add reading copy: %w", err)
	}
	for _, n := range names {
		if err := addZipFile(zw, "artifacts/"+stem+artifactExt(n), arts[n]); err != nil {
			return fmt.Errorf("zip add artifact %s: %w", n, err)
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("close zip: %w", err)
	}
	return nil
}

// artifactExt maps a backend name to the file extension its engine
// expects.
func artifactExt(backend string) string {
	switch backend {
	case "renpy":
		return ".rpy"
	case "twee":
		return ".twee"
	case "json":
		return ".json"
	case "fflow":
		return ".fflow"
	}
	return "." + backend
}

func createZip(outPath string) (*zip.Writer, *os.File, error) {
	// Ensure directory exists
	dir := filepath.Dir(outPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("ensure out dir: %w", err)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return nil, nil, fmt.Errorf("create archive: %w", err)
	}
	return zip.NewWriter(f), f, nil
}

func addZipFile(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func buildBundleXML(ph *storage.ProjectHandle, rel string, names []string, arts map[string][]byte) (string, error) {
	proj := ph.Project
	title := proj.Name
	if sc, ok := proj.ScriptByPath(rel); ok && sc.Title != "" {
		title = sc.Title
	}
	series := proj.Metadata.Series
	if series == "" {
		series = proj.Name
	}
	writer := proj.Metadata.Author
	summary := proj.Metadata.Notes

	buf := &bytes.Buffer{}
	var werr error
	wf := func(format string, args ...any) {
		if werr != nil {
			return
		}
		_, werr = fmt.Fprintf(buf, format, args...)
	}
	wf("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	wf("<FlowBundle>\n")
	wf("  <Title>%s</Title>\n", xmlEsc(title))
	wf("  <Series>%s</Series>\n", xmlEsc(series))
	wf("  <Script>%s</Script>\n", xmlEsc(rel))
	if writer != "" {
		wf("  <Writer>%s</Writer>\n", xmlEsc(writer))
	}
	if summary != "" {
		wf("  <Summary>%s</Summary>\n", xmlEsc(summary))
	}
	wf("  <Generator>fountain-flow %s</Generator>\n", xmlEsc(version.Version))
	wf("  <Artifacts>\n")
	for _, n := range names {
		wf("    <Artifact backend=\"%s\" size=\"%d\"/>\n", xmlEsc(n), len(arts[n]))
	}
	wf("  </Artifacts>\n")
	wf("</FlowBundle>\n")
	if werr != nil {
		return "", fmt.Errorf("build xml: %w", werr)
	}
	return buf.String(), nil
}

func xmlEsc(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '&':
			out = append(out, '&', 'a', 'm', 'p', ';')
		case '<':
			out = append(out, '&', 'l', 't', ';')
		case '>':
			out = append(out, '&', 'g', 't', ';')
		case '"':
			out = append(out, '&', 'q', 'u', 'o', 't', ';')
		case '\'':
			out = append(out, '&', 'a', 'p', 'o', 's', ';')
		default:
			out = append(out, s[i])
		}
	}
	return string(out)
}
