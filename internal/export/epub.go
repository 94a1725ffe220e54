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
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mikezilla14/fountain-flow/internal/storage"
	"github.com/mikezilla14/fountain-flow/internal/views"
)

// EPUBOptions controls EPUB export behavior. The output is a reflowable
// EPUB 3 with one XHTML chapter per scene.
//
//nolint:revive // clarity
type EPUBOptions struct {
	Title       string
	Author      string
	Language    string // e.g., "en"
	Publisher   string
	Description string
}

const epubCSS = "body { font-family: \"Courier New\", Courier, monospace; margin: 1em 8%; }\n" +
	"h2.scene { font-weight: bold; text-transform: uppercase; margin: 2em 0 1em; }\n" +
	"p.action { margin: 0 0 1em; }\n" +
	"p.asset { color: #555; margin: 0 0 1em; }\n" +
	".dialogue-block { margin: 0 0 1em; }\n" +
	"p.speaker { text-align: center; text-transform: uppercase; margin: 0; }\n" +
	"p.paren { text-align: center; font-style: italic; margin: 0; }\n" +
	"p.dialogue { margin: 0 15%; }\n" +
	".choice { margin: 0 10% 1em; }\n" +
	"p.prompt { font-style: italic; margin: 0; }\n" +
	"p.option { margin: 0 0 0 1em; }\n" +
	"p.elided { color: #999; margin: 0 0 1em; }\n"

// ExportScriptEPUB packages the narrative view of a registered script as
// a reflowable EPUB 3 document at outPath.
func ExportScriptEPUB(ph *storage.ProjectHandle, rel, outPath string, opt EPUBOptions) error {
	rel = effectiveRel(rel)
	s, err := loadScript(ph, rel)
	if err != nil {
		return err
	}
	view := views.Narrative(s)

	// Metadata fallbacks from the manifest
	proj := ph.Project
	if opt.Language == "" {
		opt.Language = "en"
	}
	if opt.Title == "" {
		if sc, ok := proj.ScriptByPath(rel); ok && sc.Title != "" {
			opt.Title = sc.Title
		}
	}
	if opt.Title == "" {
		opt.Title = proj.Name
	}
	if opt.Author == "" {
		opt.Author = proj.Metadata.Author
	}
	if opt.Description == "" {
		opt.Description = proj.Metadata.Notes
	}

	out, err := resolveOut(ph, outPath)
	if err != nil {
		return err
	}
	if !strings.HasSuffix(strings.ToLower(out), ".epub") {
		out += ".epub"
	}

	zw, f, err := createZip(out)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	// 1) mimetype first, uncompressed
	if err := addStoredZipFile(zw, "mimetype", []byte("application/epub+zip")); err != nil {
		_ = zw.Close()
		return fmt.Errorf("write mimetype: %w", err)
	}

	// 2) META-INF/container.xml
	containerXML := "" +
		"<?xml version=\"1.0\" encoding=\"utf-8\"?>\n" +
		"<container version=\"1.0\" xmlns=\"urn:oasis:names:tc:opendocument:xmlns:container\">\n" +
		"  <rootfiles>\n" +
		"    <rootfile full-path=\"OEBPS/content.opf\" media-type=\"application/oebps-package+xml\"/>\n" +
		"  </rootfiles>\n" +
		"</container>\n"
	if err := addZipFile(zw, "META-INF/container.xml", []byte(containerXML)); err != nil {
		_ = zw.Close()
		return fmt.Errorf("write container.xml: %w", err)
	}

	if err := addZipFile(zw, "OEBPS/styles/epub.css", []byte(epubCSS)); err != nil {
		_ = zw.Close()
		return fmt.Errorf("write css: %w", err)
	}

	// 3) one chapter per scene
	chapters := chapterize(view)
	pad := 1
	if n := len(chapters); n >= 1000 {
		pad = 4
	} else if n >= 100 {
		pad = 3
	} else if n >= 10 {
		pad = 2
	}

	navBuf := &bytes.Buffer{}
	navBuf.WriteString("<?xml version=\"1.0\" encoding=\"utf-8\"?>\n")
	navBuf.WriteString("<html xmlns=\"http://www.w3.org/1999/xhtml\" xmlns:epub=\"http://www.idpf.org/2007/ops\">\n<head><title>Table of Contents</title></head>\n<body>\n")
	navBuf.WriteString("<nav epub:type=\"toc\" id=\"toc\"><ol>\n")

	chIDs := make([]string, 0, len(chapters))
	for i, ch := range chapters {
		name := fmt.Sprintf("scene-%0*d.xhtml", pad, i+1)
		data, rerr := renderChapterXHTML(ch)
		if rerr != nil {
			_ = zw.Close()
			return rerr
		}
		if err := addZipFile(zw, "OEBPS/"+name, data); err != nil {
			_ = zw.Close()
			return fmt.Errorf("write chapter xhtml: %w", err)
		}
		chIDs = append(chIDs, fmt.Sprintf("ch-%0*d", pad, i+1))
		navBuf.WriteString(fmt.Sprintf("<li><a href=\"%s\">%s</a></li>\n", name, escText(ch.Title)))
	}
	navBuf.WriteString("</ol></nav>\n</body>\n</html>\n")
	if err := addZipFile(zw, "OEBPS/nav.xhtml", navBuf.Bytes()); err != nil {
		_ = zw.Close()
		return fmt.Errorf("write nav.xhtml: %w", err)
	}

	// 4) content.opf
	mod := time.Now().UTC().Format("2006-01-02T15:04:05Z")
	uid := "urn:uuid:" + uuid.NewString()

	manifest := &bytes.Buffer{}
	manifest.WriteString("<?xml version=\"1.0\" encoding=\"utf-8\"?>\n")
	manifest.WriteString("<package version=\"3.0\" unique-identifier=\"pub-id\" xmlns=\"http://www.idpf.org/2007/opf\">\n")
	manifest.WriteString("  <metadata xmlns:dc=\"http://purl.org/dc/elements/1.1/\" xmlns:opf=\"http://www.idpf.org/2007/opf\">\n")
	manifest.WriteString(fmt.Sprintf("    <dc:identifier id=\"pub-id\">%s</dc:identifier>\n", uid))
	manifest.WriteString(fmt.Sprintf("    <dc:title>%s</dc:title>\n", xmlEsc(opt.Title)))
	manifest.WriteString(fmt.Sprintf("    <dc:language>%s</dc:language>\n", xmlEsc(opt.Language)))
	if strings.TrimSpace(opt.Author) != "" {
		manifest.WriteString(fmt.Sprintf("    <dc:creator>%s</dc:creator>\n", xmlEsc(opt.Author)))
	}
	if strings.TrimSpace(opt.Publisher) != "" {
		manifest.WriteString(fmt.Sprintf("    <dc:publisher>%s</dc:publisher>\n", xmlEsc(opt.Publisher)))
	}
	if strings.TrimSpace(opt.Description) != "" {
		manifest.WriteString(fmt.Sprintf("    <dc:description>%s</dc:description>\n", xmlEsc(opt.Description)))
	}
	manifest.WriteString(fmt.Sprintf("    <meta property=\"dcterms:modified\">%s</meta>\n", mod))
	manifest.WriteString("  </metadata>\n")
	manifest.WriteString("  <manifest>\n")
	manifest.WriteString("    <item id=\"nav\" href=\"nav.xhtml\" media-type=\"application/xhtml+xml\" properties=\"nav\"/>\n")
	manifest.WriteString("    <item id=\"css\" href=\"styles/epub.css\" media-type=\"text/css\"/>\n")
	for i, id := range chIDs {
		manifest.WriteString(fmt.Sprintf("    <item id=\"%s\" href=\"scene-%0*d.xhtml\" media-type=\"application/xhtml+xml\"/>\n", id, pad, i+1))
	}
	manifest.WriteString("  </manifest>\n")
	manifest.WriteString("  <spine>\n")
	for _, id := range chIDs {
		manifest.WriteString(fmt.Sprintf("    <itemref idref=\"%s\"/>\n", id))
	}
	manifest.WriteString("  </spine>\n")
	manifest.WriteString("</package>\n")
	if err := addZipFile(zw, "OEBPS/content.opf", manifest.Bytes()); err != nil {
		_ = zw.Close()
		return fmt.Errorf("write content.opf: %w", err)
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("close zip: %w", err)
	}
	return nil
}

type epubChapter struct {
	Title string
	Items []views.NarrativeItem
}

// chapterize splits a narrative view at scene boundaries. Content before
// the first heading becomes its own opening chapter.
func chapterize(view *views.NarrativeView) []epubChapter {
	var chapters []epubChapter
	cur := epubChapter{Title: "Opening"}
	flush := func() {
		if len(cur.Items) > 0 {
			chapters = append(chapters, cur)
		}
	}
	for _, it := range view.Items {
		if it.Kind == views.NarrativeScene {
			flush()
			cur = epubChapter{Title: strings.ToUpper(it.Text), Items: []views.NarrativeItem{it}}
			continue
		}
		cur.Items = append(cur.Items, it)
	}
	flush()
	if len(chapters) == 0 {
		chapters = []epubChapter{{Title: "Opening"}}
	}
	return chapters
}

func renderChapterXHTML(ch epubChapter) ([]byte, error) {
	var buf bytes.Buffer
	var werr error
	wf := func(format string, args ...any) {
		if werr != nil {
			return
		}
		_, werr = fmt.Fprintf(&buf, format, args...)
	}

	wf("<?xml version=\"1.0\" encoding=\"utf-8\"?>\n")
	wf("<html xmlns=\"http://www.w3.org/1999/xhtml\">\n<head>\n")
	wf("<meta charset=\"utf-8\"/>\n")
	wf("<title>%s</title>\n", escText(ch.Title))
	wf("<link rel=\"stylesheet\" type=\"text/css\" href=\"styles/epub.css\"/>\n")
	wf("</head>\n<body>\n")

	var render func(items []views.NarrativeItem)
	render = func(items []views.NarrativeItem) {
		for _, it := range items {
			switch it.Kind {
			case views.NarrativeScene:
				wf("<h2 class=\"scene\">%s</h2>\n", escText(it.Text))
			case views.NarrativeAction:
				wf("<p class=\"action\">%s</p>\n", escText(it.Text))
			case views.NarrativeDialogue:
				wf("<div class=\"dialogue-block\">\n")
				wf("<p class=\"speaker\">%s</p>\n", escText(it.Speaker))
				if it.Parenthetical != "" {
					wf("<p class=\"paren\">(%s)</p>\n", escText(it.Parenthetical))
				}
				for _, dl := range it.Lines {
					wf("<p class=\"dialogue\">%s</p>\n", escText(dl))
				}
				wf("</div>\n")
			case views.NarrativeAsset:
				wf("<p class=\"asset\">[%s: %s]</p>\n", escText(it.Detail), escText(it.Text))
			case views.NarrativeChoice:
				wf("<div class=\"choice\">\n")
				if it.Text != "" {
					wf("<p class=\"prompt\">%s</p>\n", escText(it.Text))
				}
				render(it.Children)
				wf("</div>\n")
			case views.NarrativeOption:
				label := "+ [" + it.Text + "]"
				if it.Detail != "" {
					label += " " + it.Detail
				}
				wf("<p class=\"option\">%s</p>\n", escText(label))
				render(it.Children)
			case views.NarrativeLogicElided:
				wf("<p class=\"elided\">...</p>\n")
				render(it.Children)
			}
		}
	}
	render(ch.Items)

	wf("</body>\n</html>\n")
	if werr != nil {
		return nil, fmt.Errorf("build chapter xhtml: %w", werr)
	}
	return buf.Bytes(), nil
}

// addStoredZipFile writes an entry with STORE method (no compression), required for EPUB mimetype.
func addStoredZipFile(zw *zip.Writer, name string, data []byte) error {
	hdr := &zip.FileHeader{Name: name, Method: zip.Store}
	// Set modification time without using deprecated SetModTime
	hdr.Modified = time.Now()
	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
