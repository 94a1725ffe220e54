/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0
 */

package export

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/mikezilla14/fountain-flow/internal/storage"
)

// PresetName represents a named export preset.
type PresetName string

const (
	// PresetManuscript produces the reading deliverables: pdf, text, epub.
	PresetManuscript PresetName = "manuscript"
	// PresetProof adds the graph plots and margin line numbers for review.
	PresetProof PresetName = "proof"
)

// BatchOptions controls batch export across formats and scripts.
//
// Path semantics:
//   - If OutDir is empty or relative, it is created under <project>/exports/<preset>/.
//   - Outputs land in per-format subfolders named <stem>.<ext>, where stem
//     is the script file name without its extension.
//
//nolint:revive // keep fields explicit for clarity
type BatchOptions struct {
	Preset      PresetName
	Formats     []string // allowed: pdf, text, dot, svg, png, epub, bundle; empty means preset defaults
	Scripts     []string // manifest-relative paths; empty means every registered script
	DPIOverride int      // when > 0 overrides the raster DPI
	LineNumbers *bool    // when set, overrides the preset default for PDF margin numbers
	TextWidth   int      // when > 0 overrides the wrap column for text and bundles
	OutDir      string   // base directory for outputs (created per preset if relative)
}

// BatchExport runs exports according to the given preset.
func BatchExport(ph *storage.ProjectHandle, opt BatchOptions) error {
	if ph == nil {
		return fmt.Errorf("project handle is nil")
	}

	scripts := opt.Scripts
	if len(scripts) == 0 {
		for _, sc := range ph.Project.Scripts {
			scripts = append(scripts, sc.Path)
		}
	}
	if len(scripts) == 0 {
		scripts = []string{storage.DefaultScriptFileName}
	}

	formats := opt.Formats
	if len(formats) == 0 {
		formats = presetDefaultFormats(opt.Preset)
	}
	for i := range formats {
		formats[i] = strings.ToLower(strings.TrimSpace(formats[i]))
	}

	baseOut := opt.OutDir
	if baseOut == "" {
		baseOut = string(opt.Preset)
	}
	if !filepath.IsAbs(baseOut) {
		baseOut = filepath.Join(ph.Root, storage.ExportsDirName, baseOut)
	}

	lineNumbers := presetLineNumbers(opt.Preset)
	if opt.LineNumbers != nil {
		lineNumbers = *opt.LineNumbers
	}

	for _, rel := range scripts {
		stem := scriptStem(rel)
		for _, f := range formats {
			switch f {
			case "pdf":
				out := filepath.Join(baseOut, "pdf", stem+".pdf")
				if err := ExportScriptPDF(ph, rel, out, PDFOptions{LineNumbers: lineNumbers}); err != nil {
					return fmt.Errorf("pdf %s: %w", rel, err)
				}
			case "text":
				out := filepath.Join(baseOut, "text", stem+".txt")
				if err := ExportScriptText(ph, rel, out, TextOptions{Width: opt.TextWidth}); err != nil {
					return fmt.Errorf("text %s: %w", rel, err)
				}
			case "dot":
				out := filepath.Join(baseOut, "dot", stem+".dot")
				if err := ExportScriptDOT(ph, rel, out, DOTOptions{}); err != nil {
					return fmt.Errorf("dot %s: %w", rel, err)
				}
			case "svg":
				out := filepath.Join(baseOut, "svg", stem+".svg")
				if err := ExportScriptSVG(ph, rel, out, SVGOptions{}); err != nil {
					return fmt.Errorf("svg %s: %w", rel, err)
				}
			case "png":
				out := filepath.Join(baseOut, "png", stem+".png")
				po := PNGOptions{}
				if opt.DPIOverride > 0 {
					po.DPI = opt.DPIOverride
				}
				if err := ExportScriptPNG(ph, rel, out, po); err != nil {
					return fmt.Errorf("png %s: %w", rel, err)
				}
			case "epub":
				out := filepath.Join(baseOut, "epub", stem+".epub")
				if err := ExportScriptEPUB(ph, rel, out, EPUBOptions{}); err != nil {
					return fmt.Errorf("epub %s: %w", rel, err)
				}
			case "bundle":
				out := filepath.Join(baseOut, "bundle", stem+".zip")
				if err := ExportScriptBundle(ph, rel, out, BundleOptions{TextWidth: opt.TextWidth}); err != nil {
					return fmt.Errorf("bundle %s: %w", rel, err)
				}
			default:
				return fmt.Errorf("unknown format: %s", f)
			}
		}
	}
	return nil
}

func presetDefaultFormats(p PresetName) []string {
	switch p {
	case PresetManuscript:
		return []string{"pdf", "text", "epub"}
	case PresetProof:
		return []string{"pdf", "text", "dot", "svg", "png"}
	default:
		return []string{"pdf"}
	}
}

// presetLineNumbers reports whether the preset prints margin line numbers
// in PDFs. Proof copies do, so notes can cite source lines.
func presetLineNumbers(p PresetName) bool {
	switch p {
	case PresetProof:
		return true
	default:
		return false
	}
}

// scriptStem turns a manifest-relative path like chapters/ch1.fflow into
// "ch1" for artifact naming.
func scriptStem(rel string) string {
	base := path.Base(filepath.ToSlash(strings.TrimSpace(rel)))
	stem := strings.TrimSuffix(base, path.Ext(base))
	if stem == "" || stem == "." || stem == "/" {
		return "script"
	}
	return stem
}
