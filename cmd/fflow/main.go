/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Command fflow is the Fountain-Flow compiler front end. It compiles .fflow
// sources into engine artifacts, manages project directories, and talks to
// the optional story registry.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mikezilla14/fountain-flow/internal/backend"
	"github.com/mikezilla14/fountain-flow/internal/compile"
	"github.com/mikezilla14/fountain-flow/internal/config"
	"github.com/mikezilla14/fountain-flow/internal/crash"
	"github.com/mikezilla14/fountain-flow/internal/domain"
	"github.com/mikezilla14/fountain-flow/internal/export"
	applog "github.com/mikezilla14/fountain-flow/internal/log"
	"github.com/mikezilla14/fountain-flow/internal/storage"
	"github.com/mikezilla14/fountain-flow/internal/telemetry"
	"github.com/mikezilla14/fountain-flow/internal/transpile"
	"github.com/mikezilla14/fountain-flow/internal/version"
)

func usage() {
	fmt.Println("fflow — Fountain-Flow screenplay compiler")
	fmt.Printf("Version: %s\n", version.String())
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  fflow version|-v|--version                 Show version")
	fmt.Println("  fflow compile <file.fflow> [flags]          Compile one source file")
	fmt.Println("      --to json,renpy,twee,fflow                 backends to render (default from config)")
	fmt.Println("      --out <dir>                                output directory (default: alongside the source)")
	fmt.Println("  fflow init <dir> <name>                     Create a new project at <dir>")
	fmt.Println("  fflow add <dir> <rel> [title]               Register a script with the project manifest")
	fmt.Println("  fflow export <format> <dir> [flags]         Export a project script")
	fmt.Println("      formats: pdf text dot svg png epub bundle batch")
	fmt.Println("      --script <rel>   manifest-relative script path")
	fmt.Println("      --out <path>     output file (defaults under <dir>/exports/)")
	fmt.Println("      --width <n>      wrap column for text/bundle")
	fmt.Println("      --line-numbers   margin line numbers (pdf)")
	fmt.Println("      --preset <name>  manuscript|proof (batch)")
	fmt.Println("  fflow index <dir>                           Build or refresh the project search index")
	fmt.Println("  fflow search <dir> <query>                  Full-text search over indexed scripts")
	fmt.Println("  fflow publish <file.fflow> [--name <name>]  Publish the JSON artifact to the registry")
	fmt.Println("  fflow serve                                 Run the story registry server")
}

func main() {
	applog.Init(applog.FromEnv())
	l := applog.WithComponent("cli")
	telemetry.InitDefault()
	var ph *storage.ProjectHandle
	defer func() { crash.Recover(ph) }()

	args := os.Args
	l.Debug("start", slog.Int("args", len(args)))
	if len(args) < 2 {
		usage()
		return
	}

	switch args[1] {
	case "version", "--version", "-v":
		fmt.Println(version.String())

	case "compile":
		cmdCompile(l, args[2:])

	case "init":
		if len(args) < 4 {
			fmt.Println("init requires <dir> and <name>")
			usage()
			os.Exit(2)
		}
		abs, _ := filepath.Abs(args[2])
		l.Info("init project", slog.String("root", abs), slog.String("name", args[3]))
		p := domain.Project{Name: args[3], Scripts: []domain.Script{}}
		h, err := storage.InitProject(abs, p)
		if err != nil {
			fail(l, "init failed", err)
		}
		ph = h
		fmt.Println("Created project at", abs)

	case "add":
		if len(args) < 4 {
			fmt.Println("add requires <dir> and <rel>")
			usage()
			os.Exit(2)
		}
		abs, _ := filepath.Abs(args[2])
		title := ""
		if len(args) > 4 {
			title = args[4]
		}
		h, err := storage.Open(abs)
		if err != nil {
			fail(l, "open failed", err)
		}
		ph = h
		sc, err := storage.RegisterScript(h, args[3], title)
		if err != nil {
			fail(l, "register failed", err)
		}
		fmt.Printf("Registered %s (id %s)\n", sc.Path, sc.ID)

	case "export":
		ph = cmdExport(l, args[2:])

	case "index":
		if len(args) < 3 {
			fmt.Println("index requires <dir>")
			usage()
			os.Exit(2)
		}
		abs, _ := filepath.Abs(args[2])
		h, err := storage.Open(abs)
		if err != nil {
			fail(l, "open failed", err)
		}
		ph = h
		if err := storage.UpdateIndex(context.Background(), h.Root, h.Project); err != nil {
			fail(l, "index failed", err)
		}
		fmt.Println("Index updated:", storage.IndexPath(h.Root))

	case "search":
		if len(args) < 4 {
			fmt.Println("search requires <dir> and <query>")
			usage()
			os.Exit(2)
		}
		abs, _ := filepath.Abs(args[2])
		query := strings.Join(args[3:], " ")
		results, err := storage.Search(context.Background(), abs, storage.SearchQuery{Text: query, Limit: 25})
		if err != nil {
			fail(l, "search failed", err)
		}
		for _, r := range results {
			loc := r.Script
			if r.Line > 0 {
				loc = fmt.Sprintf("%s:%d", r.Script, r.Line)
			}
			fmt.Printf("%-10s %-24s %s\n", r.Kind, loc, r.Snippet)
		}
		fmt.Printf("%d match(es)\n", len(results))

	case "publish":
		cmdPublish(l, args[2:])

	case "serve":
		l.Info("starting registry server")
		if err := backend.Start(); err != nil {
			fail(l, "server exited", err)
		}

	default:
		fmt.Println("unknown command:", args[1])
		usage()
		os.Exit(2)
	}
}

func fail(l *slog.Logger, msg string, err error) {
	l.Error(msg, slog.Any("err", err))
	fmt.Fprintln(os.Stderr, "Error:", err)
	os.Exit(1)
}

// artifactFileExt maps backend names to the extension their engines expect.
func artifactFileExt(name string) string {
	switch name {
	case "renpy":
		return ".rpy"
	case "twee":
		return ".twee"
	case "fflow":
		return ".fflow"
	default:
		return "." + name
	}
}

func cmdCompile(l *slog.Logger, args []string) {
	fs := flag.NewFlagSet("compile", flag.ExitOnError)
	to := fs.String("to", "", "comma-separated backend list")
	out := fs.String("out", "", "output directory")
	_ = fs.Parse(args)
	if fs.NArg() < 1 {
		fmt.Println("compile requires <file.fflow>")
		usage()
		os.Exit(2)
	}
	path := fs.Arg(0)

	cfg, _, _ := config.Load()
	backends := cfg.General.DefaultBackends
	if *to != "" {
		backends = nil
		for _, n := range strings.Split(*to, ",") {
			if n = strings.TrimSpace(n); n != "" {
				backends = append(backends, n)
			}
		}
	}
	for _, n := range backends {
		if _, ok := transpile.Lookup(n); !ok {
			fail(l, "unknown backend", fmt.Errorf("no backend named %q (have: %s)", n, strings.Join(transpile.Names(), ", ")))
		}
	}

	s, err := compile.File(path)
	if err != nil {
		fail(l, "compile failed", err)
	}
	arts, err := compile.RenderAll(s, backends)
	if err != nil {
		// Partial render: report per-backend failures but still write what
		// the remaining backends produced.
		fmt.Fprintln(os.Stderr, "Warning:", err)
	}

	dir := *out
	if dir == "" {
		dir = filepath.Dir(path)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		fail(l, "create output dir", err)
	}
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	for name, data := range arts {
		outPath := filepath.Join(dir, stem+artifactFileExt(name))
		if err := os.WriteFile(outPath, data, 0o644); err != nil {
			fail(l, "write artifact", err)
		}
		fmt.Println("Wrote", outPath)
	}
	telemetry.Event("compile", map[string]any{"backends": len(arts)})
	if len(arts) == 0 {
		os.Exit(1)
	}
}

func cmdExport(l *slog.Logger, args []string) *storage.ProjectHandle {
	if len(args) < 2 {
		fmt.Println("export requires <format> and <dir>")
		usage()
		os.Exit(2)
	}
	format := args[0]
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	script := fs.String("script", "", "manifest-relative script path")
	out := fs.String("out", "", "output file path")
	width := fs.Int("width", 0, "wrap column")
	lineNums := fs.Bool("line-numbers", false, "margin line numbers")
	preset := fs.String("preset", string(export.PresetManuscript), "batch preset")
	_ = fs.Parse(args[1:])
	if fs.NArg() < 1 {
		fmt.Println("export requires <dir>")
		usage()
		os.Exit(2)
	}
	abs, _ := filepath.Abs(fs.Arg(0))

	h, err := storage.Open(abs)
	if err != nil {
		fail(l, "open failed", err)
	}

	rel := *script
	outPath := *out
	if outPath == "" && format != "batch" {
		stem := strings.TrimSuffix(filepath.Base(rel), filepath.Ext(rel))
		if stem == "" || stem == "." {
			stem = strings.TrimSuffix(storage.DefaultScriptFileName, filepath.Ext(storage.DefaultScriptFileName))
		}
		outPath = filepath.Join(h.Root, storage.ExportsDirName, stem+"."+extForFormat(format))
	}

	switch format {
	case "pdf":
		err = export.ExportScriptPDF(h, rel, outPath, export.PDFOptions{LineNumbers: *lineNums})
	case "text":
		err = export.ExportScriptText(h, rel, outPath, export.TextOptions{Width: *width})
	case "dot":
		err = export.ExportScriptDOT(h, rel, outPath, export.DOTOptions{})
	case "svg":
		err = export.ExportScriptSVG(h, rel, outPath, export.SVGOptions{})
	case "png":
		err = export.ExportScriptPNG(h, rel, outPath, export.PNGOptions{})
	case "epub":
		err = export.ExportScriptEPUB(h, rel, outPath, export.EPUBOptions{Title: h.Project.Name, Author: h.Project.Metadata.Author})
	case "bundle":
		err = export.ExportScriptBundle(h, rel, outPath, export.BundleOptions{TextWidth: *width})
	case "batch":
		opt := export.BatchOptions{Preset: export.PresetName(*preset), TextWidth: *width}
		if rel != "" {
			opt.Scripts = []string{rel}
		}
		err = export.BatchExport(h, opt)
	default:
		fmt.Println("unknown export format:", format)
		usage()
		os.Exit(2)
	}
	if err != nil {
		fail(l, "export failed", err)
	}
	if format == "batch" {
		fmt.Println("Batch export complete under", filepath.Join(h.Root, storage.ExportsDirName))
	} else {
		fmt.Println("Wrote", outPath)
	}
	telemetry.Event("export", map[string]any{"format": format})
	return h
}

func extForFormat(format string) string {
	switch format {
	case "text":
		return "txt"
	case "bundle":
		return "zip"
	default:
		return format
	}
}

func cmdPublish(l *slog.Logger, args []string) {
	fs := flag.NewFlagSet("publish", flag.ExitOnError)
	name := fs.String("name", "", "story name (default: file stem)")
	stable := fs.String("stable-id", "", "stable story id from a previous publish")
	_ = fs.Parse(args)
	if fs.NArg() < 1 {
		fmt.Println("publish requires <file.fflow>")
		usage()
		os.Exit(2)
	}
	path := fs.Arg(0)

	s, err := compile.File(path)
	if err != nil {
		fail(l, "compile failed", err)
	}
	artifact, err := transpile.Render("json", s)
	if err != nil {
		fail(l, "render failed", err)
	}
	src, err := os.ReadFile(path)
	if err != nil {
		fail(l, "read source", err)
	}

	cfg, token, err := config.Load()
	if err != nil {
		fail(l, "load config", err)
	}
	client := backend.NewClient(cfg.Registry.BaseURL, token)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	if token == "" {
		tok, err := client.MintToken(ctx, "fflow-cli", 24*time.Hour)
		if err != nil {
			fail(l, "mint token failed", err)
		}
		client.Token = tok
		if err := config.Save(cfg, tok); err != nil {
			l.Warn("could not persist registry token", slog.Any("err", err))
		}
	}

	storyName := *name
	if storyName == "" {
		storyName = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	rec, err := client.Publish(ctx, backend.PublishRequest{
		StableID: *stable,
		Name:     storyName,
		Backend:  "json",
		Artifact: json.RawMessage(artifact),
		Source:   string(src),
	})
	if err != nil {
		fail(l, "publish failed", err)
	}
	fmt.Printf("Published %s: story %d, stable id %s, version %d\n", storyName, rec.StoryID, rec.StableID, rec.Version)
	telemetry.Event("publish", nil)
}
