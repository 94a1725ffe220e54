/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package compile chains the passes into one pipeline: lex, parse, resolve,
// and fan-out rendering. Stage errors keep their concrete types through the
// wrapping, so callers can still pick out a lexer.LexError or the resolver's
// diagnostics batch.
//
// Compiles of different scripts are independent and run concurrently in
// Batch; rendering shares one resolved script across backends, which is safe
// because backends never mutate the tree. Every pipeline run logs under a
// fresh invocation id so interleaved batch logs stay attributable.
package compile

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mikezilla14/fountain-flow/internal/ast"
	"github.com/mikezilla14/fountain-flow/internal/lexer"
	"github.com/mikezilla14/fountain-flow/internal/log"
	"github.com/mikezilla14/fountain-flow/internal/parser"
	"github.com/mikezilla14/fountain-flow/internal/resolve"
	"github.com/mikezilla14/fountain-flow/internal/transpile"
)

// Source compiles fountain-flow text. Lex and parse failures return a nil
// script; resolution failures return the parsed script, marked invalid,
// alongside the diagnostics, so tooling can still derive views from it.
func Source(src string) (*ast.Script, error) {
	return run("<memory>", src)
}

// File compiles the script at path.
func File(path string) (*ast.Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	return run(path, string(data))
}

func run(name, src string) (*ast.Script, error) {
	lg := log.WithComponent("compile").With(
		slog.String("invocation", uuid.NewString()),
		slog.String("script", name),
	)
	start := time.Now()

	toks, err := lexer.Lex(src)
	if err != nil {
		lg.Debug("lex failed", slog.Any("err", err))
		return nil, fmt.Errorf("lex: %w", err)
	}
	s, err := parser.Parse(toks)
	if err != nil {
		lg.Debug("parse failed", slog.Any("err", err))
		return nil, fmt.Errorf("parse: %w", err)
	}
	if err := resolve.Resolve(s); err != nil {
		lg.Debug("resolve failed", slog.Any("err", err))
		return s, fmt.Errorf("resolve: %w", err)
	}

	nodes := 0
	s.Walk(func(ast.Node) { nodes++ })
	lg.Debug("compiled",
		slog.Int("nodes", nodes),
		slog.Int("symbols", s.Symbols.Len()),
		slog.Int("anchors", s.Anchors.Len()),
		slog.Duration("elapsed", time.Since(start)),
	)
	return s, nil
}

// FileResult is one Batch entry. Script is nil when Err is a lex or parse
// failure and non-nil but invalid when Err carries resolver diagnostics.
type FileResult struct {
	Path   string
	Script *ast.Script
	Err    error
}

// Batch compiles every path concurrently, capped at GOMAXPROCS workers.
// Results keep the order of paths, and each failure stays with its file.
func Batch(paths []string) []FileResult {
	results := make([]FileResult, len(paths))
	sem := make(chan struct{}, runtime.GOMAXPROCS(0))
	var wg sync.WaitGroup
	for i, path := range paths {
		wg.Add(1)
		go func(i int, path string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			s, err := File(path)
			results[i] = FileResult{Path: path, Script: s, Err: err}
		}(i, path)
	}
	wg.Wait()
	return results
}

// RenderAll runs every named backend over s concurrently and returns the
// artifacts keyed by backend name. Backends that reject the script each
// contribute their own error; the rest still deliver.
func RenderAll(s *ast.Script, backends []string) (map[string][]byte, error) {
	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		out  = make(map[string][]byte, len(backends))
		errs = make([]error, len(backends))
	)
	for i, name := range backends {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			data, err := transpile.Render(name, s)
			if err != nil {
				errs[i] = fmt.Errorf("%s: %w", name, err)
				return
			}
			mu.Lock()
			out[name] = data
			mu.Unlock()
		}(i, name)
	}
	wg.Wait()
	return out, errors.Join(errs...)
}
