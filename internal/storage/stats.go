/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"github.com/mikezilla14/fountain-flow/internal/ast"
)

// SceneStats summarizes the content under one scene heading. Nodes inside
// option bodies and conditional branches count toward the scene they appear
// in. A script with content before its first heading reports that preamble
// under an empty Heading.
type SceneStats struct {
	Heading  string
	Line     int
	Dialogue int
	Actions  int
	Choices  int
	Jumps    int
	Anchors  int
}

// ComputeSceneStats walks a compiled script and returns per-scene counters in
// document order.
func ComputeSceneStats(sc *ast.Script) []SceneStats {
	if sc == nil {
		return nil
	}
	var out []SceneStats
	cur := -1
	bump := func(fn func(*SceneStats)) {
		if cur < 0 {
			out = append(out, SceneStats{})
			cur = 0
		}
		fn(&out[cur])
	}
	sc.Walk(func(n ast.Node) {
		switch v := n.(type) {
		case *ast.SceneHeading:
			out = append(out, SceneStats{Heading: v.Text, Line: v.Pos()})
			cur = len(out) - 1
		case *ast.Dialogue:
			bump(func(s *SceneStats) { s.Dialogue++ })
		case *ast.Action:
			bump(func(s *SceneStats) { s.Actions++ })
		case *ast.ChoiceBlock:
			bump(func(s *SceneStats) { s.Choices++ })
		case *ast.Jump:
			bump(func(s *SceneStats) { s.Jumps++ })
		case *ast.AnchorLabel:
			bump(func(s *SceneStats) { s.Anchors++ })
		}
	})
	return out
}

// ComputeUnreferencedAnchors returns the names of anchors that no jump in the
// script targets, in declaration order. These are reachable only by falling
// through from the preceding node, which is usually intentional for the
// first anchor after a choice but worth surfacing elsewhere.
func ComputeUnreferencedAnchors(sc *ast.Script) []string {
	if sc == nil {
		return nil
	}
	used := make(map[string]struct{})
	sc.Walk(func(n ast.Node) {
		if j, ok := n.(*ast.Jump); ok {
			used[j.Target] = struct{}{}
		}
	})
	var out []string
	for _, name := range sc.Anchors.Names() {
		if _, ok := used[name]; !ok {
			out = append(out, name)
		}
	}
	return out
}
