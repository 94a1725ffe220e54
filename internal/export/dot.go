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
	"github.com/mikezilla14/fountain-flow/internal/views"
)

// DOTOptions controls the Graphviz export.
type DOTOptions struct {
	Name    string // digraph name; empty uses the script file stem
	RankDir string // TB or LR; anything else falls back to TB
}

// ExportScriptDOT writes the jump graph of a registered script in
// Graphviz DOT syntax.
func ExportScriptDOT(ph *storage.ProjectHandle, rel, outPath string, opt DOTOptions) error {
	rel = effectiveRel(rel)
	s, err := loadScript(ph, rel)
	if err != nil {
		return err
	}
	name := opt.Name
	if name == "" {
		name = scriptStem(rel)
	}
	data, err := renderDOT(views.Logic(s), name, opt.RankDir)
	if err != nil {
		return err
	}
	out, err := resolveOut(ph, outPath)
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("write dot: %w", err)
	}
	return nil
}

// renderDOT emits the jump graph: the entry and every anchor as a box
// node, one edge per jump directive. Unresolved targets become dashed red
// phantom nodes so drafts plot their loose ends.
func renderDOT(lv *views.LogicView, name, rankDir string) ([]byte, error) {
	if rankDir != "LR" {
		rankDir = "TB"
	}
	nodes, arcs := flowSections(lv.Graph)

	var buf bytes.Buffer
	var werr error
	wf := func(format string, args ...any) {
		if werr != nil {
			return
		}
		_, werr = fmt.Fprintf(&buf, format, args...)
	}

	wf("digraph %s {\n", dotID(name))
	wf("  rankdir=%s;\n", rankDir)
	wf("  node [shape=box, fontname=\"Courier\", fontsize=11];\n")
	for i, n := range nodes {
		if i == 0 {
			wf("  %s [label=\"%s\", shape=oval];\n", n.id, dotEsc(n.label))
			continue
		}
		wf("  %s [label=\"%s\\nline %d\"];\n", n.id, dotEsc(n.label), n.line)
	}
	missing := map[string]string{}
	for _, a := range arcs {
		if a.to >= 0 {
			continue
		}
		if _, ok := missing[a.target]; ok {
			continue
		}
		id := fmt.Sprintf("missing%d", len(missing)+1)
		missing[a.target] = id
		wf("  %s [label=\"%s?\", color=red, fontcolor=red, style=dashed];\n", id, dotEsc(a.target))
	}
	for _, a := range arcs {
		if a.to >= 0 {
			wf("  %s -> %s [label=\"line %d\"];\n", nodes[a.from].id, nodes[a.to].id, a.line)
		} else {
			wf("  %s -> %s [label=\"line %d\", color=red, style=dashed];\n", nodes[a.from].id, missing[a.target], a.line)
		}
	}
	wf("}\n")
	if werr != nil {
		return nil, fmt.Errorf("build dot: %w", werr)
	}
	return buf.Bytes(), nil
}

// flowNode is one box in the plotted jump graph.
type flowNode struct {
	id    string
	label string
	line  int
}

// flowArc is one jump. to is the index into the node slice, or -1 when
// the target never resolved; target keeps the label either way.
type flowArc struct {
	from   int
	to     int
	target string
	line   int
}

// flowSections turns the logic view's graph into plot nodes and arcs.
// Node 0 is a synthetic entry; every anchor follows in document order.
// Jump edges originate at the jump directive itself, so each arc is
// attributed to the anchor section the directive textually sits in, and
// content before the first anchor belongs to the entry.
func flowSections(g views.Graph) ([]flowNode, []flowArc) {
	nodes := make([]flowNode, 0, len(g.Nodes)+1)
	nodes = append(nodes, flowNode{id: "start", label: "START", line: 0})
	byID := make(map[string]int, len(g.Nodes))
	for _, n := range g.Nodes {
		byID[n.ID] = len(nodes)
		nodes = append(nodes, flowNode{id: n.ID, label: n.Name, line: n.Line})
	}
	arcs := make([]flowArc, 0, len(g.Edges))
	for _, e := range g.Edges {
		from := 0
		for i := 1; i < len(nodes); i++ {
			if nodes[i].line <= e.Line && nodes[i].line >= nodes[from].line {
				from = i
			}
		}
		to := -1
		if e.ToID != "" {
			if i, ok := byID[e.ToID]; ok {
				to = i
			}
		}
		arcs = append(arcs, flowArc{from: from, to: to, target: e.Target, line: e.Line})
	}
	return nodes, arcs
}

// dotID sanitizes a string into a bare DOT identifier.
func dotID(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r == '_',
			r >= 'a' && r <= 'z',
			r >= 'A' && r <= 'Z',
			r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	id := b.String()
	if id == "" || (id[0] >= '0' && id[0] <= '9') {
		id = "g" + id
	}
	return id
}

func dotEsc(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return s
}
