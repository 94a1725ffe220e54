/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"testing"

	"github.com/mikezilla14/fountain-flow/internal/compile"
)

const statsScriptSource = `A cold open before any heading.

INT. KEEP - NIGHT

The warden paces.

WARDEN
Who goes there?

? Answer the warden
+ [Truth] -> #TRUTH
+ [Lie] -> #LIE

# TRUTH

EXT. GATE - DAWN

You are waved through.

# LIE

# EPILOGUE

The gate stays closed.
`

func TestComputeSceneStats(t *testing.T) {
	sc, err := compile.Source(statsScriptSource)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	stats := ComputeSceneStats(sc)
	if len(stats) != 3 {
		t.Fatalf("expected 3 scene entries, got %d: %+v", len(stats), stats)
	}
	// Preamble before the first heading
	if stats[0].Heading != "" || stats[0].Actions != 1 {
		t.Fatalf("unexpected preamble stats: %+v", stats[0])
	}
	keep := stats[1]
	if keep.Heading != "INT. KEEP - NIGHT" {
		t.Fatalf("unexpected heading: %q", keep.Heading)
	}
	if keep.Dialogue != 1 || keep.Actions != 1 || keep.Choices != 1 {
		t.Fatalf("unexpected keep stats: %+v", keep)
	}
	// Option jumps count toward the scene holding the choice
	if keep.Jumps != 2 {
		t.Fatalf("expected 2 jumps in keep scene, got %d", keep.Jumps)
	}
	if keep.Anchors != 1 {
		t.Fatalf("expected TRUTH anchor in keep scene, got %d", keep.Anchors)
	}
	gate := stats[2]
	if gate.Heading != "EXT. GATE - DAWN" || gate.Anchors != 2 {
		t.Fatalf("unexpected gate stats: %+v", gate)
	}
}

func TestComputeUnreferencedAnchors(t *testing.T) {
	sc, err := compile.Source(statsScriptSource)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	got := ComputeUnreferencedAnchors(sc)
	if len(got) != 1 || got[0] != "EPILOGUE" {
		t.Fatalf("expected [EPILOGUE], got %v", got)
	}
}
