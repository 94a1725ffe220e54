/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package transpile

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"

	"github.com/mikezilla14/fountain-flow/internal/ast"
	"github.com/mikezilla14/fountain-flow/internal/lexer"
	"github.com/mikezilla14/fountain-flow/internal/parser"
	"github.com/mikezilla14/fountain-flow/internal/resolve"
	"github.com/xeipuuv/gojsonschema"
)

// keepScript exercises every node variant, including an option with an
// inline body that link-based dialects cannot express.
const keepScript = `$ TITLE: "The Keep"
$ GOLD: 12
$ ARMED: false

INT. KEEP - NIGHT
! BG: keep_dark
! MUSIC: dirge
Rain hammers the shutters.

WARDEN
(low)
You came back.
Didn't think you would.

~ GOLD += 3

(IF: GOLD > 10)
    ! SFX: coin_clatter
    The purse feels heavier.
(ELSE)
    You count what little is left.

? Face the warden?
+ [Draw] Steel answers steel.
    ~ ARMED = true
    -> #DUEL
+ [Talk] Words first. -> #PARLEY

# DUEL
! SHOW: warden_scowl
No more words.
-> #PARLEY

# PARLEY

WARDEN
Speak, then.`

// lanternScript stays inside every dialect's reach: options carry only
// jump targets.
const lanternScript = `$ OIL: 2

EXT. HARBOR - NIGHT
The lantern gutters.

KEEPER
Mind the flame.

~ OIL -= 1

(IF: OIL > 0)
    It holds.
(ELSE)
    Darkness, then.

? Where now?
+ [Pier] Walk the pier. -> #PIER
+ [Home] Turn back. -> #HOME

# PIER
Salt wind, and the long boards.
-> #HOME

# HOME
The door is warm.`

func parseResolved(t *testing.T, src string) *ast.Script {
	t.Helper()
	toks, err := lexer.Lex(src)
	if err != nil {
		t.Fatalf("Lex: %v", err)
	}
	s, err := parser.Parse(toks)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := resolve.Resolve(s); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	return s
}

func TestRegistry(t *testing.T) {
	want := []string{"fflow", "json", "renpy", "twee"}
	if got := Names(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Names() = %v, want %v", got, want)
	}
	for _, name := range want {
		if _, ok := Lookup(name); !ok {
			t.Fatalf("Lookup(%q) = false, want registered", name)
		}
	}
	if _, ok := Lookup("prose"); ok {
		t.Fatalf("Lookup(prose) found a backend that should not exist")
	}
	if _, err := Render("prose", parseResolved(t, lanternScript)); err == nil {
		t.Fatalf("Render with unknown backend did not error")
	}
}

func TestJSONRoundTrip(t *testing.T) {
	s := parseResolved(t, keepScript)
	data, err := Render("json", s)
	if err != nil {
		t.Fatalf("Render json: %v", err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !reflect.DeepEqual(got, s) {
		t.Fatalf("decoded script differs from the original\n%s", data)
	}
	if !got.Valid {
		t.Fatalf("decoded script lost its valid flag")
	}
	if got.Symbols.Len() != 3 || got.Anchors.Len() != 2 {
		t.Fatalf("decoded tables: %d symbols, %d anchors, want 3 and 2", got.Symbols.Len(), got.Anchors.Len())
	}
}

func TestJSONDecodeRejectsCorruptInput(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{"not json", "{ this is not json"},
		{"wrong format", `{"format":"screenplay","version":1,"valid":true,"nodes":[]}`},
		{"future version", `{"format":"fountain-flow-ast","version":99,"valid":true,"nodes":[]}`},
		{"unknown node", `{"format":"fountain-flow-ast","version":1,"valid":true,"nodes":[{"node":"cutaway","ref":"n0001","line":1}]}`},
		{"bad expression", `{"format":"fountain-flow-ast","version":1,"valid":true,"nodes":[{"node":"mutate","ref":"n0001","line":1,"name":"X","op":"=","expr":"1 +"}]}`},
	}
	for _, tc := range cases {
		if _, err := Decode([]byte(tc.data)); err == nil {
			t.Fatalf("%s: Decode accepted corrupt input", tc.name)
		}
	}
}

func TestJSONArtifactConformsToSchema(t *testing.T) {
	data, err := Render("json", parseResolved(t, keepScript))
	if err != nil {
		t.Fatalf("Render json: %v", err)
	}

	schemaPath := filepath.Join("..", "..", "docs", "artifact.schema.json")
	schemaBytes, err := os.ReadFile(schemaPath)
	if err != nil {
		t.Fatalf("read schema: %v", err)
	}

	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(schemaBytes), gojsonschema.NewBytesLoader(data))
	if err != nil {
		t.Fatalf("schema validate error: %v", err)
	}
	if !result.Valid() {
		for _, e := range result.Errors() {
			t.Logf("schema error: %s", e)
		}
		t.Fatalf("artifact does not conform to schema")
	}
}

func TestRenpyRender(t *testing.T) {
	got, err := Render("renpy", parseResolved(t, keepScript))
	if err != nil {
		t.Fatalf("Render renpy: %v", err)
	}
	want := `label start:
    $ TITLE = "The Keep"
    $ GOLD = 12
    $ ARMED = False
    # INT. KEEP - NIGHT
    scene keep_dark
    play music "dirge"
    "Rain hammers the shutters."
    Warden "(low) You came back. Didn't think you would."
    $ GOLD += 3
    if GOLD > 10:
        play sound "coin_clatter"
        "The purse feels heavier."
    else:
        "You count what little is left."
    menu:
        "Face the warden?"
        "Draw":
            "Steel answers steel."
            $ ARMED = True
            jump DUEL
        "Talk":
            "Words first."
            jump PARLEY

label DUEL:
    show warden_scowl
    "No more words."
    jump PARLEY

label PARLEY:
    Warden "Speak, then."
`
	if string(got) != want {
		t.Fatalf("renpy output mismatch\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestRenpyEmptyLabelGetsPass(t *testing.T) {
	got, err := Render("renpy", parseResolved(t, "# LONE"))
	if err != nil {
		t.Fatalf("Render renpy: %v", err)
	}
	want := "label start:\n    pass\n\nlabel LONE:\n    pass\n"
	if string(got) != want {
		t.Fatalf("renpy output = %q, want %q", got, want)
	}
}

func TestRenpyRejectsNestedAnchor(t *testing.T) {
	src := `? Pick.
+ [A] Into the cellar.
    # CELLAR
    -> #CELLAR`
	_, err := Render("renpy", parseResolved(t, src))
	var uc *UnsupportedConstructError
	if !errors.As(err, &uc) {
		t.Fatalf("Render renpy error = %v, want UnsupportedConstructError", err)
	}
	if uc.Backend != "renpy" || uc.Line != 3 {
		t.Fatalf("error fields = %q line %d, want renpy line 3", uc.Backend, uc.Line)
	}
}

func TestTweeRender(t *testing.T) {
	got, err := Render("twee", parseResolved(t, lanternScript))
	if err != nil {
		t.Fatalf("Render twee: %v", err)
	}
	want := `:: StoryInit
<<set $OIL to 2>>

:: Start

:: EXT_HARBOR_-_NIGHT
**EXT. HARBOR - NIGHT**
The lantern gutters.
**KEEPER**: Mind the flame.
<<set $OIL -= 1>>
<<if $OIL > 0>>
It holds.
<<else>>
Darkness, then.
<<endif>>

Where now?
[[Walk the pier.|PIER]]
[[Turn back.|HOME]]

:: PIER
Salt wind, and the long boards.
<<goto "HOME">>

:: HOME
The door is warm.
`
	if string(got) != want {
		t.Fatalf("twee output mismatch\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestTweeRejectsInlineOptionBody(t *testing.T) {
	_, err := Render("twee", parseResolved(t, keepScript))
	var uc *UnsupportedConstructError
	if !errors.As(err, &uc) {
		t.Fatalf("Render twee error = %v, want UnsupportedConstructError", err)
	}
	if uc.Backend != "twee" {
		t.Fatalf("error backend = %q, want twee", uc.Backend)
	}
}

// The formatter must reach a fixed point: formatting its own output changes
// nothing.
func TestFflowFormatterFixedPoint(t *testing.T) {
	s := parseResolved(t, keepScript)
	first, err := Render("fflow", s)
	if err != nil {
		t.Fatalf("Render fflow: %v", err)
	}
	second, err := Render("fflow", parseResolved(t, string(first)))
	if err != nil {
		t.Fatalf("Render formatted source: %v", err)
	}
	if string(first) != string(second) {
		t.Fatalf("formatter is not idempotent\nfirst:\n%s\nsecond:\n%s", first, second)
	}
}

func TestFflowPreservesStructure(t *testing.T) {
	s := parseResolved(t, keepScript)
	out, err := Render("fflow", s)
	if err != nil {
		t.Fatalf("Render fflow: %v", err)
	}
	again := parseResolved(t, string(out))
	if got, want := len(again.Nodes), len(s.Nodes); got != want {
		t.Fatalf("reparsed top-level nodes = %d, want %d", got, want)
	}
	if got, want := again.Symbols.Names(), s.Symbols.Names(); !reflect.DeepEqual(got, want) {
		t.Fatalf("reparsed symbols = %v, want %v", got, want)
	}
	if got, want := again.Anchors.Names(), s.Anchors.Names(); !reflect.DeepEqual(got, want) {
		t.Fatalf("reparsed anchors = %v, want %v", got, want)
	}
}

// Backends share one script concurrently; renders must not interfere.
func TestConcurrentRendersAgree(t *testing.T) {
	s := parseResolved(t, lanternScript)
	names := Names()
	sequential := make(map[string][]byte, len(names))
	for _, name := range names {
		out, err := Render(name, s)
		if err != nil {
			t.Fatalf("Render %s: %v", name, err)
		}
		sequential[name] = out
	}

	var wg sync.WaitGroup
	errs := make([]error, len(names))
	outs := make([][]byte, len(names))
	for i, name := range names {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			outs[i], errs[i] = Render(name, s)
		}(i, name)
	}
	wg.Wait()

	for i, name := range names {
		if errs[i] != nil {
			t.Fatalf("concurrent Render %s: %v", name, errs[i])
		}
		if string(outs[i]) != string(sequential[name]) {
			t.Fatalf("concurrent Render %s differs from sequential output", name)
		}
	}
}
