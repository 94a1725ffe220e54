/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"fmt"
	"os"
	"sort"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
)

// FontLibrary holds parsed OpenType fonts keyed by family, weight and
// italic flag. The graph exporters load label faces through it; named
// instances of variable fonts are not supported.
type FontLibrary struct {
	fonts map[fontKey]*opentype.Font
}

type fontKey struct {
	family string
	weight int
	italic bool
}

func NewFontLibrary() *FontLibrary { return &FontLibrary{fonts: make(map[fontKey]*opentype.Font)} }

// LoadTTF parses the font file at path and registers it under the given
// family, weight and italic flag.
func (fl *FontLibrary) LoadTTF(family string, weight int, italic bool, path string) error {
	if fl.fonts == nil {
		fl.fonts = make(map[fontKey]*opentype.Font)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read font %s: %w", path, err)
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return fmt.Errorf("parse font %s: %w", path, err)
	}
	fl.fonts[fontKey{family: family, weight: weight, italic: italic}] = f
	return nil
}

// find returns the exact match when present, otherwise the same-family
// candidate closest in weight, preferring a matching italic flag. The
// candidates are sorted so resolution never depends on map order.
func (fl *FontLibrary) find(spec FontSpec) *opentype.Font {
	if fl == nil || len(fl.fonts) == 0 {
		return nil
	}
	if f, ok := fl.fonts[fontKey{family: spec.Family, weight: spec.Weight, italic: spec.Italic}]; ok {
		return f
	}
	keys := make([]fontKey, 0, len(fl.fonts))
	for k := range fl.fonts {
		if k.family == spec.Family {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return nil
	}
	sort.Slice(keys, func(i, j int) bool {
		di := absInt(keys[i].weight - spec.Weight)
		dj := absInt(keys[j].weight - spec.Weight)
		if di != dj {
			return di < dj
		}
		if (keys[i].italic == spec.Italic) != (keys[j].italic == spec.Italic) {
			return keys[i].italic == spec.Italic
		}
		return keys[i].weight < keys[j].weight
	})
	return fl.fonts[keys[0]]
}

// OTProvider resolves FontSpec against a FontLibrary and falls back to
// the given Provider (BasicProvider when nil) for anything the library
// cannot serve. Faces are hinted at the provider's DPI.
type OTProvider struct {
	Lib      *FontLibrary
	DPI      float64 // 72 when zero
	Fallback Provider
}

func (p OTProvider) Resolve(spec FontSpec) (font.Face, Metrics) {
	if spec.SizePt <= 0 {
		spec.SizePt = 12
	}
	dpi := p.DPI
	if dpi <= 0 {
		dpi = 72
	}
	if f := p.Lib.find(spec); f != nil {
		face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: float64(spec.SizePt), DPI: dpi, Hinting: font.HintingFull})
		if err == nil {
			m := face.Metrics()
			return face, Metrics{
				Ascent:  float32(m.Ascent.Round()),
				Descent: float32(m.Descent.Round()),
				LineGap: float32(m.Height.Round() - m.Ascent.Round() - m.Descent.Round()),
			}
		}
	}
	fb := p.Fallback
	if fb == nil {
		fb = BasicProvider{}
	}
	return fb.Resolve(spec)
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
