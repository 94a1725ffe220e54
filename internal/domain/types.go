/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// This file defines the project manifest model. A fountain-flow project is a
// directory holding source scripts plus the build settings shared between
// them; the manifest serializes to a human-readable fflow.json at the
// project root.

// Project represents a fountain-flow project and its metadata.
type Project struct {
	Name     string   `json:"name"`
	Metadata Metadata `json:"metadata,omitempty"`
	Scripts  []Script `json:"scripts"`
	Assets   []Asset  `json:"assets,omitempty"`
	Build    Build    `json:"build,omitempty"`
}

// Metadata contains optional descriptive metadata for a project.
type Metadata struct {
	Series  string `json:"series,omitempty"`
	Author  string `json:"author,omitempty"`
	Contact string `json:"contact,omitempty"`
	Notes   string `json:"notes,omitempty"`
}

// Script registers one .fflow source with the project. Path is relative to
// the project's scripts directory.
type Script struct {
	ID    string   `json:"id"`
	Path  string   `json:"path"`
	Title string   `json:"title,omitempty"`
	Tags  []string `json:"tags,omitempty"`
}

// Asset catalogs an external resource the scripts' directives name (a
// background, sprite, music cue or sound). The compiler never checks that
// the file exists; the catalog is for the humans producing the assets.
type Asset struct {
	Kind  string `json:"kind"` // bg, show, music, sfx
	Name  string `json:"name"`
	Path  string `json:"path,omitempty"`
	Notes string `json:"notes,omitempty"`
}

// Build captures project-wide compile settings.
type Build struct {
	Backends   []string `json:"backends,omitempty"`   // default transpile targets
	TextWidth  int      `json:"textWidth,omitempty"`  // wrap column for the text export
	PageWidth  float64  `json:"pageWidth,omitempty"`  // PDF page size in points
	PageHeight float64  `json:"pageHeight,omitempty"`
}

// ScriptByID returns the registered script with the given id.
func (p *Project) ScriptByID(id string) (Script, bool) {
	for _, s := range p.Scripts {
		if s.ID == id {
			return s, true
		}
	}
	return Script{}, false
}

// ScriptByPath returns the registered script with the given relative path.
func (p *Project) ScriptByPath(path string) (Script, bool) {
	for _, s := range p.Scripts {
		if s.Path == path {
			return s, true
		}
	}
	return Script{}, false
}
