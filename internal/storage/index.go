/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mikezilla14/fountain-flow/internal/ast"
	"github.com/mikezilla14/fountain-flow/internal/compile"
	"github.com/mikezilla14/fountain-flow/internal/domain"
	"github.com/mikezilla14/fountain-flow/internal/expr"
	applog "github.com/mikezilla14/fountain-flow/internal/log"
	"github.com/mikezilla14/fountain-flow/internal/version"
	"log/slog"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

const (
	// IndexDirName stores all per-project ephemeral/index data under the project root.
	IndexDirName  = ".fflow"
	IndexFileName = "index.sqlite"

	// schemaVersion tracks the local SQLite schema for the embedded index.
	// Bump this when you perform breaking schema changes and add migrations.
	schemaVersion = 2
)

// IndexPath returns the full path to the project's embedded index database file.
func IndexPath(projectRoot string) string {
	return filepath.Join(projectRoot, IndexDirName, IndexFileName)
}

// InitOrOpenIndex ensures that the per-project SQLite index exists at .fflow/index.sqlite,
// opens the database, enables WAL mode, and ensures the meta/version tables exist.
// The returned *sql.DB is ready for use. Callers may close it when no longer needed.
func InitOrOpenIndex(projectRoot string) (*sql.DB, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "index_init").With(
		slog.String("root", projectRoot),
	)
	if stringsTrim(projectRoot) == "" {
		return nil, errors.New("project root is required")
	}
	// Ensure directory exists
	if err := os.MkdirAll(filepath.Join(projectRoot, IndexDirName), 0o755); err != nil {
		l.Error("create .fflow dir failed", slog.Any("err", err))
		return nil, fmt.Errorf("create .fflow dir: %w", err)
	}

	path := IndexPath(projectRoot)
	// Use a URI with shared cache and set busy timeout. Convert to forward slashes for SQLite URI.
	uriPath := filepath.ToSlash(path)
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", uriPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		l.Error("sqlite open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Set reasonable connection pool limits for embedded usage.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Ensure WAL mode is active.
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		l.Error("enable WAL failed", slog.Any("err", err))
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	// Cross-refs depend on cascading deletes.
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON;"); err != nil {
		l.Warn("enable foreign_keys failed", slog.Any("err", err))
	}

	if err := ensureMetaAndVersion(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure meta/version failed", slog.Any("err", err))
		return nil, err
	}
	// Ensure core index schema exists (documents, FTS, cross-refs, assets, caches, history)
	if err := ensureIndexSchema(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure index schema failed", slog.Any("err", err))
		return nil, err
	}
	// Run migrations to bring DB schema up to date
	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		l.Error("run migrations failed", slog.Any("err", err))
		return nil, err
	}

	l.Info("index ready", slog.String("path", path))
	return db, nil
}

func ensureMetaAndVersion(ctx context.Context, db *sql.DB) error {
	// Create tables if not exist
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	// Seed or update single-row version info
	now := time.Now().UTC().Format(time.RFC3339)
	appv := version.String()
	// Check if a version row exists
	var curSchema int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&curSchema)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// Insert new row with current schemaVersion for a fresh DB
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, ?, ?, ?, ?)`, schemaVersion, appv, now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		// Update app and timestamp only; keep existing schema for migrations
		if _, err := db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, appv, now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

// runMigrations applies incremental schema migrations up to schemaVersion.
func runMigrations(ctx context.Context, db *sql.DB) error {
	var cur int
	if err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if cur > schemaVersion {
		// Do not downgrade; just log and continue
		return nil
	}
	for cur < schemaVersion {
		next := cur + 1
		switch next {
		case 2:
			// Add helpful indexes for cross-refs and optimize FTS
			tx, err := db.BeginTx(ctx, nil)
			if err != nil {
				return fmt.Errorf("begin migration %d: %w", next, err)
			}
			stmts := []string{
				`CREATE INDEX IF NOT EXISTS idx_cross_refs_to ON cross_refs(to_id);`,
				`CREATE INDEX IF NOT EXISTS idx_cross_refs_from ON cross_refs(from_id);`,
			}
			for _, q := range stmts {
				if _, err := tx.ExecContext(ctx, q); err != nil {
					_ = tx.Rollback()
					return fmt.Errorf("migration %d stmt failed: %w", next, err)
				}
			}
			if _, err := tx.ExecContext(ctx, `UPDATE version SET schema=?, updated_at=? WHERE id=1`, next, time.Now().UTC().Format(time.RFC3339)); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d update version: %w", next, err)
			}
			if err := tx.Commit(); err != nil {
				return fmt.Errorf("migration %d commit: %w", next, err)
			}
			// Best-effort FTS optimize (outside the tx)
			if _, err := db.ExecContext(ctx, `INSERT INTO fts_documents(fts_documents) VALUES('optimize')`); err != nil {
				// best-effort optimize; ignore errors
			}
		default:
			// Unknown future step; break
		}
		cur = next
	}
	return nil
}

// ensureIndexSchema creates core index tables and FTS structures if they do not exist.
//
// Document kinds: scene, action, dialogue, asset, variable, choice, option,
// anchor, jump per script node; "source" for a script whose tree could not be
// built; project_name/project_series/project_author/project_notes for manifest
// metadata (their script column is fflow.json).
func ensureIndexSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		// One row per interesting script node, flattened from the syntax tree.
		`CREATE TABLE IF NOT EXISTS documents (
			doc_id  INTEGER PRIMARY KEY,
			kind    TEXT    NOT NULL,
			script  TEXT    NOT NULL,
			line    INTEGER,
			scene   TEXT,
			speaker TEXT,
			node_id TEXT,
			text    TEXT
		);`,
		// Helpful indices for lookup
		`CREATE INDEX IF NOT EXISTS idx_documents_script ON documents(script);`,
		`CREATE INDEX IF NOT EXISTS idx_documents_line ON documents(line);`,

		// Contentless FTS5 index fed from documents via triggers.
		`CREATE VIRTUAL TABLE IF NOT EXISTS fts_documents USING fts5(
			text,
			content='',
			tokenize = 'unicode61'
		);`,

		// Cross references between documents (jump -> anchor, where-used)
		`CREATE TABLE IF NOT EXISTS cross_refs (
			from_id INTEGER NOT NULL,
			to_id   INTEGER NOT NULL,
			PRIMARY KEY(from_id, to_id),
			FOREIGN KEY(from_id) REFERENCES documents(doc_id) ON DELETE CASCADE,
			FOREIGN KEY(to_id)   REFERENCES documents(doc_id) ON DELETE CASCADE
		);`,

		// Assets catalog mirrored from the manifest (backgrounds/sprites/audio)
		`CREATE TABLE IF NOT EXISTS assets (
			kind TEXT NOT NULL,
			name TEXT NOT NULL,
			path TEXT,
			PRIMARY KEY(kind, name)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_assets_name ON assets(name);`,

		// Rendered-artifact cache (backend output per script, LRU-evicted)
		`CREATE TABLE IF NOT EXISTS artifacts (
			id          INTEGER PRIMARY KEY,
			script      TEXT    NOT NULL,
			backend     TEXT    NOT NULL,
			fingerprint TEXT    NOT NULL DEFAULT '',
			blob        BLOB,
			size        INTEGER NOT NULL DEFAULT 0,
			updated_at  TEXT    NOT NULL,
			last_access TEXT
		);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_artifacts_key ON artifacts(script, backend);`,
		`CREATE INDEX IF NOT EXISTS idx_artifacts_access ON artifacts(last_access);`,

		// Source snapshots (history of script text for change tracking)
		`CREATE TABLE IF NOT EXISTS source_snapshots (
			id     INTEGER PRIMARY KEY,
			script TEXT    NOT NULL,
			ts     TEXT    NOT NULL,
			text   TEXT    NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_source_snapshots_script_ts ON source_snapshots(script, ts);`,

		// Compile runs (history of pipeline outcomes per script)
		`CREATE TABLE IF NOT EXISTS compile_runs (
			id          INTEGER PRIMARY KEY,
			script      TEXT    NOT NULL,
			ts          TEXT    NOT NULL,
			ok          INTEGER NOT NULL,
			diagnostics TEXT,
			nodes       INTEGER NOT NULL DEFAULT 0,
			symbols     INTEGER NOT NULL DEFAULT 0,
			anchors     INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE INDEX IF NOT EXISTS idx_compile_runs_script_ts ON compile_runs(script, ts);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure index schema: %w", err)
		}
	}
	// Triggers for contentless FTS synchronization with documents.text
	triggers := []string{
		`CREATE TRIGGER IF NOT EXISTS documents_ai AFTER INSERT ON documents BEGIN
			INSERT INTO fts_documents(rowid, text) VALUES (new.doc_id, new.text);
		END;`,
		`CREATE TRIGGER IF NOT EXISTS documents_ad AFTER DELETE ON documents BEGIN
			INSERT INTO fts_documents(fts_documents, rowid, text) VALUES ('delete', old.doc_id, old.text);
		END;`,
		`CREATE TRIGGER IF NOT EXISTS documents_au AFTER UPDATE OF text ON documents BEGIN
			INSERT INTO fts_documents(fts_documents, rowid, text) VALUES ('delete', old.doc_id, old.text);
			INSERT INTO fts_documents(rowid, text) VALUES (new.doc_id, new.text);
		END;`,
	}
	for _, q := range triggers {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure fts triggers: %w", err)
		}
	}
	return nil
}

// DetectAndRebuildIndex checks for corruption or missing schema and rebuilds the index if needed.
// It returns true when a rebuild was performed.
func DetectAndRebuildIndex(ctx context.Context, projectRoot string, proj domain.Project) (bool, error) {
	path := IndexPath(projectRoot)
	// Try to open DB; if fails, attempt backup+delete+rebuild
	db, err := InitOrOpenIndex(projectRoot)
	if err != nil {
		backupIndexFile(path)
		_ = os.Remove(path)
		if rbErr := RebuildIndex(ctx, projectRoot, proj); rbErr != nil {
			return false, fmt.Errorf("rebuild after open failure: %w (open err: %v)", rbErr, err)
		}
		return true, nil
	}
	defer db.Close()
	needs := false
	// quick_check for corruption
	var chk string
	if err := db.QueryRowContext(ctx, `PRAGMA quick_check;`).Scan(&chk); err != nil || !strings.Contains(strings.ToLower(chk), "ok") {
		needs = true
	}
	// Probe core table
	if !needs {
		if _, err := db.ExecContext(ctx, `SELECT 1 FROM documents LIMIT 1;`); err != nil {
			needs = true
		}
	}
	if !needs {
		return false, nil
	}
	// Backup and remove existing DB file
	backupIndexFile(path)
	_ = os.Remove(path)
	// Rebuild
	if err := RebuildIndex(ctx, projectRoot, proj); err != nil {
		return false, err
	}
	return true, nil
}

// backupIndexFile copies the current index file into a timestamped backup in .fflow/backups.
func backupIndexFile(indexPath string) {
	bdir := filepath.Join(filepath.Dir(indexPath), "backups")
	_ = os.MkdirAll(bdir, 0o755)
	stamp := time.Now().Format("20060102-150405")
	bak := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", filepath.Base(indexPath), stamp))
	if data, err := os.ReadFile(indexPath); err == nil {
		_ = os.WriteFile(bak, data, 0o644)
	}
}

// stringsTrim is a tiny helper to avoid importing strings here just for TrimSpace.
func stringsTrim(s string) string {
	// manual trim of spaces and tabs
	i := 0
	j := len(s)
	for i < j {
		c := s[i]
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			i++
			continue
		}
		break
	}
	for i < j {
		c := s[j-1]
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			j--
			continue
		}
		break
	}
	return s[i:j]
}

// BuildIndexIfEmpty ensures the DB exists and, if the documents table has no
// rows yet, populates it from the manifest and the registered scripts. An
// index with content is left alone.
func BuildIndexIfEmpty(ctx context.Context, projectRoot string, proj domain.Project) error {
	// Ensure the DB exists and is initialized
	db, err := InitOrOpenIndex(projectRoot)
	if err != nil {
		return err
	}
	defer db.Close()
	// Check if documents has any rows
	var cnt int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents;").Scan(&cnt); err != nil {
		return fmt.Errorf("check documents count: %w", err)
	}
	if cnt > 0 {
		return nil // already built
	}
	return rebuildDocumentsFromProject(ctx, db, projectRoot, proj)
}

// UpdateIndex replaces the documents content from the manifest and the current
// script sources on disk.
func UpdateIndex(ctx context.Context, projectRoot string, proj domain.Project) error {
	db, err := InitOrOpenIndex(projectRoot)
	if err != nil {
		return err
	}
	defer db.Close()
	return rebuildDocumentsFromProject(ctx, db, projectRoot, proj)
}

// UpdateScriptIndex refreshes the documents of a single script from an
// already compiled tree, leaving the rest of the index untouched. Anchors are
// file-local, so the script's cross-refs rebuild entirely from its own jumps.
func UpdateScriptIndex(ctx context.Context, projectRoot string, rel string, sc *ast.Script) error {
	if stringsTrim(rel) == "" {
		return errors.New("script path is required")
	}
	if sc == nil {
		return errors.New("nil script")
	}
	db, err := InitOrOpenIndex(projectRoot)
	if err != nil {
		return err
	}
	defer db.Close()
	rows := appendScriptRows(nil, rel, sc)
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	// Cascade removes the script's old cross-refs with its documents.
	if _, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE script=?;", rel); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear script documents: %w", err)
	}
	if err := insertDocRows(ctx, tx, rows); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// RebuildIndex drops and recreates core index tables and rebuilds content from
// the manifest and script sources. It preserves meta/version plus the
// source_snapshots and compile_runs history; the artifact cache is derived and
// gets dropped with the rest. This is a safe operation; the index is
// rebuildable from fflow.json and the scripts directory.
func RebuildIndex(ctx context.Context, projectRoot string, proj domain.Project) error {
	db, err := InitOrOpenIndex(projectRoot)
	if err != nil {
		return err
	}
	defer db.Close()
	// Drop core tables inside a transaction and recreate schema
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	drops := []string{
		"DROP TABLE IF EXISTS cross_refs;",
		"DROP TABLE IF EXISTS assets;",
		"DROP TABLE IF EXISTS artifacts;",
		"DROP TRIGGER IF EXISTS documents_ai;",
		"DROP TRIGGER IF EXISTS documents_ad;",
		"DROP TRIGGER IF EXISTS documents_au;",
		"DROP TABLE IF EXISTS documents;",
		"DROP TABLE IF EXISTS fts_documents;",
	}
	for _, q := range drops {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("drop schema: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("drop commit: %w", err)
	}
	// Recreate schema and populate
	if err := ensureIndexSchema(ctx, db); err != nil {
		return err
	}
	return rebuildDocumentsFromProject(ctx, db, projectRoot, proj)
}

// docRow is one pending documents insert. anchor and jumpTo carry link
// bookkeeping: doc IDs are assigned on insert, so cross-refs resolve after.
type docRow struct {
	kind    string
	script  string
	line    int
	scene   string
	speaker string
	nodeID  string
	text    string
	anchor  string
	jumpTo  string
}

type scriptSource struct {
	rel string
	abs string
}

// scriptSources lists the script files to index: the manifest's registered
// scripts, or the default scripts/main.fflow when none are registered yet.
func scriptSources(projectRoot string, proj domain.Project) []scriptSource {
	var out []scriptSource
	for _, sc := range proj.Scripts {
		rel := stringsTrim(sc.Path)
		if rel == "" {
			continue
		}
		abs := filepath.Join(projectRoot, ScriptsDirName, filepath.FromSlash(rel))
		if _, err := os.Stat(abs); err != nil {
			continue
		}
		out = append(out, scriptSource{rel: rel, abs: abs})
	}
	if len(out) == 0 {
		abs := filepath.Join(projectRoot, ScriptsDirName, DefaultScriptFileName)
		if _, err := os.Stat(abs); err == nil {
			out = append(out, scriptSource{rel: DefaultScriptFileName, abs: abs})
		}
	}
	return out
}

// appendScriptRows flattens a compiled script into document rows, carrying the
// enclosing scene heading onto every row so scene filters work.
func appendScriptRows(rows []docRow, rel string, sc *ast.Script) []docRow {
	scene := ""
	sc.Walk(func(n ast.Node) {
		r := docRow{script: rel, line: n.Pos(), nodeID: n.ID()}
		switch v := n.(type) {
		case *ast.SceneHeading:
			scene = v.Text
			r.kind = "scene"
			r.text = v.Text
		case *ast.Action:
			r.kind = "action"
			r.text = v.Text
		case *ast.Dialogue:
			r.kind = "dialogue"
			r.speaker = v.Speaker
			r.text = strings.Join(v.Lines, " ")
			if v.Parenthetical != "" {
				r.text = "(" + v.Parenthetical + ") " + r.text
			}
		case *ast.AssetDirective:
			r.kind = "asset"
			r.text = v.Kind.Keyword() + " " + v.Payload
		case *ast.StateDecl:
			r.kind = "variable"
			r.text = v.Name + " = " + v.Init.Literal()
		case *ast.StateMutation:
			r.kind = "variable"
			r.text = v.Name + " " + v.Op.String() + " " + expr.Render(v.Value, nil)
		case *ast.ChoiceBlock:
			r.kind = "choice"
			r.text = v.Prompt
		case *ast.ChoiceOption:
			r.kind = "option"
			r.text = v.Label
			if v.Text != "" {
				r.text += " " + v.Text
			}
		case *ast.AnchorLabel:
			r.kind = "anchor"
			r.text = v.Name
			r.anchor = v.Name
		case *ast.Jump:
			r.kind = "jump"
			r.text = v.Target
			r.jumpTo = v.Target
		default:
			// Conditionals carry no text of their own; their bodies are
			// visited by the walk.
			return
		}
		r.scene = scene
		rows = append(rows, r)
	})
	return rows
}

// insertDocRows inserts rows and wires jump->anchor cross-refs once IDs exist.
// Jumps whose target is missing get no cross-ref; the resolver reports those.
func insertDocRows(ctx context.Context, tx *sql.Tx, rows []docRow) error {
	ins, err := tx.PrepareContext(ctx, "INSERT INTO documents(kind, script, line, scene, speaker, node_id, text) VALUES(?,?,?,?,?,?,?);")
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer ins.Close()
	anchorIDs := make(map[string]int64)
	type pendingRef struct {
		fromID int64
		key    string
	}
	var refs []pendingRef
	for _, r := range rows {
		res, err := ins.ExecContext(ctx, r.kind, r.script, nullLine(r.line), nullStr(r.scene), nullStr(r.speaker), nullStr(r.nodeID), r.text)
		if err != nil {
			return fmt.Errorf("insert document: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("document id: %w", err)
		}
		if r.anchor != "" {
			anchorIDs[r.script+"#"+r.anchor] = id
		}
		if r.jumpTo != "" {
			refs = append(refs, pendingRef{fromID: id, key: r.script + "#" + r.jumpTo})
		}
	}
	if len(refs) == 0 {
		return nil
	}
	xins, err := tx.PrepareContext(ctx, "INSERT OR IGNORE INTO cross_refs(from_id, to_id) VALUES(?,?);")
	if err != nil {
		return fmt.Errorf("prepare cross_ref insert: %w", err)
	}
	defer xins.Close()
	for _, ref := range refs {
		to, ok := anchorIDs[ref.key]
		if !ok {
			continue
		}
		if _, err := xins.ExecContext(ctx, ref.fromID, to); err != nil {
			return fmt.Errorf("insert cross_ref: %w", err)
		}
	}
	return nil
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullLine(n int) any {
	if n <= 0 {
		return nil
	}
	return n
}

// rebuildDocumentsFromProject replaces the documents and assets content from
// the manifest and the script sources on disk.
func rebuildDocumentsFromProject(ctx context.Context, db *sql.DB, projectRoot string, proj domain.Project) error {
	rows := make([]docRow, 0, 256)
	// Manifest-level metadata
	if s := stringsTrim(proj.Name); s != "" {
		rows = append(rows, docRow{kind: "project_name", script: ManifestFileName, text: s})
	}
	if s := stringsTrim(proj.Metadata.Series); s != "" {
		rows = append(rows, docRow{kind: "project_series", script: ManifestFileName, text: s})
	}
	if s := stringsTrim(proj.Metadata.Author); s != "" {
		rows = append(rows, docRow{kind: "project_author", script: ManifestFileName, text: s})
	}
	if s := stringsTrim(proj.Metadata.Notes); s != "" {
		rows = append(rows, docRow{kind: "project_notes", script: ManifestFileName, text: s})
	}
	// Compile each script and flatten its tree. Resolver diagnostics still
	// produce a tree; only unreadable or unparseable sources fall back to a
	// single raw-text row.
	for _, src := range scriptSources(projectRoot, proj) {
		sc, _ := compile.File(src.abs)
		if sc == nil {
			if b, err := os.ReadFile(src.abs); err == nil {
				if s := stringsTrim(string(b)); s != "" {
					rows = append(rows, docRow{kind: "source", script: src.rel, text: s})
				}
			}
			continue
		}
		rows = appendScriptRows(rows, src.rel, sc)
	}
	// Write in a transaction: clear derived tables and insert new rows.
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	for _, q := range []string{"DELETE FROM cross_refs;", "DELETE FROM documents;", "DELETE FROM assets;"} {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("clear index tables: %w", err)
		}
	}
	ains, err := tx.PrepareContext(ctx, "INSERT OR REPLACE INTO assets(kind, name, path) VALUES(?,?,?);")
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare asset insert: %w", err)
	}
	defer ains.Close()
	for _, a := range proj.Assets {
		if stringsTrim(a.Name) == "" {
			continue
		}
		if _, err := ains.ExecContext(ctx, a.Kind, a.Name, nullStr(a.Path)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert asset: %w", err)
		}
	}
	if err := insertDocRows(ctx, tx, rows); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
