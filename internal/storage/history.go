/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// language=SQL
// dialect=SQLite
const insertCompileRunSQL = `INSERT INTO compile_runs(script, ts, ok, diagnostics, nodes, symbols, anchors) VALUES (?, ?, ?, ?, ?, ?, ?)`

// language=SQL
// dialect=SQLite
const selectLatestCompileRunSQL = `SELECT ts, ok, COALESCE(diagnostics,''), nodes, symbols, anchors FROM compile_runs WHERE script = ? ORDER BY ts DESC LIMIT 1`

// language=SQL
// dialect=SQLite
const listCompileRunsSQL = `SELECT ts, ok, COALESCE(diagnostics,''), nodes, symbols, anchors FROM compile_runs WHERE script = ? ORDER BY ts DESC LIMIT ?`

// language=SQL
// dialect=SQLite
const pruneCompileRunsSQL = `DELETE FROM compile_runs WHERE script = ? AND id NOT IN (
	SELECT id FROM compile_runs WHERE script = ? ORDER BY ts DESC LIMIT ?
)`

// CompileRun records one pipeline outcome for a script: whether resolution
// succeeded, the diagnostic text when it did not, and tree size counters.
type CompileRun struct {
	Script      string
	TS          time.Time
	OK          bool
	Diagnostics string
	Nodes       int
	Symbols     int
	Anchors     int
}

// RecordCompileRun appends a compile outcome to the per-script history.
func RecordCompileRun(ctx context.Context, ph *ProjectHandle, run CompileRun) error {
	if ph == nil {
		return errors.New("nil ProjectHandle")
	}
	if run.Script == "" {
		return errors.New("script path is required")
	}
	ts := run.TS
	if ts.IsZero() {
		ts = time.Now()
	}
	db, err := InitOrOpenIndex(ph.Root)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	ok := 0
	if run.OK {
		ok = 1
	}
	_, err = db.ExecContext(ctx, insertCompileRunSQL, run.Script, ts.UTC().Format(time.RFC3339Nano), ok, run.Diagnostics, run.Nodes, run.Symbols, run.Anchors)
	return err
}

// LatestCompileRun returns the most recent recorded run for a script.
// found is false when the script has no history yet.
func LatestCompileRun(ctx context.Context, ph *ProjectHandle, script string) (run CompileRun, found bool, err error) {
	if ph == nil {
		return CompileRun{}, false, errors.New("nil ProjectHandle")
	}
	db, err := InitOrOpenIndex(ph.Root)
	if err != nil {
		return CompileRun{}, false, err
	}
	defer func() { _ = db.Close() }()
	r, err := scanCompileRun(db.QueryRowContext(ctx, selectLatestCompileRunSQL, script))
	if errors.Is(err, sql.ErrNoRows) {
		return CompileRun{}, false, nil
	}
	if err != nil {
		return CompileRun{}, false, err
	}
	r.Script = script
	return r, true, nil
}

// ListCompileRuns returns up to limit most recent runs for a script, newest first.
func ListCompileRuns(ctx context.Context, ph *ProjectHandle, script string, limit int) ([]CompileRun, error) {
	if ph == nil {
		return nil, errors.New("nil ProjectHandle")
	}
	if limit <= 0 {
		limit = 50
	}
	db, err := InitOrOpenIndex(ph.Root)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()
	rows, err := db.QueryContext(ctx, listCompileRunsSQL, script, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []CompileRun
	for rows.Next() {
		r, err := scanCompileRun(rows)
		if err != nil {
			return nil, err
		}
		r.Script = script
		out = append(out, r)
	}
	return out, rows.Err()
}

// PruneCompileRuns keeps at most keepLast runs per script and deletes older ones.
func PruneCompileRuns(ctx context.Context, ph *ProjectHandle, script string, keepLast int) (int64, error) {
	if ph == nil {
		return 0, errors.New("nil ProjectHandle")
	}
	if keepLast <= 0 {
		return 0, nil
	}
	db, err := InitOrOpenIndex(ph.Root)
	if err != nil {
		return 0, err
	}
	defer func() { _ = db.Close() }()
	res, err := db.ExecContext(ctx, pruneCompileRunsSQL, script, script, keepLast)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCompileRun(s rowScanner) (CompileRun, error) {
	var r CompileRun
	var tsStr string
	var ok int
	if err := s.Scan(&tsStr, &ok, &r.Diagnostics, &r.Nodes, &r.Symbols, &r.Anchors); err != nil {
		return CompileRun{}, err
	}
	r.OK = ok != 0
	if ts, err := time.Parse(time.RFC3339Nano, tsStr); err == nil {
		r.TS = ts
	}
	return r, nil
}
