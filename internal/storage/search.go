/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// SearchQuery describes the in-project search request.
// Text uses SQLite FTS5 syntax (simple terms, phrases in quotes, AND/OR/NOT).
// Filters are optional. Speaker matches the dialogue cue name; Scene matches
// against the enclosing scene heading. Kinds can restrict to document kinds
// like: dialogue, action, scene, anchor, jump, choice, option, variable, asset.
// LineFrom/To are inclusive source-line bounds; 0 means unset.
// Limit/Offset implement pagination; reasonable defaults applied if zero.
type SearchQuery struct {
	Text     string
	Speaker  string
	Scene    string
	Script   string
	Kinds    []string
	LineFrom int
	LineTo   int
	Limit    int
	Offset   int
}

// SearchResult represents a single match row.
// Snippet is an optional highlighted excerpt using [ ] markers when FTS text is used.
// Line is 0 for manifest-level documents.
// DocID can be used with WhereUsed to find references.
type SearchResult struct {
	DocID   int64
	Kind    string
	Script  string
	Line    int
	Speaker string
	Snippet string
}

// Search performs full-text search with optional filters over the embedded index.
// When q.Text is empty, it falls back to a non-FTS scan over documents with filters applied.
func Search(ctx context.Context, projectRoot string, q SearchQuery) ([]SearchResult, error) {
	if strings.TrimSpace(projectRoot) == "" {
		return nil, errors.New("project root is required")
	}
	db, err := InitOrOpenIndex(projectRoot)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return searchDB(ctx, db, q)
}

func searchDB(ctx context.Context, db *sql.DB, q SearchQuery) ([]SearchResult, error) {
	// Build dynamic SQL
	var args []any
	var sb strings.Builder
	useFTS := strings.TrimSpace(q.Text) != ""
	if useFTS {
		sb.WriteString("SELECT d.doc_id, d.kind, d.script, COALESCE(d.line,0), COALESCE(d.speaker,''), snippet(fts_documents, 0, '[', ']', '…', 10)\n")
		sb.WriteString("FROM fts_documents JOIN documents d ON fts_documents.rowid = d.doc_id\n")
		sb.WriteString("WHERE fts_documents MATCH ?\n")
		args = append(args, q.Text)
	} else {
		sb.WriteString("SELECT d.doc_id, d.kind, d.script, COALESCE(d.line,0), COALESCE(d.speaker,''), ''\n")
		sb.WriteString("FROM documents d\nWHERE 1=1\n")
	}
	// Filters
	// Kinds filter (IN list)
	if len(q.Kinds) > 0 {
		sb.WriteString(" AND d.kind IN (" + placeholders(len(q.Kinds)) + ")\n")
		for _, k := range q.Kinds {
			args = append(args, k)
		}
	}
	// Script filter (manifest-relative path)
	if s := strings.TrimSpace(q.Script); s != "" {
		sb.WriteString(" AND d.script = ?\n")
		args = append(args, s)
	}
	// Line range
	if q.LineFrom > 0 && q.LineTo > 0 && q.LineTo >= q.LineFrom {
		sb.WriteString(" AND d.line BETWEEN ? AND ?\n")
		args = append(args, q.LineFrom, q.LineTo)
	} else if q.LineFrom > 0 {
		sb.WriteString(" AND d.line >= ?\n")
		args = append(args, q.LineFrom)
	} else if q.LineTo > 0 {
		sb.WriteString(" AND d.line <= ?\n")
		args = append(args, q.LineTo)
	}
	// Speaker filter: prefer the dialogue cue column, else fallback to text contains
	if s := strings.TrimSpace(q.Speaker); s != "" {
		ss := strings.ToLower(s)
		sb.WriteString(" AND ( (d.speaker IS NOT NULL AND lower(d.speaker)=?) OR lower(d.text) LIKE ? )\n")
		args = append(args, ss, likeContains(ss))
	}
	// Scene filter: the enclosing heading carried on each row
	if s := strings.TrimSpace(q.Scene); s != "" {
		sb.WriteString(" AND lower(d.scene) LIKE ?\n")
		args = append(args, likeContains(strings.ToLower(s)))
	}
	// Order and pagination
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	sb.WriteString("ORDER BY d.script, d.line NULLS LAST, d.doc_id\n")
	sb.WriteString("LIMIT ? OFFSET ?")
	args = append(args, limit, q.Offset)

	rows, err := db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer rows.Close()
	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		var line sql.NullInt64
		var sn sql.NullString
		if err := rows.Scan(&r.DocID, &r.Kind, &r.Script, &line, &r.Speaker, &sn); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if line.Valid {
			r.Line = int(line.Int64)
		}
		if sn.Valid {
			r.Snippet = sn.String
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// WhereUsed returns documents that reference the given target document ID using cross_refs.
// For an anchor document this lists every jump that targets it.
func WhereUsed(ctx context.Context, projectRoot string, targetDocID int64, limit, offset int) ([]SearchResult, error) {
	if strings.TrimSpace(projectRoot) == "" {
		return nil, errors.New("project root is required")
	}
	db, err := InitOrOpenIndex(projectRoot)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	q := `SELECT d.doc_id, d.kind, d.script, COALESCE(d.line,0), COALESCE(d.speaker,''), ''
		FROM cross_refs x
		JOIN documents d ON d.doc_id = x.from_id
		WHERE x.to_id = ?
		ORDER BY d.script, d.line NULLS LAST, d.doc_id
		LIMIT ? OFFSET ?`
	rows, err := db.QueryContext(ctx, q, targetDocID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("where-used query: %w", err)
	}
	defer rows.Close()
	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		var line sql.NullInt64
		if err := rows.Scan(&r.DocID, &r.Kind, &r.Script, &line, &r.Speaker, &r.Snippet); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if line.Valid {
			r.Line = int(line.Int64)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// WhereUsedByAnchor resolves an anchor document by script path and anchor name,
// then returns the jumps that target it.
func WhereUsedByAnchor(ctx context.Context, projectRoot string, script, anchor string, limit, offset int) ([]SearchResult, error) {
	if strings.TrimSpace(anchor) == "" {
		return nil, errors.New("anchor name is required")
	}
	db, err := InitOrOpenIndex(projectRoot)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	var id int64
	err = db.QueryRowContext(ctx, "SELECT doc_id FROM documents WHERE kind='anchor' AND script=? AND text=?", script, anchor).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []SearchResult{}, nil
		}
		return nil, err
	}
	return WhereUsed(ctx, projectRoot, id, limit, offset)
}

func likeContains(s string) string { return "%" + s + "%" }

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	b := strings.Builder{}
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("?")
	}
	return b.String()
}
