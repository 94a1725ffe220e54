/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */
package backend

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/mikezilla14/fountain-flow/internal/storage"
)

// SearchPG executes a search over the Postgres documents mirror using tsvector
// and filters and returns results mapped to storage.SearchResult so the local
// and hosted indexes can be compared row for row.
func SearchPG(ctx context.Context, db *sql.DB, storyID int64, q storage.SearchQuery) ([]storage.SearchResult, error) {
	var (
		args []any
		b    strings.Builder
	)
	useFTS := strings.TrimSpace(q.Text) != ""
	if useFTS {
		b.WriteString("SELECT d.id AS doc_id, d.kind, d.script, COALESCE(d.line,0), COALESCE(d.speaker,''), ")
		b.WriteString("COALESCE(ts_headline('simple', COALESCE(d.raw_text,''), plainto_tsquery('simple', $1), 'StartSel=[, StopSel=], MaxFragments=1, MaxWords=10'), '') AS snippet ")
		b.WriteString("FROM documents d WHERE d.story_id = $2 AND d.search_vector @@ plainto_tsquery('simple', $1) ")
		args = append(args, q.Text, storyID)
	} else {
		b.WriteString("SELECT d.id AS doc_id, d.kind, d.script, COALESCE(d.line,0), COALESCE(d.speaker,''), '' AS snippet ")
		b.WriteString("FROM documents d WHERE d.story_id = $1 ")
		args = append(args, storyID)
	}

	// Helper to add parameter and return placeholder like $n
	place := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	// Kinds filter
	if len(q.Kinds) > 0 {
		b.WriteString(" AND d.kind = ANY (" + place(q.Kinds) + ") ")
	}
	// Script filter (manifest-relative path)
	if s := strings.TrimSpace(q.Script); s != "" {
		b.WriteString(" AND d.script = " + place(s) + " ")
	}
	// Line range
	if q.LineFrom > 0 && q.LineTo > 0 && q.LineTo >= q.LineFrom {
		b.WriteString(" AND d.line BETWEEN " + place(q.LineFrom) + " AND " + place(q.LineTo) + " ")
	} else if q.LineFrom > 0 {
		b.WriteString(" AND d.line >= " + place(q.LineFrom) + " ")
	} else if q.LineTo > 0 {
		b.WriteString(" AND d.line <= " + place(q.LineTo) + " ")
	}
	// Speaker filter: prefer the dialogue cue column, else fallback to text contains
	if s := strings.TrimSpace(q.Speaker); s != "" {
		ss := strings.ToLower(s)
		b.WriteString(" AND ( (d.speaker IS NOT NULL AND lower(d.speaker) = " + place(ss) + ") OR lower(COALESCE(d.raw_text,'')) LIKE " + place("%"+ss+"%") + " ) ")
	}
	// Scene filter: the enclosing heading carried on each row
	if s := strings.TrimSpace(q.Scene); s != "" {
		b.WriteString(" AND lower(COALESCE(d.scene,'')) LIKE " + place("%"+strings.ToLower(s)+"%") + " ")
	}
	// Order and pagination
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}
	b.WriteString(" ORDER BY d.script, d.line NULLS LAST, d.id ")
	b.WriteString(" LIMIT " + place(limit) + " OFFSET " + place(offset))

	rows, err := db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("search pg query: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []storage.SearchResult
	for rows.Next() {
		var r storage.SearchResult
		if err := rows.Scan(&r.DocID, &r.Kind, &r.Script, &r.Line, &r.Speaker, &r.Snippet); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
