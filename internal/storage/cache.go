/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */

package storage

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// The artifacts table caches rendered backend output (Ren'Py, Twee, JSON, ...)
// per script so repeated exports of an unchanged source skip the pipeline.
// Entries are keyed by (script, backend); the fingerprint of the source text
// decides whether a cached blob is still current.

// SourceFingerprint returns the cache fingerprint for a script source text.
func SourceFingerprint(src string) string {
	sum := sha256.Sum256([]byte(src))
	return hex.EncodeToString(sum[:])
}

// GetArtifact returns the cached blob for (script, backend) when its stored
// fingerprint matches, updating last_access. A miss or a stale fingerprint
// returns nil bytes and no error.
func GetArtifact(ctx context.Context, projectRoot string, script, backend, fingerprint string) ([]byte, error) {
	db, err := InitOrOpenIndex(projectRoot)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	var blob []byte
	var got string
	err = db.QueryRowContext(ctx, `SELECT blob, fingerprint FROM artifacts WHERE script=? AND backend=?`, script, backend).Scan(&blob, &got)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query artifact: %w", err)
	}
	if fingerprint != "" && got != fingerprint {
		return nil, nil
	}
	// touch
	now := time.Now().UTC().Format(time.RFC3339)
	_, _ = db.ExecContext(ctx, `UPDATE artifacts SET last_access=? WHERE script=? AND backend=?`, now, script, backend)
	return blob, nil
}

// PutArtifact upserts a rendered blob and enforces the cache size cap via LRU eviction.
func PutArtifact(ctx context.Context, projectRoot string, script, backend, fingerprint string, blob []byte) error {
	if script == "" || backend == "" {
		return errors.New("script and backend are required")
	}
	db, err := InitOrOpenIndex(projectRoot)
	if err != nil {
		return err
	}
	defer db.Close()
	now := time.Now().UTC().Format(time.RFC3339)
	size := len(blob)
	_, err = db.ExecContext(ctx, `INSERT INTO artifacts(script,backend,fingerprint,blob,size,updated_at,last_access)
		VALUES(?,?,?,?,?,?,?)
		ON CONFLICT(script,backend) DO UPDATE SET fingerprint=excluded.fingerprint, blob=excluded.blob, size=excluded.size, updated_at=excluded.updated_at, last_access=excluded.last_access`,
		script, backend, fingerprint, blob, size, now, now)
	if err != nil {
		return fmt.Errorf("upsert artifact: %w", err)
	}
	// Enforce cap
	capBytes := MaxArtifactBytesFromEnv()
	if capBytes > 0 {
		if err := EvictArtifactsToFit(ctx, db, capBytes); err != nil {
			return err
		}
	}
	return nil
}

// GetOrRenderArtifact fetches a current cached artifact or renders and stores
// it using the provided generator.
func GetOrRenderArtifact(ctx context.Context, projectRoot string, script, backend, fingerprint string, gen func(context.Context) ([]byte, error)) ([]byte, error) {
	if b, err := GetArtifact(ctx, projectRoot, script, backend, fingerprint); err != nil {
		return nil, err
	} else if b != nil {
		return b, nil
	}
	if gen == nil {
		return nil, nil
	}
	data, err := gen(ctx)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}
	if err := PutArtifact(ctx, projectRoot, script, backend, fingerprint, data); err != nil {
		return nil, err
	}
	return data, nil
}

// EvictArtifactsToFit deletes least-recently-used rows until total size <= capBytes.
func EvictArtifactsToFit(ctx context.Context, db *sql.DB, capBytes int64) error {
	var total int64
	if err := db.QueryRowContext(ctx, `SELECT COALESCE(SUM(size),0) FROM artifacts`).Scan(&total); err != nil {
		return fmt.Errorf("sum artifact size: %w", err)
	}
	if total <= capBytes {
		return nil
	}
	// Select victim ids ordered by last_access asc (oldest first), NULLs first
	rows, err := db.QueryContext(ctx, `SELECT id, size FROM artifacts ORDER BY
		CASE WHEN last_access IS NULL THEN 0 ELSE 1 END ASC, last_access ASC`)
	if err != nil {
		return fmt.Errorf("select victims: %w", err)
	}
	toDelete := make([]int64, 0, 32)
	var cur = total
	for rows.Next() {
		var id int64
		var sz int64
		if err := rows.Scan(&id, &sz); err != nil {
			_ = rows.Close()
			return err
		}
		toDelete = append(toDelete, id)
		cur -= sz
		if cur <= capBytes {
			break
		}
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	// Important: close the rows cursor before attempting to write
	if err := rows.Close(); err != nil {
		return err
	}
	if len(toDelete) == 0 {
		return nil
	}
	args := make([]any, len(toDelete))
	for i, v := range toDelete {
		args[i] = v
	}
	q := "DELETE FROM artifacts WHERE id IN (" + placeholders(len(toDelete)) + ")"
	if _, err := db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("evict delete: %w", err)
	}
	return nil
}

// TotalArtifactBytes returns total bytes tracked by artifacts.size
func TotalArtifactBytes(ctx context.Context, projectRoot string) (int64, error) {
	db, err := InitOrOpenIndex(projectRoot)
	if err != nil {
		return 0, err
	}
	defer db.Close()
	var total int64
	if err := db.QueryRowContext(ctx, `SELECT COALESCE(SUM(size),0) FROM artifacts`).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// MaxArtifactBytesFromEnv reads FFLOW_CACHE_MAX_BYTES, defaulting to 64MB if unset.
// Rendered artifacts are text, so the default cap is deliberately modest.
func MaxArtifactBytesFromEnv() int64 {
	v := os.Getenv("FFLOW_CACHE_MAX_BYTES")
	if v == "" {
		return 64 * 1024 * 1024 // 64MB
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return 64 * 1024 * 1024
	}
	return n
}
