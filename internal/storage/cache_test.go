/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */

package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/mikezilla14/fountain-flow/internal/domain"
)

func TestArtifactsPutGetAndEvict(t *testing.T) {
	root := t.TempDir()
	ph, err := InitProject(root, domain.Project{Name: "Cache Test"})
	if err != nil || ph == nil {
		t.Fatalf("InitProject: %v", err)
	}
	// Give background index init a moment to settle to avoid lock contention
	time.Sleep(200 * time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Set a tiny cap to force eviction quickly
	os.Setenv("FFLOW_CACHE_MAX_BYTES", "64")
	defer os.Unsetenv("FFLOW_CACHE_MAX_BYTES")

	fp := SourceFingerprint("source text")
	// Insert 3 artifacts of 40 bytes each
	blobA := make([]byte, 40)
	blobB := make([]byte, 40)
	blobC := make([]byte, 40)
	if err := PutArtifact(ctx, ph.Root, "a.fflow", "renpy", fp, blobA); err != nil {
		t.Fatalf("put A: %v", err)
	}
	time.Sleep(10 * time.Millisecond) // different access times
	if err := PutArtifact(ctx, ph.Root, "b.fflow", "renpy", fp, blobB); err != nil {
		t.Fatalf("put B: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	if err := PutArtifact(ctx, ph.Root, "c.fflow", "renpy", fp, blobC); err != nil {
		t.Fatalf("put C: %v", err)
	}

	// Cap is 64 bytes; after inserts total 120 -> eviction should have occurred, leaving last inserted(s)
	total, err := TotalArtifactBytes(ctx, ph.Root)
	if err != nil {
		t.Fatalf("total: %v", err)
	}
	if total > 64 {
		t.Fatalf("expected eviction to <=64 bytes, got %d", total)
	}

	// Access one survivor (if present)
	_, _ = GetArtifact(ctx, ph.Root, "b.fflow", "renpy", fp)
	// Insert another 40-byte; should evict oldest by last_access
	if err := PutArtifact(ctx, ph.Root, "d.fflow", "renpy", fp, make([]byte, 40)); err != nil {
		t.Fatalf("put D: %v", err)
	}
	if total2, err := TotalArtifactBytes(ctx, ph.Root); err != nil || total2 > 64 {
		t.Fatalf("post total: %v / %d", err, total2)
	}
}

func TestGetOrRenderArtifact(t *testing.T) {
	root := t.TempDir()
	ph, err := InitProject(root, domain.Project{Name: "Cache Render"})
	if err != nil || ph == nil {
		t.Fatalf("InitProject: %v", err)
	}
	// Allow background indexer to settle
	time.Sleep(200 * time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	calls := 0
	gen := func(context.Context) ([]byte, error) { calls++; return []byte("label start:"), nil }
	fp := SourceFingerprint("v1")
	b, err := GetOrRenderArtifact(ctx, ph.Root, "main.fflow", "renpy", fp, gen)
	if err != nil {
		t.Fatalf("getOrRender: %v", err)
	}
	if string(b) != "label start:" {
		t.Fatalf("unexpected data: %q", string(b))
	}
	// Second call should hit cache and not call generator
	b, err = GetOrRenderArtifact(ctx, ph.Root, "main.fflow", "renpy", fp, gen)
	if err != nil {
		t.Fatalf("getOrRender 2: %v", err)
	}
	if calls != 1 {
		t.Fatalf("generator should be called once, got %d", calls)
	}
	// A changed source fingerprint invalidates the cached blob
	fp2 := SourceFingerprint("v2")
	if _, err := GetOrRenderArtifact(ctx, ph.Root, "main.fflow", "renpy", fp2, gen); err != nil {
		t.Fatalf("getOrRender 3: %v", err)
	}
	if calls != 2 {
		t.Fatalf("stale fingerprint should re-render, calls=%d", calls)
	}
}
