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
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSourceSnapshotsCRUD(t *testing.T) {
	root := t.TempDir()
	ph := &ProjectHandle{Root: root, ManifestPath: filepath.Join(root, ManifestFileName)}
	ctx := context.Background()
	// Ensure DB exists
	db, err := InitOrOpenIndex(root)
	if err != nil {
		t.Fatalf("InitOrOpenIndex error: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("db.Close error: %v", err)
	}
	if err := SaveSourceSnapshot(ctx, ph, "main.fflow", "hello", time.Now()); err != nil {
		t.Fatalf("SaveSourceSnapshot: %v", err)
	}
	text, _, err := LatestSourceSnapshot(ctx, ph, "main.fflow")
	if err != nil || text != "hello" {
		t.Fatalf("LatestSourceSnapshot got %q err %v", text, err)
	}
	// Add more snapshots
	for i := 0; i < 5; i++ {
		s := string(rune('a' + i))
		if err := SaveSourceSnapshot(ctx, ph, "main.fflow", s, time.Now().Add(time.Duration(i+1)*time.Millisecond)); err != nil {
			t.Fatalf("SaveSourceSnapshot %d: %v", i, err)
		}
	}
	list, err := ListSourceSnapshots(ctx, ph, "main.fflow", 10)
	if err != nil || len(list) != 6 {
		t.Fatalf("ListSourceSnapshots got %d err %v", len(list), err)
	}
	// Snapshots are per script; another path sees none
	text, ts, err := LatestSourceSnapshot(ctx, ph, "other.fflow")
	if err != nil || text != "" || !ts.IsZero() {
		t.Fatalf("expected no snapshot for other.fflow, got %q ts=%v err=%v", text, ts, err)
	}
	// Prune keep last 3
	n, err := PruneSourceSnapshots(ctx, ph, "main.fflow", 3)
	if err != nil {
		t.Fatalf("PruneSourceSnapshots: %v", err)
	}
	if n <= 0 {
		t.Fatalf("expected deletions > 0, got %d", n)
	}
	list, err = ListSourceSnapshots(ctx, ph, "main.fflow", 10)
	if err != nil || len(list) != 3 {
		t.Fatalf("ListSourceSnapshots after prune got %d err %v", len(list), err)
	}
	// Clean up DB file
	_ = os.Remove(IndexPath(root))
}
