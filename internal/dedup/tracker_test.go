package dedup

import (
	"context"
	"fmt"
	"testing"
	"time"

	"insightbot/internal/storage"
	"insightbot/pkg/logx"
)

func newTestTracker(t *testing.T, dir string, capacity int) *Tracker {
	t.Helper()
	st, err := storage.Open(storage.Config{Driver: "file", Dir: dir}, logx.Nop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return NewTracker(context.Background(), st, capacity, logx.Nop())
}

func TestMarkProcessedIdempotent(t *testing.T) {
	dir := t.TempDir()
	tr := newTestTracker(t, dir, 10)
	ctx := context.Background()

	tr.MarkProcessed(ctx, "x-1", Meta{BackgroundKind: "color", BackgroundValue: "#000000"})
	tr.MarkProcessed(ctx, "x-1", Meta{})

	if n := tr.ProcessedCount(); n != 1 {
		t.Fatalf("ProcessedCount = %d, want 1", n)
	}
	if !tr.IsProcessed("x-1") {
		t.Fatal("expected x-1 to be processed")
	}

	// The persisted document holds one entry too.
	reloaded := newTestTracker(t, dir, 10)
	if n := reloaded.ProcessedCount(); n != 1 {
		t.Fatalf("persisted ProcessedCount = %d, want 1", n)
	}
}

func TestBoundedGrowthKeepsNewest(t *testing.T) {
	const capacity = 20
	dir := t.TempDir()
	tr := newTestTracker(t, dir, capacity)
	ctx := context.Background()

	for i := 0; i < capacity+5; i++ {
		tr.MarkProcessed(ctx, fmt.Sprintf("item-%03d", i), Meta{})
	}

	if n := tr.ProcessedCount(); n != capacity {
		t.Fatalf("ProcessedCount = %d, want %d", n, capacity)
	}
	// Oldest five evicted, newest retained.
	for i := 0; i < 5; i++ {
		if tr.IsProcessed(fmt.Sprintf("item-%03d", i)) {
			t.Fatalf("item-%03d should have been evicted", i)
		}
	}
	for i := 5; i < capacity+5; i++ {
		if !tr.IsProcessed(fmt.Sprintf("item-%03d", i)) {
			t.Fatalf("item-%03d should be retained", i)
		}
	}

	reloaded := newTestTracker(t, dir, capacity)
	if n := reloaded.ProcessedCount(); n != capacity {
		t.Fatalf("persisted ProcessedCount = %d, want %d", n, capacity)
	}
	if !reloaded.IsProcessed(fmt.Sprintf("item-%03d", capacity+4)) {
		t.Fatal("newest item missing after reload")
	}
}

func TestCheckpointAdvanceAndReload(t *testing.T) {
	dir := t.TempDir()
	tr := newTestTracker(t, dir, 10)
	ctx := context.Background()

	if !tr.Checkpoint().IsZero() {
		t.Fatal("fresh tracker should have zero checkpoint")
	}

	published := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	tr.AdvanceCheckpoint(ctx, "cp-1", published)

	cp := tr.Checkpoint()
	if cp.ID != "cp-1" || !cp.PublishedAt.Equal(published) {
		t.Fatalf("unexpected checkpoint: %+v", cp)
	}
	if cp.SentAt.IsZero() {
		t.Fatal("SentAt should be set")
	}

	reloaded := newTestTracker(t, dir, 10)
	if got := reloaded.Checkpoint(); got.ID != "cp-1" || !got.PublishedAt.Equal(published) {
		t.Fatalf("checkpoint did not survive reload: %+v", got)
	}
}

func TestTotalCountOutlivesEviction(t *testing.T) {
	dir := t.TempDir()
	tr := newTestTracker(t, dir, 3)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		tr.MarkProcessed(ctx, fmt.Sprintf("n-%d", i), Meta{})
	}
	if tr.set.TotalCount != 5 {
		t.Fatalf("TotalCount = %d, want 5", tr.set.TotalCount)
	}
	if tr.ProcessedCount() != 3 {
		t.Fatalf("ProcessedCount = %d, want 3", tr.ProcessedCount())
	}
}
