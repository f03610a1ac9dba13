package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"insightbot/pkg/logx"
)

func openTestStore(t *testing.T) (Store, string) {
	t.Helper()
	dir := t.TempDir()
	st, err := Open(Config{Driver: "file", Dir: dir}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st, dir
}

func TestLoadMissingFilesReturnsEmpty(t *testing.T) {
	st, _ := openTestStore(t)
	ctx := context.Background()

	set := st.LoadProcessed(ctx)
	if len(set.ProcessedIDs) != 0 || set.TotalCount != 0 {
		t.Fatalf("expected empty processed set, got %+v", set)
	}
	cp := st.LoadCheckpoint(ctx)
	if !cp.IsZero() {
		t.Fatalf("expected zero checkpoint, got %+v", cp)
	}
}

func TestLoadCorruptFilesReturnsEmpty(t *testing.T) {
	st, dir := openTestStore(t)
	ctx := context.Background()

	for _, name := range []string{processedFile, checkpointFile} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("{not json"), 0o644); err != nil {
			t.Fatalf("write corrupt %s: %v", name, err)
		}
	}

	if set := st.LoadProcessed(ctx); len(set.ProcessedIDs) != 0 {
		t.Fatalf("expected empty set from corrupt file, got %+v", set)
	}
	if cp := st.LoadCheckpoint(ctx); !cp.IsZero() {
		t.Fatalf("expected zero checkpoint from corrupt file, got %+v", cp)
	}
}

func TestLoadTypeMismatchedFilesReturnsEmpty(t *testing.T) {
	st, dir := openTestStore(t)
	ctx := context.Background()

	// Valid JSON, wrong field types. json.Unmarshal fills what it can
	// before reporting the type error; none of it may leak out.
	processed := `{"processedIds":[{"id":"ghost","processedAt":"2026-01-01T00:00:00Z"}],"totalCount":"seven"}`
	if err := os.WriteFile(filepath.Join(dir, processedFile), []byte(processed), 0o644); err != nil {
		t.Fatalf("write processed: %v", err)
	}
	checkpoint := `{"id":"ghost","publishedAt":12345}`
	if err := os.WriteFile(filepath.Join(dir, checkpointFile), []byte(checkpoint), 0o644); err != nil {
		t.Fatalf("write checkpoint: %v", err)
	}

	if set := st.LoadProcessed(ctx); len(set.ProcessedIDs) != 0 || set.TotalCount != 0 {
		t.Fatalf("expected empty set from mismatched file, got %+v", set)
	}
	if cp := st.LoadCheckpoint(ctx); !cp.IsZero() {
		t.Fatalf("expected zero checkpoint from mismatched file, got %+v", cp)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	st, dir := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	set := ProcessedSet{
		ProcessedIDs: []ProcessedRecord{
			{ID: "a", ProcessedAt: now.Add(-2 * time.Minute), BackgroundKind: "color", BackgroundValue: "#112233"},
			{ID: "b", ProcessedAt: now, BackgroundKind: "image", BackgroundValue: "https://example.com/bg.jpg"},
		},
		LastUpdated: now,
		TotalCount:  7,
	}
	if err := st.SaveProcessed(ctx, set); err != nil {
		t.Fatalf("SaveProcessed: %v", err)
	}
	cp := Checkpoint{ID: "b", PublishedAt: now.Add(-time.Hour), SentAt: now}
	if err := st.SaveCheckpoint(ctx, cp); err != nil {
		t.Fatalf("SaveCheckpoint: %v", err)
	}

	got := st.LoadProcessed(ctx)
	if len(got.ProcessedIDs) != 2 || got.ProcessedIDs[0].ID != "a" || got.ProcessedIDs[1].ID != "b" {
		t.Fatalf("unexpected processed set: %+v", got)
	}
	if got.TotalCount != 7 {
		t.Fatalf("TotalCount = %d, want 7", got.TotalCount)
	}

	gotCP := st.LoadCheckpoint(ctx)
	if gotCP.ID != "b" || !gotCP.PublishedAt.Equal(cp.PublishedAt) {
		t.Fatalf("unexpected checkpoint: %+v", gotCP)
	}

	// No temp files left behind after a successful save.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".tmp" {
			t.Fatalf("stray temp file %s", e.Name())
		}
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open(Config{Driver: "redis", Dir: t.TempDir()}, logx.Nop()); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}
