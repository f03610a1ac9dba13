// Package dedup answers "is this insight new?" and records deliveries.
//
// Identifier membership in the bounded processed-set is the primary
// mechanism; the publication-time checkpoint is a secondary cheap filter.
// Upstream publication timestamps are not guaranteed strictly monotonic
// or collision-free across edits, so the checkpoint alone is never
// trusted for dedup.
package dedup

import (
	"context"
	"time"

	"insightbot/internal/storage"
	"insightbot/pkg/logx"
)

// Meta captures how an item was actually delivered.
type Meta struct {
	BackgroundKind  string
	BackgroundValue string
}

// Tracker holds both persisted structures in memory for the duration of a
// run, mutating in memory and persisting after each successful commit.
type Tracker struct {
	store storage.Store
	cap   int
	log   logx.Logger

	set   storage.ProcessedSet
	index map[string]struct{}
	cp    storage.Checkpoint

	nowFn func() time.Time
}

// NewTracker loads both state documents once. Missing or corrupt state
// degrades to empty (the store guarantees that), which only risks
// redelivery, never a crash.
func NewTracker(ctx context.Context, store storage.Store, capacity int, log logx.Logger) *Tracker {
	if capacity <= 0 {
		capacity = 200
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	t := &Tracker{
		store: store,
		cap:   capacity,
		log:   log,
		nowFn: time.Now,
	}
	t.set = store.LoadProcessed(ctx)
	t.cp = store.LoadCheckpoint(ctx)

	t.index = make(map[string]struct{}, len(t.set.ProcessedIDs))
	for _, r := range t.set.ProcessedIDs {
		t.index[r.ID] = struct{}{}
	}

	t.log.Debug("dedup state loaded",
		logx.Int("processed", len(t.set.ProcessedIDs)),
		logx.String("checkpoint_id", t.cp.ID))
	return t
}

// IsProcessed reports whether id is in the current bounded record set.
func (t *Tracker) IsProcessed(id string) bool {
	_, ok := t.index[id]
	return ok
}

// Checkpoint returns the current watermark (zero value when unset).
func (t *Tracker) Checkpoint() storage.Checkpoint {
	return t.cp
}

// ProcessedCount returns the number of records currently retained.
func (t *Tracker) ProcessedCount() int {
	return len(t.set.ProcessedIDs)
}

// MarkProcessed records a delivered id. Marking an id that is already
// present is a no-op, so retried batches cannot duplicate records.
// The set is truncated to the newest cap entries before persisting.
// Persistence is best-effort: a failed save is logged and the run
// continues with in-memory state.
func (t *Tracker) MarkProcessed(ctx context.Context, id string, meta Meta) {
	if id == "" {
		return
	}
	if _, ok := t.index[id]; ok {
		return
	}

	t.set.ProcessedIDs = append(t.set.ProcessedIDs, storage.ProcessedRecord{
		ID:              id,
		ProcessedAt:     t.nowFn().UTC(),
		BackgroundKind:  meta.BackgroundKind,
		BackgroundValue: meta.BackgroundValue,
	})
	t.set.TotalCount++
	t.set.LastUpdated = t.nowFn().UTC()

	if n := len(t.set.ProcessedIDs); n > t.cap {
		evicted := t.set.ProcessedIDs[:n-t.cap]
		for _, r := range evicted {
			delete(t.index, r.ID)
		}
		t.set.ProcessedIDs = append([]storage.ProcessedRecord(nil), t.set.ProcessedIDs[n-t.cap:]...)
	}
	t.index[id] = struct{}{}

	if err := t.store.SaveProcessed(ctx, t.set); err != nil {
		t.log.Warn("processed-set save failed; item may be redelivered next run",
			logx.String("id", id), logx.Err(err))
	}
}

// AdvanceCheckpoint moves the watermark to the given item.
func (t *Tracker) AdvanceCheckpoint(ctx context.Context, id string, publishedAt time.Time) {
	t.cp = storage.Checkpoint{
		ID:          id,
		PublishedAt: publishedAt,
		SentAt:      t.nowFn().UTC(),
	}
	if err := t.store.SaveCheckpoint(ctx, t.cp); err != nil {
		t.log.Warn("checkpoint save failed", logx.String("id", id), logx.Err(err))
	}
}
