package pipeline

import (
	"sort"
	"time"

	"insightbot/internal/feed"
	"insightbot/internal/storage"
)

type skipReason string

const (
	skipTooFresh         skipReason = "younger than min age"
	skipAlreadyProcessed skipReason = "already processed"
	skipBehindCheckpoint skipReason = "at or behind checkpoint"
)

type skipped struct {
	item   feed.Insight
	reason skipReason
}

// eligible orders the fetched batch chronologically (delivery order must
// match publication order) and drops items that are too fresh, already
// processed, or at/behind the checkpoint watermark.
//
// The processed-set check and the checkpoint check must both pass: the
// checkpoint is a cheap pre-filter, never the sole dedup mechanism.
// An item aged exactly minAge is eligible; strictly younger is not.
func eligible(items []feed.Insight, isProcessed func(string) bool, cp storage.Checkpoint, now time.Time, minAge time.Duration) ([]feed.Insight, []skipped) {
	ordered := make([]feed.Insight, len(items))
	copy(ordered, items)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].PublishedAt.Before(ordered[j].PublishedAt)
	})

	var keep []feed.Insight
	var drops []skipped
	for _, it := range ordered {
		switch {
		case now.Sub(it.PublishedAt) < minAge:
			drops = append(drops, skipped{it, skipTooFresh})
		case isProcessed(it.ID):
			drops = append(drops, skipped{it, skipAlreadyProcessed})
		case !cp.IsZero() && !it.PublishedAt.After(cp.PublishedAt):
			drops = append(drops, skipped{it, skipBehindCheckpoint})
		default:
			keep = append(keep, it)
		}
	}
	return keep, drops
}
