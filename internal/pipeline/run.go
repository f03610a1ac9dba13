// Package pipeline orchestrates one batch run: fetch the feed, work out
// which items are genuinely new, and deliver them oldest-first, committing
// each one to the processed-set as it goes.
//
// A run is strictly sequential. Ordering, the inter-message rate limit,
// and race-free state writes all fall out of that; the design assumes the
// operator never overlaps two runs against the same state files.
package pipeline

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"insightbot/internal/dedup"
	"insightbot/internal/delivery"
	"insightbot/internal/feed"
	"insightbot/pkg/logx"
)

// Fetcher retrieves the most recent items, newest first.
type Fetcher interface {
	Fetch(ctx context.Context) ([]feed.Insight, error)
}

// Deliverer sends one insight, handling representation fallback internally.
type Deliverer interface {
	Deliver(ctx context.Context, in feed.Insight) (delivery.Receipt, error)
}

type Config struct {
	// MinAge excludes items published too recently (upstream edit window).
	MinAge time.Duration

	// MessageDelay is the fixed pause between successive deliveries,
	// applied after failed items as well as successful ones.
	MessageDelay time.Duration
}

// Stats summarizes one run. It only feeds logs; the exit code and the
// persisted state are the real outputs.
type Stats struct {
	Fetched   int
	Eligible  int
	Delivered int
	Failed    int
}

type Runner struct {
	fetcher Fetcher
	tracker *dedup.Tracker
	sender  Deliverer
	cfg     Config
	log     logx.Logger

	// limiter at burst 1 degenerates to a fixed inter-message delay:
	// no bursts, no concurrency, just spacing.
	limiter *rate.Limiter

	nowFn func() time.Time
}

func NewRunner(fetcher Fetcher, tracker *dedup.Tracker, sender Deliverer, cfg Config, log logx.Logger) *Runner {
	if cfg.MessageDelay <= 0 {
		cfg.MessageDelay = time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Runner{
		fetcher: fetcher,
		tracker: tracker,
		sender:  sender,
		cfg:     cfg,
		log:     log,
		limiter: rate.NewLimiter(rate.Every(cfg.MessageDelay), 1),
		nowFn:   time.Now,
	}
}

// Run executes one batch. Only fetch failures abort it; a failed item is
// logged, left unmarked (so the next run retries it), and the batch moves
// on to the next item. The checkpoint never advances past a failed item:
// if it did, the next run's eligibility filter would drop the item even
// though it was never delivered.
func (r *Runner) Run(ctx context.Context) (Stats, error) {
	var stats Stats

	items, err := r.fetcher.Fetch(ctx)
	if err != nil {
		return stats, &FetchError{Err: err}
	}
	stats.Fetched = len(items)
	if len(items) == 0 {
		r.log.Info("feed empty, nothing to do")
		return stats, nil
	}

	keep, drops := eligible(items, r.tracker.IsProcessed, r.tracker.Checkpoint(), r.nowFn(), r.cfg.MinAge)
	for _, d := range drops {
		r.log.Debug("item skipped",
			logx.String("id", d.item.ID),
			logx.Time("published_at", d.item.PublishedAt),
			logx.String("reason", string(d.reason)))
	}
	stats.Eligible = len(keep)
	if len(keep) == 0 {
		r.log.Info("no new insights", logx.Int("fetched", stats.Fetched))
		return stats, nil
	}

	r.log.Info("delivering insights", logx.Int("count", len(keep)))
	checkpointHeld := false
	for _, it := range keep {
		if err := r.limiter.Wait(ctx); err != nil {
			return stats, err
		}

		receipt, err := r.sender.Deliver(ctx, it)
		if err != nil {
			stats.Failed++
			checkpointHeld = true
			r.log.Error("delivery failed, item left for next run",
				logx.String("id", it.ID), logx.Err(err))
			continue
		}

		r.tracker.MarkProcessed(ctx, it.ID, dedup.Meta{
			BackgroundKind:  receipt.BackgroundKind,
			BackgroundValue: receipt.BackgroundValue,
		})
		// Items are in ascending publication order, so everything after a
		// failure is newer than the failed item; the processed set alone
		// dedups those, and the watermark waits for the retry.
		if !checkpointHeld {
			r.tracker.AdvanceCheckpoint(ctx, it.ID, it.PublishedAt)
		}
		stats.Delivered++

		r.log.Info("insight delivered",
			logx.String("id", it.ID),
			logx.String("representation", receipt.Representation.String()),
			logx.Int("message_id", receipt.Ref.MessageID))
	}

	r.log.Info("run finished",
		logx.Int("fetched", stats.Fetched),
		logx.Int("eligible", stats.Eligible),
		logx.Int("delivered", stats.Delivered),
		logx.Int("failed", stats.Failed))
	return stats, nil
}
