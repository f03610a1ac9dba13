package schedule

import (
	"context"
	"sync/atomic"
	"time"

	sd "github.com/coreos/go-systemd/v22/daemon"
	"github.com/robfig/cron/v3"

	"insightbot/pkg/logx"
)

// Runner triggers the batch function on the parsed schedule until ctx is
// cancelled. Ticks never overlap: a tick that fires while a batch is
// still running is skipped, which preserves the single-active-run
// assumption the state files depend on.
type Runner struct {
	spec Spec
	run  func(ctx context.Context) error
	log  logx.Logger

	busy atomic.Bool
}

func NewRunner(spec Spec, run func(ctx context.Context) error, log logx.Logger) *Runner {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Runner{spec: spec, run: run, log: log}
}

// Start blocks until ctx is done. The first batch runs immediately; later
// ones follow the schedule. Batch errors are logged, never fatal to the
// daemon.
func (r *Runner) Start(ctx context.Context) error {
	// Best-effort readiness for systemd units with Type=notify.
	if _, err := sd.SdNotify(false, sd.SdNotifyReady); err != nil {
		r.log.Debug("sd_notify unavailable", logx.Err(err))
	}
	defer func() {
		_, _ = sd.SdNotify(false, sd.SdNotifyStopping)
	}()

	r.tick(ctx)

	switch r.spec.Kind {
	case KindCron:
		parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
		c := cron.New(cron.WithParser(parser))
		if _, err := c.AddFunc(r.spec.Cron, func() { r.tick(ctx) }); err != nil {
			return err
		}
		c.Start()
		<-ctx.Done()
		stopped := c.Stop()
		<-stopped.Done()
	case KindInterval:
		t := time.NewTicker(r.spec.Every)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-t.C:
				r.tick(ctx)
			}
		}
	}
	return nil
}

func (r *Runner) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if !r.busy.CompareAndSwap(false, true) {
		r.log.Warn("previous batch still running, tick skipped")
		return
	}
	defer r.busy.Store(false)

	start := time.Now()
	if err := r.run(ctx); err != nil {
		r.log.Error("batch failed", logx.Err(err), logx.Duration("took", time.Since(start)))
		return
	}
	r.log.Debug("batch done", logx.Duration("took", time.Since(start)))
}
