package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Pruner deletes delivery records older than a retention window on a
// cron schedule.
type Pruner struct {
	store     *Store
	retention time.Duration
	schedule  string
	cron      *cron.Cron
	logger    *slog.Logger
	now       func() time.Time
}

// NewPruner validates schedule and returns a Pruner. It does not start it.
func NewPruner(store *Store, schedule string, retention time.Duration, logger *slog.Logger) (*Pruner, error) {
	p := &Pruner{
		store:     store,
		retention: retention,
		schedule:  schedule,
		cron:      cron.New(),
		logger:    logger,
		now:       time.Now,
	}

	_, err := p.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := p.PruneOnce(ctx); err != nil {
			p.logger.Error("scheduled audit prune failed", "error", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("parsing prune schedule %q: %w", schedule, err)
	}
	return p, nil
}

// PruneOnce deletes every record older than the retention window.
func (p *Pruner) PruneOnce(ctx context.Context) (int64, error) {
	cutoff := p.now().Add(-p.retention)
	n, err := p.store.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		p.logger.Info("pruned delivery records", "deleted", n, "before", cutoff.UTC().Format(time.RFC3339))
	}
	return n, nil
}

// Run prunes once, then on schedule until ctx is cancelled.
func (p *Pruner) Run(ctx context.Context) {
	if _, err := p.PruneOnce(ctx); err != nil {
		p.logger.Error("initial audit prune failed", "error", err)
	}

	p.logger.Info("starting audit pruner", "cron", p.schedule, "retention", p.retention.String())
	p.cron.Start()

	<-ctx.Done()
	stopCtx := p.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(5 * time.Second):
	}
	p.logger.Info("audit pruner stopped")
}
