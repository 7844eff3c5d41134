// Package poller re-fetches the order list on a fixed interval while a list
// view is active, mirroring the mobile client's visibility timer and
// foreground-resume listener. Every tick is a plain re-invocation of the
// refresh; whichever response lands last wins.
package poller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// RefreshFunc performs one refresh of the order collection.
type RefreshFunc func(ctx context.Context) error

type Poller struct {
	cron     *cron.Cron
	refresh  RefreshFunc
	interval time.Duration
	timeout  time.Duration
	logger   *logrus.Entry

	// tracks the immediate and resume ticks, which run outside the cron
	// schedule; Stop waits for these too
	wg sync.WaitGroup
}

func New(refresh RefreshFunc, interval time.Duration, logger *logrus.Logger) *Poller {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Poller{
		cron:     cron.New(),
		refresh:  refresh,
		interval: interval,
		timeout:  interval,
		logger:   logger.WithField("component", "poller"),
	}
}

// Start schedules the periodic refresh and runs one immediately so the view
// never waits a full interval for its first data.
func (p *Poller) Start() error {
	spec := fmt.Sprintf("@every %s", p.interval)
	if _, err := p.cron.AddFunc(spec, p.tick); err != nil {
		return fmt.Errorf("failed to schedule refresh: %w", err)
	}
	p.cron.Start()
	p.tickAsync()
	p.logger.WithField("interval", p.interval.String()).Info("order refresh poller started")
	return nil
}

// Resume triggers an immediate refresh, e.g. when the app returns to the
// foreground. The periodic schedule is unaffected. Must not be called after
// Stop.
func (p *Poller) Resume() {
	p.tickAsync()
}

// Stop halts the schedule and waits for every tick still running, scheduled
// or triggered; none lands after Stop returns.
func (p *Poller) Stop() {
	ctx := p.cron.Stop()
	<-ctx.Done()
	p.wg.Wait()
	p.logger.Info("order refresh poller stopped")
}

func (p *Poller) tickAsync() {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.tick()
	}()
}

func (p *Poller) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	if err := p.refresh(ctx); err != nil {
		// Polling keeps going; a failed tick just means stale data until the
		// next one.
		p.logger.WithError(err).Warn("periodic refresh failed")
	}
}
