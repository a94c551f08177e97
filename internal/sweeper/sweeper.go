// Package sweeper runs the expiry cleanup on a cron schedule. The store
// itself never self-schedules; this is the external trigger.
package sweeper

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/jsahoo/recall/internal/logging"
	"github.com/jsahoo/recall/internal/store"
)

// Sweeper periodically invokes CleanupExpired against one memory store.
type Sweeper struct {
	cron   *cron.Cron
	logger logging.Logger
}

// New builds a sweeper for the given cron schedule (e.g. "@hourly",
// "*/15 * * * *"). The schedule is validated up front.
func New(memories store.MemoryStore, schedule string, logger logging.Logger) (*Sweeper, error) {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}

	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		n, err := memories.CleanupExpired(context.Background())
		if err != nil {
			logger.Error("memory sweep failed", "error", err)
			return
		}
		logger.Info("memory sweep complete", "removed", n)
	})
	if err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}

	return &Sweeper{cron: c, logger: logger}, nil
}

// Start begins running sweeps in the background.
func (s *Sweeper) Start() {
	s.cron.Start()
}

// Stop stops scheduling and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
