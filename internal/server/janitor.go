package server

import (
	"context"
	"log"
	"time"

	"github.com/gorhill/cronexpr"

	"github.com/Assassin199108/pokemon-agent-backend/internal/store"
	"github.com/Assassin199108/pokemon-agent-backend/internal/webcache"
)

// retention for persisted extraction history
const pruneAfter = 90 * 24 * time.Hour

// Janitor evicts expired cache entries and prunes old extraction records
// on a cron schedule. With no CronSpec it ticks hourly.
type Janitor struct {
	Cache    *webcache.Cache
	Store    *store.Store // nil disables pruning
	CronSpec string
	Stop     chan struct{}

	logger *log.Logger
}

func (j *Janitor) Start() {
	j.logger = log.New(log.Writer(), "[JANITOR] ", log.LstdFlags)
	go j.loop()
}

func (j *Janitor) loop() {
	for {
		timer := time.NewTimer(j.untilNext(time.Now()))
		select {
		case <-j.Stop:
			timer.Stop()
			return
		case <-timer.C:
			j.tick()
		}
	}
}

func (j *Janitor) untilNext(now time.Time) time.Duration {
	if j.logger == nil {
		j.logger = log.New(log.Writer(), "[JANITOR] ", log.LstdFlags)
	}
	if j.CronSpec != "" {
		if expr, err := cronexpr.Parse(j.CronSpec); err == nil {
			if next := expr.Next(now); !next.IsZero() {
				return next.Sub(now)
			}
		} else {
			j.logger.Printf("invalid cleanup_cron %q, falling back to hourly: %v", j.CronSpec, err)
		}
	}
	return time.Hour
}

func (j *Janitor) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := j.Cache.Cleanup(ctx); err != nil {
		j.logger.Printf("cache cleanup: %v", err)
	}
	if j.Store != nil {
		n, err := j.Store.PruneOlderThan(ctx, time.Now().Add(-pruneAfter))
		if err != nil {
			j.logger.Printf("prune extractions: %v", err)
		} else if n > 0 {
			j.logger.Printf("pruned %d old extractions", n)
		}
	}
}
