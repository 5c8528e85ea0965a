package server

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/gorhill/cronexpr"
	"github.com/redis/go-redis/v9"

	"github.com/mohammad-safakhou/netresearch/internal/agent/core"
	"github.com/mohammad-safakhou/netresearch/internal/runs"
	"github.com/mohammad-safakhou/netresearch/internal/store"
)

// Scheduler fires due watches: each firing creates a fresh registry run and
// launches the orchestrator exactly like the HTTP trigger does.
type Scheduler struct {
	Store    *store.Store
	Registry runs.Registry
	Orch     *core.Orchestrator
	Rdb      *redis.Client // optional, guards against duplicate firing across replicas
	Interval time.Duration
	Stop     chan struct{}
	Logger   *log.Logger
}

func (s *Scheduler) Start() {
	if s.Logger == nil {
		s.Logger = log.New(log.Writer(), "[SCHED] ", log.LstdFlags)
	}
	if s.Interval <= 0 {
		s.Interval = time.Minute
	}
	ticker := time.NewTicker(s.Interval)
	go func() {
		for {
			select {
			case <-s.Stop:
				ticker.Stop()
				return
			case <-ticker.C:
				s.tick()
			}
		}
	}()
}

func (s *Scheduler) tick() {
	ctx := context.Background()
	watches, err := s.Store.ListWatches(ctx)
	if err != nil {
		s.Logger.Printf("list watches: %v", err)
		return
	}
	now := time.Now()
	for _, w := range watches {
		if !isDue(w.CronExpr, w.LastRunAt, now) {
			continue
		}
		if s.Rdb != nil {
			lockKey := "watch:lock:" + w.ID
			ok, _ := s.Rdb.SetNX(ctx, lockKey, "1", 2*time.Minute).Result()
			if !ok {
				continue
			}
		}

		runID := uuid.NewString()
		s.Registry.Create(runID, w.Query, nil, w.MaxNodes)
		go s.Orch.Execute(context.Background(), runID)

		if err := s.Store.MarkWatchRun(ctx, w.ID, runID, now); err != nil {
			s.Logger.Printf("mark watch %s: %v", w.ID, err)
		}
		s.Logger.Printf("watch %s fired run %s (query %q)", w.ID, runID, w.Query)
	}
}

// isDue reports whether a watch with the given schedule should fire now.
// Supports "@daily", "@hourly" and 5-field cron expressions; a watch that
// never ran is always due, and an unparseable expression degrades to
// @daily.
func isDue(cronSpec string, last *time.Time, now time.Time) bool {
	if last == nil {
		return true
	}
	switch cronSpec {
	case "@daily":
		return now.Sub(*last) >= 24*time.Hour
	case "@hourly":
		return now.Sub(*last) >= time.Hour
	default:
		expr, err := cronexpr.Parse(cronSpec)
		if err != nil {
			return now.Sub(*last) >= 24*time.Hour
		}
		return !expr.Next(*last).After(now)
	}
}
