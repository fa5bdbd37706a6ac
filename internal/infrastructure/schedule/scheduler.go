// Package schedule is the interval-task primitive shared by the outbox
// relay and the expiry reaper: a ticker on its own goroutine, cancelled
// through the context at shutdown.
package schedule

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Task runs one pass and reports how many items it processed.
type Task func(ctx context.Context) (int, error)

type Scheduler struct {
	name     string
	interval time.Duration
	task     Task
	log      *zap.Logger
}

func New(name string, interval time.Duration, task Task, log *zap.Logger) *Scheduler {
	return &Scheduler{name: name, interval: interval, task: task, log: log}
}

func (s *Scheduler) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.log.Info("scheduler stopped", zap.String("task", s.name))
				return
			case <-ticker.C:
				n, err := s.task(ctx)
				if err != nil {
					s.log.Error("scheduled task failed",
						zap.String("task", s.name), zap.Error(err))
				} else if n > 0 {
					s.log.Info("scheduled task processed items",
						zap.String("task", s.name), zap.Int("count", n))
				}
			}
		}
	}()
}
