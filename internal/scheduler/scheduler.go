// Package scheduler runs jobs at fixed wall-clock times in a configured
// timezone. Jobs fire at the next matching instant rather than on a drifting
// interval, so an hourly job lands on the minute regardless of start time.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/topicradar/topicradar/internal/logger"
)

type job struct {
	name string
	next func(now time.Time) time.Time
	fn   func(ctx context.Context)
}

type Scheduler struct {
	loc  *time.Location
	jobs []job
}

func New(loc *time.Location) *Scheduler {
	return &Scheduler{loc: loc}
}

// AddHourly registers a job firing once per hour at the given minute.
func (s *Scheduler) AddHourly(name string, minute int, fn func(ctx context.Context)) {
	s.jobs = append(s.jobs, job{
		name: name,
		fn:   fn,
		next: func(now time.Time) time.Time {
			now = now.In(s.loc)
			next := time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), minute, 0, 0, s.loc)
			if !next.After(now) {
				next = next.Add(time.Hour)
			}
			return next
		},
	})
}

// AddDaily registers a job firing once per day at the given time.
func (s *Scheduler) AddDaily(name string, hour, minute int, fn func(ctx context.Context)) {
	s.jobs = append(s.jobs, job{
		name: name,
		fn:   fn,
		next: func(now time.Time) time.Time {
			now = now.In(s.loc)
			next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, s.loc)
			if !next.After(now) {
				next = next.AddDate(0, 0, 1)
			}
			return next
		},
	})
}

// Run blocks until the context is canceled, driving every registered job in
// its own goroutine. Job functions run sequentially per job; a slow run
// simply delays that job's next firing.
func (s *Scheduler) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, j := range s.jobs {
		wg.Add(1)
		go func(j job) {
			defer wg.Done()
			s.runJob(ctx, j)
		}(j)
	}
	wg.Wait()
}

func (s *Scheduler) runJob(ctx context.Context, j job) {
	for {
		next := j.next(time.Now())
		logger.Debug("job scheduled", "job", j.name, "at", next.Format(time.RFC3339))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		logger.Info("job firing", "job", j.name)
		j.fn(ctx)
	}
}
