package subscription

import (
	"time"

	"github.com/robfig/cron/v3"
)

// tickInterval is how often the schedule checks whether the cache needs a
// refresh. It is shorter than the freshness window so a refresh happens soon
// after expiry even when nothing reads the cache.
const tickInterval = 5 * time.Minute

// scheduler drives the periodic freshness checks. It owns the underlying cron
// runner; stop releases it and is safe to call on a runner that never started.
type scheduler struct {
	cron *cron.Cron
}

func newScheduler(job func()) *scheduler {
	c := cron.New()
	c.Schedule(cron.Every(tickInterval), cron.FuncJob(job))
	return &scheduler{cron: c}
}

func (s *scheduler) start() {
	s.cron.Start()
}

func (s *scheduler) stop() {
	s.cron.Stop()
}
