package calculator

import (
	"fmt"
	"time"

	"go-chi-calculator/internal/observability"

	"github.com/go-co-op/gocron/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var evictedSessions = promauto.NewCounter(prometheus.CounterOpts{
	Name: "calculator_sessions_evicted_total",
	Help: "Calculator sessions dropped after sitting idle past their TTL.",
})

// Sweeper periodically evicts idle sessions from a Store.
type Sweeper struct {
	scheduler gocron.Scheduler
	store     *Store
	ttl       time.Duration
}

// NewSweeper schedules an eviction pass over store every interval. Sessions
// idle for longer than ttl are removed. Call Start to begin sweeping.
func NewSweeper(store *Store, ttl, interval time.Duration) (*Sweeper, error) {
	if ttl <= 0 || interval <= 0 {
		return nil, fmt.Errorf("sweeper needs positive ttl and interval, got ttl=%s interval=%s", ttl, interval)
	}

	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("creating gocron scheduler: %w", err)
	}

	sw := &Sweeper{scheduler: s, store: store, ttl: ttl}

	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() { sw.Sweep() }),
		gocron.WithName("calculator-session-sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, fmt.Errorf("scheduling session sweep: %w", err)
	}

	return sw, nil
}

// Start begins the periodic sweep.
func (sw *Sweeper) Start() {
	sw.scheduler.Start()
}

// Stop waits for a running sweep to finish and stops the scheduler.
func (sw *Sweeper) Stop() error {
	return sw.scheduler.Shutdown()
}

// Sweep runs one eviction pass immediately and returns the number of
// sessions removed.
func (sw *Sweeper) Sweep() int {
	n := sw.store.EvictIdle(sw.ttl)
	if n == 0 {
		return 0
	}

	evictedSessions.Add(float64(n))
	recordSessions(sw.store.Len())

	observability.Logger.Info("evicted idle calculator sessions",
		zap.Int("evicted", n),
		zap.Int("remaining", sw.store.Len()),
		zap.Duration("ttl", sw.ttl),
	)
	return n
}
