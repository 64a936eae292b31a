package editlock

import (
	"context"
	"fmt"
	"fyrewiki/internal/logger"
	"strings"
	"time"
)

// Sweepable is the part of the Coordinator a Sweeper drives.
type Sweepable interface {
	Sweep(now time.Time, threshold time.Duration) []string
}

// Sweeper periodically expires inactive locks.
type Sweeper struct {
	target    Sweepable
	interval  time.Duration
	threshold time.Duration
	log       logger.Logger
	now       func() time.Time
}

// Defaults used when a non-positive interval or threshold is configured.
const (
	DefaultSweepInterval = 3 * time.Second
	DefaultThreshold     = 20 * time.Second
)

// NewSweeper returns a Sweeper that calls target.Sweep every interval.
func NewSweeper(target Sweepable, interval, threshold time.Duration, log logger.Logger) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Sweeper{
		target:    target,
		interval:  interval,
		threshold: threshold,
		log:       log,
		now:       time.Now,
	}
}

// Start runs the sweep loop in a goroutine. Call the returned func to stop it.
func (s *Sweeper) Start() (stop func()) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Run(ctx)
	}()
	return func() {
		cancel()
		<-done
	}
}

// Run sweeps on every tick until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SweepOnce()
		}
	}
}

// SweepOnce runs a single sweep. A panic inside the sweep is logged and
// swallowed so the loop keeps running.
func (s *Sweeper) SweepOnce() (released []string) {
	defer func() {
		if rec := recover(); rec != nil {
			err, ok := rec.(error)
			if !ok {
				err = fmt.Errorf("%v", rec)
			}
			s.log.Error(err, "Lock sweep panicked")
			released = nil
		}
	}()

	released = s.target.Sweep(s.now(), s.threshold)
	if len(released) > 0 {
		s.log.Info(fmt.Sprintf("Released inactive edit locks: %s", strings.Join(released, ", ")))
	}
	return released
}
