package attendance

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/logging"
)

// Scheduler runs the absence sweep on a cron schedule.
type Scheduler struct {
	cron    *cron.Cron
	sweeper *Sweeper
	loc     *time.Location
	timeout time.Duration
}

// NewScheduler registers a sweep on spec (standard five-field cron syntax)
// evaluated in loc. Overlapping runs are skipped.
func NewScheduler(sweeper *Sweeper, spec string, loc *time.Location) (*Scheduler, error) {
	if loc == nil {
		loc = time.Local
	}
	logger := cron.PrintfLogger(logging.Printf{})
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		sweeper: sweeper,
		loc:     loc,
		timeout: constants.SweepTimeout,
	}

	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	added, err := s.sweeper.Sweep(ctx, time.Now().In(s.loc))
	if err != nil {
		logging.Error(logging.Fields{"error": err.Error(), "added": added}, "scheduled absence sweep failed")
		return
	}
	logging.Info(logging.Fields{"added": added}, "scheduled absence sweep completed")
}

// Start begins running scheduled sweeps in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Next returns the next scheduled run, or the zero time before Start.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// Stop prevents new runs and waits for a running sweep to finish or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
