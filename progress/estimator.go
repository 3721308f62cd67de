package progress

import (
	"context"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/xsync"
)

const DefaultHeartbeatInterval = 3 * time.Second

type Estimate struct {
	Progress float64
	TimeLeft *time.Duration
}

// Estimator keeps the sample history of one upload and reports a new
// Estimate for every observed sample.
type Estimator struct {
	locker       xsync.Mutex
	history      []Sample
	lastProgress float64
	lastSampleAt time.Time

	now        func() time.Time
	onEstimate func(context.Context, Estimate)
}

// New returns an Estimator; onEstimate is called for every sample, including
// heartbeat ones, in the order the samples were taken. It must not call back
// into the Estimator.
func New(onEstimate func(context.Context, Estimate)) *Estimator {
	return &Estimator{
		now:        time.Now,
		onEstimate: onEstimate,
	}
}

// SetClock replaces the time source; meant for tests.
func (e *Estimator) SetClock(now func() time.Time) {
	e.now = now
}

// Observe records the current progress (a fraction in [0, 1]).
func (e *Estimator) Observe(
	ctx context.Context,
	progress float64,
) Estimate {
	progress = min(max(progress, 0), 1)
	return xsync.DoA2R1(ctx, &e.locker, e.observeLocked, ctx, progress)
}

func (e *Estimator) observeLocked(
	ctx context.Context,
	progress float64,
) Estimate {
	now := e.now()
	var timeLeft *time.Duration
	e.history, timeLeft = Update(e.history, Sample{Timestamp: now, Progress: progress})
	e.lastProgress = progress
	e.lastSampleAt = now
	estimate := Estimate{
		Progress: progress,
		TimeLeft: timeLeft,
	}
	logger.Tracef(ctx, "progress %.4f, estimate %v", estimate.Progress, estimate.TimeLeft)
	if e.onEstimate != nil {
		e.onEstimate(ctx, estimate)
	}
	return estimate
}

// Heartbeat feeds the last known progress again whenever no sample was
// observed for the interval, so that the estimate keeps decaying while the
// transport is silent. It returns when ctx is done.
func (e *Estimator) Heartbeat(
	ctx context.Context,
	interval time.Duration,
) {
	logger.Debugf(ctx, "Heartbeat(ctx, %v)", interval)
	defer func() { logger.Debugf(ctx, "/Heartbeat(ctx, %v)", interval) }()

	if interval <= 0 {
		interval = DefaultHeartbeatInterval
	}
	t := time.NewTicker(interval / 4)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}

		e.locker.Do(ctx, func() {
			if e.now().Sub(e.lastSampleAt) < interval {
				return
			}
			e.observeLocked(ctx, e.lastProgress)
		})
	}
}
