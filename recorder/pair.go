package recorder

import (
	"context"
	"fmt"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/hashicorp/go-multierror"
)

// Pair drives the recorders of simultaneously recorded devices in lockstep.
// The recorders themselves do not know about each other.
type Pair []*Recorder

func (p Pair) Start(ctx context.Context) (_err error) {
	logger.Debugf(ctx, "Start")
	defer func() { logger.Debugf(ctx, "/Start: %v", _err) }()

	for idx, r := range p {
		if err := r.Start(ctx); err != nil {
			// do not leave the already started ones running
			for _, started := range p[:idx] {
				if stopErr := started.Stop(ctx); stopErr != nil {
					logger.Errorf(ctx, "unable to stop '%s' after a failed start: %v", started.Stream().ID(), stopErr)
				}
			}
			return err
		}
	}
	return nil
}

func (p Pair) Pause(ctx context.Context) error {
	return p.forEach(ctx, "pause", (*Recorder).Pause)
}

func (p Pair) Resume(ctx context.Context) error {
	return p.forEach(ctx, "resume", (*Recorder).Resume)
}

// Stop stops all the recorders, even if some of them fail to stop.
func (p Pair) Stop(ctx context.Context) error {
	return p.forEach(ctx, "stop", (*Recorder).Stop)
}

func (p Pair) forEach(
	ctx context.Context,
	opName string,
	fn func(*Recorder, context.Context) error,
) (_err error) {
	logger.Debugf(ctx, "%s", opName)
	defer func() { logger.Debugf(ctx, "/%s: %v", opName, _err) }()

	var mErr *multierror.Error
	for _, r := range p {
		if err := fn(r, ctx); err != nil {
			mErr = multierror.Append(mErr, err)
		}
	}
	if err := mErr.ErrorOrNil(); err != nil {
		return fmt.Errorf("unable to %s %d of %d recorders: %w", opName, len(mErr.Errors), len(p), err)
	}
	return nil
}
