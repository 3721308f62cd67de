package capture

import (
	"context"
	"errors"
	"fmt"

	"github.com/facebookincubator/go-belt/tool/experimental/errmon"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/hashicorp/go-multierror"
	"github.com/xaionaro-go/observability"
	"github.com/xaionaro-go/xcontext"
	"github.com/xaionaro-go/xsync"

	"github.com/elan-ev/opencast-studio-sub000/prefs"
	"github.com/elan-ev/opencast-studio-sub000/state"
)

type activeStream struct {
	acquisition *Acquisition
	cancelWatch context.CancelFunc
}

// Controller acquires and releases streams through a Gateway and reports
// the outcomes to the Store.
type Controller struct {
	gateway Gateway
	store   *state.Store
	prefs   prefs.Store

	locker xsync.Mutex
	active map[state.Slot]*activeStream
}

func NewController(
	gateway Gateway,
	store *state.Store,
	prefsStore prefs.Store,
) *Controller {
	if prefsStore == nil {
		prefsStore = prefs.NewMemory()
	}
	return &Controller{
		gateway: gateway,
		store:   store,
		prefs:   prefsStore,
		active:  map[state.Slot]*activeStream{},
	}
}

func prefsKey(slot state.Slot) (prefs.Key, bool) {
	switch slot {
	case state.SlotUser:
		return prefs.KeyLastCameraDeviceID, true
	case state.SlotAudio:
		return prefs.KeyLastMicrophoneDeviceID, true
	}
	return "", false
}

// Share acquires a stream for the slot. Acquisition failures are not
// errors: they are dispatched as BLOCK_* and reported by the returned bool.
func (c *Controller) Share(
	ctx context.Context,
	slot state.Slot,
) (_ok bool) {
	logger.Debugf(ctx, "Share(ctx, %s)", slot)
	defer func() { logger.Debugf(ctx, "/Share(ctx, %s): %v", slot, _ok) }()

	var constraints Constraints
	key, hasKey := prefsKey(slot)
	if hasKey {
		constraints.DeviceID, _ = c.prefs.Get(ctx, key)
	}

	acq, err := c.gateway.Acquire(ctx, slot, constraints)
	if err == nil && (acq == nil || acq.Stream == nil) {
		err = fmt.Errorf("the gateway returned no stream")
	}
	if err != nil {
		if errors.Is(err, ErrPermissionDenied) {
			logger.Debugf(ctx, "access to %s was denied: %v", slot, err)
		} else {
			logger.Errorf(ctx, "unable to acquire %s: %v", slot, err)
		}
		c.store.Dispatch(ctx, state.BlockStream{Slot: slot})
		return false
	}

	if hasKey && acq.DeviceID != "" {
		if err := c.prefs.Set(ctx, key, acq.DeviceID); err != nil {
			logger.Errorf(ctx, "unable to remember device '%s' for %s: %v", acq.DeviceID, slot, err)
		}
	}

	watchCtx, cancelWatch := context.WithCancel(xcontext.DetachDone(ctx))
	entry := &activeStream{
		acquisition: acq,
		cancelWatch: cancelWatch,
	}
	prev := xsync.DoR1(ctx, &c.locker, func() *activeStream {
		prev := c.active[slot]
		c.active[slot] = entry
		return prev
	})
	if prev != nil {
		c.release(ctx, slot, prev)
	}

	c.store.Dispatch(ctx, state.ShareStream{Slot: slot, Stream: acq.Stream})

	if acq.Ended != nil {
		observability.Go(ctx, func(context.Context) {
			select {
			case <-watchCtx.Done():
			case <-acq.Ended:
				c.onEnded(watchCtx, slot, entry)
			}
		})
	}
	return true
}

func (c *Controller) onEnded(
	ctx context.Context,
	slot state.Slot,
	entry *activeStream,
) {
	isCurrent := xsync.DoR1(ctx, &c.locker, func() bool {
		if c.active[slot] != entry {
			return false
		}
		delete(c.active, slot)
		return true
	})
	entry.cancelWatch()
	if !isCurrent {
		return
	}

	logger.Debugf(ctx, "%s ended unexpectedly", slot)
	next := c.store.Dispatch(ctx, state.StreamUnexpectedEnd{Slot: slot})
	if next.IsRecording {
		c.store.Dispatch(ctx, state.StopRecordingPrematurely{})
	}
}

// Unshare stops the stream of the slot on the user's request.
func (c *Controller) Unshare(
	ctx context.Context,
	slot state.Slot,
) (_err error) {
	logger.Debugf(ctx, "Unshare(ctx, %s)", slot)
	defer func() { logger.Debugf(ctx, "/Unshare(ctx, %s): %v", slot, _err) }()

	entry := xsync.DoR1(ctx, &c.locker, func() *activeStream {
		entry := c.active[slot]
		delete(c.active, slot)
		return entry
	})
	c.store.Dispatch(ctx, state.UnshareStream{Slot: slot})
	if entry == nil {
		return nil
	}
	return c.release(ctx, slot, entry)
}

// UnshareAll stops all the streams.
func (c *Controller) UnshareAll(ctx context.Context) error {
	var mErr *multierror.Error
	for slot := state.Slot(0); slot < state.EndOfSlot; slot++ {
		if !c.IsActive(ctx, slot) {
			continue
		}
		if err := c.Unshare(ctx, slot); err != nil {
			mErr = multierror.Append(mErr, err)
		}
	}
	return mErr.ErrorOrNil()
}

func (c *Controller) IsActive(ctx context.Context, slot state.Slot) bool {
	return xsync.DoR1(ctx, &c.locker, func() bool {
		return c.active[slot] != nil
	})
}

func (c *Controller) release(
	ctx context.Context,
	slot state.Slot,
	entry *activeStream,
) error {
	entry.cancelWatch()
	if err := c.gateway.Release(ctx, entry.acquisition.Stream); err != nil {
		err = fmt.Errorf("unable to release the %s stream '%s': %w", slot, entry.acquisition.Stream.ID(), err)
		errmon.ObserveErrorCtx(ctx, err)
		return err
	}
	return nil
}
