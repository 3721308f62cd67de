// Package session runs the side effects of a recording session (recording,
// uploading, probing the server) and reports their outcomes to the Store.
package session

import (
	"context"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/observability"
	"github.com/xaionaro-go/xcontext"
	"github.com/xaionaro-go/xsync"

	studio "github.com/elan-ev/opencast-studio-sub000"
	"github.com/elan-ev/opencast-studio-sub000/opencast"
	"github.com/elan-ev/opencast-studio-sub000/prefs"
	"github.com/elan-ev/opencast-studio-sub000/recorder"
	"github.com/elan-ev/opencast-studio-sub000/state"
)

// StartupProbeWait is how long ProbeConnection waits for the probe before
// giving up waiting (the probe itself keeps running).
const StartupProbeWait = 300 * time.Millisecond

type Config struct {
	Settings        studio.Settings
	RecorderFactory studio.MediaRecorderFactory
	Prefs           prefs.Store
}

type Session struct {
	store    *state.Store
	settings studio.Settings
	factory  studio.MediaRecorderFactory
	prefs    prefs.Store
	now      func() time.Time

	locker    xsync.Mutex
	client    *opencast.Client
	recorders recorder.Pair
	uploading bool

	unsubscribe func()
}

func New(
	ctx context.Context,
	store *state.Store,
	client *opencast.Client,
	cfg Config,
) *Session {
	prefsStore := cfg.Prefs
	if prefsStore == nil {
		prefsStore = prefs.NewMemory()
	}
	s := &Session{
		store:    store,
		settings: cfg.Settings,
		factory:  cfg.RecorderFactory,
		prefs:    prefsStore,
		now:      time.Now,
		client:   client,
	}
	s.unsubscribe = store.Subscribe(ctx, s.onAction)

	if presenter, ok := s.prefs.Get(ctx, prefs.KeyLastPresenter); ok && store.State(ctx).Presenter == "" {
		store.Dispatch(ctx, state.UpdatePresenter{Presenter: presenter})
	}
	return s
}

// Close detaches the session from the Store and stops a running recording.
func (s *Session) Close(ctx context.Context) error {
	s.unsubscribe()
	pair := s.takeRecorders(ctx)
	if len(pair) == 0 {
		return nil
	}
	return pair.Stop(ctx)
}

func (s *Session) Store() *state.Store {
	return s.store
}

func (s *Session) Client(ctx context.Context) *opencast.Client {
	return xsync.DoR1(ctx, &s.locker, func() *opencast.Client {
		return s.client
	})
}

// ReplaceClient puts a new client (built from changed settings) in place of
// the current one and probes its connection. It reports whether the new
// client observes anything different from its initial state.
func (s *Session) ReplaceClient(
	ctx context.Context,
	client *opencast.Client,
) (_changed bool, _err error) {
	logger.Debugf(ctx, "ReplaceClient")
	defer func() { logger.Debugf(ctx, "/ReplaceClient: %v %v", _changed, _err) }()

	s.locker.Do(ctx, func() {
		s.client = client
	})
	return client.RefreshConnection(ctx)
}

// ProbeConnection refreshes the connection of the current client, but waits
// for it at most StartupProbeWait. It returns true if the probe finished in
// time.
func (s *Session) ProbeConnection(ctx context.Context) bool {
	client := s.Client(ctx)
	probeCtx := xcontext.DetachDone(ctx)
	done := make(chan struct{})
	observability.Go(ctx, func(context.Context) {
		defer close(done)
		changed, err := client.RefreshConnection(probeCtx)
		if err != nil {
			logger.Errorf(probeCtx, "unable to probe the connection: %v", err)
			return
		}
		logger.Debugf(probeCtx, "connection probed: %s (changed: %v)", client.State(probeCtx), changed)
	})

	t := time.NewTimer(StartupProbeWait)
	defer t.Stop()
	select {
	case <-done:
		return true
	case <-t.C:
		logger.Debugf(ctx, "the connection probe takes too long, not waiting for it")
		return false
	case <-ctx.Done():
		return false
	}
}

func (s *Session) onAction(
	ctx context.Context,
	action state.Action,
	_, _ state.State,
) {
	switch action.(type) {
	case state.StopRecordingPrematurely:
		pair := s.takeRecorders(ctx)
		if len(pair) == 0 {
			return
		}
		if err := pair.Stop(ctx); err != nil {
			logger.Errorf(ctx, "unable to stop the recorders after a stream ended: %v", err)
		}
	}
}
