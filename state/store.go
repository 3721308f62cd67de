package state

import (
	"context"
	"sort"

	"github.com/davecgh/go-spew/spew"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/xsync"
)

// Listener is notified about every dispatched action, after the state was
// replaced. It is called outside of the store lock, so it may dispatch.
//
// prev and next always describe the transition made by action itself, but
// notifications of concurrent dispatches may interleave: a listener may see
// a later transition before an earlier one. Use Store.State for the latest
// state.
type Listener func(ctx context.Context, action Action, prev, next State)

// Store owns the only writable copy of the application state.
type Store struct {
	locker         xsync.Mutex
	initial        State
	state          State
	listeners      map[uint64]Listener
	nextListenerID uint64
}

func NewStore(initial State) *Store {
	return &Store{
		initial:   initial.Clone(),
		state:     initial.Clone(),
		listeners: map[uint64]Listener{},
	}
}

// State returns a snapshot of the current state.
func (s *Store) State(ctx context.Context) State {
	return xsync.DoR1(ctx, &s.locker, func() State {
		return s.state.Clone()
	})
}

// Dispatch applies the action and returns the resulting state.
func (s *Store) Dispatch(
	ctx context.Context,
	action Action,
) State {
	logger.Debugf(ctx, "Dispatch: %s", action.ActionName())
	logger.Tracef(ctx, "Dispatch: %s", spew.Sdump(action))

	type transition struct {
		prev, next State
		listeners  []Listener
	}
	t := xsync.DoR1(ctx, &s.locker, func() transition {
		prev := s.state
		s.state = Reduce(ctx, s.initial, prev, action)
		return transition{
			prev:      prev.Clone(),
			next:      s.state.Clone(),
			listeners: s.listenersLocked(),
		}
	})

	for _, listener := range t.listeners {
		listener(ctx, action, t.prev, t.next)
	}
	return t.next
}

// Subscribe registers a listener; the returned function unregisters it.
func (s *Store) Subscribe(
	ctx context.Context,
	listener Listener,
) (unsubscribe func()) {
	id := xsync.DoR1(ctx, &s.locker, func() uint64 {
		id := s.nextListenerID
		s.nextListenerID++
		s.listeners[id] = listener
		return id
	})
	return func() {
		s.locker.Do(ctx, func() {
			delete(s.listeners, id)
		})
	}
}

func (s *Store) listenersLocked() []Listener {
	ids := make([]uint64, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	result := make([]Listener, 0, len(ids))
	for _, id := range ids {
		result = append(result, s.listeners[id])
	}
	return result
}
