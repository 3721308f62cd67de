package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/xsync"

	studio "github.com/elan-ev/opencast-studio-sub000"
	"github.com/elan-ev/opencast-studio-sub000/recorder"
	"github.com/elan-ev/opencast-studio-sub000/state"
)

var (
	ErrNothingToRecord  = errors.New("no stream is selected for recording")
	ErrAlreadyRecording = errors.New("already recording")
	ErrNotRecording     = errors.New("not recording")
)

type recordedStream struct {
	slot   state.Slot
	stream studio.Stream
}

func selectedStreams(s state.State) []recordedStream {
	var result []recordedStream
	if s.VideoChoice.UsesDisplay() && s.Display.Stream != nil {
		result = append(result, recordedStream{slot: state.SlotDisplay, stream: s.Display.Stream})
	}
	if s.VideoChoice.UsesUser() && s.User.Stream != nil {
		result = append(result, recordedStream{slot: state.SlotUser, stream: s.User.Stream})
	}
	return result
}

// StartRecording starts recording all the selected video streams at once.
func (s *Session) StartRecording(ctx context.Context) (_err error) {
	logger.Debugf(ctx, "StartRecording")
	defer func() { logger.Debugf(ctx, "/StartRecording: %v", _err) }()

	if s.factory == nil {
		return fmt.Errorf("no media recorder factory is configured")
	}

	cur := s.store.State(ctx)
	if cur.IsRecording {
		return ErrAlreadyRecording
	}
	streams := selectedStreams(cur)
	if len(streams) == 0 {
		return ErrNothingToRecord
	}

	cfg := recorder.Config{
		MimeTypes: s.settings.Recording.MimeTypes,
		Timeslice: s.settings.Recording.Timeslice,
	}
	var pair recorder.Pair
	for _, item := range streams {
		deviceType := item.slot.DeviceType()
		r, err := recorder.New(ctx, s.factory, item.stream, cfg, func(ctx context.Context, res recorder.Result) {
			s.store.Dispatch(ctx, state.AddRecording{Recording: res.Recording(deviceType)})
		})
		if err != nil {
			return fmt.Errorf("unable to initialize the recorder of %s: %w", item.slot, err)
		}
		pair = append(pair, r)
	}

	ok := xsync.DoR1(ctx, &s.locker, func() bool {
		if len(s.recorders) > 0 {
			return false
		}
		s.recorders = pair
		return true
	})
	if !ok {
		return ErrAlreadyRecording
	}

	s.store.Dispatch(ctx, state.ClearRecordings{})
	if err := pair.Start(ctx); err != nil {
		s.takeRecorders(ctx)
		return fmt.Errorf("unable to start recording: %w", err)
	}
	s.store.Dispatch(ctx, state.StartRecording{})
	return nil
}

func (s *Session) activeRecorders(ctx context.Context) recorder.Pair {
	return xsync.DoR1(ctx, &s.locker, func() recorder.Pair {
		return s.recorders
	})
}

func (s *Session) takeRecorders(ctx context.Context) recorder.Pair {
	return xsync.DoR1(ctx, &s.locker, func() recorder.Pair {
		pair := s.recorders
		s.recorders = nil
		return pair
	})
}

func (s *Session) PauseRecording(ctx context.Context) error {
	pair := s.activeRecorders(ctx)
	if len(pair) == 0 {
		return ErrNotRecording
	}
	return pair.Pause(ctx)
}

func (s *Session) ResumeRecording(ctx context.Context) error {
	pair := s.activeRecorders(ctx)
	if len(pair) == 0 {
		return ErrNotRecording
	}
	return pair.Resume(ctx)
}

// StopRecording stops all the recorders; their recordings are added to the
// state as soon as each recorder delivers its data.
func (s *Session) StopRecording(ctx context.Context) (_err error) {
	logger.Debugf(ctx, "StopRecording")
	defer func() { logger.Debugf(ctx, "/StopRecording: %v", _err) }()

	pair := s.takeRecorders(ctx)
	if len(pair) == 0 {
		return ErrNotRecording
	}
	err := pair.Stop(ctx)
	s.store.Dispatch(ctx, state.StopRecording{})
	return err
}

// Reset discards the whole session state, stopping a running recording.
func (s *Session) Reset(ctx context.Context) error {
	var err error
	if pair := s.takeRecorders(ctx); len(pair) > 0 {
		err = pair.Stop(ctx)
	}
	s.store.Dispatch(ctx, state.Reset{})
	return err
}
