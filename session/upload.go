package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/observability"
	"github.com/xaionaro-go/xsync"

	studio "github.com/elan-ev/opencast-studio-sub000"
	"github.com/elan-ev/opencast-studio-sub000/opencast"
	"github.com/elan-ev/opencast-studio-sub000/progress"
	"github.com/elan-ev/opencast-studio-sub000/state"
)

var (
	ErrMissingMetadata = errors.New("a required metadata field is empty")
	ErrNoRecordings    = errors.New("there are no recordings to upload")
	ErrUploadRunning   = errors.New("an upload is already running")
)

// Upload sends the recordings of the current state to Opencast, reporting
// the progress and the outcome to the Store.
func (s *Session) Upload(ctx context.Context) (_ opencast.Outcome, _err error) {
	logger.Debugf(ctx, "Upload")
	defer func() { logger.Debugf(ctx, "/Upload: %v", _err) }()

	claimed := xsync.DoR1(ctx, &s.locker, func() bool {
		if s.uploading {
			return false
		}
		s.uploading = true
		return true
	})
	if !claimed {
		return opencast.OutcomeUnknownError, ErrUploadRunning
	}
	defer s.locker.Do(ctx, func() {
		s.uploading = false
	})

	cur := s.store.State(ctx)
	if len(cur.Recordings) == 0 {
		return opencast.OutcomeUnknownError, ErrNoRecordings
	}

	uploadSettings := s.settings.Upload
	title, presenter, err := s.metadata(cur, uploadSettings)
	if err != nil {
		return opencast.OutcomeUnknownError, err
	}

	s.store.Dispatch(ctx, state.UploadRequest{})

	estimator := progress.New(func(ctx context.Context, est progress.Estimate) {
		s.store.Dispatch(ctx, state.UploadProgressUpdate{
			TimeLeft:        est.TimeLeft,
			CurrentProgress: est.Progress,
		})
	})
	heartbeatCtx, stopHeartbeat := context.WithCancel(ctx)
	heartbeatDone := make(chan struct{})
	observability.Go(heartbeatCtx, func(ctx context.Context) {
		defer close(heartbeatDone)
		estimator.Heartbeat(ctx, progress.DefaultHeartbeatInterval)
	})

	outcome, err := s.Client(ctx).Upload(ctx, opencast.UploadRequest{
		Recordings: cur.Recordings,
		Title:      title,
		Presenter:  presenter,
		Start:      cur.Start,
		End:        cur.End,
		Settings:   uploadSettings,
		OnProgress: func(ctx context.Context, p float64) {
			estimator.Observe(ctx, p)
		},
	})
	stopHeartbeat()
	<-heartbeatDone

	if err != nil {
		s.store.Dispatch(ctx, state.UploadError{Message: opencast.OutcomeUnknownError.String()})
		return opencast.OutcomeUnknownError, fmt.Errorf("unable to upload: %w", err)
	}
	if outcome != opencast.OutcomeSuccess {
		s.store.Dispatch(ctx, state.UploadError{Message: outcome.String()})
		return outcome, nil
	}
	s.store.Dispatch(ctx, state.UploadSuccess{})
	return outcome, nil
}

func (s *Session) metadata(
	cur state.State,
	settings studio.UploadSettings,
) (title, presenter string, _err error) {
	switch settings.TitleField.Effective() {
	case studio.FieldModeRequired:
		if cur.Title == "" {
			return "", "", fmt.Errorf("%w: title", ErrMissingMetadata)
		}
		title = cur.Title
	case studio.FieldModeOptional:
		title = cur.Title
	}
	if title == "" {
		title = studio.DefaultTitle(s.now())
	}

	switch settings.PresenterField.Effective() {
	case studio.FieldModeRequired:
		if cur.Presenter == "" {
			return "", "", fmt.Errorf("%w: presenter", ErrMissingMetadata)
		}
		presenter = cur.Presenter
	case studio.FieldModeOptional:
		presenter = cur.Presenter
	}
	return title, presenter, nil
}
