package recorder

import (
	"context"
	"fmt"
	"slices"
	"sync"

	studio "github.com/elan-ev/opencast-studio-sub000"
)

type fakeStream struct {
	id   string
	dims *studio.Dimensions
}

func (s *fakeStream) ID() string { return s.id }

func (s *fakeStream) Dimensions() (studio.Dimensions, bool) {
	if s.dims == nil {
		return studio.Dimensions{}, false
	}
	return *s.dims, true
}

type fakeFactory struct {
	locker    sync.Mutex
	recorders []*fakeRecorder
	startErr  error
	stopErr   error
}

func (f *fakeFactory) NewMediaRecorder(
	_ context.Context,
	stream studio.Stream,
	cfg studio.MediaRecorderConfig,
) (studio.MediaRecorder, error) {
	f.locker.Lock()
	defer f.locker.Unlock()
	mimeType := cfg.MimeType
	if mimeType == "" {
		mimeType = "video/x-platform-default"
	}
	r := &fakeRecorder{
		stream:   stream,
		cfg:      cfg,
		mimeType: mimeType,
		startErr: f.startErr,
		stopErr:  f.stopErr,
	}
	f.recorders = append(f.recorders, r)
	return r, nil
}

type supportingFactory struct {
	fakeFactory
	supported []string
}

func (f *supportingFactory) IsTypeSupported(mimeType string) bool {
	return slices.Contains(f.supported, mimeType)
}

type fakeRecorder struct {
	stream   studio.Stream
	cfg      studio.MediaRecorderConfig
	mimeType string
	state    string
	calls    []string
	pending  []studio.Chunk
	startErr error
	stopErr  error
}

func (r *fakeRecorder) MimeType() string { return r.mimeType }

func (r *fakeRecorder) Start(context.Context) error {
	r.calls = append(r.calls, "start")
	if r.startErr != nil {
		return r.startErr
	}
	r.state = "recording"
	return nil
}

func (r *fakeRecorder) Pause(context.Context) error {
	r.calls = append(r.calls, "pause")
	if r.state != "recording" {
		return fmt.Errorf("cannot pause in state '%s'", r.state)
	}
	r.state = "paused"
	return nil
}

func (r *fakeRecorder) Resume(context.Context) error {
	r.calls = append(r.calls, "resume")
	if r.state != "paused" {
		return fmt.Errorf("cannot resume in state '%s'", r.state)
	}
	r.state = "recording"
	return nil
}

func (r *fakeRecorder) Stop(context.Context) error {
	r.calls = append(r.calls, "stop")
	if r.stopErr != nil {
		return r.stopErr
	}
	r.state = "inactive"
	for _, chunk := range r.pending {
		r.cfg.OnDataAvailable(chunk)
	}
	r.pending = nil
	r.cfg.OnStop()
	return nil
}

// emit simulates a timeslice tick.
func (r *fakeRecorder) emit(data string, mimeType string) {
	r.cfg.OnDataAvailable(studio.Chunk{Data: []byte(data), MimeType: mimeType})
}
