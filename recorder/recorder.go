package recorder

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/google/uuid"
	"github.com/xaionaro-go/xsync"

	studio "github.com/elan-ev/opencast-studio-sub000"
)

// DefaultMimeTypes is the encoding preference used when none is configured.
var DefaultMimeTypes = []string{
	"video/webm;codecs=vp9,opus",
	"video/webm;codecs=vp8,opus",
	"video/webm",
	"video/mp4",
}

const DefaultTimeslice = time.Second

type Config struct {
	// MimeTypes is the encoding preference list, best first.
	MimeTypes []string

	Timeslice     time.Duration
	CustomOptions studio.CustomOptions
}

// Result is what a Recorder hands back once stopped.
type Result struct {
	URL        string
	Media      []byte
	MimeType   string
	Dimensions *studio.Dimensions
}

func (r Result) Recording(deviceType studio.DeviceType) studio.Recording {
	return studio.Recording{
		DeviceType: deviceType,
		URL:        r.URL,
		Media:      r.Media,
		MimeType:   r.MimeType,
		Dimensions: r.Dimensions,
	}
}

type OnStopFunc func(context.Context, Result)

// Recorder records a single Stream and buffers its output in memory.
type Recorder struct {
	ctx        context.Context
	locker     xsync.Mutex
	stream     studio.Stream
	recorder   studio.MediaRecorder
	dimensions *studio.Dimensions
	chunks     [][]byte
	mimeType   string
	onStop     OnStopFunc
	stopped    bool
}

// SelectMimeType returns the first mime type from the preference list the
// factory is able to record, or "" (the platform default) if none matches or
// the factory cannot tell.
func SelectMimeType(
	factory studio.MediaRecorderFactory,
	preferred []string,
) string {
	supporter, ok := factory.(studio.MimeTypeSupporter)
	if !ok {
		return ""
	}
	for _, mimeType := range preferred {
		if supporter.IsTypeSupported(mimeType) {
			return mimeType
		}
	}
	return ""
}

func New(
	ctx context.Context,
	factory studio.MediaRecorderFactory,
	stream studio.Stream,
	cfg Config,
	onStop OnStopFunc,
) (_ *Recorder, _err error) {
	logger.Debugf(ctx, "New(ctx, %s)", stream.ID())
	defer func() { logger.Debugf(ctx, "/New(ctx, %s): %v", stream.ID(), _err) }()

	if cfg.MimeTypes == nil {
		cfg.MimeTypes = DefaultMimeTypes
	}
	if cfg.Timeslice == 0 {
		cfg.Timeslice = DefaultTimeslice
	}

	r := &Recorder{
		ctx:    ctx,
		stream: stream,
		onStop: onStop,
	}
	if dims, ok := stream.Dimensions(); ok {
		r.dimensions = &dims
	}

	mimeType := SelectMimeType(factory, cfg.MimeTypes)
	logger.Debugf(ctx, "selected mime type: '%s'", mimeType)

	rec, err := factory.NewMediaRecorder(ctx, stream, studio.MediaRecorderConfig{
		MimeType:        mimeType,
		Timeslice:       cfg.Timeslice,
		OnDataAvailable: r.onDataAvailable,
		OnStop:          r.onRecorderStop,
		CustomOptions:   cfg.CustomOptions,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to initialize a media recorder for stream '%s': %w", stream.ID(), err)
	}
	r.recorder = rec
	return r, nil
}

func (r *Recorder) Stream() studio.Stream {
	return r.stream
}

func (r *Recorder) Start(ctx context.Context) error {
	logger.Debugf(ctx, "Start: %s", r.stream.ID())
	if err := r.recorder.Start(ctx); err != nil {
		return fmt.Errorf("unable to start recording stream '%s': %w", r.stream.ID(), err)
	}
	return nil
}

func (r *Recorder) Pause(ctx context.Context) error {
	logger.Debugf(ctx, "Pause: %s", r.stream.ID())
	if err := r.recorder.Pause(ctx); err != nil {
		return fmt.Errorf("unable to pause recording stream '%s': %w", r.stream.ID(), err)
	}
	return nil
}

func (r *Recorder) Resume(ctx context.Context) error {
	logger.Debugf(ctx, "Resume: %s", r.stream.ID())
	if err := r.recorder.Resume(ctx); err != nil {
		return fmt.Errorf("unable to resume recording stream '%s': %w", r.stream.ID(), err)
	}
	return nil
}

// Stop stops the underlying recorder; the OnStopFunc is called once the
// recorder delivered its last chunk.
func (r *Recorder) Stop(ctx context.Context) error {
	logger.Debugf(ctx, "Stop: %s", r.stream.ID())
	if err := r.recorder.Stop(ctx); err != nil {
		return fmt.Errorf("unable to stop recording stream '%s': %w", r.stream.ID(), err)
	}
	return nil
}

func (r *Recorder) onDataAvailable(chunk studio.Chunk) {
	ctx := r.ctx
	if len(chunk.Data) == 0 {
		logger.Debugf(ctx, "received an empty chunk from stream '%s', dropping", r.stream.ID())
		return
	}
	logger.Tracef(ctx, "received a chunk of %d bytes from stream '%s'", len(chunk.Data), r.stream.ID())

	r.locker.Do(ctx, func() {
		if r.stopped {
			logger.Errorf(ctx, "received a chunk from stream '%s' after the recording was finalized", r.stream.ID())
			return
		}
		if len(r.chunks) == 0 {
			r.mimeType = chunk.MimeType
		}
		r.chunks = append(r.chunks, chunk.Data)
	})
}

func (r *Recorder) onRecorderStop() {
	ctx := r.ctx
	result, ok := xsync.DoR2(ctx, &r.locker, r.finalizeLocked)
	if !ok {
		logger.Debugf(ctx, "stream '%s' was already finalized", r.stream.ID())
		return
	}
	logger.Debugf(ctx, "finalized stream '%s': %d bytes of '%s'", r.stream.ID(), len(result.Media), result.MimeType)
	if r.onStop != nil {
		r.onStop(ctx, result)
	}
}

func (r *Recorder) finalizeLocked() (Result, bool) {
	if r.stopped {
		return Result{}, false
	}
	r.stopped = true

	mimeType := r.mimeType
	if mimeType == "" {
		mimeType = r.recorder.MimeType()
	}
	media := bytes.Join(r.chunks, nil)
	if media == nil {
		media = []byte{}
	}
	r.chunks = nil

	return Result{
		URL:        "blob:" + uuid.New().String(),
		Media:      media,
		MimeType:   mimeType,
		Dimensions: r.dimensions,
	}, true
}
