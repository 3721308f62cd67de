package studio

import (
	"context"
	"time"
)

// Chunk is a piece of encoded media emitted by a MediaRecorder.
type Chunk struct {
	Data     []byte
	MimeType string
}

type MediaRecorderConfig struct {
	// MimeType is the requested container/codec; empty means the platform
	// default.
	MimeType string

	// Timeslice is how often the platform should emit a Chunk; zero means
	// only once, on stop.
	Timeslice time.Duration

	// OnDataAvailable is called for every emitted Chunk (including empty ones).
	OnDataAvailable func(Chunk)

	// OnStop is called once after the last Chunk of a stopped recording was
	// delivered.
	OnStop func()

	CustomOptions CustomOptions
}

// MediaRecorder is the platform recorder of a single Stream.
type MediaRecorder interface {
	// MimeType is the mime type the recorder was actually configured with.
	MimeType() string

	Start(context.Context) error
	Pause(context.Context) error
	Resume(context.Context) error
	Stop(context.Context) error
}

type MediaRecorderFactory interface {
	NewMediaRecorder(context.Context, Stream, MediaRecorderConfig) (MediaRecorder, error)
}

// MimeTypeSupporter is optionally implemented by a MediaRecorderFactory
// that is able to tell which mime types it can record.
type MimeTypeSupporter interface {
	IsTypeSupported(mimeType string) bool
}

type CustomOption = any
type CustomOptions []CustomOption

func GetCustomOption[T any](in CustomOptions) (T, bool) {
	for _, item := range in {
		v, ok := item.(T)
		if ok {
			return v, ok
		}
	}

	var zeroValue T
	return zeroValue, false
}
