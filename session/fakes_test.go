package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/facebookincubator/go-belt/tool/logger/implementation/logrus"

	studio "github.com/elan-ev/opencast-studio-sub000"
)

func testCtx() context.Context {
	return logger.CtxWithLogger(context.Background(), logrus.Default().WithLevel(logger.LevelTrace))
}

type fakeStream struct {
	id string
}

func (s *fakeStream) ID() string { return s.id }

func (s *fakeStream) Dimensions() (studio.Dimensions, bool) {
	return studio.Dimensions{Width: 1280, Height: 720}, true
}

// fakeRecorderFactory produces recorders that emit the stream id as their
// only chunk. With failAfter set, every recorder after the first failAfter
// ones fails to be created.
type fakeRecorderFactory struct {
	locker    sync.Mutex
	count     int
	failAfter int
}

func (f *fakeRecorderFactory) NewMediaRecorder(
	_ context.Context,
	stream studio.Stream,
	cfg studio.MediaRecorderConfig,
) (studio.MediaRecorder, error) {
	f.locker.Lock()
	defer f.locker.Unlock()
	f.count++
	if f.failAfter > 0 && f.count > f.failAfter {
		return nil, fmt.Errorf("no more recorders for '%s'", stream.ID())
	}
	return &fakeRecorder{stream: stream, cfg: cfg}, nil
}

type fakeRecorder struct {
	stream studio.Stream
	cfg    studio.MediaRecorderConfig
}

func (r *fakeRecorder) MimeType() string { return "video/webm" }
func (r *fakeRecorder) Start(context.Context) error { return nil }
func (r *fakeRecorder) Pause(context.Context) error { return nil }
func (r *fakeRecorder) Resume(context.Context) error { return nil }

func (r *fakeRecorder) Stop(context.Context) error {
	r.cfg.OnDataAvailable(studio.Chunk{Data: []byte("media of " + r.stream.ID()), MimeType: "video/webm"})
	r.cfg.OnStop()
	return nil
}

// newFakeOpencast serves a logged in identity and accepts every ingest
// step. The returned function lists the requested paths.
func newFakeOpencast(
	t *testing.T,
	override func(w http.ResponseWriter, r *http.Request) bool,
) (*httptest.Server, func() []string) {
	var (
		locker sync.Mutex
		paths  []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		locker.Lock()
		paths = append(paths, r.URL.Path)
		locker.Unlock()

		if override != nil && override(w, r) {
			return
		}
		switch {
		case r.URL.Path == "/info/me.json":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"user":     map[string]string{"username": "jdoe", "name": "Jane Doe"},
				"userRole": "ROLE_USER_JDOE",
				"roles":    []string{"ROLE_USER", "ROLE_USER_JDOE"},
			})
		case strings.HasPrefix(r.URL.Path, "/ingest/"):
			fmt.Fprint(w, "<mediapackage/>")
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, func() []string {
		locker.Lock()
		defer locker.Unlock()
		return append([]string{}, paths...)
	}
}
