package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/facebookincubator/go-belt/tool/logger/implementation/logrus"
	"github.com/stretchr/testify/require"

	studio "github.com/elan-ev/opencast-studio-sub000"
	"github.com/elan-ev/opencast-studio-sub000/opencast"
	"github.com/elan-ev/opencast-studio-sub000/session"
	"github.com/elan-ev/opencast-studio-sub000/state"
)

func newOpencastServer(t *testing.T) (*httptest.Server, func() []string) {
	var (
		locker sync.Mutex
		paths  []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		locker.Lock()
		paths = append(paths, r.URL.Path)
		locker.Unlock()
		if r.URL.Path == "/info/me.json" {
			_ = json.NewEncoder(w).Encode(opencast.Me{
				User:     opencast.User{Username: "jdoe", Name: "Jane Doe"},
				UserRole: "ROLE_USER_JDOE",
				Roles:    []string{"ROLE_USER", "ROLE_USER_JDOE"},
			})
			return
		}
		_, _ = io.WriteString(w, "<mediapackage/>")
	}))
	t.Cleanup(srv.Close)
	return srv, func() []string {
		locker.Lock()
		defer locker.Unlock()
		return append([]string{}, paths...)
	}
}

func TestRunUpload(t *testing.T) {
	ctx := logger.CtxWithLogger(context.Background(), logrus.Default().WithLevel(logger.LevelTrace))

	srv, paths := newOpencastServer(t)
	client, err := opencast.New(ctx, opencast.Config{
		ServerURL: srv.URL,
		Login: opencast.Login{
			Mode:     opencast.LoginModeBasic,
			Username: "jdoe",
			Password: studio.NewPassword("secret"),
		},
	})
	require.NoError(t, err)

	store := state.NewStore(state.Initial(state.Capabilities{}))
	sess := session.New(ctx, store, client, session.Config{})
	defer sess.Close(ctx)

	file := filepath.Join(t.TempDir(), "talk.webm")
	require.NoError(t, os.WriteFile(file, []byte("some media"), 0o600))
	rec, err := loadRecording("desktop=" + file)
	require.NoError(t, err)
	require.Equal(t, studio.DeviceTypeDesktop, rec.DeviceType)
	require.Equal(t, "video/webm", rec.MimeType)
	store.Dispatch(ctx, state.AddRecording{Recording: rec})
	sess.UpdateTitle(ctx, "A talk")

	var reports []state.Upload
	result := runUpload(ctx, sess, store, time.Millisecond, func(upload state.Upload) {
		reports = append(reports, upload)
	})
	require.NoError(t, result.err)
	require.Equal(t, opencast.OutcomeSuccess, result.outcome)
	require.NotEmpty(t, reports)
	require.Equal(t, state.UploadStateUploaded, reports[len(reports)-1].State)
	require.Contains(t, paths(), "/ingest/addTrack")
	require.Contains(t, paths(), "/ingest/ingest")
}

func TestLoadRecordingInvalid(t *testing.T) {
	_, err := loadRecording("talk.webm")
	require.Error(t, err)
	_, err = loadRecording("microphone=talk.webm")
	require.Error(t, err)
	_, err = loadRecording("video=" + filepath.Join(t.TempDir(), "missing.webm"))
	require.Error(t, err)
}
