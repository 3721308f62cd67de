package opencast

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/facebookincubator/go-belt/tool/logger/implementation/logrus"
)

func testCtx() context.Context {
	return logger.CtxWithLogger(context.Background(), logrus.Default().WithLevel(logger.LevelTrace))
}

type recordedRequest struct {
	Method   string
	Path     string
	Form     map[string][]string
	Files    map[string]string
	FileName map[string]string
	User     string
	Password string
}

// fakeOpencast emulates the subset of the Opencast API used by the client.
type fakeOpencast struct {
	t *testing.T

	locker   sync.Mutex
	requests []recordedRequest

	// Me is served as info/me.json.
	Me any
	// LTI is served as lti.
	LTI any
	// Override, if it returns true, handles the request instead of the
	// default handler.
	Override func(w http.ResponseWriter, r *http.Request, callIdx int) bool

	server *httptest.Server
}

func newFakeOpencast(t *testing.T) *fakeOpencast {
	f := &fakeOpencast{
		t: t,
		Me: Me{
			User:     User{Username: "jdoe", Name: "Jane Doe", Email: "jane@example.org"},
			UserRole: "ROLE_USER_JDOE",
			Roles:    []string{"ROLE_USER", "ROLE_USER_JDOE", "ROLE_STUDIO"},
		},
	}
	f.server = httptest.NewServer(http.HandlerFunc(f.serveHTTP))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeOpencast) URL() string {
	return f.server.URL
}

func (f *fakeOpencast) Requests() []recordedRequest {
	f.locker.Lock()
	defer f.locker.Unlock()
	return append([]recordedRequest{}, f.requests...)
}

func (f *fakeOpencast) Paths() []string {
	var paths []string
	for _, req := range f.Requests() {
		paths = append(paths, req.Path)
	}
	return paths
}

func (f *fakeOpencast) IngestPaths() []string {
	var paths []string
	for _, path := range f.Paths() {
		if strings.HasPrefix(path, "/ingest/") {
			paths = append(paths, path)
		}
	}
	return paths
}

func (f *fakeOpencast) serveHTTP(w http.ResponseWriter, r *http.Request) {
	rec := recordedRequest{
		Method:   r.Method,
		Path:     r.URL.Path,
		Form:     map[string][]string{},
		Files:    map[string]string{},
		FileName: map[string]string{},
	}
	rec.User, rec.Password, _ = r.BasicAuth()

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			f.t.Errorf("unable to parse multipart form: %v", err)
		}
		for k, v := range r.MultipartForm.Value {
			rec.Form[k] = v
		}
		for k, files := range r.MultipartForm.File {
			file, err := files[0].Open()
			if err != nil {
				f.t.Errorf("unable to open the file: %v", err)
				continue
			}
			b, _ := io.ReadAll(file)
			file.Close()
			rec.Files[k] = string(b)
			rec.FileName[k] = files[0].Filename
		}
	} else if r.Method == http.MethodPost {
		if err := r.ParseForm(); err != nil {
			f.t.Errorf("unable to parse form: %v", err)
		}
		for k, v := range r.PostForm {
			rec.Form[k] = v
		}
	}

	f.locker.Lock()
	callIdx := len(f.requests)
	f.requests = append(f.requests, rec)
	f.locker.Unlock()

	if f.Override != nil && f.Override(w, r, callIdx) {
		return
	}

	switch {
	case r.URL.Path == "/info/me.json":
		_ = json.NewEncoder(w).Encode(f.Me)
	case r.URL.Path == "/lti":
		if f.LTI == nil {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(f.LTI)
	case r.URL.Path == "/ingest/createMediaPackage":
		fmt.Fprint(w, "<mediapackage/>")
	case strings.HasPrefix(r.URL.Path, "/ingest/"):
		mp := rec.Form["mediaPackage"]
		if len(mp) != 1 {
			http.Error(w, "no media package", http.StatusBadRequest)
			return
		}
		// every step appends itself, so the handle threading is observable
		step := strings.TrimPrefix(r.URL.Path, "/ingest/")
		fmt.Fprintf(w, "%s<%s/>", mp[0], step)
	default:
		http.NotFound(w, r)
	}
}
