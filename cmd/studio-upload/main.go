package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/facebookincubator/go-belt"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/facebookincubator/go-belt/tool/logger/implementation/logrus"
	"github.com/spf13/pflag"
	"github.com/xaionaro-go/observability"
	"github.com/xaionaro-go/xpath"

	studio "github.com/elan-ev/opencast-studio-sub000"
	"github.com/elan-ev/opencast-studio-sub000/opencast"
	"github.com/elan-ev/opencast-studio-sub000/prefs"
	"github.com/elan-ev/opencast-studio-sub000/session"
	"github.com/elan-ev/opencast-studio-sub000/state"
)

func main() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "syntax: %s [flags] <desktop|video>=<file> [<desktop|video>=<file>]\n", os.Args[0])
		pflag.PrintDefaults()
	}

	loggerLevel := logger.LevelWarning
	pflag.Var(&loggerLevel, "log-level", "Log level")
	netPprofAddr := pflag.String("net-pprof-listen-addr", "", "an address to listen for incoming net/pprof connections")
	settingsPath := pflag.String("settings", "", "path to a YAML settings file")
	serverURL := pflag.String("server", "", "the Opencast URL (overrides the settings file)")
	username := pflag.String("username", "", "the Opencast username (overrides the settings file)")
	password := pflag.String("password", "", "the Opencast password (overrides the settings file)")
	ambient := pflag.Bool("ambient", false, "assume the session cookies already authenticate the user")
	cookies := pflag.StringSlice("cookie", nil, "a session cookie 'name=value' (for --ambient)")
	title := pflag.String("title", "", "the title of the recording")
	presenter := pflag.String("presenter", "", "the presenter (by default the last used one, or the Opencast user's name)")
	start := pflag.Duration("start", 0, "cut everything before this point")
	end := pflag.Duration("end", 0, "cut everything after this point")
	prefsPath := pflag.String("prefs-file", "~/.config/opencast-studio/prefs.yaml", "where to remember the last used values")
	pflag.Parse()
	if len(pflag.Args()) < 1 || len(pflag.Args()) > 2 {
		pflag.Usage()
		os.Exit(2)
	}

	l := logrus.Default().WithLevel(loggerLevel)
	ctx := logger.CtxWithLogger(context.Background(), l)
	ctx, cancelFn := context.WithCancel(ctx)
	defer cancelFn()
	logger.Default = func() logger.Logger {
		return l
	}
	defer belt.Flush(ctx)

	if *netPprofAddr != "" {
		observability.Go(ctx, func(context.Context) { l.Error(http.ListenAndServe(*netPprofAddr, nil)) })
	}

	settings := &studio.Settings{}
	if *settingsPath != "" {
		path, err := xpath.Expand(*settingsPath)
		if err != nil {
			l.Fatalf("unable to expand path '%s': %v", *settingsPath, err)
		}
		f, err := os.Open(path)
		if err != nil {
			l.Fatalf("unable to open the settings file: %v", err)
		}
		settings, err = studio.ParseSettings(f)
		f.Close()
		if err != nil {
			l.Fatal(err)
		}
	}
	if *serverURL != "" {
		settings.Opencast.ServerURL = *serverURL
	}
	if *username != "" {
		settings.Opencast.Username = *username
	}
	if *password != "" {
		settings.Opencast.Password = studio.NewPassword(*password)
	}
	if *ambient {
		settings.Opencast.LoginProvided = true
		settings.Opencast.Username = ""
		settings.Opencast.Password = nil
	}
	if err := settings.Validate(); err != nil {
		l.Fatal(err)
	}
	if settings.Opencast.ServerURL == "" {
		l.Fatal("no Opencast server is configured (see --server and --settings)")
	}

	clientCfg := opencast.ConfigFromSettings(settings.Opencast)
	for _, cookie := range *cookies {
		name, value, ok := strings.Cut(cookie, "=")
		if !ok {
			l.Fatalf("invalid cookie '%s', expected 'name=value'", cookie)
		}
		clientCfg.Cookies = append(clientCfg.Cookies, &http.Cookie{Name: name, Value: value})
	}
	client, err := opencast.New(ctx, clientCfg)
	if err != nil {
		l.Fatal(err)
	}

	expandedPrefsPath, err := xpath.Expand(*prefsPath)
	if err != nil {
		l.Fatalf("unable to expand path '%s': %v", *prefsPath, err)
	}
	prefsFile := prefs.NewFile(expandedPrefsPath)
	if err := prefsFile.Load(ctx); err != nil {
		l.Errorf("unable to load the preferences, ignoring them: %v", err)
	}

	store := state.NewStore(state.Initial(state.Capabilities{}))
	sess := session.New(ctx, store, client, session.Config{
		Settings: *settings,
		Prefs:    prefsFile,
	})
	defer sess.Close(ctx)

	for _, arg := range pflag.Args() {
		rec, err := loadRecording(arg)
		if err != nil {
			l.Fatal(err)
		}
		l.Debugf("loaded %d bytes of %s from '%s'", rec.Size(), rec.DeviceType, arg)
		store.Dispatch(ctx, state.AddRecording{Recording: rec})
	}

	if *title != "" {
		sess.UpdateTitle(ctx, *title)
	}
	if *presenter != "" {
		sess.UpdatePresenter(ctx, *presenter)
	}
	if pflag.CommandLine.Changed("start") {
		if err := sess.SetTrimStart(ctx, start); err != nil {
			l.Fatal(err)
		}
	}
	if pflag.CommandLine.Changed("end") {
		if err := sess.SetTrimEnd(ctx, end); err != nil {
			l.Fatal(err)
		}
	}

	if !sess.ProbeConnection(ctx) {
		l.Debugf("the server is slow to respond, starting the upload anyway")
	}

	result := runUpload(ctx, sess, store, time.Second, printProgress)

	if result.err != nil {
		l.Errorf("unable to upload: %v", result.err)
	}
	fmt.Printf("result: %s\n", result.outcome)
	if result.outcome != opencast.OutcomeSuccess {
		cancelFn()
		belt.Flush(ctx)
		os.Exit(1)
	}
}

type uploadResult struct {
	outcome opencast.Outcome
	err     error
}

// runUpload uploads in background, reporting the upload state every
// reportInterval and once more when it is finished.
func runUpload(
	ctx context.Context,
	sess *session.Session,
	store *state.Store,
	reportInterval time.Duration,
	report func(state.Upload),
) uploadResult {
	resultCh := make(chan uploadResult, 1)
	observability.Go(ctx, func(ctx context.Context) {
		outcome, err := sess.Upload(ctx)
		resultCh <- uploadResult{outcome: outcome, err: err}
	})

	t := time.NewTicker(reportInterval)
	defer t.Stop()
	for {
		select {
		case result := <-resultCh:
			report(store.State(ctx).Upload)
			return result
		case <-t.C:
			report(store.State(ctx).Upload)
		}
	}
}

func printProgress(upload state.Upload) {
	eta := "?"
	if upload.TimeLeft != nil {
		eta = fmt.Sprintf("%d", int64(upload.TimeLeft.Seconds()))
	}
	fmt.Printf("progress:%.1f%% eta:%s\n", upload.CurrentProgress*100, eta)
}

func loadRecording(arg string) (studio.Recording, error) {
	deviceName, fileName, ok := strings.Cut(arg, "=")
	if !ok {
		return studio.Recording{}, fmt.Errorf("invalid argument '%s', expected '<device>=<file>'", arg)
	}
	deviceType, err := studio.ParseDeviceType(deviceName)
	if err != nil {
		return studio.Recording{}, err
	}
	path, err := xpath.Expand(fileName)
	if err != nil {
		return studio.Recording{}, fmt.Errorf("unable to expand path '%s': %w", fileName, err)
	}
	media, err := os.ReadFile(path)
	if err != nil {
		return studio.Recording{}, fmt.Errorf("unable to read '%s': %w", path, err)
	}
	return studio.Recording{
		DeviceType: deviceType,
		URL:        "file://" + path,
		Media:      media,
		MimeType:   studio.MimeTypeByExtension(filepath.Ext(path)),
	}, nil
}
