package opencast

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/secret"
	"github.com/xaionaro-go/xsync"

	studio "github.com/elan-ev/opencast-studio-sub000"
	"github.com/elan-ev/opencast-studio-sub000/internal"
)

type LoginMode int

const (
	LoginModeNone = LoginMode(iota)

	// LoginModeAmbient means the session cookies already authenticate us.
	LoginModeAmbient

	// LoginModeBasic is an explicit username and password.
	LoginModeBasic
)

func (m LoginMode) String() string {
	switch m {
	case LoginModeNone:
		return "none"
	case LoginModeAmbient:
		return "ambient"
	case LoginModeBasic:
		return "basic"
	}
	return fmt.Sprintf("<unknown_%d>", int(m))
}

type Login struct {
	Mode     LoginMode
	Username string
	Password *secret.Any[string]
}

func LoginFromSettings(s studio.ServerSettings) Login {
	switch {
	case s.LoginProvided:
		return Login{Mode: LoginModeAmbient}
	case s.HasCredentials():
		return Login{
			Mode:     LoginModeBasic,
			Username: s.Username,
			Password: s.Password,
		}
	}
	return Login{Mode: LoginModeNone}
}

type Config struct {
	// ServerURL is the Opencast base URL; empty means unconfigured.
	ServerURL string
	Login     Login

	// HTTPClient is the transport to use; it is copied, and redirects are
	// never followed regardless of its CheckRedirect.
	HTTPClient *http.Client

	// Cookies are put into the cookie jar, for ambient logins.
	Cookies []*http.Cookie
}

func ConfigFromSettings(s studio.ServerSettings) Config {
	return Config{
		ServerURL: s.ServerURL,
		Login:     LoginFromSettings(s),
	}
}

// Client talks to a single Opencast instance. A Client is never
// reconfigured: after a settings change a new Client replaces the old one.
type Client struct {
	serverURL  *url.URL
	login      Login
	httpClient *http.Client
	now        func() time.Time

	locker xsync.Mutex
	state  ConnectionState
	meRaw  []byte
	me     *Me
	ltiRaw []byte
	lti    LTI
}

func New(
	ctx context.Context,
	cfg Config,
) (_ *Client, _err error) {
	logger.Debugf(ctx, "New(ctx, '%s', %s)", cfg.ServerURL, cfg.Login.Mode)
	defer func() { logger.Debugf(ctx, "/New(ctx, '%s', %s): %v", cfg.ServerURL, cfg.Login.Mode, _err) }()

	c := &Client{
		login: cfg.Login,
		now:   time.Now,
	}
	if cfg.ServerURL == "" {
		c.state = ConnectionStateUnconfigured
		return c, nil
	}

	serverURL, err := url.Parse(cfg.ServerURL)
	if err != nil {
		return nil, fmt.Errorf("unable to parse the server URL '%s': %w", cfg.ServerURL, err)
	}
	if serverURL.Scheme != "http" && serverURL.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme '%s' in the server URL '%s'", serverURL.Scheme, cfg.ServerURL)
	}
	if !strings.HasSuffix(serverURL.Path, "/") {
		serverURL.Path += "/"
	}
	c.serverURL = serverURL

	httpClient := &http.Client{}
	if cfg.HTTPClient != nil {
		*httpClient = *cfg.HTTPClient
	}
	httpClient.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	if httpClient.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("unable to initialize a cookie jar: %w", err)
		}
		httpClient.Jar = jar
	}
	if len(cfg.Cookies) > 0 {
		httpClient.Jar.SetCookies(serverURL, cfg.Cookies)
	}
	c.httpClient = httpClient
	c.state = ConnectionStateConnected
	return c, nil
}

// SetClock replaces the time source used for catalog timestamps.
func (c *Client) SetClock(now func() time.Time) {
	c.now = now
}

func (c *Client) ServerURL() *url.URL {
	if c.serverURL == nil {
		return nil
	}
	u := *c.serverURL
	return &u
}

func (c *Client) LoginMode() LoginMode {
	return c.login.Mode
}

func (c *Client) State(ctx context.Context) ConnectionState {
	return xsync.DoR1(ctx, &c.locker, func() ConnectionState {
		return c.state
	})
}

// Me returns the identity reported by the last successful probe.
func (c *Client) Me(ctx context.Context) *Me {
	return xsync.DoR1(ctx, &c.locker, func() *Me {
		return c.me
	})
}

// User returns the user reported by the last successful probe.
func (c *Client) User(ctx context.Context) *User {
	me := c.Me(ctx)
	if me == nil {
		return nil
	}
	u := me.User
	return &u
}

// LTI returns the session context, if there is any.
func (c *Client) LTI(ctx context.Context) LTI {
	return xsync.DoR1(ctx, &c.locker, func() LTI {
		return c.lti
	})
}

// RefreshConnection probes the identity (and, for ambient logins, the
// session context) and updates the connection state. It reports whether
// anything observable changed. Request failures are folded into the
// connection state; any other error is returned.
func (c *Client) RefreshConnection(
	ctx context.Context,
) (_changed bool, _err error) {
	logger.Debugf(ctx, "RefreshConnection")
	defer func() { logger.Debugf(ctx, "/RefreshConnection: %v %v", _changed, _err) }()

	if c.serverURL == nil {
		return false, nil
	}

	newState, meRaw, me, ltiRaw, lti, err := c.probe(ctx)
	if err != nil {
		return false, err
	}

	return xsync.DoR1(ctx, &c.locker, func() bool {
		changed := c.state != newState ||
			!bytes.Equal(c.meRaw, meRaw) ||
			!bytes.Equal(c.ltiRaw, ltiRaw)
		if changed {
			logger.Debugf(ctx, "connection state: %s -> %s", c.state, newState)
		}
		c.state = newState
		c.meRaw, c.me = meRaw, me
		c.ltiRaw, c.lti = ltiRaw, lti
		return changed
	}), nil
}

func (c *Client) probe(
	ctx context.Context,
) (_ ConnectionState, meRaw []byte, me *Me, ltiRaw []byte, lti LTI, _err error) {
	meRaw, me, err := c.fetchMe(ctx)
	if err != nil {
		state, ok := ConnectionStateForError(err)
		if !ok {
			return ConnectionStateUndefined, nil, nil, nil, nil, fmt.Errorf("unable to get the identity: %w", err)
		}
		logger.Debugf(ctx, "identity probe failed: %v", err)
		return state, nil, nil, nil, nil, nil
	}

	if me.IsAnonymous() {
		return ConnectionStateConnected, meRaw, me, nil, nil, nil
	}

	if c.login.Mode == LoginModeAmbient && me.HasLTIRole() {
		ltiRaw, lti, err = c.fetchLTI(ctx)
		if err != nil {
			state, ok := ConnectionStateForError(err)
			if !ok {
				return ConnectionStateUndefined, nil, nil, nil, nil, fmt.Errorf("unable to get the LTI context: %w", err)
			}
			logger.Debugf(ctx, "LTI probe failed: %v", err)
			return state, meRaw, me, nil, nil, nil
		}
	}

	internal.Assert(ctx, me != nil)
	return ConnectionStateLoggedIn, meRaw, me, ltiRaw, lti, nil
}
