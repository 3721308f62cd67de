package opencast

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	studio "github.com/elan-ev/opencast-studio-sub000"
)

func basicLogin() Login {
	return Login{
		Mode:     LoginModeBasic,
		Username: "jdoe",
		Password: studio.NewPassword("s3cr3t"),
	}
}

func TestClientUnconfigured(t *testing.T) {
	ctx := testCtx()
	c, err := New(ctx, Config{})
	require.NoError(t, err)
	require.Equal(t, ConnectionStateUnconfigured, c.State(ctx))

	changed, err := c.RefreshConnection(ctx)
	require.NoError(t, err)
	require.False(t, changed)
	require.Equal(t, ConnectionStateUnconfigured, c.State(ctx))
	require.Nil(t, c.ServerURL())

	outcome, err := c.Upload(ctx, UploadRequest{Title: "x"})
	require.NoError(t, err)
	require.Equal(t, OutcomeUnknownError, outcome)
}

func TestNewInvalidURL(t *testing.T) {
	ctx := testCtx()
	_, err := New(ctx, Config{ServerURL: "ftp://example.org"})
	require.Error(t, err)
	_, err = New(ctx, Config{ServerURL: "http://[::1"})
	require.Error(t, err)
}

func TestRefreshConnectionLoggedIn(t *testing.T) {
	ctx := testCtx()
	srv := newFakeOpencast(t)

	c, err := New(ctx, Config{ServerURL: srv.URL(), Login: basicLogin()})
	require.NoError(t, err)
	require.Equal(t, ConnectionStateConnected, c.State(ctx))

	changed, err := c.RefreshConnection(ctx)
	require.NoError(t, err)
	require.True(t, changed)
	require.Equal(t, ConnectionStateLoggedIn, c.State(ctx))
	require.NotNil(t, c.User(ctx))
	assert.Equal(t, "Jane Doe", c.User(ctx).Name)
	assert.Nil(t, c.LTI(ctx))

	reqs := srv.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "/info/me.json", reqs[0].Path)
	assert.Equal(t, "jdoe", reqs[0].User)
	assert.Equal(t, "s3cr3t", reqs[0].Password)

	changed, err = c.RefreshConnection(ctx)
	require.NoError(t, err)
	require.False(t, changed)

	srv.Me = Me{User: User{Username: "jdoe", Name: "Jane Q. Doe"}, UserRole: "ROLE_USER_JDOE", Roles: []string{"ROLE_USER"}}
	changed, err = c.RefreshConnection(ctx)
	require.NoError(t, err)
	require.True(t, changed)
	assert.Equal(t, "Jane Q. Doe", c.User(ctx).Name)
}

func TestRefreshConnectionAnonymous(t *testing.T) {
	ctx := testCtx()
	srv := newFakeOpencast(t)
	srv.Me = Me{Roles: []string{RoleAnonymous}}

	c, err := New(ctx, Config{ServerURL: srv.URL()})
	require.NoError(t, err)
	_, err = c.RefreshConnection(ctx)
	require.NoError(t, err)
	require.Equal(t, ConnectionStateConnected, c.State(ctx))

	reqs := srv.Requests()
	require.Len(t, reqs, 1)
	assert.Empty(t, reqs[0].User)
}

func TestRefreshConnectionLTI(t *testing.T) {
	ctx := testCtx()
	srv := newFakeOpencast(t)
	srv.Me = Me{
		User:     User{Username: "lti-user", Name: "LTI User"},
		UserRole: "ROLE_USER_LTI_USER",
		Roles:    []string{"ROLE_LTI", "ROLE_LTI_Learner"},
	}
	srv.LTI = map[string]any{"context_id": "series-42", "context_title": "Course"}

	t.Run("ambient", func(t *testing.T) {
		c, err := New(ctx, Config{
			ServerURL: srv.URL(),
			Login:     Login{Mode: LoginModeAmbient},
			Cookies:   []*http.Cookie{{Name: "JSESSIONID", Value: "abc"}},
		})
		require.NoError(t, err)
		_, err = c.RefreshConnection(ctx)
		require.NoError(t, err)
		require.Equal(t, ConnectionStateLoggedIn, c.State(ctx))
		require.NotNil(t, c.LTI(ctx))
		assert.Equal(t, "series-42", c.LTI(ctx).ContextID())
		assert.Contains(t, srv.Paths(), "/lti")
	})

	t.Run("basic", func(t *testing.T) {
		before := len(srv.Requests())
		c, err := New(ctx, Config{ServerURL: srv.URL(), Login: basicLogin()})
		require.NoError(t, err)
		_, err = c.RefreshConnection(ctx)
		require.NoError(t, err)
		require.Equal(t, ConnectionStateLoggedIn, c.State(ctx))
		assert.Nil(t, c.LTI(ctx))
		assert.Equal(t, []string{"/info/me.json"}, srv.Paths()[before:])
	})
}

func TestRefreshConnectionErrors(t *testing.T) {
	for _, tc := range []struct {
		name     string
		handler  http.HandlerFunc
		sentinel error
		state    ConnectionState
	}{
		{
			name:     "unauthorized",
			handler:  func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusUnauthorized) },
			sentinel: ErrUnauthorized,
			state:    ConnectionStateIncorrectLogin,
		},
		{
			name:     "forbidden",
			handler:  func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusForbidden) },
			sentinel: ErrUnauthorized,
			state:    ConnectionStateIncorrectLogin,
		},
		{
			name: "redirect",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Redirect(w, r, "/login.html", http.StatusFound)
			},
			sentinel: ErrUnexpectedRedirect,
			state:    ConnectionStateIncorrectLogin,
		},
		{
			name:     "server_error",
			handler:  func(w http.ResponseWriter, _ *http.Request) { http.Error(w, "boom", http.StatusInternalServerError) },
			sentinel: ErrNotOK,
			state:    ConnectionStateResponseNotOK,
		},
		{
			name: "invalid_json",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte("<html>not json</html>"))
			},
			sentinel: ErrInvalidJSON,
			state:    ConnectionStateInvalidResponse,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			ctx := testCtx()
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()

			c, err := New(ctx, Config{ServerURL: srv.URL, Login: basicLogin()})
			require.NoError(t, err)

			_, _, err = c.fetchMe(ctx)
			require.ErrorIs(t, err, tc.sentinel)
			var reqErr *RequestError
			require.True(t, errors.As(err, &reqErr))
			assert.Equal(t, tc.sentinel, reqErr.Sentinel)
			for _, other := range []error{ErrNetwork, ErrUnauthorized, ErrUnexpectedRedirect, ErrNotOK, ErrInvalidJSON} {
				if other != tc.sentinel {
					assert.NotErrorIs(t, err, other)
				}
			}

			changed, err := c.RefreshConnection(ctx)
			require.NoError(t, err)
			require.True(t, changed)
			require.Equal(t, tc.state, c.State(ctx))
			require.Nil(t, c.Me(ctx))
		})
	}
}

func TestRefreshConnectionNetworkError(t *testing.T) {
	ctx := testCtx()
	srv := httptest.NewServer(http.NotFoundHandler())
	serverURL := srv.URL
	srv.Close()

	c, err := New(ctx, Config{ServerURL: serverURL})
	require.NoError(t, err)

	_, _, err = c.fetchMe(ctx)
	require.ErrorIs(t, err, ErrNetwork)

	_, err = c.RefreshConnection(ctx)
	require.NoError(t, err)
	require.Equal(t, ConnectionStateNetworkError, c.State(ctx))
}

func TestLoginFromSettings(t *testing.T) {
	assert.Equal(t, LoginModeNone, LoginFromSettings(studio.ServerSettings{}).Mode)
	assert.Equal(t, LoginModeAmbient, LoginFromSettings(studio.ServerSettings{
		LoginProvided: true,
		Username:      "ignored",
	}).Mode)

	login := LoginFromSettings(studio.ServerSettings{
		Username: "jdoe",
		Password: studio.NewPassword("pw"),
	})
	assert.Equal(t, LoginModeBasic, login.Mode)
	assert.Equal(t, "jdoe", login.Username)
	require.NotNil(t, login.Password)
	assert.Equal(t, "pw", login.Password.Get())
}

func TestMeIsAnonymous(t *testing.T) {
	assert.True(t, (&Me{}).IsAnonymous())
	assert.True(t, (&Me{Roles: []string{RoleAnonymous}}).IsAnonymous())
	assert.True(t, (&Me{Roles: []string{RoleAnonymous, RoleAnonymous}}).IsAnonymous())
	assert.False(t, (&Me{Roles: []string{RoleAnonymous, "ROLE_USER"}}).IsAnonymous())
}
