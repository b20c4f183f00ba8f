package server

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/miu-servicedesk/portal/authflow/authapi"
	"github.com/miu-servicedesk/portal/internal/config"
	"github.com/miu-servicedesk/portal/routeguard"
	"github.com/miu-servicedesk/portal/session"
	"github.com/miu-servicedesk/portal/users"
	"github.com/stretchr/testify/require"
)

type fakeAuthBackend struct {
	loginReply    *authapi.LoginReply
	loginErr      error
	verifyReply   *authapi.VerifyReply
	verifyErr     error
	resendErr     error
	lastOTP       string
	lastPurpose   session.Purpose
	verifiedEmail string

	resendCalls   atomic.Int32
	resendRelease chan struct{} // when set, ResendOTP blocks until closed
}

func (f *fakeAuthBackend) Signup(ctx context.Context, req authapi.SignupRequest) (string, error) {
	return "Account created. Check your email for a verification code.", nil
}

func (f *fakeAuthBackend) Login(ctx context.Context, email, password string) (*authapi.LoginReply, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return f.loginReply, nil
}

func (f *fakeAuthBackend) VerifyOTP(ctx context.Context, email, otp string, purpose session.Purpose) (*authapi.VerifyReply, error) {
	f.verifiedEmail = email
	f.lastOTP = otp
	f.lastPurpose = purpose
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	return f.verifyReply, nil
}

func (f *fakeAuthBackend) ResendOTP(ctx context.Context, email string, purpose session.Purpose) error {
	f.resendCalls.Add(1)
	if f.resendRelease != nil {
		<-f.resendRelease
	}
	return f.resendErr
}

type serverFixture struct {
	server   *Server
	repo     *session.InMemoryRepo
	auth     *fakeAuthBackend
	ts       *httptest.Server
	client   *http.Client
	teardown func()
}

func setupServer(t *testing.T, backends Backends) *serverFixture {
	t.Helper()

	repo := session.NewInMemoryRepo()
	auth := &fakeAuthBackend{}
	if backends.Auth == nil {
		backends.Auth = auth
	} else {
		auth, _ = backends.Auth.(*fakeAuthBackend)
	}

	srv, err := New(config.New(), repo, backends)
	require.NoError(t, err)

	ts := httptest.NewServer(srv)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return &serverFixture{
		server:   srv,
		repo:     repo,
		auth:     auth,
		ts:       ts,
		client:   client,
		teardown: ts.Close,
	}
}

// seedSession installs an authenticated session and returns its signed
// cookie, as if a login had completed earlier.
func (f *serverFixture) seedSession(t *testing.T, state *session.State) *http.Cookie {
	t.Helper()
	sessionID := uuid.New().String()
	require.NoError(t, f.repo.Put(context.Background(), sessionID, state))

	value, err := f.server.cookies.encode(sessionID)
	require.NoError(t, err)

	cookie := &http.Cookie{Name: sessionCookieName, Value: value, Path: "/"}
	u, err := url.Parse(f.ts.URL)
	require.NoError(t, err)
	f.client.Jar.SetCookies(u, []*http.Cookie{cookie})
	return cookie
}

func (f *serverFixture) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := f.client.Get(f.ts.URL + path)
	require.NoError(t, err)
	return resp
}

func (f *serverFixture) postForm(t *testing.T, path string, form url.Values) *http.Response {
	t.Helper()
	resp, err := f.client.PostForm(f.ts.URL+path, form)
	require.NoError(t, err)
	return resp
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func TestServerGuard(t *testing.T) {
	t.Run("anonymous visitor on a protected page lands on the entry page", func(t *testing.T) {
		f := setupServer(t, Backends{})
		defer f.teardown()

		resp := f.get(t, "/tickets.html")
		defer resp.Body.Close()
		require.Equal(t, http.StatusSeeOther, resp.StatusCode)
		require.Equal(t, "/index.html", resp.Header.Get("Location"))

		// The intended destination is remembered for after login.
		state := sessionStateFromJar(t, f)
		require.Equal(t, "/tickets.html", state.PostLoginRedirect)
	})

	t.Run("anonymous visitor can load the entry and signup pages", func(t *testing.T) {
		f := setupServer(t, Backends{})
		defer f.teardown()

		for _, path := range []string{"/", "/index.html", "/signup.html"} {
			resp := f.get(t, path)
			require.Equal(t, http.StatusOK, resp.StatusCode, path)
			resp.Body.Close()
		}
	})

	t.Run("student on an admin page is bounced to the dashboard with a notice", func(t *testing.T) {
		f := setupServer(t, Backends{})
		defer f.teardown()

		f.seedSession(t, &session.State{
			Token: "jwt-token",
			User:  &users.User{ID: "u1", Email: "s@miuegypt.edu.eg", FirstName: "Sara", Role: users.RoleStudent},
		})

		resp := f.get(t, "/users.html")
		resp.Body.Close()
		require.Equal(t, http.StatusSeeOther, resp.StatusCode)
		require.Equal(t, "/dashboard.html", resp.Header.Get("Location"))

		dash := f.get(t, "/dashboard.html")
		require.Equal(t, http.StatusOK, dash.StatusCode)
		require.Contains(t, readBody(t, dash), routeguard.AccessDeniedMessage)

		// The notice is one-shot.
		again := f.get(t, "/dashboard.html")
		require.NotContains(t, readBody(t, again), routeguard.AccessDeniedMessage)
	})

	t.Run("authenticated supervisor on the entry page is sent to their dashboard", func(t *testing.T) {
		f := setupServer(t, Backends{})
		defer f.teardown()

		f.seedSession(t, &session.State{
			Token: "jwt-token",
			User:  &users.User{ID: "u2", Email: "v@miuegypt.edu.eg", Role: users.RoleSupervisor},
		})

		resp := f.get(t, "/index.html")
		resp.Body.Close()
		require.Equal(t, http.StatusSeeOther, resp.StatusCode)
		require.Equal(t, "/supervisor-dashboard.html", resp.Header.Get("Location"))
	})

	t.Run("tampered session cookie falls back to a fresh anonymous session", func(t *testing.T) {
		f := setupServer(t, Backends{})
		defer f.teardown()

		u, err := url.Parse(f.ts.URL)
		require.NoError(t, err)
		f.client.Jar.SetCookies(u, []*http.Cookie{{Name: sessionCookieName, Value: "not-a-jwt", Path: "/"}})

		resp := f.get(t, "/dashboard.html")
		resp.Body.Close()
		require.Equal(t, http.StatusSeeOther, resp.StatusCode)
		require.Equal(t, "/index.html", resp.Header.Get("Location"))
	})
}

func TestServerLoginFlow(t *testing.T) {
	authedUser := &users.User{
		ID:        "u7",
		Email:     "tarek@miuegypt.edu.eg",
		FirstName: "Tarek",
		LastName:  "Adel",
		Role:      users.RoleTechnician,
	}

	t.Run("login then OTP lands on the role dashboard", func(t *testing.T) {
		auth := &fakeAuthBackend{
			loginReply:  &authapi.LoginReply{Message: "OTP sent to your email"},
			verifyReply: &authapi.VerifyReply{Token: "jwt-token", User: authedUser},
		}
		f := setupServer(t, Backends{Auth: auth})
		defer f.teardown()

		resp := f.postForm(t, RouteAuthLogin, url.Values{
			"email":    {"tarek@miuegypt.edu.eg"},
			"password": {"Sup3r$ecret"},
		})
		resp.Body.Close()
		require.Equal(t, http.StatusSeeOther, resp.StatusCode)
		require.Equal(t, "/index.html", resp.Header.Get("Location"))

		// The entry page now shows the OTP stage.
		entry := f.get(t, "/index.html")
		require.Equal(t, http.StatusOK, entry.StatusCode)
		require.Contains(t, readBody(t, entry), "6-digit code")

		verify := f.postForm(t, RouteAuthVerifyOTP, url.Values{"otp": {"123 456"}})
		verify.Body.Close()
		require.Equal(t, http.StatusSeeOther, verify.StatusCode)
		require.Equal(t, "/junior-dashboard.html", verify.Header.Get("Location"))
		require.Equal(t, "123456", auth.lastOTP)
		require.Equal(t, session.PurposeLogin, auth.lastPurpose)

		dash := f.get(t, "/junior-dashboard.html")
		require.Equal(t, http.StatusOK, dash.StatusCode)
		require.Contains(t, readBody(t, dash), "Tarek Adel")
	})

	t.Run("login after a guarded redirect returns to the original page", func(t *testing.T) {
		auth := &fakeAuthBackend{
			loginReply:  &authapi.LoginReply{Message: "OTP sent"},
			verifyReply: &authapi.VerifyReply{Token: "jwt-token", User: authedUser},
		}
		f := setupServer(t, Backends{Auth: auth})
		defer f.teardown()

		f.get(t, "/assigned-tickets.html").Body.Close()

		f.postForm(t, RouteAuthLogin, url.Values{
			"email":    {"tarek@miuegypt.edu.eg"},
			"password": {"Sup3r$ecret"},
		}).Body.Close()

		verify := f.postForm(t, RouteAuthVerifyOTP, url.Values{"otp": {"123456"}})
		verify.Body.Close()
		require.Equal(t, "/assigned-tickets.html", verify.Header.Get("Location"))
	})

	t.Run("unverified account rolls from verification to login OTP", func(t *testing.T) {
		auth := &fakeAuthBackend{
			loginReply:  &authapi.LoginReply{Message: "Please complete email verification first", Requires: "VERIFICATION"},
			verifyReply: &authapi.VerifyReply{Message: "Email verified"},
		}
		f := setupServer(t, Backends{Auth: auth})
		defer f.teardown()

		f.postForm(t, RouteAuthLogin, url.Values{
			"email":    {"tarek@miuegypt.edu.eg"},
			"password": {"Sup3r$ecret"},
		}).Body.Close()

		verify := f.postForm(t, RouteAuthVerifyOTP, url.Values{"otp": {"654321"}})
		verify.Body.Close()
		require.Equal(t, session.PurposeVerification, auth.lastPurpose)
		require.Equal(t, http.StatusSeeOther, verify.StatusCode)
		require.Contains(t, verify.Header.Get("Location"), "/index.html?")

		state := sessionStateFromJar(t, f)
		require.NotNil(t, state.Pending)
		require.Equal(t, session.PurposeLogin, state.Pending.Purpose)
	})

	t.Run("invalid credentials come back to the entry page with the message", func(t *testing.T) {
		auth := &fakeAuthBackend{
			loginErr: &authapi.RemoteError{StatusCode: http.StatusUnauthorized, Message: "Invalid email or password"},
		}
		f := setupServer(t, Backends{Auth: auth})
		defer f.teardown()

		resp := f.postForm(t, RouteAuthLogin, url.Values{
			"email":    {"tarek@miuegypt.edu.eg"},
			"password": {"wrong"},
		})
		resp.Body.Close()
		require.Equal(t, http.StatusSeeOther, resp.StatusCode)

		loc, err := url.Parse(resp.Header.Get("Location"))
		require.NoError(t, err)
		require.Equal(t, "Invalid email or password", loc.Query().Get("error"))
	})

	t.Run("signup validation error bounces back to the form with the field", func(t *testing.T) {
		f := setupServer(t, Backends{})
		defer f.teardown()

		resp := f.postForm(t, RouteAuthSignup, url.Values{
			"firstName":       {"Sara"},
			"lastName":        {"Nabil"},
			"email":           {"sara@gmail.com"},
			"password":        {"Sup3r$ecret"},
			"confirmPassword": {"Sup3r$ecret"},
			"role":            {"STUDENT"},
			"terms":           {"1"},
		})
		resp.Body.Close()
		require.Equal(t, http.StatusSeeOther, resp.StatusCode)

		loc, err := url.Parse(resp.Header.Get("Location"))
		require.NoError(t, err)
		require.Equal(t, "/signup.html", loc.Path)
		require.Equal(t, "email", loc.Query().Get("field"))
	})

	t.Run("rapid repeat resend requests reach the backend once", func(t *testing.T) {
		auth := &fakeAuthBackend{resendRelease: make(chan struct{})}
		f := setupServer(t, Backends{Auth: auth})
		defer f.teardown()

		f.seedSession(t, &session.State{
			Pending: &session.Pending{Email: "tarek@miuegypt.edu.eg", Purpose: session.PurposeLogin},
		})

		done := make(chan struct{})
		go func() {
			defer close(done)
			resp, err := f.client.PostForm(f.ts.URL+RouteAuthResendOTP, nil)
			if err == nil {
				resp.Body.Close()
			}
		}()

		// Wait until the first resend is held open inside the backend.
		require.Eventually(t, func() bool {
			return auth.resendCalls.Load() == 1
		}, time.Second, time.Millisecond)

		second := f.postForm(t, RouteAuthResendOTP, url.Values{})
		second.Body.Close()
		require.Equal(t, http.StatusSeeOther, second.StatusCode)
		require.EqualValues(t, 1, auth.resendCalls.Load())

		close(auth.resendRelease)
		<-done
		require.EqualValues(t, 1, auth.resendCalls.Load())
	})

	t.Run("logout clears the session and returns to the entry page", func(t *testing.T) {
		f := setupServer(t, Backends{})
		defer f.teardown()

		cookie := f.seedSession(t, &session.State{
			Token: "jwt-token",
			User:  &users.User{ID: "u1", Email: "s@miuegypt.edu.eg", Role: users.RoleStudent},
		})

		resp := f.get(t, RouteAuthLogout)
		resp.Body.Close()
		require.Equal(t, http.StatusSeeOther, resp.StatusCode)
		require.Equal(t, "/index.html", resp.Header.Get("Location"))

		sessionID, err := f.server.cookies.decode(cookie.Value)
		require.NoError(t, err)
		_, err = f.repo.Get(context.Background(), sessionID)
		require.ErrorIs(t, err, session.ErrSessionNotFound)
	})
}

func TestServerRememberMe(t *testing.T) {
	t.Run("valid remember cookie revives the session without a session cookie", func(t *testing.T) {
		f := setupServer(t, Backends{})
		defer f.teardown()

		secret, hash, err := mintRememberSecret()
		require.NoError(t, err)

		sessionID := uuid.New().String()
		require.NoError(t, f.repo.Put(context.Background(), sessionID, &session.State{
			Token:        "jwt-token",
			User:         &users.User{ID: "u1", Email: "s@miuegypt.edu.eg", Role: users.RoleStudent},
			Remember:     true,
			RememberHash: hash,
		}))

		u, err := url.Parse(f.ts.URL)
		require.NoError(t, err)
		f.client.Jar.SetCookies(u, []*http.Cookie{{
			Name:  rememberCookieName,
			Value: sessionID + "." + secret,
			Path:  "/",
		}})

		resp := f.get(t, "/dashboard.html")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()

		var reissued bool
		for _, c := range f.client.Jar.Cookies(u) {
			if c.Name == sessionCookieName && c.Value != "" {
				reissued = true
			}
		}
		require.True(t, reissued)
	})

	t.Run("remember cookie with a wrong secret is discarded", func(t *testing.T) {
		f := setupServer(t, Backends{})
		defer f.teardown()

		_, hash, err := mintRememberSecret()
		require.NoError(t, err)

		sessionID := uuid.New().String()
		require.NoError(t, f.repo.Put(context.Background(), sessionID, &session.State{
			Token:        "jwt-token",
			User:         &users.User{ID: "u1", Email: "s@miuegypt.edu.eg", Role: users.RoleStudent},
			Remember:     true,
			RememberHash: hash,
		}))

		u, err := url.Parse(f.ts.URL)
		require.NoError(t, err)
		f.client.Jar.SetCookies(u, []*http.Cookie{{
			Name:  rememberCookieName,
			Value: sessionID + ".forged-secret",
			Path:  "/",
		}})

		resp := f.get(t, "/dashboard.html")
		resp.Body.Close()
		require.Equal(t, http.StatusSeeOther, resp.StatusCode)
		require.Equal(t, "/index.html", resp.Header.Get("Location"))
	})
}

func TestServerAPIProxy(t *testing.T) {
	t.Run("expired backend token clears the session and redirects", func(t *testing.T) {
		backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer backend.Close()

		f := setupServer(t, Backends{
			Auth:    &fakeAuthBackend{},
			Tickets: authapi.NewBearerClient(backend.URL),
		})
		defer f.teardown()

		cookie := f.seedSession(t, &session.State{
			Token: "stale-token",
			User:  &users.User{ID: "u1", Email: "s@miuegypt.edu.eg", Role: users.RoleStudent},
		})

		resp := f.get(t, RouteAPITicketsSummary)
		resp.Body.Close()
		require.Equal(t, http.StatusSeeOther, resp.StatusCode)
		require.Equal(t, "/index.html", resp.Header.Get("Location"))

		sessionID, err := f.server.cookies.decode(cookie.Value)
		require.NoError(t, err)
		_, err = f.repo.Get(context.Background(), sessionID)
		require.ErrorIs(t, err, session.ErrSessionNotFound)
	})

	t.Run("summary passes through the backend payload", func(t *testing.T) {
		backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "Bearer jwt-token", r.Header.Get("Authorization"))
			w.Header().Set("Content-Type", contentTypeJSON)
			w.Write([]byte(`{"open":4,"closed":11}`))
		}))
		defer backend.Close()

		f := setupServer(t, Backends{
			Auth:    &fakeAuthBackend{},
			Tickets: authapi.NewBearerClient(backend.URL),
		})
		defer f.teardown()

		f.seedSession(t, &session.State{
			Token: "jwt-token",
			User:  &users.User{ID: "u1", Email: "s@miuegypt.edu.eg", Role: users.RoleStudent},
		})

		resp := f.get(t, RouteAPITicketsSummary)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Contains(t, readBody(t, resp), `"open":4`)
	})

	t.Run("workflow list is denied below supervisor", func(t *testing.T) {
		f := setupServer(t, Backends{})
		defer f.teardown()

		f.seedSession(t, &session.State{
			Token: "jwt-token",
			User:  &users.User{ID: "u1", Email: "s@miuegypt.edu.eg", Role: users.RoleStudent},
		})

		resp := f.get(t, RouteAPIWorkflows)
		resp.Body.Close()
		require.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("ai suggestion forwards the description with the bearer token", func(t *testing.T) {
		backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "Bearer jwt-token", r.Header.Get("Authorization"))
			body, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			require.Contains(t, string(body), "projector")
			w.Header().Set("Content-Type", contentTypeJSON)
			w.Write([]byte(`{"category":"AV Equipment"}`))
		}))
		defer backend.Close()

		f := setupServer(t, Backends{
			Auth: &fakeAuthBackend{},
			AI:   authapi.NewBearerClient(backend.URL),
		})
		defer f.teardown()

		f.seedSession(t, &session.State{
			Token: "jwt-token",
			User:  &users.User{ID: "u1", Email: "s@miuegypt.edu.eg", Role: users.RoleStudent},
		})

		resp, err := f.client.Post(f.ts.URL+RouteAPIAISuggest, contentTypeJSON,
			strings.NewReader(`{"description":"projector not turning on"}`))
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Contains(t, readBody(t, resp), "AV Equipment")
	})

	t.Run("nav requires a signed-in session", func(t *testing.T) {
		f := setupServer(t, Backends{})
		defer f.teardown()

		resp := f.get(t, RouteAPINav)
		resp.Body.Close()
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

// sessionStateFromJar reads back the session the server issued to the
// test client.
func sessionStateFromJar(t *testing.T, f *serverFixture) *session.State {
	t.Helper()

	u, err := url.Parse(f.ts.URL)
	require.NoError(t, err)

	for _, c := range f.client.Jar.Cookies(u) {
		if c.Name != sessionCookieName || c.Value == "" {
			continue
		}
		sessionID, err := f.server.cookies.decode(c.Value)
		require.NoError(t, err)
		state, err := f.repo.Get(context.Background(), sessionID)
		require.NoError(t, err)
		return state
	}

	t.Fatal("no session cookie issued")
	return nil
}
