package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"replyify-site/internal/domain/billing"
	"replyify-site/internal/domain/users"
)

var testSecret = []byte("test-session-secret")

type fakeProvider struct {
	exchange  func(ctx context.Context, code string) (users.User, error)
	logoutURL string
}

func (p *fakeProvider) AuthCodeURL(state string) string {
	return "https://idp.example.com/authorize?state=" + url.QueryEscape(state)
}

func (p *fakeProvider) Exchange(ctx context.Context, code string) (users.User, error) {
	return p.exchange(ctx, code)
}

func (p *fakeProvider) LogoutURL() string { return p.logoutURL }

type fakeSyncer struct {
	calls [][2]string
	err   error
}

func (s *fakeSyncer) SyncUser(_ context.Context, externalUserID, email string) (billing.SyncedUser, error) {
	s.calls = append(s.calls, [2]string{externalUserID, email})
	if s.err != nil {
		return billing.SyncedUser{}, s.err
	}
	return billing.SyncedUser{UserID: "u1", Email: email}, nil
}

func newAuthRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(sessions.Sessions("replyify_session", cookie.NewStore(testSecret)))
	r.GET("/auth/sign-in", h.SignIn)
	r.GET("/auth/callback", h.Callback)
	r.POST("/auth/sign-out", h.SignOut)
	r.GET("/whoami", func(c *gin.Context) {
		token, _ := sessions.Default(c).Get(SessionTokenKey).(string)
		u, err := ParseSessionToken(token, h.Secret())
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, u)
	})
	return r
}

func serve(r http.Handler, req *http.Request, cookies []*http.Cookie) *httptest.ResponseRecorder {
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func signIn(t *testing.T, r http.Handler, returnTo string) (state string, cookies []*http.Cookie) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/auth/sign-in?return_to="+url.QueryEscape(returnTo), nil)
	w := serve(r, req, nil)
	require.Equal(t, http.StatusFound, w.Code)

	loc, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "idp.example.com", loc.Host)
	state = loc.Query().Get("state")
	require.NotEmpty(t, state)
	return state, w.Result().Cookies()
}

func TestCallback_SignsInAndSyncs(t *testing.T) {
	provider := &fakeProvider{exchange: func(_ context.Context, code string) (users.User, error) {
		assert.Equal(t, "the-code", code)
		return users.User{ID: "user_1", Email: "a@b.com", FirstName: "Ada"}, nil
	}}
	syncer := &fakeSyncer{}
	h := NewHandler(provider, testSecret, func() (Syncer, error) { return syncer, nil }, "")
	r := newAuthRouter(h)

	state, cookies := signIn(t, r, "/pricing")

	req := httptest.NewRequest(http.MethodGet, "/auth/callback?code=the-code&state="+url.QueryEscape(state), nil)
	w := serve(r, req, cookies)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/pricing", w.Header().Get("Location"))
	assert.Equal(t, [][2]string{{"user_1", "a@b.com"}}, syncer.calls)

	who := serve(r, httptest.NewRequest(http.MethodGet, "/whoami", nil), w.Result().Cookies())
	require.Equal(t, http.StatusOK, who.Code)
	assert.JSONEq(t, `{"id":"user_1","email":"a@b.com","firstName":"Ada"}`, who.Body.String())
}

func TestCallback_SyncFailureDoesNotBlockSignIn(t *testing.T) {
	provider := &fakeProvider{exchange: func(context.Context, string) (users.User, error) {
		return users.User{ID: "user_1", Email: "a@b.com"}, nil
	}}
	h := NewHandler(provider, testSecret, func() (Syncer, error) {
		return nil, errors.New("BACKEND_URL is not configured")
	}, "")
	r := newAuthRouter(h)

	state, cookies := signIn(t, r, "")
	w := serve(r, httptest.NewRequest(http.MethodGet, "/auth/callback?code=c&state="+url.QueryEscape(state), nil), cookies)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	syncer := &fakeSyncer{err: errors.New("boom")}
	h.syncers = func() (Syncer, error) { return syncer, nil }
	state, cookies = signIn(t, r, "")
	w = serve(r, httptest.NewRequest(http.MethodGet, "/auth/callback?code=c&state="+url.QueryEscape(state), nil), cookies)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Len(t, syncer.calls, 1)
}

func TestCallback_RejectsBadState(t *testing.T) {
	exchanged := false
	provider := &fakeProvider{exchange: func(context.Context, string) (users.User, error) {
		exchanged = true
		return users.User{}, nil
	}}
	r := newAuthRouter(NewHandler(provider, testSecret, nil, ""))

	_, cookies := signIn(t, r, "/")
	w := serve(r, httptest.NewRequest(http.MethodGet, "/auth/callback?code=c&state=forged", nil), cookies)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, exchanged)

	w = serve(r, httptest.NewRequest(http.MethodGet, "/auth/callback?code=c", nil), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCallback_ExchangeFailure(t *testing.T) {
	provider := &fakeProvider{exchange: func(context.Context, string) (users.User, error) {
		return users.User{}, errors.New("bad code")
	}}
	r := newAuthRouter(NewHandler(provider, testSecret, nil, ""))

	state, cookies := signIn(t, r, "/")
	w := serve(r, httptest.NewRequest(http.MethodGet, "/auth/callback?code=c&state="+url.QueryEscape(state), nil), cookies)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.NotContains(t, w.Body.String(), "bad code")
}

func TestSignOut(t *testing.T) {
	provider := &fakeProvider{logoutURL: "https://idp.example.com/logout"}
	r := newAuthRouter(NewHandler(provider, testSecret, nil, "https://replyify.app"))

	w := serve(r, httptest.NewRequest(http.MethodPost, "/auth/sign-out", nil), nil)
	require.Equal(t, http.StatusSeeOther, w.Code)
	loc, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/logout", loc.Path)
	assert.Equal(t, "https://replyify.app", loc.Query().Get("post_logout_redirect_uri"))

	r = newAuthRouter(NewHandler(&fakeProvider{}, testSecret, nil, ""))
	w = serve(r, httptest.NewRequest(http.MethodPost, "/auth/sign-out", nil), nil)
	assert.Equal(t, "/", w.Header().Get("Location"))
}

func TestSafeReturnTo(t *testing.T) {
	cases := map[string]string{
		"":                    "/",
		"/pricing":            "/pricing",
		"//evil.example.com":  "/",
		"https://evil.com/x":  "/",
		"/\\evil.example.com": "/",
	}
	for in, want := range cases {
		assert.Equal(t, want, safeReturnTo(in), in)
	}
}
