package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	authapi "replyify-site/internal/api/auth"
	"replyify-site/internal/domain/users"
)

var secret = []byte("test-secret")

func init() {
	gin.SetMode(gin.TestMode)
}

func do(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSecurityHeaders(t *testing.T) {
	r := gin.New()
	r.Use(SecurityHeaders())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := do(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "strict-origin-when-cross-origin", w.Header().Get("Referrer-Policy"))
	assert.NotEmpty(t, w.Header().Get("Permissions-Policy"))
}

func TestRejectMarkup(t *testing.T) {
	r := gin.New()
	r.POST("/echo", RejectMarkup(), func(c *gin.Context) {
		b, _ := io.ReadAll(c.Request.Body)
		c.String(http.StatusOK, string(b))
	})

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		return do(r, req)
	}

	for _, body := range []string{
		`{"email":"o'brien@example.com","plan":"pro"}`,
		`{"email":"a&b@example.com","plan":"pro"}`,
		`{"email":" A@B.com ","n":1,"tags":["x","y"]}`,
	} {
		w := post(body)
		require.Equal(t, http.StatusOK, w.Code, body)
		assert.Equal(t, body, w.Body.String(), "body must pass through unchanged")
	}

	for _, body := range []string{
		`{"email":"a@b.com","plan":"<b>pro</b>"}`,
		`{"email":"<script>x</script>a@b.com"}`,
		`{"meta":{"note":"<i>hi</i>"}}`,
		`{"tags":["ok","<img src=x>"]}`,
		`[1,2]`,
		`null`,
		`not json`,
	} {
		w := post(body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.JSONEq(t, `{"error":"Invalid request body"}`, w.Body.String(), body)
	}
}

func TestHasMarkup(t *testing.T) {
	assert.False(t, hasMarkup("o'brien@example.com"))
	assert.False(t, hasMarkup("a&b@example.com"))
	assert.False(t, hasMarkup("  plain text\n"))
	assert.True(t, hasMarkup("<b>pro</b>"))
	assert.True(t, hasMarkup("a&amp;b"))
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Rate: rate.Limit(1.0 / 30.0), Burst: 2, CleanupInterval: time.Hour})
	defer rl.Stop()

	r := gin.New()
	r.POST("/api/payment", rl.Middleware(), func(c *gin.Context) { c.Status(http.StatusOK) })

	send := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/payment", nil)
		req.RemoteAddr = ip + ":1234"
		return do(r, req)
	}

	assert.Equal(t, http.StatusOK, send("10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, send("10.0.0.1").Code)

	w := send("10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "30", w.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, send("10.0.0.2").Code)
	assert.Equal(t, 2, rl.Len())

	rl.cleanup(time.Now().Add(3 * time.Hour))
	assert.Zero(t, rl.Len())
}

func TestRetryAfterSeconds(t *testing.T) {
	assert.Equal(t, 6, retryAfterSeconds(rate.Limit(10.0/60.0)))
	assert.Equal(t, 1, retryAfterSeconds(rate.Limit(50)))
	assert.Equal(t, 60, retryAfterSeconds(0))
}

func sessionRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(sessions.Sessions("replyify_session", cookie.NewStore(secret)), LoadSession(secret))
	r.POST("/login-as", func(c *gin.Context) {
		token, _ := authapi.IssueSessionToken(users.User{ID: "user_1", Email: "a@b.com"}, secret, time.Hour)
		s := sessions.Default(c)
		s.Set(authapi.SessionTokenKey, token)
		_ = s.Save()
		c.Status(http.StatusNoContent)
	})
	r.POST("/login-expired", func(c *gin.Context) {
		token, _ := authapi.IssueSessionToken(users.User{ID: "stale_user", Email: "a@b.com"}, secret, -time.Minute)
		s := sessions.Default(c)
		s.Set(authapi.SessionTokenKey, token)
		_ = s.Save()
		c.Status(http.StatusNoContent)
	})
	r.Any("/protected", handlers...)
	return r
}

func whoami(c *gin.Context) {
	u, ok := authapi.CurrentUser(c)
	if !ok {
		c.String(http.StatusOK, "anonymous")
		return
	}
	c.String(http.StatusOK, u.ID)
}

func TestLoadSession(t *testing.T) {
	r := sessionRouter(whoami)

	w := do(r, httptest.NewRequest(http.MethodGet, "/protected", nil))
	assert.Equal(t, "anonymous", w.Body.String())

	login := do(r, httptest.NewRequest(http.MethodPost, "/login-as", nil))
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	for _, ck := range login.Result().Cookies() {
		req.AddCookie(ck)
	}
	assert.Equal(t, "user_1", do(r, req).Body.String())

	token, err := authapi.IssueSessionToken(users.User{ID: "api_user", Email: "x@y.com"}, secret, time.Hour)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	assert.Equal(t, "api_user", do(r, req).Body.String())

	req = httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	assert.Equal(t, "anonymous", do(r, req).Body.String())
}

func TestLoadSession_InvalidCookieFallsBackToBearer(t *testing.T) {
	r := sessionRouter(whoami)
	stale := do(r, httptest.NewRequest(http.MethodPost, "/login-expired", nil)).Result().Cookies()
	require.NotEmpty(t, stale)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	for _, ck := range stale {
		req.AddCookie(ck)
	}
	assert.Equal(t, "anonymous", do(r, req).Body.String())

	token, err := authapi.IssueSessionToken(users.User{ID: "api_user", Email: "x@y.com"}, secret, time.Hour)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/protected", nil)
	for _, ck := range stale {
		req.AddCookie(ck)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	assert.Equal(t, "api_user", do(r, req).Body.String())
}

func TestRequireSession_RedirectsAnonymous(t *testing.T) {
	var gotReturnTo string
	reached := false
	gate := RequireSession(func(c *gin.Context, returnTo string) {
		gotReturnTo = returnTo
		c.Redirect(http.StatusSeeOther, "https://idp.example.com/authorize")
	})
	r := sessionRouter(gate, func(c *gin.Context) {
		reached = true
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/protected", nil)
	req.Header.Set("Referer", "http://example.com/pricing?x=1")
	req.Host = "example.com"
	w := do(r, req)

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "https://idp.example.com/authorize", w.Header().Get("Location"))
	assert.Equal(t, "/pricing?x=1", gotReturnTo)
	assert.False(t, reached)

	do(r, httptest.NewRequest(http.MethodGet, "/protected?tab=2", nil))
	assert.Equal(t, "/protected?tab=2", gotReturnTo)
}

func TestRequireUser(t *testing.T) {
	r := sessionRouter(RequireUser(), whoami)

	w := do(r, httptest.NewRequest(http.MethodGet, "/protected", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"Unauthorized"}`, w.Body.String())

	token, err := authapi.IssueSessionToken(users.User{ID: "user_1"}, secret, time.Hour)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = do(r, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user_1", w.Body.String())
}
