package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"replyify-site/internal/domain/billing"
	"replyify-site/internal/infra/logging"
)

// Session keys.
const (
	SessionTokenKey = "session_token"
	stateKey        = "oauth_state"
	returnToKey     = "return_to"
)

// Syncer records a signed-in user on the backend.
type Syncer interface {
	SyncUser(ctx context.Context, externalUserID, email string) (billing.SyncedUser, error)
}

// SyncerSource resolves the Syncer per request so missing backend config
// surfaces as an error instead of a startup crash.
type SyncerSource func() (Syncer, error)

type Handler struct {
	provider Provider
	secret   []byte
	ttl      time.Duration
	syncers  SyncerSource
	homeURL  string
}

// NewHandler wires sign-in, callback and sign-out. syncers may be nil.
func NewHandler(provider Provider, secret []byte, syncers SyncerSource, homeURL string) *Handler {
	return &Handler{
		provider: provider,
		secret:   secret,
		ttl:      SessionTTL,
		syncers:  syncers,
		homeURL:  homeURL,
	}
}

// Secret is the key session tokens are signed with.
func (h *Handler) Secret() []byte {
	return h.secret
}

// GET /auth/sign-in
func (h *Handler) SignIn(c *gin.Context) {
	h.RedirectToSignIn(c, c.Query("return_to"))
}

// RedirectToSignIn stores a fresh state and sends the browser to the
// provider sign-in URL. returnTo is where the callback lands afterwards.
func (h *Handler) RedirectToSignIn(c *gin.Context, returnTo string) {
	state, err := randomState()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to generate state"})
		return
	}

	session := sessions.Default(c)
	session.Set(stateKey, state)
	session.Set(returnToKey, safeReturnTo(returnTo))
	if err := session.Save(); err != nil {
		logging.FromContext(c).Error("save session", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to save session"})
		return
	}

	status := http.StatusFound
	if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		status = http.StatusSeeOther
	}
	c.Redirect(status, h.provider.AuthCodeURL(state))
	c.Abort()
}

// GET /auth/callback
func (h *Handler) Callback(c *gin.Context) {
	log := logging.FromContext(c)
	session := sessions.Default(c)

	state := c.Query("state")
	expected, _ := session.Get(stateKey).(string)
	if state == "" || state != expected {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid oauth state"})
		return
	}
	session.Delete(stateKey)

	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing code"})
		return
	}

	user, err := h.provider.Exchange(c.Request.Context(), code)
	if err != nil {
		log.Warn("identity provider exchange failed", zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "failed to exchange code"})
		return
	}

	h.syncUser(c, user.ID, user.Email)

	token, err := IssueSessionToken(user, h.secret, h.ttl)
	if err != nil {
		log.Error("issue session token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create session"})
		return
	}

	returnTo, _ := session.Get(returnToKey).(string)
	session.Delete(returnToKey)
	session.Set(SessionTokenKey, token)
	if err := session.Save(); err != nil {
		log.Error("save session", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save session"})
		return
	}

	log.Info("user signed in", zap.String("user_id", user.ID))
	c.Redirect(http.StatusFound, safeReturnTo(returnTo))
}

// POST /auth/sign-out
func (h *Handler) SignOut(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	if err := session.Save(); err != nil {
		logging.FromContext(c).Error("clear session", zap.Error(err))
	}

	c.Redirect(http.StatusSeeOther, h.logoutTarget())
}

func (h *Handler) logoutTarget() string {
	logout := h.provider.LogoutURL()
	if logout == "" {
		return "/"
	}
	u, err := url.Parse(logout)
	if err != nil {
		return "/"
	}
	if h.homeURL != "" {
		q := u.Query()
		q.Set("post_logout_redirect_uri", h.homeURL)
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// syncUser never blocks sign-in.
func (h *Handler) syncUser(c *gin.Context, externalUserID, email string) {
	if h.syncers == nil {
		return
	}
	log := logging.FromContext(c)

	syncer, err := h.syncers()
	if err != nil {
		log.Warn("skip user sync", zap.Error(err))
		return
	}
	if _, err := syncer.SyncUser(c.Request.Context(), externalUserID, email); err != nil {
		log.Warn("user sync failed", zap.String("user_id", externalUserID), zap.Error(err))
	}
}

func randomState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// safeReturnTo keeps redirects on this site.
func safeReturnTo(p string) string {
	if p == "" || !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.HasPrefix(p, "/\\") {
		return "/"
	}
	return p
}
