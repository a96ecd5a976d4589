package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	authapi "replyify-site/internal/api/auth"
)

// LoadSession resolves the signed-in user from the session cookie, falling
// back to an "Authorization: Bearer" session token when the cookie holds
// none or an invalid one. Anonymous requests pass through untouched.
func LoadSession(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		cookieToken, _ := sessions.Default(c).Get(authapi.SessionTokenKey).(string)
		for _, token := range []string{cookieToken, bearerToken(c)} {
			if token == "" {
				continue
			}
			if user, err := authapi.ParseSessionToken(token, secret); err == nil {
				authapi.SetUser(c, user)
				break
			}
		}
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
}

// SignInRedirector sends the browser to the identity provider.
type SignInRedirector func(c *gin.Context, returnTo string)

// RequireSession redirects anonymous requests to the provider sign-in URL.
// Nothing downstream runs for them.
func RequireSession(redirect SignInRedirector) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := authapi.CurrentUser(c); ok {
			c.Next()
			return
		}
		redirect(c, returnPath(c))
		c.Abort()
	}
}

// RequireUser is the JSON variant of RequireSession.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := authapi.CurrentUser(c); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Next()
	}
}

// returnPath is where the user lands after signing in: the page itself for
// GETs, the referring page of this site for form posts.
func returnPath(c *gin.Context) string {
	if c.Request.Method == http.MethodGet {
		return c.Request.URL.RequestURI()
	}
	if ref, err := url.Parse(c.GetHeader("Referer")); err == nil && ref.Path != "" && (ref.Host == "" || ref.Host == c.Request.Host) {
		return ref.RequestURI()
	}
	return "/"
}
