package auth

import (
	"github.com/gin-gonic/gin"

	"replyify-site/internal/domain/users"
)

const userKey = "user"

// SetUser attaches the signed-in user to the request.
func SetUser(c *gin.Context, u users.User) {
	c.Set(userKey, u)
}

// CurrentUser is the signed-in user, if any.
func CurrentUser(c *gin.Context) (users.User, bool) {
	v, ok := c.Get(userKey)
	if !ok {
		return users.User{}, false
	}
	u, ok := v.(users.User)
	return u, ok
}
