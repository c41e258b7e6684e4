// Package auth gates the API behind a session-token check and exposes the
// authenticated user's id to handlers.
package auth

import "github.com/gin-gonic/gin"

const userIDKey = "auth.userID"

// Provider verifies requests and identifies users.
type Provider interface {
	// Middleware rejects unauthenticated requests with 401 and stores the
	// user id in the request context.
	Middleware() gin.HandlerFunc
}

// UserID returns the authenticated user's id set by a Provider middleware.
func UserID(c *gin.Context) (string, bool) {
	v, ok := c.Get(userIDKey)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}

func setUserID(c *gin.Context, id string) {
	c.Set(userIDKey, id)
}
