package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// StaticProvider identifies every request as a fixed user, optionally
// overridden by the X-Dev-User header. Development fallback when no Clerk
// key is configured; never use it in production.
type StaticProvider struct {
	DefaultUser string
}

func NewStaticProvider(defaultUser string) *StaticProvider {
	if defaultUser == "" {
		defaultUser = "dev-user"
	}
	return &StaticProvider{DefaultUser: defaultUser}
}

func (p *StaticProvider) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := c.GetHeader("X-Dev-User")
		if user == "" {
			user = p.DefaultUser
		}
		if user == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "no user"})
			return
		}
		setUserID(c, user)
		c.Next()
	}
}
