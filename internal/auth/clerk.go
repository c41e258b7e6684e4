package auth

import (
	"net/http"
	"strings"

	"github.com/clerk/clerk-sdk-go/v2"
	clerkjwt "github.com/clerk/clerk-sdk-go/v2/jwt"
	"github.com/gin-gonic/gin"

	"github.com/inkwell-app/inkwell/internal/logger"
)

// ClerkProvider verifies Clerk session tokens. The token is read from the
// Authorization header, falling back to the __session cookie Clerk's
// frontend SDK sets.
type ClerkProvider struct{}

// NewClerkProvider configures the Clerk SDK with the given secret key.
func NewClerkProvider(secretKey string) *ClerkProvider {
	clerk.SetKey(secretKey)
	return &ClerkProvider{}
}

func (p *ClerkProvider) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := sessionToken(c.Request)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing session token"})
			return
		}

		claims, err := clerkjwt.Verify(c.Request.Context(), &clerkjwt.VerifyParams{Token: token})
		if err != nil {
			logger.WithComponent("auth").Debugf("session token rejected: %v", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid session token"})
			return
		}

		setUserID(c, claims.Subject)
		c.Next()
	}
}

func sessionToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		return strings.TrimPrefix(header, "Bearer ")
	}
	cookie, err := r.Cookie("__session")
	if err != nil || cookie == nil {
		return ""
	}
	return cookie.Value
}
