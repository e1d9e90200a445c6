package middleware

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/projecthub-api/internal/auth"
	"github.com/yukikurage/projecthub-api/internal/constants"
	apierrors "github.com/yukikurage/projecthub-api/internal/errors"
)

// RequireAuth accepts a bearer token first and falls back to the session
// cookie. Either way only the user id reaches the handlers.
func RequireAuth(authn auth.Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := auth.ExtractBearer(c.Request); token != "" {
			principal, err := authn.Authenticate(c.Request.Context(), token)
			if err != nil {
				apierrors.Respond(c, err)
				c.Abort()
				return
			}
			c.Set(constants.ContextKeyUserID, principal.UserID)
			c.Set(constants.ContextKeyPrincipal, principal)
			c.Next()
			return
		}

		session := sessions.Default(c)
		userID := session.Get(constants.ContextKeyUserID)
		if userID == nil {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		// Store user ID in context for easy access in handlers
		c.Set(constants.ContextKeyUserID, userID)
		c.Next()
	}
}

// GetUserID retrieves the current user ID from context
func GetUserID(c *gin.Context) (uint64, bool) {
	userID, exists := c.Get(constants.ContextKeyUserID)
	if !exists {
		return 0, false
	}

	switch v := userID.(type) {
	case uint64:
		return v, true
	case uint:
		return uint64(v), true
	case int:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	default:
		return 0, false
	}
}

// GetPrincipal returns the token principal when the request used a bearer token.
func GetPrincipal(c *gin.Context) (*auth.Principal, bool) {
	v, exists := c.Get(constants.ContextKeyPrincipal)
	if !exists {
		return nil, false
	}
	p, ok := v.(*auth.Principal)
	return p, ok
}
