package security

import (
	"net/http"
	"strings"

	"SupportChat/tools/errs"
	sec "SupportChat/tools/security"

	"github.com/gin-gonic/gin"
)

// Context keys downstream handlers read the verified identity from.
const (
	CtxIdentityKey = "identity" // *security.Identity
	CtxTokenKey    = "authorization"
)

type Options struct {
	JWT sec.Options
}

// Middleware extracts a bearer credential, verifies it, and stores the
// resolved identity in the request context. Requests without a valid
// credential are rejected before reaching the handler.
func Middleware(opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errs.ErrTokenMissing)
			return
		}
		id, err := sec.Resolve(opts.JWT, token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errs.ErrTokenInvalid.WithDetail(err.Error()))
			return
		}
		c.Set(CtxTokenKey, token)
		c.Set(CtxIdentityKey, id)
		c.Next()
	}
}

// IdentityFrom returns the verified identity stored by Middleware.
func IdentityFrom(c *gin.Context) (*sec.Identity, bool) {
	v, ok := c.Get(CtxIdentityKey)
	if !ok {
		return nil, false
	}
	id, ok := v.(*sec.Identity)
	return id, ok
}

func bearerToken(c *gin.Context) string {
	if authz := strings.TrimSpace(c.GetHeader("Authorization")); authz != "" {
		if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return strings.TrimSpace(authz[len("bearer "):])
		}
		return authz
	}
	// websocket handshakes from browsers cannot set headers; allow query fallback
	return strings.TrimSpace(c.Query("token"))
}
