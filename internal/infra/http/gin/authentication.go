package ginserver

import (
	"log/slog"
	"strings"

	gin "github.com/gin-gonic/gin"

	"carrental/internal/app/apperr"
	domainuser "carrental/internal/domain/user"
)

const principalContextKey = "carrental.principal"

type TokenVerifier interface {
	Verify(raw string) (domainuser.Principal, error)
}

// AuthMiddleware resolves a bearer token into a principal. Requests without a valid token pass through anonymous.
type AuthMiddleware struct {
	Verifier TokenVerifier
	Logger   *slog.Logger
}

func (m AuthMiddleware) Handle(c *gin.Context) {
	token := extractBearerToken(c.GetHeader("Authorization"))
	if token == "" || m.Verifier == nil {
		c.Next()
		return
	}
	p, err := m.Verifier.Verify(token)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Debug("token validation failed", "error", err)
		}
		c.Next()
		return
	}
	setPrincipal(c, p)
	c.Next()
}

func setPrincipal(c *gin.Context, p domainuser.Principal) {
	c.Set(principalContextKey, p)
	c.Set("user_id", p.ID)
}

func currentPrincipal(c *gin.Context) (domainuser.Principal, bool) {
	val, exists := c.Get(principalContextKey)
	if !exists {
		return domainuser.Principal{}, false
	}
	p, ok := val.(domainuser.Principal)
	return p, ok
}

// requirePrincipal writes a 401 and reports false for anonymous requests.
func requirePrincipal(c *gin.Context) (domainuser.Principal, bool) {
	p, ok := currentPrincipal(c)
	if !ok || p.ID == "" {
		writeError(c, apperr.ErrUnauthenticated)
		return domainuser.Principal{}, false
	}
	return p, true
}

func extractBearerToken(header string) string {
	if header == "" {
		return ""
	}
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
