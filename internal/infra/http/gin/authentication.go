package ginserver

import (
	"strings"

	gin "github.com/gin-gonic/gin"

	"ereft/internal/domain/access"
)

const principalContextKey = "ereft.principal"

// PrincipalResolver turns transport credentials into a principal. The service
// runs behind a gateway that authenticates users and forwards identity
// headers, so the default resolver just reads those.
type PrincipalResolver interface {
	Resolve(c *gin.Context) (access.Principal, bool)
}

// HeaderResolver trusts X-User-ID, X-User-Email and X-User-Roles from the
// gateway.
type HeaderResolver struct{}

func (HeaderResolver) Resolve(c *gin.Context) (access.Principal, bool) {
	id := strings.TrimSpace(c.GetHeader("X-User-ID"))
	email := strings.TrimSpace(c.GetHeader("X-User-Email"))
	if id == "" && email == "" {
		return access.Principal{}, false
	}
	p := access.Principal{ID: id, Email: email}
	if raw := c.GetHeader("X-User-Roles"); raw != "" {
		for _, role := range strings.Split(raw, ",") {
			if role = strings.TrimSpace(role); role != "" {
				p.Roles = append(p.Roles, role)
			}
		}
	}
	return p, true
}

// AuthMiddleware resolves the caller once per request. Requests without
// identity continue as anonymous; the authorization gate decides later.
type AuthMiddleware struct {
	Resolver PrincipalResolver
}

func (m AuthMiddleware) Handle(c *gin.Context) {
	resolver := m.Resolver
	if resolver == nil {
		resolver = HeaderResolver{}
	}
	if p, ok := resolver.Resolve(c); ok {
		c.Set(principalContextKey, p)
	}
	c.Next()
}

func currentPrincipal(c *gin.Context) access.Principal {
	val, exists := c.Get(principalContextKey)
	if !exists {
		return access.Principal{}
	}
	p, ok := val.(access.Principal)
	if !ok {
		return access.Principal{}
	}
	return p
}
