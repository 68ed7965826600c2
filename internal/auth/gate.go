package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Proctor/internal/domain"
)

const identityKey = "identity"

// Gate wraps a Verifier as gin middlewares. Rejections happen before the
// websocket upgrade, so a refused attempt never reaches the registry.
type Gate struct {
	Verifier *Verifier
	// OnReject is called with the rejection reason, if set.
	OnReject func(reason string)
}

// BearerToken reads the credential from the Authorization header or, for
// browser websockets that can not set headers, the token query parameter.
func BearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
			return strings.TrimSpace(h[7:])
		}
		return ""
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}

// RequireIdentity refuses the request unless it carries a valid credential.
func (g *Gate) RequireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := g.Verifier.Verify(BearerToken(c.Request))
		if err != nil {
			g.reject(c, http.StatusUnauthorized, err)
			return
		}
		c.Set(identityKey, id)
		c.Next()
	}
}

// OptionalIdentity attaches an identity when a credential is present and
// falls back to the anonymous identity when it is absent. A credential
// that is present but invalid is still refused.
func (g *Gate) OptionalIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c.Request)
		if token == "" {
			c.Set(identityKey, domain.Identity{})
			c.Next()
			return
		}
		id, err := g.Verifier.Verify(token)
		if err != nil {
			g.reject(c, http.StatusUnauthorized, err)
			return
		}
		c.Set(identityKey, id)
		c.Next()
	}
}

// RequireRole is layered after RequireIdentity.
func (g *Gate) RequireRole(role domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := IdentityFrom(c)
		if !ok || id.Anonymous() {
			g.reject(c, http.StatusUnauthorized, ErrMissingCredential)
			return
		}
		if id.Role != role {
			g.reject(c, http.StatusForbidden, ErrForbiddenRole)
			return
		}
		c.Next()
	}
}

func (g *Gate) reject(c *gin.Context, status int, err error) {
	reason := rejectionReason(err)
	log.Warn().Str("module", "auth.gate").Str("path", c.FullPath()).Str("reason", reason).Err(err).Msg("connection refused")
	if g.OnReject != nil {
		g.OnReject(reason)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": reason})
}

func rejectionReason(err error) string {
	for _, known := range []error{ErrMissingCredential, ErrExpiredCredential, ErrForbiddenRole, ErrInvalidCredential} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return ErrInvalidCredential.Error()
}

// IdentityFrom returns the identity attached by the gate.
func IdentityFrom(c *gin.Context) (domain.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return domain.Identity{}, false
	}
	id, ok := v.(domain.Identity)
	return id, ok
}
