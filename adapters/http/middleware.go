package http

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fieldforge/fieldforge/domain/tenant"
)

// AuthMiddleware resolves the tenant and actor for every API request.
// In jwt mode the scope comes from a signed bearer token; in none mode
// (development) it comes from plain headers.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var (
			tctx tenant.Context
			ok   bool
		)
		switch h.cfg().Auth.Mode {
		case "none":
			tctx, ok = h.headerScope(r)
		default:
			tctx, ok = h.tokenScope(w, r)
		}
		if !ok {
			return
		}

		next.ServeHTTP(w, r.WithContext(tenant.WithContext(r.Context(), tctx)))
	})
}

func (h *Handler) headerScope(r *http.Request) (tenant.Context, bool) {
	tctx := tenant.Context{
		TenantID: r.Header.Get("X-Tenant-ID"),
		ActorID:  r.Header.Get("X-Actor-ID"),
	}
	return tctx, true
}

func (h *Handler) tokenScope(w http.ResponseWriter, r *http.Request) (tenant.Context, bool) {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		h.authFailure(w, "missing_token", "bearer token required")
		return tenant.Context{}, false
	}
	raw := strings.TrimPrefix(auth, "Bearer ")

	secret := []byte(h.cfg().Auth.JWTSecret)
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		h.authFailure(w, "invalid_token", "invalid or expired token")
		return tenant.Context{}, false
	}

	tenantID, _ := claims["tenant_id"].(string)
	if tenantID == "" {
		h.authFailure(w, "missing_tenant", "token carries no tenant_id claim")
		return tenant.Context{}, false
	}
	actorID, _ := claims["sub"].(string)

	return tenant.Context{TenantID: tenantID, ActorID: actorID}, true
}

func (h *Handler) authFailure(w http.ResponseWriter, reason, message string) {
	if h.metrics != nil {
		h.metrics.AuthFailures.WithLabelValues(reason).Inc()
	}
	writeError(w, http.StatusUnauthorized, reason, message)
}
