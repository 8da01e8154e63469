// Package admin provides the operator API: audit trail browsing and
// system diagnostics. It is served separately from the tenant API and
// guarded by a static operator token.
package admin

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/fieldforge/fieldforge/config"
	"github.com/fieldforge/fieldforge/ports"
)

// Handler provides operator API endpoints.
type Handler struct {
	audit  ports.AuditLog
	gens   ports.GenerationStore
	config *config.Config
	logger zerolog.Logger
}

// Deps contains dependencies for the operator handler.
type Deps struct {
	Audit  ports.AuditLog
	Gens   ports.GenerationStore
	Config *config.Config
	Logger zerolog.Logger
}

// NewHandler creates the operator API handler.
func NewHandler(deps Deps) *Handler {
	return &Handler{
		audit:  deps.Audit,
		gens:   deps.Gens,
		config: deps.Config,
		logger: deps.Logger.With().Str("service", "admin").Logger(),
	}
}

// Router returns the operator API router.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(h.AuthMiddleware)

	r.Get("/audit", h.ListAudit)
	r.Get("/doctor", h.Doctor)

	return r
}

// AuthMiddleware requires the configured operator token as a bearer
// credential. With no token configured every request is rejected.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := h.config.Auth.AdminToken
		if token == "" {
			writeError(w, http.StatusForbidden, "admin_disabled", "no operator token configured")
			return
		}

		raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if subtle.ConstantTimeCompare([]byte(raw), []byte(token)) != 1 {
			writeError(w, http.StatusUnauthorized, "invalid_admin_token", "invalid operator token")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// AuditEntryResponse represents one schema mutation in responses.
type AuditEntryResponse struct {
	ID       string          `json:"id"`
	TenantID string          `json:"tenant_id"`
	ActorID  string          `json:"actor_id"`
	Action   string          `json:"action"`
	Entity   string          `json:"entity"`
	EntityID string          `json:"entity_id"`
	Before   json.RawMessage `json:"before,omitempty"`
	After    json.RawMessage `json:"after,omitempty"`
	At       string          `json:"at"`
}

// ListAudit returns a tenant's schema mutation trail, newest first.
//
//	@Summary	List audit entries
//	@Tags		Admin
//	@Produce	json
//	@Param		tenant_id	query		string	true	"Tenant to inspect"
//	@Param		limit		query		int		false	"Max results"	default(50)
//	@Param		skip		query		int		false	"Offset"		default(0)
//	@Success	200			{object}	map[string]interface{}
//	@Security	AdminAuth
//	@Router		/admin/audit [get]
func (h *Handler) ListAudit(w http.ResponseWriter, r *http.Request) {
	tenantID := r.URL.Query().Get("tenant_id")
	if tenantID == "" {
		writeError(w, http.StatusBadRequest, "missing_tenant", "tenant_id query parameter required")
		return
	}
	limit := parseIntQuery(r, "limit", 50)
	skip := parseIntQuery(r, "skip", 0)

	entries, total, err := h.audit.List(r.Context(), tenantID, limit, skip)
	if err != nil {
		h.logger.Error().Err(err).Str("tenant_id", tenantID).Msg("audit list failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
		return
	}

	response := make([]AuditEntryResponse, len(entries))
	for i, e := range entries {
		response[i] = AuditEntryResponse{
			ID:       e.ID,
			TenantID: e.TenantID,
			ActorID:  e.ActorID,
			Action:   e.Action,
			Entity:   e.Entity,
			EntityID: e.EntityID,
			Before:   e.Before,
			After:    e.After,
			At:       e.At.Format(time.RFC3339),
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entries": response,
		"total":   total,
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{"code": code, "message": message},
	})
}

func parseIntQuery(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	return v
}
