package http

import (
	"net/http"

	"github.com/fieldforge/fieldforge/adapters/openapi"
	"github.com/fieldforge/fieldforge/ports"
)

// OpenAPIDocument serves the generated OpenAPI 3.0 document. The base
// document covers the fixed management surface; a request carrying an
// X-Tenant-ID header is enriched with that tenant's record schemas.
//
//	@Summary	OpenAPI document
//	@Tags		System
//	@Produce	json
//	@Param		X-Tenant-ID	header		string	false	"Include tenant record schemas"
//	@Success	200			{object}	map[string]interface{}
//	@Router		/.well-known/openapi.json [get]
func (h *Handler) OpenAPIDocument(w http.ResponseWriter, r *http.Request) {
	gen := openapi.NewGenerator(h.cfg().OpenAPI.Title, h.version)
	if base := h.cfg().OpenAPI.ServerURL; base != "" {
		gen.AddServer(base, "")
	}

	var snap *ports.SchemaSnapshot
	if tenantID := r.Header.Get("X-Tenant-ID"); tenantID != "" && h.snapshots != nil {
		loaded, err := h.snapshots.Load(r.Context(), tenantID)
		if err != nil {
			h.logger.Warn().Err(err).Str("tenant_id", tenantID).Msg("schema snapshot unavailable for docs")
		} else {
			snap = &loaded
		}
	}

	writeJSON(w, http.StatusOK, gen.Generate(snap))
}
