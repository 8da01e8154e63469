package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fieldforge/fieldforge/app"
	"github.com/fieldforge/fieldforge/domain/fault"
	"github.com/fieldforge/fieldforge/domain/module"
)

// ModuleResponse represents a module in API responses.
type ModuleResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description,omitempty"`
	Icon        string `json:"icon,omitempty"`
	IsActive    bool   `json:"is_active"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// CreateModuleRequest represents a request to create a module.
type CreateModuleRequest struct {
	Name        string `json:"name"`
	Slug        string `json:"slug,omitempty"`
	Description string `json:"description,omitempty"`
	Icon        string `json:"icon,omitempty"`
}

// UpdateModuleRequest represents a partial module update. The slug is
// immutable; a request naming it is rejected.
type UpdateModuleRequest struct {
	Name        *string `json:"name"`
	Slug        *string `json:"slug"`
	Description *string `json:"description"`
	Icon        *string `json:"icon"`
	IsActive    *bool   `json:"is_active"`
}

// CascadeResponse reports what a module delete removed.
type CascadeResponse struct {
	FieldsRemoved  int      `json:"fields_removed"`
	RecordsDeleted int      `json:"records_deleted"`
	Batches        int      `json:"batches"`
	FailedIDs      []string `json:"failed_ids,omitempty"`
}

// CascadeFailureResponse reports a cascade delete that aborted partway.
// The module row is kept, so the progress made so far survives a retry.
type CascadeFailureResponse struct {
	Error   ErrorDetail     `json:"error"`
	Cascade CascadeResponse `json:"cascade"`
}

// ListModules returns the tenant's modules.
//
//	@Summary	List modules
//	@Tags		Modules
//	@Produce	json
//	@Param		limit	query		int	false	"Max results"	default(100)
//	@Param		skip	query		int	false	"Offset"		default(0)
//	@Success	200		{object}	map[string]interface{}
//	@Router		/api/modules [get]
func (h *Handler) ListModules(w http.ResponseWriter, r *http.Request) {
	limit := parseIntQuery(r, "limit", 100)
	skip := parseIntQuery(r, "skip", 0)

	mods, total, err := h.modules.List(r.Context(), limit, skip)
	if err != nil {
		h.writeFault(w, r, err)
		return
	}

	response := make([]ModuleResponse, len(mods))
	for i, m := range mods {
		response[i] = moduleToResponse(m)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"modules": response,
		"total":   total,
	})
}

// CreateModule registers a new module.
//
//	@Summary	Create module
//	@Tags		Modules
//	@Accept		json
//	@Produce	json
//	@Param		request	body		CreateModuleRequest	true	"Module data"
//	@Success	201		{object}	ModuleResponse
//	@Failure	409		{object}	ErrorResponseBody	"Slug already taken"
//	@Router		/api/modules [post]
func (h *Handler) CreateModule(w http.ResponseWriter, r *http.Request) {
	var req CreateModuleRequest
	if !decodeBody(w, r, &req) {
		return
	}

	m, err := h.modules.Create(r.Context(), app.CreateModuleInput{
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		Icon:        req.Icon,
	})
	if err != nil {
		h.writeFault(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, moduleToResponse(m))
}

// GetModule returns one module by slug.
//
//	@Summary	Get module
//	@Tags		Modules
//	@Produce	json
//	@Param		slug	path		string	true	"Module slug"
//	@Success	200		{object}	ModuleResponse
//	@Failure	404		{object}	ErrorResponseBody
//	@Router		/api/modules/{slug} [get]
func (h *Handler) GetModule(w http.ResponseWriter, r *http.Request) {
	m, err := h.modules.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.writeFault(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, moduleToResponse(m))
}

// UpdateModule applies a partial update.
//
//	@Summary	Update module
//	@Tags		Modules
//	@Accept		json
//	@Produce	json
//	@Param		slug	path		string				true	"Module slug"
//	@Param		request	body		UpdateModuleRequest	true	"Patch"
//	@Success	200		{object}	ModuleResponse
//	@Failure	400		{object}	ErrorResponseBody	"Slug is immutable"
//	@Router		/api/modules/{slug} [patch]
func (h *Handler) UpdateModule(w http.ResponseWriter, r *http.Request) {
	var req UpdateModuleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Slug != nil {
		writeError(w, http.StatusBadRequest, "immutable_field", "the module slug cannot be changed")
		return
	}

	m, err := h.modules.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.writeFault(w, r, err)
		return
	}

	updated, err := h.modules.Update(r.Context(), m.ID, module.Patch{
		Name:        req.Name,
		Description: req.Description,
		Icon:        req.Icon,
		IsActive:    req.IsActive,
	})
	if err != nil {
		h.writeFault(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, moduleToResponse(updated))
}

// DeactivateModule soft-disables a module.
//
//	@Summary	Deactivate module
//	@Tags		Modules
//	@Produce	json
//	@Param		slug	path		string	true	"Module slug"
//	@Success	200		{object}	ModuleResponse
//	@Router		/api/modules/{slug}/deactivate [post]
func (h *Handler) DeactivateModule(w http.ResponseWriter, r *http.Request) {
	m, err := h.modules.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.writeFault(w, r, err)
		return
	}

	updated, err := h.modules.Deactivate(r.Context(), m.ID)
	if err != nil {
		h.writeFault(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, moduleToResponse(updated))
}

// DeleteModule removes a module, cascading over fields and records.
//
//	@Summary	Delete module
//	@Tags		Modules
//	@Produce	json
//	@Param		slug	path		string	true	"Module slug"
//	@Success	200		{object}	CascadeResponse
//	@Failure	404		{object}	ErrorResponseBody
//	@Failure	500		{object}	CascadeFailureResponse
//	@Router		/api/modules/{slug} [delete]
func (h *Handler) DeleteModule(w http.ResponseWriter, r *http.Request) {
	m, err := h.modules.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.writeFault(w, r, err)
		return
	}

	result, err := h.modules.Delete(r.Context(), m.ID)
	if err != nil {
		var fe *fault.Error
		if errors.As(err, &fe) {
			h.writeFault(w, r, err)
			return
		}

		// An aborted cascade still made progress. Report it so the
		// caller knows what is gone before retrying.
		h.logger.Error().Err(err).Str("slug", m.Slug).Msg("cascade delete aborted")
		writeJSON(w, http.StatusInternalServerError, CascadeFailureResponse{
			Error: ErrorDetail{
				Code:    "cascade_failed",
				Message: "cascade delete aborted; the module was kept and the delete can be retried",
			},
			Cascade: cascadeToResponse(result),
		})
		return
	}
	writeJSON(w, http.StatusOK, cascadeToResponse(result))
}

func cascadeToResponse(result app.CascadeResult) CascadeResponse {
	return CascadeResponse{
		FieldsRemoved:  result.FieldsRemoved,
		RecordsDeleted: result.RecordsDeleted,
		Batches:        result.Batches,
		FailedIDs:      result.FailedIDs,
	}
}

func moduleToResponse(m module.Module) ModuleResponse {
	return ModuleResponse{
		ID:          m.ID,
		Name:        m.Name,
		Slug:        m.Slug,
		Description: m.Description,
		Icon:        m.Icon,
		IsActive:    m.IsActive,
		CreatedAt:   m.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   m.UpdatedAt.Format(time.RFC3339),
	}
}
