package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fieldforge/fieldforge/app"
	"github.com/fieldforge/fieldforge/domain/field"
)

// FieldResponse represents a field definition in API responses.
type FieldResponse struct {
	ID                 string   `json:"id"`
	ModuleTarget       string   `json:"module"`
	Label              string   `json:"label"`
	Name               string   `json:"name"`
	Type               string   `json:"type"`
	Options            []string `json:"options,omitempty"`
	Required           bool     `json:"required"`
	Default            any      `json:"default,omitempty"`
	Order              int      `json:"order"`
	RelationshipTarget string   `json:"relationship_target,omitempty"`
	CreatedAt          string   `json:"created_at"`
	UpdatedAt          string   `json:"updated_at"`
}

// AddFieldRequest represents a request to add a field to a module.
type AddFieldRequest struct {
	Label              string   `json:"label"`
	Name               string   `json:"name,omitempty"`
	Type               string   `json:"type"`
	Options            []string `json:"options,omitempty"`
	Required           bool     `json:"required,omitempty"`
	Default            any      `json:"default,omitempty"`
	Order              int      `json:"order,omitempty"`
	RelationshipTarget string   `json:"relationship_target,omitempty"`
}

// UpdateFieldRequest represents a partial field update. The field name
// is immutable; a request naming it is rejected.
type UpdateFieldRequest struct {
	Label              *string  `json:"label"`
	Type               *string  `json:"type"`
	Options            []string `json:"options"`
	Required           *bool    `json:"required"`
	Default            any      `json:"default"`
	Order              *int     `json:"order"`
	RelationshipTarget *string  `json:"relationship_target"`
}

// ListFields returns a module's fields in display order.
//
//	@Summary	List fields
//	@Tags		Fields
//	@Produce	json
//	@Param		slug	path		string	true	"Module slug"
//	@Success	200		{object}	map[string]interface{}
//	@Router		/api/modules/{slug}/fields [get]
func (h *Handler) ListFields(w http.ResponseWriter, r *http.Request) {
	defs, err := h.fields.List(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.writeFault(w, r, err)
		return
	}

	response := make([]FieldResponse, len(defs))
	for i, d := range defs {
		response[i] = fieldToResponse(d)
	}
	writeJSON(w, http.StatusOK, map[string]any{"fields": response})
}

// AddField adds a field definition to a module.
//
//	@Summary	Add field
//	@Tags		Fields
//	@Accept		json
//	@Produce	json
//	@Param		slug	path		string			true	"Module slug"
//	@Param		request	body		AddFieldRequest	true	"Field data"
//	@Success	201		{object}	FieldResponse
//	@Failure	409		{object}	ErrorResponseBody	"Name already taken"
//	@Router		/api/modules/{slug}/fields [post]
func (h *Handler) AddField(w http.ResponseWriter, r *http.Request) {
	var req AddFieldRequest
	if !decodeBody(w, r, &req) {
		return
	}

	def, err := h.fields.Add(r.Context(), app.AddFieldInput{
		ModuleTarget:       chi.URLParam(r, "slug"),
		Label:              req.Label,
		Name:               req.Name,
		Type:               field.Type(req.Type),
		Options:            req.Options,
		Required:           req.Required,
		Default:            req.Default,
		Order:              req.Order,
		RelationshipTarget: req.RelationshipTarget,
	})
	if err != nil {
		h.writeFault(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, fieldToResponse(def))
}

// UpdateField applies a partial update to a field definition.
//
//	@Summary	Update field
//	@Tags		Fields
//	@Accept		json
//	@Produce	json
//	@Param		slug	path		string				true	"Module slug"
//	@Param		name	path		string				true	"Field name"
//	@Param		request	body		UpdateFieldRequest	true	"Patch"
//	@Success	200		{object}	FieldResponse
//	@Failure	400		{object}	ErrorResponseBody	"Name is immutable"
//	@Failure	409		{object}	ErrorResponseBody	"Type is locked"
//	@Router		/api/modules/{slug}/fields/{name} [patch]
func (h *Handler) UpdateField(w http.ResponseWriter, r *http.Request) {
	var raw map[string]json.RawMessage
	if !decodeBody(w, r, &raw) {
		return
	}
	if _, ok := raw["name"]; ok {
		writeError(w, http.StatusBadRequest, "immutable_field", "the field name cannot be changed")
		return
	}

	var req UpdateFieldRequest
	buf, err := json.Marshal(raw)
	if err == nil {
		err = json.Unmarshal(buf, &req)
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	def, err := h.fields.GetByName(r.Context(), chi.URLParam(r, "slug"), chi.URLParam(r, "name"))
	if err != nil {
		h.writeFault(w, r, err)
		return
	}

	patch := field.Patch{
		Label:              req.Label,
		Options:            req.Options,
		Required:           req.Required,
		Order:              req.Order,
		RelationshipTarget: req.RelationshipTarget,
	}
	if req.Type != nil {
		t := field.Type(*req.Type)
		patch.Type = &t
	}
	// Distinguish "default": null (clear) from an absent key (keep).
	if _, ok := raw["default"]; ok {
		patch.Default = req.Default
		patch.HasDefault = true
	}

	updated, err := h.fields.Update(r.Context(), def.ID, patch)
	if err != nil {
		h.writeFault(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, fieldToResponse(updated))
}

// RemoveField deletes a field definition. Pass force=true to strip
// stored values from existing records first.
//
//	@Summary	Remove field
//	@Tags		Fields
//	@Produce	json
//	@Param		slug	path	string	true	"Module slug"
//	@Param		name	path	string	true	"Field name"
//	@Param		force	query	bool	false	"Strip stored values"
//	@Success	204
//	@Failure	409	{object}	ErrorResponseBody	"Field holds values"
//	@Router		/api/modules/{slug}/fields/{name} [delete]
func (h *Handler) RemoveField(w http.ResponseWriter, r *http.Request) {
	def, err := h.fields.GetByName(r.Context(), chi.URLParam(r, "slug"), chi.URLParam(r, "name"))
	if err != nil {
		h.writeFault(w, r, err)
		return
	}

	force := r.URL.Query().Get("force") == "true"
	if err := h.fields.Remove(r.Context(), def.ID, force); err != nil {
		h.writeFault(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func fieldToResponse(d field.Definition) FieldResponse {
	return FieldResponse{
		ID:                 d.ID,
		ModuleTarget:       d.ModuleTarget,
		Label:              d.Label,
		Name:               d.Name,
		Type:               string(d.Type),
		Options:            d.Options,
		Required:           d.Required,
		Default:            d.Default,
		Order:              d.Order,
		RelationshipTarget: d.RelationshipTarget,
		CreatedAt:          d.CreatedAt.Format(time.RFC3339),
		UpdatedAt:          d.UpdatedAt.Format(time.RFC3339),
	}
}
