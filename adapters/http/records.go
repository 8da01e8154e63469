package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fieldforge/fieldforge/app"
	"github.com/fieldforge/fieldforge/domain/record"
)

// RecordResponse represents a record in API responses. Values are keyed
// by field name.
type RecordResponse struct {
	ID        string         `json:"id"`
	Module    string         `json:"module"`
	OwnerID   string         `json:"owner_id"`
	Version   int64          `json:"version"`
	Values    map[string]any `json:"values"`
	CreatedAt string         `json:"created_at"`
	UpdatedAt string         `json:"updated_at"`
}

// CreateRecordRequest represents a request to create a record.
type CreateRecordRequest struct {
	Values  map[string]any `json:"values"`
	OwnerID string         `json:"owner_id,omitempty"`
}

// UpdateRecordRequest represents a partial record update. A null value
// clears the field. Version must match the stored record.
type UpdateRecordRequest struct {
	Values  map[string]any `json:"values"`
	Version int64          `json:"version"`
}

// ReferenceResponse is one record that points at the requested one.
type ReferenceResponse struct {
	FieldName   string         `json:"field_name"`
	FieldModule string         `json:"field_module"`
	Record      RecordResponse `json:"record"`
}

// ListRecords returns a page of a module's records.
//
//	@Summary	List records
//	@Tags		Records
//	@Produce	json
//	@Param		slug			path		string	true	"Module slug"
//	@Param		limit			query		int		false	"Max results"	default(50)
//	@Param		skip			query		int		false	"Offset"		default(0)
//	@Param		filter[name]	query		string	false	"Substring filter on a text field"
//	@Success	200				{object}	map[string]interface{}
//	@Router		/api/modules/{slug}/records [get]
func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	limit := parseIntQuery(r, "limit", 50)
	skip := parseIntQuery(r, "skip", 0)

	recs, total, err := h.records.List(r.Context(), chi.URLParam(r, "slug"), parseFilters(r), limit, skip)
	if err != nil {
		h.writeFault(w, r, err)
		return
	}

	response := make([]RecordResponse, len(recs))
	for i, rec := range recs {
		response[i] = recordToResponse(rec)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"records": response,
		"total":   total,
	})
}

// CreateRecord validates and stores a new record.
//
//	@Summary	Create record
//	@Tags		Records
//	@Accept		json
//	@Produce	json
//	@Param		slug	path		string				true	"Module slug"
//	@Param		request	body		CreateRecordRequest	true	"Record values"
//	@Success	201		{object}	RecordResponse
//	@Failure	422		{object}	ViolationsResponseBody
//	@Router		/api/modules/{slug}/records [post]
func (h *Handler) CreateRecord(w http.ResponseWriter, r *http.Request) {
	var req CreateRecordRequest
	if !decodeBody(w, r, &req) {
		return
	}

	rec, err := h.records.Create(r.Context(), app.CreateRecordInput{
		ModuleSlug: chi.URLParam(r, "slug"),
		Values:     req.Values,
		OwnerID:    req.OwnerID,
	})
	if err != nil {
		h.writeFault(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, recordToResponse(rec))
}

// GetRecord returns one record.
//
//	@Summary	Get record
//	@Tags		Records
//	@Produce	json
//	@Param		slug	path		string	true	"Module slug"
//	@Param		id		path		string	true	"Record ID"
//	@Success	200		{object}	RecordResponse
//	@Failure	404		{object}	ErrorResponseBody
//	@Router		/api/modules/{slug}/records/{id} [get]
func (h *Handler) GetRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := h.records.Get(r.Context(), chi.URLParam(r, "slug"), chi.URLParam(r, "id"))
	if err != nil {
		h.writeFault(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, recordToResponse(rec))
}

// UpdateRecord merges a partial update over the stored record and
// revalidates. The request version guards against concurrent writers.
//
//	@Summary	Update record
//	@Tags		Records
//	@Accept		json
//	@Produce	json
//	@Param		slug	path		string				true	"Module slug"
//	@Param		id		path		string				true	"Record ID"
//	@Param		request	body		UpdateRecordRequest	true	"Patch"
//	@Success	200		{object}	RecordResponse
//	@Failure	409		{object}	ErrorResponseBody	"Version conflict"
//	@Failure	422		{object}	ViolationsResponseBody
//	@Router		/api/modules/{slug}/records/{id} [patch]
func (h *Handler) UpdateRecord(w http.ResponseWriter, r *http.Request) {
	var req UpdateRecordRequest
	if !decodeBody(w, r, &req) {
		return
	}

	rec, err := h.records.Update(r.Context(), chi.URLParam(r, "slug"), chi.URLParam(r, "id"), req.Values, req.Version)
	if err != nil {
		h.writeFault(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, recordToResponse(rec))
}

// DeleteRecord removes one record.
//
//	@Summary	Delete record
//	@Tags		Records
//	@Param		slug	path	string	true	"Module slug"
//	@Param		id		path	string	true	"Record ID"
//	@Success	204
//	@Failure	404	{object}	ErrorResponseBody
//	@Router		/api/modules/{slug}/records/{id} [delete]
func (h *Handler) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	if err := h.records.Delete(r.Context(), chi.URLParam(r, "slug"), chi.URLParam(r, "id")); err != nil {
		h.writeFault(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListReferencing returns the records whose relationship fields point at
// the given record. Pass closure=true to follow references transitively.
//
//	@Summary	List referencing records
//	@Tags		Records
//	@Produce	json
//	@Param		slug	path		string	true	"Module slug"
//	@Param		id		path		string	true	"Record ID"
//	@Param		closure	query		bool	false	"Follow references transitively"
//	@Param		limit	query		int		false	"Max results"	default(100)
//	@Success	200		{object}	map[string]interface{}
//	@Router		/api/modules/{slug}/records/{id}/referencing [get]
func (h *Handler) ListReferencing(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	id := chi.URLParam(r, "id")
	limit := parseIntQuery(r, "limit", 100)

	var refs []app.Reference
	var err error
	if r.URL.Query().Get("closure") == "true" {
		refs, err = h.resolver.ReferencingClosure(r.Context(), slug, id, limit)
	} else {
		err = h.resolver.FindReferencing(r.Context(), slug, id, func(ref app.Reference) error {
			if len(refs) >= limit {
				return app.ErrStopScan
			}
			refs = append(refs, ref)
			return nil
		})
	}
	if err != nil {
		h.writeFault(w, r, err)
		return
	}

	response := make([]ReferenceResponse, len(refs))
	for i, ref := range refs {
		response[i] = ReferenceResponse{
			FieldName:   ref.Field.Name,
			FieldModule: ref.Field.ModuleTarget,
			Record:      recordToResponse(ref.Record),
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"referencing": response})
}

// ExportRecords streams a module's records as a formatted table.
//
//	@Summary	Export records
//	@Tags		Records
//	@Produce	json
//	@Param		slug	path		string	true	"Module slug"
//	@Param		fields	query		string	false	"Comma-separated field names"
//	@Success	200		{object}	app.Table
//	@Router		/api/modules/{slug}/export [get]
func (h *Handler) ExportRecords(w http.ResponseWriter, r *http.Request) {
	var names []string
	if raw := r.URL.Query().Get("fields"); raw != "" {
		names = splitComma(raw)
	}

	table, err := h.exporter.Export(r.Context(), chi.URLParam(r, "slug"), names)
	if err != nil {
		h.writeFault(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, table)
}

func recordToResponse(rec record.Record) RecordResponse {
	return RecordResponse{
		ID:        rec.ID,
		Module:    rec.ModuleTarget,
		OwnerID:   rec.OwnerID,
		Version:   rec.Version,
		Values:    rec.Primitives(),
		CreatedAt: rec.CreatedAt.Format(time.RFC3339),
		UpdatedAt: rec.UpdatedAt.Format(time.RFC3339),
	}
}
