// Package http provides the REST API over the engine services.
package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/fieldforge/fieldforge/adapters/metrics"
	"github.com/fieldforge/fieldforge/app"
	"github.com/fieldforge/fieldforge/config"
	"github.com/fieldforge/fieldforge/domain/fault"
)

// ErrorDetail is the error payload of every non-2xx response.
type ErrorDetail struct {
	Code    string `json:"code" example:"not_found"`
	Message string `json:"message" example:"module \"projects\" not found"`
	Field   string `json:"field,omitempty" example:"status"`
}

// ErrorResponseBody is the JSON envelope for errors.
type ErrorResponseBody struct {
	Error ErrorDetail `json:"error"`
}

// ViolationsResponseBody is returned with 422 when a record payload has
// validation violations.
type ViolationsResponseBody struct {
	Error      ErrorDetail `json:"error"`
	Violations any         `json:"violations"`
}

// VersionResponse is the version endpoint payload.
type VersionResponse struct {
	Version string `json:"version" example:"1.0.0"`
	Service string `json:"service" example:"fieldforge"`
}

// Handler serves the engine API.
type Handler struct {
	modules   *app.ModuleService
	fields    *app.FieldService
	records   *app.RecordService
	resolver  *app.Resolver
	exporter  *app.Exporter
	snapshots *app.SnapshotLoader
	cfg       func() *config.Config
	metrics   *metrics.Collector
	version   string
	logger    zerolog.Logger
}

// Deps contains dependencies for the API handler.
type Deps struct {
	Modules   *app.ModuleService
	Fields    *app.FieldService
	Records   *app.RecordService
	Resolver  *app.Resolver
	Exporter  *app.Exporter
	Snapshots *app.SnapshotLoader
	Config    func() *config.Config
	Metrics   *metrics.Collector
	Version   string
	Logger    zerolog.Logger
}

// NewHandler creates the API handler.
func NewHandler(deps Deps) *Handler {
	return &Handler{
		modules:   deps.Modules,
		fields:    deps.Fields,
		records:   deps.Records,
		resolver:  deps.Resolver,
		exporter:  deps.Exporter,
		snapshots: deps.Snapshots,
		cfg:       deps.Config,
		metrics:   deps.Metrics,
		version:   deps.Version,
		logger:    deps.Logger.With().Str("service", "http").Logger(),
	}
}

// Router builds the full route tree.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()

	metricsPath := h.cfg().Metrics.Path
	if metricsPath == "" {
		metricsPath = "/metrics"
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(newLoggingMiddleware(h.logger, metricsPath))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	if h.metrics != nil {
		r.Use(newMetricsMiddleware(h.metrics, metricsPath))
	}

	r.Get("/healthz", h.Health)
	r.Get("/version", h.Version)
	if h.metrics != nil && h.cfg().Metrics.Enabled {
		r.Handle(metricsPath, promhttp.Handler())
	}

	if h.cfg().OpenAPI.Enabled {
		r.Get("/.well-known/openapi.json", h.OpenAPIDocument)
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/.well-known/openapi.json"),
		))
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(h.AuthMiddleware)

		r.Get("/modules", h.ListModules)
		r.Post("/modules", h.CreateModule)
		r.Route("/modules/{slug}", func(r chi.Router) {
			r.Get("/", h.GetModule)
			r.Patch("/", h.UpdateModule)
			r.Delete("/", h.DeleteModule)
			r.Post("/deactivate", h.DeactivateModule)

			r.Get("/fields", h.ListFields)
			r.Post("/fields", h.AddField)
			r.Patch("/fields/{name}", h.UpdateField)
			r.Delete("/fields/{name}", h.RemoveField)

			r.Get("/records", h.ListRecords)
			r.Post("/records", h.CreateRecord)
			r.Get("/records/{id}", h.GetRecord)
			r.Patch("/records/{id}", h.UpdateRecord)
			r.Delete("/records/{id}", h.DeleteRecord)
			r.Get("/records/{id}/referencing", h.ListReferencing)

			r.Get("/export", h.ExportRecords)
		})
	})

	return r
}

// Health reports liveness.
//
//	@Summary	Liveness check
//	@Tags		System
//	@Produce	json
//	@Success	200	{object}	map[string]string	"status: ok"
//	@Router		/healthz [get]
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Version returns the service version.
//
//	@Summary	Get service version
//	@Tags		System
//	@Produce	json
//	@Success	200	{object}	VersionResponse
//	@Router		/version [get]
func (h *Handler) Version(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, VersionResponse{Version: h.version, Service: "fieldforge"})
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponseBody{Error: ErrorDetail{Code: code, Message: message}})
}

// writeFault maps an application error onto the HTTP surface. Validation
// failures carry the full violation list under 422.
func (h *Handler) writeFault(w http.ResponseWriter, r *http.Request, err error) {
	var vf *app.ValidationFailed
	if errors.As(err, &vf) {
		writeJSON(w, http.StatusUnprocessableEntity, ViolationsResponseBody{
			Error:      ErrorDetail{Code: "validation_failed", Message: vf.Error()},
			Violations: vf.Violations,
		})
		return
	}

	var fe *fault.Error
	if errors.As(err, &fe) {
		writeJSON(w, faultStatus(fe.Code), ErrorResponseBody{Error: ErrorDetail{
			Code:    string(fe.Code),
			Message: fe.Message,
			Field:   fe.Field,
		}})
		return
	}

	h.logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
}

func faultStatus(code fault.Code) int {
	switch code {
	case fault.CodeNotFound:
		return http.StatusNotFound
	case fault.CodeForbidden:
		return http.StatusForbidden
	case fault.CodeDuplicateSlug, fault.CodeDuplicateFieldName,
		fault.CodeFieldTypeLocked, fault.CodeFieldInUse,
		fault.CodeConcurrentModification:
		return http.StatusConflict
	case fault.CodeRelationshipUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadRequest
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return false
	}
	return true
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

// splitComma splits a comma-separated list, trimming blanks.
func splitComma(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parseFilters collects filter[name]=substr query parameters.
func parseFilters(r *http.Request) map[string]string {
	var filters map[string]string
	for key, values := range r.URL.Query() {
		if !strings.HasPrefix(key, "filter[") || !strings.HasSuffix(key, "]") || len(values) == 0 {
			continue
		}
		name := key[len("filter[") : len(key)-1]
		if name == "" {
			continue
		}
		if filters == nil {
			filters = make(map[string]string)
		}
		filters[name] = values[0]
	}
	return filters
}

// -----------------------------------------------------------------------------
// Middleware
// -----------------------------------------------------------------------------

func newLoggingMiddleware(logger zerolog.Logger, metricsPath string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			if r.URL.Path == "/healthz" || r.URL.Path == metricsPath {
				return
			}

			logger.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("http request")
		})
	}
}

func newMetricsMiddleware(m *metrics.Collector, metricsPath string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/healthz" || r.URL.Path == metricsPath ||
				strings.HasPrefix(r.URL.Path, "/swagger") || strings.HasPrefix(r.URL.Path, "/.well-known") {
				next.ServeHTTP(w, r)
				return
			}

			m.RequestsInFlight.Inc()
			defer m.RequestsInFlight.Dec()

			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := chi.RouteContext(r.Context()).RoutePattern()
			if route == "" {
				route = "unmatched"
			}
			status := statusLabel(ww.Status())
			m.RequestsTotal.WithLabelValues(r.Method, route, status).Inc()
			m.RequestDuration.WithLabelValues(r.Method, route, status).Observe(time.Since(start).Seconds())
		})
	}
}

func statusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "other"
	}
}
