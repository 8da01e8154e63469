package http_test

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	apihttp "github.com/fieldforge/fieldforge/adapters/http"
	"github.com/fieldforge/fieldforge/config"
)

func TestOpenAPIDocument(t *testing.T) {
	h, _ := setupTestHandler(t, devConfig())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/.well-known/openapi.json", nil))
	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}

	var doc struct {
		OpenAPI string `json:"openapi"`
		Info    struct {
			Title string `json:"title"`
		} `json:"info"`
		Paths      map[string]json.RawMessage `json:"paths"`
		Components struct {
			Schemas map[string]json.RawMessage `json:"schemas"`
		} `json:"components"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc.OpenAPI != "3.0.3" || doc.Info.Title != "FieldForge API" {
		t.Errorf("doc header = %s %s", doc.OpenAPI, doc.Info.Title)
	}
	if _, ok := doc.Paths["/api/modules/{slug}/records"]; !ok {
		t.Error("records path missing from document")
	}
	if len(doc.Components.Schemas) != 0 {
		t.Errorf("anonymous request carries %d tenant schemas", len(doc.Components.Schemas))
	}
}

func TestOpenAPIDocument_TenantSchemas(t *testing.T) {
	h, _ := setupTestHandler(t, devConfig())
	doJSON(t, h, "POST", "/api/modules", apihttp.CreateModuleRequest{Name: "Projects"}, nil)
	doJSON(t, h, "POST", "/api/modules/projects/fields", apihttp.AddFieldRequest{Label: "Title", Type: "text", Required: true}, nil)

	req := httptest.NewRequest("GET", "/.well-known/openapi.json", nil)
	req.Header.Set("X-Tenant-ID", "t1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}

	var doc struct {
		Components struct {
			Schemas map[string]struct {
				Required []string `json:"required"`
			} `json:"schemas"`
		} `json:"components"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	schema, ok := doc.Components.Schemas["ProjectsRecord"]
	if !ok {
		t.Fatalf("schemas = %v", doc.Components.Schemas)
	}
	if len(schema.Required) != 1 || schema.Required[0] != "title" {
		t.Errorf("required = %v", schema.Required)
	}
}

func TestOpenAPIDocument_Disabled(t *testing.T) {
	cfg := devConfig()
	cfg.OpenAPI = config.OpenAPIConfig{Enabled: false}
	h, _ := setupTestHandler(t, cfg)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/.well-known/openapi.json", nil))
	if rec.Code != 404 {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
