package openapi

import (
	"sort"
	"strings"

	"github.com/fieldforge/fieldforge/domain/field"
	"github.com/fieldforge/fieldforge/ports"
)

// Generator builds OpenAPI documents for the engine API. When given a
// schema snapshot it additionally documents each module's record shape.
type Generator struct {
	info    Info
	servers []Server
}

// NewGenerator creates a generator with the given API metadata.
func NewGenerator(title, version string) *Generator {
	return &Generator{
		info: Info{
			Title:       title,
			Version:     version,
			Description: "Custom module and record API. Record schemas are derived from the tenant's field definitions.",
		},
	}
}

// AddServer adds a server URL to generated documents.
func (g *Generator) AddServer(url, description string) {
	g.servers = append(g.servers, Server{URL: url, Description: description})
}

// Generate creates the OpenAPI document. snap may be nil, in which case
// only the schema management surface is documented.
func (g *Generator) Generate(snap *ports.SchemaSnapshot) *Spec {
	spec := &Spec{
		OpenAPI: "3.0.3",
		Info:    g.info,
		Servers: g.servers,
		Paths:   make(map[string]PathItem),
		Components: Components{
			Schemas: make(map[string]*Schema),
			SecuritySchemes: map[string]SecurityScheme{
				"bearerAuth": {
					Type:         "http",
					Scheme:       "bearer",
					BearerFormat: "JWT",
					Description:  "Token carrying tenant_id and sub claims",
				},
			},
		},
		Tags: []Tag{
			{Name: "Modules", Description: "Custom module management"},
			{Name: "Fields", Description: "Field definition management"},
			{Name: "Records", Description: "Record storage and queries"},
		},
	}

	g.addSchemaPaths(spec)
	if snap != nil {
		g.addModuleSchemas(spec, snap)
	}
	return spec
}

// addSchemaPaths documents the fixed management endpoints.
func (g *Generator) addSchemaPaths(spec *Spec) {
	slugParam := Parameter{
		Name: "slug", In: "path", Required: true,
		Description: "Module slug",
		Schema:      &Schema{Type: "string"},
	}
	nameParam := Parameter{
		Name: "name", In: "path", Required: true,
		Description: "Field name",
		Schema:      &Schema{Type: "string"},
	}
	idParam := Parameter{
		Name: "id", In: "path", Required: true,
		Description: "Record ID",
		Schema:      &Schema{Type: "string"},
	}

	spec.Paths["/api/modules"] = PathItem{
		Get: &Operation{
			Tags: []string{"Modules"}, Summary: "List modules", OperationID: "list_modules",
			Responses: okResponses("Module list"),
		},
		Post: &Operation{
			Tags: []string{"Modules"}, Summary: "Create module", OperationID: "create_module",
			RequestBody: jsonBody("Module to create"),
			Responses:   createdResponses("Created module"),
		},
	}
	spec.Paths["/api/modules/{slug}"] = PathItem{
		Get: &Operation{
			Tags: []string{"Modules"}, Summary: "Get module", OperationID: "get_module",
			Parameters: []Parameter{slugParam},
			Responses:  okResponses("Module"),
		},
		Patch: &Operation{
			Tags: []string{"Modules"}, Summary: "Update module", OperationID: "update_module",
			Parameters:  []Parameter{slugParam},
			RequestBody: jsonBody("Partial update, slug immutable"),
			Responses:   okResponses("Updated module"),
		},
		Delete: &Operation{
			Tags: []string{"Modules"}, Summary: "Delete module and its records", OperationID: "delete_module",
			Parameters: []Parameter{slugParam},
			Responses:  okResponses("Cascade summary"),
		},
	}
	spec.Paths["/api/modules/{slug}/fields"] = PathItem{
		Get: &Operation{
			Tags: []string{"Fields"}, Summary: "List fields", OperationID: "list_fields",
			Parameters: []Parameter{slugParam},
			Responses:  okResponses("Field list"),
		},
		Post: &Operation{
			Tags: []string{"Fields"}, Summary: "Add field", OperationID: "add_field",
			Parameters:  []Parameter{slugParam},
			RequestBody: jsonBody("Field definition"),
			Responses:   createdResponses("Created field"),
		},
	}
	spec.Paths["/api/modules/{slug}/fields/{name}"] = PathItem{
		Patch: &Operation{
			Tags: []string{"Fields"}, Summary: "Update field", OperationID: "update_field",
			Parameters:  []Parameter{slugParam, nameParam},
			RequestBody: jsonBody("Partial update, name immutable"),
			Responses:   okResponses("Updated field"),
		},
		Delete: &Operation{
			Tags: []string{"Fields"}, Summary: "Remove field", OperationID: "remove_field",
			Parameters: []Parameter{slugParam, nameParam},
			Responses:  map[string]Response{"204": {Description: "Removed"}},
		},
	}
	spec.Paths["/api/modules/{slug}/records"] = PathItem{
		Get: &Operation{
			Tags: []string{"Records"}, Summary: "List records", OperationID: "list_records",
			Parameters: []Parameter{slugParam},
			Responses:  okResponses("Record page"),
		},
		Post: &Operation{
			Tags: []string{"Records"}, Summary: "Create record", OperationID: "create_record",
			Parameters:  []Parameter{slugParam},
			RequestBody: jsonBody("Record values"),
			Responses:   createdResponses("Created record"),
		},
	}
	spec.Paths["/api/modules/{slug}/records/{id}"] = PathItem{
		Get: &Operation{
			Tags: []string{"Records"}, Summary: "Get record", OperationID: "get_record",
			Parameters: []Parameter{slugParam, idParam},
			Responses:  okResponses("Record"),
		},
		Patch: &Operation{
			Tags: []string{"Records"}, Summary: "Update record", OperationID: "update_record",
			Parameters:  []Parameter{slugParam, idParam},
			RequestBody: jsonBody("Partial values and expected version"),
			Responses:   okResponses("Updated record"),
		},
		Delete: &Operation{
			Tags: []string{"Records"}, Summary: "Delete record", OperationID: "delete_record",
			Parameters: []Parameter{slugParam, idParam},
			Responses:  map[string]Response{"204": {Description: "Deleted"}},
		},
	}
	spec.Paths["/api/modules/{slug}/records/{id}/referencing"] = PathItem{
		Get: &Operation{
			Tags: []string{"Records"}, Summary: "List referencing records", OperationID: "list_referencing",
			Parameters: []Parameter{slugParam, idParam},
			Responses:  okResponses("Referencing records"),
		},
	}
	spec.Paths["/api/modules/{slug}/export"] = PathItem{
		Get: &Operation{
			Tags: []string{"Records"}, Summary: "Export records", OperationID: "export_records",
			Parameters: []Parameter{slugParam},
			Responses:  okResponses("Formatted table"),
		},
	}
}

// addModuleSchemas adds one component schema per module target carrying
// fields, derived from the snapshot's definitions.
func (g *Generator) addModuleSchemas(spec *Spec, snap *ports.SchemaSnapshot) {
	targets := make([]string, 0, len(snap.Fields))
	for target := range snap.Fields {
		targets = append(targets, target)
	}
	sort.Strings(targets)

	for _, target := range targets {
		defs := snap.Fields[target]
		schema := &Schema{
			Type:       "object",
			Properties: make(map[string]*Schema, len(defs)),
		}
		for _, d := range defs {
			schema.Properties[d.Name] = fieldSchema(d)
			if d.Required {
				schema.Required = append(schema.Required, d.Name)
			}
		}
		sort.Strings(schema.Required)
		spec.Components.Schemas[schemaName(target)] = schema
	}
}

// fieldSchema maps a field definition onto a JSON schema fragment.
func fieldSchema(d field.Definition) *Schema {
	s := &Schema{Description: d.Label}
	switch d.Type {
	case field.TypeNumber:
		s.Type = "number"
	case field.TypeBoolean:
		s.Type = "boolean"
	case field.TypeDate:
		s.Type = "string"
		s.Format = "date"
	case field.TypeEmail:
		s.Type = "string"
		s.Format = "email"
	case field.TypeURL, field.TypeFile:
		s.Type = "string"
		s.Format = "uri"
	case field.TypeSelect:
		s.Type = "string"
		s.Enum = append([]string(nil), d.Options...)
	case field.TypeRelationship:
		s.Type = "string"
		s.Description = d.Label + " (record ID in " + d.RelationshipTarget + ")"
	default:
		s.Type = "string"
	}
	if d.Default != nil {
		s.Default = d.Default
	}
	if !d.Required {
		s.Nullable = true
	}
	return s
}

// schemaName converts a module slug to a component schema name, e.g.
// "support_tickets" becomes "SupportTicketsRecord".
func schemaName(slug string) string {
	parts := strings.Split(slug, "_")
	var b strings.Builder
	for _, p := range parts {
		if p == "" {
			continue
		}
		b.WriteString(strings.ToUpper(p[:1]))
		b.WriteString(p[1:])
	}
	b.WriteString("Record")
	return b.String()
}

func okResponses(desc string) map[string]Response {
	return map[string]Response{
		"200": {Description: desc},
		"401": {Description: "Unauthorized"},
		"404": {Description: "Not found"},
	}
}

func createdResponses(desc string) map[string]Response {
	return map[string]Response{
		"201": {Description: desc},
		"401": {Description: "Unauthorized"},
		"409": {Description: "Conflict"},
		"422": {Description: "Validation failed"},
	}
}

func jsonBody(desc string) *RequestBody {
	return &RequestBody{
		Description: desc,
		Required:    true,
		Content: map[string]MediaType{
			"application/json": {Schema: &Schema{Type: "object"}},
		},
	}
}
