// Package main is the entry point for FieldForge.
//
//	@title						FieldForge - CRM Schema Engine
//	@version					1.0
//	@description				Tenant-scoped custom module and field engine with schema-driven record validation.
//	@contact.name				FieldForge Support
//	@contact.url				https://github.com/fieldforge/fieldforge/issues
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication (format: "Bearer {jwt}")
package main

func main() {
	Execute()
}
