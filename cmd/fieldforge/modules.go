package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fieldforge/fieldforge/app"
	"github.com/fieldforge/fieldforge/bootstrap"
	"github.com/fieldforge/fieldforge/domain/tenant"
)

var modulesCmd = &cobra.Command{
	Use:   "modules",
	Short: "Manage tenant modules",
	Long: `Manage custom modules from the command line.

Commands operate directly on the configured database, bypassing the
HTTP API. All schema mutations are audited the same way.

Examples:
  fieldforge modules list --tenant acme
  fieldforge modules create --tenant acme --name "Support Tickets"`,
}

var modulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a tenant's modules",
	RunE:  runModulesList,
}

var modulesCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a module",
	RunE:  runModulesCreate,
}

var (
	modTenant      string
	modName        string
	modSlug        string
	modDescription string
)

func init() {
	rootCmd.AddCommand(modulesCmd)

	modulesCmd.AddCommand(modulesListCmd)
	modulesCmd.AddCommand(modulesCreateCmd)

	modulesCmd.PersistentFlags().StringVar(&modTenant, "tenant", "", "tenant ID (required)")
	modulesCmd.MarkPersistentFlagRequired("tenant")

	modulesCreateCmd.Flags().StringVar(&modName, "name", "", "module name (required)")
	modulesCreateCmd.Flags().StringVar(&modSlug, "slug", "", "module slug (derived from name when empty)")
	modulesCreateCmd.Flags().StringVar(&modDescription, "description", "", "module description")
	modulesCreateCmd.MarkFlagRequired("name")
}

// adminContext scopes CLI operations to the given tenant, acting as the
// operator.
func adminContext() context.Context {
	return tenant.WithContext(context.Background(), tenant.Context{
		TenantID: modTenant,
		ActorID:  "cli",
	})
}

func openApp() (*bootstrap.App, error) {
	a, err := bootstrap.New(bootstrap.Options{ConfigPath: cfgFile, Version: version})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize: %w", err)
	}
	return a, nil
}

func runModulesList(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Shutdown()

	mods, total, err := a.Modules.List(adminContext(), 1000, 0)
	if err != nil {
		return fmt.Errorf("failed to list modules: %w", err)
	}

	if total == 0 {
		fmt.Println("No modules found.")
		fmt.Println()
		fmt.Println("Create one with: fieldforge modules create --tenant " + modTenant + " --name \"Support Tickets\"")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSLUG\tNAME\tACTIVE\tCREATED")
	fmt.Fprintln(w, "--\t----\t----\t------\t-------")
	for _, m := range mods {
		fmt.Fprintf(w, "%s\t%s\t%s\t%v\t%s\n",
			m.ID, m.Slug, m.Name, m.IsActive, m.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	w.Flush()
	return nil
}

func runModulesCreate(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Shutdown()

	m, err := a.Modules.Create(adminContext(), app.CreateModuleInput{
		Name:        modName,
		Slug:        modSlug,
		Description: modDescription,
	})
	if err != nil {
		return fmt.Errorf("failed to create module: %w", err)
	}

	fmt.Printf("%s Created module: %s\n", checkMark, m.ID)
	fmt.Printf("   Slug: %s\n", m.Slug)
	fmt.Printf("   Name: %s\n", m.Name)
	fmt.Println()
	fmt.Println("Add a field with the API: POST /api/modules/" + m.Slug + "/fields")
	return nil
}
