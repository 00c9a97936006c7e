package cmd

import (
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"orgsync/pkg/config"
	"orgsync/pkg/reconcile"
)

var importOutput string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Write the live organization state to a configuration file",
	Long: `Import fetches the current state of the organization and writes it
as a configuration file, giving an existing organization a starting point
for declarative management. Secret values cannot be read back and are
written as placeholders that must be filled in before an apply.`,
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVarP(&importOutput, "output", "o", "org.yaml", "output configuration file")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, _ []string) error {
	if settings.Org == "" {
		return fmt.Errorf("organization is required: pass --org or set org in the settings")
	}

	client, err := newProviderClient(settings.Org)
	if err != nil {
		return err
	}

	spinner, _ := pterm.DefaultSpinner.WithRemoveWhenDone(true).Start("Fetching live organization state...")
	org, err := reconcile.FetchOrganization(cmd.Context(), client, settings.Org)
	_ = spinner.Stop()
	if err != nil {
		return err
	}

	data, err := config.Render(org)
	if err != nil {
		return err
	}

	if _, err := os.Stat(importOutput); err == nil {
		backup := importOutput + ".bak"
		if err := os.Rename(importOutput, backup); err != nil {
			return fmt.Errorf("backing up existing configuration: %w", err)
		}
		pterm.Info.Printf("Existing %s moved to %s\n", importOutput, backup)
	}

	if err := os.WriteFile(importOutput, data, 0o644); err != nil {
		return fmt.Errorf("writing configuration: %w", err)
	}

	pterm.Success.Printf("✅ Imported %s: %d repositories written to %s\n",
		settings.Org, len(org.Repositories), importOutput)
	return nil
}
