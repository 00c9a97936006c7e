package cmd

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"orgsync/pkg/config"
	"orgsync/pkg/gh"
	"orgsync/pkg/model"
	"orgsync/pkg/reconcile"
)

var planConfigFile string

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Preview the changes needed to converge the organization",
	Long: `Plan validates the configuration, fetches the live organization
state, and shows the ordered patch sequence that an apply would execute.
No changes are made.`,
	RunE: runPlan,
}

func init() {
	planCmd.Flags().StringVarP(&planConfigFile, "config", "c", "org.yaml", "organization configuration file")
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, _ []string) error {
	plan, _, err := buildPlan(cmd, planConfigFile)
	if err != nil {
		return err
	}

	if plan.IsEmpty() {
		pterm.Success.Println("✓ Organization is up to date, nothing to change")
		return nil
	}

	pterm.Println()
	destructive := displayPlan(plan)
	summarizePlan(plan, destructive)
	return nil
}

// buildPlan loads and validates the document, fetches live state, and
// computes the patch sequence. The returned client is ready for an apply
// of that same plan.
func buildPlan(cmd *cobra.Command, path string) (*reconcile.Plan, *gh.Client, error) {
	expected, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	if errs := printFindings(model.Validate(expected)); errs > 0 {
		return nil, nil, fmt.Errorf("configuration has %d validation error(s)", errs)
	}

	login, err := documentOrg(expected)
	if err != nil {
		return nil, nil, err
	}
	client, err := newProviderClient(login)
	if err != nil {
		return nil, nil, err
	}

	spinner, _ := pterm.DefaultSpinner.WithRemoveWhenDone(true).Start("Fetching live organization state...")
	current, err := reconcile.FetchOrganization(cmd.Context(), client, login)
	_ = spinner.Stop()
	if err != nil {
		return nil, nil, err
	}

	plan, err := reconcile.PlanOrganization(expected, current)
	if err != nil {
		return nil, nil, err
	}
	return plan, client, nil
}
