package cmd

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"orgsync/pkg/config"
	"orgsync/pkg/model"
	"orgsync/pkg/report"
)

var (
	showConfigFile string
	showMarkdown   bool
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Summarize the organization configuration",
	Long: `Show prints a summary of the configuration file without contacting
the provider. With --markdown it renders the full field-by-field report
instead.`,
	RunE: runShow,
}

func init() {
	showCmd.Flags().StringVarP(&showConfigFile, "config", "c", "org.yaml", "organization configuration file")
	showCmd.Flags().BoolVar(&showMarkdown, "markdown", false, "render the full markdown report")
	rootCmd.AddCommand(showCmd)
}

func runShow(_ *cobra.Command, _ []string) error {
	org, err := config.Load(showConfigFile)
	if err != nil {
		return err
	}

	if showMarkdown {
		fmt.Print(report.Markdown(org))
		return nil
	}

	pterm.Info.Printf("🏢 Organization %s\n", org.GitHubID)
	if org.Settings != nil {
		pterm.Info.Printf("   ├─ ⚙️  Settings: %d field(s)\n", countSetFields(org.Settings))
	}
	if org.WorkflowSettings != nil {
		pterm.Info.Printf("   ├─ 🔧 Workflow settings: %d field(s)\n", countSetFields(org.WorkflowSettings))
	}
	if len(org.Webhooks) > 0 {
		pterm.Info.Printf("   ├─ 🔗 Webhooks: %d\n", len(org.Webhooks))
	}
	if len(org.Secrets) > 0 {
		pterm.Info.Printf("   ├─ 🔐 Secrets: %d\n", len(org.Secrets))
	}
	pterm.Info.Printf("   └─ 📦 Repositories: %d\n", len(org.Repositories))

	for _, repo := range org.Repositories {
		pterm.Println()
		pterm.Info.Printf("📦 %s\n", repo.Name.Or(""))
		if repo.Workflows != nil {
			pterm.Info.Printf("   ├─ 🔧 Workflow settings: %d field(s)\n", countSetFields(repo.Workflows))
		}
		if len(repo.Webhooks) > 0 {
			pterm.Info.Printf("   ├─ 🔗 Webhooks: %d\n", len(repo.Webhooks))
		}
		if len(repo.Secrets) > 0 {
			pterm.Info.Printf("   ├─ 🔐 Secrets: %d\n", len(repo.Secrets))
		}
		if len(repo.Environments) > 0 {
			pterm.Info.Printf("   ├─ 🌍 Environments: %d\n", len(repo.Environments))
		}
		if len(repo.BranchProtectionRules) > 0 {
			pterm.Info.Printf("   ├─ 🛡️  Branch protection rules: %d\n", len(repo.BranchProtectionRules))
		}
		pterm.Info.Printf("   └─ %d field(s) configured\n", countSetFields(repo))
	}

	return nil
}

// countSetFields counts the entity's own configured fields, ignoring
// nested collections.
func countSetFields(o model.ModelObject) int {
	n := 0
	for _, d := range o.Fields() {
		if d.Nested {
			continue
		}
		if d.GetRaw(o).State != model.Unset {
			n++
		}
	}
	return n
}
