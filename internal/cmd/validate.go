package cmd

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"orgsync/pkg/config"
	"orgsync/pkg/model"
)

var validateConfigFile string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate an organization configuration file",
	Long: `Validate loads the organization configuration and reports every
finding: errors that would make an apply fail, warnings about settings the
provider will silently ignore, and informational notes. The command exits
non-zero when any error finding is present.`,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().StringVarP(&validateConfigFile, "config", "c", "org.yaml", "organization configuration file")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(_ *cobra.Command, _ []string) error {
	org, err := config.Load(validateConfigFile)
	if err != nil {
		return err
	}

	findings := model.Validate(org)
	if errs := printFindings(findings); errs > 0 {
		return fmt.Errorf("configuration has %d validation error(s)", errs)
	}

	pterm.Success.Printf("✓ Configuration valid: organization %s with %d repositories\n",
		org.GitHubID, len(org.Repositories))
	return nil
}
