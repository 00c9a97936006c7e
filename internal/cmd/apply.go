package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"orgsync/pkg/reconcile"
)

var (
	applyConfigFile string
	applyYes        bool
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply the changes needed to converge the organization",
	Long: `Apply plans the changes exactly like the plan command, asks for
confirmation, and then executes the patch sequence. Every patch is an
independent unit of work: failures are reported at the end while the
remaining patches still run.`,
	RunE: runApply,
}

func init() {
	applyCmd.Flags().StringVarP(&applyConfigFile, "config", "c", "org.yaml", "organization configuration file")
	applyCmd.Flags().BoolVar(&applyYes, "yes", false, "apply without asking for confirmation")
	rootCmd.AddCommand(applyCmd)
}

func runApply(cmd *cobra.Command, _ []string) error {
	plan, client, err := buildPlan(cmd, applyConfigFile)
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

	if !applyYes {
		ok, err := confirm(os.Stdin, "Apply these changes?")
		if err != nil {
			return err
		}
		if !ok {
			pterm.Info.Println("Aborted, no changes applied")
			return nil
		}
	}

	pterm.Println()
	result, err := reconcile.NewApplier(client, logger).Apply(cmd.Context(), plan)
	displayResult(result)
	if err != nil {
		var partial *reconcile.PartialFailureError
		if errors.As(err, &partial) {
			return fmt.Errorf("partial failure: %d change(s) applied, %d failed", len(result.Applied), len(result.Failed))
		}
		return err
	}

	pterm.Success.Printf("✅ Applied %d change(s) to %s\n", len(result.Applied), settings.Org)
	return nil
}

// confirm reads a yes/no answer from in. EOF counts as no.
func confirm(in io.Reader, prompt string) (bool, error) {
	fmt.Printf("%s [y/N]: ", prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}
