package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pterm/pterm"

	"orgsync/pkg/model"
	"orgsync/pkg/reconcile"
)

var (
	addStyle    = pterm.NewStyle(pterm.FgGreen)
	changeStyle = pterm.NewStyle(pterm.FgYellow)
	removeStyle = pterm.NewStyle(pterm.FgRed)
)

// printFindings lists validation findings by severity and returns the
// number of errors among them.
func printFindings(findings []model.Finding) int {
	errs := 0
	for _, f := range findings {
		switch f.Severity {
		case model.SeverityError:
			pterm.Error.Printf("%s: %s\n", f.Path, f.Message)
			errs++
		case model.SeverityWarning:
			pterm.Warning.Printf("%s: %s\n", f.Path, f.Message)
		default:
			pterm.Info.Printf("%s: %s\n", f.Path, f.Message)
		}
	}
	return errs
}

// displayPlan renders each patch with a marker line plus field detail for
// changes, and returns the number of potentially destructive changes.
func displayPlan(plan *reconcile.Plan) int {
	destructive := 0
	for _, patch := range plan.Patches {
		switch p := patch.(type) {
		case reconcile.AddPatch:
			addStyle.Printf("  + %s\n", p.Ref)
		case reconcile.ChangePatch:
			changeStyle.Printf("  ~ %s\n", p.Ref)
			for _, name := range sortedFieldNames(p.Changes) {
				c := p.Changes[name]
				transition := fmt.Sprintf("%s: %s → %s", name, formatFieldValue(name, c.From), formatFieldValue(name, c.To))
				if isDestructiveChange(p.Ref.Kind, name, c) {
					destructive++
					pterm.Warning.Printf("    ⚠️  %s (making repository public)\n", transition)
					continue
				}
				fmt.Printf("      %s\n", transition)
			}
		case reconcile.RemovePatch:
			removeStyle.Printf("  - %s\n", p.Ref)
			destructive++
		}
	}
	return destructive
}

// summarizePlan prints the patch totals and a destructive-change warning.
func summarizePlan(plan *reconcile.Plan, destructive int) {
	adds, changes, removes := plan.Counts()
	pterm.Println()
	pterm.Info.Printf("Plan: %d to add, %d to change, %d to remove\n", adds, changes, removes)
	if destructive > 0 {
		pterm.Warning.Printf("⚠️  %d potentially destructive change(s), review carefully before applying\n", destructive)
	}
}

// displayResult lists the patches that could not be applied.
func displayResult(result *reconcile.Result) {
	for _, f := range result.Failed {
		pterm.Error.Printf("%s %s: %v\n", f.Action, f.Target, f.Err)
	}
}

// isDestructiveChange flags transitions that expose or discard something:
// removals are counted by the caller, and a repository going public is
// the one field transition treated the same way.
func isDestructiveChange(kind model.Kind, field string, c model.Change) bool {
	if kind != model.KindRepository || field != "private" {
		return false
	}
	from, _ := c.From.V.(bool)
	to, _ := c.To.V.(bool)
	return c.From.State == model.Set && from && c.To.State == model.Set && !to
}

func sortedFieldNames(diff model.FieldDiff) []string {
	names := make([]string, 0, len(diff))
	for name := range diff {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var redactedFields = map[string]bool{
	"value":  true,
	"secret": true,
}

func formatFieldValue(field string, r model.Raw) string {
	switch r.State {
	case model.Unset:
		return "(unset)"
	case model.Null:
		return "null"
	}
	if redactedFields[field] {
		if s, ok := r.V.(string); ok && s != "" {
			return `"********"`
		}
	}
	switch v := r.V.(type) {
	case string:
		return fmt.Sprintf("%q", v)
	case []string:
		return "[" + strings.Join(v, ", ") + "]"
	default:
		return fmt.Sprintf("%v", v)
	}
}
