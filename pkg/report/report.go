// Package report renders an organization tree as a markdown document,
// one table per entity in canonical traversal order.
package report

import (
	"fmt"
	"strings"

	"orgsync/pkg/model"
)

// Markdown renders org for human review. Every field with a value is
// shown, including provider-assigned ones; secret material is redacted.
func Markdown(org *model.Organization) string {
	v := &markdownVisitor{}
	v.b.WriteString("# Organization ")
	v.b.WriteString(org.GitHubID)
	v.b.WriteString("\n\n")
	fmt.Fprintf(&v.b, "%d repositories configured.\n\n", len(org.Repositories))

	// The visitor never returns an error.
	_ = model.Walk(org, v)
	return v.b.String()
}

type markdownVisitor struct {
	b strings.Builder
}

func (v *markdownVisitor) VisitOrgSettings(s *model.OrganizationSettings) error {
	v.heading(2, "Settings")
	v.fieldTable(s)
	return nil
}

func (v *markdownVisitor) VisitOrgWorkflowSettings(s *model.OrganizationWorkflowSettings) error {
	v.heading(2, "Workflow settings")
	v.fieldTable(s)
	return nil
}

func (v *markdownVisitor) VisitOrgWebhook(hook *model.OrganizationWebhook) error {
	v.heading(2, "Webhook "+hook.URL.Or(""))
	v.fieldTable(hook)
	return nil
}

func (v *markdownVisitor) VisitOrgSecret(secret *model.OrganizationSecret) error {
	v.heading(2, "Secret "+secret.Name.Or(""))
	v.fieldTable(secret)
	return nil
}

func (v *markdownVisitor) VisitRepository(repo *model.Repository) error {
	v.heading(2, "Repository "+repo.Name.Or(""))
	v.fieldTable(repo)
	return nil
}

func (v *markdownVisitor) VisitRepoWorkflowSettings(_ *model.Repository, s *model.RepositoryWorkflowSettings) error {
	v.heading(3, "Workflow settings")
	v.fieldTable(s)
	return nil
}

func (v *markdownVisitor) VisitRepoWebhook(_ *model.Repository, hook *model.RepositoryWebhook) error {
	v.heading(3, "Webhook "+hook.URL.Or(""))
	v.fieldTable(hook)
	return nil
}

func (v *markdownVisitor) VisitRepoSecret(_ *model.Repository, secret *model.RepositorySecret) error {
	v.heading(3, "Secret "+secret.Name.Or(""))
	v.fieldTable(secret)
	return nil
}

func (v *markdownVisitor) VisitEnvironment(_ *model.Repository, env *model.Environment) error {
	v.heading(3, "Environment "+env.Name.Or(""))
	v.fieldTable(env)
	return nil
}

func (v *markdownVisitor) VisitBranchProtectionRule(_ *model.Repository, rule *model.BranchProtectionRule) error {
	v.heading(3, "Branch protection rule "+rule.Pattern.Or(""))
	v.fieldTable(rule)
	return nil
}

func (v *markdownVisitor) heading(level int, title string) {
	v.b.WriteString(strings.Repeat("#", level))
	v.b.WriteString(" ")
	v.b.WriteString(escapeCell(title))
	v.b.WriteString("\n\n")
}

// fieldTable writes one `| Field | Value |` table holding every field of
// o that carries a value.
func (v *markdownVisitor) fieldTable(o model.ModelObject) {
	rows := 0
	for _, d := range o.Fields() {
		if d.Nested {
			continue
		}
		r := d.GetRaw(o)
		if r.State == model.Unset {
			continue
		}
		if rows == 0 {
			v.b.WriteString("| Field | Value |\n| --- | --- |\n")
		}
		fmt.Fprintf(&v.b, "| %s | %s |\n", d.Name, formatValue(d, r))
		rows++
	}
	if rows == 0 {
		v.b.WriteString("_No configured fields._\n")
	}
	v.b.WriteString("\n")
}

var redactedFields = map[string]bool{
	"value":  true,
	"secret": true,
}

func formatValue(d model.FieldDescriptor, r model.Raw) string {
	if r.State == model.Null {
		return "null"
	}
	if redactedFields[d.Name] {
		if s, ok := r.V.(string); ok && s != "" {
			return "********"
		}
	}
	switch x := r.V.(type) {
	case []string:
		if len(x) == 0 {
			return "[]"
		}
		return escapeCell(strings.Join(x, ", "))
	case string:
		return escapeCell(x)
	default:
		return fmt.Sprintf("%v", x)
	}
}

// escapeCell keeps multi-line or pipe-bearing values from breaking the
// table layout.
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", "\\|")
}
