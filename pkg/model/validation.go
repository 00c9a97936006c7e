package model

import "fmt"

// Severity categorizes a validation finding.
type Severity uint8

const (
	// SeverityError marks configuration that is invalid or will fail to
	// apply cleanly.
	SeverityError Severity = iota
	// SeverityWarning marks configuration the provider will silently
	// ignore.
	SeverityWarning
	// SeverityInfo marks configuration that is benign but irrelevant
	// given another setting.
	SeverityInfo
)

// String returns the severity label used in reports.
func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "ERROR"
	case SeverityWarning:
		return "WARNING"
	case SeverityInfo:
		return "INFO"
	default:
		return "UNKNOWN"
	}
}

// Finding is one validation result, located by an entity path like
// "repository[api-server].environment[production]".
type Finding struct {
	Severity Severity
	Path     string
	Message  string
}

// String formats the finding for terminal output.
func (f Finding) String() string {
	return fmt.Sprintf("%s %s: %s", f.Severity, f.Path, f.Message)
}

// repoPath locates a repository in findings.
func repoPath(repo *Repository) string {
	return fmt.Sprintf("repository[%s]", repo.Name.Or(""))
}

// repoChildPath locates a repository child entity in findings. key is ""
// for singleton children.
func repoChildPath(repo *Repository, child, key string) string {
	if key == "" {
		return fmt.Sprintf("%s.%s", repoPath(repo), child)
	}
	return fmt.Sprintf("%s.%s[%s]", repoPath(repo), child, key)
}

// orgChildPath locates an organization-level list entity in findings.
func orgChildPath(child, key string) string {
	return fmt.Sprintf("%s[%s]", child, key)
}

// ValidationContext collects findings across a whole tree walk. Validation
// never mutates entities and never raises; it only appends here.
type ValidationContext struct {
	findings []Finding

	// Org is the organization-level context consulted by repository
	// rules.
	Org *Organization
	// PlanHint carries the billing plan when known from live state; the
	// plan is read-only and therefore absent from user configuration.
	PlanHint string
}

// NewValidationContext returns a context scoped to org.
func NewValidationContext(org *Organization) *ValidationContext {
	return &ValidationContext{Org: org}
}

// Errorf appends an ERROR finding.
func (c *ValidationContext) Errorf(path, format string, args ...any) {
	c.append(SeverityError, path, format, args...)
}

// Warnf appends a WARNING finding.
func (c *ValidationContext) Warnf(path, format string, args ...any) {
	c.append(SeverityWarning, path, format, args...)
}

// Infof appends an INFO finding.
func (c *ValidationContext) Infof(path, format string, args ...any) {
	c.append(SeverityInfo, path, format, args...)
}

func (c *ValidationContext) append(sev Severity, path, format string, args ...any) {
	c.findings = append(c.findings, Finding{
		Severity: sev,
		Path:     path,
		Message:  fmt.Sprintf(format, args...),
	})
}

// Findings returns all collected findings in append order.
func (c *ValidationContext) Findings() []Finding {
	return c.findings
}

// HasErrors reports whether any ERROR finding was collected.
func (c *ValidationContext) HasErrors() bool {
	for _, f := range c.findings {
		if f.Severity == SeverityError {
			return true
		}
	}
	return false
}

// CountBySeverity returns the number of findings with the given severity.
func (c *ValidationContext) CountBySeverity(sev Severity) int {
	n := 0
	for _, f := range c.findings {
		if f.Severity == sev {
			n++
		}
	}
	return n
}

// OrgPlan returns the organization billing plan, or "" when unknown.
// Plan-tier rules are skipped while the plan is unknown.
func (c *ValidationContext) OrgPlan() string {
	if c.PlanHint != "" {
		return c.PlanHint
	}
	if c.Org == nil || c.Org.Settings == nil {
		return ""
	}
	return c.Org.Settings.Plan.Or("")
}

// checkReadOnlyFields appends an ERROR for every provider-assigned field
// the configuration attempts to set. Fields named in exempt are allowed
// anyway; a repository's template_repository is read-only after creation
// but legitimate creation-time input.
func checkReadOnlyFields(c *ValidationContext, path string, o ModelObject, exempt ...string) {
	exempted := make(map[string]bool, len(exempt))
	for _, name := range exempt {
		exempted[name] = true
	}
	for _, d := range o.Fields() {
		if !d.ReadOnly || d.Nested || exempted[d.Name] {
			continue
		}
		if d.GetRaw(o).State != Unset {
			c.Errorf(path, "field %q is read-only and cannot be set", d.Name)
		}
	}
}

// checkUniqueKeys appends an ERROR for every duplicated key in a child
// list. keys must preserve list order.
func checkUniqueKeys(c *ValidationContext, path, childKind string, keys []string) {
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		if seen[k] {
			c.Errorf(path, "duplicate %s %q", childKind, k)
		}
		seen[k] = true
	}
}

// Validate walks the whole tree collecting findings in canonical order.
func Validate(org *Organization) []Finding {
	return ValidateWithPlan(org, "")
}

// ValidateWithPlan validates with the billing plan known from live state,
// enabling the plan-tier rules.
func ValidateWithPlan(org *Organization, plan string) []Finding {
	ctx := NewValidationContext(org)
	ctx.PlanHint = plan
	validateOrgKeys(ctx, org)
	// Walk never fails here: validators append findings and return nil.
	_ = Walk(org, &validationVisitor{ctx: ctx})
	return ctx.Findings()
}

// validateOrgKeys checks key uniqueness across the organization-level
// collections. Repository identities include aliases so a rename target
// cannot collide with another repository.
func validateOrgKeys(ctx *ValidationContext, org *Organization) {
	hooks := make([]string, 0, len(org.Webhooks))
	for _, h := range org.Webhooks {
		hooks = append(hooks, h.Key())
	}
	checkUniqueKeys(ctx, "organization", "webhook", hooks)

	secrets := make([]string, 0, len(org.Secrets))
	for _, s := range org.Secrets {
		secrets = append(secrets, s.Key())
	}
	checkUniqueKeys(ctx, "organization", "secret", secrets)

	repos := make([]string, 0, len(org.Repositories))
	for _, r := range org.Repositories {
		repos = append(repos, r.MatchKeys()...)
	}
	checkUniqueKeys(ctx, "organization", "repository", repos)
}

type validationVisitor struct {
	ctx *ValidationContext
}

func (v *validationVisitor) VisitOrgSettings(s *OrganizationSettings) error {
	s.Validate(v.ctx)
	return nil
}

func (v *validationVisitor) VisitOrgWorkflowSettings(s *OrganizationWorkflowSettings) error {
	s.Validate(v.ctx)
	return nil
}

func (v *validationVisitor) VisitOrgWebhook(w *OrganizationWebhook) error {
	w.Validate(v.ctx)
	return nil
}

func (v *validationVisitor) VisitOrgSecret(s *OrganizationSecret) error {
	s.Validate(v.ctx)
	return nil
}

func (v *validationVisitor) VisitRepository(r *Repository) error {
	r.Validate(v.ctx)
	return nil
}

func (v *validationVisitor) VisitRepoWorkflowSettings(r *Repository, s *RepositoryWorkflowSettings) error {
	s.Validate(v.ctx, r)
	return nil
}

func (v *validationVisitor) VisitRepoWebhook(r *Repository, w *RepositoryWebhook) error {
	w.Validate(v.ctx, r)
	return nil
}

func (v *validationVisitor) VisitRepoSecret(r *Repository, s *RepositorySecret) error {
	s.Validate(v.ctx, r)
	return nil
}

func (v *validationVisitor) VisitEnvironment(r *Repository, e *Environment) error {
	e.Validate(v.ctx, r)
	return nil
}

func (v *validationVisitor) VisitBranchProtectionRule(r *Repository, b *BranchProtectionRule) error {
	b.Validate(v.ctx, r)
	return nil
}
