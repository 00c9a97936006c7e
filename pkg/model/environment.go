package model

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// GitHubPagesEnvironment is the environment name the provider creates and
// manages on its own for GitHub Pages deployments.
const GitHubPagesEnvironment = "github-pages"

// Environment is a deployment environment on a repository, identified by
// name.
type Environment struct {
	ID                     Value[int]
	NodeID                 Value[string]
	Name                   Value[string]
	WaitTimer              Value[int]
	Reviewers              Value[[]string]
	DeploymentBranchPolicy Value[string]
	BranchPolicies         Value[[]string]
}

var environmentFields = []FieldDescriptor{
	{Name: "id", Type: TypeInt, ExternalOnly: true, Bind: func(o ModelObject) any { return &o.(*Environment).ID }},
	{Name: "node_id", Type: TypeString, ExternalOnly: true, Bind: func(o ModelObject) any { return &o.(*Environment).NodeID }},
	{Name: "name", Type: TypeString, Key: true, Bind: func(o ModelObject) any { return &o.(*Environment).Name }},
	{Name: "wait_timer", Type: TypeInt, Default: 0, Bind: func(o ModelObject) any { return &o.(*Environment).WaitTimer }},
	{Name: "reviewers", Type: TypeStringList, Bind: func(o ModelObject) any { return &o.(*Environment).Reviewers }},
	{Name: "deployment_branch_policy", Type: TypeString, Default: "all", Bind: func(o ModelObject) any { return &o.(*Environment).DeploymentBranchPolicy }},
	{Name: "branch_policies", Type: TypeStringList, Bind: func(o ModelObject) any { return &o.(*Environment).BranchPolicies }},
}

// Kind implements ModelObject.
func (e *Environment) Kind() Kind { return KindEnvironment }

// Key implements ModelObject.
func (e *Environment) Key() string { return e.Name.Or("") }

// Fields implements ModelObject.
func (e *Environment) Fields() []FieldDescriptor { return environmentFields }

// EnvironmentFromProvider builds an environment from a provider payload.
// Wait timer and reviewers arrive inside the protection_rules array;
// the branch policy arrives as a two-flag object under the same key as
// the scalar field, so it is held out of the scalar pass.
func EnvironmentFromProvider(raw map[string]any) (*Environment, error) {
	e := &Environment{}
	scalars := make(map[string]any, len(raw))
	for k, v := range raw {
		if k != "deployment_branch_policy" {
			scalars[k] = v
		}
	}
	if err := fromProviderScalars(e, scalars); err != nil {
		return nil, err
	}

	if rules, ok := raw["protection_rules"].([]any); ok {
		for _, entry := range rules {
			rule, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			switch rule["type"] {
			case "wait_timer":
				if n, ok := coerceInt(rule["wait_timer"]); ok {
					e.WaitTimer = Of(n)
				}
			case "required_reviewers":
				reviewers, err := reviewersFromProvider(rule["reviewers"])
				if err != nil {
					return nil, err
				}
				e.Reviewers = Of(reviewers)
			}
		}
	}

	policy, err := branchPolicyFromProvider(raw["deployment_branch_policy"])
	if err != nil {
		return nil, err
	}
	e.DeploymentBranchPolicy = Of(policy)
	return e, nil
}

// reviewersFromProvider renders reviewer entries as "@login" for users and
// "@org/slug" for teams. An unknown reviewer type is a fatal mapping
// error.
func reviewersFromProvider(v any) ([]string, error) {
	entries, ok := v.([]any)
	if !ok {
		return nil, nil
	}
	reviewers := make([]string, 0, len(entries))
	for _, entry := range entries {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		reviewer, _ := m["reviewer"].(map[string]any)
		switch m["type"] {
		case "User":
			login, _ := reviewer["login"].(string)
			reviewers = append(reviewers, "@"+login)
		case "Team":
			slug, _ := reviewer["combined_slug"].(string)
			if slug == "" {
				slug, _ = reviewer["slug"].(string)
			}
			reviewers = append(reviewers, "@"+slug)
		default:
			return nil, fmt.Errorf("environment: unexpected reviewer type %q", m["type"])
		}
	}
	sort.Strings(reviewers)
	return reviewers, nil
}

// branchPolicyFromProvider maps the provider's two-flag policy object to
// the local enum. Anything unrecognized is a fatal mapping error.
func branchPolicyFromProvider(v any) (string, error) {
	if v == nil {
		return "all", nil
	}
	policy, ok := v.(map[string]any)
	if !ok {
		return "", fmt.Errorf("environment: unexpected deployment_branch_policy %v", v)
	}
	protected, _ := policy["protected_branches"].(bool)
	custom, _ := policy["custom_branch_policies"].(bool)
	switch {
	case protected && !custom:
		return "protected", nil
	case !protected && custom:
		return "selected", nil
	default:
		return "", fmt.Errorf("environment: unexpected deployment_branch_policy %v", v)
	}
}

// ToProvider emits the provider-bound payload. Reviewers are resolved to
// actor ids through res; the branch policy enum becomes the provider's
// two-flag object. An unknown policy value is a fatal mapping error.
func (e *Environment) ToProvider(ctx context.Context, res Resolver, fields FieldSet) (map[string]any, error) {
	payload := toProviderScalars(e, fields)

	if names, ok := payload["reviewers"].([]string); ok {
		actors, err := res.ResolveActorIDs(ctx, names)
		if err != nil {
			return nil, fmt.Errorf("resolving environment reviewers: %w", err)
		}
		resolved := make([]any, 0, len(actors))
		for _, a := range actors {
			resolved = append(resolved, map[string]any{"type": a.Type, "id": a.ID})
		}
		payload["reviewers"] = resolved
	}

	if policy, ok := payload["deployment_branch_policy"].(string); ok {
		switch policy {
		case "all":
			payload["deployment_branch_policy"] = nil
		case "protected":
			payload["deployment_branch_policy"] = map[string]any{
				"protected_branches":     true,
				"custom_branch_policies": false,
			}
		case "selected":
			payload["deployment_branch_policy"] = map[string]any{
				"protected_branches":     false,
				"custom_branch_policies": true,
			}
		default:
			return nil, fmt.Errorf("environment: unexpected deployment_branch_policy %q", policy)
		}
	}
	return payload, nil
}

// diffPredicate excludes branch_policies unless the effective policy mode
// is "selected"; under any other mode the provider ignores them.
func (e *Environment) diffPredicate(current *Environment) FieldPredicate {
	policy := Effective(e.DeploymentBranchPolicy, current.DeploymentBranchPolicy, "all")
	return func(d FieldDescriptor) bool {
		return d.Name != "branch_policies" || policy == "selected"
	}
}

// Validate appends findings for the environment rules.
func (e *Environment) Validate(ctx *ValidationContext, repo *Repository) {
	path := repoChildPath(repo, "environment", e.Key())
	checkReadOnlyFields(ctx, path, e)

	if timer, ok := e.WaitTimer.Get(); ok && (timer < 0 || timer > 43200) {
		ctx.Errorf(path, "wait_timer of %d is outside the allowed range [0, 43200]", timer)
	}
	if !validEnum(e.DeploymentBranchPolicy, "all", "protected", "selected") {
		policy, _ := e.DeploymentBranchPolicy.Get()
		ctx.Errorf(path, "deployment_branch_policy %q is invalid, allowed values: %s",
			policy, enumString([]string{"all", "protected", "selected"}))
	}
	if policies, ok := e.BranchPolicies.Get(); ok && len(policies) > 0 && e.DeploymentBranchPolicy.Or("all") != "selected" {
		ctx.Warnf(path, "branch_policies are ignored while deployment_branch_policy is not %q", "selected")
	}
	if reviewers, ok := e.Reviewers.Get(); ok {
		for _, r := range reviewers {
			if !validActorReference(r) {
				ctx.Errorf(path, "reviewer %q must be written as @login or @org/team", r)
			}
		}
	}
}

// validActorReference accepts "@login" and "@org/team" forms.
func validActorReference(s string) bool {
	if !strings.HasPrefix(s, "@") || len(s) < 2 {
		return false
	}
	rest := s[1:]
	if strings.HasPrefix(rest, "/") || strings.HasSuffix(rest, "/") {
		return false
	}
	return strings.Count(rest, "/") <= 1
}
