package model

import (
	"context"
	"fmt"
)

// OrganizationWorkflowSettings controls GitHub Actions behavior across the
// organization.
type OrganizationWorkflowSettings struct {
	EnabledRepositories                Value[string]
	SelectedRepositories               Value[[]string]
	AllowedActions                     Value[string]
	AllowGitHubOwnedActions            Value[bool]
	AllowVerifiedCreatorActions        Value[bool]
	AllowActionPatterns                Value[[]string]
	DefaultWorkflowPermissions         Value[string]
	ActorsCanApprovePullRequestReviews Value[bool]
}

var orgWorkflowFields = []FieldDescriptor{
	{Name: "enabled_repositories", Type: TypeString, Default: "all", Bind: func(o ModelObject) any { return &o.(*OrganizationWorkflowSettings).EnabledRepositories }},
	{Name: "selected_repositories", Type: TypeStringList, Bind: func(o ModelObject) any { return &o.(*OrganizationWorkflowSettings).SelectedRepositories }},
	{Name: "allowed_actions", Type: TypeString, Default: "all", Bind: func(o ModelObject) any { return &o.(*OrganizationWorkflowSettings).AllowedActions }},
	{Name: "allow_github_owned_actions", Type: TypeBool, Default: true, Bind: func(o ModelObject) any { return &o.(*OrganizationWorkflowSettings).AllowGitHubOwnedActions }},
	{Name: "allow_verified_creator_actions", Type: TypeBool, Default: true, Bind: func(o ModelObject) any { return &o.(*OrganizationWorkflowSettings).AllowVerifiedCreatorActions }},
	{Name: "allow_action_patterns", Type: TypeStringList, Bind: func(o ModelObject) any { return &o.(*OrganizationWorkflowSettings).AllowActionPatterns }},
	{Name: "default_workflow_permissions", Type: TypeString, Default: "read", Bind: func(o ModelObject) any { return &o.(*OrganizationWorkflowSettings).DefaultWorkflowPermissions }},
	{Name: "actors_can_approve_pull_request_reviews", Type: TypeBool, Default: true, Bind: func(o ModelObject) any {
		return &o.(*OrganizationWorkflowSettings).ActorsCanApprovePullRequestReviews
	}},
}

// Kind implements ModelObject.
func (s *OrganizationWorkflowSettings) Kind() Kind { return KindOrgWorkflowSettings }

// Key implements ModelObject. Workflow settings are a singleton.
func (s *OrganizationWorkflowSettings) Key() string { return "" }

// Fields implements ModelObject.
func (s *OrganizationWorkflowSettings) Fields() []FieldDescriptor { return orgWorkflowFields }

// OrganizationWorkflowSettingsFromProvider builds workflow settings from a
// provider payload.
func OrganizationWorkflowSettingsFromProvider(raw map[string]any) (*OrganizationWorkflowSettings, error) {
	s := &OrganizationWorkflowSettings{}
	if err := fromProviderScalars(s, raw); err != nil {
		return nil, err
	}
	return s, nil
}

// ToProvider emits the provider-bound payload. Selected repository names
// are resolved to numeric ids through res.
func (s *OrganizationWorkflowSettings) ToProvider(ctx context.Context, res Resolver, fields FieldSet) (map[string]any, error) {
	payload := toProviderScalars(s, fields)
	if err := resolveSelectedRepositories(ctx, res, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// diffPredicate gates workflow fields: with enabled_repositories "none"
// only that field remains diffable; selected_repositories requires the
// "selected" mode; the allow_* trio requires allowed_actions "selected".
func (s *OrganizationWorkflowSettings) diffPredicate(current *OrganizationWorkflowSettings) FieldPredicate {
	enabled := Effective(s.EnabledRepositories, current.EnabledRepositories, "all")
	allowed := Effective(s.AllowedActions, current.AllowedActions, "all")
	return func(d FieldDescriptor) bool {
		if enabled == "none" && d.Name != "enabled_repositories" {
			return false
		}
		if d.Name == "selected_repositories" && enabled != "selected" {
			return false
		}
		if isAllowedActionsDetail(d.Name) && allowed != "selected" {
			return false
		}
		return true
	}
}

// Validate appends findings for the organization workflow rules.
func (s *OrganizationWorkflowSettings) Validate(ctx *ValidationContext) {
	path := string(KindOrgWorkflowSettings)
	checkReadOnlyFields(ctx, path, s)

	if !validEnum(s.EnabledRepositories, "all", "none", "selected") {
		mode, _ := s.EnabledRepositories.Get()
		ctx.Errorf(path, "enabled_repositories %q is invalid, allowed values: %s",
			mode, enumString([]string{"all", "none", "selected"}))
	}
	if repos, ok := s.SelectedRepositories.Get(); ok && len(repos) > 0 && s.EnabledRepositories.Or("all") != "selected" {
		ctx.Warnf(path, "selected_repositories are ignored while enabled_repositories is not %q", "selected")
	}
	validateActionsPolicy(ctx, path, s.AllowedActions, s.DefaultWorkflowPermissions,
		s.AllowGitHubOwnedActions, s.AllowVerifiedCreatorActions, s.AllowActionPatterns)
}

// RepositoryWorkflowSettings controls GitHub Actions behavior for a single
// repository.
type RepositoryWorkflowSettings struct {
	Enabled                            Value[bool]
	AllowedActions                     Value[string]
	AllowGitHubOwnedActions            Value[bool]
	AllowVerifiedCreatorActions        Value[bool]
	AllowActionPatterns                Value[[]string]
	DefaultWorkflowPermissions         Value[string]
	ActorsCanApprovePullRequestReviews Value[bool]
}

var repoWorkflowFields = []FieldDescriptor{
	{Name: "enabled", Type: TypeBool, Default: true, Bind: func(o ModelObject) any { return &o.(*RepositoryWorkflowSettings).Enabled }},
	{Name: "allowed_actions", Type: TypeString, Default: "all", Bind: func(o ModelObject) any { return &o.(*RepositoryWorkflowSettings).AllowedActions }},
	{Name: "allow_github_owned_actions", Type: TypeBool, Default: true, Bind: func(o ModelObject) any { return &o.(*RepositoryWorkflowSettings).AllowGitHubOwnedActions }},
	{Name: "allow_verified_creator_actions", Type: TypeBool, Default: true, Bind: func(o ModelObject) any { return &o.(*RepositoryWorkflowSettings).AllowVerifiedCreatorActions }},
	{Name: "allow_action_patterns", Type: TypeStringList, Bind: func(o ModelObject) any { return &o.(*RepositoryWorkflowSettings).AllowActionPatterns }},
	{Name: "default_workflow_permissions", Type: TypeString, Default: "read", Bind: func(o ModelObject) any { return &o.(*RepositoryWorkflowSettings).DefaultWorkflowPermissions }},
	{Name: "actors_can_approve_pull_request_reviews", Type: TypeBool, Default: true, Bind: func(o ModelObject) any {
		return &o.(*RepositoryWorkflowSettings).ActorsCanApprovePullRequestReviews
	}},
}

// Kind implements ModelObject.
func (s *RepositoryWorkflowSettings) Kind() Kind { return KindRepoWorkflowSettings }

// Key implements ModelObject. Workflow settings are a singleton.
func (s *RepositoryWorkflowSettings) Key() string { return "" }

// Fields implements ModelObject.
func (s *RepositoryWorkflowSettings) Fields() []FieldDescriptor { return repoWorkflowFields }

// RepositoryWorkflowSettingsFromProvider builds workflow settings from a
// provider payload.
func RepositoryWorkflowSettingsFromProvider(raw map[string]any) (*RepositoryWorkflowSettings, error) {
	s := &RepositoryWorkflowSettings{}
	if err := fromProviderScalars(s, raw); err != nil {
		return nil, err
	}
	return s, nil
}

// ToProvider emits the provider-bound payload.
func (s *RepositoryWorkflowSettings) ToProvider(fields FieldSet) map[string]any {
	return toProviderScalars(s, fields)
}

// diffPredicate gates repository workflow fields: a disabled workflow
// surface leaves only the enabled flag diffable; the allow_* trio requires
// allowed_actions "selected".
func (s *RepositoryWorkflowSettings) diffPredicate(current *RepositoryWorkflowSettings) FieldPredicate {
	enabled := Effective(s.Enabled, current.Enabled, true)
	allowed := Effective(s.AllowedActions, current.AllowedActions, "all")
	return func(d FieldDescriptor) bool {
		if !enabled && d.Name != "enabled" {
			return false
		}
		if isAllowedActionsDetail(d.Name) && allowed != "selected" {
			return false
		}
		return true
	}
}

// Validate appends findings for the repository workflow rules.
func (s *RepositoryWorkflowSettings) Validate(ctx *ValidationContext, repo *Repository) {
	path := repoChildPath(repo, "workflows", "")
	checkReadOnlyFields(ctx, path, s)
	validateActionsPolicy(ctx, path, s.AllowedActions, s.DefaultWorkflowPermissions,
		s.AllowGitHubOwnedActions, s.AllowVerifiedCreatorActions, s.AllowActionPatterns)
}

// isAllowedActionsDetail reports whether the field refines the "selected"
// allowed_actions mode.
func isAllowedActionsDetail(name string) bool {
	switch name {
	case "allow_github_owned_actions", "allow_verified_creator_actions", "allow_action_patterns":
		return true
	}
	return false
}

// validateActionsPolicy holds the rules shared by both workflow settings
// levels.
func validateActionsPolicy(ctx *ValidationContext, path string, allowedActions, permissions Value[string],
	githubOwned, verified Value[bool], patterns Value[[]string],
) {
	if !validEnum(allowedActions, "all", "local_only", "selected") {
		mode, _ := allowedActions.Get()
		ctx.Errorf(path, "allowed_actions %q is invalid, allowed values: %s",
			mode, enumString([]string{"all", "local_only", "selected"}))
	}
	if !validEnum(permissions, "read", "write") {
		perm, _ := permissions.Get()
		ctx.Errorf(path, "default_workflow_permissions %q is invalid, allowed values: %s",
			perm, enumString([]string{"read", "write"}))
	}
	if allowedActions.Or("all") != "selected" {
		if githubOwned.IsSet() || verified.IsSet() {
			ctx.Warnf(path, "action origin settings are ignored while allowed_actions is not %q", "selected")
		}
		if p, ok := patterns.Get(); ok && len(p) > 0 {
			ctx.Warnf(path, "allow_action_patterns are ignored while allowed_actions is not %q", "selected")
		}
	}
}

// resolveSelectedRepositories replaces a selected_repositories name list
// with the selected_repository_ids the provider expects.
func resolveSelectedRepositories(ctx context.Context, res Resolver, payload map[string]any) error {
	names, ok := payload["selected_repositories"].([]string)
	if !ok {
		return nil
	}
	delete(payload, "selected_repositories")
	ids, err := res.ResolveRepoIDs(ctx, names)
	if err != nil {
		return fmt.Errorf("resolving selected repositories: %w", err)
	}
	payload["selected_repository_ids"] = ids
	return nil
}

