package model

import "strings"

// OrganizationSettings is the organization-wide settings singleton.
type OrganizationSettings struct {
	Name                        Value[string]
	Plan                        Value[string]
	Description                 Value[string]
	Email                       Value[string]
	Location                    Value[string]
	Company                     Value[string]
	BillingEmail                Value[string]
	TwitterUsername             Value[string]
	Blog                        Value[string]
	HasDiscussions              Value[bool]
	DiscussionSourceRepository  Value[string]
	HasOrganizationProjects     Value[bool]
	HasRepositoryProjects       Value[bool]
	DefaultRepositoryPermission Value[string]
	DefaultBranchName           Value[string]
	TwoFactorRequirement        Value[bool]
	WebCommitSignoffRequired    Value[bool]

	MembersCanCreatePrivateRepositories Value[bool]
	MembersCanCreatePublicRepositories  Value[bool]
	MembersCanForkPrivateRepositories   Value[bool]
	MembersCanCreatePages               Value[bool]
	MembersCanDeleteRepositories        Value[bool]
	ReadersCanCreateDiscussions         Value[bool]

	DependabotAlertsEnabledForNewRepositories          Value[bool]
	DependabotSecurityUpdatesEnabledForNewRepositories Value[bool]
	DependencyGraphEnabledForNewRepositories           Value[bool]

	SecurityManagers Value[[]string]
}

var orgSettingsFields = []FieldDescriptor{
	{Name: "name", Type: TypeString, Bind: func(o ModelObject) any { return &o.(*OrganizationSettings).Name }},
	{Name: "plan", Type: TypeString, ReadOnly: true, Bind: func(o ModelObject) any { return &o.(*OrganizationSettings).Plan }},
	{Name: "description", Type: TypeString, Bind: func(o ModelObject) any { return &o.(*OrganizationSettings).Description }},
	{Name: "email", Type: TypeString, Bind: func(o ModelObject) any { return &o.(*OrganizationSettings).Email }},
	{Name: "location", Type: TypeString, Bind: func(o ModelObject) any { return &o.(*OrganizationSettings).Location }},
	{Name: "company", Type: TypeString, Bind: func(o ModelObject) any { return &o.(*OrganizationSettings).Company }},
	{Name: "billing_email", Type: TypeString, Bind: func(o ModelObject) any { return &o.(*OrganizationSettings).BillingEmail }},
	{Name: "twitter_username", Type: TypeString, Bind: func(o ModelObject) any { return &o.(*OrganizationSettings).TwitterUsername }},
	{Name: "blog", Type: TypeString, Bind: func(o ModelObject) any { return &o.(*OrganizationSettings).Blog }},
	{Name: "has_discussions", Type: TypeBool, Default: false, Bind: func(o ModelObject) any { return &o.(*OrganizationSettings).HasDiscussions }},
	{Name: "discussion_source_repository", Type: TypeString, Bind: func(o ModelObject) any { return &o.(*OrganizationSettings).DiscussionSourceRepository }},
	{Name: "has_organization_projects", Type: TypeBool, Default: true, Bind: func(o ModelObject) any { return &o.(*OrganizationSettings).HasOrganizationProjects }},
	{Name: "has_repository_projects", Type: TypeBool, Default: true, Bind: func(o ModelObject) any { return &o.(*OrganizationSettings).HasRepositoryProjects }},
	{Name: "default_repository_permission", Type: TypeString, Default: "read", Bind: func(o ModelObject) any { return &o.(*OrganizationSettings).DefaultRepositoryPermission }},
	{Name: "default_branch_name", Type: TypeString, Default: "main", Bind: func(o ModelObject) any { return &o.(*OrganizationSettings).DefaultBranchName }},
	{Name: "two_factor_requirement", Type: TypeBool, ReadOnly: true, Bind: func(o ModelObject) any { return &o.(*OrganizationSettings).TwoFactorRequirement }},
	{Name: "web_commit_signoff_required", Type: TypeBool, Default: false, Bind: func(o ModelObject) any { return &o.(*OrganizationSettings).WebCommitSignoffRequired }},
	{Name: "members_can_create_private_repositories", Type: TypeBool, Default: false, Bind: func(o ModelObject) any { return &o.(*OrganizationSettings).MembersCanCreatePrivateRepositories }},
	{Name: "members_can_create_public_repositories", Type: TypeBool, Default: false, Bind: func(o ModelObject) any { return &o.(*OrganizationSettings).MembersCanCreatePublicRepositories }},
	{Name: "members_can_fork_private_repositories", Type: TypeBool, Default: false, Bind: func(o ModelObject) any { return &o.(*OrganizationSettings).MembersCanForkPrivateRepositories }},
	{Name: "members_can_create_pages", Type: TypeBool, Default: true, Bind: func(o ModelObject) any { return &o.(*OrganizationSettings).MembersCanCreatePages }},
	{Name: "members_can_delete_repositories", Type: TypeBool, Default: false, Bind: func(o ModelObject) any { return &o.(*OrganizationSettings).MembersCanDeleteRepositories }},
	{Name: "readers_can_create_discussions", Type: TypeBool, Default: false, Bind: func(o ModelObject) any { return &o.(*OrganizationSettings).ReadersCanCreateDiscussions }},
	{Name: "dependabot_alerts_enabled_for_new_repositories", Type: TypeBool, Default: true, Bind: func(o ModelObject) any { return &o.(*OrganizationSettings).DependabotAlertsEnabledForNewRepositories }},
	{Name: "dependabot_security_updates_enabled_for_new_repositories", Type: TypeBool, Default: false, Bind: func(o ModelObject) any {
		return &o.(*OrganizationSettings).DependabotSecurityUpdatesEnabledForNewRepositories
	}},
	{Name: "dependency_graph_enabled_for_new_repositories", Type: TypeBool, Default: true, Bind: func(o ModelObject) any { return &o.(*OrganizationSettings).DependencyGraphEnabledForNewRepositories }},
	{Name: "security_managers", Type: TypeStringList, Bind: func(o ModelObject) any { return &o.(*OrganizationSettings).SecurityManagers }},
}

// Kind implements ModelObject.
func (s *OrganizationSettings) Kind() Kind { return KindOrgSettings }

// Key implements ModelObject. Settings are a singleton without a key.
func (s *OrganizationSettings) Key() string { return "" }

// Fields implements ModelObject.
func (s *OrganizationSettings) Fields() []FieldDescriptor { return orgSettingsFields }

// OrganizationSettingsFromProvider builds settings from a provider
// payload. The billing plan arrives nested as plan.name, under the same
// key as the scalar field, so it is held out of the scalar pass.
func OrganizationSettingsFromProvider(raw map[string]any) (*OrganizationSettings, error) {
	s := &OrganizationSettings{}
	scalars := make(map[string]any, len(raw))
	for k, v := range raw {
		if k != "plan" {
			scalars[k] = v
		}
	}
	if err := fromProviderScalars(s, scalars); err != nil {
		return nil, err
	}
	if plan, ok := raw["plan"].(map[string]any); ok {
		if name, ok := plan["name"].(string); ok {
			s.Plan = Of(name)
		}
	}
	return s, nil
}

// ToProvider emits the provider-bound payload, restricted to fields when
// non-nil. Read-only fields are never emitted.
func (s *OrganizationSettings) ToProvider(fields FieldSet) map[string]any {
	return toProviderScalars(s, fields)
}

// webOnlySettings are organization settings the provider exposes in its
// web UI but not over the API. They stay configurable and validated so
// the file documents intent, but reconciliation cannot read or converge
// them, so the diff leaves them alone.
var webOnlySettings = map[string]bool{
	"default_branch_name":             true,
	"has_discussions":                 true,
	"discussion_source_repository":    true,
	"members_can_delete_repositories": true,
	"readers_can_create_discussions":  true,
}

func (s *OrganizationSettings) diffPredicate(*OrganizationSettings) FieldPredicate {
	return func(d FieldDescriptor) bool {
		return !webOnlySettings[d.Name]
	}
}

// Validate appends findings for the organization-wide settings rules.
func (s *OrganizationSettings) Validate(ctx *ValidationContext) {
	path := string(KindOrgSettings)
	checkReadOnlyFields(ctx, path, s)

	if desc, ok := s.Description.Get(); ok && len(desc) > 160 {
		ctx.Errorf(path, "description exceeds maximum length of 160 characters")
	}

	sourceRepo, hasSource := s.DiscussionSourceRepository.Get()
	if s.HasDiscussions.Or(false) && (!hasSource || sourceRepo == "") {
		ctx.Errorf(path, "enabling discussions requires a discussion_source_repository")
	}
	if hasSource && sourceRepo != "" && !strings.Contains(sourceRepo, "/") {
		ctx.Errorf(path, "discussion_source_repository %q must be in <owner>/<name> form", sourceRepo)
	}

	if !validEnum(s.DefaultRepositoryPermission, "none", "read", "write", "admin") {
		perm, _ := s.DefaultRepositoryPermission.Get()
		ctx.Errorf(path, "default_repository_permission %q is invalid, allowed values: %s",
			perm, enumString([]string{"none", "read", "write", "admin"}))
	}

	if s.DependabotAlertsEnabledForNewRepositories.Or(false) &&
		s.DependencyGraphEnabledForNewRepositories.IsSet() &&
		!s.DependencyGraphEnabledForNewRepositories.Or(true) {
		ctx.Errorf(path, "dependabot alerts for new repositories require the dependency graph to be enabled")
	}
	if s.DependabotSecurityUpdatesEnabledForNewRepositories.Or(false) &&
		!s.DependabotAlertsEnabledForNewRepositories.Or(false) {
		ctx.Errorf(path, "dependabot security updates for new repositories require dependabot alerts to be enabled")
	}
}
