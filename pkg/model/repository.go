package model

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	repoNamePattern = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)
	topicPattern    = regexp.MustCompile(`^[a-z0-9-]+$`)
)

// Repository is a repository within the organization, identified by name.
// Aliases allow matching a renamed repository to its live counterpart so a
// rename does not become a delete-and-recreate.
type Repository struct {
	ID      Value[int]
	NodeID  Value[string]
	Name    Value[string]
	Aliases Value[[]string]

	Description    Value[string]
	Homepage       Value[string]
	Private        Value[bool]
	Archived       Value[bool]
	HasDiscussions Value[bool]
	HasIssues      Value[bool]
	HasProjects    Value[bool]
	HasWiki        Value[bool]

	IsTemplate                 Value[bool]
	TemplateRepository         Value[string]
	PostProcessTemplateContent Value[[]string]
	AutoInit                   Value[bool]

	Topics        Value[[]string]
	DefaultBranch Value[string]

	AllowRebaseMerge         Value[bool]
	AllowMergeCommit         Value[bool]
	AllowSquashMerge         Value[bool]
	AllowAutoMerge           Value[bool]
	DeleteBranchOnMerge      Value[bool]
	AllowUpdateBranch        Value[bool]
	SquashMergeCommitTitle   Value[string]
	SquashMergeCommitMessage Value[string]
	MergeCommitTitle         Value[string]
	MergeCommitMessage       Value[string]
	AllowForking             Value[bool]
	WebCommitSignoffRequired Value[bool]

	SecretScanning                   Value[string]
	SecretScanningPushProtection     Value[string]
	DependabotAlertsEnabled          Value[bool]
	DependabotSecurityUpdatesEnabled Value[bool]

	GHPagesBuildType    Value[string]
	GHPagesSourceBranch Value[string]
	GHPagesSourcePath   Value[string]

	Workflows             *RepositoryWorkflowSettings
	Webhooks              []*RepositoryWebhook
	Secrets               []*RepositorySecret
	Environments          []*Environment
	BranchProtectionRules []*BranchProtectionRule
}

// archivedExcludedFields become unreachable once a repository is archived;
// they are excluded from diff computation so frozen settings never show up
// as drift.
var archivedExcludedFields = map[string]bool{
	"description":                         true,
	"homepage":                            true,
	"allow_auto_merge":                    true,
	"allow_merge_commit":                  true,
	"allow_rebase_merge":                  true,
	"allow_squash_merge":                  true,
	"allow_update_branch":                 true,
	"delete_branch_on_merge":              true,
	"merge_commit_message":                true,
	"merge_commit_title":                  true,
	"squash_merge_commit_message":         true,
	"squash_merge_commit_title":           true,
	"dependabot_alerts_enabled":           true,
	"dependabot_security_updates_enabled": true,
	"secret_scanning":                     true,
	"secret_scanning_push_protection":     true,
	"has_issues":                          true,
	"has_wiki":                            true,
	"has_projects":                        true,
}

// privateExcludedFields are not supported by the provider on private
// repositories.
var privateExcludedFields = map[string]bool{
	"secret_scanning":                     true,
	"secret_scanning_push_protection":     true,
	"dependabot_security_updates_enabled": true,
}

var repositoryFields = []FieldDescriptor{
	{Name: "id", Type: TypeInt, ExternalOnly: true, Bind: func(o ModelObject) any { return &o.(*Repository).ID }},
	{Name: "node_id", Type: TypeString, ExternalOnly: true, Bind: func(o ModelObject) any { return &o.(*Repository).NodeID }},
	{Name: "name", Type: TypeString, Key: true, Bind: func(o ModelObject) any { return &o.(*Repository).Name }},
	{Name: "aliases", Type: TypeStringList, ModelOnly: true, Bind: func(o ModelObject) any { return &o.(*Repository).Aliases }},
	{Name: "description", Type: TypeString, Bind: func(o ModelObject) any { return &o.(*Repository).Description }},
	{Name: "homepage", Type: TypeString, Bind: func(o ModelObject) any { return &o.(*Repository).Homepage }},
	{Name: "private", Type: TypeBool, Default: false, Bind: func(o ModelObject) any { return &o.(*Repository).Private }},
	{Name: "archived", Type: TypeBool, Default: false, Bind: func(o ModelObject) any { return &o.(*Repository).Archived }},
	{Name: "has_discussions", Type: TypeBool, Default: false, Bind: func(o ModelObject) any { return &o.(*Repository).HasDiscussions }},
	{Name: "has_issues", Type: TypeBool, Default: true, Bind: func(o ModelObject) any { return &o.(*Repository).HasIssues }},
	{Name: "has_projects", Type: TypeBool, Default: true, Bind: func(o ModelObject) any { return &o.(*Repository).HasProjects }},
	{Name: "has_wiki", Type: TypeBool, Default: true, Bind: func(o ModelObject) any { return &o.(*Repository).HasWiki }},
	{Name: "is_template", Type: TypeBool, Default: false, Bind: func(o ModelObject) any { return &o.(*Repository).IsTemplate }},
	{Name: "template_repository", Type: TypeString, ReadOnly: true, Bind: func(o ModelObject) any { return &o.(*Repository).TemplateRepository }},
	{Name: "post_process_template_content", Type: TypeStringList, ModelOnly: true, Bind: func(o ModelObject) any { return &o.(*Repository).PostProcessTemplateContent }},
	{Name: "auto_init", Type: TypeBool, ModelOnly: true, Default: false, Bind: func(o ModelObject) any { return &o.(*Repository).AutoInit }},
	{Name: "topics", Type: TypeStringList, Bind: func(o ModelObject) any { return &o.(*Repository).Topics }},
	{Name: "default_branch", Type: TypeString, Default: "main", Bind: func(o ModelObject) any { return &o.(*Repository).DefaultBranch }},
	{Name: "allow_rebase_merge", Type: TypeBool, Default: true, Bind: func(o ModelObject) any { return &o.(*Repository).AllowRebaseMerge }},
	{Name: "allow_merge_commit", Type: TypeBool, Default: true, Bind: func(o ModelObject) any { return &o.(*Repository).AllowMergeCommit }},
	{Name: "allow_squash_merge", Type: TypeBool, Default: true, Bind: func(o ModelObject) any { return &o.(*Repository).AllowSquashMerge }},
	{Name: "allow_auto_merge", Type: TypeBool, Default: false, Bind: func(o ModelObject) any { return &o.(*Repository).AllowAutoMerge }},
	{Name: "delete_branch_on_merge", Type: TypeBool, Default: false, Bind: func(o ModelObject) any { return &o.(*Repository).DeleteBranchOnMerge }},
	{Name: "allow_update_branch", Type: TypeBool, Default: false, Bind: func(o ModelObject) any { return &o.(*Repository).AllowUpdateBranch }},
	{Name: "squash_merge_commit_title", Type: TypeString, Bind: func(o ModelObject) any { return &o.(*Repository).SquashMergeCommitTitle }},
	{Name: "squash_merge_commit_message", Type: TypeString, Bind: func(o ModelObject) any { return &o.(*Repository).SquashMergeCommitMessage }},
	{Name: "merge_commit_title", Type: TypeString, Bind: func(o ModelObject) any { return &o.(*Repository).MergeCommitTitle }},
	{Name: "merge_commit_message", Type: TypeString, Bind: func(o ModelObject) any { return &o.(*Repository).MergeCommitMessage }},
	{Name: "allow_forking", Type: TypeBool, Default: true, Bind: func(o ModelObject) any { return &o.(*Repository).AllowForking }},
	{Name: "web_commit_signoff_required", Type: TypeBool, Default: false, Bind: func(o ModelObject) any { return &o.(*Repository).WebCommitSignoffRequired }},
	{Name: "secret_scanning", Type: TypeString, Default: "disabled", Bind: func(o ModelObject) any { return &o.(*Repository).SecretScanning }},
	{Name: "secret_scanning_push_protection", Type: TypeString, Default: "disabled", Bind: func(o ModelObject) any { return &o.(*Repository).SecretScanningPushProtection }},
	{Name: "dependabot_alerts_enabled", Type: TypeBool, Default: false, Bind: func(o ModelObject) any { return &o.(*Repository).DependabotAlertsEnabled }},
	{Name: "dependabot_security_updates_enabled", Type: TypeBool, Default: false, Bind: func(o ModelObject) any { return &o.(*Repository).DependabotSecurityUpdatesEnabled }},
	{Name: "gh_pages_build_type", Type: TypeString, Default: "disabled", Bind: func(o ModelObject) any { return &o.(*Repository).GHPagesBuildType }},
	{Name: "gh_pages_source_branch", Type: TypeString, Bind: func(o ModelObject) any { return &o.(*Repository).GHPagesSourceBranch }},
	{Name: "gh_pages_source_path", Type: TypeString, Default: "/", Bind: func(o ModelObject) any { return &o.(*Repository).GHPagesSourcePath }},
	{Name: "workflows", Nested: true},
	{Name: "webhooks", Nested: true},
	{Name: "secrets", Nested: true},
	{Name: "environments", Nested: true},
	{Name: "branch_protection_rules", Nested: true},
}

// Kind implements ModelObject.
func (r *Repository) Kind() Kind { return KindRepository }

// Key implements ModelObject.
func (r *Repository) Key() string { return r.Name.Or("") }

// Fields implements ModelObject.
func (r *Repository) Fields() []FieldDescriptor { return repositoryFields }

// MatchKeys returns the identities this repository matches under: its name
// plus any aliases.
func (r *Repository) MatchKeys() []string {
	keys := []string{r.Key()}
	if aliases, ok := r.Aliases.Get(); ok {
		keys = append(keys, aliases...)
	}
	return keys
}

// IsSiteRepository reports whether this is the organization's special
// "<org>.github.io" site repository.
func (r *Repository) IsSiteRepository(orgID string) bool {
	return strings.EqualFold(r.Name.Or(""), orgID+".github.io")
}

// HasGitHubPagesEnvironment reports whether an environment named
// "github-pages" is configured.
func (r *Repository) HasGitHubPagesEnvironment() bool {
	for _, env := range r.Environments {
		if env.Key() == GitHubPagesEnvironment {
			return true
		}
	}
	return false
}

// RepositoryFromProvider builds a repository from a provider payload.
// Security settings arrive nested under security_and_analysis and the
// pages configuration under gh_pages.
func RepositoryFromProvider(raw map[string]any) (*Repository, error) {
	r := &Repository{}
	if err := fromProviderScalars(r, raw); err != nil {
		return nil, err
	}

	if sa, ok := raw["security_and_analysis"].(map[string]any); ok {
		if status, err := securityStatus(sa, "secret_scanning"); err != nil {
			return nil, err
		} else if status != "" {
			r.SecretScanning = Of(status)
		}
		if status, err := securityStatus(sa, "secret_scanning_push_protection"); err != nil {
			return nil, err
		} else if status != "" {
			r.SecretScanningPushProtection = Of(status)
		}
		if status, err := securityStatus(sa, "dependabot_security_updates"); err != nil {
			return nil, err
		} else if status != "" {
			r.DependabotSecurityUpdatesEnabled = Of(status == "enabled")
		}
	}

	if pages, ok := raw["gh_pages"].(map[string]any); ok {
		if bt, ok := pages["build_type"].(string); ok {
			r.GHPagesBuildType = Of(bt)
		}
		if source, ok := pages["source"].(map[string]any); ok {
			if branch, ok := source["branch"].(string); ok {
				r.GHPagesSourceBranch = Of(branch)
			}
			if path, ok := source["path"].(string); ok {
				r.GHPagesSourcePath = Of(path)
			}
		}
	} else if _, present := raw["gh_pages"]; !present {
		// No pages object in live state means pages are disabled.
		r.GHPagesBuildType = Of("disabled")
	}
	return r, nil
}

// securityStatus extracts a status string like "enabled"/"disabled" from a
// security_and_analysis member. An unexpected shape is a fatal mapping
// error.
func securityStatus(sa map[string]any, key string) (string, error) {
	entry, ok := sa[key]
	if !ok {
		return "", nil
	}
	m, ok := entry.(map[string]any)
	if !ok {
		return "", fmt.Errorf("repository: unexpected security_and_analysis entry %q: %v", key, entry)
	}
	status, ok := m["status"].(string)
	if !ok {
		return "", fmt.Errorf("repository: unexpected security_and_analysis entry %q: %v", key, entry)
	}
	return status, nil
}

// ToProvider emits the provider-bound payload, restricted to fields when
// non-nil. Flat security fields are restructured into security_and_analysis
// (dropped entirely for private repositories); pages fields are
// restructured into gh_pages, whose source is only accepted for the
// "legacy" build type.
func (r *Repository) ToProvider(fields FieldSet) map[string]any {
	payload := toProviderScalars(r, fields)

	sa := make(map[string]any)
	if v, ok := payload["secret_scanning"]; ok {
		delete(payload, "secret_scanning")
		sa["secret_scanning"] = map[string]any{"status": v}
	}
	if v, ok := payload["secret_scanning_push_protection"]; ok {
		delete(payload, "secret_scanning_push_protection")
		sa["secret_scanning_push_protection"] = map[string]any{"status": v}
	}
	if v, ok := payload["dependabot_security_updates_enabled"]; ok {
		delete(payload, "dependabot_security_updates_enabled")
		status := "disabled"
		if enabled, _ := v.(bool); enabled {
			status = "enabled"
		}
		sa["dependabot_security_updates"] = map[string]any{"status": status}
	}
	if len(sa) > 0 && !r.Private.Or(false) {
		payload["security_and_analysis"] = sa
	}

	buildType, hasBuildType := payload["gh_pages_build_type"].(string)
	branch, hasBranch := payload["gh_pages_source_branch"].(string)
	path, hasPath := payload["gh_pages_source_path"].(string)
	delete(payload, "gh_pages_build_type")
	delete(payload, "gh_pages_source_branch")
	delete(payload, "gh_pages_source_path")
	if hasBuildType || hasBranch || hasPath {
		pages := make(map[string]any)
		if !hasBuildType {
			buildType = r.GHPagesBuildType.Or("disabled")
		}
		pages["build_type"] = buildType
		if buildType == "legacy" {
			source := make(map[string]any)
			if hasBranch {
				source["branch"] = branch
			}
			if hasPath {
				source["path"] = path
			}
			if len(source) > 0 {
				pages["source"] = source
			}
		}
		payload["gh_pages"] = pages
	}
	return payload
}

// diffPredicate excludes fields that are inert in the state that will hold
// after reconciliation: the archived set, the private security set, and
// the pages source pair outside the "legacy" build type.
func (r *Repository) diffPredicate(current *Repository) FieldPredicate {
	archived := Effective(r.Archived, current.Archived, false)
	private := Effective(r.Private, current.Private, false)
	buildType := Effective(r.GHPagesBuildType, current.GHPagesBuildType, "disabled")
	return func(d FieldDescriptor) bool {
		if archived && archivedExcludedFields[d.Name] {
			return false
		}
		if private && privateExcludedFields[d.Name] {
			return false
		}
		if (d.Name == "gh_pages_source_branch" || d.Name == "gh_pages_source_path") && buildType != "legacy" {
			return false
		}
		return true
	}
}

// Validate appends findings for the repository rules.
func (r *Repository) Validate(ctx *ValidationContext) {
	path := repoPath(r)
	checkReadOnlyFields(ctx, path, r, "template_repository")
	r.validateName(ctx, path)
	r.validateTopics(ctx, path)

	if desc, ok := r.Description.Get(); ok && len(desc) > 350 {
		ctx.Errorf(path, "description exceeds maximum length of 350 characters")
	}

	private := r.Private.Or(false)
	archived := r.Archived.Or(false)

	if !private && r.AllowForking.IsSet() && !r.AllowForking.Or(true) {
		ctx.Warnf(path, "public repositories always allow forking, allow_forking=false is ignored")
	}
	if private && r.HasWiki.Or(false) && ctx.OrgPlan() == "free" {
		ctx.Warnf(path, "wikis on private repositories require a paid billing plan, has_wiki is ignored")
	}

	orgSettings := (*OrganizationSettings)(nil)
	if ctx.Org != nil {
		orgSettings = ctx.Org.Settings
	}
	if orgSettings != nil {
		if source, ok := orgSettings.DiscussionSourceRepository.Get(); ok {
			if parts := strings.SplitN(source, "/", 2); len(parts) == 2 &&
				strings.EqualFold(parts[1], r.Name.Or("")) && !r.HasDiscussions.Or(false) {
				ctx.Errorf(path, "repository is the organization discussion source but has_discussions is disabled")
			}
		}
		if r.HasProjects.IsSet() && r.HasProjects.Or(false) &&
			orgSettings.HasOrganizationProjects.IsSet() && !orgSettings.HasOrganizationProjects.Or(true) {
			ctx.Infof(path, "has_projects has no effect while organization projects are disabled")
		}
		if private && r.AllowForking.Or(false) &&
			orgSettings.MembersCanForkPrivateRepositories.IsSet() &&
			!orgSettings.MembersCanForkPrivateRepositories.Or(false) {
			ctx.Errorf(path, "private repository enables forking while the organization forbids forking private repositories")
		}
		if orgSettings.WebCommitSignoffRequired.Or(false) &&
			r.WebCommitSignoffRequired.IsSet() && !r.WebCommitSignoffRequired.Or(false) {
			ctx.Errorf(path, "web_commit_signoff_required cannot be weakened below the organization-wide requirement")
		}
	}

	if !archived && r.SecretScanningPushProtection.Or("") == "enabled" && r.SecretScanning.Or("") == "disabled" {
		ctx.Errorf(path, "secret_scanning_push_protection requires secret_scanning to be enabled")
	}
	if r.DependabotSecurityUpdatesEnabled.Or(false) && r.DependabotAlertsEnabled.IsSet() && !r.DependabotAlertsEnabled.Or(false) {
		ctx.Errorf(path, "dependabot_security_updates_enabled requires dependabot_alerts_enabled")
	}
	if private {
		for name := range privateExcludedFields {
			if d, ok := fieldByName(repositoryFields, name); ok && d.GetRaw(r).State == Set {
				ctx.Warnf(path, "%s is not supported on private repositories and will not be applied", name)
			}
		}
	}
	if archived && len(r.BranchProtectionRules) > 0 {
		ctx.Infof(path, "branch protection rules on an archived repository are inert")
	}

	r.validatePages(ctx, path)
	r.validateChildKeys(ctx, path)
}

func (r *Repository) validateName(ctx *ValidationContext, path string) {
	name, ok := r.Name.Get()
	if !ok || name == "" {
		ctx.Errorf(path, "repository name is required")
		return
	}
	if len(name) > 100 {
		ctx.Errorf(path, "repository name must be 100 characters or less")
	}
	if !repoNamePattern.MatchString(name) {
		ctx.Errorf(path, "repository name may only contain alphanumeric characters, periods, hyphens, and underscores")
	}
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".") {
		ctx.Errorf(path, "repository name cannot start or end with a period")
	}
}

func (r *Repository) validateTopics(ctx *ValidationContext, path string) {
	topics, ok := r.Topics.Get()
	if !ok {
		return
	}
	if len(topics) > 20 {
		ctx.Errorf(path, "a repository can have at most 20 topics")
	}
	for _, t := range topics {
		if len(t) > 50 {
			ctx.Errorf(path, "topic %q must be 50 characters or less", t)
		}
		if !topicPattern.MatchString(t) {
			ctx.Errorf(path, "topic %q may only contain lowercase letters, numbers, and hyphens", t)
		}
	}
}

func (r *Repository) validatePages(ctx *ValidationContext, path string) {
	if !validEnum(r.GHPagesBuildType, "disabled", "legacy", "workflow") {
		bt, _ := r.GHPagesBuildType.Get()
		ctx.Errorf(path, "gh_pages_build_type %q is invalid, allowed values: %s",
			bt, enumString([]string{"disabled", "legacy", "workflow"}))
		return
	}

	buildType := r.GHPagesBuildType.Or("disabled")
	isSite := ctx.Org != nil && r.IsSiteRepository(ctx.Org.GitHubID)

	if isSite && buildType == "disabled" {
		ctx.Errorf(path, "the organization site repository requires GitHub Pages to be enabled")
	}
	if buildType == "disabled" && (r.GHPagesSourceBranch.IsSet() || r.GHPagesSourcePath.IsSet()) {
		ctx.Warnf(path, "gh_pages source settings are ignored while gh_pages_build_type is %q", "disabled")
	}
	if (buildType == "legacy" || buildType == "workflow") && !r.HasGitHubPagesEnvironment() {
		ctx.Warnf(path, "a repository with GitHub Pages enabled should define a %q environment, the provider creates one on first deployment", GitHubPagesEnvironment)
	} else if isSite && !r.HasGitHubPagesEnvironment() {
		ctx.Warnf(path, "the organization site repository should define a %q environment", GitHubPagesEnvironment)
	}
}

func (r *Repository) validateChildKeys(ctx *ValidationContext, path string) {
	hooks := make([]string, 0, len(r.Webhooks))
	for _, h := range r.Webhooks {
		hooks = append(hooks, h.Key())
	}
	checkUniqueKeys(ctx, path, "webhook", hooks)

	secrets := make([]string, 0, len(r.Secrets))
	for _, s := range r.Secrets {
		secrets = append(secrets, s.Key())
	}
	checkUniqueKeys(ctx, path, "secret", secrets)

	envs := make([]string, 0, len(r.Environments))
	for _, e := range r.Environments {
		envs = append(envs, e.Key())
	}
	checkUniqueKeys(ctx, path, "environment", envs)

	rules := make([]string, 0, len(r.BranchProtectionRules))
	for _, b := range r.BranchProtectionRules {
		rules = append(rules, b.Key())
	}
	checkUniqueKeys(ctx, path, "branch protection rule", rules)
}
