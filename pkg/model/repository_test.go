package model

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepositoryMatchKeys(t *testing.T) {
	repo := &Repository{Name: Of("api-v2")}
	assert.Equal(t, []string{"api-v2"}, repo.MatchKeys())

	repo.Aliases = Of([]string{"api", "api-old"})
	assert.Equal(t, []string{"api-v2", "api", "api-old"}, repo.MatchKeys())
}

func TestIsSiteRepository(t *testing.T) {
	repo := &Repository{Name: Of("Acme.github.io")}
	assert.True(t, repo.IsSiteRepository("acme"))
	assert.False(t, repo.IsSiteRepository("other"))
	assert.False(t, (&Repository{Name: Of("api")}).IsSiteRepository("acme"))
}

func TestHasGitHubPagesEnvironment(t *testing.T) {
	repo := &Repository{Name: Of("site")}
	assert.False(t, repo.HasGitHubPagesEnvironment())

	repo.Environments = []*Environment{{Name: Of("github-pages")}}
	assert.True(t, repo.HasGitHubPagesEnvironment())
}

func TestRepositoryFromProviderSecurity(t *testing.T) {
	repo, err := RepositoryFromProvider(map[string]any{
		"name": "api",
		"security_and_analysis": map[string]any{
			"secret_scanning":                 map[string]any{"status": "enabled"},
			"secret_scanning_push_protection": map[string]any{"status": "disabled"},
			"dependabot_security_updates":     map[string]any{"status": "enabled"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, Of("enabled"), repo.SecretScanning)
	assert.Equal(t, Of("disabled"), repo.SecretScanningPushProtection)
	assert.Equal(t, Of(true), repo.DependabotSecurityUpdatesEnabled)
}

func TestRepositoryFromProviderSecurityBadShape(t *testing.T) {
	_, err := RepositoryFromProvider(map[string]any{
		"name": "api",
		"security_and_analysis": map[string]any{
			"secret_scanning": "enabled",
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unexpected security_and_analysis entry "secret_scanning"`)
}

func TestRepositoryFromProviderPages(t *testing.T) {
	repo, err := RepositoryFromProvider(map[string]any{
		"name": "site",
		"gh_pages": map[string]any{
			"build_type": "legacy",
			"source": map[string]any{
				"branch": "gh-pages",
				"path":   "/docs",
			},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, Of("legacy"), repo.GHPagesBuildType)
	assert.Equal(t, Of("gh-pages"), repo.GHPagesSourceBranch)
	assert.Equal(t, Of("/docs"), repo.GHPagesSourcePath)
}

func TestRepositoryFromProviderPagesAbsent(t *testing.T) {
	repo, err := RepositoryFromProvider(map[string]any{"name": "api"})
	require.NoError(t, err)
	assert.Equal(t, Of("disabled"), repo.GHPagesBuildType,
		"a missing pages object means pages are disabled")
}

func TestRepositoryToProviderSecurity(t *testing.T) {
	repo := &Repository{
		Name:                             Of("api"),
		SecretScanning:                   Of("enabled"),
		DependabotSecurityUpdatesEnabled: Of(true),
	}

	payload := repo.ToProvider(nil)
	require.Contains(t, payload, "security_and_analysis")
	sa := payload["security_and_analysis"].(map[string]any)
	assert.Equal(t, map[string]any{"status": "enabled"}, sa["secret_scanning"])
	assert.Equal(t, map[string]any{"status": "enabled"}, sa["dependabot_security_updates"])
	assert.NotContains(t, payload, "secret_scanning", "flat field is restructured away")
	assert.NotContains(t, payload, "dependabot_security_updates_enabled")
}

func TestRepositoryToProviderSecurityDroppedWhenPrivate(t *testing.T) {
	repo := &Repository{
		Name:           Of("internal"),
		Private:        Of(true),
		SecretScanning: Of("enabled"),
	}

	payload := repo.ToProvider(nil)
	assert.NotContains(t, payload, "security_and_analysis",
		"the provider rejects security settings on private repositories")
	assert.NotContains(t, payload, "secret_scanning")
}

func TestRepositoryToProviderPagesLegacy(t *testing.T) {
	repo := &Repository{
		Name:                Of("site"),
		GHPagesBuildType:    Of("legacy"),
		GHPagesSourceBranch: Of("gh-pages"),
		GHPagesSourcePath:   Of("/"),
	}

	payload := repo.ToProvider(nil)
	require.Contains(t, payload, "gh_pages")
	pages := payload["gh_pages"].(map[string]any)
	assert.Equal(t, "legacy", pages["build_type"])
	assert.Equal(t, map[string]any{"branch": "gh-pages", "path": "/"}, pages["source"])
	assert.NotContains(t, payload, "gh_pages_build_type")
	assert.NotContains(t, payload, "gh_pages_source_branch")
}

func TestRepositoryToProviderPagesWorkflowDropsSource(t *testing.T) {
	repo := &Repository{
		Name:                Of("site"),
		GHPagesBuildType:    Of("workflow"),
		GHPagesSourceBranch: Of("gh-pages"),
	}

	payload := repo.ToProvider(nil)
	pages := payload["gh_pages"].(map[string]any)
	assert.Equal(t, "workflow", pages["build_type"])
	assert.NotContains(t, pages, "source", "source is only accepted for the legacy build type")
}

func TestRepositoryToProviderPagesSourceWithoutBuildType(t *testing.T) {
	// A changed-fields payload may carry only the source; the build type
	// then comes from the desired state.
	repo := &Repository{
		Name:                Of("site"),
		GHPagesBuildType:    Of("legacy"),
		GHPagesSourceBranch: Of("main"),
	}

	payload := repo.ToProvider(FieldSet{"gh_pages_source_branch": true})
	require.Contains(t, payload, "gh_pages")
	pages := payload["gh_pages"].(map[string]any)
	assert.Equal(t, "legacy", pages["build_type"])
	assert.Equal(t, map[string]any{"branch": "main"}, pages["source"])
}

func TestRepositoryValidateMinimal(t *testing.T) {
	repo := &Repository{Name: Of("api")}
	ctx := NewValidationContext(&Organization{GitHubID: "acme"})
	repo.Validate(ctx)
	assert.Empty(t, ctx.Findings())
}

func TestRepositoryValidateName(t *testing.T) {
	cases := []struct {
		name     string
		repoName Value[string]
		fragment string
	}{
		{"missing", UnsetOf[string](), "repository name is required"},
		{"empty", Of(""), "repository name is required"},
		{"too long", Of(strings.Repeat("a", 101)), "100 characters or less"},
		{"bad characters", Of("my repo"), "may only contain"},
		{"leading period", Of(".github2"), "cannot start or end with a period"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := NewValidationContext(nil)
			(&Repository{Name: tc.repoName}).Validate(ctx)
			assert.True(t, hasFinding(ctx.Findings(), SeverityError, tc.fragment))
		})
	}
}

func TestRepositoryValidateTopics(t *testing.T) {
	ctx := NewValidationContext(nil)
	repo := &Repository{Name: Of("api"), Topics: Of([]string{"Go", "valid-topic", strings.Repeat("x", 51)})}
	repo.Validate(ctx)

	findings := ctx.Findings()
	assert.True(t, hasFinding(findings, SeverityError, `topic "Go" may only contain lowercase`))
	assert.True(t, hasFinding(findings, SeverityError, "50 characters or less"))
}

func TestRepositoryValidateDescriptionLength(t *testing.T) {
	ctx := NewValidationContext(nil)
	(&Repository{Name: Of("api"), Description: Of(strings.Repeat("d", 351))}).Validate(ctx)
	assert.True(t, hasFinding(ctx.Findings(), SeverityError, "description exceeds maximum length"))
}

func TestRepositoryValidateForking(t *testing.T) {
	ctx := NewValidationContext(nil)
	(&Repository{Name: Of("api"), Private: Of(false), AllowForking: Of(false)}).Validate(ctx)
	assert.True(t, hasFinding(ctx.Findings(), SeverityWarning, "public repositories always allow forking"))

	org := &Organization{
		GitHubID: "acme",
		Settings: &OrganizationSettings{MembersCanForkPrivateRepositories: Of(false)},
	}
	ctx = NewValidationContext(org)
	(&Repository{Name: Of("api"), Private: Of(true), AllowForking: Of(true)}).Validate(ctx)
	assert.True(t, hasFinding(ctx.Findings(), SeverityError, "organization forbids forking private repositories"))
}

func TestRepositoryValidateDiscussionSource(t *testing.T) {
	org := &Organization{
		GitHubID: "acme",
		Settings: &OrganizationSettings{DiscussionSourceRepository: Of("acme/forum")},
	}
	ctx := NewValidationContext(org)
	(&Repository{Name: Of("forum")}).Validate(ctx)
	assert.True(t, hasFinding(ctx.Findings(), SeverityError, "discussion source but has_discussions is disabled"))

	ctx = NewValidationContext(org)
	(&Repository{Name: Of("forum"), HasDiscussions: Of(true)}).Validate(ctx)
	assert.False(t, hasFinding(ctx.Findings(), SeverityError, "discussion source"))
}

func TestRepositoryValidateSignoffWeakening(t *testing.T) {
	org := &Organization{
		GitHubID: "acme",
		Settings: &OrganizationSettings{WebCommitSignoffRequired: Of(true)},
	}
	ctx := NewValidationContext(org)
	(&Repository{Name: Of("api"), WebCommitSignoffRequired: Of(false)}).Validate(ctx)
	assert.True(t, hasFinding(ctx.Findings(), SeverityError, "cannot be weakened below the organization-wide requirement"))
}

func TestRepositoryValidateSecurityDependencies(t *testing.T) {
	ctx := NewValidationContext(nil)
	(&Repository{
		Name:                         Of("api"),
		SecretScanning:               Of("disabled"),
		SecretScanningPushProtection: Of("enabled"),
	}).Validate(ctx)
	assert.True(t, hasFinding(ctx.Findings(), SeverityError, "secret_scanning_push_protection requires secret_scanning"))

	ctx = NewValidationContext(nil)
	(&Repository{
		Name:                             Of("api"),
		DependabotAlertsEnabled:          Of(false),
		DependabotSecurityUpdatesEnabled: Of(true),
	}).Validate(ctx)
	assert.True(t, hasFinding(ctx.Findings(), SeverityError, "dependabot_security_updates_enabled requires dependabot_alerts_enabled"))
}

func TestRepositoryValidatePrivateSecurityWarning(t *testing.T) {
	ctx := NewValidationContext(nil)
	(&Repository{Name: Of("internal"), Private: Of(true), SecretScanning: Of("enabled")}).Validate(ctx)
	assert.True(t, hasFinding(ctx.Findings(), SeverityWarning, "not supported on private repositories"))
}

func TestRepositoryValidateArchivedProtectionRules(t *testing.T) {
	ctx := NewValidationContext(nil)
	(&Repository{
		Name:                  Of("attic"),
		Archived:              Of(true),
		BranchProtectionRules: []*BranchProtectionRule{{Pattern: Of("main")}},
	}).Validate(ctx)
	assert.True(t, hasFinding(ctx.Findings(), SeverityInfo, "archived repository are inert"))
}

func TestRepositoryValidatePages(t *testing.T) {
	ctx := NewValidationContext(nil)
	(&Repository{Name: Of("site"), GHPagesBuildType: Of("invalid")}).Validate(ctx)
	assert.True(t, hasFinding(ctx.Findings(), SeverityError, `gh_pages_build_type "invalid" is invalid`))

	ctx = NewValidationContext(nil)
	(&Repository{Name: Of("site"), GHPagesSourceBranch: Of("gh-pages")}).Validate(ctx)
	assert.True(t, hasFinding(ctx.Findings(), SeverityWarning, "source settings are ignored"))

	ctx = NewValidationContext(nil)
	(&Repository{Name: Of("site"), GHPagesBuildType: Of("workflow")}).Validate(ctx)
	assert.True(t, hasFinding(ctx.Findings(), SeverityWarning, `should define a "github-pages" environment`))
}

func TestRepositoryValidateSiteRepository(t *testing.T) {
	org := &Organization{GitHubID: "acme"}
	ctx := NewValidationContext(org)
	(&Repository{Name: Of("acme.github.io")}).Validate(ctx)
	assert.True(t, hasFinding(ctx.Findings(), SeverityError, "site repository requires GitHub Pages to be enabled"))

	ctx = NewValidationContext(org)
	site := &Repository{
		Name:             Of("acme.github.io"),
		GHPagesBuildType: Of("legacy"),
		Environments:     []*Environment{{Name: Of("github-pages")}},
	}
	site.Validate(ctx)
	assert.Empty(t, ctx.Findings())
}

func TestRepositoryValidateDuplicateChildren(t *testing.T) {
	ctx := NewValidationContext(nil)
	(&Repository{
		Name: Of("api"),
		Secrets: []*RepositorySecret{
			{Name: Of("TOKEN")},
			{Name: Of("TOKEN")},
		},
		Environments: []*Environment{
			{Name: Of("production")},
			{Name: Of("production")},
		},
	}).Validate(ctx)

	findings := ctx.Findings()
	assert.True(t, hasFinding(findings, SeverityError, `duplicate secret "TOKEN"`))
	assert.True(t, hasFinding(findings, SeverityError, `duplicate environment "production"`))
}
