package gh

import (
	"testing"

	"github.com/google/go-github/v66/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orgsync/internal/helpers"
	"orgsync/pkg/model"
)

func TestRepoToRaw(t *testing.T) {
	repo := &github.Repository{
		ID:                       github.Int64(1200),
		NodeID:                   github.String("R_abc"),
		Name:                     github.String("api"),
		Description:              github.String("Core service"),
		Private:                  github.Bool(true),
		Archived:                 github.Bool(false),
		Topics:                   []string{"go", "service"},
		HasIssues:                github.Bool(true),
		DefaultBranch:            github.String("main"),
		AllowSquashMerge:         github.Bool(true),
		WebCommitSignoffRequired: github.Bool(false),
		TemplateRepository: &github.Repository{
			FullName: github.String("acme/service-template"),
		},
		SecurityAndAnalysis: &github.SecurityAndAnalysis{
			SecretScanning:            &github.SecretScanning{Status: github.String("enabled")},
			DependabotSecurityUpdates: &github.DependabotSecurityUpdates{Status: github.String("disabled")},
		},
	}

	raw := repoToRaw(repo)

	assert.Equal(t, int64(1200), raw["id"])
	assert.Equal(t, "R_abc", raw["node_id"])
	assert.Equal(t, "api", raw["name"])
	assert.Equal(t, "Core service", raw["description"])
	assert.Equal(t, true, raw["private"])
	assert.Equal(t, false, raw["archived"])
	assert.Equal(t, []string{"go", "service"}, raw["topics"])
	assert.Equal(t, "main", raw["default_branch"])
	assert.Equal(t, "acme/service-template", raw["template_repository"])
	assert.Equal(t, map[string]any{
		"secret_scanning":             map[string]any{"status": "enabled"},
		"dependabot_security_updates": map[string]any{"status": "disabled"},
	}, raw["security_and_analysis"])

	assert.NotContains(t, raw, "homepage", "unreported fields stay absent")
	assert.NotContains(t, raw, "has_wiki")
}

func TestRepoEditFromPayload(t *testing.T) {
	payload := map[string]any{
		"name":                        "api-v2",
		"private":                     true,
		"has_issues":                  false,
		"description":                 "Core service",
		"default_branch":              "main",
		"allow_squash_merge":          true,
		"squash_merge_commit_title":   "PR_TITLE",
		"web_commit_signoff_required": true,
	}
	payload["security_and_analysis"] = map[string]any{
		"secret_scanning": map[string]any{"status": "enabled"},
	}
	payload["topics"] = []any{"go"}
	payload["gh_pages"] = map[string]any{"build_type": "workflow"}
	payload["archived"] = true
	payload["dependabot_alerts_enabled"] = true
	payload["bogus_field"] = 1

	edit := repoEditFromPayload(payload, helpers.NewNoopLogger())

	assert.Equal(t, "api-v2", edit.GetName())
	assert.True(t, edit.GetPrivate())
	assert.False(t, edit.GetHasIssues())
	assert.Equal(t, "Core service", edit.GetDescription())
	assert.Equal(t, "main", edit.GetDefaultBranch())
	assert.True(t, edit.GetAllowSquashMerge())
	assert.Equal(t, "PR_TITLE", edit.GetSquashMergeCommitTitle())
	assert.True(t, edit.GetWebCommitSignoffRequired())
	require.NotNil(t, edit.SecurityAndAnalysis)
	assert.Equal(t, "enabled", edit.SecurityAndAnalysis.SecretScanning.GetStatus())
	assert.Nil(t, edit.SecurityAndAnalysis.SecretScanningPushProtection)

	// Fields routed through dedicated endpoints never reach the edit shape.
	assert.Nil(t, edit.Topics)
	assert.Nil(t, edit.Archived)
}

func TestSecurityAndAnalysisFromRaw(t *testing.T) {
	sa := securityAndAnalysisFromRaw(map[string]any{
		"secret_scanning_push_protection": map[string]any{"status": "enabled"},
	})

	assert.Nil(t, sa.SecretScanning)
	assert.Equal(t, "enabled", sa.SecretScanningPushProtection.GetStatus())
	assert.Nil(t, sa.DependabotSecurityUpdates)
}

func TestSplitFullName(t *testing.T) {
	tests := []struct {
		name          string
		full          string
		expectedOwner string
		expectedRepo  string
	}{
		{
			name:          "owner and name",
			full:          "acme/service-template",
			expectedOwner: "acme",
			expectedRepo:  "service-template",
		},
		{
			name:          "bare name falls back to the default owner",
			full:          "service-template",
			expectedOwner: "acme",
			expectedRepo:  "service-template",
		},
		{
			name:          "foreign owner",
			full:          "upstream/template",
			expectedOwner: "upstream",
			expectedRepo:  "template",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			owner, repo := splitFullName(tt.full, "acme")
			assert.Equal(t, tt.expectedOwner, owner)
			assert.Equal(t, tt.expectedRepo, repo)
		})
	}
}

func testEnvironment() *github.Environment {
	return &github.Environment{
		ID:     github.Int64(77),
		NodeID: github.String("EN_abc"),
		Name:   github.String("production"),
		ProtectionRules: []*github.ProtectionRule{
			{Type: github.String("wait_timer"), WaitTimer: github.Int(30)},
			{
				Type: github.String("required_reviewers"),
				Reviewers: []*github.RequiredReviewer{
					{Type: github.String("User"), Reviewer: &github.User{Login: github.String("erin")}},
					{Type: github.String("Team"), Reviewer: &github.Team{Slug: github.String("platform")}},
				},
			},
			{Type: github.String("branch_policy")},
		},
		DeploymentBranchPolicy: &github.BranchPolicy{
			ProtectedBranches:    github.Bool(false),
			CustomBranchPolicies: github.Bool(true),
		},
	}
}

func TestEnvironmentToRaw(t *testing.T) {
	c := &Client{org: "acme", logger: helpers.NewNoopLogger()}

	raw := c.environmentToRaw(testEnvironment())

	assert.Equal(t, int64(77), raw["id"])
	assert.Equal(t, "EN_abc", raw["node_id"])
	assert.Equal(t, "production", raw["name"])
	assert.Equal(t, map[string]any{
		"protected_branches":     false,
		"custom_branch_policies": true,
	}, raw["deployment_branch_policy"])

	// The unknown rule type is dropped, teams surface with both slug
	// forms so the model can prefer the combined one.
	assert.Equal(t, []any{
		map[string]any{"type": "wait_timer", "wait_timer": 30},
		map[string]any{
			"type": "required_reviewers",
			"reviewers": []any{
				map[string]any{"type": "User", "reviewer": map[string]any{"login": "erin"}},
				map[string]any{"type": "Team", "reviewer": map[string]any{
					"combined_slug": "acme/platform",
					"slug":          "platform",
				}},
			},
		},
	}, raw["protection_rules"])
}

func TestEnvironmentToRawMatchesModelParser(t *testing.T) {
	c := &Client{org: "acme", logger: helpers.NewNoopLogger()}

	raw := c.environmentToRaw(testEnvironment())
	raw["branch_policies"] = []string{"main", "release/*"}

	parsed, err := model.EnvironmentFromProvider(raw)
	require.NoError(t, err)

	assert.Equal(t, "production", parsed.Key())
	assert.Equal(t, model.Of(30), parsed.WaitTimer)
	assert.Equal(t, model.Of([]string{"@acme/platform", "@erin"}), parsed.Reviewers)
	assert.Equal(t, model.Of("selected"), parsed.DeploymentBranchPolicy)
	assert.Equal(t, model.Of([]string{"main", "release/*"}), parsed.BranchPolicies)
}
