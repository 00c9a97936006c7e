package model

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sortedKeys(diff FieldDiff) []string {
	keys := make([]string, 0, len(diff))
	for name := range diff {
		keys = append(keys, name)
	}
	sort.Strings(keys)
	return keys
}

func TestDiffSkipsUnsetExpectedFields(t *testing.T) {
	expected := &Repository{Name: Of("api")}
	current := &Repository{Name: Of("api"), Description: Of("live description"), HasWiki: Of(false)}

	diff, err := Diff(expected, current, nil)
	require.NoError(t, err)
	assert.Empty(t, diff)
}

func TestDiffRecordsTransitions(t *testing.T) {
	expected := &Repository{Name: Of("api"), Description: Of("new"), HasWiki: Of(false)}
	current := &Repository{Name: Of("api"), Description: Of("old"), HasWiki: Of(true)}

	diff, err := Diff(expected, current, nil)
	require.NoError(t, err)
	require.Len(t, diff, 2)
	assert.Equal(t, Change{From: RawOf("old"), To: RawOf("new")}, diff["description"])
	assert.Equal(t, Change{From: RawOf(true), To: RawOf(false)}, diff["has_wiki"])
}

func TestDiffNullClearsField(t *testing.T) {
	expected := &Repository{Name: Of("api"), Description: NullOf[string]()}
	current := &Repository{Name: Of("api"), Description: Of("old")}

	diff, err := Diff(expected, current, nil)
	require.NoError(t, err)
	require.Contains(t, diff, "description")
	assert.Equal(t, Change{From: RawOf("old"), To: RawNull()}, diff["description"])

	// Null on both sides is agreement.
	current.Description = NullOf[string]()
	diff, err = Diff(expected, current, nil)
	require.NoError(t, err)
	assert.Empty(t, diff)
}

func TestDiffIgnoresNonSettableFields(t *testing.T) {
	expected := &Repository{Name: Of("api"), Aliases: Of([]string{"old-api"}), TemplateRepository: Of("tmpl")}
	expected.ID = Of(1)
	current := &Repository{Name: Of("api")}
	current.ID = Of(2)

	diff, err := Diff(expected, current, nil)
	require.NoError(t, err)
	assert.Empty(t, diff, "external-only, model-only, and read-only fields never diff")
}

func TestDiffKindMismatch(t *testing.T) {
	_, err := Diff(&Repository{}, &Environment{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot diff repository against environment")
}

func TestFieldDiffFields(t *testing.T) {
	diff := FieldDiff{"a": {}, "b": {}}
	assert.Equal(t, FieldSet{"a": true, "b": true}, diff.Fields())
}

func TestDiffObjectsWebhookSecretPlaceholder(t *testing.T) {
	expected := &OrganizationWebhook{}
	expected.URL = Of("https://example.com/hook")
	expected.Secret = Of("real-secret")
	expected.Active = Of(false)

	// Live webhooks always come back with a masked secret.
	current := &OrganizationWebhook{}
	current.URL = Of("https://example.com/hook")
	current.Secret = Of("********")
	current.Active = Of(true)

	diff, err := DiffObjects(expected, current)
	require.NoError(t, err)
	assert.NotContains(t, diff, "secret", "masked secret must not produce perpetual drift")
	assert.Contains(t, diff, "active")
}

func TestDiffObjectsWebhookExpectedPlaceholder(t *testing.T) {
	expected := &RepositoryWebhook{}
	expected.URL = Of("https://example.com/hook")
	expected.Secret = Of("****")

	current := &RepositoryWebhook{}
	current.URL = Of("https://example.com/hook")
	current.Secret = Of("********")

	diff, err := DiffObjects(expected, current)
	require.NoError(t, err)
	assert.Empty(t, diff)
}

func TestDiffObjectsSecretValuePlaceholder(t *testing.T) {
	expected := &OrganizationSecret{Name: Of("DEPLOY_KEY"), Value: Of("hunter2"), Visibility: Of("private")}
	current := &OrganizationSecret{Name: Of("DEPLOY_KEY"), Value: Of("********"), Visibility: Of("all")}

	diff, err := DiffObjects(expected, current)
	require.NoError(t, err)
	assert.NotContains(t, diff, "value", "a changed secret value alone cannot be detected")
	assert.Contains(t, diff, "visibility")

	repoExpected := &RepositorySecret{Name: Of("NPM_TOKEN"), Value: Of("tok")}
	repoCurrent := &RepositorySecret{Name: Of("NPM_TOKEN"), Value: Of("********")}
	diff, err = DiffObjects(repoExpected, repoCurrent)
	require.NoError(t, err)
	assert.Empty(t, diff)
}

func TestDiffObjectsArchivedRepositoryFreezesSettings(t *testing.T) {
	expected := &Repository{Name: Of("attic"), Archived: Of(true), HasWiki: Of(false), Description: Of("new")}
	current := &Repository{Name: Of("attic"), Archived: Of(false), HasWiki: Of(true), Description: Of("old")}

	diff, err := DiffObjects(expected, current)
	require.NoError(t, err)
	assert.Contains(t, diff, "archived", "the archived flag itself still converges")
	assert.NotContains(t, diff, "has_wiki")
	assert.NotContains(t, diff, "description")
}

func TestDiffObjectsArchivedCurrentAlsoFreezes(t *testing.T) {
	// Post-apply state governs: expected says nothing about archived, the
	// live repository is archived, so frozen fields stay excluded.
	expected := &Repository{Name: Of("attic"), HasIssues: Of(false)}
	current := &Repository{Name: Of("attic"), Archived: Of(true), HasIssues: Of(true)}

	diff, err := DiffObjects(expected, current)
	require.NoError(t, err)
	assert.Empty(t, diff)
}

func TestDiffObjectsPrivateRepositorySecurityFields(t *testing.T) {
	expected := &Repository{Name: Of("api"), Private: Of(true), SecretScanning: Of("enabled")}
	current := &Repository{Name: Of("api"), Private: Of(true), SecretScanning: Of("disabled")}

	diff, err := DiffObjects(expected, current)
	require.NoError(t, err)
	assert.Empty(t, diff, "secret scanning is unavailable on private repositories")

	// Going public re-enables the comparison.
	expected.Private = Of(false)
	diff, err = DiffObjects(expected, current)
	require.NoError(t, err)
	assert.Contains(t, diff, "private")
	assert.Contains(t, diff, "secret_scanning")
}

func TestDiffObjectsPagesSourceRequiresLegacy(t *testing.T) {
	expected := &Repository{Name: Of("site"), GHPagesBuildType: Of("workflow"), GHPagesSourceBranch: Of("gh-pages")}
	current := &Repository{Name: Of("site"), GHPagesBuildType: Of("disabled")}

	diff, err := DiffObjects(expected, current)
	require.NoError(t, err)
	assert.Contains(t, diff, "gh_pages_build_type")
	assert.NotContains(t, diff, "gh_pages_source_branch")

	expected.GHPagesBuildType = Of("legacy")
	diff, err = DiffObjects(expected, current)
	require.NoError(t, err)
	assert.Contains(t, diff, "gh_pages_source_branch")
}

func TestDiffObjectsWebOnlyOrgSettings(t *testing.T) {
	expected := &OrganizationSettings{DefaultBranchName: Of("trunk"), Description: Of("new")}
	current := &OrganizationSettings{DefaultBranchName: Of("main"), Description: Of("old")}

	diff, err := DiffObjects(expected, current)
	require.NoError(t, err)
	assert.NotContains(t, diff, "default_branch_name", "web-only settings cannot be converged over the API")
	assert.Contains(t, diff, "description")
}

func TestDiffObjectsOrgWorkflowGating(t *testing.T) {
	expected := &OrganizationWorkflowSettings{
		EnabledRepositories:  Of("none"),
		SelectedRepositories: Of([]string{"api"}),
		AllowedActions:       Of("local_only"),
	}
	current := &OrganizationWorkflowSettings{
		EnabledRepositories: Of("all"),
		AllowedActions:      Of("all"),
	}

	diff, err := DiffObjects(expected, current)
	require.NoError(t, err)
	assert.Equal(t, []string{"enabled_repositories"}, sortedKeys(diff),
		"disabling workflows leaves only the mode itself to converge")
}

func TestDiffObjectsOrgWorkflowSelectedRepositories(t *testing.T) {
	expected := &OrganizationWorkflowSettings{
		EnabledRepositories:     Of("selected"),
		SelectedRepositories:    Of([]string{"api", "web"}),
		AllowGitHubOwnedActions: Of(false),
	}
	current := &OrganizationWorkflowSettings{
		EnabledRepositories:     Of("all"),
		AllowGitHubOwnedActions: Of(true),
	}

	diff, err := DiffObjects(expected, current)
	require.NoError(t, err)
	assert.Contains(t, diff, "selected_repositories")
	assert.NotContains(t, diff, "allow_github_owned_actions",
		"allow details only apply while allowed_actions is selected")
}

func TestDiffObjectsRepoWorkflowDisabled(t *testing.T) {
	expected := &RepositoryWorkflowSettings{Enabled: Of(false), DefaultWorkflowPermissions: Of("write")}
	current := &RepositoryWorkflowSettings{Enabled: Of(true), DefaultWorkflowPermissions: Of("read")}

	diff, err := DiffObjects(expected, current)
	require.NoError(t, err)
	assert.Equal(t, []string{"enabled"}, sortedKeys(diff))
}

func TestDiffObjectsEnvironmentBranchPolicies(t *testing.T) {
	expected := &Environment{Name: Of("production"), DeploymentBranchPolicy: Of("protected"), BranchPolicies: Of([]string{"main"})}
	current := &Environment{Name: Of("production"), DeploymentBranchPolicy: Of("all")}

	diff, err := DiffObjects(expected, current)
	require.NoError(t, err)
	assert.Contains(t, diff, "deployment_branch_policy")
	assert.NotContains(t, diff, "branch_policies")

	expected.DeploymentBranchPolicy = Of("selected")
	diff, err = DiffObjects(expected, current)
	require.NoError(t, err)
	assert.Contains(t, diff, "branch_policies")
}

func TestDiffObjectsKindMismatch(t *testing.T) {
	_, err := DiffObjects(&OrganizationSettings{}, &Repository{})
	require.Error(t, err)
}
