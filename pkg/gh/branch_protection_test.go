package gh

import (
	"testing"

	"github.com/shurcooL/githubv4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orgsync/internal/helpers"
)

func userAllowance(login string) actorNode {
	var node actorNode
	node.Actor.Typename = "User"
	node.Actor.User.Login = githubv4.String(login)
	return node
}

func teamAllowance(combinedSlug string) actorNode {
	var node actorNode
	node.Actor.Typename = "Team"
	node.Actor.Team.CombinedSlug = githubv4.String(combinedSlug)
	return node
}

func appAllowance() actorNode {
	var node actorNode
	node.Actor.Typename = "App"
	return node
}

func TestBranchProtectionToRaw(t *testing.T) {
	c := &Client{org: "acme", logger: helpers.NewNoopLogger()}

	node := branchProtectionNode{
		ID:                           "BPR_abc",
		Pattern:                      "main",
		IsAdminEnforced:              true,
		RequiresApprovingReviews:     true,
		RequiredApprovingReviewCount: helpers.Ptr(githubv4.Int(2)),
		RequiresStatusChecks:         true,
		RequiredStatusCheckContexts:  []githubv4.String{"ci/build", "ci/test"},
		RestrictsPushes:              true,
	}
	node.PushAllowances.Nodes = []actorNode{
		userAllowance("erin"),
		teamAllowance("acme/platform"),
		appAllowance(),
	}

	raw := c.branchProtectionToRaw(node, "api")

	assert.Equal(t, "BPR_abc", raw["id"])
	assert.Equal(t, "main", raw["pattern"])
	assert.Equal(t, true, raw["is_admin_enforced"])
	assert.Equal(t, false, raw["allows_deletions"])
	assert.Equal(t, true, raw["requires_approving_reviews"])
	assert.Equal(t, 2, raw["required_approving_review_count"])
	assert.Equal(t, []string{"ci/build", "ci/test"}, raw["required_status_checks"])
	assert.Equal(t, []string{"@erin", "@acme/platform"}, raw["push_restrictions"],
		"app allowances cannot be named in configuration and are dropped")
	assert.Equal(t, []string{}, raw["bypass_pull_request_allowances"])
	assert.Equal(t, []string{}, raw["bypass_force_push_allowances"])
}

func TestBranchProtectionToRawOptionals(t *testing.T) {
	c := &Client{org: "acme", logger: helpers.NewNoopLogger()}

	raw := c.branchProtectionToRaw(branchProtectionNode{Pattern: "release/*"}, "api")

	assert.Equal(t, "release/*", raw["pattern"])
	assert.NotContains(t, raw, "id", "a non-string node id is not reported")
	assert.NotContains(t, raw, "required_approving_review_count")
	assert.NotContains(t, raw, "required_status_checks")
	assert.Equal(t, []string{}, raw["push_restrictions"])
}

func TestOptBuilders(t *testing.T) {
	payload := map[string]any{
		"lock_branch":            true,
		"required_status_checks": []any{"ci/build"},
		"push_restrictions":      []string{"U_7", "T_99"},
	}
	payload["required_approving_review_count"] = float64(3)

	require.NotNil(t, optBoolean(payload, "lock_branch"))
	assert.Equal(t, githubv4.Boolean(true), *optBoolean(payload, "lock_branch"))
	assert.Nil(t, optBoolean(payload, "missing"))

	require.NotNil(t, optInt(payload, "required_approving_review_count"))
	assert.Equal(t, githubv4.Int(3), *optInt(payload, "required_approving_review_count"))
	assert.Nil(t, optInt(payload, "missing"))

	require.NotNil(t, optStringList(payload, "required_status_checks"))
	assert.Equal(t, []githubv4.String{"ci/build"}, *optStringList(payload, "required_status_checks"))
	assert.Nil(t, optStringList(payload, "missing"))

	require.NotNil(t, optIDList(payload, "push_restrictions"))
	assert.Equal(t, []githubv4.ID{"U_7", "T_99"}, *optIDList(payload, "push_restrictions"))
	assert.Nil(t, optIDList(payload, "missing"))
}
