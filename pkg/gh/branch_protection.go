package gh

import (
	"context"
	"fmt"

	"github.com/shurcooL/githubv4"
)

// Branch protection rules live behind the GraphQL API only. Reads page
// through repository.branchProtectionRules, writes go through the
// create/update/delete mutations addressed by rule node ID.

type actorNode struct {
	Actor struct {
		Typename string `graphql:"__typename"`
		User     struct {
			Login githubv4.String
		} `graphql:"... on User"`
		Team struct {
			CombinedSlug githubv4.String
		} `graphql:"... on Team"`
	}
}

type actorConnection struct {
	Nodes []actorNode
}

type branchProtectionNode struct {
	ID                             githubv4.ID
	Pattern                        githubv4.String
	AllowsDeletions                githubv4.Boolean
	AllowsForcePushes              githubv4.Boolean
	DismissesStaleReviews          githubv4.Boolean
	IsAdminEnforced                githubv4.Boolean
	LockBranch                     githubv4.Boolean
	RequiresApprovingReviews       githubv4.Boolean
	RequiredApprovingReviewCount   *githubv4.Int
	RequiresCodeOwnerReviews       githubv4.Boolean
	RequiresCommitSignatures       githubv4.Boolean
	RequiresConversationResolution githubv4.Boolean
	RequiresLinearHistory          githubv4.Boolean
	RequiresStatusChecks           githubv4.Boolean
	RequiresStrictStatusChecks     githubv4.Boolean
	RequiredStatusCheckContexts    []githubv4.String
	RestrictsPushes                githubv4.Boolean
	RequireLastPushApproval        githubv4.Boolean
	PushAllowances                 actorConnection `graphql:"pushAllowances(first: 100)"`
	BypassPullRequestAllowances    actorConnection `graphql:"bypassPullRequestAllowances(first: 100)"`
	BypassForcePushAllowances      actorConnection `graphql:"bypassForcePushAllowances(first: 100)"`
}

// ListBranchProtections returns every branch protection rule of a
// repository as raw field maps, actors rendered back to their
// configuration references.
func (c *Client) ListBranchProtections(ctx context.Context, repo string) ([]map[string]any, error) {
	var query struct {
		Repository struct {
			BranchProtectionRules struct {
				Nodes    []branchProtectionNode
				PageInfo struct {
					HasNextPage githubv4.Boolean
					EndCursor   githubv4.String
				}
			} `graphql:"branchProtectionRules(first: 100, after: $cursor)"`
		} `graphql:"repository(owner: $owner, name: $name)"`
	}
	variables := map[string]any{
		"owner":  githubv4.String(c.org),
		"name":   githubv4.String(repo),
		"cursor": (*githubv4.String)(nil),
	}

	var out []map[string]any
	for {
		err := c.withRetry(ctx, func() error {
			return wrapError(c.graph.Query(ctx, &query, variables),
				fmt.Sprintf("repository %s branch protection rules", repo))
		})
		if err != nil {
			return nil, err
		}

		for _, node := range query.Repository.BranchProtectionRules.Nodes {
			out = append(out, c.branchProtectionToRaw(node, repo))
		}

		page := query.Repository.BranchProtectionRules.PageInfo
		if !page.HasNextPage {
			break
		}
		variables["cursor"] = githubv4.NewString(page.EndCursor)
	}
	return out, nil
}

func (c *Client) branchProtectionToRaw(node branchProtectionNode, repo string) map[string]any {
	raw := map[string]any{
		"pattern":                          string(node.Pattern),
		"allows_deletions":                 bool(node.AllowsDeletions),
		"allows_force_pushes":              bool(node.AllowsForcePushes),
		"dismisses_stale_reviews":          bool(node.DismissesStaleReviews),
		"is_admin_enforced":                bool(node.IsAdminEnforced),
		"lock_branch":                      bool(node.LockBranch),
		"requires_approving_reviews":       bool(node.RequiresApprovingReviews),
		"requires_code_owner_reviews":      bool(node.RequiresCodeOwnerReviews),
		"requires_commit_signatures":       bool(node.RequiresCommitSignatures),
		"requires_conversation_resolution": bool(node.RequiresConversationResolution),
		"requires_linear_history":          bool(node.RequiresLinearHistory),
		"requires_status_checks":           bool(node.RequiresStatusChecks),
		"requires_strict_status_checks":    bool(node.RequiresStrictStatusChecks),
		"restricts_pushes":                 bool(node.RestrictsPushes),
		"require_last_push_approval":       bool(node.RequireLastPushApproval),
	}
	if id, ok := node.ID.(string); ok {
		raw["id"] = id
	}
	if node.RequiredApprovingReviewCount != nil {
		raw["required_approving_review_count"] = int(*node.RequiredApprovingReviewCount)
	}
	if node.RequiredStatusCheckContexts != nil {
		contexts := make([]string, 0, len(node.RequiredStatusCheckContexts))
		for _, check := range node.RequiredStatusCheckContexts {
			contexts = append(contexts, string(check))
		}
		raw["required_status_checks"] = contexts
	}
	raw["push_restrictions"] = c.actorReferences(node.PushAllowances, repo)
	raw["bypass_pull_request_allowances"] = c.actorReferences(node.BypassPullRequestAllowances, repo)
	raw["bypass_force_push_allowances"] = c.actorReferences(node.BypassForcePushAllowances, repo)
	return raw
}

// actorReferences renders allowance actors back to "@login" and
// "@org/slug" form. Installed apps cannot be named in configuration and
// are dropped from the comparison.
func (c *Client) actorReferences(conn actorConnection, repo string) []string {
	refs := make([]string, 0, len(conn.Nodes))
	for _, node := range conn.Nodes {
		switch node.Actor.Typename {
		case "User":
			refs = append(refs, "@"+string(node.Actor.User.Login))
		case "Team":
			refs = append(refs, "@"+string(node.Actor.Team.CombinedSlug))
		default:
			c.logger.Debug("ignoring unsupported allowance actor",
				"repo", repo, "type", node.Actor.Typename)
		}
	}
	return refs
}

// CreateBranchProtection creates a rule on the repository. The repository
// is addressed by node ID, resolved and cached on first use.
func (c *Client) CreateBranchProtection(ctx context.Context, repo string, payload map[string]any) error {
	identity, err := c.lookupRepo(ctx, repo)
	if err != nil {
		return err
	}

	input := githubv4.CreateBranchProtectionRuleInput{
		RepositoryID:                   githubv4.ID(identity.nodeID),
		Pattern:                        githubv4.String(stringValue(payload["pattern"])),
		AllowsDeletions:                optBoolean(payload, "allows_deletions"),
		AllowsForcePushes:              optBoolean(payload, "allows_force_pushes"),
		DismissesStaleReviews:          optBoolean(payload, "dismisses_stale_reviews"),
		IsAdminEnforced:                optBoolean(payload, "is_admin_enforced"),
		LockBranch:                     optBoolean(payload, "lock_branch"),
		RequiresApprovingReviews:       optBoolean(payload, "requires_approving_reviews"),
		RequiredApprovingReviewCount:   optInt(payload, "required_approving_review_count"),
		RequiresCodeOwnerReviews:       optBoolean(payload, "requires_code_owner_reviews"),
		RequiresCommitSignatures:       optBoolean(payload, "requires_commit_signatures"),
		RequiresConversationResolution: optBoolean(payload, "requires_conversation_resolution"),
		RequiresLinearHistory:          optBoolean(payload, "requires_linear_history"),
		RequiresStatusChecks:           optBoolean(payload, "requires_status_checks"),
		RequiresStrictStatusChecks:     optBoolean(payload, "requires_strict_status_checks"),
		RequiredStatusCheckContexts:    optStringList(payload, "required_status_checks"),
		RestrictsPushes:                optBoolean(payload, "restricts_pushes"),
		PushActorIDs:                   optIDList(payload, "push_restrictions"),
		RequireLastPushApproval:        optBoolean(payload, "require_last_push_approval"),
		BypassPullRequestActorIDs:      optIDList(payload, "bypass_pull_request_allowances"),
		BypassForcePushActorIDs:        optIDList(payload, "bypass_force_push_allowances"),
	}

	var mutation struct {
		CreateBranchProtectionRule struct {
			BranchProtectionRule struct {
				ID githubv4.ID
			}
		} `graphql:"createBranchProtectionRule(input: $input)"`
	}
	return c.withRetry(ctx, func() error {
		return wrapError(c.graph.Mutate(ctx, &mutation, input, nil),
			fmt.Sprintf("repository %s branch protection rule", repo))
	})
}

// UpdateBranchProtection updates the rule with the given node ID.
func (c *Client) UpdateBranchProtection(ctx context.Context, id string, payload map[string]any) error {
	input := githubv4.UpdateBranchProtectionRuleInput{
		BranchProtectionRuleID:         githubv4.ID(id),
		AllowsDeletions:                optBoolean(payload, "allows_deletions"),
		AllowsForcePushes:              optBoolean(payload, "allows_force_pushes"),
		DismissesStaleReviews:          optBoolean(payload, "dismisses_stale_reviews"),
		IsAdminEnforced:                optBoolean(payload, "is_admin_enforced"),
		LockBranch:                     optBoolean(payload, "lock_branch"),
		RequiresApprovingReviews:       optBoolean(payload, "requires_approving_reviews"),
		RequiredApprovingReviewCount:   optInt(payload, "required_approving_review_count"),
		RequiresCodeOwnerReviews:       optBoolean(payload, "requires_code_owner_reviews"),
		RequiresCommitSignatures:       optBoolean(payload, "requires_commit_signatures"),
		RequiresConversationResolution: optBoolean(payload, "requires_conversation_resolution"),
		RequiresLinearHistory:          optBoolean(payload, "requires_linear_history"),
		RequiresStatusChecks:           optBoolean(payload, "requires_status_checks"),
		RequiresStrictStatusChecks:     optBoolean(payload, "requires_strict_status_checks"),
		RequiredStatusCheckContexts:    optStringList(payload, "required_status_checks"),
		RestrictsPushes:                optBoolean(payload, "restricts_pushes"),
		PushActorIDs:                   optIDList(payload, "push_restrictions"),
		RequireLastPushApproval:        optBoolean(payload, "require_last_push_approval"),
		BypassPullRequestActorIDs:      optIDList(payload, "bypass_pull_request_allowances"),
		BypassForcePushActorIDs:        optIDList(payload, "bypass_force_push_allowances"),
	}
	if v, ok := payload["pattern"]; ok {
		input.Pattern = githubv4.NewString(githubv4.String(stringValue(v)))
	}

	var mutation struct {
		UpdateBranchProtectionRule struct {
			BranchProtectionRule struct {
				ID githubv4.ID
			}
		} `graphql:"updateBranchProtectionRule(input: $input)"`
	}
	return c.withRetry(ctx, func() error {
		return wrapError(c.graph.Mutate(ctx, &mutation, input, nil),
			fmt.Sprintf("branch protection rule %s", id))
	})
}

// DeleteBranchProtection removes the rule with the given node ID.
func (c *Client) DeleteBranchProtection(ctx context.Context, id string) error {
	input := githubv4.DeleteBranchProtectionRuleInput{
		BranchProtectionRuleID: githubv4.ID(id),
	}

	var mutation struct {
		DeleteBranchProtectionRule struct {
			ClientMutationID githubv4.String
		} `graphql:"deleteBranchProtectionRule(input: $input)"`
	}
	err := c.withRetry(ctx, func() error {
		return wrapError(c.graph.Mutate(ctx, &mutation, input, nil),
			fmt.Sprintf("branch protection rule %s", id))
	})
	if isAlreadyGone(err) {
		c.logger.Debug("branch protection rule already deleted", "id", id)
		return nil
	}
	return err
}

func optBoolean(payload map[string]any, key string) *githubv4.Boolean {
	v, ok := payload[key]
	if !ok {
		return nil
	}
	return githubv4.NewBoolean(githubv4.Boolean(boolValue(v)))
}

func optInt(payload map[string]any, key string) *githubv4.Int {
	v, ok := payload[key]
	if !ok {
		return nil
	}
	return githubv4.NewInt(githubv4.Int(int64Value(v)))
}

func optStringList(payload map[string]any, key string) *[]githubv4.String {
	v, ok := payload[key]
	if !ok {
		return nil
	}
	values := stringListValue(v)
	out := make([]githubv4.String, 0, len(values))
	for _, s := range values {
		out = append(out, githubv4.String(s))
	}
	return &out
}

func optIDList(payload map[string]any, key string) *[]githubv4.ID {
	v, ok := payload[key]
	if !ok {
		return nil
	}
	values := stringListValue(v)
	out := make([]githubv4.ID, 0, len(values))
	for _, s := range values {
		out = append(out, githubv4.ID(s))
	}
	return &out
}
