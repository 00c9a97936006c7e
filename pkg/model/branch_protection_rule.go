package model

import (
	"context"
	"fmt"
)

// BranchProtectionRule protects branches matching a pattern on a
// repository.
type BranchProtectionRule struct {
	ID      Value[string]
	Pattern Value[string]

	AllowsDeletions                Value[bool]
	AllowsForcePushes              Value[bool]
	DismissesStaleReviews          Value[bool]
	IsAdminEnforced                Value[bool]
	LockBranch                     Value[bool]
	RequiresApprovingReviews       Value[bool]
	RequiredApprovingReviewCount   Value[int]
	RequiresCodeOwnerReviews       Value[bool]
	RequiresCommitSignatures       Value[bool]
	RequiresConversationResolution Value[bool]
	RequiresLinearHistory          Value[bool]
	RequiresStatusChecks           Value[bool]
	RequiresStrictStatusChecks     Value[bool]
	RequiredStatusChecks           Value[[]string]
	RestrictsPushes                Value[bool]
	PushRestrictions               Value[[]string]
	RequireLastPushApproval        Value[bool]
	BypassPullRequestAllowances    Value[[]string]
	BypassForcePushAllowances      Value[[]string]
}

var branchProtectionRuleFields = []FieldDescriptor{
	{Name: "id", Type: TypeString, ExternalOnly: true, Bind: func(o ModelObject) any { return &o.(*BranchProtectionRule).ID }},
	{Name: "pattern", Type: TypeString, Key: true, Bind: func(o ModelObject) any { return &o.(*BranchProtectionRule).Pattern }},
	{Name: "allows_deletions", Type: TypeBool, Default: false, Bind: func(o ModelObject) any { return &o.(*BranchProtectionRule).AllowsDeletions }},
	{Name: "allows_force_pushes", Type: TypeBool, Default: false, Bind: func(o ModelObject) any { return &o.(*BranchProtectionRule).AllowsForcePushes }},
	{Name: "dismisses_stale_reviews", Type: TypeBool, Default: false, Bind: func(o ModelObject) any { return &o.(*BranchProtectionRule).DismissesStaleReviews }},
	{Name: "is_admin_enforced", Type: TypeBool, Default: false, Bind: func(o ModelObject) any { return &o.(*BranchProtectionRule).IsAdminEnforced }},
	{Name: "lock_branch", Type: TypeBool, Default: false, Bind: func(o ModelObject) any { return &o.(*BranchProtectionRule).LockBranch }},
	{Name: "requires_approving_reviews", Type: TypeBool, Default: true, Bind: func(o ModelObject) any { return &o.(*BranchProtectionRule).RequiresApprovingReviews }},
	{Name: "required_approving_review_count", Type: TypeInt, Default: 2, Bind: func(o ModelObject) any { return &o.(*BranchProtectionRule).RequiredApprovingReviewCount }},
	{Name: "requires_code_owner_reviews", Type: TypeBool, Default: false, Bind: func(o ModelObject) any { return &o.(*BranchProtectionRule).RequiresCodeOwnerReviews }},
	{Name: "requires_commit_signatures", Type: TypeBool, Default: false, Bind: func(o ModelObject) any { return &o.(*BranchProtectionRule).RequiresCommitSignatures }},
	{Name: "requires_conversation_resolution", Type: TypeBool, Default: false, Bind: func(o ModelObject) any { return &o.(*BranchProtectionRule).RequiresConversationResolution }},
	{Name: "requires_linear_history", Type: TypeBool, Default: false, Bind: func(o ModelObject) any { return &o.(*BranchProtectionRule).RequiresLinearHistory }},
	{Name: "requires_status_checks", Type: TypeBool, Default: true, Bind: func(o ModelObject) any { return &o.(*BranchProtectionRule).RequiresStatusChecks }},
	{Name: "requires_strict_status_checks", Type: TypeBool, Default: false, Bind: func(o ModelObject) any { return &o.(*BranchProtectionRule).RequiresStrictStatusChecks }},
	{Name: "required_status_checks", Type: TypeStringList, Bind: func(o ModelObject) any { return &o.(*BranchProtectionRule).RequiredStatusChecks }},
	{Name: "restricts_pushes", Type: TypeBool, Default: false, Bind: func(o ModelObject) any { return &o.(*BranchProtectionRule).RestrictsPushes }},
	{Name: "push_restrictions", Type: TypeStringList, Bind: func(o ModelObject) any { return &o.(*BranchProtectionRule).PushRestrictions }},
	{Name: "require_last_push_approval", Type: TypeBool, Default: false, Bind: func(o ModelObject) any { return &o.(*BranchProtectionRule).RequireLastPushApproval }},
	{Name: "bypass_pull_request_allowances", Type: TypeStringList, Bind: func(o ModelObject) any { return &o.(*BranchProtectionRule).BypassPullRequestAllowances }},
	{Name: "bypass_force_push_allowances", Type: TypeStringList, Bind: func(o ModelObject) any { return &o.(*BranchProtectionRule).BypassForcePushAllowances }},
}

// Kind implements ModelObject.
func (b *BranchProtectionRule) Kind() Kind { return KindBranchProtectionRule }

// Key implements ModelObject.
func (b *BranchProtectionRule) Key() string { return b.Pattern.Or("") }

// Fields implements ModelObject.
func (b *BranchProtectionRule) Fields() []FieldDescriptor { return branchProtectionRuleFields }

// BranchProtectionRuleFromProvider builds a rule from a provider payload.
// Actor lists arrive pre-rendered as "@login" / "@org/team" references.
func BranchProtectionRuleFromProvider(raw map[string]any) (*BranchProtectionRule, error) {
	b := &BranchProtectionRule{}
	if err := fromProviderScalars(b, raw); err != nil {
		return nil, err
	}
	return b, nil
}

// ToProvider emits the provider-bound payload. Actor reference lists are
// resolved to node ids through res; branch protection writes go through
// the provider's graph API, which addresses actors that way.
func (b *BranchProtectionRule) ToProvider(ctx context.Context, res Resolver, fields FieldSet) (map[string]any, error) {
	payload := toProviderScalars(b, fields)
	for _, field := range []string{"push_restrictions", "bypass_pull_request_allowances", "bypass_force_push_allowances"} {
		names, ok := payload[field].([]string)
		if !ok {
			continue
		}
		actors, err := res.ResolveActorIDs(ctx, names)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", field, err)
		}
		resolved := make([]string, 0, len(actors))
		for _, a := range actors {
			resolved = append(resolved, a.NodeID)
		}
		payload[field] = resolved
	}
	return payload, nil
}

// Validate appends findings for the branch protection rules.
func (b *BranchProtectionRule) Validate(ctx *ValidationContext, repo *Repository) {
	path := repoChildPath(repo, "branch_protection_rule", b.Key())
	checkReadOnlyFields(ctx, path, b)

	if b.Pattern.Or("") == "" {
		ctx.Errorf(path, "branch protection rule requires a pattern")
	}

	count, hasCount := b.RequiredApprovingReviewCount.Get()
	if hasCount && (count < 0 || count > 10) {
		ctx.Errorf(path, "required_approving_review_count of %d is outside the allowed range [0, 10]", count)
	}
	if b.RequiresApprovingReviews.Or(false) && !hasCount {
		ctx.Errorf(path, "required_approving_review_count must be set while requires_approving_reviews is enabled")
	}

	if checks, ok := b.RequiredStatusChecks.Get(); ok && len(checks) > 0 && !b.RequiresStatusChecks.Or(true) {
		ctx.Warnf(path, "required_status_checks are ignored while requires_status_checks is disabled")
	}
	if pushers, ok := b.PushRestrictions.Get(); ok && len(pushers) > 0 && !b.RestrictsPushes.Or(false) {
		ctx.Warnf(path, "push_restrictions are ignored while restricts_pushes is disabled")
	}

	for _, field := range []struct {
		name   string
		actors Value[[]string]
	}{
		{"push_restrictions", b.PushRestrictions},
		{"bypass_pull_request_allowances", b.BypassPullRequestAllowances},
		{"bypass_force_push_allowances", b.BypassForcePushAllowances},
	} {
		actors, ok := field.actors.Get()
		if !ok {
			continue
		}
		for _, a := range actors {
			if !validActorReference(a) {
				ctx.Errorf(path, "%s entry %q must be written as @login or @org/team", field.name, a)
			}
		}
	}
}
