package gh

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"

	"github.com/google/go-github/v66/github"
	"github.com/pkg/errors"
	"golang.org/x/crypto/nacl/box"
)

// GetOrgSettings reads the organization profile plus the security manager
// team list. Only fields the API actually reports end up in the map, so
// web-only settings stay absent.
func (c *Client) GetOrgSettings(ctx context.Context) (map[string]any, error) {
	var org *github.Organization
	err := c.withRetry(ctx, func() error {
		var err error
		org, _, err = c.rest.Organizations.Get(ctx, c.org)
		return wrapError(err, fmt.Sprintf("organization %s", c.org))
	})
	if err != nil {
		return nil, err
	}

	raw := map[string]any{}
	putString(raw, "name", org.Name)
	putString(raw, "description", org.Description)
	putString(raw, "email", org.Email)
	putString(raw, "location", org.Location)
	putString(raw, "company", org.Company)
	putString(raw, "billing_email", org.BillingEmail)
	putString(raw, "twitter_username", org.TwitterUsername)
	putString(raw, "blog", org.Blog)
	putBool(raw, "has_organization_projects", org.HasOrganizationProjects)
	putBool(raw, "has_repository_projects", org.HasRepositoryProjects)
	putString(raw, "default_repository_permission", org.DefaultRepoPermission)
	putBool(raw, "two_factor_requirement", org.TwoFactorRequirementEnabled)
	putBool(raw, "web_commit_signoff_required", org.WebCommitSignoffRequired)
	putBool(raw, "members_can_create_private_repositories", org.MembersCanCreatePrivateRepos)
	putBool(raw, "members_can_create_public_repositories", org.MembersCanCreatePublicRepos)
	putBool(raw, "members_can_fork_private_repositories", org.MembersCanForkPrivateRepos)
	putBool(raw, "members_can_create_pages", org.MembersCanCreatePages)
	putBool(raw, "dependabot_alerts_enabled_for_new_repositories", org.DependabotAlertsEnabledForNewRepos)
	putBool(raw, "dependabot_security_updates_enabled_for_new_repositories", org.DependabotSecurityUpdatesEnabledForNewRepos)
	putBool(raw, "dependency_graph_enabled_for_new_repositories", org.DependencyGraphEnabledForNewRepos)
	if org.Plan != nil {
		raw["plan"] = map[string]any{"name": org.Plan.GetName()}
	}

	managers, err := c.securityManagerTeams(ctx)
	if err != nil {
		return nil, err
	}
	raw["security_managers"] = managers

	return raw, nil
}

func (c *Client) securityManagerTeams(ctx context.Context) ([]string, error) {
	var teams []*github.Team
	err := c.withRetry(ctx, func() error {
		var err error
		teams, _, err = c.rest.Organizations.ListSecurityManagerTeams(ctx, c.org)
		return wrapError(err, fmt.Sprintf("organization %s security managers", c.org))
	})
	if err != nil {
		return nil, err
	}

	slugs := make([]string, 0, len(teams))
	for _, team := range teams {
		slugs = append(slugs, team.GetSlug())
	}
	return slugs, nil
}

// UpdateOrgSettings applies the changed settings. Security managers are
// managed through their own add/remove endpoints, everything else goes
// through a single profile update.
func (c *Client) UpdateOrgSettings(ctx context.Context, payload map[string]any) error {
	managers, syncManagers := payload["security_managers"]
	delete(payload, "security_managers")

	if len(payload) > 0 {
		edit := orgEditFromPayload(payload, c.logger)
		err := c.withRetry(ctx, func() error {
			_, _, err := c.rest.Organizations.Edit(ctx, c.org, edit)
			return wrapError(err, fmt.Sprintf("organization %s", c.org))
		})
		if err != nil {
			return err
		}
	}

	if syncManagers {
		if err := c.syncSecurityManagers(ctx, stringListValue(managers)); err != nil {
			return err
		}
	}
	return nil
}

func orgEditFromPayload(payload map[string]any, logger *slog.Logger) *github.Organization {
	edit := &github.Organization{}
	for key, v := range payload {
		switch key {
		case "name":
			edit.Name = github.String(stringValue(v))
		case "description":
			edit.Description = github.String(stringValue(v))
		case "email":
			edit.Email = github.String(stringValue(v))
		case "location":
			edit.Location = github.String(stringValue(v))
		case "company":
			edit.Company = github.String(stringValue(v))
		case "billing_email":
			edit.BillingEmail = github.String(stringValue(v))
		case "twitter_username":
			edit.TwitterUsername = github.String(stringValue(v))
		case "blog":
			edit.Blog = github.String(stringValue(v))
		case "has_organization_projects":
			edit.HasOrganizationProjects = github.Bool(boolValue(v))
		case "has_repository_projects":
			edit.HasRepositoryProjects = github.Bool(boolValue(v))
		case "default_repository_permission":
			edit.DefaultRepoPermission = github.String(stringValue(v))
		case "web_commit_signoff_required":
			edit.WebCommitSignoffRequired = github.Bool(boolValue(v))
		case "members_can_create_private_repositories":
			edit.MembersCanCreatePrivateRepos = github.Bool(boolValue(v))
		case "members_can_create_public_repositories":
			edit.MembersCanCreatePublicRepos = github.Bool(boolValue(v))
		case "members_can_fork_private_repositories":
			edit.MembersCanForkPrivateRepos = github.Bool(boolValue(v))
		case "members_can_create_pages":
			edit.MembersCanCreatePages = github.Bool(boolValue(v))
		case "dependabot_alerts_enabled_for_new_repositories":
			edit.DependabotAlertsEnabledForNewRepos = github.Bool(boolValue(v))
		case "dependabot_security_updates_enabled_for_new_repositories":
			edit.DependabotSecurityUpdatesEnabledForNewRepos = github.Bool(boolValue(v))
		case "dependency_graph_enabled_for_new_repositories":
			edit.DependencyGraphEnabledForNewRepos = github.Bool(boolValue(v))
		default:
			logger.Warn("organization settings field has no API mapping, skipping", "field", key)
		}
	}
	return edit
}

func (c *Client) syncSecurityManagers(ctx context.Context, want []string) error {
	current, err := c.securityManagerTeams(ctx)
	if err != nil {
		return err
	}

	wanted := make(map[string]bool, len(want))
	for _, slug := range want {
		wanted[slug] = true
	}
	existing := make(map[string]bool, len(current))
	for _, slug := range current {
		existing[slug] = true
	}

	for _, slug := range current {
		if wanted[slug] {
			continue
		}
		err := c.withRetry(ctx, func() error {
			_, err := c.rest.Organizations.RemoveSecurityManagerTeam(ctx, c.org, slug)
			return wrapError(err, fmt.Sprintf("security manager team %s", slug))
		})
		if err != nil {
			return err
		}
	}
	for _, slug := range want {
		if existing[slug] {
			continue
		}
		err := c.withRetry(ctx, func() error {
			_, err := c.rest.Organizations.AddSecurityManagerTeam(ctx, c.org, slug)
			return wrapError(err, fmt.Sprintf("security manager team %s", slug))
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// GetOrgWorkflowSettings assembles the actions configuration from its
// four endpoints. Settings refining a mode are only read while that mode
// is active, the selected-actions endpoints answer errors otherwise.
func (c *Client) GetOrgWorkflowSettings(ctx context.Context) (map[string]any, error) {
	var perms *github.ActionsPermissions
	err := c.withRetry(ctx, func() error {
		var err error
		perms, _, err = c.rest.Actions.GetActionsPermissions(ctx, c.org)
		return wrapError(err, fmt.Sprintf("organization %s actions permissions", c.org))
	})
	if err != nil {
		return nil, err
	}

	raw := map[string]any{}
	putString(raw, "enabled_repositories", perms.EnabledRepositories)
	putString(raw, "allowed_actions", perms.AllowedActions)

	if perms.GetEnabledRepositories() == "selected" {
		names, err := c.enabledActionsRepos(ctx)
		if err != nil {
			return nil, err
		}
		raw["selected_repositories"] = names
	}

	if perms.GetAllowedActions() == "selected" {
		var allowed *github.ActionsAllowed
		err := c.withRetry(ctx, func() error {
			var err error
			allowed, _, err = c.rest.Actions.GetActionsAllowed(ctx, c.org)
			return wrapError(err, fmt.Sprintf("organization %s allowed actions", c.org))
		})
		if err != nil {
			return nil, err
		}
		putBool(raw, "allow_github_owned_actions", allowed.GithubOwnedAllowed)
		putBool(raw, "allow_verified_creator_actions", allowed.VerifiedAllowed)
		raw["allow_action_patterns"] = allowed.PatternsAllowed
	}

	var defaults *github.DefaultWorkflowPermissionOrganization
	err = c.withRetry(ctx, func() error {
		var err error
		defaults, _, err = c.rest.Actions.GetDefaultWorkflowPermissionsInOrganization(ctx, c.org)
		return wrapError(err, fmt.Sprintf("organization %s workflow defaults", c.org))
	})
	if err != nil {
		return nil, err
	}
	putString(raw, "default_workflow_permissions", defaults.DefaultWorkflowPermissions)
	putBool(raw, "actors_can_approve_pull_request_reviews", defaults.CanApprovePullRequestReviews)

	return raw, nil
}

func (c *Client) enabledActionsRepos(ctx context.Context) ([]string, error) {
	var names []string
	opts := &github.ListOptions{PerPage: 100}
	for {
		var page *github.ActionsEnabledOnOrgRepos
		var resp *github.Response
		err := c.withRetry(ctx, func() error {
			var err error
			page, resp, err = c.rest.Actions.ListEnabledReposInOrg(ctx, c.org, opts)
			return wrapError(err, fmt.Sprintf("organization %s actions repositories", c.org))
		})
		if err != nil {
			return nil, err
		}
		for _, repo := range page.Repositories {
			names = append(names, repo.GetName())
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return names, nil
}

// UpdateOrgWorkflowSettings splits the changed fields back across the
// actions endpoints. The permissions and allowed-actions writes replace
// whole objects, so gaps in the payload are backfilled from live state
// before writing.
func (c *Client) UpdateOrgWorkflowSettings(ctx context.Context, payload map[string]any) error {
	if hasAny(payload, "enabled_repositories", "allowed_actions") {
		perms := github.ActionsPermissions{}
		if v, ok := payload["enabled_repositories"]; ok {
			perms.EnabledRepositories = github.String(stringValue(v))
		}
		if v, ok := payload["allowed_actions"]; ok {
			perms.AllowedActions = github.String(stringValue(v))
		}
		if perms.EnabledRepositories == nil {
			var current *github.ActionsPermissions
			err := c.withRetry(ctx, func() error {
				var err error
				current, _, err = c.rest.Actions.GetActionsPermissions(ctx, c.org)
				return wrapError(err, fmt.Sprintf("organization %s actions permissions", c.org))
			})
			if err != nil {
				return err
			}
			perms.EnabledRepositories = current.EnabledRepositories
		}
		err := c.withRetry(ctx, func() error {
			_, _, err := c.rest.Actions.EditActionsPermissions(ctx, c.org, perms)
			return wrapError(err, fmt.Sprintf("organization %s actions permissions", c.org))
		})
		if err != nil {
			return err
		}
	}

	if v, ok := payload["selected_repository_ids"]; ok {
		ids := int64ListValue(v)
		err := c.withRetry(ctx, func() error {
			_, err := c.rest.Actions.SetEnabledReposInOrg(ctx, c.org, ids)
			return wrapError(err, fmt.Sprintf("organization %s actions repositories", c.org))
		})
		if err != nil {
			return err
		}
	}

	if hasAny(payload, "allow_github_owned_actions", "allow_verified_creator_actions", "allow_action_patterns") {
		var current *github.ActionsAllowed
		err := c.withRetry(ctx, func() error {
			var err error
			current, _, err = c.rest.Actions.GetActionsAllowed(ctx, c.org)
			return wrapError(err, fmt.Sprintf("organization %s allowed actions", c.org))
		})
		if err != nil {
			return err
		}

		allowed := github.ActionsAllowed{
			GithubOwnedAllowed: current.GithubOwnedAllowed,
			VerifiedAllowed:    current.VerifiedAllowed,
			PatternsAllowed:    current.PatternsAllowed,
		}
		if v, ok := payload["allow_github_owned_actions"]; ok {
			allowed.GithubOwnedAllowed = github.Bool(boolValue(v))
		}
		if v, ok := payload["allow_verified_creator_actions"]; ok {
			allowed.VerifiedAllowed = github.Bool(boolValue(v))
		}
		if v, ok := payload["allow_action_patterns"]; ok {
			allowed.PatternsAllowed = stringListValue(v)
		}
		err = c.withRetry(ctx, func() error {
			_, _, err := c.rest.Actions.EditActionsAllowed(ctx, c.org, allowed)
			return wrapError(err, fmt.Sprintf("organization %s allowed actions", c.org))
		})
		if err != nil {
			return err
		}
	}

	if hasAny(payload, "default_workflow_permissions", "actors_can_approve_pull_request_reviews") {
		defaults := github.DefaultWorkflowPermissionOrganization{}
		if v, ok := payload["default_workflow_permissions"]; ok {
			defaults.DefaultWorkflowPermissions = github.String(stringValue(v))
		}
		if v, ok := payload["actors_can_approve_pull_request_reviews"]; ok {
			defaults.CanApprovePullRequestReviews = github.Bool(boolValue(v))
		}
		err := c.withRetry(ctx, func() error {
			_, _, err := c.rest.Actions.EditDefaultWorkflowPermissionsInOrganization(ctx, c.org, defaults)
			return wrapError(err, fmt.Sprintf("organization %s workflow defaults", c.org))
		})
		if err != nil {
			return err
		}
	}

	return nil
}

// ListOrgWebhooks returns the organization webhooks in API order.
func (c *Client) ListOrgWebhooks(ctx context.Context) ([]map[string]any, error) {
	var hooks []*github.Hook
	opts := &github.ListOptions{PerPage: 100}
	for {
		var page []*github.Hook
		var resp *github.Response
		err := c.withRetry(ctx, func() error {
			var err error
			page, resp, err = c.rest.Organizations.ListHooks(ctx, c.org, opts)
			return wrapError(err, fmt.Sprintf("organization %s webhooks", c.org))
		})
		if err != nil {
			return nil, err
		}
		hooks = append(hooks, page...)
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	out := make([]map[string]any, 0, len(hooks))
	for _, hook := range hooks {
		out = append(out, webhookToRaw(hook))
	}
	return out, nil
}

// CreateOrgWebhook creates a webhook from a full field payload.
func (c *Client) CreateOrgWebhook(ctx context.Context, payload map[string]any) error {
	hook := hookFromPayload(payload)
	return c.withRetry(ctx, func() error {
		_, _, err := c.rest.Organizations.CreateHook(ctx, c.org, hook)
		return wrapError(err, fmt.Sprintf("organization %s webhook", c.org))
	})
}

// UpdateOrgWebhook replaces the webhook configuration under the given ID.
func (c *Client) UpdateOrgWebhook(ctx context.Context, id int64, payload map[string]any) error {
	hook := hookFromPayload(payload)
	return c.withRetry(ctx, func() error {
		_, _, err := c.rest.Organizations.EditHook(ctx, c.org, id, hook)
		return wrapError(err, fmt.Sprintf("organization %s webhook %d", c.org, id))
	})
}

// DeleteOrgWebhook removes a webhook, treating an already absent one as
// success.
func (c *Client) DeleteOrgWebhook(ctx context.Context, id int64) error {
	err := c.withRetry(ctx, func() error {
		_, err := c.rest.Organizations.DeleteHook(ctx, c.org, id)
		return wrapError(err, fmt.Sprintf("organization %s webhook %d", c.org, id))
	})
	if isAlreadyGone(err) {
		c.logger.Debug("webhook already deleted", "org", c.org, "id", id)
		return nil
	}
	return err
}

// ListOrgSecrets returns the organization actions secrets. The provider
// never discloses stored values, so each entry carries the masked
// placeholder instead.
func (c *Client) ListOrgSecrets(ctx context.Context) ([]map[string]any, error) {
	var secrets []*github.Secret
	opts := &github.ListOptions{PerPage: 100}
	for {
		var page *github.Secrets
		var resp *github.Response
		err := c.withRetry(ctx, func() error {
			var err error
			page, resp, err = c.rest.Actions.ListOrgSecrets(ctx, c.org, opts)
			return wrapError(err, fmt.Sprintf("organization %s secrets", c.org))
		})
		if err != nil {
			return nil, err
		}
		secrets = append(secrets, page.Secrets...)
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	out := make([]map[string]any, 0, len(secrets))
	for _, secret := range secrets {
		raw := map[string]any{
			"name":       secret.Name,
			"value":      maskedSecretValue,
			"visibility": secret.Visibility,
		}
		if secret.Visibility == "selected" {
			names, err := c.selectedSecretRepos(ctx, secret.Name)
			if err != nil {
				return nil, err
			}
			raw["selected_repositories"] = names
		}
		out = append(out, raw)
	}
	return out, nil
}

func (c *Client) selectedSecretRepos(ctx context.Context, name string) ([]string, error) {
	var names []string
	opts := &github.ListOptions{PerPage: 100}
	for {
		var page *github.SelectedReposList
		var resp *github.Response
		err := c.withRetry(ctx, func() error {
			var err error
			page, resp, err = c.rest.Actions.ListSelectedReposForOrgSecret(ctx, c.org, name, opts)
			return wrapError(err, fmt.Sprintf("organization secret %s repositories", name))
		})
		if err != nil {
			return nil, err
		}
		for _, repo := range page.Repositories {
			names = append(names, repo.GetName())
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return names, nil
}

// PutOrgSecret creates or updates a secret. A value in the payload is
// sealed against the organization public key, a payload without one
// only adjusts visibility.
func (c *Client) PutOrgSecret(ctx context.Context, name string, payload map[string]any) error {
	secret := &github.EncryptedSecret{Name: name}
	if v, ok := payload["visibility"]; ok {
		secret.Visibility = stringValue(v)
	}
	if v, ok := payload["selected_repository_ids"]; ok {
		secret.SelectedRepositoryIDs = github.SelectedRepoIDs(int64ListValue(v))
	}
	if v, ok := payload["value"]; ok {
		key, err := c.secretsPublicKey(ctx, "")
		if err != nil {
			return err
		}
		sealed, err := encryptSecretValue(key.GetKey(), stringValue(v))
		if err != nil {
			return err
		}
		secret.KeyID = key.GetKeyID()
		secret.EncryptedValue = sealed
	}

	return c.withRetry(ctx, func() error {
		_, err := c.rest.Actions.CreateOrUpdateOrgSecret(ctx, c.org, secret)
		return wrapError(err, fmt.Sprintf("organization secret %s", name))
	})
}

// DeleteOrgSecret removes a secret, treating an already absent one as
// success.
func (c *Client) DeleteOrgSecret(ctx context.Context, name string) error {
	err := c.withRetry(ctx, func() error {
		_, err := c.rest.Actions.DeleteOrgSecret(ctx, c.org, name)
		return wrapError(err, fmt.Sprintf("organization secret %s", name))
	})
	if isAlreadyGone(err) {
		c.logger.Debug("secret already deleted", "org", c.org, "name", name)
		return nil
	}
	return err
}

// maskedSecretValue is how secret values surface in listings. It matches
// the provider's own masking of webhook secrets, and the diff recognizes
// the all-asterisk form as a placeholder.
const maskedSecretValue = "********"

// secretsPublicKey fetches the sealed-box public key for the organization
// (repo "") or a repository, caching per target.
func (c *Client) secretsPublicKey(ctx context.Context, repo string) (*github.PublicKey, error) {
	if key, ok := c.keyCache[repo]; ok {
		return key, nil
	}

	var key *github.PublicKey
	err := c.withRetry(ctx, func() error {
		var err error
		if repo == "" {
			key, _, err = c.rest.Actions.GetOrgPublicKey(ctx, c.org)
			return wrapError(err, fmt.Sprintf("organization %s secrets key", c.org))
		}
		key, _, err = c.rest.Actions.GetRepoPublicKey(ctx, c.org, repo)
		return wrapError(err, fmt.Sprintf("repository %s secrets key", repo))
	})
	if err != nil {
		return nil, err
	}

	c.keyCache[repo] = key
	return key, nil
}

// encryptSecretValue seals a secret value with the target's libsodium
// public key, the only form secret write endpoints accept.
func encryptSecretValue(publicKey, value string) (string, error) {
	decoded, err := base64.StdEncoding.DecodeString(publicKey)
	if err != nil {
		return "", errors.Wrap(err, "failed to decode secrets public key")
	}
	if len(decoded) != 32 {
		return "", errors.Errorf("secrets public key is %d bytes, want 32", len(decoded))
	}

	var key [32]byte
	copy(key[:], decoded)
	sealed, err := box.SealAnonymous(nil, []byte(value), &key, rand.Reader)
	if err != nil {
		return "", errors.Wrap(err, "failed to seal secret value")
	}
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// webhookToRaw flattens a hook and its config object into one field map.
func webhookToRaw(hook *github.Hook) map[string]any {
	raw := map[string]any{
		"id":     hook.GetID(),
		"active": hook.GetActive(),
		"events": hook.Events,
	}
	if cfg := hook.Config; cfg != nil {
		putString(raw, "url", cfg.URL)
		putString(raw, "content_type", cfg.ContentType)
		putString(raw, "insecure_ssl", cfg.InsecureSSL)
		putString(raw, "secret", cfg.Secret)
	}
	return raw
}

// hookFromPayload builds the hook write shape, splitting flat fields back
// into the nested config object.
func hookFromPayload(payload map[string]any) *github.Hook {
	hook := &github.Hook{
		Name:   github.String("web"),
		Config: &github.HookConfig{},
	}
	for key, v := range payload {
		switch key {
		case "active":
			hook.Active = github.Bool(boolValue(v))
		case "events":
			hook.Events = stringListValue(v)
		case "url":
			hook.Config.URL = github.String(stringValue(v))
		case "content_type":
			hook.Config.ContentType = github.String(stringValue(v))
		case "insecure_ssl":
			hook.Config.InsecureSSL = github.String(stringValue(v))
		case "secret":
			hook.Config.Secret = github.String(stringValue(v))
		}
	}
	return hook
}
