package gh

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/go-github/v66/github"
	"github.com/pkg/errors"

	"orgsync/pkg/reconcile"
)

// ListRepositories returns every repository of the organization with its
// full settings. The org listing omits security and pages details, so
// each repository is fetched individually afterwards.
func (c *Client) ListRepositories(ctx context.Context) ([]map[string]any, error) {
	var names []string
	opts := &github.RepositoryListByOrgOptions{
		Type:        "all",
		ListOptions: github.ListOptions{PerPage: 100},
	}
	for {
		var page []*github.Repository
		var resp *github.Response
		err := c.withRetry(ctx, func() error {
			var err error
			page, resp, err = c.rest.Repositories.ListByOrg(ctx, c.org, opts)
			return wrapError(err, fmt.Sprintf("organization %s repositories", c.org))
		})
		if err != nil {
			return nil, err
		}
		for _, repo := range page {
			names = append(names, repo.GetName())
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	out := make([]map[string]any, 0, len(names))
	for _, name := range names {
		raw, err := c.getRepository(ctx, name)
		if err != nil {
			return nil, err
		}
		out = append(out, raw)
	}
	return out, nil
}

func (c *Client) getRepository(ctx context.Context, name string) (map[string]any, error) {
	var repo *github.Repository
	err := c.withRetry(ctx, func() error {
		var err error
		repo, _, err = c.rest.Repositories.Get(ctx, c.org, name)
		return wrapError(err, fmt.Sprintf("repository %s/%s", c.org, name))
	})
	if err != nil {
		return nil, err
	}
	c.cacheRepoIdentity(repo)

	raw := repoToRaw(repo)

	var alerts bool
	err = c.withRetry(ctx, func() error {
		var err error
		alerts, _, err = c.rest.Repositories.GetVulnerabilityAlerts(ctx, c.org, name)
		return wrapError(err, fmt.Sprintf("repository %s vulnerability alerts", name))
	})
	if err != nil {
		return nil, err
	}
	raw["dependabot_alerts_enabled"] = alerts

	pages, err := c.getPages(ctx, name)
	if err != nil {
		return nil, err
	}
	if pages != nil {
		raw["gh_pages"] = pages
	}

	return raw, nil
}

// getPages reads the pages configuration, mapping "no pages site" to nil.
func (c *Client) getPages(ctx context.Context, repo string) (map[string]any, error) {
	var pages *github.Pages
	var missing bool
	err := c.withRetry(ctx, func() error {
		var err error
		var resp *github.Response
		pages, resp, err = c.rest.Repositories.GetPagesInfo(ctx, c.org, repo)
		if isNotFound(resp) {
			missing = true
			return nil
		}
		return wrapError(err, fmt.Sprintf("repository %s pages", repo))
	})
	if err != nil {
		return nil, err
	}
	if missing || pages == nil {
		return nil, nil
	}

	raw := map[string]any{}
	putString(raw, "build_type", pages.BuildType)
	if src := pages.Source; src != nil {
		source := map[string]any{}
		putString(source, "branch", src.Branch)
		putString(source, "path", src.Path)
		raw["source"] = source
	}
	return raw, nil
}

func repoToRaw(repo *github.Repository) map[string]any {
	raw := map[string]any{
		"id":     repo.GetID(),
		"topics": repo.Topics,
	}
	putString(raw, "node_id", repo.NodeID)
	putString(raw, "name", repo.Name)
	putString(raw, "description", repo.Description)
	putString(raw, "homepage", repo.Homepage)
	putBool(raw, "private", repo.Private)
	putBool(raw, "archived", repo.Archived)
	putBool(raw, "has_discussions", repo.HasDiscussions)
	putBool(raw, "has_issues", repo.HasIssues)
	putBool(raw, "has_projects", repo.HasProjects)
	putBool(raw, "has_wiki", repo.HasWiki)
	putBool(raw, "is_template", repo.IsTemplate)
	putString(raw, "default_branch", repo.DefaultBranch)
	putBool(raw, "allow_rebase_merge", repo.AllowRebaseMerge)
	putBool(raw, "allow_merge_commit", repo.AllowMergeCommit)
	putBool(raw, "allow_squash_merge", repo.AllowSquashMerge)
	putBool(raw, "allow_auto_merge", repo.AllowAutoMerge)
	putBool(raw, "delete_branch_on_merge", repo.DeleteBranchOnMerge)
	putBool(raw, "allow_update_branch", repo.AllowUpdateBranch)
	putString(raw, "squash_merge_commit_title", repo.SquashMergeCommitTitle)
	putString(raw, "squash_merge_commit_message", repo.SquashMergeCommitMessage)
	putString(raw, "merge_commit_title", repo.MergeCommitTitle)
	putString(raw, "merge_commit_message", repo.MergeCommitMessage)
	putBool(raw, "allow_forking", repo.AllowForking)
	putBool(raw, "web_commit_signoff_required", repo.WebCommitSignoffRequired)
	if tmpl := repo.TemplateRepository; tmpl != nil {
		raw["template_repository"] = tmpl.GetFullName()
	}
	if sa := repo.SecurityAndAnalysis; sa != nil {
		m := map[string]any{}
		if sa.SecretScanning != nil {
			m["secret_scanning"] = map[string]any{"status": sa.SecretScanning.GetStatus()}
		}
		if sa.SecretScanningPushProtection != nil {
			m["secret_scanning_push_protection"] = map[string]any{"status": sa.SecretScanningPushProtection.GetStatus()}
		}
		if sa.DependabotSecurityUpdates != nil {
			m["dependabot_security_updates"] = map[string]any{"status": sa.DependabotSecurityUpdates.GetStatus()}
		}
		raw["security_and_analysis"] = m
	}
	return raw
}

// CreateRepository creates a repository, from a template when one is
// named, and then converges the full payload through a follow-up update
// since creation endpoints ignore most settings.
func (c *Client) CreateRepository(ctx context.Context, payload map[string]any, opts reconcile.CreateRepoOptions) error {
	name := stringValue(payload["name"])
	if name == "" {
		return errors.New("repository payload has no name")
	}

	var created *github.Repository
	if opts.TemplateRepository != "" {
		tmplOwner, tmplRepo := splitFullName(opts.TemplateRepository, c.org)
		req := &github.TemplateRepoRequest{
			Name:    github.String(name),
			Owner:   github.String(c.org),
			Private: github.Bool(boolValue(payload["private"])),
		}
		if v, ok := payload["description"]; ok {
			req.Description = github.String(stringValue(v))
		}
		err := c.withRetry(ctx, func() error {
			var err error
			created, _, err = c.rest.Repositories.CreateFromTemplate(ctx, tmplOwner, tmplRepo, req)
			return wrapError(err, fmt.Sprintf("repository %s/%s", c.org, name))
		})
		if err != nil {
			return err
		}
	} else {
		repo := repoEditFromPayload(payload, c.logger)
		repo.Name = github.String(name)
		repo.AutoInit = github.Bool(opts.AutoInit)
		err := c.withRetry(ctx, func() error {
			var err error
			created, _, err = c.rest.Repositories.Create(ctx, c.org, repo)
			return wrapError(err, fmt.Sprintf("repository %s/%s", c.org, name))
		})
		if err != nil {
			return err
		}
	}
	c.cacheRepoIdentity(created)

	if opts.TemplateRepository != "" && len(opts.PostProcessTemplateContent) > 0 {
		if err := c.postProcessTemplateContent(ctx, name, opts.PostProcessTemplateContent); err != nil {
			return err
		}
	}

	delete(payload, "name")
	if len(payload) == 0 {
		return nil
	}
	return c.UpdateRepository(ctx, name, payload)
}

// UpdateRepository applies changed fields to a repository. Topics, pages,
// vulnerability alerts, and branch provisioning use their own endpoints,
// archive transitions are ordered so every other field is written while
// the repository accepts writes.
func (c *Client) UpdateRepository(ctx context.Context, repo string, payload map[string]any) error {
	if v, ok := payload["archived"]; ok && !boolValue(v) {
		if err := c.setArchived(ctx, repo, false); err != nil {
			return err
		}
		delete(payload, "archived")
	}
	archiveLast := false
	if v, ok := payload["archived"]; ok && boolValue(v) {
		archiveLast = true
		delete(payload, "archived")
	}

	if v, ok := payload["topics"]; ok {
		topics := stringListValue(v)
		err := c.withRetry(ctx, func() error {
			_, _, err := c.rest.Repositories.ReplaceAllTopics(ctx, c.org, repo, topics)
			return wrapError(err, fmt.Sprintf("repository %s topics", repo))
		})
		if err != nil {
			return err
		}
		delete(payload, "topics")
	}

	if v, ok := payload["dependabot_alerts_enabled"]; ok {
		if err := c.setVulnerabilityAlerts(ctx, repo, boolValue(v)); err != nil {
			return err
		}
		delete(payload, "dependabot_alerts_enabled")
	}

	if v, ok := payload["gh_pages"]; ok {
		pages, _ := v.(map[string]any)
		if err := c.syncPages(ctx, repo, pages); err != nil {
			return err
		}
		delete(payload, "gh_pages")
	}

	if v, ok := payload["default_branch"]; ok {
		branch := stringValue(v)
		if branch != "" {
			if err := c.ensureBranch(ctx, repo, branch); err != nil {
				if !isAlreadyGone(err) {
					return err
				}
				// No commits to branch from yet, the setting cannot
				// take effect until the repository has content.
				c.logger.Warn("cannot provision default branch on empty repository, skipping",
					"repo", repo, "branch", branch)
				delete(payload, "default_branch")
			}
		}
	}

	if len(payload) > 0 {
		edit := repoEditFromPayload(payload, c.logger)
		err := c.withRetry(ctx, func() error {
			updated, _, err := c.rest.Repositories.Edit(ctx, c.org, repo, edit)
			if err == nil {
				c.cacheRepoIdentity(updated)
			}
			return wrapError(err, fmt.Sprintf("repository %s/%s", c.org, repo))
		})
		if err != nil {
			return err
		}
	}

	if archiveLast {
		if err := c.setArchived(ctx, repo, true); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) setArchived(ctx context.Context, repo string, archived bool) error {
	// Renames carry the new name in the same payload, but archive
	// transitions always address the name the repository has right now.
	edit := &github.Repository{Archived: github.Bool(archived)}
	return c.withRetry(ctx, func() error {
		_, _, err := c.rest.Repositories.Edit(ctx, c.org, repo, edit)
		return wrapError(err, fmt.Sprintf("repository %s/%s", c.org, repo))
	})
}

func (c *Client) setVulnerabilityAlerts(ctx context.Context, repo string, enabled bool) error {
	return c.withRetry(ctx, func() error {
		var err error
		if enabled {
			_, err = c.rest.Repositories.EnableVulnerabilityAlerts(ctx, c.org, repo)
		} else {
			_, err = c.rest.Repositories.DisableVulnerabilityAlerts(ctx, c.org, repo)
		}
		return wrapError(err, fmt.Sprintf("repository %s vulnerability alerts", repo))
	})
}

// syncPages converges the pages site onto the wanted configuration,
// enabling, updating, or tearing it down as needed.
func (c *Client) syncPages(ctx context.Context, repo string, want map[string]any) error {
	buildType := stringValue(want["build_type"])
	var source *github.PagesSource
	if src, ok := want["source"].(map[string]any); ok {
		source = &github.PagesSource{}
		if v, ok := src["branch"]; ok {
			source.Branch = github.String(stringValue(v))
		}
		if v, ok := src["path"]; ok {
			source.Path = github.String(stringValue(v))
		}
	}

	live, err := c.getPages(ctx, repo)
	if err != nil {
		return err
	}

	if buildType == "" || buildType == "disabled" {
		if live == nil {
			return nil
		}
		err := c.withRetry(ctx, func() error {
			_, err := c.rest.Repositories.DisablePages(ctx, c.org, repo)
			return wrapError(err, fmt.Sprintf("repository %s pages", repo))
		})
		if isAlreadyGone(err) {
			return nil
		}
		return err
	}

	if live == nil {
		enable := &github.Pages{BuildType: github.String(buildType), Source: source}
		return c.withRetry(ctx, func() error {
			_, _, err := c.rest.Repositories.EnablePages(ctx, c.org, repo, enable)
			return wrapError(err, fmt.Sprintf("repository %s pages", repo))
		})
	}

	update := &github.PagesUpdate{BuildType: github.String(buildType), Source: source}
	return c.withRetry(ctx, func() error {
		_, err := c.rest.Repositories.UpdatePages(ctx, c.org, repo, update)
		return wrapError(err, fmt.Sprintf("repository %s pages", repo))
	})
}

// ensureBranch makes sure a branch exists before it can become the
// default, branching it off the current default when missing.
func (c *Client) ensureBranch(ctx context.Context, repo, branch string) error {
	var exists bool
	err := c.withRetry(ctx, func() error {
		_, resp, err := c.rest.Git.GetRef(ctx, c.org, repo, "heads/"+branch)
		if err == nil {
			exists = true
			return nil
		}
		if isNotFound(resp) {
			return nil
		}
		return wrapError(err, fmt.Sprintf("repository %s branch %s", repo, branch))
	})
	if err != nil || exists {
		return err
	}

	var current *github.Repository
	err = c.withRetry(ctx, func() error {
		var err error
		current, _, err = c.rest.Repositories.Get(ctx, c.org, repo)
		return wrapError(err, fmt.Sprintf("repository %s/%s", c.org, repo))
	})
	if err != nil {
		return err
	}

	var base *github.Reference
	err = c.withRetry(ctx, func() error {
		var err error
		base, _, err = c.rest.Git.GetRef(ctx, c.org, repo, "heads/"+current.GetDefaultBranch())
		return wrapError(err, fmt.Sprintf("repository %s branch %s", repo, current.GetDefaultBranch()))
	})
	if err != nil {
		return err
	}

	ref := &github.Reference{
		Ref:    github.String("refs/heads/" + branch),
		Object: &github.GitObject{SHA: base.Object.SHA},
	}
	return c.withRetry(ctx, func() error {
		_, _, err := c.rest.Git.CreateRef(ctx, c.org, repo, ref)
		return wrapError(err, fmt.Sprintf("repository %s branch %s", repo, branch))
	})
}

// postProcessTemplateContent rewrites placeholder markers in files that
// came from the template, committing the result onto the fresh default
// branch.
func (c *Client) postProcessTemplateContent(ctx context.Context, repo string, paths []string) error {
	replacer := strings.NewReplacer(
		"{{repo_name}}", repo,
		"{{org_id}}", c.org,
	)

	for _, path := range paths {
		var content *github.RepositoryContent
		var missing bool
		err := c.withRetry(ctx, func() error {
			var err error
			var resp *github.Response
			content, _, resp, err = c.rest.Repositories.GetContents(ctx, c.org, repo, path, nil)
			if isNotFound(resp) {
				missing = true
				return nil
			}
			return wrapError(err, fmt.Sprintf("repository %s content %s", repo, path))
		})
		if err != nil {
			return err
		}
		if missing || content == nil {
			c.logger.Warn("templated file not present in repository, skipping", "repo", repo, "path", path)
			continue
		}

		text, err := content.GetContent()
		if err != nil {
			return errors.Wrapf(err, "failed to decode content of %s", path)
		}
		rendered := replacer.Replace(text)
		if rendered == text {
			continue
		}

		commit := &github.RepositoryContentFileOptions{
			Message: github.String(fmt.Sprintf("Fill in templated placeholders in %s", path)),
			Content: []byte(rendered),
			SHA:     content.SHA,
		}
		err = c.withRetry(ctx, func() error {
			_, _, err := c.rest.Repositories.UpdateFile(ctx, c.org, repo, path, commit)
			return wrapError(err, fmt.Sprintf("repository %s content %s", repo, path))
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// DeleteRepository removes a repository, treating an already absent one
// as success.
func (c *Client) DeleteRepository(ctx context.Context, repo string) error {
	err := c.withRetry(ctx, func() error {
		_, err := c.rest.Repositories.Delete(ctx, c.org, repo)
		return wrapError(err, fmt.Sprintf("repository %s/%s", c.org, repo))
	})
	if isAlreadyGone(err) {
		c.logger.Debug("repository already deleted", "repo", repo)
		return nil
	}
	return err
}

func repoEditFromPayload(payload map[string]any, logger *slog.Logger) *github.Repository {
	edit := &github.Repository{}
	for key, v := range payload {
		switch key {
		case "name":
			edit.Name = github.String(stringValue(v))
		case "description":
			edit.Description = github.String(stringValue(v))
		case "homepage":
			edit.Homepage = github.String(stringValue(v))
		case "private":
			edit.Private = github.Bool(boolValue(v))
		case "has_discussions":
			edit.HasDiscussions = github.Bool(boolValue(v))
		case "has_issues":
			edit.HasIssues = github.Bool(boolValue(v))
		case "has_projects":
			edit.HasProjects = github.Bool(boolValue(v))
		case "has_wiki":
			edit.HasWiki = github.Bool(boolValue(v))
		case "is_template":
			edit.IsTemplate = github.Bool(boolValue(v))
		case "default_branch":
			edit.DefaultBranch = github.String(stringValue(v))
		case "allow_rebase_merge":
			edit.AllowRebaseMerge = github.Bool(boolValue(v))
		case "allow_merge_commit":
			edit.AllowMergeCommit = github.Bool(boolValue(v))
		case "allow_squash_merge":
			edit.AllowSquashMerge = github.Bool(boolValue(v))
		case "allow_auto_merge":
			edit.AllowAutoMerge = github.Bool(boolValue(v))
		case "delete_branch_on_merge":
			edit.DeleteBranchOnMerge = github.Bool(boolValue(v))
		case "allow_update_branch":
			edit.AllowUpdateBranch = github.Bool(boolValue(v))
		case "squash_merge_commit_title":
			edit.SquashMergeCommitTitle = github.String(stringValue(v))
		case "squash_merge_commit_message":
			edit.SquashMergeCommitMessage = github.String(stringValue(v))
		case "merge_commit_title":
			edit.MergeCommitTitle = github.String(stringValue(v))
		case "merge_commit_message":
			edit.MergeCommitMessage = github.String(stringValue(v))
		case "allow_forking":
			edit.AllowForking = github.Bool(boolValue(v))
		case "web_commit_signoff_required":
			edit.WebCommitSignoffRequired = github.Bool(boolValue(v))
		case "security_and_analysis":
			if m, ok := v.(map[string]any); ok {
				edit.SecurityAndAnalysis = securityAndAnalysisFromRaw(m)
			}
		case "topics", "gh_pages", "dependabot_alerts_enabled", "archived":
			// Routed through dedicated endpoints by UpdateRepository.
		default:
			logger.Warn("repository field has no API mapping, skipping", "field", key)
		}
	}
	return edit
}

func securityAndAnalysisFromRaw(m map[string]any) *github.SecurityAndAnalysis {
	sa := &github.SecurityAndAnalysis{}
	if st, ok := m["secret_scanning"].(map[string]any); ok {
		sa.SecretScanning = &github.SecretScanning{Status: github.String(stringValue(st["status"]))}
	}
	if st, ok := m["secret_scanning_push_protection"].(map[string]any); ok {
		sa.SecretScanningPushProtection = &github.SecretScanningPushProtection{Status: github.String(stringValue(st["status"]))}
	}
	if st, ok := m["dependabot_security_updates"].(map[string]any); ok {
		sa.DependabotSecurityUpdates = &github.DependabotSecurityUpdates{Status: github.String(stringValue(st["status"]))}
	}
	return sa
}

func splitFullName(full, defaultOwner string) (string, string) {
	if owner, name, ok := strings.Cut(full, "/"); ok {
		return owner, name
	}
	return defaultOwner, full
}

// GetRepoWorkflowSettings assembles the repository actions configuration
// from its three endpoints, mirroring the organization-level read.
func (c *Client) GetRepoWorkflowSettings(ctx context.Context, repo string) (map[string]any, error) {
	var perms *github.ActionsPermissionsRepository
	err := c.withRetry(ctx, func() error {
		var err error
		perms, _, err = c.rest.Repositories.GetActionsPermissions(ctx, c.org, repo)
		return wrapError(err, fmt.Sprintf("repository %s actions permissions", repo))
	})
	if err != nil {
		return nil, err
	}

	raw := map[string]any{}
	putBool(raw, "enabled", perms.Enabled)
	putString(raw, "allowed_actions", perms.AllowedActions)

	if perms.GetEnabled() && perms.GetAllowedActions() == "selected" {
		var allowed *github.ActionsAllowed
		err := c.withRetry(ctx, func() error {
			var err error
			allowed, _, err = c.rest.Repositories.GetActionsAllowed(ctx, c.org, repo)
			return wrapError(err, fmt.Sprintf("repository %s allowed actions", repo))
		})
		if err != nil {
			return nil, err
		}
		putBool(raw, "allow_github_owned_actions", allowed.GithubOwnedAllowed)
		putBool(raw, "allow_verified_creator_actions", allowed.VerifiedAllowed)
		raw["allow_action_patterns"] = allowed.PatternsAllowed
	}

	var defaults *github.DefaultWorkflowPermissionRepository
	err = c.withRetry(ctx, func() error {
		var err error
		defaults, _, err = c.rest.Repositories.GetDefaultWorkflowPermissions(ctx, c.org, repo)
		return wrapError(err, fmt.Sprintf("repository %s workflow defaults", repo))
	})
	if err != nil {
		return nil, err
	}
	putString(raw, "default_workflow_permissions", defaults.DefaultWorkflowPermissions)
	putBool(raw, "actors_can_approve_pull_request_reviews", defaults.CanApprovePullRequestReviews)

	return raw, nil
}

// UpdateRepoWorkflowSettings splits changed fields across the repository
// actions endpoints, backfilling whole-object writes from live state.
func (c *Client) UpdateRepoWorkflowSettings(ctx context.Context, repo string, payload map[string]any) error {
	if hasAny(payload, "enabled", "allowed_actions") {
		perms := github.ActionsPermissionsRepository{}
		if v, ok := payload["enabled"]; ok {
			perms.Enabled = github.Bool(boolValue(v))
		}
		if v, ok := payload["allowed_actions"]; ok {
			perms.AllowedActions = github.String(stringValue(v))
		}
		if perms.Enabled == nil {
			var current *github.ActionsPermissionsRepository
			err := c.withRetry(ctx, func() error {
				var err error
				current, _, err = c.rest.Repositories.GetActionsPermissions(ctx, c.org, repo)
				return wrapError(err, fmt.Sprintf("repository %s actions permissions", repo))
			})
			if err != nil {
				return err
			}
			perms.Enabled = current.Enabled
		}
		err := c.withRetry(ctx, func() error {
			_, _, err := c.rest.Repositories.EditActionsPermissions(ctx, c.org, repo, perms)
			return wrapError(err, fmt.Sprintf("repository %s actions permissions", repo))
		})
		if err != nil {
			return err
		}
	}

	if hasAny(payload, "allow_github_owned_actions", "allow_verified_creator_actions", "allow_action_patterns") {
		var current *github.ActionsAllowed
		err := c.withRetry(ctx, func() error {
			var err error
			current, _, err = c.rest.Repositories.GetActionsAllowed(ctx, c.org, repo)
			return wrapError(err, fmt.Sprintf("repository %s allowed actions", repo))
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
			_, _, err := c.rest.Repositories.EditActionsAllowed(ctx, c.org, repo, allowed)
			return wrapError(err, fmt.Sprintf("repository %s allowed actions", repo))
		})
		if err != nil {
			return err
		}
	}

	if hasAny(payload, "default_workflow_permissions", "actors_can_approve_pull_request_reviews") {
		defaults := github.DefaultWorkflowPermissionRepository{}
		if v, ok := payload["default_workflow_permissions"]; ok {
			defaults.DefaultWorkflowPermissions = github.String(stringValue(v))
		}
		if v, ok := payload["actors_can_approve_pull_request_reviews"]; ok {
			defaults.CanApprovePullRequestReviews = github.Bool(boolValue(v))
		}
		err := c.withRetry(ctx, func() error {
			_, _, err := c.rest.Repositories.EditDefaultWorkflowPermissions(ctx, c.org, repo, defaults)
			return wrapError(err, fmt.Sprintf("repository %s workflow defaults", repo))
		})
		if err != nil {
			return err
		}
	}

	return nil
}

// ListRepoWebhooks returns a repository's webhooks in API order.
func (c *Client) ListRepoWebhooks(ctx context.Context, repo string) ([]map[string]any, error) {
	var hooks []*github.Hook
	opts := &github.ListOptions{PerPage: 100}
	for {
		var page []*github.Hook
		var resp *github.Response
		err := c.withRetry(ctx, func() error {
			var err error
			page, resp, err = c.rest.Repositories.ListHooks(ctx, c.org, repo, opts)
			return wrapError(err, fmt.Sprintf("repository %s webhooks", repo))
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

// CreateRepoWebhook creates a webhook from a full field payload.
func (c *Client) CreateRepoWebhook(ctx context.Context, repo string, payload map[string]any) error {
	hook := hookFromPayload(payload)
	return c.withRetry(ctx, func() error {
		_, _, err := c.rest.Repositories.CreateHook(ctx, c.org, repo, hook)
		return wrapError(err, fmt.Sprintf("repository %s webhook", repo))
	})
}

// UpdateRepoWebhook replaces the webhook configuration under the given ID.
func (c *Client) UpdateRepoWebhook(ctx context.Context, repo string, id int64, payload map[string]any) error {
	hook := hookFromPayload(payload)
	return c.withRetry(ctx, func() error {
		_, _, err := c.rest.Repositories.EditHook(ctx, c.org, repo, id, hook)
		return wrapError(err, fmt.Sprintf("repository %s webhook %d", repo, id))
	})
}

// DeleteRepoWebhook removes a webhook, treating an already absent one as
// success.
func (c *Client) DeleteRepoWebhook(ctx context.Context, repo string, id int64) error {
	err := c.withRetry(ctx, func() error {
		_, err := c.rest.Repositories.DeleteHook(ctx, c.org, repo, id)
		return wrapError(err, fmt.Sprintf("repository %s webhook %d", repo, id))
	})
	if isAlreadyGone(err) {
		c.logger.Debug("webhook already deleted", "repo", repo, "id", id)
		return nil
	}
	return err
}

// ListRepoSecrets returns a repository's actions secrets with masked
// values, like the organization listing.
func (c *Client) ListRepoSecrets(ctx context.Context, repo string) ([]map[string]any, error) {
	var secrets []*github.Secret
	opts := &github.ListOptions{PerPage: 100}
	for {
		var page *github.Secrets
		var resp *github.Response
		err := c.withRetry(ctx, func() error {
			var err error
			page, resp, err = c.rest.Actions.ListRepoSecrets(ctx, c.org, repo, opts)
			return wrapError(err, fmt.Sprintf("repository %s secrets", repo))
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
		out = append(out, map[string]any{
			"name":  secret.Name,
			"value": maskedSecretValue,
		})
	}
	return out, nil
}

// PutRepoSecret creates or updates a repository secret, sealing the value
// against the repository public key.
func (c *Client) PutRepoSecret(ctx context.Context, repo, name string, payload map[string]any) error {
	secret := &github.EncryptedSecret{Name: name}
	if v, ok := payload["value"]; ok {
		key, err := c.secretsPublicKey(ctx, repo)
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
		_, err := c.rest.Actions.CreateOrUpdateRepoSecret(ctx, c.org, repo, secret)
		return wrapError(err, fmt.Sprintf("repository %s secret %s", repo, name))
	})
}

// DeleteRepoSecret removes a repository secret, treating an already
// absent one as success.
func (c *Client) DeleteRepoSecret(ctx context.Context, repo, name string) error {
	err := c.withRetry(ctx, func() error {
		_, err := c.rest.Actions.DeleteRepoSecret(ctx, c.org, repo, name)
		return wrapError(err, fmt.Sprintf("repository %s secret %s", repo, name))
	})
	if isAlreadyGone(err) {
		c.logger.Debug("secret already deleted", "repo", repo, "name", name)
		return nil
	}
	return err
}

// ListEnvironments returns a repository's deployment environments,
// flattening protection rules and branch policies into the field map the
// model consumes.
func (c *Client) ListEnvironments(ctx context.Context, repo string) ([]map[string]any, error) {
	var envs []*github.Environment
	opts := &github.EnvironmentListOptions{ListOptions: github.ListOptions{PerPage: 100}}
	for {
		var page *github.EnvResponse
		var resp *github.Response
		err := c.withRetry(ctx, func() error {
			var err error
			page, resp, err = c.rest.Repositories.ListEnvironments(ctx, c.org, repo, opts)
			return wrapError(err, fmt.Sprintf("repository %s environments", repo))
		})
		if err != nil {
			return nil, err
		}
		envs = append(envs, page.Environments...)
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	out := make([]map[string]any, 0, len(envs))
	for _, env := range envs {
		raw := c.environmentToRaw(env)
		if policy := env.DeploymentBranchPolicy; policy != nil && policy.GetCustomBranchPolicies() {
			names, err := c.deploymentBranchPolicies(ctx, repo, env.GetName())
			if err != nil {
				return nil, err
			}
			raw["branch_policies"] = names
		}
		out = append(out, raw)
	}
	return out, nil
}

func (c *Client) environmentToRaw(env *github.Environment) map[string]any {
	raw := map[string]any{
		"id":      env.GetID(),
		"node_id": env.GetNodeID(),
		"name":    env.GetName(),
	}

	rules := make([]any, 0, len(env.ProtectionRules))
	for _, rule := range env.ProtectionRules {
		switch rule.GetType() {
		case "wait_timer":
			rules = append(rules, map[string]any{
				"type":       "wait_timer",
				"wait_timer": rule.GetWaitTimer(),
			})
		case "required_reviewers":
			reviewers := make([]any, 0, len(rule.Reviewers))
			for _, required := range rule.Reviewers {
				entry := map[string]any{"type": required.GetType()}
				switch reviewer := required.Reviewer.(type) {
				case *github.User:
					entry["reviewer"] = map[string]any{"login": reviewer.GetLogin()}
				case *github.Team:
					entry["reviewer"] = map[string]any{
						"combined_slug": c.org + "/" + reviewer.GetSlug(),
						"slug":          reviewer.GetSlug(),
					}
				}
				reviewers = append(reviewers, entry)
			}
			rules = append(rules, map[string]any{
				"type":      "required_reviewers",
				"reviewers": reviewers,
			})
		}
	}
	raw["protection_rules"] = rules

	if policy := env.DeploymentBranchPolicy; policy != nil {
		raw["deployment_branch_policy"] = map[string]any{
			"protected_branches":     policy.GetProtectedBranches(),
			"custom_branch_policies": policy.GetCustomBranchPolicies(),
		}
	}
	return raw
}

func (c *Client) deploymentBranchPolicies(ctx context.Context, repo, env string) ([]string, error) {
	var policies *github.DeploymentBranchPolicyResponse
	err := c.withRetry(ctx, func() error {
		var err error
		policies, _, err = c.rest.Repositories.ListDeploymentBranchPolicies(ctx, c.org, repo, env)
		return wrapError(err, fmt.Sprintf("environment %s branch policies", env))
	})
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(policies.BranchPolicies))
	for _, policy := range policies.BranchPolicies {
		names = append(names, policy.GetName())
	}
	return names, nil
}

// PutEnvironment creates or replaces a deployment environment, then
// converges its custom branch policy list when one applies.
func (c *Client) PutEnvironment(ctx context.Context, repo, name string, payload map[string]any) error {
	env := &github.CreateUpdateEnvironment{}
	if v, ok := payload["wait_timer"]; ok {
		env.WaitTimer = github.Int(int(int64Value(v)))
	}
	if v, ok := payload["reviewers"]; ok {
		if entries, ok := v.([]any); ok {
			reviewers := make([]*github.EnvReviewers, 0, len(entries))
			for _, entry := range entries {
				m, ok := entry.(map[string]any)
				if !ok {
					continue
				}
				reviewers = append(reviewers, &github.EnvReviewers{
					Type: github.String(stringValue(m["type"])),
					ID:   github.Int64(int64Value(m["id"])),
				})
			}
			env.Reviewers = reviewers
		}
	}

	wantCustomPolicies := false
	if v, ok := payload["deployment_branch_policy"]; ok && v != nil {
		if m, ok := v.(map[string]any); ok {
			env.DeploymentBranchPolicy = &github.BranchPolicy{
				ProtectedBranches:    github.Bool(boolValue(m["protected_branches"])),
				CustomBranchPolicies: github.Bool(boolValue(m["custom_branch_policies"])),
			}
			wantCustomPolicies = boolValue(m["custom_branch_policies"])
		}
	}

	err := c.withRetry(ctx, func() error {
		_, _, err := c.rest.Repositories.CreateUpdateEnvironment(ctx, c.org, repo, name, env)
		return wrapError(err, fmt.Sprintf("environment %s", name))
	})
	if err != nil {
		return err
	}

	if wantCustomPolicies {
		want := stringListValue(payload["branch_policies"])
		if err := c.syncBranchPolicies(ctx, repo, name, want); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) syncBranchPolicies(ctx context.Context, repo, env string, want []string) error {
	var current *github.DeploymentBranchPolicyResponse
	err := c.withRetry(ctx, func() error {
		var err error
		current, _, err = c.rest.Repositories.ListDeploymentBranchPolicies(ctx, c.org, repo, env)
		return wrapError(err, fmt.Sprintf("environment %s branch policies", env))
	})
	if err != nil {
		return err
	}

	wanted := make(map[string]bool, len(want))
	for _, name := range want {
		wanted[name] = true
	}

	existing := map[string]bool{}
	for _, policy := range current.BranchPolicies {
		name := policy.GetName()
		existing[name] = true
		if wanted[name] {
			continue
		}
		id := policy.GetID()
		err := c.withRetry(ctx, func() error {
			_, err := c.rest.Repositories.DeleteDeploymentBranchPolicy(ctx, c.org, repo, env, id)
			return wrapError(err, fmt.Sprintf("environment %s branch policy %s", env, name))
		})
		if err != nil && !isAlreadyGone(err) {
			return err
		}
	}

	for _, name := range want {
		if existing[name] {
			continue
		}
		request := &github.DeploymentBranchPolicyRequest{Name: github.String(name)}
		err := c.withRetry(ctx, func() error {
			_, _, err := c.rest.Repositories.CreateDeploymentBranchPolicy(ctx, c.org, repo, env, request)
			return wrapError(err, fmt.Sprintf("environment %s branch policy %s", env, name))
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// DeleteEnvironment removes a deployment environment, treating an already
// absent one as success.
func (c *Client) DeleteEnvironment(ctx context.Context, repo, name string) error {
	err := c.withRetry(ctx, func() error {
		_, err := c.rest.Repositories.DeleteEnvironment(ctx, c.org, repo, name)
		return wrapError(err, fmt.Sprintf("environment %s", name))
	})
	if isAlreadyGone(err) {
		c.logger.Debug("environment already deleted", "repo", repo, "name", name)
		return nil
	}
	return err
}
