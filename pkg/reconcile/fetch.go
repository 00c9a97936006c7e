package reconcile

import (
	"context"
	"fmt"

	"orgsync/pkg/model"
)

// FetchOrganization reads the complete live organization tree through
// client. Repository children are fetched per repository, so the call
// volume grows with the number of managed repositories.
func FetchOrganization(ctx context.Context, client ProviderClient, githubID string) (*model.Organization, error) {
	org := &model.Organization{GitHubID: githubID}

	raw, err := client.GetOrgSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching organization settings: %w", err)
	}
	if org.Settings, err = model.OrganizationSettingsFromProvider(raw); err != nil {
		return nil, err
	}

	raw, err = client.GetOrgWorkflowSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching organization workflow settings: %w", err)
	}
	if org.WorkflowSettings, err = model.OrganizationWorkflowSettingsFromProvider(raw); err != nil {
		return nil, err
	}

	hooks, err := client.ListOrgWebhooks(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing organization webhooks: %w", err)
	}
	for _, raw := range hooks {
		hook, err := model.OrganizationWebhookFromProvider(raw)
		if err != nil {
			return nil, err
		}
		org.Webhooks = append(org.Webhooks, hook)
	}

	secrets, err := client.ListOrgSecrets(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing organization secrets: %w", err)
	}
	for _, raw := range secrets {
		secret, err := model.OrganizationSecretFromProvider(raw)
		if err != nil {
			return nil, err
		}
		org.Secrets = append(org.Secrets, secret)
	}

	repos, err := client.ListRepositories(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing repositories: %w", err)
	}
	for _, raw := range repos {
		repo, err := fetchRepository(ctx, client, raw)
		if err != nil {
			return nil, err
		}
		org.Repositories = append(org.Repositories, repo)
	}
	return org, nil
}

// fetchRepository builds one repository with its nested children from the
// listed payload. Archived repositories are read like any other; the
// planner decides what of their frozen state is reconcilable.
func fetchRepository(ctx context.Context, client ProviderClient, raw map[string]any) (*model.Repository, error) {
	repo, err := model.RepositoryFromProvider(raw)
	if err != nil {
		return nil, err
	}
	name := repo.Key()
	if name == "" {
		return nil, fmt.Errorf("listed repository carries no name: %v", raw)
	}

	wfRaw, err := client.GetRepoWorkflowSettings(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("fetching workflow settings of %q: %w", name, err)
	}
	if repo.Workflows, err = model.RepositoryWorkflowSettingsFromProvider(wfRaw); err != nil {
		return nil, err
	}

	hooks, err := client.ListRepoWebhooks(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("listing webhooks of %q: %w", name, err)
	}
	for _, raw := range hooks {
		hook, err := model.RepositoryWebhookFromProvider(raw)
		if err != nil {
			return nil, err
		}
		repo.Webhooks = append(repo.Webhooks, hook)
	}

	secrets, err := client.ListRepoSecrets(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("listing secrets of %q: %w", name, err)
	}
	for _, raw := range secrets {
		secret, err := model.RepositorySecretFromProvider(raw)
		if err != nil {
			return nil, err
		}
		repo.Secrets = append(repo.Secrets, secret)
	}

	envs, err := client.ListEnvironments(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("listing environments of %q: %w", name, err)
	}
	for _, raw := range envs {
		env, err := model.EnvironmentFromProvider(raw)
		if err != nil {
			return nil, err
		}
		repo.Environments = append(repo.Environments, env)
	}

	rules, err := client.ListBranchProtections(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("listing branch protection rules of %q: %w", name, err)
	}
	for _, raw := range rules {
		rule, err := model.BranchProtectionRuleFromProvider(raw)
		if err != nil {
			return nil, err
		}
		repo.BranchProtectionRules = append(repo.BranchProtectionRules, rule)
	}
	return repo, nil
}
