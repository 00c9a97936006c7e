package reconcile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"orgsync/pkg/model"
)

// ProviderClient is the provider surface reconciliation runs against.
// Methods exchange raw provider payloads keyed by model field names; the
// translation to entities stays in pkg/model. pkg/gh ships the GitHub
// implementation.
type ProviderClient interface {
	model.Resolver

	GetOrgSettings(ctx context.Context) (map[string]any, error)
	UpdateOrgSettings(ctx context.Context, payload map[string]any) error

	GetOrgWorkflowSettings(ctx context.Context) (map[string]any, error)
	UpdateOrgWorkflowSettings(ctx context.Context, payload map[string]any) error

	ListOrgWebhooks(ctx context.Context) ([]map[string]any, error)
	CreateOrgWebhook(ctx context.Context, payload map[string]any) error
	UpdateOrgWebhook(ctx context.Context, id int64, payload map[string]any) error
	DeleteOrgWebhook(ctx context.Context, id int64) error

	ListOrgSecrets(ctx context.Context) ([]map[string]any, error)
	PutOrgSecret(ctx context.Context, name string, payload map[string]any) error
	DeleteOrgSecret(ctx context.Context, name string) error

	ListRepositories(ctx context.Context) ([]map[string]any, error)
	CreateRepository(ctx context.Context, payload map[string]any, opts CreateRepoOptions) error
	UpdateRepository(ctx context.Context, repo string, payload map[string]any) error
	DeleteRepository(ctx context.Context, repo string) error

	GetRepoWorkflowSettings(ctx context.Context, repo string) (map[string]any, error)
	UpdateRepoWorkflowSettings(ctx context.Context, repo string, payload map[string]any) error

	ListRepoWebhooks(ctx context.Context, repo string) ([]map[string]any, error)
	CreateRepoWebhook(ctx context.Context, repo string, payload map[string]any) error
	UpdateRepoWebhook(ctx context.Context, repo string, id int64, payload map[string]any) error
	DeleteRepoWebhook(ctx context.Context, repo string, id int64) error

	ListRepoSecrets(ctx context.Context, repo string) ([]map[string]any, error)
	PutRepoSecret(ctx context.Context, repo, name string, payload map[string]any) error
	DeleteRepoSecret(ctx context.Context, repo, name string) error

	ListEnvironments(ctx context.Context, repo string) ([]map[string]any, error)
	PutEnvironment(ctx context.Context, repo, name string, payload map[string]any) error
	DeleteEnvironment(ctx context.Context, repo, name string) error

	ListBranchProtections(ctx context.Context, repo string) ([]map[string]any, error)
	CreateBranchProtection(ctx context.Context, repo string, payload map[string]any) error
	UpdateBranchProtection(ctx context.Context, id string, payload map[string]any) error
	DeleteBranchProtection(ctx context.Context, id string) error
}

// CreateRepoOptions carries the creation-only knobs that are not part of
// the repository's settable field payload.
type CreateRepoOptions struct {
	AutoInit                   bool
	TemplateRepository         string
	PostProcessTemplateContent []string
}

// Applier executes a plan patch by patch. Every patch is an independent
// unit of work: a failure is recorded and the remaining patches still run.
type Applier struct {
	client ProviderClient
	logger *slog.Logger
}

// NewApplier builds an applier driving client, logging per-patch progress
// to logger. A nil logger discards output.
func NewApplier(client ProviderClient, logger *slog.Logger) *Applier {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Applier{client: client, logger: logger}
}

// Result reports the per-patch outcome of an apply run.
type Result struct {
	Applied []Ref
	Failed  []Failure
}

// Failure records one patch that could not be applied.
type Failure struct {
	Target Ref
	Action string
	Err    error
}

// PartialFailureError reports that some patches failed while the rest of
// the plan still went through.
type PartialFailureError struct {
	Failures []Failure
}

// Error implements error.
func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("%d patch(es) failed to apply", len(e.Failures))
}

// Unwrap exposes the underlying patch errors.
func (e *PartialFailureError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f.Err
	}
	return errs
}

// Apply executes the plan in order. Patches that fail are collected into
// the result and reported as one PartialFailureError at the end; only a
// cancelled context aborts the run early.
func (a *Applier) Apply(ctx context.Context, plan *Plan) (*Result, error) {
	result := &Result{}
	for _, patch := range plan.Patches {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		action := actionName(patch)
		target := patch.Target()
		a.logger.Info("applying patch", "action", action, "target", target.String())
		if err := a.applyOne(ctx, patch); err != nil {
			a.logger.Error("patch failed", "action", action, "target", target.String(), "error", err)
			result.Failed = append(result.Failed, Failure{Target: target, Action: action, Err: err})
			continue
		}
		result.Applied = append(result.Applied, target)
	}
	if len(result.Failed) > 0 {
		return result, &PartialFailureError{Failures: result.Failed}
	}
	return result, nil
}

// actionName names the patch operation for logs and failure reports.
func actionName(p Patch) string {
	switch p.(type) {
	case AddPatch:
		return "add"
	case ChangePatch:
		return "change"
	case RemovePatch:
		return "remove"
	}
	return "unknown"
}

func (a *Applier) applyOne(ctx context.Context, patch Patch) error {
	switch p := patch.(type) {
	case AddPatch:
		return a.applyAdd(ctx, p)
	case ChangePatch:
		return a.applyChange(ctx, p)
	case RemovePatch:
		return a.applyRemove(ctx, p)
	}
	return fmt.Errorf("reconcile: unsupported patch type %T", patch)
}

func (a *Applier) applyAdd(ctx context.Context, p AddPatch) error {
	switch p.Ref.Kind {
	case model.KindOrgWebhook:
		hook := p.Expected.(*model.OrganizationWebhook)
		return a.client.CreateOrgWebhook(ctx, hook.ToProvider(nil))
	case model.KindOrgSecret:
		secret := p.Expected.(*model.OrganizationSecret)
		payload, err := secret.ToProvider(ctx, a.client, nil)
		if err != nil {
			return err
		}
		return a.client.PutOrgSecret(ctx, secret.Name.Or(""), payload)
	case model.KindRepository:
		return a.createRepository(ctx, p.Expected.(*model.Repository))
	case model.KindRepoWebhook:
		hook := p.Expected.(*model.RepositoryWebhook)
		return a.client.CreateRepoWebhook(ctx, p.Ref.Repo, hook.ToProvider(nil))
	case model.KindRepoSecret:
		secret := p.Expected.(*model.RepositorySecret)
		return a.client.PutRepoSecret(ctx, p.Ref.Repo, secret.Name.Or(""), secret.ToProvider(nil))
	case model.KindEnvironment:
		env := p.Expected.(*model.Environment)
		payload, err := env.ToProvider(ctx, a.client, nil)
		if err != nil {
			return err
		}
		return a.client.PutEnvironment(ctx, p.Ref.Repo, env.Name.Or(""), payload)
	case model.KindBranchProtectionRule:
		rule := p.Expected.(*model.BranchProtectionRule)
		payload, err := rule.ToProvider(ctx, a.client, nil)
		if err != nil {
			return err
		}
		return a.client.CreateBranchProtection(ctx, p.Ref.Repo, payload)
	}
	return fmt.Errorf("reconcile: cannot add %s", p.Ref.Kind)
}

// applyChange updates one live entity. Targets behind a PATCH-style
// endpoint get a payload restricted to the changed fields; targets the
// provider replaces wholesale on write (webhooks, secrets, environments)
// get the full payload so unchanged settings survive the write.
func (a *Applier) applyChange(ctx context.Context, p ChangePatch) error {
	fields := p.Changes.Fields()
	switch p.Ref.Kind {
	case model.KindOrgSettings:
		settings := p.Expected.(*model.OrganizationSettings)
		return a.client.UpdateOrgSettings(ctx, settings.ToProvider(fields))
	case model.KindOrgWorkflowSettings:
		settings := p.Expected.(*model.OrganizationWorkflowSettings)
		payload, err := settings.ToProvider(ctx, a.client, fields)
		if err != nil {
			return err
		}
		return a.client.UpdateOrgWorkflowSettings(ctx, payload)
	case model.KindOrgWebhook:
		hook := p.Expected.(*model.OrganizationWebhook)
		id, err := webhookID(p.Current)
		if err != nil {
			return err
		}
		payload := hook.ToProvider(nil)
		if hook.HasDummySecret() {
			delete(payload, "secret")
		}
		return a.client.UpdateOrgWebhook(ctx, id, payload)
	case model.KindOrgSecret:
		secret := p.Expected.(*model.OrganizationSecret)
		payload, err := secret.ToProvider(ctx, a.client, nil)
		if err != nil {
			return err
		}
		if secret.HasDummyValue() {
			delete(payload, "value")
		}
		return a.client.PutOrgSecret(ctx, secret.Name.Or(""), payload)
	case model.KindRepository:
		repo := p.Expected.(*model.Repository)
		return a.client.UpdateRepository(ctx, p.Ref.Key, repo.ToProvider(fields))
	case model.KindRepoWorkflowSettings:
		settings := p.Expected.(*model.RepositoryWorkflowSettings)
		return a.client.UpdateRepoWorkflowSettings(ctx, p.Ref.Repo, settings.ToProvider(fields))
	case model.KindRepoWebhook:
		hook := p.Expected.(*model.RepositoryWebhook)
		id, err := webhookID(p.Current)
		if err != nil {
			return err
		}
		payload := hook.ToProvider(nil)
		if hook.HasDummySecret() {
			delete(payload, "secret")
		}
		return a.client.UpdateRepoWebhook(ctx, p.Ref.Repo, id, payload)
	case model.KindRepoSecret:
		secret := p.Expected.(*model.RepositorySecret)
		payload := secret.ToProvider(nil)
		if secret.HasDummyValue() {
			delete(payload, "value")
		}
		return a.client.PutRepoSecret(ctx, p.Ref.Repo, secret.Name.Or(""), payload)
	case model.KindEnvironment:
		env := p.Expected.(*model.Environment)
		payload, err := env.ToProvider(ctx, a.client, nil)
		if err != nil {
			return err
		}
		return a.client.PutEnvironment(ctx, p.Ref.Repo, env.Name.Or(""), payload)
	case model.KindBranchProtectionRule:
		rule := p.Expected.(*model.BranchProtectionRule)
		id, ok := p.Current.(*model.BranchProtectionRule).ID.Get()
		if !ok || id == "" {
			return fmt.Errorf("reconcile: live branch protection rule %s has no provider id", p.Ref)
		}
		payload, err := rule.ToProvider(ctx, a.client, fields)
		if err != nil {
			return err
		}
		return a.client.UpdateBranchProtection(ctx, id, payload)
	}
	return fmt.Errorf("reconcile: cannot change %s", p.Ref.Kind)
}

func (a *Applier) applyRemove(ctx context.Context, p RemovePatch) error {
	switch p.Ref.Kind {
	case model.KindOrgWebhook:
		id, err := webhookID(p.Current)
		if err != nil {
			return err
		}
		return a.client.DeleteOrgWebhook(ctx, id)
	case model.KindOrgSecret:
		return a.client.DeleteOrgSecret(ctx, p.Ref.Key)
	case model.KindRepository:
		return a.client.DeleteRepository(ctx, p.Ref.Key)
	case model.KindRepoWebhook:
		id, err := webhookID(p.Current)
		if err != nil {
			return err
		}
		return a.client.DeleteRepoWebhook(ctx, p.Ref.Repo, id)
	case model.KindRepoSecret:
		return a.client.DeleteRepoSecret(ctx, p.Ref.Repo, p.Ref.Key)
	case model.KindEnvironment:
		return a.client.DeleteEnvironment(ctx, p.Ref.Repo, p.Ref.Key)
	case model.KindBranchProtectionRule:
		id, ok := p.Current.(*model.BranchProtectionRule).ID.Get()
		if !ok || id == "" {
			return fmt.Errorf("reconcile: live branch protection rule %s has no provider id", p.Ref)
		}
		return a.client.DeleteBranchProtection(ctx, id)
	}
	return fmt.Errorf("reconcile: cannot remove %s", p.Ref.Kind)
}

// createRepository creates the repository and then its configured children
// in one pass, so an added repository never contributes separate child
// patches to the plan.
func (a *Applier) createRepository(ctx context.Context, repo *model.Repository) error {
	opts := CreateRepoOptions{AutoInit: repo.AutoInit.Or(false)}
	if tpl, ok := repo.TemplateRepository.Get(); ok {
		opts.TemplateRepository = tpl
	}
	if post, ok := repo.PostProcessTemplateContent.Get(); ok {
		opts.PostProcessTemplateContent = post
	}
	if err := a.client.CreateRepository(ctx, repo.ToProvider(nil), opts); err != nil {
		return err
	}

	name := repo.Key()
	if repo.Workflows != nil {
		if payload := repo.Workflows.ToProvider(nil); len(payload) > 0 {
			if err := a.client.UpdateRepoWorkflowSettings(ctx, name, payload); err != nil {
				return err
			}
		}
	}
	for _, hook := range repo.Webhooks {
		if err := a.client.CreateRepoWebhook(ctx, name, hook.ToProvider(nil)); err != nil {
			return err
		}
	}
	for _, secret := range repo.Secrets {
		if err := a.client.PutRepoSecret(ctx, name, secret.Name.Or(""), secret.ToProvider(nil)); err != nil {
			return err
		}
	}
	for _, env := range repo.Environments {
		payload, err := env.ToProvider(ctx, a.client, nil)
		if err != nil {
			return err
		}
		if err := a.client.PutEnvironment(ctx, name, env.Name.Or(""), payload); err != nil {
			return err
		}
	}
	if repo.Archived.Or(false) {
		return nil
	}
	for _, rule := range repo.BranchProtectionRules {
		payload, err := rule.ToProvider(ctx, a.client, nil)
		if err != nil {
			return err
		}
		if err := a.client.CreateBranchProtection(ctx, name, payload); err != nil {
			return err
		}
	}
	return nil
}

// webhookID extracts the provider id recorded on a live webhook.
func webhookID(o model.ModelObject) (int64, error) {
	var id model.Value[int]
	switch hook := o.(type) {
	case *model.OrganizationWebhook:
		id = hook.ID
	case *model.RepositoryWebhook:
		id = hook.ID
	default:
		return 0, fmt.Errorf("reconcile: %T is not a webhook", o)
	}
	v, ok := id.Get()
	if !ok {
		return 0, errors.New("reconcile: live webhook has no provider id")
	}
	return int64(v), nil
}
