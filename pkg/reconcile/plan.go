package reconcile

import (
	"errors"

	"orgsync/pkg/model"
)

// PlanOrganization computes the ordered patch sequence that brings the
// live organization in line with the configured one. Order is org settings,
// org workflow settings, org webhooks, org secrets, then repositories; each
// matched repository contributes its own patch before its children. Changes
// and removals come first in live-list order, additions follow in
// configured-list order.
//
// Planning never touches the network, but it does normalize the live tree
// in place: enabling organization-wide web commit signoff rewrites each
// live repository's signoff baseline, since the provider cascades that
// setting on its own.
func PlanOrganization(expected, current *model.Organization) (*Plan, error) {
	if expected == nil || current == nil {
		return nil, errors.New("reconcile: expected and current organizations are both required")
	}
	p := &planner{expected: expected, current: current}
	for _, step := range []func() error{
		p.orgSettings,
		p.orgWorkflowSettings,
		p.orgWebhooks,
		p.orgSecrets,
		p.repositories,
	} {
		if err := step(); err != nil {
			return nil, err
		}
	}
	return &Plan{Patches: p.patches}, nil
}

// planner accumulates patches while walking the two organization trees.
type planner struct {
	expected *model.Organization
	current  *model.Organization
	patches  []Patch
}

func (p *planner) orgSettings() error {
	want := p.expected.Settings
	if want == nil {
		return nil
	}
	have := p.current.Settings
	if have == nil {
		have = &model.OrganizationSettings{}
	}
	diff, err := model.DiffObjects(want, have)
	if err != nil {
		return err
	}
	if ch, ok := diff["web_commit_signoff_required"]; ok {
		if enabled, _ := ch.To.V.(bool); enabled {
			for _, repo := range p.current.Repositories {
				repo.WebCommitSignoffRequired = model.Of(true)
			}
		}
	}
	if len(diff) > 0 {
		p.patches = append(p.patches, ChangePatch{
			Ref:      Ref{Kind: model.KindOrgSettings},
			Expected: want,
			Current:  have,
			Changes:  diff,
		})
	}
	return nil
}

func (p *planner) orgWorkflowSettings() error {
	want := p.expected.WorkflowSettings
	if want == nil {
		return nil
	}
	have := p.current.WorkflowSettings
	if have == nil {
		have = &model.OrganizationWorkflowSettings{}
	}
	diff, err := model.DiffObjects(want, have)
	if err != nil {
		return err
	}
	if len(diff) > 0 {
		p.patches = append(p.patches, ChangePatch{
			Ref:      Ref{Kind: model.KindOrgWorkflowSettings},
			Expected: want,
			Current:  have,
			Changes:  diff,
		})
	}
	return nil
}

func (p *planner) orgWebhooks() error {
	patches, _, err := reconcileList(
		asObjects(p.expected.Webhooks),
		asObjects(p.current.Webhooks),
		listOptions{ref: func(o model.ModelObject) Ref {
			return Ref{Kind: model.KindOrgWebhook, Key: o.Key()}
		}},
	)
	if err != nil {
		return err
	}
	p.patches = append(p.patches, patches...)
	return nil
}

func (p *planner) orgSecrets() error {
	patches, _, err := reconcileList(
		asObjects(p.expected.Secrets),
		asObjects(p.current.Secrets),
		listOptions{ref: func(o model.ModelObject) Ref {
			return Ref{Kind: model.KindOrgSecret, Key: o.Key()}
		}},
	)
	if err != nil {
		return err
	}
	p.patches = append(p.patches, patches...)
	return nil
}

// repositories reconciles the repository list. Matching honors aliases so
// a rename pairs the configured repository with its live counterpart
// instead of producing a remove plus an add. Additions and removals do not
// recurse: an added repository's children are created wholesale with it,
// and removing a repository takes its children along.
func (p *planner) repositories() error {
	orgProjects := p.effectiveOrgProjects()

	expectedByKey := make(map[string]*model.Repository)
	for _, want := range p.expected.Repositories {
		for _, key := range want.MatchKeys() {
			if key == "" {
				continue
			}
			if _, taken := expectedByKey[key]; !taken {
				expectedByKey[key] = want
			}
		}
	}

	claimed := make(map[*model.Repository]bool)
	for _, have := range p.current.Repositories {
		want, ok := expectedByKey[have.Key()]
		if ok && claimed[want] {
			ok = false
		}
		if !ok {
			p.patches = append(p.patches, RemovePatch{
				Ref:     Ref{Kind: model.KindRepository, Key: have.Key()},
				Current: have,
			})
			continue
		}
		claimed[want] = true

		diff, err := p.repositoryDiff(want, have, orgProjects)
		if err != nil {
			return err
		}
		if len(diff) > 0 {
			p.patches = append(p.patches, ChangePatch{
				Ref:      Ref{Kind: model.KindRepository, Key: have.Key()},
				Expected: want,
				Current:  have,
				Changes:  diff,
			})
		}
		if err := p.repoChildren(want, have); err != nil {
			return err
		}
	}

	for _, want := range p.expected.Repositories {
		if !claimed[want] {
			p.patches = append(p.patches, AddPatch{
				Ref:      Ref{Kind: model.KindRepository, Key: want.Key()},
				Expected: want,
			})
		}
	}
	return nil
}

// repositoryDiff computes the repository field diff plus the two fixups
// that need organization context.
func (p *planner) repositoryDiff(want, have *model.Repository, orgProjects bool) (model.FieldDiff, error) {
	diff, err := model.DiffObjects(want, have)
	if err != nil {
		return nil, err
	}
	// The provider ignores the repository projects flag while organization
	// projects are off, so the change would never converge.
	if !orgProjects {
		delete(diff, "has_projects")
	}
	// A pages update replaces the whole source object, so a branch change
	// must carry the path along even when the path itself is unchanged.
	if _, ok := diff["gh_pages_source_branch"]; ok {
		if _, ok := diff["gh_pages_source_path"]; !ok {
			from := have.GHPagesSourcePath.Raw()
			to := want.GHPagesSourcePath.Raw()
			if to.State == model.Unset {
				to = from
			}
			if to.State != model.Unset {
				diff["gh_pages_source_path"] = model.Change{From: from, To: to}
			}
		}
	}
	return diff, nil
}

// repoChildren reconciles the nested entities of a matched repository
// pair: workflow settings, webhooks, secrets, environments, and branch
// protection rules, in that order.
func (p *planner) repoChildren(want, have *model.Repository) error {
	repo := want.Key()
	childRef := func(kind model.Kind) func(model.ModelObject) Ref {
		return func(o model.ModelObject) Ref {
			return Ref{Kind: kind, Repo: repo, Key: o.Key()}
		}
	}

	if want.Workflows != nil {
		haveWf := have.Workflows
		if haveWf == nil {
			haveWf = &model.RepositoryWorkflowSettings{}
		}
		diff, err := model.DiffObjects(want.Workflows, haveWf)
		if err != nil {
			return err
		}
		if len(diff) > 0 {
			p.patches = append(p.patches, ChangePatch{
				Ref:      Ref{Kind: model.KindRepoWorkflowSettings, Repo: repo},
				Expected: want.Workflows,
				Current:  haveWf,
				Changes:  diff,
			})
		}
	}

	patches, _, err := reconcileList(
		asObjects(want.Webhooks),
		asObjects(have.Webhooks),
		listOptions{ref: childRef(model.KindRepoWebhook)},
	)
	if err != nil {
		return err
	}
	p.patches = append(p.patches, patches...)

	patches, _, err = reconcileList(
		asObjects(want.Secrets),
		asObjects(have.Secrets),
		listOptions{ref: childRef(model.KindRepoSecret)},
	)
	if err != nil {
		return err
	}
	p.patches = append(p.patches, patches...)

	patches, _, err = reconcileList(
		asObjects(want.Environments),
		asObjects(have.Environments),
		listOptions{
			ref:         childRef(model.KindEnvironment),
			keepCurrent: p.keepsPagesEnvironment(want, have),
		},
	)
	if err != nil {
		return err
	}
	p.patches = append(p.patches, patches...)

	// Branch protection on archived repositories is frozen; the provider
	// rejects every write against it.
	if model.Effective(want.Archived, have.Archived, false) {
		return nil
	}
	patches, _, err = reconcileList(
		asObjects(want.BranchProtectionRules),
		asObjects(have.BranchProtectionRules),
		listOptions{ref: childRef(model.KindBranchProtectionRule)},
	)
	if err != nil {
		return err
	}
	p.patches = append(p.patches, patches...)
	return nil
}

// keepsPagesEnvironment marks the provider-managed "github-pages"
// environment as not removable while the repository keeps serving pages,
// either as the organization site repository or with a pages build
// configured.
func (p *planner) keepsPagesEnvironment(want, have *model.Repository) func(model.ModelObject) bool {
	return func(o model.ModelObject) bool {
		if o.Key() != model.GitHubPagesEnvironment {
			return false
		}
		if want.IsSiteRepository(p.expected.GitHubID) {
			return true
		}
		return model.Effective(want.GHPagesBuildType, have.GHPagesBuildType, "disabled") != "disabled"
	}
}

// effectiveOrgProjects resolves whether organization projects will be on
// once the plan is applied.
func (p *planner) effectiveOrgProjects() bool {
	var want, have model.Value[bool]
	if p.expected.Settings != nil {
		want = p.expected.Settings.HasOrganizationProjects
	}
	if p.current.Settings != nil {
		have = p.current.Settings.HasOrganizationProjects
	}
	return model.Effective(want, have, true)
}

// asObjects widens a concrete entity slice for list reconciliation.
func asObjects[T model.ModelObject](items []T) []model.ModelObject {
	objs := make([]model.ModelObject, len(items))
	for i, item := range items {
		objs[i] = item
	}
	return objs
}
