package model

import (
	"fmt"
	"strings"
)

// Kind identifies a concrete entity type.
type Kind string

const (
	KindOrganization         Kind = "organization"
	KindOrgSettings          Kind = "organization_settings"
	KindOrgWorkflowSettings  Kind = "organization_workflow_settings"
	KindOrgWebhook           Kind = "organization_webhook"
	KindOrgSecret            Kind = "organization_secret"
	KindRepository           Kind = "repository"
	KindRepoWorkflowSettings Kind = "repository_workflow_settings"
	KindRepoWebhook          Kind = "repository_webhook"
	KindRepoSecret           Kind = "repository_secret"
	KindEnvironment          Kind = "environment"
	KindBranchProtectionRule Kind = "branch_protection_rule"
)

// ModelObject is implemented by every configurable entity. Entities are
// records of three-state field values described by a static descriptor
// table; all generic machinery works through that table.
type ModelObject interface {
	// Kind identifies the entity type.
	Kind() Kind
	// Key returns the value of the entity's key field, or "" for
	// singleton entities that have none.
	Key() string
	// Fields returns the entity's static field descriptor table.
	Fields() []FieldDescriptor
}

// Organization is the containment root: one settings object, one workflow
// settings object, and the webhook, secret, and repository collections.
type Organization struct {
	GitHubID         string
	Settings         *OrganizationSettings
	WorkflowSettings *OrganizationWorkflowSettings
	Webhooks         []*OrganizationWebhook
	Secrets          []*OrganizationSecret
	Repositories     []*Repository
}

// SiteRepositoryName returns the name of the organization's special site
// repository ("<org>.github.io").
func (o *Organization) SiteRepositoryName() string {
	return strings.ToLower(o.GitHubID) + ".github.io"
}

// Visitor receives entities during a tree walk. Repository-scoped entities
// are delivered together with their owning repository.
type Visitor interface {
	VisitOrgSettings(settings *OrganizationSettings) error
	VisitOrgWorkflowSettings(settings *OrganizationWorkflowSettings) error
	VisitOrgWebhook(webhook *OrganizationWebhook) error
	VisitOrgSecret(secret *OrganizationSecret) error
	VisitRepository(repo *Repository) error
	VisitRepoWorkflowSettings(repo *Repository, settings *RepositoryWorkflowSettings) error
	VisitRepoWebhook(repo *Repository, webhook *RepositoryWebhook) error
	VisitRepoSecret(repo *Repository, secret *RepositorySecret) error
	VisitEnvironment(repo *Repository, env *Environment) error
	VisitBranchProtectionRule(repo *Repository, rule *BranchProtectionRule) error
}

// Walk traverses the organization tree in canonical order: settings,
// workflow settings, webhooks, secrets, then each repository followed
// depth-first by its workflow settings, webhooks, secrets, environments,
// and branch protection rules. Validation, rendering, and reporting all
// share this order.
func Walk(org *Organization, v Visitor) error {
	if org.Settings != nil {
		if err := v.VisitOrgSettings(org.Settings); err != nil {
			return err
		}
	}
	if org.WorkflowSettings != nil {
		if err := v.VisitOrgWorkflowSettings(org.WorkflowSettings); err != nil {
			return err
		}
	}
	for _, hook := range org.Webhooks {
		if err := v.VisitOrgWebhook(hook); err != nil {
			return err
		}
	}
	for _, secret := range org.Secrets {
		if err := v.VisitOrgSecret(secret); err != nil {
			return err
		}
	}
	for _, repo := range org.Repositories {
		if err := v.VisitRepository(repo); err != nil {
			return err
		}
		if repo.Workflows != nil {
			if err := v.VisitRepoWorkflowSettings(repo, repo.Workflows); err != nil {
				return err
			}
		}
		for _, hook := range repo.Webhooks {
			if err := v.VisitRepoWebhook(repo, hook); err != nil {
				return err
			}
		}
		for _, secret := range repo.Secrets {
			if err := v.VisitRepoSecret(repo, secret); err != nil {
				return err
			}
		}
		for _, env := range repo.Environments {
			if err := v.VisitEnvironment(repo, env); err != nil {
				return err
			}
		}
		for _, rule := range repo.BranchProtectionRules {
			if err := v.VisitBranchProtectionRule(repo, rule); err != nil {
				return err
			}
		}
	}
	return nil
}

// fromProviderScalars fills every non-nested field whose wire name appears
// in raw. Fields absent from raw stay Unset. Model-only fields never come
// from the provider and are skipped.
func fromProviderScalars(o ModelObject, raw map[string]any) error {
	for _, d := range o.Fields() {
		if d.Nested || d.ModelOnly {
			continue
		}
		v, ok := raw[d.Name]
		if !ok {
			continue
		}
		r := RawOf(v)
		if v == nil {
			r = RawNull()
		}
		if err := d.SetRaw(o, r); err != nil {
			return fmt.Errorf("%s: %w", o.Kind(), err)
		}
	}
	return nil
}

// toProviderScalars emits every Set field eligible for a provider-bound
// payload. Null fields are emitted as explicit JSON nulls. When fields is
// non-nil the emission is restricted to the named fields.
func toProviderScalars(o ModelObject, fields FieldSet) map[string]any {
	payload := make(map[string]any)
	for _, d := range o.Fields() {
		if d.Nested || d.ModelOnly || d.ExternalOnly || d.ReadOnly {
			continue
		}
		if fields != nil && !fields[d.Name] {
			continue
		}
		switch r := d.GetRaw(o); r.State {
		case Set:
			payload[d.Name] = r.V
		case Null:
			payload[d.Name] = nil
		}
	}
	return payload
}

// FieldSet names a subset of an entity's fields, used to restrict
// provider-bound payloads to changed fields. Nil means "all set fields".
type FieldSet map[string]bool

// isDummyValue reports whether s is an unresolved placeholder: a non-empty
// string consisting solely of '*' characters.
func isDummyValue(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c != '*' {
			return false
		}
	}
	return true
}

// enumString formats an allowed-values list for findings.
func enumString(allowed []string) string {
	return strings.Join(allowed, ", ")
}

// validEnum reports whether a Set value lies within the allowed set; unset
// and null values are always acceptable.
func validEnum(v Value[string], allowed ...string) bool {
	s, ok := v.Get()
	if !ok {
		return true
	}
	for _, a := range allowed {
		if s == a {
			return true
		}
	}
	return false
}
