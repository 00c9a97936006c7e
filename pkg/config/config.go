// Package config loads and renders the declarative organization
// configuration document.
//
// The document is a single YAML mapping that mirrors the entity tree:
//
//	github_id: acme
//	settings: { ... }
//	workflows: { ... }
//	webhooks: [ ... ]
//	secrets: [ ... ]
//	repositories:
//	  - name: api
//	    workflows: { ... }
//	    webhooks: [ ... ]
//	    secrets: [ ... ]
//	    environments: [ ... ]
//	    branch_protection_rules: [ ... ]
//
// Keys are the wire names from the model descriptor tables. A key missing
// from the document leaves its field unset, an explicit null clears it,
// and an unknown key fails the load.
package config

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"orgsync/pkg/model"
)

// Load reads and parses the organization configuration at path.
func Load(path string) (*model.Organization, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading organization configuration")
	}
	org, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}
	return org, nil
}

var topLevelKeys = map[string]bool{
	"github_id":    true,
	"settings":     true,
	"workflows":    true,
	"webhooks":     true,
	"secrets":      true,
	"repositories": true,
}

// Parse builds the organization tree from a configuration document.
func Parse(data []byte) (*model.Organization, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "malformed YAML")
	}
	if doc == nil {
		return nil, errors.New("empty configuration document")
	}
	for key := range doc {
		if !topLevelKeys[key] {
			return nil, errors.Errorf("unknown top-level key %q", key)
		}
	}

	org := &model.Organization{}
	id, ok := doc["github_id"].(string)
	if !ok || id == "" {
		return nil, errors.New("github_id is required")
	}
	org.GitHubID = id

	settings, err := mapping(doc, "settings")
	if err != nil {
		return nil, err
	}
	if settings != nil {
		org.Settings = &model.OrganizationSettings{}
		if err := fillObject(org.Settings, settings, "settings"); err != nil {
			return nil, err
		}
	}

	workflows, err := mapping(doc, "workflows")
	if err != nil {
		return nil, err
	}
	if workflows != nil {
		org.WorkflowSettings = &model.OrganizationWorkflowSettings{}
		if err := fillObject(org.WorkflowSettings, workflows, "workflows"); err != nil {
			return nil, err
		}
	}

	hooks, err := sequence(doc, "webhooks")
	if err != nil {
		return nil, err
	}
	for i, m := range hooks {
		hook := &model.OrganizationWebhook{}
		if err := fillObject(hook, m, elemPath("webhooks", i, m, "url")); err != nil {
			return nil, err
		}
		org.Webhooks = append(org.Webhooks, hook)
	}

	secrets, err := sequence(doc, "secrets")
	if err != nil {
		return nil, err
	}
	for i, m := range secrets {
		secret := &model.OrganizationSecret{}
		if err := fillObject(secret, m, elemPath("secrets", i, m, "name")); err != nil {
			return nil, err
		}
		org.Secrets = append(org.Secrets, secret)
	}

	repos, err := sequence(doc, "repositories")
	if err != nil {
		return nil, err
	}
	for i, m := range repos {
		repo, err := repositoryFromConfig(m, i)
		if err != nil {
			return nil, err
		}
		org.Repositories = append(org.Repositories, repo)
	}
	return org, nil
}

func repositoryFromConfig(m map[string]any, index int) (*model.Repository, error) {
	repo := &model.Repository{}
	path := elemPath("repositories", index, m, "name")
	if err := fillObject(repo, m, path); err != nil {
		return nil, err
	}

	workflows, err := mapping(m, "workflows")
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	if workflows != nil {
		repo.Workflows = &model.RepositoryWorkflowSettings{}
		if err := fillObject(repo.Workflows, workflows, path+".workflows"); err != nil {
			return nil, err
		}
	}

	hooks, err := sequence(m, "webhooks")
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	for i, hm := range hooks {
		hook := &model.RepositoryWebhook{}
		if err := fillObject(hook, hm, path+"."+elemPath("webhooks", i, hm, "url")); err != nil {
			return nil, err
		}
		repo.Webhooks = append(repo.Webhooks, hook)
	}

	secrets, err := sequence(m, "secrets")
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	for i, sm := range secrets {
		secret := &model.RepositorySecret{}
		if err := fillObject(secret, sm, path+"."+elemPath("secrets", i, sm, "name")); err != nil {
			return nil, err
		}
		repo.Secrets = append(repo.Secrets, secret)
	}

	envs, err := sequence(m, "environments")
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	for i, em := range envs {
		env := &model.Environment{}
		if err := fillObject(env, em, path+"."+elemPath("environments", i, em, "name")); err != nil {
			return nil, err
		}
		repo.Environments = append(repo.Environments, env)
	}

	rules, err := sequence(m, "branch_protection_rules")
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	for i, rm := range rules {
		rule := &model.BranchProtectionRule{}
		if err := fillObject(rule, rm, path+"."+elemPath("branch_protection_rules", i, rm, "pattern")); err != nil {
			return nil, err
		}
		repo.BranchProtectionRules = append(repo.BranchProtectionRules, rule)
	}
	return repo, nil
}

// fillObject assigns every key of m into o through the descriptor table.
// Nested collection keys are left to the caller; provider-assigned fields
// must not appear in configuration at all.
func fillObject(o model.ModelObject, m map[string]any, path string) error {
	fields := o.Fields()
	byName := make(map[string]model.FieldDescriptor, len(fields))
	for _, d := range fields {
		byName[d.Name] = d
	}
	for key, v := range m {
		d, ok := byName[key]
		if !ok {
			return errors.Errorf("%s: unknown field %q", path, key)
		}
		if d.Nested {
			continue
		}
		if d.ExternalOnly {
			return errors.Errorf("%s: field %q is provider-assigned and cannot appear in configuration", path, key)
		}
		r := model.RawOf(v)
		if v == nil {
			r = model.RawNull()
		}
		if err := d.SetRaw(o, r); err != nil {
			return errors.Wrap(err, path)
		}
	}
	return nil
}

// mapping extracts a mapping-valued key from doc. Absent or null keys
// yield nil.
func mapping(doc map[string]any, key string) (map[string]any, error) {
	v, ok := doc[key]
	if !ok || v == nil {
		return nil, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, errors.Errorf("%s: expected a mapping, got %T", key, v)
	}
	return m, nil
}

// sequence extracts a list-of-mappings key from doc. Absent or null keys
// yield nil.
func sequence(doc map[string]any, key string) ([]map[string]any, error) {
	v, ok := doc[key]
	if !ok || v == nil {
		return nil, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, errors.Errorf("%s: expected a list, got %T", key, v)
	}
	out := make([]map[string]any, 0, len(list))
	for i, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, errors.Errorf("%s[%d]: expected a mapping, got %T", key, i, item)
		}
		out = append(out, m)
	}
	return out, nil
}

// elemPath names a list element in errors, preferring its key field over
// its position.
func elemPath(list string, index int, m map[string]any, keyField string) string {
	if key, ok := m[keyField].(string); ok && key != "" {
		return fmt.Sprintf("%s[%s]", list, key)
	}
	return fmt.Sprintf("%s[%d]", list, index)
}
