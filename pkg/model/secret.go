package model

import (
	"context"
	"regexp"
	"strings"
)

// secretNamePattern follows the provider's secret naming rules.
var secretNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// validateSecretName holds the naming rules shared by both secret scopes.
func validateSecretName(ctx *ValidationContext, path, name string) {
	if name == "" {
		ctx.Errorf(path, "secret name is required")
		return
	}
	if !secretNamePattern.MatchString(name) {
		ctx.Errorf(path, "secret name %q may only contain alphanumeric characters or underscores and must not start with a number", name)
	}
	if strings.HasPrefix(strings.ToUpper(name), "GITHUB_") {
		ctx.Errorf(path, "secret name %q must not start with the reserved GITHUB_ prefix", name)
	}
}

// OrganizationSecret is an Actions secret configured at the organization
// level. The value is write-only at the provider: it can never be read
// back, so an unresolved placeholder value (all '*') leaves the secret
// untouched.
type OrganizationSecret struct {
	Name                 Value[string]
	Value                Value[string]
	Visibility           Value[string]
	SelectedRepositories Value[[]string]
}

var orgSecretFields = []FieldDescriptor{
	{Name: "name", Type: TypeString, Key: true, Bind: func(o ModelObject) any { return &o.(*OrganizationSecret).Name }},
	{Name: "value", Type: TypeString, Bind: func(o ModelObject) any { return &o.(*OrganizationSecret).Value }},
	{Name: "visibility", Type: TypeString, Default: "all", Bind: func(o ModelObject) any { return &o.(*OrganizationSecret).Visibility }},
	{Name: "selected_repositories", Type: TypeStringList, Bind: func(o ModelObject) any { return &o.(*OrganizationSecret).SelectedRepositories }},
}

// Kind implements ModelObject.
func (s *OrganizationSecret) Kind() Kind { return KindOrgSecret }

// Key implements ModelObject.
func (s *OrganizationSecret) Key() string { return s.Name.Or("") }

// Fields implements ModelObject.
func (s *OrganizationSecret) Fields() []FieldDescriptor { return orgSecretFields }

// HasDummyValue reports whether the value is an unresolved placeholder.
func (s *OrganizationSecret) HasDummyValue() bool {
	v, ok := s.Value.Get()
	return ok && isDummyValue(v)
}

// OrganizationSecretFromProvider builds a secret from a provider payload.
// Values arrive masked as all-'*' placeholders, never in the clear.
func OrganizationSecretFromProvider(raw map[string]any) (*OrganizationSecret, error) {
	s := &OrganizationSecret{}
	if err := fromProviderScalars(s, raw); err != nil {
		return nil, err
	}
	return s, nil
}

// ToProvider emits the provider-bound payload. Selected repository names
// are resolved to numeric ids through res.
func (s *OrganizationSecret) ToProvider(ctx context.Context, res Resolver, fields FieldSet) (map[string]any, error) {
	payload := toProviderScalars(s, fields)
	if err := resolveSelectedRepositories(ctx, res, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// diffPredicate excludes the value while either side holds a placeholder.
// Live secrets always do, since the provider never returns values, so a
// value is only written when the secret is created or rides along another
// change.
func (s *OrganizationSecret) diffPredicate(current *OrganizationSecret) FieldPredicate {
	dummy := s.HasDummyValue() || current.HasDummyValue()
	return func(d FieldDescriptor) bool {
		return !(dummy && d.Name == "value")
	}
}

// Validate appends findings for the organization secret rules.
func (s *OrganizationSecret) Validate(ctx *ValidationContext) {
	path := orgChildPath("secret", s.Key())
	validateSecretName(ctx, path, s.Name.Or(""))

	if !validEnum(s.Visibility, "all", "private", "selected") {
		v, _ := s.Visibility.Get()
		ctx.Errorf(path, "visibility %q is invalid, allowed values: %s",
			v, enumString([]string{"all", "private", "selected"}))
	}
	if repos, ok := s.SelectedRepositories.Get(); ok && len(repos) > 0 && s.Visibility.Or("all") != "selected" {
		ctx.Warnf(path, "selected_repositories are ignored while visibility is not %q", "selected")
	}
	if s.HasDummyValue() {
		ctx.Infof(path, "secret value is a placeholder and will not be updated")
	}
}

// RepositorySecret is an Actions secret configured on a single repository.
type RepositorySecret struct {
	Name  Value[string]
	Value Value[string]
}

var repoSecretFields = []FieldDescriptor{
	{Name: "name", Type: TypeString, Key: true, Bind: func(o ModelObject) any { return &o.(*RepositorySecret).Name }},
	{Name: "value", Type: TypeString, Bind: func(o ModelObject) any { return &o.(*RepositorySecret).Value }},
}

// Kind implements ModelObject.
func (s *RepositorySecret) Kind() Kind { return KindRepoSecret }

// Key implements ModelObject.
func (s *RepositorySecret) Key() string { return s.Name.Or("") }

// Fields implements ModelObject.
func (s *RepositorySecret) Fields() []FieldDescriptor { return repoSecretFields }

// HasDummyValue reports whether the value is an unresolved placeholder.
func (s *RepositorySecret) HasDummyValue() bool {
	v, ok := s.Value.Get()
	return ok && isDummyValue(v)
}

// RepositorySecretFromProvider builds a secret from a provider payload.
// Values arrive masked as all-'*' placeholders, never in the clear.
func RepositorySecretFromProvider(raw map[string]any) (*RepositorySecret, error) {
	s := &RepositorySecret{}
	if err := fromProviderScalars(s, raw); err != nil {
		return nil, err
	}
	return s, nil
}

// ToProvider emits the provider-bound payload.
func (s *RepositorySecret) ToProvider(fields FieldSet) map[string]any {
	return toProviderScalars(s, fields)
}

// diffPredicate excludes the value while either side holds a placeholder,
// mirroring the organization-level rule.
func (s *RepositorySecret) diffPredicate(current *RepositorySecret) FieldPredicate {
	dummy := s.HasDummyValue() || current.HasDummyValue()
	return func(d FieldDescriptor) bool {
		return !(dummy && d.Name == "value")
	}
}

// Validate appends findings for the repository secret rules.
func (s *RepositorySecret) Validate(ctx *ValidationContext, repo *Repository) {
	path := repoChildPath(repo, "secret", s.Key())
	validateSecretName(ctx, path, s.Name.Or(""))
	if s.HasDummyValue() {
		ctx.Infof(path, "secret value is a placeholder and will not be updated")
	}
}
