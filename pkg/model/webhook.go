package model

import "net/url"

// webhookFields builds the shared descriptor table for both webhook
// scopes; bind must downcast to the concrete scope type.
func webhookFields(bind func(ModelObject) *webhookCore) []FieldDescriptor {
	return []FieldDescriptor{
		{Name: "id", Type: TypeInt, ExternalOnly: true, Bind: func(o ModelObject) any { return &bind(o).ID }},
		{Name: "url", Type: TypeString, Key: true, Bind: func(o ModelObject) any { return &bind(o).URL }},
		{Name: "active", Type: TypeBool, Default: true, Bind: func(o ModelObject) any { return &bind(o).Active }},
		{Name: "events", Type: TypeStringList, Bind: func(o ModelObject) any { return &bind(o).Events }},
		{Name: "content_type", Type: TypeString, Default: "form", Bind: func(o ModelObject) any { return &bind(o).ContentType }},
		{Name: "insecure_ssl", Type: TypeString, Default: "0", Bind: func(o ModelObject) any { return &bind(o).InsecureSSL }},
		{Name: "secret", Type: TypeString, Bind: func(o ModelObject) any { return &bind(o).Secret }},
	}
}

// webhookCore holds the fields common to organization and repository
// webhooks. The secret is write-only at the provider and never read back.
type webhookCore struct {
	ID          Value[int]
	URL         Value[string]
	Active      Value[bool]
	Events      Value[[]string]
	ContentType Value[string]
	InsecureSSL Value[string]
	Secret      Value[string]
}

// HasDummySecret reports whether the secret is an unresolved placeholder.
func (w *webhookCore) HasDummySecret() bool {
	s, ok := w.Secret.Get()
	return ok && isDummyValue(s)
}

// diffPredicate excludes the secret while either side holds a placeholder.
// The provider masks configured secrets as all '*' on read, so a secret is
// only written when the webhook is created or rides along another change.
func (w *webhookCore) diffPredicate(current *webhookCore) FieldPredicate {
	dummy := w.HasDummySecret() || current.HasDummySecret()
	return func(d FieldDescriptor) bool {
		return !(dummy && d.Name == "secret")
	}
}

func (w *webhookCore) validate(ctx *ValidationContext, path string) {
	u, hasURL := w.URL.Get()
	if !hasURL || u == "" {
		ctx.Errorf(path, "webhook url is required")
	} else if parsed, err := url.Parse(u); err != nil {
		ctx.Errorf(path, "webhook url %q is not a valid URL", u)
	} else {
		if parsed.Scheme != "http" && parsed.Scheme != "https" {
			ctx.Errorf(path, "webhook url must use http or https scheme")
		}
		if parsed.Host == "" {
			ctx.Errorf(path, "webhook url must have a valid host")
		}
	}

	if events, ok := w.Events.Get(); !ok || len(events) == 0 {
		ctx.Errorf(path, "webhook requires at least one event")
	} else {
		for _, e := range events {
			if !isValidWebhookEvent(e) {
				ctx.Errorf(path, "invalid webhook event type %q", e)
			}
		}
	}

	if !validEnum(w.ContentType, "json", "form") {
		ct, _ := w.ContentType.Get()
		ctx.Errorf(path, "content_type %q is invalid, allowed values: %s", ct, enumString([]string{"json", "form"}))
	}
	if !validEnum(w.InsecureSSL, "0", "1") {
		v, _ := w.InsecureSSL.Get()
		ctx.Errorf(path, "insecure_ssl %q is invalid, allowed values: %s", v, enumString([]string{"0", "1"}))
	}
	if w.HasDummySecret() {
		ctx.Infof(path, "webhook secret is a placeholder and will not be updated")
	}
}

// OrganizationWebhook is a webhook configured at the organization level,
// identified by its target URL.
type OrganizationWebhook struct {
	webhookCore
}

var orgWebhookFields = webhookFields(func(o ModelObject) *webhookCore { return &o.(*OrganizationWebhook).webhookCore })

// Kind implements ModelObject.
func (w *OrganizationWebhook) Kind() Kind { return KindOrgWebhook }

// Key implements ModelObject.
func (w *OrganizationWebhook) Key() string { return w.URL.Or("") }

// Fields implements ModelObject.
func (w *OrganizationWebhook) Fields() []FieldDescriptor { return orgWebhookFields }

// OrganizationWebhookFromProvider builds a webhook from a provider payload.
func OrganizationWebhookFromProvider(raw map[string]any) (*OrganizationWebhook, error) {
	w := &OrganizationWebhook{}
	if err := fromProviderScalars(w, raw); err != nil {
		return nil, err
	}
	return w, nil
}

// ToProvider emits the provider-bound payload, restricted to fields when
// non-nil.
func (w *OrganizationWebhook) ToProvider(fields FieldSet) map[string]any {
	return toProviderScalars(w, fields)
}

// Validate appends findings for the webhook rules.
func (w *OrganizationWebhook) Validate(ctx *ValidationContext) {
	w.validate(ctx, orgChildPath("webhook", w.Key()))
}

// RepositoryWebhook is a webhook configured on a single repository,
// identified by its target URL.
type RepositoryWebhook struct {
	webhookCore
}

var repoWebhookFields = webhookFields(func(o ModelObject) *webhookCore { return &o.(*RepositoryWebhook).webhookCore })

// Kind implements ModelObject.
func (w *RepositoryWebhook) Kind() Kind { return KindRepoWebhook }

// Key implements ModelObject.
func (w *RepositoryWebhook) Key() string { return w.URL.Or("") }

// Fields implements ModelObject.
func (w *RepositoryWebhook) Fields() []FieldDescriptor { return repoWebhookFields }

// RepositoryWebhookFromProvider builds a webhook from a provider payload.
func RepositoryWebhookFromProvider(raw map[string]any) (*RepositoryWebhook, error) {
	w := &RepositoryWebhook{}
	if err := fromProviderScalars(w, raw); err != nil {
		return nil, err
	}
	return w, nil
}

// ToProvider emits the provider-bound payload, restricted to fields when
// non-nil.
func (w *RepositoryWebhook) ToProvider(fields FieldSet) map[string]any {
	return toProviderScalars(w, fields)
}

// Validate appends findings for the webhook rules.
func (w *RepositoryWebhook) Validate(ctx *ValidationContext, repo *Repository) {
	w.validate(ctx, repoChildPath(repo, "webhook", w.Key()))
}

// isValidWebhookEvent checks the event name against the known set.
func isValidWebhookEvent(event string) bool {
	validEvents := map[string]bool{
		"push":                        true,
		"pull_request":                true,
		"issues":                      true,
		"issue_comment":               true,
		"pull_request_review":         true,
		"pull_request_review_comment": true,
		"commit_comment":              true,
		"create":                      true,
		"delete":                      true,
		"deployment":                  true,
		"deployment_status":           true,
		"fork":                        true,
		"gollum":                      true,
		"member":                      true,
		"membership":                  true,
		"milestone":                   true,
		"organization":                true,
		"page_build":                  true,
		"project":                     true,
		"project_card":                true,
		"project_column":              true,
		"public":                      true,
		"release":                     true,
		"repository":                  true,
		"status":                      true,
		"team":                        true,
		"team_add":                    true,
		"watch":                       true,
	}
	return validEvents[event]
}
