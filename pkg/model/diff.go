package model

import "fmt"

// Change records a single field transition from the current value to the
// expected one.
type Change struct {
	From Raw
	To   Raw
}

// FieldDiff maps field names to their changes. An empty diff means the two
// states already agree.
type FieldDiff map[string]Change

// Fields returns the changed field names as a FieldSet for provider-bound
// payload restriction.
func (d FieldDiff) Fields() FieldSet {
	fs := make(FieldSet, len(d))
	for name := range d {
		fs[name] = true
	}
	return fs
}

// FieldPredicate decides whether a field participates in diff computation.
type FieldPredicate func(FieldDescriptor) bool

// includeAll admits every field.
func includeAll(FieldDescriptor) bool { return true }

// Diff compares expected against current field by field. A field
// participates only when it is a plain provider-settable field, the
// predicate admits it, and the expected side is not Unset. Excluded fields
// never appear in the result even when literally different.
func Diff(expected, current ModelObject, include FieldPredicate) (FieldDiff, error) {
	if expected.Kind() != current.Kind() {
		return nil, fmt.Errorf("cannot diff %s against %s", expected.Kind(), current.Kind())
	}
	if include == nil {
		include = includeAll
	}

	diff := make(FieldDiff)
	for _, d := range expected.Fields() {
		if d.Nested || d.ExternalOnly || d.ModelOnly || d.ReadOnly {
			continue
		}
		if !include(d) {
			continue
		}
		want := d.GetRaw(expected)
		if want.State == Unset {
			continue
		}
		have := d.GetRaw(current)
		if !want.Equal(have) {
			diff[d.Name] = Change{From: have, To: want}
		}
	}
	return diff, nil
}

// DiffObjects diffs two same-kind entities applying the entity type's own
// eligibility predicate (archived and visibility exclusions, pages and
// workflow gating, web-only organization settings). This is the single
// entry point list reconciliation uses.
func DiffObjects(expected, current ModelObject) (FieldDiff, error) {
	switch want := expected.(type) {
	case *OrganizationSettings:
		have, ok := current.(*OrganizationSettings)
		if !ok {
			return nil, fmt.Errorf("cannot diff %s against %s", expected.Kind(), current.Kind())
		}
		return Diff(want, have, want.diffPredicate(have))
	case *Repository:
		have, ok := current.(*Repository)
		if !ok {
			return nil, fmt.Errorf("cannot diff %s against %s", expected.Kind(), current.Kind())
		}
		return Diff(want, have, want.diffPredicate(have))
	case *Environment:
		have, ok := current.(*Environment)
		if !ok {
			return nil, fmt.Errorf("cannot diff %s against %s", expected.Kind(), current.Kind())
		}
		return Diff(want, have, want.diffPredicate(have))
	case *OrganizationWorkflowSettings:
		have, ok := current.(*OrganizationWorkflowSettings)
		if !ok {
			return nil, fmt.Errorf("cannot diff %s against %s", expected.Kind(), current.Kind())
		}
		return Diff(want, have, want.diffPredicate(have))
	case *RepositoryWorkflowSettings:
		have, ok := current.(*RepositoryWorkflowSettings)
		if !ok {
			return nil, fmt.Errorf("cannot diff %s against %s", expected.Kind(), current.Kind())
		}
		return Diff(want, have, want.diffPredicate(have))
	case *OrganizationWebhook:
		have, ok := current.(*OrganizationWebhook)
		if !ok {
			return nil, fmt.Errorf("cannot diff %s against %s", expected.Kind(), current.Kind())
		}
		return Diff(want, have, want.webhookCore.diffPredicate(&have.webhookCore))
	case *RepositoryWebhook:
		have, ok := current.(*RepositoryWebhook)
		if !ok {
			return nil, fmt.Errorf("cannot diff %s against %s", expected.Kind(), current.Kind())
		}
		return Diff(want, have, want.webhookCore.diffPredicate(&have.webhookCore))
	case *OrganizationSecret:
		have, ok := current.(*OrganizationSecret)
		if !ok {
			return nil, fmt.Errorf("cannot diff %s against %s", expected.Kind(), current.Kind())
		}
		return Diff(want, have, want.diffPredicate(have))
	case *RepositorySecret:
		have, ok := current.(*RepositorySecret)
		if !ok {
			return nil, fmt.Errorf("cannot diff %s against %s", expected.Kind(), current.Kind())
		}
		return Diff(want, have, want.diffPredicate(have))
	default:
		return Diff(expected, current, nil)
	}
}
