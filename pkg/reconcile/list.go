package reconcile

import "orgsync/pkg/model"

// listOptions tunes one same-typed list reconciliation.
type listOptions struct {
	// ref builds the patch reference for an entity.
	ref func(model.ModelObject) Ref
	// matchKeys returns the identities an expected entity matches under.
	// Nil means the entity's own key only.
	matchKeys func(model.ModelObject) []string
	// keepCurrent marks current entities whose lifecycle the provider
	// manages; they are never proposed for removal.
	keepCurrent func(model.ModelObject) bool
	// diff overrides the field diff for matched pairs. Nil means
	// model.DiffObjects.
	diff func(expected, current model.ModelObject) (model.FieldDiff, error)
}

// pair is a matched expected/current entity couple, used by callers to
// recurse into nested children.
type pair struct {
	expected model.ModelObject
	current  model.ModelObject
}

// reconcileList reconciles two same-typed entity lists keyed by stable
// identity. Ordering is part of the contract: CHANGE and REMOVE patches
// come first in current-list order, then ADD patches in expected-list
// order.
func reconcileList(expected, current []model.ModelObject, opts listOptions) ([]Patch, []pair, error) {
	matchKeys := opts.matchKeys
	if matchKeys == nil {
		matchKeys = func(o model.ModelObject) []string { return []string{o.Key()} }
	}

	expectedByKey := make(map[string]model.ModelObject)
	for _, e := range expected {
		for _, key := range matchKeys(e) {
			if _, taken := expectedByKey[key]; !taken {
				expectedByKey[key] = e
			}
		}
	}

	var (
		patches []Patch
		pairs   []pair
		claimed = make(map[model.ModelObject]bool, len(expected))
	)

	for _, c := range current {
		e, ok := expectedByKey[c.Key()]
		if !ok || claimed[e] {
			if opts.keepCurrent != nil && opts.keepCurrent(c) {
				continue
			}
			patches = append(patches, RemovePatch{Ref: opts.ref(c), Current: c})
			continue
		}
		claimed[e] = true
		pairs = append(pairs, pair{expected: e, current: c})

		diffFn := opts.diff
		if diffFn == nil {
			diffFn = model.DiffObjects
		}
		diff, err := diffFn(e, c)
		if err != nil {
			return nil, nil, err
		}
		if len(diff) > 0 {
			patches = append(patches, ChangePatch{Ref: opts.ref(c), Expected: e, Current: c, Changes: diff})
		}
	}

	for _, e := range expected {
		if !claimed[e] {
			patches = append(patches, AddPatch{Ref: opts.ref(e), Expected: e})
		}
	}
	return patches, pairs, nil
}
