// Package reconcile computes and applies the ordered patch sequence that
// brings live organization state in line with the configured state. Patch
// generation is pure tree computation; only the Applier touches the
// provider.
package reconcile

import (
	"fmt"

	"orgsync/pkg/model"
)

// Ref locates an entity within the organization tree for diagnostics and
// apply dispatch.
type Ref struct {
	Kind model.Kind
	// Repo is the owning repository name for repository-scoped entities,
	// "" for organization-level ones.
	Repo string
	// Key is the entity's own key, "" for singletons.
	Key string
}

// String renders the reference for logs and error messages.
func (r Ref) String() string {
	s := string(r.Kind)
	if r.Key != "" {
		s = fmt.Sprintf("%s[%s]", s, r.Key)
	}
	if r.Repo != "" {
		s = fmt.Sprintf("repository[%s].%s", r.Repo, s)
	}
	return s
}

// Patch is the unit of reconciliation work for one entity. It is a closed
// union: exactly AddPatch, RemovePatch, and ChangePatch implement it, and
// apply dispatch fails loudly on anything else.
type Patch interface {
	Target() Ref
	sealed()
}

// AddPatch creates an entity that exists in configuration but not live.
// For repositories the nested children are created wholesale as part of
// this one patch, never as separate child patches.
type AddPatch struct {
	Ref      Ref
	Expected model.ModelObject
}

// Target implements Patch.
func (p AddPatch) Target() Ref { return p.Ref }

func (AddPatch) sealed() {}

// RemovePatch deletes an entity that exists live but not in configuration.
// Only the current entity's identity is needed to apply it.
type RemovePatch struct {
	Ref     Ref
	Current model.ModelObject
}

// Target implements Patch.
func (p RemovePatch) Target() Ref { return p.Ref }

func (RemovePatch) sealed() {}

// ChangePatch updates an entity present on both sides whose eligible
// fields differ.
type ChangePatch struct {
	Ref      Ref
	Expected model.ModelObject
	Current  model.ModelObject
	Changes  model.FieldDiff
}

// Target implements Patch.
func (p ChangePatch) Target() Ref { return p.Ref }

func (ChangePatch) sealed() {}

// Plan is the ordered patch sequence for one reconciliation run.
type Plan struct {
	Patches []Patch
}

// IsEmpty reports whether the live state already matches configuration.
func (p *Plan) IsEmpty() bool {
	return len(p.Patches) == 0
}

// Counts returns the number of additions, changes, and removals.
func (p *Plan) Counts() (adds, changes, removes int) {
	for _, patch := range p.Patches {
		switch patch.(type) {
		case AddPatch:
			adds++
		case ChangePatch:
			changes++
		case RemovePatch:
			removes++
		}
	}
	return adds, changes, removes
}
