package playbook

import "github.com/strands-sre/strands/pkg/models"

// BumpKind classifies the significance of a playbook content change.
type BumpKind int

const (
	BumpPatch BumpKind = iota
	BumpMinor
	BumpMajor
)

func (b BumpKind) String() string {
	switch b {
	case BumpMajor:
		return "MAJOR"
	case BumpMinor:
		return "MINOR"
	default:
		return "PATCH"
	}
}

// Bump returns the next version for the given bump kind.
func Bump(v models.Version, kind BumpKind) models.Version {
	switch kind {
	case BumpMajor:
		return models.Version{Major: v.Major + 1, Minor: 0, Patch: 0}
	case BumpMinor:
		return models.Version{Major: v.Major, Minor: v.Minor + 1, Patch: 0}
	default:
		return models.Version{Major: v.Major, Minor: v.Minor, Patch: v.Patch + 1}
	}
}

// ChangeDescriptor summarises what changed between two playbook revisions,
// the input to Classify.
type ChangeDescriptor struct {
	StepsSemanticsChanged bool // steps added/removed/reordered non-trivially
	RollbackChanged       bool
	AuxiliaryStepsAdded   bool
	WordingOnly           bool
}

// Classify applies the versioning rule: MAJOR if the ordered
// step list's semantics or rollback procedure changed; MINOR if auxiliary
// steps were added or wording refined while preserving the critical path;
// PATCH for text-only fixes.
func Classify(c ChangeDescriptor) BumpKind {
	switch {
	case c.StepsSemanticsChanged || c.RollbackChanged:
		return BumpMajor
	case c.AuxiliaryStepsAdded:
		return BumpMinor
	default:
		return BumpPatch
	}
}
