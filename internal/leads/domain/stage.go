// Package domain holds the pure lead lifecycle rules: funnel stages and the
// stage transition resolver applied after every registry check.
package domain

// Stage is a lead's position in the acquisition funnel.
type Stage string

const (
	// StageNew is a lead that started a conversation but has no confirmed
	// registration in the professional registry.
	StageNew Stage = "new"
	// StageQualified is a lead whose registration exists in the registry but
	// is not active yet.
	StageQualified Stage = "qualified"
	// StageActivated is a lead confirmed active in the registry. Terminal for
	// automated transitions.
	StageActivated Stage = "activated"
	// StageDead is a lead abandoned after its follow-up window expired.
	// Registry activity can resurrect it.
	StageDead Stage = "dead"
)

// Legacy stage names still present in old rows. Normalized on read.
const (
	legacyInProgress = "in_progress"
	legacyProposal   = "proposal"
)

// NormalizeStage maps stored stage values, including legacy ones, onto the
// current stage set. Unknown or empty values degrade to StageNew.
func NormalizeStage(raw string) Stage {
	switch raw {
	case string(StageNew), string(StageQualified), string(StageActivated), string(StageDead):
		return Stage(raw)
	case legacyInProgress, legacyProposal, "":
		return StageNew
	default:
		return StageNew
	}
}

// Valid reports whether s is one of the current funnel stages.
func (s Stage) Valid() bool {
	switch s {
	case StageNew, StageQualified, StageActivated, StageDead:
		return true
	}
	return false
}

// CheckResult is the registry lookup outcome relevant to stage resolution.
// Active is meaningful only when Found is true.
type CheckResult struct {
	Found  bool
	Active bool
}

// ResolveStage computes the stage a lead should land in after a registry
// check. Activated is sticky: automated checks never downgrade it. A lead
// the registry does not know keeps its current stage.
func ResolveStage(current Stage, result CheckResult) Stage {
	if current == StageActivated {
		return StageActivated
	}

	if !result.Found {
		return current
	}

	if result.Active {
		return StageActivated
	}

	// Registered but not yet active. A dead lead coming back counts as
	// qualified again; activated stays put per the guard above.
	return StageQualified
}

// IsResurrection reports whether a transition takes a dead lead straight to
// activated. A dead lead that merely reappears in the registry as inactive
// moves to qualified without counting as a resurrection.
func IsResurrection(current, next Stage) bool {
	return current == StageDead && next == StageActivated
}
