// Package contract enforces the cross-entity invariants generated
// content must satisfy before persistence: the macro/micro virtue cycle,
// the five-phase scene cycle, and id-array subset membership.
//
// All checks are pure functions of their inputs. Re-running a check on
// an already-persisted entity yields the same result.
package contract

import (
	"fmt"

	"github.com/vampirenirmal/storyweave/internal/core"
	"github.com/vampirenirmal/storyweave/internal/model"
)

// ExpectedPhase maps a scene's 1-based position within its chapter to
// the cycle phase it must carry. Positions past the four-beat cycle are
// all transitions.
func ExpectedPhase(position int) model.CyclePhase {
	switch position {
	case 1:
		return model.PhaseSetup
	case 2:
		return model.PhaseAdversity
	case 3:
		return model.PhaseVirtue
	case 4:
		return model.PhaseConsequence
	default:
		return model.PhaseTransition
	}
}

// CheckArcCycle verifies that one virtue cycle has all four phase
// fields populated. entity names the record under check for error
// reporting ("part" or "chapter").
func CheckArcCycle(entity string, arc model.ArcCycle) error {
	switch {
	case arc.CharacterID == "":
		return violation(entity, "characterArc.characterId", "empty")
	case arc.Adversity.Internal == "":
		return violation(entity, "characterArc.adversity.internal", "empty")
	case arc.Adversity.External == "":
		return violation(entity, "characterArc.adversity.external", "empty")
	case arc.Virtue == "":
		return violation(entity, "characterArc.virtue", "empty")
	case arc.Consequence == "":
		return violation(entity, "characterArc.consequence", "empty")
	case arc.NewAdversity == "":
		return violation(entity, "characterArc.newAdversity", "empty")
	}
	return nil
}

// CheckPart verifies a part's macro arcs and setting references against
// the story's characters and settings.
func CheckPart(part *model.Part, characters []*model.Character, settings []*model.Setting) error {
	if len(part.CharacterArcs) == 0 {
		return violation("part", "characterArcs", "at least one macro arc required")
	}

	known := make(map[string]bool, len(characters))
	for _, c := range characters {
		known[c.ID] = true
	}
	for _, arc := range part.CharacterArcs {
		if err := CheckArcCycle("part", arc); err != nil {
			return err
		}
		if !known[arc.CharacterID] {
			return violation("part", "characterArcs.characterId",
				fmt.Sprintf("character %s does not exist on story", arc.CharacterID))
		}
	}

	if len(part.SettingIDs) < 2 || len(part.SettingIDs) > 4 {
		return violation("part", "settingIds",
			fmt.Sprintf("expected 2-4 settings, got %d", len(part.SettingIDs)))
	}
	knownSettings := make(map[string]bool, len(settings))
	for _, s := range settings {
		knownSettings[s.ID] = true
	}
	for _, id := range part.SettingIDs {
		if !knownSettings[id] {
			return violation("part", "settingIds", fmt.Sprintf("setting %s does not exist on story", id))
		}
	}
	return nil
}

// CheckChapter verifies a chapter's micro cycle against its ancestor
// part: the cycle is complete, the arc character appears in the part's
// macro arcs (referential containment, not phase matching), the
// chapter's settings are a subset of the part's, and the causal link
// fields are non-empty.
func CheckChapter(chapter *model.Chapter, part *model.Part) error {
	if err := CheckArcCycle("chapter", chapter.CharacterArc); err != nil {
		return err
	}

	inMacro := false
	for _, arc := range part.CharacterArcs {
		if arc.CharacterID == chapter.CharacterArc.CharacterID {
			inMacro = true
			break
		}
	}
	if !inMacro {
		return violation("chapter", "characterArc.characterId",
			fmt.Sprintf("character %s has no macro arc in part %d", chapter.CharacterArc.CharacterID, part.OrderIndex))
	}

	partSettings := make(map[string]bool, len(part.SettingIDs))
	for _, id := range part.SettingIDs {
		partSettings[id] = true
	}
	if len(chapter.SettingIDs) == 0 {
		return violation("chapter", "settingIds", "empty")
	}
	for _, id := range chapter.SettingIDs {
		if !partSettings[id] {
			return violation("chapter", "settingIds",
				fmt.Sprintf("setting %s is not among the owning part's settings", id))
		}
	}

	// Soft causal links: machine-checked for non-emptiness only.
	if chapter.ConnectsToPreviousChapter == "" {
		return violation("chapter", "connectsToPreviousChapter", "empty")
	}
	if chapter.CreatesNextAdversity == "" {
		return violation("chapter", "createsNextAdversity", "empty")
	}
	return nil
}

// CheckScene verifies a scene summary against its chapter: the cycle
// phase matches the position-derived expectation and the scene's
// setting is one of the chapter's settings. Downstream prose generation
// reasons about phase to select tone and pacing, so a phase mismatch
// is a hard failure.
func CheckScene(scene *model.SceneSummary, chapter *model.Chapter) error {
	expected := ExpectedPhase(scene.OrderIndex)
	if scene.CyclePhase != expected {
		return violation("scene", "cyclePhase",
			fmt.Sprintf("position %d requires %s, got %s", scene.OrderIndex, expected, scene.CyclePhase))
	}

	ok := false
	for _, id := range chapter.SettingIDs {
		if id == scene.SettingID {
			ok = true
			break
		}
	}
	if !ok {
		return violation("scene", "settingId",
			fmt.Sprintf("setting %s is not among the chapter's settings", scene.SettingID))
	}
	return nil
}

func violation(entity, field, detail string) error {
	return &core.ContractViolationError{Entity: entity, Field: field, Detail: detail}
}
