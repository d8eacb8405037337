package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		stageScoped bool
		unitScoped  bool
	}{
		{
			name:        "missing dependency is stage scoped",
			err:         &MissingDependencyError{Stage: "parts", StoryID: "s1", Missing: "characters"},
			stageScoped: true,
		},
		{
			name:        "unknown stage is stage scoped",
			err:         fmt.Errorf("%w: %q", ErrUnknownStage, "poems"),
			stageScoped: true,
		},
		{
			name:       "schema failure is unit scoped",
			err:        &SchemaError{Entity: "chapter", Cause: errors.New("bad json")},
			unitScoped: true,
		},
		{
			name:       "dangling seed is unit scoped",
			err:        &SeedReferenceError{SeedID: "seed-a", ChapterID: "ch-2"},
			unitScoped: true,
		},
		{
			name:       "duplicate resolution is unit scoped",
			err:        &SeedReferenceError{SeedID: "seed-a", ChapterID: "ch-3", Duplicate: true},
			unitScoped: true,
		},
		{
			name:       "contract violation is unit scoped",
			err:        &ContractViolationError{Entity: "scene", Field: "cyclePhase", Detail: "mismatch"},
			unitScoped: true,
		},
		{
			name: "persistence failure is neither",
			err:  &PersistenceError{Op: "insert", Cause: errors.New("disk full")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsStageScoped(tt.err); got != tt.stageScoped {
				t.Errorf("IsStageScoped() = %v, want %v", got, tt.stageScoped)
			}
			if got := IsUnitScoped(tt.err); got != tt.unitScoped {
				t.Errorf("IsUnitScoped() = %v, want %v", got, tt.unitScoped)
			}
			if got := IsRetryable(tt.err); got != tt.unitScoped {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.unitScoped)
			}
		})
	}
}

func TestSeedReferenceErrorSentinels(t *testing.T) {
	dangling := &SeedReferenceError{SeedID: "s", ChapterID: "c"}
	if !errors.Is(dangling, ErrDanglingSeedReference) {
		t.Error("dangling error does not match ErrDanglingSeedReference")
	}
	if errors.Is(dangling, ErrDuplicateSeedResolution) {
		t.Error("dangling error matches ErrDuplicateSeedResolution")
	}

	dup := &SeedReferenceError{SeedID: "s", ChapterID: "c", Duplicate: true}
	if !errors.Is(dup, ErrDuplicateSeedResolution) {
		t.Error("duplicate error does not match ErrDuplicateSeedResolution")
	}
	if errors.Is(dup, ErrDanglingSeedReference) {
		t.Error("duplicate error matches ErrDanglingSeedReference")
	}
}

func TestPersistenceErrorUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := &PersistenceError{Op: "insert", Cause: cause}
	if !errors.Is(err, cause) {
		t.Error("PersistenceError does not unwrap its cause")
	}
	if !errors.Is(err, ErrPersistence) {
		t.Error("PersistenceError does not match ErrPersistence")
	}
}
