package core

import (
	"errors"
	"fmt"
)

// =============================================================================
// Error Types
// =============================================================================

// MissingDependencyError reports that parent-level entities required by a
// stage are absent. Stage-scoped: the stage creates nothing.
type MissingDependencyError struct {
	Stage   string
	StoryID string
	Missing string
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("stage %s for story %s: missing dependency: %s", e.Stage, e.StoryID, e.Missing)
}

func (e *MissingDependencyError) Is(target error) bool {
	return target == ErrMissingDependency
}

// SchemaError reports adapter output that fails shape validation.
// Unit-scoped and retryable.
type SchemaError struct {
	Entity string
	Cause  error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema validation failed for %s: %v", e.Entity, e.Cause)
}

func (e *SchemaError) Unwrap() error { return e.Cause }

func (e *SchemaError) Is(target error) bool {
	return target == ErrSchema
}

// SeedReferenceError reports a seed-ledger integrity violation.
// Unit-scoped and retryable.
type SeedReferenceError struct {
	SeedID    string
	ChapterID string
	Duplicate bool // second resolution of an already-resolved seed
}

func (e *SeedReferenceError) Error() string {
	if e.Duplicate {
		return fmt.Sprintf("seed %s already resolved before chapter %s", e.SeedID, e.ChapterID)
	}
	return fmt.Sprintf("seed %s referenced by chapter %s was never planted in an earlier chapter", e.SeedID, e.ChapterID)
}

func (e *SeedReferenceError) Is(target error) bool {
	if e.Duplicate {
		return target == ErrDuplicateSeedResolution
	}
	return target == ErrDanglingSeedReference
}

// ContractViolationError reports a structural-contract failure
// (cycle phase mismatch, incomplete arc, id-array membership).
// Unit-scoped and retryable.
type ContractViolationError struct {
	Entity string
	Field  string
	Detail string
}

func (e *ContractViolationError) Error() string {
	return fmt.Sprintf("structural contract violation in %s.%s: %s", e.Entity, e.Field, e.Detail)
}

func (e *ContractViolationError) Is(target error) bool {
	return target == ErrContractViolation
}

// PersistenceError wraps a storage collaborator failure. Propagated
// unmodified, no local recovery.
type PersistenceError struct {
	Op    string
	Cause error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failed during %s: %v", e.Op, e.Cause)
}

func (e *PersistenceError) Unwrap() error { return e.Cause }

func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

// =============================================================================
// Sentinel Values
// =============================================================================

var (
	ErrMissingDependency       = errors.New("missing dependency")
	ErrSchema                  = errors.New("schema validation failed")
	ErrDanglingSeedReference   = errors.New("dangling seed reference")
	ErrDuplicateSeedResolution = errors.New("duplicate seed resolution")
	ErrContractViolation       = errors.New("structural contract violation")
	ErrPersistence             = errors.New("persistence error")
	ErrNotFound                = errors.New("entity not found")
	ErrUnknownStage            = errors.New("unknown stage")
)

// =============================================================================
// Classification
// =============================================================================

// IsStageScoped reports whether the error aborts the whole stage call
// with no partial progress.
func IsStageScoped(err error) bool {
	return errors.Is(err, ErrMissingDependency) || errors.Is(err, ErrUnknownStage)
}

// IsUnitScoped reports whether the error affects a single generation
// unit. Already-persisted siblings remain valid and the caller may
// retry just that unit.
func IsUnitScoped(err error) bool {
	return errors.Is(err, ErrSchema) ||
		errors.Is(err, ErrDanglingSeedReference) ||
		errors.Is(err, ErrDuplicateSeedResolution) ||
		errors.Is(err, ErrContractViolation)
}

// IsRetryable reports whether a retry of the failed unit can succeed.
// Persistence failures propagate unmodified and are not classified here.
func IsRetryable(err error) bool {
	return IsUnitScoped(err)
}
