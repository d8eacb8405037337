package model

import (
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/vampirenirmal/storyweave/internal/core"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
	})
	return validate
}

// Validate runs field-level schema validation for an entity. Cross-entity
// rules (id-array membership, phase expectations) belong to the
// structural contract checker, not here.
func Validate(e Entity) error {
	if err := validatorInstance().Struct(e); err != nil {
		return &core.SchemaError{Entity: string(e.EntityType()), Cause: err}
	}
	return nil
}
