package storage

import (
	"context"

	"github.com/vampirenirmal/storyweave/internal/model"
)

// Store is the persistence collaborator. Implementations guarantee
// per-call atomicity only; the pipeline never issues multi-entity
// transactions.
type Store interface {
	// Get returns the entity with the given type and id, or
	// core.ErrNotFound.
	Get(ctx context.Context, entityType model.EntityType, id string) (model.Entity, error)
	// ListByParent returns all entities of the given type under a
	// parent, ordered by order index, then by insertion order.
	ListByParent(ctx context.Context, entityType model.EntityType, parentID string) ([]model.Entity, error)
	// Insert persists a new entity. The entity id must already be set.
	Insert(ctx context.Context, e model.Entity) error
	// Update replaces an existing entity record.
	Update(ctx context.Context, e model.Entity) error
	// DeleteStory removes a story and everything under it. This is the
	// only deletion path; individual entities are never deleted.
	DeleteStory(ctx context.Context, storyID string) error
}
