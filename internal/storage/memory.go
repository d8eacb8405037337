package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/vampirenirmal/storyweave/internal/core"
	"github.com/vampirenirmal/storyweave/internal/model"
)

// Memory is an in-process Store used in tests and demos.
type Memory struct {
	mu      sync.RWMutex
	records map[model.EntityType]map[string]*envelope
	seq     int64
}

func NewMemory() *Memory {
	return &Memory{records: make(map[model.EntityType]map[string]*envelope)}
}

func (m *Memory) Get(ctx context.Context, entityType model.EntityType, id string) (model.Entity, error) {
	m.mu.RLock()
	env, ok := m.records[entityType][id]
	m.mu.RUnlock()
	if !ok {
		return nil, core.ErrNotFound
	}
	e, err := env.unwrap()
	if err != nil {
		return nil, &core.PersistenceError{Op: "get", Cause: err}
	}
	return e, nil
}

func (m *Memory) ListByParent(ctx context.Context, entityType model.EntityType, parentID string) ([]model.Entity, error) {
	m.mu.RLock()
	var matched []*envelope
	for _, env := range m.records[entityType] {
		if env.ParentID == parentID {
			matched = append(matched, env)
		}
	}
	m.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Order != matched[j].Order {
			return matched[i].Order < matched[j].Order
		}
		return matched[i].Seq < matched[j].Seq
	})

	entities := make([]model.Entity, 0, len(matched))
	for _, env := range matched {
		e, err := env.unwrap()
		if err != nil {
			return nil, &core.PersistenceError{Op: "list", Cause: err}
		}
		entities = append(entities, e)
	}
	return entities, nil
}

func (m *Memory) Insert(ctx context.Context, e model.Entity) error {
	if e.EntityID() == "" {
		return &core.PersistenceError{Op: "insert", Cause: fmt.Errorf("entity id is empty")}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	byID, ok := m.records[e.EntityType()]
	if !ok {
		byID = make(map[string]*envelope)
		m.records[e.EntityType()] = byID
	}
	if _, exists := byID[e.EntityID()]; exists {
		return &core.PersistenceError{Op: "insert", Cause: fmt.Errorf("%s %s already exists", e.EntityType(), e.EntityID())}
	}

	m.seq++
	env, err := wrap(e, m.seq)
	if err != nil {
		return &core.PersistenceError{Op: "insert", Cause: err}
	}
	byID[e.EntityID()] = env
	return nil
}

func (m *Memory) Update(ctx context.Context, e model.Entity) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev, ok := m.records[e.EntityType()][e.EntityID()]
	if !ok {
		return core.ErrNotFound
	}
	env, err := wrap(e, prev.Seq)
	if err != nil {
		return &core.PersistenceError{Op: "update", Cause: err}
	}
	m.records[e.EntityType()][e.EntityID()] = env
	return nil
}

func (m *Memory) DeleteStory(ctx context.Context, storyID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, byID := range m.records {
		for id, env := range byID {
			if env.StoryID == storyID {
				delete(byID, id)
			}
		}
	}
	return nil
}
