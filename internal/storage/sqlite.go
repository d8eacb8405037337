package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/vampirenirmal/storyweave/internal/core"
	"github.com/vampirenirmal/storyweave/internal/model"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS entities (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    type TEXT NOT NULL,
    id TEXT NOT NULL,
    parent_id TEXT NOT NULL,
    story_id TEXT NOT NULL,
    order_index INTEGER NOT NULL,
    data TEXT NOT NULL,
    UNIQUE(type, id)
);

CREATE INDEX IF NOT EXISTS idx_entities_parent ON entities(type, parent_id, order_index);
CREATE INDEX IF NOT EXISTS idx_entities_story ON entities(story_id);
`

// SQLite is a Store backed by a single sqlite database.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (and if needed initializes) a sqlite-backed store.
// Use ":memory:" for an ephemeral database.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) Get(ctx context.Context, entityType model.EntityType, id string) (model.Entity, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT data FROM entities WHERE type = ? AND id = ?`, string(entityType), id)

	var data []byte
	if err := row.Scan(&data); err == sql.ErrNoRows {
		return nil, core.ErrNotFound
	} else if err != nil {
		return nil, &core.PersistenceError{Op: "get", Cause: err}
	}

	e, err := newEntity(entityType)
	if err != nil {
		return nil, &core.PersistenceError{Op: "get", Cause: err}
	}
	if err := json.Unmarshal(data, e); err != nil {
		return nil, &core.PersistenceError{Op: "get", Cause: err}
	}
	return e, nil
}

func (s *SQLite) ListByParent(ctx context.Context, entityType model.EntityType, parentID string) ([]model.Entity, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT data FROM entities WHERE type = ? AND parent_id = ? ORDER BY order_index, seq`,
		string(entityType), parentID)
	if err != nil {
		return nil, &core.PersistenceError{Op: "list", Cause: err}
	}
	defer rows.Close()

	var entities []model.Entity
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, &core.PersistenceError{Op: "list", Cause: err}
		}
		e, err := newEntity(entityType)
		if err != nil {
			return nil, &core.PersistenceError{Op: "list", Cause: err}
		}
		if err := json.Unmarshal(data, e); err != nil {
			return nil, &core.PersistenceError{Op: "list", Cause: err}
		}
		entities = append(entities, e)
	}
	if err := rows.Err(); err != nil {
		return nil, &core.PersistenceError{Op: "list", Cause: err}
	}
	return entities, nil
}

func (s *SQLite) Insert(ctx context.Context, e model.Entity) error {
	if e.EntityID() == "" {
		return &core.PersistenceError{Op: "insert", Cause: fmt.Errorf("entity id is empty")}
	}
	data, err := json.Marshal(e)
	if err != nil {
		return &core.PersistenceError{Op: "insert", Cause: err}
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO entities(type, id, parent_id, story_id, order_index, data) VALUES(?,?,?,?,?,?)`,
		string(e.EntityType()), e.EntityID(), e.ParentID(), storyIDOf(e), e.Order(), string(data))
	if err != nil {
		return &core.PersistenceError{Op: "insert", Cause: err}
	}
	return nil
}

func (s *SQLite) Update(ctx context.Context, e model.Entity) error {
	data, err := json.Marshal(e)
	if err != nil {
		return &core.PersistenceError{Op: "update", Cause: err}
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE entities SET parent_id = ?, story_id = ?, order_index = ?, data = ? WHERE type = ? AND id = ?`,
		e.ParentID(), storyIDOf(e), e.Order(), string(data), string(e.EntityType()), e.EntityID())
	if err != nil {
		return &core.PersistenceError{Op: "update", Cause: err}
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return &core.PersistenceError{Op: "update", Cause: err}
	}
	if affected == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (s *SQLite) DeleteStory(ctx context.Context, storyID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM entities WHERE story_id = ?`, storyID); err != nil {
		return &core.PersistenceError{Op: "delete", Cause: err}
	}
	return nil
}
