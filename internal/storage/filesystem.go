package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/vampirenirmal/storyweave/internal/core"
	"github.com/vampirenirmal/storyweave/internal/model"
)

// FileSystem persists one JSON document per entity under
// baseDir/<type>/<id>.json.
type FileSystem struct {
	baseDir string

	mu        sync.Mutex
	seq       int64
	seqLoaded bool
}

var entityTypes = []model.EntityType{
	model.TypeSceneContent, model.TypeSceneSummary, model.TypeChapter,
	model.TypePart, model.TypeSetting, model.TypeCharacter, model.TypeStory,
}

func NewFileSystem(baseDir string) *FileSystem {
	return &FileSystem{baseDir: baseDir}
}

// sanitizePath validates and cleans the path to prevent directory traversal.
func (fs *FileSystem) sanitizePath(path string) (string, error) {
	cleaned := filepath.Clean(path)

	if strings.Contains(cleaned, "..") {
		return "", fmt.Errorf("invalid path: contains parent directory reference")
	}
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("invalid path: absolute paths not allowed")
	}

	fullPath := filepath.Join(fs.baseDir, cleaned)
	if !strings.HasPrefix(fullPath, fs.baseDir+string(filepath.Separator)) && fullPath != fs.baseDir {
		return "", fmt.Errorf("invalid path: outside base directory")
	}

	return fullPath, nil
}

func (fs *FileSystem) entityPath(entityType model.EntityType, id string) (string, error) {
	return fs.sanitizePath(filepath.Join(string(entityType), id+".json"))
}

func (fs *FileSystem) Get(ctx context.Context, entityType model.EntityType, id string) (model.Entity, error) {
	path, err := fs.entityPath(entityType, id)
	if err != nil {
		return nil, &core.PersistenceError{Op: "get", Cause: err}
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, core.ErrNotFound
	} else if err != nil {
		return nil, &core.PersistenceError{Op: "get", Cause: err}
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, &core.PersistenceError{Op: "get", Cause: err}
	}
	e, err := env.unwrap()
	if err != nil {
		return nil, &core.PersistenceError{Op: "get", Cause: err}
	}
	return e, nil
}

func (fs *FileSystem) ListByParent(ctx context.Context, entityType model.EntityType, parentID string) ([]model.Entity, error) {
	envs, err := fs.loadAll(entityType)
	if err != nil {
		return nil, err
	}

	var matched []*envelope
	for _, env := range envs {
		if env.ParentID == parentID {
			matched = append(matched, env)
		}
	}
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

func (fs *FileSystem) Insert(ctx context.Context, e model.Entity) error {
	if e.EntityID() == "" {
		return &core.PersistenceError{Op: "insert", Cause: fmt.Errorf("entity id is empty")}
	}

	path, err := fs.entityPath(e.EntityType(), e.EntityID())
	if err != nil {
		return &core.PersistenceError{Op: "insert", Cause: err}
	}
	if _, err := os.Stat(path); err == nil {
		return &core.PersistenceError{Op: "insert", Cause: fmt.Errorf("%s %s already exists", e.EntityType(), e.EntityID())}
	}

	seq, err := fs.nextSeq()
	if err != nil {
		return err
	}
	return fs.write(path, e, seq)
}

// nextSeq hands out the next insertion sequence number. The counter
// resumes from the highest persisted envelope, so sibling ordering for
// entities without an order index survives process restarts.
func (fs *FileSystem) nextSeq() (int64, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if !fs.seqLoaded {
		for _, t := range entityTypes {
			envs, err := fs.loadAll(t)
			if err != nil {
				return 0, err
			}
			for _, env := range envs {
				if env.Seq > fs.seq {
					fs.seq = env.Seq
				}
			}
		}
		fs.seqLoaded = true
	}

	fs.seq++
	return fs.seq, nil
}

func (fs *FileSystem) Update(ctx context.Context, e model.Entity) error {
	path, err := fs.entityPath(e.EntityType(), e.EntityID())
	if err != nil {
		return &core.PersistenceError{Op: "update", Cause: err}
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return core.ErrNotFound
	} else if err != nil {
		return &core.PersistenceError{Op: "update", Cause: err}
	}
	var prev envelope
	if err := json.Unmarshal(data, &prev); err != nil {
		return &core.PersistenceError{Op: "update", Cause: err}
	}

	return fs.write(path, e, prev.Seq)
}

func (fs *FileSystem) DeleteStory(ctx context.Context, storyID string) error {
	for _, t := range entityTypes {
		envs, err := fs.loadAll(t)
		if err != nil {
			return err
		}
		for _, env := range envs {
			if env.StoryID != storyID {
				continue
			}
			path, err := fs.entityPath(t, env.ID)
			if err != nil {
				return &core.PersistenceError{Op: "delete", Cause: err}
			}
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				return &core.PersistenceError{Op: "delete", Cause: err}
			}
		}
	}
	return nil
}

func (fs *FileSystem) write(path string, e model.Entity, seq int64) error {
	env, err := wrap(e, seq)
	if err != nil {
		return &core.PersistenceError{Op: "write", Cause: err}
	}
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return &core.PersistenceError{Op: "write", Cause: err}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return &core.PersistenceError{Op: "write", Cause: err}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return &core.PersistenceError{Op: "write", Cause: err}
	}
	return nil
}

func (fs *FileSystem) loadAll(entityType model.EntityType) ([]*envelope, error) {
	dir := filepath.Join(fs.baseDir, string(entityType))
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	} else if err != nil {
		return nil, &core.PersistenceError{Op: "list", Cause: err}
	}

	var envs []*envelope
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, &core.PersistenceError{Op: "list", Cause: err}
		}
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, &core.PersistenceError{Op: "list", Cause: err}
		}
		envs = append(envs, &env)
	}
	return envs, nil
}
