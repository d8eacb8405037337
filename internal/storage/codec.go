package storage

import (
	"encoding/json"
	"fmt"

	"github.com/vampirenirmal/storyweave/internal/model"
)

// newEntity returns an empty concrete record for a type, so stored JSON
// documents can be decoded back into typed entities.
func newEntity(t model.EntityType) (model.Entity, error) {
	switch t {
	case model.TypeStory:
		return &model.Story{}, nil
	case model.TypeCharacter:
		return &model.Character{}, nil
	case model.TypeSetting:
		return &model.Setting{}, nil
	case model.TypePart:
		return &model.Part{}, nil
	case model.TypeChapter:
		return &model.Chapter{}, nil
	case model.TypeSceneSummary:
		return &model.SceneSummary{}, nil
	case model.TypeSceneContent:
		return &model.SceneContent{}, nil
	default:
		return nil, fmt.Errorf("unknown entity type %q", t)
	}
}

// storyIDOf resolves the owning story for any entity, used for
// whole-story reset.
func storyIDOf(e model.Entity) string {
	switch v := e.(type) {
	case *model.Story:
		return v.ID
	case *model.Character:
		return v.StoryID
	case *model.Setting:
		return v.StoryID
	case *model.Part:
		return v.StoryID
	case *model.Chapter:
		return v.StoryID
	case *model.SceneSummary:
		return v.StoryID
	case *model.SceneContent:
		return v.StoryID
	default:
		return ""
	}
}

// envelope wraps a stored document with the indexing fields the store
// needs without re-decoding the payload.
type envelope struct {
	Type     model.EntityType `json:"type"`
	ID       string           `json:"id"`
	ParentID string           `json:"parent_id"`
	StoryID  string           `json:"story_id"`
	Order    int              `json:"order"`
	Seq      int64            `json:"seq"`
	Data     json.RawMessage  `json:"data"`
}

func wrap(e model.Entity, seq int64) (*envelope, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshaling %s: %w", e.EntityType(), err)
	}
	return &envelope{
		Type:     e.EntityType(),
		ID:       e.EntityID(),
		ParentID: e.ParentID(),
		StoryID:  storyIDOf(e),
		Order:    e.Order(),
		Seq:      seq,
		Data:     data,
	}, nil
}

func (env *envelope) unwrap() (model.Entity, error) {
	e, err := newEntity(env.Type)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(env.Data, e); err != nil {
		return nil, fmt.Errorf("unmarshaling %s %s: %w", env.Type, env.ID, err)
	}
	return e, nil
}
