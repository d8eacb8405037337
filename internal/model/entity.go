package model

// EntityType identifies a persistable entity kind.
type EntityType string

const (
	TypeStory        EntityType = "story"
	TypeCharacter    EntityType = "character"
	TypeSetting      EntityType = "setting"
	TypePart         EntityType = "part"
	TypeChapter      EntityType = "chapter"
	TypeSceneSummary EntityType = "scene_summary"
	TypeSceneContent EntityType = "scene_content"
)

// Entity is implemented by every persistable record. Stores key
// records by (type, id) and list siblings by (type, parent, order).
type Entity interface {
	EntityType() EntityType
	EntityID() string
	SetEntityID(id string)
	ParentID() string
	Order() int
}
