package model

// ArcPosition locates a chapter within the larger dramatic arc.
type ArcPosition string

const (
	ArcBeginning  ArcPosition = "beginning"
	ArcMiddle     ArcPosition = "middle"
	ArcClimax     ArcPosition = "climax"
	ArcResolution ArcPosition = "resolution"
)

// Seed is a narrative element planted for later payoff.
type Seed struct {
	ID             string `json:"id" validate:"required"`
	Description    string `json:"description" validate:"required"`
	ExpectedPayoff string `json:"expected_payoff" validate:"required"`
}

// SeedResolution pays off a seed planted by an earlier chapter.
// SourceSceneID ties the payoff to the scene where it lands; it stays
// empty until the chapter's scenes exist and a caller records it.
type SeedResolution struct {
	SeedID            string `json:"seed_id" validate:"required"`
	PayoffDescription string `json:"payoff_description" validate:"required"`
	SourceSceneID     string `json:"source_scene_id,omitempty"`
}

// Chapter carries one micro virtue cycle. OrderIndex is global and
// monotonic across the story, not per part.
type Chapter struct {
	ID                        string           `json:"id"`
	PartID                    string           `json:"part_id" validate:"required"`
	StoryID                   string           `json:"story_id" validate:"required"`
	OrderIndex                int              `json:"order_index" validate:"required,min=1"`
	Title                     string           `json:"title" validate:"required"`
	Summary                   string           `json:"summary" validate:"required"`
	ArcPosition               ArcPosition      `json:"arc_position" validate:"required,oneof=beginning middle climax resolution"`
	CharacterArc              ArcCycle         `json:"character_arc" validate:"required"`
	FocusCharacters           []string         `json:"focus_characters" validate:"required,min=1,dive,required"`
	SettingIDs                []string         `json:"setting_ids" validate:"required,min=1,dive,required"`
	SeedsPlanted              []Seed           `json:"seeds_planted" validate:"dive"`
	SeedsResolved             []SeedResolution `json:"seeds_resolved" validate:"dive"`
	ConnectsToPreviousChapter string           `json:"connects_to_previous_chapter" validate:"required"`
	CreatesNextAdversity      string           `json:"creates_next_adversity" validate:"required"`
}

func (c *Chapter) EntityType() EntityType { return TypeChapter }
func (c *Chapter) EntityID() string       { return c.ID }
func (c *Chapter) SetEntityID(id string)  { c.ID = id }
func (c *Chapter) ParentID() string       { return c.PartID }
func (c *Chapter) Order() int             { return c.OrderIndex }
