package model

// CharacterRole positions a character in the cast.
type CharacterRole string

const (
	RoleProtagonist   CharacterRole = "protagonist"
	RoleDeuteragonist CharacterRole = "deuteragonist"
	RoleTritagonist   CharacterRole = "tritagonist"
	RoleAntagonist    CharacterRole = "antagonist"
	RoleSupporting    CharacterRole = "supporting"
)

// Virtue is the core trait a character's arc is built around.
type Virtue string

const (
	VirtueCourage      Virtue = "courage"
	VirtueCompassion   Virtue = "compassion"
	VirtueHonesty      Virtue = "honesty"
	VirtueLoyalty      Virtue = "loyalty"
	VirtuePerseverance Virtue = "perseverance"
	VirtueHumility     Virtue = "humility"
	VirtueJustice      Virtue = "justice"
	VirtueTemperance   Virtue = "temperance"
)

// Personality captures behavioral traits used to keep dialogue and
// decisions consistent across chapters.
type Personality struct {
	Traits      []string `json:"traits" validate:"required,min=2,dive,required"`
	Fears       []string `json:"fears" validate:"required,min=1,dive,required"`
	Desires     []string `json:"desires" validate:"required,min=1,dive,required"`
	Quirks      []string `json:"quirks"`
	MoralStance string   `json:"moral_stance" validate:"required"`
}

// Backstory anchors the character's history.
type Backstory struct {
	Origin          string   `json:"origin" validate:"required"`
	FormativeEvents []string `json:"formative_events" validate:"required,min=1,dive,required"`
	Secrets         []string `json:"secrets"`
}

// PhysicalDescription keeps appearance stable across scene prose.
type PhysicalDescription struct {
	Age            string   `json:"age" validate:"required"`
	Build          string   `json:"build" validate:"required"`
	Features       []string `json:"features" validate:"required,min=1,dive,required"`
	Distinguishing string   `json:"distinguishing"`
}

// Voice describes how the character speaks.
type Voice struct {
	SpeechPattern string   `json:"speech_pattern" validate:"required"`
	Vocabulary    string   `json:"vocabulary" validate:"required"`
	Catchphrases  []string `json:"catchphrases"`
}

// Character belongs to a story and is referenced by parts, chapters,
// and scenes through id arrays.
type Character struct {
	ID           string              `json:"id"`
	StoryID      string              `json:"story_id" validate:"required"`
	Name         string              `json:"name" validate:"required"`
	Role         CharacterRole       `json:"role" validate:"required,oneof=protagonist deuteragonist tritagonist antagonist supporting"`
	CoreTrait    Virtue              `json:"core_trait" validate:"required,oneof=courage compassion honesty loyalty perseverance humility justice temperance"`
	InternalFlaw string              `json:"internal_flaw" validate:"required"`
	ExternalGoal string              `json:"external_goal" validate:"required"`
	Personality  Personality         `json:"personality" validate:"required"`
	Backstory    Backstory           `json:"backstory" validate:"required"`
	Physical     PhysicalDescription `json:"physical_description" validate:"required"`
	Voice        Voice               `json:"voice" validate:"required"`
}

func (c *Character) EntityType() EntityType { return TypeCharacter }
func (c *Character) EntityID() string       { return c.ID }
func (c *Character) SetEntityID(id string)  { c.ID = id }
func (c *Character) ParentID() string       { return c.StoryID }
func (c *Character) Order() int             { return 0 }
