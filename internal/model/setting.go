package model

// ElementBundle groups categorized narrative elements a setting offers
// for one phase of the virtue cycle.
type ElementBundle struct {
	Physical []string `json:"physical" validate:"required,min=1,dive,required"`
	Social   []string `json:"social" validate:"required,min=1,dive,required"`
	Symbolic []string `json:"symbolic"`
}

// SensoryBundle holds concrete sensory material scene prose can draw on.
type SensoryBundle struct {
	Sights   []string `json:"sights" validate:"required,min=1,dive,required"`
	Sounds   []string `json:"sounds" validate:"required,min=1,dive,required"`
	Smells   []string `json:"smells"`
	Textures []string `json:"textures"`
}

// Setting belongs to a story; parts and chapters reference settings by id.
type Setting struct {
	ID                  string        `json:"id"`
	StoryID             string        `json:"story_id" validate:"required"`
	Name                string        `json:"name" validate:"required"`
	AdversityElements   ElementBundle `json:"adversity_elements" validate:"required"`
	VirtueElements      ElementBundle `json:"virtue_elements" validate:"required"`
	ConsequenceElements ElementBundle `json:"consequence_elements" validate:"required"`
	SensoryDetails      SensoryBundle `json:"sensory_details" validate:"required"`
	SymbolicMeaning     string        `json:"symbolic_meaning" validate:"required"`
}

func (s *Setting) EntityType() EntityType { return TypeSetting }
func (s *Setting) EntityID() string       { return s.ID }
func (s *Setting) SetEntityID(id string)  { s.ID = id }
func (s *Setting) ParentID() string       { return s.StoryID }
func (s *Setting) Order() int             { return 0 }
